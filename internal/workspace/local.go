// Package workspace implements the host collaborator capabilities against the
// local filesystem. The snapshot core only ever sees the narrow interfaces.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ctxsnap/ctxsnap/internal/scan"
	"github.com/ctxsnap/ctxsnap/internal/snapshot"
	"github.com/ctxsnap/ctxsnap/internal/utils"
)

const (
	// IgnoreFileName is the tool's own ignore file.
	IgnoreFileName = ".ctxsnapignore"
	// GitIgnoreFileName is the standard Git ignore file.
	GitIgnoreFileName = ".gitignore"
)

// errBinaryFile marks a read refused because the file content is binary.
var errBinaryFile = errors.New("binary file")

// errNoUnsavedContent marks the absent unsaved-buffer capability of a CLI host.
var errNoUnsavedContent = errors.New("no unsaved content")

// Local provides filesystem-backed collaborators for the snapshot builder.
type Local struct {
	useGitignore  bool
	useIgnoreFile bool
	logger        *zap.Logger
}

// NewLocal constructs a Local workspace. The flags select which ignore-rule
// sources ReadIgnoreRules consults.
func NewLocal(useGitignore, useIgnoreFile bool, logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{useGitignore: useGitignore, useIgnoreFile: useIgnoreFile, logger: logger}
}

// ListRawEntries walks the root up to depth path segments and returns one
// entry per observed file or directory, paths relative to root. Unreadable
// subdirectories are logged and skipped.
func (local *Local) ListRawEntries(root string, depth int) ([]scan.Entry, error) {
	var rawEntries []scan.Entry
	walkError := filepath.WalkDir(root, func(walkedPath string, directoryEntry fs.DirEntry, accessError error) error {
		if accessError != nil {
			local.logger.Warn("skipping unreadable path", zap.String("path", walkedPath), zap.Error(accessError))
			if directoryEntry != nil && directoryEntry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		relativePath, relativeError := filepath.Rel(root, walkedPath)
		if relativeError != nil || relativePath == "." {
			return nil
		}
		normalizedPath := filepath.ToSlash(relativePath)
		segmentCount := len(strings.Split(normalizedPath, "/"))
		if depth > 0 && segmentCount > depth {
			if directoryEntry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rawEntries = append(rawEntries, scan.Entry{Path: normalizedPath, IsDirectory: directoryEntry.IsDir()})
		return nil
	})
	if walkError != nil {
		return nil, walkError
	}
	return rawEntries, nil
}

// ReadIgnoreRules aggregates the configured ignore-rule sources. Missing or
// unreadable files contribute nothing.
func (local *Local) ReadIgnoreRules(root string) string {
	var ruleBuilder strings.Builder
	appendRules := func(fileName string) {
		ruleBytes, readError := os.ReadFile(filepath.Join(root, fileName))
		if readError != nil {
			return
		}
		ruleBuilder.Write(ruleBytes)
		ruleBuilder.WriteString("\n")
	}
	if local.useGitignore {
		appendRules(GitIgnoreFileName)
	}
	if local.useIgnoreFile {
		appendRules(IgnoreFileName)
	}
	return ruleBuilder.String()
}

// ReadFileContent reads the saved content of a root-relative path. Binary
// files are refused so the snapshot stays plain text.
func (local *Local) ReadFileContent(root, relativePath string) (string, error) {
	fileBytes, readError := os.ReadFile(filepath.Join(root, filepath.FromSlash(relativePath)))
	if readError != nil {
		return "", readError
	}
	if utils.IsBinary(fileBytes) {
		return "", fmt.Errorf("%w: %s", errBinaryFile, relativePath)
	}
	return string(fileBytes), nil
}

// ReadUnsavedContent always fails: a CLI host has no unsaved editor buffers.
func (local *Local) ReadUnsavedContent(root, relativePath string) (string, error) {
	return "", errNoUnsavedContent
}

// ListOpenDocuments reports no open documents; the active file, when any,
// arrives through the snapshot options instead.
func (local *Local) ListOpenDocuments(root string) []snapshot.DocumentInfo {
	return nil
}

// EnumerateDirectory lists up to limit file paths beneath the root-relative
// directory, for the pin-a-directory capture. Enumeration failure yields an
// empty set.
func (local *Local) EnumerateDirectory(root, directoryPath string, limit int) []string {
	var capturedFiles []string
	basePath := filepath.Join(root, filepath.FromSlash(directoryPath))
	walkError := filepath.WalkDir(basePath, func(walkedPath string, directoryEntry fs.DirEntry, accessError error) error {
		if accessError != nil {
			return nil
		}
		if directoryEntry.IsDir() {
			if directoryEntry.Name() == scan.GitDirectoryName {
				return filepath.SkipDir
			}
			return nil
		}
		if limit > 0 && len(capturedFiles) >= limit {
			return filepath.SkipAll
		}
		relativePath, relativeError := filepath.Rel(root, walkedPath)
		if relativeError != nil {
			return nil
		}
		capturedFiles = append(capturedFiles, filepath.ToSlash(relativePath))
		return nil
	})
	if walkError != nil {
		local.logger.Warn("directory enumeration failed", zap.String("directory", directoryPath), zap.Error(walkError))
		return nil
	}
	return capturedFiles
}

var _ snapshot.Workspace = (*Local)(nil)
