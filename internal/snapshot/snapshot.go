// Package snapshot assembles the bounded project snapshot document: a
// directory tree plus the content of the files the relevance tracker selected,
// fitted into a hard character budget.
package snapshot

import (
	"errors"
	"strings"

	"github.com/ctxsnap/ctxsnap/internal/scan"
)

// ErrNoProject is returned when a snapshot is requested without an open
// project root. No partial document is produced.
var ErrNoProject = errors.New("no open project")

// DocumentInfo describes one document known to the host editor.
type DocumentInfo struct {
	Path       string
	LanguageID string
	Active     bool
}

// Workspace is the narrow set of host capabilities the assembler consumes.
// Implementations exist for the local filesystem and for test fixtures.
type Workspace interface {
	// ListRawEntries performs a flat filesystem scan bounded by depth, with
	// directories distinguishably marked.
	ListRawEntries(root string, depth int) ([]scan.Entry, error)
	// ReadIgnoreRules returns raw ignore-rule text for the root; a missing or
	// unreadable source yields an empty string.
	ReadIgnoreRules(root string) string
	// ReadFileContent reads the saved content of a root-relative path.
	ReadFileContent(root, relativePath string) (string, error)
	// ReadUnsavedContent reads an in-memory, not-yet-saved version of the
	// path, used as a fallback when the primary read fails.
	ReadUnsavedContent(root, relativePath string) (string, error)
	// ListOpenDocuments reports the host's open documents, if any.
	ListOpenDocuments(root string) []DocumentInfo
}

// CollectedFile is one successfully read candidate.
type CollectedFile struct {
	Path        string
	Content     string
	LanguageTag string
	LineCount   int
}

// Result is the outcome of one snapshot build.
type Result struct {
	FinalText           string
	Truncated           bool
	TruncatedLabels     []string
	IncludedLabels      []string
	TotalCandidateCount int
	SkippedEntries      []string
	EffectiveLimit      int
}

// CountLines mirrors naive newline-split semantics: empty content is zero
// lines, and a trailing newline contributes a final empty line.
func CountLines(content string) int {
	if content == "" {
		return 0
	}
	return len(strings.Split(content, "\n"))
}
