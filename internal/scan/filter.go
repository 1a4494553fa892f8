// Package scan normalizes workspace paths and filters scanned entries
// against gitignore-style ignore rules.
package scan

import (
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// GitDirectoryName is the name of the Git repository directory.
const GitDirectoryName = ".git"

// Entry is a single filesystem observation produced by a workspace scan.
// Path is a forward-slash relative path.
type Entry struct {
	Path        string
	IsDirectory bool
}

// FilterOptions control which rule sources participate in entry filtering.
type FilterOptions struct {
	// RuleText is raw ignore-file content (gitignore syntax, including
	// negation). An empty value contributes no rules.
	RuleText string
	// ExtraPatterns are additional configured globs appended to the rule set.
	ExtraPatterns []string
	// IncludeGit keeps the .git directory in scan results when set.
	IncludeGit bool
}

// Filter excludes scanned entries matched by ignore rules. A Filter with no
// compiled sources passes everything through.
type Filter struct {
	matchers []*ignore.GitIgnore
}

// NewFilter compiles the provided rule sources into a Filter. Missing or
// empty sources are tolerated silently.
func NewFilter(options FilterOptions) *Filter {
	var matchers []*ignore.GitIgnore
	ruleLines := splitRuleLines(options.RuleText)
	if len(ruleLines) > 0 {
		matchers = append(matchers, ignore.CompileIgnoreLines(ruleLines...))
	}
	if len(options.ExtraPatterns) > 0 {
		matchers = append(matchers, ignore.CompileIgnoreLines(options.ExtraPatterns...))
	}
	if !options.IncludeGit {
		matchers = append(matchers, ignore.CompileIgnoreLines(GitDirectoryName+"/"))
	}
	return &Filter{matchers: matchers}
}

// NormalizePath converts a host path to forward-slash relative form,
// regardless of the host path separator.
func NormalizePath(rawPath string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(rawPath), "\\", "/")
	normalized = strings.TrimPrefix(normalized, "./")
	return strings.Trim(normalized, "/")
}

// Matches reports whether the relative path is excluded by any rule source.
// Directory entries should pass isDirectory=true so trailing-slash patterns apply.
func (filter *Filter) Matches(relativePath string, isDirectory bool) bool {
	candidatePath := NormalizePath(relativePath)
	for _, matcher := range filter.matchers {
		if matcher == nil {
			continue
		}
		if matcher.MatchesPath(candidatePath) {
			return true
		}
		if isDirectory && matcher.MatchesPath(candidatePath+"/") {
			return true
		}
	}
	return false
}

// Apply returns the subset of entries not matched by any rule, with all
// surviving paths normalized to forward slashes.
func (filter *Filter) Apply(entries []Entry) []Entry {
	filteredEntries := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		normalizedPath := NormalizePath(entry.Path)
		if normalizedPath == "" {
			continue
		}
		if filter.Matches(normalizedPath, entry.IsDirectory) {
			continue
		}
		filteredEntries = append(filteredEntries, Entry{Path: normalizedPath, IsDirectory: entry.IsDirectory})
	}
	return filteredEntries
}

func splitRuleLines(ruleText string) []string {
	if strings.TrimSpace(ruleText) == "" {
		return nil
	}
	var ruleLines []string
	for _, rawLine := range strings.Split(ruleText, "\n") {
		trimmedLine := strings.TrimRight(rawLine, "\r")
		if strings.TrimSpace(trimmedLine) == "" {
			continue
		}
		ruleLines = append(ruleLines, trimmedLine)
	}
	return ruleLines
}
