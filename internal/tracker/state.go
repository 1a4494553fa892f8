// Package tracker maintains per-root usage history and manual pins and
// derives the ranked candidate list for a snapshot.
package tracker

import "sort"

const (
	// historyLimit caps the bounded activation history; oldest entries are
	// evicted first.
	historyLimit = 10
	// dynamicCandidateLimit caps the non-pinned portion of the candidate list.
	dynamicCandidateLimit = 3
	// DirectoryCaptureLimit bounds the recursive file enumeration performed
	// when a directory is pinned.
	DirectoryCaptureLimit = 200
)

// WorkspaceState tracks relevance signals for one project root. History is an
// ordered sequence of recently activated relative paths with duplicates
// allowed; ManualFiles and ManualDirectories hold the user's explicit pins.
// ManualDirectories maps each pinned directory to the file list captured at
// pin time, not a live view.
type WorkspaceState struct {
	History           []string
	ManualFiles       map[string]struct{}
	ManualDirectories map[string][]string
}

// NewWorkspaceState returns an empty tracking state.
func NewWorkspaceState() *WorkspaceState {
	return &WorkspaceState{
		ManualFiles:       make(map[string]struct{}),
		ManualDirectories: make(map[string][]string),
	}
}

// RecordActivation appends the activated path to history, evicting the oldest
// entry beyond the cap.
func (state *WorkspaceState) RecordActivation(relativePath string) {
	if relativePath == "" {
		return
	}
	state.History = append(state.History, relativePath)
	if len(state.History) > historyLimit {
		state.History = state.History[len(state.History)-historyLimit:]
	}
}

// Candidates is the ranked selection produced for one snapshot. Files is
// ordered and unique; HighlightPaths feeds smart tree expansion and includes
// pinned directory paths that are not themselves content candidates.
type Candidates struct {
	Files          []string
	HighlightPaths map[string]struct{}
}

// SelectCandidates ranks candidate files for content inclusion. Pins come
// first and are unbounded; the active path is always relevant; the remaining
// dynamic slots favor habitual files (frequency, then recency) with a
// newest-first fallback so a fresh session still yields candidates.
func (state *WorkspaceState) SelectCandidates(activePath string) Candidates {
	selection := Candidates{HighlightPaths: make(map[string]struct{})}
	seenPaths := make(map[string]struct{})

	appendCandidate := func(candidatePath string, highlight bool) {
		if candidatePath == "" {
			return
		}
		if highlight {
			selection.HighlightPaths[candidatePath] = struct{}{}
		}
		if _, duplicate := seenPaths[candidatePath]; duplicate {
			return
		}
		seenPaths[candidatePath] = struct{}{}
		selection.Files = append(selection.Files, candidatePath)
	}

	for _, pinnedFile := range sortedKeys(state.ManualFiles) {
		appendCandidate(pinnedFile, true)
	}
	for _, pinnedDirectory := range sortedDirectoryKeys(state.ManualDirectories) {
		selection.HighlightPaths[pinnedDirectory] = struct{}{}
		capturedFiles := state.ManualDirectories[pinnedDirectory]
		for capturedIndex, capturedFile := range capturedFiles {
			if capturedIndex >= DirectoryCaptureLimit {
				break
			}
			appendCandidate(capturedFile, true)
		}
	}

	pinnedCount := len(selection.Files)
	appendCandidate(activePath, true)

	for _, rankedPath := range state.rankHistory(activePath) {
		if len(selection.Files)-pinnedCount >= dynamicCandidateLimit {
			break
		}
		appendCandidate(rankedPath, false)
	}

	for historyIndex := len(state.History) - 1; historyIndex >= 0; historyIndex-- {
		if len(selection.Files)-pinnedCount >= dynamicCandidateLimit {
			break
		}
		if state.History[historyIndex] == activePath {
			continue
		}
		appendCandidate(state.History[historyIndex], false)
	}

	return selection
}

// rankHistory orders unique history entries by occurrence count descending,
// tie-broken by most recent occurrence index descending. The active path is
// excluded; it has already been added.
func (state *WorkspaceState) rankHistory(activePath string) []string {
	occurrenceCounts := make(map[string]int)
	lastOccurrence := make(map[string]int)
	var uniquePaths []string
	for entryIndex, historyPath := range state.History {
		if historyPath == activePath {
			continue
		}
		if _, known := occurrenceCounts[historyPath]; !known {
			uniquePaths = append(uniquePaths, historyPath)
		}
		occurrenceCounts[historyPath]++
		lastOccurrence[historyPath] = entryIndex
	}
	sort.SliceStable(uniquePaths, func(firstIndex, secondIndex int) bool {
		firstPath := uniquePaths[firstIndex]
		secondPath := uniquePaths[secondIndex]
		if occurrenceCounts[firstPath] != occurrenceCounts[secondPath] {
			return occurrenceCounts[firstPath] > occurrenceCounts[secondPath]
		}
		return lastOccurrence[firstPath] > lastOccurrence[secondPath]
	})
	return uniquePaths
}

func sortedKeys(pathSet map[string]struct{}) []string {
	orderedKeys := make([]string, 0, len(pathSet))
	for setKey := range pathSet {
		orderedKeys = append(orderedKeys, setKey)
	}
	sort.Strings(orderedKeys)
	return orderedKeys
}

func sortedDirectoryKeys(directoryMap map[string][]string) []string {
	orderedKeys := make([]string, 0, len(directoryMap))
	for mapKey := range directoryMap {
		orderedKeys = append(orderedKeys, mapKey)
	}
	sort.Strings(orderedKeys)
	return orderedKeys
}
