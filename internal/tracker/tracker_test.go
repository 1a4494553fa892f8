package tracker_test

import (
	"strings"
	"testing"

	"github.com/ctxsnap/ctxsnap/internal/tracker"
)

const testRootIdentity = "/workspace/project"

// memoryStore is an in-memory stand-in for the durable key/value collaborator.
type memoryStore struct {
	values map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: make(map[string]string)}
}

func (store *memoryStore) LoadSmall(rootIdentity, valueKey string) (string, bool, error) {
	storedValue, valueFound := store.values[rootIdentity+"\x00"+valueKey]
	return storedValue, valueFound, nil
}

func (store *memoryStore) PersistSmall(rootIdentity, valueKey, value string) error {
	store.values[rootIdentity+"\x00"+valueKey] = value
	return nil
}

func joinFiles(candidates tracker.Candidates) string {
	return strings.Join(candidates.Files, ",")
}

// TestSelectCandidatesDeduplicatesActivePin verifies that an active file equal
// to a pin yields no duplicates and both pins stay highlighted.
func TestSelectCandidatesDeduplicatesActivePin(testingInstance *testing.T) {
	registry := tracker.NewRegistry(newMemoryStore(), nil)
	registry.ToggleFilePin(testRootIdentity, "a.go")
	registry.ToggleFilePin(testRootIdentity, "b.go")

	candidates := registry.SelectCandidates(testRootIdentity, "a.go")
	if joinFiles(candidates) != "a.go,b.go" {
		testingInstance.Fatalf("expected exactly the two pinned files, got %v", candidates.Files)
	}
	for _, pinnedFile := range []string{"a.go", "b.go"} {
		if _, highlighted := candidates.HighlightPaths[pinnedFile]; !highlighted {
			testingInstance.Fatalf("expected %s to be highlighted", pinnedFile)
		}
	}
}

// TestSelectCandidatesRanksHistoryByFrequency verifies the dynamic ranking:
// active first, then frequency descending with a recency tie-break.
func TestSelectCandidatesRanksHistoryByFrequency(testingInstance *testing.T) {
	registry := tracker.NewRegistry(newMemoryStore(), nil)
	for _, activatedPath := range []string{"x", "x", "y"} {
		registry.RecordActivation(testRootIdentity, activatedPath, false)
	}

	candidates := registry.SelectCandidates(testRootIdentity, "z")
	if joinFiles(candidates) != "z,x,y" {
		testingInstance.Fatalf("expected [z x y], got %v", candidates.Files)
	}
	if _, highlighted := candidates.HighlightPaths["z"]; !highlighted {
		testingInstance.Fatalf("expected the active path to be highlighted")
	}
	if _, highlighted := candidates.HighlightPaths["x"]; highlighted {
		testingInstance.Fatalf("history-derived candidates must not be highlighted")
	}
}

// TestSelectCandidatesRecencyTieBreak verifies equal frequencies order by the
// most recent occurrence.
func TestSelectCandidatesRecencyTieBreak(testingInstance *testing.T) {
	registry := tracker.NewRegistry(newMemoryStore(), nil)
	for _, activatedPath := range []string{"old", "new"} {
		registry.RecordActivation(testRootIdentity, activatedPath, false)
	}

	candidates := registry.SelectCandidates(testRootIdentity, "")
	if joinFiles(candidates) != "new,old" {
		testingInstance.Fatalf("expected recency order [new old], got %v", candidates.Files)
	}
}

// TestHistoryCapEvictsOldest verifies the bounded history: at most ten
// entries, oldest evicted first.
func TestHistoryCapEvictsOldest(testingInstance *testing.T) {
	registry := tracker.NewRegistry(newMemoryStore(), nil)
	activationOrder := []string{"p0", "p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8", "p9", "p10", "p11"}
	for _, activatedPath := range activationOrder {
		registry.RecordActivation(testRootIdentity, activatedPath, false)
	}

	candidates := registry.SelectCandidates(testRootIdentity, "")
	for _, candidatePath := range candidates.Files {
		if candidatePath == "p0" || candidatePath == "p1" {
			testingInstance.Fatalf("evicted entry %s resurfaced in %v", candidatePath, candidates.Files)
		}
	}
	if len(candidates.Files) != 3 {
		testingInstance.Fatalf("expected the dynamic floor of 3, got %v", candidates.Files)
	}
}

// TestSuppressedActivationLeavesHistoryUntouched verifies the read-for-inclusion
// suppression parameter.
func TestSuppressedActivationLeavesHistoryUntouched(testingInstance *testing.T) {
	registry := tracker.NewRegistry(newMemoryStore(), nil)
	registry.RecordActivation(testRootIdentity, "silent.go", true)

	candidates := registry.SelectCandidates(testRootIdentity, "")
	if len(candidates.Files) != 0 {
		testingInstance.Fatalf("suppressed activation must not produce candidates, got %v", candidates.Files)
	}
}

// TestDirectoryUnpinDoesNotResurrectFilePins verifies unpinning a directory
// removes its capture without touching individually pinned files beneath it.
func TestDirectoryUnpinDoesNotResurrectFilePins(testingInstance *testing.T) {
	registry := tracker.NewRegistry(newMemoryStore(), nil)
	registry.ToggleFilePin(testRootIdentity, "pkg/kept.go")
	registry.ToggleFilePin(testRootIdentity, "pkg/kept.go") // unpinned again

	pinnedNow, pinTotal := registry.ToggleDirectoryPin(testRootIdentity, "pkg", []string{"pkg/kept.go", "pkg/other.go"})
	if !pinnedNow || pinTotal != 1 {
		testingInstance.Fatalf("expected a single directory pin, got pinned=%v total=%d", pinnedNow, pinTotal)
	}
	pinnedNow, pinTotal = registry.ToggleDirectoryPin(testRootIdentity, "pkg", nil)
	if pinnedNow || pinTotal != 0 {
		testingInstance.Fatalf("expected the directory pin to be removed, got pinned=%v total=%d", pinnedNow, pinTotal)
	}

	candidates := registry.SelectCandidates(testRootIdentity, "")
	if len(candidates.Files) != 0 {
		testingInstance.Fatalf("unpinning must not resurrect captures, got %v", candidates.Files)
	}
}

// TestPinnedDirectoryCaptureHighlightsDirectory verifies captured files and
// the directory path itself are highlighted for tree expansion.
func TestPinnedDirectoryCaptureHighlightsDirectory(testingInstance *testing.T) {
	registry := tracker.NewRegistry(newMemoryStore(), nil)
	registry.ToggleDirectoryPin(testRootIdentity, "internal/api", []string{"internal/api/routes.go"})

	candidates := registry.SelectCandidates(testRootIdentity, "")
	if joinFiles(candidates) != "internal/api/routes.go" {
		testingInstance.Fatalf("expected the captured file, got %v", candidates.Files)
	}
	if _, highlighted := candidates.HighlightPaths["internal/api"]; !highlighted {
		testingInstance.Fatalf("expected the pinned directory itself to be highlighted")
	}
}

// TestManualSelectionPersistsAcrossRegistries verifies pins survive a restart
// through the durable store while history does not.
func TestManualSelectionPersistsAcrossRegistries(testingInstance *testing.T) {
	sharedStore := newMemoryStore()

	firstRegistry := tracker.NewRegistry(sharedStore, nil)
	firstRegistry.ToggleFilePin(testRootIdentity, "keep.go")
	firstRegistry.RecordActivation(testRootIdentity, "transient.go", false)

	secondRegistry := tracker.NewRegistry(sharedStore, nil)
	candidates := secondRegistry.SelectCandidates(testRootIdentity, "")
	if joinFiles(candidates) != "keep.go" {
		testingInstance.Fatalf("expected only the durable pin after reload, got %v", candidates.Files)
	}
}

// TestMalformedStoredSelectionFallsBackToEmpty verifies load tolerance.
func TestMalformedStoredSelectionFallsBackToEmpty(testingInstance *testing.T) {
	corruptStore := newMemoryStore()
	_ = corruptStore.PersistSmall(testRootIdentity, "manual-selection", "{not json")

	registry := tracker.NewRegistry(corruptStore, nil)
	candidates := registry.SelectCandidates(testRootIdentity, "")
	if len(candidates.Files) != 0 {
		testingInstance.Fatalf("malformed data must yield empty sets, got %v", candidates.Files)
	}
}

// TestStoredSelectionNormalizesPaths verifies backslash separators and empty
// entries are cleaned up on load.
func TestStoredSelectionNormalizesPaths(testingInstance *testing.T) {
	seededStore := newMemoryStore()
	_ = seededStore.PersistSmall(testRootIdentity, "manual-selection",
		`{"files":["pkg\\api\\server.go",""],"directories":{}}`)

	registry := tracker.NewRegistry(seededStore, nil)
	candidates := registry.SelectCandidates(testRootIdentity, "")
	if joinFiles(candidates) != "pkg/api/server.go" {
		testingInstance.Fatalf("expected a normalized pin, got %v", candidates.Files)
	}
}
