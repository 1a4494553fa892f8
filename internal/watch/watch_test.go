package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func newTestWatcher(testingInstance *testing.T, excluded func(string) bool) *Watcher {
	testingInstance.Helper()
	createdWatcher, createError := New(testingInstance.TempDir(), excluded)
	if createError != nil {
		testingInstance.Fatalf("failed to create watcher: %v", createError)
	}
	testingInstance.Cleanup(func() {
		_ = createdWatcher.fsWatcher.Close()
	})
	return createdWatcher
}

func touchFile(testingInstance *testing.T, root, relativePath string) string {
	testingInstance.Helper()
	absolutePath := filepath.Join(root, relativePath)
	if writeError := os.WriteFile(absolutePath, []byte("content"), 0o644); writeError != nil {
		testingInstance.Fatalf("failed to write file: %v", writeError)
	}
	return absolutePath
}

// TestObserveCoalescesRepeatedWrites verifies rapid writes to the same path
// fold into a single pending activation.
func TestObserveCoalescesRepeatedWrites(testingInstance *testing.T) {
	testWatcher := newTestWatcher(testingInstance, nil)
	touchedPath := touchFile(testingInstance, testWatcher.root, "main.go")

	pendingActivations := make(map[string]Activation)
	for writeIndex := 0; writeIndex < 3; writeIndex++ {
		testWatcher.observe(pendingActivations, fsnotify.Event{Name: touchedPath, Op: fsnotify.Write})
	}

	if len(pendingActivations) != 1 {
		testingInstance.Fatalf("expected one pending activation, got %d", len(pendingActivations))
	}
	if _, activationPresent := pendingActivations["main.go"]; !activationPresent {
		testingInstance.Fatalf("expected activation keyed by relative path, got %v", pendingActivations)
	}
}

// TestObserveIgnoresNonWriteEvents verifies remove, rename, and chmod events
// produce no activation.
func TestObserveIgnoresNonWriteEvents(testingInstance *testing.T) {
	testWatcher := newTestWatcher(testingInstance, nil)
	touchedPath := touchFile(testingInstance, testWatcher.root, "main.go")

	pendingActivations := make(map[string]Activation)
	for _, irrelevantOperation := range []fsnotify.Op{fsnotify.Remove, fsnotify.Rename, fsnotify.Chmod} {
		testWatcher.observe(pendingActivations, fsnotify.Event{Name: touchedPath, Op: irrelevantOperation})
	}

	if len(pendingActivations) != 0 {
		testingInstance.Fatalf("expected no activations, got %v", pendingActivations)
	}
}

// TestObserveAppliesExclusionCallback verifies excluded paths never become
// activations.
func TestObserveAppliesExclusionCallback(testingInstance *testing.T) {
	testWatcher := newTestWatcher(testingInstance, func(relativePath string) bool {
		return relativePath == "noise.log"
	})
	excludedPath := touchFile(testingInstance, testWatcher.root, "noise.log")
	includedPath := touchFile(testingInstance, testWatcher.root, "main.go")

	pendingActivations := make(map[string]Activation)
	testWatcher.observe(pendingActivations, fsnotify.Event{Name: excludedPath, Op: fsnotify.Write})
	testWatcher.observe(pendingActivations, fsnotify.Event{Name: includedPath, Op: fsnotify.Write})

	if len(pendingActivations) != 1 {
		testingInstance.Fatalf("expected one activation, got %v", pendingActivations)
	}
	if _, activationPresent := pendingActivations["main.go"]; !activationPresent {
		testingInstance.Fatalf("expected main.go activation, got %v", pendingActivations)
	}
}

// TestObserveSkipsVanishedFiles verifies an event for a path that no longer
// exists is dropped.
func TestObserveSkipsVanishedFiles(testingInstance *testing.T) {
	testWatcher := newTestWatcher(testingInstance, nil)

	pendingActivations := make(map[string]Activation)
	testWatcher.observe(pendingActivations, fsnotify.Event{
		Name: filepath.Join(testWatcher.root, "vanished.go"),
		Op:   fsnotify.Write,
	})

	if len(pendingActivations) != 0 {
		testingInstance.Fatalf("expected no activations, got %v", pendingActivations)
	}
}

// TestDrainPendingOrdersByTimestampAndEmpties verifies the flush ordering and
// that the pending map is reusable afterwards.
func TestDrainPendingOrdersByTimestampAndEmpties(testingInstance *testing.T) {
	baseTime := time.Now()
	pendingActivations := map[string]Activation{
		"later.go":   {RelativePath: "later.go", Timestamp: baseTime.Add(2 * time.Second)},
		"earlier.go": {RelativePath: "earlier.go", Timestamp: baseTime},
		"between.go": {RelativePath: "between.go", Timestamp: baseTime.Add(time.Second)},
	}

	drained := drainPending(pendingActivations)
	expectedOrder := []string{"earlier.go", "between.go", "later.go"}
	if len(drained) != len(expectedOrder) {
		testingInstance.Fatalf("expected %d activations, got %d", len(expectedOrder), len(drained))
	}
	for activationIndex, expectedPath := range expectedOrder {
		if drained[activationIndex].RelativePath != expectedPath {
			testingInstance.Fatalf("expected %q at position %d, got %q", expectedPath, activationIndex, drained[activationIndex].RelativePath)
		}
	}
	if len(pendingActivations) != 0 {
		testingInstance.Fatalf("expected pending map to be drained, got %v", pendingActivations)
	}
	if drainPending(pendingActivations) != nil {
		testingInstance.Fatalf("expected nil drain on empty map")
	}
}
