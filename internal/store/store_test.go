package store_test

import (
	"path/filepath"
	"testing"

	"github.com/ctxsnap/ctxsnap/internal/store"
)

func openTestStore(testingInstance *testing.T) *store.Store {
	testingInstance.Helper()
	databasePath := filepath.Join(testingInstance.TempDir(), "state", "state.db")
	openedStore, openError := store.Open(databasePath)
	if openError != nil {
		testingInstance.Fatalf("failed to open store: %v", openError)
	}
	testingInstance.Cleanup(func() {
		if closeError := openedStore.Close(); closeError != nil {
			testingInstance.Errorf("failed to close store: %v", closeError)
		}
	})
	return openedStore
}

// TestPersistAndLoadSmall verifies the round trip, upsert replacement, and
// per-root isolation.
func TestPersistAndLoadSmall(testingInstance *testing.T) {
	openedStore := openTestStore(testingInstance)

	if _, valueFound, loadError := openedStore.LoadSmall("/project", "selection"); loadError != nil || valueFound {
		testingInstance.Fatalf("expected missing value, got found=%v error=%v", valueFound, loadError)
	}

	if persistError := openedStore.PersistSmall("/project", "selection", `{"files":["a.go"]}`); persistError != nil {
		testingInstance.Fatalf("failed to persist: %v", persistError)
	}
	storedValue, valueFound, loadError := openedStore.LoadSmall("/project", "selection")
	if loadError != nil || !valueFound {
		testingInstance.Fatalf("expected stored value, got found=%v error=%v", valueFound, loadError)
	}
	if storedValue != `{"files":["a.go"]}` {
		testingInstance.Fatalf("unexpected stored value %q", storedValue)
	}

	if persistError := openedStore.PersistSmall("/project", "selection", `{"files":[]}`); persistError != nil {
		testingInstance.Fatalf("failed to replace: %v", persistError)
	}
	storedValue, _, _ = openedStore.LoadSmall("/project", "selection")
	if storedValue != `{"files":[]}` {
		testingInstance.Fatalf("expected replacement, got %q", storedValue)
	}

	if _, valueFound, _ = openedStore.LoadSmall("/other-project", "selection"); valueFound {
		testingInstance.Fatalf("expected roots to be isolated")
	}
}

// TestDeleteSmall verifies removal and idempotence on missing keys.
func TestDeleteSmall(testingInstance *testing.T) {
	openedStore := openTestStore(testingInstance)

	if persistError := openedStore.PersistSmall("/project", "selection", "value"); persistError != nil {
		testingInstance.Fatalf("failed to persist: %v", persistError)
	}
	if deleteError := openedStore.Delete("/project", "selection"); deleteError != nil {
		testingInstance.Fatalf("failed to delete: %v", deleteError)
	}
	if _, valueFound, _ := openedStore.LoadSmall("/project", "selection"); valueFound {
		testingInstance.Fatalf("expected value to be gone")
	}
	if deleteError := openedStore.Delete("/project", "selection"); deleteError != nil {
		testingInstance.Fatalf("expected deleting a missing key to succeed, got %v", deleteError)
	}
}
