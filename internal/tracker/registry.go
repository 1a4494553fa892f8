package tracker

import (
	"encoding/json"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ctxsnap/ctxsnap/internal/scan"
)

// manualSelectionKey is the durable-store key holding the pin sets for a root.
const manualSelectionKey = "manual-selection"

// Store persists small per-root blobs. Only the manual pin selections are
// durable; history is process-lifetime state.
type Store interface {
	LoadSmall(rootIdentity, valueKey string) (string, bool, error)
	PersistSmall(rootIdentity, valueKey, value string) error
}

// Registry owns the tracking state for every project root seen during the
// process lifetime. States are created lazily on first access, loading the
// manual selections from the durable store.
type Registry struct {
	mutex  sync.Mutex
	states map[string]*WorkspaceState
	store  Store
	logger *zap.Logger
}

// NewRegistry constructs a Registry backed by the provided store. The store
// may be nil, in which case pins live only for the process lifetime.
func NewRegistry(store Store, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		states: make(map[string]*WorkspaceState),
		store:  store,
		logger: logger,
	}
}

// manualSelection is the persisted shape of the pin sets.
type manualSelection struct {
	Files       []string            `json:"files"`
	Directories map[string][]string `json:"directories"`
}

// RecordActivation appends an activation to the root's history unless the
// activation was triggered by the tracker's own read-for-inclusion path.
func (registry *Registry) RecordActivation(rootIdentity, relativePath string, suppressHistory bool) {
	if suppressHistory {
		return
	}
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	registry.stateLocked(rootIdentity).RecordActivation(scan.NormalizePath(relativePath))
}

// SelectCandidates derives the ranked candidate list for the root.
func (registry *Registry) SelectCandidates(rootIdentity, activePath string) Candidates {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	return registry.stateLocked(rootIdentity).SelectCandidates(scan.NormalizePath(activePath))
}

// PinnedSelection returns the current pin sets for display.
func (registry *Registry) PinnedSelection(rootIdentity string) ([]string, map[string][]string) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	state := registry.stateLocked(rootIdentity)
	pinnedFiles := sortedKeys(state.ManualFiles)
	pinnedDirectories := make(map[string][]string, len(state.ManualDirectories))
	for directoryPath, capturedFiles := range state.ManualDirectories {
		pinnedDirectories[directoryPath] = append([]string(nil), capturedFiles...)
	}
	return pinnedFiles, pinnedDirectories
}

// ToggleFilePin toggles manual tracking of a file, persists the result, and
// returns whether the file is now pinned along with the total pin count.
func (registry *Registry) ToggleFilePin(rootIdentity, relativePath string) (bool, int) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	state := registry.stateLocked(rootIdentity)
	normalizedPath := scan.NormalizePath(relativePath)
	_, alreadyPinned := state.ManualFiles[normalizedPath]
	if alreadyPinned {
		delete(state.ManualFiles, normalizedPath)
	} else {
		state.ManualFiles[normalizedPath] = struct{}{}
	}
	registry.persistLocked(rootIdentity, state)
	return !alreadyPinned, pinCount(state)
}

// ToggleDirectoryPin toggles manual tracking of a directory. On first pin the
// provided captured file list (enumerated by the caller, bounded by
// DirectoryCaptureLimit) is snapshotted; unpinning discards it without
// resurrecting individually pinned files beneath the directory.
func (registry *Registry) ToggleDirectoryPin(rootIdentity, directoryPath string, capturedFiles []string) (bool, int) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	state := registry.stateLocked(rootIdentity)
	normalizedDirectory := scan.NormalizePath(directoryPath)
	_, alreadyPinned := state.ManualDirectories[normalizedDirectory]
	if alreadyPinned {
		delete(state.ManualDirectories, normalizedDirectory)
	} else {
		if len(capturedFiles) > DirectoryCaptureLimit {
			capturedFiles = capturedFiles[:DirectoryCaptureLimit]
		}
		normalizedCapture := make([]string, 0, len(capturedFiles))
		for _, capturedFile := range capturedFiles {
			normalizedFile := scan.NormalizePath(capturedFile)
			if normalizedFile != "" {
				normalizedCapture = append(normalizedCapture, normalizedFile)
			}
		}
		sort.Strings(normalizedCapture)
		state.ManualDirectories[normalizedDirectory] = normalizedCapture
	}
	registry.persistLocked(rootIdentity, state)
	return !alreadyPinned, pinCount(state)
}

// stateLocked returns the state for the root, creating and loading it on
// first access. Callers must hold the registry mutex.
func (registry *Registry) stateLocked(rootIdentity string) *WorkspaceState {
	if existingState, stateKnown := registry.states[rootIdentity]; stateKnown {
		return existingState
	}
	createdState := NewWorkspaceState()
	registry.loadManualSelection(rootIdentity, createdState)
	registry.states[rootIdentity] = createdState
	return createdState
}

// loadManualSelection restores the durable pin sets, tolerating missing or
// malformed stored data by falling back to empty sets. Paths are normalized
// to forward slashes and empty entries discarded.
func (registry *Registry) loadManualSelection(rootIdentity string, state *WorkspaceState) {
	if registry.store == nil {
		return
	}
	storedValue, valueFound, loadError := registry.store.LoadSmall(rootIdentity, manualSelectionKey)
	if loadError != nil {
		registry.logger.Warn("failed to load manual selection", zap.String("root", rootIdentity), zap.Error(loadError))
		return
	}
	if !valueFound {
		return
	}
	var storedSelection manualSelection
	if unmarshalError := json.Unmarshal([]byte(storedValue), &storedSelection); unmarshalError != nil {
		registry.logger.Warn("discarding malformed manual selection", zap.String("root", rootIdentity), zap.Error(unmarshalError))
		return
	}
	for _, storedFile := range storedSelection.Files {
		normalizedFile := scan.NormalizePath(storedFile)
		if normalizedFile != "" {
			state.ManualFiles[normalizedFile] = struct{}{}
		}
	}
	for storedDirectory, storedCapture := range storedSelection.Directories {
		normalizedDirectory := scan.NormalizePath(storedDirectory)
		if normalizedDirectory == "" {
			continue
		}
		normalizedCapture := make([]string, 0, len(storedCapture))
		for _, capturedFile := range storedCapture {
			normalizedFile := scan.NormalizePath(capturedFile)
			if normalizedFile != "" {
				normalizedCapture = append(normalizedCapture, normalizedFile)
			}
		}
		state.ManualDirectories[normalizedDirectory] = normalizedCapture
	}
}

// persistLocked writes the pin sets for the root. Persistence failures are
// logged, never surfaced to the pin command: the in-memory toggle has already
// taken effect.
func (registry *Registry) persistLocked(rootIdentity string, state *WorkspaceState) {
	if registry.store == nil {
		return
	}
	selectionToPersist := manualSelection{
		Files:       sortedKeys(state.ManualFiles),
		Directories: state.ManualDirectories,
	}
	encodedSelection, marshalError := json.Marshal(selectionToPersist)
	if marshalError != nil {
		registry.logger.Warn("failed to encode manual selection", zap.String("root", rootIdentity), zap.Error(marshalError))
		return
	}
	if persistError := registry.store.PersistSmall(rootIdentity, manualSelectionKey, string(encodedSelection)); persistError != nil {
		registry.logger.Warn("failed to persist manual selection", zap.String("root", rootIdentity), zap.Error(persistError))
	}
}

func pinCount(state *WorkspaceState) int {
	return len(state.ManualFiles) + len(state.ManualDirectories)
}
