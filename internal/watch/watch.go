// Package watch turns filesystem write events into document-activation
// events for the relevance tracker.
package watch

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ctxsnap/ctxsnap/internal/scan"
)

const defaultDebounceInterval = 500 * time.Millisecond

// Activation is one debounced document-activation observation.
type Activation struct {
	RelativePath string
	Timestamp    time.Time
}

// Watcher observes a project root recursively and emits one Activation per
// touched file per debounce window.
type Watcher struct {
	root             string
	fsWatcher        *fsnotify.Watcher
	activations      chan Activation
	excluded         func(relativePath string) bool
	debounceInterval time.Duration
	stop             chan struct{}
	stopped          chan struct{}
}

// New constructs a Watcher for the root. The excluded callback filters
// activations with the same rules as the snapshot scan; it may be nil.
func New(root string, excluded func(relativePath string) bool) (*Watcher, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path required")
	}
	absoluteRoot, absoluteError := filepath.Abs(root)
	if absoluteError == nil {
		root = absoluteRoot
	}

	fsWatcher, watcherError := fsnotify.NewWatcher()
	if watcherError != nil {
		return nil, watcherError
	}
	return &Watcher{
		root:             root,
		fsWatcher:        fsWatcher,
		activations:      make(chan Activation, 100),
		excluded:         excluded,
		debounceInterval: defaultDebounceInterval,
		stop:             make(chan struct{}),
		stopped:          make(chan struct{}),
	}, nil
}

// Start registers the directory tree and begins emitting activations.
func (watcher *Watcher) Start() error {
	if addError := watcher.addDirectoryRecursive(watcher.root); addError != nil {
		return addError
	}
	go watcher.run()
	return nil
}

// Stop shuts the watcher down and waits for the event loop to drain.
func (watcher *Watcher) Stop() {
	close(watcher.stop)
	_ = watcher.fsWatcher.Close()
	<-watcher.stopped
}

// Activations returns the debounced activation stream.
func (watcher *Watcher) Activations() <-chan Activation {
	return watcher.activations
}

func (watcher *Watcher) run() {
	defer close(watcher.stopped)
	pendingActivations := make(map[string]Activation)
	flushTicker := time.NewTicker(watcher.debounceInterval)
	defer flushTicker.Stop()

	for {
		select {
		case <-watcher.stop:
			return
		case fsEvent, channelOpen := <-watcher.fsWatcher.Events:
			if !channelOpen {
				return
			}
			watcher.observe(pendingActivations, fsEvent)
		case _, channelOpen := <-watcher.fsWatcher.Errors:
			if !channelOpen {
				return
			}
		case <-flushTicker.C:
			for _, pendingActivation := range drainPending(pendingActivations) {
				select {
				case watcher.activations <- pendingActivation:
				case <-watcher.stop:
					return
				}
			}
		}
	}
}

// observe folds a raw filesystem event into the pending map, keyed by path so
// rapid successive writes coalesce into one activation.
func (watcher *Watcher) observe(pendingActivations map[string]Activation, fsEvent fsnotify.Event) {
	if fsEvent.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	relativePath, relativeError := filepath.Rel(watcher.root, fsEvent.Name)
	if relativeError != nil {
		return
	}
	normalizedPath := scan.NormalizePath(relativePath)
	if normalizedPath == "" {
		return
	}
	if watcher.excluded != nil && watcher.excluded(normalizedPath) {
		return
	}

	fileInformation, statError := os.Stat(fsEvent.Name)
	if statError != nil {
		return
	}
	if fileInformation.IsDir() {
		if fsEvent.Op&fsnotify.Create != 0 {
			_ = watcher.addDirectoryRecursive(fsEvent.Name)
		}
		return
	}

	pendingActivations[normalizedPath] = Activation{RelativePath: normalizedPath, Timestamp: time.Now()}
}

// drainPending empties the pending map and returns its activations ordered by
// observation time.
func drainPending(pendingActivations map[string]Activation) []Activation {
	if len(pendingActivations) == 0 {
		return nil
	}
	drained := make([]Activation, 0, len(pendingActivations))
	for _, pendingActivation := range pendingActivations {
		drained = append(drained, pendingActivation)
	}
	for pendingKey := range pendingActivations {
		delete(pendingActivations, pendingKey)
	}
	sort.Slice(drained, func(firstIndex, secondIndex int) bool {
		return drained[firstIndex].Timestamp.Before(drained[secondIndex].Timestamp)
	})
	return drained
}

func (watcher *Watcher) addDirectoryRecursive(directoryPath string) error {
	return filepath.WalkDir(directoryPath, func(walkedPath string, directoryEntry fs.DirEntry, accessError error) error {
		if accessError != nil {
			return nil
		}
		if !directoryEntry.IsDir() {
			return nil
		}
		if directoryEntry.Name() == scan.GitDirectoryName {
			return filepath.SkipDir
		}
		return watcher.fsWatcher.Add(walkedPath)
	})
}
