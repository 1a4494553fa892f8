package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ctxsnap/ctxsnap/internal/tracker"
	"github.com/ctxsnap/ctxsnap/internal/workspace"
)

const (
	pinUse              = "pin <path>"
	pinShortDescription = "pin a file or directory as always-relevant"
	pinLongDescription  = `Toggle manual tracking of a file or directory. Pinned paths are always
included in snapshots, independent of usage recency. Pinning a directory
captures the files beneath it at pin time, up to a fixed cap.`
	pinUsageExample = `  # Pin a file
  ctxsnap pin internal/server/router.go

  # Pin a directory (captures up to 200 files)
  ctxsnap pin internal/server`

	unpinUse              = "unpin <path>"
	unpinShortDescription = "remove a manual pin"

	pinsUse              = "pins [path]"
	pinsShortDescription = "list pinned files and directories"

	pinnedMessageFormat   = "pinned %s (%d pin(s) total)\n"
	unpinnedMessageFormat = "unpinned %s (%d pin(s) total)\n"

	errorOutsideRootFormat = "path '%s' is outside the project root"
)

// togglePin resolves the target relative to the project root and flips its
// membership in the manual sets.
func togglePin(logger *zap.Logger, targetPath string) error {
	projectRoot, rootError := resolveProjectRoot(nil)
	if rootError != nil {
		return rootError
	}
	absoluteTarget, absoluteError := filepath.Abs(targetPath)
	if absoluteError != nil {
		return fmt.Errorf(errorAbsolutePathFormat, targetPath, absoluteError)
	}
	relativeTarget, relativeError := filepath.Rel(projectRoot, absoluteTarget)
	if relativeError != nil {
		return fmt.Errorf(errorOutsideRootFormat, targetPath)
	}
	relativeTarget = filepath.ToSlash(relativeTarget)
	if relativeTarget == ".." || strings.HasPrefix(relativeTarget, "../") {
		return fmt.Errorf(errorOutsideRootFormat, targetPath)
	}

	targetInformation, statError := os.Stat(absoluteTarget)
	if statError != nil {
		return fmt.Errorf(errorPathMissingFormat, absoluteTarget)
	}

	registry, closeRegistry, registryError := openRegistry(logger)
	if registryError != nil {
		return registryError
	}
	defer closeRegistry()

	var nowPinned bool
	var totalPins int
	if targetInformation.IsDir() {
		localWorkspace := workspace.NewLocal(true, true, logger)
		capturedFiles := localWorkspace.EnumerateDirectory(projectRoot, relativeTarget, tracker.DirectoryCaptureLimit)
		nowPinned, totalPins = registry.ToggleDirectoryPin(projectRoot, relativeTarget, capturedFiles)
	} else {
		nowPinned, totalPins = registry.ToggleFilePin(projectRoot, relativeTarget)
	}

	if nowPinned {
		fmt.Printf(pinnedMessageFormat, relativeTarget, totalPins)
	} else {
		fmt.Printf(unpinnedMessageFormat, relativeTarget, totalPins)
	}
	return nil
}

func createPinCommand(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:     pinUse,
		Short:   pinShortDescription,
		Long:    pinLongDescription,
		Example: pinUsageExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			return togglePin(logger, arguments[0])
		},
	}
}

func createUnpinCommand(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   unpinUse,
		Short: unpinShortDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			// pin and unpin are the same toggle; unpin exists for discoverability
			return togglePin(logger, arguments[0])
		},
	}
}

func createPinsCommand(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   pinsUse,
		Short: pinsShortDescription,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			projectRoot, rootError := resolveProjectRoot(arguments)
			if rootError != nil {
				return rootError
			}
			registry, closeRegistry, registryError := openRegistry(logger)
			if registryError != nil {
				return registryError
			}
			defer closeRegistry()

			pinnedFiles, pinnedDirectories := registry.PinnedSelection(projectRoot)
			for _, pinnedFile := range pinnedFiles {
				fmt.Println(pinnedFile)
			}
			directoryPaths := make([]string, 0, len(pinnedDirectories))
			for directoryPath := range pinnedDirectories {
				directoryPaths = append(directoryPaths, directoryPath)
			}
			sort.Strings(directoryPaths)
			for _, directoryPath := range directoryPaths {
				fmt.Printf("%s/ (%d file(s) captured)\n", directoryPath, len(pinnedDirectories[directoryPath]))
			}
			if len(pinnedFiles) == 0 && len(directoryPaths) == 0 {
				fmt.Println("no pins")
			}
			return nil
		},
	}
}
