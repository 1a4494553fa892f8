// Package cli provides the command line interface.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ctxsnap/ctxsnap/internal/config"
	"github.com/ctxsnap/ctxsnap/internal/store"
	"github.com/ctxsnap/ctxsnap/internal/tracker"
	"github.com/ctxsnap/ctxsnap/internal/utils"
)

const (
	rootUse              = "ctxsnap"
	rootShortDescription = "ctxsnap command line interface"
	rootLongDescription  = `ctxsnap builds a bounded, LLM-ready snapshot of a project:
a directory tree plus the content of the most relevant files, fitted into a
hard character budget. Relevance combines explicit pins with usage history.`

	versionFlagName        = "version"
	versionFlagDescription = "display application version"
	versionTemplate        = "ctxsnap version: %s\n"

	defaultPath = "."

	errorPathMissingFormat  = "path '%s' does not exist"
	errorNotDirectoryFormat = "path '%s' is not a directory"
	errorAbsolutePathFormat = "abs failed for '%s': %w"
	errorStatFormat         = "stat failed for '%s': %w"
)

// Execute runs the ctxsnap application.
func Execute(logger *zap.Logger) error {
	rootCommand := createRootCommand(logger)
	return rootCommand.Execute()
}

// createRootCommand builds the root Cobra command.
func createRootCommand(logger *zap.Logger) *cobra.Command {
	var showVersion bool

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
		PersistentPreRun: func(command *cobra.Command, arguments []string) {
			if showVersion {
				fmt.Printf(versionTemplate, utils.GetApplicationVersion())
				os.Exit(0)
			}
		},
	}
	rootCommand.PersistentFlags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.AddCommand(
		createSnapshotCommand(logger),
		createPinCommand(logger),
		createUnpinCommand(logger),
		createPinsCommand(logger),
		createWatchCommand(logger),
		createInitCommand(),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// resolveProjectRoot converts the optional positional argument into a
// validated absolute project root.
func resolveProjectRoot(arguments []string) (string, error) {
	inputPath := defaultPath
	if len(arguments) > 0 {
		inputPath = arguments[0]
	}
	absolutePath, absoluteError := filepath.Abs(inputPath)
	if absoluteError != nil {
		return "", fmt.Errorf(errorAbsolutePathFormat, inputPath, absoluteError)
	}
	cleanPath := filepath.Clean(absolutePath)
	pathInformation, statError := os.Stat(cleanPath)
	if statError != nil {
		if os.IsNotExist(statError) {
			return "", fmt.Errorf(errorPathMissingFormat, cleanPath)
		}
		return "", fmt.Errorf(errorStatFormat, cleanPath, statError)
	}
	if !pathInformation.IsDir() {
		return "", fmt.Errorf(errorNotDirectoryFormat, cleanPath)
	}
	return cleanPath, nil
}

// openRegistry opens the durable store and wraps it in a tracking registry.
// The returned closer releases the store; it tolerates a nil store.
func openRegistry(logger *zap.Logger) (*tracker.Registry, func(), error) {
	databasePath, pathError := config.StateDatabasePath()
	if pathError != nil {
		return nil, nil, pathError
	}
	stateStore, openError := store.Open(databasePath)
	if openError != nil {
		return nil, nil, openError
	}
	registry := tracker.NewRegistry(stateStore, logger)
	return registry, func() { _ = stateStore.Close() }, nil
}
