package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ctxsnap/ctxsnap/internal/scan"
	"github.com/ctxsnap/ctxsnap/internal/watch"
	"github.com/ctxsnap/ctxsnap/internal/workspace"
)

const (
	watchUse              = "watch [path]"
	watchAlias            = "w"
	watchShortDescription = "watch the project and keep a snapshot fresh (" + watchAlias + ")"
	watchLongDescription  = `Stay resident and treat filesystem write events as document activations
feeding the relevance history. The snapshot is rebuilt after each event batch
and written to --output and/or the clipboard.`
	watchUsageExample = `  # Keep .ctxsnap.md up to date while working
  ctxsnap watch --output .ctxsnap.md

  # Keep the clipboard holding a fresh snapshot
  ctxsnap watch --copy`

	rebuildIntervalFlagName  = "interval"
	rebuildIntervalFlagDescr = "minimum delay between snapshot rebuilds"
)

func createWatchCommand(logger *zap.Logger) *cobra.Command {
	options := &snapshotOptions{}
	var rebuildInterval time.Duration

	watchCommand := &cobra.Command{
		Use:     watchUse,
		Aliases: []string{watchAlias},
		Short:   watchShortDescription,
		Long:    watchLongDescription,
		Example: watchUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			projectRoot, rootError := resolveProjectRoot(arguments)
			if rootError != nil {
				return rootError
			}
			settings, settingsError := resolveSettings(command, options, projectRoot)
			if settingsError != nil {
				return settingsError
			}
			if options.outputPath == "" && !settings.copyToClipboard {
				return fmt.Errorf("watch requires --%s or --%s", outputFlagName, copyFlagName)
			}

			registry, closeRegistry, registryError := openRegistry(logger)
			if registryError != nil {
				return registryError
			}
			defer closeRegistry()

			localWorkspace := workspace.NewLocal(settings.useGitignore, settings.useIgnoreFile, logger)
			activationFilter := scan.NewFilter(scan.FilterOptions{
				RuleText:      localWorkspace.ReadIgnoreRules(projectRoot),
				ExtraPatterns: settings.buildOptions.ExtraExcludes,
				IncludeGit:    settings.buildOptions.IncludeGit,
			})

			projectWatcher, watcherError := watch.New(projectRoot, func(relativePath string) bool {
				return activationFilter.Matches(relativePath, false)
			})
			if watcherError != nil {
				return watcherError
			}
			if startError := projectWatcher.Start(); startError != nil {
				return startError
			}
			defer projectWatcher.Stop()

			interruptSignals := make(chan os.Signal, 1)
			signal.Notify(interruptSignals, os.Interrupt, syscall.SIGTERM)

			logger.Info("watching " + projectRoot)
			var lastRebuild time.Time
			rebuildPending := false
			rebuildTicker := time.NewTicker(rebuildInterval)
			defer rebuildTicker.Stop()

			for {
				select {
				case <-interruptSignals:
					return nil
				case activation := <-projectWatcher.Activations():
					registry.RecordActivation(projectRoot, activation.RelativePath, false)
					settings.buildOptions.ActivePath = activation.RelativePath
					rebuildPending = true
				case <-rebuildTicker.C:
					if !rebuildPending || time.Since(lastRebuild) < rebuildInterval {
						continue
					}
					buildResult, buildError := runSnapshotBuild(projectRoot, settings, registry, logger)
					if buildError != nil {
						logger.Warn("snapshot rebuild failed", zap.Error(buildError))
						continue
					}
					if deliverError := deliverSnapshot(buildResult, settings, options.outputPath, logger); deliverError != nil {
						logger.Warn("snapshot delivery failed", zap.Error(deliverError))
					}
					lastRebuild = time.Now()
					rebuildPending = false
				}
			}
		},
	}
	addSnapshotFlags(watchCommand, options)
	watchCommand.Flags().DurationVar(&rebuildInterval, rebuildIntervalFlagName, 2*time.Second, rebuildIntervalFlagDescr)
	return watchCommand
}
