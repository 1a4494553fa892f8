package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ctxsnap/ctxsnap/internal/config"
	"github.com/ctxsnap/ctxsnap/internal/services/clipboard"
	"github.com/ctxsnap/ctxsnap/internal/snapshot"
	"github.com/ctxsnap/ctxsnap/internal/tokenizer"
	"github.com/ctxsnap/ctxsnap/internal/tracker"
	"github.com/ctxsnap/ctxsnap/internal/tree"
	"github.com/ctxsnap/ctxsnap/internal/workspace"
)

const (
	snapshotUse              = "snapshot [path]"
	snapshotAlias            = "s"
	snapshotShortDescription = "build a project snapshot (" + snapshotAlias + ")"
	snapshotLongDescription  = `Build a bounded snapshot of the project rooted at path (default ".").
The document contains a directory tree and the content of the most relevant
files: pinned paths first, then the active file, then habitual files.`
	snapshotUsageExample = `  # Snapshot the current project to stdout
  ctxsnap snapshot

  # Smart tree, 8000-character budget, copied to the clipboard
  ctxsnap snapshot --mode smart --limit 8000 --copy .

  # Mark the file being worked on as the active document
  ctxsnap snapshot --active internal/server/router.go`

	modeFlagName          = "mode"
	modeFlagDescription   = "structure mode (full or smart)"
	limitFlagName         = "limit"
	limitFlagDescription  = "character budget for the document (0 = unlimited)"
	maxFilesFlagName      = "max-files"
	maxFilesFlagDescr     = "maximum number of file sections"
	depthFlagName         = "depth"
	depthFlagDescription  = "directory scan depth"
	activeFlagName        = "active"
	activeFlagDescription = "path of the currently active document"
	excludeFlagName       = "e"
	excludeFlagDescr      = "exclude path pattern"
	noGitignoreFlagName   = "no-gitignore"
	noGitignoreFlagDescr  = "do not use .gitignore"
	noIgnoreFlagName      = "no-ignore"
	noIgnoreFlagDescr     = "do not use " + workspace.IgnoreFileName
	includeGitFlagName    = "git"
	includeGitFlagDescr   = "include git directory"
	copyFlagName          = "copy"
	copyFlagDescription   = "copy the snapshot to the system clipboard"
	outputFlagName        = "output"
	outputFlagDescription = "write the snapshot to a file instead of stdout"
	tokensFlagName        = "tokens"
	tokensFlagDescription = "report a token estimate of the document"
	modelFlagName         = "model"
	modelFlagDescription  = "tokenizer model for the token estimate"

	invalidModeMessageFormat = "invalid mode value '%s'"
)

// snapshotOptions stores the flag values of the snapshot and watch commands.
type snapshotOptions struct {
	mode              string
	characterLimit    int
	maxFiles          int
	depth             int
	activePath        string
	exclusionPatterns []string
	disableGitignore  bool
	disableIgnoreFile bool
	includeGit        bool
	copyToClipboard   bool
	outputPath        string
	countTokens       bool
	tokenizerModel    string
}

func addSnapshotFlags(command *cobra.Command, options *snapshotOptions) {
	command.Flags().StringVar(&options.mode, modeFlagName, "", modeFlagDescription)
	command.Flags().IntVar(&options.characterLimit, limitFlagName, 0, limitFlagDescription)
	command.Flags().IntVar(&options.maxFiles, maxFilesFlagName, 0, maxFilesFlagDescr)
	command.Flags().IntVar(&options.depth, depthFlagName, 0, depthFlagDescription)
	command.Flags().StringVar(&options.activePath, activeFlagName, "", activeFlagDescription)
	command.Flags().StringArrayVarP(&options.exclusionPatterns, excludeFlagName, excludeFlagName, nil, excludeFlagDescr)
	command.Flags().BoolVar(&options.disableGitignore, noGitignoreFlagName, false, noGitignoreFlagDescr)
	command.Flags().BoolVar(&options.disableIgnoreFile, noIgnoreFlagName, false, noIgnoreFlagDescr)
	command.Flags().BoolVar(&options.includeGit, includeGitFlagName, false, includeGitFlagDescr)
	command.Flags().BoolVar(&options.copyToClipboard, copyFlagName, false, copyFlagDescription)
	command.Flags().StringVar(&options.outputPath, outputFlagName, "", outputFlagDescription)
	command.Flags().BoolVar(&options.countTokens, tokensFlagName, false, tokensFlagDescription)
	command.Flags().StringVar(&options.tokenizerModel, modelFlagName, "", modelFlagDescription)
}

// resolvedSettings combines configuration-file values with explicit flags;
// flags win when set.
type resolvedSettings struct {
	buildOptions    snapshot.Options
	useGitignore    bool
	useIgnoreFile   bool
	copyToClipboard bool
	countTokens     bool
	tokenizerModel  string
}

func resolveSettings(command *cobra.Command, options *snapshotOptions, workingDirectory string) (resolvedSettings, error) {
	applicationConfiguration, configurationError := config.LoadApplicationConfiguration(config.LoadOptions{WorkingDirectory: workingDirectory})
	if configurationError != nil {
		return resolvedSettings{}, configurationError
	}

	settings := resolvedSettings{
		useGitignore:   true,
		useIgnoreFile:  true,
		tokenizerModel: config.DefaultTokenizerModel,
	}
	settings.buildOptions = snapshot.Options{
		Mode:           tree.Mode(config.DefaultMode),
		Depth:          config.DefaultDepth,
		CharacterLimit: config.DefaultCharacterLimit,
	}
	defaultMaxFiles := config.DefaultMaxFiles
	settings.buildOptions.MaxFiles = &defaultMaxFiles

	if applicationConfiguration.Snapshot.Mode != "" {
		settings.buildOptions.Mode = tree.Mode(applicationConfiguration.Snapshot.Mode)
	}
	if applicationConfiguration.Snapshot.Depth != nil {
		settings.buildOptions.Depth = *applicationConfiguration.Snapshot.Depth
	}
	if applicationConfiguration.Snapshot.CharacterLimit != nil {
		settings.buildOptions.CharacterLimit = *applicationConfiguration.Snapshot.CharacterLimit
	}
	if applicationConfiguration.Snapshot.MaxFiles != nil {
		settings.buildOptions.MaxFiles = applicationConfiguration.Snapshot.MaxFiles
	}
	if applicationConfiguration.Snapshot.Clipboard != nil {
		settings.copyToClipboard = *applicationConfiguration.Snapshot.Clipboard
	}
	settings.buildOptions.ExtraExcludes = append(settings.buildOptions.ExtraExcludes, applicationConfiguration.Paths.Exclude...)
	if applicationConfiguration.Paths.UseGitignore != nil {
		settings.useGitignore = *applicationConfiguration.Paths.UseGitignore
	}
	if applicationConfiguration.Paths.UseIgnoreFile != nil {
		settings.useIgnoreFile = *applicationConfiguration.Paths.UseIgnoreFile
	}
	if applicationConfiguration.Paths.IncludeGit != nil {
		settings.buildOptions.IncludeGit = *applicationConfiguration.Paths.IncludeGit
	}
	if applicationConfiguration.Tokens.Enabled != nil {
		settings.countTokens = *applicationConfiguration.Tokens.Enabled
	}
	if applicationConfiguration.Tokens.Model != "" {
		settings.tokenizerModel = applicationConfiguration.Tokens.Model
	}

	commandFlags := command.Flags()
	if commandFlags.Changed(modeFlagName) {
		settings.buildOptions.Mode = tree.Mode(options.mode)
	}
	if settings.buildOptions.Mode != tree.ModeFull && settings.buildOptions.Mode != tree.ModeSmart {
		return resolvedSettings{}, fmt.Errorf(invalidModeMessageFormat, settings.buildOptions.Mode)
	}
	if commandFlags.Changed(limitFlagName) {
		settings.buildOptions.CharacterLimit = options.characterLimit
	}
	if commandFlags.Changed(maxFilesFlagName) {
		maxFiles := options.maxFiles
		settings.buildOptions.MaxFiles = &maxFiles
	}
	if commandFlags.Changed(depthFlagName) {
		settings.buildOptions.Depth = options.depth
	}
	if commandFlags.Changed(copyFlagName) {
		settings.copyToClipboard = options.copyToClipboard
	}
	if commandFlags.Changed(tokensFlagName) {
		settings.countTokens = options.countTokens
	}
	if commandFlags.Changed(modelFlagName) {
		settings.tokenizerModel = options.tokenizerModel
	}
	if options.disableGitignore {
		settings.useGitignore = false
	}
	if options.disableIgnoreFile {
		settings.useIgnoreFile = false
	}
	if options.includeGit {
		settings.buildOptions.IncludeGit = true
	}
	settings.buildOptions.ExtraExcludes = append(settings.buildOptions.ExtraExcludes, options.exclusionPatterns...)
	settings.buildOptions.ActivePath = options.activePath

	return settings, nil
}

func createSnapshotCommand(logger *zap.Logger) *cobra.Command {
	options := &snapshotOptions{}
	snapshotCommand := &cobra.Command{
		Use:     snapshotUse,
		Aliases: []string{snapshotAlias},
		Short:   snapshotShortDescription,
		Long:    snapshotLongDescription,
		Example: snapshotUsageExample,
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

			registry, closeRegistry, registryError := openRegistry(logger)
			if registryError != nil {
				return registryError
			}
			defer closeRegistry()

			if options.activePath != "" {
				registry.RecordActivation(projectRoot, options.activePath, false)
			}

			buildResult, buildError := runSnapshotBuild(projectRoot, settings, registry, logger)
			if buildError != nil {
				return buildError
			}
			return deliverSnapshot(buildResult, settings, options.outputPath, logger)
		},
	}
	addSnapshotFlags(snapshotCommand, options)
	return snapshotCommand
}

func runSnapshotBuild(projectRoot string, settings resolvedSettings, registry *tracker.Registry, logger *zap.Logger) (*snapshot.Result, error) {
	localWorkspace := workspace.NewLocal(settings.useGitignore, settings.useIgnoreFile, logger)
	builder := snapshot.NewBuilder(localWorkspace, registry, logger)
	return builder.Build(projectRoot, settings.buildOptions)
}

// deliverSnapshot writes the document to its destination and reports the
// structured build outcome on the logger.
func deliverSnapshot(buildResult *snapshot.Result, settings resolvedSettings, outputPath string, logger *zap.Logger) error {
	if outputPath != "" {
		if writeError := os.WriteFile(outputPath, []byte(buildResult.FinalText), 0o644); writeError != nil {
			return fmt.Errorf("write snapshot to %s: %w", outputPath, writeError)
		}
	} else if !settings.copyToClipboard {
		fmt.Print(buildResult.FinalText)
	}
	if settings.copyToClipboard {
		if copyError := clipboard.NewService().Copy(buildResult.FinalText); copyError != nil {
			return fmt.Errorf("copy snapshot to clipboard: %w", copyError)
		}
	}

	logger.Info(fmt.Sprintf("snapshot: %d characters, %d candidate(s), %d included",
		len(buildResult.FinalText), buildResult.TotalCandidateCount, len(buildResult.IncludedLabels)))
	if settings.countTokens {
		tokenCounter, counterError := tokenizer.NewCounter(settings.tokenizerModel)
		if counterError != nil {
			logger.Warn("tokenizer unavailable", zap.Error(counterError))
		} else if tokenCount, countError := tokenCounter.CountString(buildResult.FinalText); countError == nil {
			logger.Info(fmt.Sprintf("estimated %d tokens (%s)", tokenCount, tokenCounter.Name()))
		}
	}
	if buildResult.Truncated {
		logger.Warn(fmt.Sprintf("truncated to %d characters; cut: %s",
			buildResult.EffectiveLimit, strings.Join(buildResult.TruncatedLabels, ", ")))
	}
	for _, skippedEntry := range buildResult.SkippedEntries {
		logger.Warn("skipped " + skippedEntry)
	}
	return nil
}
