package snapshot

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ctxsnap/ctxsnap/internal/compose"
	"github.com/ctxsnap/ctxsnap/internal/scan"
	"github.com/ctxsnap/ctxsnap/internal/tracker"
	"github.com/ctxsnap/ctxsnap/internal/tree"
)

const (
	// readConcurrencyLimit bounds parallel candidate reads. Reads are
	// independent; each failure stays attributable to its own candidate.
	readConcurrencyLimit = 4

	documentTitlePrefix   = "# Project Snapshot: "
	structureHeadingFull  = "## Structure (full)"
	structureHeadingSmart = "## Structure (smart)"
	filesHeadingFormat    = "## Files (%d)"
	skippedFilesHeading   = "## Skipped Files"

	errorScanFormat = "scanning %s: %w"
)

// Options are the resolved per-invocation settings for one snapshot build.
type Options struct {
	Mode           tree.Mode
	Depth          int
	CharacterLimit int
	// MaxFiles caps the candidate list; nil means no cap and values at or
	// below zero yield zero files.
	MaxFiles      *int
	ExtraExcludes []string
	IncludeGit    bool
	ActivePath    string
}

// Builder orchestrates one snapshot: candidates, tree, per-file sections,
// and budget composition.
type Builder struct {
	workspace Workspace
	registry  *tracker.Registry
	logger    *zap.Logger
}

// NewBuilder constructs a Builder over the host workspace and the tracking registry.
func NewBuilder(workspace Workspace, registry *tracker.Registry, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{workspace: workspace, registry: registry, logger: logger}
}

// Build produces the snapshot document for the project root. A completed
// build always yields a document, even under partial failure; only a missing
// project root is fatal.
func (builder *Builder) Build(root string, options Options) (*Result, error) {
	if strings.TrimSpace(root) == "" {
		return nil, ErrNoProject
	}

	activePath := scan.NormalizePath(options.ActivePath)
	if activePath == "" {
		activePath = builder.activeDocumentPath(root)
	}

	candidates := builder.registry.SelectCandidates(root, activePath)
	trackedPaths := sortedHighlightPaths(candidates.HighlightPaths)

	scanDepth := options.Depth
	if trackedDepth := tree.MaxDepth(trackedPaths); trackedDepth > scanDepth {
		scanDepth = trackedDepth
	}

	rawEntries, scanError := builder.workspace.ListRawEntries(root, scanDepth)
	if scanError != nil {
		return nil, fmt.Errorf(errorScanFormat, root, scanError)
	}

	entryFilter := scan.NewFilter(scan.FilterOptions{
		RuleText:      builder.workspace.ReadIgnoreRules(root),
		ExtraPatterns: options.ExtraExcludes,
		IncludeGit:    options.IncludeGit,
	})
	filteredEntries := entryFilter.Apply(rawEntries)

	rootNode := tree.NewRoot(filepath.Base(root))
	for _, filteredEntry := range filteredEntries {
		rootNode.Insert(filteredEntry.Path, filteredEntry.IsDirectory)
	}
	rootNode.Sort()
	treeText := tree.Render(rootNode, options.Mode, tree.NewExpandSet(trackedPaths))

	cappedCandidates := applyFileCap(candidates.Files, options.MaxFiles)
	collectedFiles, skippedEntries := builder.collectFiles(root, cappedCandidates)

	segments := buildSegments(rootNode.Name, options.Mode, treeText, collectedFiles, skippedEntries)
	composed := compose.Compose(segments, options.CharacterLimit)

	return &Result{
		FinalText:           composed.Text,
		Truncated:           composed.Truncated,
		TruncatedLabels:     composed.TruncatedLabels,
		IncludedLabels:      composed.IncludedLabels,
		TotalCandidateCount: len(candidates.Files),
		SkippedEntries:      skippedEntries,
		EffectiveLimit:      options.CharacterLimit,
	}, nil
}

// activeDocumentPath asks the host for its active document when the caller
// did not name one.
func (builder *Builder) activeDocumentPath(root string) string {
	for _, documentInfo := range builder.workspace.ListOpenDocuments(root) {
		if documentInfo.Active {
			return scan.NormalizePath(documentInfo.Path)
		}
	}
	return ""
}

// collectFiles reads every capped candidate, falling back to unsaved content
// on a primary read failure. Candidates failing both reads are excluded and
// recorded with a combined reason; result order matches candidate order.
func (builder *Builder) collectFiles(root string, candidatePaths []string) ([]CollectedFile, []string) {
	editorLanguages := make(map[string]string)
	for _, documentInfo := range builder.workspace.ListOpenDocuments(root) {
		editorLanguages[scan.NormalizePath(documentInfo.Path)] = documentInfo.LanguageID
	}

	collectedSlots := make([]*CollectedFile, len(candidatePaths))
	skipReasons := make([]string, len(candidatePaths))

	var readGroup errgroup.Group
	readGroup.SetLimit(readConcurrencyLimit)
	for candidateIndex, candidatePath := range candidatePaths {
		candidateIndex, candidatePath := candidateIndex, candidatePath
		readGroup.Go(func() error {
			fileContent, primaryError := builder.workspace.ReadFileContent(root, candidatePath)
			if primaryError != nil {
				unsavedContent, fallbackError := builder.workspace.ReadUnsavedContent(root, candidatePath)
				if fallbackError != nil {
					skipReasons[candidateIndex] = fmt.Sprintf("%s: %v; %v", candidatePath, primaryError, fallbackError)
					return nil
				}
				fileContent = unsavedContent
			}
			collectedSlots[candidateIndex] = &CollectedFile{
				Path:        candidatePath,
				Content:     fileContent,
				LanguageTag: ResolveLanguageTag(candidatePath, editorLanguages[candidatePath]),
				LineCount:   CountLines(fileContent),
			}
			return nil
		})
	}
	_ = readGroup.Wait()

	var collectedFiles []CollectedFile
	var skippedEntries []string
	for candidateIndex := range candidatePaths {
		if collectedSlots[candidateIndex] != nil {
			collectedFiles = append(collectedFiles, *collectedSlots[candidateIndex])
			continue
		}
		builder.logger.Warn("skipping unreadable candidate", zap.String("entry", skipReasons[candidateIndex]))
		skippedEntries = append(skippedEntries, skipReasons[candidateIndex])
	}
	return collectedFiles, skippedEntries
}

// applyFileCap limits the candidate list: nil means no cap, and a cap at or
// below zero yields zero files.
func applyFileCap(candidatePaths []string, maxFiles *int) []string {
	if maxFiles == nil {
		return candidatePaths
	}
	if *maxFiles <= 0 {
		return nil
	}
	if len(candidatePaths) <= *maxFiles {
		return candidatePaths
	}
	return candidatePaths[:*maxFiles]
}

// buildSegments assembles the ordered segment list: required header with
// title, structure, and file-count headings; one optional fenced section per
// collected file labeled by path; a required skip report when any candidate
// was skipped.
func buildSegments(rootLabel string, mode tree.Mode, treeText string, collectedFiles []CollectedFile, skippedEntries []string) []compose.Segment {
	structureHeading := structureHeadingFull
	if mode == tree.ModeSmart {
		structureHeading = structureHeadingSmart
	}

	var headerBuilder strings.Builder
	headerBuilder.WriteString(documentTitlePrefix + rootLabel + "\n\n")
	headerBuilder.WriteString(structureHeading + "\n")
	headerBuilder.WriteString(treeText + "\n")
	headerBuilder.WriteString(fmt.Sprintf(filesHeadingFormat, len(collectedFiles)) + "\n\n")

	segments := []compose.Segment{{Text: headerBuilder.String(), Required: true}}

	for _, collectedFile := range collectedFiles {
		segments = append(segments, compose.Segment{
			Text:  renderFileSection(collectedFile),
			Label: collectedFile.Path,
		})
	}

	if len(skippedEntries) > 0 {
		var skipBuilder strings.Builder
		skipBuilder.WriteString(skippedFilesHeading + "\n")
		for _, skippedEntry := range skippedEntries {
			skipBuilder.WriteString("- " + skippedEntry + "\n")
		}
		segments = append(segments, compose.Segment{Text: skipBuilder.String(), Required: true})
	}

	return segments
}

func renderFileSection(collectedFile CollectedFile) string {
	var sectionBuilder strings.Builder
	sectionBuilder.WriteString(fmt.Sprintf("### %s (%d lines)\n", collectedFile.Path, collectedFile.LineCount))
	sectionBuilder.WriteString("```" + collectedFile.LanguageTag + "\n")
	sectionBuilder.WriteString(collectedFile.Content)
	if !strings.HasSuffix(collectedFile.Content, "\n") {
		sectionBuilder.WriteString("\n")
	}
	sectionBuilder.WriteString("```\n\n")
	return sectionBuilder.String()
}

func sortedHighlightPaths(highlightPaths map[string]struct{}) []string {
	orderedPaths := make([]string, 0, len(highlightPaths))
	for highlightPath := range highlightPaths {
		orderedPaths = append(orderedPaths, highlightPath)
	}
	sort.Strings(orderedPaths)
	return orderedPaths
}
