package tree

import "strings"

const (
	treeBranchConnector = "├── "
	treeLastConnector   = "└── "
	treeBranchPadding   = "│   "
	treeLastPadding     = "    "
)

// ExpandSet lists the directory paths a smart render keeps open.
type ExpandSet map[string]struct{}

// NewExpandSet returns the set of proper prefix directories of each tracked
// path, which is exactly the set of directories a smart render must expand to
// make every tracked file visible.
func NewExpandSet(trackedPaths []string) ExpandSet {
	expandSet := make(ExpandSet)
	for _, trackedPath := range trackedPaths {
		pathSegments := strings.Split(strings.Trim(trackedPath, "/"), "/")
		accumulatedPath := ""
		for segmentIndex := 0; segmentIndex < len(pathSegments)-1; segmentIndex++ {
			if pathSegments[segmentIndex] == "" {
				continue
			}
			if accumulatedPath == "" {
				accumulatedPath = pathSegments[segmentIndex]
			} else {
				accumulatedPath = accumulatedPath + "/" + pathSegments[segmentIndex]
			}
			expandSet[accumulatedPath] = struct{}{}
		}
	}
	return expandSet
}

// MaxDepth returns the largest segment count among tracked paths. The scan
// depth is raised to this value so tracked files below the nominal depth are
// still discoverable.
func MaxDepth(trackedPaths []string) int {
	maximumDepth := 0
	for _, trackedPath := range trackedPaths {
		segmentCount := len(strings.Split(strings.Trim(trackedPath, "/"), "/"))
		if segmentCount > maximumDepth {
			maximumDepth = segmentCount
		}
	}
	return maximumDepth
}

// Render produces the indented tree diagram. The root label occupies the first
// line; descendants are drawn with connector glyphs. In ModeSmart a directory's
// children are rendered only when its path is a member of expandSet; ModeFull
// expands every directory with children.
func Render(rootNode *Node, mode Mode, expandSet ExpandSet) string {
	var diagramBuilder strings.Builder
	diagramBuilder.WriteString(rootNode.Name + "\n")
	renderChildren(&diagramBuilder, rootNode, "", mode, expandSet)
	return diagramBuilder.String()
}

func renderChildren(diagramBuilder *strings.Builder, parentNode *Node, linePrefix string, mode Mode, expandSet ExpandSet) {
	childCount := len(parentNode.children)
	for childIndex, childNode := range parentNode.children {
		isLastSibling := childIndex == childCount-1
		connector := treeBranchConnector
		continuation := treeBranchPadding
		if isLastSibling {
			connector = treeLastConnector
			continuation = treeLastPadding
		}
		diagramBuilder.WriteString(linePrefix + connector + childNode.Name + "\n")
		if childNode.IsDirectory && len(childNode.children) > 0 && isExpanded(childNode, mode, expandSet) {
			renderChildren(diagramBuilder, childNode, linePrefix+continuation, mode, expandSet)
		}
	}
}

func isExpanded(directoryNode *Node, mode Mode, expandSet ExpandSet) bool {
	if mode != ModeSmart {
		return true
	}
	_, tracked := expandSet[directoryNode.Path]
	return tracked
}
