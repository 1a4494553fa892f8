// Package tree builds and renders the directory diagram included in a snapshot.
package tree

import (
	"sort"
	"strings"
)

// Mode selects how directories are expanded during rendering.
type Mode string

const (
	// ModeFull expands every directory that has children.
	ModeFull Mode = "full"
	// ModeSmart expands only directories on the path to a tracked file.
	ModeSmart Mode = "smart"
)

// Node is one element of the snapshot directory tree. Children are held in an
// insertion-order slice alongside a name index so the sibling sort contract
// never depends on map iteration order.
type Node struct {
	Name        string
	IsDirectory bool
	// Path is the root-relative forward-slash path; empty for the root node.
	Path string

	children   []*Node
	childIndex map[string]*Node
}

// NewRoot returns an empty tree labeled with the project root name.
func NewRoot(rootLabel string) *Node {
	return &Node{Name: rootLabel, IsDirectory: true}
}

// Children returns the ordered child list.
func (node *Node) Children() []*Node {
	return node.children
}

// Insert adds a normalized relative path to the tree, creating intermediate
// directories as needed. Re-inserting a known path is idempotent; a file node
// is promoted to a directory when the path is later observed as one.
func (node *Node) Insert(relativePath string, isDirectory bool) {
	pathSegments := strings.Split(relativePath, "/")
	currentNode := node
	for segmentIndex, segmentName := range pathSegments {
		if segmentName == "" {
			continue
		}
		isLastSegment := segmentIndex == len(pathSegments)-1
		currentNode = currentNode.ensureChild(segmentName, !isLastSegment || isDirectory)
	}
}

func (node *Node) ensureChild(childName string, isDirectory bool) *Node {
	if node.childIndex == nil {
		node.childIndex = make(map[string]*Node)
	}
	if existingChild, childKnown := node.childIndex[childName]; childKnown {
		if isDirectory {
			existingChild.IsDirectory = true
		}
		return existingChild
	}
	childPath := childName
	if node.Path != "" {
		childPath = node.Path + "/" + childName
	}
	createdChild := &Node{Name: childName, IsDirectory: isDirectory, Path: childPath}
	node.children = append(node.children, createdChild)
	node.childIndex[childName] = createdChild
	return createdChild
}

// Sort recursively orders every sibling group: directories before files,
// then case-sensitive lexicographic by name.
func (node *Node) Sort() {
	sort.SliceStable(node.children, func(firstIndex, secondIndex int) bool {
		firstChild := node.children[firstIndex]
		secondChild := node.children[secondIndex]
		if firstChild.IsDirectory != secondChild.IsDirectory {
			return firstChild.IsDirectory
		}
		return firstChild.Name < secondChild.Name
	})
	for _, childNode := range node.children {
		childNode.Sort()
	}
}
