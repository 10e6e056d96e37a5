package setup

import (
	"sort"
	"strings"
)

// Node is a directory or file in a selection tree.
type Node struct {
	Name string
	// Path is the repo-relative path of the file or directory.
	Path     string
	Dir      bool
	Children []*Node
}

// BuildTree arranges repo-relative file paths into a tree. Within a
// directory, subdirectories come first, each group sorted by name.
func BuildTree(paths []string) *Node {
	root := &Node{Dir: true}
	index := map[string]*Node{"": root}

	for _, p := range paths {
		parts := strings.Split(p, "/")
		parent := root
		for i, part := range parts[:len(parts)-1] {
			dirPath := strings.Join(parts[:i+1], "/")
			dir, ok := index[dirPath]
			if !ok {
				dir = &Node{Name: part, Path: dirPath, Dir: true}
				index[dirPath] = dir
				parent.Children = append(parent.Children, dir)
			}
			parent = dir
		}
		parent.Children = append(parent.Children, &Node{Name: parts[len(parts)-1], Path: p})
	}

	sortTree(root)
	return root
}

func sortTree(n *Node) {
	sort.SliceStable(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		if a.Dir != b.Dir {
			return a.Dir
		}
		return a.Name < b.Name
	})
	for _, c := range n.Children {
		if c.Dir {
			sortTree(c)
		}
	}
}

// Entry is a node with its depth below the root.
type Entry struct {
	Node  *Node
	Depth int
}

// Flatten lists every node below n in display order.
func (n *Node) Flatten() []Entry {
	var out []Entry
	var walk func(node *Node, depth int)
	walk = func(node *Node, depth int) {
		for _, c := range node.Children {
			out = append(out, Entry{Node: c, Depth: depth})
			if c.Dir {
				walk(c, depth+1)
			}
		}
	}
	walk(n, 0)
	return out
}

// Files returns the paths of every file at or below n, in display order.
func (n *Node) Files() []string {
	if !n.Dir {
		return []string{n.Path}
	}
	var out []string
	for _, c := range n.Children {
		out = append(out, c.Files()...)
	}
	return out
}

// Label renders an entry for a selection prompt.
func (e Entry) Label() string {
	name := e.Node.Name
	if e.Node.Dir {
		name += "/"
	}
	return strings.Repeat("  ", e.Depth) + name
}

// Expand resolves selected entries into file paths. Selecting a directory
// selects all of its descendants. The result is sorted and unique.
func Expand(entries []Entry, selected []bool) []string {
	set := make(map[string]struct{})
	for i, e := range entries {
		if i >= len(selected) || !selected[i] {
			continue
		}
		for _, f := range e.Node.Files() {
			set[f] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
