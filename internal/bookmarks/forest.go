package bookmarks

import (
	"strings"
	"time"

	"github.com/sloppy/foxport/internal/places"
)

// Node is one bookmark or folder in a Forest. Children holds arena indices.
type Node struct {
	ID           int64
	Title        string
	URL          string
	ParentID     *int64
	DateAdded    time.Time
	LastModified time.Time
	Kind         places.Kind
	Children     []int
}

// Forest is an arena of nodes plus the indices of its roots.
type Forest struct {
	Nodes []Node
	Roots []int
}

// TreeNode is the nested, serializable form of a Node.
type TreeNode struct {
	ID           int64       `json:"id"`
	Title        string      `json:"title"`
	URL          string      `json:"url,omitempty"`
	ParentID     *int64      `json:"parentId"`
	DateAdded    time.Time   `json:"dateAdded"`
	LastModified time.Time   `json:"lastModified"`
	Type         places.Kind `json:"type"`
	Children     []TreeNode  `json:"children"`
}

// IndexEntry is a flattened node annotated with its title path from the root.
type IndexEntry struct {
	ID        int64       `json:"id"`
	Title     string      `json:"title"`
	URL       string      `json:"url,omitempty"`
	ParentID  *int64      `json:"parentId"`
	Type      places.Kind `json:"type"`
	DateAdded time.Time   `json:"dateAdded"`
	Path      string      `json:"path"`
	Depth     int         `json:"depth"`
}

// Build reconstructs a forest from rows sorted by parent and position.
//
// A row whose parent is null, itself, or not among the rows becomes a root.
// Rows left unreachable from every root (parent cycles) are detached and
// promoted to roots, so every accepted row appears exactly once. A repeated
// id keeps its first row.
func Build(rows []places.BookmarkRow) Forest {
	f := Forest{Nodes: make([]Node, 0, len(rows))}
	byID := make(map[int64]int, len(rows))

	for _, row := range rows {
		if _, dup := byID[row.ID]; dup {
			continue
		}
		byID[row.ID] = len(f.Nodes)
		f.Nodes = append(f.Nodes, Node{
			ID:           row.ID,
			Title:        row.Title,
			URL:          row.URL,
			ParentID:     row.ParentID,
			DateAdded:    row.DateAdded,
			LastModified: row.LastModified,
			Kind:         row.Kind,
		})
	}

	parentOf := make([]int, len(f.Nodes))
	for i := range f.Nodes {
		parentOf[i] = -1
		n := &f.Nodes[i]
		if n.ParentID == nil || *n.ParentID == n.ID {
			f.Roots = append(f.Roots, i)
			continue
		}
		p, ok := byID[*n.ParentID]
		if !ok {
			f.Roots = append(f.Roots, i)
			continue
		}
		f.Nodes[p].Children = append(f.Nodes[p].Children, i)
		parentOf[i] = p
	}

	f.promoteUnreachable(parentOf)
	return f
}

func (f *Forest) promoteUnreachable(parentOf []int) {
	visited := make([]bool, len(f.Nodes))
	for _, r := range f.Roots {
		f.mark(r, visited)
	}
	for i := range f.Nodes {
		if visited[i] {
			continue
		}
		if p := parentOf[i]; p >= 0 {
			f.Nodes[p].Children = removeIndex(f.Nodes[p].Children, i)
		}
		f.Roots = append(f.Roots, i)
		f.mark(i, visited)
	}
}

func (f *Forest) mark(start int, visited []bool) {
	stack := []int{start}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[i] {
			continue
		}
		visited[i] = true
		stack = append(stack, f.Nodes[i].Children...)
	}
}

func removeIndex(list []int, target int) []int {
	out := list[:0]
	for _, v := range list {
		if v != target {
			out = append(out, v)
		}
	}
	return out
}

// Count returns the number of nodes reachable from the roots.
func (f Forest) Count() int {
	total := 0
	f.walk(func(int, []string) { total++ })
	return total
}

// Tree returns the roots as nested TreeNodes in stored order.
func (f Forest) Tree() []TreeNode {
	out := make([]TreeNode, 0, len(f.Roots))
	for _, r := range f.Roots {
		out = append(out, f.tree(r))
	}
	return out
}

func (f Forest) tree(i int) TreeNode {
	n := f.Nodes[i]
	t := TreeNode{
		ID:           n.ID,
		Title:        n.Title,
		URL:          n.URL,
		ParentID:     n.ParentID,
		DateAdded:    n.DateAdded,
		LastModified: n.LastModified,
		Type:         n.Kind,
		Children:     make([]TreeNode, 0, len(n.Children)),
	}
	for _, c := range n.Children {
		t.Children = append(t.Children, f.tree(c))
	}
	return t
}

// Flatten lists every node depth-first with its slash-joined title path.
func (f Forest) Flatten() []IndexEntry {
	out := make([]IndexEntry, 0, len(f.Nodes))
	f.walk(func(i int, path []string) {
		n := f.Nodes[i]
		out = append(out, IndexEntry{
			ID:        n.ID,
			Title:     n.Title,
			URL:       n.URL,
			ParentID:  n.ParentID,
			Type:      n.Kind,
			DateAdded: n.DateAdded,
			Path:      strings.Join(path, "/"),
			Depth:     len(path) - 1,
		})
	})
	return out
}

// walk visits nodes depth-first in pre-order, passing the title path
// including the node itself.
func (f Forest) walk(visit func(i int, path []string)) {
	var rec func(i int, path []string)
	rec = func(i int, path []string) {
		path = append(path, f.Nodes[i].Title)
		visit(i, path)
		for _, c := range f.Nodes[i].Children {
			rec(c, path)
		}
	}
	for _, r := range f.Roots {
		rec(r, make([]string, 0, 8))
	}
}
