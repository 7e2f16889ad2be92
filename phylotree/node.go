// Package phylotree implements the rooted reference tree: its node model,
// low-support-edge sanitization, deterministic re-identification, and the
// canonical textual form used to derive a stable database id.
//
// The struct-with-doc-comment style and the id-by-position discipline (never
// reference a node by long-lived pointer once it's part of a built Tree —
// only by its integer id) follow grailbio/bio/biopb's Coord/CoordRange
// convention.
package phylotree

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// Kind is the role of a Node within its Tree.
type Kind int

const (
	// Root is the unique node with no parent.
	Root Kind = iota
	// Internal is a non-root, non-leaf node.
	Internal
	// Leaf is a node with no children, carrying a Name that matches a
	// reference FASTA record id.
	Leaf
)

func (k Kind) String() string {
	switch k {
	case Root:
		return "Root"
	case Internal:
		return "Internal"
	case Leaf:
		return "Leaf"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Annotation is an opaque label/value pair a caller may attach to a node.
// The core never interprets these; it only carries them through
// sanitization and serialization.
type Annotation struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Node is one vertex of a rooted tree.
//
// Invariants (enforced by Validate, after sanitization):
//   - exactly one node has Kind == Root, and it is the tree's entry point;
//   - every non-Leaf node has at least 2 Children;
//   - Support is present (HasSupport) only on Internal nodes, 0 <= Support <= 100;
//   - Length >= 0, and is 0 on Root;
//   - Name is non-empty iff Kind == Leaf, and is unique among all leaves.
type Node struct {
	// ID is a stable, non-negative, dense-from-0 integer assigned by a
	// deterministic pre-order walk. Reference nodes by ID, never by pointer,
	// once a Tree has been built — that's what lets a Database be relocated
	// or memory-mapped without patching internal references.
	ID int
	// Kind is Root, Internal, or Leaf.
	Kind Kind
	// Support is the branch-support value (0-100); meaningful only when
	// HasSupport is true (Internal nodes only).
	Support    float64
	HasSupport bool
	// Length is the branch length to the parent; 0 on Root.
	Length float64
	// Name is the leaf label; empty for Root/Internal.
	Name string
	// Children is non-empty iff Kind != Leaf.
	Children []*Node
	// Annotations are caller-supplied label/value pairs, kept unchanged by
	// sanitization; JSON serialization writes them sorted by label, then value.
	Annotations []Annotation
}

// Validate checks the structural invariants of a tree rooted at root. It
// assumes root.ID has already been assigned (see AssignIDs) but does not
// itself assign ids.
func Validate(root *Node) error {
	if root.Kind != Root {
		return errors.E("phylotree: root node must have Kind == Root")
	}
	seenNames := make(map[string]bool)
	var walk func(n *Node) error
	walk = func(n *Node) error {
		if n.Length < 0 {
			return errors.E(fmt.Sprintf("phylotree: node %d has negative branch length %v", n.ID, n.Length))
		}
		if n.Kind == Root && n.Length != 0 {
			return errors.E("phylotree: root must have branch length 0")
		}
		switch n.Kind {
		case Leaf:
			if n.Name == "" {
				return errors.E(fmt.Sprintf("phylotree: leaf node %d has no name", n.ID))
			}
			if len(n.Children) != 0 {
				return errors.E(fmt.Sprintf("phylotree: leaf node %d (%s) has children", n.ID, n.Name))
			}
			if n.HasSupport {
				return errors.E(fmt.Sprintf("phylotree: leaf node %d (%s) has a support value", n.ID, n.Name))
			}
			if seenNames[n.Name] {
				return errors.E(fmt.Sprintf("phylotree: duplicate leaf name %q", n.Name))
			}
			seenNames[n.Name] = true
		case Root, Internal:
			if n.Name != "" {
				return errors.E(fmt.Sprintf("phylotree: non-leaf node %d has a name %q", n.ID, n.Name))
			}
			if len(n.Children) < 2 {
				return errors.E(fmt.Sprintf("phylotree: non-leaf node %d has only %d children", n.ID, len(n.Children)))
			}
			if n.Kind == Root && n.HasSupport {
				return errors.E("phylotree: root must not carry a support value")
			}
			if n.Kind == Internal {
				if !n.HasSupport {
					return errors.E(fmt.Sprintf("phylotree: internal node %d has no support value", n.ID))
				}
				if n.Support < 0 || n.Support > 100 {
					return errors.E(fmt.Sprintf("phylotree: internal node %d has out-of-range support %v", n.ID, n.Support))
				}
			}
		}
		for _, c := range n.Children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root)
}

// AssignIDs assigns dense, 0-based ids to every node of the tree rooted at
// root in deterministic depth-first pre-order: Root gets 0, every node is
// numbered before its children, and children are visited left to right, each
// child's whole subtree being numbered before its next sibling. Two runs over structurally identical input always produce the
// same ids — that's what lets id-keyed occurrence lists compare equal
// across builds.
func AssignIDs(root *Node) {
	next := 0
	var walk func(n *Node)
	walk = func(n *Node) {
		n.ID = next
		next++
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
}

// Leaves returns every Leaf node in the subtree rooted at n, in pre-order.
func Leaves(n *Node) []*Node {
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Kind == Leaf {
			out = append(out, n)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}

// ByID indexes every node of the tree rooted at root by its ID, for O(1)
// lookups during indexing and placement.
func ByID(root *Node) map[int]*Node {
	out := make(map[int]*Node)
	var walk func(n *Node)
	walk = func(n *Node) {
		out[n.ID] = n
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return out
}

// Ancestors returns the path from n up to and including Root, starting with
// n itself. parentOf must map every node id to its parent id, with Root
// mapping to itself (see ParentIndex).
func Ancestors(n *Node, parentOf map[int]int, byID map[int]*Node) []*Node {
	out := []*Node{n}
	cur := n
	for cur.Kind != Root {
		cur = byID[parentOf[cur.ID]]
		out = append(out, cur)
	}
	return out
}

// ParentIndex returns, for every node id in the tree rooted at root, the id
// of its parent (Root maps to its own id).
func ParentIndex(root *Node) map[int]int {
	out := map[int]int{root.ID: root.ID}
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			out[c.ID] = n.ID
			walk(c)
		}
	}
	walk(root)
	return out
}
