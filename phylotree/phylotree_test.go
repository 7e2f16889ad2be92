package phylotree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSampleRoot builds ((a,b)n1:sup1,(c,d)n2:sup2)root, with the given
// internal-node supports.
func buildSampleRoot(sup1, sup2 float64) *Node {
	a := &Node{Kind: Leaf, Name: "a", Length: 0.1}
	b := &Node{Kind: Leaf, Name: "b", Length: 0.1}
	n1 := &Node{Kind: Internal, Support: sup1, HasSupport: true, Length: 0.2, Children: []*Node{a, b}}
	c := &Node{Kind: Leaf, Name: "c", Length: 0.1}
	d := &Node{Kind: Leaf, Name: "d", Length: 0.1}
	n2 := &Node{Kind: Internal, Support: sup2, HasSupport: true, Length: 0.2, Children: []*Node{c, d}}
	return &Node{Kind: Root, Children: []*Node{n1, n2}}
}

func TestNewAssignsDeterministicIDs(t *testing.T) {
	tr, err := New(buildSampleRoot(90, 80), "t.nwk", 70)
	require.NoError(t, err)
	assert.Equal(t, 0, tr.Root.ID)
	// Pre-order: root=0, n1=1, a=2, b=3, n2=4, c=5, d=6.
	assert.Equal(t, 1, tr.Root.Children[0].ID)
	assert.Equal(t, 2, tr.Root.Children[0].Children[0].ID)
	assert.Equal(t, 3, tr.Root.Children[0].Children[1].ID)
	assert.Equal(t, 4, tr.Root.Children[1].ID)
}

func TestSameTreeSameID(t *testing.T) {
	t1, err := New(buildSampleRoot(90, 80), "t.nwk", 70)
	require.NoError(t, err)
	t2, err := New(buildSampleRoot(90, 80), "different-file.nwk", 70)
	require.NoError(t, err)
	assert.Equal(t, t1.ID, t2.ID, "tree id must depend only on topology/branch data, not source_name")
}

func TestDifferentSupportDifferentID(t *testing.T) {
	t1, err := New(buildSampleRoot(90, 80), "t.nwk", 0)
	require.NoError(t, err)
	t2, err := New(buildSampleRoot(90, 50), "t.nwk", 0)
	require.NoError(t, err)
	assert.NotEqual(t, t1.ID, t2.ID)
}

func TestSanitizationCollapsesLowSupportNode(t *testing.T) {
	tr, err := New(buildSampleRoot(90, 80), "t.nwk", 85)
	require.NoError(t, err)
	// n2 (support 80 < 85) collapses; c,d are reparented onto root.
	require.Len(t, tr.Root.Children, 3)
	var names []string
	for _, c := range tr.Root.Children {
		if c.Kind == Leaf {
			names = append(names, c.Name)
		}
	}
	assert.ElementsMatch(t, []string{"c", "d"}, names)
}

func TestSanitizationPreservesTotalPathLength(t *testing.T) {
	root := buildSampleRoot(90, 80)
	// c's original path to root: 0.1 (c->n2) + 0.2 (n2->root) = 0.3
	tr, err := New(root, "t.nwk", 85)
	require.NoError(t, err)
	var cNode *Node
	for _, n := range Leaves(tr.Root) {
		if n.Name == "c" {
			cNode = n
		}
	}
	require.NotNil(t, cNode)
	assert.InDelta(t, 0.3, cNode.Length, 1e-9)
}

func TestSanitizationNeverRemovesRoot(t *testing.T) {
	// Root has no support field at all; sanitizing with a very high
	// threshold must not touch it.
	tr, err := New(buildSampleRoot(90, 80), "t.nwk", 1000)
	require.NoError(t, err)
	assert.Equal(t, Root, tr.Root.Kind)
}

func TestValidateRejectsDuplicateLeafNames(t *testing.T) {
	root := buildSampleRoot(90, 80)
	root.Children[1].Children[0].Name = "a" // duplicate of the first "a" leaf
	_, err := New(root, "t.nwk", 0)
	assert.Error(t, err)
}

func TestValidateRejectsNegativeLength(t *testing.T) {
	root := buildSampleRoot(90, 80)
	root.Children[0].Length = -1
	_, err := New(root, "t.nwk", 0)
	assert.Error(t, err)
}

func TestValidateRejectsOutOfRangeSupport(t *testing.T) {
	root := buildSampleRoot(101, 80)
	_, err := New(root, "t.nwk", 0)
	assert.Error(t, err)
}

func TestAncestorsIncludesRoot(t *testing.T) {
	tr, err := New(buildSampleRoot(90, 80), "t.nwk", 0)
	require.NoError(t, err)
	byID := ByID(tr.Root)
	parentOf := ParentIndex(tr.Root)
	var a *Node
	for _, n := range Leaves(tr.Root) {
		if n.Name == "a" {
			a = n
		}
	}
	require.NotNil(t, a)
	anc := Ancestors(a, parentOf, byID)
	ids := make([]int, len(anc))
	for i, n := range anc {
		ids[i] = n.ID
	}
	assert.Equal(t, []int{a.ID, tr.Root.Children[0].ID, tr.Root.ID}, ids)
}
