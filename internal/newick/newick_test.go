package newick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LepistaBioinformatics/classeq2/phylotree"
)

func TestParseSimpleTree(t *testing.T) {
	root, err := Parse("((a:0.1,b:0.1)90:0.2,(c:0.1,d:0.1)80:0.2);")
	require.NoError(t, err)
	require.Equal(t, phylotree.Root, root.Kind)
	require.Len(t, root.Children, 2)

	n1 := root.Children[0]
	assert.Equal(t, phylotree.Internal, n1.Kind)
	assert.True(t, n1.HasSupport)
	assert.Equal(t, 90.0, n1.Support)
	require.Len(t, n1.Children, 2)
	assert.Equal(t, "a", n1.Children[0].Name)
	assert.Equal(t, "b", n1.Children[1].Name)
}

func TestParseRejectsTrailingGarbage(t *testing.T) {
	_, err := Parse("(a:0.1,b:0.1)extra-garbage-here")
	assert.Error(t, err)
}

func TestParseSingleLeafIsInvalidAsRoot(t *testing.T) {
	root, err := Parse("a:0.1;")
	require.NoError(t, err)
	assert.Equal(t, phylotree.Root, root.Kind)
	assert.Equal(t, 0, len(root.Children))
	phylotree.AssignIDs(root)
	assert.Error(t, phylotree.Validate(root))
}

func TestParseAssignIDsThenValidate(t *testing.T) {
	root, err := Parse("((a:0.1,b:0.1)90:0.2,(c:0.1,d:0.1)80:0.2);")
	require.NoError(t, err)
	phylotree.AssignIDs(root)
	require.NoError(t, phylotree.Validate(root))
}
