package placer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LepistaBioinformatics/classeq2/dna"
	"github.com/LepistaBioinformatics/classeq2/kmerindex"
	"github.com/LepistaBioinformatics/classeq2/phylotree"
)

// buildTestDB builds ((a,b)n1:90,(c,d)n2:80)root with k=8, m=3.
func buildTestDB(t *testing.T, sup1, sup2, minSupport float64) *kmerindex.Database {
	t.Helper()
	a := &phylotree.Node{Kind: phylotree.Leaf, Name: "a", Length: 0.1}
	b := &phylotree.Node{Kind: phylotree.Leaf, Name: "b", Length: 0.1}
	n1 := &phylotree.Node{Kind: phylotree.Internal, Support: sup1, HasSupport: true, Length: 0.2, Children: []*phylotree.Node{a, b}}
	c := &phylotree.Node{Kind: phylotree.Leaf, Name: "c", Length: 0.1}
	d := &phylotree.Node{Kind: phylotree.Leaf, Name: "d", Length: 0.1}
	n2 := &phylotree.Node{Kind: phylotree.Internal, Support: sup2, HasSupport: true, Length: 0.2, Children: []*phylotree.Node{c, d}}
	root := &phylotree.Node{Kind: phylotree.Root, Children: []*phylotree.Node{n1, n2}}

	aSeq := strings.Repeat("A", 60)
	bSeq := strings.Repeat("A", 56) + "ACGT"
	cSeq := strings.Repeat("G", 60)
	dSeq := strings.Repeat("G", 56) + "TCAT"

	db, err := kmerindex.Build(root, []kmerindex.Record{
		{LeafName: "a", Sequence: aSeq},
		{LeafName: "b", Sequence: bSeq},
		{LeafName: "c", Sequence: cSeq},
		{LeafName: "d", Sequence: dSeq},
	}, kmerindex.Options{K: 8, M: 3, MinSupportThreshold: minSupport, SourceName: "t"})
	require.NoError(t, err)
	return db
}

func leafByName(db *kmerindex.Database, name string) *phylotree.Node {
	for _, l := range phylotree.Leaves(db.Root) {
		if l.Name == name {
			return l
		}
	}
	return nil
}

func TestPlaceIdentityFoundForExactLeafSequence(t *testing.T) {
	db := buildTestDB(t, 90, 80, 70)
	result, err := Place(context.Background(), db, strings.Repeat("A", 60), DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, IdentityFound, result.Kind)
	assert.Equal(t, leafByName(db, "a").ID, result.NodeID)
}

func TestPlaceIdentityFoundForSecondLeaf(t *testing.T) {
	db := buildTestDB(t, 90, 80, 70)
	result, err := Place(context.Background(), db, strings.Repeat("A", 56)+"ACGT", DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, IdentityFound, result.Kind)
	assert.Equal(t, leafByName(db, "b").ID, result.NodeID)
}

func TestPlaceUnclassifiableOnAllAmbiguousQuery(t *testing.T) {
	db := buildTestDB(t, 90, 80, 70)
	result, err := Place(context.Background(), db, strings.Repeat("N", 60), DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, Unclassifiable, result.Kind)
	assert.Equal(t, NoOverlap, result.UnclassifiableReason)
}

func TestPlaceUnclassifiableOnEmptyQuery(t *testing.T) {
	db := buildTestDB(t, 90, 80, 70)
	result, err := Place(context.Background(), db, "", DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, Unclassifiable, result.Kind)
	assert.Equal(t, EmptyQuery, result.UnclassifiableReason)
}

func TestPlaceReverseComplementInvariance(t *testing.T) {
	db := buildTestDB(t, 90, 80, 70)
	fwd := strings.Repeat("A", 56) + "ACGT"
	rev := dna.ReverseComplement(fwd)
	r1, err := Place(context.Background(), db, fwd, DefaultConfig())
	require.NoError(t, err)
	r2, err := Place(context.Background(), db, rev, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestPlaceChimeraIsInconclusiveOrMaxResolution(t *testing.T) {
	db := buildTestDB(t, 90, 80, 70)
	half := 30
	chimera := strings.Repeat("A", half) + strings.Repeat("G", half)
	result, err := Place(context.Background(), db, chimera, DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, []Kind{Inconclusive, MaxResolutionReached}, result.Kind)
}

func TestPlaceAfterSanitizationChangesEnclosingNode(t *testing.T) {
	// sup=95 collapses both n1 (support 90) and n2 (support 80); a, b, c, d
	// reparent onto root.
	db := buildTestDB(t, 90, 80, 95)
	result, err := Place(context.Background(), db, strings.Repeat("G", 60), DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, IdentityFound, result.Kind)
	assert.Equal(t, leafByName(db, "c").ID, result.NodeID)
	// root now has 4 children: a, b, c, d.
	assert.Len(t, db.Root.Children, 4)
}

func TestPlaceAllPreservesJobOrderInResultSlots(t *testing.T) {
	db := buildTestDB(t, 90, 80, 70)
	jobs := []Job{
		{ID: "j0", Sequence: strings.Repeat("A", 60)},
		{ID: "j1", Sequence: strings.Repeat("G", 60)},
		{ID: "j2", Sequence: strings.Repeat("N", 60)},
	}
	outcomes := PlaceAll(context.Background(), db, jobs, DefaultConfig())
	require.Len(t, outcomes, 3)
	assert.Equal(t, "j0", outcomes[0].JobID)
	assert.Equal(t, "j1", outcomes[1].JobID)
	assert.Equal(t, "j2", outcomes[2].JobID)
	assert.Equal(t, IdentityFound, outcomes[0].Result.Kind)
	assert.Equal(t, IdentityFound, outcomes[1].Result.Kind)
	assert.Equal(t, Unclassifiable, outcomes[2].Result.Kind)
}

func TestPlaceBelowMinMatchesWhenConfigRequiresMoreThanOneDistinctKmer(t *testing.T) {
	db := buildTestDB(t, 90, 80, 70)
	// strings.Repeat("A", 60) canonicalizes to a single distinct k-mer (every
	// window is identical), so raising MinMatches above 1 must reject it
	// even though the database has an exact match.
	cfg := DefaultConfig()
	cfg.MinMatches = 3
	result, err := Place(context.Background(), db, strings.Repeat("A", 60), cfg)
	require.NoError(t, err)
	assert.Equal(t, Unclassifiable, result.Kind)
	assert.Equal(t, BelowMinMatches, result.UnclassifiableReason)
}

func TestPlaceAllRespectsCancellation(t *testing.T) {
	db := buildTestDB(t, 90, 80, 70)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	jobs := []Job{{ID: "j0", Sequence: strings.Repeat("A", 60)}}
	outcomes := PlaceAll(ctx, db, jobs, DefaultConfig())
	require.Len(t, outcomes, 1)
	assert.Error(t, outcomes[0].Err)
}
