package kmerindex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LepistaBioinformatics/classeq2/phylotree"
)

// sampleRoot builds ((a,b)n1:90,(c,d)n2:80)root.
func sampleRoot() *phylotree.Node {
	a := &phylotree.Node{Kind: phylotree.Leaf, Name: "a", Length: 0.1}
	b := &phylotree.Node{Kind: phylotree.Leaf, Name: "b", Length: 0.1}
	n1 := &phylotree.Node{Kind: phylotree.Internal, Support: 90, HasSupport: true, Length: 0.2, Children: []*phylotree.Node{a, b}}
	c := &phylotree.Node{Kind: phylotree.Leaf, Name: "c", Length: 0.1}
	d := &phylotree.Node{Kind: phylotree.Leaf, Name: "d", Length: 0.1}
	n2 := &phylotree.Node{Kind: phylotree.Internal, Support: 80, HasSupport: true, Length: 0.2, Children: []*phylotree.Node{c, d}}
	return &phylotree.Node{Kind: phylotree.Root, Children: []*phylotree.Node{n1, n2}}
}

func sampleRecords() []Record {
	return []Record{
		{LeafName: "a", Sequence: strings.Repeat("A", 60)},
		{LeafName: "b", Sequence: strings.Repeat("A", 56) + "ACGT"},
		{LeafName: "c", Sequence: strings.Repeat("G", 60)},
		{LeafName: "d", Sequence: strings.Repeat("G", 56) + "TCAT"},
	}
}

func TestBuildRejectsMissingLeafSequence(t *testing.T) {
	recs := sampleRecords()[:3] // drop "d"
	_, err := Build(sampleRoot(), recs, Options{K: 8, M: 3, SourceName: "t"})
	assert.Error(t, err)
}

func TestBuildRejectsUnmatchedFastaRecord(t *testing.T) {
	recs := append(sampleRecords(), Record{LeafName: "e", Sequence: "ACGTACGT"})
	_, err := Build(sampleRoot(), recs, Options{K: 8, M: 3, SourceName: "t"})
	assert.Error(t, err)
}

func TestBuildRejectsMGEK(t *testing.T) {
	_, err := Build(sampleRoot(), sampleRecords(), Options{K: 8, M: 8, SourceName: "t"})
	assert.Error(t, err)
}

func TestBuildAncestorClosure(t *testing.T) {
	db, err := Build(sampleRoot(), sampleRecords(), Options{K: 8, M: 3, SourceName: "t"})
	require.NoError(t, err)

	// Every k-mer of "a" must be recorded at leaf a's id, its parent n1's
	// id, and root's id.
	aLeaf := findLeaf(db.Root, "a")
	require.NotNil(t, aLeaf)
	n1 := parentOfLeaf(db.Root, "a")
	require.NotNil(t, n1)

	seen := 0
	for mz, bucket := range db.KmersMap.Buckets {
		for kh := range bucket {
			ids, _ := db.KmersMap.Lookup(mz, kh)
			hasLeaf, hasParent, hasRoot := false, false, false
			for _, id := range ids {
				switch id {
				case aLeaf.ID:
					hasLeaf = true
				case n1.ID:
					hasParent = true
				case db.Root.ID:
					hasRoot = true
				}
			}
			if hasLeaf {
				assert.True(t, hasParent, "ancestor closure: leaf id present implies parent id present")
				assert.True(t, hasRoot, "ancestor closure: leaf id present implies root id present")
				seen++
			}
		}
	}
	assert.Greater(t, seen, 0)
}

func TestBuildOccurrenceListsAreSortedAndDeduplicated(t *testing.T) {
	db, err := Build(sampleRoot(), sampleRecords(), Options{K: 8, M: 3, SourceName: "t"})
	require.NoError(t, err)
	for _, bucket := range db.KmersMap.Buckets {
		for _, ids := range bucket {
			for i := 1; i < len(ids); i++ {
				assert.Less(t, ids[i-1], ids[i])
			}
		}
	}
}

func TestEncodeDecodeTextRoundTrip(t *testing.T) {
	db, err := Build(sampleRoot(), sampleRecords(), Options{K: 8, M: 3, SourceName: "t"})
	require.NoError(t, err)

	data, err := EncodeText(db)
	require.NoError(t, err)
	got, err := DecodeText(data)
	require.NoError(t, err)

	data2, err := EncodeText(got)
	require.NoError(t, err)
	assert.Equal(t, data, data2, "re-encoding a decoded database must be byte-identical")
}

func TestEncodeDecodeBinaryRoundTrip(t *testing.T) {
	db, err := Build(sampleRoot(), sampleRecords(), Options{K: 8, M: 3, SourceName: "t"})
	require.NoError(t, err)

	bin, err := EncodeBinary(db)
	require.NoError(t, err)
	got, err := DecodeBinary(bin)
	require.NoError(t, err)

	text1, _ := EncodeText(db)
	text2, _ := EncodeText(got)
	assert.Equal(t, text1, text2)
}

func TestBuildIsDeterministicAcrossRuns(t *testing.T) {
	db1, err := Build(sampleRoot(), sampleRecords(), Options{K: 8, M: 3, SourceName: "t"})
	require.NoError(t, err)
	db2, err := Build(sampleRoot(), sampleRecords(), Options{K: 8, M: 3, SourceName: "t"})
	require.NoError(t, err)

	t1, _ := EncodeText(db1)
	t2, _ := EncodeText(db2)
	assert.Equal(t, t1, t2)
}

func TestDescribeReportsBucketStats(t *testing.T) {
	db, err := Build(sampleRoot(), sampleRecords(), Options{K: 8, M: 3, SourceName: "t"})
	require.NoError(t, err)
	stats := db.Describe()
	assert.Equal(t, 8, stats.K)
	assert.Equal(t, 3, stats.M)
	assert.Greater(t, stats.KmerCount, 0)
	assert.Greater(t, stats.MinimizerCount, 0)
	assert.GreaterOrEqual(t, stats.LargestBucket, stats.SmallestBucket)
}

func findLeaf(n *phylotree.Node, name string) *phylotree.Node {
	for _, l := range phylotree.Leaves(n) {
		if l.Name == name {
			return l
		}
	}
	return nil
}

func parentOfLeaf(root *phylotree.Node, name string) *phylotree.Node {
	parentOf := phylotree.ParentIndex(root)
	byID := phylotree.ByID(root)
	leaf := findLeaf(root, name)
	if leaf == nil {
		return nil
	}
	return byID[parentOf[leaf.ID]]
}
