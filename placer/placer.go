package placer

import (
	"context"
	"sort"

	"github.com/LepistaBioinformatics/classeq2/dna"
	"github.com/LepistaBioinformatics/classeq2/kmerindex"
	"github.com/LepistaBioinformatics/classeq2/minimizer"
	"github.com/LepistaBioinformatics/classeq2/phylotree"
)

// Config tunes one placement call.
type Config struct {
	// MinMatches is the minimum number of distinct query k-mers that must
	// overlap the database before placement is attempted at all.
	MinMatches int
	// MaxIterations bounds the number of descent steps, as a safety valve
	// against a malformed or pathologically deep tree.
	MaxIterations int
	// UseOneVsRestExclusion discounts k-mers shared between a child and its
	// siblings before ranking children at each descent step. Default on.
	UseOneVsRestExclusion bool
}

// DefaultConfig returns classeq2's chosen defaults for MinMatches and
// MaxIterations. MinMatches=1 requires only that the query actually overlap
// the database at all: a low-diversity reference sequence (a homopolymer
// run, for instance) can canonicalize down to a single distinct k-mer, and
// that single match must still be enough to place it. Callers that want to
// demand more redundancy before committing to a placement can raise
// MinMatches explicitly. MaxIterations is generously larger than any
// realistic tree depth so it only ever fires on a malformed tree.
func DefaultConfig() Config {
	return Config{
		MinMatches:            1,
		MaxIterations:         10000,
		UseOneVsRestExclusion: true,
	}
}

// Place runs the introspection loop for one query sequence against db.
//
// Preprocessing: query k-mers are canonicalized and deduplicated, then
// looked up through db's minimizer buckets. ctx is checked between descent
// iterations so a long-running placement can be cancelled cooperatively;
// on cancellation Place returns a non-nil error (ctx.Err()) and a zero
// Result — cancellation is an error condition, not one of the closed
// placement outcomes, and the caller must discard the in-flight result
// rather than act on it.
func Place(ctx context.Context, db *kmerindex.Database, querySequence string, cfg Config) (Result, error) {
	canon := dna.Canonical(querySequence)
	if len(canon) == 0 {
		return Result{Kind: Unclassifiable, UnclassifiableReason: EmptyQuery}, nil
	}

	kmerByHash := make(map[uint64]dna.Kmer)
	e := dna.NewEnumerator(canon, db.K)
	for e.Scan() {
		kmerByHash[e.Hash()] = e.Kmer()
	}

	// matched maps a query k-mer hash to the occurrence list the database
	// returned for it (only for hashes that actually hit a bucket).
	matched := make(map[uint64][]int, len(kmerByHash))
	for h, k := range kmerByHash {
		mz := minimizer.Of(k, db.K, db.M)
		if ids, ok := db.KmersMap.Lookup(mz, h); ok {
			matched[h] = ids
		}
	}

	if len(matched) == 0 {
		return Result{Kind: Unclassifiable, UnclassifiableReason: NoOverlap}, nil
	}
	if len(matched) < cfg.MinMatches {
		return Result{Kind: Unclassifiable, UnclassifiableReason: BelowMinMatches}, nil
	}

	byID := phylotree.ByID(db.Root)
	cursor := db.Root
	var lastOne, lastRest int
	for iterations := 0; ; iterations++ {
		if cursor.Kind == phylotree.Leaf {
			return Result{Kind: IdentityFound, NodeID: cursor.ID, OneLen: lastOne, RestLen: lastRest}, nil
		}
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}
		if iterations >= cfg.MaxIterations {
			return Result{Kind: MaxResolutionReached, NodeID: cursor.ID, StopReason: IterationCap, OneLen: lastOne, RestLen: lastRest}, nil
		}

		hits, shared := scoreChildren(cursor.Children, matched)
		rank := hits
		if cfg.UseOneVsRestExclusion {
			rank = make(map[int]int, len(hits))
			for _, c := range cursor.Children {
				rank[c.ID] = hits[c.ID] - shared[c.ID]
			}
		}

		winnerID, tied, maxVal := pickMax(cursor.Children, rank)
		if len(tied) > 1 {
			// Fallback: break the tie using raw hit counts (ignoring the
			// one-vs-rest exclusion) among only the tied children.
			hitWinner, hitTied, _ := pickMax(childrenByID(cursor.Children, tied), hits)
			if len(hitTied) > 1 {
				return Result{Kind: Inconclusive, TiedNodeIDs: tied}, nil
			}
			winnerID = hitWinner
		}

		lastOne = rank[winnerID]
		lastRest = 0
		for _, c := range cursor.Children {
			if c.ID != winnerID {
				lastRest += rank[c.ID]
			}
		}

		if maxVal <= 0 {
			return Result{Kind: MaxResolutionReached, NodeID: cursor.ID, StopReason: LCAAccepted, OneLen: lastOne, RestLen: lastRest}, nil
		}
		cursor = byID[winnerID]
	}
}

// scoreChildren computes, for each child of parent, hits(c): the number of
// distinct matched query k-mers whose occurrence list contains c.ID; and
// shared(c): the subset of those also shared with at least one sibling of
// c. High-arity parents (post-sanitization collapses can raise arity above
// 2) are handled the same way: "sibling" means any other child of the same
// parent.
func scoreChildren(children []*phylotree.Node, matched map[uint64][]int) (hits, shared map[int]int) {
	hits = make(map[int]int, len(children))
	shared = make(map[int]int, len(children))
	for _, ids := range matched {
		var hitIDs []int
		for _, c := range children {
			if containsID(ids, c.ID) {
				hitIDs = append(hitIDs, c.ID)
			}
		}
		for _, id := range hitIDs {
			hits[id]++
			if len(hitIDs) > 1 {
				shared[id]++
			}
		}
	}
	return hits, shared
}

func containsID(sortedIDs []int, id int) bool {
	i := sort.SearchInts(sortedIDs, id)
	return i < len(sortedIDs) && sortedIDs[i] == id
}

// childrenByID returns the subset of children whose ID is in ids.
func childrenByID(children []*phylotree.Node, ids []int) []*phylotree.Node {
	out := make([]*phylotree.Node, 0, len(ids))
	for _, c := range children {
		if containsIntSlice(ids, c.ID) {
			out = append(out, c)
		}
	}
	return out
}

func containsIntSlice(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// pickMax returns the id of the child with the largest rank, the set of
// node ids tied at that maximum (len==1 means a unique winner), and the
// maximum value itself.
func pickMax(children []*phylotree.Node, rank map[int]int) (winnerID int, tied []int, maxVal int) {
	first := true
	for _, c := range children {
		v := rank[c.ID]
		switch {
		case first || v > maxVal:
			maxVal = v
			tied = []int{c.ID}
			winnerID = c.ID
			first = false
		case v == maxVal:
			tied = append(tied, c.ID)
		}
	}
	return winnerID, tied, maxVal
}
