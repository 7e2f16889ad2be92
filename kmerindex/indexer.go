package kmerindex

import (
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/traverse"

	"github.com/LepistaBioinformatics/classeq2/dna"
	"github.com/LepistaBioinformatics/classeq2/minimizer"
	"github.com/LepistaBioinformatics/classeq2/phylotree"
)

// Record is one reference sequence: a leaf name and its raw nucleotide text.
type Record struct {
	LeafName string
	Sequence string
}

// Options configures Build.
type Options struct {
	// K is the k-mer length. Must be > 0. dna.Kmer hashes the canonical base
	// string directly rather than packing it into a machine word, so there
	// is no upper bound tied to a fixed bit width.
	K int
	// M is the minimizer window length. Must satisfy 1 <= M < K.
	M int
	// MinSupportThreshold is the sanitization cutoff applied to the tree
	// before indexing.
	MinSupportThreshold float64
	// SourceName is recorded on the Tree/Database as informational metadata.
	SourceName string
}

func (o Options) validate() error {
	if o.K <= 0 {
		return errors.E("kmerindex: k must be > 0")
	}
	if o.M <= 0 || o.M >= o.K {
		return errors.E("kmerindex: require 1 <= m < k")
	}
	return nil
}

// Build walks root bottom-up and produces a read-only Database: for every
// leaf it enumerates canonical k-mer hashes from its sequence, buckets each
// by minimizer, and records the leaf's id together with every ancestor id
// up to and including Root in that k-mer's occurrence list (ancestor
// closure).
//
// Leaves are enumerated in parallel via traverse.Each, each leaf building
// its own local map; aggregation into the shared KmersMap happens only
// after all leaves have finished, so it needs no locking.
func Build(root *phylotree.Node, records []Record, opts Options) (*Database, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	tree, err := phylotree.New(root, opts.SourceName, opts.MinSupportThreshold)
	if err != nil {
		return nil, err
	}

	leaves := phylotree.Leaves(tree.Root)
	seqByName := make(map[string]string, len(records))
	for _, r := range records {
		if _, dup := seqByName[r.LeafName]; dup {
			return nil, errors.E("kmerindex: duplicate FASTA record id " + r.LeafName)
		}
		seqByName[r.LeafName] = r.Sequence
	}
	leafNames := make(map[string]bool, len(leaves))
	for _, l := range leaves {
		leafNames[l.Name] = true
		if _, ok := seqByName[l.Name]; !ok {
			return nil, errors.E("kmerindex: missing reference sequence for leaf " + l.Name)
		}
	}
	for name := range seqByName {
		if !leafNames[name] {
			return nil, errors.E("kmerindex: FASTA record has no matching leaf: " + name)
		}
	}

	parentOf := phylotree.ParentIndex(tree.Root)
	byID := phylotree.ByID(tree.Root)

	type local map[uint64]map[uint64]map[int]struct{}
	results := make([]local, len(leaves))

	err = traverse.Each(len(leaves), func(i int) error {
		leaf := leaves[i]
		canon := dna.Canonical(seqByName[leaf.Name])
		ancestors := phylotree.Ancestors(leaf, parentOf, byID)
		l := make(local)
		e := dna.NewEnumerator(canon, opts.K)
		for e.Scan() {
			k := e.Kmer()
			h := dna.Hash(k)
			mz := minimizer.Of(k, opts.K, opts.M)
			bucket, ok := l[mz]
			if !ok {
				bucket = make(map[uint64]map[int]struct{})
				l[mz] = bucket
			}
			ids, ok := bucket[h]
			if !ok {
				ids = make(map[int]struct{}, len(ancestors))
				bucket[h] = ids
			}
			for _, anc := range ancestors {
				ids[anc.ID] = struct{}{}
			}
		}
		results[i] = l
		return nil
	})
	if err != nil {
		return nil, errors.E(err, "kmerindex: indexing failed")
	}

	merged := make(local)
	for _, l := range results {
		for mz, bucket := range l {
			mb, ok := merged[mz]
			if !ok {
				mb = make(map[uint64]map[int]struct{})
				merged[mz] = mb
			}
			for h, ids := range bucket {
				existing, ok := mb[h]
				if !ok {
					existing = make(map[int]struct{}, len(ids))
					mb[h] = existing
				}
				for id := range ids {
					existing[id] = struct{}{}
				}
			}
		}
	}

	kmersMap := NewKmersMap(opts.K, opts.M)
	for mz, bucket := range merged {
		for h, idSet := range bucket {
			ids := make([]int, 0, len(idSet))
			for id := range idSet {
				ids = append(ids, id)
			}
			sort.Ints(ids)
			kmersMap.Put(mz, h, ids)
		}
	}

	db := &Database{
		ID:               tree.ID,
		Name:             opts.SourceName,
		MinBranchSupport: opts.MinSupportThreshold,
		K:                opts.K,
		M:                opts.M,
		Root:             tree.Root,
		KmersMap:         kmersMap,
	}
	db.InMemorySize = db.estimateMemoryFootprint()
	return db, nil
}
