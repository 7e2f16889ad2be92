// Package minimizer reduces a k-mer to a coarse bucket key: the hash of its
// smallest-hash m-mer substring, m < k.
package minimizer

import (
	"github.com/LepistaBioinformatics/classeq2/dna"
)

// Of returns the minimizer of k (a k-mer with window length kLen, m < kLen):
// the 64-bit hash of the minimum-hash m-mer substring of k, breaking ties by
// lowest window offset. k is expected to already be dna's canonical
// representative, so the minimizer is the same regardless of which strand
// produced it.
func Of(k dna.Kmer, kLen, m int) uint64 {
	if m <= 0 || m >= kLen {
		panic("minimizer: require 1 <= m < k")
	}
	var (
		best    uint64
		haveAny bool
	)
	for i := 0; i+m <= kLen; i++ {
		sub := k[i : i+m]
		h := dna.Hash(sub)
		if !haveAny || h < best {
			best = h
			haveAny = true
		}
	}
	return best
}
