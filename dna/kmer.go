package dna

import (
	farm "github.com/dgryski/go-farm"
)

// Kmer is the canonical byte form of a length-k window: whichever of the
// forward k-mer and its reverse complement is lexicographically smaller.
// Hashing the base string directly, rather than packing it into a
// fixed-width integer, keeps k unbounded by a machine word size instead of
// capped at 32 bases.
type Kmer string

// Hash returns the deterministic 64-bit hash of a Kmer, seed 0, identical at
// build and query time. It's also used, unmodified, to hash minimizer m-mer
// substrings — grounded on grailbio/bio's fusion/kmer_index.go hashKmer,
// which hashes its k-mer type with the same farm hash family.
func Hash(k Kmer) uint64 {
	return farm.Hash64WithSeed([]byte(k), 0)
}

// canonicalKmer returns the canonical Kmer of seq[pos:pos+k], or false if
// that window contains a non-ACGT byte.
func canonicalKmer(seq string, pos, k int) (Kmer, bool) {
	fwd := seq[pos : pos+k]
	for i := 0; i < k; i++ {
		if !IsValidBase(fwd[i]) {
			return "", false
		}
	}
	rev := ReverseComplement(fwd)
	if rev < fwd {
		return Kmer(rev), true
	}
	return Kmer(fwd), true
}

// firstInvalidBase returns the index of the first non-ACGT byte in
// seq[start:start+k]; the caller guarantees one exists.
func firstInvalidBase(seq string, start, k int) int {
	for i := start; i < start+k; i++ {
		if !IsValidBase(seq[i]) {
			return i
		}
	}
	return start + k - 1
}

// Enumerator is a lazy, non-restartable finite sequence of canonical k-mer
// hashes over one canonicalized sequence — callers must collect into a set
// for membership tests instead of rewinding and rescanning.
type Enumerator struct {
	k      int
	seq    string
	pos    int
	cur    Kmer
	curOK  bool
	curPos int
}

// NewEnumerator returns an Enumerator over seq (already passed through
// Canonical) with window length k. k must be >= 1.
func NewEnumerator(seq string, k int) *Enumerator {
	return &Enumerator{k: k, seq: seq}
}

// Scan advances to the next valid (all-ACGT) window and reports whether one
// was found. Windows containing Sentinel are skipped entirely, so no k-mer
// ever spans an ambiguous base.
func (e *Enumerator) Scan() bool {
	for e.pos+e.k <= len(e.seq) {
		kmer, ok := canonicalKmer(e.seq, e.pos, e.k)
		if !ok {
			e.pos = firstInvalidBase(e.seq, e.pos, e.k) + 1
			continue
		}
		e.cur = kmer
		e.curPos = e.pos
		e.curOK = true
		e.pos++
		return true
	}
	e.curOK = false
	return false
}

// Kmer returns the canonical Kmer of the current window. Valid only
// immediately after a Scan that returned true.
func (e *Enumerator) Kmer() Kmer { return e.cur }

// Hash returns Hash(e.Kmer()).
func (e *Enumerator) Hash() uint64 { return Hash(e.cur) }

// Pos returns the 0-based start offset of the current window within the
// canonicalized sequence.
func (e *Enumerator) Pos() int { return e.curPos }

// HashSet collects the deduplicated set of canonical k-mer hashes of seq
// (already canonicalized) for window length k.
func HashSet(seq string, k int) map[uint64]struct{} {
	out := make(map[uint64]struct{})
	e := NewEnumerator(seq, k)
	for e.Scan() {
		out[e.Hash()] = struct{}{}
	}
	return out
}
