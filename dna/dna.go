// Package dna canonicalizes raw nucleotide text and enumerates the canonical
// k-mer hashes of a sequence.
//
// The encoding tables below mirror the approach grailbio/bio's fusion kmer
// scanner uses for its read-fragment kmerizer: a flat [256]uint8 lookup from
// ASCII byte to 2-bit base code, with a sentinel for anything that isn't
// A/C/G/T, so the hot loop avoids a switch per base.
package dna

import "strings"

// Sentinel is written in place of any byte that isn't A/C/G/T (after
// uppercasing). It is never itself a valid base, so a k-mer window that
// contains one is skipped by the enumerator — it "breaks" the window.
const Sentinel = 'N'

const invalidBase = uint8(255)

var (
	baseCode           [256]uint8
	complementBaseCode [256]uint8
	complementByte     [256]byte
)

func init() {
	for i := range baseCode {
		baseCode[i] = invalidBase
		complementBaseCode[i] = invalidBase
		complementByte[i] = Sentinel
	}
	set := func(ch byte, code, compCode uint8, compCh byte) {
		baseCode[ch] = code
		complementBaseCode[ch] = compCode
		complementByte[ch] = compCh
	}
	set('A', 0, 3, 'T')
	set('C', 1, 2, 'G')
	set('G', 2, 1, 'C')
	set('T', 3, 0, 'A')
}

// Canonical upper-cases raw, strips whitespace and line breaks, and replaces
// every non-ACGT symbol with Sentinel. A record with no valid bases at all
// still round-trips to a (possibly empty, all-sentinel) string — it simply
// contributes no k-mers downstream.
func Canonical(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch ch {
		case ' ', '\t', '\n', '\r':
			continue
		}
		if ch >= 'a' && ch <= 'z' {
			ch -= 'a' - 'A'
		}
		if baseCode[ch] == invalidBase {
			b.WriteByte(Sentinel)
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// ReverseComplement returns the reverse complement of a canonical (upper
// case A/C/G/T/sentinel) sequence.
func ReverseComplement(s string) string {
	n := len(s)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[n-1-i] = complementByte[s[i]]
	}
	return string(out)
}

// IsValidBase reports whether ch is one of A, C, G, T (upper case only —
// callers are expected to have run Canonical first).
func IsValidBase(ch byte) bool {
	return baseCode[ch] != invalidBase
}
