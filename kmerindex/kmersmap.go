// Package kmerindex builds and serializes the k-mer database: the
// minimizer-bucketed occurrence-list map and the container that pairs it
// with a sanitized phylotree.Tree.
package kmerindex

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
)

// KmersMap is the two-level minimizer -> kmer-hash -> occurrence-list map.
// Occurrence lists are ascending, deduplicated node ids.
type KmersMap struct {
	KSize   int
	MSize   int
	Buckets map[uint64]map[uint64][]int
}

// NewKmersMap returns an empty map for the given k-mer and minimizer window
// sizes.
func NewKmersMap(kSize, mSize int) *KmersMap {
	return &KmersMap{KSize: kSize, MSize: mSize, Buckets: make(map[uint64]map[uint64][]int)}
}

// Put records occurrenceList (expected pre-sorted ascending, deduplicated)
// for kmerHash under minimizer.
func (m *KmersMap) Put(minimizer, kmerHash uint64, occurrenceList []int) {
	b, ok := m.Buckets[minimizer]
	if !ok {
		b = make(map[uint64][]int)
		m.Buckets[minimizer] = b
	}
	b[kmerHash] = occurrenceList
}

// Lookup returns the occurrence list for kmerHash, if its bucket
// (minimizer) exists and contains it.
func (m *KmersMap) Lookup(minimizer, kmerHash uint64) ([]int, bool) {
	b, ok := m.Buckets[minimizer]
	if !ok {
		return nil, false
	}
	ids, ok := b[kmerHash]
	return ids, ok
}

// KmerCount returns the total number of distinct k-mers across all buckets.
func (m *KmersMap) KmerCount() int {
	n := 0
	for _, b := range m.Buckets {
		n += len(b)
	}
	return n
}

// MinimizerCount returns the number of populated minimizer buckets.
func (m *KmersMap) MinimizerCount() int {
	return len(m.Buckets)
}

// BucketSizes returns the size (distinct k-mer count) of every minimizer
// bucket, unordered.
func (m *KmersMap) BucketSizes() []int {
	out := make([]int, 0, len(m.Buckets))
	for _, b := range m.Buckets {
		out = append(out, len(b))
	}
	return out
}

func sortedKeys(m map[uint64]map[uint64][]int) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedBucketKeys(m map[uint64][]int) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// MarshalJSON implements json.Marshaler. Keys are written in ascending
// numeric order — not the alphabetical order encoding/json would apply to
// a map[string]X — so that two builds of the same database serialize to
// byte-identical output.
func (m KmersMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"kSize":`)
	buf.WriteString(strconv.Itoa(m.KSize))
	buf.WriteString(`,"mSize":`)
	buf.WriteString(strconv.Itoa(m.MSize))
	buf.WriteString(`,"map":{`)
	for i, mz := range sortedKeys(m.Buckets) {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strconv.FormatUint(mz, 10))
		buf.WriteString(`":{`)
		bucket := m.Buckets[mz]
		for j, kh := range sortedBucketKeys(bucket) {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('"')
			buf.WriteString(strconv.FormatUint(kh, 10))
			buf.WriteString(`":[`)
			for k, id := range bucket[kh] {
				if k > 0 {
					buf.WriteByte(',')
				}
				buf.WriteString(strconv.Itoa(id))
			}
			buf.WriteString(`]`)
		}
		buf.WriteString(`}`)
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}

type kmersMapWire struct {
	KSize int                         `json:"kSize"`
	MSize int                         `json:"mSize"`
	Map   map[string]map[string][]int `json:"map"`
}

// UnmarshalJSON implements json.Unmarshaler. Key order on the wire doesn't
// matter here — MarshalJSON is what guarantees re-encoding determinism.
func (m *KmersMap) UnmarshalJSON(data []byte) error {
	var w kmersMapWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := NewKmersMap(w.KSize, w.MSize)
	for mzStr, bucket := range w.Map {
		mz, err := strconv.ParseUint(mzStr, 10, 64)
		if err != nil {
			return err
		}
		for khStr, ids := range bucket {
			kh, err := strconv.ParseUint(khStr, 10, 64)
			if err != nil {
				return err
			}
			out.Put(mz, kh, ids)
		}
	}
	*m = *out
	return nil
}
