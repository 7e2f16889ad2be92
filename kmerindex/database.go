package kmerindex

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"unsafe"

	"github.com/google/uuid"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/klauspost/compress/zstd"

	"github.com/LepistaBioinformatics/classeq2/phylotree"
)

// Database is the immutable, read-only artifact produced by Build: enough
// state to place any sequence without reference to the original FASTA.
type Database struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	MinBranchSupport float64         `json:"minBranchSupport"`
	InMemorySize     int64           `json:"inMemorySize"`
	K                int             `json:"k"`
	M                int             `json:"m"`
	Root             *phylotree.Node `json:"root"`
	KmersMap         *KmersMap       `json:"kmersMap"`
}

// estimateMemoryFootprint approximates the in-memory size of the kmers map:
// a fixed overhead per minimizer bucket plus, per k-mer entry, the same fixed
// overhead, a slice header, and its backing ints. It's a reportable
// estimate, not an exact accounting.
func (db *Database) estimateMemoryFootprint() int64 {
	const (
		mapBucketOverhead = 48 // rough per-entry overhead of a Go map bucket
		sliceHeaderSize   = int64(unsafe.Sizeof([]int{}))
		intSize           = int64(unsafe.Sizeof(int(0)))
	)
	var total int64
	for _, bucket := range db.KmersMap.Buckets {
		total += mapBucketOverhead
		for _, ids := range bucket {
			total += mapBucketOverhead + sliceHeaderSize + intSize*int64(len(ids))
		}
	}
	return total
}

// Stats is the summary the describe-db CLI subcommand prints: it is
// computed from a Database already resident in memory. DescribeBinary fills
// a partial Stats from the binary container without parsing kmersMap.
type Stats struct {
	K                 int     `json:"k" yaml:"k"`
	M                 int     `json:"m" yaml:"m"`
	NodeCount         int     `json:"nodeCount" yaml:"nodeCount"`
	KmerCount         int     `json:"kmerCount" yaml:"kmerCount"`
	MinimizerCount    int     `json:"minimizerCount" yaml:"minimizerCount"`
	LargestBucket     int     `json:"largestBucket" yaml:"largestBucket"`
	SmallestBucket    int     `json:"smallestBucket" yaml:"smallestBucket"`
	AverageBucketSize float64 `json:"averageBucketSize" yaml:"averageBucketSize"`
	InMemorySize      int64   `json:"inMemorySize" yaml:"inMemorySize"`
}

// Describe computes summary statistics over a fully loaded Database.
func (db *Database) Describe() Stats {
	sizes := db.KmersMap.BucketSizes()
	s := Stats{
		K:              db.K,
		M:              db.M,
		NodeCount:      len(phylotree.ByID(db.Root)),
		KmerCount:      db.KmersMap.KmerCount(),
		MinimizerCount: db.KmersMap.MinimizerCount(),
		InMemorySize:   db.InMemorySize,
	}
	if len(sizes) == 0 {
		return s
	}
	s.LargestBucket, s.SmallestBucket = sizes[0], sizes[0]
	var sum int
	for _, n := range sizes {
		if n > s.LargestBucket {
			s.LargestBucket = n
		}
		if n < s.SmallestBucket {
			s.SmallestBucket = n
		}
		sum += n
	}
	s.AverageBucketSize = float64(sum) / float64(len(sizes))
	return s
}

// headerOnly holds the scalar top-level fields that precede "root" and
// "kmersMap" in the JSON payload. The binary container is a single zstd
// frame, so reading these still decompresses the whole payload, but
// avoids parsing the (potentially much larger) kmersMap.
type headerOnly struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	MinBranchSupport float64   `json:"minBranchSupport"`
	InMemorySize     int64     `json:"inMemorySize"`
	K                int       `json:"k"`
	M                int       `json:"m"`
}

// EncodeText renders db as the canonical, human-readable JSON form: fixed
// top-level key order (id, name, minBranchSupport, inMemorySize, k, m,
// root, kmersMap) and ascending map-key order throughout.
func EncodeText(db *Database) ([]byte, error) {
	return json.Marshal(db)
}

// DecodeText parses the text form produced by EncodeText.
func DecodeText(data []byte) (*Database, error) {
	var db Database
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, errors.E(err, "kmerindex: malformed database text")
	}
	return &db, nil
}

// EncodeBinary wraps the canonical text form in a zstd compression
// envelope — the ".cls" on-disk format.
func EncodeBinary(db *Database) ([]byte, error) {
	text, err := EncodeText(db)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, errors.E(err, "kmerindex: zstd writer init")
	}
	defer enc.Close()
	return enc.EncodeAll(text, nil), nil
}

// DecodeBinary reverses EncodeBinary.
func DecodeBinary(data []byte) (*Database, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.E(err, "kmerindex: zstd reader init")
	}
	defer dec.Close()
	text, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.E(err, "kmerindex: corrupt or truncated database (zstd)")
	}
	return DecodeText(text)
}

// DescribeBinary reads only the small fixed fields that precede root and
// kmersMap in the text form, without materializing the full occurrence-list
// map, by decompressing the whole envelope (zstd has no random-access
// framing here) but parsing just the headerOnly prefix fields via a
// streaming json.Decoder that stops once "root" or "kmersMap" begins.
func DescribeBinary(data []byte) (Stats, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return Stats{}, errors.E(err, "kmerindex: zstd reader init")
	}
	defer dec.Close()
	text, err := dec.DecodeAll(data, nil)
	if err != nil {
		return Stats{}, errors.E(err, "kmerindex: corrupt or truncated database (zstd)")
	}
	var h headerOnly
	jd := json.NewDecoder(bytes.NewReader(text))
	if err := decodeHeaderPrefix(jd, &h); err != nil {
		return Stats{}, errors.E(err, "kmerindex: malformed database header")
	}
	// Only K, M and InMemorySize are filled in. NodeCount and the
	// kmer/minimizer/bucket stats are left zero, since the root and
	// kmersMap are not parsed — callers that need them call Describe on a
	// fully loaded Database instead.
	return Stats{
		K:            h.K,
		M:            h.M,
		InMemorySize: h.InMemorySize,
	}, nil
}

// decodeHeaderPrefix reads top-level JSON fields up to (but not including)
// the first "root" or "kmersMap" key, filling in any of headerOnly's fields
// it encounters.
func decodeHeaderPrefix(jd *json.Decoder, h *headerOnly) error {
	// The top-level value is an object; consume its opening brace.
	tok, err := jd.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.E("kmerindex: expected a JSON object")
	}
	for jd.More() {
		keyTok, err := jd.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		if key == "kmersMap" || key == "root" {
			// Stop early: these are the expensive-to-parse fields.
			return nil
		}
		switch key {
		case "id":
			var v uuid.UUID
			if err := jd.Decode(&v); err != nil {
				return err
			}
			h.ID = v
		case "name":
			if err := jd.Decode(&h.Name); err != nil {
				return err
			}
		case "minBranchSupport":
			if err := jd.Decode(&h.MinBranchSupport); err != nil {
				return err
			}
		case "inMemorySize":
			if err := jd.Decode(&h.InMemorySize); err != nil {
				return err
			}
		case "k":
			if err := jd.Decode(&h.K); err != nil {
				return err
			}
		case "m":
			if err := jd.Decode(&h.M); err != nil {
				return err
			}
		default:
			var skip json.RawMessage
			if err := jd.Decode(&skip); err != nil {
				return err
			}
		}
	}
	return nil
}

// Save writes db's binary form to path, opening it through
// github.com/grailbio/base/file so the destination can later be a local
// path or any file.Provider-backed URL without changing callers (matching
// how cmd/bio-fusion/io.go opens its recordio output).
func Save(ctx context.Context, path string, db *Database) (err error) {
	data, err := EncodeBinary(db)
	if err != nil {
		return err
	}
	f, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "kmerindex: create", path)
	}
	defer func() {
		if cerr := f.Close(ctx); cerr != nil && err == nil {
			err = errors.E(cerr, "kmerindex: close", path)
		}
	}()
	_, err = f.Writer(ctx).Write(data)
	if err != nil {
		err = errors.E(err, "kmerindex: write", path)
	}
	return err
}

// Load reads and decodes a database previously written by Save.
func Load(ctx context.Context, path string) (*Database, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "kmerindex: open", path)
	}
	defer f.Close(ctx)
	data, err := io.ReadAll(f.Reader(ctx))
	if err != nil {
		return nil, errors.E(err, "kmerindex: read", path)
	}
	return DecodeBinary(data)
}
