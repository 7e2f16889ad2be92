// Package fasta reads reference and query sequences for classeq2.
//
// This is a thin, in-memory FASTA reader: classeq2's core (§1 of the
// specification) treats full FASTA lexical parsing as an external
// collaborator's job, so this package only covers the shape the indexer and
// placer actually need — an ordered stream of (id, sequence) records, one
// record per placement job or reference leaf.
//
// FASTA records look like:
//
// >chr7
// ACGTAC
// GAGGAC
// >chr8
// ACGT
//
// A record's id is the text after '>' up to the first space; anything after
// the first space is ignored.
package fasta

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const bufferInitSize = 300 * 1024 * 1024

// Record is one FASTA entry: an identifier and its raw (uncleaned) sequence.
type Record struct {
	ID       string
	Sequence string
}

// ReadAll reads every record of r into memory, in file order. It does not
// validate sequence content — that is the canonicalizer's job (dna.Canonical).
func ReadAll(r io.Reader) ([]Record, error) {
	var (
		records []Record
		id      string
		seq     strings.Builder
		started bool
	)
	flush := func() {
		if started {
			records = append(records, Record{ID: id, Sequence: seq.String()})
			seq.Reset()
		}
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, bufferInitSize)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			flush()
			id = strings.SplitN(line[1:], " ", 2)[0]
			if id == "" {
				return nil, errors.Errorf("malformed FASTA file: empty record id")
			}
			started = true
			continue
		}
		if !started {
			return nil, errors.Errorf("malformed FASTA file: sequence data before first '>' record")
		}
		seq.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "couldn't read FASTA data")
	}
	flush()
	return records, nil
}
