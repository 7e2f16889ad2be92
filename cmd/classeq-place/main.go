// classeq-place places one or more query sequences against a prebuilt
// database and streams a newline-delimited JSON result record per query.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"

	"github.com/LepistaBioinformatics/classeq2/encoding/fasta"
	"github.com/LepistaBioinformatics/classeq2/kmerindex"
	"github.com/LepistaBioinformatics/classeq2/placer"
)

var (
	dbPath     = flag.String("d", "", "Path to a database produced by classeq-build-db")
	outPath    = flag.String("o", "-", "Path to write results to ('-' for stdout)")
	minMatches = flag.Int("min-matches", placer.DefaultConfig().MinMatches, "Minimum distinct matched k-mers required before placement is attempted")
)

// record is the newline-delimited JSON shape written for each query.
type record struct {
	Query                string `json:"query"`
	Kind                 string `json:"kind"`
	NodeID               int    `json:"nodeId,omitempty"`
	StopReason           string `json:"stopReason,omitempty"`
	TiedNodeIDs          []int  `json:"tiedNodeIds,omitempty"`
	UnclassifiableReason string `json:"unclassifiableReason,omitempty"`
	OneLen               int    `json:"oneLen,omitempty"`
	RestLen              int    `json:"restLen,omitempty"`
	Error                string `json:"error,omitempty"`
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: classeq-place -d <database> [fasta]\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if *dbPath == "" {
		usage()
		os.Exit(2)
	}

	cleanup := grail.Init()
	defer cleanup()
	ctx := context.Background()

	if err := run(ctx, *dbPath, *outPath, flag.Args()); err != nil {
		log.Error.Printf("classeq-place: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dbPath, outPath string, args []string) error {
	db, err := kmerindex.Load(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("load database: %w", err)
	}

	var in io.Reader = os.Stdin
	if len(args) == 1 {
		f, ferr := file.Open(ctx, args[0])
		if ferr != nil {
			return fmt.Errorf("open query fasta: %w", ferr)
		}
		defer f.Close(ctx)
		in = f.Reader(ctx)
	}

	queries, err := fasta.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read query fasta: %w", err)
	}

	var out io.Writer = os.Stdout
	if outPath != "-" {
		f, ferr := file.Create(ctx, outPath)
		if ferr != nil {
			return fmt.Errorf("create output: %w", ferr)
		}
		defer f.Close(ctx)
		out = f.Writer(ctx)
	}

	cfg := placer.DefaultConfig()
	cfg.MinMatches = *minMatches

	jobs := make([]placer.Job, len(queries))
	for i, q := range queries {
		jobs[i] = placer.Job{ID: q.ID, Sequence: q.Sequence}
	}
	outcomes := placer.PlaceAll(ctx, db, jobs, cfg)

	enc := json.NewEncoder(out)
	for _, o := range outcomes {
		rec := record{Query: o.JobID}
		if o.Err != nil {
			rec.Error = o.Err.Error()
		} else {
			rec.Kind = o.Result.Kind.String()
			rec.NodeID = o.Result.NodeID
			if o.Result.Kind == placer.MaxResolutionReached {
				rec.StopReason = o.Result.StopReason.String()
			}
			rec.TiedNodeIDs = o.Result.TiedNodeIDs
			if o.Result.Kind == placer.Unclassifiable {
				rec.UnclassifiableReason = o.Result.UnclassifiableReason.String()
			}
			rec.OneLen = o.Result.OneLen
			rec.RestLen = o.Result.RestLen
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	return nil
}
