// classeq-build-db builds a k-mer/minimizer index database from a rooted
// reference tree and its matching reference FASTA.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"

	"github.com/LepistaBioinformatics/classeq2/encoding/fasta"
	"github.com/LepistaBioinformatics/classeq2/internal/newick"
	"github.com/LepistaBioinformatics/classeq2/kmerindex"
	"github.com/LepistaBioinformatics/classeq2/phylotree"
)

var (
	outPath    = flag.String("o", "out.cls", "Path to write the binary database")
	k          = flag.Int("k", 35, "k-mer length")
	m          = flag.Int("m", 4, "Minimizer window length (must satisfy 1 <= m < k)")
	minSupport = flag.Float64("s", 70, "Minimum branch-support threshold used to sanitize the tree before indexing")
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: classeq-build-db [flags] <tree.nwk> <reference.fasta>\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 2 {
		usage()
		os.Exit(2)
	}
	treePath, fastaPath := flag.Arg(0), flag.Arg(1)

	cleanup := grail.Init()
	defer cleanup()
	ctx := context.Background()

	if err := run(ctx, treePath, fastaPath, *outPath, *k, *m, *minSupport); err != nil {
		log.Error.Printf("classeq-build-db: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, treePath, fastaPath, outPath string, k, m int, minSupport float64) error {
	treeFile, err := file.Open(ctx, treePath)
	if err != nil {
		return fmt.Errorf("open tree: %w", err)
	}
	defer treeFile.Close(ctx)
	treeBytes, err := io.ReadAll(treeFile.Reader(ctx))
	if err != nil {
		return fmt.Errorf("read tree: %w", err)
	}
	root, err := newick.Parse(string(treeBytes))
	if err != nil {
		return fmt.Errorf("parse tree: %w", err)
	}
	phylotree.AssignIDs(root)
	if err := phylotree.Validate(root); err != nil {
		return fmt.Errorf("invalid tree: %w", err)
	}

	fastaFile, err := file.Open(ctx, fastaPath)
	if err != nil {
		return fmt.Errorf("open fasta: %w", err)
	}
	defer fastaFile.Close(ctx)
	records, err := fasta.ReadAll(fastaFile.Reader(ctx))
	if err != nil {
		return fmt.Errorf("read fasta: %w", err)
	}

	indexRecords := make([]kmerindex.Record, len(records))
	for i, r := range records {
		indexRecords[i] = kmerindex.Record{LeafName: r.ID, Sequence: r.Sequence}
	}

	db, err := kmerindex.Build(root, indexRecords, kmerindex.Options{
		K:                   k,
		M:                   m,
		MinSupportThreshold: minSupport,
		SourceName:          treePath,
	})
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	if err := kmerindex.Save(ctx, outPath, db); err != nil {
		return fmt.Errorf("save database: %w", err)
	}
	stats := db.Describe()
	log.Printf("classeq-build-db: wrote %s (k=%d m=%d kmers=%d minimizers=%d)",
		outPath, stats.K, stats.M, stats.KmerCount, stats.MinimizerCount)
	return nil
}
