// classeq-describe-db prints summary statistics for a database produced by
// classeq-build-db, in json, yaml, or tsv form.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"gopkg.in/yaml.v3"

	"github.com/LepistaBioinformatics/classeq2/kmerindex"
)

var format = flag.String("f", "json", "Output format: json, yaml, or tsv")

func usage() {
	fmt.Fprintf(os.Stderr, "usage: classeq-describe-db [-f json|yaml|tsv] <database>\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	cleanup := grail.Init()
	defer cleanup()
	ctx := context.Background()

	if err := run(ctx, flag.Arg(0), *format, os.Stdout); err != nil {
		log.Error.Printf("classeq-describe-db: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, path, format string, w *os.File) error {
	db, err := kmerindex.Load(ctx, path)
	if err != nil {
		return fmt.Errorf("load database: %w", err)
	}
	stats := db.Describe()

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(stats)
	case "tsv":
		return writeTSV(w, stats)
	default:
		return fmt.Errorf("unknown format %q (want json, yaml, or tsv)", format)
	}
}

func writeTSV(w *os.File, s kmerindex.Stats) error {
	tw := tsv.NewWriter(w)
	tw.WriteString("k\tm\tnodeCount\tkmerCount\tminimizerCount\tlargestBucket\tsmallestBucket\taverageBucketSize\tinMemorySize")
	if err := tw.EndLine(); err != nil {
		return err
	}
	tw.WriteUint32(uint32(s.K))
	tw.WriteUint32(uint32(s.M))
	tw.WriteUint32(uint32(s.NodeCount))
	tw.WriteString(strconv.Itoa(s.KmerCount))
	tw.WriteString(strconv.Itoa(s.MinimizerCount))
	tw.WriteString(strconv.Itoa(s.LargestBucket))
	tw.WriteString(strconv.Itoa(s.SmallestBucket))
	tw.WriteString(strconv.FormatFloat(s.AverageBucketSize, 'f', 4, 64))
	tw.WriteString(strconv.FormatInt(s.InMemorySize, 10))
	if err := tw.EndLine(); err != nil {
		return err
	}
	return tw.Flush()
}
