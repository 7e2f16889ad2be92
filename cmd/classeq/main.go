// classeq is the multi-subcommand front end for the build-db/place/
// describe-db/convert operations, in the style of bio-pamtool's
// v.io/x/lib/cmdline dispatcher.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"gopkg.in/yaml.v3"
	"v.io/x/lib/cmdline"

	"github.com/LepistaBioinformatics/classeq2/encoding/fasta"
	"github.com/LepistaBioinformatics/classeq2/internal/newick"
	"github.com/LepistaBioinformatics/classeq2/kmerindex"
	"github.com/LepistaBioinformatics/classeq2/phylotree"
	"github.com/LepistaBioinformatics/classeq2/placer"
)

func newCmdBuildDB() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "build-db",
		Short:    "Build a k-mer index database from a tree and reference FASTA",
		ArgsName: "tree.nwk reference.fasta",
	}
	outFlag := cmd.Flags.String("o", "out.cls", "Path to write the binary database")
	kFlag := cmd.Flags.Int("k", 35, "k-mer length")
	mFlag := cmd.Flags.Int("m", 4, "Minimizer window length (1 <= m < k)")
	supFlag := cmd.Flags.Float64("s", 70, "Minimum branch-support threshold")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("build-db takes <tree.nwk> <reference.fasta>, got %v", argv)
		}
		return buildDB(context.Background(), argv[0], argv[1], *outFlag, *kFlag, *mFlag, *supFlag)
	})
	return cmd
}

func newCmdPlace() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "place",
		Short:    "Place query sequences against a database",
		ArgsName: "[query.fasta]",
	}
	dbFlag := cmd.Flags.String("d", "", "Path to a database produced by build-db")
	outFlag := cmd.Flags.String("o", "-", "Path to write results to ('-' for stdout)")
	minMatchesFlag := cmd.Flags.Int("min-matches", placer.DefaultConfig().MinMatches, "Minimum distinct matched k-mers required")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) > 1 {
			return fmt.Errorf("place takes at most one fasta path, got %v", argv)
		}
		if *dbFlag == "" {
			return fmt.Errorf("place requires -d <database>")
		}
		return placeCmd(context.Background(), *dbFlag, *outFlag, argv, *minMatchesFlag)
	})
	return cmd
}

func newCmdDescribeDB() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "describe-db",
		Short:    "Print summary statistics for a database",
		ArgsName: "database",
	}
	formatFlag := cmd.Flags.String("f", "json", "Output format: json or yaml (tsv is not supported by this subcommand)")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("describe-db takes one database path, got %v", argv)
		}
		return describeDB(context.Background(), argv[0], *formatFlag, os.Stdout)
	})
	return cmd
}

func newCmdConvert() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "convert",
		Short:    "Convert a database between its binary and text forms",
		ArgsName: "in",
	}
	outFlag := cmd.Flags.String("o", "", "Output path (required)")
	textFlag := cmd.Flags.Bool("text", false, "Convert to the plain-JSON text form")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 || *outFlag == "" {
			return fmt.Errorf("convert takes <in> and requires -o <out>")
		}
		return convertCmd(context.Background(), argv[0], *outFlag, *textFlag)
	})
	return cmd
}

func buildDB(ctx context.Context, treePath, fastaPath, outPath string, k, m int, minSupport float64) error {
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
		K: k, M: m, MinSupportThreshold: minSupport, SourceName: treePath,
	})
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	return kmerindex.Save(ctx, outPath, db)
}

func placeCmd(ctx context.Context, dbPath, outPath string, args []string, minMatches int) error {
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
	cfg.MinMatches = minMatches
	jobs := make([]placer.Job, len(queries))
	for i, q := range queries {
		jobs[i] = placer.Job{ID: q.ID, Sequence: q.Sequence}
	}
	outcomes := placer.PlaceAll(ctx, db, jobs, cfg)

	enc := json.NewEncoder(out)
	for _, o := range outcomes {
		if err := enc.Encode(o); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	return nil
}

func describeDB(ctx context.Context, path, format string, w io.Writer) error {
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
	default:
		return fmt.Errorf("unknown format %q (want json or yaml; use classeq-describe-db for tsv)", format)
	}
}

func convertCmd(ctx context.Context, inPath, outPath string, toText bool) error {
	in, err := file.Open(ctx, inPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close(ctx)
	data, err := io.ReadAll(in.Reader(ctx))
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	db, err := kmerindex.DecodeBinary(data)
	if err != nil {
		db, err = kmerindex.DecodeText(data)
		if err != nil {
			return fmt.Errorf("decode input: %w", err)
		}
	}
	var out []byte
	if toText {
		out, err = kmerindex.EncodeText(db)
	} else {
		out, err = kmerindex.EncodeBinary(db)
	}
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	f, err := file.Create(ctx, outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close(ctx)
	_, err = f.Writer(ctx).Write(out)
	return err
}

func main() {
	cleanup := grail.Init()
	defer cleanup()
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(&cmdline.Command{
		Name:  "classeq",
		Short: "Alignment-free phylogenetic placement",
		Children: []*cmdline.Command{
			newCmdBuildDB(),
			newCmdPlace(),
			newCmdDescribeDB(),
			newCmdConvert(),
		},
	})
}
