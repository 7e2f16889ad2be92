// classeq-convert converts a database between its binary (.cls, zstd-framed)
// and text (plain JSON) forms.
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

	"github.com/LepistaBioinformatics/classeq2/kmerindex"
)

var (
	outPath   = flag.String("o", "", "Output path (required)")
	toText    = flag.Bool("text", false, "Convert to the plain-JSON text form instead of the default binary form")
	selfCheck = flag.Bool("verify", false, "Re-decode the written output and compare against the input as a self-check")
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: classeq-convert -o <out> [-text] [-verify] <in>\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 || *outPath == "" {
		usage()
		os.Exit(2)
	}

	cleanup := grail.Init()
	defer cleanup()
	ctx := context.Background()

	if err := run(ctx, flag.Arg(0), *outPath, *toText, *selfCheck); err != nil {
		log.Error.Printf("classeq-convert: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, inPath, outPath string, toText, selfCheck bool) error {
	in, err := file.Open(ctx, inPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close(ctx)
	data, err := io.ReadAll(in.Reader(ctx))
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	db, err := decodeEither(data)
	if err != nil {
		return fmt.Errorf("decode input: %w", err)
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
	if _, err := f.Writer(ctx).Write(out); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if selfCheck {
		got, err := decodeEither(out)
		if err != nil {
			return fmt.Errorf("self-check decode: %w", err)
		}
		want, _ := kmerindex.EncodeText(db)
		have, _ := kmerindex.EncodeText(got)
		if string(want) != string(have) {
			return fmt.Errorf("self-check failed: round-tripped database differs from input")
		}
		log.Printf("classeq-convert: self-check passed")
	}

	log.Printf("classeq-convert: wrote %s", outPath)
	return nil
}

// decodeEither accepts either the binary (zstd) or text (plain JSON)
// container form, trying binary first since that's the common case.
func decodeEither(data []byte) (*kmerindex.Database, error) {
	if db, err := kmerindex.DecodeBinary(data); err == nil {
		return db, nil
	}
	return kmerindex.DecodeText(data)
}
