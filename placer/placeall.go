package placer

import (
	"context"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"

	"github.com/LepistaBioinformatics/classeq2/kmerindex"
)

// Job is one placement request: an identifier the caller uses to correlate
// it with its Outcome, plus the raw query sequence.
type Job struct {
	ID       string
	Sequence string
}

// Outcome pairs a Job's identifier with its Place result. Err is non-nil
// only on cancellation or a resource failure; a valid placement outcome,
// including Unclassifiable and Inconclusive, always has Err == nil.
type Outcome struct {
	JobID  string
	Result Result
	Err    error
}

// PlaceAll places every job against db in parallel, one query per task, via
// traverse.Each — the same bounded-worker-pool idiom
// grailbio/bio/pileup/snp uses for its per-shard fan-out. There is no
// ordering guarantee between concurrent queries: Outcomes are returned in
// the same order as jobs only because each job's Outcome is written to its
// own slot, not because queries complete in order.
//
// If ctx is cancelled mid-run, jobs that have not started yet report
// Outcome.Err = ctx.Err(). An in-flight job reports ctx.Err() if it reaches
// a descent-iteration check after the cancellation; one that completes
// without reaching such a check keeps its result, as do already-completed
// jobs.
func PlaceAll(ctx context.Context, db *kmerindex.Database, jobs []Job, cfg Config) []Outcome {
	outcomes := make([]Outcome, len(jobs))
	err := traverse.Each(len(jobs), func(i int) error {
		select {
		case <-ctx.Done():
			outcomes[i] = Outcome{JobID: jobs[i].ID, Err: ctx.Err()}
			return nil
		default:
		}
		result, err := Place(ctx, db, jobs[i].Sequence, cfg)
		outcomes[i] = Outcome{JobID: jobs[i].ID, Result: result, Err: err}
		return nil
	})
	if err != nil {
		// traverse.Each's own worker functions never return a non-nil
		// error above, so this can only be an internal scheduling failure.
		log.Error.Printf("placer: PlaceAll scheduling error: %v", err)
	}
	return outcomes
}
