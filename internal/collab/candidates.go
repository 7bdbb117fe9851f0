package collab

import (
	"context"
	"fmt"

	"github.com/FocuswithJustin/DeepEL/core/ir"
	"github.com/FocuswithJustin/DeepEL/internal/logging"
	"github.com/FocuswithJustin/DeepEL/internal/store"
)

// CandidatesField is the extra aligned field AttachCandidates writes.
const CandidatesField = "blink_entity_candidates_list"

// CandidateGenerator proposes up to k entity titles for a mention.
type CandidateGenerator interface {
	Candidates(ctx context.Context, mc MentionContext, k int) ([]string, error)
}

// CandidateOptions tunes AttachCandidates.
type CandidateOptions struct {
	// K is the number of candidates requested per mention.
	K int
	// ContextChars is the context window on each side; 0 means DefaultContextChars.
	ContextChars int
}

// AttachCandidates asks gen for candidates of every span in ds and stores
// them under CandidatesField. Each finished document is saved to ckpt, and
// documents the checkpoint already holds are skipped, so an interrupted run
// resumes where it stopped. The returned dataset is the checkpoint content.
func AttachCandidates(ctx context.Context, ds *ir.Dataset, gen CandidateGenerator, ckpt *store.Checkpoint, opts CandidateOptions) (*ir.Dataset, error) {
	if opts.K <= 0 {
		opts.K = 10
	}
	if opts.ContextChars == 0 {
		opts.ContextChars = DefaultContextChars
	}

	skipped := 0
	for _, inst := range ds.Instances() {
		if ckpt.Done(inst.DocName) {
			skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lists := make([][]string, 0, inst.Len())
		for i, mc := range Contexts(inst, opts.ContextChars) {
			cands, err := gen.Candidates(ctx, mc, opts.K)
			if err != nil {
				return nil, fmt.Errorf("candidates for %s span %d: %w", inst.DocName, i, err)
			}
			if len(cands) > opts.K {
				cands = cands[:opts.K]
			}
			if cands == nil {
				cands = []string{}
			}
			lists = append(lists, cands)
		}
		if err := inst.SetExtra(CandidatesField, lists); err != nil {
			return nil, err
		}
		if err := ckpt.Save(inst); err != nil {
			return nil, err
		}
	}
	logging.Info("candidates attached", "dataset", ds.Name, "documents", ds.Len(), "resumed", skipped)
	return ckpt.Dataset(), nil
}
