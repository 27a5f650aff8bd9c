// Package pipeline implements the batch agents that move items through the
// curation queue: discovery, fetch, relevance filter, enrichment, and
// publishing.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/bfsi-insights/curation-cli/internal/model"
	"github.com/bfsi-insights/curation-cli/internal/store"
)

// Options are the shared batch-run knobs every agent accepts.
type Options struct {
	Limit  int
	DryRun bool
	Source string
	Worker string
}

func (o Options) limit() int {
	if o.Limit <= 0 {
		return 10
	}
	return o.Limit
}

// Result summarizes one agent run. Per-item failures are counted, not
// returned: a batch run exits zero unless its setup fails.
type Result struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Rejected  int `json:"rejected"`
	Skipped   int `json:"skipped"`
}

func (r Result) metrics() map[string]int {
	return map[string]int{
		"processed": r.Processed,
		"succeeded": r.Succeeded,
		"failed":    r.Failed,
		"rejected":  r.Rejected,
		"skipped":   r.Skipped,
	}
}

// itemPacer spaces out per-item work so source sites and the LLM API see a
// polite request rate. A zero delay means no pacing.
func itemPacer(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// trackRun wraps an agent batch in an agent_runs row so every run is
// auditable: which model, which prompt, what happened.
func trackRun(ctx context.Context, s store.Store, run model.AgentRun, fn func(ctx context.Context) (Result, error)) (Result, error) {
	if err := s.StartAgentRun(ctx, &run); err != nil {
		// Bookkeeping must not block the pipeline itself.
		zap.L().Warn("could not record agent run", zap.String("agent", run.Agent), zap.Error(err))
		res, ferr := fn(ctx)
		return res, ferr
	}

	res, err := fn(ctx)
	status := "complete"
	errMsg := ""
	if err != nil {
		status = "failed"
		errMsg = err.Error()
	}
	if finishErr := s.FinishAgentRun(ctx, run.ID, status, errMsg, res.metrics()); finishErr != nil {
		zap.L().Warn("could not finish agent run", zap.String("run_id", run.ID), zap.Error(finishErr))
	}
	return res, err
}

func logResult(stage string, res Result) {
	zap.L().Info("run complete",
		zap.String("stage", stage),
		zap.Int("processed", res.Processed),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
		zap.Int("rejected", res.Rejected),
		zap.Int("skipped", res.Skipped),
	)
}
