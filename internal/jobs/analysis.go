package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sevigo/bug-warden/internal/analysis"
	"github.com/sevigo/bug-warden/internal/core"
)

// Analyzer runs one analysis. *analysis.Pipeline implements it.
type Analyzer interface {
	Run(ctx context.Context, in analysis.Input) (*core.AnalysisResult, error)
}

// AnalysisJob is the background job behind POST /api/v1/analyses.
type AnalysisJob struct {
	analyzer Analyzer
	store    *ResultStore
	logger   *slog.Logger
}

// NewAnalysisJob creates a new AnalysisJob.
func NewAnalysisJob(analyzer Analyzer, store *ResultStore, logger *slog.Logger) *AnalysisJob {
	if analyzer == nil {
		panic("analyzer cannot be nil")
	}
	if store == nil {
		panic("result store cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &AnalysisJob{analyzer: analyzer, store: store, logger: logger}
}

// Run validates the request, runs the analysis and stores the outcome.
func (j *AnalysisJob) Run(ctx context.Context, req *core.AnalysisRequest) error {
	if err := ValidateRequest(req); err != nil {
		j.store.Finish(req.ID, nil, err, false)
		return fmt.Errorf("input validation failed: %w", err)
	}

	j.logger.Info("starting analysis job", "job_id", req.ID, "title", req.Report.Title)
	res, err := j.analyzer.Run(ctx, analysis.Input{
		Report:        req.Report,
		SourceRoot:    req.SourceRoot,
		KnowledgePath: req.KnowledgePath,
		ScriptDir:     req.ScriptDir,
	})
	cancelled := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	j.store.Finish(req.ID, res, err, cancelled)
	if err != nil {
		return fmt.Errorf("analysis %s: %w", req.ID, err)
	}

	j.logger.Info("analysis job finished", "job_id", req.ID,
		"judged", res.Stats.Judged, "suggestions", len(res.Suggestions), "duration", res.Stats.Duration)
	return nil
}
