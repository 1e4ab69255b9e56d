package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/aihstats/internal/config"
	"github.com/gyeh/aihstats/internal/metrics"
	"github.com/gyeh/aihstats/internal/model"
)

// Phase names carried by PipelineError.
const (
	PhasePreflight = "preflight"
	PhaseStage     = "stage"
	PhaseFinalize  = "finalize"
)

// Load statuses recorded in ingest.loads.
const (
	StatusPending  = "pending"
	StatusStaging  = "staging"
	StatusLoaded   = "loaded"
	StatusFailed   = "failed"
	StatusReplaced = "replaced"
)

// PipelineError wraps an error with the phase where it occurred.
type PipelineError struct {
	Phase string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Run executes the load pipeline: preflight → stage → finalize.
// A failed stage or finalize removes the rows already copied for the load.
func Run(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, cfg *config.Config) (*model.LoadSummary, error) {
	summary, err := run(ctx, pool, log, cfg)
	switch {
	case err != nil:
		metrics.IngestRunsTotal.WithLabelValues("error").Inc()
	case summary.Skipped:
		metrics.IngestRunsTotal.WithLabelValues("skipped").Inc()
	default:
		metrics.IngestRunsTotal.WithLabelValues("success").Inc()
	}
	return summary, err
}

func run(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, cfg *config.Config) (*model.LoadSummary, error) {
	totalStart := time.Now()

	// Phase 1: Preflight
	log.Info().Str("file", cfg.FilePath).Msg("starting preflight")
	pf, err := Preflight(ctx, pool, log, cfg.FilePath, cfg.Force)
	if err != nil {
		return nil, &PipelineError{Phase: PhasePreflight, Err: err}
	}

	if pf.AlreadyLoaded {
		log.Info().
			Str("load_id", pf.LoadID.String()).
			Str("sha256", pf.FileSHA256).
			Msg("file already loaded, skipping (use --force to reload)")
		return &model.LoadSummary{
			FilePath:      pf.FilePath,
			FileSHA256:    pf.FileSHA256,
			LoadID:        pf.LoadID.String(),
			Skipped:       true,
			DurationTotal: time.Since(totalStart),
		}, nil
	}

	fail := func(phase string, err error) error {
		_ = UpdateStatus(ctx, pool, pf.LoadID, StatusFailed)
		if cerr := Cleanup(ctx, pool, log, pf.LoadID); cerr != nil {
			log.Warn().Err(cerr).Msg("cleanup of partial load failed (non-fatal)")
		}
		return &PipelineError{Phase: phase, Err: err}
	}

	// Phase 2: Stage
	log.Info().Msg("starting stage")
	if err := UpdateStatus(ctx, pool, pf.LoadID, StatusStaging); err != nil {
		return nil, &PipelineError{Phase: PhaseStage, Err: err}
	}

	stageResult, err := Stage(ctx, pool, log, pf)
	if err != nil {
		return nil, fail(PhaseStage, err)
	}

	// Phase 3: Finalize
	log.Info().Msg("finalizing")
	fin, err := Finalize(ctx, pool, log, pf.LoadID, cfg.Replace, stageResult)
	if err != nil {
		return nil, fail(PhaseFinalize, err)
	}

	summary := &model.LoadSummary{
		FilePath:         pf.FilePath,
		FileSHA256:       pf.FileSHA256,
		LoadID:           pf.LoadID.String(),
		RowsRead:         stageResult.RowsRead,
		RowsLoaded:       stageResult.RowsLoaded,
		RowsRejected:     stageResult.RowsRejected,
		RowsReplaced:     fin.RowsReplaced,
		DurationStage:    stageResult.Duration,
		DurationFinalize: fin.Duration,
		DurationTotal:    time.Since(totalStart),
	}

	log.Info().
		Int64("rows_read", summary.RowsRead).
		Int64("rows_loaded", summary.RowsLoaded).
		Int64("rows_rejected", summary.RowsRejected).
		Int64("rows_replaced", summary.RowsReplaced).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("load pipeline complete")

	return summary, nil
}
