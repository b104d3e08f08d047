// Package runlog implements the append-only pipeline run log:
// upsert-by-external-run-id records of each scheduled invocation's
// status, phases, and notes.
//
// No direct original_source analogue exists for this component; it is
// built fresh, following this codebase's internal/persistence/postgres.go
// repo-CRUD idiom for its store shape.
package runlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/persistence"
)

// Log records PipelineRun rows keyed by an externally supplied run ID.
type Log struct {
	repo persistence.PipelineRunRepository
}

// New constructs a Log over repo.
func New(repo persistence.PipelineRunRepository) *Log {
	return &Log{repo: repo}
}

// Start records a new run as running, upserting by runID so a retried
// invocation with the same ID continues the same record.
func (l *Log) Start(ctx context.Context, runID, workflowName string, trigger core.PipelineRunTrigger) error {
	return l.repo.Upsert(ctx, &core.PipelineRun{
		RunID:        runID,
		WorkflowName: workflowName,
		Trigger:      trigger,
		Status:       core.RunStatusRunning,
		StartedAt:    time.Now().UTC(),
	})
}

// UpdatePhase writes phase verbatim (as opaque JSON) onto runID's
// existing record, leaving status/conclusion untouched.
func (l *Log) UpdatePhase(ctx context.Context, runID string, phase any) error {
	run, err := l.repo.Get(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	blob, err := json.Marshal(phase)
	if err != nil {
		return fmt.Errorf("failed to marshal phase: %w", err)
	}
	run.Phase = blob
	return l.repo.Upsert(ctx, run)
}

// Finish marks runID with a terminal status/conclusion, setting
// finished_at.
func (l *Log) Finish(ctx context.Context, runID string, status core.PipelineRunStatus, conclusion core.PipelineRunConclusion, notes string) error {
	run, err := l.repo.Get(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	run.Status = status
	run.Conclusion = conclusion
	run.Notes = notes
	run.FinishedAt = time.Now().UTC()
	return l.repo.Upsert(ctx, run)
}

// Get returns a single run record by its external ID.
func (l *Log) Get(ctx context.Context, runID string) (*core.PipelineRun, error) {
	return l.repo.Get(ctx, runID)
}

// Recent returns the most recent runs, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]core.PipelineRun, error) {
	return l.repo.ListRecent(ctx, limit)
}
