package runlog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/persistence"
)

type fakePipelineRunRepo struct {
	persistence.PipelineRunRepository
	runs map[string]*core.PipelineRun
}

func newFakePipelineRunRepo() *fakePipelineRunRepo {
	return &fakePipelineRunRepo{runs: map[string]*core.PipelineRun{}}
}

func (f *fakePipelineRunRepo) Upsert(ctx context.Context, run *core.PipelineRun) error {
	copyRun := *run
	f.runs[run.RunID] = &copyRun
	return nil
}

func (f *fakePipelineRunRepo) Get(ctx context.Context, runID string) (*core.PipelineRun, error) {
	run, ok := f.runs[runID]
	if !ok {
		return nil, assert.AnError
	}
	copyRun := *run
	return &copyRun, nil
}

func (f *fakePipelineRunRepo) ListRecent(ctx context.Context, limit int) ([]core.PipelineRun, error) {
	out := make([]core.PipelineRun, 0, len(f.runs))
	for _, run := range f.runs {
		out = append(out, *run)
	}
	return out, nil
}

func TestStartRecordsRunningStatus(t *testing.T) {
	repo := newFakePipelineRunRepo()
	l := New(repo)

	err := l.Start(context.Background(), "run-1", "run", core.TriggerManual)

	require.NoError(t, err)
	run := repo.runs["run-1"]
	require.NotNil(t, run)
	assert.Equal(t, core.RunStatusRunning, run.Status)
	assert.Equal(t, core.TriggerManual, run.Trigger)
	assert.False(t, run.StartedAt.IsZero())
}

func TestUpdatePhaseWritesOpaqueJSONWithoutTouchingStatus(t *testing.T) {
	repo := newFakePipelineRunRepo()
	l := New(repo)
	require.NoError(t, l.Start(context.Background(), "run-1", "run", core.TriggerManual))

	err := l.UpdatePhase(context.Background(), "run-1", map[string]any{"step": "discover", "count": 3})

	require.NoError(t, err)
	run := repo.runs["run-1"]
	assert.Equal(t, core.RunStatusRunning, run.Status)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(run.Phase, &decoded))
	assert.Equal(t, "discover", decoded["step"])
}

func TestFinishSetsTerminalStatusAndConclusion(t *testing.T) {
	repo := newFakePipelineRunRepo()
	l := New(repo)
	require.NoError(t, l.Start(context.Background(), "run-1", "run", core.TriggerManual))

	err := l.Finish(context.Background(), "run-1", core.RunStatusCompleted, core.ConclusionSuccess, "done")

	require.NoError(t, err)
	run := repo.runs["run-1"]
	assert.Equal(t, core.RunStatusCompleted, run.Status)
	assert.Equal(t, core.ConclusionSuccess, run.Conclusion)
	assert.Equal(t, "done", run.Notes)
	assert.False(t, run.FinishedAt.IsZero())
}

func TestGetReturnsUnknownRunError(t *testing.T) {
	repo := newFakePipelineRunRepo()
	l := New(repo)

	_, err := l.Get(context.Background(), "missing")

	require.Error(t, err)
}
