package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	values map[string]string
}

func (f *fakeRepo) Get(ctx context.Context, category, key string) (string, bool, error) {
	v, ok := f.values[category+"."+key]
	return v, ok, nil
}

func (f *fakeRepo) Set(ctx context.Context, category, key, value string) error {
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[category+"."+key] = value
	return nil
}

func (f *fakeRepo) ListCategory(ctx context.Context, category string) (map[string]string, error) {
	return nil, nil
}

func TestGetIntFallsBackToDefault(t *testing.T) {
	s := New(&fakeRepo{})
	v, err := s.GetInt(context.Background(), CategoryPipeline, KeyStuckProcessingTimeoutMinutes, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, v)
}

func TestSetThenGetBool(t *testing.T) {
	s := New(&fakeRepo{})
	require.NoError(t, s.SetBool(context.Background(), CategoryStoryArcs, KeyDualWriteEpisodeTopics, true))
	v, err := s.GetBool(context.Background(), CategoryStoryArcs, KeyDualWriteEpisodeTopics, false)
	require.NoError(t, err)
	assert.True(t, v)
}

func TestGetIntIgnoresUnparseableValue(t *testing.T) {
	repo := &fakeRepo{values: map[string]string{"pipeline.max_workers": "not-a-number"}}
	s := New(repo)
	v, err := s.GetInt(context.Background(), CategoryPipeline, KeyMaxWorkers, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, v)
}
