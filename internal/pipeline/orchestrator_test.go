package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/persistence"
)

func TestDefaultConfigMatchesSpecDefaults(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 4, cfg.MaxWorkers)
	assert.Equal(t, 7, cfg.DailyTranscriptCap)
	assert.Equal(t, 10*time.Minute, cfg.StuckTimeout)
	assert.Equal(t, 0.6, cfg.ScoreThreshold)
	assert.Equal(t, 5, cfg.DiscoveryLookbackDays)
	assert.Equal(t, 14, cfg.ArcRetentionDays)
	assert.Equal(t, 20, cfg.MaxEventsPerArc)
	assert.Equal(t, 30*time.Second, cfg.CancelGrace)
}

func TestRunResultSuccess(t *testing.T) {
	assert.True(t, RunResult{Relevant: 3, NotRelevant: 1}.Success())
	assert.False(t, RunResult{Failed: 1}.Success())
}

func TestStartOfLocalDayTruncatesToMidnight(t *testing.T) {
	d := startOfLocalDay()
	assert.Zero(t, d.Hour())
	assert.Zero(t, d.Minute())
	assert.Zero(t, d.Second())
	assert.Zero(t, d.Nanosecond())
}

type fakeEpisodeRepo struct {
	persistence.EpisodeRepository
	releaseStuckErr   error
	releaseStuckCalls int
	countSince        int
	countSinceErr     error
}

func (f *fakeEpisodeRepo) ReleaseStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	f.releaseStuckCalls++
	return 0, f.releaseStuckErr
}

func (f *fakeEpisodeRepo) CountTranscribedSince(ctx context.Context, since time.Time) (int, error) {
	return f.countSince, f.countSinceErr
}

type fakeTopicRepo struct {
	persistence.TopicRepository
	topics []core.Topic
	err    error
}

func (f *fakeTopicRepo) ListActive(ctx context.Context) ([]core.Topic, error) {
	return f.topics, f.err
}

type fakeFeedRepo struct {
	persistence.FeedRepository
	byID map[string]*core.Feed
}

func (f *fakeFeedRepo) Get(ctx context.Context, id string) (*core.Feed, error) {
	feed, ok := f.byID[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return feed, nil
}

type fakeDB struct {
	persistence.Database
	episodes *fakeEpisodeRepo
	topics   *fakeTopicRepo
	feeds    *fakeFeedRepo
}

func (f *fakeDB) Episodes() persistence.EpisodeRepository { return f.episodes }
func (f *fakeDB) Topics() persistence.TopicRepository      { return f.topics }
func (f *fakeDB) Feeds() persistence.FeedRepository         { return f.feeds }

func TestRunPropagatesReleaseStuckError(t *testing.T) {
	db := &fakeDB{episodes: &fakeEpisodeRepo{releaseStuckErr: errors.New("db down")}}
	o := New(db, nil, nil, nil, nil, nil, DefaultConfig())

	result, err := o.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, RunResult{}, result)
}

func TestRunExitsEarlyWhenDailyCapReached(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DailyTranscriptCap = 7
	db := &fakeDB{episodes: &fakeEpisodeRepo{countSince: 7}}
	o := New(db, nil, nil, nil, nil, nil, cfg)

	result, err := o.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, result.Rounds)
	assert.False(t, result.Cancelled)
}

func TestRunReturnsCancelledWhenContextAlreadyDone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DailyTranscriptCap = 0
	db := &fakeDB{
		episodes: &fakeEpisodeRepo{},
		topics:   &fakeTopicRepo{},
	}
	o := New(db, nil, nil, nil, nil, nil, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := o.Run(ctx)

	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Equal(t, 0, result.Rounds)
}

func TestActiveFeedsRestrictsToConfiguredFeedID(t *testing.T) {
	feed := &core.Feed{ID: "feed-1", URL: "https://example.com/feed.xml", Title: "Example"}
	cfg := DefaultConfig()
	cfg.FeedID = "feed-1"
	db := &fakeDB{feeds: &fakeFeedRepo{byID: map[string]*core.Feed{"feed-1": feed}}}
	o := New(db, nil, nil, nil, nil, nil, cfg)

	feedList, err := o.activeFeeds(context.Background())

	require.NoError(t, err)
	require.Len(t, feedList, 1)
	assert.Equal(t, "feed-1", feedList[0].ID)
}
