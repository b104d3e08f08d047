package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/persistence"
)

type fakeEpisodeTopicRepo struct {
	persistence.EpisodeTopicRepository
	rows         []core.EpisodeTopic
	merged       map[string][]string
	keyPointsSet map[string][]string
}

func newFakeEpisodeTopicRepo(rows []core.EpisodeTopic) *fakeEpisodeTopicRepo {
	return &fakeEpisodeTopicRepo{rows: rows, merged: map[string][]string{}, keyPointsSet: map[string][]string{}}
}

func (f *fakeEpisodeTopicRepo) ListByDigestTopic(ctx context.Context, digestTopic string, since time.Time) ([]core.EpisodeTopic, error) {
	return f.rows, nil
}

func (f *fakeEpisodeTopicRepo) MergeInto(ctx context.Context, survivorID string, mergedIDs []string) error {
	f.merged[survivorID] = mergedIDs
	return nil
}

func (f *fakeEpisodeTopicRepo) UpdateKeyPoints(ctx context.Context, id string, keyPoints []string) error {
	f.keyPointsSet[id] = keyPoints
	return nil
}

func TestClassifyByKeywordMatchesOnNameOrKeyPoints(t *testing.T) {
	cat, ok := classifyByKeyword(core.EpisodeTopic{TopicName: "OpenAI announces new model launch"})
	require.True(t, ok)
	assert.Equal(t, core.CategoryModelRelease, cat)

	cat, ok = classifyByKeyword(core.EpisodeTopic{TopicName: "Weekly roundup", KeyPoints: []string{"Company files for IPO"}})
	require.True(t, ok)
	assert.Equal(t, core.CategoryCompanyStrategy, cat)

	_, ok = classifyByKeyword(core.EpisodeTopic{TopicName: "nothing relevant here"})
	assert.False(t, ok)
}

func TestPhase1GroupsByCategoryOldestFirst(t *testing.T) {
	now := time.Now()
	rows := []core.EpisodeTopic{
		{ID: "a", TopicName: "model release announcement", FirstMentionedAt: now.Add(time.Hour)},
		{ID: "b", TopicName: "new model launch", FirstMentionedAt: now},
		{ID: "c", TopicName: "nothing to do with keywords"},
	}

	p := NewPass(nil, nil)
	groups, remaining := p.phase1Groups(rows)

	require.Len(t, groups, 1)
	require.Len(t, groups[0], 2)
	assert.Equal(t, "b", groups[0][0].ID)
	assert.Equal(t, "a", groups[0][1].ID)
	require.Len(t, remaining, 1)
	assert.Equal(t, "c", remaining[0].ID)
}

func TestMergeGroupDedupesKeyPointsCaseInsensitivelyAndCaps(t *testing.T) {
	repo := newFakeEpisodeTopicRepo(nil)
	p := NewPass(repo, nil)

	group := []core.EpisodeTopic{
		{ID: "canonical", KeyPoints: []string{"Point One", "Point Two"}},
		{ID: "dup1", KeyPoints: []string{"point one", "Point Three", "Point Four"}},
		{ID: "dup2", KeyPoints: []string{"Point Five", "Point Six"}},
	}

	err := p.mergeGroup(context.Background(), group, false)

	require.NoError(t, err)
	assert.Equal(t, []string{"dup1", "dup2"}, repo.merged["canonical"])
	keyPoints := repo.keyPointsSet["canonical"]
	assert.LessOrEqual(t, len(keyPoints), maxKeyPoints)
	assert.Equal(t, []string{"Point One", "Point Two", "Point Three", "Point Four", "Point Five", "Point Six"}, keyPoints)
}

func TestMergeGroupDryRunDoesNotMutate(t *testing.T) {
	repo := newFakeEpisodeTopicRepo(nil)
	p := NewPass(repo, nil)

	group := []core.EpisodeTopic{{ID: "canonical"}, {ID: "dup"}}
	err := p.mergeGroup(context.Background(), group, true)

	require.NoError(t, err)
	assert.Empty(t, repo.merged)
	assert.Empty(t, repo.keyPointsSet)
}

func TestRunPhase1OnlyMergesKeywordMatchedGroup(t *testing.T) {
	now := time.Now()
	rows := []core.EpisodeTopic{
		{ID: "a", TopicName: "model release", FirstMentionedAt: now.Add(time.Hour)},
		{ID: "b", TopicName: "new model launch", FirstMentionedAt: now},
	}
	repo := newFakeEpisodeTopicRepo(rows)
	p := NewPass(repo, nil)

	result, err := p.Run(context.Background(), "AI and Technology", 14, 0, false)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Phase1Groups)
	assert.Equal(t, 1, result.Phase1Merged)
	assert.Equal(t, 0, result.Phase2Groups)
	assert.Equal(t, []string{"a"}, repo.merged["b"])
}

func TestRunDryRunReportsWithoutMutating(t *testing.T) {
	now := time.Now()
	rows := []core.EpisodeTopic{
		{ID: "a", TopicName: "model release", FirstMentionedAt: now.Add(time.Hour)},
		{ID: "b", TopicName: "new model launch", FirstMentionedAt: now},
	}
	repo := newFakeEpisodeTopicRepo(rows)
	p := NewPass(repo, nil)

	result, err := p.Run(context.Background(), "AI and Technology", 14, 0, true)

	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.Phase1Merged)
	assert.Empty(t, repo.merged)
}
