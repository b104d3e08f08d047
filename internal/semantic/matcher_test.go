package semantic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder maps known texts to fixed vectors and counts calls per
// text, so tests can assert on cache hits.
type fakeEmbedder struct {
	vectors map[string][]float64
	calls   map[string]int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: map[string][]float64{}, calls: map[string]int{}}
}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, model, text string) ([]float64, error) {
	f.calls[text]++
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float64{1, 0, 0}, nil
}

func TestCosineSimilarityIdenticalVectors(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 2, 3}, []float64{1, 2, 3}), 1e-9)
}

func TestCosineSimilarityOrthogonalVectors(t *testing.T) {
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
}

func TestCosineSimilarityZeroNormIsZero(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 1}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, []float64{1}))
}

func TestEmbedCachesByTextPrefix(t *testing.T) {
	embedder := newFakeEmbedder()
	m := NewMatcher(embedder, "model")

	_, err := m.embed(context.Background(), "hello world")
	require.NoError(t, err)
	_, err = m.embed(context.Background(), "hello world")
	require.NoError(t, err)

	assert.Equal(t, 1, embedder.calls["hello world"])
}

func TestFindMatchReturnsNilBelowThreshold(t *testing.T) {
	embedder := newFakeEmbedder()
	embedder.vectors["candidate"] = []float64{1, 0}
	embedder.vectors["existing"] = []float64{0, 1}
	m := NewMatcher(embedder, "model")

	candidate := Item{Name: "candidate"}
	existing := []Item{{Name: "existing", DigestTopic: "ai"}}

	match, err := m.FindMatch(context.Background(), candidate, existing, "", 0.8)

	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestFindMatchReturnsBestAboveThreshold(t *testing.T) {
	embedder := newFakeEmbedder()
	embedder.vectors["candidate"] = []float64{1, 0}
	embedder.vectors["close"] = []float64{0.99, 0.01}
	embedder.vectors["far"] = []float64{0, 1}
	m := NewMatcher(embedder, "model")

	candidate := Item{Name: "candidate"}
	existing := []Item{{ID: "far", Name: "far"}, {ID: "close", Name: "close"}}

	match, err := m.FindMatch(context.Background(), candidate, existing, "", 0.9)

	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "close", match.Item.ID)
}

func TestFindMatchFiltersByDigestTopic(t *testing.T) {
	embedder := newFakeEmbedder()
	embedder.vectors["candidate"] = []float64{1, 0}
	embedder.vectors["other-topic"] = []float64{1, 0}
	m := NewMatcher(embedder, "model")

	candidate := Item{Name: "candidate"}
	existing := []Item{{Name: "other-topic", DigestTopic: "finance"}}

	match, err := m.FindMatch(context.Background(), candidate, existing, "ai", 0.5)

	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestDuplicateGroupsGroupsSimilarItemsAndSortsCanonicalFirst(t *testing.T) {
	embedder := newFakeEmbedder()
	embedder.vectors["a"] = []float64{1, 0}
	embedder.vectors["b"] = []float64{1, 0}
	embedder.vectors["c"] = []float64{0, 1}
	m := NewMatcher(embedder, "model")

	now := time.Now()
	items := []Item{
		{ID: "a", Name: "a", FirstMentionedAt: now.Add(time.Hour), MentionCount: 1},
		{ID: "b", Name: "b", FirstMentionedAt: now, MentionCount: 5},
		{ID: "c", Name: "c", FirstMentionedAt: now},
	}

	groups, err := m.DuplicateGroups(context.Background(), items, 0.9)

	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0], 2)
	assert.Equal(t, "b", groups[0][0].ID) // earlier first_mentioned_at sorts first
	assert.Equal(t, "a", groups[0][1].ID)
}

func TestDuplicateGroupsOmitsSingletons(t *testing.T) {
	embedder := newFakeEmbedder()
	embedder.vectors["a"] = []float64{1, 0}
	embedder.vectors["b"] = []float64{0, 1}
	m := NewMatcher(embedder, "model")

	groups, err := m.DuplicateGroups(context.Background(), []Item{{Name: "a"}, {Name: "b"}}, 0.9)

	require.NoError(t, err)
	assert.Empty(t, groups)
}
