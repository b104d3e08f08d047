package newsletter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/persistence"
)

func TestSubjectLine(t *testing.T) {
	assert.Equal(t, "\U0001F680 AI Weekly: Big News + 3 Practical AI Tips", subjectLine(true, 3))
	assert.Equal(t, "\U0001F4A1 AI Weekly: 5 Actionable AI Examples This Week", subjectLine(false, 5))
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, "fallback", orDefault("", "fallback"))
	assert.Equal(t, "value", orDefault("value", "fallback"))
}

func TestFilterAndRankDropsBelowThresholdAndSortsDescending(t *testing.T) {
	episodes := []core.Episode{
		{ID: "a", Scores: map[string]float64{scoringTopic: 0.65}},
		{ID: "b", Scores: map[string]float64{scoringTopic: 0.9}},
		{ID: "c", Scores: map[string]float64{scoringTopic: 0.71}},
		{ID: "d", Scores: map[string]float64{scoringTopic: 0.7}},
	}

	out := filterAndRank(episodes)

	require.Len(t, out, 3)
	assert.Equal(t, []string{"b", "c", "d"}, []string{out[0].ID, out[1].ID, out[2].ID})
}

func TestFilterAndRankCapsAtMaxCandidates(t *testing.T) {
	episodes := make([]core.Episode, 0, maxCandidates+5)
	for i := 0; i < maxCandidates+5; i++ {
		episodes = append(episodes, core.Episode{
			ID:     "ep",
			Scores: map[string]float64{scoringTopic: minAIScore + 0.01},
		})
	}

	out := filterAndRank(episodes)

	assert.Len(t, out, maxCandidates)
}

func TestBuildSelectionSchemaRequiresExamplesAndCapsCount(t *testing.T) {
	schema := buildSelectionSchema()

	assert.Contains(t, schema.Required, "examples")
	examplesProp := schema.Properties["examples"]
	require.NotNil(t, examplesProp)
	require.NotNil(t, examplesProp.MaxItems)
	assert.Equal(t, int64(maxExamples), *examplesProp.MaxItems)
}

// fakeNewsletterRepo implements persistence.NewsletterRepository for the
// retention test; only ListSince and DeleteOlderThan are exercised.
type fakeNewsletterRepo struct {
	issues  []core.NewsletterIssue
	deleted []time.Time
}

func (f *fakeNewsletterRepo) CreateIssue(ctx context.Context, issue *core.NewsletterIssue, examples []core.NewsletterExample) error {
	return nil
}
func (f *fakeNewsletterRepo) GetIssue(ctx context.Context, id string) (*core.NewsletterIssue, error) {
	return nil, nil
}
func (f *fakeNewsletterRepo) GetIssueWithExamples(ctx context.Context, id string) (*core.NewsletterIssue, []core.NewsletterExample, error) {
	return nil, nil, nil
}
func (f *fakeNewsletterRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	return nil
}
func (f *fakeNewsletterRepo) ListSince(ctx context.Context, since time.Time) ([]core.NewsletterIssue, error) {
	return f.issues, nil
}
func (f *fakeNewsletterRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	f.deleted = append(f.deleted, cutoff)
	n := 0
	for _, issue := range f.issues {
		if issue.IssueDate.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

type fakeDatabase struct {
	persistence.Database
	newsletters *fakeNewsletterRepo
}

func (f *fakeDatabase) Newsletters() persistence.NewsletterRepository { return f.newsletters }

func TestEnforceRetentionKeepsNewestNOnly(t *testing.T) {
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	issues := make([]core.NewsletterIssue, 0, 5)
	for i := 0; i < 5; i++ {
		issues = append(issues, core.NewsletterIssue{
			ID:        string(rune('a' + i)),
			IssueDate: now.AddDate(0, 0, -i),
		})
	}

	repo := &fakeNewsletterRepo{issues: issues}
	s := NewSelector(nil, "model", &fakeDatabase{newsletters: repo})

	deleted, err := s.EnforceRetention(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
}

func TestEnforceRetentionNoopWhenUnderLimit(t *testing.T) {
	repo := &fakeNewsletterRepo{issues: []core.NewsletterIssue{{ID: "a", IssueDate: time.Now()}}}
	s := NewSelector(nil, "model", &fakeDatabase{newsletters: repo})

	deleted, err := s.EnforceRetention(context.Background(), 20)

	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}
