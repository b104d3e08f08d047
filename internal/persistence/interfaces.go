// Package persistence provides database abstraction interfaces and their
// PostgreSQL implementations for feeds, episodes, story arcs, newsletters,
// and pipeline run history.
package persistence

import (
	"context"
	"time"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"
)

// FeedRepository handles Feed persistence.
type FeedRepository interface {
	Create(ctx context.Context, feed *core.Feed) error
	Get(ctx context.Context, id string) (*core.Feed, error)
	GetByURL(ctx context.Context, url string) (*core.Feed, error)
	ListActive(ctx context.Context) ([]core.Feed, error)
	List(ctx context.Context, opts ListOptions) ([]core.Feed, error)
	Update(ctx context.Context, feed *core.Feed) error
	Delete(ctx context.Context, id string) error
}

// EpisodeRepository handles Episode persistence, including the status
// claim protocol the pipeline orchestrator relies on.
type EpisodeRepository interface {
	Create(ctx context.Context, ep *core.Episode) error
	Get(ctx context.Context, id string) (*core.Episode, error)
	GetByFeedAndGUID(ctx context.Context, feedID, guid string) (*core.Episode, error)
	Update(ctx context.Context, ep *core.Episode) error
	ListByStatus(ctx context.Context, status core.EpisodeStatus, limit int) ([]core.Episode, error)
	ListDigestCandidates(ctx context.Context, since time.Time) ([]core.Episode, error)

	// ClaimNext atomically transitions one pending episode to processing
	// and returns it, or (nil, nil) if none are pending.
	ClaimNext(ctx context.Context) (*core.Episode, error)

	// ReleaseStuck resets episodes stuck in processing longer than
	// olderThan back to pending, returning the count reset.
	ReleaseStuck(ctx context.Context, olderThan time.Duration) (int, error)

	// CountTranscribedSince counts episodes whose status has advanced to
	// transcribed or later (transcribed_at set) at or after since, for
	// the orchestrator's daily transcript cap.
	CountTranscribedSince(ctx context.Context, since time.Time) (int, error)
}

// TopicRepository handles configured Topic persistence.
type TopicRepository interface {
	Get(ctx context.Context, id string) (*core.Topic, error)
	GetBySlug(ctx context.Context, slug string) (*core.Topic, error)
	ListActive(ctx context.Context) ([]core.Topic, error)
	List(ctx context.Context) ([]core.Topic, error)
}

// StoryArcRepository handles StoryArc and StoryArcEvent persistence.
type StoryArcRepository interface {
	GetByID(ctx context.Context, id string) (*core.StoryArc, error)
	GetBySlug(ctx context.Context, digestTopic, arcSlug string) (*core.StoryArc, error)
	Create(ctx context.Context, arc *core.StoryArc) error
	Update(ctx context.Context, arc *core.StoryArc) error
	ListActive(ctx context.Context, digestTopic string, since time.Time) ([]core.StoryArc, error)
	ListUndigested(ctx context.Context, digestTopic string) ([]core.StoryArc, error)
	MarkIncluded(ctx context.Context, arcID, issueID string) error

	AddEvent(ctx context.Context, event *core.StoryArcEvent) error
	ListEvents(ctx context.Context, arcID string) ([]core.StoryArcEvent, error)
	PruneEvents(ctx context.Context, arcID string, keep int) error

	// CleanupOld deletes arcs last updated before cutoff, cascading to
	// their events, returning the count of arcs removed.
	CleanupOld(ctx context.Context, cutoff time.Time) (int, error)
}

// EpisodeTopicRepository handles the legacy per-episode topic rows the
// dedup pass consolidates.
type EpisodeTopicRepository interface {
	Create(ctx context.Context, et *core.EpisodeTopic) error
	ListByDigestTopic(ctx context.Context, digestTopic string, since time.Time) ([]core.EpisodeTopic, error)
	MergeInto(ctx context.Context, survivorID string, mergedIDs []string) error

	// UpdateKeyPoints overwrites a surviving row's key_points after a
	// dedup merge folds in unique points from the rows it absorbed.
	UpdateKeyPoints(ctx context.Context, id string, keyPoints []string) error
}

// NewsletterRepository handles NewsletterIssue and NewsletterExample
// persistence.
type NewsletterRepository interface {
	CreateIssue(ctx context.Context, issue *core.NewsletterIssue, examples []core.NewsletterExample) error
	GetIssue(ctx context.Context, id string) (*core.NewsletterIssue, error)
	GetIssueWithExamples(ctx context.Context, id string) (*core.NewsletterIssue, []core.NewsletterExample, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	ListSince(ctx context.Context, since time.Time) ([]core.NewsletterIssue, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// PipelineRunRepository handles append-only PipelineRun records.
type PipelineRunRepository interface {
	Upsert(ctx context.Context, run *core.PipelineRun) error
	Get(ctx context.Context, runID string) (*core.PipelineRun, error)
	ListRecent(ctx context.Context, limit int) ([]core.PipelineRun, error)
}

// SettingsRepository handles the typed category/key/value settings table
// the rest of the pipeline reads its tunables from.
type SettingsRepository interface {
	Get(ctx context.Context, category, key string) (string, bool, error)
	Set(ctx context.Context, category, key, value string) error
	ListCategory(ctx context.Context, category string) (map[string]string, error)
}

// ListOptions provides common filtering and pagination options.
type ListOptions struct {
	Limit  int
	Offset int
}

// Database aggregates all repositories behind a single connection.
type Database interface {
	Feeds() FeedRepository
	Episodes() EpisodeRepository
	Topics() TopicRepository
	StoryArcs() StoryArcRepository
	EpisodeTopics() EpisodeTopicRepository
	Newsletters() NewsletterRepository
	PipelineRuns() PipelineRunRepository
	Settings() SettingsRepository

	Close() error
	Ping(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction mirrors Database's repository accessors scoped to a single
// transaction.
type Transaction interface {
	Commit() error
	Rollback() error

	Feeds() FeedRepository
	Episodes() EpisodeRepository
	StoryArcs() StoryArcRepository
	EpisodeTopics() EpisodeTopicRepository
	Newsletters() NewsletterRepository
}
