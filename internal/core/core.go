// Package core defines the domain entities shared across the ingestion
// pipeline: feeds, episodes, topics, story arcs and their events, the
// legacy episode-topic rows the dedup pass still operates on, newsletter
// issues, and pipeline run records.
package core

import "time"

// EpisodeStatus is the lifecycle state of an Episode. The orchestrator
// moves it pending -> processing -> transcribed -> {scored,
// not_relevant}, or processing -> not_relevant when no transcript is
// available; processing -> pending happens on a transient transcript
// failure and via the stuck-sweep. No code path in this module assigns
// digested or failed.
type EpisodeStatus string

const (
	EpisodeStatusPending      EpisodeStatus = "pending"
	EpisodeStatusProcessing   EpisodeStatus = "processing"
	EpisodeStatusTranscribed  EpisodeStatus = "transcribed"
	EpisodeStatusScored       EpisodeStatus = "scored"
	EpisodeStatusNotRelevant  EpisodeStatus = "not_relevant"
	EpisodeStatusDigested     EpisodeStatus = "digested"
	EpisodeStatusFailed       EpisodeStatus = "failed"
)

// ContentKind distinguishes an episode's underlying media.
type ContentKind string

const (
	ContentKindAudio ContentKind = "audio"
	ContentKindVideo ContentKind = "video"
)

// FunctionalCategory classifies a StoryArc's kind. Closed set.
type FunctionalCategory string

const (
	CategoryModelRelease   FunctionalCategory = "model_release"
	CategoryCompanyStrategy FunctionalCategory = "company_strategy"
	CategoryResearch       FunctionalCategory = "research"
	CategoryRegulation     FunctionalCategory = "regulation"
	CategoryProductLaunch  FunctionalCategory = "product_launch"
	CategoryPartnership    FunctionalCategory = "partnership"
	CategoryControversy    FunctionalCategory = "controversy"
	CategoryIndustryTrend  FunctionalCategory = "industry_trend"
	CategoryTechnique      FunctionalCategory = "technique"
	CategoryUseCase        FunctionalCategory = "use_case"
	CategoryOther          FunctionalCategory = "other"
)

// FunctionalCategories lists the closed set in a stable order, used to
// build LLM schema enums and validate inbound category strings.
var FunctionalCategories = []FunctionalCategory{
	CategoryModelRelease, CategoryCompanyStrategy, CategoryResearch,
	CategoryRegulation, CategoryProductLaunch, CategoryPartnership,
	CategoryControversy, CategoryIndustryTrend, CategoryTechnique,
	CategoryUseCase, CategoryOther,
}

// Perspective is an arc event's stance on the development it reports.
type Perspective string

const (
	PerspectivePositive   Perspective = "positive"
	PerspectiveNegative   Perspective = "negative"
	PerspectiveNeutral    Perspective = "neutral"
	PerspectiveAnalytical Perspective = "analytical"
)

// Feed is an external source of episodes (a podcast or YouTube channel).
type Feed struct {
	ID        string
	URL       string
	Title     string
	Active    bool
	DateAdded time.Time
}

// Episode is a single podcast or video item belonging to a Feed.
type Episode struct {
	ID                 string
	FeedID             string
	FeedTitle          string // denormalized display name for arc/newsletter rendering
	EpisodeGUID        string
	Title              string
	PublishedAt        time.Time
	ContentURL         string
	ContentKind        ContentKind
	DurationSeconds    int
	Description        string
	TranscriptText     string
	TranscriptWords    int
	TranscriptLanguage string
	AutoGenerated      bool
	TranscribedAt      time.Time
	Scores             map[string]float64
	ScoredAt           time.Time
	Status             EpisodeStatus
	FailureCount       int
	LastFailureReason  string
	LastFailureAt      time.Time
	UpdatedAt          time.Time
}

// Topic is a configured subject the scorer and arc extractor evaluate
// episodes against.
type Topic struct {
	ID                  string
	Slug                string
	Name                string
	Description         string
	IsActive            bool
	EnableTopicTracking bool
	SortOrder           int
}

// StoryArc is an evolving narrative within a digest topic, made up of
// an ordered timeline of StoryArcEvents from possibly many episodes.
type StoryArc struct {
	ID                 string
	ArcName             string
	ArcSlug             string
	FunctionalCategory  FunctionalCategory
	DigestTopic         string
	StartedAt           time.Time
	LastUpdatedAt       time.Time
	EventCount          int
	SourceCount         int
	IncludedInDigestID  string
	IncludedAt          time.Time
}

// StoryArcEvent is a single timestamped contribution to a StoryArc
// derived from one source episode.
type StoryArcEvent struct {
	ID                 string
	StoryArcID          string
	EventDate           time.Time
	EventSummary        string
	KeyPoints           []string
	SourceFeedID        string
	SourceEpisodeID     string
	SourceEpisodeGUID   string
	SourceName          string
	Perspective         Perspective
	RelevanceScore      float64
	ExtractedAt         time.Time
}

// EpisodeTopic is the legacy per-episode topic row the dedup pass
// consolidates; it coexists with, and partially overlaps, the arc model.
type EpisodeTopic struct {
	ID               string
	EpisodeID        string
	TopicSlug        string
	TopicName        string
	KeyPoints        []string
	DigestTopic      string
	RelevanceScore   float64
	FirstMentionedAt time.Time
	LastMentionedAt  time.Time
	MentionCount     int
}

// NewsletterIssue is one generated newsletter, composed of ordered
// NewsletterExamples.
type NewsletterIssue struct {
	ID             string
	IssueDate      time.Time
	SubjectLine    string
	BigNewsSummary string
	GeneratedAt    time.Time
	SentAt         time.Time
}

// NewsletterExample is a single actionable item within a NewsletterIssue,
// at a 1..N contiguous Position.
type NewsletterExample struct {
	ID                string
	IssueID           string
	Position          int
	Title             string
	Description       string
	HowToReplicate    string
	WhyUseful         string
	SourceEpisodeID   string
	SourceTitle       string
	SourceURL         string
}

// PipelineRunTrigger is how a scheduled run was started.
type PipelineRunTrigger string

const (
	TriggerCron   PipelineRunTrigger = "cron"
	TriggerManual PipelineRunTrigger = "manual"
)

// PipelineRunStatus is a run's current lifecycle state.
type PipelineRunStatus string

const (
	RunStatusRunning   PipelineRunStatus = "running"
	RunStatusCompleted PipelineRunStatus = "completed"
	RunStatusFailed    PipelineRunStatus = "failed"
)

// PipelineRunConclusion is set only once a run reaches a terminal status.
type PipelineRunConclusion string

const (
	ConclusionSuccess   PipelineRunConclusion = "success"
	ConclusionFailure   PipelineRunConclusion = "failure"
	ConclusionCancelled PipelineRunConclusion = "cancelled"
)

// PipelineRun is an append-only record of one scheduled invocation.
type PipelineRun struct {
	RunID        string
	WorkflowName string
	Trigger      PipelineRunTrigger
	Status       PipelineRunStatus
	Conclusion   PipelineRunConclusion
	StartedAt    time.Time
	FinishedAt   time.Time
	Phase        []byte // opaque JSON, consumers must not rely on its shape
	Notes        string
}

// EpisodeDescriptor is a candidate episode yielded by the feed reader,
// before any transcript or scoring work has happened.
type EpisodeDescriptor struct {
	EpisodeGUID string
	Title       string
	PublishedAt time.Time
	Duration    int
	ContentURL  string
	ContentKind ContentKind
	Description string
}
