// Package pipeline implements the pipeline orchestrator: the
// "smart backfill" engine that drives discovery, transcript
// acquisition, scoring, and story-arc extraction per episode, with
// bounded concurrency, a daily transcript cap, and cooperative
// cancellation.
//
// The overall shape is an injected-interface struct with a Config/
// DefaultConfig pair and a step-logged entry method. Each batch starts
// a bounded number of worker goroutines, each of which claims its own
// episode from the database; results come back over a channel and a
// WaitGroup acts as the batch barrier.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/feeds"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/logger"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/persistence"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/relevance"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/storyarc"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/transcript"
)

// Config holds one run's tunables. Fields governing the process itself
// (worker count, grace period) default from internal/config, and a
// pipeline.max_workers Settings row overrides the worker count; domain
// thresholds come from internal/settings; the CLI may override either
// (--limit, --feed-id, --no-parallel).
type Config struct {
	MaxWorkers            int
	TargetRelevant        int // N: desired count of relevant episodes
	DailyTranscriptCap    int // 0 = no cap
	StuckTimeout          time.Duration
	ScoreThreshold        float64
	DiscoveryLookbackDays int
	ArcRetentionDays      int
	MaxEventsPerArc       int
	CancelGrace           time.Duration
	FeedID                string // restrict discovery+processing to one feed
	NoParallel            bool
	DryRun                bool
}

// DefaultConfig returns the pipeline's stated defaults.
func DefaultConfig() Config {
	return Config{
		MaxWorkers:            4,
		DailyTranscriptCap:    7,
		StuckTimeout:          10 * time.Minute,
		ScoreThreshold:        0.6,
		DiscoveryLookbackDays: 5,
		ArcRetentionDays:      14,
		MaxEventsPerArc:       20,
		CancelGrace:           30 * time.Second,
	}
}

// maxArcsInPrompt and maxEventsPerArcInPrompt bound the active-arcs
// view rendered into the extraction prompt; fixed constants, not
// user-tunable.
const (
	maxArcsInPrompt         = 20
	maxEventsPerArcInPrompt = 5
)

// Outcome classifies how one worker's episode resolved.
type Outcome string

const (
	OutcomeRelevant    Outcome = "relevant"
	OutcomeNotRelevant Outcome = "not_relevant"
	OutcomeFailed      Outcome = "failed"
	OutcomeSkipped     Outcome = "skipped"
)

// RunResult aggregates one invocation's worker outcomes. Success is
// `Failed == 0`: a zero-relevant, zero-failure run is still success,
// not a degraded outcome.
type RunResult struct {
	Relevant    int
	NotRelevant int
	Failed      int
	Skipped     int
	Rounds      int
	Cancelled   bool
	Errors      []string
}

// Success reports whether the run completed without any worker
// failures.
func (r RunResult) Success() bool { return r.Failed == 0 }

// Orchestrator wires discovery, transcript acquisition, scoring, and
// story-arc tracking together behind the backfill loop.
type Orchestrator struct {
	db        persistence.Database
	reader    *feeds.Reader
	acquirer  *transcript.Acquirer
	scorer    *relevance.Scorer
	extractor *storyarc.Extractor
	arcs      *storyarc.Store
	cfg       Config
}

// New constructs an Orchestrator from its collaborators and config.
func New(db persistence.Database, reader *feeds.Reader, acquirer *transcript.Acquirer, scorer *relevance.Scorer, extractor *storyarc.Extractor, arcs *storyarc.Store, cfg Config) *Orchestrator {
	return &Orchestrator{db: db, reader: reader, acquirer: acquirer, scorer: scorer, extractor: extractor, arcs: arcs, cfg: cfg}
}

// Discover fetches candidate episodes from every active feed (or just
// o.cfg.FeedID when set) and inserts the ones not already known as
// pending episodes. At most one new episode is inserted per feed per
// call (the per-feed daily discovery cap). Returns the count of
// episodes newly inserted.
func (o *Orchestrator) Discover(ctx context.Context) (int, error) {
	feedList, err := o.activeFeeds(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active feeds: %w", err)
	}

	inserted := 0
	for _, feed := range feedList {
		parsed := o.reader.Read(feed.URL, o.cfg.DiscoveryLookbackDays, "", "")
		insertedForFeed := 0
		for _, desc := range parsed.Episodes {
			if insertedForFeed >= 1 {
				break // per-feed daily discovery cap (legacy behavior)
			}
			existing, err := o.db.Episodes().GetByFeedAndGUID(ctx, feed.ID, desc.EpisodeGUID)
			if err == nil && existing != nil {
				continue
			}
			ep := &core.Episode{
				ID:          uuid.NewString(),
				FeedID:      feed.ID,
				FeedTitle:   feed.Title,
				EpisodeGUID: desc.EpisodeGUID,
				Title:       desc.Title,
				PublishedAt: desc.PublishedAt,
				ContentURL:  desc.ContentURL,
				ContentKind: desc.ContentKind,
				Description: desc.Description,
				Status:      core.EpisodeStatusPending,
				UpdatedAt:   time.Now().UTC(),
			}
			if desc.Duration > 0 {
				ep.DurationSeconds = desc.Duration
			}
			if !o.cfg.DryRun {
				if err := o.db.Episodes().Create(ctx, ep); err != nil {
					logger.Warn("failed to insert discovered episode", "feed_id", feed.ID, "guid", desc.EpisodeGUID, "error", err.Error())
					continue
				}
			}
			inserted++
			insertedForFeed++
		}
	}
	return inserted, nil
}

func (o *Orchestrator) activeFeeds(ctx context.Context) ([]core.Feed, error) {
	if o.cfg.FeedID != "" {
		f, err := o.db.Feeds().Get(ctx, o.cfg.FeedID)
		if err != nil {
			return nil, err
		}
		return []core.Feed{*f}, nil
	}
	return o.db.Feeds().ListActive(ctx)
}

// Run executes the smart-backfill loop: dispatch rounds of up to
// MaxWorkers episodes in parallel until Relevant reaches TargetRelevant
// or the pending queue is exhausted, or ctx is cancelled. It never
// returns Failed>0 wrapped as an error: worker failures are aggregated
// into RunResult; only configuration/DB errors escape as the
// function's error return.
func (o *Orchestrator) Run(ctx context.Context) (RunResult, error) {
	var result RunResult

	if _, err := o.db.Episodes().ReleaseStuck(ctx, o.cfg.StuckTimeout); err != nil {
		return result, fmt.Errorf("failed to release stuck episodes: %w", err)
	}

	if o.cfg.DailyTranscriptCap > 0 {
		count, err := o.db.Episodes().CountTranscribedSince(ctx, startOfLocalDay())
		if err != nil {
			return result, fmt.Errorf("failed to count today's transcripts: %w", err)
		}
		if count >= o.cfg.DailyTranscriptCap {
			logger.Info("daily transcript cap reached, exiting with no work", "cap", o.cfg.DailyTranscriptCap)
			return result, nil
		}
	}

	topics, err := o.db.Topics().ListActive(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list active topics: %w", err)
	}

	target := o.cfg.TargetRelevant
	processedSinceSweep := 0

	for target <= 0 || result.Relevant < target {
		select {
		case <-ctx.Done():
			result.Cancelled = true
			return result, nil
		default:
		}

		batchSize := o.cfg.MaxWorkers
		if o.cfg.NoParallel {
			batchSize = 1
		}
		if target > 0 {
			if remain := target - result.Relevant; remain < batchSize {
				batchSize = remain
			}
		}
		if batchSize <= 0 {
			break
		}

		outcomes := o.dispatchBatch(ctx, batchSize, topics)
		if len(outcomes) == 0 {
			break // pending queue exhausted
		}
		result.Rounds++

		for _, oc := range outcomes {
			switch oc.outcome {
			case OutcomeRelevant:
				result.Relevant++
			case OutcomeNotRelevant:
				result.NotRelevant++
			case OutcomeFailed:
				result.Failed++
				if oc.err != nil {
					result.Errors = append(result.Errors, oc.err.Error())
				}
			case OutcomeSkipped:
				result.Skipped++
			}
			processedSinceSweep++
			if processedSinceSweep >= 5 {
				processedSinceSweep = 0
				if _, err := o.db.Episodes().ReleaseStuck(ctx, o.cfg.StuckTimeout); err != nil {
					logger.Warn("periodic stuck-sweep failed", "error", err.Error())
				}
			}
		}
	}

	return result, nil
}

type workerResult struct {
	outcome Outcome
	err     error
}

// dispatchBatch runs up to n workers concurrently, each claiming and
// processing exactly one episode, and blocks until all complete (the
// round barrier). A worker that finds the queue empty (ClaimNext
// returns nil) contributes no result, so the returned slice may be
// shorter than n.
func (o *Orchestrator) dispatchBatch(ctx context.Context, n int, topics []core.Topic) []workerResult {
	resultsCh := make(chan *workerResult, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resultsCh <- o.runWorker(ctx, topics)
		}()
	}
	wg.Wait()
	close(resultsCh)

	var out []workerResult
	for r := range resultsCh {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// runWorker claims the next pending episode via an atomic CAS and
// drives it end-to-end: transcript -> score -> optional arc
// extraction. Any client used here (the transcript acquirer, in
// particular) is constructed per-Orchestrator-instance, not shared
// mutable state reused unsafely across goroutines.
func (o *Orchestrator) runWorker(ctx context.Context, topics []core.Topic) *workerResult {
	ep, err := o.db.Episodes().ClaimNext(ctx)
	if err != nil {
		return &workerResult{outcome: OutcomeFailed, err: fmt.Errorf("claim failed: %w", err)}
	}
	if ep == nil {
		return nil // queue empty; this worker slot did no work
	}

	outcome, procErr := o.processEpisode(ctx, ep, topics)
	return &workerResult{outcome: outcome, err: procErr}
}

// processEpisode drives the per-worker transcribe/score/extract
// procedure against an already-claimed (status=processing) episode.
func (o *Orchestrator) processEpisode(ctx context.Context, ep *core.Episode, topics []core.Topic) (Outcome, error) {
	descriptor := core.EpisodeDescriptor{
		EpisodeGUID: ep.EpisodeGUID,
		Title:       ep.Title,
		PublishedAt: ep.PublishedAt,
		Duration:    ep.DurationSeconds,
		ContentURL:  ep.ContentURL,
		ContentKind: ep.ContentKind,
		Description: ep.Description,
	}

	tr := o.acquirer.Acquire(ctx, descriptor)
	switch tr.Kind {
	case transcript.OutcomeNotAvailable:
		ep.Status = core.EpisodeStatusNotRelevant
		ep.LastFailureReason = tr.Reason
		ep.LastFailureAt = time.Now().UTC()
		ep.FailureCount++
		if err := o.db.Episodes().Update(ctx, ep); err != nil {
			return OutcomeFailed, fmt.Errorf("episode %s: failed to persist not_relevant transcript outcome: %w", ep.ID, err)
		}
		return OutcomeNotRelevant, nil

	case transcript.OutcomeTransient:
		ep.Status = core.EpisodeStatusPending
		ep.LastFailureReason = tr.Reason
		ep.LastFailureAt = time.Now().UTC()
		ep.FailureCount++
		if err := o.db.Episodes().Update(ctx, ep); err != nil {
			return OutcomeFailed, fmt.Errorf("episode %s: failed to revert after transient transcript failure: %w", ep.ID, err)
		}
		return OutcomeFailed, fmt.Errorf("episode %s: transient transcript failure: %s", ep.ID, tr.Reason)
	}

	ep.TranscriptText = tr.Text
	ep.TranscriptWords = tr.WordCount
	ep.TranscriptLanguage = tr.Language
	ep.AutoGenerated = tr.AutoGenerated
	ep.TranscribedAt = time.Now().UTC()
	if ep.DurationSeconds == 0 {
		ep.DurationSeconds = transcript.EstimateDurationSeconds(tr.WordCount)
	}
	ep.Status = core.EpisodeStatusTranscribed
	if err := o.db.Episodes().Update(ctx, ep); err != nil {
		return OutcomeFailed, fmt.Errorf("episode %s: failed to persist transcript: %w", ep.ID, err)
	}

	scoreResult := o.scorer.Score(ctx, ep.TranscriptText, topics)
	if !scoreResult.Success {
		// Leave status at transcribed so a retry does not re-transcribe.
		return OutcomeFailed, fmt.Errorf("episode %s: scoring failed: %s", ep.ID, scoreResult.ErrorMessage)
	}

	ep.Scores = scoreResult.Scores
	ep.ScoredAt = time.Now().UTC()
	isRelevant := relevance.IsRelevant(ep.Scores, o.cfg.ScoreThreshold)
	if isRelevant {
		ep.Status = core.EpisodeStatusScored
	} else {
		ep.Status = core.EpisodeStatusNotRelevant
	}
	if err := o.db.Episodes().Update(ctx, ep); err != nil {
		return OutcomeFailed, fmt.Errorf("episode %s: failed to persist scores: %w", ep.ID, err)
	}

	if !isRelevant {
		return OutcomeNotRelevant, nil
	}

	if err := o.extractArcs(ctx, ep, topics); err != nil {
		logger.Warn("arc extraction failed for relevant episode", "episode_id", ep.ID, "error", err.Error())
	}

	return OutcomeRelevant, nil
}

// extractArcs runs story-arc extraction for every topic on ep that
// has tracking enabled and scored at or above the relevance threshold.
func (o *Orchestrator) extractArcs(ctx context.Context, ep *core.Episode, topics []core.Topic) error {
	relevantTopics := relevance.RelevantTopics(ep.Scores, o.cfg.ScoreThreshold)
	relevantSet := make(map[string]struct{}, len(relevantTopics))
	for _, t := range relevantTopics {
		relevantSet[t] = struct{}{}
	}

	var firstErr error
	for _, topic := range topics {
		if !topic.EnableTopicTracking {
			continue
		}
		if _, ok := relevantSet[topic.Name]; !ok {
			continue
		}

		activeArcs, err := o.arcs.ActiveArcs(ctx, topic.Name, o.cfg.ArcRetentionDays)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("topic %q: failed to load active arcs: %w", topic.Name, err)
			}
			continue
		}

		eventsByArc := make(map[string][]core.StoryArcEvent, len(activeArcs))
		for _, arc := range activeArcs {
			events, err := o.db.StoryArcs().ListEvents(ctx, arc.ID)
			if err != nil {
				continue
			}
			eventsByArc[arc.ID] = events
		}
		view := storyarc.RenderActiveArcsView(activeArcs, eventsByArc, maxArcsInPrompt, maxEventsPerArcInPrompt)

		result, err := o.extractor.Extract(ctx, ep.Title, topic.Name, ep.TranscriptText, view)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("topic %q: extraction failed: %w", topic.Name, err)
			}
			continue
		}

		if _, err := o.arcs.ApplyExtraction(ctx, topic.Name, result, ep.ID, ep.FeedID, ep.EpisodeGUID, ep.FeedTitle, ep.Scores[topic.Name], ep.PublishedAt, o.cfg.MaxEventsPerArc); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("topic %q: failed to apply extraction: %w", topic.Name, err)
			}
			continue
		}
	}
	return firstErr
}

func startOfLocalDay() time.Time {
	now := time.Now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}
