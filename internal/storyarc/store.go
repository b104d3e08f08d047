// Package storyarc implements the story-arc extractor and arc store:
// the evolving, multi-source narrative timelines the pipeline tracks
// per digest topic.
//
// Grounded on original_source/src/topic_tracking/topic_extractor.py
// for the extraction contract (functional categories, perspective
// enum, continuing/new schema, active-arcs prompt rendering) and on
// an existing internal/persistence/postgres.go transaction idiom in
// this codebase for the store's atomic event-append + counter-refresh
// + prune sequence.
package storyarc

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/persistence"
)

// Store wraps the StoryArc/StoryArcEvent repositories with
// get-or-create, event-append, and pruning semantics.
type Store struct {
	db persistence.Database
}

// NewStore constructs a Store over the shared database handle.
func NewStore(db persistence.Database) *Store {
	return &Store{db: db}
}

// GetOrCreateArc resolves (arc_name, digest_topic) to an arc,
// creating one if it doesn't exist. An existing arc is returned
// untouched: its category is not overwritten by this call.
func (s *Store) GetOrCreateArc(ctx context.Context, arcName, digestTopic string, category core.FunctionalCategory, initialEvent *core.StoryArcEvent) (*core.StoryArc, error) {
	slug := Slugify(arcName)

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := tx.StoryArcs().GetBySlug(ctx, digestTopic, slug)
	if err == nil && existing != nil {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return existing, nil
	}

	now := time.Now().UTC()
	arc := &core.StoryArc{
		ID:                 uuid.NewString(),
		ArcName:            arcName,
		ArcSlug:            slug,
		FunctionalCategory: category,
		DigestTopic:        digestTopic,
		StartedAt:          now,
		LastUpdatedAt:      now,
	}
	if err := tx.StoryArcs().Create(ctx, arc); err != nil {
		return nil, fmt.Errorf("failed to create story arc: %w", err)
	}

	if initialEvent != nil {
		if err := s.appendEventTx(ctx, tx, arc, initialEvent, 0); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return arc, nil
}

// AddEvent appends event to arc, recomputes event_count/source_count,
// advances last_updated_at, and prunes down to maxEventsPerArc, all
// within one transaction.
func (s *Store) AddEvent(ctx context.Context, arcID string, event *core.StoryArcEvent, maxEventsPerArc int) (*core.StoryArcEvent, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	arc, err := tx.StoryArcs().GetByID(ctx, arcID)
	if err != nil {
		return nil, fmt.Errorf("failed to load arc %s: %w", arcID, err)
	}
	if err := s.appendEventTx(ctx, tx, arc, event, maxEventsPerArc); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return event, nil
}

// appendEventTx performs the insert + recompute + prune sequence
// against an already-open transaction, shared by GetOrCreateArc's
// initial-event path and AddEvent.
func (s *Store) appendEventTx(ctx context.Context, tx persistence.Transaction, arc *core.StoryArc, event *core.StoryArcEvent, maxEventsPerArc int) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.StoryArcID = arc.ID
	if event.ExtractedAt.IsZero() {
		event.ExtractedAt = time.Now().UTC()
	}

	if err := tx.StoryArcs().AddEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to add event: %w", err)
	}

	events, err := tx.StoryArcs().ListEvents(ctx, arc.ID)
	if err != nil {
		return fmt.Errorf("failed to list events for recompute: %w", err)
	}

	if maxEventsPerArc > 0 && len(events) > maxEventsPerArc {
		if err := tx.StoryArcs().PruneEvents(ctx, arc.ID, maxEventsPerArc); err != nil {
			return fmt.Errorf("failed to prune events: %w", err)
		}
		events, err = tx.StoryArcs().ListEvents(ctx, arc.ID)
		if err != nil {
			return fmt.Errorf("failed to list events after prune: %w", err)
		}
	}

	sources := map[string]struct{}{}
	for _, ev := range events {
		if ev.SourceFeedID != "" {
			sources[ev.SourceFeedID] = struct{}{}
		}
	}
	arc.EventCount = len(events)
	arc.SourceCount = len(sources)
	if event.EventDate.After(arc.LastUpdatedAt) || arc.LastUpdatedAt.IsZero() {
		arc.LastUpdatedAt = event.EventDate
	}

	if err := tx.StoryArcs().Update(ctx, arc); err != nil {
		return fmt.Errorf("failed to update arc counters: %w", err)
	}
	return nil
}

// ActiveArcs returns arcs for digestTopic last updated within
// retentionDays, newest first.
func (s *Store) ActiveArcs(ctx context.Context, digestTopic string, retentionDays int) ([]core.StoryArc, error) {
	since := time.Now().AddDate(0, 0, -retentionDays)
	return s.db.StoryArcs().ListActive(ctx, digestTopic, since)
}

// ArcsForDigest returns arcs not yet included in a digest that have at
// least minEvents events, sorted by (event_count desc, source_count
// desc). It applies no retention window: an arc of any age qualifies.
func (s *Store) ArcsForDigest(ctx context.Context, digestTopic string, minEvents int) ([]core.StoryArc, error) {
	arcs, err := s.db.StoryArcs().ListUndigested(ctx, digestTopic)
	if err != nil {
		return nil, err
	}
	var filtered []core.StoryArc
	for _, a := range arcs {
		if a.EventCount >= minEvents {
			filtered = append(filtered, a)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].EventCount != filtered[j].EventCount {
			return filtered[i].EventCount > filtered[j].EventCount
		}
		return filtered[i].SourceCount > filtered[j].SourceCount
	})
	return filtered, nil
}

// MarkIncluded records that arcID was included in issueID's digest.
func (s *Store) MarkIncluded(ctx context.Context, arcID, issueID string) error {
	return s.db.StoryArcs().MarkIncluded(ctx, arcID, issueID)
}

// CleanupOld deletes arcs inactive for more than retentionDays days.
func (s *Store) CleanupOld(ctx context.Context, retentionDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return s.db.StoryArcs().CleanupOld(ctx, cutoff)
}

// ApplyExtraction reconciles one episode's ExtractResult against the
// store: every event is resolved to an arc by slug match regardless of
// which bucket the model placed it in, since the model's own
// continuing/new split is advisory, not authoritative. A "new" entry
// whose slug collides with an existing arc becomes a continuation of
// that arc; a "continuing" entry whose arc_name doesn't resolve is
// treated as a new arc. sourceEpisodeID/sourceFeedID/sourceName/
// relevanceScore are stamped onto every resulting event.
func (s *Store) ApplyExtraction(ctx context.Context, digestTopic string, result ExtractResult, sourceEpisodeID, sourceFeedID, sourceEpisodeGUID, sourceName string, relevanceScore float64, eventDate time.Time, maxEventsPerArc int) ([]core.StoryArc, error) {
	var touched []core.StoryArc
	all := append(append([]ArcEvent{}, result.Continuing...), result.New...)

	for _, ev := range all {
		event := &core.StoryArcEvent{
			EventDate:         eventDate,
			EventSummary:      ev.EventSummary,
			KeyPoints:         ev.KeyPoints,
			SourceFeedID:      sourceFeedID,
			SourceEpisodeID:   sourceEpisodeID,
			SourceEpisodeGUID: sourceEpisodeGUID,
			SourceName:        sourceName,
			Perspective:       ev.Perspective,
			RelevanceScore:    relevanceScore,
		}

		arc, err := s.GetOrCreateArc(ctx, ev.ArcName, digestTopic, ev.Category, nil)
		if err != nil {
			return touched, fmt.Errorf("failed to resolve arc %q: %w", ev.ArcName, err)
		}

		if _, err := s.AddEvent(ctx, arc.ID, event, maxEventsPerArc); err != nil {
			return touched, fmt.Errorf("failed to add event to arc %q: %w", ev.ArcName, err)
		}

		refreshed, err := s.db.StoryArcs().GetByID(ctx, arc.ID)
		if err != nil {
			return touched, fmt.Errorf("failed to reload arc %q: %w", ev.ArcName, err)
		}
		touched = append(touched, *refreshed)
	}

	return touched, nil
}

// RenderActiveArcsView produces the plain-text active-arcs block fed
// into the extraction prompt: up to maxArcs arcs, each with its
// category, dates, source count, and up to maxEventsPerArc most recent
// events, formatted so the LLM can reference arc_names verbatim.
func RenderActiveArcsView(arcs []core.StoryArc, eventsByArc map[string][]core.StoryArcEvent, maxArcs, maxEventsPerArc int) string {
	if len(arcs) == 0 {
		return ""
	}
	if len(arcs) > maxArcs {
		arcs = arcs[:maxArcs]
	}

	var b strings.Builder
	for _, arc := range arcs {
		fmt.Fprintf(&b, "STORY ARC: %s\n", arc.ArcName)
		fmt.Fprintf(&b, "  Category: %s | Started: %s | Last updated: %s | Sources: %d\n",
			arc.FunctionalCategory, arc.StartedAt.Format("2006-01-02"),
			arc.LastUpdatedAt.Format("2006-01-02"), arc.SourceCount)

		events := eventsByArc[arc.ID]
		if len(events) > maxEventsPerArc {
			events = events[len(events)-maxEventsPerArc:]
		}
		for _, ev := range events {
			fmt.Fprintf(&b, "  - [%s] %s\n", ev.EventDate.Format("2006-01-02"), ev.EventSummary)
		}
		b.WriteString("\n")
	}
	return b.String()
}
