package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"
)

func marshalScores(scores map[string]float64) ([]byte, error) {
	if scores == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(scores)
}

func unmarshalScores(data []byte, out *map[string]float64) error {
	return json.Unmarshal(data, out)
}

func marshalStrings(items []string) ([]byte, error) {
	if items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(items)
}

func unmarshalStrings(data []byte, out *[]string) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// --- Topic ---

type postgresTopicRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresTopicRepo) query() execer {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const topicColumns = `id, slug, name, description, is_active, enable_topic_tracking, sort_order`

func (r *postgresTopicRepo) Get(ctx context.Context, id string) (*core.Topic, error) {
	row := r.query().QueryRowContext(ctx, `SELECT `+topicColumns+` FROM topics WHERE id = $1`, id)
	return scanTopic(row)
}

func (r *postgresTopicRepo) GetBySlug(ctx context.Context, slug string) (*core.Topic, error) {
	row := r.query().QueryRowContext(ctx, `SELECT `+topicColumns+` FROM topics WHERE slug = $1`, slug)
	return scanTopic(row)
}

func (r *postgresTopicRepo) ListActive(ctx context.Context) ([]core.Topic, error) {
	rows, err := r.query().QueryContext(ctx, `
		SELECT `+topicColumns+` FROM topics WHERE is_active = true ORDER BY sort_order`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTopics(rows)
}

func (r *postgresTopicRepo) List(ctx context.Context) ([]core.Topic, error) {
	rows, err := r.query().QueryContext(ctx, `SELECT `+topicColumns+` FROM topics ORDER BY sort_order`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTopics(rows)
}

func scanTopic(row *sql.Row) (*core.Topic, error) {
	var t core.Topic
	err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.Description, &t.IsActive, &t.EnableTopicTracking, &t.SortOrder)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("topic not found")
		}
		return nil, err
	}
	return &t, nil
}

func scanTopics(rows *sql.Rows) ([]core.Topic, error) {
	var out []core.Topic
	for rows.Next() {
		var t core.Topic
		if err := rows.Scan(&t.ID, &t.Slug, &t.Name, &t.Description, &t.IsActive, &t.EnableTopicTracking, &t.SortOrder); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- StoryArc / StoryArcEvent ---

type postgresStoryArcRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresStoryArcRepo) query() execer {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const storyArcColumns = `
	id, arc_name, arc_slug, functional_category, digest_topic, started_at,
	last_updated_at, event_count, source_count, included_in_digest_id, included_at`

func (r *postgresStoryArcRepo) GetByID(ctx context.Context, id string) (*core.StoryArc, error) {
	row := r.query().QueryRowContext(ctx, `SELECT `+storyArcColumns+` FROM story_arcs WHERE id = $1`, id)
	return scanStoryArc(row)
}

func (r *postgresStoryArcRepo) GetBySlug(ctx context.Context, digestTopic, arcSlug string) (*core.StoryArc, error) {
	row := r.query().QueryRowContext(ctx, `
		SELECT `+storyArcColumns+` FROM story_arcs WHERE digest_topic = $1 AND arc_slug = $2`,
		digestTopic, arcSlug)
	return scanStoryArc(row)
}

func (r *postgresStoryArcRepo) Create(ctx context.Context, arc *core.StoryArc) error {
	_, err := r.query().ExecContext(ctx, `
		INSERT INTO story_arcs (`+storyArcColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		arc.ID, arc.ArcName, arc.ArcSlug, arc.FunctionalCategory, arc.DigestTopic,
		arc.StartedAt, arc.LastUpdatedAt, arc.EventCount, arc.SourceCount,
		nullString(arc.IncludedInDigestID), nullTime(arc.IncludedAt))
	return err
}

func (r *postgresStoryArcRepo) Update(ctx context.Context, arc *core.StoryArc) error {
	_, err := r.query().ExecContext(ctx, `
		UPDATE story_arcs SET
			arc_name = $2, last_updated_at = $3, event_count = $4, source_count = $5
		WHERE id = $1`,
		arc.ID, arc.ArcName, arc.LastUpdatedAt, arc.EventCount, arc.SourceCount)
	return err
}

func (r *postgresStoryArcRepo) ListActive(ctx context.Context, digestTopic string, since time.Time) ([]core.StoryArc, error) {
	rows, err := r.query().QueryContext(ctx, `
		SELECT `+storyArcColumns+` FROM story_arcs
		WHERE digest_topic = $1 AND last_updated_at >= $2 AND included_in_digest_id IS NULL
		ORDER BY last_updated_at DESC`, digestTopic, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStoryArcs(rows)
}

func (r *postgresStoryArcRepo) ListUndigested(ctx context.Context, digestTopic string) ([]core.StoryArc, error) {
	rows, err := r.query().QueryContext(ctx, `
		SELECT `+storyArcColumns+` FROM story_arcs
		WHERE digest_topic = $1 AND included_in_digest_id IS NULL
		ORDER BY source_count DESC, last_updated_at DESC`, digestTopic)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStoryArcs(rows)
}

func (r *postgresStoryArcRepo) MarkIncluded(ctx context.Context, arcID, issueID string) error {
	_, err := r.query().ExecContext(ctx, `
		UPDATE story_arcs SET included_in_digest_id = $2, included_at = now() WHERE id = $1`,
		arcID, issueID)
	return err
}

func (r *postgresStoryArcRepo) AddEvent(ctx context.Context, ev *core.StoryArcEvent) error {
	keyPointsJSON, err := marshalStrings(ev.KeyPoints)
	if err != nil {
		return err
	}
	_, err = r.query().ExecContext(ctx, `
		INSERT INTO story_arc_events (
			id, story_arc_id, event_date, event_summary, key_points,
			source_feed_id, source_episode_id, source_episode_guid, source_name,
			perspective, relevance_score, extracted_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		ev.ID, ev.StoryArcID, ev.EventDate, ev.EventSummary, keyPointsJSON,
		ev.SourceFeedID, ev.SourceEpisodeID, ev.SourceEpisodeGUID, ev.SourceName,
		ev.Perspective, ev.RelevanceScore, ev.ExtractedAt)
	return err
}

func (r *postgresStoryArcRepo) ListEvents(ctx context.Context, arcID string) ([]core.StoryArcEvent, error) {
	rows, err := r.query().QueryContext(ctx, `
		SELECT id, story_arc_id, event_date, event_summary, key_points,
			source_feed_id, source_episode_id, source_episode_guid, source_name,
			perspective, relevance_score, extracted_at
		FROM story_arc_events WHERE story_arc_id = $1 ORDER BY event_date ASC`, arcID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.StoryArcEvent
	for rows.Next() {
		var ev core.StoryArcEvent
		var keyPointsJSON []byte
		if err := rows.Scan(&ev.ID, &ev.StoryArcID, &ev.EventDate, &ev.EventSummary,
			&keyPointsJSON, &ev.SourceFeedID, &ev.SourceEpisodeID, &ev.SourceEpisodeGUID,
			&ev.SourceName, &ev.Perspective, &ev.RelevanceScore, &ev.ExtractedAt); err != nil {
			return nil, err
		}
		if err := unmarshalStrings(keyPointsJSON, &ev.KeyPoints); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// PruneEvents deletes all but the most recent keep events for an arc,
// keeping the events table bounded per arc the way an active-arcs
// prompt rendering needs a small, recent window rather than full history.
// PruneEvents keeps only the keep most recent events by event_date,
// breaking ties by id (smallest id loses).
func (r *postgresStoryArcRepo) PruneEvents(ctx context.Context, arcID string, keep int) error {
	_, err := r.query().ExecContext(ctx, `
		DELETE FROM story_arc_events
		WHERE story_arc_id = $1 AND id NOT IN (
			SELECT id FROM story_arc_events
			WHERE story_arc_id = $1
			ORDER BY event_date DESC, id DESC
			LIMIT $2
		)`, arcID, keep)
	return err
}

// CleanupOld deletes arcs last updated before cutoff; story_arc_events
// cascades via its FK's ON DELETE CASCADE.
func (r *postgresStoryArcRepo) CleanupOld(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.query().ExecContext(ctx, `DELETE FROM story_arcs WHERE last_updated_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanStoryArc(row *sql.Row) (*core.StoryArc, error) {
	var a core.StoryArc
	var includedInDigestID sql.NullString
	var includedAt sql.NullTime
	err := row.Scan(&a.ID, &a.ArcName, &a.ArcSlug, &a.FunctionalCategory, &a.DigestTopic,
		&a.StartedAt, &a.LastUpdatedAt, &a.EventCount, &a.SourceCount,
		&includedInDigestID, &includedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("story arc not found")
		}
		return nil, err
	}
	a.IncludedInDigestID = includedInDigestID.String
	a.IncludedAt = includedAt.Time
	return &a, nil
}

func scanStoryArcs(rows *sql.Rows) ([]core.StoryArc, error) {
	var out []core.StoryArc
	for rows.Next() {
		var a core.StoryArc
		var includedInDigestID sql.NullString
		var includedAt sql.NullTime
		if err := rows.Scan(&a.ID, &a.ArcName, &a.ArcSlug, &a.FunctionalCategory, &a.DigestTopic,
			&a.StartedAt, &a.LastUpdatedAt, &a.EventCount, &a.SourceCount,
			&includedInDigestID, &includedAt); err != nil {
			return nil, err
		}
		a.IncludedInDigestID = includedInDigestID.String
		a.IncludedAt = includedAt.Time
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// --- EpisodeTopic (legacy, consumed by the dedup pass) ---

type postgresEpisodeTopicRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresEpisodeTopicRepo) query() execer {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresEpisodeTopicRepo) Create(ctx context.Context, et *core.EpisodeTopic) error {
	keyPointsJSON, err := marshalStrings(et.KeyPoints)
	if err != nil {
		return err
	}
	_, err = r.query().ExecContext(ctx, `
		INSERT INTO episode_topics (
			id, episode_id, topic_slug, topic_name, key_points, digest_topic,
			relevance_score, first_mentioned_at, last_mentioned_at, mention_count
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		et.ID, et.EpisodeID, et.TopicSlug, et.TopicName, keyPointsJSON, et.DigestTopic,
		et.RelevanceScore, et.FirstMentionedAt, et.LastMentionedAt, et.MentionCount)
	return err
}

func (r *postgresEpisodeTopicRepo) ListByDigestTopic(ctx context.Context, digestTopic string, since time.Time) ([]core.EpisodeTopic, error) {
	rows, err := r.query().QueryContext(ctx, `
		SELECT id, episode_id, topic_slug, topic_name, key_points, digest_topic,
			relevance_score, first_mentioned_at, last_mentioned_at, mention_count
		FROM episode_topics WHERE digest_topic = $1 AND last_mentioned_at >= $2
		ORDER BY last_mentioned_at DESC`, digestTopic, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.EpisodeTopic
	for rows.Next() {
		var et core.EpisodeTopic
		var keyPointsJSON []byte
		if err := rows.Scan(&et.ID, &et.EpisodeID, &et.TopicSlug, &et.TopicName, &keyPointsJSON,
			&et.DigestTopic, &et.RelevanceScore, &et.FirstMentionedAt, &et.LastMentionedAt,
			&et.MentionCount); err != nil {
			return nil, err
		}
		if err := unmarshalStrings(keyPointsJSON, &et.KeyPoints); err != nil {
			return nil, err
		}
		out = append(out, et)
	}
	return out, rows.Err()
}

// MergeInto folds mergedIDs' mention counts into survivorID and deletes
// the merged rows, per the dedup pass's consolidation contract.
func (r *postgresEpisodeTopicRepo) MergeInto(ctx context.Context, survivorID string, mergedIDs []string) error {
	if len(mergedIDs) == 0 {
		return nil
	}
	for _, id := range mergedIDs {
		if _, err := r.query().ExecContext(ctx, `
			UPDATE episode_topics SET mention_count = mention_count + (
				SELECT mention_count FROM episode_topics WHERE id = $2
			) WHERE id = $1`, survivorID, id); err != nil {
			return err
		}
		if _, err := r.query().ExecContext(ctx, `DELETE FROM episode_topics WHERE id = $1`, id); err != nil {
			return err
		}
	}
	return nil
}

// UpdateKeyPoints overwrites id's key_points column, used by the dedup
// pass once it has merged unique points from absorbed duplicates into
// the surviving row.
func (r *postgresEpisodeTopicRepo) UpdateKeyPoints(ctx context.Context, id string, keyPoints []string) error {
	keyPointsJSON, err := marshalStrings(keyPoints)
	if err != nil {
		return err
	}
	_, err = r.query().ExecContext(ctx, `UPDATE episode_topics SET key_points = $2 WHERE id = $1`, id, keyPointsJSON)
	return err
}

// --- Newsletter ---

type postgresNewsletterRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresNewsletterRepo) query() execer {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresNewsletterRepo) CreateIssue(ctx context.Context, issue *core.NewsletterIssue, examples []core.NewsletterExample) error {
	_, err := r.query().ExecContext(ctx, `
		INSERT INTO newsletter_issues (id, issue_date, subject_line, big_news_summary, generated_at, sent_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		issue.ID, issue.IssueDate, issue.SubjectLine, nullString(issue.BigNewsSummary),
		issue.GeneratedAt, nullTime(issue.SentAt))
	if err != nil {
		return fmt.Errorf("failed to create newsletter issue: %w", err)
	}
	for _, ex := range examples {
		if _, err := r.query().ExecContext(ctx, `
			INSERT INTO newsletter_examples (
				id, issue_id, position, title, description, how_to_replicate,
				why_useful, source_episode_id, source_title, source_url
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			ex.ID, issue.ID, ex.Position, ex.Title, ex.Description, ex.HowToReplicate,
			ex.WhyUseful, ex.SourceEpisodeID, ex.SourceTitle, ex.SourceURL); err != nil {
			return fmt.Errorf("failed to create newsletter example: %w", err)
		}
	}
	return nil
}

func (r *postgresNewsletterRepo) GetIssue(ctx context.Context, id string) (*core.NewsletterIssue, error) {
	row := r.query().QueryRowContext(ctx, `
		SELECT id, issue_date, subject_line, big_news_summary, generated_at, sent_at
		FROM newsletter_issues WHERE id = $1`, id)
	return scanNewsletterIssue(row)
}

func (r *postgresNewsletterRepo) GetIssueWithExamples(ctx context.Context, id string) (*core.NewsletterIssue, []core.NewsletterExample, error) {
	issue, err := r.GetIssue(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rows, err := r.query().QueryContext(ctx, `
		SELECT id, issue_id, position, title, description, how_to_replicate,
			why_useful, source_episode_id, source_title, source_url
		FROM newsletter_examples WHERE issue_id = $1 ORDER BY position ASC`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var examples []core.NewsletterExample
	for rows.Next() {
		var ex core.NewsletterExample
		if err := rows.Scan(&ex.ID, &ex.IssueID, &ex.Position, &ex.Title, &ex.Description,
			&ex.HowToReplicate, &ex.WhyUseful, &ex.SourceEpisodeID, &ex.SourceTitle, &ex.SourceURL); err != nil {
			return nil, nil, err
		}
		examples = append(examples, ex)
	}
	return issue, examples, rows.Err()
}

func (r *postgresNewsletterRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	_, err := r.query().ExecContext(ctx, `UPDATE newsletter_issues SET sent_at = $2 WHERE id = $1`, id, sentAt)
	return err
}

func (r *postgresNewsletterRepo) ListSince(ctx context.Context, since time.Time) ([]core.NewsletterIssue, error) {
	rows, err := r.query().QueryContext(ctx, `
		SELECT id, issue_date, subject_line, big_news_summary, generated_at, sent_at
		FROM newsletter_issues WHERE issue_date >= $1 ORDER BY issue_date DESC`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.NewsletterIssue
	for rows.Next() {
		var i core.NewsletterIssue
		var bigNews sql.NullString
		var sentAt sql.NullTime
		if err := rows.Scan(&i.ID, &i.IssueDate, &i.SubjectLine, &bigNews, &i.GeneratedAt, &sentAt); err != nil {
			return nil, err
		}
		i.BigNewsSummary = bigNews.String
		i.SentAt = sentAt.Time
		out = append(out, i)
	}
	return out, rows.Err()
}

// DeleteOlderThan cascades to newsletter_examples via foreign key
// ON DELETE CASCADE, per the retention policy's cleanup contract.
func (r *postgresNewsletterRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.query().ExecContext(ctx, `DELETE FROM newsletter_issues WHERE issue_date < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanNewsletterIssue(row *sql.Row) (*core.NewsletterIssue, error) {
	var i core.NewsletterIssue
	var bigNews sql.NullString
	var sentAt sql.NullTime
	err := row.Scan(&i.ID, &i.IssueDate, &i.SubjectLine, &bigNews, &i.GeneratedAt, &sentAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("newsletter issue not found")
		}
		return nil, err
	}
	i.BigNewsSummary = bigNews.String
	i.SentAt = sentAt.Time
	return &i, nil
}

// --- PipelineRun ---

type postgresPipelineRunRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresPipelineRunRepo) query() execer {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresPipelineRunRepo) Upsert(ctx context.Context, run *core.PipelineRun) error {
	_, err := r.query().ExecContext(ctx, `
		INSERT INTO pipeline_runs (
			run_id, workflow_name, trigger, status, conclusion, started_at,
			finished_at, phase, notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (run_id) DO UPDATE SET
			status = EXCLUDED.status, conclusion = EXCLUDED.conclusion,
			finished_at = EXCLUDED.finished_at, phase = EXCLUDED.phase,
			notes = EXCLUDED.notes`,
		run.RunID, run.WorkflowName, run.Trigger, run.Status, nullString(string(run.Conclusion)),
		run.StartedAt, nullTime(run.FinishedAt), run.Phase, run.Notes)
	return err
}

func (r *postgresPipelineRunRepo) Get(ctx context.Context, runID string) (*core.PipelineRun, error) {
	row := r.query().QueryRowContext(ctx, `
		SELECT run_id, workflow_name, trigger, status, conclusion, started_at,
			finished_at, phase, notes
		FROM pipeline_runs WHERE run_id = $1`, runID)
	return scanPipelineRun(row)
}

func (r *postgresPipelineRunRepo) ListRecent(ctx context.Context, limit int) ([]core.PipelineRun, error) {
	if limit == 0 {
		limit = 20
	}
	rows, err := r.query().QueryContext(ctx, `
		SELECT run_id, workflow_name, trigger, status, conclusion, started_at,
			finished_at, phase, notes
		FROM pipeline_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.PipelineRun
	for rows.Next() {
		run, err := scanPipelineRunRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

func scanPipelineRun(row *sql.Row) (*core.PipelineRun, error) {
	var run core.PipelineRun
	var conclusion sql.NullString
	var finishedAt sql.NullTime
	err := row.Scan(&run.RunID, &run.WorkflowName, &run.Trigger, &run.Status, &conclusion,
		&run.StartedAt, &finishedAt, &run.Phase, &run.Notes)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("pipeline run not found")
		}
		return nil, err
	}
	run.Conclusion = core.PipelineRunConclusion(conclusion.String)
	run.FinishedAt = finishedAt.Time
	return &run, nil
}

func scanPipelineRunRow(rows *sql.Rows) (*core.PipelineRun, error) {
	var run core.PipelineRun
	var conclusion sql.NullString
	var finishedAt sql.NullTime
	err := rows.Scan(&run.RunID, &run.WorkflowName, &run.Trigger, &run.Status, &conclusion,
		&run.StartedAt, &finishedAt, &run.Phase, &run.Notes)
	if err != nil {
		return nil, err
	}
	run.Conclusion = core.PipelineRunConclusion(conclusion.String)
	run.FinishedAt = finishedAt.Time
	return &run, nil
}

// --- Settings ---

type postgresSettingsRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresSettingsRepo) query() execer {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresSettingsRepo) Get(ctx context.Context, category, key string) (string, bool, error) {
	var value string
	err := r.query().QueryRowContext(ctx, `
		SELECT value FROM web_settings WHERE category = $1 AND key = $2`, category, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *postgresSettingsRepo) Set(ctx context.Context, category, key, value string) error {
	_, err := r.query().ExecContext(ctx, `
		INSERT INTO web_settings (category, key, value, updated_at)
		VALUES ($1,$2,$3,now())
		ON CONFLICT (category, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		category, key, value)
	return err
}

func (r *postgresSettingsRepo) ListCategory(ctx context.Context, category string) (map[string]string, error) {
	rows, err := r.query().QueryContext(ctx, `
		SELECT key, value FROM web_settings WHERE category = $1`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
