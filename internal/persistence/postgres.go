package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"

	_ "github.com/lib/pq" // Postgres driver
)

// PostgresDB implements Database for PostgreSQL.
type PostgresDB struct {
	db           *sql.DB
	feeds        FeedRepository
	episodes     EpisodeRepository
	topics       TopicRepository
	storyArcs    StoryArcRepository
	episodeTopics EpisodeTopicRepository
	newsletters  NewsletterRepository
	pipelineRuns PipelineRunRepository
	settings     SettingsRepository
}

// NewPostgresDB opens a pooled connection and verifies it with a ping.
func NewPostgresDB(connectionString string, maxOpenConns, maxIdleConns int) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if maxOpenConns <= 0 {
		maxOpenConns = 25
	}
	if maxIdleConns <= 0 {
		maxIdleConns = 5
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pg := &PostgresDB{db: db}
	pg.feeds = &postgresFeedRepo{db: db}
	pg.episodes = &postgresEpisodeRepo{db: db}
	pg.topics = &postgresTopicRepo{db: db}
	pg.storyArcs = &postgresStoryArcRepo{db: db}
	pg.episodeTopics = &postgresEpisodeTopicRepo{db: db}
	pg.newsletters = &postgresNewsletterRepo{db: db}
	pg.pipelineRuns = &postgresPipelineRunRepo{db: db}
	pg.settings = &postgresSettingsRepo{db: db}
	return pg, nil
}

func (p *PostgresDB) Feeds() FeedRepository                 { return p.feeds }
func (p *PostgresDB) Episodes() EpisodeRepository            { return p.episodes }
func (p *PostgresDB) Topics() TopicRepository                { return p.topics }
func (p *PostgresDB) StoryArcs() StoryArcRepository          { return p.storyArcs }
func (p *PostgresDB) EpisodeTopics() EpisodeTopicRepository  { return p.episodeTopics }
func (p *PostgresDB) Newsletters() NewsletterRepository      { return p.newsletters }
func (p *PostgresDB) PipelineRuns() PipelineRunRepository    { return p.pipelineRuns }
func (p *PostgresDB) Settings() SettingsRepository           { return p.settings }

func (p *PostgresDB) Close() error { return p.db.Close() }

func (p *PostgresDB) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *PostgresDB) BeginTx(ctx context.Context) (Transaction, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &postgresTx{
		tx:            tx,
		feeds:         &postgresFeedRepo{db: p.db, tx: tx},
		episodes:      &postgresEpisodeRepo{db: p.db, tx: tx},
		storyArcs:     &postgresStoryArcRepo{db: p.db, tx: tx},
		episodeTopics: &postgresEpisodeTopicRepo{db: p.db, tx: tx},
		newsletters:   &postgresNewsletterRepo{db: p.db, tx: tx},
	}, nil
}

type postgresTx struct {
	tx            *sql.Tx
	feeds         FeedRepository
	episodes      EpisodeRepository
	storyArcs     StoryArcRepository
	episodeTopics EpisodeTopicRepository
	newsletters   NewsletterRepository
}

func (t *postgresTx) Commit() error                         { return t.tx.Commit() }
func (t *postgresTx) Rollback() error                       { return t.tx.Rollback() }
func (t *postgresTx) Feeds() FeedRepository                 { return t.feeds }
func (t *postgresTx) Episodes() EpisodeRepository           { return t.episodes }
func (t *postgresTx) StoryArcs() StoryArcRepository         { return t.storyArcs }
func (t *postgresTx) EpisodeTopics() EpisodeTopicRepository { return t.episodeTopics }
func (t *postgresTx) Newsletters() NewsletterRepository     { return t.newsletters }

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// --- Feed ---

type postgresFeedRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresFeedRepo) query() execer {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *postgresFeedRepo) Create(ctx context.Context, f *core.Feed) error {
	_, err := r.query().ExecContext(ctx, `
		INSERT INTO feeds (id, url, title, active, date_added)
		VALUES ($1, $2, $3, $4, $5)`,
		f.ID, f.URL, f.Title, f.Active, f.DateAdded)
	return err
}

func (r *postgresFeedRepo) Get(ctx context.Context, id string) (*core.Feed, error) {
	row := r.query().QueryRowContext(ctx, `
		SELECT id, url, title, active, date_added FROM feeds WHERE id = $1`, id)
	return scanFeed(row)
}

func (r *postgresFeedRepo) GetByURL(ctx context.Context, url string) (*core.Feed, error) {
	row := r.query().QueryRowContext(ctx, `
		SELECT id, url, title, active, date_added FROM feeds WHERE url = $1`, url)
	return scanFeed(row)
}

func (r *postgresFeedRepo) ListActive(ctx context.Context) ([]core.Feed, error) {
	rows, err := r.query().QueryContext(ctx, `
		SELECT id, url, title, active, date_added FROM feeds WHERE active = true ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFeeds(rows)
}

func (r *postgresFeedRepo) List(ctx context.Context, opts ListOptions) ([]core.Feed, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = 200
	}
	rows, err := r.query().QueryContext(ctx, `
		SELECT id, url, title, active, date_added FROM feeds
		ORDER BY date_added DESC LIMIT $1 OFFSET $2`, limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFeeds(rows)
}

func (r *postgresFeedRepo) Update(ctx context.Context, f *core.Feed) error {
	_, err := r.query().ExecContext(ctx, `
		UPDATE feeds SET url = $2, title = $3, active = $4 WHERE id = $1`,
		f.ID, f.URL, f.Title, f.Active)
	return err
}

func (r *postgresFeedRepo) Delete(ctx context.Context, id string) error {
	_, err := r.query().ExecContext(ctx, `DELETE FROM feeds WHERE id = $1`, id)
	return err
}

func scanFeed(row *sql.Row) (*core.Feed, error) {
	var f core.Feed
	if err := row.Scan(&f.ID, &f.URL, &f.Title, &f.Active, &f.DateAdded); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("feed not found")
		}
		return nil, err
	}
	return &f, nil
}

func scanFeeds(rows *sql.Rows) ([]core.Feed, error) {
	var out []core.Feed
	for rows.Next() {
		var f core.Feed
		if err := rows.Scan(&f.ID, &f.URL, &f.Title, &f.Active, &f.DateAdded); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// --- Episode ---

type postgresEpisodeRepo struct {
	db *sql.DB
	tx *sql.Tx
}

func (r *postgresEpisodeRepo) query() execer {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const episodeColumns = `
	id, feed_id, feed_title, episode_guid, title, published_at, content_url,
	content_kind, duration_seconds, description, transcript_text,
	transcript_words, transcript_language, auto_generated, transcribed_at,
	scores, scored_at, status, failure_count, last_failure_reason,
	last_failure_at, updated_at`

func (r *postgresEpisodeRepo) Create(ctx context.Context, ep *core.Episode) error {
	scoresJSON, err := marshalScores(ep.Scores)
	if err != nil {
		return err
	}
	_, err = r.query().ExecContext(ctx, `
		INSERT INTO episodes (`+episodeColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
		ep.ID, ep.FeedID, ep.FeedTitle, ep.EpisodeGUID, ep.Title, ep.PublishedAt,
		ep.ContentURL, ep.ContentKind, ep.DurationSeconds, ep.Description,
		ep.TranscriptText, ep.TranscriptWords, ep.TranscriptLanguage,
		ep.AutoGenerated, nullTime(ep.TranscribedAt), scoresJSON, nullTime(ep.ScoredAt),
		ep.Status, ep.FailureCount, ep.LastFailureReason, nullTime(ep.LastFailureAt),
		ep.UpdatedAt)
	return err
}

func (r *postgresEpisodeRepo) Get(ctx context.Context, id string) (*core.Episode, error) {
	row := r.query().QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = $1`, id)
	return scanEpisode(row)
}

func (r *postgresEpisodeRepo) GetByFeedAndGUID(ctx context.Context, feedID, guid string) (*core.Episode, error) {
	row := r.query().QueryRowContext(ctx, `
		SELECT `+episodeColumns+` FROM episodes WHERE feed_id = $1 AND episode_guid = $2`, feedID, guid)
	return scanEpisode(row)
}

func (r *postgresEpisodeRepo) Update(ctx context.Context, ep *core.Episode) error {
	scoresJSON, err := marshalScores(ep.Scores)
	if err != nil {
		return err
	}
	_, err = r.query().ExecContext(ctx, `
		UPDATE episodes SET
			title = $2, content_url = $3, content_kind = $4, duration_seconds = $5,
			description = $6, transcript_text = $7, transcript_words = $8,
			transcript_language = $9, auto_generated = $10, transcribed_at = $11,
			scores = $12, scored_at = $13, status = $14, failure_count = $15,
			last_failure_reason = $16, last_failure_at = $17, updated_at = now()
		WHERE id = $1`,
		ep.ID, ep.Title, ep.ContentURL, ep.ContentKind, ep.DurationSeconds,
		ep.Description, ep.TranscriptText, ep.TranscriptWords, ep.TranscriptLanguage,
		ep.AutoGenerated, nullTime(ep.TranscribedAt), scoresJSON, nullTime(ep.ScoredAt),
		ep.Status, ep.FailureCount, ep.LastFailureReason, nullTime(ep.LastFailureAt))
	return err
}

func (r *postgresEpisodeRepo) ListByStatus(ctx context.Context, status core.EpisodeStatus, limit int) ([]core.Episode, error) {
	if limit == 0 {
		limit = 100
	}
	rows, err := r.query().QueryContext(ctx, `
		SELECT `+episodeColumns+` FROM episodes WHERE status = $1
		ORDER BY published_at ASC LIMIT $2`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEpisodes(rows)
}

func (r *postgresEpisodeRepo) ListDigestCandidates(ctx context.Context, since time.Time) ([]core.Episode, error) {
	rows, err := r.query().QueryContext(ctx, `
		SELECT `+episodeColumns+` FROM episodes
		WHERE status = $1 AND scored_at >= $2
		ORDER BY scored_at DESC`, core.EpisodeStatusScored, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEpisodes(rows)
}

// ClaimNext performs a conditional UPDATE ... RETURNING so concurrent
// workers never claim the same pending episode twice.
func (r *postgresEpisodeRepo) ClaimNext(ctx context.Context) (*core.Episode, error) {
	row := r.query().QueryRowContext(ctx, `
		UPDATE episodes SET status = $2, updated_at = now()
		WHERE id = (
			SELECT id FROM episodes
			WHERE status = $1
			ORDER BY published_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+episodeColumns,
		core.EpisodeStatusPending, core.EpisodeStatusProcessing)
	ep, err := scanEpisode(row)
	if err != nil {
		if err.Error() == "episode not found" {
			return nil, nil
		}
		return nil, err
	}
	return ep, nil
}

func (r *postgresEpisodeRepo) ReleaseStuck(ctx context.Context, olderThan time.Duration) (int, error) {
	res, err := r.query().ExecContext(ctx, `
		UPDATE episodes SET status = $1, updated_at = now()
		WHERE status = $2 AND updated_at < $3`,
		core.EpisodeStatusPending, core.EpisodeStatusProcessing, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// CountTranscribedSince counts episodes whose transcript was acquired
// at or after since, used for the daily transcript cap. Status
// is not filtered beyond "transcribed_at is set": an episode that
// later advances to scored/not_relevant/digested still counts, since
// it still consumed a transcript-acquisition slot that day.
func (r *postgresEpisodeRepo) CountTranscribedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.query().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM episodes WHERE transcribed_at IS NOT NULL AND transcribed_at >= $1`,
		since).Scan(&count)
	return count, err
}

func scanEpisode(row *sql.Row) (*core.Episode, error) {
	var ep core.Episode
	var scoresJSON []byte
	var transcribedAt, scoredAt, lastFailureAt sql.NullTime
	err := row.Scan(
		&ep.ID, &ep.FeedID, &ep.FeedTitle, &ep.EpisodeGUID, &ep.Title, &ep.PublishedAt,
		&ep.ContentURL, &ep.ContentKind, &ep.DurationSeconds, &ep.Description,
		&ep.TranscriptText, &ep.TranscriptWords, &ep.TranscriptLanguage,
		&ep.AutoGenerated, &transcribedAt, &scoresJSON, &scoredAt, &ep.Status,
		&ep.FailureCount, &ep.LastFailureReason, &lastFailureAt, &ep.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("episode not found")
		}
		return nil, err
	}
	ep.TranscribedAt = transcribedAt.Time
	ep.ScoredAt = scoredAt.Time
	ep.LastFailureAt = lastFailureAt.Time
	if len(scoresJSON) > 0 {
		if err := unmarshalScores(scoresJSON, &ep.Scores); err != nil {
			return nil, err
		}
	}
	return &ep, nil
}

func scanEpisodes(rows *sql.Rows) ([]core.Episode, error) {
	var out []core.Episode
	for rows.Next() {
		var ep core.Episode
		var scoresJSON []byte
		var transcribedAt, scoredAt, lastFailureAt sql.NullTime
		err := rows.Scan(
			&ep.ID, &ep.FeedID, &ep.FeedTitle, &ep.EpisodeGUID, &ep.Title, &ep.PublishedAt,
			&ep.ContentURL, &ep.ContentKind, &ep.DurationSeconds, &ep.Description,
			&ep.TranscriptText, &ep.TranscriptWords, &ep.TranscriptLanguage,
			&ep.AutoGenerated, &transcribedAt, &scoresJSON, &scoredAt, &ep.Status,
			&ep.FailureCount, &ep.LastFailureReason, &lastFailureAt, &ep.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		ep.TranscribedAt = transcribedAt.Time
		ep.ScoredAt = scoredAt.Time
		ep.LastFailureAt = lastFailureAt.Time
		if len(scoresJSON) > 0 {
			if err := unmarshalScores(scoresJSON, &ep.Scores); err != nil {
				return nil, err
			}
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
