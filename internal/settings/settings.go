// Package settings provides typed access to the web_settings table:
// operator-tunable category/key/value rows that the rest of the pipeline
// reads its thresholds, limits, and toggles from, with defaults for
// every key nothing has set yet.
package settings

import (
	"context"
	"strconv"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/persistence"
)

// Store reads and writes typed settings, falling back to a caller-given
// default when a row is absent.
type Store struct {
	repo persistence.SettingsRepository
}

// New constructs a Store over the given repository.
func New(repo persistence.SettingsRepository) *Store {
	return &Store{repo: repo}
}

// Categories and keys this pipeline reads.
// Other categories/keys may exist in the table for other consumers;
// this module only names the ones the core reads.
const (
	CategoryPipeline                 = "pipeline"
	KeyDiscoveryLookbackDays         = "discovery_lookback_days" // int, default 5
	KeyMaxEpisodesPerRun             = "max_episodes_per_run"    // int, required, no default
	KeyStuckProcessingTimeoutMinutes = "stuck_processing_timeout_minutes" // int, default 10 (open question)
	KeyMaxWorkers                    = "max_workers" // int, default 4, operator override of the process config default
	KeyNewsletterRetentionCount      = "newsletter_retention_count" // int, default 20 (keep_count)

	CategoryYoutube           = "youtube"
	KeyMaxTranscriptsPerDay  = "max_transcripts_per_day" // int, default 7

	CategoryContentFiltering = "content_filtering"
	KeyScoreThreshold        = "score_threshold" // float, default 0.6

	CategoryAudioProcessing          = "audio_processing"
	KeyChunkDurationMinutes         = "chunk_duration_minutes"
	KeyMaxChunksPerEpisode          = "max_chunks_per_episode"
	KeyTranscribeAllChunks          = "transcribe_all_chunks"

	CategoryAIContentScoring   = "ai_content_scoring"
	KeyContentScoringModel     = "model"
	KeyContentScoringMaxTokens = "max_tokens"
	KeyContentScoringPromptChars = "prompt_transcript_chars" // int, default 4000 (truncation window, distinct from max_tokens)
	KeyMaxEpisodesPerBatch     = "max_episodes_per_batch"

	CategoryAIDigestGeneration = "ai_digest_generation"
	KeyDigestGenerationModel   = "model"

	CategoryStoryArcs          = "story_arcs"
	KeyRetentionDays           = "retention_days"    // int, default 14
	KeyMaxEventsPerArc         = "max_events_per_arc" // int, default 20
	KeyDualWriteEpisodeTopics  = "dual_write_episode_topics" // bool; no pipeline code reads it, and no code writes EpisodeTopic rows

	CategoryTopicEvolution = "topic_evolution"
	KeyEmbeddingModel      = "embedding_model" // string, default: the process config's Gemini embedding model (gemini-embedding-001)

	CategoryTopicTracking     = "topic_tracking"
	KeyMaxTopicsPerEpisode    = "max_topics_per_episode" // int, default 10
	KeyExtractionModel        = "extraction_model"
)

// GetString returns the stored value or def if unset.
func (s *Store) GetString(ctx context.Context, category, key, def string) (string, error) {
	v, ok, err := s.repo.Get(ctx, category, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

// GetBool returns the stored value parsed as a bool, or def if unset or
// unparseable.
func (s *Store) GetBool(ctx context.Context, category, key string, def bool) (bool, error) {
	v, ok, err := s.repo.Get(ctx, category, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, nil
	}
	return b, nil
}

// GetInt returns the stored value parsed as an int, or def if unset or
// unparseable.
func (s *Store) GetInt(ctx context.Context, category, key string, def int) (int, error) {
	v, ok, err := s.repo.Get(ctx, category, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, nil
	}
	return n, nil
}

// GetFloat returns the stored value parsed as a float64, or def if unset
// or unparseable.
func (s *Store) GetFloat(ctx context.Context, category, key string, def float64) (float64, error) {
	v, ok, err := s.repo.Get(ctx, category, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, nil
	}
	return f, nil
}

// Set stores a value verbatim as a string.
func (s *Store) Set(ctx context.Context, category, key, value string) error {
	return s.repo.Set(ctx, category, key, value)
}

// SetBool stores a bool value.
func (s *Store) SetBool(ctx context.Context, category, key string, value bool) error {
	return s.repo.Set(ctx, category, key, strconv.FormatBool(value))
}

// SetInt stores an int value.
func (s *Store) SetInt(ctx context.Context, category, key string, value int) error {
	return s.repo.Set(ctx, category, key, strconv.Itoa(value))
}
