// Package transcript acquires episode transcripts: given an episode
// descriptor it returns transcript text plus word count, or a typed,
// non-raising failure the caller classifies as permanent or transient.
//
// YouTube episodes are transcribed by shelling out to yt-dlp for
// caption files (grounded on original_source's ytdlp_fetcher.py);
// audio (podcast) episodes are transcribed by uploading the whole audio
// file to ElevenLabs speech-to-text in one request, since no pack repo demonstrates podcast
// transcription end-to-end and ELEVENLABS_API_KEY is a required
// environment variable with no other consumer in this domain.
package transcript

import (
	"context"
	"time"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"
)

// OutcomeKind tags which variant of TranscriptOutcome is populated.
type OutcomeKind string

const (
	OutcomeOk          OutcomeKind = "ok"
	OutcomeNotAvailable OutcomeKind = "not_available"
	OutcomeTransient   OutcomeKind = "transient"
)

// Outcome is the tagged union returned by Acquire. Exactly one of the
// three shapes is meaningful, selected by Kind.
type Outcome struct {
	Kind OutcomeKind

	// Ok fields.
	Text          string
	WordCount     int
	Language      string
	AutoGenerated bool

	// NotAvailable / Transient fields.
	Reason string
}

func ok(text string, wordCount int, language string, auto bool) Outcome {
	return Outcome{Kind: OutcomeOk, Text: text, WordCount: wordCount, Language: language, AutoGenerated: auto}
}

func notAvailable(reason string) Outcome {
	return Outcome{Kind: OutcomeNotAvailable, Reason: reason}
}

func transient(reason string) Outcome {
	return Outcome{Kind: OutcomeTransient, Reason: reason}
}

// wordsPerMinute is the fallback rate used to estimate a missing
// duration from a transcript's word count.
const wordsPerMinute = 150

// EstimateDurationSeconds estimates playback duration from a word
// count when the descriptor did not carry one.
func EstimateDurationSeconds(wordCount int) int {
	if wordCount <= 0 {
		return 0
	}
	minutes := float64(wordCount) / float64(wordsPerMinute)
	return int(minutes * 60)
}

// Acquirer dispatches to the youtube or audio acquirer by content
// kind, per episode descriptor.
type Acquirer struct {
	youtube *youtubeAcquirer
	audio   *audioAcquirer
}

// New constructs an Acquirer. elevenLabsAPIKey/model may be empty if
// no audio episodes are expected to be processed.
func New(elevenLabsAPIKey, elevenLabsModel string) *Acquirer {
	return &Acquirer{
		youtube: newYoutubeAcquirer(),
		audio:   newAudioAcquirer(elevenLabsAPIKey, elevenLabsModel),
	}
}

// Acquire fetches and normalizes the transcript for one episode.
func (a *Acquirer) Acquire(ctx context.Context, descriptor core.EpisodeDescriptor) Outcome {
	switch descriptor.ContentKind {
	case core.ContentKindVideo:
		return a.youtube.acquire(ctx, descriptor)
	case core.ContentKindAudio:
		return a.audio.acquire(ctx, descriptor)
	default:
		return notAvailable("unknown content kind")
	}
}

// RateLimitDelay is a per-worker pause between successive acquisitions
// (30s). No code in this module applies it: each orchestrator worker
// goroutine acquires one transcript and exits, without sleeping.
var RateLimitDelay = 30 * time.Second
