// Package relevance implements the relevance scorer: one structured
// LLM call per transcript that scores it against every active Topic
// on a 0.0-1.0 scale.
//
// Grounded on original_source/src/scoring/content_scorer.py
// (ad-trim preprocessing, banding-rubric prompt, one-property-per-topic
// JSON schema, score clamping); the schema is a genai.Schema literal
// with Type/Properties/Required.
package relevance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/llmclient"
)

// adTrimFraction and adTrimMinLength implement content_scorer.py's
// _clean_transcript: trim the first/last 5% where ads typically sit,
// skipped for transcripts too short for the heuristic to make sense.
const (
	adTrimFraction  = 0.05
	adTrimMinLength = 500

	// defaultPromptChars is N in "first N characters of the trimmed
	// transcript", configurable via Settings.
	defaultPromptChars = 4000
)

// Result is the scorer's return value: scores plus processing time
// and a success flag, matching content_scorer.py's ScoringResult.
type Result struct {
	Scores          map[string]float64
	ProcessingTime  time.Duration
	Success         bool
	ErrorMessage    string
}

// Scorer scores transcripts against a fixed set of topics using one
// structured LLM call per transcript.
type Scorer struct {
	client      *llmclient.Client
	model       string
	promptChars int
}

// NewScorer constructs a Scorer. promptChars <= 0 falls back to the
// spec's default of ~4000 characters.
func NewScorer(client *llmclient.Client, model string, promptChars int) *Scorer {
	if promptChars <= 0 {
		promptChars = defaultPromptChars
	}
	return &Scorer{client: client, model: model, promptChars: promptChars}
}

// Score evaluates transcriptText against each topic's relevance,
// never returning an error: failures are reported via Result.Success,
// leaving it to the caller to revert the episode to its previous
// status on a worker failure.
func (s *Scorer) Score(ctx context.Context, transcriptText string, topics []core.Topic) Result {
	start := time.Now()
	if len(topics) == 0 {
		return Result{Scores: map[string]float64{}, ProcessingTime: time.Since(start), Success: true}
	}

	trimmed := trimAdSegments(transcriptText)
	prompt := s.buildPrompt(trimmed, topics)
	schema := buildScoreSchema(topics)

	raw, err := s.client.GenerateStructured(ctx, prompt, llmclient.StructuredOptions{
		Model:          s.model,
		MaxTokens:      1000,
		ResponseSchema: schema,
	})
	if err != nil {
		return Result{ProcessingTime: time.Since(start), Success: false, ErrorMessage: err.Error()}
	}

	var raw64 map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &raw64); err != nil {
		return Result{ProcessingTime: time.Since(start), Success: false, ErrorMessage: "failed to parse scores: " + err.Error()}
	}

	scores := make(map[string]float64, len(topics))
	for _, topic := range topics {
		scores[topic.Name] = clampScore(raw64[topic.Name])
	}

	return Result{Scores: scores, ProcessingTime: time.Since(start), Success: true}
}

// clampScore coerces a decoded JSON value to [0,1], mapping any
// non-numeric value to 0.0.
func clampScore(v interface{}) float64 {
	f, ok := v.(float64)
	if !ok {
		return 0.0
	}
	if f < 0 {
		return 0.0
	}
	if f > 1 {
		return 1.0
	}
	return f
}

// trimAdSegments drops the first and last 5% of transcript text when
// it is long enough for the heuristic to be meaningful.
func trimAdSegments(transcript string) string {
	if len(transcript) < adTrimMinLength {
		return transcript
	}
	trim := int(float64(len(transcript)) * adTrimFraction)
	return transcript[trim : len(transcript)-trim]
}

func (s *Scorer) buildPrompt(trimmed string, topics []core.Topic) string {
	var descriptions strings.Builder
	for _, topic := range topics {
		fmt.Fprintf(&descriptions, "- %s: %s\n", topic.Name, topic.Description)
	}

	truncated := trimmed
	if len(truncated) > s.promptChars {
		truncated = truncated[:s.promptChars] + "..."
	}

	return fmt.Sprintf(`You are an expert content analyst evaluating transcript relevancy.

Analyze this transcript and score its relevance to each topic on a scale of 0.0 to 1.0:

Topics to evaluate:
%s
Scoring Guidelines:
- 0.0-0.3: Not relevant or only tangentially mentioned
- 0.4-0.6: Somewhat relevant, touches on topic but not central
- 0.7-0.8: Highly relevant, significant discussion of topic
- 0.9-1.0: Extremely relevant, topic is central to the content

Transcript to analyze:
%s

Provide scores for each topic as a JSON object with topic names as keys and scores as values.`, descriptions.String(), truncated)
}

// buildScoreSchema declares one required number property per topic.
// The [0,1] range appears only in each property's description, and the
// schema does not forbid additional properties; Score reads only the
// declared topic names and clampScore enforces the range.
func buildScoreSchema(topics []core.Topic) *genai.Schema {
	properties := make(map[string]*genai.Schema, len(topics))
	required := make([]string, 0, len(topics))
	for _, topic := range topics {
		properties[topic.Name] = &genai.Schema{
			Type:        genai.TypeNumber,
			Description: fmt.Sprintf("Relevance score for %s (0.0-1.0)", topic.Name),
		}
		required = append(required, topic.Name)
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: properties,
		Required:   required,
	}
}

// IsRelevant reports whether any topic score meets threshold.
func IsRelevant(scores map[string]float64, threshold float64) bool {
	for _, score := range scores {
		if score >= threshold {
			return true
		}
	}
	return false
}

// RelevantTopics returns the topic names whose score meets threshold.
func RelevantTopics(scores map[string]float64, threshold float64) []string {
	var topics []string
	for name, score := range scores {
		if score >= threshold {
			topics = append(topics, name)
		}
	}
	return topics
}
