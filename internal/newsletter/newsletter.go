// Package newsletter implements the newsletter content selector:
// one structured LLM call over recent high-scoring transcripts that
// produces a capped set of actionable examples plus an optional
// headline item, persisted with retention enforcement.
//
// Grounded on original_source/src/newsletter/generator.py: the
// MIN_AI_SCORE/MAX_EXAMPLES constants, the episode-lookup-by-id source
// attribution, the exact subject-line templates, and
// cleanup_old_newsletters' keep-count retention with cascade delete.
package newsletter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/llmclient"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/persistence"
)

// Topic name the selector filters candidate episodes on.
const scoringTopic = "AI and Technology"

const (
	minAIScore           = 0.7
	maxExamples          = 5
	maxCandidates        = 20
	maxPromptEpisodes    = 10
	promptTranscriptChars = 8000
)

// Selector runs a single structured LLM call and persists the
// resulting issue.
type Selector struct {
	client *llmclient.Client
	model  string
	db     persistence.Database
}

// NewSelector constructs a Selector.
func NewSelector(client *llmclient.Client, model string, db persistence.Database) *Selector {
	return &Selector{client: client, model: model, db: db}
}

// rawExample is the shape one example takes in the model's JSON
// response, before source attribution is attached.
type rawExample struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	HowToReplicate   string `json:"how_to_replicate"`
	WhyUseful        string `json:"why_useful"`
	SourceEpisodeID  string `json:"source_episode_id"`
}

type rawSelection struct {
	BigNews  string       `json:"big_news"`
	Examples []rawExample `json:"examples"`
}

// Generate selects and persists a newsletter issue from episodes
// scored within the past days days. Returns a nil issue, nil examples
// and a nil error when there are no qualifying candidates, matching generator.py's
// "no suitable episodes -> None" behavior rather than an error.
func (s *Selector) Generate(ctx context.Context, days int) (*core.NewsletterIssue, []core.NewsletterExample, error) {
	issue, built, err := s.build(ctx, days)
	if err != nil || issue == nil {
		return issue, built, err
	}

	if err := s.db.Newsletters().CreateIssue(ctx, issue, built); err != nil {
		return nil, nil, fmt.Errorf("failed to save newsletter issue: %w", err)
	}

	return issue, built, nil
}

// Preview runs the same selection as Generate but never persists the
// result, for --dry-run callers that only want to see what would be
// produced.
func (s *Selector) Preview(ctx context.Context, days int) (*core.NewsletterIssue, []core.NewsletterExample, error) {
	return s.build(ctx, days)
}

func (s *Selector) build(ctx context.Context, days int) (*core.NewsletterIssue, []core.NewsletterExample, error) {
	since := time.Now().AddDate(0, 0, -days)
	candidates, err := s.db.Episodes().ListDigestCandidates(ctx, since)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list digest candidates: %w", err)
	}

	filtered := filterAndRank(candidates)
	if len(filtered) == 0 {
		return nil, nil, nil
	}

	lookup := make(map[string]core.Episode, len(filtered))
	for _, ep := range filtered {
		lookup[ep.ID] = ep
	}

	prompt := buildPrompt(filtered)
	schema := buildSelectionSchema()

	raw, err := s.client.GenerateStructured(ctx, prompt, llmclient.StructuredOptions{
		Model:          s.model,
		MaxTokens:      4000,
		Temperature:    0.7,
		ResponseSchema: schema,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("newsletter selection failed: %w", err)
	}

	var decoded rawSelection
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, nil, fmt.Errorf("failed to parse newsletter selection response: %w", err)
	}

	examples := decoded.Examples
	if len(examples) > maxExamples {
		examples = examples[:maxExamples]
	}

	now := time.Now().UTC()
	issue := &core.NewsletterIssue{
		ID:          uuid.NewString(),
		IssueDate:   now,
		GeneratedAt: now,
	}
	issue.BigNewsSummary = decoded.BigNews
	issue.SubjectLine = subjectLine(issue.BigNewsSummary != "", len(examples))

	built := make([]core.NewsletterExample, 0, len(examples))
	for i, ex := range examples {
		source := lookup[ex.SourceEpisodeID]
		built = append(built, core.NewsletterExample{
			ID:              uuid.NewString(),
			IssueID:         issue.ID,
			Position:        i + 1,
			Title:           orDefault(ex.Title, "Untitled"),
			Description:     ex.Description,
			HowToReplicate:  ex.HowToReplicate,
			WhyUseful:       ex.WhyUseful,
			SourceEpisodeID: ex.SourceEpisodeID,
			SourceTitle:     orDefault(source.Title, "Unknown"),
			SourceURL:       source.ContentURL,
		})
	}

	return issue, built, nil
}

// EnforceRetention deletes issues beyond keepCount, ordered newest
// first, cascading to their examples, per invariant 9. The schema has
// no survey-response table, so no survey rows are touched.
func (s *Selector) EnforceRetention(ctx context.Context, keepCount int) (int, error) {
	issues, err := s.db.Newsletters().ListSince(ctx, time.Time{})
	if err != nil {
		return 0, fmt.Errorf("failed to list issues for retention: %w", err)
	}
	if len(issues) <= keepCount {
		return 0, nil
	}
	// issues is ordered newest-first; issues[keepCount] is the first one
	// to drop. DeleteOlderThan is a strict "<" cutoff, so nudge forward
	// by a nanosecond to include it.
	cutoff := issues[keepCount].IssueDate.Add(time.Nanosecond)
	return s.db.Newsletters().DeleteOlderThan(ctx, cutoff)
}

// filterAndRank keeps episodes whose scoringTopic score meets
// minAIScore, sorts by that score descending, and caps at
// maxCandidates.
func filterAndRank(episodes []core.Episode) []core.Episode {
	var out []core.Episode
	for _, ep := range episodes {
		if ep.Scores[scoringTopic] >= minAIScore {
			out = append(out, ep)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Scores[scoringTopic] < out[j].Scores[scoringTopic]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	return out
}

func buildPrompt(episodes []core.Episode) string {
	prompted := episodes
	if len(prompted) > maxPromptEpisodes {
		prompted = prompted[:maxPromptEpisodes]
	}

	body := ""
	for i, ep := range prompted {
		transcript := ep.TranscriptText
		if len(transcript) > promptTranscriptChars {
			transcript = transcript[:promptTranscriptChars]
		}
		body += fmt.Sprintf(`
--- EPISODE %d ---
Title: %s
Source: %s
Episode ID: %s
Transcript excerpt:
%s
`, i+1, ep.Title, ep.FeedTitle, ep.ID, transcript)
	}

	return fmt.Sprintf(`You are an expert AI analyst creating a weekly newsletter about practical AI applications.

Analyze these episode transcripts and extract the most interesting, actionable AI examples that readers could replicate or learn from.
%s
INSTRUCTIONS:
1. First, check if there are any MAJOR AI announcements (new model releases, significant company news). If so, summarize in 2-3 sentences for the "big_news" field. If no major news, leave it null.

2. Extract up to %d unique, actionable AI examples. For each example provide a title, description, how_to_replicate steps, why_useful, and the source_episode_id it came from.

3. Prioritize examples that are practical, immediately actionable, and specific enough to replicate.`, body, maxExamples)
}

func buildSelectionSchema() *genai.Schema {
	example := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":               {Type: genai.TypeString},
			"description":         {Type: genai.TypeString},
			"how_to_replicate":    {Type: genai.TypeString},
			"why_useful":          {Type: genai.TypeString},
			"source_episode_id":   {Type: genai.TypeString},
		},
		Required: []string{"title", "description", "how_to_replicate", "why_useful", "source_episode_id"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"big_news": {Type: genai.TypeString, Description: "Major AI announcement summary, or an empty string if none"},
			"examples": {
				Type:     genai.TypeArray,
				Items:    example,
				MaxItems: genai.Ptr(int64(maxExamples)),
			},
		},
		Required: []string{"examples"},
	}
}

// subjectLine computes the deterministic subject line from whether
// big_news is non-null and how many examples were produced, per
// generator.py's save_newsletter.
func subjectLine(hasBigNews bool, exampleCount int) string {
	if hasBigNews {
		return fmt.Sprintf("\U0001F680 AI Weekly: Big News + %d Practical AI Tips", exampleCount)
	}
	return fmt.Sprintf("\U0001F4A1 AI Weekly: %d Actionable AI Examples This Week", exampleCount)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
