package storyarc

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/llmclient"
)

// extractTranscriptChars is the prompt's transcript truncation length,
// per topic_extractor.py's "transcript[:6000]" — longer than the
// relevance scorer's window since arc extraction needs more narrative
// context than relevance scoring does.
const extractTranscriptChars = 6000

// ArcEvent is one continuing-or-new arc entry the extractor produces,
// mirroring topic_extractor.py's arc_event_schema.
type ArcEvent struct {
	ArcName      string
	EventSummary string
	KeyPoints    []string
	Category     core.FunctionalCategory
	Perspective  core.Perspective
}

// ExtractResult separates events for arcs already being tracked from
// brand-new arcs this episode introduces.
type ExtractResult struct {
	Continuing []ArcEvent
	New        []ArcEvent
}

// Extractor issues one structured LLM call per episode to identify
// story-arc events from a transcript.
type Extractor struct {
	client            *llmclient.Client
	model             string
	maxArcsPerEpisode int
}

// NewExtractor constructs an Extractor. maxArcsPerEpisode <= 0 falls
// back to topic_extractor.py's default of 10.
func NewExtractor(client *llmclient.Client, model string, maxArcsPerEpisode int) *Extractor {
	if maxArcsPerEpisode <= 0 {
		maxArcsPerEpisode = 10
	}
	return &Extractor{client: client, model: model, maxArcsPerEpisode: maxArcsPerEpisode}
}

// Extract identifies continuing and new story arcs from transcript,
// relative to digestTopic and the rendered activeArcsView. Combined
// continuing+new results are capped at maxArcsPerEpisode, dropping new
// arcs first when over budget, per topic_extractor.py's
// "new_arcs[:max_arcs_per_episode - len(results)]" slicing.
func (e *Extractor) Extract(ctx context.Context, episodeTitle, digestTopic, transcript, activeArcsView string) (ExtractResult, error) {
	prompt := e.buildPrompt(episodeTitle, digestTopic, transcript, activeArcsView)
	schema := buildExtractionSchema()

	raw, err := e.client.GenerateStructured(ctx, prompt, llmclient.StructuredOptions{
		Model:          e.model,
		MaxTokens:      2000,
		ResponseSchema: schema,
	})
	if err != nil {
		return ExtractResult{}, fmt.Errorf("arc extraction failed: %w", err)
	}

	var decoded struct {
		ContinuingArcs []rawArcEvent `json:"continuing_arcs"`
		NewArcs        []rawArcEvent `json:"new_arcs"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return ExtractResult{}, fmt.Errorf("failed to parse arc extraction response: %w", err)
	}

	continuing := toArcEvents(decoded.ContinuingArcs)
	if len(continuing) > e.maxArcsPerEpisode {
		continuing = continuing[:e.maxArcsPerEpisode]
	}
	remaining := e.maxArcsPerEpisode - len(continuing)
	if remaining < 0 {
		remaining = 0
	}
	newArcs := toArcEvents(decoded.NewArcs)
	if len(newArcs) > remaining {
		newArcs = newArcs[:remaining]
	}

	return ExtractResult{Continuing: continuing, New: newArcs}, nil
}

type rawArcEvent struct {
	ArcName      string   `json:"arc_name"`
	EventSummary string   `json:"event_summary"`
	KeyPoints    []string `json:"key_points"`
	Category     string   `json:"category"`
	Perspective  string   `json:"perspective"`
}

func toArcEvents(raw []rawArcEvent) []ArcEvent {
	events := make([]ArcEvent, 0, len(raw))
	for _, r := range raw {
		if r.ArcName == "" || r.EventSummary == "" {
			continue
		}
		events = append(events, ArcEvent{
			ArcName:      r.ArcName,
			EventSummary: r.EventSummary,
			KeyPoints:    r.KeyPoints,
			Category:     normalizeCategory(r.Category),
			Perspective:  normalizePerspective(r.Perspective),
		})
	}
	return events
}

func normalizeCategory(v string) core.FunctionalCategory {
	for _, c := range core.FunctionalCategories {
		if string(c) == v {
			return c
		}
	}
	return core.CategoryOther
}

func normalizePerspective(v string) core.Perspective {
	switch core.Perspective(v) {
	case core.PerspectivePositive, core.PerspectiveNegative, core.PerspectiveAnalytical:
		return core.Perspective(v)
	default:
		return core.PerspectiveNeutral
	}
}

func (e *Extractor) buildPrompt(episodeTitle, digestTopic, transcript, activeArcsView string) string {
	truncated := transcript
	if len(truncated) > extractTranscriptChars {
		truncated = truncated[:extractTranscriptChars]
	}

	activeArcsSection := ""
	if activeArcsView != "" {
		activeArcsSection = fmt.Sprintf(`
## ACTIVE STORY ARCS
The following stories are currently being tracked. If this episode discusses any of these stories,
add a NEW EVENT to that story arc rather than creating a duplicate.

%s
---
`, activeArcsView)
	}

	return fmt.Sprintf(`Analyze this podcast episode transcript and identify STORY ARCS related to "%s".

A STORY ARC is an ongoing news narrative that evolves over time. Examples:
- "OpenAI's GPT-5 Development" (tracks rumors -> announcements -> release -> reactions)
- "EU AI Act Implementation" (tracks drafts -> votes -> enforcement -> industry response)
- "Google Gemini Launch" (tracks leaks -> announcement -> reviews -> updates)
%s
## YOUR TASK

For this episode from "%s", identify:

1. CONTINUING ARCS: Stories from the active list above that this episode discusses
   - Add a NEW EVENT capturing what this episode says about the story
   - Capture the episode's PERSPECTIVE (positive, negative, neutral, analytical)
   - Include 1-4 specific key points from this episode

2. NEW ARCS: New stories not in the active list
   - Only create if this is a significant, newsworthy development
   - Don't create arcs for general discussion topics (too broad)
   - Each arc should be specific enough to track over time

## CLASSIFICATION CATEGORIES
Use one of these for each arc:
- model_release: New model announcements, updates, versions
- company_strategy: Business moves, pivots, leadership changes
- research: Papers, studies, breakthroughs
- regulation: Policy, legal, governance
- product_launch: New products, features, services
- partnership: Collaborations, acquisitions, investments
- controversy: Disputes, criticisms, debates
- industry_trend: Broader patterns, market shifts
- technique: New methods, approaches, architectures
- use_case: Applications, implementations
- other: Miscellaneous

## PERSPECTIVE VALUES
- positive: Episode is enthusiastic/supportive about this development
- negative: Episode is critical/concerned about this development
- neutral: Episode presents factual coverage without strong stance
- analytical: Episode provides in-depth analysis/comparison

## TRANSCRIPT
%s

---
Identify story arcs and events from this episode.`, digestTopic, activeArcsSection, episodeTitle, truncated)
}

// buildExtractionSchema mirrors topic_extractor.py's
// _create_extraction_schema: a shared arc-event object schema used for
// both the continuing_arcs and new_arcs arrays.
func buildExtractionSchema() *genai.Schema {
	arcEvent := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"arc_name": {
				Type:        genai.TypeString,
				Description: "Name of the story arc (use existing name if continuing)",
			},
			"event_summary": {
				Type:        genai.TypeString,
				Description: "1-2 sentence summary of what this episode says about the story",
			},
			"key_points": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				MinItems:    genai.Ptr(int64(1)),
				MaxItems:    genai.Ptr(int64(4)),
				Description: "Specific details from this episode",
			},
			"category": {
				Type:        genai.TypeString,
				Enum:        functionalCategoryStrings(),
				Description: "Functional category of the story",
			},
			"perspective": {
				Type:        genai.TypeString,
				Enum:        []string{"positive", "negative", "neutral", "analytical"},
				Description: "Episode's perspective on this story",
			},
		},
		Required: []string{"arc_name", "event_summary", "key_points", "category", "perspective"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"continuing_arcs": {
				Type:        genai.TypeArray,
				Items:       arcEvent,
				Description: "Events for existing story arcs",
			},
			"new_arcs": {
				Type:        genai.TypeArray,
				Items:       arcEvent,
				Description: "New story arcs introduced by this episode",
			},
		},
		Required: []string{"continuing_arcs", "new_arcs"},
	}
}

func functionalCategoryStrings() []string {
	out := make([]string, len(core.FunctionalCategories))
	for i, c := range core.FunctionalCategories {
		out[i] = string(c)
	}
	return out
}
