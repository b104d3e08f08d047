// Package llmclient wraps google.golang.org/genai for the structured,
// schema-constrained calls relevance scoring, arc extraction, and
// newsletter selection each make exactly once per invocation, plus the
// embedding calls semantic matching uses.
//
// It exposes only the two calls this domain's components make:
// GenerateStructured and GenerateEmbedding. Cosine similarity over the
// returned vectors lives in internal/semantic.
package llmclient

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// embeddingDimensions matches the existing Matryoshka truncation of
// gemini-embedding-001's native output to a fixed, storable width.
const embeddingDimensions = int32(768)

// Client wraps a genai.Client bound to one chat/completion model.
type Client struct {
	gClient *genai.Client
	model   string
}

// NewClient constructs a Client for the given Gemini model name. The
// caller resolves the API key (internal/config's multi-source
// resolution) and passes it in explicitly rather than this package
// re-reading the environment.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Client{gClient: gClient, model: model}, nil
}

// StructuredOptions configures a single schema-constrained generation
// call, shared by relevance scoring, arc extraction, and newsletter
// selection.
type StructuredOptions struct {
	Model          string
	MaxTokens      int32
	Temperature    float32
	ResponseSchema *genai.Schema
}

// GenerateStructured issues one strict, schema-constrained completion
// and returns the raw JSON text for the caller to unmarshal into its
// own result type. Every LLM-backed contract in this pipeline is
// exactly one such call per invocation — no multi-turn chat, no
// free-text parsing.
func (c *Client) GenerateStructured(ctx context.Context, prompt string, opts StructuredOptions) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}
	model := opts.Model
	if model == "" {
		model = c.model
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   opts.ResponseSchema,
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		temp := opts.Temperature
		config.Temperature = &temp
	}

	resp, err := c.gClient.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", fmt.Errorf("structured generation failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

// maxEmbeddingInputChars is the conservative truncation limit the
// teacher applies before calling gemini-embedding-001 (token limits
// are approximate per character, not exact).
const maxEmbeddingInputChars = 8000

// GenerateEmbedding embeds a single short text, truncating to the
// provider's practical input limit first.
func (c *Client) GenerateEmbedding(ctx context.Context, model, text string) ([]float64, error) {
	if len(text) > maxEmbeddingInputChars {
		text = text[:maxEmbeddingInputChars]
	}
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: text}},
		Role:  "user",
	}}
	dims := embeddingDimensions
	config := &genai.EmbedContentConfig{OutputDimensionality: &dims}

	resp, err := c.gClient.Models.EmbedContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("no embedding values returned from api")
	}
	values := resp.Embeddings[0].Values
	embedding := make([]float64, len(values))
	for i, v := range values {
		embedding[i] = float64(v)
	}
	return embedding, nil
}

// Close is a no-op: the genai client holds nothing that needs releasing
// here.
func (c *Client) Close() {}
