package storyarc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "openai-s-gpt-5-development", Slugify("OpenAI's GPT-5 Development"))
	assert.Equal(t, "eu-ai-act", Slugify("  EU AI Act  "))
	assert.Equal(t, "a-b", Slugify("A!!!B"))
}

func TestSlugifyIdempotent(t *testing.T) {
	s := Slugify("Google Gemini Launch")
	assert.Equal(t, s, Slugify(s))
}
