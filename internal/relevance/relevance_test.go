package relevance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"
)

func TestTrimAdSegmentsShortPassesThrough(t *testing.T) {
	text := "short transcript"
	assert.Equal(t, text, trimAdSegments(text))
}

func TestTrimAdSegmentsTrimsLongTranscript(t *testing.T) {
	text := strings.Repeat("a", 1000)
	trimmed := trimAdSegments(text)
	assert.Equal(t, 900, len(trimmed))
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, clampScore("not-a-number"))
	assert.Equal(t, 1.0, clampScore(1.5))
	assert.Equal(t, 0.0, clampScore(-0.5))
	assert.Equal(t, 0.42, clampScore(0.42))
}

func TestIsRelevant(t *testing.T) {
	scores := map[string]float64{"AI": 0.8, "Finance": 0.2}
	assert.True(t, IsRelevant(scores, 0.6))
	assert.False(t, IsRelevant(scores, 0.9))
}

func TestRelevantTopics(t *testing.T) {
	scores := map[string]float64{"AI": 0.8, "Finance": 0.2}
	got := RelevantTopics(scores, 0.6)
	assert.ElementsMatch(t, []string{"AI"}, got)
}

func TestBuildScoreSchemaOnePropertyPerTopic(t *testing.T) {
	topics := []core.Topic{{Name: "AI"}, {Name: "Finance"}}
	schema := buildScoreSchema(topics)
	assert.Len(t, schema.Properties, 2)
	assert.ElementsMatch(t, []string{"AI", "Finance"}, schema.Required)
}
