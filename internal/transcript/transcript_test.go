package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"
)

func TestParseVTT(t *testing.T) {
	content := `WEBVTT

00:00:00.000 --> 00:00:02.000
Hello <c>there</c>

00:00:02.000 --> 00:00:04.000
Hello there

00:00:04.000 --> 00:00:06.000
General Kenobi
`
	parsed := parseVTT(content)
	assert.Equal(t, "Hello there General Kenobi", parsed.Text)
	assert.Equal(t, 4, parsed.WordCount)
}

func TestParseVTTEmpty(t *testing.T) {
	parsed := parseVTT("WEBVTT\n\nNOTE this file intentionally has no cues\n")
	assert.Equal(t, 0, parsed.WordCount)
	assert.Equal(t, "", parsed.Text)
}

func TestSelectBestSubtitlePrefersManualEnglish(t *testing.T) {
	files := []string{
		"/tmp/abcdefghijk.es.vtt",
		"/tmp/abcdefghijk.en-orig.vtt",
		"/tmp/abcdefghijk.en.vtt",
	}
	best := selectBestSubtitle(files)
	assert.Equal(t, "/tmp/abcdefghijk.en.vtt", best)
}

func TestClassifySubtitleFile(t *testing.T) {
	lang, auto := classifySubtitleFile("abcdefghijk.en.vtt")
	assert.Equal(t, "en", lang)
	assert.False(t, auto)

	lang, auto = classifySubtitleFile("abcdefghijk.en-orig.vtt")
	assert.Equal(t, "en", lang)
	assert.True(t, auto)
}

func TestExtractVideoIDFromGUID(t *testing.T) {
	descriptor := core.EpisodeDescriptor{EpisodeGUID: "dQw4w9WgXcQ"}
	assert.Equal(t, "dQw4w9WgXcQ", extractVideoID(descriptor))
}

func TestExtractVideoIDFromURL(t *testing.T) {
	descriptor := core.EpisodeDescriptor{ContentURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=5"}
	assert.Equal(t, "dQw4w9WgXcQ", extractVideoID(descriptor))
}

func TestEstimateDurationSeconds(t *testing.T) {
	assert.Equal(t, 60, EstimateDurationSeconds(150))
	assert.Equal(t, 0, EstimateDurationSeconds(0))
}

func TestClassifyYtdlpError(t *testing.T) {
	out := classifyYtdlpError("ERROR: [youtube] dQw4w9WgXcQ: HTTP Error 429: Too Many Requests", assertErr("boom"))
	assert.Equal(t, OutcomeTransient, out.Kind)

	out = classifyYtdlpError("ERROR: [youtube] dQw4w9WgXcQ: Video unavailable", assertErr("boom"))
	assert.Equal(t, OutcomeNotAvailable, out.Kind)
}

type stringError string

func (e stringError) Error() string { return string(e) }

func assertErr(s string) error { return stringError(s) }
