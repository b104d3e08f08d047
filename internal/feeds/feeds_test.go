package feeds

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsYouTubeFeed(t *testing.T) {
	assert.True(t, isYouTubeFeed("https://www.youtube.com/feeds/videos.xml?channel_id=UC123"))
	assert.False(t, isYouTubeFeed("https://example.com/podcast.rss"))
}

func TestExtractChannelID(t *testing.T) {
	assert.Equal(t, "UC123", extractChannelID("https://www.youtube.com/feeds/videos.xml?channel_id=UC123"))
	assert.Equal(t, "", extractChannelID("https://www.youtube.com/feeds/videos.xml"))
}

func TestYouTubeVideoIDPattern(t *testing.T) {
	assert.True(t, youtubeVideoIDPattern.MatchString("dQw4w9WgXcQ"))
	assert.False(t, youtubeVideoIDPattern.MatchString("too-short"))
}

func TestParseITunesDuration(t *testing.T) {
	assert.Equal(t, 3725, parseITunesDuration("01:02:05"))
	assert.Equal(t, 125, parseITunesDuration("02:05"))
	assert.Equal(t, 90, parseITunesDuration("90"))
	assert.Equal(t, 0, parseITunesDuration(""))
}

func TestParseRSSDate(t *testing.T) {
	got := parseRSSDate("Mon, 02 Jan 2006 15:04:05 -0700")
	assert.False(t, got.IsZero())
}
