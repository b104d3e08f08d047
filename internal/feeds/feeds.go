// Package feeds reads RSS/Atom/YouTube feeds and yields candidate
// episode descriptors, retrying transient failures with backoff and
// never raising into the orchestrator.
package feeds

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/logger"
)

// RSS represents an RSS feed structure, including the iTunes podcast
// namespace fields used to populate duration and enclosure URL.
type RSS struct {
	XMLName xml.Name `xml:"rss"`
	Channel Channel  `xml:"channel"`
}

type Channel struct {
	Title string    `xml:"title"`
	Items []RSSItem `xml:"item"`
}

type RSSItem struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	PubDate     string    `xml:"pubDate"`
	GUID        string    `xml:"guid"`
	Duration    string    `xml:"http://www.itunes.com/dtds/podcast-1.0.dtd duration"`
	Enclosure   Enclosure `xml:"enclosure"`
}

type Enclosure struct {
	URL  string `xml:"url,attr"`
	Type string `xml:"type,attr"`
}

// Atom represents a YouTube channel Atom feed.
type Atom struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Entries []AtomEntry `xml:"entry"`
}

type AtomEntry struct {
	Title       string     `xml:"title"`
	Link        []AtomLink `xml:"link"`
	VideoID     string     `xml:"http://www.youtube.com/xml/schemas/2015 videoId"`
	Summary     string     `xml:"group>description"`
	Published   string     `xml:"published"`
	ID          string     `xml:"id"`
}

type AtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

// ParsedFeed is the result of fetching and parsing a feed.
type ParsedFeed struct {
	FeedTitle    string
	Episodes     []core.EpisodeDescriptor
	LastModified string
	ETag         string
	NotModified  bool
}

var youtubeVideoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Reader fetches and parses RSS/Atom/YouTube feeds.
type Reader struct {
	client *retryablehttp.Client
}

// NewReader constructs a Reader with bounded exponential-backoff retry.
func NewReader() *Reader {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 1 * time.Second
	client.RetryWaitMax = 10 * time.Second
	client.HTTPClient.Timeout = 30 * time.Second
	client.Logger = nil
	return &Reader{client: client}
}

// Read fetches feedURL and returns candidate episode descriptors
// published within lookbackDays, honoring conditional GET headers.
// Failures to fetch or parse never escape: a warning is logged and an
// empty result is returned, per the reader's "does not raise into the
// orchestrator" contract.
func (r *Reader) Read(feedURL string, lookbackDays int, lastModified, etag string) *ParsedFeed {
	parsed, err := r.read(feedURL, lookbackDays, lastModified, etag)
	if err != nil {
		logger.Warn("feed read failed", "feed_url", feedURL, "error", err.Error())
		return &ParsedFeed{}
	}
	return parsed
}

func (r *Reader) read(feedURL string, lookbackDays int, lastModified, etag string) (*ParsedFeed, error) {
	if isYouTubeFeed(feedURL) {
		return r.readYouTube(feedURL, lookbackDays, lastModified, etag)
	}
	return r.readPodcast(feedURL, lookbackDays, lastModified, etag)
}

func isYouTubeFeed(feedURL string) bool {
	return strings.Contains(feedURL, "youtube.com/feeds/videos.xml")
}

func (r *Reader) fetch(feedURL, lastModified, etag string) (*http.Response, error) {
	req, err := retryablehttp.NewRequest("GET", feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	req.Header.Set("User-Agent", "newsletter-pipeline/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	return resp, nil
}

func (r *Reader) readYouTube(feedURL string, lookbackDays int, lastModified, etag string) (*ParsedFeed, error) {
	channelID := extractChannelID(feedURL)
	if channelID == "" {
		return &ParsedFeed{}, nil
	}

	resp, err := r.fetch(feedURL, lastModified, etag)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotModified {
		return &ParsedFeed{NotModified: true}, nil
	}
	if err := checkFeedResponse(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var atom Atom
	if err := xml.Unmarshal(body, &atom); err != nil {
		return nil, fmt.Errorf("failed to parse atom feed: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -lookbackDays)
	var episodes []core.EpisodeDescriptor
	for _, entry := range atom.Entries {
		videoID := entry.VideoID
		if videoID == "" {
			videoID = lastPathSegment(entry.ID)
		}
		if !youtubeVideoIDPattern.MatchString(videoID) {
			continue
		}
		published := parseAtomDate(entry.Published)
		if !published.IsZero() && published.Before(cutoff) {
			continue
		}
		episodes = append(episodes, core.EpisodeDescriptor{
			EpisodeGUID: videoID,
			Title:       entry.Title,
			PublishedAt: published,
			ContentURL:  "https://www.youtube.com/watch?v=" + videoID,
			ContentKind: core.ContentKindVideo,
			Description: entry.Summary,
		})
	}

	return &ParsedFeed{
		FeedTitle:    atom.Title,
		Episodes:     episodes,
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
	}, nil
}

func (r *Reader) readPodcast(feedURL string, lookbackDays int, lastModified, etag string) (*ParsedFeed, error) {
	resp, err := r.fetch(feedURL, lastModified, etag)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotModified {
		return &ParsedFeed{NotModified: true}, nil
	}
	if err := checkFeedResponse(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var rss RSS
	if err := xml.Unmarshal(body, &rss); err != nil {
		return nil, fmt.Errorf("failed to parse rss feed: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -lookbackDays)
	var episodes []core.EpisodeDescriptor
	for _, item := range rss.Channel.Items {
		published := parseRSSDate(item.PubDate)
		if !published.IsZero() && published.Before(cutoff) {
			continue
		}
		guid := item.GUID
		if guid == "" {
			guid = item.Link
		}
		contentURL := item.Enclosure.URL
		if contentURL == "" {
			contentURL = item.Link
		}
		episodes = append(episodes, core.EpisodeDescriptor{
			EpisodeGUID: guid,
			Title:       item.Title,
			PublishedAt: published,
			Duration:    parseITunesDuration(item.Duration),
			ContentURL:  contentURL,
			ContentKind: core.ContentKindAudio,
			Description: item.Description,
		})
	}

	return &ParsedFeed{
		FeedTitle:    rss.Channel.Title,
		Episodes:     episodes,
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
	}, nil
}

// checkFeedResponse classifies non-200 statuses and HTML bodies (rate
// limit/captcha pages returned where XML was expected) as errors the
// caller's retry loop or warning path handles.
func checkFeedResponse(resp *http.Response) error {
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed returned status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "text/html") {
		return fmt.Errorf("feed returned html content-type, likely a rate-limit page")
	}
	return nil
}

func extractChannelID(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("channel_id")
}

func lastPathSegment(s string) string {
	parts := strings.Split(s, ":")
	return parts[len(parts)-1]
}

func parseRSSDate(dateStr string) time.Time {
	if dateStr == "" {
		return time.Time{}
	}
	formats := []string{
		time.RFC1123,
		time.RFC1123Z,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, strings.TrimSpace(dateStr)); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func parseAtomDate(dateStr string) time.Time {
	if dateStr == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(dateStr)); err == nil {
		return t.UTC()
	}
	return parseRSSDate(dateStr)
}

// parseITunesDuration accepts both "HH:MM:SS"/"MM:SS" and a bare
// seconds integer, the two forms podcast feeds commonly use.
func parseITunesDuration(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	parts := strings.Split(raw, ":")
	seconds := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0
		}
		seconds = seconds*60 + n
	}
	return seconds
}
