package transcript

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/logger"
)

// preferredLanguages mirrors ytdlp_fetcher.py's prefer_languages
// default: English variants only, to avoid YouTube rate-limiting a
// request for every available language track.
var preferredLanguages = []string{"en", "en-US", "en-GB", "en-AU"}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

type youtubeAcquirer struct {
	binary string
}

func newYoutubeAcquirer() *youtubeAcquirer {
	return &youtubeAcquirer{binary: "yt-dlp"}
}

// acquire downloads caption files only (no video) via yt-dlp, then
// parses the best available subtitle track. Grounded on
// original_source/src/youtube/ytdlp_fetcher.py's YtdlpTranscriptFetcher.
func (y *youtubeAcquirer) acquire(ctx context.Context, descriptor core.EpisodeDescriptor) Outcome {
	videoID := extractVideoID(descriptor)
	if !videoIDPattern.MatchString(videoID) {
		return notAvailable("descriptor does not carry a valid youtube video id")
	}

	tmpDir, err := os.MkdirTemp("", "transcript-"+videoID)
	if err != nil {
		return transient("failed to create temp directory: " + err.Error())
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	outTemplate := filepath.Join(tmpDir, "%(id)s.%(ext)s")
	args := []string{
		"--write-auto-subs",
		"--write-subs",
		"--sub-langs", strings.Join(preferredLanguages, ","),
		"--sub-format", "vtt",
		"--skip-download",
		"--ignore-errors",
		"--quiet",
		"--no-warnings",
		"-o", outTemplate,
		"https://www.youtube.com/watch?v=" + videoID,
	}

	cmd := exec.CommandContext(ctx, y.binary, args...)
	output, runErr := cmd.CombinedOutput()

	files, globErr := filepath.Glob(filepath.Join(tmpDir, videoID+"*.vtt"))
	if globErr != nil {
		return transient("failed to list subtitle files: " + globErr.Error())
	}

	if len(files) == 0 {
		if runErr != nil {
			return classifyYtdlpError(string(output), runErr)
		}
		return notAvailable("no subtitles available for this video")
	}

	best := selectBestSubtitle(files)
	content, err := os.ReadFile(best)
	if err != nil {
		return transient("failed to read subtitle file: " + err.Error())
	}

	parsed := parseVTT(string(content))
	if parsed.WordCount == 0 {
		return notAvailable("subtitle file parsed to empty transcript")
	}

	language, auto := classifySubtitleFile(filepath.Base(best))
	logger.Info("transcript acquired", "video_id", videoID, "words", parsed.WordCount, "language", language, "auto_generated", auto)
	return ok(parsed.Text, parsed.WordCount, language, auto)
}

// classifyYtdlpError maps yt-dlp's failure text onto the
// Transient/NotAvailable split: rate limiting is transient,
// missing/private videos are permanent.
func classifyYtdlpError(output string, runErr error) Outcome {
	combined := strings.ToLower(output + " " + runErr.Error())
	switch {
	case strings.Contains(combined, "429") || strings.Contains(combined, "too many requests"):
		return transient("rate limited by youtube (http 429)")
	case strings.Contains(combined, "video unavailable") || strings.Contains(combined, "private video"):
		return notAvailable("video unavailable or private")
	default:
		return transient("yt-dlp failed: " + firstLine(output))
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func extractVideoID(descriptor core.EpisodeDescriptor) string {
	if videoIDPattern.MatchString(descriptor.EpisodeGUID) {
		return descriptor.EpisodeGUID
	}
	if i := strings.LastIndex(descriptor.ContentURL, "v="); i >= 0 {
		candidate := descriptor.ContentURL[i+2:]
		if amp := strings.IndexByte(candidate, '&'); amp >= 0 {
			candidate = candidate[:amp]
		}
		return candidate
	}
	return ""
}

// selectBestSubtitle mirrors _select_best_subtitle's scoring: prefer
// English, prefer manual over auto-generated, prefer VTT.
func selectBestSubtitle(files []string) string {
	type scored struct {
		path  string
		score int
	}
	var candidates []scored
	for _, f := range files {
		name := strings.ToLower(filepath.Base(f))
		score := 0
		if strings.Contains(name, ".en.") || strings.Contains(name, ".en-") {
			score += 100
		}
		if !strings.Contains(name, "-orig") {
			score += 50
		}
		if strings.HasSuffix(name, ".vtt") {
			score += 10
		}
		candidates = append(candidates, scored{path: f, score: score})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	return candidates[0].path
}

// classifySubtitleFile extracts language and auto-generated status
// from yt-dlp's output filename convention, e.g. "VIDEOID.en.vtt" or
// "VIDEOID.en-orig.vtt" for auto-generated tracks.
func classifySubtitleFile(name string) (language string, autoGenerated bool) {
	autoGenerated = strings.Contains(name, "-orig")
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(stem, ".")
	if len(parts) < 2 {
		return "en", autoGenerated
	}
	langTag := parts[len(parts)-1]
	langTag = strings.TrimSuffix(langTag, "-orig")
	if langTag == "" {
		return "en", autoGenerated
	}
	return strings.Split(langTag, "-")[0], autoGenerated
}
