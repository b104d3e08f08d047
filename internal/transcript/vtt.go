package transcript

import (
	"regexp"
	"strings"
)

// parsedVTT is the result of reducing a WebVTT cue stream to plain
// text, ported from original_source/src/youtube/subtitle_parser.py's
// parse_vtt.
type parsedVTT struct {
	Text      string
	WordCount int
}

var (
	vttTagPattern      = regexp.MustCompile(`<[^>]+>`)
	vttPositionPattern = regexp.MustCompile(`\{[^}]+\}`)
	vttCueIDPattern    = regexp.MustCompile(`^[\w-]+$`)
	vttWhitespacePattern = regexp.MustCompile(`\s+`)
)

func parseVTT(content string) parsedVTT {
	lines := strings.Split(content, "\n")
	var textLines []string
	inCue := false

	for _, raw := range lines {
		line := strings.TrimSpace(raw)

		if line == "" {
			inCue = false
			continue
		}
		if strings.HasPrefix(line, "WEBVTT") || strings.HasPrefix(line, "NOTE") {
			continue
		}
		if strings.Contains(line, "-->") {
			inCue = true
			continue
		}
		if vttCueIDPattern.MatchString(line) && !inCue {
			continue
		}
		if strings.HasPrefix(line, "Kind:") || strings.HasPrefix(line, "Language:") {
			continue
		}
		if !inCue {
			continue
		}

		clean := vttTagPattern.ReplaceAllString(line, "")
		clean = vttPositionPattern.ReplaceAllString(clean, "")
		clean = strings.TrimSpace(clean)
		if clean != "" {
			textLines = append(textLines, clean)
		}
	}

	// VTT cues commonly overlap and repeat the same line; dedup
	// consecutive identical lines before joining.
	var deduped []string
	prev := ""
	for _, line := range textLines {
		if line != prev {
			deduped = append(deduped, line)
			prev = line
		}
	}

	text := vttWhitespacePattern.ReplaceAllString(strings.TrimSpace(strings.Join(deduped, " ")), " ")
	wordCount := 0
	if text != "" {
		wordCount = len(strings.Fields(text))
	}
	return parsedVTT{Text: text, WordCount: wordCount}
}
