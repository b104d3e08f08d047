package storyarc

import (
	"regexp"
	"strings"
)

var (
	slugNonAlnum  = regexp.MustCompile(`[^a-z0-9]+`)
	slugTrimDash  = regexp.MustCompile(`^-+|-+$`)
)

// Slugify normalizes an arc name into the stable key used for
// (digest_topic, arc_slug) uniqueness and idempotent get-or-create.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugNonAlnum.ReplaceAllString(s, "-")
	return slugTrimDash.ReplaceAllString(s, "")
}
