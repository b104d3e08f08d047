// Package dedup implements the standalone dedup/consolidation pass:
// a two-phase batch job over EpisodeTopic rows that merges
// near-duplicate topics within a digest topic, first by a fixed
// keyword-to-functional-category table, then by embedding similarity
// over whatever Phase 1 left untouched.
//
// Phase 2 is grounded on
// original_source/src/topic_tracking/semantic_matcher.py's
// find_duplicate_groups; Phase 1 has no original_source analogue and
// is implemented fresh from its functional description.
package dedup

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/persistence"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/semantic"
)

// maxKeyPoints caps key_points on a canonical row after any merge at 6.
const maxKeyPoints = 6

// defaultSimilarityThreshold is Phase 2's default when the caller
// doesn't override it, matching semantic_matcher.py's constructor
// default of 0.80.
const defaultSimilarityThreshold = 0.80

// keywordCategories maps phrases that may appear in a topic's name or
// key points to the functional category they imply. Checked
// case-insensitively as substrings.
var keywordCategories = map[string]core.FunctionalCategory{
	"launch":       core.CategoryModelRelease,
	"release":      core.CategoryModelRelease,
	"unveil":       core.CategoryModelRelease,
	"announce":     core.CategoryProductLaunch,
	"acquisition":  core.CategoryPartnership,
	"acquire":      core.CategoryPartnership,
	"partnership":  core.CategoryPartnership,
	"merger":       core.CategoryPartnership,
	"funding":      core.CategoryCompanyStrategy,
	"investment":   core.CategoryCompanyStrategy,
	"ipo":          core.CategoryCompanyStrategy,
	"layoff":       core.CategoryCompanyStrategy,
	"ceo":          core.CategoryCompanyStrategy,
	"lawsuit":      core.CategoryControversy,
	"controversy":  core.CategoryControversy,
	"backlash":     core.CategoryControversy,
	"regulation":   core.CategoryRegulation,
	"policy":       core.CategoryRegulation,
	"legislation":  core.CategoryRegulation,
	"ban":          core.CategoryRegulation,
	"paper":        core.CategoryResearch,
	"study":        core.CategoryResearch,
	"research":     core.CategoryResearch,
	"benchmark":    core.CategoryResearch,
	"technique":    core.CategoryTechnique,
	"method":       core.CategoryTechnique,
	"architecture": core.CategoryTechnique,
	"trend":        core.CategoryIndustryTrend,
	"market":       core.CategoryIndustryTrend,
	"adoption":     core.CategoryUseCase,
	"use case":     core.CategoryUseCase,
	"application":  core.CategoryUseCase,
}

// Result summarizes what a pass did (or, in dry-run, would do).
type Result struct {
	DigestTopic         string
	Phase1Groups        int
	Phase1Merged        int
	Phase2Groups        int
	Phase2Merged        int
	Errors              []string
	DryRun              bool
}

// Pass runs the two-phase consolidation over EpisodeTopicRepository
// rows for one digest topic.
type Pass struct {
	repo    persistence.EpisodeTopicRepository
	matcher *semantic.Matcher
}

// NewPass constructs a Pass over repo, using matcher for Phase 2.
func NewPass(repo persistence.EpisodeTopicRepository, matcher *semantic.Matcher) *Pass {
	return &Pass{repo: repo, matcher: matcher}
}

// Run executes both phases for digestTopic over rows mentioned within
// daysBack, at similarityThreshold (<=0 uses the 0.80 default). In
// dry-run mode no mutation occurs; Result reports what would have
// happened. Both phases are idempotent: re-running immediately after a
// successful (non-dry-run) pass finds nothing left to merge.
func (p *Pass) Run(ctx context.Context, digestTopic string, daysBack int, similarityThreshold float64, dryRun bool) (Result, error) {
	if similarityThreshold <= 0 {
		similarityThreshold = defaultSimilarityThreshold
	}
	res := Result{DigestTopic: digestTopic, DryRun: dryRun}

	since := time.Now().AddDate(0, 0, -daysBack)
	rows, err := p.repo.ListByDigestTopic(ctx, digestTopic, since)
	if err != nil {
		return res, fmt.Errorf("failed to list episode topics for %q: %w", digestTopic, err)
	}

	matched, remaining := p.phase1Groups(rows)
	for _, group := range matched {
		res.Phase1Groups++
		if err := p.mergeGroup(ctx, group, dryRun); err != nil {
			res.Errors = append(res.Errors, err.Error())
			continue
		}
		res.Phase1Merged += len(group) - 1
	}

	if p.matcher != nil && len(remaining) > 0 {
		items := make([]semantic.Item, len(remaining))
		bySlug := make(map[string]core.EpisodeTopic, len(remaining))
		for i, et := range remaining {
			items[i] = semantic.Item{
				ID:               et.ID,
				DigestTopic:      et.DigestTopic,
				Name:             et.TopicName,
				KeyPoints:        et.KeyPoints,
				FirstMentionedAt: et.FirstMentionedAt,
				MentionCount:     et.MentionCount,
			}
			bySlug[et.ID] = et
		}

		groups, err := p.matcher.DuplicateGroups(ctx, items, similarityThreshold)
		if err != nil {
			return res, fmt.Errorf("phase 2 grouping failed: %w", err)
		}

		for _, group := range groups {
			res.Phase2Groups++
			etGroup := make([]core.EpisodeTopic, len(group))
			for i, item := range group {
				etGroup[i] = bySlug[item.ID]
			}
			if err := p.mergeGroup(ctx, etGroup, dryRun); err != nil {
				res.Errors = append(res.Errors, err.Error())
				continue
			}
			res.Phase2Merged += len(etGroup) - 1
		}
	}

	return res, nil
}

// phase1Groups partitions rows into keyword-matched groups (by shared
// implied category) of size >= 2, and everything not grouped. Within
// each group the oldest by FirstMentionedAt is canonical (group[0]).
func (p *Pass) phase1Groups(rows []core.EpisodeTopic) (groups [][]core.EpisodeTopic, remaining []core.EpisodeTopic) {
	byCategory := make(map[core.FunctionalCategory][]core.EpisodeTopic)
	unmatched := make([]core.EpisodeTopic, 0, len(rows))

	for _, et := range rows {
		cat, ok := classifyByKeyword(et)
		if !ok {
			unmatched = append(unmatched, et)
			continue
		}
		byCategory[cat] = append(byCategory[cat], et)
	}

	for _, group := range byCategory {
		if len(group) < 2 {
			unmatched = append(unmatched, group...)
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].FirstMentionedAt.Before(group[j].FirstMentionedAt)
		})
		groups = append(groups, group)
	}
	return groups, unmatched
}

// classifyByKeyword returns the category of a keyword table phrase that
// appears (case-insensitively) in et's name or, failing that, in a key
// point. Within one text, categories are tried in
// core.FunctionalCategories order, so the result is deterministic when
// phrases of several categories match.
func classifyByKeyword(et core.EpisodeTopic) (core.FunctionalCategory, bool) {
	haystacks := make([]string, 0, 1+len(et.KeyPoints))
	haystacks = append(haystacks, et.TopicName)
	haystacks = append(haystacks, et.KeyPoints...)

	for _, h := range haystacks {
		lower := strings.ToLower(h)
		for _, cat := range core.FunctionalCategories {
			for phrase, c := range keywordCategories {
				if c == cat && strings.Contains(lower, phrase) {
					return cat, true
				}
			}
		}
	}
	return "", false
}

// mergeGroup folds group[1:] into the canonical group[0]: key_points
// are extended with up to maxKeyPoints-existing unique points
// (case-insensitive equality, first-occurrence wins) drawn from the
// duplicates in order, then the duplicates are deleted via MergeInto.
// No-op in dry-run mode.
func (p *Pass) mergeGroup(ctx context.Context, group []core.EpisodeTopic, dryRun bool) error {
	if len(group) < 2 {
		return nil
	}
	canonical := group[0]
	mergedIDs := make([]string, 0, len(group)-1)

	seen := make(map[string]struct{}, len(canonical.KeyPoints))
	keyPoints := make([]string, 0, maxKeyPoints)
	for _, kp := range canonical.KeyPoints {
		if len(keyPoints) >= maxKeyPoints {
			break
		}
		lower := strings.ToLower(strings.TrimSpace(kp))
		if lower == "" {
			continue
		}
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		keyPoints = append(keyPoints, kp)
	}

	for _, dup := range group[1:] {
		mergedIDs = append(mergedIDs, dup.ID)
		for _, kp := range dup.KeyPoints {
			if len(keyPoints) >= maxKeyPoints {
				break
			}
			lower := strings.ToLower(strings.TrimSpace(kp))
			if lower == "" {
				continue
			}
			if _, ok := seen[lower]; ok {
				continue
			}
			seen[lower] = struct{}{}
			keyPoints = append(keyPoints, kp)
		}
	}

	if dryRun {
		return nil
	}

	if err := p.repo.UpdateKeyPoints(ctx, canonical.ID, keyPoints); err != nil {
		return fmt.Errorf("failed to update key points for %s: %w", canonical.ID, err)
	}
	if err := p.repo.MergeInto(ctx, canonical.ID, mergedIDs); err != nil {
		return fmt.Errorf("failed to merge duplicates into %s: %w", canonical.ID, err)
	}
	return nil
}
