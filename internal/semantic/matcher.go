// Package semantic implements the embedding-based similarity matcher
// used by arc/topic dedup and consolidation: one text-to-vector call
// plus cosine similarity, behind a small interface so the embedding
// backend can be swapped without touching its callers.
//
// Grounded on original_source/src/topic_tracking/semantic_matcher.py's
// SemanticTopicMatcher: _topic_to_text, the per-input-prefix embedding
// cache bounded at 1000 entries, cosine similarity, find_matching_topic
// and find_duplicate_groups (union-find over the pairwise similarity
// graph).
package semantic

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// cacheKeyChars mirrors the Python matcher's text[:500] cache-key
// truncation: short enough to bound memory, long enough to avoid
// collisions between genuinely distinct inputs in practice.
const cacheKeyChars = 500

// maxCacheEntries bounds the embedding cache at the size
// semantic_matcher.py uses, with arbitrary (insertion-order) eviction
// once full.
const maxCacheEntries = 1000

// Embedder produces a vector embedding for a short text. Implementations
// are expected to truncate to their provider's input limit themselves.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, model, text string) ([]float64, error)
}

// Item is anything the matcher can compare: a candidate or existing
// arc/topic reduced to the text it should be embedded from plus the
// identifying/sort fields duplicate_groups needs.
type Item struct {
	ID               string
	DigestTopic      string
	Name             string
	KeyPoints        []string
	FirstMentionedAt time.Time
	MentionCount     int
}

// Match is the highest-similarity existing item found above threshold.
type Match struct {
	Item       Item
	Similarity float64
}

// Matcher wraps an Embedder with the cache, cosine-similarity, and
// matching/grouping helpers its callers consume.
type Matcher struct {
	embedder Embedder
	model    string

	mu    sync.Mutex
	cache map[string][]float64
	order []string // insertion order, for arbitrary (oldest-first) eviction
}

// NewMatcher constructs a Matcher bound to the given embedding model.
func NewMatcher(embedder Embedder, model string) *Matcher {
	return &Matcher{embedder: embedder, model: model, cache: make(map[string][]float64)}
}

// topicToText mirrors _topic_to_text: the item's name followed by its
// key points, space-joined, used as the embedding input.
func topicToText(name string, keyPoints []string) string {
	parts := make([]string, 0, 1+len(keyPoints))
	parts = append(parts, name)
	parts = append(parts, keyPoints...)
	return strings.Join(parts, " ")
}

// embed returns text's embedding, serving from the cache on a hit and
// populating it on a miss. Cache key is the first cacheKeyChars of
// text, same as the Python matcher.
func (m *Matcher) embed(ctx context.Context, text string) ([]float64, error) {
	key := text
	if len(key) > cacheKeyChars {
		key = key[:cacheKeyChars]
	}

	m.mu.Lock()
	if v, ok := m.cache[key]; ok {
		m.mu.Unlock()
		return v, nil
	}
	m.mu.Unlock()

	v, err := m.embedder.GenerateEmbedding(ctx, m.model, text)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if len(m.cache) >= maxCacheEntries {
		// Arbitrary eviction: drop the oldest inserted key.
		if len(m.order) > 0 {
			oldest := m.order[0]
			m.order = m.order[1:]
			delete(m.cache, oldest)
		}
	}
	m.cache[key] = v
	m.order = append(m.order, key)
	m.mu.Unlock()

	return v, nil
}

// CosineSimilarity computes cosine similarity between a and b, zero
// when either has zero norm.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// FindMatch returns the highest-similarity existing item above
// threshold, optionally restricted to the same digest topic, or nil
// if none qualifies.
func (m *Matcher) FindMatch(ctx context.Context, candidate Item, existing []Item, digestTopic string, threshold float64) (*Match, error) {
	if len(existing) == 0 {
		return nil, nil
	}

	candEmbedding, err := m.embed(ctx, topicToText(candidate.Name, candidate.KeyPoints))
	if err != nil {
		return nil, fmt.Errorf("failed to embed candidate %q: %w", candidate.Name, err)
	}

	var best *Match
	for _, item := range existing {
		if digestTopic != "" && item.DigestTopic != digestTopic {
			continue
		}
		text := topicToText(item.Name, item.KeyPoints)
		if strings.TrimSpace(text) == "" {
			continue
		}
		embedding, err := m.embed(ctx, text)
		if err != nil {
			continue
		}
		sim := CosineSimilarity(candEmbedding, embedding)
		if best == nil || sim > best.Similarity {
			best = &Match{Item: item, Similarity: sim}
		}
	}

	if best != nil && best.Similarity >= threshold {
		return best, nil
	}
	return nil, nil
}

// DuplicateGroups partitions items into union-find groups connected by
// pairwise similarity >= threshold, returning only groups of size >= 2,
// each sorted canonical-first (first_mentioned_at asc, then
// mention_count desc).
func (m *Matcher) DuplicateGroups(ctx context.Context, items []Item, threshold float64) ([][]Item, error) {
	if len(items) == 0 {
		return nil, nil
	}

	type embedded struct {
		item Item
		vec  []float64
	}
	var withEmbeddings []embedded
	for _, item := range items {
		vec, err := m.embed(ctx, topicToText(item.Name, item.KeyPoints))
		if err != nil {
			continue
		}
		withEmbeddings = append(withEmbeddings, embedded{item: item, vec: vec})
	}

	n := len(withEmbeddings)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(x, y int) {
		px, py := find(x), find(y)
		if px != py {
			parent[px] = py
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if CosineSimilarity(withEmbeddings[i].vec, withEmbeddings[j].vec) >= threshold {
				union(i, j)
			}
		}
	}

	groupsByRoot := make(map[int][]Item)
	for i, e := range withEmbeddings {
		root := find(i)
		groupsByRoot[root] = append(groupsByRoot[root], e.item)
	}

	roots := make([]int, 0, len(groupsByRoot))
	for r := range groupsByRoot {
		roots = append(roots, r)
	}
	sort.Ints(roots)

	var groups [][]Item
	for _, r := range roots {
		group := groupsByRoot[r]
		if len(group) < 2 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			if !group[i].FirstMentionedAt.Equal(group[j].FirstMentionedAt) {
				return group[i].FirstMentionedAt.Before(group[j].FirstMentionedAt)
			}
			return group[i].MentionCount > group[j].MentionCount
		})
		groups = append(groups, group)
	}
	return groups, nil
}
