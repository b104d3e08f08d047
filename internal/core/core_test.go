package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFunctionalCategoriesIsClosed(t *testing.T) {
	assert.Len(t, FunctionalCategories, 11)
	assert.Contains(t, FunctionalCategories, CategoryModelRelease)
	assert.Contains(t, FunctionalCategories, CategoryOther)
}

func TestEpisodeZeroValueHasNoScores(t *testing.T) {
	var ep Episode
	assert.Nil(t, ep.Scores)
	assert.Equal(t, EpisodeStatus(""), ep.Status)
}

func TestStoryArcEventOrdering(t *testing.T) {
	now := time.Now()
	e1 := StoryArcEvent{EventDate: now}
	e2 := StoryArcEvent{EventDate: now.Add(time.Hour)}
	assert.True(t, e1.EventDate.Before(e2.EventDate))
}
