package score

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myaku-dev/myaku/internal/models"
)

var now = time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

func TestScoreNewsArticle(t *testing.T) {
	s := NewScorer()

	// Ideal length (1.0·3), no blog order bonus, news rating (0.25·2), no
	// video, fresh (1.0·2): 3 + 0.5 + 2 = 5.5.
	a := &models.Article{
		AlnumCount:    600,
		LastUpdatedDT: now.Add(-24 * time.Hour),
	}
	assert.Equal(t, 5500, s.ScoreArticle(a, now))
}

func TestScoreBlogArticle(t *testing.T) {
	s := NewScorer()

	rating := 60.0
	first := 1
	// Short (-0.5·3), opening article (1.0·1), rating 60 (0.75·2), video
	// (1.0·1), 100 days old (0.5·2): -1.5 + 1 + 1.5 + 1 + 1 = 3.0.
	a := &models.Article{
		AlnumCount:          200,
		BlogArticleOrderNum: &first,
		Blog:                &models.Blog{Rating: &rating},
		HasVideo:            true,
		LastUpdatedDT:       now.Add(-100 * 24 * time.Hour),
	}
	assert.Equal(t, 3000, s.ScoreArticle(a, now))
}

func TestRecencyTiers(t *testing.T) {
	s := NewScorer()
	a := &models.Article{AlnumCount: 600} // length 3.0, rating 0.5 fixed

	cases := []struct {
		ageDays int
		want    int
	}{
		{1, 5500},    // tier 1: factor 1.0
		{8, 5300},    // tier 2: 0.9
		{31, 4900},   // tier 3: 0.7
		{91, 4500},   // tier 4: 0.5
		{181, 4100},  // tier 5: 0.3
		{366, 3700},  // tier 6: 0.1
		{731, 3500},  // tier 7: 0.0
		{1096, 3100}, // beyond the ladder: -0.2
	}
	for _, tc := range cases {
		a.LastUpdatedDT = now.Add(-time.Duration(tc.ageDays) * 24 * time.Hour)
		assert.Equal(t, tc.want, s.ScoreArticle(a, now), "age %d days", tc.ageDays)
	}
}

func TestRecencyFallsBackToPublication(t *testing.T) {
	s := NewScorer()

	a := &models.Article{AlnumCount: 600, PublicationDT: now.Add(-24 * time.Hour)}
	assert.Equal(t, 5500, s.ScoreArticle(a, now))

	// No datetime at all: recency contributes nothing.
	assert.Equal(t, 3500, s.ScoreArticle(&models.Article{AlnumCount: 600}, now))
}

func TestFLIScoreMod(t *testing.T) {
	s := NewScorer()

	assert.Equal(t, 0, s.FLIScoreMod(0))
	assert.Equal(t, 0, s.FLIScoreMod(1))
	assert.Equal(t, 750, s.FLIScoreMod(2))
	assert.Equal(t, 1500, s.FLIScoreMod(3))
	assert.Equal(t, 2250, s.FLIScoreMod(4))
	assert.Equal(t, 3000, s.FLIScoreMod(5))
	assert.Equal(t, 3000, s.FLIScoreMod(50))
}

func TestNewScorerWithTiers(t *testing.T) {
	s, err := NewScorerWithTiers([]int{7, 30, 90, 180, 365, 730, 1095})
	require.NoError(t, err)
	assert.Equal(t, []int{7, 30, 90, 180, 365, 730, 1095}, s.TierDays())

	_, err = NewScorerWithTiers([]int{7, 30})
	assert.Error(t, err, "boundary count must match the factor ladder")

	_, err = NewScorerWithTiers([]int{7, 30, 30, 180, 365, 730, 1095})
	assert.Error(t, err, "boundaries must strictly increase")
}
