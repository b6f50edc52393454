// Package score computes article quality scores, per-FLI score modifiers,
// and the composite rank keys used for search ordering. All factor scores
// are normalized to [-1.0, 1.0] and scaled to the [-1000, 1000] integer
// band before weighting.
package score

import (
	"fmt"
	"math"
	"time"

	"github.com/myaku-dev/myaku/internal/models"
)

const factorScale = 1000

// Factor weights.
const (
	lengthWeight     = 3
	blogOrderWeight  = 1
	blogRatingWeight = 2
	hasVideoWeight   = 1
	recencyWeight    = 2
	termFreqWeight   = 3
)

// newsSourceRatingFactor is the flat rating factor for articles that do not
// belong to a blog (news sources carry no reader ratings).
const newsSourceRatingFactor = 0.25

// recencyFactors is the multiplier ladder applied per recency tier; the
// final entry applies beyond the last tier boundary.
var recencyFactors = []float64{1.0, 0.9, 0.7, 0.5, 0.3, 0.1, 0.0}

const recencyBeyondFactor = -0.2

// DefaultRecencyTierDays are the age boundaries, in days, of the recency
// factor tiers.
var DefaultRecencyTierDays = []int{7, 30, 90, 180, 365, 730, 1095}

// Scorer computes quality scores. It is a bundle of pure functions plus the
// configured recency tier table.
type Scorer struct {
	tierDays []int
}

// NewScorer creates a scorer with the default recency tiers.
func NewScorer() *Scorer {
	return &Scorer{tierDays: DefaultRecencyTierDays}
}

// NewScorerWithTiers creates a scorer with custom recency tier boundaries.
// The boundary count must match the factor ladder.
func NewScorerWithTiers(tierDays []int) (*Scorer, error) {
	if len(tierDays) != len(recencyFactors) {
		return nil, fmt.Errorf("expected %d recency tier boundaries, got %d",
			len(recencyFactors), len(tierDays))
	}
	for i := 1; i < len(tierDays); i++ {
		if tierDays[i] <= tierDays[i-1] {
			return nil, fmt.Errorf("recency tier boundaries must increase: %v", tierDays)
		}
	}
	return &Scorer{tierDays: tierDays}, nil
}

// TierDays returns the recency tier boundaries in days. The rescore pass
// scans for articles whose age crossed one of these since its last run.
func (s *Scorer) TierDays() []int {
	return s.tierDays
}

// ScoreArticle computes the article quality score at the given time.
func (s *Scorer) ScoreArticle(a *models.Article, now time.Time) int {
	sum := lengthFactor(a.AlnumCount)*lengthWeight +
		blogOrderFactor(a)*blogOrderWeight +
		blogRatingFactor(a)*blogRatingWeight +
		hasVideoFactor(a)*hasVideoWeight +
		s.recencyFactor(a, now)*recencyWeight
	return int(math.Round(sum * factorScale))
}

// FLIScoreMod computes the per-FLI score modifier from the number of times
// the lexical item occurs in the article.
func (s *Scorer) FLIScoreMod(occurrences int) int {
	var tf float64
	switch {
	case occurrences <= 1:
		tf = 0
	case occurrences == 2:
		tf = 0.25
	case occurrences == 3:
		tf = 0.5
	case occurrences == 4:
		tf = 0.75
	default:
		tf = 1.0
	}
	return int(math.Round(tf * factorScale * termFreqWeight))
}

// lengthFactor scores article length by alphanumeric character count. The
// ideal band is 500-800; very short and very long articles score negative.
func lengthFactor(alnumCount int) float64 {
	switch {
	case alnumCount < 300:
		return -0.5
	case alnumCount < 500:
		return 0.5
	case alnumCount <= 800:
		return 1.0
	case alnumCount <= 1500:
		return 0.6
	case alnumCount <= 2500:
		return 0.2
	default:
		return -0.3
	}
}

// blogOrderFactor rewards the opening article of a blog or of a blog section.
func blogOrderFactor(a *models.Article) float64 {
	if a.BlogArticleOrderNum != nil && *a.BlogArticleOrderNum == 1 {
		return 1.0
	}
	if a.BlogSectionArticleOrderNum != nil && *a.BlogSectionArticleOrderNum == 1 {
		return 0.5
	}
	return 0
}

// blogRatingFactor scores reader ratings. News articles get a flat positive
// factor; serialized blog articles are scored on the blog's rating total.
func blogRatingFactor(a *models.Article) float64 {
	if a.Blog == nil {
		return newsSourceRatingFactor
	}
	if a.Blog.Rating == nil {
		return 0
	}
	rating := *a.Blog.Rating
	switch {
	case rating <= 5:
		return -0.5
	case rating <= 10:
		return 0
	case rating <= 25:
		return 0.25
	case rating <= 50:
		return 0.5
	case rating <= 100:
		return 0.75
	default:
		return 1.0
	}
}

func hasVideoFactor(a *models.Article) float64 {
	if a.HasVideo {
		return 1.0
	}
	return 0
}

// recencyFactor scores article freshness by age in days, preferring the
// last-updated datetime and falling back to publication.
func (s *Scorer) recencyFactor(a *models.Article, now time.Time) float64 {
	ref := a.LastUpdatedDT
	if ref.IsZero() {
		ref = a.PublicationDT
	}
	if ref.IsZero() {
		return 0
	}
	ageDays := now.Sub(ref).Hours() / 24
	for i, boundary := range s.tierDays {
		if ageDays <= float64(boundary) {
			return recencyFactors[i]
		}
	}
	return recencyBeyondFactor
}
