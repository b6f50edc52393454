// Package preview builds the short text samples shown with search results.
// A sample is a sentence-aligned window of the article around the queried
// item's match positions, kept within a readable length band.
package preview

import (
	"fmt"
	"sort"
	"unicode"

	"github.com/myaku-dev/myaku/internal/japanese"
	"github.com/myaku-dev/myaku/internal/models"
)

// Sample length bands, in runes.
const (
	minAcceptableLen = 50
	maxAcceptableLen = 100
	idealMinLen      = 70
	idealMaxLen      = 90

	maxSamples = 3
	// previewSharePct caps the combined sample length relative to the
	// article text; the main sample is always kept.
	previewSharePct = 15
)

// Builder assembles preview samples. Stateless and safe for concurrent use.
type Builder struct{}

// New creates a preview builder.
func New() *Builder { return &Builder{} }

// span is a half-open rune range within the article text.
type span struct {
	lo, hi int
}

func (s span) len() int { return s.hi - s.lo }

// Build returns the main sample plus up to two extra samples for the
// article's match positions. Returns nil when there is nothing to show.
func (b *Builder) Build(article *models.Article, positions []models.Position) (*models.SampleText, []*models.SampleText) {
	if article == nil || len(positions) == 0 {
		return nil, nil
	}
	runes := []rune(article.FullText)
	if len(runes) == 0 {
		return nil, nil
	}

	sorted := make([]models.Position, len(positions))
	copy(sorted, positions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	sents := japanese.SplitSentences(runes)
	bySent := groupBySentence(sents, sorted)

	candidates := rankSentences(sents, bySent)
	used := make([]bool, len(sents))
	budget := len(runes) * previewSharePct / 100

	var samples []*models.SampleText
	usedLen := 0
	for _, si := range candidates {
		if len(samples) == maxSamples {
			break
		}
		if used[si] {
			continue
		}

		rng := b.sampleRange(runes, sents, si, bySent[si])
		if len(samples) > 0 && usedLen+rng.len() > budget {
			break
		}

		markUsed(sents, rng, used)
		samples = append(samples, buildSample(runes, rng, sents, sorted))
		usedLen += rng.len()
	}

	if len(samples) == 0 {
		return nil, nil
	}
	return samples[0], samples[1:]
}

// groupBySentence maps sentence index to the match positions starting in it.
func groupBySentence(sents []japanese.SentenceSpan, positions []models.Position) map[int][]models.Position {
	bySent := make(map[int][]models.Position)
	for _, pos := range positions {
		i := sort.Search(len(sents), func(i int) bool { return sents[i].End > pos.Start })
		if i < len(sents) {
			bySent[i] = append(bySent[i], pos)
		}
	}
	return bySent
}

// rankSentences orders matched sentences by preview quality: the length
// tier first, longer within a tier, earlier in the article on ties.
func rankSentences(sents []japanese.SentenceSpan, bySent map[int][]models.Position) []int {
	candidates := make([]int, 0, len(bySent))
	for si := range bySent {
		candidates = append(candidates, si)
	}
	sort.Slice(candidates, func(a, b int) bool {
		la := sents[candidates[a]].End - sents[candidates[a]].Start
		lb := sents[candidates[b]].End - sents[candidates[b]].Start
		ta, tb := lengthTier(la), lengthTier(lb)
		if ta != tb {
			return ta > tb
		}
		if la != lb {
			return la > lb
		}
		return candidates[a] < candidates[b]
	})
	return candidates
}

func lengthTier(n int) int {
	switch {
	case n >= idealMinLen && n <= idealMaxLen:
		return 2
	case n >= minAcceptableLen && n < idealMinLen:
		return 1
	case n > idealMaxLen && n <= maxAcceptableLen:
		return 0
	case n < minAcceptableLen:
		return -1
	default:
		return -2
	}
}

func markUsed(sents []japanese.SentenceSpan, rng span, used []bool) {
	for i, s := range sents {
		if s.Start < rng.hi && s.End > rng.lo {
			used[i] = true
		}
	}
}

// sampleRange turns one matched sentence into the final sample window:
// over-long sentences are trimmed around their matches, short ones are
// expanded with neighbor sentences.
func (b *Builder) sampleRange(runes []rune, sents []japanese.SentenceSpan, si int, matches []models.Position) span {
	sent := sents[si]
	if sent.End-sent.Start > maxAcceptableLen {
		return trimToMatches(sent, matches)
	}
	return expand(runes, sents, si)
}

// trimToMatches finds the contiguous run of match positions that fits the
// length cap with the most matches, then pads toward the cap. Padding goes
// all to one side when the other has little room, otherwise it is balanced.
func trimToMatches(sent japanese.SentenceSpan, matches []models.Position) span {
	sort.Slice(matches, func(i, j int) bool { return matches[i].Start < matches[j].Start })

	best := span{lo: matches[0].Start, hi: matches[0].End()}
	bestCount := 1
	for i := 0; i < len(matches); i++ {
		for j := i + bestCount; j < len(matches); j++ {
			if matches[j].End()-matches[i].Start > maxAcceptableLen {
				break
			}
			if j-i+1 > bestCount {
				bestCount = j - i + 1
				best = span{lo: matches[i].Start, hi: matches[j].End()}
			}
		}
	}
	if best.len() > maxAcceptableLen {
		// A single occurrence longer than the cap; show its head.
		best.hi = best.lo + maxAcceptableLen
	}

	rem := maxAcceptableLen - best.len()
	leftRoom := best.lo - sent.Start
	rightRoom := sent.End - best.hi

	var padLeft, padRight int
	switch {
	case leftRoom <= rem/2:
		padLeft = leftRoom
		padRight = min(rightRoom, rem-padLeft)
	case rightRoom <= rem/2:
		padRight = rightRoom
		padLeft = min(leftRoom, rem-padRight)
	default:
		padLeft = rem / 2
		padRight = rem - padLeft
	}

	return span{lo: best.lo - padLeft, hi: best.hi + padRight}
}

// expand grows the sentence toward the ideal length band by appending
// neighbor sentences, staying inside the paragraph first, then crossing
// paragraph breaks if the sample is still too short, and finally taking
// partial sentences when whole ones cannot get it to the minimum.
func expand(runes []rune, sents []japanese.SentenceSpan, si int) span {
	lo, hi := si, si
	rng := span{lo: sents[si].Start, hi: sents[si].End}

	grow := func(crossParagraphs bool) {
		for rng.len() < idealMinLen {
			nextOK := hi+1 < len(sents) &&
				(crossParagraphs || !paragraphBreakAfter(runes, sents[hi])) &&
				rng.len()+sentLen(sents[hi+1]) <= maxAcceptableLen
			prevOK := lo > 0 &&
				(crossParagraphs || !paragraphBreakAfter(runes, sents[lo-1])) &&
				rng.len()+sentLen(sents[lo-1]) <= maxAcceptableLen

			switch {
			case nextOK:
				hi++
				rng.hi = sents[hi].End
			case prevOK:
				lo--
				rng.lo = sents[lo].Start
			default:
				return
			}
		}
	}

	grow(false)
	if rng.len() < minAcceptableLen {
		grow(true)
	}
	if rng.len() < minAcceptableLen {
		// Take partial neighbor text up to the cap.
		rng.hi = min(len(runes), rng.lo+maxAcceptableLen)
		if rng.len() < maxAcceptableLen {
			rng.lo = max(0, rng.hi-maxAcceptableLen)
		}
	}
	return rng
}

func sentLen(s japanese.SentenceSpan) int { return s.End - s.Start }

// paragraphBreakAfter reports whether the sentence's terminator run contains
// a newline, i.e. the paragraph ends with it.
func paragraphBreakAfter(runes []rune, s japanese.SentenceSpan) bool {
	for i := s.End - 1; i >= s.Start; i-- {
		if !japanese.IsSentenceEnd(runes[i]) {
			return false
		}
		if runes[i] == '\n' {
			return true
		}
	}
	return false
}

// buildSample renders the window into segments split exactly at match
// position boundaries, with ellipsis markers at cut (non-sentence-aligned)
// ends and whitespace collapsed to single ideographic spaces.
func buildSample(runes []rune, rng span, sents []japanese.SentenceSpan, positions []models.Position) *models.SampleText {
	sample := &models.SampleText{
		TextStartIndex:       rng.lo,
		ArticlePositionLabel: fmt.Sprintf("%d%%", rng.lo*100/len(runes)),
	}

	// Clip match positions to the window and drop overlaps.
	var marks []span
	for _, pos := range positions {
		lo, hi := max(pos.Start, rng.lo), min(pos.End(), rng.hi)
		if len(marks) > 0 && lo < marks[len(marks)-1].hi {
			lo = marks[len(marks)-1].hi
		}
		if hi > lo {
			marks = append(marks, span{lo: lo, hi: hi})
		}
	}

	if cutAt(sents, rng.lo, true) {
		sample.Segments = append(sample.Segments, models.Segment{Text: models.Ellipsis})
	}

	var buf []rune
	curMatch := false
	flush := func() {
		if len(buf) > 0 {
			sample.Segments = append(sample.Segments, models.Segment{
				IsQueryMatch: curMatch,
				Text:         string(buf),
			})
			buf = nil
		}
	}

	// Single pass over the window: whitespace runs outside matches collapse
	// to one ideographic space, segments break exactly at match boundaries.
	pendingSpace := false
	wrote := false
	mi := 0
	for i := rng.lo; i < rng.hi; i++ {
		for mi < len(marks) && i >= marks[mi].hi {
			mi++
		}
		inMatch := mi < len(marks) && i >= marks[mi].lo

		r := runes[i]
		if unicode.IsSpace(r) && !inMatch {
			pendingSpace = true
			continue
		}
		if pendingSpace {
			if wrote {
				if curMatch {
					flush()
					curMatch = false
				}
				buf = append(buf, japanese.IdeographicSpace)
			}
			pendingSpace = false
		}
		if inMatch != curMatch {
			flush()
			curMatch = inMatch
		}
		buf = append(buf, r)
		wrote = true
	}
	flush()

	if cutAt(sents, rng.hi, false) {
		sample.Segments = append(sample.Segments, models.Segment{Text: models.Ellipsis})
	}
	return sample
}

// cutAt reports whether offset falls inside a sentence rather than on a
// sentence or text boundary.
func cutAt(sents []japanese.SentenceSpan, offset int, leading bool) bool {
	if len(sents) == 0 {
		return false
	}
	if leading && offset == 0 {
		return false
	}
	if !leading && offset == sents[len(sents)-1].End {
		return false
	}
	for _, s := range sents {
		if offset == s.Start || offset == s.End {
			return false
		}
	}
	return true
}
