// Package analyzer defines the lexical analysis contract: turning Japanese
// article text into found lexical items keyed by dictionary base form.
package analyzer

import (
	"sort"

	"github.com/myaku-dev/myaku/internal/japanese"
	"github.com/myaku-dev/myaku/internal/models"
)

// Analyzer tokenizes Japanese text into lexical items with interpretations.
//
// Contract: returned items are keyed by width-normalized base form with at
// most one item per base form (implementations reduce token-level items
// before returning). Positions are rune offsets into the input, ordered and
// non-overlapping per token; symbol-only tokens are omitted.
type Analyzer interface {
	AnalyzeText(text string) ([]*models.FoundLexicalItem, error)
}

// Reduce merges token-level items sharing a base form (after width
// normalization) into one FLI per base form: positions are unioned,
// interpretations are unioned, and InterpPositionMap records the positions
// each interpretation applies to, omitted when an interpretation applies to
// every position.
func Reduce(items []*models.FoundLexicalItem) []*models.FoundLexicalItem {
	type accum struct {
		fli       *models.FoundLexicalItem
		interpPos [][]models.Position // parallel to fli.PossibleInterps
	}

	var order []string
	byBase := make(map[string]*accum)

	for _, item := range items {
		base := japanese.NormalizeWidth(item.BaseForm)
		acc, ok := byBase[base]
		if !ok {
			acc = &accum{fli: &models.FoundLexicalItem{BaseForm: base}}
			byBase[base] = acc
			order = append(order, base)
		}
		acc.fli.FoundPositions = appendPositions(acc.fli.FoundPositions, item.FoundPositions)

		for _, interp := range item.PossibleInterps {
			idx := -1
			for i, existing := range acc.fli.PossibleInterps {
				if existing.Equal(interp) {
					idx = i
					break
				}
			}
			if idx < 0 {
				acc.fli.PossibleInterps = append(acc.fli.PossibleInterps, interp)
				acc.interpPos = append(acc.interpPos, nil)
				idx = len(acc.fli.PossibleInterps) - 1
			}
			acc.interpPos[idx] = appendPositions(acc.interpPos[idx], item.FoundPositions)
		}
	}

	reduced := make([]*models.FoundLexicalItem, 0, len(order))
	for _, base := range order {
		acc := byBase[base]
		sortPositions(acc.fli.FoundPositions)
		for i := range acc.interpPos {
			sortPositions(acc.interpPos[i])
			if len(acc.interpPos[i]) == len(acc.fli.FoundPositions) {
				continue
			}
			if acc.fli.InterpPositionMap == nil {
				acc.fli.InterpPositionMap = make(map[int][]models.Position)
			}
			acc.fli.InterpPositionMap[i] = acc.interpPos[i]
		}
		reduced = append(reduced, acc.fli)
	}
	return reduced
}

// appendPositions adds positions to dst, skipping exact duplicates.
func appendPositions(dst []models.Position, src []models.Position) []models.Position {
	for _, p := range src {
		dup := false
		for _, existing := range dst {
			if existing == p {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, p)
		}
	}
	return dst
}

func sortPositions(positions []models.Position) {
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].Start != positions[j].Start {
			return positions[i].Start < positions[j].Start
		}
		return positions[i].Len < positions[j].Len
	})
}
