package testutils

import (
	"github.com/myaku-dev/myaku/internal/analyzer"
	"github.com/myaku-dev/myaku/internal/models"
)

// FakeAnalyzer finds occurrences of a fixed term list instead of running a
// morphological analyzer. Positions are rune offsets like the real one.
type FakeAnalyzer struct {
	Terms []string
}

var _ analyzer.Analyzer = (*FakeAnalyzer)(nil)

// AnalyzeText returns one FLI per term found in text.
func (a *FakeAnalyzer) AnalyzeText(text string) ([]*models.FoundLexicalItem, error) {
	runes := []rune(text)

	var items []*models.FoundLexicalItem
	for _, term := range a.Terms {
		termRunes := []rune(term)
		var positions []models.Position
		for i := 0; i+len(termRunes) <= len(runes); i++ {
			if string(runes[i:i+len(termRunes)]) == term {
				positions = append(positions, models.Position{Start: i, Len: len(termRunes)})
			}
		}
		if len(positions) == 0 {
			continue
		}
		items = append(items, &models.FoundLexicalItem{
			BaseForm:       term,
			FoundPositions: positions,
			PossibleInterps: []models.LexicalItemInterp{{
				Sources:   []models.InterpSource{models.InterpSourceMecab},
				MecabTags: &models.MecabTags{PartsOfSpeech: []string{"名詞"}},
			}},
		})
	}
	return items, nil
}
