// Package kagome implements the lexical analyzer on the kagome v2
// morphological analyzer with the IPA dictionary.
package kagome

import (
	"fmt"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/myaku-dev/myaku/internal/analyzer"
	"github.com/myaku-dev/myaku/internal/japanese"
	"github.com/myaku-dev/myaku/internal/models"
)

// ipaPOSDepth is how many leading IPA feature columns are part-of-speech tags.
const ipaPOSDepth = 4

// Analyzer tokenizes text with kagome. Safe for concurrent use; the kagome
// tokenizer itself is read-only after construction.
type Analyzer struct {
	tokenizer *tokenizer.Tokenizer
}

var _ analyzer.Analyzer = (*Analyzer)(nil)

// New creates a kagome-backed analyzer with the embedded IPA dictionary.
func New() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("%w: init kagome tokenizer: %v", models.ErrResourceUnavailable, err)
	}
	return &Analyzer{tokenizer: t}, nil
}

// AnalyzeText tokenizes text into found lexical items, one per base form,
// with MeCab-tag interpretations and rune-offset positions.
func (a *Analyzer) AnalyzeText(text string) ([]*models.FoundLexicalItem, error) {
	tokens := a.tokenizer.Tokenize(text)

	items := make([]*models.FoundLexicalItem, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Class == tokenizer.DUMMY {
			continue
		}
		// Symbol-only tokens (punctuation, whitespace) are not lexical items.
		if japanese.AlnumCount(tok.Surface) == 0 {
			continue
		}

		base := tok.Surface
		if bf, ok := tok.BaseForm(); ok && bf != "*" {
			base = bf
		}

		items = append(items, &models.FoundLexicalItem{
			BaseForm: base,
			FoundPositions: []models.Position{
				{Start: tok.Start, Len: tok.End - tok.Start},
			},
			PossibleInterps: []models.LexicalItemInterp{tokenInterp(tok)},
		})
	}

	return analyzer.Reduce(items), nil
}

// tokenInterp builds the MeCab interpretation for a token from its IPA
// dictionary features.
func tokenInterp(tok tokenizer.Token) models.LexicalItemInterp {
	tags := &models.MecabTags{}

	features := tok.Features()
	for i, f := range features {
		if i >= ipaPOSDepth {
			break
		}
		if f == "*" || f == "" {
			continue
		}
		tags.PartsOfSpeech = append(tags.PartsOfSpeech, f)
	}
	if ct, ok := tok.InflectionalType(); ok && ct != "*" {
		tags.ConjugatedType = ct
	}
	if cf, ok := tok.InflectionalForm(); ok && cf != "*" {
		tags.ConjugatedForm = cf
	}

	return models.LexicalItemInterp{
		Sources:   []models.InterpSource{models.InterpSourceMecab},
		MecabTags: tags,
	}
}
