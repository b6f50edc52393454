// Package japanese provides text utilities for Japanese article content:
// width normalization, kana conversion, character counting, and sentence
// boundary detection.
package japanese

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// IdeographicSpace is the canonical whitespace used inside preview samples.
const IdeographicSpace = '　'

// SentenceEnders are the characters treated as Japanese sentence terminators.
const SentenceEnders = "。？！?!\n"

// NormalizeWidth folds character widths to their canonical forms: fullwidth
// alphanumerics become halfwidth, halfwidth katakana becomes fullwidth.
func NormalizeWidth(s string) string {
	return width.Fold.String(s)
}

// AlnumCount returns the number of alphanumeric characters in s after width
// normalization. Japanese letters count; punctuation and whitespace do not.
func AlnumCount(s string) int {
	count := 0
	for _, r := range NormalizeWidth(s) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			count++
		}
	}
	return count
}

// Kana block transposition offsets. Hiragana ぁ..ゖ maps onto katakana ァ..ヶ.
const (
	hiraganaLo = 'ぁ' // ぁ
	hiraganaHi = 'ゖ' // ゖ
	katakanaLo = 'ァ' // ァ
	katakanaHi = 'ヶ' // ヶ
	kanaOffset = katakanaLo - hiraganaLo
)

// ToHiragana converts katakana runes in s to hiragana, leaving everything
// else untouched.
func ToHiragana(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= katakanaLo && r <= katakanaHi {
			return r - kanaOffset
		}
		return r
	}, s)
}

// ToKatakana converts hiragana runes in s to katakana, leaving everything
// else untouched.
func ToKatakana(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= hiraganaLo && r <= hiraganaHi {
			return r + kanaOffset
		}
		return r
	}, s)
}

// ContainsJapanese reports whether s contains any hiragana, katakana, or
// kanji characters.
func ContainsJapanese(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return true
		}
	}
	return false
}

// IsSentenceEnd reports whether r terminates a Japanese sentence.
func IsSentenceEnd(r rune) bool {
	return strings.ContainsRune(SentenceEnders, r)
}

// CollapseWhitespace replaces every run of Unicode whitespace in s with a
// single ideographic space. Leading and trailing runs are dropped.
func CollapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	wrote := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && wrote {
			b.WriteRune(IdeographicSpace)
		}
		inSpace = false
		wrote = true
		b.WriteRune(r)
	}
	return b.String()
}

// SentenceSpan is a half-open rune range [Start, End) covering one sentence
// including its terminator run.
type SentenceSpan struct {
	Start int
	End   int
}

// SplitSentences splits text into sentence spans over its runes. Consecutive
// terminators attach to the preceding sentence. The spans cover the text
// exactly, in order.
func SplitSentences(text []rune) []SentenceSpan {
	var spans []SentenceSpan
	start := 0
	i := 0
	for i < len(text) {
		if IsSentenceEnd(text[i]) {
			// Absorb the full terminator run (e.g. "！？" or "。\n").
			for i < len(text) && IsSentenceEnd(text[i]) {
				i++
			}
			spans = append(spans, SentenceSpan{Start: start, End: i})
			start = i
			continue
		}
		i++
	}
	if start < len(text) {
		spans = append(spans, SentenceSpan{Start: start, End: len(text)})
	}
	return spans
}
