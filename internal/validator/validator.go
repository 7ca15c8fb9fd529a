// Package validator implements the word-coverage check applied to a story
// before it is published. It is deliberately small and side-effect free:
//
//   - No logging and no persistence (callers decide what to do on failure)
//   - Deterministic: identical inputs always produce identical results
//   - Unicode-aware normalization (punctuation stripping, case folding)
//
// Normalization turns every punctuation or symbol rune into a space,
// lower-cases the result, and splits on whitespace. Each resulting token may
// consume at most one outstanding occurrence of a required word; whatever is
// left outstanding after the scan is reported as missing, preserving the
// original relative order of the required-word list.
package validator

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxTextRunes is the maximum story length, in runes, accepted for
// publication.
const MaxTextRunes = 1000

// ErrTextTooLong is returned when the story body exceeds MaxTextRunes.
var ErrTextTooLong = errors.New("story text exceeds maximum length")

var lower = cases.Lower(language.Und)

// CheckCoverage verifies that text contains every word in figures after
// normalization. It returns the required words never matched, in their
// original relative order; a nil slice means full coverage. An empty
// required-word set always passes.
//
// Matching is by membership, not position: a token that equals an outstanding
// required word removes exactly one occurrence of it. Scanning stops as soon
// as nothing remains outstanding.
func CheckCoverage(text string, figures []string) ([]string, error) {
	if utf8.RuneCountInString(text) > MaxTextRunes {
		return nil, ErrTextTooLong
	}
	if len(figures) == 0 {
		return nil, nil
	}

	outstanding := make([]string, len(figures))
	copy(outstanding, figures)

	for _, tok := range tokenize(text) {
		for i, w := range outstanding {
			if tok == w {
				outstanding = append(outstanding[:i], outstanding[i+1:]...)
				break
			}
		}
		if len(outstanding) == 0 {
			return nil, nil
		}
	}
	return outstanding, nil
}

// tokenize normalizes text into comparable word tokens: punctuation and
// symbol runes become spaces, the result is lower-cased, then split on
// whitespace.
func tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return r
	}, text)
	return strings.Fields(lower.String(cleaned))
}
