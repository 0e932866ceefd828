package textcase

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/phambaophuc/convert-toolkit/internal/apperrors"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	upper = cases.Upper(language.Und)
	lower = cases.Lower(language.Und)
)

// Convert applies the named case transformation to text.
func Convert(text string, mode models.TextCase) (string, error) {
	switch mode {
	case models.CaseUpper:
		return upper.String(text), nil
	case models.CaseLower:
		return lower.String(text), nil
	case models.CaseSentence:
		return Sentence(text), nil
	case models.CaseTitle:
		return CapitalizeWords(text), nil
	case models.CaseToggle:
		return Toggle(text), nil
	case models.CaseAlternating:
		return Alternating(text), nil
	default:
		return "", apperrors.Validation(fmt.Sprintf("unknown text case: %s", mode))
	}
}

// Sentence lowercases text and capitalizes the first word character of the
// text and the first one after each '.', '!' or '?'.
func Sentence(text string) string {
	runes := []rune(lower.String(text))
	capNext := true
	for i, r := range runes {
		switch {
		case isWordRune(r):
			if capNext {
				runes[i] = unicode.ToUpper(r)
			}
			capNext = false
		case r == '.' || r == '!' || r == '?':
			capNext = true
		case unicode.IsSpace(r):
		default:
			capNext = false
		}
	}
	return string(runes)
}

// CapitalizeWords uppercases the first character of every word and leaves
// the rest untouched.
func CapitalizeWords(text string) string {
	runes := []rune(text)
	prevWord := false
	for i, r := range runes {
		word := isWordRune(r)
		if word && !prevWord {
			runes[i] = unicode.ToUpper(r)
		}
		prevWord = word
	}
	return string(runes)
}

// Toggle swaps the case of every letter.
func Toggle(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsUpper(r) {
			return unicode.ToLower(r)
		}
		return unicode.ToUpper(r)
	}, text)
}

// Alternating upper- and lowercases letters in turn, starting with upper.
// Non-letters are kept and do not advance the alternation.
func Alternating(text string) string {
	up := true
	return strings.Map(func(r rune) rune {
		if !unicode.IsLetter(r) {
			return r
		}
		if up {
			r = unicode.ToUpper(r)
		} else {
			r = unicode.ToLower(r)
		}
		up = !up
		return r
	}, text)
}

func Stats(text string) models.TextStats {
	stats := models.TextStats{
		Characters: utf8.RuneCountInString(text),
		Words:      len(strings.Fields(text)),
	}
	for _, r := range text {
		if !unicode.IsSpace(r) {
			stats.CharactersNoSpace++
		}
	}
	if text != "" {
		stats.Lines = strings.Count(text, "\n") + 1
	}
	return stats
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
