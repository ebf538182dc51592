// Package normalize canonicalizes raw clinical text into matching-friendly
// forms. Normalization is a pure function with no failure mode: every
// string, including the empty string, has a normalization.
//
// Two views are produced because obfuscation strategies differ. Inserted
// spacing ("p n e u m o n i a") is caught by the collapsed form; injected
// punctuation ("pneumon.ia") collapses away in the same form; case games are
// neutralized up front. The spaced form supports word-bounded matching so
// multi-word phrases are found inside longer sentences.
//
// The fold-and-collapse approach is oriented at Latin-script text; the four
// supported languages are English plus three diacritic-bearing Romance
// languages. Non-Latin scripts pass through the same transforms but no
// guarantee is made about their obfuscation coverage.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizedText holds both canonical views of a piece of text.
type NormalizedText struct {
	// Spaced has runs of whitespace and punctuation collapsed to a single
	// space, with leading/trailing space trimmed.
	Spaced string

	// Collapsed has all whitespace and punctuation removed entirely.
	Collapsed string
}

// Normalize canonicalizes raw text: locale-agnostic lowercasing, diacritic
// stripping via NFD decomposition, then the spaced and collapsed views.
func Normalize(raw string) NormalizedText {
	folded := fold(raw)
	return NormalizedText{
		Spaced:    spacedForm(folded),
		Collapsed: collapsedForm(folded),
	}
}

// fold lowercases and strips combining marks. NFD decomposes "é" into
// "e" + U+0301; dropping the Mn runes leaves the base letter, so "café" and
// "cafe" normalize identically.
func fold(s string) string {
	s = norm.NFD.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// separator reports whether the rune counts as filler between letters:
// whitespace, punctuation, or symbols. Digits and letters are content.
func separator(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}

func spacedForm(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSeparator := false
	for _, r := range s {
		if separator(r) {
			inSeparator = true
			continue
		}
		if inSeparator && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSeparator = false
		b.WriteRune(r)
	}
	return b.String()
}

func collapsedForm(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if separator(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
