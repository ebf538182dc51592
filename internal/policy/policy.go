// Package policy holds the safety policy tables: per-language, per-kind
// forbidden phrase lists and mandatory disclaimer statements. The tables are
// data, loaded once at process start from a versioned YAML file (or the
// embedded default) and compiled into immutable in-memory structures before
// first use. There is no runtime mutation API; validation never touches the
// network or disk.
package policy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scribe-safety-gate/internal/domain"
	"github.com/scribe-safety-gate/internal/normalize"
)

// file is the on-disk shape of the policy table.
type file struct {
	Version     string                                              `yaml:"version"`
	Phrases     map[domain.DocumentKind]map[domain.Language][]string `yaml:"phrases"`
	Disclaimers map[domain.DocumentKind]map[domain.Language]string   `yaml:"disclaimers"`
}

// compiledPhrase is a forbidden phrase with its normalized forms
// precomputed. Phrase lists are the only state cached across documents.
type compiledPhrase struct {
	canonical string
	spaced    string
	collapsed string
}

type tableKey struct {
	kind domain.DocumentKind
	lang domain.Language
}

// Set is the compiled, immutable policy: one phrase table and one
// disclaimer per (kind, language) pair. Safe for unsynchronized concurrent
// reads.
type Set struct {
	version     string
	phrases     map[tableKey][]compiledPhrase
	disclaimers map[tableKey]string
}

// Match describes a forbidden-phrase hit. Canonical is the phrase as it
// appears in the policy table, not the obfuscated text that triggered it.
type Match struct {
	Canonical string
}

// Load reads and compiles a policy table from the given path. An empty path
// loads the embedded default policy.
func Load(path string) (*Set, error) {
	if path == "" {
		return parse(defaultPolicy)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	return parse(data)
}

// parse decodes, verifies full population, and compiles the tables.
// Absence of any (kind, language) entry is a configuration error surfaced
// here, at startup, never at validation time.
func parse(data []byte) (*Set, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding policy file: %w", err)
	}
	if f.Version == "" {
		return nil, fmt.Errorf("policy file missing version")
	}

	set := &Set{
		version:     f.Version,
		phrases:     make(map[tableKey][]compiledPhrase),
		disclaimers: make(map[tableKey]string),
	}

	for _, kind := range domain.DocumentKinds() {
		for _, lang := range domain.Languages() {
			key := tableKey{kind: kind, lang: lang}

			list, ok := f.Phrases[kind][lang]
			if !ok || len(list) == 0 {
				return nil, fmt.Errorf("policy %s: no forbidden phrases for %s/%s", f.Version, kind, lang)
			}
			compiled := make([]compiledPhrase, 0, len(list))
			for _, raw := range list {
				if strings.TrimSpace(raw) == "" {
					return nil, fmt.Errorf("policy %s: empty phrase in %s/%s", f.Version, kind, lang)
				}
				nt := normalize.Normalize(raw)
				compiled = append(compiled, compiledPhrase{
					canonical: raw,
					spaced:    nt.Spaced,
					collapsed: nt.Collapsed,
				})
			}
			set.phrases[key] = compiled

			disclaimer, ok := f.Disclaimers[kind][lang]
			if !ok || disclaimer == "" {
				return nil, fmt.Errorf("policy %s: no disclaimer for %s/%s", f.Version, kind, lang)
			}
			set.disclaimers[key] = disclaimer
		}
	}

	return set, nil
}

// Version returns the policy table version, recorded in audit events.
func (s *Set) Version() string {
	return s.version
}

// MatchPhrase scans the normalized text against the phrase table for the
// given language and kind. A phrase matches when its collapsed form is a
// substring of the text's collapsed form, or its spaced form appears
// word-bounded in the text's spaced form. Substring rather than equality is
// deliberate: phrases embedded in longer sentences must still be caught.
// The first match short-circuits.
//
// Lists are strictly per (language, kind); a list for one kind is never
// consulted for another, even within the same language.
func (s *Set) MatchPhrase(nt normalize.NormalizedText, lang domain.Language, kind domain.DocumentKind) *Match {
	for _, p := range s.phrases[tableKey{kind: kind, lang: lang}] {
		if p.collapsed != "" && strings.Contains(nt.Collapsed, p.collapsed) {
			return &Match{Canonical: p.canonical}
		}
		if p.spaced != "" && containsWordBounded(nt.Spaced, p.spaced) {
			return &Match{Canonical: p.canonical}
		}
	}
	return nil
}

// Phrases returns the canonical forbidden phrases for the pair. Intended
// for policy tooling and tests; production surfaces must never echo these
// to end users.
func (s *Set) Phrases(lang domain.Language, kind domain.DocumentKind) []string {
	compiled := s.phrases[tableKey{kind: kind, lang: lang}]
	out := make([]string, len(compiled))
	for i, p := range compiled {
		out[i] = p.canonical
	}
	return out
}

// RequiredDisclaimer returns the mandatory disclaimer for the pair. The
// loader guarantees full population, so the lookup is infallible for valid
// enum values.
func (s *Set) RequiredDisclaimer(lang domain.Language, kind domain.DocumentKind) string {
	return s.disclaimers[tableKey{kind: kind, lang: lang}]
}

// DisclaimerMatches reports whether the candidate field is an exact match
// for the required disclaimer after trimming only leading and trailing
// whitespace. This is the one intentionally non-fuzzy check in the gate:
// the disclaimer is a fixed safety statement and must appear verbatim. A
// paraphrase, truncation, or stray trailing period is a failure.
func (s *Set) DisclaimerMatches(candidate string, lang domain.Language, kind domain.DocumentKind) bool {
	return strings.TrimSpace(candidate) == s.disclaimers[tableKey{kind: kind, lang: lang}]
}

// containsWordBounded reports whether needle occurs in haystack with word
// boundaries on both sides. Both strings are already in spaced form, so a
// single-space pad makes boundaries explicit.
func containsWordBounded(haystack, needle string) bool {
	if haystack == needle {
		return true
	}
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}
