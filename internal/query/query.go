// Package query normalizes, validates, and expands user queries before
// retrieval.
package query

import (
	"errors"
	"strings"
	"unicode"
)

// MinQueryLength is the minimum length of a normalized query.
const MinQueryLength = 3

// ErrInvalidQuery is returned when a query is too short or contains no
// searchable terms after normalization.
var ErrInvalidQuery = errors.New("invalid query")

// Normalize lowercases the query, strips characters outside letters, digits,
// whitespace and basic punctuation, and collapses runs of whitespace.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToLower(raw) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r):
			b.WriteRune(r)
		case r == '-' || r == '.' || r == ',' || r == '!' || r == '?':
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Validate checks that a normalized query is long enough and contains at
// least one letter or digit.
func Validate(normalized string) error {
	if len(normalized) < MinQueryLength {
		return ErrInvalidQuery
	}
	for _, r := range normalized {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return nil
		}
	}
	return ErrInvalidQuery
}

// stop words skipped during keyword extraction. The set is intentionally
// small; rarer function words still carry signal in short queries.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "but": {}, "by": {}, "for": {}, "from": {}, "has": {},
	"have": {}, "how": {}, "in": {}, "is": {}, "it": {}, "its": {},
	"of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "this": {},
	"to": {}, "was": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"who": {}, "why": {}, "will": {}, "with": {},
}

// Keywords extracts up to maxK distinct non-stop-word terms from a
// normalized query, preserving first-occurrence order. Trailing punctuation
// is stripped from each term.
func Keywords(normalized string, maxK int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, term := range strings.Fields(normalized) {
		term = strings.TrimFunc(term, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if term == "" {
			continue
		}
		if _, stop := stopWords[term]; stop {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
		if maxK > 0 && len(out) >= maxK {
			break
		}
	}
	return out
}

// synonyms maps a keyword to additional terms appended during expansion.
var synonyms = map[string][]string{
	"ai":       {"artificial intelligence"},
	"ml":       {"machine learning"},
	"llm":      {"language model"},
	"db":       {"database"},
	"k8s":      {"kubernetes"},
	"startup":  {"company"},
	"growth":   {"scaling"},
	"post":     {"article"},
	"tech":     {"technology"},
	"dev":      {"developer"},
}

// Expand appends synonym terms for known keywords to the normalized query.
// The original query text is always kept first so exact matches keep
// outranking expansions.
func Expand(normalized string) string {
	var extra []string
	for _, kw := range Keywords(normalized, 0) {
		if syn, ok := synonyms[kw]; ok {
			extra = append(extra, syn...)
		}
	}
	if len(extra) == 0 {
		return normalized
	}
	return normalized + " " + strings.Join(extra, " ")
}
