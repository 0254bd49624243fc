// Package features turns suggestion text into a fixed-shape numeric
// feature vector. The engine treats extraction as an opaque pure
// function; this package provides the default implementation.
package features

import (
	"strings"
	"unicode"
)

// #region feature-set

// Dimension is the fixed width of every extracted feature vector.
const Dimension = 10

// FeatureSet is a fixed-shape vector of engineered features plus the
// names of each slot for interpretability.
type FeatureSet struct {
	Values [Dimension]float64
}

// FeatureNames lists the meaning of each vector slot, index-aligned
// with FeatureSet.Values.
var FeatureNames = [Dimension]string{
	"length_norm",
	"word_count_norm",
	"avg_word_length",
	"content_word_ratio",
	"digit_ratio",
	"punct_ratio",
	"uppercase_ratio",
	"action_keyword_hits",
	"metric_keyword_hits",
	"context_length_norm",
}

// #endregion feature-set

// #region extractor-interface

// Extractor abstracts feature extraction so the engine can be tested
// with a stub and callers can plug in richer extractors.
type Extractor interface {
	Extract(text, context string) FeatureSet
}

// #endregion extractor-interface

// #region text-extractor

// TextExtractor is the default deterministic extractor built on
// surface text statistics and keyword hits.
type TextExtractor struct{}

// NewTextExtractor returns the default extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// actionKeywords mark imperative improvement phrasing.
var actionKeywords = []string{
	"refactor", "optimize", "cache", "reduce", "remove", "replace",
	"add", "extract", "split", "merge", "validate", "fix",
}

// metricKeywords mark measurable claims.
var metricKeywords = []string{
	"latency", "throughput", "memory", "cpu", "error", "rate",
	"percent", "ms", "coverage", "complexity",
}

// Extract computes the feature vector for one suggestion.
// All values are scaled into [0,1].
func (e *TextExtractor) Extract(text, context string) FeatureSet {
	var fs FeatureSet
	if text == "" {
		return fs
	}

	lower := strings.ToLower(text)
	words := strings.Fields(lower)

	fs.Values[0] = clamp01(float64(len(text)) / 500.0)
	fs.Values[1] = clamp01(float64(len(words)) / 80.0)

	if len(words) > 0 {
		total := 0
		for _, w := range words {
			total += len(w)
		}
		fs.Values[2] = clamp01(float64(total) / float64(len(words)) / 12.0)
	}

	content := contentTokens(lower)
	if len(words) > 0 {
		fs.Values[3] = clamp01(float64(len(content)) / float64(len(words)))
	}

	var digits, punct, upper int
	for _, r := range text {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsPunct(r):
			punct++
		case unicode.IsUpper(r):
			upper++
		}
	}
	n := float64(len([]rune(text)))
	fs.Values[4] = clamp01(float64(digits) / n)
	fs.Values[5] = clamp01(float64(punct) / n)
	fs.Values[6] = clamp01(float64(upper) / n)

	fs.Values[7] = clamp01(keywordHits(lower, actionKeywords) / 4.0)
	fs.Values[8] = clamp01(keywordHits(lower, metricKeywords) / 4.0)
	fs.Values[9] = clamp01(float64(len(context)) / 500.0)

	return fs
}

// #endregion text-extractor

// #region helpers

// stopwords contains common English words excluded from content-word counting.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"being": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "shall": true, "not": true,
	"no": true, "and": true, "or": true, "but": true, "if": true,
	"then": true, "than": true, "so": true, "as": true, "at": true,
	"by": true, "for": true, "from": true, "in": true, "into": true,
	"of": true, "on": true, "to": true, "with": true, "about": true,
	"up": true, "out": true, "it": true, "its": true, "this": true,
	"that": true, "what": true, "which": true, "who": true, "how": true,
	"when": true, "where": true, "why": true, "you": true, "we": true,
	"they": true,
}

// contentTokens splits lowered text into unique non-stopword tokens.
func contentTokens(lower string) []string {
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	seen := make(map[string]bool)
	var tokens []string
	for _, w := range words {
		if len(w) < 2 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

func keywordHits(lower string, keywords []string) float64 {
	hits := 0.0
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			hits++
		}
	}
	return hits
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
