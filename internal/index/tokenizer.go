package index

import (
	"regexp"
	"strings"
)

// tokenPattern matches maximal runs of lowercase alphanumerics and underscores.
// Input is lowercased before matching, so uppercase never reaches the pattern.
var tokenPattern = regexp.MustCompile(`[a-z0-9_]+`)

// DefaultStopWords are common English function words dropped during
// tokenization. Roughly sixty entries: articles, conjunctions, prepositions,
// pronouns, and auxiliaries.
var DefaultStopWords = []string{
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "for",
	"to", "of", "in", "on", "at", "by", "with", "as", "is", "are",
	"was", "were", "be", "been", "being", "it", "this", "that", "these", "those",
	"from", "up", "down", "over", "under", "again", "further", "than", "so", "such",
	"into", "about", "between", "through", "during", "before", "after", "above", "below", "out",
	"off", "own", "same", "too", "very", "can", "will", "just", "don", "should",
	"now",
}

var stopWords = buildStopWordSet(DefaultStopWords)

// buildStopWordSet converts a word list to a set for O(1) lookup.
func buildStopWordSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}

// Tokenize lowercases text, extracts maximal [a-z0-9_] runs, and drops
// single-character tokens and stop words. It is deterministic and stateless.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	raw := tokenPattern.FindAllString(lower, -1)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if len(tok) < 2 {
			continue
		}
		if _, isStop := stopWords[tok]; isStop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// TermFrequencies counts token occurrences.
func TermFrequencies(tokens []string) map[string]int {
	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	return tf
}
