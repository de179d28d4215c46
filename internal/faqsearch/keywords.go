package faqsearch

import (
	"regexp"
	"strings"
)

var (
	nonWord   = regexp.MustCompile(`[^\w\s-]`)
	allDigits = regexp.MustCompile(`^\d+$`)
)

var stopWords = toSet(
	"i", "me", "my", "we", "our", "you", "your", "it", "its",
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to",
	"for", "of", "with", "by", "from", "as", "is", "was", "are",
	"were", "been", "be", "have", "has", "had", "do", "does", "did",
	"will", "would", "could", "should", "may", "might", "must",
	"can", "cannot", "can't", "not", "no", "yes", "this", "that",
	"these", "those", "what", "which", "who", "whom", "where",
	"when", "why", "how", "all", "each", "every", "both", "few",
	"more", "most", "other", "some", "such", "only", "own", "same",
	"so", "than", "too", "very", "just", "also", "now", "here",
	"there", "then", "once", "if", "any", "about", "after", "before",
	"help", "need", "want", "please", "thanks", "thank", "issue",
	"problem", "question", "getting", "having", "trying",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// ExtractKeywords returns the distinct meaningful lowercase words of text in
// order of first appearance.
func ExtractKeywords(text string) []string {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(text), " ")

	seen := make(map[string]struct{})
	var out []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		if allDigits.MatchString(word) {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		out = append(out, word)
	}
	return out
}
