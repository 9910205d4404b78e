package model

import (
	"math"
	"strings"

	"watchwise/internal/util"
)

// IsRelevant reports whether a video passes the content filter applied to
// search results before they are persisted: a minimum view count and at
// least one programming keyword in the title or description.
func IsRelevant(v Video, keywords []string, minViews int64) bool {
	if v.ViewCount < minViews {
		return false
	}
	text := v.Title + " " + v.Description
	return util.ContainsAnyCaseInsensitive(text, keywords)
}

// KeywordRelevance scores how relevant a video's text is to a keyword set.
// Used to order a search outcome most-relevant-first.
func KeywordRelevance(v Video, keywords []string) float64 {
	tokens := util.Tokenize(v.Title + " " + v.Description)
	if len(tokens) == 0 || len(keywords) == 0 {
		return 0
	}
	kw := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		kw[strings.ToLower(k)] = true
	}
	hits := 0
	for _, t := range tokens {
		if kw[t] {
			hits++
		}
	}
	norm := float64(hits) / (float64(len(tokens)) + 1)
	if norm > 1 {
		norm = 1
	}
	return math.Round(norm*100) / 100
}
