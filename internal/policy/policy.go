package policy

import (
	"math/rand"

	"watchwise/internal/config"
	"watchwise/internal/util"
)

// State is the personalization state. The transition Cold->Warm happens
// exactly once, when the rating count crosses the training threshold;
// ratings are never forgotten, so there is no way back.
type State int

const (
	Cold State = iota
	Warm
)

func (s State) String() string {
	switch s {
	case Cold:
		return "cold"
	case Warm:
		return "warm"
	default:
		return "unknown"
	}
}

// Keyword sample bounds for warm-start query generation.
const (
	minSample = 8
	maxSample = 10
)

// StateFor maps a rating count onto the personalization state.
func StateFor(ratingCount, threshold int) State {
	if ratingCount >= threshold {
		return Warm
	}
	return Cold
}

// SearchKeywords selects the keywords fed to query generation.
//
// Cold: the static lexicon set. Warm: a random 8-10 item subset of the
// distinct tags harvested from liked videos, so repeated calls diversify
// while staying personalized. A warm state with no tags falls back to the
// static set rather than failing.
func SearchKeywords(s State, likedTags []string, lex config.Lexicon, rng *rand.Rand) []string {
	switch s {
	case Warm:
		tags := util.Dedupe(likedTags)
		if len(tags) == 0 {
			return staticKeywords(lex)
		}
		return sample(tags, sampleSize(len(tags), rng), rng)
	case Cold:
		return staticKeywords(lex)
	default:
		return staticKeywords(lex)
	}
}

func staticKeywords(lex config.Lexicon) []string {
	out := make([]string, len(lex.StaticKeywords))
	copy(out, lex.StaticKeywords)
	return out
}

func sampleSize(available int, rng *rand.Rand) int {
	n := minSample + rng.Intn(maxSample-minSample+1)
	if n > available {
		n = available
	}
	return n
}

// sample picks n items without replacement.
func sample(items []string, n int, rng *rand.Rand) []string {
	if n >= len(items) {
		out := make([]string, len(items))
		copy(out, items)
		return out
	}
	perm := rng.Perm(len(items))
	out := make([]string, 0, n)
	for _, i := range perm[:n] {
		out = append(out, items[i])
	}
	return out
}
