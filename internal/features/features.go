package features

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"watchwise/internal/config"
	"watchwise/internal/model"
	"watchwise/internal/util"
)

// ErrInvalidVideoData means a required field (title, view count) is absent.
// Callers skip the record; it is never substituted with guessed values.
var ErrInvalidVideoData = errors.New("invalid video data")

// Dim is the fixed length of a feature vector.
const Dim = 11

// Vector positions. The order is fixed; stored vectors are only comparable
// within one lexicon version.
const (
	IdxTitleLength = iota
	IdxDescriptionLength
	IdxLogViews
	IdxLikeRatio
	IdxEngagement
	IdxSentiment
	IdxTutorial
	IdxTimeConstraint
	IdxBeginner
	IdxAI
	IdxChallenge
)

// Extract converts one video into its fixed-order feature vector. It is a
// pure function of the video and the lexicon: the same input always yields
// the same output.
func Extract(v model.Video, lex config.Lexicon) ([]float64, error) {
	if strings.TrimSpace(v.Title) == "" {
		return nil, fmt.Errorf("%w: missing title for %q", ErrInvalidVideoData, v.ID)
	}
	if v.ViewCount < 1 {
		return nil, fmt.Errorf("%w: missing view count for %q", ErrInvalidVideoData, v.ID)
	}

	title := strings.ToLower(v.Title)
	desc := strings.ToLower(v.Description)
	views := float64(v.ViewCount)

	likeRatio := clamp(float64(v.LikeCount)/views, 0, 1)
	engagement := clamp(100*float64(v.LikeCount+v.CommentCount)/views, 0, 100)

	x := make([]float64, 0, Dim)
	x = append(x, float64(len(v.Title)))
	x = append(x, float64(len(v.Description)))
	x = append(x, math.Log1p(views))
	x = append(x, likeRatio)
	x = append(x, engagement)
	x = append(x, titleSentiment(title, lex))
	x = append(x, flag(containsAny(lex.Tutorial, title, desc)))
	x = append(x, flag(containsAny(lex.TimeConstraint, title)))
	x = append(x, flag(containsAny(lex.Beginner, title, desc)))
	x = append(x, flag(containsAny(lex.AI, title, desc)))
	x = append(x, flag(containsAny(lex.Challenge, title)))
	return x, nil
}

// titleSentiment scores the title against the fixed sentiment lexicon,
// clamped to [-5,5]. Local and deterministic, no external calls.
func titleSentiment(title string, lex config.Lexicon) float64 {
	score := 0.0
	for _, w := range lex.Positive {
		if strings.Contains(title, strings.ToLower(w)) {
			score++
		}
	}
	for _, w := range lex.Negative {
		if strings.Contains(title, strings.ToLower(w)) {
			score--
		}
	}
	return clamp(score, -5, 5)
}

func containsAny(needles []string, texts ...string) bool {
	for _, t := range texts {
		if util.ContainsAnyCaseInsensitive(t, needles) {
			return true
		}
	}
	return false
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
