package recommend

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"watchwise/internal/model"
)

// ErrModelNotTrained means Rank was called before any model exists.
// Callers fall back to a non-personalized ordering.
var ErrModelNotTrained = errors.New("model not trained")

// Recommendation is one ranked video with its confidence percentage.
type Recommendation struct {
	Video      model.Video
	Confidence int // 0-100
}

// Tier buckets a confidence for display. It never influences ranking.
func (r Recommendation) Tier() string {
	switch {
	case r.Confidence >= 70:
		return "high"
	case r.Confidence >= 50:
		return "medium"
	default:
		return "low"
	}
}

// Rank scores unrated candidates against the model and returns the top-N by
// confidence. Ties break by recency (newer first), then by id, so the
// ordering is fully deterministic. The model is only read, never mutated.
func Rank(m *Model, candidates []model.Candidate, topN int) ([]Recommendation, error) {
	if m == nil || m.forest == nil {
		return nil, ErrModelNotTrained
	}
	if topN < 1 {
		return nil, fmt.Errorf("top_n must be positive, got %d", topN)
	}
	recs := make([]Recommendation, 0, len(candidates))
	for _, c := range candidates {
		p, err := m.forest.Proba(c.Features)
		if err != nil {
			return nil, fmt.Errorf("score %q: %w", c.Video.ID, err)
		}
		recs = append(recs, Recommendation{Video: c.Video, Confidence: confidence(p)})
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Confidence != recs[j].Confidence {
			return recs[i].Confidence > recs[j].Confidence
		}
		if !recs[i].Video.PublishedAt.Equal(recs[j].Video.PublishedAt) {
			return recs[i].Video.PublishedAt.After(recs[j].Video.PublishedAt)
		}
		return recs[i].Video.ID < recs[j].Video.ID
	})
	if len(recs) > topN {
		recs = recs[:topN]
	}
	return recs, nil
}

// confidence rescales a positive-class probability to an integer percentage.
func confidence(p float64) int {
	c := int(math.Round(p * 100))
	if c < 0 {
		c = 0
	}
	if c > 100 {
		c = 100
	}
	return c
}
