package recommend

import (
	"errors"
	"fmt"
	"time"

	"watchwise/internal/config"
	"watchwise/internal/forest"
	"watchwise/internal/metrics"
	"watchwise/internal/model"
)

// ErrInsufficientData means the rating count is below the training
// threshold. Expected before warm start; callers branch on it.
var ErrInsufficientData = errors.New("insufficient training data")

// ErrTrainingFailure wraps an underlying fit error (e.g., a degenerate
// single-class label set). The caller's previous model remains valid.
var ErrTrainingFailure = errors.New("training failure")

// Model is the trained classifier plus its training metadata. It is an
// immutable value: Train returns a fresh one and the caller swaps it in,
// so readers never observe a partial update.
type Model struct {
	forest      *forest.Forest
	NumExamples int
	TrainedAt   time.Time
}

// Train fits a bagged ensemble over the full labeled set. It is always a
// full refit, never an incremental update, so the model stays
// reconstructible from persisted preferences and feature vectors alone.
func Train(examples []model.TrainingExample, cfg config.MLConfig) (*Model, error) {
	if len(examples) < cfg.TrainThreshold {
		return nil, fmt.Errorf("%w: have %d rated videos, need %d", ErrInsufficientData, len(examples), cfg.TrainThreshold)
	}
	start := time.Now()
	X := make([][]float64, len(examples))
	y := make([]int, len(examples))
	for i, ex := range examples {
		X[i] = ex.Features
		if ex.Liked {
			y[i] = 1
		}
	}
	f, err := forest.Fit(X, y, forest.Config{
		Trees:    cfg.Estimators,
		MaxDepth: cfg.MaxDepth,
		MinLeaf:  cfg.MinLeaf,
		Seed:     cfg.Seed,
	})
	if err != nil {
		metrics.TrainingErrors.Inc()
		return nil, fmt.Errorf("%w: %v", ErrTrainingFailure, err)
	}
	metrics.Trainings.Inc()
	metrics.ObserveTrainingDuration(start)
	return &Model{forest: f, NumExamples: len(examples), TrainedAt: time.Now().UTC()}, nil
}
