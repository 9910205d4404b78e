package recommend

import (
	"errors"
	"fmt"
	"testing"

	"watchwise/internal/config"
	"watchwise/internal/model"
)

func mlConfig() config.MLConfig {
	return config.MLConfig{TrainThreshold: 10, Estimators: 50, MaxDepth: 6, MinLeaf: 1, Seed: 42, TopN: 24}
}

// makeExamples builds n labeled examples where the first liked ones carry a
// distinguishing first feature.
func makeExamples(liked, disliked int) []model.TrainingExample {
	var out []model.TrainingExample
	for i := 0; i < liked; i++ {
		out = append(out, model.TrainingExample{
			VideoID:  fmt.Sprintf("like%02d", i),
			Features: []float64{1, float64(i) * 0.3, 0.5},
			Liked:    true,
		})
	}
	for i := 0; i < disliked; i++ {
		out = append(out, model.TrainingExample{
			VideoID:  fmt.Sprintf("dis%02d", i),
			Features: []float64{0, float64(i) * 0.3, 0.5},
			Liked:    false,
		})
	}
	return out
}

func TestTrainBelowThreshold(t *testing.T) {
	_, err := Train(makeExamples(5, 4), mlConfig())
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData for 9 examples, got %v", err)
	}
}

func TestTrainAtThreshold(t *testing.T) {
	m, err := Train(makeExamples(5, 5), mlConfig())
	if err != nil {
		t.Fatal(err)
	}
	if m.NumExamples != 10 {
		t.Fatalf("expected 10 examples, got %d", m.NumExamples)
	}
	if m.TrainedAt.IsZero() {
		t.Fatal("expected trained timestamp")
	}
}

func TestTrainSingleClass(t *testing.T) {
	_, err := Train(makeExamples(10, 0), mlConfig())
	if !errors.Is(err, ErrTrainingFailure) {
		t.Fatalf("expected ErrTrainingFailure, got %v", err)
	}
}

func TestTrainReturnsFreshModel(t *testing.T) {
	a, err := Train(makeExamples(6, 6), mlConfig())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Train(makeExamples(7, 6), mlConfig())
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("expected a new model value per training run")
	}
	if a.NumExamples != 12 || b.NumExamples != 13 {
		t.Fatalf("metadata: %d, %d", a.NumExamples, b.NumExamples)
	}
}
