package ratings

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"watchwise/internal/config"
	"watchwise/internal/model"
	"watchwise/internal/policy"
	"watchwise/internal/recommend"
	"watchwise/internal/store"
)

func testService(t *testing.T) (*Service, *store.DB) {
	t.Helper()
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	cfg := config.MLConfig{TrainThreshold: 10, Estimators: 30, MaxDepth: 6, MinLeaf: 1, Seed: 42, TopN: 24}
	return NewService(db, cfg), db
}

// seedCandidates stores n videos whose feature vectors separate cleanly on
// the first component: even ids get a 1, odd ids a 0.
func seedCandidates(t *testing.T, db *store.DB, n int) []string {
	t.Helper()
	var videos []model.Video
	vectors := map[string][]float64{}
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("vid%02d", i)
		ids[i] = id
		videos = append(videos, model.Video{
			ID:          id,
			Title:       "video " + id,
			ViewCount:   int64(1000 + i),
			PublishedAt: time.Now().UTC(),
		})
		first := 0.0
		if i%2 == 0 {
			first = 1.0
		}
		vectors[id] = []float64{first, float64(i) * 0.1, 0.5}
	}
	if err := db.SaveVideosWithFeatures(context.Background(), videos, vectors); err != nil {
		t.Fatal(err)
	}
	return ids
}

func TestRateColdMarker(t *testing.T) {
	svc, db := testService(t)
	ids := seedCandidates(t, db, 3)

	res, err := svc.Rate(context.Background(), ids[0], true, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != policy.Cold {
		t.Fatalf("state = %s, want cold", res.State)
	}
	if res.RatedCount != 1 {
		t.Fatalf("rated count = %d, want 1", res.RatedCount)
	}
	if res.Retrained || res.Model != nil {
		t.Fatal("cold rating must return the not-yet-retrained marker")
	}
}

func TestRateUnknownVideo(t *testing.T) {
	svc, _ := testService(t)
	if _, err := svc.Rate(context.Background(), "nope", true, ""); err == nil {
		t.Fatal("expected error for unknown video")
	}
}

func TestReRateKeepsCount(t *testing.T) {
	svc, db := testService(t)
	ids := seedCandidates(t, db, 1)
	ctx := context.Background()

	if _, err := svc.Rate(ctx, ids[0], true, ""); err != nil {
		t.Fatal(err)
	}
	res, err := svc.Rate(ctx, ids[0], false, "on reflection")
	if err != nil {
		t.Fatal(err)
	}
	if res.RatedCount != 1 {
		t.Fatalf("re-rating should not grow the count, got %d", res.RatedCount)
	}
	data, err := db.TrainingData(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 1 || data[0].Liked {
		t.Fatalf("latest judgment should win: %+v", data)
	}
}

func TestRateRetrainsAtThreshold(t *testing.T) {
	svc, db := testService(t)
	ids := seedCandidates(t, db, 10)
	ctx := context.Background()

	var res Result
	var err error
	for i, id := range ids {
		res, err = svc.Rate(ctx, id, i%2 == 0, "")
		if err != nil {
			t.Fatalf("rating %s: %v", id, err)
		}
	}
	if res.State != policy.Warm {
		t.Fatalf("state = %s, want warm", res.State)
	}
	if !res.Retrained || res.Model == nil {
		t.Fatal("threshold rating must retrain and return the model")
	}
	if res.Model.NumExamples != 10 {
		t.Fatalf("trained on %d examples, want 10", res.Model.NumExamples)
	}
}

func TestRateTrainingFailureKeepsPreference(t *testing.T) {
	svc, db := testService(t)
	ids := seedCandidates(t, db, 10)
	ctx := context.Background()

	var err error
	for _, id := range ids {
		_, err = svc.Rate(ctx, id, true, "")
	}
	if !errors.Is(err, recommend.ErrTrainingFailure) {
		t.Fatalf("single-class data should surface ErrTrainingFailure, got %v", err)
	}
	n, err := db.RatedCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 10 {
		t.Fatalf("the failing rating must still be persisted, got %d", n)
	}
}

func TestRetrainOnDemand(t *testing.T) {
	svc, db := testService(t)
	ids := seedCandidates(t, db, 10)
	ctx := context.Background()
	for i, id := range ids {
		if _, err := svc.Rate(ctx, id, i%2 == 0, ""); err != nil {
			t.Fatal(err)
		}
	}
	m, err := svc.Retrain(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if m.NumExamples != 10 {
		t.Fatalf("retrain saw %d examples, want 10", m.NumExamples)
	}
}

func TestRetrainInsufficientData(t *testing.T) {
	svc, db := testService(t)
	ids := seedCandidates(t, db, 2)
	ctx := context.Background()
	if _, err := svc.Rate(ctx, ids[0], true, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Retrain(ctx); !errors.Is(err, recommend.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}
