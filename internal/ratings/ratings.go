package ratings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"watchwise/internal/config"
	"watchwise/internal/logging"
	"watchwise/internal/metrics"
	"watchwise/internal/model"
	"watchwise/internal/policy"
	"watchwise/internal/recommend"
	"watchwise/internal/store"
)

// Service runs the rating workflow: persist the preference, then retrain
// synchronously once the threshold is met. The mutex keeps the write path
// single-file; the trained model is returned to the caller, not retained.
type Service struct {
	mu  sync.Mutex
	db  *store.DB
	cfg config.MLConfig
}

func NewService(db *store.DB, cfg config.MLConfig) *Service {
	return &Service{db: db, cfg: cfg}
}

// Result reports what one rating event produced. Retrained false with a nil
// Model is the explicit "not yet retrained" marker for cold-start ratings.
type Result struct {
	State      policy.State
	RatedCount int
	Retrained  bool
	Model      *recommend.Model
}

// Rate records a like/dislike for a video. Re-rating replaces the earlier
// judgment. When the rating count has reached the threshold the model is
// refit from all preferences before returning; a training failure leaves
// the preference persisted and is surfaced alongside the marker, so the
// caller keeps using its previous model.
func (s *Service) Rate(ctx context.Context, videoID string, liked bool, notes string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok, err := s.db.GetVideo(ctx, videoID); err != nil {
		return Result{}, err
	} else if !ok {
		return Result{}, fmt.Errorf("unknown video %q", videoID)
	}
	p := model.Preference{VideoID: videoID, Liked: liked, Notes: notes, CreatedAt: time.Now().UTC()}
	if err := s.db.UpsertPreference(ctx, p); err != nil {
		return Result{}, err
	}
	metrics.IncRating(liked)

	count, err := s.db.RatedCount(ctx)
	if err != nil {
		return Result{}, err
	}
	res := Result{State: policy.StateFor(count, s.cfg.TrainThreshold), RatedCount: count}
	if res.State == policy.Cold {
		return res, nil
	}
	m, err := s.retrainLocked(ctx)
	if err != nil {
		logging.Error("retrain_failed", map[string]any{"error": err.Error(), "rated": count})
		return res, err
	}
	res.Retrained = true
	res.Model = m
	logging.Info("retrained", map[string]any{"rated": count, "examples": m.NumExamples})
	return res, nil
}

// Retrain refits the model on demand from all persisted preferences and
// feature vectors.
func (s *Service) Retrain(ctx context.Context) (*recommend.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retrainLocked(ctx)
}

func (s *Service) retrainLocked(ctx context.Context) (*recommend.Model, error) {
	examples, err := s.db.TrainingData(ctx)
	if err != nil {
		return nil, err
	}
	return recommend.Train(examples, s.cfg)
}
