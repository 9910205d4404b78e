package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"watchwise/internal/logging"
	"watchwise/internal/metrics"
	"watchwise/internal/model"
	"watchwise/internal/store"
)

// ErrNotFound means the session id is unknown.
var ErrNotFound = errors.New("search session not found")

// Filter selects which sessions a listing returns.
type Filter string

const (
	FilterActive   Filter = "active"
	FilterArchived Filter = "archived"
	FilterAll      Filter = "all"
)

// Manager owns the search-session lifecycle: creation, video membership,
// archival, and deletion. It holds no state between calls; everything lives
// in the store.
type Manager struct {
	db  *store.DB
	now func() time.Time
}

func NewManager(db *store.DB) *Manager {
	return &Manager{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create starts a new active session for a topic.
func (m *Manager) Create(ctx context.Context, topic string) (model.SearchSession, error) {
	s := model.SearchSession{
		ID:        uuid.NewString(),
		Topic:     topic,
		CreatedAt: m.now(),
		Status:    model.SessionActive,
	}
	if err := m.db.CreateSession(ctx, s); err != nil {
		return model.SearchSession{}, err
	}
	return s, nil
}

// AttachVideos links videos to the session and sets their search topic.
// Attaching an already-attached video is a no-op; the cached video_count
// reflects distinct membership.
func (m *Manager) AttachVideos(ctx context.Context, sessionID string, videoIDs []string) (int, error) {
	s, ok, err := m.db.GetSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return m.db.AttachVideos(ctx, s.ID, s.Topic, videoIDs)
}

// Get returns one session.
func (m *Manager) Get(ctx context.Context, sessionID string) (model.SearchSession, error) {
	s, ok, err := m.db.GetSession(ctx, sessionID)
	if err != nil {
		return model.SearchSession{}, err
	}
	if !ok {
		return model.SearchSession{}, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return s, nil
}

// List returns sessions matching the filter, most-recent-first.
func (m *Manager) List(ctx context.Context, f Filter) ([]model.SearchSession, error) {
	switch f {
	case FilterActive:
		return m.db.ListSessions(ctx, model.SessionActive)
	case FilterArchived:
		return m.db.ListSessions(ctx, model.SessionArchived)
	case FilterAll, "":
		return m.db.ListSessions(ctx, "")
	default:
		return nil, fmt.Errorf("unknown session filter %q", f)
	}
}

// Videos returns the videos attached to a session.
func (m *Manager) Videos(ctx context.Context, sessionID string) ([]model.Video, error) {
	if _, err := m.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	return m.db.SessionVideos(ctx, sessionID)
}

// ArchiveOlderThan transitions active sessions created more than the given
// number of days ago to archived, leaving their videos alone. Running it
// again with the same cutoff archives nothing further.
func (m *Manager) ArchiveOlderThan(ctx context.Context, days int) (int, error) {
	if days < 0 {
		return 0, fmt.Errorf("days must be non-negative, got %d", days)
	}
	cutoff := m.now().Add(-time.Duration(days) * 24 * time.Hour)
	n, err := m.db.ArchiveSessionsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.SessionsArchived.Add(float64(n))
		logging.Info("sessions_archived", map[string]any{"count": n, "cutoff_days": days})
	}
	return n, nil
}

// Delete removes a session. With removeVideos, videos exclusively owned by
// the session go with it; a video that also carries a rating stays and is
// only unlinked.
func (m *Manager) Delete(ctx context.Context, sessionID string, removeVideos bool) error {
	ok, err := m.db.DeleteSession(ctx, sessionID, removeVideos)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return nil
}

// Stats aggregates current session and video state. Derived on every call,
// never persisted.
func (m *Manager) Stats(ctx context.Context) (model.SessionStats, error) {
	return m.db.SessionStats(ctx, m.now())
}
