package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"watchwise/internal/model"
	"watchwise/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedVideos(t *testing.T, db *store.DB, ids ...string) {
	t.Helper()
	var videos []model.Video
	vectors := map[string][]float64{}
	for i, id := range ids {
		videos = append(videos, model.Video{
			ID:          id,
			Title:       "video " + id,
			ViewCount:   int64(1000 * (i + 1)),
			PublishedAt: time.Now().UTC(),
		})
		vectors[id] = []float64{1, 2, 3}
	}
	if err := db.SaveVideosWithFeatures(context.Background(), videos, vectors); err != nil {
		t.Fatal(err)
	}
}

func TestAttachVideosIdempotent(t *testing.T) {
	db := testDB(t)
	m := NewManager(db)
	ctx := context.Background()
	seedVideos(t, db, "v1", "v2", "v3")

	s, err := m.Create(ctx, "golang concurrency")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.AttachVideos(ctx, s.ID, []string{"v1", "v2"}); err != nil {
		t.Fatal(err)
	}
	n, err := m.AttachVideos(ctx, s.ID, []string{"v1", "v3"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("re-attaching v1 should be a no-op, got %d newly attached", n)
	}
	got, err := m.Get(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.VideoCount != 3 {
		t.Fatalf("video_count = %d, want 3", got.VideoCount)
	}
	vids, err := m.Videos(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(vids) != 3 {
		t.Fatalf("got %d session videos, want 3", len(vids))
	}
}

func TestAttachVideosUnknownSession(t *testing.T) {
	m := NewManager(testDB(t))
	if _, err := m.AttachVideos(context.Background(), "missing", []string{"v1"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestArchiveOlderThanIdempotent(t *testing.T) {
	db := testDB(t)
	m := NewManager(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base.Add(-10 * 24 * time.Hour) }
	old, err := m.Create(ctx, "old topic")
	if err != nil {
		t.Fatal(err)
	}
	m.now = func() time.Time { return base }
	if _, err := m.Create(ctx, "fresh topic"); err != nil {
		t.Fatal(err)
	}

	n, err := m.ArchiveOlderThan(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("archived %d sessions, want 1", n)
	}
	got, err := m.Get(ctx, old.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.SessionArchived {
		t.Fatalf("old session status = %s, want archived", got.Status)
	}

	n, err = m.ArchiveOlderThan(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("second pass archived %d, want 0", n)
	}

	if _, err := m.ArchiveOlderThan(ctx, -1); err == nil {
		t.Fatal("expected error for negative days")
	}
}

func TestDeletePreservesRatedVideos(t *testing.T) {
	db := testDB(t)
	m := NewManager(db)
	ctx := context.Background()
	seedVideos(t, db, "kept", "gone")

	s, err := m.Create(ctx, "rust async")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.AttachVideos(ctx, s.ID, []string{"kept", "gone"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertPreference(ctx, model.Preference{VideoID: "kept", Liked: true, CreatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	if err := m.Delete(ctx, s.ID, true); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, ok, _ := db.GetVideo(ctx, "gone"); ok {
		t.Fatal("unrated session video should be removed")
	}
	v, ok, err := db.GetVideo(ctx, "kept")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("rated video must survive session deletion")
	}
	if v.SearchSessionID != "" {
		t.Fatalf("surviving video should be unlinked, got session %q", v.SearchSessionID)
	}

	if err := m.Delete(ctx, s.ID, false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleting twice should report ErrNotFound, got %v", err)
	}
}

func TestListFilters(t *testing.T) {
	db := testDB(t)
	m := NewManager(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base.Add(-30 * 24 * time.Hour) }
	if _, err := m.Create(ctx, "first"); err != nil {
		t.Fatal(err)
	}
	m.now = func() time.Time { return base }
	if _, err := m.Create(ctx, "second"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ArchiveOlderThan(ctx, 7); err != nil {
		t.Fatal(err)
	}

	all, err := m.List(ctx, FilterAll)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].Topic != "second" {
		t.Fatalf("all listing wrong: %+v", all)
	}
	active, err := m.List(ctx, FilterActive)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].Topic != "second" {
		t.Fatalf("active listing wrong: %+v", active)
	}
	archived, err := m.List(ctx, FilterArchived)
	if err != nil {
		t.Fatal(err)
	}
	if len(archived) != 1 || archived[0].Topic != "first" {
		t.Fatalf("archived listing wrong: %+v", archived)
	}
	if _, err := m.List(ctx, Filter("bogus")); err == nil {
		t.Fatal("expected error for unknown filter")
	}
}

func TestStats(t *testing.T) {
	db := testDB(t)
	m := NewManager(db)
	ctx := context.Background()
	seedVideos(t, db, "v1", "v2")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base.Add(-10 * 24 * time.Hour) }
	if _, err := m.Create(ctx, "stale"); err != nil {
		t.Fatal(err)
	}
	m.now = func() time.Time { return base }
	s, err := m.Create(ctx, "fresh")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.AttachVideos(ctx, s.ID, []string{"v1", "v2"}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ArchiveOlderThan(ctx, 7); err != nil {
		t.Fatal(err)
	}

	st, err := m.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalSessions != 2 || st.ActiveSessions != 1 || st.ArchivedSessions != 1 {
		t.Fatalf("session counts wrong: %+v", st)
	}
	if st.RecentSessions != 1 {
		t.Fatalf("recent sessions = %d, want 1", st.RecentSessions)
	}
	if st.SearchVideos != 2 {
		t.Fatalf("search videos = %d, want 2", st.SearchVideos)
	}
}
