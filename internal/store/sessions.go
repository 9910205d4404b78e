package store

import (
	"context"
	"database/sql"
	"time"

	"watchwise/internal/model"
)

// CreateSession inserts a new search session row.
func (d *DB) CreateSession(ctx context.Context, s model.SearchSession) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO search_sessions(id, topic, created_at, video_count, status)
		VALUES(?,?,?,?,?)`,
		s.ID, s.Topic, s.CreatedAt.UTC().Unix(), s.VideoCount, string(s.Status))
	return err
}

// GetSession returns one session by id.
func (d *DB) GetSession(ctx context.Context, id string) (model.SearchSession, bool, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT id, topic, created_at, video_count, status
		FROM search_sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return model.SearchSession{}, false, nil
	}
	if err != nil {
		return model.SearchSession{}, false, err
	}
	return s, true, nil
}

// ListSessions returns sessions most-recent-first, optionally filtered by
// status ("" means all).
func (d *DB) ListSessions(ctx context.Context, status model.SessionStatus) ([]model.SearchSession, error) {
	q := `SELECT id, topic, created_at, video_count, status FROM search_sessions`
	args := []any{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at DESC, id`
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SearchSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AttachVideos links videos to a session and refreshes its cached
// video_count, all in one transaction. Re-attaching an already-linked video
// is a no-op, so the count never double-counts.
func (d *DB) AttachVideos(ctx context.Context, sessionID, topic string, videoIDs []string) (int, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	attached := 0
	for _, id := range videoIDs {
		res, err := tx.ExecContext(ctx, `UPDATE videos
			SET search_session_id = ?, search_topic = ?
			WHERE id = ? AND (search_session_id IS NULL OR search_session_id <> ?)`,
			sessionID, topic, id, sessionID)
		if err != nil {
			return 0, err
		}
		if n, err := res.RowsAffected(); err == nil {
			attached += int(n)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE search_sessions
		SET video_count = (SELECT COUNT(*) FROM videos WHERE search_session_id = ?)
		WHERE id = ?`, sessionID, sessionID); err != nil {
		return 0, err
	}
	return attached, tx.Commit()
}

// SessionVideos returns the videos linked to a session, most-viewed first.
func (d *DB) SessionVideos(ctx context.Context, sessionID string) ([]model.Video, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT `+videoCols("v")+`
		FROM videos v WHERE v.search_session_id = ?
		ORDER BY v.view_count DESC, v.id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ArchiveSessionsBefore transitions active sessions created strictly before
// cutoff to archived and returns how many changed. Idempotent: already
// archived sessions are never touched again.
func (d *DB) ArchiveSessionsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := d.sql.ExecContext(ctx, `UPDATE search_sessions
		SET status = ? WHERE status = ? AND created_at < ?`,
		string(model.SessionArchived), string(model.SessionActive), cutoff.UTC().Unix())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// DeleteSession removes a session. With removeVideos, videos exclusively
// owned by the session are deleted along with their vectors; a video with a
// preference row is preserved and only unlinked. Returns false if the
// session does not exist.
func (d *DB) DeleteSession(ctx context.Context, id string, removeVideos bool) (bool, error) {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()
	var exists string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM search_sessions WHERE id = ?`, id).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	if removeVideos {
		if _, err := tx.ExecContext(ctx, `DELETE FROM video_features WHERE video_id IN (
			SELECT v.id FROM videos v
			LEFT JOIN preferences p ON v.id = p.video_id
			WHERE v.search_session_id = ? AND p.video_id IS NULL)`, id); err != nil {
			return false, err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM videos WHERE search_session_id = ? AND id NOT IN (
			SELECT video_id FROM preferences)`, id); err != nil {
			return false, err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE videos
		SET search_session_id = NULL, search_topic = NULL
		WHERE search_session_id = ?`, id); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM search_sessions WHERE id = ?`, id); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// SessionStats computes the derived session statistics as of now.
func (d *DB) SessionStats(ctx context.Context, now time.Time) (model.SessionStats, error) {
	var st model.SessionStats
	weekAgo := now.UTC().Add(-7 * 24 * time.Hour).Unix()
	err := d.sql.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM search_sessions),
		(SELECT COUNT(*) FROM search_sessions WHERE status = 'active'),
		(SELECT COUNT(*) FROM search_sessions WHERE status = 'archived'),
		(SELECT COUNT(*) FROM search_sessions WHERE status = 'active' AND created_at > ?),
		(SELECT COUNT(*) FROM videos WHERE search_session_id IS NOT NULL)`,
		weekAgo).Scan(&st.TotalSessions, &st.ActiveSessions, &st.ArchivedSessions,
		&st.RecentSessions, &st.SearchVideos)
	return st, err
}

func scanSession(r rowScanner) (model.SearchSession, error) {
	var s model.SearchSession
	var created int64
	var status string
	if err := r.Scan(&s.ID, &s.Topic, &created, &s.VideoCount, &status); err != nil {
		return s, err
	}
	s.CreatedAt = time.Unix(created, 0).UTC()
	s.Status = model.SessionStatus(status)
	return s, nil
}
