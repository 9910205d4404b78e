package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"watchwise/internal/model"
)

// DB wraps the SQLite database holding videos, feature vectors,
// preferences, and search sessions. Every mutating method commits as one
// transaction; reads are consistent within one call.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS videos (
	  id TEXT PRIMARY KEY,
	  title TEXT NOT NULL,
	  description TEXT,
	  channel_name TEXT,
	  view_count INTEGER NOT NULL,
	  like_count INTEGER,
	  comment_count INTEGER,
	  duration TEXT,
	  published_at INTEGER,
	  url TEXT,
	  thumbnail_url TEXT,
	  tags TEXT,
	  category_id INTEGER,
	  search_session_id TEXT,
	  search_topic TEXT,
	  fetched_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_videos_session ON videos(search_session_id);
	CREATE TABLE IF NOT EXISTS video_features (
	  video_id TEXT PRIMARY KEY,
	  vector BLOB NOT NULL
	);
	CREATE TABLE IF NOT EXISTS preferences (
	  video_id TEXT PRIMARY KEY,
	  liked INTEGER NOT NULL,
	  notes TEXT,
	  created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS search_sessions (
	  id TEXT PRIMARY KEY,
	  topic TEXT NOT NULL,
	  created_at INTEGER NOT NULL,
	  video_count INTEGER NOT NULL DEFAULT 0,
	  status TEXT NOT NULL DEFAULT 'active'
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_status ON search_sessions(status, created_at);
	`)
	return err
}

// SaveVideosWithFeatures upserts videos and their feature vectors in one
// transaction. Videos without a vector (extraction skipped) pass nil.
func (d *DB) SaveVideosWithFeatures(ctx context.Context, videos []model.Video, vectors map[string][]float64) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	now := time.Now().UTC().Unix()
	for _, v := range videos {
		tags, _ := json.Marshal(v.Tags)
		_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO videos
			(id, title, description, channel_name, view_count, like_count, comment_count,
			 duration, published_at, url, thumbnail_url, tags, category_id,
			 search_session_id, search_topic, fetched_at)
			VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			v.ID, v.Title, v.Description, v.ChannelName, v.ViewCount, v.LikeCount, v.CommentCount,
			v.Duration, v.PublishedAt.UTC().Unix(), v.URL, v.ThumbnailURL, string(tags), v.CategoryID,
			nullable(v.SearchSessionID), nullable(v.SearchTopic), now)
		if err != nil {
			return err
		}
		if vec, ok := vectors[v.ID]; ok && vec != nil {
			if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO video_features(video_id, vector) VALUES(?,?)`,
				v.ID, encodeF32(vec)); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// UpsertPreference records a rating, replacing any earlier judgment for the
// same video.
func (d *DB) UpsertPreference(ctx context.Context, p model.Preference) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO preferences(video_id, liked, notes, created_at)
		VALUES(?,?,?,?)
		ON CONFLICT(video_id) DO UPDATE SET liked=excluded.liked, notes=excluded.notes, created_at=excluded.created_at`,
		p.VideoID, boolInt(p.Liked), p.Notes, p.CreatedAt.UTC().Unix())
	return err
}

// RatedCount returns the number of rated videos.
func (d *DB) RatedCount(ctx context.Context) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM preferences`).Scan(&n)
	return n, err
}

// TrainingData joins stored feature vectors with their rating labels.
func (d *DB) TrainingData(ctx context.Context) ([]model.TrainingExample, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT vf.video_id, vf.vector, p.liked
		FROM video_features vf
		JOIN preferences p ON vf.video_id = p.video_id
		ORDER BY vf.video_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TrainingExample
	for rows.Next() {
		var ex model.TrainingExample
		var vec []byte
		var liked int
		if err := rows.Scan(&ex.VideoID, &vec, &liked); err != nil {
			return nil, err
		}
		ex.Features = decodeF32(vec)
		ex.Liked = liked != 0
		out = append(out, ex)
	}
	return out, rows.Err()
}

// UnratedCandidates returns videos with features and no rating yet,
// most-viewed first. limit <= 0 means no limit.
func (d *DB) UnratedCandidates(ctx context.Context, limit int) ([]model.Candidate, error) {
	q := `
		SELECT ` + videoCols("v") + `, vf.vector
		FROM videos v
		JOIN video_features vf ON v.id = vf.video_id
		LEFT JOIN preferences p ON v.id = p.video_id
		WHERE p.video_id IS NULL
		ORDER BY v.view_count DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Candidate
	for rows.Next() {
		var vec []byte
		v, err := scanVideo(rows, &vec)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Candidate{Video: v, Features: decodeF32(vec)})
	}
	return out, rows.Err()
}

// LikedTags returns the distinct tags across all liked videos.
func (d *DB) LikedTags(ctx context.Context) ([]string, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT v.tags FROM videos v
		JOIN preferences p ON v.id = p.video_id
		WHERE p.liked = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seen := map[string]bool{}
	var out []string
	for rows.Next() {
		var raw sql.NullString
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		if !raw.Valid || raw.String == "" {
			continue
		}
		var tags []string
		if err := json.Unmarshal([]byte(raw.String), &tags); err != nil {
			continue
		}
		for _, t := range tags {
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func encodeF32(v []float64) []byte {
	b := make([]byte, 4*len(v))
	for i := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(float32(v[i])))
	}
	return b
}

func decodeF32(b []byte) []float64 {
	n := len(b) / 4
	v := make([]float64, n)
	for i := 0; i < n; i++ {
		v[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:])))
	}
	return v
}
