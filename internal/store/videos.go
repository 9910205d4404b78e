package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"watchwise/internal/model"
)

// videoCols lists the video columns in scanVideo order, prefixed with alias.
func videoCols(alias string) string {
	return alias + `.id, ` + alias + `.title, ` + alias + `.description, ` + alias + `.channel_name, ` +
		alias + `.view_count, ` + alias + `.like_count, ` + alias + `.comment_count, ` + alias + `.duration, ` +
		alias + `.published_at, ` + alias + `.url, ` + alias + `.thumbnail_url, ` + alias + `.tags, ` +
		alias + `.category_id, COALESCE(` + alias + `.search_session_id, ''), COALESCE(` + alias + `.search_topic, '')`
}

type rowScanner interface{ Scan(dest ...any) error }

// scanVideo decodes one row selected with videoCols, plus any extra
// destinations appended after the video columns.
func scanVideo(r rowScanner, extra ...any) (model.Video, error) {
	var v model.Video
	var published int64
	var tags sql.NullString
	dest := []any{&v.ID, &v.Title, &v.Description, &v.ChannelName,
		&v.ViewCount, &v.LikeCount, &v.CommentCount, &v.Duration,
		&published, &v.URL, &v.ThumbnailURL, &tags,
		&v.CategoryID, &v.SearchSessionID, &v.SearchTopic}
	dest = append(dest, extra...)
	if err := r.Scan(dest...); err != nil {
		return v, err
	}
	v.PublishedAt = time.Unix(published, 0).UTC()
	if tags.Valid && tags.String != "" {
		_ = json.Unmarshal([]byte(tags.String), &v.Tags)
	}
	return v, nil
}

// GetVideo returns one video by id.
func (d *DB) GetVideo(ctx context.Context, id string) (model.Video, bool, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT `+videoCols("v")+` FROM videos v WHERE v.id = ?`, id)
	v, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return model.Video{}, false, nil
	}
	if err != nil {
		return model.Video{}, false, err
	}
	return v, true, nil
}
