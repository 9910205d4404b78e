package model

import "time"

// Video represents a subset of YouTube video fields used by the tool.
// Fields are fixed at ingestion time; only the session linkage is ever
// rewritten afterwards.
type Video struct {
	ID           string
	Title        string
	Description  string
	ChannelName  string
	ViewCount    int64
	LikeCount    int64
	CommentCount int64
	Duration     string
	PublishedAt  time.Time
	URL          string
	ThumbnailURL string
	Tags         []string
	CategoryID   int
	// Set when the video was discovered by a topic search.
	SearchSessionID string
	SearchTopic     string
}

// Preference is the user's judgment of one video. At most one exists per
// video; a re-rating replaces the previous row.
type Preference struct {
	VideoID   string
	Liked     bool
	Notes     string
	CreatedAt time.Time
}

// SessionStatus is the lifecycle state of a search session.
type SessionStatus string

const (
	SessionActive   SessionStatus = "active"
	SessionArchived SessionStatus = "archived"
)

// SearchSession is a tracked batch of videos discovered by one topic search.
type SearchSession struct {
	ID         string
	Topic      string
	CreatedAt  time.Time
	VideoCount int
	Status     SessionStatus
}

// SessionStats is a derived read over current session and video state.
type SessionStats struct {
	TotalSessions    int
	ActiveSessions   int
	ArchivedSessions int
	RecentSessions   int
	SearchVideos     int
}

// TrainingExample pairs a stored feature vector with its rating label.
type TrainingExample struct {
	VideoID  string
	Features []float64
	Liked    bool
}

// Candidate is an unrated video together with its stored feature vector,
// ready for ranking.
type Candidate struct {
	Video    Video
	Features []float64
}
