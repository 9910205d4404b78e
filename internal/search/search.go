package search

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"watchwise/internal/config"
	"watchwise/internal/features"
	"watchwise/internal/logging"
	"watchwise/internal/metrics"
	"watchwise/internal/model"
	"watchwise/internal/policy"
	"watchwise/internal/querygen"
	"watchwise/internal/session"
	"watchwise/internal/store"
	"watchwise/internal/util"
	"watchwise/internal/ytclient"
)

// Service runs the topic-search pipeline: generate queries, fetch metadata,
// filter and featurize, persist, and track everything under one search
// session. All network work happens here, before any video reaches the
// extractor.
type Service struct {
	db       *store.DB
	api      ytclient.VideoAPI
	gen      querygen.Generator
	sessions *session.Manager
	cfg      config.Config
}

func NewService(db *store.DB, api ytclient.VideoAPI, gen querygen.Generator, sessions *session.Manager, cfg config.Config) *Service {
	return &Service{db: db, api: api, gen: gen, sessions: sessions, cfg: cfg}
}

// Outcome reports what one topic search produced.
type Outcome struct {
	Session model.SearchSession
	Saved   []model.Video
	Skipped int // records dropped for invalid data
}

// SearchTopic discovers videos for a topic and records them under a new
// search session. Per-query fetch errors are logged and skipped; the run
// fails only when no queries could be generated or nothing could be saved.
func (s *Service) SearchTopic(ctx context.Context, topic string) (Outcome, error) {
	metrics.Searches.Inc()
	topic = util.NormalizeWhitespace(topic)
	queries, err := s.gen.TopicQueries(ctx, topic, s.cfg.Search.TopicMaxQueries)
	if err != nil {
		return Outcome{}, fmt.Errorf("generate queries for %q: %w", topic, err)
	}
	if len(queries) > s.cfg.Search.TopicMaxQueries {
		queries = queries[:s.cfg.Search.TopicMaxQueries]
	}
	return s.run(ctx, topic, queries, s.cfg.Search.TopicResultsPerQuery)
}

// Discover runs a personalized search: the policy's keywords (liked-video
// tags when warm, the static set when cold) become the queries, recorded
// under a session for the topic "personalized".
func (s *Service) Discover(ctx context.Context, rng *rand.Rand) (Outcome, error) {
	metrics.Searches.Inc()
	count, err := s.db.RatedCount(ctx)
	if err != nil {
		return Outcome{}, err
	}
	tags, err := s.db.LikedTags(ctx)
	if err != nil {
		return Outcome{}, err
	}
	st := policy.StateFor(count, s.cfg.ML.TrainThreshold)
	queries := policy.SearchKeywords(st, tags, s.cfg.Lexicon, rng)
	if len(queries) > s.cfg.Search.TopicMaxQueries {
		queries = queries[:s.cfg.Search.TopicMaxQueries]
	}
	return s.run(ctx, "personalized", queries, s.cfg.Search.ResultsPerQuery)
}

func (s *Service) run(ctx context.Context, topic string, queries []string, perQuery int) (Outcome, error) {
	fetched := s.fetch(ctx, queries, perQuery)
	unique := dedupe(fetched)

	kept := make([]model.Video, 0, len(unique))
	vectors := make(map[string][]float64, len(unique))
	skipped := 0
	for _, v := range unique {
		if !model.IsRelevant(v, s.cfg.Lexicon.StaticKeywords, s.cfg.Search.MinViewCount) {
			continue
		}
		vec, err := features.Extract(v, s.cfg.Lexicon)
		if err != nil {
			if errors.Is(err, features.ErrInvalidVideoData) {
				logging.Error("skip_invalid_video", map[string]any{"id": v.ID, "error": err.Error()})
				skipped++
				continue
			}
			return Outcome{}, err
		}
		kept = append(kept, v)
		vectors[v.ID] = vec
	}

	// Most relevant first in the outcome; the store keeps its own ordering.
	scores := make(map[string]float64, len(kept))
	for _, v := range kept {
		scores[v.ID] = model.KeywordRelevance(v, s.cfg.Lexicon.StaticKeywords)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if scores[kept[i].ID] != scores[kept[j].ID] {
			return scores[kept[i].ID] > scores[kept[j].ID]
		}
		return kept[i].ViewCount > kept[j].ViewCount
	})

	sess, err := s.sessions.Create(ctx, topic)
	if err != nil {
		return Outcome{}, err
	}
	if len(kept) > 0 {
		if err := s.db.SaveVideosWithFeatures(ctx, kept, vectors); err != nil {
			return Outcome{}, err
		}
		ids := make([]string, len(kept))
		for i, v := range kept {
			ids[i] = v.ID
		}
		if _, err := s.sessions.AttachVideos(ctx, sess.ID, ids); err != nil {
			return Outcome{}, err
		}
		metrics.SearchVideosSaved.Add(float64(len(kept)))
	}
	sess, err = s.sessions.Get(ctx, sess.ID)
	if err != nil {
		return Outcome{}, err
	}
	logging.Info("topic_search", map[string]any{
		"topic": topic, "queries": len(queries), "fetched": len(fetched),
		"saved": len(kept), "skipped": skipped, "session": sess.ID,
	})
	return Outcome{Session: sess, Saved: kept, Skipped: skipped}, nil
}

func (s *Service) fetch(ctx context.Context, queries []string, perQuery int) []model.Video {
	var all []model.Video
	for _, q := range queries {
		ids, err := s.api.SearchVideos(ctx, q, perQuery)
		if err != nil {
			logging.Error("search_query_failed", map[string]any{"query": q, "error": err.Error()})
			continue
		}
		if len(ids) == 0 {
			continue
		}
		vids, err := s.api.VideoDetails(ctx, ids)
		if err != nil {
			logging.Error("video_details_failed", map[string]any{"query": q, "error": err.Error()})
			continue
		}
		all = append(all, vids...)
	}
	return all
}

func dedupe(videos []model.Video) []model.Video {
	seen := make(map[string]bool, len(videos))
	out := make([]model.Video, 0, len(videos))
	for _, v := range videos {
		if v.ID == "" || seen[v.ID] {
			continue
		}
		seen[v.ID] = true
		out = append(out, v)
	}
	return out
}
