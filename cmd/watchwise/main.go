package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"watchwise/internal/cmdlog"
	"watchwise/internal/config"
	"watchwise/internal/metrics"
	"watchwise/internal/policy"
	"watchwise/internal/querygen"
	"watchwise/internal/ratings"
	"watchwise/internal/recommend"
	"watchwise/internal/search"
	"watchwise/internal/session"
	"watchwise/internal/store"
	"watchwise/internal/theme"
	"watchwise/internal/ytclient"
)

func main() {
	metrics.StartServer("")
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "init":
		cmdInit()
	case "search":
		cmdSearch()
	case "discover":
		cmdDiscover()
	case "rate":
		cmdRate()
	case "recommend":
		cmdRecommend()
	case "keywords":
		cmdKeywords()
	case "sessions":
		cmdSessions()
	case "videos":
		cmdVideos()
	case "cleanup":
		cmdCleanup()
	case "delete-session":
		cmdDeleteSession()
	case "stats":
		cmdStats()
	default:
		printHelp()
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: watchwise <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init            Create a config file at ./watchwise.yaml")
	fmt.Println("  search          Search videos for a topic and track the session")
	fmt.Println("  discover        Personalized search driven by the policy keywords")
	fmt.Println("  rate            Record a like/dislike for a video")
	fmt.Println("  recommend       Rank unrated videos by the trained model")
	fmt.Println("  keywords        Show the current search keywords and policy state")
	fmt.Println("  sessions        List search sessions")
	fmt.Println("  videos          Show the videos of one session")
	fmt.Println("  cleanup         Archive search sessions older than N days")
	fmt.Println("  delete-session  Delete a session, optionally with its videos")
	fmt.Println("  stats           Show search session statistics")
}

func fail(err error) {
	fmt.Println("error:", err)
	os.Exit(1)
}

func mustOpen(cfgPath string) (config.Config, *store.DB) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fail(err)
	}
	db, err := store.Open(cfg.Storage.DBPath)
	if err != nil {
		fail(err)
	}
	return cfg, db
}

func cmdInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", "./watchwise.yaml", "path to write config")
	_ = fs.Parse(os.Args[2:])
	if err := config.Save(*path, config.Default()); err != nil {
		fail(err)
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
}

// pickGenerator prefers the local LLM when it is reachable and has the
// configured model pulled; otherwise query generation stays static.
func pickGenerator(ctx context.Context, cfg config.Config) querygen.Generator {
	if cfg.Ollama.BaseURL == "" {
		return querygen.Static{}
	}
	ollama := querygen.NewOllama(cfg.Ollama)
	if err := ollama.Ping(ctx); err != nil {
		fmt.Println("Ollama unavailable, using static queries:", err)
		return querygen.Static{}
	}
	return querygen.Fallback{Primary: ollama, Backup: querygen.Static{}}
}

func cmdSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	cfgPath := fs.String("config", "./watchwise.yaml", "config path")
	topic := fs.String("topic", "", "topic to search for")
	_ = fs.Parse(os.Args[2:])
	if *topic == "" {
		fail(errors.New("missing -topic"))
	}
	cfg, db := mustOpen(*cfgPath)
	defer db.Close()
	ctx := context.Background()

	api := ytclient.NewHTTPClient(cfg.YouTube.APIKey, cfg.YouTube.CategoryID, cfg.YouTube.PublishedAfter)
	svc := search.NewService(db, api, pickGenerator(ctx, cfg), session.NewManager(db), cfg)

	_ = cmdlog.Run("search", func() error {
		out, err := svc.SearchTopic(ctx, *topic)
		if err != nil {
			return err
		}
		fmt.Printf("Session %s: saved %d videos (%d skipped)\n", out.Session.ID, len(out.Saved), out.Skipped)
		for i, v := range out.Saved {
			if i == 3 {
				break
			}
			fmt.Printf("  • %s — %s (%d views)\n", v.Title, v.ChannelName, v.ViewCount)
		}
		return nil
	})
}

func cmdDiscover() {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	cfgPath := fs.String("config", "./watchwise.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	cfg, db := mustOpen(*cfgPath)
	defer db.Close()
	ctx := context.Background()

	api := ytclient.NewHTTPClient(cfg.YouTube.APIKey, cfg.YouTube.CategoryID, cfg.YouTube.PublishedAfter)
	svc := search.NewService(db, api, pickGenerator(ctx, cfg), session.NewManager(db), cfg)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	_ = cmdlog.Run("discover", func() error {
		out, err := svc.Discover(ctx, rng)
		if err != nil {
			return err
		}
		fmt.Printf("Session %s: saved %d videos (%d skipped)\n", out.Session.ID, len(out.Saved), out.Skipped)
		return nil
	})
}

func cmdRate() {
	fs := flag.NewFlagSet("rate", flag.ExitOnError)
	cfgPath := fs.String("config", "./watchwise.yaml", "config path")
	id := fs.String("id", "", "video id")
	liked := fs.Bool("liked", false, "true for like, false for dislike")
	notes := fs.String("notes", "", "optional notes")
	_ = fs.Parse(os.Args[2:])
	if *id == "" {
		fail(errors.New("missing -id"))
	}
	cfg, db := mustOpen(*cfgPath)
	defer db.Close()

	svc := ratings.NewService(db, cfg.ML)
	_ = cmdlog.Run("rate", func() error {
		res, err := svc.Rate(context.Background(), *id, *liked, *notes)
		if err != nil && !errors.Is(err, recommend.ErrInsufficientData) {
			return err
		}
		fmt.Printf("Rated %s (%d total, %s start)\n", *id, res.RatedCount, res.State)
		if res.Retrained {
			fmt.Printf("Model retrained on %d examples\n", res.Model.NumExamples)
		} else {
			fmt.Println("Model not yet retrained")
		}
		return nil
	})
}

func cmdRecommend() {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	cfgPath := fs.String("config", "./watchwise.yaml", "config path")
	topN := fs.Int("top", 0, "number of recommendations (default from config)")
	_ = fs.Parse(os.Args[2:])
	cfg, db := mustOpen(*cfgPath)
	defer db.Close()
	ctx := context.Background()
	n := *topN
	if n <= 0 {
		n = cfg.ML.TopN
	}

	_ = cmdlog.Run("recommend", func() error {
		candidates, err := db.UnratedCandidates(ctx, 0)
		if err != nil {
			return err
		}
		m, err := ratings.NewService(db, cfg.ML).Retrain(ctx)
		if err != nil {
			if errors.Is(err, recommend.ErrInsufficientData) || errors.Is(err, recommend.ErrTrainingFailure) {
				// Cold start: fall back to the popularity ordering the
				// store already provides.
				fmt.Println("No trained model yet; showing most-viewed unrated videos")
				for i, c := range candidates {
					if i == n {
						break
					}
					fmt.Printf("%2d. %s (%d views)\n", i+1, c.Video.Title, c.Video.ViewCount)
				}
				return nil
			}
			return err
		}
		recs, err := recommend.Rank(m, candidates, n)
		if err != nil {
			return err
		}
		for i, r := range recs {
			fmt.Printf("%2d. [%3d%% %s] %s — %s\n", i+1, r.Confidence, r.Tier(), r.Video.Title, r.Video.ChannelName)
		}
		return nil
	})
}

func cmdKeywords() {
	fs := flag.NewFlagSet("keywords", flag.ExitOnError)
	cfgPath := fs.String("config", "./watchwise.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	cfg, db := mustOpen(*cfgPath)
	defer db.Close()
	ctx := context.Background()

	_ = cmdlog.Run("keywords", func() error {
		count, err := db.RatedCount(ctx)
		if err != nil {
			return err
		}
		tags, err := db.LikedTags(ctx)
		if err != nil {
			return err
		}
		st := policy.StateFor(count, cfg.ML.TrainThreshold)
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		kws := policy.SearchKeywords(st, tags, cfg.Lexicon, rng)
		fmt.Printf("Policy state: %s (%d ratings, %d liked tags)\n", st, count, len(tags))
		for _, k := range kws {
			fmt.Println("  -", k)
		}
		return nil
	})
}

func cmdSessions() {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	cfgPath := fs.String("config", "./watchwise.yaml", "config path")
	filter := fs.String("filter", "all", "active|archived|all")
	_ = fs.Parse(os.Args[2:])
	_, db := mustOpen(*cfgPath)
	defer db.Close()

	_ = cmdlog.Run("sessions", func() error {
		mgr := session.NewManager(db)
		out, err := mgr.List(context.Background(), session.Filter(*filter))
		if err != nil {
			return err
		}
		for _, s := range out {
			fmt.Printf("%s  %-9s %3d videos  %s  %s\n",
				s.CreatedAt.Format("2006-01-02 15:04"), s.Status, s.VideoCount, s.ID, s.Topic)
		}
		return nil
	})
}

func cmdVideos() {
	fs := flag.NewFlagSet("videos", flag.ExitOnError)
	cfgPath := fs.String("config", "./watchwise.yaml", "config path")
	id := fs.String("session", "", "session id")
	_ = fs.Parse(os.Args[2:])
	if *id == "" {
		fail(errors.New("missing -session"))
	}
	_, db := mustOpen(*cfgPath)
	defer db.Close()

	_ = cmdlog.Run("videos", func() error {
		vids, err := session.NewManager(db).Videos(context.Background(), *id)
		if err != nil {
			return err
		}
		for _, v := range vids {
			fmt.Printf("%s  %-40.40s %s\n", v.ID, v.Title, v.URL)
		}
		return nil
	})
}

func cmdCleanup() {
	fs := flag.NewFlagSet("cleanup", flag.ExitOnError)
	cfgPath := fs.String("config", "./watchwise.yaml", "config path")
	days := fs.Int("days", 7, "archive sessions older than this many days")
	_ = fs.Parse(os.Args[2:])
	_, db := mustOpen(*cfgPath)
	defer db.Close()

	_ = cmdlog.Run("cleanup", func() error {
		n, err := session.NewManager(db).ArchiveOlderThan(context.Background(), *days)
		if err != nil {
			return err
		}
		fmt.Printf("Archived %d sessions\n", n)
		return nil
	})
}

func cmdDeleteSession() {
	fs := flag.NewFlagSet("delete-session", flag.ExitOnError)
	cfgPath := fs.String("config", "./watchwise.yaml", "config path")
	id := fs.String("session", "", "session id")
	removeVideos := fs.Bool("remove-videos", false, "also delete videos owned only by this session")
	_ = fs.Parse(os.Args[2:])
	if *id == "" {
		fail(errors.New("missing -session"))
	}
	_, db := mustOpen(*cfgPath)
	defer db.Close()

	_ = cmdlog.Run("delete_session", func() error {
		if err := session.NewManager(db).Delete(context.Background(), *id, *removeVideos); err != nil {
			return err
		}
		fmt.Println("Deleted session", *id)
		return nil
	})
}

func cmdStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	cfgPath := fs.String("config", "./watchwise.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	_, db := mustOpen(*cfgPath)
	defer db.Close()

	_ = cmdlog.Run("stats", func() error {
		st, err := session.NewManager(db).Stats(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("Sessions: %d total, %d active, %d archived, %d recent (7d)\n",
			st.TotalSessions, st.ActiveSessions, st.ArchivedSessions, st.RecentSessions)
		fmt.Printf("Videos from searches: %d\n", st.SearchVideos)
		return nil
	})
}
