package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Ratings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "watchwise_ratings_total",
		Help: "Total video ratings recorded",
	}, []string{"liked"})
	Trainings = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "watchwise_trainings_total",
		Help: "Total successful model training runs",
	})
	TrainingErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "watchwise_training_errors_total",
		Help: "Total failed model training runs",
	})
	TrainingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "watchwise_training_duration_seconds",
		Help:    "Model training duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	Searches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "watchwise_searches_total",
		Help: "Total topic search runs",
	})
	SearchVideosSaved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "watchwise_search_videos_saved_total",
		Help: "Total videos saved from searches",
	})
	SessionsArchived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "watchwise_sessions_archived_total",
		Help: "Total search sessions archived by cleanup",
	})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "watchwise_command_runs_total",
		Help: "Total CLI command invocations",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "watchwise_command_errors_total",
		Help: "Total CLI command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(Ratings, Trainings, TrainingErrors, TrainingDuration,
		Searches, SearchVideosSaved, SessionsArchived, CommandRuns, CommandErrors)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// ObserveTrainingDuration records a training run duration
func ObserveTrainingDuration(start time.Time) {
	TrainingDuration.Observe(time.Since(start).Seconds())
}

// IncRating increments the rating counter for a liked/disliked outcome.
func IncRating(liked bool) {
	v := "false"
	if liked {
		v = "true"
	}
	Ratings.WithLabelValues(v).Inc()
}

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
