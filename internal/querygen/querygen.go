package querygen

import (
	"context"
	"fmt"
	"strings"

	"watchwise/internal/logging"
)

// Generator yields search-query strings for a topic. The engine only
// consumes the resulting strings; model and service selection stay here.
type Generator interface {
	TopicQueries(ctx context.Context, topic string, n int) ([]string, error)
}

// Static derives queries from fixed templates around the topic. It is the
// fallback when no local LLM is reachable, and the generator of choice in
// tests.
type Static struct{}

var staticTemplates = []string{
	"%s",
	"%s tutorial",
	"%s for beginners",
	"%s project",
	"%s crash course",
	"learn %s",
	"build with %s",
	"%s explained",
	"%s tips",
	"%s guide",
}

func (Static) TopicQueries(ctx context.Context, topic string, n int) ([]string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("empty topic")
	}
	if n < 1 || n > len(staticTemplates) {
		n = len(staticTemplates)
	}
	out := make([]string, 0, n)
	for _, t := range staticTemplates[:n] {
		out = append(out, fmt.Sprintf(t, topic))
	}
	return out, nil
}

// Fallback tries the primary generator and falls back to the backup when it
// fails, logging the reason.
type Fallback struct {
	Primary Generator
	Backup  Generator
}

func (f Fallback) TopicQueries(ctx context.Context, topic string, n int) ([]string, error) {
	qs, err := f.Primary.TopicQueries(ctx, topic, n)
	if err == nil && len(qs) > 0 {
		return qs, nil
	}
	if err != nil {
		logging.Error("query_generation_fallback", map[string]any{"topic": topic, "error": err.Error()})
	}
	return f.Backup.TopicQueries(ctx, topic, n)
}
