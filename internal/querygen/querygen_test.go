package querygen

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestStaticQueries(t *testing.T) {
	qs, err := Static{}.TopicQueries(context.Background(), "golang", 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"golang", "golang tutorial", "golang for beginners"}
	if len(qs) != 3 {
		t.Fatalf("got %d queries, want 3", len(qs))
	}
	for i := range want {
		if qs[i] != want[i] {
			t.Fatalf("query[%d] = %q, want %q", i, qs[i], want[i])
		}
	}
}

func TestStaticEmptyTopic(t *testing.T) {
	if _, err := (Static{}).TopicQueries(context.Background(), "   ", 3); err == nil {
		t.Fatal("expected error for empty topic")
	}
}

func TestStaticNClamped(t *testing.T) {
	qs, err := Static{}.TopicQueries(context.Background(), "rust", 99)
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != len(staticTemplates) {
		t.Fatalf("out-of-range n should use all templates, got %d", len(qs))
	}
}

type failingGen struct{}

func (failingGen) TopicQueries(ctx context.Context, topic string, n int) ([]string, error) {
	return nil, fmt.Errorf("service down")
}

func TestFallbackUsesBackup(t *testing.T) {
	f := Fallback{Primary: failingGen{}, Backup: Static{}}
	qs, err := f.TopicQueries(context.Background(), "python", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 2 || qs[0] != "python" {
		t.Fatalf("backup queries wrong: %v", qs)
	}
}

func TestFallbackPrefersPrimary(t *testing.T) {
	f := Fallback{Primary: Static{}, Backup: failingGen{}}
	if _, err := f.TopicQueries(context.Background(), "python", 2); err != nil {
		t.Fatalf("primary success should never reach the backup: %v", err)
	}
}

func TestParseQueries(t *testing.T) {
	response := `1. golang tutorial
- golang projects
* "learn golang"
2) golang for beginners

golang tips
golang crash course`
	qs := parseQueries(response, 5)
	want := []string{"golang tutorial", "golang projects", "learn golang", "golang for beginners", "golang tips"}
	if len(qs) != 5 {
		t.Fatalf("got %d queries, want 5 (capped): %v", len(qs), qs)
	}
	for i := range want {
		if qs[i] != want[i] {
			t.Fatalf("query[%d] = %q, want %q", i, qs[i], want[i])
		}
	}
}

func newTestOllama(url string) *Ollama {
	return &Ollama{baseURL: url, model: "llama3.2:3b", httpClient: &http.Client{Timeout: 5 * time.Second}}
}

func TestOllamaTopicQueries(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"response":"golang tutorial\ngolang projects\nlearn golang"}`)
	}))
	defer ts.Close()

	qs, err := newTestOllama(ts.URL).TopicQueries(context.Background(), "golang", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 3 || qs[1] != "golang projects" {
		t.Fatalf("queries wrong: %v", qs)
	}
}

func TestOllamaEmptyResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"response":"\n\n"}`)
	}))
	defer ts.Close()

	if _, err := newTestOllama(ts.URL).TopicQueries(context.Background(), "golang", 3); err == nil {
		t.Fatal("expected error when the model returns nothing usable")
	}
}

func TestOllamaPing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"models":[{"name":"llama3.2:3b"},{"name":"mistral"}]}`)
	}))
	defer ts.Close()

	if err := newTestOllama(ts.URL).Ping(context.Background()); err != nil {
		t.Fatal(err)
	}

	missing := &Ollama{baseURL: ts.URL, model: "absent", httpClient: http.DefaultClient}
	if err := missing.Ping(context.Background()); err == nil {
		t.Fatal("expected error for a model that is not pulled")
	}
}
