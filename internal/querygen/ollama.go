package querygen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"watchwise/internal/config"
)

// Ollama generates search queries with a local LLM via the Ollama HTTP API.
type Ollama struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewOllama(cfg config.OllamaConfig) *Ollama {
	return &Ollama{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Ping checks that the Ollama service is up and the configured model is
// pulled.
func (o *Ollama) Ping(ctx context.Context) error {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama status %d", resp.StatusCode)
	}
	var raw struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return err
	}
	for _, m := range raw.Models {
		if m.Name == o.model {
			return nil
		}
	}
	return fmt.Errorf("ollama model %q not found", o.model)
}

func (o *Ollama) TopicQueries(ctx context.Context, topic string, n int) ([]string, error) {
	if n < 1 {
		n = 8
	}
	prompt := fmt.Sprintf(`Generate %d YouTube search queries for finding programming/coding videos about: %s

Create diverse queries including:
- Simple topic names (e.g., just %q)
- Basic combinations (e.g., %q)
- Broader terms without too many keywords
- Some project-based queries
- Avoid overly specific or long queries

Make queries natural and broad enough to find popular videos.
Keep queries concise - most should be 2-4 words.

Return only the search queries, one per line. Do not include numbering or bullet points.`,
		n, topic, topic, topic+" tutorial")

	body, _ := json.Marshal(map[string]any{
		"model":  o.model,
		"prompt": prompt,
		"stream": false,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama status %d", resp.StatusCode)
	}
	var raw struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	queries := parseQueries(raw.Response, n)
	if len(queries) == 0 {
		return nil, fmt.Errorf("ollama returned no usable queries")
	}
	return queries, nil
}

// parseQueries splits a model response into clean, line-separated queries,
// stripping any numbering or bullets the model added anyway.
func parseQueries(response string, n int) []string {
	var out []string
	for _, line := range strings.Split(response, "\n") {
		q := strings.TrimSpace(line)
		q = strings.TrimLeft(q, "-*0123456789. )")
		q = strings.Trim(q, `"`)
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		out = append(out, q)
		if len(out) == n {
			break
		}
	}
	return out
}
