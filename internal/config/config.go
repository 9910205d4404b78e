package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// It captures API access, the ML setup, search behavior, and the keyword
// lexicon used for feature extraction and cold-start personalization.
type Config struct {
	YouTube YouTubeConfig `yaml:"youtube"`
	Ollama  OllamaConfig  `yaml:"ollama"`
	ML      MLConfig      `yaml:"ml"`
	Search  SearchConfig  `yaml:"search"`
	Lexicon Lexicon       `yaml:"lexicon"`
	Storage StorageConfig `yaml:"storage"`
}

type YouTubeConfig struct {
	// API key for the YouTube Data API v3. If empty, read from env YOUTUBE_API_KEY
	APIKey string `yaml:"apiKey"`
	// Restrict searches to this category ("28" = Science & Technology)
	CategoryID string `yaml:"categoryId"`
	// Only consider videos published after this RFC3339 instant
	PublishedAfter string `yaml:"publishedAfter"`
}

type OllamaConfig struct {
	// Base URL of a local Ollama instance. If empty, query generation
	// falls back to the static lexicon queries.
	BaseURL string `yaml:"baseUrl"`
	Model   string `yaml:"model"`
}

type MLConfig struct {
	// Minimum number of rated videos before a model can be trained
	TrainThreshold int `yaml:"trainThreshold"`
	// Number of trees in the bagged ensemble
	Estimators int `yaml:"estimators"`
	// Per-tree growth limits
	MaxDepth int `yaml:"maxDepth"`
	MinLeaf  int `yaml:"minLeaf"`
	// Seed for reproducible training runs
	Seed int64 `yaml:"seed"`
	// Default size of a recommendation set
	TopN int `yaml:"topN"`
}

type SearchConfig struct {
	ResultsPerQuery      int   `yaml:"resultsPerQuery"`
	TopicResultsPerQuery int   `yaml:"topicResultsPerQuery"`
	TopicMaxQueries      int   `yaml:"topicMaxQueries"`
	// Videos below this view count are dropped by the relevance filter
	MinViewCount int64 `yaml:"minViewCount"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

// Lexicon is the versioned keyword configuration consumed by feature
// extraction and the personalization policy. It is loaded once at startup
// and passed explicitly; extraction is deterministic for a given version.
type Lexicon struct {
	Version int `yaml:"version"`

	// Keyword-presence categories for feature extraction
	Tutorial       []string `yaml:"tutorial"`
	Beginner       []string `yaml:"beginner"`
	AI             []string `yaml:"ai"`
	Challenge      []string `yaml:"challenge"`
	TimeConstraint []string `yaml:"timeConstraint"`

	// Title sentiment lexicon
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`

	// Static keyword set used before personalization activates, and the
	// relevance filter applied to search results
	StaticKeywords []string `yaml:"staticKeywords"`
	// Static search queries used when AI query generation is unavailable
	StaticQueries []string `yaml:"staticQueries"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		YouTube: YouTubeConfig{
			CategoryID:     "28",
			PublishedAfter: "2020-01-01T00:00:00Z",
		},
		Ollama: OllamaConfig{BaseURL: "http://localhost:11434", Model: "llama3.2:3b"},
		ML: MLConfig{
			TrainThreshold: 10,
			Estimators:     100,
			MaxDepth:       8,
			MinLeaf:        1,
			Seed:           42,
			TopN:           24,
		},
		Search: SearchConfig{
			ResultsPerQuery:      10,
			TopicResultsPerQuery: 3,
			TopicMaxQueries:      8,
			MinViewCount:         100000,
		},
		Lexicon: DefaultLexicon(),
		Storage: StorageConfig{DBPath: "./watchwise.db"},
	}
}

// DefaultLexicon returns version 1 of the keyword lexicon.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Version:        1,
		Tutorial:       []string{"tutorial", "learn", "course", "guide", "how to"},
		Beginner:       []string{"beginner", "start", "basics", "introduction", "getting started"},
		AI:             []string{"ai", "artificial intelligence", "machine learning", "neural network"},
		Challenge:      []string{"challenge", "build", "create", "project", "coding"},
		TimeConstraint: []string{"24 hours", "1 day", "1 hour", "minutes", "seconds", "crash course"},
		Positive:       []string{"amazing", "best", "awesome", "great", "perfect", "love", "incredible"},
		Negative:       []string{"hard", "difficult", "impossible", "failed", "broke", "wrong"},
		StaticKeywords: []string{
			"coding", "programming", "javascript", "python", "react",
			"web development", "tutorial", "learn", "build", "create",
			"app", "website", "algorithm", "ai", "machine learning",
			"data science", "software", "development", "code", "tech",
			"computer science", "backend", "frontend", "fullstack",
			"database", "api", "framework", "library", "devops",
		},
		StaticQueries: []string{
			"coding passion project ideas",
			"weekend programming projects",
			"creative coding projects",
			"fun programming side projects",
			"indie developer projects",
			"building passion projects programming",
			"personal coding project showcase",
			"hobby programming projects",
			"weekend coding challenge",
			"solo developer projects",
			"build something cool programming",
			"coding project inspiration",
			"unique programming projects",
			"developer side project success",
			"open source passion projects",
		},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.YouTube.APIKey == "" {
		c.YouTube.APIKey = os.Getenv("YOUTUBE_API_KEY")
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		c.Ollama.Model = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		c.Ollama.BaseURL = v
	}
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
