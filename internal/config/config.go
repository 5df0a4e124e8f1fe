package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"voxsurf/internal/logging"
)

// Config captures all tunable settings for the voxsurf assistant.
type Config struct {
	Assistant AssistantConfig `yaml:"assistant"`
	Browser   BrowserConfig   `yaml:"browser"`
	Search    SearchConfig    `yaml:"search"`
	AI        AIConfig        `yaml:"ai"`
	Logging   logging.Config  `yaml:"logging"`
}

// AssistantConfig controls how spoken replies are composed.
type AssistantConfig struct {
	// Suffix appended to confirmations (e.g. ", Boss"). Empty disables it.
	ReplySuffix string `yaml:"reply_suffix"`
	// How many entries to read out for "list results" / "list links".
	SpokenListLimit int `yaml:"spoken_list_limit"`
	// Directory for command transcripts. Empty disables recording.
	TranscriptDir string `yaml:"transcript_dir"`
}

// BrowserConfig configures how we launch or attach to Chrome for Rod.
type BrowserConfig struct {
	// Control endpoint for Rod (e.g., ws://localhost:9222). When set, we
	// attach instead of launching.
	DebuggerURL string `yaml:"debugger_url"`
	// Optional explicit Chrome binary; empty lets Rod's launcher find one.
	Bin string `yaml:"bin"`
	// Headless controls whether Chrome runs headless (default: false — a
	// voice-driven browser is usually meant to be watched).
	Headless bool `yaml:"headless"`
	// NoSandbox adds --no-sandbox, needed in Docker or as root.
	NoSandbox bool `yaml:"no_sandbox"`
	// Navigation timeout as a duration string (e.g., "15s").
	NavigationTimeoutRaw string `yaml:"navigation_timeout"`
	// Per-strategy element lookup timeout (e.g., "2s").
	ElementTimeoutRaw string `yaml:"element_timeout"`
	// Pixels scrolled per scroll command.
	ScrollStep int `yaml:"scroll_step"`
	// Viewport dimensions for new pages.
	ViewportWidth  int `yaml:"viewport_width"`
	ViewportHeight int `yaml:"viewport_height"`
}

// SearchConfig describes the search engine the Search command drives.
type SearchConfig struct {
	// URL template with a %s placeholder for the url-encoded query.
	URLTemplate string `yaml:"url_template"`
	// Substrings identifying a results page; navigation to a URL containing
	// one of these keeps the result index alive.
	ResultsMarkers []string `yaml:"results_markers"`
	// Cap on harvested results / links per snapshot.
	MaxResults int `yaml:"max_results"`
	MaxLinks   int `yaml:"max_links"`
}

// AIConfig configures the fallback responder for unrecognized utterances.
type AIConfig struct {
	// API key; empty disables the AI fallback entirely.
	APIKey string `yaml:"api_key"`
	// Optional OpenAI-compatible base URL.
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// System prompt establishing the assistant's persona.
	SystemPrompt string `yaml:"system_prompt"`
}

// DefaultConfig provides reasonable defaults for local use.
func DefaultConfig() Config {
	return Config{
		Assistant: AssistantConfig{
			ReplySuffix:     ", Boss",
			SpokenListLimit: 5,
		},
		Browser: BrowserConfig{
			Headless:             false,
			NavigationTimeoutRaw: "15s",
			ElementTimeoutRaw:    "2s",
			ScrollStep:           600,
			ViewportWidth:        1920,
			ViewportHeight:       1080,
		},
		Search: SearchConfig{
			URLTemplate:    "https://duckduckgo.com/html/?q=%s",
			ResultsMarkers: []string{"duckduckgo.com/html", "google.com/search", "bing.com/search"},
			MaxResults:     10,
			MaxLinks:       25,
		},
		AI: AIConfig{
			Model:        "gpt-4o-mini",
			SystemPrompt: "You are a concise voice assistant. Answer in one or two spoken sentences.",
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads YAML config from disk and overlays defaults. A missing file is
// not an error; the assistant runs fine on defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, cfg.Validate()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Validate ensures required fields exist so startup fails deterministically.
func (c *Config) Validate() error {
	if c.Search.URLTemplate == "" {
		return errors.New("search.url_template is required")
	}
	if !strings.Contains(c.Search.URLTemplate, "%s") {
		return fmt.Errorf("search.url_template must contain a %%s query placeholder: %q", c.Search.URLTemplate)
	}
	if _, err := url.Parse(fmt.Sprintf(c.Search.URLTemplate, "probe")); err != nil {
		return fmt.Errorf("search.url_template is not a valid URL: %w", err)
	}
	if c.Search.MaxResults <= 0 {
		return errors.New("search.max_results must be positive")
	}
	if c.Search.MaxLinks <= 0 {
		return errors.New("search.max_links must be positive")
	}
	return nil
}

// NavigationTimeout returns the parsed navigation timeout with a sane default.
func (b BrowserConfig) NavigationTimeout() time.Duration {
	return parseDuration(b.NavigationTimeoutRaw, 15*time.Second)
}

// ElementTimeout returns the per-strategy element wait with a sane default.
func (b BrowserConfig) ElementTimeout() time.Duration {
	return parseDuration(b.ElementTimeoutRaw, 2*time.Second)
}

// GetScrollStep returns the scroll distance with a sane default.
func (b BrowserConfig) GetScrollStep() int {
	if b.ScrollStep <= 0 {
		return 600
	}
	return b.ScrollStep
}

// GetViewportWidth returns the viewport width with a sane default.
func (b BrowserConfig) GetViewportWidth() int {
	if b.ViewportWidth <= 0 {
		return 1920
	}
	return b.ViewportWidth
}

// GetViewportHeight returns the viewport height with a sane default.
func (b BrowserConfig) GetViewportHeight() int {
	if b.ViewportHeight <= 0 {
		return 1080
	}
	return b.ViewportHeight
}

// SearchURL renders the engine URL for a query.
func (s SearchConfig) SearchURL(query string) string {
	return fmt.Sprintf(s.URLTemplate, url.QueryEscape(query))
}

// IsResultsPage reports whether a URL looks like a search results page.
func (s SearchConfig) IsResultsPage(pageURL string) bool {
	for _, marker := range s.ResultsMarkers {
		if marker != "" && strings.Contains(pageURL, marker) {
			return true
		}
	}
	return false
}

// GetSpokenListLimit returns how many entries to read aloud, defaulting to 5.
func (a AssistantConfig) GetSpokenListLimit() int {
	if a.SpokenListLimit <= 0 {
		return 5
	}
	return a.SpokenListLimit
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
