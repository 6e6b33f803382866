package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// ErrNoSeeds is returned by Validate when no discovery input is configured
var ErrNoSeeds = errors.New("no seed terms, sections, listing URLs or known locators configured")

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"`
	Schedule    string          `toml:"schedule"` // Cron schedule for recurring batches; empty runs once
	Logging     LoggingConfig   `toml:"logging"`
	Storage     StorageConfig   `toml:"storage"`
	Fetcher     FetcherConfig   `toml:"fetcher"`
	Browser     BrowserConfig   `toml:"browser"`
	Discovery   DiscoveryConfig `toml:"discovery"`
	Extractor   ExtractorConfig `toml:"extractor"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
	Sink        SinkConfig      `toml:"sink"`
	Seeds       SeedConfig      `toml:"seeds"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"`
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // default "15:04:05"
	FileName   string   `toml:"file_name"`   // log file name inside ./logs
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup
}

// FetcherConfig controls HTTP retrieval, retry and pacing
type FetcherConfig struct {
	UserAgent          string            `toml:"user_agent" validate:"required"`
	UserAgents         []string          `toml:"user_agents"`         // Pool used when rotation is enabled
	UserAgentRotation  bool              `toml:"user_agent_rotation"` // Pick a random agent per request
	Headers            map[string]string `toml:"headers"`             // Base browser-like headers
	MaxAttempts        int               `toml:"max_attempts" validate:"min=1,max=10"`
	RequestTimeout     time.Duration     `toml:"request_timeout"`
	BackoffUnit        time.Duration     `toml:"backoff_unit"`         // Transient wait = attempt * unit + jitter
	BlockedBackoffUnit time.Duration     `toml:"blocked_backoff_unit"` // 403/429 wait = attempt * unit + jitter
	Jitter             time.Duration     `toml:"jitter"`
	RequestsPerSecond  float64           `toml:"requests_per_second" validate:"gt=0"`
	Burst              int               `toml:"burst" validate:"min=1"`
	MaxBodySize        int64             `toml:"max_body_size" validate:"min=1"`
}

// BrowserConfig controls the chromedp rendering path
type BrowserConfig struct {
	Enabled           bool          `toml:"enabled"` // Render pages through a headless browser
	Headless          bool          `toml:"headless"`
	NoSandbox         bool          `toml:"no_sandbox"`
	DisableGPU        bool          `toml:"disable_gpu"`
	NavigationTimeout time.Duration `toml:"navigation_timeout"`
	WaitSelectors     []string      `toml:"wait_selectors"` // Tried in order; first present wins
	WaitTimeout       time.Duration `toml:"wait_timeout"`   // Per selector
	Scroll            bool          `toml:"scroll"`
	MaxScrolls        int           `toml:"max_scrolls" validate:"min=0"`
	ScrollPause       time.Duration `toml:"scroll_pause"`
}

// DiscoveryConfig holds locator templates and the caps that bound discovery
type DiscoveryConfig struct {
	BaseURL         string        `toml:"base_url" validate:"omitempty,url"`
	SearchTemplate  string        `toml:"search_template"`  // {term} is escaped as-is, {TERM} upper-cased
	ListingTemplate string        `toml:"listing_template"` // {page} is the 1-based page number
	DetailMarker    string        `toml:"detail_marker"`    // Path fragment of entity detail pages
	SectionPages    int           `toml:"section_pages" validate:"min=0"`
	MaxPages        int           `toml:"max_pages" validate:"min=0"`
	MaxLocators     int           `toml:"max_locators" validate:"min=1"`
	MaxAttempts     int           `toml:"max_attempts" validate:"min=1"` // Total discovery fetches
	Delay           time.Duration `toml:"delay"`
	Jitter          time.Duration `toml:"jitter"`
}

type ExtractorConfig struct {
	ShapeHint       string   `toml:"shape_hint" validate:"omitempty,oneof=auto registry-search registry-list directory-table card-grid"`
	MinFields       int      `toml:"min_fields" validate:"min=1"`
	AddressContains []string `toml:"address_contains"` // Card-grid address keyword filter
}

// PipelineConfig controls the batch driver
type PipelineConfig struct {
	MaxRecords      int           `toml:"max_records" validate:"min=0"` // 0 = no limit
	FetchDetails    bool          `toml:"fetch_details"`                // Follow listing rows to detail pages
	CheckpointEvery int           `toml:"checkpoint_every" validate:"min=1"`
	Parallelism     int           `toml:"parallelism" validate:"min=1,max=16"`
	Delay           time.Duration `toml:"delay"`
	Jitter          time.Duration `toml:"jitter"`
	ResumeRunID     string        `toml:"resume_run_id"`
	Insights        bool          `toml:"insights"` // Ask the text generator for portfolio insights
}

type SinkConfig struct {
	OutputDir  string   `toml:"output_dir" validate:"required"`
	FilePrefix string   `toml:"file_prefix"`
	Formats    []string `toml:"formats" validate:"dive,oneof=json csv markdown html pdf"`
}

type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// LLMProvider selects the text-generation backend
type LLMProvider string

const (
	LLMProviderGemini LLMProvider = "gemini"
	LLMProviderClaude LLMProvider = "claude"
	LLMProviderNone   LLMProvider = "none"
)

type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"oneof=gemini claude none"`
	MaxRetries      int         `toml:"max_retries"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
			FileName:   "corpscan.log",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/checkpoints",
			},
		},
		Fetcher: FetcherConfig{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
				"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			},
			UserAgentRotation: false,
			Headers: map[string]string{
				"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
				"Accept-Language": "en-US,en;q=0.9",
				"Connection":      "keep-alive",
			},
			MaxAttempts:        3,
			RequestTimeout:     30 * time.Second,
			BackoffUnit:        5 * time.Second,
			BlockedBackoffUnit: 10 * time.Second,
			Jitter:             2 * time.Second,
			RequestsPerSecond:  0.5,
			Burst:              1,
			MaxBodySize:        10 * 1024 * 1024, // 10MB
		},
		Browser: BrowserConfig{
			Enabled:           false,
			Headless:          true,
			NoSandbox:         true,
			DisableGPU:        true,
			NavigationTimeout: 45 * time.Second,
			WaitSelectors:     []string{"table tbody tr", "table", "div[class*='col-lg-4']", "h1"},
			WaitTimeout:       5 * time.Second,
			Scroll:            true,
			MaxScrolls:        20,
			ScrollPause:       2 * time.Second,
		},
		Discovery: DiscoveryConfig{
			DetailMarker: "/company/",
			SectionPages: 3,
			MaxPages:     5,
			MaxLocators:  200,
			MaxAttempts:  100,
			Delay:        2 * time.Second,
			Jitter:       3 * time.Second,
		},
		Extractor: ExtractorConfig{
			ShapeHint: "auto",
			MinFields: 2,
		},
		Pipeline: PipelineConfig{
			MaxRecords:      0,
			FetchDetails:    true,
			CheckpointEvery: 10,
			Parallelism:     1,
			Delay:           2 * time.Second,
			Jitter:          3 * time.Second,
		},
		Sink: SinkConfig{
			OutputDir:  "./output",
			FilePrefix: "corpscan",
			Formats:    []string{"json", "csv", "markdown"},
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Timeout:     "2m",
			Temperature: 0.3,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-4-5",
			MaxTokens:   2048,
			Timeout:     "2m",
			Temperature: 0.3,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
			MaxRetries:      3,
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> .env -> files (in order) -> env
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// .env is optional; existing environment variables are never overwritten
	_ = godotenv.Load()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// later files override earlier ones
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if env := os.Getenv("CORPSCAN_ENV"); env != "" {
		config.Environment = env
	}
	if schedule := os.Getenv("CORPSCAN_SCHEDULE"); schedule != "" {
		config.Schedule = schedule
	}

	// Logging
	if level := os.Getenv("CORPSCAN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("CORPSCAN_LOG_OUTPUT"); output != "" {
		if outputs := splitList(output); len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Storage
	if badgerPath := os.Getenv("CORPSCAN_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Fetcher
	if userAgent := os.Getenv("CORPSCAN_USER_AGENT"); userAgent != "" {
		config.Fetcher.UserAgent = userAgent
	}
	if maxAttempts := os.Getenv("CORPSCAN_MAX_ATTEMPTS"); maxAttempts != "" {
		if n, err := strconv.Atoi(maxAttempts); err == nil {
			config.Fetcher.MaxAttempts = n
		}
	}
	if timeout := os.Getenv("CORPSCAN_REQUEST_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Fetcher.RequestTimeout = d
		}
	}

	// Browser
	if render := os.Getenv("CORPSCAN_RENDER"); render != "" {
		if b, err := strconv.ParseBool(render); err == nil {
			config.Browser.Enabled = b
		}
	}

	// Discovery
	if maxLocators := os.Getenv("CORPSCAN_MAX_LOCATORS"); maxLocators != "" {
		if n, err := strconv.Atoi(maxLocators); err == nil {
			config.Discovery.MaxLocators = n
		}
	}
	if terms := os.Getenv("CORPSCAN_SEARCH_TERMS"); terms != "" {
		config.Seeds.SearchTerms = splitList(terms)
	}

	// Sink
	if outputDir := os.Getenv("CORPSCAN_OUTPUT_DIR"); outputDir != "" {
		config.Sink.OutputDir = outputDir
	}

	// LLM providers
	if provider := os.Getenv("CORPSCAN_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(provider))
	}
	for _, name := range []string{"CORPSCAN_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if key := os.Getenv(name); key != "" {
			config.Gemini.APIKey = key
			break
		}
	}
	for _, name := range []string{"CORPSCAN_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"} {
		if key := os.Getenv(name); key != "" {
			config.Claude.APIKey = key
			break
		}
	}
}

// FlagOverrides carries command-line values; zero values leave the config unchanged
type FlagOverrides struct {
	SeedsFile  string
	OutputDir  string
	MaxRecords int
	Resume     string
	Render     bool
	Insights   bool
}

// ApplyFlagOverrides applies command-line flags, which have the highest priority
func ApplyFlagOverrides(config *Config, flags FlagOverrides) {
	if flags.SeedsFile != "" {
		config.Seeds.File = flags.SeedsFile
	}
	if flags.OutputDir != "" {
		config.Sink.OutputDir = flags.OutputDir
	}
	if flags.MaxRecords > 0 {
		config.Pipeline.MaxRecords = flags.MaxRecords
	}
	if flags.Resume != "" {
		config.Pipeline.ResumeRunID = flags.Resume
	}
	if flags.Render {
		config.Browser.Enabled = true
	}
	if flags.Insights {
		config.Pipeline.Insights = true
	}
}

// Validate checks struct constraints, seed presence and the schedule.
// Errors are fatal and raised before any network activity.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Seeds.IsEmpty() {
		return ErrNoSeeds
	}
	if len(c.Seeds.SearchTerms) > 0 && c.Discovery.SearchTemplate == "" {
		return fmt.Errorf("invalid configuration: discovery.search_template is required when search terms are set")
	}
	if c.Schedule != "" {
		if err := ValidateSchedule(c.Schedule); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSchedule validates a standard five-field cron expression
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// splitList splits a comma-separated value, dropping empty entries
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
