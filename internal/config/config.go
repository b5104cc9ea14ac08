// Package config provides configuration loading and validation for the site generator.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Supported text-generation providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Config holds every runtime setting. Zero values in a config file fall back
// to Default(); environment variables override the file.
type Config struct {
	// Server
	Port        int      `json:"port,omitempty" toml:"port" yaml:"port"`
	CORSOrigins []string `json:"cors_origins,omitempty" toml:"cors_origins" yaml:"cors_origins"`
	LogLevel    string   `json:"log_level,omitempty" toml:"log_level" yaml:"log_level"`
	LogFile     string   `json:"log_file,omitempty" toml:"log_file" yaml:"log_file"`

	// Text generation
	LLMProvider     string `json:"llm_provider,omitempty" toml:"llm_provider" yaml:"llm_provider"`
	AnthropicAPIKey string `json:"anthropic_api_key,omitempty" toml:"anthropic_api_key" yaml:"anthropic_api_key"`
	GeminiAPIKey    string `json:"gemini_api_key,omitempty" toml:"gemini_api_key" yaml:"gemini_api_key"`

	// Sources
	GooglePlacesAPIKey   string  `json:"google_places_api_key,omitempty" toml:"google_places_api_key" yaml:"google_places_api_key"`
	FirecrawlAPIKey      string  `json:"firecrawl_api_key,omitempty" toml:"firecrawl_api_key" yaml:"firecrawl_api_key"`
	ApifyToken           string  `json:"apify_token,omitempty" toml:"apify_token" yaml:"apify_token"`
	UseBrowser           bool    `json:"use_browser,omitempty" toml:"use_browser" yaml:"use_browser"`
	ScrapeTimeoutSeconds int     `json:"scrape_timeout_seconds,omitempty" toml:"scrape_timeout_seconds" yaml:"scrape_timeout_seconds"`
	SourceRatePerSecond  float64 `json:"source_rate_per_second,omitempty" toml:"source_rate_per_second" yaml:"source_rate_per_second"`

	// Hosting
	VercelToken               string `json:"vercel_token,omitempty" toml:"vercel_token" yaml:"vercel_token"`
	VercelTeamID              string `json:"vercel_team_id,omitempty" toml:"vercel_team_id" yaml:"vercel_team_id"`
	DeployPollIntervalSeconds int    `json:"deploy_poll_interval_seconds,omitempty" toml:"deploy_poll_interval_seconds" yaml:"deploy_poll_interval_seconds"`
	DeployTimeoutSeconds      int    `json:"deploy_timeout_seconds,omitempty" toml:"deploy_timeout_seconds" yaml:"deploy_timeout_seconds"`

	// Design inspiration
	SearchAPIKey            string `json:"search_api_key,omitempty" toml:"search_api_key" yaml:"search_api_key"`
	SearchEngineID          string `json:"search_engine_id,omitempty" toml:"search_engine_id" yaml:"search_engine_id"`
	InspirationTimeoutMS    int    `json:"inspiration_timeout_ms,omitempty" toml:"inspiration_timeout_ms" yaml:"inspiration_timeout_ms"`
	InspirationCacheMinutes int    `json:"inspiration_cache_minutes,omitempty" toml:"inspiration_cache_minutes" yaml:"inspiration_cache_minutes"`

	// Storage
	DatabaseURL       string `json:"database_url,omitempty" toml:"database_url" yaml:"database_url"`
	StorePath         string `json:"store_path,omitempty" toml:"store_path" yaml:"store_path"`
	JobRetentionHours int    `json:"job_retention_hours,omitempty" toml:"job_retention_hours" yaml:"job_retention_hours"`
	SweepSchedule     string `json:"sweep_schedule,omitempty" toml:"sweep_schedule" yaml:"sweep_schedule"`

	// Jobs
	MaxConcurrentJobs int `json:"max_concurrent_jobs,omitempty" toml:"max_concurrent_jobs" yaml:"max_concurrent_jobs"`
	JobTimeoutSeconds int `json:"job_timeout_seconds,omitempty" toml:"job_timeout_seconds" yaml:"job_timeout_seconds"`

	// Operator auth
	AuthSecret     string `json:"auth_secret,omitempty" toml:"auth_secret" yaml:"auth_secret"`
	AuthTokenHours int    `json:"auth_token_hours,omitempty" toml:"auth_token_hours" yaml:"auth_token_hours"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:                      8080,
		CORSOrigins:               []string{"*"},
		LogLevel:                  "info",
		LLMProvider:               ProviderAnthropic,
		ScrapeTimeoutSeconds:      60,
		SourceRatePerSecond:       2,
		DeployPollIntervalSeconds: 2,
		DeployTimeoutSeconds:      120,
		InspirationTimeoutMS:      2500,
		InspirationCacheMinutes:   60,
		JobRetentionHours:         24,
		SweepSchedule:             "@every 10m",
		MaxConcurrentJobs:         5,
		JobTimeoutSeconds:         300,
		AuthTokenHours:            24,
	}
}

// LoadConfig reads a JSON, TOML or YAML file (by extension) over Default().
// An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, nil
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	return &cfg, nil
}

// Load reads the optional file, applies the environment and validates.
func Load(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables that are set.
func (c *Config) ApplyEnv() {
	c.Port = getEnvInt("PORT", c.Port)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.CORSOrigins = splitList(origins)
	}
	c.LogLevel = getEnvString("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnvString("LOG_FILE", c.LogFile)

	c.LLMProvider = getEnvString("LLM_PROVIDER", c.LLMProvider)
	c.AnthropicAPIKey = getEnvString("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.GeminiAPIKey = getEnvString("GEMINI_API_KEY", c.GeminiAPIKey)

	c.GooglePlacesAPIKey = getEnvString("GOOGLE_PLACES_API_KEY", c.GooglePlacesAPIKey)
	c.FirecrawlAPIKey = getEnvString("FIRECRAWL_API_KEY", c.FirecrawlAPIKey)
	c.ApifyToken = getEnvString("APIFY_API_TOKEN", c.ApifyToken)
	c.UseBrowser = getEnvBool("USE_BROWSER", c.UseBrowser)
	c.ScrapeTimeoutSeconds = getEnvInt("SCRAPE_TIMEOUT_SECONDS", c.ScrapeTimeoutSeconds)

	c.VercelToken = getEnvString("VERCEL_TOKEN", c.VercelToken)
	c.VercelTeamID = getEnvString("VERCEL_TEAM_ID", c.VercelTeamID)
	c.DeployTimeoutSeconds = getEnvInt("DEPLOY_TIMEOUT_SECONDS", c.DeployTimeoutSeconds)

	c.SearchAPIKey = getEnvString("GOOGLE_SEARCH_API_KEY", c.SearchAPIKey)
	c.SearchEngineID = getEnvString("GOOGLE_SEARCH_ENGINE_ID", c.SearchEngineID)

	c.DatabaseURL = getEnvString("DATABASE_URL", c.DatabaseURL)
	c.StorePath = getEnvString("STORE_PATH", c.StorePath)
	c.JobRetentionHours = getEnvInt("JOB_RETENTION_HOURS", c.JobRetentionHours)

	c.MaxConcurrentJobs = getEnvInt("MAX_CONCURRENT_JOBS", c.MaxConcurrentJobs)
	c.JobTimeoutSeconds = getEnvInt("JOB_TIMEOUT_SECONDS", c.JobTimeoutSeconds)

	c.AuthSecret = getEnvString("AUTH_SECRET", c.AuthSecret)
	c.AuthTokenHours = getEnvInt("AUTH_TOKEN_HOURS", c.AuthTokenHours)
}

// Validate checks that the configuration has usable values.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 1 and 65535, got %d", c.Port)
	}
	switch c.LLMProvider {
	case ProviderAnthropic, ProviderGemini:
	default:
		return fmt.Errorf("config error: unknown 'llm_provider' %q", c.LLMProvider)
	}

	positive := map[string]int{
		"max_concurrent_jobs":          c.MaxConcurrentJobs,
		"job_timeout_seconds":          c.JobTimeoutSeconds,
		"scrape_timeout_seconds":       c.ScrapeTimeoutSeconds,
		"deploy_poll_interval_seconds": c.DeployPollIntervalSeconds,
		"deploy_timeout_seconds":       c.DeployTimeoutSeconds,
		"job_retention_hours":          c.JobRetentionHours,
		"inspiration_timeout_ms":       c.InspirationTimeoutMS,
		"auth_token_hours":             c.AuthTokenHours,
	}
	for name, v := range positive {
		if v < 1 {
			return fmt.Errorf("config error: '%s' must be positive, got %d", name, v)
		}
	}
	if c.InspirationCacheMinutes < 0 {
		return fmt.Errorf("config error: 'inspiration_cache_minutes' must be non-negative")
	}
	if c.SourceRatePerSecond < 0 {
		return fmt.Errorf("config error: 'source_rate_per_second' must be non-negative")
	}
	if c.DeployPollIntervalSeconds >= c.DeployTimeoutSeconds {
		return fmt.Errorf("config error: 'deploy_poll_interval_seconds' must be shorter than 'deploy_timeout_seconds'")
	}
	return nil
}

// LLMAPIKey returns the key for the configured provider.
func (c *Config) LLMAPIKey() string {
	if c.LLMProvider == ProviderGemini {
		return c.GeminiAPIKey
	}
	return c.AnthropicAPIKey
}

// ConfiguredServices reports which external collaborators have credentials.
func (c *Config) ConfiguredServices() map[string]bool {
	return map[string]bool{
		"llm":           c.LLMAPIKey() != "",
		"map_listing":   c.GooglePlacesAPIKey != "",
		"firecrawl":     c.FirecrawlAPIKey != "",
		"social":        c.ApifyToken != "",
		"hosting":       c.VercelToken != "",
		"inspiration":   c.SearchAPIKey != "" && c.SearchEngineID != "",
		"database":      c.DatabaseURL != "",
		"durable_store": c.StorePath != "",
	}
}

// JobTimeout bounds one pipeline run.
func (c *Config) JobTimeout() time.Duration {
	return time.Duration(c.JobTimeoutSeconds) * time.Second
}

// ScrapeTimeout bounds one source fetch.
func (c *Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.ScrapeTimeoutSeconds) * time.Second
}

// DeployPollInterval is the delay between deployment status checks.
func (c *Config) DeployPollInterval() time.Duration {
	return time.Duration(c.DeployPollIntervalSeconds) * time.Second
}

// DeployTimeout is the wall-clock budget of the deployment poll loop.
func (c *Config) DeployTimeout() time.Duration {
	return time.Duration(c.DeployTimeoutSeconds) * time.Second
}

// JobRetention is the age after which the sweeper evicts a job.
func (c *Config) JobRetention() time.Duration {
	return time.Duration(c.JobRetentionHours) * time.Hour
}

// InspirationTimeout is the strict deadline of the inspiration lookup.
func (c *Config) InspirationTimeout() time.Duration {
	return time.Duration(c.InspirationTimeoutMS) * time.Millisecond
}

// InspirationCacheTTL is how long inspiration results are reused.
func (c *Config) InspirationCacheTTL() time.Duration {
	return time.Duration(c.InspirationCacheMinutes) * time.Minute
}

func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func splitList(list string) []string {
	var out []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
