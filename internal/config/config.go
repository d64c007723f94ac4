// Package config loads runtime settings from the environment and the
// optional sources file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/NullMeDev/factlens/internal/apperror"
	"github.com/NullMeDev/factlens/internal/evidence"
	"github.com/NullMeDev/factlens/internal/logging"
	"github.com/NullMeDev/factlens/internal/sources"
)

const DefaultSourcesFile = "config/sources.yml"

// Config holds application configuration
type Config struct {
	// Source credentials. Every one is optional.
	NewsAPIKey      string
	FactCheckAPIKey string
	SearchAPIKey    string
	SearchEngineID  string

	// Reasoner
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	SourceTimeout time.Duration
	UserAgent     string
	SourcesFile   string

	// API server
	HTTPPort            int
	VerifyRatePerMinute int
	HealthCron          string

	// Discord bot
	DiscordToken   string
	DiscordAppID   string
	DiscordGuildID string

	LogLevel  string
	LogPath   string
	LogFormat string

	Regional []sources.RegionalSite
	Keywords evidence.KeywordTable
}

// SourcesFile is the layout of the sources YAML file.
type SourcesFile struct {
	Regional        []sources.RegionalSite `yaml:"regional"`
	VerdictKeywords evidence.KeywordTable  `yaml:"verdict_keywords"`
}

// Load reads .env, the environment and the sources file. A missing sources
// file means built-in defaults; a malformed one is an error.
func Load() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, apperror.NewConfigError(apperror.ErrConfigLoad, "invalid .env file", err)
	}

	cfg := &Config{
		NewsAPIKey:          GetEnvString("NEWS_API_KEY", ""),
		FactCheckAPIKey:     GetEnvString("GOOGLE_FACT_CHECK_API_KEY", ""),
		SearchAPIKey:        GetEnvString("GOOGLE_SEARCH_API_KEY", ""),
		SearchEngineID:      GetEnvString("GOOGLE_SEARCH_ENGINE_ID", ""),
		OpenAIAPIKey:        GetEnvString("OPENAI_API_KEY", ""),
		OpenAIBaseURL:       GetEnvString("OPENAI_BASE_URL", ""),
		OpenAIModel:         GetEnvString("OPENAI_MODEL", "gpt-4o-mini"),
		SourceTimeout:       GetEnvDuration("SOURCE_TIMEOUT", sources.DefaultTimeout),
		UserAgent:           GetEnvString("USER_AGENT", sources.DefaultUserAgent),
		SourcesFile:         GetEnvString("SOURCES_FILE", DefaultSourcesFile),
		HTTPPort:            GetEnvInt("HTTP_PORT", 8080),
		VerifyRatePerMinute: GetEnvInt("VERIFY_RATE_PER_MINUTE", 30),
		HealthCron:          GetEnvString("HEALTH_CRON", "*/30 * * * *"),
		DiscordToken:        GetEnvString("DISCORD_BOT_TOKEN", ""),
		DiscordAppID:        GetEnvString("DISCORD_APP_ID", ""),
		DiscordGuildID:      GetEnvString("DISCORD_GUILD_ID", ""),
		LogLevel:            GetEnvString("LOG_LEVEL", "info"),
		LogPath:             GetEnvString("LOG_PATH", ""),
		LogFormat:           GetEnvString("LOG_FORMAT", "console"),
	}

	file, err := LoadSourcesFile(cfg.SourcesFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg.Regional = sources.DefaultRegionalSites()
		cfg.Keywords = evidence.DefaultKeywords()
	case err != nil:
		return nil, err
	default:
		cfg.Regional = file.Regional
		cfg.Keywords = file.VerdictKeywords
		if len(cfg.Regional) == 0 {
			cfg.Regional = sources.DefaultRegionalSites()
		}
		if cfg.Keywords.IsZero() {
			cfg.Keywords = evidence.DefaultKeywords()
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadSourcesFile parses the YAML sources file at path.
func LoadSourcesFile(path string) (*SourcesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file SourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, apperror.NewConfigError(apperror.ErrConfigLoad, fmt.Sprintf("failed to parse %s", path), err)
	}
	return &file, nil
}

// Validate checks settings that would make the service misbehave. Missing
// credentials are never an error here.
func (c *Config) Validate() error {
	var problems []string

	if c.SourceTimeout <= 0 {
		problems = append(problems, "SOURCE_TIMEOUT must be positive")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		problems = append(problems, fmt.Sprintf("HTTP_PORT %d is out of range", c.HTTPPort))
	}
	if c.VerifyRatePerMinute < 0 {
		problems = append(problems, "VERIFY_RATE_PER_MINUTE cannot be negative")
	}
	if c.LogLevel != "" {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			problems = append(problems, fmt.Sprintf("LOG_LEVEL %q is not one of debug, info, warn, warning, error", c.LogLevel))
		}
	}

	seen := map[string]bool{}
	for _, site := range c.Regional {
		if err := site.Validate(); err != nil {
			problems = append(problems, err.Error())
			continue
		}
		if seen[site.Key] {
			problems = append(problems, fmt.Sprintf("duplicate regional site key %q", site.Key))
		}
		seen[site.Key] = true
	}

	if len(problems) > 0 {
		return apperror.NewConfigError(apperror.ErrConfigValidation, strings.Join(problems, "; "), nil)
	}
	return nil
}

// SourceOptions returns the options shared by all sources.
func (c *Config) SourceOptions() sources.Options {
	return sources.Options{Timeout: c.SourceTimeout, UserAgent: c.UserAgent}
}

// Credentials reports which optional credentials are present, keyed by
// their environment variable.
func (c *Config) Credentials() map[string]bool {
	return map[string]bool{
		"NEWS_API_KEY":              c.NewsAPIKey != "",
		"GOOGLE_FACT_CHECK_API_KEY": c.FactCheckAPIKey != "",
		"GOOGLE_SEARCH_API_KEY":     c.SearchAPIKey != "",
		"GOOGLE_SEARCH_ENGINE_ID":   c.SearchEngineID != "",
		"OPENAI_API_KEY":            c.OpenAIAPIKey != "",
		"DISCORD_BOT_TOKEN":         c.DiscordToken != "",
	}
}

// ValidateBot checks the settings only the Discord bot needs.
func (c *Config) ValidateBot() error {
	if c.DiscordToken == "" {
		return apperror.NewConfigError(apperror.ErrConfigValidation, "DISCORD_BOT_TOKEN is required", nil)
	}
	if c.DiscordAppID == "" {
		return apperror.NewConfigError(apperror.ErrConfigValidation, "DISCORD_APP_ID is required", nil)
	}
	return nil
}
