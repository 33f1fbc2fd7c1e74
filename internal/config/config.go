// Package config loads the engine's settings from defaults, an optional
// YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joelkehle/priorart-engine/internal/assessment"
	"github.com/joelkehle/priorart-engine/internal/logging"
	"github.com/joelkehle/priorart-engine/internal/priorart"
	"github.com/joelkehle/priorart-engine/internal/report"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "PRIORART"
	appName   = "priorart"
)

type Config struct {
	Search  SearchConfig  `mapstructure:"search"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Store   StoreConfig   `mapstructure:"store"`
	Server  ServerConfig  `mapstructure:"server"`
	Report  ReportConfig  `mapstructure:"report"`
	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

type SearchConfig struct {
	APIKey             string        `mapstructure:"api_key"`
	SearchEngineID     string        `mapstructure:"search_engine_id"`
	BaseURL            string        `mapstructure:"base_url"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	PageDelay          time.Duration `mapstructure:"page_delay"`
	PageSize           int           `mapstructure:"page_size"`
	MaxQueries         int           `mapstructure:"max_queries"`
	MaxResultsPerQuery int           `mapstructure:"max_results_per_query"`
	MaxOffset          int           `mapstructure:"max_offset"`
	DefaultMaxResults  int           `mapstructure:"default_max_results"`
}

type LLMConfig struct {
	APIKey       string `mapstructure:"api_key"`
	Model        string `mapstructure:"model"`
	MaxTextChars int    `mapstructure:"max_text_chars"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type ReportConfig struct {
	ChromePath string        `mapstructure:"chrome_path"`
	PDFTimeout time.Duration `mapstructure:"pdf_timeout"`
	Paper      string        `mapstructure:"paper"`
	Margin     float64       `mapstructure:"margin"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type TracingConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Insecure     bool   `mapstructure:"insecure"`
	ServiceName  string `mapstructure:"service_name"`
}

// legacyEnv lists the unprefixed variable names still honoured for
// deployments that predate the PRIORART_ prefix.
var legacyEnv = map[string]string{
	"search.api_key":          "GOOGLE_PATENTS_API_KEY",
	"search.search_engine_id": "GOOGLE_CUSTOM_SEARCH_ENGINE_ID",
	"llm.api_key":             "ANTHROPIC_API_KEY",
	"store.path":              "DATABASE_PATH",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.search_engine_id", "")
	v.SetDefault("search.base_url", priorart.GooglePatentsSearchURL)
	v.SetDefault("search.request_timeout", priorart.DefaultRequestTimeout)
	v.SetDefault("search.page_delay", priorart.DefaultPageDelay)
	v.SetDefault("search.page_size", priorart.DefaultPageSize)
	v.SetDefault("search.max_queries", priorart.DefaultMaxQueries)
	v.SetDefault("search.max_results_per_query", priorart.DefaultMaxResultsPerQuery)
	v.SetDefault("search.max_offset", priorart.DefaultMaxOffset)
	v.SetDefault("search.default_max_results", priorart.DefaultMaxResults)

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", assessment.DefaultModel)
	v.SetDefault("llm.max_text_chars", assessment.DefaultMaxTextChars)

	v.SetDefault("store.path", "priorart.db")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("report.chrome_path", "")
	v.SetDefault("report.pdf_timeout", 60*time.Second)
	v.SetDefault("report.paper", report.PaperA4)
	v.SetDefault("report.margin", 0.5)

	v.SetDefault("log.level", "info")

	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.insecure", false)
	v.SetDefault("tracing.service_name", "priorart-engine")
}

// New returns a viper instance with defaults and environment bindings
// applied but no file read yet.
func New() (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return v, nil
}

// Load reads configuration. An explicit file must exist; without one the
// usual search paths are tried and a missing file is not an error.
func Load(configFile string) (Config, error) {
	if err := loadEnvFiles(); err != nil {
		return Config{}, err
	}
	v, err := New()
	if err != nil {
		return Config{}, err
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(appName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", appName))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return FromViper(v)
}

// loadEnvFiles loads ENV_FILE when set, otherwise .env.local then .env from
// the working directory. Variables already in the environment win.
func loadEnvFiles() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.trim()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) trim() {
	c.Search.APIKey = strings.TrimSpace(c.Search.APIKey)
	c.Search.SearchEngineID = strings.TrimSpace(c.Search.SearchEngineID)
	c.Search.BaseURL = strings.TrimSpace(c.Search.BaseURL)
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	c.Store.Path = strings.TrimSpace(c.Store.Path)
}

// Validate rejects settings the engine cannot run with. Missing provider
// credentials are allowed: searches then return empty results.
func (c Config) Validate() error {
	var errs []error
	s := c.Search
	if s.PageSize <= 0 || s.PageSize > priorart.DefaultPageSize {
		errs = append(errs, fmt.Errorf("search.page_size must be between 1 and %d", priorart.DefaultPageSize))
	}
	if s.RequestTimeout <= 0 {
		errs = append(errs, errors.New("search.request_timeout must be positive"))
	}
	// The engine reads a zero delay as "use the default".
	if s.PageDelay == 0 {
		errs = append(errs, errors.New("search.page_delay must be non-zero; use a negative value to disable pacing"))
	}
	if s.MaxQueries <= 0 {
		errs = append(errs, errors.New("search.max_queries must be positive"))
	}
	if s.MaxResultsPerQuery <= 0 {
		errs = append(errs, errors.New("search.max_results_per_query must be positive"))
	}
	if s.MaxOffset <= 0 {
		errs = append(errs, errors.New("search.max_offset must be positive"))
	}
	if s.DefaultMaxResults <= 0 || s.DefaultMaxResults > s.MaxOffset {
		errs = append(errs, errors.New("search.default_max_results must be between 1 and search.max_offset"))
	}
	if c.LLM.MaxTextChars <= 0 {
		errs = append(errs, errors.New("llm.max_text_chars must be positive"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	if !report.ValidPaper(c.Report.Paper) {
		errs = append(errs, fmt.Errorf("report.paper %q must be %s or %s", c.Report.Paper, report.PaperA4, report.PaperLetter))
	}
	if c.Report.Margin < 0 || c.Report.Margin > 2 {
		errs = append(errs, errors.New("report.margin must be between 0 and 2 inches"))
	}
	if !logging.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level %q is not recognised", c.Log.Level))
	}
	return errors.Join(errs...)
}

// PDFOptions converts the report section into renderer options.
func (r ReportConfig) PDFOptions() report.PDFOptions {
	return report.PDFOptions{
		ChromePath: r.ChromePath,
		Timeout:    r.PDFTimeout,
		Paper:      r.Paper,
		Margin:     r.Margin,
	}
}

// EngineConfig converts the search section into the engine's value object.
func (s SearchConfig) EngineConfig() priorart.Config {
	return priorart.Config{
		APIKey:             s.APIKey,
		SearchEngineID:     s.SearchEngineID,
		BaseURL:            s.BaseURL,
		RequestTimeout:     s.RequestTimeout,
		PageDelay:          s.PageDelay,
		PageSize:           s.PageSize,
		MaxQueries:         s.MaxQueries,
		MaxResultsPerQuery: s.MaxResultsPerQuery,
		MaxOffset:          s.MaxOffset,
		DefaultMaxResults:  s.DefaultMaxResults,
	}
}
