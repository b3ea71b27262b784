package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Classification service (OpenAI-compatible chat completions)
	APIURL         string        `json:"api_url" yaml:"api_url"`
	APIKey         string        `json:"api_key" yaml:"api_key"`
	Model          string        `json:"model" yaml:"model"`
	Temperature    float64       `json:"temperature" yaml:"temperature"`
	MaxTokens      int           `json:"max_tokens" yaml:"max_tokens"`
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`

	// Retry and pacing
	MaxAttempts int           `json:"max_attempts" yaml:"max_attempts"`
	RetryDelay  time.Duration `json:"retry_delay" yaml:"retry_delay"`
	PageDelay   time.Duration `json:"page_delay" yaml:"page_delay"`

	// Files
	Output   string `json:"output" yaml:"output"`
	LogFile  string `json:"log_file" yaml:"log_file"`
	LogLevel string `json:"log_level" yaml:"log_level"`

	// PDF
	PDFFallbackPdftotext bool `json:"pdftotext_fallback" yaml:"pdftotext_fallback"`
	StrictPDF            bool `json:"strict_pdf" yaml:"strict_pdf"`

	// Serve mode
	Port           string        `json:"port" yaml:"port"`
	WorkerCount    int           `json:"worker_count" yaml:"worker_count"`
	MaxQueueSize   int           `json:"max_queue_size" yaml:"max_queue_size"`
	MaxUploadBytes int64         `json:"max_upload_bytes" yaml:"max_upload_bytes"`
	MaxConnections int           `json:"max_connections" yaml:"max_connections"`
	JobTTL         time.Duration `json:"job_ttl" yaml:"job_ttl"`
}

const (
	DefaultAPIURL = "https://api.together.xyz/v1"
	DefaultModel  = "meta-llama/Llama-3.3-70B-Instruct-Turbo-Free"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("model", DefaultModel)
	v.SetDefault("temperature", 0.5)
	v.SetDefault("max_tokens", 2500)
	v.SetDefault("request_timeout", 120*time.Second)

	v.SetDefault("max_attempts", 3)
	v.SetDefault("retry_delay", 5*time.Second)
	v.SetDefault("page_delay", 5*time.Second)

	v.SetDefault("output", "expected_output.json")
	v.SetDefault("log_file", "processing.log")
	v.SetDefault("log_level", "info")

	v.SetDefault("pdftotext_fallback", true)
	v.SetDefault("strict_pdf", false)

	v.SetDefault("port", "8090")
	v.SetDefault("worker_count", 1)
	v.SetDefault("max_queue_size", 16)
	v.SetDefault("max_upload_bytes", int64(52428800)) // 50MB
	v.SetDefault("max_connections", 64)
	v.SetDefault("job_ttl", 1*time.Hour)
}

// Load reads configuration from defaults, an optional YAML file and
// PDFTOJSON_* environment variables, in increasing precedence.
// An empty cfgFile looks for ./pdftojson.yaml and tolerates its absence.
func Load(cfgFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PDFTOJSON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// Accept the provider's conventional variable as well.
	_ = v.BindEnv("api_key", "PDFTOJSON_API_KEY", "TOGETHER_API_KEY")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("pdftojson")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		APIURL:         v.GetString("api_url"),
		APIKey:         v.GetString("api_key"),
		Model:          v.GetString("model"),
		Temperature:    v.GetFloat64("temperature"),
		MaxTokens:      v.GetInt("max_tokens"),
		RequestTimeout: v.GetDuration("request_timeout"),

		MaxAttempts: v.GetInt("max_attempts"),
		RetryDelay:  v.GetDuration("retry_delay"),
		PageDelay:   v.GetDuration("page_delay"),

		Output:   v.GetString("output"),
		LogFile:  v.GetString("log_file"),
		LogLevel: v.GetString("log_level"),

		PDFFallbackPdftotext: v.GetBool("pdftotext_fallback"),
		StrictPDF:            v.GetBool("strict_pdf"),

		Port:           v.GetString("port"),
		WorkerCount:    v.GetInt("worker_count"),
		MaxQueueSize:   v.GetInt("max_queue_size"),
		MaxUploadBytes: v.GetInt64("max_upload_bytes"),
		MaxConnections: v.GetInt("max_connections"),
		JobTTL:         v.GetDuration("job_ttl"),
	}

	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2500
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 120 * time.Second
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 16
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 64
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("PDFTOJSON_API_KEY is required")
	}
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.RetryDelay < 0 || c.PageDelay < 0 {
		return fmt.Errorf("retry_delay and page_delay must not be negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Redacted returns a copy safe for printing.
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		c.APIKey = "***"
	}
	return c
}

// ParseLevel maps a log_level string onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log_level %q", s)
}
