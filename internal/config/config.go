// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Input    InputConfig    `mapstructure:"input"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Renderer RendererConfig `mapstructure:"renderer"`
	Proxy    ProxyConfig    `mapstructure:"proxy"`
	DB       DBConfig       `mapstructure:"db"`
	Output   OutputConfig   `mapstructure:"output"`
	Publish  PublishConfig  `mapstructure:"publish"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Diag     DiagConfig     `mapstructure:"diag"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// InputConfig locates the product rows.
type InputConfig struct {
	Path string `mapstructure:"path"`
}

// FetchConfig governs the Phase 1 cascade.
type FetchConfig struct {
	MinBodyBytes         int     `mapstructure:"min_body_bytes"`
	MaxAttempts          int     `mapstructure:"max_attempts"`
	InterStrategyMs      int     `mapstructure:"inter_strategy_ms"`
	SessionRefresh       int     `mapstructure:"session_refresh"`
	CacheCapacity        int     `mapstructure:"cache_capacity"`
	GlobalRPS            float64 `mapstructure:"global_rps"`
	Workers              int     `mapstructure:"workers"`
	OcadoSeleniumHeadful bool    `mapstructure:"ocado_selenium_headful"`
}

// RendererConfig configures the Phase 2 rendering API.
type RendererConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	APIKey     string `mapstructure:"api_key"`
	DailyQuota int    `mapstructure:"daily_quota"`
	WaitMillis int    `mapstructure:"wait_ms"`
}

// ProxyConfig carries the Bright Data credential parts.
type ProxyConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
}

// DBConfig carries the Postgres credential parts.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Table    string `mapstructure:"table"`
}

// OutputConfig selects preview vs persistent output.
type OutputConfig struct {
	PreviewOnly bool   `mapstructure:"preview_only"`
	PreviewPath string `mapstructure:"preview_path"`
}

// PublishConfig enables the optional outcome publisher.
type PublishConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ArchiveConfig enables the optional raw-page archive.
type ArchiveConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// DiagConfig controls the diagnostics HTTP server.
type DiagConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk and environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindLegacyEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input.path", "input.csv")
	v.SetDefault("fetch.min_body_bytes", 500)
	v.SetDefault("fetch.max_attempts", 2)
	v.SetDefault("fetch.inter_strategy_ms", 1500)
	v.SetDefault("fetch.session_refresh", 10)
	v.SetDefault("fetch.cache_capacity", 4096)
	v.SetDefault("fetch.global_rps", 2.0)
	v.SetDefault("fetch.workers", 1)
	v.SetDefault("renderer.endpoint", "https://api.zenrows.com/v1/")
	v.SetDefault("renderer.daily_quota", 200)
	v.SetDefault("renderer.wait_ms", 3000)
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.table", "product_aisles")
	v.SetDefault("output.preview_path", "preview.csv")
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("diag.port", 9090)
	v.SetDefault("logging.development", false)
}

// bindLegacyEnv maps the inherited unprefixed environment variables the
// upstream jobs still export.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("db.host", "PGHOST")
	_ = v.BindEnv("db.port", "PGPORT")
	_ = v.BindEnv("db.database", "PGDATABASE")
	_ = v.BindEnv("db.user", "PGUSER")
	_ = v.BindEnv("db.password", "PGPASSWORD")
	_ = v.BindEnv("proxy.host", "BRIGHT_DATA_HOST")
	_ = v.BindEnv("proxy.port", "BRIGHT_DATA_PORT")
	_ = v.BindEnv("proxy.user", "BRIGHT_DATA_USER")
	_ = v.BindEnv("proxy.pass", "BRIGHT_DATA_PASS")
	_ = v.BindEnv("output.preview_only", "PREVIEW_ONLY")
	_ = v.BindEnv("fetch.ocado_selenium_headful", "OCADO_SELENIUM_HEADFUL")
	_ = v.BindEnv("renderer.api_key", "RENDER_API_KEY")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Fetch.MinBodyBytes <= 0 {
		return fmt.Errorf("fetch.min_body_bytes must be > 0")
	}
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("fetch.max_attempts must be > 0")
	}
	if c.Fetch.Workers <= 0 {
		return fmt.Errorf("fetch.workers must be > 0")
	}
	if !c.Output.PreviewOnly && c.DB.Host == "" {
		return fmt.Errorf("db.host (PGHOST) is required unless output.preview_only is set")
	}
	if c.Publish.Enabled && (c.Publish.ProjectID == "" || c.Publish.Topic == "") {
		return fmt.Errorf("publish.project_id and publish.topic are required when publishing is enabled")
	}
	if c.Archive.Enabled && c.Archive.GCSBucket == "" && c.Archive.LocalDir == "" {
		return fmt.Errorf("archive requires a gcs_bucket or local_dir")
	}
	return nil
}

// InterStrategyDelay converts the millisecond knob.
func (c Config) InterStrategyDelay() time.Duration {
	return time.Duration(c.Fetch.InterStrategyMs) * time.Millisecond
}
