// Package config loads and validates the report crawler configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Report  ReportConfig  `mapstructure:"report"`
	Source  SourceConfig  `mapstructure:"source"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ReportConfig selects what is scraped and where the output goes.
type ReportConfig struct {
	Prefix       string   `mapstructure:"prefix"`
	Dir          string   `mapstructure:"dir"`
	CountryCodes []string `mapstructure:"country_codes"`
	Actions      []string `mapstructure:"actions"`
}

// SourceConfig locates the remote listing page.
type SourceConfig struct {
	ListingURL string `mapstructure:"listing_url"`
}

// CrawlerConfig governs fetch behavior.
type CrawlerConfig struct {
	UserAgent      string        `mapstructure:"user_agent"`
	AcceptLanguage string        `mapstructure:"accept_language"`
	Concurrency    int           `mapstructure:"concurrency"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PageTimeout    time.Duration `mapstructure:"page_timeout"`
	MaxBodyBytes   int           `mapstructure:"max_body_bytes"`
}

// MetricsConfig controls the optional Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from v, normalizes it, and validates the result.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Normalize upper-cases country codes, lower-cases actions, and splits
// comma-separated entries that arrive through environment variables.
func (c *Config) Normalize() {
	c.Report.CountryCodes = splitList(c.Report.CountryCodes, strings.ToUpper)
	c.Report.Actions = splitList(c.Report.Actions, strings.ToLower)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Report.Prefix) == "" {
		return fmt.Errorf("report.prefix must be set")
	}
	if strings.ContainsAny(c.Report.Prefix, `/\`) {
		return fmt.Errorf("report.prefix must not contain path separators")
	}
	if strings.TrimSpace(c.Report.Dir) == "" {
		return fmt.Errorf("report.dir must be set")
	}
	for _, code := range c.Report.CountryCodes {
		if !isCountryCode(code) {
			return fmt.Errorf("report.country_codes: invalid code %q", code)
		}
	}
	u, err := url.Parse(c.Source.ListingURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("source.listing_url must be an absolute URL, got %q", c.Source.ListingURL)
	}
	if c.Crawler.Concurrency < 0 {
		return fmt.Errorf("crawler.concurrency must be >= 0")
	}
	if c.Crawler.RequestTimeout <= 0 {
		return fmt.Errorf("crawler.request_timeout must be > 0")
	}
	if c.Crawler.PageTimeout < 0 {
		return fmt.Errorf("crawler.page_timeout must be >= 0")
	}
	if c.Crawler.MaxBodyBytes < 0 {
		return fmt.Errorf("crawler.max_body_bytes must be >= 0")
	}
	return nil
}

func splitList(in []string, transform func(string) string) []string {
	out := make([]string, 0, len(in))
	for _, raw := range in {
		for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
			out = append(out, transform(part))
		}
	}
	return out
}

func isCountryCode(code string) bool {
	if len(code) < 2 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
