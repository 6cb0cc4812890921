// Package config is responsible for bootstrapping the application's configuration.
// It uses the Viper library to read settings from a config file, environment
// variables, and command-line flags, providing a unified configuration system.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults shared with the CLI flag definitions.
const (
	DefaultReportPrefix   = "asn_report"
	DefaultReportDir      = "reports"
	DefaultListingURL     = "https://bgp.he.net/report/world"
	DefaultUserAgent      = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
	DefaultAcceptLanguage = "en-US,en;q=0.9"
	DefaultConcurrency    = 16
	DefaultRequestTimeout = 20 * time.Second
	DefaultPageTimeout    = 60 * time.Second
	DefaultMaxBodyBytes   = 64 * 1024 * 1024
	EnvPrefix             = "ASNREPORT"
)

// DefaultActions is used when no action is requested.
var DefaultActions = []string{"write"}

// New builds a Viper instance with defaults, search paths and environment
// bindings applied. When cfgFile is set it is read explicitly and must exist;
// otherwise a missing config file is not an error.
func New(cfgFile string) (*viper.Viper, error) {
	v := viper.New()

	// --- Set Defaults ---
	SetDefaults(v)

	// --- Environment Variables ---
	v.SetEnvPrefix(EnvPrefix) // e.g., ASNREPORT_CRAWLER_CONCURRENCY=4
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// --- Read Config File ---
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return v, nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")                // Current working directory
	v.AddConfigPath("/etc/asnreport/")  // System-wide configuration
	v.AddConfigPath("$HOME/.asnreport") // User-specific configuration
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("report.prefix", DefaultReportPrefix)
	v.SetDefault("report.dir", DefaultReportDir)
	v.SetDefault("report.country_codes", []string{})
	v.SetDefault("report.actions", DefaultActions)

	v.SetDefault("source.listing_url", DefaultListingURL)

	v.SetDefault("crawler.user_agent", DefaultUserAgent)
	v.SetDefault("crawler.accept_language", DefaultAcceptLanguage)
	v.SetDefault("crawler.concurrency", DefaultConcurrency)
	v.SetDefault("crawler.request_timeout", DefaultRequestTimeout)
	v.SetDefault("crawler.page_timeout", DefaultPageTimeout)
	v.SetDefault("crawler.max_body_bytes", DefaultMaxBodyBytes)

	v.SetDefault("metrics.textfile", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}
