// Package cmd defines and implements the CLI for the asnreport executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/asn-report-crawler/internal/app"
	"github.com/JakeFAU/asn-report-crawler/internal/config"
	pkgconfig "github.com/JakeFAU/asn-report-crawler/pkg/config"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands will use.
// This allows us to inject a mock app during tests.
type App interface {
	Close()
	GetConfig() config.Config
	GetLogger() *zap.Logger
	GetAggregator() app.Aggregator
	GetWriter() app.ReportWriter
}

// newApp is the application factory. It's a variable so we can
// replace it with a mock factory in our tests.
var newApp = func(cfg config.Config) (App, error) {
	return app.New(cfg)
}

// flagKeys maps CLI flags onto their Viper configuration keys.
var flagKeys = map[string]string{
	"report-prefix": "report.prefix",
	"report-dir":    "report.dir",
	"country-codes": "report.country_codes",
	"actions":       "report.actions",
	"listing-url":   "source.listing_url",
	"user-agent":    "crawler.user_agent",
	"concurrency":   "crawler.concurrency",
	"timeout":       "crawler.request_timeout",
	"page-timeout":  "crawler.page_timeout",
	"metrics-file":  "metrics.textfile",
	"dev":           "logging.development",
	"log-level":     "logging.level",
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "asnreport",
		Short: "Maps every active ASN on bgp.he.net to its owner and route counts.",
		Long: `asnreport crawls the bgp.he.net world report, scrapes each linked country
report concurrently, and merges the AS tables into one JSON document keyed by
AS number. Reports can be written to timestamped files, printed to stdout, or
cleared from the report directory.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Config is resolved here so every flag, env var and file has been seen.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v, err := pkgconfig.New(cfgFile)
			if err != nil {
				return err
			}
			if err := bindFlags(v, cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			appInstance, err := newApp(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}

			// Store the app instance in the context for the run hook.
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		// runReportCommand closes the app itself so failed runs shut down too.
		RunE: runReportCommand,
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (default searches ./config.yaml, /etc/asnreport, $HOME/.asnreport)")
	flags.String("report-prefix", pkgconfig.DefaultReportPrefix, "file name prefix for written reports")
	flags.String("report-dir", pkgconfig.DefaultReportDir, "directory reports are written to and cleared from")
	flags.StringSlice("country-codes", nil, "country codes to scrape, e.g. US,DE (default all)")
	flags.StringSlice("actions", pkgconfig.DefaultActions, "actions to run: clear, write, print")
	flags.String("listing-url", pkgconfig.DefaultListingURL, "world report listing the country pages")
	flags.String("user-agent", pkgconfig.DefaultUserAgent, "User-Agent header sent with every request")
	flags.Int("concurrency", pkgconfig.DefaultConcurrency, "maximum country pages fetched at once (0 = all)")
	flags.Duration("timeout", pkgconfig.DefaultRequestTimeout, "HTTP request timeout")
	flags.Duration("page-timeout", pkgconfig.DefaultPageTimeout, "fetch and parse budget per country page (0 = none)")
	flags.String("metrics-file", "", "write Prometheus metrics to this textfile after the run")
	flags.Bool("dev", false, "human-readable development logging")
	flags.String("log-level", "info", "log level: debug, info, warn, error")

	return cmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("flag %q is not defined", name)
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %q: %w", name, err)
		}
	}
	return nil
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "asnreport: %v\n", err)
		stop()
		os.Exit(1)
	}
}
