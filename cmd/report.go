package cmd

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/asn-report-crawler/internal/asn"
	"github.com/JakeFAU/asn-report-crawler/internal/metrics"
)

// Action is one step the CLI can perform.
type Action string

// Supported actions, listed in execution order.
const (
	ActionClear Action = "clear"
	ActionWrite Action = "write"
	ActionPrint Action = "print"
)

var actionOrder = []Action{ActionClear, ActionWrite, ActionPrint}

// ParseActions splits raw action names into the recognized actions, in
// execution order without duplicates, and the names that were not recognized.
func ParseActions(raw []string) (actions []Action, ignored []string) {
	requested := map[Action]bool{}
	for _, name := range raw {
		a := Action(name)
		if slices.Contains(actionOrder, a) {
			requested[a] = true
			continue
		}
		ignored = append(ignored, name)
	}
	for _, a := range actionOrder {
		if requested[a] {
			actions = append(actions, a)
		}
	}
	return actions, ignored
}

func runReportCommand(cmd *cobra.Command, _ []string) (err error) {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	defer appInstance.Close()
	cfg := appInstance.GetConfig()
	logger := appInstance.GetLogger()

	defer func() {
		if path := cfg.Metrics.Textfile; path != "" {
			if werr := metrics.WriteTextfile(path); werr != nil {
				logger.Warn("failed to write metrics textfile", zap.Error(werr))
			}
		}
		if err == nil {
			logger.Info("asnreport finished")
		}
	}()

	actions, ignored := ParseActions(cfg.Report.Actions)
	for _, name := range ignored {
		logger.Warn("ignoring unknown action", zap.String("action", name))
	}
	if len(actions) == 0 {
		logger.Warn("no recognized actions requested; nothing to do")
		return nil
	}

	r := &runner{
		app:    appInstance,
		logger: logger,
		codes:  cfg.Report.CountryCodes,
	}
	for _, action := range actions {
		if runErr := r.run(cmd, action); runErr != nil {
			return runErr
		}
	}
	return nil
}

// runner executes actions for a single invocation and aggregates at most once.
type runner struct {
	app    App
	logger *zap.Logger
	codes  []string
	report asn.Report
}

func (r *runner) run(cmd *cobra.Command, action Action) error {
	writer := r.app.GetWriter()
	switch action {
	case ActionClear:
		removed, err := writer.Clear()
		if err != nil {
			return fmt.Errorf("clear reports: %w", err)
		}
		r.logger.Info("cleared reports", zap.Int("removed", removed))
	case ActionWrite:
		report, err := r.aggregate(cmd.Context())
		if err != nil {
			return err
		}
		path, err := writer.Write(report)
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		r.logger.Info("wrote report", zap.String("path", path), zap.Int("records", len(report)))
	case ActionPrint:
		report, err := r.aggregate(cmd.Context())
		if err != nil {
			return err
		}
		if err := writer.Print(cmd.OutOrStdout(), report); err != nil {
			return fmt.Errorf("print report: %w", err)
		}
	}
	return nil
}

func (r *runner) aggregate(ctx context.Context) (asn.Report, error) {
	if r.report != nil {
		return r.report, nil
	}

	result, err := r.app.GetAggregator().Aggregate(ctx, r.codes)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("aggregation canceled after %d of %d pages: %w",
				result.Pages-len(result.Failed), result.Pages, err)
		}
		return nil, fmt.Errorf("aggregate reports: %w", err)
	}
	for _, failure := range result.Failed {
		r.logger.Warn("country page skipped",
			zap.String("country", failure.Reference.CountryCode),
			zap.String("url", failure.Reference.URL),
			zap.Error(failure.Err),
		)
	}
	if result.Pages > 0 && len(result.Failed) == result.Pages {
		return nil, fmt.Errorf("all %d country pages failed: %w", result.Pages, result.Failed[0].Err)
	}
	if result.Pages == 0 {
		r.logger.Warn("no country pages matched", zap.Strings("country_codes", r.codes))
	}

	r.report = result.Report
	if r.report == nil {
		r.report = asn.Report{}
	}
	return r.report, nil
}
