// Package report persists aggregated AS reports as timestamped JSON files.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/asn-report-crawler/internal/asn"
)

// TimestampLayout formats the second-resolution stamp embedded in file names.
const TimestampLayout = "2006_01_02_15_04_05"

const fileExt = ".json"

// Config captures where and how report files are written.
type Config struct {
	Dir    string `mapstructure:"dir"`
	Prefix string `mapstructure:"prefix"`
}

// Writer writes, prints, and clears report files.
type Writer struct {
	dir    string
	prefix string
	clock  asn.Clock
	hasher asn.Hasher
	logger *zap.Logger
}

// New creates a Writer. The directory is created lazily on first write.
// hasher is optional; when set, every written file is logged with its digest.
func New(cfg Config, clock asn.Clock, hasher asn.Hasher, logger *zap.Logger) (*Writer, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("report directory is required")
	}
	if strings.TrimSpace(cfg.Prefix) == "" {
		return nil, fmt.Errorf("report prefix is required")
	}
	if strings.ContainsRune(cfg.Prefix, filepath.Separator) {
		return nil, fmt.Errorf("report prefix %q must not contain a path separator", cfg.Prefix)
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		dir:    cfg.Dir,
		prefix: cfg.Prefix,
		clock:  clock,
		hasher: hasher,
		logger: logger,
	}, nil
}

// FileName returns the report file name for the given instant.
func (w *Writer) FileName(at time.Time) string {
	return w.prefix + "_" + at.UTC().Format(TimestampLayout) + fileExt
}

// Write persists report to a new timestamped file and returns its path.
// The file is written to a temporary name and renamed into place, so readers
// never observe a partial report.
func (w *Writer) Write(report asn.Report) (string, error) {
	payload, err := encode(report)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return "", fmt.Errorf("%w: create report dir %s: %w", asn.ErrFilesystem, w.dir, err)
	}

	target := filepath.Join(w.dir, w.FileName(w.clock.Now()))
	if err := writeAtomic(w.dir, target, payload); err != nil {
		return "", err
	}
	fields := []zap.Field{
		zap.String("path", target),
		zap.Int("records", len(report)),
		zap.Int("bytes", len(payload)),
	}
	if w.hasher != nil {
		digest, err := w.hasher.Hash(payload)
		if err != nil {
			w.logger.Warn("hash report", zap.String("path", target), zap.Error(err))
		} else {
			fields = append(fields, zap.String("sha256", digest))
		}
	}
	w.logger.Info("report written", fields...)
	return target, nil
}

// Print writes report as indented JSON to out.
func (w *Writer) Print(out io.Writer, report asn.Report) error {
	payload, err := encode(report)
	if err != nil {
		return err
	}
	if _, err := out.Write(payload); err != nil {
		return fmt.Errorf("print report: %w", err)
	}
	return nil
}

// Clear removes every regular file directly inside the report directory and
// returns how many were removed. Subdirectories are left alone. A missing
// directory is treated as already clear.
func (w *Writer) Clear() (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: read report dir %s: %w", asn.ErrFilesystem, w.dir, err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, fmt.Errorf("%w: remove %s: %w", asn.ErrFilesystem, path, err)
		}
		removed++
	}
	w.logger.Info("reports cleared", zap.String("dir", w.dir), zap.Int("removed", removed))
	return removed, nil
}

// Load reads a report file written by Write.
func Load(path string) (asn.Report, error) {
	// #nosec G304 -- path is supplied by the operator.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read report %s: %w", asn.ErrFilesystem, path, err)
	}
	report := asn.Report{}
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}
	for id, rec := range report {
		rec.Identifier = id
		report[id] = rec
	}
	return report, nil
}

func encode(report asn.Report) ([]byte, error) {
	if report == nil {
		report = asn.Report{}
	}
	// encoding/json emits map keys in sorted order.
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return append(payload, '\n'), nil
}

func writeAtomic(dir, target string, payload []byte) (err error) {
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file in %s: %w", asn.ErrFilesystem, dir, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(payload); err != nil {
		return fmt.Errorf("%w: write %s: %w", asn.ErrFilesystem, tmpPath, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %w", asn.ErrFilesystem, tmpPath, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", asn.ErrFilesystem, tmpPath, err)
	}
	if err = os.Chmod(tmpPath, 0o640); err != nil {
		return fmt.Errorf("%w: chmod %s: %w", asn.ErrFilesystem, tmpPath, err)
	}
	if err = os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("%w: rename %s: %w", asn.ErrFilesystem, target, err)
	}
	return nil
}
