package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nickpio/top-earning-parser/internal/contracts"
	"github.com/nickpio/top-earning-parser/pkg/config"
	"github.com/nickpio/top-earning-parser/pkg/logger"
)

// Fetcher pulls one payload from a URL. Satisfied by httputil.Client.
type Fetcher interface {
	GetBody(ctx context.Context, url string) ([]byte, error)
}

// Collector fetches the day's top-earning payload from the configured
// endpoint and stores it as a dated run file, so the rest of the
// pipeline sees collected days exactly like externally provided ones.
type Collector struct {
	fetcher  Fetcher
	runsDir  string
	endpoint string
	logger   *logger.Logger
}

func NewCollector(fetcher Fetcher, cfg *config.Config, log *logger.Logger) *Collector {
	return &Collector{
		fetcher:  fetcher,
		runsDir:  cfg.Engine.RunsDir,
		endpoint: cfg.Collector.Endpoint,
		logger:   log.WithField("module", "collector"),
	}
}

// CollectDaily downloads the payload and writes it verbatim to
// runs/<date>/pruned/<date>_top-earning_pruned.json, returning the
// path. The payload must decode as one of the accepted run shapes
// before anything touches disk; an existing file for the date is
// overwritten.
func (c *Collector) CollectDaily(ctx context.Context, date time.Time) (string, error) {
	day := contracts.NormalizeDate(date)

	body, err := c.fetcher.GetBody(ctx, c.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to fetch top-earning payload: %w", err)
	}

	rows, err := decodeRows(body, c.endpoint)
	if err != nil {
		return "", err
	}

	dateStr := contracts.FormatDate(day)
	dir := filepath.Join(c.runsDir, dateStr, "pruned")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create run dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_top-earning_pruned.json", dateStr))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("failed to write run file %s: %w", path, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"date":  dateStr,
		"path":  path,
		"rows":  len(rows),
		"bytes": len(body),
	}).Info("Run file collected")

	return path, nil
}
