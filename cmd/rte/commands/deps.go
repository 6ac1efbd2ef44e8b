package commands

import (
	"context"
	"fmt"

	"github.com/nickpio/top-earning-parser/internal/edr"
	"github.com/nickpio/top-earning-parser/internal/export"
	"github.com/nickpio/top-earning-parser/internal/features"
	"github.com/nickpio/top-earning-parser/internal/indexlevel"
	"github.com/nickpio/top-earning-parser/internal/indexparams"
	"github.com/nickpio/top-earning-parser/internal/ingest"
	"github.com/nickpio/top-earning-parser/internal/pipeline"
	"github.com/nickpio/top-earning-parser/internal/rebalance"
	"github.com/nickpio/top-earning-parser/internal/report"
	"github.com/nickpio/top-earning-parser/internal/store"
	"github.com/nickpio/top-earning-parser/pkg/config"
	"github.com/nickpio/top-earning-parser/pkg/database"
	"github.com/nickpio/top-earning-parser/pkg/httputil"
	"github.com/nickpio/top-earning-parser/pkg/logger"
)

// components holds the wired dependencies shared by the commands.
type components struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	params   indexparams.Params
	pipeline *pipeline.Pipeline

	snapshots  *store.SnapshotRepository
	featTable  *store.FeatureRepository
	membership *store.MembershipRepository
	levels     *store.IndexLevelRepository
}

// initComponents loads config, connects to the store, resolves the
// model parameters and wires the pipeline.
func initComponents(ctx context.Context) (*components, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Connect to database and ensure the schema
	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := store.EnsureSchema(ctx, db.Pool); err != nil {
		db.Close()
		return nil, err
	}

	// 4. Resolve model parameters (--params beats INDEX_PARAMS_FILE)
	path := cfg.Engine.ParamsFile
	if paramsFile != "" {
		path = paramsFile
	}
	params, err := indexparams.Resolve(path)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load parameters: %w", err)
	}

	// 5. Create repositories
	snapshots := store.NewSnapshotRepository(db.Pool)
	featTable := store.NewFeatureRepository(db.Pool)
	membership := store.NewMembershipRepository(db.Pool)
	levels := store.NewIndexLevelRepository(db.Pool)

	// 6. Wire the pipeline
	p := pipeline.New(
		edr.NewEstimator(params.EDR, log),
		features.NewEngine(params.Rolling, log),
		rebalance.NewEngine(params.Rebalance, log),
		indexlevel.NewBuilder(params.Index, log),
		snapshots,
		featTable,
		membership,
		levels,
		export.NewWriter(cfg.Engine.ExportsDir, params.Storage.ExportPrefix, log),
		report.NewReporter(cfg.Engine.ExportsDir, params.Storage.ExportPrefix, log),
		cfg.Engine.RunsDir,
		log,
	)

	return &components{
		cfg:        cfg,
		log:        log,
		db:         db,
		params:     params,
		pipeline:   p,
		snapshots:  snapshots,
		featTable:  featTable,
		membership: membership,
		levels:     levels,
	}, nil
}

func (c *components) Close() {
	c.db.Close()
}

// newCollector wires the optional upstream collector. Errors when the
// collector is disabled in config.
func newCollector(cfg *config.Config, log *logger.Logger) (*ingest.Collector, error) {
	if !cfg.Collector.Enabled {
		return nil, fmt.Errorf("collector is disabled, set COLLECTOR_ENABLED=true and COLLECTOR_ENDPOINT")
	}

	client := httputil.New(log, cfg.Collector.Timeout).
		WithRateLimit(cfg.Collector.RequestsPerSec, cfg.Collector.Burst)
	return ingest.NewCollector(client, cfg, log), nil
}
