// Package pipeline coordinates the batch stages: run file ingest, daily
// revenue estimation, rolling feature recompute, the optional weekly
// rebalance, and the index level rebuild that follows it.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/nickpio/top-earning-parser/internal/contracts"
	"github.com/nickpio/top-earning-parser/internal/edr"
	"github.com/nickpio/top-earning-parser/internal/export"
	"github.com/nickpio/top-earning-parser/internal/features"
	"github.com/nickpio/top-earning-parser/internal/indexlevel"
	"github.com/nickpio/top-earning-parser/internal/ingest"
	"github.com/nickpio/top-earning-parser/internal/rebalance"
	"github.com/nickpio/top-earning-parser/internal/report"
	"github.com/nickpio/top-earning-parser/pkg/logger"
)

// Pipeline wires the stage engines to their repositories and output
// writers. Stages depend on the repository interfaces only, so tests can
// run the whole pipeline against in-memory fakes.
type Pipeline struct {
	estimator  *edr.Estimator
	features   *features.Engine
	rebalancer *rebalance.Engine
	builder    *indexlevel.Builder

	snapshotRepo contracts.SnapshotRepository
	featureRepo  contracts.FeatureRepository
	memberRepo   contracts.MembershipRepository
	levelRepo    contracts.IndexLevelRepository

	exporter *export.Writer
	reporter *report.Reporter

	runsDir string
	logger  *logger.Logger
}

// RunConfig holds configuration for one pipeline run.
type RunConfig struct {
	// Rebalance turns on the weekly stage; RebalanceDate is the as-of
	// date it selects against.
	Rebalance     bool
	RebalanceDate time.Time
}

// RunResult holds the results of a complete pipeline run.
type RunResult struct {
	Success         bool
	Error           error
	CompletedStages []string
	SnapshotRows    int
	FeatureRows     int
	Rebalance       *RebalanceOutcome
	Duration        time.Duration
}

// RebalanceOutcome summarizes one weekly rebalance.
type RebalanceOutcome struct {
	RebalanceDate time.Time
	Members       []*contracts.Membership
	Ranked        []*contracts.RankedGame
	ExportPaths   []string
	ReportPath    string
	Index         *IndexOutcome
}

// IndexOutcome summarizes one index level rebuild.
type IndexOutcome struct {
	Points      []*contracts.IndexPoint
	Stats       *indexlevel.Stats
	ExportPaths []string
}

func New(
	estimator *edr.Estimator,
	featureEngine *features.Engine,
	rebalancer *rebalance.Engine,
	builder *indexlevel.Builder,
	snapshotRepo contracts.SnapshotRepository,
	featureRepo contracts.FeatureRepository,
	memberRepo contracts.MembershipRepository,
	levelRepo contracts.IndexLevelRepository,
	exporter *export.Writer,
	reporter *report.Reporter,
	runsDir string,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		estimator:    estimator,
		features:     featureEngine,
		rebalancer:   rebalancer,
		builder:      builder,
		snapshotRepo: snapshotRepo,
		featureRepo:  featureRepo,
		memberRepo:   memberRepo,
		levelRepo:    levelRepo,
		exporter:     exporter,
		reporter:     reporter,
		runsDir:      runsDir,
		logger:       log.WithField("module", "pipeline"),
	}
}

// Run executes the daily stages, plus the weekly stage when configured.
func (p *Pipeline) Run(ctx context.Context, config RunConfig) (*RunResult, error) {
	startTime := time.Now()

	result := &RunResult{
		CompletedStages: make([]string, 0),
	}

	fields := map[string]interface{}{"rebalance": config.Rebalance}
	if config.Rebalance {
		fields["rebalance_date"] = contracts.FormatDate(config.RebalanceDate)
	}
	p.logger.WithFields(fields).Info("Starting pipeline run")

	snapshots, err := p.UpdateSnapshots(ctx)
	if err != nil {
		result.Error = fmt.Errorf("ingest failed: %w", err)
		return result, result.Error
	}
	result.SnapshotRows = len(snapshots)
	result.CompletedStages = append(result.CompletedStages, "ingest")

	featureRows, err := p.RebuildFeatures(ctx, snapshots)
	if err != nil {
		result.Error = fmt.Errorf("features failed: %w", err)
		return result, result.Error
	}
	result.FeatureRows = len(featureRows)
	result.CompletedStages = append(result.CompletedStages, "features")

	if config.Rebalance {
		outcome, err := p.runRebalance(ctx, config.RebalanceDate, featureRows)
		if err != nil {
			result.Error = fmt.Errorf("rebalance failed: %w", err)
			return result, result.Error
		}
		result.Rebalance = outcome
		result.CompletedStages = append(result.CompletedStages, "rebalance", "index")
	}

	result.Success = true
	result.Duration = time.Since(startTime)

	p.logger.WithFields(map[string]interface{}{
		"duration": result.Duration.Seconds(),
		"stages":   len(result.CompletedStages),
	}).Info("Pipeline run completed")

	return result, nil
}

// UpdateSnapshots reads every pruned run file, estimates daily revenue
// per game, and merges the rows into the snapshot table. Returns the
// full merged history.
func (p *Pipeline) UpdateSnapshots(ctx context.Context) ([]*contracts.Snapshot, error) {
	p.logger.Info("Running ingest: pruned runs to snapshots")

	runFiles, err := ingest.DiscoverRunFiles(p.runsDir)
	if err != nil {
		return nil, err
	}
	if len(runFiles) == 0 {
		return nil, fmt.Errorf("no pruned runs found under %s", p.runsDir)
	}

	// Files are processed in date order, so when the same
	// (date, universe) appears twice the later file wins the upsert.
	var estimated []*contracts.Snapshot
	for _, rf := range runFiles {
		rows, err := ingest.LoadRunFile(rf.Path)
		if err != nil {
			return nil, fmt.Errorf("load run file %s: %w", rf.Path, err)
		}
		estimated = append(estimated, p.estimator.ComputeDaily(rf.Date, rows)...)
	}

	if err := p.snapshotRepo.UpsertBatch(ctx, estimated); err != nil {
		return nil, fmt.Errorf("save snapshots: %w", err)
	}

	merged, err := p.snapshotRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}

	p.logger.WithFields(map[string]interface{}{
		"run_files": len(runFiles),
		"estimated": len(estimated),
		"snapshots": len(merged),
	}).Info("Ingest completed")

	return merged, nil
}

// RebuildFeatures recomputes the rolling feature table from the full
// snapshot history and replaces the stored table.
func (p *Pipeline) RebuildFeatures(ctx context.Context, snapshots []*contracts.Snapshot) ([]*contracts.FeatureRow, error) {
	p.logger.Info("Running features: rolling recompute")

	rows := p.features.Compute(snapshots)
	if err := p.featureRepo.ReplaceAll(ctx, rows); err != nil {
		return nil, fmt.Errorf("save features: %w", err)
	}

	p.logger.WithFields(map[string]interface{}{
		"features": len(rows),
	}).Info("Features completed")

	return rows, nil
}

// Rebalance runs the weekly stage standalone against the stored feature
// table.
func (p *Pipeline) Rebalance(ctx context.Context, rebalanceDate time.Time) (*RebalanceOutcome, error) {
	featureRows, err := p.featureRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load features: %w", err)
	}
	if len(featureRows) == 0 {
		return nil, fmt.Errorf("feature table is empty, run the daily update first")
	}
	return p.runRebalance(ctx, rebalanceDate, featureRows)
}

// RebuildIndex recomputes the compounded level series from the full
// snapshot and membership history, standalone.
func (p *Pipeline) RebuildIndex(ctx context.Context) (*IndexOutcome, error) {
	snapshots, err := p.snapshotRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	return p.rebuildIndex(ctx, snapshots)
}

func (p *Pipeline) runRebalance(ctx context.Context, day time.Time, featureRows []*contracts.FeatureRow) (*RebalanceOutcome, error) {
	p.logger.WithField("rebalance_date", contracts.FormatDate(day)).Info("Running rebalance: weekly selection")

	prior, err := p.memberRepo.GetHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("load membership history: %w", err)
	}

	members, ranked := p.rebalancer.Run(day, featureRows, prior)
	if err := p.memberRepo.AppendVintage(ctx, members); err != nil {
		return nil, fmt.Errorf("save membership vintage: %w", err)
	}

	snapshots, err := p.snapshotRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}

	rows := export.BuildConstituents(members, ranked, snapshots)
	exportPaths, err := p.exporter.WriteConstituents(rows)
	if err != nil {
		return nil, fmt.Errorf("write constituent exports: %w", err)
	}

	// The entrant/exit diff needs the history as it stood before this
	// vintage was appended.
	reportPath, err := p.reporter.WriteWeekly(rows, prior)
	if err != nil {
		return nil, fmt.Errorf("write weekly report: %w", err)
	}

	index, err := p.rebuildIndex(ctx, snapshots)
	if err != nil {
		return nil, err
	}

	outcome := &RebalanceOutcome{
		RebalanceDate: contracts.NormalizeDate(day),
		Members:       members,
		Ranked:        ranked,
		ExportPaths:   exportPaths,
		ReportPath:    reportPath,
		Index:         index,
	}

	p.logger.WithFields(map[string]interface{}{
		"rebalance_date": contracts.FormatDate(day),
		"constituents":   len(members),
		"index_points":   len(index.Points),
	}).Info("Rebalance completed")

	return outcome, nil
}

func (p *Pipeline) rebuildIndex(ctx context.Context, snapshots []*contracts.Snapshot) (*IndexOutcome, error) {
	p.logger.Info("Running index: level rebuild")

	history, err := p.memberRepo.GetHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("load membership history: %w", err)
	}

	points, err := p.builder.Build(snapshots, history)
	if err != nil {
		return nil, err
	}
	if err := p.levelRepo.ReplaceAll(ctx, points); err != nil {
		return nil, fmt.Errorf("save index levels: %w", err)
	}

	paths, err := p.exporter.WriteIndexLevels(points)
	if err != nil {
		return nil, fmt.Errorf("write index level exports: %w", err)
	}

	stats := indexlevel.Summarize(points)
	fields := map[string]interface{}{"points": len(points)}
	if stats != nil {
		fields["final_level"] = stats.FinalLevel
		fields["total_return"] = stats.TotalReturn
	}
	p.logger.WithFields(fields).Info("Index completed")

	return &IndexOutcome{
		Points:      points,
		Stats:       stats,
		ExportPaths: paths,
	}, nil
}
