// Package pipeline implements the tidy-data transformation stages for the
// harbor-seal telemetry ETL: location reconciliation, percent-dry
// reshaping, behavior windowing, and the deployment-metadata join. Each
// stage is a pure transformation returning a new table.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"seal-telemetry/internal/models"
	"seal-telemetry/internal/reader"
	"seal-telemetry/internal/repository"
	"seal-telemetry/pkg/logging"
	"seal-telemetry/pkg/metrics"
)

// Pipeline orchestrates one batch run over a data directory.
type Pipeline struct {
	repo       repository.DeploymentRepository
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
	classifier reader.SourceClassifier
	asOf       time.Time
}

// Result contains the four tidy tables and the run's bookkeeping.
type Result struct {
	Locations models.LocationTable
	Percent   models.PercentTable
	Dive      models.BehaviorTable
	Surface   models.BehaviorTable

	LocationReport *JoinReport
	PercentReport  *JoinReport
	DiveReport     *JoinReport
	SurfaceReport  *JoinReport

	TotalFiles        int
	RawRecords        int
	DroppedArgosFiles []string
	TimestampBumps    int
	OutOfRangeWindows int
	FileErrors        []string
	Duration          time.Duration
}

// New creates a pipeline. The as-of timestamp replaces missing deployment
// end dates during the behavior join; passing a fixed value makes a run
// reproducible.
func New(repo repository.DeploymentRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector, classifier reader.SourceClassifier, asOf time.Time) *Pipeline {
	if classifier == nil {
		classifier = reader.DefaultSourceClassifier
	}
	return &Pipeline{
		repo:       repo,
		logger:     logger,
		metrics:    metricsCollector,
		classifier: classifier,
		asOf:       asOf,
	}
}

// Run executes the full batch: discover raw files, parse them, apply the
// three transformation stages, and join deployment metadata onto each
// derived table.
//
// A schema violation is fatal for its file: the file's records are
// excluded, the error is reported in the result, and the run continues.
// A data-integrity error (negative event duration) aborts the run.
func (p *Pipeline) Run(ctx context.Context, dataDir string) (*Result, error) {
	startTime := time.Now()

	p.logger.Info(ctx, "[PIPELINE_START] Starting telemetry processing", logging.Fields{
		"data_dir": dataDir,
		"as_of":    p.asOf.UTC().Format(time.RFC3339),
	})

	files, err := reader.Discover(dataDir)
	if err != nil {
		return nil, fmt.Errorf("file discovery failed: %w", err)
	}

	p.metrics.FilesDiscovered.WithLabelValues("locations").Add(float64(len(files.Locations)))
	p.metrics.FilesDiscovered.WithLabelValues("histos").Add(float64(len(files.Histos)))
	p.metrics.FilesDiscovered.WithLabelValues("behavior").Add(float64(len(files.Behavior)))

	result := &Result{
		TotalFiles: len(files.Locations) + len(files.Histos) + len(files.Behavior),
	}

	p.logger.Info(ctx, "[PIPELINE_FILES] Raw files discovered", logging.Fields{
		"location_files": len(files.Locations),
		"histo_files":    len(files.Histos),
		"behavior_files": len(files.Behavior),
	})

	locationFiles := p.readLocationFiles(ctx, files.Locations, result)
	histoRecords := p.readHistoFiles(ctx, files.Histos, result)
	behaviorRecords := p.readBehaviorFiles(ctx, files.Behavior, result)

	// Stage: location reconciliation.
	timer := p.metrics.NewTimer(p.metrics.StageDuration.WithLabelValues("reconcile"))
	reconciled := Reconcile(locationFiles)
	timer.ObserveDuration()

	result.DroppedArgosFiles = reconciled.DroppedFiles
	result.TimestampBumps = reconciled.TimestampBumps
	p.metrics.TimestampBumpsTotal.Add(float64(reconciled.TimestampBumps))
	for range reconciled.DroppedFiles {
		p.metrics.FilesDroppedTotal.WithLabelValues("argos_superseded").Inc()
	}

	p.logger.Info(ctx, "[PIPELINE_RECONCILE] Locations reconciled", logging.Fields{
		"rows":            len(reconciled.Table),
		"dropped_files":   len(reconciled.DroppedFiles),
		"timestamp_bumps": reconciled.TimestampBumps,
	})

	// Stage: percent-dry reshape.
	timer = p.metrics.NewTimer(p.metrics.StageDuration.WithLabelValues("reshape"))
	percent := ReshapePercentDry(histoRecords)
	timer.ObserveDuration()

	p.logger.Info(ctx, "[PIPELINE_RESHAPE] Percent-dry hours reshaped", logging.Fields{
		"rows": len(percent),
	})

	// Stage: behavior windowing.
	timer = p.metrics.NewTimer(p.metrics.StageDuration.WithLabelValues("window"))
	windowed, err := ComputeWindows(behaviorRecords)
	timer.ObserveDuration()
	if err != nil {
		var integrityErr *IntegrityError
		if errors.As(err, &integrityErr) {
			p.logger.Error(ctx, "[PIPELINE_INTEGRITY_ERROR] Negative behavior duration", logging.Fields{
				"deploy_id": integrityErr.DeployID,
			}, err)
		}
		return nil, err
	}
	result.OutOfRangeWindows = windowed.OutOfRangeWindows
	p.metrics.OutOfRangeWindows.Set(float64(windowed.OutOfRangeWindows))

	p.logger.Info(ctx, "[PIPELINE_WINDOW] Behavior events windowed", logging.Fields{
		"rows":                 len(windowed.Table),
		"out_of_range_windows": windowed.OutOfRangeWindows,
	})

	// Stage: metadata join.
	deployments, err := p.repo.ListDeployments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load deployment metadata: %w", err)
	}

	timer = p.metrics.NewTimer(p.metrics.StageDuration.WithLabelValues("join"))
	joiner := NewJoiner(deployments, p.asOf)
	result.Locations, result.LocationReport = joiner.JoinLocations(reconciled.Table)
	result.Percent, result.PercentReport = joiner.JoinPercent(percent)

	dive, surface := SplitByWhat(windowed.Table)
	result.Dive, result.DiveReport = joiner.JoinBehavior(dive)
	result.Surface, result.SurfaceReport = joiner.JoinBehavior(surface)
	timer.ObserveDuration()

	p.recordJoinReport(ctx, "locations", result.LocationReport)
	p.recordJoinReport(ctx, "percent", result.PercentReport)
	p.recordJoinReport(ctx, "behav_dive", result.DiveReport)
	p.recordJoinReport(ctx, "behav_surf", result.SurfaceReport)

	p.metrics.TidyRowsTotal.WithLabelValues("locations").Add(float64(len(result.Locations)))
	p.metrics.TidyRowsTotal.WithLabelValues("percent").Add(float64(len(result.Percent)))
	p.metrics.TidyRowsTotal.WithLabelValues("behav_dive").Add(float64(len(result.Dive)))
	p.metrics.TidyRowsTotal.WithLabelValues("behav_surf").Add(float64(len(result.Surface)))

	result.Duration = time.Since(startTime)
	p.metrics.PipelineDuration.Observe(result.Duration.Seconds())

	p.logger.Info(ctx, "[PIPELINE_COMPLETE] Telemetry processing completed", logging.Fields{
		"location_rows":    len(result.Locations),
		"percent_rows":     len(result.Percent),
		"dive_rows":        len(result.Dive),
		"surface_rows":     len(result.Surface),
		"file_errors":      len(result.FileErrors),
		"duration_seconds": result.Duration.Seconds(),
	})

	return result, nil
}

// readLocationFiles parses every Locations file, classifying each by
// source and instrument. Files with schema violations are skipped and
// reported.
func (p *Pipeline) readLocationFiles(ctx context.Context, paths []string, result *Result) []LocationFile {
	files := make([]LocationFile, 0, len(paths))
	for _, path := range paths {
		records, err := reader.ReadLocations(path)
		if err != nil {
			p.reportFileError(ctx, path, err, result)
			continue
		}
		result.RawRecords += len(records)
		p.metrics.RecordsParsed.WithLabelValues("locations").Add(float64(len(records)))
		files = append(files, LocationFile{
			Path:       path,
			Instrument: reader.InstrumentFromFilename(path),
			Source:     p.classifier(path),
			Records:    records,
		})
	}
	return files
}

func (p *Pipeline) readHistoFiles(ctx context.Context, paths []string, result *Result) []models.RawHistoRecord {
	var all []models.RawHistoRecord
	for _, path := range paths {
		records, err := reader.ReadHistos(path)
		if err != nil {
			p.reportFileError(ctx, path, err, result)
			continue
		}
		result.RawRecords += len(records)
		p.metrics.RecordsParsed.WithLabelValues("histos").Add(float64(len(records)))
		all = append(all, records...)
	}
	return all
}

func (p *Pipeline) readBehaviorFiles(ctx context.Context, paths []string, result *Result) []models.RawBehaviorRecord {
	var all []models.RawBehaviorRecord
	for _, path := range paths {
		records, err := reader.ReadBehavior(path)
		if err != nil {
			p.reportFileError(ctx, path, err, result)
			continue
		}
		result.RawRecords += len(records)
		p.metrics.RecordsParsed.WithLabelValues("behavior").Add(float64(len(records)))
		all = append(all, records...)
	}
	return all
}

func (p *Pipeline) reportFileError(ctx context.Context, path string, err error, result *Result) {
	result.FileErrors = append(result.FileErrors, fmt.Sprintf("%s: %v", path, err))
	p.metrics.RecordParseError("schema_error")
	p.logger.Error(ctx, "[PIPELINE_FILE_ERROR] Raw file rejected", logging.Fields{
		"file": path,
	}, err)
}

func (p *Pipeline) recordJoinReport(ctx context.Context, table string, report *JoinReport) {
	p.metrics.JoinGapsTotal.Add(float64(len(report.MetadataGaps)))
	p.metrics.MissingBoundsTotal.Add(float64(len(report.MissingBounds)))
	p.metrics.RowsFilteredTotal.WithLabelValues(table).Add(float64(report.RowsFiltered))

	if len(report.MetadataGaps) > 0 {
		p.logger.Warn(ctx, "[PIPELINE_JOIN_GAP] Deployments missing from metadata", logging.Fields{
			"table":      table,
			"deploy_ids": report.MetadataGaps,
		})
	}
	if len(report.MissingBounds) > 0 {
		p.logger.Warn(ctx, "[PIPELINE_MISSING_BOUNDS] Deployments with incomplete date bounds", logging.Fields{
			"table":      table,
			"deploy_ids": report.MissingBounds,
		})
	}
	if len(report.UnmatchedMetadata) > 0 {
		p.logger.Info(ctx, "[PIPELINE_UNMATCHED_METADATA] Metadata deployments with no rows in table", logging.Fields{
			"table":      table,
			"deploy_ids": report.UnmatchedMetadata,
		})
	}
}
