package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"seal-telemetry/internal/config"
	"seal-telemetry/internal/export"
	"seal-telemetry/internal/pipeline"
	"seal-telemetry/internal/repository"
	"seal-telemetry/pkg/database"
	"seal-telemetry/pkg/logging"
	"seal-telemetry/pkg/metrics"
)

func main() {
	// Parse command-line flags
	dataDir := flag.String("data-dir", "", "Directory containing extracted raw telemetry CSV files (overrides PIPELINE_DATA_DIR)")
	outDir := flag.String("out-dir", "", "Directory for tidy output tables (overrides PIPELINE_OUTPUT_DIR)")
	prefix := flag.String("prefix", "", "Output file prefix (overrides PIPELINE_OUTPUT_PREFIX)")
	asOfFlag := flag.String("as-of", "", "RFC3339 timestamp substituted for missing deployment end dates (default: now; pass a fixed value for reproducible output)")
	metricsAddr := flag.String("metrics-addr", "", "Optional listen address for /metrics and /healthz during the run")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if *dataDir != "" {
		cfg.Pipeline.DataDir = *dataDir
	}
	if *outDir != "" {
		cfg.Pipeline.OutputDir = *outDir
	}
	if *prefix != "" {
		cfg.Pipeline.OutputPrefix = *prefix
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// The as-of timestamp defaults to wall-clock time here, at the
	// process boundary; the pipeline itself never reads the clock.
	asOf := time.Now().UTC()
	if *asOfFlag != "" {
		asOf, err = time.Parse(time.RFC3339, *asOfFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -as-of timestamp: %v\n", err)
			os.Exit(1)
		}
	}

	// Initialize logger
	logLevel := logging.InfoLevel
	if cfg.Logging.Level == "debug" {
		logLevel = logging.DebugLevel
	}

	logger := logging.NewStructuredLogger("seal-pipeline", "1.0.0", logLevel)

	ctx := logging.WithRunID(context.Background(), uuid.NewString())
	logger.Info(ctx, "[PIPELINE_BOOT] Starting harbor-seal telemetry pipeline", logging.Fields{
		"version":  "1.0.0",
		"data_dir": cfg.Pipeline.DataDir,
		"out_dir":  cfg.Pipeline.OutputDir,
		"prefix":   cfg.Pipeline.OutputPrefix,
		"as_of":    asOf.Format(time.RFC3339),
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("seal_pipeline")

	// Initialize database
	dbConfig := &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}

	db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[PIPELINE_ERROR] Failed to connect to metadata store", logging.Fields{}, err)
	}
	defer db.Close()

	// Optionally expose metrics while the batch runs
	if *metricsAddr != "" {
		router := mux.NewRouter()
		router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
		router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			if err := db.HealthCheck(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, "ok")
		}).Methods(http.MethodGet)

		go func() {
			logger.Info(ctx, "[PIPELINE_METRICS] Serving metrics", logging.Fields{
				"addr": *metricsAddr,
			})
			if err := http.ListenAndServe(*metricsAddr, router); err != nil {
				logger.Error(ctx, "[PIPELINE_METRICS_ERROR] Metrics server stopped", logging.Fields{}, err)
			}
		}()
	}

	// Initialize repository and pipeline
	deploymentRepo := repository.NewDeploymentRepository(db, logger, metricsCollector)
	p := pipeline.New(deploymentRepo, logger, metricsCollector, nil, asOf)

	// Run the batch
	result, err := p.Run(ctx, cfg.Pipeline.DataDir)
	if err != nil {
		logger.Fatal(ctx, "[PIPELINE_ERROR] Pipeline run failed", logging.Fields{
			"error": err.Error(),
		}, err)
	}
	db.UpdatePoolMetrics()

	// Export tidy tables
	exporter := export.NewExporter(logger, metricsCollector)
	if err := exporter.ExportAll(ctx, cfg.Pipeline.OutputDir, cfg.Pipeline.OutputPrefix,
		result.Locations, result.Percent, result.Dive, result.Surface); err != nil {
		logger.Fatal(ctx, "[EXPORT_ERROR] Export failed", logging.Fields{}, err)
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("PIPELINE COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Raw Files:            %d\n", result.TotalFiles)
	fmt.Printf("Raw Records:          %d\n", result.RawRecords)
	fmt.Printf("Location Rows:        %d\n", len(result.Locations))
	fmt.Printf("Percent-Dry Rows:     %d\n", len(result.Percent))
	fmt.Printf("Dive Rows:            %d\n", len(result.Dive))
	fmt.Printf("Surface Rows:         %d\n", len(result.Surface))
	fmt.Printf("Argos Files Dropped:  %d\n", len(result.DroppedArgosFiles))
	fmt.Printf("Timestamp Bumps:      %d\n", result.TimestampBumps)
	fmt.Printf("Windows > 1.0:        %d\n", result.OutOfRangeWindows)
	fmt.Printf("Duration:             %v\n", result.Duration)

	printReport := func(table string, r *pipeline.JoinReport) {
		if len(r.MetadataGaps) == 0 && len(r.MissingBounds) == 0 &&
			len(r.UnmatchedMetadata) == 0 && r.RowsFiltered == 0 {
			return
		}
		fmt.Printf("\n%s join report:\n", table)
		if len(r.MetadataGaps) > 0 {
			fmt.Printf("  metadata gaps:      %s\n", strings.Join(r.MetadataGaps, ", "))
		}
		if len(r.MissingBounds) > 0 {
			fmt.Printf("  missing bounds:     %s\n", strings.Join(r.MissingBounds, ", "))
		}
		if len(r.UnmatchedMetadata) > 0 {
			fmt.Printf("  unmatched metadata: %s\n", strings.Join(r.UnmatchedMetadata, ", "))
		}
		if r.RowsFiltered > 0 {
			fmt.Printf("  rows filtered:      %d\n", r.RowsFiltered)
		}
	}
	printReport("locations", result.LocationReport)
	printReport("percent", result.PercentReport)
	printReport("behav_dive", result.DiveReport)
	printReport("behav_surf", result.SurfaceReport)

	if len(result.FileErrors) > 0 {
		fmt.Printf("\nRejected files (%d):\n", len(result.FileErrors))
		for i, errMsg := range result.FileErrors {
			if i < 10 {
				fmt.Printf("  - %s\n", errMsg)
			}
		}
		if len(result.FileErrors) > 10 {
			fmt.Printf("  ... and %d more\n", len(result.FileErrors)-10)
		}
	}

	logger.Info(ctx, "[PIPELINE_DONE] Run completed successfully", logging.Fields{
		"location_rows":    len(result.Locations),
		"percent_rows":     len(result.Percent),
		"dive_rows":        len(result.Dive),
		"surface_rows":     len(result.Surface),
		"duration_seconds": result.Duration.Seconds(),
	})
}
