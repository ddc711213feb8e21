package frostbench

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/frostbench/frostbench/internal/artifact"
	s3store "github.com/frostbench/frostbench/internal/artifact/s3"
	"github.com/frostbench/frostbench/internal/batch"
	"github.com/frostbench/frostbench/internal/config"
	"github.com/frostbench/frostbench/internal/export"
	"github.com/frostbench/frostbench/internal/observability"
	"github.com/frostbench/frostbench/internal/session"
	"github.com/frostbench/frostbench/internal/tilestore"
	"github.com/frostbench/frostbench/internal/warehouse"
	"github.com/frostbench/frostbench/internal/workbench"
)

// Options carries the runner's environment so tests can substitute every
// external edge: env lookup, output streams, the warehouse engine, and the
// artifact sink.
type Options struct {
	Lookup     config.LookupFunc
	Stdout     io.Writer
	Stderr     io.Writer
	OpenEngine func(ctx context.Context, cfg config.WarehouseConfig) (*warehouse.Engine, error)
	OpenSink   func(ctx context.Context, cfg config.ArtifactConfig) (artifact.Sink, error)
	Now        func() time.Time
}

// Run executes a SQL script in batch mode and returns a process exit code:
// 0 on success, 1 when any statement failed, 2 on usage errors.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}
	lookup := defaults.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	now := defaults.Now
	if now == nil {
		now = time.Now
	}

	fs := flag.NewFlagSet("frostbench", flag.ContinueOnError)
	fs.SetOutput(stderr)

	file := fs.String("file", "", "SQL script to execute (required)")
	outputDir := fs.String("output", ".", "directory for query_NNN.<ext> result files")
	format := fs.String("format", "csv", "output format: csv, tsv, json, parquet, table")
	lastOnly := fs.Bool("last-only", false, "export only the final statement's result")
	exitOnError := fs.Bool("exit-on-error", false, "stop at the first failed statement")
	noHeader := fs.Bool("no-header", false, "omit the header row from csv/tsv output")
	runID := fs.String("run-id", "", "artifact run id (default derived from start time)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *file == "" {
		_, _ = fmt.Fprintln(stderr, "frostbench: -file is required")
		fs.Usage()
		return 2
	}
	outFormat, err := batch.ParseFormat(*format)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "frostbench: %v\n", err)
		return 2
	}

	cfg, err := config.Load("frostbench", lookup)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "frostbench: load config: %v\n", err)
		return 1
	}
	logger := observability.NewLogger(cfg, stderr)

	script, err := os.ReadFile(*file)
	if err != nil {
		logger.Error("read script", slog.Any("error", err))
		return 1
	}

	openEngine := defaults.OpenEngine
	if openEngine == nil {
		openEngine = func(ctx context.Context, wc config.WarehouseConfig) (*warehouse.Engine, error) {
			return warehouse.Open(ctx, warehouse.Config{
				Driver:          wc.Driver,
				DSN:             wc.DSN,
				MaxOpenConns:    wc.MaxOpenConns,
				MaxIdleConns:    wc.MaxIdleConns,
				ConnMaxIdleTime: wc.ConnMaxIdleTime,
				ConnMaxLifetime: wc.ConnMaxLifetime,
			})
		}
	}
	engine, err := openEngine(ctx, cfg.Warehouse)
	if err != nil {
		logger.Error("open warehouse", slog.Any("error", err))
		return 1
	}
	defer func() { _ = engine.Close() }()

	var sink artifact.Sink
	if cfg.Artifact.UploadEnabled {
		openSink := defaults.OpenSink
		if openSink == nil {
			openSink = func(ctx context.Context, ac config.ArtifactConfig) (artifact.Sink, error) {
				return s3store.New(ctx, s3store.Config{
					Endpoint:         ac.Endpoint,
					Region:           ac.Region,
					Bucket:           ac.Bucket,
					AccessKeyID:      ac.AccessKeyID,
					SecretAccessKey:  ac.SecretAccessKey,
					UseSSL:           ac.UseSSL,
					Prefix:           ac.Prefix,
					AutoCreateBucket: ac.AutoCreateBucket,
				})
			}
		}
		sink, err = openSink(ctx, cfg.Artifact)
		if err != nil {
			logger.Error("open artifact sink", slog.Any("error", err))
			return 1
		}
	}

	startedAt := now().UTC()
	id := *runID
	if id == "" {
		id = startedAt.Format("run-20060102-150405")
	}

	runner := &batch.Runner{
		Workbench: &workbench.Workbench{
			Engine:  engine,
			Session: session.New(),
			Tiles: tilestore.Config{
				TileCapacity:      cfg.Results.TileCapacity,
				MemoryBudgetBytes: cfg.Results.MemoryBudgetBytes,
				RefetchEnabled:    cfg.Results.Refetch,
			},
			BatchRows: cfg.Warehouse.FetchBatchRows,
			Logger:    logger,
		},
		Exporter: &export.Exporter{Logger: logger},
		Timeout:  cfg.Batch.StatementTimeout,
		Sink:     sink,
		RunID:    id,
		Logger:   logger,
	}

	results, runErr := runner.Run(ctx, string(script), batch.Options{
		OutputDir:   *outputDir,
		Format:      outFormat,
		LastOnly:    *lastOnly,
		ExitOnError: *exitOnError,
		CSV: export.CSVOptions{
			Delimiter: cfg.Export.Delimiter[0],
			CRLF:      cfg.Export.CRLF,
			NoHeader:  *noHeader,
		},
	})

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			_, _ = fmt.Fprintf(stderr, "query %03d: %v\n", res.Index, res.Err)
			continue
		}
		if res.OutputPath == "" {
			_, _ = fmt.Fprintf(stdout, "query %03d: %d rows (not exported)\n", res.Index, res.Rows)
			continue
		}
		_, _ = fmt.Fprintf(stdout, "query %03d: %d rows -> %s\n", res.Index, res.Rows, res.OutputPath)
		if res.ArtifactKey != "" {
			_, _ = fmt.Fprintf(stdout, "query %03d: uploaded %s\n", res.Index, res.ArtifactKey)
		}
	}
	if runErr != nil || failed > 0 {
		return 1
	}
	return 0
}
