package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/frostbench/frostbench/internal/artifact"
	"github.com/frostbench/frostbench/internal/export"
	"github.com/frostbench/frostbench/internal/session"
	"github.com/frostbench/frostbench/internal/workbench"
)

// Format selects the output encoding for batch exports.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatTSV     Format = "tsv"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
	FormatTable   Format = "table"
)

func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case FormatCSV, FormatTSV, FormatJSON, FormatParquet, FormatTable:
		return Format(raw), nil
	default:
		return "", fmt.Errorf("unknown output format %q", raw)
	}
}

func (f Format) extension() string {
	switch f {
	case FormatTable:
		return "txt"
	default:
		return string(f)
	}
}

func (f Format) contentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatTSV:
		return "text/tab-separated-values"
	case FormatJSON:
		return "application/json"
	case FormatParquet:
		return "application/vnd.apache.parquet"
	default:
		return "text/plain"
	}
}

// Options controls one batch run.
type Options struct {
	OutputDir   string
	Format      Format
	LastOnly    bool
	ExitOnError bool
	CSV         export.CSVOptions
}

// Result records the outcome of one statement in a batch run.
type Result struct {
	Index       int
	Statement   string
	State       session.State
	Rows        int64
	OutputPath  string
	ArtifactKey string
	Err         error
}

// Runner executes a SQL script statement by statement, streaming each result
// through the normal tab lifecycle and exporting it to the output directory as
// query_NNN.<ext>. Statements run sequentially; a failed statement is recorded
// and, unless ExitOnError is set, the run continues with the next one.
type Runner struct {
	Workbench *workbench.Workbench
	Exporter  *export.Exporter
	Timeout   time.Duration
	Sink      artifact.Sink
	RunID     string
	Logger    *slog.Logger
}

// Run splits script into statements and executes them all. The returned error
// is the first statement failure when ExitOnError is set, or an environment
// failure (unwritable output directory, upload error); per-statement outcomes
// are always in the results.
func (r *Runner) Run(ctx context.Context, script string, opts Options) ([]Result, error) {
	stmts := SplitStatements(script)
	if len(stmts) == 0 {
		return nil, fmt.Errorf("script contains no statements")
	}
	if opts.Format == "" {
		opts.Format = FormatCSV
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	startedAt := time.Now().UTC()
	results := make([]Result, 0, len(stmts))
	for i, stmt := range stmts {
		res := r.runStatement(ctx, i, stmt, i == len(stmts)-1, opts, startedAt)
		results = append(results, res)
		if res.Err != nil {
			if r.Logger != nil {
				r.Logger.Error("batch statement failed", "index", res.Index, "error", res.Err)
			}
			if opts.ExitOnError {
				return results, fmt.Errorf("statement %d: %w", res.Index, res.Err)
			}
			continue
		}
		if r.Logger != nil {
			r.Logger.Info("batch statement complete",
				"index", res.Index, "rows", res.Rows, "output", res.OutputPath)
		}
	}
	return results, nil
}

func (r *Runner) runStatement(ctx context.Context, index int, stmt string, last bool, opts Options, startedAt time.Time) Result {
	res := Result{Index: index + 1, Statement: stmt}

	stmtCtx := ctx
	cancel := context.CancelFunc(func() {})
	if r.Timeout > 0 {
		stmtCtx, cancel = context.WithTimeout(ctx, r.Timeout)
	}
	defer cancel()

	tab, err := r.Workbench.Execute(stmtCtx, stmt)
	if err != nil {
		res.Err = err
		return res
	}
	state, err := r.Workbench.Wait(stmtCtx, tab)
	if err != nil {
		tab.Cancel()
		res.Err = err
		return res
	}
	res.State = state
	switch state {
	case session.StateComplete:
		if store := tab.Store(); store != nil {
			res.Rows, _ = store.RowCount()
		}
	case session.StateCancelled:
		res.Err = context.Canceled
		return res
	default:
		res.Err = tab.Err()
		if res.Err == nil {
			res.Err = fmt.Errorf("statement finished in state %s", state)
		}
		return res
	}

	if opts.LastOnly && !last {
		return res
	}
	return r.exportResult(stmtCtx, tab, res, opts, startedAt)
}

func (r *Runner) exportResult(ctx context.Context, tab *session.Tab, res Result, opts Options, startedAt time.Time) Result {
	name := fmt.Sprintf("query_%03d.%s", res.Index, opts.Format.extension())
	path := filepath.Join(opts.OutputDir, name)

	file, err := os.Create(path)
	if err != nil {
		res.Err = fmt.Errorf("create output file: %w", err)
		return res
	}
	rows, err := r.encode(ctx, tab, file, opts)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		res.Err = fmt.Errorf("export %s: %w", name, err)
		return res
	}
	res.Rows = rows
	res.OutputPath = path

	if r.Sink != nil {
		key, err := r.upload(ctx, path, res.Index-1, opts.Format, startedAt)
		if err != nil {
			res.Err = fmt.Errorf("upload %s: %w", name, err)
			return res
		}
		res.ArtifactKey = key
	}
	return res
}

func (r *Runner) encode(ctx context.Context, tab *session.Tab, w io.Writer, opts Options) (int64, error) {
	store := tab.Store()
	if store == nil {
		return 0, errors.New("result has no row store")
	}
	switch opts.Format {
	case FormatCSV:
		return r.Exporter.CSV(ctx, store, nil, w, opts.CSV)
	case FormatTSV:
		tsv := opts.CSV
		tsv.Delimiter = '\t'
		return r.Exporter.CSV(ctx, store, nil, w, tsv)
	case FormatJSON:
		return r.Exporter.JSON(ctx, store, nil, w)
	case FormatParquet:
		return r.Exporter.Parquet(ctx, store, nil, w)
	case FormatTable:
		return r.Exporter.Table(ctx, store, nil, w)
	default:
		return 0, fmt.Errorf("unknown output format %q", opts.Format)
	}
}

func (r *Runner) upload(ctx context.Context, path string, index int, format Format, startedAt time.Time) (string, error) {
	key, err := artifact.BuildExportPath(r.RunID, startedAt, index, format.extension())
	if err != nil {
		return "", err
	}
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return "", err
	}
	if _, err := r.Sink.Put(ctx, key, file, info.Size(), artifact.PutOptions{
		ContentType: format.contentType(),
	}); err != nil {
		return "", err
	}
	return key, nil
}
