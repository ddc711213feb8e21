// Package artifact stores batch-mode export files in an S3-compatible
// object store so headless runs can publish results without a shared
// filesystem.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"time"
)

var ErrObjectNotFound = errors.New("artifact not found")

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

type PutOptions struct {
	ContentType string
}

// Sink receives finished export artifacts.
type Sink interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

var runIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildExportPath lays out one run's artifacts under a date partition:
// runs/date=YYYY-MM-DD/<run-id>/query_NNN.<ext>.
func BuildExportPath(runID string, startedAt time.Time, queryIndex int, extension string) (string, error) {
	if !runIDPattern.MatchString(runID) {
		return "", fmt.Errorf("invalid run id: %q", runID)
	}
	if queryIndex < 0 {
		return "", fmt.Errorf("query index must be >= 0")
	}
	if extension == "" {
		return "", fmt.Errorf("extension is required")
	}
	ts := startedAt.UTC()
	return path.Join(
		"runs",
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		runID,
		fmt.Sprintf("query_%03d.%s", queryIndex+1, extension),
	), nil
}
