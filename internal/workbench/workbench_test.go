package workbench

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/frostbench/frostbench/internal/session"
	"github.com/frostbench/frostbench/internal/tilestore"
	"github.com/frostbench/frostbench/internal/warehouse"
)

func newWorkbench(t *testing.T) (*Workbench, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return &Workbench{
		Engine:    warehouse.NewWithDB(db, warehouse.Config{Driver: "pgx"}),
		Session:   session.New(),
		Tiles:     tilestore.Config{TileCapacity: 4},
		BatchRows: 2,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, mock
}

func intRows(values ...int64) *sqlmock.Rows {
	rows := sqlmock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("n").OfType("INT8", int64(0)),
	)
	for _, v := range values {
		rows.AddRow(v)
	}
	return rows
}

func TestExecuteStreamsToCompletion(t *testing.T) {
	w, mock := newWorkbench(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT n FROM t")).WillReturnRows(intRows(1, 2, 3, 4, 5))

	tab, err := w.Execute(context.Background(), "SELECT n FROM t")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	state, err := w.Wait(context.Background(), tab)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if state != session.StateComplete {
		t.Fatalf("state = %v", state)
	}
	rows, final := tab.Store().RowCount()
	if rows != 5 || !final {
		t.Fatalf("RowCount() = %d/%v", rows, final)
	}
}

func TestExecuteOpenCursorFailureFailsTab(t *testing.T) {
	w, mock := newWorkbench(t)
	boom := errors.New("no such table")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT n FROM missing")).WillReturnError(boom)

	tab, err := w.Execute(context.Background(), "SELECT n FROM missing")
	if !errors.Is(err, boom) {
		t.Fatalf("Execute() error = %v", err)
	}
	if tab.State() != session.StateFailed {
		t.Fatalf("tab state = %v", tab.State())
	}
	if !errors.Is(tab.Err(), boom) {
		t.Fatalf("tab error = %v", tab.Err())
	}
}

func TestWaitTimesOut(t *testing.T) {
	w, _ := newWorkbench(t)
	tab := w.Session.NewTab("SELECT pg_sleep(60)")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := w.Wait(ctx, tab); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() error = %v", err)
	}
}
