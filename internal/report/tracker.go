// Package report records extraction run outcomes in the job tracker table on
// SQL Server, so downstream load jobs can tell which business classes have
// fresh data.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ConnectSQL opens and pings a SQL Server connection.
func ConnectSQL(connString string) (*sql.DB, error) {
	db, err := sql.Open("sqlserver", connString)
	if err != nil {
		return nil, errors.Wrap(err, "open SQL database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "connect to SQL database (ping failed)")
	}
	return db, nil
}

// JobTracker writes one row per business class run: which class ran, when it
// started, whether it succeeded and how long it took.
type JobTracker struct {
	db    *sql.DB
	table string
	log   zerolog.Logger
}

func NewJobTracker(db *sql.DB, table string, log zerolog.Logger) *JobTracker {
	return &JobTracker{db: db, table: table, log: log}
}

// Record inserts the outcome of one run.
func (t *JobTracker) Record(ctx context.Context, businessClass string, started time.Time, ok bool, duration time.Duration) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (business_class, run_timestamp, was_successful, duration_seconds) VALUES (@p1, @p2, @p3, @p4)",
		t.table,
	)

	_, err := t.db.ExecContext(ctx, query, businessClass, started.UTC(), ok, int64(duration.Seconds()))
	if err != nil {
		return errors.Wrapf(err, "insert job tracker row for '%s'", businessClass)
	}

	t.log.Debug().Msgf("Recorded job outcome for %s (successful: %t)", businessClass, ok)
	return nil
}

// Close releases the underlying connection pool.
func (t *JobTracker) Close() error {
	return t.db.Close()
}
