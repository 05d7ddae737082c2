// Package history records every scenario step to PostgreSQL so a DUT
// run can be compared against what was emulated.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sweeney/weather-emulator/internal/simulation"
)

// DefaultTable is the table steps are written to.
const DefaultTable = "scenario_steps"

// Execer is the subset of *sql.DB the recorder needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Recorder writes steps tagged with a per-process run ID.
type Recorder struct {
	db     Execer
	closer io.Closer
	runID  uuid.UUID
	table  string
}

// Open connects to the database at dsn and creates the table if needed.
func Open(ctx context.Context, dsn string) (*Recorder, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect history db: %w", err)
	}
	r := NewRecorder(db, uuid.New())
	r.closer = db
	if err := r.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// NewRecorder creates a recorder over db.
func NewRecorder(db Execer, runID uuid.UUID) *Recorder {
	return &Recorder{db: db, runID: runID, table: DefaultTable}
}

// RunID identifies this process's rows.
func (r *Recorder) RunID() uuid.UUID {
	return r.runID
}

// EnsureSchema creates the steps table if it does not exist.
func (r *Recorder) EnsureSchema(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id              uuid        NOT NULL,
	step                bigint      NOT NULL,
	scenario            bigint      NOT NULL,
	recorded_at         timestamptz NOT NULL,
	new_scenario        boolean     NOT NULL,
	wind_speed_kmh      integer     NOT NULL,
	wind_speed_peak_kmh integer     NOT NULL,
	wind_direction_deg  integer     NOT NULL,
	rainfall_mm         integer     NOT NULL,
	rainfall_peak_mm    integer     NOT NULL,
	elapsed_ms          bigint      NOT NULL,
	PRIMARY KEY (run_id, step)
)`, pq.QuoteIdentifier(r.table))
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create %s: %w", r.table, err)
	}
	return nil
}

// Record inserts one step.
func (r *Recorder) Record(ctx context.Context, rep simulation.Report) error {
	q := fmt.Sprintf(`INSERT INTO %s (run_id, step, scenario, recorded_at, new_scenario,
	wind_speed_kmh, wind_speed_peak_kmh, wind_direction_deg, rainfall_mm, rainfall_peak_mm, elapsed_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, pq.QuoteIdentifier(r.table))

	_, err := r.db.ExecContext(ctx, q,
		r.runID.String(),
		int64(rep.Step),
		int64(rep.Scenario),
		rep.Timestamp.UTC().Truncate(time.Microsecond),
		rep.NewScenario,
		int64(rep.Setpoint.SpeedKmh),
		int64(rep.PeakSpeed),
		int64(rep.Setpoint.DirectionDegrees),
		int64(rep.Setpoint.RainfallMM),
		int64(rep.PeakRainfall),
		int64(rep.ElapsedMs),
	)
	if err != nil {
		return fmt.Errorf("record step %d: %w", rep.Step, err)
	}
	return nil
}

// Close releases the database connection, if the recorder owns one.
func (r *Recorder) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
