package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/futig/medrag/internal/entity"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var ErrRunNotFound = errors.New("evaluation run not found")

// TrackingSQLite records evaluation runs with their params and metrics.
type TrackingSQLite struct {
	db *sql.DB
}

// NewTrackingSQLite opens (and migrates) the tracking database at path.
func NewTrackingSQLite(path string) (*TrackingSQLite, error) {
	if err := RunTrackingMigrations(path); err != nil {
		return nil, fmt.Errorf("migrate tracking store: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open tracking store: %w", err)
	}
	db.SetMaxOpenConns(1)

	return &TrackingSQLite{db: db}, nil
}

func (r *TrackingSQLite) CreateRun(ctx context.Context, name string) (*entity.EvalRun, error) {
	run := &entity.EvalRun{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    entity.RunStatusRunning,
		Params:    map[string]string{},
		Metrics:   map[string]float64{},
		StartedAt: time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (id, name, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Name, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	return run, nil
}

func (r *TrackingSQLite) LogParams(ctx context.Context, runID string, params map[string]string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for k, v := range params {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO params (run_id, key, value) VALUES (?, ?, ?)
				 ON CONFLICT (run_id, key) DO UPDATE SET value = excluded.value`,
				runID, k, v,
			)
			if err != nil {
				return fmt.Errorf("log param %s: %w", k, err)
			}
		}
		return nil
	})
}

func (r *TrackingSQLite) LogMetrics(ctx context.Context, runID string, metrics map[string]float64) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for k, v := range metrics {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO metrics (run_id, key, value) VALUES (?, ?, ?)
				 ON CONFLICT (run_id, key) DO UPDATE SET value = excluded.value`,
				runID, k, v,
			)
			if err != nil {
				return fmt.Errorf("log metric %s: %w", k, err)
			}
		}
		return nil
	})
}

func (r *TrackingSQLite) FinishRun(ctx context.Context, runID string, status entity.RunStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, ended_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRunNotFound
	}

	return nil
}

func (r *TrackingSQLite) GetRun(ctx context.Context, runID string) (*entity.EvalRun, error) {
	run := &entity.EvalRun{
		Params:  map[string]string{},
		Metrics: map[string]float64{},
	}

	var (
		status  string
		endedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, status, started_at, ended_at FROM runs WHERE id = ?`, runID,
	).Scan(&run.ID, &run.Name, &status, &run.StartedAt, &endedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}

	run.Status = entity.RunStatus(status)
	if endedAt.Valid {
		run.EndedAt = &endedAt.Time
	}

	if err := r.loadParams(ctx, run); err != nil {
		return nil, err
	}
	if err := r.loadMetrics(ctx, run); err != nil {
		return nil, err
	}

	return run, nil
}

// ListRuns returns the most recent runs first, without params and metrics.
func (r *TrackingSQLite) ListRuns(ctx context.Context, limit int) ([]*entity.EvalRun, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, status, started_at, ended_at FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*entity.EvalRun
	for rows.Next() {
		var (
			run     entity.EvalRun
			status  string
			endedAt sql.NullTime
		)
		if err := rows.Scan(&run.ID, &run.Name, &status, &run.StartedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = entity.RunStatus(status)
		if endedAt.Valid {
			run.EndedAt = &endedAt.Time
		}
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

func (r *TrackingSQLite) Close() error {
	return r.db.Close()
}

func (r *TrackingSQLite) loadParams(ctx context.Context, run *entity.EvalRun) error {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM params WHERE run_id = ?`, run.ID)
	if err != nil {
		return fmt.Errorf("load params: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return fmt.Errorf("scan param: %w", err)
		}
		run.Params[k] = v
	}
	return rows.Err()
}

func (r *TrackingSQLite) loadMetrics(ctx context.Context, run *entity.EvalRun) error {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM metrics WHERE run_id = ?`, run.ID)
	if err != nil {
		return fmt.Errorf("load metrics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			k string
			v float64
		)
		if err := rows.Scan(&k, &v); err != nil {
			return fmt.Errorf("scan metric: %w", err)
		}
		run.Metrics[k] = v
	}
	return rows.Err()
}

func (r *TrackingSQLite) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}
