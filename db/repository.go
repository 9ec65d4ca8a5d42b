package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"juliaform/params"
)

// Render is one issued image request.
type Render struct {
	ID        int64           `json:"id"`
	RequestID string          `json:"request_id"`
	SessionID string          `json:"session_id,omitempty"`
	Outcome   string          `json:"outcome"`
	Params    params.Snapshot `json:"params"`
	Duration  time.Duration   `json:"duration"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

const renderColumns = `request_id, session_id, outcome,
	real_component, imag_component, min_x, max_x, min_y, max_y,
	picture_width, picture_height, iterations, max_modulus,
	duration_ms, error_message, created_at`

// InsertRender stores r and returns its row id. A zero CreatedAt is set to now.
func (d *Database) InsertRender(ctx context.Context, r Render) (int64, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	p := r.Params
	res, err := d.conn.ExecContext(ctx,
		`INSERT INTO render_history (`+renderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RequestID, r.SessionID, r.Outcome,
		p.RealComponent, p.ImaginaryComponent, p.MinXValue, p.MaxXValue, p.MinYValue, p.MaxYValue,
		p.PictureWidth, p.PictureHeight, p.Iterations, p.MaxModulus,
		r.Duration.Milliseconds(), r.Error, r.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert render: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

// RecentRenders returns up to limit renders, newest first. A limit below 1
// means 10.
func (d *Database) RecentRenders(ctx context.Context, limit int) ([]Render, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, `+renderColumns+` FROM render_history ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query renders: %w", err)
	}
	return scanRenders(rows)
}

// RendersByRequestID returns the renders stored under requestID.
func (d *Database) RendersByRequestID(ctx context.Context, requestID string) ([]Render, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT id, `+renderColumns+` FROM render_history WHERE request_id = ? ORDER BY id`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query renders: %w", err)
	}
	return scanRenders(rows)
}

// CountRenders returns the number of stored renders.
func (d *Database) CountRenders(ctx context.Context) (int64, error) {
	var n int64
	if err := d.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM render_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count renders: %w", err)
	}
	return n, nil
}

// DeleteRendersBefore removes renders created before cutoff.
func (d *Database) DeleteRendersBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := d.conn.ExecContext(ctx, `DELETE FROM render_history WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete renders: %w", err)
	}
	return res.RowsAffected()
}

func scanRenders(rows *sql.Rows) ([]Render, error) {
	defer rows.Close()

	var out []Render
	for rows.Next() {
		var (
			r          Render
			p          = &r.Params
			durationMS int64
			createdMS  int64
		)
		err := rows.Scan(&r.ID, &r.RequestID, &r.SessionID, &r.Outcome,
			&p.RealComponent, &p.ImaginaryComponent, &p.MinXValue, &p.MaxXValue, &p.MinYValue, &p.MaxYValue,
			&p.PictureWidth, &p.PictureHeight, &p.Iterations, &p.MaxModulus,
			&durationMS, &r.Error, &createdMS)
		if err != nil {
			return nil, fmt.Errorf("failed to scan render row: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.CreatedAt = time.UnixMilli(createdMS)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating render rows: %w", err)
	}
	return out, nil
}
