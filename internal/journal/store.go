// Package journal records the history of stacking sessions in SQLite: the
// controls that shaped each session, metadata of the frames saved for it,
// and the stats and errors reported by the stacker.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/livestack/internal/camera"
	"github.com/banshee-data/livestack/internal/message"
)

// Store wraps the journal database.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the journal at path and applies pending migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one connection keeps PRAGMAs and migrations on the same handle
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.MigrateUp(); err != nil {
		_ = db.Close()
		return nil, err
	}
	diagf("journal open at %s", path)
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Session is one recorded stacking session.
type Session struct {
	ID          string
	Name        string
	OutputPath  string
	Format      string
	Width       int
	Height      int
	Bin         int
	Mono        bool
	Calibration bool
	SaveInputs  bool
	SourceGamma float64
	StartedAt   time.Time
	EndedAt     *time.Time
	EndOp       string // "save" or "cancel"; empty while open
}

// FrameRecord is the metadata of one frame saved during a session.
type FrameRecord struct {
	FrameID      string
	SessionID    string
	CapturedAt   time.Time
	Format       string
	Bayer        string
	Bytes        int
	DynamicRange int
	Mean         *float64 // nil for compressed frames
	StdDev       *float64
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

// BeginSession inserts a session described by an init control.
func (s *Store) BeginSession(ctx context.Context, id string, c *message.Control, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (
			session_id, name, output_path, format, width, height, bin,
			mono, calibration, save_inputs, source_gamma, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, c.Name, c.OutputPath, c.Format, c.Width, c.Height, c.Bin,
		c.Mono, c.Calibration, c.SaveInputs, c.SourceGamma, formatTime(at),
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", id, err)
	}
	return nil
}

// EndSession marks a session closed by op.
func (s *Store) EndSession(ctx context.Context, id string, op message.Op, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ?, end_op = ? WHERE session_id = ? AND ended_at IS NULL`,
		formatTime(at), op.String(), id,
	)
	if err != nil {
		return fmt.Errorf("end session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("end session %s: no open session", id)
	}
	return nil
}

// RecordControl appends a control to a session's history.
func (s *Store) RecordControl(ctx context.Context, sessionID string, op message.Op, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO controls (session_id, op, recorded_at) VALUES (?, ?, ?)`,
		sessionID, op.String(), formatTime(at),
	)
	if err != nil {
		return fmt.Errorf("insert control %s: %w", op, err)
	}
	return nil
}

// RecordFrame stores the metadata of f for a session.
func (s *Store) RecordFrame(ctx context.Context, sessionID string, f *camera.Frame) error {
	format, _ := camera.StreamTypeString(f.Format.Type)
	bayer, _ := camera.BayerPatternString(f.Bayer)
	var mean, stdDev sql.NullFloat64
	if m, sd, ok := sourceLevels(f); ok {
		mean = sql.NullFloat64{Float64: m, Valid: true}
		stdDev = sql.NullFloat64{Float64: sd, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO frames (
			frame_id, session_id, captured_at, format, bayer, bytes,
			dynamic_range, mean, std_dev
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, sessionID, formatTime(f.Timestamp), format, bayer, len(f.Source),
		f.DynamicRange, mean, stdDev,
	)
	if err != nil {
		return fmt.Errorf("insert frame %s: %w", f.ID, err)
	}
	return nil
}

// RecordStats stores a stacker stats report. sessionID may be empty when
// no session is open.
func (s *Store) RecordStats(ctx context.Context, sessionID string, st *message.Stats, at time.Time) error {
	var histMean sql.NullFloat64
	if m, ok := histogramMean(st.Histogram); ok {
		histMean = sql.NullFloat64{Float64: m, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stats (
			session_id, stacked, missed, dropped, since_saved_s, histogram_mean, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullString(sessionID), st.Stacked, st.Missed, st.Dropped, st.SinceSavedS, histMean, formatTime(at),
	)
	if err != nil {
		return fmt.Errorf("insert stats: %w", err)
	}
	return nil
}

// RecordError stores an error reported by a collaborator.
func (s *Store) RecordError(ctx context.Context, sessionID string, e *message.Error, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO errors (session_id, source, message, recorded_at) VALUES (?, ?, ?, ?)`,
		nullString(sessionID), e.Source, e.Message, formatTime(at),
	)
	if err != nil {
		return fmt.Errorf("insert error: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Sessions returns every session, oldest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, name, output_path, format, width, height, bin,
			mono, calibration, save_inputs, source_gamma, started_at, ended_at, end_op
		FROM sessions ORDER BY started_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			sess         Session
			started      string
			ended, endOp sql.NullString
		)
		if err := rows.Scan(&sess.ID, &sess.Name, &sess.OutputPath, &sess.Format,
			&sess.Width, &sess.Height, &sess.Bin, &sess.Mono, &sess.Calibration,
			&sess.SaveInputs, &sess.SourceGamma, &started, &ended, &endOp); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if sess.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("parse started_at for %s: %w", sess.ID, err)
		}
		if ended.Valid {
			t, err := parseTime(ended.String)
			if err != nil {
				return nil, fmt.Errorf("parse ended_at for %s: %w", sess.ID, err)
			}
			sess.EndedAt = &t
		}
		sess.EndOp = endOp.String
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Controls returns the ops recorded for a session in order.
func (s *Store) Controls(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT op FROM controls WHERE session_id = ? ORDER BY control_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query controls: %w", err)
	}
	defer rows.Close()

	var ops []string
	for rows.Next() {
		var op string
		if err := rows.Scan(&op); err != nil {
			return nil, fmt.Errorf("scan control: %w", err)
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// Frames returns the frame records of a session in capture order.
func (s *Store) Frames(ctx context.Context, sessionID string) ([]FrameRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT frame_id, session_id, captured_at, format, bayer, bytes, dynamic_range, mean, std_dev
		FROM frames WHERE session_id = ? ORDER BY captured_at, rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var out []FrameRecord
	for rows.Next() {
		var (
			r            FrameRecord
			captured     string
			mean, stdDev sql.NullFloat64
		)
		if err := rows.Scan(&r.FrameID, &r.SessionID, &captured, &r.Format, &r.Bayer,
			&r.Bytes, &r.DynamicRange, &mean, &stdDev); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		if r.CapturedAt, err = parseTime(captured); err != nil {
			return nil, fmt.Errorf("parse captured_at for %s: %w", r.FrameID, err)
		}
		if mean.Valid {
			r.Mean, r.StdDev = &mean.Float64, &stdDev.Float64
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Counts returns the number of stats and error rows, optionally limited to
// one session.
func (s *Store) Counts(ctx context.Context, sessionID string) (stats, errs int, err error) {
	where, args := "", []interface{}{}
	if sessionID != "" {
		where, args = " WHERE session_id = ?", []interface{}{sessionID}
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stats`+where, args...).Scan(&stats); err != nil {
		return 0, 0, fmt.Errorf("count stats: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM errors`+where, args...).Scan(&errs); err != nil {
		return 0, 0, fmt.Errorf("count errors: %w", err)
	}
	return stats, errs, nil
}
