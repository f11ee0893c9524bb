package alerts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PostgresStore persists alerts to Postgres.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed alert store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Record(ctx context.Context, alert *Alert) error {
	results, err := json.Marshal(alert.DispatchResults)
	if err != nil {
		return fmt.Errorf("marshal dispatch results: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, session_id, user_id, platform, level, score, message, dispatch_results, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		alert.ID, alert.SessionID, alert.UserID, alert.Platform,
		alert.Level, alert.Score, alert.Message, results, alert.At,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*Alert, error) {
	query := `
		SELECT id, session_id, user_id, platform, level, score, message, dispatch_results, created_at
		FROM alerts`

	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, cond+"$"+strconv.Itoa(len(args)))
	}
	if f.SessionID != "" {
		add("session_id = ", f.SessionID)
	}
	if f.UserID != "" {
		add("user_id = ", f.UserID)
	}
	if f.Platform != "" {
		add("platform = ", f.Platform)
	}
	if f.Level != "" {
		add("level = ", f.Level)
	}
	if !f.Since.IsZero() {
		add("created_at >= ", f.Since)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []*Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) LastForSession(ctx context.Context, sessionID string) (*Alert, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, user_id, platform, level, score, message, dispatch_results, created_at
		FROM alerts
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, sessionID)

	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, ErrAlertNotFound
	}
	return a, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*Alert, error) {
	var a Alert
	var results []byte
	err := row.Scan(&a.ID, &a.SessionID, &a.UserID, &a.Platform,
		&a.Level, &a.Score, &a.Message, &results, &a.At)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &a.DispatchResults); err != nil {
			return nil, fmt.Errorf("unmarshal dispatch results: %w", err)
		}
	}
	return &a, nil
}
