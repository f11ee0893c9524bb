package stats

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore persists daily aggregates so they survive restarts.
// Buckets are upserted on (day, platform).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed stats store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FoldSession(ctx context.Context, day string, sum SessionSummary) error {
	counts, err := json.Marshal(sum.SignalCounts)
	if err != nil {
		return fmt.Errorf("marshal signal counts: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO daily_stats (day, platform, sessions, total_interactions, peak_score, signal_counts)
		VALUES ($1, $2, 1, $3, $4, $5)
		ON CONFLICT (day, platform) DO UPDATE SET
			sessions = daily_stats.sessions + 1,
			total_interactions = daily_stats.total_interactions + EXCLUDED.total_interactions,
			peak_score = GREATEST(daily_stats.peak_score, EXCLUDED.peak_score),
			signal_counts = merge_counts(daily_stats.signal_counts, EXCLUDED.signal_counts)`,
		day, sum.Platform, sum.Interactions, sum.PeakScore, counts,
	)
	if err != nil {
		return fmt.Errorf("fold session: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountAlert(ctx context.Context, day, platform, level string) error {
	levelCount, err := json.Marshal(map[string]int{level: 1})
	if err != nil {
		return fmt.Errorf("marshal level count: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO daily_stats (day, platform, alerts, alerts_by_level)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (day, platform) DO UPDATE SET
			alerts = daily_stats.alerts + 1,
			alerts_by_level = merge_counts(daily_stats.alerts_by_level, EXCLUDED.alerts_by_level)`,
		day, platform, levelCount,
	)
	if err != nil {
		return fmt.Errorf("count alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, from, to string) ([]*DailyStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, platform, sessions, alerts, alerts_by_level, peak_score, total_interactions, signal_counts
		FROM daily_stats
		WHERE ($1 = '' OR day >= $1) AND ($2 = '' OR day <= $2)
		ORDER BY day, platform`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query daily stats: %w", err)
	}
	defer rows.Close()

	var out []*DailyStats
	for rows.Next() {
		var b DailyStats
		var byLevel, counts []byte
		if err := rows.Scan(&b.Day, &b.Platform, &b.Sessions, &b.Alerts,
			&byLevel, &b.PeakScore, &b.TotalInteractions, &counts); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(byLevel, &b.AlertsByLevel); err != nil {
			return nil, fmt.Errorf("unmarshal alerts_by_level: %w", err)
		}
		if err := json.Unmarshal(counts, &b.SignalCounts); err != nil {
			return nil, fmt.Errorf("unmarshal signal_counts: %w", err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}
