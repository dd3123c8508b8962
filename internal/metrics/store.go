package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	metricsdb "ai-meal-coach/internal/metrics/metrics_db"
	"ai-meal-coach/internal/shared"
)

//go:generate sh -c "cd ../.. && sqlc generate"

// ExecutionMetric records metadata for a single generation call.
type ExecutionMetric struct {
	AgentName        string
	Model            string
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
	Timestamp        time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	queries *metricsdb.Queries
	now     func() time.Time
}

// NewStore initializes the Store with an existing database connection.
// The connection is owned by the caller.
func NewStore(db *sql.DB) *Store {
	return &Store{
		queries: metricsdb.New(db),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Record saves a metric to the database.
func (s *Store) Record(m ExecutionMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	err := s.queries.InsertExecutionMetric(context.Background(), metricsdb.InsertExecutionMetricParams{
		AgentName:        m.AgentName,
		Model:            m.Model,
		PromptTokens:     int64(m.PromptTokens),
		CompletionTokens: int64(m.CompletionTokens),
		LatencyMs:        m.LatencyMS,
		Timestamp:        ts.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to record metric for %s: %w", m.AgentName, err)
	}
	return nil
}

// RecordMeta records metrics directly from shared.AgentMeta. Calls that
// consumed no tokens are skipped.
func (s *Store) RecordMeta(meta shared.AgentMeta) error {
	if meta.Usage.PromptTokens == 0 && meta.Usage.CompletionTokens == 0 {
		return nil
	}
	return s.Record(MapUsage(meta.AgentName, meta.Usage, meta.Latency))
}

// DailyUsage represents token totals for a single day.
type DailyUsage struct {
	Date            string
	TotalPrompt     int
	TotalCompletion int
	TotalExecution  int
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(days int) ([]DailyUsage, error) {
	since := s.now().AddDate(0, 0, -days)
	rows, err := s.queries.GetDailyUsage(context.Background(), since)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily usage: %w", err)
	}

	results := make([]DailyUsage, 0, len(rows))
	for _, r := range rows {
		u := DailyUsage{
			Date:            "Unknown",
			TotalPrompt:     int(r.TotalPrompt),
			TotalCompletion: int(r.TotalCompletion),
			TotalExecution:  int(r.Executions),
		}
		if r.Day.Valid {
			u.Date = r.Day.String
		}
		results = append(results, u)
	}
	return results, nil
}

// Cleanup removes records older than the specified number of days and
// reports how many were deleted.
func (s *Store) Cleanup(olderThanDays int) (int64, error) {
	threshold := s.now().AddDate(0, 0, -olderThanDays)
	n, err := s.queries.CleanupExecutionMetrics(context.Background(), threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up metrics: %w", err)
	}
	return n, nil
}

// MapUsage converts token usage to an ExecutionMetric.
func MapUsage(agentName string, usage shared.TokenUsage, latency time.Duration) ExecutionMetric {
	return ExecutionMetric{
		AgentName:        agentName,
		Model:            usage.Model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		LatencyMS:        latency.Milliseconds(),
		Timestamp:        time.Now().UTC(),
	}
}
