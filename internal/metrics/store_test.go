package metrics_test

import (
	"path/filepath"
	"testing"
	"time"

	"ai-meal-coach/internal/database"
	"ai-meal-coach/internal/metrics"
	"ai-meal-coach/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStore(t *testing.T) *metrics.Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "metrics.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return metrics.NewStore(db.SQL)
}

func TestStore_RecordAndDailyUsage(t *testing.T) {
	s := newStore(t)
	now := time.Now().UTC()

	require.NoError(t, s.RecordMeta(shared.AgentMeta{
		AgentName: "planner:generate",
		Usage:     shared.TokenUsage{PromptTokens: 100, CompletionTokens: 40, Model: "gpt-4o-mini"},
		Latency:   1500 * time.Millisecond,
	}))
	require.NoError(t, s.Record(metrics.ExecutionMetric{AgentName: "planner:regenerate-meal", PromptTokens: 10, CompletionTokens: 5, Timestamp: now}))
	require.NoError(t, s.Record(metrics.ExecutionMetric{AgentName: "planner:generate", PromptTokens: 7, CompletionTokens: 3, Timestamp: now.AddDate(0, 0, -2)}))

	// Zero-token calls are not worth a row.
	require.NoError(t, s.RecordMeta(shared.AgentMeta{AgentName: "planner:generate"}))

	usage, err := s.GetDailyUsage(7)
	require.NoError(t, err)
	require.Len(t, usage, 2)
	assert.Equal(t, now.Format("2006-01-02"), usage[0].Date)
	assert.Equal(t, 110, usage[0].TotalPrompt)
	assert.Equal(t, 45, usage[0].TotalCompletion)
	assert.Equal(t, 2, usage[0].TotalExecution)
	assert.Equal(t, 1, usage[1].TotalExecution)
}

func TestStore_Cleanup(t *testing.T) {
	s := newStore(t)
	now := time.Now().UTC()
	for _, age := range []int{0, 10, 40, 60} {
		require.NoError(t, s.Record(metrics.ExecutionMetric{AgentName: "a", PromptTokens: 1, Timestamp: now.AddDate(0, 0, -age)}))
	}

	n, err := s.Cleanup(30)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	usage, err := s.GetDailyUsage(365)
	require.NoError(t, err)
	assert.Len(t, usage, 2)
}

func TestMapUsage(t *testing.T) {
	m := metrics.MapUsage("planner:generate", shared.TokenUsage{PromptTokens: 3, CompletionTokens: 4, Model: "m"}, 2*time.Second)
	assert.Equal(t, "m", m.Model)
	assert.Equal(t, int64(2000), m.LatencyMS)
	assert.False(t, m.Timestamp.IsZero())
}

func TestSysHealth(t *testing.T) {
	h := metrics.GetSysHealth(t.TempDir())
	assert.Positive(t, h.Goroutines)
	assert.Equal(t, "0 B", h.DataDiskSize)
	assert.Empty(t, metrics.GetSysHealth("").DataDiskSize)
	assert.Equal(t, "1.5 KB", metrics.FormatBytes(1536))
}
