package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"routine-desk/server/config"
	"routine-desk/server/internal/dto"
	"routine-desk/server/pkg/metrics"
)

type mockCleaner struct {
	removed int
	calls   int
}

func (m *mockCleaner) Cleanup(_ context.Context) *dto.CleanupResponse {
	m.calls++
	return &dto.CleanupResponse{Today: "2024-05-01", Removed: m.removed}
}

func purgedTotal(t *testing.T, m *metrics.Metrics) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "routine_desk_class_off_purged_total" {
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestScheduler_RunCleanup(t *testing.T) {
	cleaner := &mockCleaner{removed: 3}
	m := metrics.New()
	s, err := New(&config.SchedulerConfig{}, time.UTC, cleaner, m, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 3, s.RunCleanup(context.Background()))
	assert.Equal(t, 1, cleaner.calls)
	assert.Equal(t, 3.0, purgedTotal(t, m))

	cleaner.removed = 0
	s.RunCleanup(context.Background())
	assert.Equal(t, 3.0, purgedTotal(t, m), "未移除记录时计数不变")
}

func TestScheduler_InvalidSpec(t *testing.T) {
	_, err := New(&config.SchedulerConfig{ClassOffCleanup: "every day"}, time.UTC, &mockCleaner{}, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestScheduler_StartStop(t *testing.T) {
	s, err := New(&config.SchedulerConfig{ClassOffCleanup: "@every 1h"}, time.UTC, &mockCleaner{}, nil, zap.NewNop())
	require.NoError(t, err)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
