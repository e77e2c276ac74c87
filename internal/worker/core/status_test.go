package core_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/robalyx/guildpulse/internal/worker/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMonitor(t *testing.T) (*core.Monitor, rueidis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return core.NewMonitor(client, zap.NewNop()), client
}

func TestMonitorReportAndList(t *testing.T) {
	t.Parallel()

	monitor, _ := setupMonitor(t)
	ctx := t.Context()

	require.NoError(t, monitor.ReportStatus(ctx, core.Status{
		WorkerID:    "a",
		WorkerType:  "scheduler",
		CurrentTask: "Analyzing guilds",
		Progress:    40,
		IsHealthy:   true,
	}))
	require.NoError(t, monitor.ReportStatus(ctx, core.Status{
		WorkerID:   "b",
		WorkerType: "bot",
		IsHealthy:  false,
	}))

	statuses, err := monitor.GetAllStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	byID := map[string]core.Status{}
	for _, s := range statuses {
		byID[s.WorkerID] = s
	}

	assert.Equal(t, "Analyzing guilds", byID["a"].CurrentTask)
	assert.Equal(t, 40, byID["a"].Progress)
	assert.True(t, byID["a"].IsHealthy)
	assert.False(t, byID["b"].IsHealthy)
	assert.False(t, byID["a"].IsStale(time.Now()))
	assert.True(t, byID["a"].IsStale(time.Now().Add(2*time.Minute)))
}

func TestStatusReporterUpdates(t *testing.T) {
	t.Parallel()

	_, client := setupMonitor(t)

	reporter := core.NewStatusReporter(client, "scheduler", zap.NewNop())
	reporter.UpdateStatus("Waiting for next hour", 0)
	reporter.SetHealthy(false)

	status := reporter.Status()
	assert.Equal(t, "scheduler", status.WorkerType)
	assert.Equal(t, "Waiting for next hour", status.CurrentTask)
	assert.False(t, status.IsHealthy)
	assert.NotEmpty(t, reporter.GetWorkerID())

	reporter.Stop()
	reporter.Stop()
}
