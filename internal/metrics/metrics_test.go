package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveSuccess(t *testing.T) {
	m := New()
	finished := time.Date(2025, 10, 21, 9, 30, 0, 0, time.UTC)

	m.Observe(Run{
		Mode:           "normal",
		Readings:       65,
		Batches:        3,
		Duration:       25 * time.Second,
		Finished:       finished,
		CheckpointTime: 1761038700,
		CheckpointWh:   1070,
	})

	assert.Equal(t, 65.0, testutil.ToFloat64(m.readings.WithLabelValues("normal")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.batches.WithLabelValues("normal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.success.WithLabelValues("normal")))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.duration.WithLabelValues("normal")))
	assert.Equal(t, float64(finished.Unix()), testutil.ToFloat64(m.lastSuccess))
	assert.Equal(t, 1761038700.0, testutil.ToFloat64(m.checkpointTime))
	assert.Equal(t, 1070.0, testutil.ToFloat64(m.checkpointWh))
}

func TestObserveFailure(t *testing.T) {
	m := New()

	m.Observe(Run{Mode: "repost", Readings: 30, Batches: 1, Err: errors.New("boom"), Finished: time.Now()})

	assert.Equal(t, 0.0, testutil.ToFloat64(m.success.WithLabelValues("repost")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.lastSuccess), "failed runs do not move the success time")
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.Observe(Run{Mode: "normal", Readings: 2, Batches: 1, Finished: time.Now()})

	path := filepath.Join(t.TempDir(), "pvrelay.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `pvrelay_readings_submitted{mode="normal"} 2`)
	assert.Contains(t, string(data), "pvrelay_last_run_success")
}

func TestTextfileCarriesStateAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pvrelay.prom")
	normalDone := time.Date(2025, 10, 21, 9, 30, 0, 0, time.UTC)
	repostDone := time.Date(2025, 10, 21, 9, 35, 0, 0, time.UTC)

	// each CLI invocation starts from a fresh registry
	runOnce := func(run Run) {
		m := New()
		require.NoError(t, m.Restore(path))
		m.Observe(run)
		require.NoError(t, m.WriteTextfile(path))
	}

	runOnce(Run{Mode: "normal", Readings: 2, Batches: 1, Finished: normalDone, CheckpointTime: 1761039900, CheckpointWh: 1070})
	runOnce(Run{Mode: "repost", Readings: 200, Batches: 7, Finished: repostDone})

	m := New()
	require.NoError(t, m.Restore(path))
	assert.Equal(t, 1761039900.0, testutil.ToFloat64(m.checkpointTime), "repost keeps the checkpoint gauges")
	assert.Equal(t, 1070.0, testutil.ToFloat64(m.checkpointWh))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.readings.WithLabelValues("normal")), "normal series survive a repost")
	assert.Equal(t, 200.0, testutil.ToFloat64(m.readings.WithLabelValues("repost")))
	assert.Equal(t, float64(repostDone.Unix()), testutil.ToFloat64(m.lastSuccess))

	runOnce(Run{Mode: "normal", Finished: repostDone.Add(5 * time.Minute), Err: errors.New("status 400"), CheckpointTime: 1761039900, CheckpointWh: 1070})

	m = New()
	require.NoError(t, m.Restore(path))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.success.WithLabelValues("normal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.success.WithLabelValues("repost")))
	assert.Equal(t, float64(repostDone.Unix()), testutil.ToFloat64(m.lastSuccess), "a failure keeps the last success time")
	assert.Equal(t, 1761039900.0, testutil.ToFloat64(m.checkpointTime))
	assert.Equal(t, 1070.0, testutil.ToFloat64(m.checkpointWh))
}

func TestObserveFailureReportsCheckpoint(t *testing.T) {
	m := New()
	m.Observe(Run{Mode: "normal", Err: errors.New("timeout"), CheckpointTime: 1761038700, CheckpointWh: 900})

	assert.Equal(t, 1761038700.0, testutil.ToFloat64(m.checkpointTime))
	assert.Equal(t, 900.0, testutil.ToFloat64(m.checkpointWh))
}

func TestRestoreMissingFile(t *testing.T) {
	m := New()
	require.NoError(t, m.Restore(filepath.Join(t.TempDir(), "none.prom")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.lastSuccess))
}

func TestRestoreRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pvrelay.prom")
	require.NoError(t, os.WriteFile(path, []byte("pvrelay_last_run_success{mode=\"normal\" 1\n"), 0644))

	assert.Error(t, New().Restore(path))
}
