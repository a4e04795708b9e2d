package exporter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/reillywatson/leadtime/internal/leadtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var window = leadtime.Window{
	Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
}

func TestRecord(t *testing.T) {
	e := New()
	require.NoError(t, e.Record(window, []leadtime.Sample{{Hours: 12}, {Hours: 6}}))

	assert.Equal(t, 2.0, testutil.ToFloat64(e.deployed))
	assert.Equal(t, 9.0, testutil.ToFloat64(e.mean))
	assert.Equal(t, float64(window.Start.Unix()), testutil.ToFloat64(e.windowStart))
	assert.Equal(t, 1, testutil.CollectAndCount(e.leadTime))

	// recording again must not fail on the mean gauge registration
	require.NoError(t, e.Record(window, []leadtime.Sample{{Hours: 1}}))
}

func TestWriteFile(t *testing.T) {
	e := New()
	require.NoError(t, e.Record(window, []leadtime.Sample{{Hours: 12}}))

	path := filepath.Join(t.TempDir(), "leadtime.prom")
	require.NoError(t, e.WriteFile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)
	assert.Contains(t, out, `leadtime_commit_to_prod_hours_bucket{le="12"} 1`)
	assert.Contains(t, out, "leadtime_commit_to_prod_hours_count 1")
	assert.Contains(t, out, "leadtime_commit_to_prod_mean_hours 12")
	assert.Contains(t, out, "leadtime_deployed_commits 1")
}

func TestWriteFile_NoData(t *testing.T) {
	e := New()
	require.NoError(t, e.Record(window, nil))

	path := filepath.Join(t.TempDir(), "leadtime.prom")
	require.NoError(t, e.WriteFile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "leadtime_deployed_commits 0")
	assert.NotContains(t, string(raw), "leadtime_commit_to_prod_mean_hours")
}

func TestWriteFile_BadPath(t *testing.T) {
	e := New()
	assert.Error(t, e.WriteFile(filepath.Join(t.TempDir(), "missing", "dir", "leadtime.prom")))
}
