package latlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStagesAccumulate(t *testing.T) {
	s := StartStages()
	time.Sleep(2 * time.Millisecond)
	s.Mark("features")
	time.Sleep(time.Millisecond)
	s.Mark("slippage")

	ms := s.Millis()
	assert.GreaterOrEqual(t, ms["features"], 1.0)
	assert.GreaterOrEqual(t, ms["slippage"], 0.5)
	assert.GreaterOrEqual(t, s.TotalMs(), ms["features"])
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Record("BTCUSDT", StartStages(), nil)
	l.Close()

	assert.Nil(t, New("", "svc"))
	assert.Nil(t, New(t.TempDir(), " "))
}

func TestRecordWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, "okx-estimator")
	require.NotNil(t, l)

	s := StartStages()
	s.Mark("features")
	l.Record("BTCUSDT", s, map[string]any{"total_cost": 12.5})
	l.Close()

	matches, err := filepath.Glob(filepath.Join(dir, "okx-estimator-*.jsonl"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	f, err := os.Open(matches[0])
	require.NoError(t, err)
	defer f.Close()

	sc := bufio.NewScanner(f)
	require.True(t, sc.Scan())
	var entry map[string]any
	require.NoError(t, json.Unmarshal(sc.Bytes(), &entry))
	assert.Equal(t, "BTCUSDT", entry["symbol"])
	assert.Equal(t, "estimate", entry["event"])
	assert.Equal(t, 12.5, entry["total_cost"])
	assert.Contains(t, entry, "stage_features_ms")
}
