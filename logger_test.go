package smtpagent

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConnectionLogger_OneJSONObjectPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tcp_accept.log")
	lg := NewConnectionLogger(path)
	lg.Info(EventAccepted,
		zap.String("client", "127.0.0.1"),
		zap.Uint16("port", 4321),
		zap.Int("fd", 7),
		zap.String("conn", "abc123"),
	)
	require.NoError(t, lg.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, EventAccepted, rec["event"])
	assert.Equal(t, "127.0.0.1", rec["client"])
	assert.Equal(t, float64(4321), rec["port"])
	assert.Equal(t, float64(7), rec["fd"])
	assert.Equal(t, "abc123", rec["conn"])

	ts, ok := rec["timestamp"].(string)
	require.True(t, ok, "timestamp must be a string")
	_, err = time.Parse("2006-01-02T15:04:05Z", ts)
	assert.NoError(t, err, "timestamp must be second-precision UTC ISO-8601")
}

func TestConnectionLogger_AppendsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tcp_accept.log")

	first := NewConnectionLogger(path)
	first.Info(EventAccepted)
	require.NoError(t, first.Sync())

	second := NewConnectionLogger(path)
	second.Info(EventRelayComplete)
	require.NoError(t, second.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), EventAccepted)
	assert.Contains(t, string(data), EventRelayComplete)
}

func TestConnectionLogger_ConcurrentAppendsNeverInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tcp_accept.log")
	lg := NewConnectionLogger(path)

	const writers = 16
	const perWriter = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				lg.Info(EventAccepted, zap.String("client", "127.0.0.1"), zap.Uint16("port", 9999))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, lg.Sync())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec), "every line must be a complete JSON object")
		lines++
	}
	assert.Equal(t, writers*perWriter, lines)
}

func TestConnectionLogger_FallsBackToStderr(t *testing.T) {
	// A path whose parent cannot be created must not fail the server;
	// the logger degrades to stderr instead.
	lg := NewConnectionLogger(string([]byte{0}) + "/nope/tcp_accept.log")
	require.NotNil(t, lg)
	assert.NotPanics(t, func() { lg.Info(EventAccepted) })
}
