package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"stockticker/src/common"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestHistory(t *testing.T) {
	t.Run("FormatParse", func(t *testing.T) {
		testFormatParse(t)
	})
	t.Run("Recorder", func(t *testing.T) {
		testRecorder(t)
	})
}

func testFormatParse(t *testing.T) {
	at := time.Unix(1700000000, 0)
	msg := Format(at, "AAPL", decimal.RequireFromString("181.25"))
	require.Equal(t, "1700000000,AAPL,181.25", msg)

	s, err := Parse(msg)
	require.NoError(t, err)
	require.Equal(t, &Sample{Timestamp: 1700000000, Symbol: "AAPL", Value: 181.25}, s)

	for _, bad := range []string{"", "1,2", "x,AAPL,1", "1,AAPL,y", "1,A,2,3"} {
		_, err = Parse(bad)
		require.Error(t, err, bad)
	}
}

func testRecorder(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir, 24*time.Hour)
	r.Record(time.Unix(1700000000, 0), "AAPL", decimal.NewFromInt(180))
	r.Record(time.Unix(1700000001, 0), "MSFT", decimal.RequireFromString("410.5"))
	_ = r.Sync()

	raw, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	var data common.LogData
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &data))
	require.Equal(t, "info", data.Level)
	require.Equal(t, "1700000001,MSFT,410.5", data.Message)
}
