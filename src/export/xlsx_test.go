package export

import (
	"bytes"
	"testing"
	"time"

	"stockticker/src/series"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWorkbook(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)
	snap := series.Snapshot{
		Axis:  []time.Time{base, base.Add(time.Second), base.Add(2 * time.Second)},
		Names: []string{"AAPL", "MSFT"},
		Values: map[string][]decimal.Decimal{
			"AAPL": {decimal.NewFromInt(180), decimal.RequireFromString("180.5"), decimal.NewFromInt(181)},
			"MSFT": {decimal.NewFromInt(410)},
		},
	}
	f, err := Workbook(snap)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	reopened, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer reopened.Close()
	rows, err := reopened.GetRows(SheetName)
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"Time", "AAPL", "MSFT"},
		{"10:00:00", "180", "410"},
		{"10:00:01", "180.5"},
		{"10:00:02", "181"},
	}, rows)
}

func TestWorkbookEmpty(t *testing.T) {
	f, err := Workbook(series.Snapshot{})
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Equal(t, [][]string{{"Time"}}, rows)
}
