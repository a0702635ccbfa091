package quote

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	require.Equal(t, "AAPL", Normalize("aapl"))
	require.Equal(t, "BRK.B", Normalize("  brk.b \n"))
	require.Equal(t, "", Normalize("   "))
}

func TestSourceFunc(t *testing.T) {
	var got Request
	src := SourceFunc(func(_ context.Context, req Request) (decimal.Decimal, error) {
		got = req
		return decimal.NewFromInt(7), nil
	})
	v, err := src.FetchLatest(context.Background(), Request{Symbol: "X", Interval: "1m"})
	require.NoError(t, err)
	require.True(t, v.Equal(decimal.NewFromInt(7)))
	require.Equal(t, "X", got.Symbol)
}
