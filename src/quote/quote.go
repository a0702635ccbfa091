// Package quote defines how the sampler asks a market-data provider for the
// latest value of a symbol.
package quote

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoData means the provider knows nothing about the symbol right now.
var ErrNoData = errors.New("no data")

// Request names the symbol and the bar shape to look at. Interval is a
// provider bar size such as "1m"; Period is how far back to look.
type Request struct {
	Symbol   string
	Interval string
	Period   time.Duration
}

// Source fetches the latest value for a symbol. Implementations return
// ErrNoData for unknown or unavailable symbols and any other error for
// transport failures.
type Source interface {
	FetchLatest(ctx context.Context, req Request) (decimal.Decimal, error)
}

// Releaser is implemented by sources that hold resources per symbol, such as
// stream subscriptions. Release is called once a symbol is no longer sampled.
type Releaser interface {
	Release(symbol string)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, req Request) (decimal.Decimal, error)

func (f SourceFunc) FetchLatest(ctx context.Context, req Request) (decimal.Decimal, error) {
	return f(ctx, req)
}

// Normalize trims and upper-cases a user supplied symbol.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
