// Package yahoo reads quotes from Yahoo Finance chart bars.
package yahoo

import (
	"context"
	"fmt"
	"time"

	"stockticker/src/common"
	"stockticker/src/quote"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"
)

// Bar is the part of a chart bar the source looks at.
type Bar struct {
	Close decimal.Decimal
}

// BarsFunc loads the bars for a request. Client uses chart.Get unless a test
// swaps it out.
type BarsFunc func(params *chart.Params) ([]Bar, error)

const defaultTimeout = 10 * time.Second

type Client struct {
	bars    BarsFunc
	now     func() time.Time
	timeout time.Duration
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{bars: getBars, now: time.Now, timeout: timeout}
}

// NewClientWithBars is used by tests to avoid the network.
func NewClientWithBars(bars BarsFunc, now func() time.Time) *Client {
	return &Client{bars: bars, now: now, timeout: defaultTimeout}
}

type barsResult struct {
	bars []Bar
	err  error
}

// FetchLatest returns the close of the newest non-empty bar in the lookback window.
func (c *Client) FetchLatest(ctx context.Context, req quote.Request) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	if req.Symbol == "" {
		return decimal.Zero, quote.ErrNoData
	}
	now := c.now()
	start := now.Add(-req.Period)
	// End is a day ahead because chart params only carry calendar dates.
	end := now.Add(24 * time.Hour)
	params := &chart.Params{
		Symbol:   req.Symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.Interval(req.Interval),
	}
	// chart.Get takes no context, so the call is abandoned rather than canceled.
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resCh := make(chan barsResult, 1)
	common.Go(func() {
		bars, err := c.bars(params)
		resCh <- barsResult{bars: bars, err: err}
	})
	var res barsResult
	select {
	case res = <-resCh:
	case <-ctx.Done():
		return decimal.Zero, fmt.Errorf("yahoo chart %s: %w", req.Symbol, ctx.Err())
	}
	bars, err := res.bars, res.err
	if err != nil {
		return decimal.Zero, fmt.Errorf("yahoo chart %s: %w", req.Symbol, err)
	}
	for i := len(bars) - 1; i >= 0; i-- {
		if !bars[i].Close.IsZero() {
			return bars[i].Close, nil
		}
	}
	return decimal.Zero, quote.ErrNoData
}

func getBars(params *chart.Params) ([]Bar, error) {
	iter := chart.Get(params)
	var bars []Bar
	for iter.Next() {
		bars = append(bars, Bar{Close: iter.Bar().Close})
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return bars, nil
}
