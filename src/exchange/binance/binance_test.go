package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"stockticker/src/quote"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestBinance(t *testing.T) {
	t.Run("FuturesAPI", func(t *testing.T) {
		testFuturesAPIPriceTicker(t)
	})
	t.Run("UnknownSymbol", func(t *testing.T) {
		testUnknownSymbol(t)
	})
	t.Run("Concurrent", func(t *testing.T) {
		testConcurrentFetch(t)
	})
	t.Run("Timeout", func(t *testing.T) {
		testTimeout(t)
	})
}

func newFuturesAPIServer(t *testing.T, prices map[string]string, reply bool) string {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var req FuturesAPIWebSocketRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if !reply {
				continue
			}
			var params map[string]string
			_ = json.Unmarshal(req.Params, &params)
			resp := map[string]any{"id": req.ID}
			if price, ok := prices[params["symbol"]]; ok && req.Method == "ticker.price" {
				resp["status"] = 200
				resp["result"] = map[string]any{"symbol": params["symbol"], "price": price, "time": 1700000000000}
			} else {
				resp["status"] = 400
				resp["error"] = map[string]any{"code": -1121, "msg": "Invalid symbol."}
			}
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testFuturesAPIPriceTicker(t *testing.T) {
	cli := NewClient(newFuturesAPIServer(t, map[string]string{"BTCUSDT": "64123.10"}, true), time.Second)
	defer cli.Clean()
	price, err := cli.FetchLatest(context.Background(), quote.Request{Symbol: "BTCUSDT"})
	require.NoError(t, err)
	require.Equal(t, "64123.1", price.String())

	ticker := NewFuturesAPIWebSocketPriceTicker("BTCUSDT")
	resp, err := cli.Call(context.Background(), ticker.Request())
	require.NoError(t, err)
	_, err = ticker.Response(resp)
	require.NoError(t, err)
	require.Equal(t, "BTCUSDT", ticker.Symbol)
	require.NotZero(t, ticker.Time)
}

func testUnknownSymbol(t *testing.T) {
	cli := NewClient(newFuturesAPIServer(t, map[string]string{}, true), time.Second)
	defer cli.Clean()
	_, err := cli.FetchLatest(context.Background(), quote.Request{Symbol: "NOPE"})
	require.ErrorIs(t, err, quote.ErrNoData)
}

func testConcurrentFetch(t *testing.T) {
	prices := map[string]string{"BTCUSDT": "1", "ETHUSDT": "2", "SOLUSDT": "3"}
	cli := NewClient(newFuturesAPIServer(t, prices, true), time.Second)
	defer cli.Clean()
	var wg sync.WaitGroup
	for range 5 {
		for symbol, want := range prices {
			wg.Add(1)
			go func() {
				defer wg.Done()
				price, err := cli.FetchLatest(context.Background(), quote.Request{Symbol: symbol})
				require.NoError(t, err)
				require.Equal(t, want, price.String())
			}()
		}
	}
	wg.Wait()
}

func testTimeout(t *testing.T) {
	cli := NewClient(newFuturesAPIServer(t, nil, false), 50*time.Millisecond)
	defer cli.Clean()
	_, err := cli.FetchLatest(context.Background(), quote.Request{Symbol: "BTCUSDT"})
	require.Error(t, err)
	require.NotErrorIs(t, err, quote.ErrNoData)

	cli.Clean()
	_, err = cli.FetchLatest(context.Background(), quote.Request{Symbol: "BTCUSDT"})
	require.ErrorIs(t, err, errClosed)
}
