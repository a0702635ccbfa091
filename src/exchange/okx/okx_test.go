package okx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"stockticker/src/quote"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestOKX(t *testing.T) {
	t.Run("MarkPrice", func(t *testing.T) {
		testMarkPrice(t)
	})
	t.Run("UnknownInstrument", func(t *testing.T) {
		testUnknownInstrument(t)
	})
	t.Run("Newest", func(t *testing.T) {
		testNewest(t)
	})
	t.Run("Release", func(t *testing.T) {
		testRelease(t)
	})
}

type markServer struct {
	url          string
	subscribes   atomic.Int32
	unsubscribes atomic.Int32
}

func newMarkServer(t *testing.T, prices map[string]string) *markServer {
	s := &markServer{}
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var req WebSocketRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if req.OP == "unsubscribe" {
				s.unsubscribes.Add(1)
				for _, arg := range req.Args {
					_ = conn.WriteJSON(map[string]any{"event": "unsubscribe", "arg": arg})
				}
				continue
			}
			s.subscribes.Add(1)
			for _, arg := range req.Args {
				price, ok := prices[arg.InstID]
				if !ok {
					_ = conn.WriteJSON(map[string]any{"event": "error", "code": "60018", "msg": "doesn't exist"})
					continue
				}
				_ = conn.WriteJSON(map[string]any{"event": "subscribe", "arg": arg})
				_ = conn.WriteJSON(map[string]any{
					"arg": arg,
					"data": []map[string]string{
						{"instType": "SWAP", "instId": arg.InstID, "markPx": "1", "ts": "1700000000000"},
						{"instType": "SWAP", "instId": arg.InstID, "markPx": price, "ts": "1700000000500"},
					},
				})
			}
		}
	}))
	t.Cleanup(srv.Close)
	s.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return s
}

func testMarkPrice(t *testing.T) {
	srv := newMarkServer(t, map[string]string{"BTC-USDT-SWAP": "64001.5"})
	cli := NewClient(srv.url, time.Second)
	defer cli.Clean()

	price, err := cli.FetchLatest(context.Background(), quote.Request{Symbol: "BTC-USDT-SWAP"})
	require.NoError(t, err)
	require.Equal(t, "64001.5", price.String())

	price, err = cli.FetchLatest(context.Background(), quote.Request{Symbol: "BTC-USDT-SWAP"})
	require.NoError(t, err)
	require.Equal(t, "64001.5", price.String())
	require.Equal(t, int32(1), srv.subscribes.Load())
}

func testUnknownInstrument(t *testing.T) {
	srv := newMarkServer(t, map[string]string{})
	cli := NewClient(srv.url, 100*time.Millisecond)
	defer cli.Clean()

	_, err := cli.FetchLatest(context.Background(), quote.Request{Symbol: "NOPE-USDT-SWAP"})
	require.ErrorIs(t, err, quote.ErrNoData)

	_, err = cli.FetchLatest(context.Background(), quote.Request{})
	require.ErrorIs(t, err, quote.ErrNoData)
}

func testNewest(t *testing.T) {
	prices := PublicWebSocketMarkPrices{
		{InstID: "A", Timestamp: "1700000000001"},
		{InstID: "B", Timestamp: "1700000000009"},
		{InstID: "C", Timestamp: "1700000000005"},
	}
	require.Equal(t, "B", prices.Newest().InstID)
	require.Nil(t, (&PublicWebSocketMarkPrices{}).Newest())

	req := NewPublicWebSocketMarkPrices("ETH-USDT-SWAP").Subscribe()
	require.Equal(t, "subscribe", req.OP)
	require.Len(t, req.Args, 1)
	require.Equal(t, "mark-price_ETH-USDT-SWAP", req.Args[0].Key())
}

func testRelease(t *testing.T) {
	srv := newMarkServer(t, map[string]string{"BTC-USDT-SWAP": "64001.5"})
	cli := NewClient(srv.url, time.Second)
	defer cli.Clean()

	cli.Release("BTC-USDT-SWAP")
	require.Equal(t, int32(0), srv.unsubscribes.Load())

	_, err := cli.FetchLatest(context.Background(), quote.Request{Symbol: "BTC-USDT-SWAP"})
	require.NoError(t, err)
	cli.Release("BTC-USDT-SWAP")
	require.Eventually(t, func() bool { return srv.unsubscribes.Load() == 1 }, time.Second, 5*time.Millisecond)
	cli.mu.Lock()
	require.Empty(t, cli.marks)
	require.Empty(t, cli.publicWebSocketHandlers)
	cli.mu.Unlock()

	price, err := cli.FetchLatest(context.Background(), quote.Request{Symbol: "BTC-USDT-SWAP"})
	require.NoError(t, err)
	require.Equal(t, "64001.5", price.String())
	require.Equal(t, int32(2), srv.subscribes.Load())

	unsub := NewPublicWebSocketMarkPrices("BTC-USDT-SWAP").Unsubscribe()
	require.Equal(t, "unsubscribe", unsub.OP)
}
