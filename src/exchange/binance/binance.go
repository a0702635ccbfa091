// Package binance fetches futures prices over the Binance WebSocket API.
package binance

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	FuturesAPIWebSocketBaseURL = "wss://ws-fapi.binance.com/ws-fapi/v1"
	defaultTimeout             = 10 * time.Second
)

type Client struct {
	url     string
	timeout time.Duration

	mu                           sync.Mutex
	closed                       bool
	futuresAPIWebSocketConn      *websocket.Conn
	futuresAPIWebSocketResponses map[string]chan *FuturesAPIWebSocketResponse

	// writeMu serializes writes; gorilla connections allow one writer at a time.
	writeMu sync.Mutex
}

func NewClient(url string, timeout time.Duration) *Client {
	if url == "" {
		url = FuturesAPIWebSocketBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:                          url,
		timeout:                      timeout,
		futuresAPIWebSocketResponses: make(map[string]chan *FuturesAPIWebSocketResponse, 100),
	}
}

func (c *Client) Clean() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.futuresAPIWebSocketConn != nil {
		c.futuresAPIWebSocketConn.Close()
		c.futuresAPIWebSocketConn = nil
	}
}
