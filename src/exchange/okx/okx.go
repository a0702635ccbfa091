// Package okx keeps the newest OKX mark price for every instrument it has
// been asked about.
package okx

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	PublicWebSocketBaseURL = "wss://ws.okx.com:8443/ws/v5/public"
	defaultTimeout         = 10 * time.Second
)

type Client struct {
	url     string
	timeout time.Duration

	mu                      sync.Mutex
	closed                  bool
	publicWebSocketConn     *websocket.Conn
	publicWebSocketHandlers map[string]func(*WebSocketStream)
	marks                   map[string]*mark

	writeMu sync.Mutex
}

type WebSocketRequest struct {
	ID   string          `json:"id"`
	OP   string          `json:"op"`
	Args []*WebSocketArg `json:"args"`
}

type WebSocketStream struct {
	Event string          `json:"event,omitempty"`
	Code  string          `json:"code,omitempty"`
	Msg   string          `json:"msg,omitempty"`
	Arg   *WebSocketArg   `json:"arg"`
	Data  json.RawMessage `json:"data"`
}

type WebSocketArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

func (a *WebSocketArg) Key() string {
	if a == nil {
		return ""
	}
	return a.Channel + "_" + a.InstID
}

// mark is the cached mark price of one instrument. ready closes on the first push.
type mark struct {
	ready chan struct{}
	once  sync.Once

	mu    sync.Mutex
	price decimal.Decimal
	time  int64
}

func newMark() *mark {
	return &mark{ready: make(chan struct{})}
}

func (m *mark) set(price decimal.Decimal, ts int64) {
	m.mu.Lock()
	if ts >= m.time {
		m.price = price
		m.time = ts
	}
	m.mu.Unlock()
	m.once.Do(func() { close(m.ready) })
}

func (m *mark) get() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.price
}

func NewClient(url string, timeout time.Duration) *Client {
	if url == "" {
		url = PublicWebSocketBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:                     url,
		timeout:                 timeout,
		publicWebSocketHandlers: make(map[string]func(*WebSocketStream), 100),
		marks:                   make(map[string]*mark),
	}
}

func (c *Client) Clean() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.publicWebSocketConn != nil {
		c.publicWebSocketConn.Close()
		c.publicWebSocketConn = nil
	}
}
