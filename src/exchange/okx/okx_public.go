package okx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stockticker/src/common"
	"stockticker/src/quote"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const markPriceChannel = "mark-price"

var errClosed = errors.New("okx client closed")

func (c *Client) conn(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errClosed
	}
	if c.publicWebSocketConn != nil {
		return c.publicWebSocketConn, nil
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, err
	}
	c.publicWebSocketConn = conn
	common.Go(func() { c.readPublicWebSocketMessages(conn) })
	return conn, nil
}

// readPublicWebSocketMessages dispatches pushes until conn fails. Every
// subscription lives on one connection, so a failure forgets all of them and
// the next fetch subscribes again.
func (c *Client) readPublicWebSocketMessages(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			if c.publicWebSocketConn == conn {
				c.publicWebSocketConn = nil
				c.publicWebSocketHandlers = make(map[string]func(*WebSocketStream), 100)
				c.marks = make(map[string]*mark)
			}
			c.mu.Unlock()
			conn.Close()
			if !closed {
				common.Logger.Sugar().Warnf("OKX ReadPublicWebSocketMessages ReadMessage error: %v", err)
			}
			return
		}
		var stream WebSocketStream
		err = json.Unmarshal(message, &stream)
		if err != nil {
			common.Logger.Sugar().Warnf("OKX ReadPublicWebSocketMessages Unmarshal error: %v %s", err, string(message))
			continue
		}
		switch stream.Event {
		case "subscribe", "unsubscribe":
			continue
		case "error":
			common.Logger.Sugar().Warnf("OKX ReadPublicWebSocketMessages error event %s: %s", stream.Code, stream.Msg)
			continue
		}
		c.mu.Lock()
		hand, ok := c.publicWebSocketHandlers[stream.Arg.Key()]
		c.mu.Unlock()
		if ok {
			hand(&stream)
		} else {
			common.Logger.Sugar().Warnf("OKX ReadPublicWebSocketMessages No handler for message: %s", string(message))
		}
	}
}

func (c *Client) Subscribe(ctx context.Context, request *WebSocketRequest, handler func(*WebSocketStream)) error {
	if request == nil || handler == nil {
		return fmt.Errorf("SubscribePublicWebSocket request/handler is empty")
	}
	conn, err := c.conn(ctx)
	if err != nil {
		return fmt.Errorf("SubscribePublicWebSocket connect: %w", err)
	}
	c.mu.Lock()
	for _, arg := range request.Args {
		c.publicWebSocketHandlers[arg.Key()] = handler
	}
	c.mu.Unlock()
	request.ID = strings.Replace(uuid.New().String(), "-", "", -1)
	c.writeMu.Lock()
	err = conn.WriteJSON(request)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("SubscribePublicWebSocket WriteJSON error: %v", err)
	}
	return nil
}

// markFor returns the cache entry for instID, subscribing when it is new.
func (c *Client) markFor(ctx context.Context, instID string) (*mark, error) {
	c.mu.Lock()
	m, ok := c.marks[instID]
	if ok {
		c.mu.Unlock()
		return m, nil
	}
	m = newMark()
	c.marks[instID] = m
	c.mu.Unlock()

	price := NewPublicWebSocketMarkPrices(instID)
	err := c.Subscribe(ctx, price.Subscribe(), func(stream *WebSocketStream) {
		// A fresh slice per push; the handler runs on the reader goroutine only.
		latest := &PublicWebSocketMarkPrices{}
		if _, err := latest.Stream(stream); err != nil {
			common.Logger.Sugar().Warnf("OKX mark price %s Stream error: %v", instID, err)
			return
		}
		if p := latest.Newest(); p != nil {
			ts, _ := strconv.ParseInt(p.Timestamp, 10, 64)
			m.set(p.MarkPrice, ts)
		}
	})
	if err != nil {
		c.forget(instID, m)
		return nil, err
	}
	return m, nil
}

func (c *Client) forget(instID string, m *mark) {
	c.mu.Lock()
	if c.marks[instID] == m {
		delete(c.marks, instID)
		delete(c.publicWebSocketHandlers, (&WebSocketArg{Channel: markPriceChannel, InstID: instID}).Key())
	}
	c.mu.Unlock()
}

// Release unsubscribes from the mark price of symbol and drops its cache entry.
func (c *Client) Release(symbol string) {
	c.mu.Lock()
	m, ok := c.marks[symbol]
	conn := c.publicWebSocketConn
	c.mu.Unlock()
	if !ok {
		return
	}
	c.forget(symbol, m)
	if conn == nil {
		return
	}
	request := NewPublicWebSocketMarkPrices(symbol).Unsubscribe()
	request.ID = strings.Replace(uuid.New().String(), "-", "", -1)
	c.writeMu.Lock()
	err := conn.WriteJSON(request)
	c.writeMu.Unlock()
	if err != nil {
		common.Logger.Sugar().Warnf("OKX Release %s WriteJSON error: %v", symbol, err)
	}
}

// FetchLatest returns the cached mark price of req.Symbol, an OKX instId such
// as BTC-USDT-SWAP. The first call for a symbol waits up to the client
// timeout for the first push.
func (c *Client) FetchLatest(ctx context.Context, req quote.Request) (decimal.Decimal, error) {
	if req.Symbol == "" {
		return decimal.Zero, quote.ErrNoData
	}
	m, err := c.markFor(ctx, req.Symbol)
	if err != nil {
		return decimal.Zero, err
	}
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case <-m.ready:
	case <-timer.C:
		c.forget(req.Symbol, m)
		return decimal.Zero, fmt.Errorf("%w: no mark price for %s within %s", quote.ErrNoData, req.Symbol, c.timeout)
	case <-ctx.Done():
		return decimal.Zero, ctx.Err()
	}
	price := m.get()
	if price.IsZero() {
		return decimal.Zero, quote.ErrNoData
	}
	return price, nil
}

type PublicWebSocketMarkPrices []*PublicWebSocketMarkPrice

type PublicWebSocketMarkPrice struct {
	InstType  string          `json:"instType"`
	InstID    string          `json:"instId"`
	MarkPrice decimal.Decimal `json:"markPx"`
	Timestamp string          `json:"ts"`
}

func NewPublicWebSocketMarkPrices(instID string) *PublicWebSocketMarkPrices {
	return &PublicWebSocketMarkPrices{
		{
			InstID: instID,
		},
	}
}

func (p *PublicWebSocketMarkPrices) Subscribe() *WebSocketRequest {
	return p.request("subscribe")
}

func (p *PublicWebSocketMarkPrices) Unsubscribe() *WebSocketRequest {
	return p.request("unsubscribe")
}

func (p *PublicWebSocketMarkPrices) request(op string) *WebSocketRequest {
	request := &WebSocketRequest{
		OP:   op,
		Args: []*WebSocketArg{},
	}
	for _, item := range *p {
		arg := &WebSocketArg{
			Channel: markPriceChannel,
			InstID:  item.InstID,
		}
		request.Args = append(request.Args, arg)
	}
	return request
}

func (p *PublicWebSocketMarkPrices) Stream(response *WebSocketStream) (*PublicWebSocketMarkPrices, error) {
	err := json.Unmarshal(response.Data, p)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Newest returns the entry with the largest timestamp, or nil.
func (p *PublicWebSocketMarkPrices) Newest() *PublicWebSocketMarkPrice {
	var newest *PublicWebSocketMarkPrice
	for _, item := range *p {
		if newest == nil || item.Timestamp > newest.Timestamp {
			newest = item
		}
	}
	return newest
}
