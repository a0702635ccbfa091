package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"stockticker/src/common"
	"stockticker/src/quote"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

var errClosed = errors.New("binance client closed")

type FuturesAPIWebSocketRequest struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type FuturesAPIWebSocketResponse struct {
	ID     string          `json:"id"`
	Status int64           `json:"status"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// StatusError is a response whose status is not 200.
type StatusError struct {
	Status int64
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("binance status %d: %s", e.Status, e.Body)
}

// conn returns the live connection, dialing one if needed.
func (c *Client) conn(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errClosed
	}
	if c.futuresAPIWebSocketConn != nil {
		return c.futuresAPIWebSocketConn, nil
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, err
	}
	c.futuresAPIWebSocketConn = conn
	common.Go(func() { c.readFuturesAPIWebSocketMessages(conn) })
	return conn, nil
}

// readFuturesAPIWebSocketMessages routes responses to their callers until
// conn fails. The next Call dials again.
func (c *Client) readFuturesAPIWebSocketMessages(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			if c.futuresAPIWebSocketConn == conn {
				c.futuresAPIWebSocketConn = nil
			}
			c.mu.Unlock()
			conn.Close()
			if !closed {
				common.Logger.Sugar().Warnf("Binance ReadFuturesAPIWebSocketMessages ReadMessage error: %v", err)
			}
			return
		}
		var response FuturesAPIWebSocketResponse
		err = json.Unmarshal(message, &response)
		if err != nil {
			common.Logger.Sugar().Warnf("Binance ReadFuturesAPIWebSocketMessages Unmarshal error: %v %s", err, string(message))
			continue
		}
		c.mu.Lock()
		ch, ok := c.futuresAPIWebSocketResponses[response.ID]
		c.mu.Unlock()
		if ok {
			ch <- &response
		} else {
			common.Logger.Sugar().Warnf("Binance ReadFuturesAPIWebSocketMessages No handler for message: %s", string(message))
		}
	}
}

func (c *Client) Call(ctx context.Context, request *FuturesAPIWebSocketRequest) (*FuturesAPIWebSocketResponse, error) {
	if request == nil {
		return nil, fmt.Errorf("Call request is nil")
	}
	conn, err := c.conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("Call connect: %w", err)
	}
	id := uuid.New().String()
	request.ID = id
	ch := make(chan *FuturesAPIWebSocketResponse, 1)
	c.mu.Lock()
	c.futuresAPIWebSocketResponses[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.futuresAPIWebSocketResponses, id)
		c.mu.Unlock()
	}()

	c.writeMu.Lock()
	err = conn.WriteJSON(request)
	c.writeMu.Unlock()
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case response := <-ch:
		if response.Status != http.StatusOK {
			return nil, &StatusError{Status: response.Status, Body: string(response.Error)}
		}
		return response, nil
	case <-timer.C:
		return nil, fmt.Errorf("Call timeout waiting for response")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// FetchLatest asks for the last traded price of req.Symbol. Interval and
// Period are ignored; the endpoint only knows the latest price.
func (c *Client) FetchLatest(ctx context.Context, req quote.Request) (decimal.Decimal, error) {
	ticker := NewFuturesAPIWebSocketPriceTicker(req.Symbol)
	resp, err := c.Call(ctx, ticker.Request())
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Status >= 400 && statusErr.Status < 500 {
			return decimal.Zero, fmt.Errorf("%w: %s", quote.ErrNoData, statusErr)
		}
		return decimal.Zero, err
	}
	if _, err = ticker.Response(resp); err != nil {
		return decimal.Zero, err
	}
	if ticker.Price.IsZero() {
		return decimal.Zero, quote.ErrNoData
	}
	return ticker.Price, nil
}

type FuturesAPIWebSocketPriceTicker struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Time   int64           `json:"time"`
}

func NewFuturesAPIWebSocketPriceTicker(symbol string) *FuturesAPIWebSocketPriceTicker {
	return &FuturesAPIWebSocketPriceTicker{
		Symbol: symbol,
	}
}

func (f *FuturesAPIWebSocketPriceTicker) Request() *FuturesAPIWebSocketRequest {
	params := map[string]string{
		"symbol": f.Symbol,
	}
	paramsBytes, _ := json.Marshal(params)
	return &FuturesAPIWebSocketRequest{
		Method: "ticker.price",
		Params: paramsBytes,
	}
}

func (f *FuturesAPIWebSocketPriceTicker) Response(resp *FuturesAPIWebSocketResponse) (*FuturesAPIWebSocketPriceTicker, error) {
	err := json.Unmarshal(resp.Result, f)
	if err != nil {
		return nil, err
	}
	return f, nil
}
