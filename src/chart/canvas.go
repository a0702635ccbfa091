package chart

import (
	"sync"
	"time"
)

// Canvas holds the latest painted output for readers on other goroutines,
// such as HTTP handlers.
type Canvas struct {
	contentType string

	mu      sync.RWMutex
	data    []byte
	version uint64
	updated time.Time
}

func NewCanvas(contentType string) *Canvas {
	return &Canvas{contentType: contentType}
}

func (c *Canvas) ContentType() string {
	return c.contentType
}

// Store replaces the content. A nil slice clears it.
func (c *Canvas) Store(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.version++
	c.updated = time.Now()
}

// Load returns the content and how many times it has been stored.
func (c *Canvas) Load() ([]byte, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data, c.version
}

func (c *Canvas) Updated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updated
}
