// Package series holds the bounded sample window shared by the sampler and
// the chart: one time axis plus one value series per tracked name.
package series

import (
	"time"

	"github.com/shopspring/decimal"
)

// LabelLayout is how axis timestamps are displayed. Two ticks with the same
// label share one axis entry.
const LabelLayout = "15:04:05"

// Window is not safe for concurrent use; the sampler owns it from a single
// goroutine.
type Window struct {
	capacity int
	axis     []time.Time
	values   map[string][]decimal.Decimal
	order    []string
}

func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		capacity: capacity,
		axis:     make([]time.Time, 0, capacity+1),
		values:   make(map[string][]decimal.Decimal),
	}
}

func (w *Window) Len() int { return len(w.axis) }

func (w *Window) Has(name string) bool {
	_, ok := w.values[name]
	return ok
}

// Names returns the tracked names in the order they were added.
func (w *Window) Names() []string {
	return append([]string(nil), w.order...)
}

// Add starts an empty series for name. It reports false if name already has one.
func (w *Window) Add(name string) bool {
	if w.Has(name) {
		return false
	}
	w.values[name] = make([]decimal.Decimal, 0, w.capacity+1)
	w.order = append(w.order, name)
	return true
}

// Remove drops the series for name. The axis is shared and stays as is.
func (w *Window) Remove(name string) bool {
	if !w.Has(name) {
		return false
	}
	delete(w.values, name)
	for i, n := range w.order {
		if n == name {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	return true
}

// Merge applies one tick. at is truncated to the second; the axis grows only
// when that second differs from the last entry, and evicts its oldest entry
// together with the oldest value of every series once it exceeds capacity.
// Each name in values that has a series gets the value appended, or, when the
// series already spans the whole axis, written over its last value. Names
// without a series are ignored. Merge reports whether the axis advanced.
func (w *Window) Merge(at time.Time, values map[string]decimal.Decimal) bool {
	at = at.Truncate(time.Second)
	advanced := false
	if n := len(w.axis); n == 0 || !w.axis[n-1].Equal(at) {
		w.axis = append(w.axis, at)
		advanced = true
		if len(w.axis) > w.capacity {
			w.axis = shift(w.axis)
			for name, vs := range w.values {
				if len(vs) > 0 {
					w.values[name] = shift(vs)
				}
			}
		}
	}
	for name, v := range values {
		vs, ok := w.values[name]
		if !ok {
			continue
		}
		if len(vs) < len(w.axis) {
			vs = append(vs, v)
		} else {
			vs[len(vs)-1] = v
		}
		w.values[name] = vs
	}
	return advanced
}

// shift drops the first element in place so the backing array is reused.
func shift[T any](s []T) []T {
	copy(s, s[1:])
	var zero T
	s[len(s)-1] = zero
	return s[:len(s)-1]
}

// Snapshot copies the current state.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{
		Axis:   append([]time.Time(nil), w.axis...),
		Names:  w.Names(),
		Values: make(map[string][]decimal.Decimal, len(w.values)),
	}
	for name, vs := range w.values {
		snap.Values[name] = append([]decimal.Decimal(nil), vs...)
	}
	return snap
}

// Snapshot is a detached copy of a Window. Values[name][i] was recorded
// while Axis had at least i+1 entries; a series that missed ticks is shorter
// than Axis.
type Snapshot struct {
	Axis   []time.Time                  `json:"axis"`
	Names  []string                     `json:"names"`
	Values map[string][]decimal.Decimal `json:"values"`
}

func (s Snapshot) Labels() []string {
	labels := make([]string, len(s.Axis))
	for i, t := range s.Axis {
		labels[i] = t.Format(LabelLayout)
	}
	return labels
}
