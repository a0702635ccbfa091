package series

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 14, 30, 0, 0, time.Local)

func at(sec int) time.Time {
	return base.Add(time.Duration(sec) * time.Second)
}

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func values(t *testing.T, w *Window, name string) []string {
	t.Helper()
	var out []string
	for _, v := range w.Snapshot().Values[name] {
		out = append(out, v.String())
	}
	return out
}

func TestWindow(t *testing.T) {
	t.Run("Lifecycle", func(t *testing.T) {
		testLifecycle(t)
	})
	t.Run("Dedup", func(t *testing.T) {
		testDedup(t)
	})
	t.Run("Eviction", func(t *testing.T) {
		testEviction(t)
	})
	t.Run("Scenario", func(t *testing.T) {
		testScenario(t)
	})
	t.Run("Invariants", func(t *testing.T) {
		testInvariants(t)
	})
	t.Run("Snapshot", func(t *testing.T) {
		testSnapshotDetached(t)
	})
}

func testLifecycle(t *testing.T) {
	w := NewWindow(20)
	require.True(t, w.Add("AAPL"))
	require.False(t, w.Add("AAPL"))
	require.True(t, w.Add("MSFT"))
	require.Equal(t, []string{"AAPL", "MSFT"}, w.Names())

	w.Merge(at(0), map[string]decimal.Decimal{"AAPL": d(1), "MSFT": d(2), "GOOG": d(3)})
	require.False(t, w.Has("GOOG"))
	require.Equal(t, []string{"1"}, values(t, w, "AAPL"))

	require.True(t, w.Remove("AAPL"))
	require.False(t, w.Remove("AAPL"))
	require.Equal(t, []string{"MSFT"}, w.Names())
	require.Equal(t, 1, w.Len())
	_, ok := w.Snapshot().Values["AAPL"]
	require.False(t, ok)

	require.True(t, w.Add("AAPL"))
	require.Empty(t, values(t, w, "AAPL"))
}

func testDedup(t *testing.T) {
	w := NewWindow(5)
	w.Add("X")
	require.True(t, w.Merge(at(0), map[string]decimal.Decimal{"X": d(100)}))
	require.False(t, w.Merge(at(0).Add(400*time.Millisecond), map[string]decimal.Decimal{"X": d(101)}))
	require.Equal(t, 1, w.Len())
	require.Equal(t, []string{"101"}, values(t, w, "X"))

	// A series that is behind the axis still grows on a repeated second.
	w.Add("Y")
	w.Merge(at(0), map[string]decimal.Decimal{"Y": d(7)})
	require.Equal(t, 1, w.Len())
	require.Equal(t, []string{"7"}, values(t, w, "Y"))
}

func testEviction(t *testing.T) {
	w := NewWindow(3)
	w.Add("X")
	w.Add("Y")
	for i := range 3 {
		w.Merge(at(i), map[string]decimal.Decimal{"X": d(int64(i)), "Y": d(int64(10 + i))})
	}
	require.Equal(t, 3, w.Len())
	w.Merge(at(3), map[string]decimal.Decimal{"X": d(3)})
	snap := w.Snapshot()
	require.Equal(t, []time.Time{at(1), at(2), at(3)}, snap.Axis)
	require.Equal(t, []string{"1", "2", "3"}, values(t, w, "X"))
	require.Equal(t, []string{"11", "12"}, values(t, w, "Y"))
}

func testScenario(t *testing.T) {
	w := NewWindow(3)
	w.Add("X")
	w.Merge(at(1), map[string]decimal.Decimal{"X": d(100)})
	w.Merge(at(1), map[string]decimal.Decimal{"X": d(101)})
	w.Merge(at(2), map[string]decimal.Decimal{"X": d(102)})
	w.Merge(at(3), map[string]decimal.Decimal{"X": d(103)})
	w.Merge(at(4), nil)

	snap := w.Snapshot()
	require.Equal(t, []time.Time{at(2), at(3), at(4)}, snap.Axis)
	require.Equal(t, []string{"14:30:02", "14:30:03", "14:30:04"}, snap.Labels())
	require.Equal(t, []string{"102", "103"}, values(t, w, "X"))
	require.Len(t, snap.Values["X"], 2)
}

func testInvariants(t *testing.T) {
	const capacity = 7
	rnd := rand.New(rand.NewSource(1))
	w := NewWindow(capacity)
	names := []string{"A", "B", "C"}
	for _, n := range names {
		w.Add(n)
	}
	sec := 0
	prevLen := 0
	for range 500 {
		if rnd.Intn(3) > 0 {
			sec++
		}
		vals := map[string]decimal.Decimal{}
		for _, n := range names {
			if rnd.Intn(4) > 0 {
				vals[n] = d(int64(rnd.Intn(1000)))
			}
		}
		if rnd.Intn(50) == 0 {
			n := names[rnd.Intn(len(names))]
			w.Remove(n)
			w.Add(n)
		}
		w.Merge(at(sec), vals)

		require.LessOrEqual(t, w.Len(), capacity)
		require.GreaterOrEqual(t, w.Len(), prevLen)
		require.LessOrEqual(t, w.Len()-prevLen, 1)
		prevLen = w.Len()
		snap := w.Snapshot()
		for _, n := range names {
			require.LessOrEqual(t, len(snap.Values[n]), len(snap.Axis))
		}
	}
	require.Equal(t, capacity, w.Len())
}

func testSnapshotDetached(t *testing.T) {
	w := NewWindow(3)
	w.Add("X")
	w.Merge(at(0), map[string]decimal.Decimal{"X": d(1)})
	snap := w.Snapshot()
	w.Merge(at(1), map[string]decimal.Decimal{"X": d(2)})
	w.Merge(at(2), map[string]decimal.Decimal{"X": d(3)})
	w.Merge(at(3), map[string]decimal.Decimal{"X": d(4)})
	require.Equal(t, []time.Time{at(0)}, snap.Axis)
	require.Equal(t, "1", snap.Values["X"][0].String())
}
