package chart

import (
	"errors"
	"fmt"
	"math"

	"stockticker/src/series"
)

var ErrLineNotFound = errors.New("line not found")

// Painter turns a frame into pixels or markup. Paint is called once per Render.
type Painter interface {
	Paint(f Frame) error
}

// Frame is everything a painter needs for one redraw. X positions are the
// indexes 0..len(Labels)-1, not times, so skipped or merged ticks never
// leave gaps between columns.
type Frame struct {
	Title  string
	Labels []string
	Lines  []Line
	XMin   float64
	XMax   float64
	YMin   float64
	YMax   float64
}

type Line struct {
	Name   string
	Points []Point
}

type Point struct {
	X int
	Y float64
}

// Live is the chart the sampler draws into. It is not safe for concurrent
// use; the sampler calls it from one goroutine.
type Live struct {
	title    string
	lines    map[string]*Line
	order    []string
	painters []Painter
	frame    Frame
}

func NewLive(title string, painters ...Painter) *Live {
	return &Live{
		title:    title,
		lines:    make(map[string]*Line),
		painters: painters,
	}
}

// AddLine registers an empty line labeled name. Adding an existing name is a no-op.
func (l *Live) AddLine(name string) {
	if _, ok := l.lines[name]; ok {
		return
	}
	l.lines[name] = &Line{Name: name, Points: make([]Point, 0)}
	l.order = append(l.order, name)
}

func (l *Live) RemoveLine(name string) error {
	if _, ok := l.lines[name]; !ok {
		return fmt.Errorf("%w: %s", ErrLineNotFound, name)
	}
	delete(l.lines, name)
	for i, n := range l.order {
		if n == name {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return nil
}

// Lines returns the registered line names in legend order.
func (l *Live) Lines() []string {
	return append([]string(nil), l.order...)
}

// Frame returns the frame of the last Render.
func (l *Live) Frame() Frame {
	return l.frame
}

// Render replots every registered line from snap and repaints once.
func (l *Live) Render(snap series.Snapshot) error {
	f := Frame{
		Title:  l.title,
		Labels: snap.Labels(),
		Lines:  make([]Line, 0, len(l.order)),
	}
	for _, name := range l.order {
		line := l.lines[name]
		values := snap.Values[name]
		points := line.Points[:0]
		for i, v := range values {
			points = append(points, Point{X: i, Y: v.InexactFloat64()})
		}
		line.Points = points
		f.Lines = append(f.Lines, Line{Name: name, Points: append([]Point(nil), points...)})
	}
	f.XMin, f.XMax, f.YMin, f.YMax = bounds(len(f.Labels), f.Lines)
	l.frame = f

	var errs []error
	for _, p := range l.painters {
		if err := p.Paint(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// bounds fits the axes to the data with a 5% margin on Y. Flat or empty data
// still gets a non-empty range.
func bounds(columns int, lines []Line) (xmin, xmax, ymin, ymax float64) {
	xmax = math.Max(float64(columns-1), 1)
	ymin, ymax = math.Inf(1), math.Inf(-1)
	for _, line := range lines {
		for _, p := range line.Points {
			ymin = math.Min(ymin, p.Y)
			ymax = math.Max(ymax, p.Y)
		}
	}
	switch {
	case math.IsInf(ymin, 1):
		return 0, xmax, 0, 1
	case ymin == ymax:
		pad := math.Max(math.Abs(ymin)*0.01, 1)
		return 0, xmax, ymin - pad, ymax + pad
	}
	pad := (ymax - ymin) * 0.05
	return 0, xmax, ymin - pad, ymax + pad
}
