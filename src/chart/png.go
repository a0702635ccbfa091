package chart

import (
	"bytes"

	"stockticker/src/common"

	gochart "github.com/wcharczuk/go-chart/v2"
)

// PNGPainter renders frames with go-chart. A frame without any points
// clears the canvas, since go-chart cannot draw an empty chart.
type PNGPainter struct {
	canvas *Canvas
	path   string
	width  int
	height int
}

func NewPNGPainter(canvas *Canvas, path string, width, height int) *PNGPainter {
	return &PNGPainter{canvas: canvas, path: path, width: width, height: height}
}

func (p *PNGPainter) Paint(f Frame) error {
	var lines []gochart.Series
	for _, l := range f.Lines {
		if len(l.Points) == 0 {
			continue
		}
		xs := make([]float64, len(l.Points))
		ys := make([]float64, len(l.Points))
		for i, pt := range l.Points {
			xs[i] = float64(pt.X)
			ys[i] = pt.Y
		}
		lines = append(lines, gochart.ContinuousSeries{Name: l.Name, XValues: xs, YValues: ys})
	}
	if len(lines) == 0 {
		p.canvas.Store(nil)
		return nil
	}

	ticks := make([]gochart.Tick, len(f.Labels))
	for i, label := range f.Labels {
		ticks[i] = gochart.Tick{Value: float64(i), Label: label}
	}
	graph := gochart.Chart{
		Title:  f.Title,
		Width:  p.width,
		Height: p.height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			Name:      "Time",
			Ticks:     ticks,
			Range:     &gochart.ContinuousRange{Min: f.XMin, Max: f.XMax},
			TickStyle: gochart.Style{TextRotationDegrees: 45},
		},
		YAxis: gochart.YAxis{
			Name:  "Value",
			Range: &gochart.ContinuousRange{Min: f.YMin, Max: f.YMax},
		},
		Series: lines,
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return err
	}
	img := buf.Bytes()
	p.canvas.Store(img)
	if p.path != "" {
		return common.WriteFile(p.path, img)
	}
	return nil
}
