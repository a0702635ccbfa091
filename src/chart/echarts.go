package chart

import (
	"bytes"
	"math"
	"strconv"

	"stockticker/src/common"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// HTMLPainter renders frames as a go-echarts page onto a canvas and, when
// path is set, into a file.
type HTMLPainter struct {
	canvas *Canvas
	path   string
	width  int
	height int
}

func NewHTMLPainter(canvas *Canvas, path string, width, height int) *HTMLPainter {
	return &HTMLPainter{canvas: canvas, path: path, width: width, height: height}
}

func (p *HTMLPainter) Paint(f Frame) error {
	line := p.construct(f)
	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return err
	}
	page := buf.Bytes()
	p.canvas.Store(page)
	if p.path != "" {
		return common.WriteFile(p.path, page)
	}
	return nil
}

func (p *HTMLPainter) construct(f Frame) *charts.Line {
	line := charts.NewLine()
	initOpts := opts.Initialization{PageTitle: f.Title}
	if p.width > 0 && p.height > 0 {
		initOpts.Width = strconv.Itoa(p.width) + "px"
		initOpts.Height = strconv.Itoa(p.height) + "px"
	}
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{
			Title: f.Title,
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "Time",
			Type: "category",
			AxisLabel: &opts.AxisLabel{
				Show:   opts.Bool(true),
				Rotate: 45,
			},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "Value",
			Min:  round(f.YMin),
			Max:  round(f.YMax),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
	)
	line.SetXAxis(f.Labels)
	for _, l := range f.Lines {
		data := make([]opts.LineData, 0, len(l.Points))
		for _, pt := range l.Points {
			data = append(data, opts.LineData{Value: pt.Y})
		}
		line.AddSeries(l.Name, data)
	}
	return line
}

func round(v float64) float64 {
	return math.Round(v*10000) / 10000
}
