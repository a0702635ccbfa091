package chart

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stockticker/src/common"
	"stockticker/src/history"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// HistoryChart renders every sample recorded under dir as one time-axis
// line per symbol.
type HistoryChart struct {
	dir   string
	out   string
	title string
	datas map[string][]*history.Sample
	order []string
	chart *charts.Line
}

func NewHistoryChart(dir, out, title string) *HistoryChart {
	if out == "" {
		out = filepath.Join(dir, "history.html")
	}
	return &HistoryChart{
		dir:   dir,
		out:   out,
		title: title,
		datas: make(map[string][]*history.Sample),
	}
}

func (c *HistoryChart) Run(ctx context.Context) error {
	common.Logger.Sugar().Infof("HistoryChart Run %s", c.dir)

	files, err := common.ListFiles(c.dir)
	if err != nil {
		return err
	}
	for _, file := range files {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = c.readLogFile(file)
		if err != nil {
			common.Logger.Sugar().Errorf("HistoryChart readLogFile error: %v", err)
			continue
		}
	}

	c.constructGraph()
	chartFile, err := os.Create(c.out)
	if err != nil {
		return err
	}
	defer chartFile.Close()
	return c.chart.Render(chartFile)
}

// Symbols returns the symbols seen so far in first-seen order.
func (c *HistoryChart) Symbols() []string {
	return append([]string(nil), c.order...)
}

func (c *HistoryChart) readLogFile(file string) error {
	var (
		rawStr string
		err    error
	)
	path := filepath.Join(c.dir, file)
	switch {
	case strings.HasSuffix(file, ".log.gz"):
		rawStr, err = common.ReadGzLogFile(path)
	case strings.HasSuffix(file, ".log"):
		rawStr, err = common.ReadLogFile(path)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	common.Logger.Sugar().Infof("HistoryChart readLogFile: %s", file)
	for _, line := range strings.Split(rawStr, "\n") {
		if line == "" {
			continue
		}
		logData := &common.LogData{}
		err = json.Unmarshal([]byte(line), logData)
		if err != nil {
			common.Logger.Sugar().Errorf("HistoryChart readLogFile json.Unmarshal error: %v", err)
			continue
		}
		sample, err := history.Parse(logData.Message)
		if err != nil {
			common.Logger.Sugar().Warnf("HistoryChart readLogFile %v", err)
			continue
		}
		if c.datas[sample.Symbol] == nil {
			c.datas[sample.Symbol] = make([]*history.Sample, 0, 1024*8)
			c.order = append(c.order, sample.Symbol)
		}
		c.datas[sample.Symbol] = append(c.datas[sample.Symbol], sample)
	}
	return nil
}

func (c *HistoryChart) constructGraph() {
	c.chart = charts.NewLine()
	c.chart.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: c.title,
		}),
		charts.WithTitleOpts(opts.Title{
			Title: c.title,
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "time",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale: opts.Bool(true),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithDataZoomOpts(
			opts.DataZoom{
				Type:  "slider",
				Start: 0,
				End:   100,
			},
			opts.DataZoom{
				Type:  "inside",
				Start: 0,
				End:   100,
			},
		),
	)
	for _, symbol := range c.order {
		data := c.datas[symbol]
		line := make([]opts.LineData, 0, len(data))
		for _, d := range data {
			line = append(line, opts.LineData{Value: []interface{}{time.Unix(d.Timestamp, 0), d.Value}})
		}
		c.chart.AddSeries(symbol, line)
	}
}
