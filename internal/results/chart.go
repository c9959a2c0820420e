package results

import (
	"errors"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// ErrNoEquity is returned when a report has no equity curve to draw.
var ErrNoEquity = errors.New("no equity curve data available")

const (
	colorGain = "#28a745"
	colorLoss = "#dc3545"
)

// RenderEquityChart writes a standalone HTML page with the equity curve of
// r. The line is green when the curve ends above where it started.
func RenderEquityChart(w io.Writer, r *Report, title string) error {
	if r == nil || len(r.Equity) == 0 {
		return ErrNoEquity
	}

	color := colorLoss
	if r.Equity[len(r.Equity)-1].Value > r.Equity[0].Value {
		color = colorGain
	}

	xs := make([]string, 0, len(r.Equity))
	ys := make([]opts.LineData, 0, len(r.Equity))
	for _, p := range r.Equity {
		xs = append(xs, p.Date)
		ys = append(ys, opts.LineData{Value: p.Value})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     "1200px",
			Height:    "500px",
			Theme:     types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:  "Portfolio Value",
			Scale: true,
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
	)
	line.SetXAxis(xs).
		AddSeries("Portfolio Value", ys).
		SetSeriesOptions(
			charts.WithLineStyleOpts(opts.LineStyle{Color: color, Width: 2}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
			charts.WithAreaStyleOpts(opts.AreaStyle{Color: "rgba(0, 123, 255, 0.1)", Opacity: 0.4}),
		)
	return line.Render(w)
}
