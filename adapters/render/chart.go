package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"labsignal/domain/core"
	"labsignal/domain/insight"
	"labsignal/domain/lab"
	"labsignal/internal/errors"
	"labsignal/internal/markers"
)

// ChartRenderer draws marker series as line charts
type ChartRenderer struct {
	catalog *markers.Catalog
}

// NewChartRenderer creates a chart renderer using the catalog's zones and thresholds
func NewChartRenderer(catalog *markers.Catalog) *ChartRenderer {
	return &ChartRenderer{catalog: catalog}
}

// Line builds the chart of one series. Reference bounds of the latest point,
// the target zone and clinical thresholds are drawn as dashed lines.
func (r *ChartRenderer) Line(ms insight.MarkerSeries, system lab.UnitSystem) *charts.Line {
	xAxis := make([]string, 0, len(ms.Points))
	yData := make([]opts.LineData, 0, len(ms.Points))
	for _, p := range ms.Points {
		xAxis = append(xAxis, core.FormatDate(p.Date))
		yData = append(yData, opts.LineData{Value: p.Value, Name: p.Context.ProtocolName})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			ChartID: chartID(ms.Marker),
			Width:   "900px",
			Height:  "360px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: ms.Marker,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show: opts.Bool(true),
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:  ms.Unit,
			Scale: opts.Bool(true),
		}),
	)

	seriesOpts := []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{
			Smooth:     opts.Bool(false),
			ShowSymbol: opts.Bool(true),
		}),
		charts.WithMarkPointNameTypeItemOpts(
			opts.MarkPointNameTypeItem{Name: "Max", Type: "max"},
			opts.MarkPointNameTypeItem{Name: "Min", Type: "min"},
		),
	}
	if items := r.markLines(ms, system); len(items) > 0 {
		seriesOpts = append(seriesOpts, func(s *charts.SingleSeries) {
			s.MarkLines = &opts.MarkLines{
				Data: items,
				MarkLineStyle: opts.MarkLineStyle{
					Symbol: []string{"none", "none"},
					LineStyle: &opts.LineStyle{
						Color: "rgba(128, 128, 128, 0.6)",
						Type:  "dashed",
						Width: 1.5,
					},
				},
			}
		})
	}

	line.SetXAxis(xAxis).
		AddSeries(ms.Marker, yData).
		SetSeriesOptions(seriesOpts...)
	return line
}

func (r *ChartRenderer) markLines(ms insight.MarkerSeries, system lab.UnitSystem) []interface{} {
	var items []interface{}
	if len(ms.Points) > 0 {
		last := ms.Points[len(ms.Points)-1]
		if last.ReferenceMin != nil {
			items = append(items, opts.MarkLineNameYAxisItem{Name: "Ref Min", YAxis: *last.ReferenceMin})
		}
		if last.ReferenceMax != nil {
			items = append(items, opts.MarkLineNameYAxisItem{Name: "Ref Max", YAxis: *last.ReferenceMax})
		}
	}
	if zone, unit, ok := r.catalog.TargetZone(ms.Marker, system); ok && unit == ms.Unit {
		items = append(items,
			opts.MarkLineNameYAxisItem{Name: "Target Min", YAxis: zone.Min},
			opts.MarkLineNameYAxisItem{Name: "Target Max", YAxis: zone.Max},
		)
	}
	for _, t := range r.catalog.Thresholds(system) {
		if t.Marker == ms.Marker && t.Unit == ms.Unit {
			items = append(items, opts.MarkLineNameYAxisItem{Name: t.Label, YAxis: t.Value})
		}
	}
	return items
}

// Chart renders one series as an HTML fragment
func (r *ChartRenderer) Chart(ms insight.MarkerSeries, system lab.UnitSystem) (string, error) {
	if len(ms.Points) == 0 {
		return "", errors.InvalidInput(fmt.Sprintf("no points to chart for %s", ms.Marker))
	}
	var buf bytes.Buffer
	if err := r.Line(ms, system).Render(&buf); err != nil {
		return "", errors.Wrap(err, "failed to render chart")
	}
	return buf.String(), nil
}

// Page writes every series of a dashboard as one HTML page of charts
func (r *ChartRenderer) Page(d *insight.Dashboard, w io.Writer) error {
	page := components.NewPage()
	page.PageTitle = heading(d.Language, "title")
	for _, ms := range d.Series {
		if len(ms.Points) == 0 {
			continue
		}
		page.AddCharts(r.Line(ms, d.UnitSystem))
	}
	if err := page.Render(w); err != nil {
		return errors.Wrap(err, "failed to render chart page")
	}
	return nil
}

func chartID(marker string) string {
	var b strings.Builder
	b.WriteString("chart_")
	for _, r := range strings.ToLower(marker) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
