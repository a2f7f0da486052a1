package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/stride.report/internal/gait/model"
)

// AssetsHost is where the rendered page loads the echarts scripts from.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

const (
	leftColor  = "#1e88e5"
	rightColor = "#e53935"
)

// RenderHTML writes a page with the heel-height chart and the per-contact
// metric charts of s.
func RenderHTML(w io.Writer, s *Series) error {
	page := components.NewPage()
	page.SetAssetsHost(AssetsHost)
	page.PageTitle = fmt.Sprintf("Stride %s", s.RunID)
	page.AddCharts(
		heelChart(s),
		contactBar(s, "Overstride ratio", "ankle ahead of hip / leg length", func(m model.ContactMetric) model.Float { return m.OverstrideRatio }),
		contactBar(s, "Knee angle at contact", "degrees", func(m model.ContactMetric) model.Float { return m.KneeAngle }),
		contactBar(s, "Retraction speed", "normalised units / s", func(m model.ContactMetric) model.Float { return m.RetractSpeed }),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render chart page: %w", err)
	}
	return nil
}

func scatterData(pts []xy) []opts.ScatterData {
	out := make([]opts.ScatterData, 0, len(pts))
	for _, p := range pts {
		out = append(out, opts.ScatterData{Value: []interface{}{p.x, p.y}})
	}
	return out
}

func heelChart(s *Series) *charts.Scatter {
	tMax := 1.0
	if n := len(s.T); n > 0 && finite(s.T[n-1]) {
		tMax = math.Max(tMax, s.T[n-1])
	}
	subtitle := fmt.Sprintf("run=%s contacts L=%d R=%d", s.RunID, len(s.LeftPeaks), len(s.RightPeaks))
	if s.Source != "" {
		subtitle = fmt.Sprintf("%s source=%s", subtitle, s.Source)
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Heel height", Width: "100%", Height: "480px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Heel height", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: 0, Max: tMax, Name: "Video time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Heel y (larger is lower)", NameLocation: "middle", NameGap: 40}),
	)
	scatter.AddSeries("left heel", scatterData(points(s.T, s.LeftHeel)),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: leftColor}))
	scatter.AddSeries("right heel", scatterData(points(s.T, s.RightHeel)),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: rightColor}))
	scatter.AddSeries("left contacts", scatterData(peakPoints(s.T, s.LeftHeel, s.LeftPeaks)),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: leftColor}))
	scatter.AddSeries("right contacts", scatterData(peakPoints(s.T, s.RightHeel, s.RightPeaks)),
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: rightColor}))
	return scatter
}

// contactLabel names a contact on a category axis.
func contactLabel(m model.ContactMetric) string {
	return fmt.Sprintf("%s %.2fs", m.Leg, m.T)
}

// barValue maps an undefined metric to the echarts placeholder for a
// missing value.
func barValue(f model.Float) interface{} {
	if !f.Valid() {
		return "-"
	}
	return float64(f)
}

func contactBar(s *Series, title, unit string, value func(model.ContactMetric) model.Float) *charts.Bar {
	labels := make([]string, len(s.Contacts))
	data := make([]opts.BarData, len(s.Contacts))
	for i, m := range s.Contacts {
		labels[i] = contactLabel(m)
		color := leftColor
		if m.Leg == model.LegRight {
			color = rightColor
		}
		data[i] = opts.BarData{Value: barValue(value(m)), ItemStyle: &opts.ItemStyle{Color: color}}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "320px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: unit}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries(title, data)
	return bar
}
