package charts

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/samber/lo"

	"github.com/Skufu/dhanvantari/internal/vitals"
)

const (
	VitalsTitle = "Vital Signs vs Population Average"
	BMITitle    = "BMI Index"
)

var initOpts = opts.Initialization{
	Width:  "100%",
	Height: "400px",
}

// VitalsBar renders the patient's percentage difference from the population
// mean, one bar per vital, coloured by deviation band.
func VitalsBar(perf vitals.Performance) (template.HTML, error) {
	metrics := perf.Metrics()

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{
			Title: VitalsTitle,
			Left:  "center",
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show: opts.Bool(true),
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name: "Vital Signs",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "% Difference from Average",
		}),
	)

	data := lo.Map(metrics, func(m vitals.Metric, _ int) opts.BarData {
		return opts.BarData{
			Name:      m.Name,
			Value:     m.Value,
			ItemStyle: &opts.ItemStyle{Color: m.Band.Color()},
		}
	})

	bar.SetXAxis(lo.Map(metrics, func(m vitals.Metric, _ int) string { return m.Name })).
		AddSeries("vs average", data).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show:     opts.Bool(true),
				Position: "top",
			}),
		)

	return render(bar)
}

// BMIChart renders the patient's BMI against the category thresholds.
func BMIChart(bmi float64) (template.HTML, error) {
	category := vitals.BMICategory(bmi)
	color := vitals.BMIBands[len(vitals.BMIBands)-1].Color
	for _, b := range vitals.BMIBands {
		if b.Label == category {
			color = b.Color
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{
			Title:    BMITitle,
			Subtitle: fmt.Sprintf("%.1f (%s)", bmi, category),
			Left:     "center",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "BMI",
			Min:  0,
			Max:  vitals.GaugeMax,
		}),
	)

	thresholds := make([]interface{}, 0, len(vitals.BMIBands)-1)
	for _, b := range vitals.BMIBands[:len(vitals.BMIBands)-1] {
		thresholds = append(thresholds, opts.MarkLineNameYAxisItem{
			Name:  b.Label + " limit",
			YAxis: b.Upper,
		})
	}

	bar.SetXAxis([]string{"BMI"}).
		AddSeries("BMI", []opts.BarData{{
			Name:      category,
			Value:     vitals.Round2(bmi),
			ItemStyle: &opts.ItemStyle{Color: color},
		}}).
		SetSeriesOptions(func(s *charts.SingleSeries) {
			s.MarkLines = &opts.MarkLines{
				Data: thresholds,
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

	return render(bar)
}

func render(chart *charts.Bar) (template.HTML, error) {
	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		return "", fmt.Errorf("render chart: %w", err)
	}
	return template.HTML(buf.String()), nil
}
