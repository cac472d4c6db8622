package vitals

import (
	"errors"
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/Skufu/dhanvantari/internal/patient"
)

// Stats summarises one vital sign across the population.
type Stats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

type Population struct {
	HeartRate   Stats `json:"heart_rate"`
	BloodOxygen Stats `json:"blood_oxygen"`
	SugarLevel  Stats `json:"sugar_level"`
}

// Performance is a patient's percentage difference from the population mean,
// rounded to two decimals.
type Performance struct {
	HeartRateVsAvg   float64 `json:"heart_rate_vs_avg"`
	BloodOxygenVsAvg float64 `json:"blood_oxygen_vs_avg"`
	SugarLevelVsAvg  float64 `json:"sugar_level_vs_avg"`
}

// Metric is one labelled entry of a Performance, in display order.
type Metric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Band  Band    `json:"band"`
}

func (p Performance) Metrics() []Metric {
	return []Metric{
		{Name: "Heart Rate", Value: p.HeartRateVsAvg, Band: BandFor(p.HeartRateVsAvg)},
		{Name: "Blood Oxygen", Value: p.BloodOxygenVsAvg, Band: BandFor(p.BloodOxygenVsAvg)},
		{Name: "Sugar Level", Value: p.SugarLevelVsAvg, Band: BandFor(p.SugarLevelVsAvg)},
	}
}

func Compute(records []patient.Record) Population {
	return Population{
		HeartRate:   summarize(lo.Map(records, func(r patient.Record, _ int) float64 { return r.HeartRate })),
		BloodOxygen: summarize(lo.Map(records, func(r patient.Record, _ int) float64 { return r.BloodOxygen })),
		SugarLevel:  summarize(lo.Map(records, func(r patient.Record, _ int) float64 { return r.SugarLevel })),
	}
}

func (p Population) Compare(rec patient.Record) Performance {
	return Performance{
		HeartRateVsAvg:   vsAverage(rec.HeartRate, p.HeartRate.Mean),
		BloodOxygenVsAvg: vsAverage(rec.BloodOxygen, p.BloodOxygen.Mean),
		SugarLevelVsAvg:  vsAverage(rec.SugarLevel, p.SugarLevel.Mean),
	}
}

func summarize(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return Stats{
		Mean:   lo.Sum(sorted) / float64(n),
		Median: median,
		Min:    sorted[0],
		Max:    sorted[n-1],
	}
}

func vsAverage(value, mean float64) float64 {
	if mean == 0 {
		return 0
	}
	return Round2((value/mean - 1) * 100)
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Band classifies how far a vital deviates from the population average.
type Band string

const (
	BandNormal   Band = "normal"
	BandWarning  Band = "warning"
	BandCritical Band = "critical"
)

func BandFor(pct float64) Band {
	switch abs := math.Abs(pct); {
	case abs > 15:
		return BandCritical
	case abs > 10:
		return BandWarning
	default:
		return BandNormal
	}
}

func (b Band) Color() string {
	switch b {
	case BandCritical:
		return "#e74c3c"
	case BandWarning:
		return "#f39c12"
	default:
		return "#2ecc71"
	}
}

var ErrInvalidHeight = errors.New("height must be positive")

// BMI returns weight / height(m)^2.
func BMI(heightCm, weightKg float64) (float64, error) {
	if heightCm <= 0 {
		return 0, ErrInvalidHeight
	}
	m := heightCm / 100
	return weightKg / (m * m), nil
}

// BMIBand is one coloured range of the BMI gauge.
type BMIBand struct {
	Label string
	Lower float64
	Upper float64
	Color string
}

// GaugeMax is the upper bound of the BMI gauge axis.
const GaugeMax = 40.0

var BMIBands = []BMIBand{
	{Label: "Underweight", Lower: 0, Upper: 18.5, Color: "#3498db"},
	{Label: "Normal", Lower: 18.5, Upper: 24.9, Color: "#2ecc71"},
	{Label: "Overweight", Lower: 24.9, Upper: 29.9, Color: "#f1c40f"},
	{Label: "Obese", Lower: 29.9, Upper: GaugeMax, Color: "#e74c3c"},
}

func BMICategory(bmi float64) string {
	for _, b := range BMIBands[:len(BMIBands)-1] {
		if bmi < b.Upper {
			return b.Label
		}
	}
	return BMIBands[len(BMIBands)-1].Label
}
