package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

// Direction says whether an anomalous day was above or below the mean
type Direction string

const (
	Spike Direction = "spike"
	Dip   Direction = "dip"
)

// Anomaly is one day whose revenue deviates from the mean by at least the threshold
type Anomaly struct {
	Day       time.Time       `json:"day"`
	Revenue   decimal.Decimal `json:"revenue"`
	Z         float64         `json:"z"`
	Direction Direction       `json:"direction"`
}

// AnomalyReport is the result of an AnomalyDetector run
type AnomalyReport struct {
	Days      int       `json:"days"`
	Mean      float64   `json:"mean"`
	StdDev    float64   `json:"std_dev"`
	Threshold float64   `json:"threshold"`
	Anomalies []Anomaly `json:"anomalies"`
}

// AnomalyDetector flags days whose total revenue has a z-score of at least Threshold in magnitude
type AnomalyDetector struct {
	Threshold float64
	MinDays   int
}

// NewAnomalyDetector creates a detector flagging days two standard deviations
// from the mean, once at least a week of sales days exists
func NewAnomalyDetector() *AnomalyDetector {
	return &AnomalyDetector{Threshold: 2.0, MinDays: 7}
}

// Name implements Analysis
func (d *AnomalyDetector) Name() string {
	return "anomalies"
}

// Run implements Analysis. Too few days or a flat series yields no anomalies.
func (d *AnomalyDetector) Run(rs entity.RecordSet) (interface{}, error) {
	return d.Detect(rs), nil
}

type dayTotal struct {
	day     time.Time
	revenue decimal.Decimal
}

// Detect computes the anomaly report over daily revenue totals
func (d *AnomalyDetector) Detect(rs entity.RecordSet) AnomalyReport {
	daily := dailyRevenue(rs)
	report := AnomalyReport{Days: len(daily), Threshold: d.Threshold, Anomalies: []Anomaly{}}
	if len(daily) == 0 || len(daily) < d.MinDays {
		return report
	}

	var sum float64
	for _, x := range daily {
		sum += x.revenue.InexactFloat64()
	}
	mean := sum / float64(len(daily))

	var ss float64
	for _, x := range daily {
		diff := x.revenue.InexactFloat64() - mean
		ss += diff * diff
	}
	std := math.Sqrt(ss / float64(len(daily)))

	report.Mean = mean
	report.StdDev = std
	if std == 0 {
		return report
	}

	for _, x := range daily {
		z := (x.revenue.InexactFloat64() - mean) / std
		if math.Abs(z) < d.Threshold {
			continue
		}
		dir := Spike
		if z < 0 {
			dir = Dip
		}
		report.Anomalies = append(report.Anomalies, Anomaly{Day: x.day, Revenue: x.revenue, Z: z, Direction: dir})
	}
	return report
}

func dailyRevenue(rs entity.RecordSet) []dayTotal {
	totals := make(map[time.Time]decimal.Decimal)
	for i := 0; i < rs.Len(); i++ {
		r := rs.At(i)
		day := time.Date(r.Date.Year(), r.Date.Month(), r.Date.Day(), 0, 0, 0, 0, r.Date.Location())
		totals[day] = totals[day].Add(r.Revenue)
	}

	out := make([]dayTotal, 0, len(totals))
	for day, revenue := range totals {
		out = append(out, dayTotal{day: day, revenue: revenue})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].day.Before(out[j].day) })
	return out
}
