package analysis

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/metrics"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

// Forecast predicts revenue for the month after the data ends
type Forecast struct {
	Month   time.Time            `json:"month"`
	Label   string               `json:"label"`
	Revenue decimal.Decimal      `json:"revenue"`
	Basis   []metrics.MonthValue `json:"basis"`
}

// Forecaster predicts next-month revenue as the moving average of the last Window months
type Forecaster struct {
	Window int
}

// NewForecaster creates a three-month moving-average forecaster
func NewForecaster() *Forecaster {
	return &Forecaster{Window: 3}
}

// Name implements Analysis
func (f *Forecaster) Name() string {
	return "forecast"
}

// Run implements Analysis
func (f *Forecaster) Run(rs entity.RecordSet) (interface{}, error) {
	return f.NextMonth(rs)
}

// NextMonth averages the trailing months of the zero-filled revenue trend
func (f *Forecaster) NextMonth(rs entity.RecordSet) (Forecast, error) {
	window := f.Window
	if window <= 0 {
		window = 1
	}

	trend, err := metrics.MonthlyTrend(rs, metrics.Revenue)
	if err != nil {
		return Forecast{}, err
	}
	if len(trend) < window {
		return Forecast{}, fmt.Errorf("%w: need %d months, have %d", ErrInsufficientHistory, window, len(trend))
	}

	basis := append([]metrics.MonthValue{}, trend[len(trend)-window:]...)
	sum := decimal.Zero
	for _, m := range basis {
		sum = sum.Add(m.Value)
	}

	next := basis[len(basis)-1].Month.AddDate(0, 1, 0)
	return Forecast{
		Month:   next,
		Label:   next.Format("2006-01"),
		Revenue: sum.Div(decimal.NewFromInt(int64(window))).Round(2),
		Basis:   basis,
	}, nil
}
