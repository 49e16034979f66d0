package metrics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

// Summary holds the headline KPIs of a record set
type Summary struct {
	Records      int             `json:"records"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalUnits   int64           `json:"total_units"`
	TotalProfit  decimal.Decimal `json:"total_profit"`
	TopProduct   string          `json:"top_product"`
	TopLocation  string          `json:"top_location"`
}

// Summarize computes the headline KPIs. Top product and location are by
// revenue and empty when there are no records.
func Summarize(rs entity.RecordSet) Summary {
	s := Summary{
		Records:      rs.Len(),
		TotalRevenue: TotalRevenue(rs),
		TotalUnits:   TotalUnits(rs),
		TotalProfit:  TotalProfit(rs),
	}

	if top, _ := TopBy(rs, ByProduct, Revenue, 1); len(top) > 0 {
		s.TopProduct = top[0].Group
	}
	if top, _ := TopBy(rs, ByLocation, Revenue, 1); len(top) > 0 {
		s.TopLocation = top[0].Group
	}
	return s
}

// Performance lists products with the highest and lowest mean profit
type Performance struct {
	High []GroupValue `json:"high"`
	Low  []GroupValue `json:"low"`
}

// Performers returns the n products with the highest mean profit (descending)
// and the n with the lowest (ascending). A product can appear in both lists
// when there are fewer than 2n products.
func Performers(rs entity.RecordSet, n int) Performance {
	ranked, _ := MeanBy(rs, ByProduct, Profit)
	if n <= 0 || n > len(ranked) {
		n = len(ranked)
	}

	ascending := append([]GroupValue{}, ranked...)
	sort.SliceStable(ascending, func(i, j int) bool {
		if c := ascending[i].Value.Cmp(ascending[j].Value); c != 0 {
			return c < 0
		}
		return ascending[i].Group < ascending[j].Group
	})

	return Performance{
		High: append([]GroupValue{}, ranked[:n]...),
		Low:  ascending[:n],
	}
}

// Recommend names the n products with the highest total revenue
func Recommend(rs entity.RecordSet, n int) []string {
	top, _ := TopBy(rs, ByProduct, Revenue, n)
	names := make([]string, len(top))
	for i, g := range top {
		names[i] = g.Group
	}
	return names
}
