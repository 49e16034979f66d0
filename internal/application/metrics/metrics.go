// Package metrics derives aggregates from a validated RecordSet.
//
// Every function is pure: it reads the RecordSet, never mutates it, and returns
// the same ordered output for the same input. Empty RecordSets yield empty or
// zero results.
package metrics

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

// GroupKey names a categorical attribute records can be grouped by
type GroupKey string

const (
	ByProduct       GroupKey = "product"
	ByCategory      GroupKey = "category"
	ByLocation      GroupKey = "location"
	ByPlatform      GroupKey = "platform"
	ByPaymentMethod GroupKey = "payment_method"
)

// Metric names a numeric attribute that can be summed
type Metric string

const (
	Revenue        Metric = "revenue"
	Profit         Metric = "profit"
	UnitsSold      Metric = "units_sold"
	InventoryAfter Metric = "inventory_after"
)

// GroupValue is one aggregated group
type GroupValue struct {
	Group string          `json:"group"`
	Value decimal.Decimal `json:"value"`
}

// MonthValue is one calendar month bucket
type MonthValue struct {
	Month time.Time       `json:"month"`
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

// StockLevel is the lowest inventory seen for a product
type StockLevel struct {
	Product      string `json:"product"`
	MinInventory int64  `json:"min_inventory"`
}

// ExpiryItem is a distinct (product, expiry date, inventory) tuple
type ExpiryItem struct {
	Product        string    `json:"product"`
	ExpiryDate     time.Time `json:"expiry_date"`
	InventoryAfter int64     `json:"inventory_after"`
}

func groupFunc(key GroupKey) (func(entity.SalesRecord) string, error) {
	switch key {
	case ByProduct:
		return func(r entity.SalesRecord) string { return r.Product }, nil
	case ByCategory:
		return func(r entity.SalesRecord) string { return r.Category }, nil
	case ByLocation:
		return func(r entity.SalesRecord) string { return r.Location }, nil
	case ByPlatform:
		return func(r entity.SalesRecord) string { return r.Platform }, nil
	case ByPaymentMethod:
		return func(r entity.SalesRecord) string { return r.PaymentMethod }, nil
	}
	return nil, fmt.Errorf("%w: %q", entity.ErrUnknownGroupKey, key)
}

func metricFunc(metric Metric) (func(entity.SalesRecord) decimal.Decimal, error) {
	switch metric {
	case Revenue:
		return func(r entity.SalesRecord) decimal.Decimal { return r.Revenue }, nil
	case Profit:
		return func(r entity.SalesRecord) decimal.Decimal { return r.Profit }, nil
	case UnitsSold:
		return func(r entity.SalesRecord) decimal.Decimal { return decimal.NewFromInt(r.UnitsSold) }, nil
	case InventoryAfter:
		return func(r entity.SalesRecord) decimal.Decimal { return decimal.NewFromInt(r.InventoryAfter) }, nil
	}
	return nil, fmt.Errorf("%w: %q", entity.ErrUnknownMetric, metric)
}

// TotalRevenue sums revenue over all records
func TotalRevenue(rs entity.RecordSet) decimal.Decimal {
	total := decimal.Zero
	for i := 0; i < rs.Len(); i++ {
		total = total.Add(rs.At(i).Revenue)
	}
	return total
}

// TotalProfit sums profit over all records
func TotalProfit(rs entity.RecordSet) decimal.Decimal {
	total := decimal.Zero
	for i := 0; i < rs.Len(); i++ {
		total = total.Add(rs.At(i).Profit)
	}
	return total
}

// TotalUnits sums units sold over all records
func TotalUnits(rs entity.RecordSet) int64 {
	var total int64
	for i := 0; i < rs.Len(); i++ {
		total += rs.At(i).UnitsSold
	}
	return total
}

// group accumulates metric per group value, also counting records per group
func group(rs entity.RecordSet, key GroupKey, metric Metric) (map[string]decimal.Decimal, map[string]int, error) {
	keyOf, err := groupFunc(key)
	if err != nil {
		return nil, nil, err
	}
	valueOf, err := metricFunc(metric)
	if err != nil {
		return nil, nil, err
	}

	sums := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	for i := 0; i < rs.Len(); i++ {
		r := rs.At(i)
		k := keyOf(r)
		sums[k] = sums[k].Add(valueOf(r))
		counts[k]++
	}
	return sums, counts, nil
}

// rank orders groups by value descending, ties by ascending group name
func rank(values map[string]decimal.Decimal) []GroupValue {
	out := make([]GroupValue, 0, len(values))
	for g, v := range values {
		out = append(out, GroupValue{Group: g, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Value.Cmp(out[j].Value); c != 0 {
			return c > 0
		}
		return out[i].Group < out[j].Group
	})
	return out
}

// TopBy sums metric per group and returns the n largest groups. n <= 0 returns every group.
func TopBy(rs entity.RecordSet, key GroupKey, metric Metric, n int) ([]GroupValue, error) {
	sums, _, err := group(rs, key, metric)
	if err != nil {
		return nil, err
	}

	ranked := rank(sums)
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// MeanBy averages metric per group, ordered like TopBy
func MeanBy(rs entity.RecordSet, key GroupKey, metric Metric) ([]GroupValue, error) {
	sums, counts, err := group(rs, key, metric)
	if err != nil {
		return nil, err
	}

	means := make(map[string]decimal.Decimal, len(sums))
	for g, sum := range sums {
		means[g] = sum.Div(decimal.NewFromInt(int64(counts[g])))
	}
	return rank(means), nil
}

func monthOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthlyTrend sums metric per calendar month (UTC) of the sale date. Months
// without sales inside the data's date span are included with a zero value.
func MonthlyTrend(rs entity.RecordSet, metric Metric) ([]MonthValue, error) {
	valueOf, err := metricFunc(metric)
	if err != nil {
		return nil, err
	}

	from, to, ok := rs.DateSpan()
	if !ok {
		return []MonthValue{}, nil
	}

	buckets := make(map[string]decimal.Decimal)
	for i := 0; i < rs.Len(); i++ {
		r := rs.At(i)
		label := monthOf(r.Date).Format("2006-01")
		buckets[label] = buckets[label].Add(valueOf(r))
	}

	var out []MonthValue
	last := monthOf(to)
	for m := monthOf(from); !m.After(last); m = m.AddDate(0, 1, 0) {
		label := m.Format("2006-01")
		out = append(out, MonthValue{Month: m, Label: label, Value: buckets[label]})
	}
	return out, nil
}

// LowStock returns, per product, the minimum inventory_after when it is
// strictly below threshold, ordered ascending by that minimum then product name.
func LowStock(rs entity.RecordSet, threshold int64) []StockLevel {
	minimum := make(map[string]int64)
	for i := 0; i < rs.Len(); i++ {
		r := rs.At(i)
		if cur, ok := minimum[r.Product]; !ok || r.InventoryAfter < cur {
			minimum[r.Product] = r.InventoryAfter
		}
	}

	out := []StockLevel{}
	for product, inv := range minimum {
		if inv < threshold {
			out = append(out, StockLevel{Product: product, MinInventory: inv})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MinInventory != out[j].MinInventory {
			return out[i].MinInventory < out[j].MinInventory
		}
		return out[i].Product < out[j].Product
	})
	return out
}

// ExpiringWithin returns distinct (product, expiry, inventory) tuples whose
// expiry falls in [day of reference, day of reference + windowDays], both ends
// inclusive. Days are UTC calendar days, the zone expiry dates are parsed in;
// only the reference's calendar date is used, whatever its location.
// Output is ordered by expiry date, then product, then inventory.
func ExpiringWithin(rs entity.RecordSet, reference time.Time, windowDays int) []ExpiryItem {
	out := []ExpiryItem{}
	if windowDays < 0 {
		return out
	}

	start := time.Date(reference.Year(), reference.Month(), reference.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, windowDays+1)

	type tupleKey struct {
		product   string
		expiry    int64
		inventory int64
	}
	seen := make(map[tupleKey]bool)

	for i := 0; i < rs.Len(); i++ {
		r := rs.At(i)
		if r.ExpiryDate == nil {
			continue
		}
		expiry := *r.ExpiryDate
		if expiry.Before(start) || !expiry.Before(end) {
			continue
		}

		k := tupleKey{product: r.Product, expiry: expiry.UnixNano(), inventory: r.InventoryAfter}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, ExpiryItem{Product: r.Product, ExpiryDate: expiry, InventoryAfter: r.InventoryAfter})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(out[j].ExpiryDate)
		}
		if out[i].Product != out[j].Product {
			return out[i].Product < out[j].Product
		}
		return out[i].InventoryAfter < out[j].InventoryAfter
	})
	return out
}
