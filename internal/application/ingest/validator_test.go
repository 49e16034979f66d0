package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/metrics"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

const fullCSV = `Transaction_ID,Date,Product,Category,Units_Sold,Inventory_After,Location,Platform,Payment_Method,Expiry Date,Unit_Price,Cost_Price,Revenue,Profit
T1,2025-07-01,Aspirin,Pain Relief,5,40,Downtown,Store,Cash,2025-08-15,10.00,6.00,50.00,20.00
T2,2025-07-02,Ibuprofen,Pain Relief,2,12,Uptown,Online,Card,,8.50,5.00,17.00,7.00
T3,2025-07-03,Vitamin C,Supplements,3,,Downtown,Store,Card,2026-01-01,4.00,2.00,12.00,6.00
T4,not-a-date,Aspirin,Pain Relief,1,39,Downtown,Store,Cash,2025-08-15,10.00,6.00,10.00,4.00
T5,2025-07-05,Cough Syrup,Cold & Flu,-1,20,Uptown,Store,Cash,soon,7.00,4.00,7.00,-3.00
`

func TestValidate(t *testing.T) {
	t.Run("Full schema skips and reports bad rows", func(t *testing.T) {
		raw, err := ReadCSV(strings.NewReader(fullCSV))
		require.NoError(t, err)

		rs, report, err := NewValidator(nil).Validate(raw, FullSchema())
		require.NoError(t, err)

		assert.Equal(t, 5, report.TotalRows)
		assert.Equal(t, 2, report.AcceptedRows)
		assert.Equal(t, 3, report.RejectedRows)
		assert.True(t, report.Degraded())
		assert.Equal(t, 2, rs.Len())

		require.Len(t, report.Rejections, 3)
		assert.Equal(t, 2, report.Rejections[0].Row)
		assert.Equal(t, []string{"missing inventory_after"}, report.Rejections[0].Reasons)
		assert.Equal(t, 3, report.Rejections[1].Row)
		assert.Equal(t, []string{"missing date"}, report.Rejections[1].Reasons)
		assert.Equal(t, 4, report.Rejections[2].Row)
		assert.Equal(t, []string{"negative units_sold"}, report.Rejections[2].Reasons)

		assert.Equal(t, 1, report.NullCounts[ColInventoryAfter])
		assert.Equal(t, 1, report.NullCounts[ColDate])
		assert.Equal(t, 2, report.NullCounts[ColExpiryDate])

		// Unparseable expiry is a cell warning, never a row failure on its own
		var expiryFailures int
		for _, w := range report.CoercionWarnings {
			if w.Column == ColExpiryDate {
				expiryFailures = w.Failures
			}
		}
		assert.Equal(t, 1, expiryFailures)

		first := rs.At(0)
		assert.Equal(t, "T1", first.TransactionID)
		assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), first.Date)
		assert.Equal(t, int64(5), first.UnitsSold)
		assert.Equal(t, int64(40), first.InventoryAfter)
		assert.True(t, decimal.NewFromInt(50).Equal(first.Revenue))
		require.NotNil(t, first.ExpiryDate)
		assert.Equal(t, 15, first.ExpiryDate.Day())

		second := rs.At(1)
		assert.Equal(t, "T2", second.TransactionID)
		assert.False(t, second.HasExpiry())
	})

	t.Run("Missing inventory_after is rejected when required", func(t *testing.T) {
		raw := entity.NewTable(
			[]string{"Date", "Product", "Revenue", "Units_Sold", "Inventory_After", "Location"},
			[][]string{{"2024-01-01", "Aspirin", "50", "5", "", "Downtown"}},
		)

		rs, report, err := NewValidator(nil).Validate(raw, DashboardSchema())
		require.NoError(t, err)

		assert.Equal(t, 0, rs.Len())
		require.Len(t, report.Rejections, 1)
		assert.Equal(t, 0, report.Rejections[0].Row)
		assert.Contains(t, report.Rejections[0].Reasons, "missing inventory_after")
		assert.Equal(t, "missing inventory_after", report.Rejections[0].Reason())
	})

	t.Run("Missing Revenue column is a schema error", func(t *testing.T) {
		raw := entity.NewTable(
			[]string{"Date", "Product", "Units_Sold", "Inventory_After", "Location"},
			[][]string{{"2024-01-01", "Aspirin", "5", "10", "Downtown"}},
		)

		rs, _, err := NewValidator(nil).Validate(raw, DashboardSchema())

		var schemaErr *entity.SchemaError
		require.True(t, errors.As(err, &schemaErr))
		assert.Equal(t, []string{"Revenue"}, schemaErr.Missing)
		assert.Equal(t, 0, rs.Len())
	})

	t.Run("Optional columns default to zero", func(t *testing.T) {
		raw := entity.NewTable(
			[]string{"Date", "Product", "Revenue", "Units_Sold", "Inventory_After", "Location", "Profit"},
			[][]string{{"2024-01-01", "Aspirin", "50", "5", "10", "Downtown", ""}},
		)

		rs, report, err := NewValidator(nil).Validate(raw, DashboardSchema())
		require.NoError(t, err)

		require.Equal(t, 1, rs.Len())
		assert.True(t, rs.At(0).Profit.IsZero())
		assert.Equal(t, "", rs.At(0).Category)
		assert.Equal(t, 1, report.NullCounts[ColProfit])
		assert.False(t, report.Degraded())
	})

	t.Run("Empty table is valid", func(t *testing.T) {
		raw := entity.NewTable(DashboardSchema().Required, nil)

		rs, report, err := NewValidator(nil).Validate(raw, DashboardSchema())
		require.NoError(t, err)
		assert.Equal(t, 0, rs.Len())
		assert.Equal(t, 0, report.TotalRows)
	})
}

func TestPipeline(t *testing.T) {
	t.Run("Aliased date column is renamed", func(t *testing.T) {
		schema := Schema{Name: "minimal", Required: []string{ColDate, ColProduct, ColUnitsSold, ColRevenue}}
		raw := entity.NewTable(
			[]string{"Order Date", "Product", "Units_Sold", "Revenue"},
			[][]string{{"2024-01-01", "Aspirin", "5", "50.0"}},
		)

		rs, report, err := NewPipeline(schema).Run(raw)
		require.NoError(t, err)

		require.Equal(t, 1, rs.Len())
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), rs.At(0).Date)
		assert.True(t, decimal.RequireFromString("50.0").Equal(rs.At(0).Revenue))
		assert.True(t, decimal.RequireFromString("50.0").Equal(metrics.TotalRevenue(rs)))
		assert.Contains(t, report.NullCounts, ColDate)
	})

	t.Run("Alias conflicts are reported", func(t *testing.T) {
		input := "Date,Order Date,Product,Revenue,Units_Sold,Inventory_After,Location\n" +
			"2024-01-01,2023-12-31,Aspirin,10,1,5,Downtown\n"

		rs, report, err := NewPipeline(DashboardSchema()).RunCSV(strings.NewReader(input))
		require.NoError(t, err)

		assert.Equal(t, 1, rs.Len())
		assert.Equal(t, 1, rs.At(0).Date.Day())
		require.Len(t, report.AliasConflicts, 1)
		assert.Equal(t, "Order Date", report.AliasConflicts[0].Column)
		assert.True(t, report.Degraded())
	})

	t.Run("Schema error propagates", func(t *testing.T) {
		_, _, err := NewPipeline(AgentSchema()).RunCSV(strings.NewReader("Date,Product\n2024-01-01,Aspirin\n"))

		var schemaErr *entity.SchemaError
		require.True(t, errors.As(err, &schemaErr))
		assert.Equal(t, []string{ColUnitsSold, ColRevenue, ColCostPrice, ColUnitPrice, ColProfit, ColLocation, ColInventoryAfter}, schemaErr.Missing)
	})
}

func TestSchemaByName(t *testing.T) {
	s, err := SchemaByName("")
	require.NoError(t, err)
	assert.Equal(t, "dashboard", s.Name)

	s, err = SchemaByName("full")
	require.NoError(t, err)
	assert.NotContains(t, s.Required, ColExpiryDate)
	assert.Len(t, s.Required, len(Fields)-1)

	_, err = SchemaByName("nope")
	assert.Error(t, err)
}
