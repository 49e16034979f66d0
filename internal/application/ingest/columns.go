// Package ingest turns a raw sales table into a validated RecordSet:
// column normalization, type coercion and schema validation.
package ingest

import (
	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

// Canonical column names of the sales table
const (
	ColTransactionID  = "Transaction_ID"
	ColDate           = "Date"
	ColProduct        = "Product"
	ColCategory       = "Category"
	ColUnitsSold      = "Units_Sold"
	ColInventoryAfter = "Inventory_After"
	ColLocation       = "Location"
	ColPlatform       = "Platform"
	ColPaymentMethod  = "Payment_Method"
	ColExpiryDate     = "Expiry Date"
	ColUnitPrice      = "Unit_Price"
	ColCostPrice      = "Cost_Price"
	ColRevenue        = "Revenue"
	ColProfit         = "Profit"
)

// Field describes one canonical column: its record field name, its type and
// whether negative values are invalid.
type Field struct {
	Column      string
	Name        string
	Type        entity.SemanticType
	NonNegative bool
}

// Fields lists every canonical column in SalesRecord order
var Fields = []Field{
	{Column: ColTransactionID, Name: "transaction_id", Type: entity.TypeString},
	{Column: ColDate, Name: "date", Type: entity.TypeTimestamp},
	{Column: ColProduct, Name: "product", Type: entity.TypeString},
	{Column: ColCategory, Name: "category", Type: entity.TypeString},
	{Column: ColUnitsSold, Name: "units_sold", Type: entity.TypeInteger, NonNegative: true},
	{Column: ColInventoryAfter, Name: "inventory_after", Type: entity.TypeInteger, NonNegative: true},
	{Column: ColLocation, Name: "location", Type: entity.TypeString},
	{Column: ColPlatform, Name: "platform", Type: entity.TypeString},
	{Column: ColPaymentMethod, Name: "payment_method", Type: entity.TypeString},
	{Column: ColExpiryDate, Name: "expiry_date", Type: entity.TypeTimestamp},
	{Column: ColUnitPrice, Name: "unit_price", Type: entity.TypeDecimal, NonNegative: true},
	{Column: ColCostPrice, Name: "cost_price", Type: entity.TypeDecimal, NonNegative: true},
	{Column: ColRevenue, Name: "revenue", Type: entity.TypeDecimal, NonNegative: true},
	{Column: ColProfit, Name: "profit", Type: entity.TypeDecimal},
}

// FieldByColumn looks up a canonical field
func FieldByColumn(column string) (Field, bool) {
	for _, f := range Fields {
		if f.Column == column {
			return f, true
		}
	}
	return Field{}, false
}

// CanonicalColumns returns the canonical column names in SalesRecord order
func CanonicalColumns() []string {
	cols := make([]string, len(Fields))
	for i, f := range Fields {
		cols[i] = f.Column
	}
	return cols
}
