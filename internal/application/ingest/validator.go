package ingest

import (
	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

// Validator checks a normalized table against a Schema and builds the RecordSet
type Validator struct {
	coercer *Coercer
}

// NewValidator creates a validator. A nil coercer uses NewCoercer().
func NewValidator(coercer *Coercer) *Validator {
	if coercer == nil {
		coercer = NewCoercer()
	}
	return &Validator{coercer: coercer}
}

// Validate coerces every canonical column present in t and converts rows into
// SalesRecords. A required column missing from the table fails the whole data
// set with *entity.SchemaError. Rows with a null required field or a negative
// value in a non-negative field are skipped and reported.
func (v *Validator) Validate(t *entity.Table, schema Schema) (entity.RecordSet, entity.ValidationReport, error) {
	var missing []string
	for _, c := range schema.Required {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return entity.RecordSet{}, entity.ValidationReport{}, &entity.SchemaError{Missing: missing}
	}

	report := entity.ValidationReport{
		TotalRows:  len(t.Rows),
		NullCounts: make(map[string]int),
	}

	type boundField struct {
		Field
		index    int
		required bool
	}

	coerced := t
	var bound []boundField
	for _, f := range Fields {
		if !coerced.HasColumn(f.Column) {
			continue
		}

		var warning entity.CoercionWarning
		coerced, warning = v.coercer.Coerce(coerced, f.Column, f.Type)
		if warning.Failures > 0 {
			report.CoercionWarnings = append(report.CoercionWarnings, warning)
		}

		bound = append(bound, boundField{
			Field:    f,
			index:    coerced.ColumnIndex(f.Column),
			required: schema.IsRequired(f.Column),
		})
		report.NullCounts[f.Column] = 0
	}

	records := make([]entity.SalesRecord, 0, len(coerced.Rows))
	for rowIdx, row := range coerced.Rows {
		var rec entity.SalesRecord
		var reasons []string

		for _, bf := range bound {
			cell := row[bf.index]
			if !cell.Valid {
				report.NullCounts[bf.Column]++
				if bf.required {
					reasons = append(reasons, "missing "+bf.Name)
				}
				continue
			}
			if bf.NonNegative && isNegative(cell) {
				reasons = append(reasons, "negative "+bf.Name)
				continue
			}
			assign(&rec, bf.Field, cell)
		}

		if len(reasons) > 0 {
			report.Rejections = append(report.Rejections, entity.RowRejection{Row: rowIdx, Reasons: reasons})
			continue
		}
		records = append(records, rec)
	}

	report.AcceptedRows = len(records)
	report.RejectedRows = len(report.Rejections)

	return entity.NewRecordSet(records), report, nil
}

func isNegative(cell entity.Cell) bool {
	switch cell.Type {
	case entity.TypeInteger:
		return cell.Int < 0
	case entity.TypeDecimal:
		return cell.Decimal.IsNegative()
	}
	return false
}

// assign copies a valid cell into the matching record field
func assign(rec *entity.SalesRecord, f Field, cell entity.Cell) {
	switch f.Column {
	case ColTransactionID:
		rec.TransactionID = cell.Text
	case ColDate:
		rec.Date = cell.Time
	case ColProduct:
		rec.Product = cell.Text
	case ColCategory:
		rec.Category = cell.Text
	case ColLocation:
		rec.Location = cell.Text
	case ColPlatform:
		rec.Platform = cell.Text
	case ColPaymentMethod:
		rec.PaymentMethod = cell.Text
	case ColUnitsSold:
		rec.UnitsSold = cell.Int
	case ColInventoryAfter:
		rec.InventoryAfter = cell.Int
	case ColUnitPrice:
		rec.UnitPrice = cell.Decimal
	case ColCostPrice:
		rec.CostPrice = cell.Decimal
	case ColRevenue:
		rec.Revenue = cell.Decimal
	case ColProfit:
		rec.Profit = cell.Decimal
	case ColExpiryDate:
		expiry := cell.Time
		rec.ExpiryDate = &expiry
	}
}
