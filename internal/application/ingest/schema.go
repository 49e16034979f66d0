package ingest

import (
	"fmt"
)

// Schema declares which canonical columns a consumer requires.
// Canonical columns outside Required are optional: coerced when present,
// zero-valued when absent or null.
type Schema struct {
	Name     string
	Required []string
}

// DashboardSchema is what the KPI dashboard needs
func DashboardSchema() Schema {
	return Schema{
		Name:     "dashboard",
		Required: []string{ColDate, ColProduct, ColRevenue, ColUnitsSold, ColInventoryAfter, ColLocation},
	}
}

// AgentSchema is what the question-answering agent needs
func AgentSchema() Schema {
	return Schema{
		Name: "agent",
		Required: []string{
			ColUnitsSold, ColRevenue, ColCostPrice, ColUnitPrice, ColProfit,
			ColProduct, ColLocation, ColInventoryAfter, ColDate,
		},
	}
}

// FullSchema requires every SalesRecord field except the expiry date
func FullSchema() Schema {
	required := make([]string, 0, len(Fields))
	for _, f := range Fields {
		if f.Column == ColExpiryDate {
			continue
		}
		required = append(required, f.Column)
	}
	return Schema{Name: "full", Required: required}
}

// SchemaByName resolves a schema profile name
func SchemaByName(name string) (Schema, error) {
	switch name {
	case "", "dashboard":
		return DashboardSchema(), nil
	case "agent":
		return AgentSchema(), nil
	case "full":
		return FullSchema(), nil
	default:
		return Schema{}, fmt.Errorf("unknown schema profile %q", name)
	}
}

// IsRequired reports whether column is required by the schema
func (s Schema) IsRequired(column string) bool {
	if column == ColExpiryDate {
		return false
	}
	for _, c := range s.Required {
		if c == column {
			return true
		}
	}
	return false
}
