package ingest

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

// DefaultAliases maps known source column names onto canonical names
var DefaultAliases = map[string]string{
	"Order Date":          ColDate,
	"Sale Date":           ColDate,
	"Sales Date":          ColDate,
	"Transaction Date":    ColDate,
	"Product_Expiry_Date": ColExpiryDate,
	"Product Expiry Date": ColExpiryDate,
	"Expiry":              ColExpiryDate,
	"Expiration Date":     ColExpiryDate,
	"Product Name":        ColProduct,
	"Store":               ColLocation,
	"Store Location":      ColLocation,
	"Channel":             ColPlatform,
	"Payment":             ColPaymentMethod,
	"Quantity":            ColUnitsSold,
	"Qty":                 ColUnitsSold,
	"Stock After":         ColInventoryAfter,
	"Price":               ColUnitPrice,
	"Cost":                ColCostPrice,
	"Sales":               ColRevenue,
	"Order ID":            ColTransactionID,
}

// RenamePlan maps source column names to canonical names. Conflicts lists
// aliased columns left untouched because their canonical target was taken.
type RenamePlan struct {
	Renames   map[string]string
	Conflicts []entity.AliasConflict
}

// Empty reports whether the plan renames nothing
func (p RenamePlan) Empty() bool {
	return len(p.Renames) == 0
}

// Normalizer maps heterogeneous source column names onto the canonical schema.
//
// Matching is case-insensitive and ignores spaces, underscores, hyphens and dots,
// so "units sold" and "UNITS-SOLD" both resolve to Units_Sold.
//
// Precedence: a column already carrying a canonical name always wins. Among
// several aliases for the same canonical name the leftmost column wins. Losing
// columns are kept under their original name and reported as conflicts.
type Normalizer struct {
	lookup map[string]string
}

// NewNormalizer creates a normalizer from an alias table (source -> canonical).
// A nil table uses DefaultAliases.
func NewNormalizer(aliases map[string]string) *Normalizer {
	if aliases == nil {
		aliases = DefaultAliases
	}

	lookup := make(map[string]string, len(aliases)+len(Fields))
	for alias, canonical := range aliases {
		lookup[foldKey(alias)] = canonical
	}
	for _, f := range Fields {
		lookup[foldKey(f.Column)] = f.Column
	}

	return &Normalizer{lookup: lookup}
}

// Normalize returns the rename plan for the given source columns. It has no side effects.
func (n *Normalizer) Normalize(columns []string) RenamePlan {
	plan := RenamePlan{Renames: make(map[string]string)}

	claimed := make(map[string]string)
	for _, c := range columns {
		if _, ok := FieldByColumn(c); ok {
			if _, taken := claimed[c]; !taken {
				claimed[c] = c
			}
		}
	}

	for _, c := range columns {
		if _, ok := FieldByColumn(c); ok {
			continue
		}

		target, ok := n.lookup[foldKey(c)]
		if !ok {
			continue
		}

		if owner, taken := claimed[target]; taken {
			plan.Conflicts = append(plan.Conflicts, entity.AliasConflict{
				Column:    c,
				Canonical: target,
				KeptFrom:  owner,
			})
			continue
		}

		plan.Renames[c] = target
		claimed[target] = c
	}

	return plan
}

// Apply normalizes the table's columns and returns the renamed copy with the plan used
func (n *Normalizer) Apply(t *entity.Table) (*entity.Table, RenamePlan) {
	plan := n.Normalize(t.Columns)
	if plan.Empty() {
		return t, plan
	}
	return t.Rename(plan.Renames), plan
}

// foldKey reduces a column name to a case- and separator-insensitive key
func foldKey(s string) string {
	folded := cases.Fold().String(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '.':
			return -1
		}
		return r
	}, folded)
}
