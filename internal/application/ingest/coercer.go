package ingest

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

// TimestampLayouts are the accepted date formats, tried in order.
// Slash dates are month-first.
var TimestampLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"2006.01.02",
	"1/2/2006",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"2-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

var (
	errEmpty      = errors.New("empty value")
	errNotInteger = errors.New("not a whole number")
	errOverflow   = errors.New("out of range")
	errNoLayout   = errors.New("no matching date layout")
)

var maxInt64 = decimal.NewFromInt(math.MaxInt64)

// Coercer converts string cells into semantic types under a coerce-or-null policy
type Coercer struct {
	layouts  []string
	location *time.Location
}

// NewCoercer creates a coercer that interprets zone-less timestamps in UTC
func NewCoercer() *Coercer {
	return &Coercer{
		layouts:  TimestampLayouts,
		location: time.UTC,
	}
}

// Coerce converts one column of t to typ. Unparseable cells become null and are
// counted in the returned warning. A missing column yields t unchanged.
func (c *Coercer) Coerce(t *entity.Table, column string, typ entity.SemanticType) (*entity.Table, entity.CoercionWarning) {
	warning := entity.CoercionWarning{Column: column, Type: typ}

	idx := t.ColumnIndex(column)
	if idx < 0 {
		return t, warning
	}

	out := t.Clone()
	for _, row := range out.Rows {
		cell, failed := c.CoerceCell(row[idx], typ)
		row[idx] = cell
		if failed {
			warning.Failures++
		}
	}

	return out, warning
}

// CoerceCell converts a single cell from its raw text. failed is true when
// non-blank text could not be parsed; blank text is simply null.
func (c *Coercer) CoerceCell(cell entity.Cell, typ entity.SemanticType) (entity.Cell, bool) {
	base := entity.StringCell(cell.Raw)
	if !base.Valid {
		base.Type = typ
		return base, false
	}

	var err error
	switch typ {
	case entity.TypeTimestamp:
		base.Time, err = c.ParseTimestamp(base.Text)
	case entity.TypeDecimal:
		base.Decimal, err = ParseDecimal(base.Text)
	case entity.TypeInteger:
		base.Int, err = ParseInteger(base.Text)
	case entity.TypeString:
		return base, false
	}

	base.Type = typ
	if err != nil {
		base.Valid = false
		return base, true
	}
	return base, false
}

// ParseTimestamp parses s with the first matching layout. Values carrying an
// offset are converted to UTC so one sheet never mixes zones.
func (c *Coercer) ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmpty
	}
	for _, layout := range c.layouts {
		if ts, err := time.ParseInLocation(layout, s, c.location); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, errNoLayout
}

// ParseDecimal parses a number, stripping currency symbols, thousands
// separators and accounting-style parentheses.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', '¥', '₹', '₱', ',', ' ', '\u00a0':
			return -1
		}
		return r
	}, s)
	if cleaned == "" {
		return decimal.Zero, errEmpty
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, err
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParseInteger parses a whole number. Integral decimals such as "5.0" are accepted.
func ParseInteger(s string) (int64, error) {
	d, err := ParseDecimal(s)
	if err != nil {
		return 0, err
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, errNotInteger
	}
	if d.Abs().GreaterThan(maxInt64) {
		return 0, errOverflow
	}
	return d.IntPart(), nil
}
