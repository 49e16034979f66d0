package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesRecord represents one completed sales transaction
type SalesRecord struct {
	TransactionID  string          `json:"transaction_id"`
	Date           time.Time       `json:"date"`
	Product        string          `json:"product"`
	Category       string          `json:"category"`
	Location       string          `json:"location"`
	Platform       string          `json:"platform"`
	PaymentMethod  string          `json:"payment_method"`
	UnitsSold      int64           `json:"units_sold"`
	InventoryAfter int64           `json:"inventory_after"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	CostPrice      decimal.Decimal `json:"cost_price"`
	Revenue        decimal.Decimal `json:"revenue"`
	Profit         decimal.Decimal `json:"profit"`
	ExpiryDate     *time.Time      `json:"expiry_date,omitempty"`
}

// HasExpiry reports whether the record carries a known expiry date
func (r SalesRecord) HasExpiry() bool {
	return r.ExpiryDate != nil
}

// RecordSet is an immutable, ordered collection of validated sales records.
// Order matches the source row order.
type RecordSet struct {
	records []SalesRecord
}

// NewRecordSet copies records into a new RecordSet
func NewRecordSet(records []SalesRecord) RecordSet {
	if len(records) == 0 {
		return RecordSet{}
	}

	owned := make([]SalesRecord, len(records))
	copy(owned, records)
	return RecordSet{records: owned}
}

// Len returns the number of records
func (rs RecordSet) Len() int {
	return len(rs.records)
}

// At returns the record at index i
func (rs RecordSet) At(i int) SalesRecord {
	return rs.records[i]
}

// Records returns a copy of the underlying records
func (rs RecordSet) Records() []SalesRecord {
	out := make([]SalesRecord, len(rs.records))
	copy(out, rs.records)
	return out
}

// DateSpan returns the earliest and latest sale dates. ok is false for an empty set.
func (rs RecordSet) DateSpan() (from, to time.Time, ok bool) {
	for i, r := range rs.records {
		if i == 0 || r.Date.Before(from) {
			from = r.Date
		}
		if i == 0 || r.Date.After(to) {
			to = r.Date
		}
	}
	return from, to, len(rs.records) > 0
}
