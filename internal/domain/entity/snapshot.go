package entity

import (
	"time"
)

// AliasConflict records an aliased source column that was not renamed because
// its canonical target was already taken
type AliasConflict struct {
	Column    string `json:"column"`
	Canonical string `json:"canonical"`
	KeptFrom  string `json:"kept_from"`
}

// ValidationReport summarizes one validation run
type ValidationReport struct {
	TotalRows        int               `json:"total_rows"`
	AcceptedRows     int               `json:"accepted_rows"`
	RejectedRows     int               `json:"rejected_rows"`
	NullCounts       map[string]int    `json:"null_counts"`
	CoercionWarnings []CoercionWarning `json:"coercion_warnings,omitempty"`
	Rejections       []RowRejection    `json:"rejections,omitempty"`
	AliasConflicts   []AliasConflict   `json:"alias_conflicts,omitempty"`
}

// Degraded reports whether some rows or cells were dropped while the data set stayed usable
func (r ValidationReport) Degraded() bool {
	return r.RejectedRows > 0 || len(r.CoercionWarnings) > 0 || len(r.AliasConflicts) > 0
}

// Snapshot is one loaded, validated data set
type Snapshot struct {
	ID       string
	Source   string
	LoadedAt time.Time
	Records  RecordSet
	Report   ValidationReport
}
