// Package analysis holds optional analyses that run over a validated RecordSet
// alongside the Metrics Engine.
package analysis

import (
	"errors"
	"fmt"
	"sort"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

var (
	// ErrUnknownAnalysis is returned when no analysis is registered under a name
	ErrUnknownAnalysis = errors.New("unknown analysis")

	// ErrInsufficientHistory is returned when the data spans too few periods
	ErrInsufficientHistory = errors.New("insufficient history")
)

// Analysis is a plug-in computation over a RecordSet. Implementations must not
// mutate the RecordSet and must be safe for concurrent use.
type Analysis interface {
	Name() string
	Run(rs entity.RecordSet) (interface{}, error)
}

// Registry looks analyses up by name
type Registry struct {
	analyses map[string]Analysis
}

// NewRegistry registers the given analyses; a later analysis replaces an earlier one with the same name
func NewRegistry(analyses ...Analysis) *Registry {
	r := &Registry{analyses: make(map[string]Analysis, len(analyses))}
	for _, a := range analyses {
		r.analyses[a.Name()] = a
	}
	return r
}

// DefaultRegistry contains the anomaly detector and forecaster with default settings
func DefaultRegistry() *Registry {
	return NewRegistry(NewAnomalyDetector(), NewForecaster())
}

// Get returns the named analysis
func (r *Registry) Get(name string) (Analysis, error) {
	a, ok := r.analyses[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAnalysis, name)
	}
	return a, nil
}

// Names lists registered analyses in lexical order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.analyses))
	for name := range r.analyses {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes the named analysis
func (r *Registry) Run(name string, rs entity.RecordSet) (interface{}, error) {
	a, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return a.Run(rs)
}
