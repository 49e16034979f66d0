package ingest

import (
	"io"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

// Pipeline runs normalization, coercion and validation for one schema profile
type Pipeline struct {
	normalizer *Normalizer
	validator  *Validator
	schema     Schema
}

// NewPipeline creates a pipeline using the default alias table and coercer
func NewPipeline(schema Schema) *Pipeline {
	return &Pipeline{
		normalizer: NewNormalizer(nil),
		validator:  NewValidator(nil),
		schema:     schema,
	}
}

// Schema returns the schema profile the pipeline validates against
func (p *Pipeline) Schema() Schema {
	return p.schema
}

// Run normalizes and validates a raw table. Alias conflicts are carried into the report.
func (p *Pipeline) Run(raw *entity.Table) (entity.RecordSet, entity.ValidationReport, error) {
	normalized, plan := p.normalizer.Apply(raw)

	records, report, err := p.validator.Validate(normalized, p.schema)
	if err != nil {
		return entity.RecordSet{}, entity.ValidationReport{}, err
	}

	report.AliasConflicts = plan.Conflicts
	return records, report, nil
}

// RunCSV reads CSV input and runs the pipeline over it
func (p *Pipeline) RunCSV(r io.Reader) (entity.RecordSet, entity.ValidationReport, error) {
	raw, err := ReadCSV(r)
	if err != nil {
		return entity.RecordSet{}, entity.ValidationReport{}, err
	}
	return p.Run(raw)
}
