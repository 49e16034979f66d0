package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/alerting"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/ingest"
)

const sheet = `Date,Product,Revenue,Units_Sold,Inventory_After,Location,Expiry Date
2025-05-03,Aspirin,50.10,5,40,Downtown,2025-07-20
2025-06-14,Zinc,12,3,12,Uptown,
2025-06-20,Ibuprofen,,2,25,Downtown,
`

func TestWriteReport(t *testing.T) {
	records, report, err := ingest.NewPipeline(ingest.DashboardSchema()).RunCSV(strings.NewReader(sheet))
	require.NoError(t, err)
	policy, err := alerting.NewPolicy(alerting.DefaultConfig())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, records, report, policy, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)))
	out := buf.String()

	assert.Contains(t, out, "Sales from 2025-05-03 to 2025-06-14")
	assert.Contains(t, out, "- Total revenue: 62.10")
	assert.Contains(t, out, "- Top product: Aspirin")
	assert.Contains(t, out, "| 2025-05 | 50.10 |")
	assert.Contains(t, out, "**LOW_STOCK** (critical) Zinc")
	assert.Contains(t, out, "**EXPIRY_WARNING** (critical) Aspirin")
	assert.Contains(t, out, "2 of 3 rows accepted, 1 rejected.")
	assert.Contains(t, out, "- row 3 rejected: missing revenue")
}

func TestReadTableNeedsASource(t *testing.T) {
	_, err := readTable("", "", nil)
	assert.Error(t, err)
}
