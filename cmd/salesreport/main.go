// Command salesreport validates a sales CSV export and prints a markdown
// summary of the KPIs, stock alerts and rejected rows.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/alerting"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/ingest"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/application/metrics"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/api"
	"github.com/damon-houk/bizbuddy-sales-insights/internal/infrastructure/logger"
)

const reportTopN = 5

func main() {
	file := flag.String("file", "", "path to a CSV export, or - for stdin")
	sheetURL := flag.String("url", "", "published sheet CSV URL, used when -file is empty")
	profile := flag.String("schema", "dashboard", "schema profile: dashboard, agent or full")
	refFlag := flag.String("reference", "", "reference date for expiry alerts (YYYY-MM-DD, default today)")
	level := flag.String("log-level", "WARN", "log level")
	flag.Parse()

	log := logger.NewJSONLogger(os.Stderr, logger.ParseLevel(*level))
	logger.SetDefaultLogger(log)

	reference := time.Now().UTC()
	if *refFlag != "" {
		parsed, err := time.Parse("2006-01-02", *refFlag)
		if err != nil {
			log.Fatal("Invalid reference date", map[string]interface{}{"reference": *refFlag, "error": err})
		}
		reference = parsed
	}

	schema, err := ingest.SchemaByName(strings.ToLower(*profile))
	if err != nil {
		log.Fatal("Invalid schema profile", map[string]interface{}{"error": err})
	}

	raw, err := readTable(*file, *sheetURL, log)
	if err != nil {
		log.Fatal("Failed to read sales data", map[string]interface{}{"error": err})
	}

	records, report, err := ingest.NewPipeline(schema).Run(raw)
	if err != nil {
		log.Fatal("Sales data failed validation", map[string]interface{}{"error": err})
	}

	policy, err := alerting.NewPolicy(alerting.DefaultConfig())
	if err != nil {
		log.Fatal("Invalid alert thresholds", map[string]interface{}{"error": err})
	}

	if err := writeReport(os.Stdout, records, report, policy, reference); err != nil {
		log.Fatal("Failed to write report", map[string]interface{}{"error": err})
	}
}

func readTable(file, sheetURL string, log logger.Logger) (*entity.Table, error) {
	switch {
	case file == "-":
		return ingest.ReadCSV(os.Stdin)
	case file != "":
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ingest.ReadCSV(f)
	case sheetURL != "":
		client := api.NewSheetClient(api.SheetClientConfig{URL: sheetURL, Logger: log})
		return client.FetchTable(context.Background())
	default:
		return nil, fmt.Errorf("one of -file or -url is required")
	}
}

// writeReport renders the markdown report
func writeReport(w io.Writer, rs entity.RecordSet, report entity.ValidationReport, policy *alerting.Policy, reference time.Time) error {
	var b strings.Builder

	summary := metrics.Summarize(rs)
	b.WriteString("# Sales report\n\n")
	if from, to, ok := rs.DateSpan(); ok {
		fmt.Fprintf(&b, "Sales from %s to %s. Alerts as of %s.\n\n",
			from.Format("2006-01-02"), to.Format("2006-01-02"), reference.Format("2006-01-02"))
	}

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Records: %d\n", summary.Records)
	fmt.Fprintf(&b, "- Total revenue: %s\n", summary.TotalRevenue.StringFixed(2))
	fmt.Fprintf(&b, "- Total profit: %s\n", summary.TotalProfit.StringFixed(2))
	fmt.Fprintf(&b, "- Units sold: %d\n", summary.TotalUnits)
	fmt.Fprintf(&b, "- Top product: %s\n", orNone(summary.TopProduct))
	fmt.Fprintf(&b, "- Top location: %s\n\n", orNone(summary.TopLocation))

	top, err := metrics.TopBy(rs, metrics.ByProduct, metrics.Revenue, reportTopN)
	if err != nil {
		return err
	}
	b.WriteString("## Top products by revenue\n\n| Product | Revenue |\n|---|---:|\n")
	for _, g := range top {
		fmt.Fprintf(&b, "| %s | %s |\n", g.Group, g.Value.StringFixed(2))
	}
	b.WriteString("\n")

	trend, err := metrics.MonthlyTrend(rs, metrics.Revenue)
	if err != nil {
		return err
	}
	b.WriteString("## Monthly revenue\n\n| Month | Revenue |\n|---|---:|\n")
	for _, m := range trend {
		fmt.Fprintf(&b, "| %s | %s |\n", m.Label, m.Value.StringFixed(2))
	}
	b.WriteString("\n")

	b.WriteString("## Alerts\n\n")
	alerts := policy.Evaluate(rs, reference)
	if len(alerts) == 0 {
		b.WriteString("No alerts.\n")
	}
	for _, a := range alerts {
		fmt.Fprintf(&b, "- **%s** (%s) %s: %s\n", a.Kind, a.Severity, a.Product, a.Detail)
	}
	b.WriteString("\n")

	b.WriteString("## Data quality\n\n")
	fmt.Fprintf(&b, "%d of %d rows accepted, %d rejected.\n", report.AcceptedRows, report.TotalRows, report.RejectedRows)
	for _, cw := range report.CoercionWarnings {
		fmt.Fprintf(&b, "- %s: %d cells could not be read as %s\n", cw.Column, cw.Failures, cw.Type)
	}
	for _, c := range report.AliasConflicts {
		fmt.Fprintf(&b, "- column %q was not renamed to %s, already taken by %q\n", c.Column, c.Canonical, c.KeptFrom)
	}
	for _, r := range report.Rejections {
		fmt.Fprintf(&b, "- row %d rejected: %s\n", r.Row+1, r.Reason())
	}

	_, err = io.WriteString(w, b.String())
	return err
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
