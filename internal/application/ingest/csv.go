package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/damon-houk/bizbuddy-sales-insights/internal/domain/entity"
)

// ErrNoHeader is returned when CSV input has no header row
var ErrNoHeader = errors.New("csv has no header row")

// ReadCSV parses CSV input into a string-typed table. UTF-8 and UTF-16 byte
// order marks are honored. Blank lines are skipped; ragged rows are padded.
func ReadCSV(r io.Reader) (*entity.Table, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	var rows [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		if isBlank(rec) {
			continue
		}
		rows = append(rows, rec)
	}

	return entity.NewTable(header, rows), nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// WriteCSV writes records under the canonical column names
func WriteCSV(w io.Writer, rs entity.RecordSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CanonicalColumns()); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for i := 0; i < rs.Len(); i++ {
		r := rs.At(i)
		expiry := ""
		if r.ExpiryDate != nil {
			expiry = formatTimestamp(*r.ExpiryDate)
		}
		row := []string{
			r.TransactionID,
			formatTimestamp(r.Date),
			r.Product,
			r.Category,
			strconv.FormatInt(r.UnitsSold, 10),
			strconv.FormatInt(r.InventoryAfter, 10),
			r.Location,
			r.Platform,
			r.PaymentMethod,
			expiry,
			r.UnitPrice.String(),
			r.CostPrice.String(),
			r.Revenue.String(),
			r.Profit.String(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// formatTimestamp writes a bare date for midnight UTC and RFC 3339 otherwise,
// both layouts the coercer reads back.
func formatTimestamp(t time.Time) string {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}
