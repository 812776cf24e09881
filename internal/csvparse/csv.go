package csvparse

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rocjay1/koala-laundry/internal/models"
	"github.com/shopspring/decimal"
)

// Column names used by the laundry operations form.
const (
	ColumnDate   = "Date"
	ColumnName   = "Name"
	ColumnPaid   = "Total Paid"
	ColumnUnpaid = "Total Unpaid"
	ColumnLoads  = "Total loads completed"
)

// SummaryFilename is the default name of the exported summary.
const SummaryFilename = "koala_summary.csv"

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"1/2/2006",
	"1/2/2006 15:04:05",
	"01/02/2006",
	"01/02/2006 15:04:05",
}

var moneyReplacer = strings.NewReplacer("$", "", ",", "")

// ParseCSV parses laundry form responses from a CSV string.
// Monetary and load columns are coerced to zero when they cannot be read.
// It returns the parsed entries and a list of error messages for skipped rows.
func ParseCSV(content string) ([]models.Entry, []string) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, []string{fmt.Sprintf("Failed to read CSV: %v", err)}
	}

	if len(records) < 2 {
		return []models.Entry{}, nil // Empty or header-only
	}

	headers := parseHeaders(records[0])
	var rows []map[string]string
	var errors []string

	for i, record := range records[1:] {
		rowNum := i + 2
		if len(record) < len(headers) {
			errors = append(errors, fmt.Sprintf("Row %d: Not enough fields", rowNum))
			continue
		}

		rowMap := make(map[string]string, len(headers))
		for j, header := range headers {
			rowMap[header] = strings.TrimSpace(record[j])
		}
		rows = append(rows, rowMap)
	}

	// Dates are parsed for the whole column or not at all.
	dates, datesOK := parseDates(rows)

	entries := make([]models.Entry, 0, len(rows))
	for i, row := range rows {
		e := models.Entry{
			Name:        row[ColumnName],
			TotalPaid:   parseMoney(row[ColumnPaid]),
			TotalUnpaid: parseMoney(row[ColumnUnpaid]),
			Loads:       parseLoads(row[ColumnLoads]),
		}
		if datesOK {
			e.Date = dates[i]
		} else {
			e.DateRaw = row[ColumnDate]
		}
		entries = append(entries, e)
	}

	return entries, errors
}

func parseHeaders(row []string) []string {
	headers := make([]string, len(row))
	for i, h := range row {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return headers
}

func parseDates(rows []map[string]string) ([]time.Time, bool) {
	dates := make([]time.Time, len(rows))
	for i, row := range rows {
		raw := row[ColumnDate]
		if raw == "" {
			continue
		}
		d, ok := parseDate(raw)
		if !ok {
			return nil, false
		}
		dates[i] = d
	}
	return dates, true
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

func parseMoney(raw string) decimal.Decimal {
	cleaned := strings.TrimSpace(moneyReplacer.Replace(raw))
	if cleaned == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

func parseLoads(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := decimal.NewFromString(raw)
	if err != nil {
		return 0
	}
	return int(n.IntPart())
}

// WriteSummaryCSV writes the summary as metric,value rows.
func WriteSummaryCSV(w io.Writer, s models.Summary) error {
	writer := csv.NewWriter(w)
	rows := [][]string{
		{"metric", "value"},
		{ColumnPaid, s.TotalPaid.StringFixed(2)},
		{ColumnUnpaid, s.TotalUnpaid.StringFixed(2)},
		{ColumnLoads, strconv.Itoa(s.TotalLoads)},
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write summary CSV: %w", err)
	}
	return nil
}
