package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/hazard-report-service/internal/domain"
)

var requiredColumns = []string{"type", "description", "latitude", "longitude"}

// row is one parsed CSV record with its 1-based line number for error messages.
type row struct {
	line  int
	input domain.ReportInput
}

func readRows(r io.Reader) ([]row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	colIdx := map[string]int{}
	for i, h := range header {
		colIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := colIdx[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}

	var rows []row
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		in, err := parseRow(rec, colIdx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row{line: line, input: in})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data rows")
	}
	return rows, nil
}

func parseRow(rec []string, colIdx map[string]int) (domain.ReportInput, error) {
	lat, err := strconv.ParseFloat(get(rec, colIdx, "latitude"), 64)
	if err != nil {
		return domain.ReportInput{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(get(rec, colIdx, "longitude"), 64)
	if err != nil {
		return domain.ReportInput{}, fmt.Errorf("longitude: %w", err)
	}

	in := domain.ReportInput{
		Type:        get(rec, colIdx, "type"),
		Description: get(rec, colIdx, "description"),
		Latitude:    &lat,
		Longitude:   &lon,
		Address:     get(rec, colIdx, "address"),
	}
	if s := get(rec, colIdx, "date"); s != "" {
		d, err := parseDate(s)
		if err != nil {
			return domain.ReportInput{}, err
		}
		in.Date = &d
	}
	return in, nil
}

// parseDate accepts RFC 3339 timestamps or bare dates, read as UTC midnight.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: want RFC 3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

func get(rec []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
