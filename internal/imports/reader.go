package imports

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MaxRows bounds how many data rows a single file may carry.
const MaxRows = 5000

var errTooManyRows = fmt.Errorf("file has more than %d rows", MaxRows)

type format string

const (
	formatCSV  format = "csv"
	formatXLSX format = "xlsx"
)

func detectFormat(filename string) (format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return formatCSV, nil
	case ".xlsx":
		return formatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported file type %q: use csv or xlsx", filepath.Ext(filename))
	}
}

// readRows returns the data rows of a csv or xlsx file keyed by normalized
// header names. Blank rows are skipped.
func readRows(f format, r io.Reader) ([]map[string]string, error) {
	var (
		records [][]string
		err     error
	)
	switch f {
	case formatCSV:
		records, err = readCSV(r)
	case formatXLSX:
		records, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("file is empty")
	}

	header := make([]string, len(records[0]))
	for i, name := range records[0] {
		header[i] = normalizeHeader(name)
	}
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		blank := true
		for i, name := range header {
			if name == "" || i >= len(record) {
				continue
			}
			value := strings.TrimSpace(record[i])
			if value != "" {
				blank = false
			}
			row[name] = value
		}
		if blank {
			continue
		}
		if len(rows) == MaxRows {
			return nil, errTooManyRows
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func normalizeHeader(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(name), "_")
}
