// Package accession loads the spreadsheet that maps plant QR codes to accession names.
package accession

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither spreadsheets nor delimited text
	ErrUnsupportedFormat = errors.New("unsupported accession source format")

	// ErrSheetNotFound is returned when the named sheet is absent from a workbook
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrEmptySource is returned when the source has no header row
	ErrEmptySource = errors.New("accession source has no header row")
)

// MissingColumnError is returned when a configured header is absent from the header row
type MissingColumnError struct {
	Source string
	Column string
	Header []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column %q not found in header row of %s (found: %s)",
		e.Column, e.Source, strings.Join(e.Header, ", "))
}

// Map maps a physical plant identifier (QR code) to its accession name.
// It is read-only once built.
type Map map[string]string

// Lookup returns the accession name for a QR code
func (m Map) Lookup(qrCode string) (string, bool) {
	name, ok := m[qrCode]
	return name, ok
}

// Resolve reads location and builds the identifier to name mapping.
// Workbooks (.xlsx, .xlsm) are read from the named sheet; delimited files
// (.csv, .tsv) have a single table and ignore sheet.
// When an identifier appears on several rows the last row wins.
func Resolve(location, sheet, idColumn, nameColumn string) (Map, error) {
	rows, err := readRows(location, sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, location)
	}

	header := rows[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	idIdx := indexOf(header, idColumn)
	if idIdx < 0 {
		return nil, &MissingColumnError{Source: location, Column: idColumn, Header: header}
	}
	nameIdx := indexOf(header, nameColumn)
	if nameIdx < 0 {
		return nil, &MissingColumnError{Source: location, Column: nameColumn, Header: header}
	}

	m := make(Map, len(rows)-1)
	for _, row := range rows[1:] {
		id := strings.TrimSpace(cell(row, idIdx))
		if id == "" {
			continue
		}
		m[id] = strings.TrimSpace(cell(row, nameIdx))
	}
	return m, nil
}

func readRows(location, sheet string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(location)) {
	case ".xlsx", ".xlsm":
		return readWorkbook(location, sheet)
	case ".csv":
		return readDelimited(location, ',')
	case ".tsv":
		return readDelimited(location, '\t')
	default:
		return nil, fmt.Errorf("%w: %s (expected .xlsx, .xlsm, .csv or .tsv)", ErrUnsupportedFormat, location)
	}
}

func readWorkbook(location, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(location)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", location, err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q in %s (available: %s)",
			ErrSheetNotFound, sheet, location, strings.Join(f.GetSheetList(), ", "))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheet, location, err)
	}
	return rows, nil
}

func readDelimited(location string, comma rune) ([][]string, error) {
	file, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", location, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", location, err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func indexOf(header []string, column string) int {
	for i, h := range header {
		if h == column {
			return i
		}
	}
	return -1
}

// cell tolerates short rows; spreadsheets drop trailing empty cells
func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}
