// Package ingest reads inventory exports (CSV or XLSX) into raw tables.
package ingest

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Table is a header row plus its data rows, exactly as read from the source.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Empty reports whether the table carries no data rows.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// ReadFile dispatches on the file extension.
func ReadFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	t, err := Read(f, filepath.Base(path))
	if err != nil {
		return Table{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return t, nil
}

// Read parses r as XLSX when name ends in .xlsx/.xlsm, otherwise as CSV.
func Read(r io.Reader, name string) (Table, error) {
	var (
		t   Table
		err error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		t, err = ReadXLSX(r)
	default:
		t, err = ReadCSV(r)
	}
	if err != nil {
		return Table{}, err
	}
	t.Name = name
	return t, nil
}

// firstNonEmpty splits rows into header and data, skipping leading blank rows.
func firstNonEmpty(rows [][]string) ([]string, [][]string) {
	for i, row := range rows {
		if !blankRow(row) {
			return trimCells(row), dropBlank(rows[i+1:])
		}
	}
	return nil, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func dropBlank(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if blankRow(row) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func trimCells(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.TrimSpace(strings.TrimPrefix(c, string(utf8BOM)))
	}
	return out
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func hasBOM(b []byte) bool {
	return bytes.HasPrefix(b, utf8BOM)
}
