package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

func TestReadCSVSemicolonWithBOM(t *testing.T) {
	input := "\xEF\xBB\xBFMağaza;Malzeme Kodu;Fark Miktarı\n\n1339;A1;-4\n;;\n1339;A2;\"1,5\"\n"

	table, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if got := strings.Join(table.Header, "|"); got != "Mağaza|Malzeme Kodu|Fark Miktarı" {
		t.Fatalf("unexpected header %q", got)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 data rows, got %d", len(table.Rows))
	}
	if table.Rows[1][2] != "1,5" {
		t.Fatalf("quoted cell = %q", table.Rows[1][2])
	}
}

func TestReadCSVWindows1254(t *testing.T) {
	encoded, err := charmap.Windows1254.NewEncoder().String("Mağaza,Satış Tutarı\n7946,1.250,00\n")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	table, err := ReadCSV(strings.NewReader(encoded))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if table.Header[0] != "Mağaza" || table.Header[1] != "Satış Tutarı" {
		t.Fatalf("header not decoded: %q", table.Header)
	}
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Mağaza", "Malzeme Kodu", "Fark Miktarı", "Fark Tutarı"},
		{"1339", "A1", -4, -600.5},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	table, err := Read(&buf, "export.xlsx")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if table.Name != "export.xlsx" {
		t.Fatalf("name = %q", table.Name)
	}
	if len(table.Header) != 4 || table.Header[0] != "Mağaza" {
		t.Fatalf("leading blank row not skipped, header = %q", table.Header)
	}
	if len(table.Rows) != 1 || table.Rows[0][3] != "-600.5" {
		t.Fatalf("unexpected rows %q", table.Rows)
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReadFileCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	if err := os.WriteFile(path, []byte("SKU,Fark Miktarı\nP1,-2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	table, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if table.Name != "export.csv" || table.Empty() {
		t.Fatalf("unexpected table %+v", table)
	}
}
