package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ReadCSV reads a CSV export. UTF-8 input (with or without BOM) is read as
// is; anything that is not valid UTF-8 is decoded as Windows-1254, the
// Turkish code page most POS exports use. The delimiter is sniffed from the
// first line.
func ReadCSV(r io.Reader) (Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Table{}, fmt.Errorf("failed to read csv: %w", err)
	}

	var src io.Reader
	switch {
	case hasBOM(raw):
		src = bytes.NewReader(raw[len(utf8BOM):])
	case utf8.Valid(raw):
		src = bytes.NewReader(raw)
	default:
		src = transform.NewReader(bytes.NewReader(raw), charmap.Windows1254.NewDecoder())
	}

	br := bufio.NewReader(src)
	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(br)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("failed to parse csv: %w", err)
	}

	header, rows := firstNonEmpty(records)
	return Table{Header: header, Rows: rows}, nil
}

// sniffDelimiter peeks at the first line and picks ';', '\t' or ','.
func sniffDelimiter(br *bufio.Reader) rune {
	peek, _ := br.Peek(4096)
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		peek = peek[:i]
	}

	best, bestCount := ',', bytes.Count(peek, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(peek, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
