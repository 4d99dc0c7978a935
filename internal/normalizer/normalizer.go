// Package normalizer maps variant inventory export headers onto
// domain.InventoryLine and coerces numeric cells.
package normalizer

import (
	"math"
	"strings"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
	"github.com/senirlioglu/envanter-risk-analizi/internal/ingest"
)

// WasteSign is the sign the source uses for recorded waste loss.
type WasteSign string

const (
	// WasteLossNegative: the export already records waste loss as negative.
	WasteLossNegative WasteSign = "negative"
	// WasteLossPositive: the export records waste loss as positive and it
	// is negated at ingest.
	WasteLossPositive WasteSign = "positive"
)

// ParseWasteSign defaults to WasteLossNegative.
func ParseWasteSign(s string) WasteSign {
	if strings.EqualFold(strings.TrimSpace(s), string(WasteLossPositive)) {
		return WasteLossPositive
	}
	return WasteLossNegative
}

type Options struct {
	WasteLossSign WasteSign
	// DecimalComma treats a lone comma as the decimal separator.
	DecimalComma bool
	// StoreID fills lines whose export has no store column.
	StoreID string
	Period  string
}

// Normalize converts raw rows into inventory lines. Rows without a product
// id (blank or subtotal rows) are dropped; every other cell problem is
// coerced to a zero value.
func Normalize(header []string, records [][]string, opts Options) []domain.InventoryLine {
	cols := MapColumns(header)
	kind := detectKind(cols, records)

	lines := make([]domain.InventoryLine, 0, len(records))
	for _, record := range records {
		get := func(f Field) string {
			idx := cols.Index(f)
			if idx < 0 || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		num := func(f Field) float64 {
			return ParseNumber(get(f), opts.DecimalComma)
		}

		line := domain.InventoryLine{
			Period:              opts.Period,
			StoreID:             cleanCode(get(FieldStoreID)),
			StoreName:           get(FieldStoreName),
			ProductID:           cleanCode(get(FieldProductID)),
			ProductName:         get(FieldProductName),
			ProductGroup:        get(FieldProductGroup),
			Brand:               get(FieldBrand),
			StorageCategory:     get(FieldStorageCategory),
			VarianceQty:         num(FieldVarianceQty),
			VarianceAmount:      num(FieldVarianceAmount),
			PartialCountQty:     num(FieldPartialQty),
			PartialCountAmount:  num(FieldPartialAmount),
			PriorVarianceQty:    num(FieldPriorQty),
			PriorVarianceAmount: num(FieldPriorAmount),
			CancelledLineQty:    math.Abs(num(FieldCancelledQty)),
			CancelledLineAmount: math.Abs(num(FieldCancelledAmount)),
			WasteQty:            num(FieldWasteQty),
			WasteAmount:         num(FieldWasteAmount),
			SalesQty:            num(FieldSalesQty),
			SalesAmount:         num(FieldSalesAmount),
			CountedQty:          num(FieldCountedQty),
			UnitPrice:           math.Abs(num(FieldUnitPrice)),
			Kind:                kind,
		}
		if line.ProductID == "" {
			continue
		}
		if line.StoreID == "" {
			line.StoreID = opts.StoreID
		}
		if opts.WasteLossSign == WasteLossPositive {
			line.WasteQty = negate(line.WasteQty)
			line.WasteAmount = negate(line.WasteAmount)
		}
		if line.UnitPrice == 0 {
			line.UnitPrice = domain.DeriveUnitPrice(line)
		}
		lines = append(lines, line)
	}
	return lines
}

// NormalizeTable normalizes an ingested table.
func NormalizeTable(t ingest.Table, opts Options) []domain.InventoryLine {
	return Normalize(t.Header, t.Rows, opts)
}

func negate(v float64) float64 {
	if v == 0 {
		return 0
	}
	return -v
}

// cleanCode trims spreadsheet artifacts from identifier cells, e.g. a
// numeric store code exported as "1339.0".
func cleanCode(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, ".0") && isDigits(strings.TrimSuffix(s, ".0")) {
		return strings.TrimSuffix(s, ".0")
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
