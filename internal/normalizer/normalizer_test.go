package normalizer

import (
	"testing"

	"github.com/senirlioglu/envanter-risk-analizi/internal/ingest"
)

func TestFold(t *testing.T) {
	cases := map[string]string{
		"SATIŞ MİKTARI":         "satis miktari",
		"Satis  Miktari":        "satis miktari",
		"  İptal_Satır Tutarı ": "iptal satir tutari",
		"ÖNCEKİ FARK MİKTARI":   "onceki fark miktari",
		"Kısmi Envanter Tutarı": "kismi envanter tutari",
		"DEPOLAMA KOŞULU GRUBU": "depolama kosulu grubu",
	}
	for in, want := range cases {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		raw          string
		decimalComma bool
		want         float64
	}{
		{"", true, 0},
		{"abc", true, 0},
		{"-", true, 0},
		{"12", true, 12},
		{"-4", true, -4},
		{"1.234,56", true, 1234.56},
		{"1,234.56", false, 1234.56},
		{"12,5", true, 12.5},
		{"1,234", false, 1234},
		{"1.234.567", true, 1234567},
		{"(150,00)", true, -150},
		{"1.000,00 TL", true, 1000},
		{"₺ 250", true, 250},
		{"NaN", true, 0},
		{"Inf", true, 0},
	}
	for _, tt := range tests {
		if got := ParseNumber(tt.raw, tt.decimalComma); got != tt.want {
			t.Errorf("ParseNumber(%q, %v) = %v, want %v", tt.raw, tt.decimalComma, got, tt.want)
		}
	}
}

func TestMapColumns(t *testing.T) {
	header := []string{
		"Mağaza Kodu",
		"Mağaza Adı",
		"Malzeme Kodu",
		"Malzeme Adı",
		"Mal Grubu",
		"Marka",
		"Fark Miktarı",
		"Fark Tutarı",
		"Kısmi Envanter Miktarı",
		"Kısmi Envanter Tutarı",
		"Önceki Fark Miktarı",
		"Önceki Fark Tutarı",
		"İptal Satır Miktarı",
		"İptal Satır Tutarı",
		"Fire Miktarı",
		"Fire Tutarı",
		"Satış Miktarı",
		"Satış Tutarı",
	}
	want := map[Field]int{
		FieldStoreID:         0,
		FieldStoreName:       1,
		FieldProductID:       2,
		FieldProductName:     3,
		FieldProductGroup:    4,
		FieldBrand:           5,
		FieldVarianceQty:     6,
		FieldVarianceAmount:  7,
		FieldPartialQty:      8,
		FieldPartialAmount:   9,
		FieldPriorQty:        10,
		FieldPriorAmount:     11,
		FieldCancelledQty:    12,
		FieldCancelledAmount: 13,
		FieldWasteQty:        14,
		FieldWasteAmount:     15,
		FieldSalesQty:        16,
		FieldSalesAmount:     17,
	}

	got := MapColumns(header)
	for f, idx := range want {
		if got.Index(f) != idx {
			t.Errorf("%s mapped to %d, want %d", f, got.Index(f), idx)
		}
	}
}

func TestMapColumnsFirstMatchWins(t *testing.T) {
	header := []string{"Fark Miktarı (Adet)", "FARK MIKTARI", "SKU"}
	cols := MapColumns(header)
	if cols.Index(FieldVarianceQty) != 0 {
		t.Fatalf("variance qty bound to column %d, want 0", cols.Index(FieldVarianceQty))
	}
	if cols.Index(FieldProductID) != 2 {
		t.Fatalf("product id bound to column %d, want 2", cols.Index(FieldProductID))
	}
}

func TestNormalizeMissingOptionalColumns(t *testing.T) {
	header := []string{"Mağaza", "SKU", "Malzeme Adı", "Fark Miktarı", "Fark Tutarı", "Satış Tutarı"}
	records := [][]string{
		{"1339", "A1", "Winston Slim", "-4", "-600", "12000"},
		{"1339", "", "TOPLAM", "-4", "-600", "12000"},
		{"1339", "A2", "Ekmek", "x", "", "bad"},
	}

	lines := Normalize(header, records, Options{DecimalComma: true})
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines (subtotal dropped), got %d", len(lines))
	}

	first := lines[0]
	if first.PriorVarianceQty != 0 || first.CancelledLineQty != 0 || first.WasteQty != 0 {
		t.Fatalf("missing optional columns must be zero, got %+v", first)
	}
	if first.UnitPrice != 150 {
		t.Fatalf("unit price = %v, want derived 150", first.UnitPrice)
	}

	second := lines[1]
	if second.VarianceQty != 0 || second.SalesAmount != 0 || second.UnitPrice != 0 {
		t.Fatalf("unparsable cells must coerce to 0, got %+v", second)
	}
}

func TestNormalizeWasteSign(t *testing.T) {
	header := []string{"Mağaza", "SKU", "Fire Miktarı", "Fire Tutarı", "İptal Satır Miktarı"}
	records := [][]string{{"7946", "P1", "3", "45", "-2"}}

	negative := Normalize(header, records, Options{WasteLossSign: WasteLossNegative})
	if negative[0].WasteQty != 3 || negative[0].WasteAmount != 45 {
		t.Fatalf("negative convention must keep source sign, got %+v", negative[0])
	}

	positive := Normalize(header, records, Options{WasteLossSign: ParseWasteSign("POSITIVE")})
	if positive[0].WasteQty != -3 || positive[0].WasteAmount != -45 {
		t.Fatalf("positive convention must flip to negative loss, got %+v", positive[0])
	}
	if positive[0].CancelledLineQty != 2 {
		t.Fatalf("cancelled qty must be non-negative, got %v", positive[0].CancelledLineQty)
	}
}

func TestNormalizeDefaultStoreAndCodeCleanup(t *testing.T) {
	header := []string{"Malzeme Kodu", "Fark Miktarı"}
	records := [][]string{{"1001.0", "-1"}}

	lines := Normalize(header, records, Options{StoreID: "B259", Period: "2025-01"})
	if lines[0].StoreID != "B259" || lines[0].Period != "2025-01" {
		t.Fatalf("store/period defaults not applied: %+v", lines[0])
	}
	if lines[0].ProductID != "1001" {
		t.Fatalf("product id = %q, want 1001", lines[0].ProductID)
	}
}

func TestNormalizeTable(t *testing.T) {
	table := ingest.Table{
		Header: []string{"Mağaza Kodu", "Malzeme Kodu", "Fark Tutarı"},
		Rows:   [][]string{{"1339", "A1", "-1.250,50"}},
	}
	lines := NormalizeTable(table, Options{DecimalComma: true})
	if len(lines) != 1 || lines[0].VarianceAmount != -1250.5 {
		t.Fatalf("unexpected lines %+v", lines)
	}
}
