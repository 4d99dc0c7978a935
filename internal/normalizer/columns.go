package normalizer

import "strings"

// Field is a canonical InventoryLine column.
type Field int

const (
	FieldUnknown Field = iota
	FieldStoreName
	FieldStoreID
	FieldProductID
	FieldProductName
	FieldProductGroup
	FieldBrand
	FieldStorageCategory
	FieldPartialQty
	FieldPartialAmount
	FieldPriorQty
	FieldPriorAmount
	FieldCancelledQty
	FieldCancelledAmount
	FieldWasteQty
	FieldWasteAmount
	FieldVarianceQty
	FieldVarianceAmount
	FieldSalesQty
	FieldSalesAmount
	FieldCountedQty
	FieldUnitPrice
	FieldStorageGroup
)

var fieldNames = map[Field]string{
	FieldStoreName:       "store_name",
	FieldStoreID:         "store_id",
	FieldProductID:       "product_id",
	FieldProductName:     "product_name",
	FieldProductGroup:    "product_group",
	FieldBrand:           "brand",
	FieldStorageCategory: "storage_category",
	FieldPartialQty:      "partial_count_qty",
	FieldPartialAmount:   "partial_count_amount",
	FieldPriorQty:        "prior_variance_qty",
	FieldPriorAmount:     "prior_variance_amount",
	FieldCancelledQty:    "cancelled_line_qty",
	FieldCancelledAmount: "cancelled_line_amount",
	FieldWasteQty:        "waste_qty",
	FieldWasteAmount:     "waste_amount",
	FieldVarianceQty:     "variance_qty",
	FieldVarianceAmount:  "variance_amount",
	FieldSalesQty:        "sales_qty",
	FieldSalesAmount:     "sales_amount",
	FieldCountedQty:      "counted_qty",
	FieldUnitPrice:       "unit_price",
	FieldStorageGroup:    "storage_group",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return "unknown"
}

type columnRule struct {
	field Field
	match func(h string) bool
}

func anyOf(keywords ...string) func(string) bool {
	return func(h string) bool { return ContainsAny(h, keywords...) }
}

func allOf(keywords ...string) func(string) bool {
	return func(h string) bool {
		for _, k := range keywords {
			if !strings.Contains(h, k) {
				return false
			}
		}
		return true
	}
}

func exactly(names ...string) func(string) bool {
	return func(h string) bool {
		for _, n := range names {
			if h == n {
				return true
			}
		}
		return false
	}
}

// columnRules are tried in order; a header takes the first rule it matches.
// Prior/partial/cancelled/waste rules come before the plain variance rules
// because their headers also contain "fark miktar".
var columnRules = []columnRule{
	{FieldStoreName, func(h string) bool {
		return ContainsAny(h, "magaza", "store") && ContainsAny(h, "adi", "tanim", "name")
	}},
	{FieldStoreID, anyOf("magaza", "store")},
	{FieldProductID, anyOf("malzeme kodu", "sku", "urun kodu", "product id", "product code")},
	{FieldProductName, anyOf("malzeme adi", "malzeme tanim", "urun adi", "product name")},
	{FieldProductGroup, anyOf("mal grubu", "urun grubu", "product group")},
	{FieldBrand, exactly("marka", "brand")},
	{FieldStorageGroup, allOf("depolama kosulu", "grubu")},
	{FieldStorageCategory, func(h string) bool {
		return strings.Contains(h, "depolama kosulu") && !strings.Contains(h, "grubu")
	}},
	{FieldPartialQty, allOf("kismi", "miktar")},
	{FieldPartialAmount, allOf("kismi", "tutar")},
	{FieldPriorQty, allOf("onceki", "miktar")},
	{FieldPriorAmount, allOf("onceki", "tutar")},
	{FieldCancelledQty, allOf("iptal", "miktar")},
	{FieldCancelledAmount, allOf("iptal", "tutar")},
	{FieldWasteQty, allOf("fire", "miktar")},
	{FieldWasteAmount, allOf("fire", "tutar")},
	{FieldVarianceQty, anyOf("fark miktar", "variance qty")},
	{FieldVarianceAmount, anyOf("fark tutar", "variance amount")},
	{FieldSalesQty, anyOf("satis miktar", "sales qty")},
	{FieldSalesAmount, anyOf("satis tutar", "satis hasilat", "sales amount")},
	{FieldCountedQty, anyOf("sayim miktar", "counted qty")},
	{FieldUnitPrice, anyOf("birim fiyat", "unit price")},
}

// ColumnMap binds each canonical field to an input column index.
type ColumnMap map[Field]int

// Index returns the column for f, or -1.
func (m ColumnMap) Index(f Field) int {
	if idx, ok := m[f]; ok {
		return idx
	}
	return -1
}

func (m ColumnMap) Has(f Field) bool {
	_, ok := m[f]
	return ok
}

// classifyHeader returns the field a single header maps to.
func classifyHeader(header string) Field {
	h := Fold(header)
	if h == "" {
		return FieldUnknown
	}
	for _, rule := range columnRules {
		if rule.match(h) {
			return rule.field
		}
	}
	return FieldUnknown
}

// MapColumns maps headers to canonical fields. When several columns map to
// the same field the leftmost one wins.
func MapColumns(header []string) ColumnMap {
	m := make(ColumnMap)
	for i, h := range header {
		f := classifyHeader(h)
		if f == FieldUnknown {
			continue
		}
		if _, taken := m[f]; taken {
			continue
		}
		m[f] = i
	}
	return m
}
