package domain

import (
	"math"
	"time"
)

// DefaultBalanceTolerance is the unit tolerance under which a line's net
// position counts as self-corrected.
const DefaultBalanceTolerance = 1.0

// InventoryLine is one product at one store for one counting period.
// Shortages are negative. Waste follows the same convention after
// normalization (negative = recorded loss).
type InventoryLine struct {
	Period          string `json:"period,omitempty" db:"period"`
	StoreID         string `json:"store_id" db:"store_id"`
	StoreName       string `json:"store_name,omitempty" db:"store_name"`
	ProductID       string `json:"product_id" db:"product_id"`
	ProductName     string `json:"product_name" db:"product_name"`
	ProductGroup    string `json:"product_group" db:"product_group"`
	Brand           string `json:"brand" db:"brand"`
	StorageCategory string `json:"storage_category,omitempty" db:"storage_category"`

	VarianceQty         float64 `json:"variance_qty" db:"variance_qty"`
	VarianceAmount      float64 `json:"variance_amount" db:"variance_amount"`
	PartialCountQty     float64 `json:"partial_count_qty" db:"partial_count_qty"`
	PartialCountAmount  float64 `json:"partial_count_amount" db:"partial_count_amount"`
	PriorVarianceQty    float64 `json:"prior_variance_qty" db:"prior_variance_qty"`
	PriorVarianceAmount float64 `json:"prior_variance_amount" db:"prior_variance_amount"`
	CancelledLineQty    float64 `json:"cancelled_line_qty" db:"cancelled_line_qty"`
	CancelledLineAmount float64 `json:"cancelled_line_amount" db:"cancelled_line_amount"`
	WasteQty            float64 `json:"waste_qty" db:"waste_qty"`
	WasteAmount         float64 `json:"waste_amount" db:"waste_amount"`
	SalesQty            float64 `json:"sales_qty" db:"sales_qty"`
	SalesAmount         float64 `json:"sales_amount" db:"sales_amount"`
	CountedQty          float64 `json:"counted_qty" db:"counted_qty"`
	UnitPrice           float64 `json:"unit_price" db:"unit_price"`

	// Kind is the export the line came from. Lines read back from
	// storage carry no kind.
	Kind InventoryKind `json:"kind,omitempty" db:"-"`
}

// InventoryKind tells weekly continuous counts of fresh categories apart
// from partial (periodic) counts.
type InventoryKind string

const (
	KindPartial    InventoryKind = "partial"
	KindContinuous InventoryKind = "continuous"
)

// NetPosition is variance + partial count + prior variance.
func (l InventoryLine) NetPosition() float64 {
	return l.VarianceQty + l.PartialCountQty + l.PriorVarianceQty
}

// NetEffectAmount is the monetary effect of this period's count.
func (l InventoryLine) NetEffectAmount() float64 {
	return l.VarianceAmount + l.WasteAmount + l.PartialCountAmount
}

// CurrentPosition excludes the prior period.
func (l InventoryLine) CurrentPosition() float64 {
	return l.VarianceQty + l.PartialCountQty
}

// IsBalanced reports whether the variance netted out within eps units.
func (l InventoryLine) IsBalanced(eps float64) bool {
	return math.Abs(l.NetPosition()) <= eps
}

func (l InventoryLine) HasWaste() bool {
	return l.WasteQty != 0 || l.WasteAmount != 0
}

// DeriveUnitPrice returns |variance amount / variance qty|, or 0 when no
// variance quantity was recorded.
func DeriveUnitPrice(l InventoryLine) float64 {
	if l.VarianceQty == 0 {
		return 0
	}
	return math.Abs(l.VarianceAmount / l.VarianceQty)
}

// CancellationEvent is a single till-level line void.
type CancellationEvent struct {
	StoreID    string    `json:"store_id" db:"store_id"`
	ProductID  string    `json:"product_id" db:"product_id"`
	TillID     string    `json:"till_id" db:"till_id"`
	Qty        float64   `json:"qty" db:"qty"`
	OccurredAt time.Time `json:"occurred_at" db:"occurred_at"`
}

// ProductFamily groups near-identical SKUs sold at the same store.
type ProductFamily struct {
	Key          string          `json:"key"`
	ProductGroup string          `json:"product_group"`
	Brand        string          `json:"brand"`
	SizeBucket   string          `json:"size_bucket,omitempty"`
	Members      []InventoryLine `json:"members"`
}

// NetSum is the family's combined net position.
func (f ProductFamily) NetSum() float64 {
	var sum float64
	for _, m := range f.Members {
		sum += m.NetPosition()
	}
	return sum
}

// AnalysisRun tracks one persisted execution.
type AnalysisRun struct {
	ID         string    `json:"id" db:"id"`
	Period     string    `json:"period" db:"period"`
	Source     string    `json:"source" db:"source"`
	StoreCount int       `json:"store_count" db:"store_count"`
	LineCount  int       `json:"line_count" db:"line_count"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
