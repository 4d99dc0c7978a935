package domain

// ClassificationRecord is one classifier verdict for one product.
type ClassificationRecord struct {
	StoreID           string   `json:"store_id" db:"store_id"`
	ProductID         string   `json:"product_id" db:"product_id"`
	ProductName       string   `json:"product_name" db:"product_name"`
	Cause             Cause    `json:"cause" db:"cause"`
	Severity          Severity `json:"severity" db:"-"`
	Rationale         string   `json:"rationale" db:"rationale"`
	RecommendedAction string   `json:"recommended_action" db:"recommended_action"`
	NetPosition       float64  `json:"net_position" db:"net_position"`
	NetEffectAmount   float64  `json:"net_effect_amount" db:"net_effect_amount"`
	// AlsoMatched lists lower-precedence causes the product also matched.
	AlsoMatched []Cause `json:"also_matched,omitempty" db:"-"`
}

// FamilyOutcome is the verdict on a product family's combined position.
type FamilyOutcome string

const (
	FamilyCodeConfusion FamilyOutcome = "code_confusion"
	FamilyShortage      FamilyOutcome = "family_shortage"
	FamilySurplus       FamilyOutcome = "family_surplus"
)

type FamilyFinding struct {
	StoreID      string        `json:"store_id"`
	Key          string        `json:"key"`
	ProductGroup string        `json:"product_group"`
	Brand        string        `json:"brand"`
	ProductIDs   []string      `json:"product_ids"`
	VarianceSum  float64       `json:"variance_sum"`
	PartialSum   float64       `json:"partial_sum"`
	PriorSum     float64       `json:"prior_sum"`
	NetSum       float64       `json:"net_sum"`
	Outcome      FamilyOutcome `json:"outcome"`
	Severity     Severity      `json:"severity"`
	Rationale    string        `json:"rationale"`
}

// CategoryShortage aggregates a whole category (e.g. tobacco) for a store.
type CategoryShortage struct {
	StoreID        string  `json:"store_id"`
	Category       string  `json:"category"`
	SKUCount       int     `json:"sku_count"`
	ShortSKUCount  int     `json:"short_sku_count"`
	NetPosition    float64 `json:"net_position"`
	ShortageQty    float64 `json:"shortage_qty"`
	ShortageAmount float64 `json:"shortage_amount"`
	SalesAmount    float64 `json:"sales_amount"`
	WasteRecorded  bool    `json:"waste_recorded"`
	Flagged        bool    `json:"flagged"`
	Note           string  `json:"note,omitempty"`
}

// LowValueGaps summarizes many small shortages.
type LowValueGaps struct {
	Threshold  float64  `json:"threshold"`
	Count      int      `json:"count"`
	Total      float64  `json:"total"`
	Fragmented bool     `json:"fragmented"`
	ProductIDs []string `json:"product_ids,omitempty"`
}

// RankedItem is one row of a store's top-N list.
type RankedItem struct {
	Rank              int      `json:"rank"`
	ProductID         string   `json:"product_id"`
	ProductName       string   `json:"product_name"`
	ProductGroup      string   `json:"product_group"`
	VarianceQty       float64  `json:"variance_qty"`
	PartialCountQty   float64  `json:"partial_count_qty"`
	PriorVarianceQty  float64  `json:"prior_variance_qty"`
	NetPosition       float64  `json:"net_position"`
	CancelledLineQty  float64  `json:"cancelled_line_qty"`
	VarianceAmount    float64  `json:"variance_amount"`
	NetEffectAmount   float64  `json:"net_effect_amount"`
	Cause             Cause    `json:"cause"`
	Severity          Severity `json:"severity"`
	Rationale         string   `json:"rationale"`
	RecommendedAction string   `json:"recommended_action"`
}

// StoreRiskSummary is recomputed wholesale for each (store, period).
type StoreRiskSummary struct {
	StoreID            string        `json:"store_id" db:"store_id"`
	StoreName          string        `json:"store_name,omitempty" db:"store_name"`
	Period             string        `json:"period" db:"period"`
	LineCount          int           `json:"line_count" db:"line_count"`
	CauseCounts        map[Cause]int `json:"cause_counts" db:"-"`
	TotalSales         float64       `json:"total_sales" db:"total_sales"`
	TotalVariance      float64       `json:"total_variance" db:"total_variance"`
	TotalShortage      float64       `json:"total_shortage" db:"total_shortage"`
	TotalWaste         float64       `json:"total_waste" db:"total_waste"`
	NetEffect          float64       `json:"net_effect" db:"net_effect"`
	LossRatio          float64       `json:"loss_ratio" db:"loss_ratio"`
	InternalTheftCount int           `json:"internal_theft_count" db:"internal_theft_count"`
	RiskLevel          RiskLevel     `json:"risk_level" db:"-"`
	// Score is the weighted store score, copied here so persisted summaries
	// can be rolled up again.
	Score float64 `json:"score" db:"-"`
}

// ScoreComponent is one weighted factor of a score.
type ScoreComponent struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Raw    float64 `json:"raw"`
	Points float64 `json:"points"`
	Detail string  `json:"detail,omitempty"`
}

type ScoreBreakdown struct {
	Components []ScoreComponent `json:"components"`
	Total      float64          `json:"total"`
	Max        float64          `json:"max"`
	Level      RiskLevel        `json:"level"`
}

// CategoryLoss is the per storage-category loss summary.
type CategoryLoss struct {
	Category       string  `json:"category"`
	VarianceAmount float64 `json:"variance_amount"`
	WasteAmount    float64 `json:"waste_amount"`
	SalesAmount    float64 `json:"sales_amount"`
	Ratio          float64 `json:"ratio"`
	ProductCount   int     `json:"product_count"`
}

// ProductMedian is the regional distribution of a product's loss ratio.
type ProductMedian struct {
	ProductID string  `json:"product_id"`
	Median    float64 `json:"median"`
	Mean      float64 `json:"mean"`
	Std       float64 `json:"std"`
	Count     int     `json:"count"`
}

type MedianDeviation struct {
	ProductID    string   `json:"product_id"`
	ProductName  string   `json:"product_name"`
	StoreRatio   float64  `json:"store_ratio"`
	RegionMedian float64  `json:"region_median"`
	Multiple     float64  `json:"multiple"`
	Severity     Severity `json:"severity"`
}

// CountDiscipline records which expected continuous categories were counted.
type CountDiscipline struct {
	Expected   int             `json:"expected"`
	Done       int             `json:"done"`
	Categories map[string]bool `json:"categories"`
	Ratio      float64         `json:"ratio"`
}

// StoreReport bundles everything computed for one store.
type StoreReport struct {
	Summary           StoreRiskSummary       `json:"summary"`
	Records           []ClassificationRecord `json:"records"`
	Families          []FamilyFinding        `json:"families"`
	Categories        []CategoryShortage     `json:"categories"`
	LowValue          LowValueGaps           `json:"low_value"`
	TopN              []RankedItem           `json:"top_n"`
	DecoySurplusCount int                    `json:"decoy_surplus_count"`
	Score             ScoreBreakdown         `json:"score"`
	CategoryLosses    []CategoryLoss         `json:"category_losses"`
	MedianDeviations  []MedianDeviation      `json:"median_deviations"`

	// The continuous block is set only for stores with continuous counts.
	Continuous       *ScoreBreakdown   `json:"continuous,omitempty"`
	Discipline       *CountDiscipline  `json:"discipline,omitempty"`
	UncountedStreaks []UncountedStreak `json:"uncounted_streaks,omitempty"`
}

// UncountedStreak is a required product missing from the latest Counts
// consecutive counts.
type UncountedStreak struct {
	ProductID string   `json:"product_id"`
	Counts    int      `json:"counts"`
	Severity  Severity `json:"severity"`
}

// CountCause returns how many records carry the given cause.
func (r StoreReport) CountCause(c Cause) int {
	n := 0
	for _, rec := range r.Records {
		if rec.Cause == c {
			n++
		}
	}
	return n
}

type RollupKind string

const (
	RollupByManager RollupKind = "manager"
	RollupByRegion  RollupKind = "region"
)

// RollupTotals is the summed-totals view of a store group.
type RollupTotals struct {
	Sales              float64   `json:"sales"`
	Variance           float64   `json:"variance"`
	Shortage           float64   `json:"shortage"`
	Waste              float64   `json:"waste"`
	LossRatio          float64   `json:"loss_ratio"`
	InternalTheftCount int       `json:"internal_theft_count"`
	Level              RiskLevel `json:"level"`
}

// ScoreDistribution is the per-store score view of a store group.
type ScoreDistribution struct {
	Mean        float64           `json:"mean"`
	Median      float64           `json:"median"`
	Max         float64           `json:"max"`
	Min         float64           `json:"min"`
	LevelCounts map[RiskLevel]int `json:"level_counts"`
}

type RollupSummary struct {
	Kind         RollupKind        `json:"kind"`
	Key          string            `json:"key"`
	StoreCount   int               `json:"store_count"`
	StoreIDs     []string          `json:"store_ids"`
	Totals       RollupTotals      `json:"totals"`
	Distribution ScoreDistribution `json:"distribution"`
}

type StoreRatio struct {
	StoreID   string  `json:"store_id"`
	StoreName string  `json:"store_name"`
	Variance  float64 `json:"variance"`
	Waste     float64 `json:"waste"`
	Sales     float64 `json:"sales"`
	Loss      float64 `json:"loss"`
	Ratio     float64 `json:"ratio"`
}

type ProductLoss struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Amount      float64 `json:"amount"`
	Sales       float64 `json:"sales"`
	Ratio       float64 `json:"ratio"`
	StoreCount  int     `json:"store_count"`
}

// RegionOverview is the region-wide leaderboard.
type RegionOverview struct {
	TopStores   []StoreRatio  `json:"top_stores"`
	TopShortage []ProductLoss `json:"top_shortage"`
	TopWaste    []ProductLoss `json:"top_waste"`
	TopRatio    []ProductLoss `json:"top_ratio"`
}

// RegionReport is the result of one analysis run over many stores.
type RegionReport struct {
	RunID              string          `json:"run_id"`
	Period             string          `json:"period"`
	Stores             []StoreReport   `json:"stores"`
	Managers           []RollupSummary `json:"managers"`
	Regions            []RollupSummary `json:"regions"`
	Overview           RegionOverview  `json:"overview"`
	RegionalLossMedian float64         `json:"regional_loss_median"`
}

// Store returns the report for storeID, if present.
func (r *RegionReport) Store(storeID string) (StoreReport, bool) {
	for _, s := range r.Stores {
		if s.Summary.StoreID == storeID {
			return s, true
		}
	}
	return StoreReport{}, false
}
