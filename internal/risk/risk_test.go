package risk

import (
	"math"
	"testing"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
)

func TestLossRatioZeroSales(t *testing.T) {
	lines := []domain.InventoryLine{{StoreID: "S", ProductID: "P", VarianceAmount: -500}}
	s := Summarize("S", "2025-01", lines, nil, DefaultConfig())
	if s.LossRatio != 0 || math.IsNaN(s.LossRatio) {
		t.Fatalf("loss ratio = %v, want 0", s.LossRatio)
	}
	if s.RiskLevel != domain.RiskClean {
		t.Fatalf("level = %s, want clean", s.RiskLevel)
	}
	if s.TotalShortage != 500 {
		t.Fatalf("total shortage = %v", s.TotalShortage)
	}
}

func TestLevelThresholds(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		ratio float64
		it    int
		want  domain.RiskLevel
	}{
		{1000.0 / 50000, 0, domain.RiskCritical},
		{0.0199, 0, domain.RiskRisky},
		{0.015, 0, domain.RiskRisky},
		{0.012, 0, domain.RiskCaution},
		{0.009, 0, domain.RiskClean},
		{0, 51, domain.RiskCritical},
		{0, 50, domain.RiskRisky},
		{0, 31, domain.RiskRisky},
		{0, 16, domain.RiskCaution},
		{0, 15, domain.RiskClean},
	}
	for _, tt := range tests {
		if got := cfg.Level(tt.ratio, tt.it); got != tt.want {
			t.Errorf("Level(%v, %d) = %s, want %s", tt.ratio, tt.it, got, tt.want)
		}
	}
}

func TestSummarizeCounts(t *testing.T) {
	lines := []domain.InventoryLine{
		{ProductID: "1", VarianceAmount: -1000, WasteAmount: -50, SalesAmount: 50000},
		{ProductID: "2", VarianceAmount: 200, SalesAmount: 10000},
	}
	records := []domain.ClassificationRecord{
		{ProductID: "1", Cause: domain.CauseInternalTheft},
		{ProductID: "1", Cause: domain.CauseChronicShortage},
	}
	s := Summarize("S", "P", lines, records, DefaultConfig())
	if s.InternalTheftCount != 1 || s.CauseCounts[domain.CauseChronicShortage] != 0 {
		t.Fatalf("a product must count once under its highest-precedence cause, got %+v", s.CauseCounts)
	}
	if s.TotalVariance != -800 || s.TotalShortage != 1000 || s.TotalWaste != -50 {
		t.Fatalf("unexpected totals %+v", s)
	}
	if s.LossRatio != 1000.0/60000 || s.RiskLevel != domain.RiskRisky {
		t.Fatalf("ratio %v level %s", s.LossRatio, s.RiskLevel)
	}
}

func TestWeightsValidate(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights: %v", err)
	}
	w := DefaultWeights()
	w.Chronic = 20
	if err := w.Validate(); err == nil {
		t.Fatal("weights summing to 105 must fail")
	}
}

func TestScoreCapsEachFactor(t *testing.T) {
	w := DefaultWeights()
	in := ScoreInput{
		LossRatio:             0.10,
		RegionalLossMedian:    0.01,
		CategoryShortageCount: 100,
		InternalTheftCount:    100,
		ChronicCount:          100,
		DecoySurplusCount:     100,
	}
	got := Score(in, w)
	if got.Total != 100 || got.Level != domain.RiskCritical {
		t.Fatalf("saturated score = %v (%s)", got.Total, got.Level)
	}
	for _, c := range got.Components {
		if c.Points > c.Weight {
			t.Fatalf("component %s exceeds its weight: %+v", c.Name, c)
		}
	}

	clean := Score(ScoreInput{LossRatio: 0.005, RegionalLossMedian: 0.01}, w)
	if clean.Total != 0 || clean.Level != domain.RiskClean {
		t.Fatalf("below-median store must score 0, got %v", clean.Total)
	}

	mid := Score(ScoreInput{LossRatio: 0.02, RegionalLossMedian: 0.01, InternalTheftCount: 10}, w)
	if mid.Total != 27.5 || mid.Level != domain.RiskCaution {
		t.Fatalf("mid score = %v (%s), want 27.5 caution", mid.Total, mid.Level)
	}
}

func TestMedian(t *testing.T) {
	if Median(nil) != 0 {
		t.Fatal("median of nothing must be 0")
	}
	values := []float64{3, 1, 2}
	if Median(values) != 2 || values[0] != 3 {
		t.Fatal("odd median wrong or input mutated")
	}
	if Median([]float64{4, 1, 3, 2}) != 2.5 {
		t.Fatal("even median wrong")
	}
}

func TestProductMediansAndDeviations(t *testing.T) {
	var region []domain.InventoryLine
	for i, loss := range []float64{-10, -20, -30, -200} {
		region = append(region, domain.InventoryLine{
			StoreID:        string(rune('A' + i)),
			ProductID:      "P1",
			ProductName:    "DOMATES",
			VarianceAmount: loss,
			SalesAmount:    1000,
		})
	}
	region = append(region, domain.InventoryLine{StoreID: "A", ProductID: "P2", VarianceAmount: -10, SalesAmount: 100})

	medians := ProductMedians(region, 500)
	if _, ok := medians["P2"]; ok {
		t.Fatal("low-sales product must not get a median")
	}
	m := medians["P1"]
	if m.Count != 4 || m.Median != 2.5 {
		t.Fatalf("unexpected median %+v", m)
	}

	devs := MedianDeviations(region[3:4], medians, 1.5, 500)
	if len(devs) != 1 || devs[0].Multiple != 8 || devs[0].Severity != domain.SeverityVeryHigh {
		t.Fatalf("unexpected deviations %+v", devs)
	}
	if got := MedianDeviations(region[:1], medians, 1.5, 500); len(got) != 0 {
		t.Fatalf("store at 1%% must not deviate, got %+v", got)
	}
}

func TestRollupViews(t *testing.T) {
	roster := domain.NewRoster([]domain.StoreAssignment{
		{StoreID: "S1", Manager: "AYSE", Region: "MARMARA"},
		{StoreID: "S2", Manager: "AYSE", Region: "MARMARA"},
	})
	stores := []domain.StoreReport{
		{
			Summary: domain.StoreRiskSummary{StoreID: "S2", TotalSales: 10000, TotalShortage: 300, InternalTheftCount: 2},
			Score:   domain.ScoreBreakdown{Total: 60, Level: domain.RiskRisky},
		},
		{
			Summary: domain.StoreRiskSummary{StoreID: "S1", TotalSales: 30000, TotalShortage: 100},
			Score:   domain.ScoreBreakdown{Total: 10, Level: domain.RiskClean},
		},
		{
			Summary: domain.StoreRiskSummary{StoreID: "S9", TotalSales: 1000},
			Score:   domain.ScoreBreakdown{Total: 0},
		},
	}

	got := Rollup(stores, roster, domain.RollupByManager, DefaultConfig())
	if len(got) != 2 || got[0].Key != "AYSE" || got[1].Key != domain.Unassigned {
		t.Fatalf("unexpected groups %+v", got)
	}

	ayse := got[0]
	if ayse.StoreCount != 2 || ayse.StoreIDs[0] != "S1" {
		t.Fatalf("unexpected members %+v", ayse.StoreIDs)
	}
	if ayse.Totals.LossRatio != 0.01 || ayse.Totals.Level != domain.RiskCaution {
		t.Fatalf("totals view = %+v", ayse.Totals)
	}
	if ayse.Distribution.Mean != 35 || ayse.Distribution.Max != 60 || ayse.Distribution.Min != 10 {
		t.Fatalf("distribution view = %+v", ayse.Distribution)
	}
	if ayse.Distribution.LevelCounts[domain.RiskRisky] != 1 {
		t.Fatalf("level counts = %+v", ayse.Distribution.LevelCounts)
	}
}

func TestContinuousScore(t *testing.T) {
	lines := []domain.InventoryLine{
		{ProductID: "1", ProductName: "PATATES", StorageCategory: "Meyve/Sebz", CountedQty: 120},
		{ProductID: "2", ProductName: "DOMATES", StorageCategory: "Meyve/Sebz", CountedQty: 60, CancelledLineAmount: 300},
		{ProductID: "3", ProductName: "TAVUK BUT", StorageCategory: "Et-Tavuk", CountedQty: 10.4},
		{ProductID: "4", ProductName: "EKMEK", StorageCategory: "Ekmek", CountedQty: 20},
	}
	previous := []domain.InventoryLine{
		{ProductID: "2", CountedQty: 61},
		{ProductID: "3", CountedQty: 10.3},
	}

	got := ContinuousScore(ContinuousInput{
		Lines:                  lines,
		Previous:               previous,
		Required:               []string{"1", "8", "9"},
		ChronicShortageCount:   5,
		WasteManipulationCount: 1,
		FamilyShortageCount:    1,
	}, DefaultContinuousConfig())

	want := map[string]float64{
		"cancelled_lines":    4,
		"chronic_shortage":   6,
		"family_shortage":    2,
		"waste_manipulation": 2,
		"uncounted_required": 2,
		"abnormal_quantity":  3,
		"repeated_quantity":  2,
		"round_numbers":      8,
	}
	for _, c := range got.Components {
		if w, ok := want[c.Name]; ok && c.Points != w {
			t.Errorf("%s = %v, want %v", c.Name, c.Points, w)
		}
	}
	if got.Max != ContinuousMax || got.Total != 29 || got.Level != domain.RiskCaution {
		t.Fatalf("total %v level %s", got.Total, got.Level)
	}
}

func TestDiscipline(t *testing.T) {
	lines := []domain.InventoryLine{
		{StorageCategory: "Meyve/Sebz"},
		{StorageCategory: "MEYVE/SEBZ"},
		{StorageCategory: "Ekmek"},
	}
	d := Discipline(lines, DefaultContinuousConfig().ExpectedCategories)
	if d.Expected != 3 || d.Done != 2 || d.Categories["Et-Tavuk"] {
		t.Fatalf("unexpected discipline %+v", d)
	}
}

func TestOverview(t *testing.T) {
	lines := []domain.InventoryLine{
		{StoreID: "A", ProductID: "1", VarianceAmount: -100, SalesAmount: 1000},
		{StoreID: "B", ProductID: "1", VarianceAmount: -50, WasteAmount: -50, SalesAmount: 500},
		{StoreID: "B", ProductID: "2", WasteAmount: -300, SalesAmount: 400},
	}
	o := Overview(lines, 500)
	if len(o.TopStores) != 2 || o.TopStores[0].StoreID != "B" {
		t.Fatalf("top stores = %+v", o.TopStores)
	}
	if o.TopShortage[0].ProductID != "1" || o.TopShortage[0].Amount != 150 || o.TopShortage[0].StoreCount != 2 {
		t.Fatalf("top shortage = %+v", o.TopShortage)
	}
	if o.TopWaste[0].ProductID != "2" || o.TopWaste[0].Amount != 300 {
		t.Fatalf("top waste = %+v", o.TopWaste)
	}
	if len(o.TopRatio) != 1 || o.TopRatio[0].ProductID != "1" {
		t.Fatalf("low-sales product must be filtered from ratio list: %+v", o.TopRatio)
	}
}

func TestUncountedStreaks(t *testing.T) {
	current := []domain.InventoryLine{{ProductID: "A"}}
	history := [][]domain.InventoryLine{
		{{ProductID: "A"}},
		{{ProductID: "B"}},
	}
	got := UncountedStreaks(current, history, []string{"A", "B", "C"})
	want := []domain.UncountedStreak{
		{ProductID: "C", Counts: 3, Severity: domain.SeverityHigh},
		{ProductID: "B", Counts: 2, Severity: domain.SeverityMedium},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("streak %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if got := UncountedStreaks(nil, nil, []string{"A"}); len(got) != 0 {
		t.Fatalf("a single missed count is not a streak, got %+v", got)
	}
}

func TestContinuousLines(t *testing.T) {
	lines := []domain.InventoryLine{
		{ProductID: "1", Kind: domain.KindContinuous},
		{ProductID: "2", Kind: domain.KindPartial},
		{ProductID: "3"},
	}
	got := ContinuousLines(lines)
	if len(got) != 1 || got[0].ProductID != "1" {
		t.Fatalf("unexpected lines %+v", got)
	}
}
