package classifier

import (
	"strings"
	"testing"
	"time"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
)

func line(id string, variance, cancelled, price float64) domain.InventoryLine {
	return domain.InventoryLine{
		StoreID:          "1339",
		ProductID:        id,
		ProductName:      "Product " + id,
		VarianceQty:      variance,
		VarianceAmount:   variance * price,
		CancelledLineQty: cancelled,
		UnitPrice:        price,
	}
}

func TestBalancedLinesNeverMatch(t *testing.T) {
	sc := NewStoreContext(DefaultThresholds(), ContextInput{
		History: [][]domain.InventoryLine{{
			{ProductID: "P1", PriorVarianceQty: -3, WasteQty: -2},
		}},
	})

	cases := []domain.InventoryLine{
		{ProductID: "P1", VarianceQty: -4, PriorVarianceQty: 3, CancelledLineQty: 4, UnitPrice: 500, VarianceAmount: -2000},
		{ProductID: "P1", VarianceQty: -5, PartialCountQty: 2, PriorVarianceQty: 3.5, WasteQty: -2, WasteAmount: -40},
		{ProductID: "P1", VarianceQty: 10, PriorVarianceQty: -9.5, WasteQty: -3, WasteAmount: -300},
		{ProductID: "P1", VarianceQty: -1, VarianceAmount: -900},
	}
	for i, l := range cases {
		for j, detect := range Detectors {
			if rec, ok := detect(l, sc); ok {
				t.Fatalf("case %d: detector %d matched balanced line: %+v", i, j, rec)
			}
		}
	}

	tobacco := []domain.InventoryLine{
		{StoreID: "1339", ProductID: "T1", ProductName: "WINSTON SLIM", VarianceQty: -8, PriorVarianceQty: 8, VarianceAmount: -1200},
		{StoreID: "1339", ProductID: "T2", ProductName: "MARLBORO TOUCH", VarianceQty: -1, PriorVarianceQty: 1, VarianceAmount: -150},
	}
	if got := CategoryShortages(tobacco, sc); len(got) != 0 {
		t.Fatalf("balanced lines leaked into category shortages: %+v", got)
	}

	family := []domain.InventoryLine{
		{StoreID: "1339", ProductID: "F1", ProductGroup: "CIKOLATA", Brand: "ULKER", VarianceQty: -8, PriorVarianceQty: 8},
		{StoreID: "1339", ProductID: "F2", ProductGroup: "CIKOLATA", Brand: "ULKER", VarianceQty: 3, PriorVarianceQty: -3},
	}
	findings, records, confused := ClassifyFamilies(GroupIntoFamilies(family, DefaultSizeTolerance), sc)
	if len(findings) != 0 || len(records) != 0 || len(confused) != 0 {
		t.Fatalf("balanced lines leaked into family findings: %+v %+v %v", findings, records, confused)
	}
}

func TestCategoryShortagesIgnoreBalancedLines(t *testing.T) {
	lines := []domain.InventoryLine{
		{StoreID: "S", ProductID: "1", ProductName: "WINSTON SLIM", VarianceQty: -8, PriorVarianceQty: 8, VarianceAmount: -1200},
		{StoreID: "S", ProductID: "2", ProductName: "MARLBORO TOUCH", VarianceQty: -2, VarianceAmount: -300, SalesAmount: 4000},
	}
	got := CategoryShortages(lines, nil)
	if len(got) != 1 {
		t.Fatalf("expected tobacco only, got %+v", got)
	}
	if c := got[0]; c.SKUCount != 1 || c.ShortSKUCount != 1 || c.NetPosition != -2 || c.ShortageAmount != -300 {
		t.Fatalf("balanced SKU counted in category figures: %+v", c)
	}
}

func TestClassifyStoreOneCausePerProduct(t *testing.T) {
	l := line("P1", -3, 4, 150)
	l.PriorVarianceQty = -1
	res := ClassifyStore([]domain.InventoryLine{l}, NewStoreContext(DefaultThresholds(), ContextInput{}))

	if len(res.Records) != 1 {
		t.Fatalf("one product must yield one record, got %+v", res.Records)
	}
	rec := res.Records[0]
	if rec.Cause != domain.CauseInternalTheft {
		t.Fatalf("cause = %s, want internal theft by precedence", rec.Cause)
	}
	if len(rec.AlsoMatched) != 1 || rec.AlsoMatched[0] != domain.CauseChronicShortage {
		t.Fatalf("lower-precedence match not kept as evidence: %v", rec.AlsoMatched)
	}
}

func TestResolve(t *testing.T) {
	if _, ok := Resolve(nil); ok {
		t.Fatal("no matches must resolve to nothing")
	}
	rec, ok := Resolve([]domain.ClassificationRecord{
		{ProductID: "P1", Cause: domain.CauseExternalTheft},
		{ProductID: "P1", Cause: domain.CauseChronicWaste},
		{ProductID: "P1", Cause: domain.CauseWasteManipulation},
	})
	if !ok || rec.Cause != domain.CauseWasteManipulation {
		t.Fatalf("resolved to %+v", rec)
	}
	want := []domain.Cause{domain.CauseChronicWaste, domain.CauseExternalTheft}
	if len(rec.AlsoMatched) != 2 || rec.AlsoMatched[0] != want[0] || rec.AlsoMatched[1] != want[1] {
		t.Fatalf("also matched = %v, want %v", rec.AlsoMatched, want)
	}
}

func TestInternalTheftExactMatch(t *testing.T) {
	l := line("P1", -4, 4, 150)
	rec, ok := InternalTheft(l, nil)
	if !ok {
		t.Fatal("expected internal theft match")
	}
	if rec.Severity != domain.SeverityVeryHigh {
		t.Fatalf("severity = %s, want very_high", rec.Severity)
	}
	if !strings.Contains(rec.Rationale, "-4") || !strings.Contains(rec.Rationale, "150.00") {
		t.Fatalf("rationale must embed values, got %q", rec.Rationale)
	}
	if rec.RecommendedAction != domain.ActionFor(domain.CauseInternalTheft) {
		t.Fatalf("unexpected action %q", rec.RecommendedAction)
	}
}

func TestInternalTheftDisproportionRejected(t *testing.T) {
	if rec, ok := InternalTheft(line("P1", -30, 1, 250), nil); ok {
		t.Fatalf("ratio 30 must not match, got %+v", rec)
	}
}

func TestInternalTheftGates(t *testing.T) {
	tests := []struct {
		name string
		l    domain.InventoryLine
	}{
		{"cheap product", line("P1", -4, 4, 99.99)},
		{"no cancellations", line("P1", -4, 0, 150)},
		{"surplus", line("P1", 4, 4, 150)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := InternalTheft(tt.l, nil); ok {
				t.Fatal("expected no match")
			}
		})
	}
}

func TestInternalTheftSeverityMonotonic(t *testing.T) {
	const cancelled = 20.0
	prev := domain.SeverityVeryHigh
	for shortage := cancelled; shortage <= cancelled+15; shortage++ {
		rec, ok := InternalTheft(line("P1", -shortage, cancelled, 200), nil)
		sev := domain.SeverityNone
		if ok {
			sev = rec.Severity
		}
		if sev > prev {
			t.Fatalf("severity rose from %s to %s at shortage %v", prev, sev, shortage)
		}
		prev = sev
	}
	if prev != domain.SeverityNone {
		t.Fatalf("deviation 15 must not match, got %s", prev)
	}

	prev = domain.SeverityVeryHigh
	for shortage := cancelled; shortage >= 4; shortage-- {
		rec, ok := InternalTheft(line("P1", -shortage, cancelled, 200), nil)
		sev := domain.SeverityNone
		if ok {
			sev = rec.Severity
		}
		if sev > prev {
			t.Fatalf("severity rose from %s to %s at shortage %v", prev, sev, shortage)
		}
		prev = sev
	}
}

func TestDeviationSeverityBands(t *testing.T) {
	th := DefaultThresholds()
	want := map[float64]domain.Severity{
		0:    domain.SeverityVeryHigh,
		1:    domain.SeverityHigh,
		2:    domain.SeverityHigh,
		3:    domain.SeverityMedium,
		5:    domain.SeverityMedium,
		7:    domain.SeverityLowMedium,
		10:   domain.SeverityLowMedium,
		10.5: domain.SeverityNone,
	}
	for dev, sev := range want {
		if got := DeviationSeverity(dev, th); got != sev {
			t.Errorf("DeviationSeverity(%v) = %s, want %s", dev, got, sev)
		}
	}
}

func TestInternalTheftRationaleListsEvents(t *testing.T) {
	at := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	sc := NewStoreContext(DefaultThresholds(), ContextInput{
		Cancellations: []domain.CancellationEvent{
			{ProductID: "P1", TillID: "K2", Qty: 2, OccurredAt: at.Add(48 * time.Hour)},
			{ProductID: "P1", TillID: "K1", Qty: 2, OccurredAt: at},
			{ProductID: "P9", TillID: "K3", Qty: 1, OccurredAt: at},
		},
	})
	rec, ok := InternalTheft(line("P1", -4, 4, 150), sc)
	if !ok {
		t.Fatal("expected match")
	}
	for _, want := range []string{"2 void events", "K1, K2", "2025-03-04 10:30", "2025-03-06 10:30"} {
		if !strings.Contains(rec.Rationale, want) {
			t.Errorf("rationale %q missing %q", rec.Rationale, want)
		}
	}
}

func TestChronicShortageStreak(t *testing.T) {
	l := domain.InventoryLine{ProductID: "P1", VarianceQty: -3, PriorVarianceQty: -2}

	rec, ok := ChronicShortage(l, nil)
	if !ok || rec.Severity != domain.SeverityMedium {
		t.Fatalf("two periods: got %+v ok=%v", rec, ok)
	}

	three := NewStoreContext(DefaultThresholds(), ContextInput{History: [][]domain.InventoryLine{
		{{ProductID: "P1", VarianceQty: -2, PriorVarianceQty: -1}},
	}})
	if rec, _ := ChronicShortage(l, three); rec.Severity != domain.SeverityHigh {
		t.Fatalf("three periods: severity %s", rec.Severity)
	}

	four := NewStoreContext(DefaultThresholds(), ContextInput{History: [][]domain.InventoryLine{
		{{ProductID: "P1", VarianceQty: -2, PriorVarianceQty: -1}},
		{{ProductID: "P1", VarianceQty: -1, PriorVarianceQty: -4}},
		{{ProductID: "P1", VarianceQty: -4, PriorVarianceQty: 2}},
	}})
	if got := ShortageStreak(l, four); got != 4 {
		t.Fatalf("streak = %d, want 4", got)
	}
	if rec, _ := ChronicShortage(l, four); rec.Severity != domain.SeverityVeryHigh {
		t.Fatalf("four periods: severity %s", rec.Severity)
	}

	if _, ok := ChronicShortage(domain.InventoryLine{ProductID: "P2", VarianceQty: -3, PriorVarianceQty: 2}, nil); ok {
		t.Fatal("prior surplus must not be chronic")
	}
}

func TestChronicWasteNeedsPriorPeriod(t *testing.T) {
	l := domain.InventoryLine{ProductID: "P1", VarianceQty: -4, WasteQty: -2, WasteAmount: -30}
	if _, ok := ChronicWaste(l, nil); ok {
		t.Fatal("no prior period must mean no match")
	}

	sc := NewStoreContext(DefaultThresholds(), ContextInput{History: [][]domain.InventoryLine{
		{{ProductID: "P1", WasteQty: -1, WasteAmount: -15}},
	}})
	rec, ok := ChronicWaste(l, sc)
	if !ok || rec.Cause != domain.CauseChronicWaste || rec.Severity != domain.SeverityMedium {
		t.Fatalf("unexpected %+v ok=%v", rec, ok)
	}

	clean := NewStoreContext(DefaultThresholds(), ContextInput{History: [][]domain.InventoryLine{
		{{ProductID: "P1"}},
	}})
	if _, ok := ChronicWaste(l, clean); ok {
		t.Fatal("prior period without waste must not match")
	}
}

func TestWasteManipulation(t *testing.T) {
	l := domain.InventoryLine{ProductID: "P1", VarianceQty: 3, WasteQty: -5, WasteAmount: -80}
	rec, ok := WasteManipulation(l, nil)
	if !ok || rec.Severity != domain.SeverityHigh {
		t.Fatalf("unexpected %+v ok=%v", rec, ok)
	}

	l.WasteAmount = -20
	if rec, _ := WasteManipulation(l, nil); rec.Severity != domain.SeverityMedium {
		t.Fatalf("small waste severity = %s", rec.Severity)
	}

	l.VarianceQty = -3
	if _, ok := WasteManipulation(l, nil); ok {
		t.Fatal("shortage with waste is not manipulation")
	}
}

func TestExternalTheft(t *testing.T) {
	tests := []struct {
		name string
		l    domain.InventoryLine
		want domain.Severity
	}{
		{"below floor", domain.InventoryLine{ProductID: "P", VarianceQty: -2, VarianceAmount: -50}, domain.SeverityNone},
		{"medium", domain.InventoryLine{ProductID: "P", VarianceQty: -2, VarianceAmount: -120}, domain.SeverityMedium},
		{"high", domain.InventoryLine{ProductID: "P", VarianceQty: -20, VarianceAmount: -500}, domain.SeverityHigh},
		{"waste present", domain.InventoryLine{ProductID: "P", VarianceQty: -2, VarianceAmount: -120, WasteQty: -1}, domain.SeverityNone},
		{"voids present", domain.InventoryLine{ProductID: "P", VarianceQty: -2, VarianceAmount: -120, CancelledLineQty: 1}, domain.SeverityNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := ExternalTheft(tt.l, nil)
			got := domain.SeverityNone
			if ok {
				got = rec.Severity
			}
			if got != tt.want {
				t.Fatalf("severity = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCategoryShortages(t *testing.T) {
	lines := []domain.InventoryLine{
		{StoreID: "S", ProductID: "1", ProductName: "WINSTON SLIM BLUE", VarianceQty: -3, VarianceAmount: -300, SalesAmount: 5000},
		{StoreID: "S", ProductID: "2", ProductName: "MARLBORO TOUCH", VarianceQty: 2, VarianceAmount: 200, SalesAmount: 4000},
		{StoreID: "S", ProductID: "3", ProductName: "PURO", ProductGroup: "TÜTÜN MAMULLERİ", VarianceQty: -2, VarianceAmount: -180},
		{StoreID: "S", ProductID: "4", ProductName: "KEPEKLİ EKMEK", VarianceQty: -2, WasteQty: -1},
		{StoreID: "S", ProductID: "5", ProductName: "DETERJAN"},
	}
	got := CategoryShortages(lines, nil)
	if len(got) != 2 {
		t.Fatalf("expected tobacco and bread, got %+v", got)
	}

	tobacco := got[0]
	if tobacco.Category != "tobacco" || tobacco.SKUCount != 3 || tobacco.ShortSKUCount != 2 {
		t.Fatalf("unexpected tobacco summary %+v", tobacco)
	}
	if tobacco.NetPosition != -3 || !tobacco.Flagged || tobacco.ShortageAmount != -480 {
		t.Fatalf("tobacco must be flagged as a category, got %+v", tobacco)
	}

	bread := got[1]
	if bread.SKUCount != 1 || !bread.WasteRecorded || bread.Note == "" {
		t.Fatalf("unexpected bread summary %+v", bread)
	}
}

func TestLowValueGaps(t *testing.T) {
	var lines []domain.InventoryLine
	for i := 0; i < 10; i++ {
		lines = append(lines, domain.InventoryLine{ProductID: string(rune('A' + i)), VarianceQty: -2, VarianceAmount: -40})
	}
	lines = append(lines,
		domain.InventoryLine{ProductID: "X", VarianceQty: -2, VarianceAmount: -100},
		domain.InventoryLine{ProductID: "Y", VarianceQty: -1, PriorVarianceQty: 1, VarianceAmount: -30},
	)

	gaps := LowValueGaps(lines, nil)
	if gaps.Count != 10 || gaps.Total != -400 || !gaps.Fragmented {
		t.Fatalf("unexpected gaps %+v", gaps)
	}
}

func TestClassifyStoreEndToEnd(t *testing.T) {
	lines := []domain.InventoryLine{{
		StoreID:          "1339",
		ProductID:        "P1",
		VarianceQty:      -10,
		VarianceAmount:   -1000,
		CancelledLineQty: 10,
		UnitPrice:        150,
		SalesAmount:      50000,
	}}
	res := ClassifyStore(lines, NewStoreContext(DefaultThresholds(), ContextInput{}))
	if len(res.Records) != 1 {
		t.Fatalf("expected exactly one record, got %+v", res.Records)
	}
	if rec := res.Records[0]; rec.Cause != domain.CauseInternalTheft || rec.Severity != domain.SeverityVeryHigh {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestClassifyStoreDecoySurplus(t *testing.T) {
	lines := []domain.InventoryLine{
		{ProductID: "D1", VarianceQty: 5},
		{ProductID: "D2", VarianceQty: 1},
		{ProductID: "N1", VarianceQty: 5},
	}
	sc := NewStoreContext(DefaultThresholds(), ContextInput{Decoys: domain.NewProductSet("D1", "D2")})
	if got := ClassifyStore(lines, sc).DecoySurplusCount; got != 1 {
		t.Fatalf("decoy surplus = %d, want 1", got)
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	th := DefaultThresholds()
	th.DeviationHigh = 20
	if err := th.Validate(); err == nil {
		t.Fatal("expected error for unordered deviation bands")
	}
	th = DefaultThresholds()
	th.MaterialityFloor = 0
	if err := th.Validate(); err == nil {
		t.Fatal("expected error for zero materiality floor")
	}
}
