package classifier

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
)

// floatEps absorbs representation error when comparing parsed quantities.
const floatEps = 1e-9

// Detector inspects one line and reports at most one finding.
type Detector func(l domain.InventoryLine, sc *StoreContext) (domain.ClassificationRecord, bool)

// Detectors is the per-line rule set, in no particular order.
var Detectors = []Detector{
	InternalTheft,
	ChronicShortage,
	ChronicWaste,
	WasteManipulation,
	ExternalTheft,
}

func newRecord(l domain.InventoryLine, cause domain.Cause, sev domain.Severity, rationale string) domain.ClassificationRecord {
	return domain.ClassificationRecord{
		StoreID:           l.StoreID,
		ProductID:         l.ProductID,
		ProductName:       l.ProductName,
		Cause:             cause,
		Severity:          sev,
		Rationale:         rationale,
		RecommendedAction: domain.ActionFor(cause),
		NetPosition:       l.NetPosition(),
		NetEffectAmount:   l.NetEffectAmount(),
	}
}

// Balanced reports whether the line self-corrected across periods. A
// balanced line is excluded from every detector.
func Balanced(l domain.InventoryLine, sc *StoreContext) bool {
	return l.IsBalanced(sc.thresholds().BalanceTolerance)
}

// InternalTheft matches a high-value shortage that is numerically explained
// by till line voids.
func InternalTheft(l domain.InventoryLine, sc *StoreContext) (domain.ClassificationRecord, bool) {
	th := sc.thresholds()
	if Balanced(l, sc) {
		return domain.ClassificationRecord{}, false
	}

	net := l.NetPosition()
	cancelled := l.CancelledLineQty
	if l.UnitPrice < th.InternalTheftMinUnitPrice || net >= 0 || cancelled <= 0 {
		return domain.ClassificationRecord{}, false
	}

	shortage := -net
	ratio := shortage / cancelled
	if ratio > th.InternalTheftMaxRatio+floatEps {
		return domain.ClassificationRecord{}, false
	}

	deviation := math.Abs(shortage - cancelled)
	sev := DeviationSeverity(deviation, th)
	if sev == domain.SeverityNone {
		return domain.ClassificationRecord{}, false
	}

	var b strings.Builder
	if deviation <= th.DeviationVeryHigh+floatEps {
		fmt.Fprintf(&b, "net position %s exactly matches %s cancelled line units", domain.FormatQty(net), domain.FormatQty(cancelled))
	} else {
		fmt.Fprintf(&b, "net position %s vs %s cancelled line units (deviation %s)", domain.FormatQty(net), domain.FormatQty(cancelled), domain.FormatQty(deviation))
	}
	fmt.Fprintf(&b, ", ratio %s, unit price %s", domain.FormatQty(ratio), domain.FormatMoney(l.UnitPrice))
	if ev := describeEvents(sc.Cancellations(l.ProductID)); ev != "" {
		b.WriteString("; ")
		b.WriteString(ev)
	}
	return newRecord(l, domain.CauseInternalTheft, sev, b.String()), true
}

// DeviationSeverity maps ||net| - cancelled| onto a severity band. Bands are
// monotonic: a larger deviation never yields a higher severity.
func DeviationSeverity(deviation float64, th Thresholds) domain.Severity {
	switch {
	case deviation <= th.DeviationVeryHigh+floatEps:
		return domain.SeverityVeryHigh
	case deviation <= th.DeviationHigh+floatEps:
		return domain.SeverityHigh
	case deviation <= th.DeviationMedium+floatEps:
		return domain.SeverityMedium
	case deviation <= th.DeviationLowMedium+floatEps:
		return domain.SeverityLowMedium
	default:
		return domain.SeverityNone
	}
}

func describeEvents(events []domain.CancellationEvent) string {
	if len(events) == 0 {
		return ""
	}
	tills := make(map[string]struct{})
	var total float64
	for _, ev := range events {
		if ev.TillID != "" {
			tills[ev.TillID] = struct{}{}
		}
		total += ev.Qty
	}
	ids := make([]string, 0, len(tills))
	for id := range tills {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	first, last := events[0].OccurredAt, events[len(events)-1].OccurredAt
	out := fmt.Sprintf("%d void events totalling %s units", len(events), domain.FormatQty(total))
	if len(ids) > 0 {
		out += " on tills " + strings.Join(ids, ", ")
	}
	if !first.IsZero() {
		out += fmt.Sprintf(" between %s and %s", first.Format("2006-01-02 15:04"), last.Format("2006-01-02 15:04"))
	}
	return out
}

// ChronicShortage matches a product short this period and the previous one.
// Each earlier period that was also short extends the streak.
func ChronicShortage(l domain.InventoryLine, sc *StoreContext) (domain.ClassificationRecord, bool) {
	if Balanced(l, sc) || l.PriorVarianceQty >= 0 || l.VarianceQty >= 0 {
		return domain.ClassificationRecord{}, false
	}

	streak := ShortageStreak(l, sc)
	sev := domain.SeverityMedium
	switch {
	case streak >= 4:
		sev = domain.SeverityVeryHigh
	case streak == 3:
		sev = domain.SeverityHigh
	}

	rationale := fmt.Sprintf("short %d periods running: current %s, previous %s (amount %s)",
		streak, domain.FormatQty(l.VarianceQty), domain.FormatQty(l.PriorVarianceQty), domain.FormatMoney(l.VarianceAmount+l.PriorVarianceAmount))
	return newRecord(l, domain.CauseChronicShortage, sev, rationale), true
}

// ShortageStreak counts consecutive short periods ending with the current
// one. Without history the streak is 2 when the prior variance is negative.
func ShortageStreak(l domain.InventoryLine, sc *StoreContext) int {
	if l.VarianceQty >= 0 || l.PriorVarianceQty >= 0 {
		return 0
	}
	streak := 2
	for age := 0; ; age++ {
		prev, ok := sc.lookup(age, l.ProductID)
		if !ok || prev.PriorVarianceQty >= 0 {
			break
		}
		streak++
	}
	return streak
}

func wasteLoss(l domain.InventoryLine) bool {
	return l.WasteQty < 0 || l.WasteAmount < 0
}

// ChronicWaste matches waste recorded two periods running on a product whose
// variance did not net out.
func ChronicWaste(l domain.InventoryLine, sc *StoreContext) (domain.ClassificationRecord, bool) {
	if Balanced(l, sc) || !wasteLoss(l) {
		return domain.ClassificationRecord{}, false
	}
	prev, ok := sc.Prior(l.ProductID)
	if !ok || !wasteLoss(prev) {
		return domain.ClassificationRecord{}, false
	}

	rationale := fmt.Sprintf("waste recorded in consecutive periods: current %s (%s), previous %s (%s), net position %s",
		domain.FormatQty(l.WasteQty), domain.FormatMoney(l.WasteAmount), domain.FormatQty(prev.WasteQty), domain.FormatMoney(prev.WasteAmount), domain.FormatQty(l.NetPosition()))
	return newRecord(l, domain.CauseChronicWaste, domain.SeverityMedium, rationale), true
}

// WasteManipulation matches waste logged on a product whose count shows a
// surplus.
func WasteManipulation(l domain.InventoryLine, sc *StoreContext) (domain.ClassificationRecord, bool) {
	th := sc.thresholds()
	current := l.CurrentPosition()
	if Balanced(l, sc) || l.WasteQty == 0 || current <= 0 {
		return domain.ClassificationRecord{}, false
	}

	sev := domain.SeverityMedium
	if math.Abs(l.WasteAmount) >= th.MaterialityFloor {
		sev = domain.SeverityHigh
	}
	rationale := fmt.Sprintf("waste %s (%s) recorded while variance + partial count is %s",
		domain.FormatQty(l.WasteQty), domain.FormatMoney(l.WasteAmount), domain.FormatQty(current))
	return newRecord(l, domain.CauseWasteManipulation, sev, rationale), true
}

// ExternalTheft matches a material shortage with no waste and no voids
// behind it. External theft and a miscount cannot be told apart.
func ExternalTheft(l domain.InventoryLine, sc *StoreContext) (domain.ClassificationRecord, bool) {
	th := sc.thresholds()
	net := l.NetPosition()
	if Balanced(l, sc) || net >= 0 || l.WasteQty != 0 || l.CancelledLineQty != 0 {
		return domain.ClassificationRecord{}, false
	}
	amount := math.Abs(l.VarianceAmount)
	if amount <= th.MaterialityFloor {
		return domain.ClassificationRecord{}, false
	}

	sev := domain.SeverityMedium
	if amount >= th.MaterialityFloor*th.ExternalHighMultiple {
		sev = domain.SeverityHigh
	}
	rationale := fmt.Sprintf("net position %s worth %s with no waste or cancelled lines recorded",
		domain.FormatQty(net), domain.FormatMoney(l.VarianceAmount))
	return newRecord(l, domain.CauseExternalTheft, sev, rationale), true
}
