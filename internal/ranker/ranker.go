// Package ranker picks each store's most costly unresolved discrepancies
// and labels every one with a single cause.
package ranker

import (
	"fmt"
	"sort"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
)

// DefaultN is the usual length of a store's top list.
const DefaultN = 20

// Precedence is the order in which causes win when a product matches
// several detectors. CodeConfusion never reaches the ranker.
var Precedence = []domain.Cause{
	domain.CauseInternalTheft,
	domain.CauseChronicShortage,
	domain.CauseWasteManipulation,
	domain.CauseChronicWaste,
	domain.CauseExternalTheft,
}

// Options tunes candidate selection.
type Options struct {
	N                int
	BalanceTolerance float64
	// Exclude holds products explained by code confusion.
	Exclude domain.ProductSet
}

// TopN returns the n most negative lines by net effect. Candidates must
// have a negative net effect, must not be balanced and must not be
// code-confusion members. Ties are broken by product id.
func TopN(lines []domain.InventoryLine, records []domain.ClassificationRecord, opts Options) []domain.RankedItem {
	if opts.N <= 0 {
		opts.N = DefaultN
	}

	byProduct := make(map[string][]domain.ClassificationRecord)
	for _, r := range records {
		byProduct[r.ProductID] = append(byProduct[r.ProductID], r)
	}

	candidates := make([]domain.InventoryLine, 0, len(lines))
	for _, l := range lines {
		if l.NetEffectAmount() >= 0 || l.IsBalanced(opts.BalanceTolerance) || opts.Exclude.Has(l.ProductID) {
			continue
		}
		if hasCause(byProduct[l.ProductID], domain.CauseCodeConfusion) {
			continue
		}
		candidates = append(candidates, l)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].NetEffectAmount(), candidates[j].NetEffectAmount()
		if a != b {
			return a < b
		}
		return candidates[i].ProductID < candidates[j].ProductID
	})
	if len(candidates) > opts.N {
		candidates = candidates[:opts.N]
	}

	items := make([]domain.RankedItem, 0, len(candidates))
	for i, l := range candidates {
		cause, sev, rationale := Assign(l, byProduct[l.ProductID])
		items = append(items, domain.RankedItem{
			Rank:              i + 1,
			ProductID:         l.ProductID,
			ProductName:       l.ProductName,
			ProductGroup:      l.ProductGroup,
			VarianceQty:       l.VarianceQty,
			PartialCountQty:   l.PartialCountQty,
			PriorVarianceQty:  l.PriorVarianceQty,
			NetPosition:       l.NetPosition(),
			CancelledLineQty:  l.CancelledLineQty,
			VarianceAmount:    l.VarianceAmount,
			NetEffectAmount:   l.NetEffectAmount(),
			Cause:             cause,
			Severity:          sev,
			Rationale:         rationale,
			RecommendedAction: domain.ActionFor(cause),
		})
	}
	return items
}

// Assign resolves a line's detector findings to exactly one cause.
func Assign(l domain.InventoryLine, records []domain.ClassificationRecord) (domain.Cause, domain.Severity, string) {
	for _, cause := range Precedence {
		for _, r := range records {
			if r.Cause == cause {
				return r.Cause, r.Severity, r.Rationale
			}
		}
	}
	if l.HasWaste() {
		return domain.CauseOperationalLoss, domain.SeverityLow,
			fmt.Sprintf("net effect %s with waste %s recorded (%s units)",
				domain.FormatMoney(l.NetEffectAmount()), domain.FormatMoney(l.WasteAmount), domain.FormatQty(l.WasteQty))
	}
	return domain.CauseOther, domain.SeverityLow,
		fmt.Sprintf("net effect %s, net position %s, no rule matched",
			domain.FormatMoney(l.NetEffectAmount()), domain.FormatQty(l.NetPosition()))
}

func hasCause(records []domain.ClassificationRecord, c domain.Cause) bool {
	for _, r := range records {
		if r.Cause == c {
			return true
		}
	}
	return false
}
