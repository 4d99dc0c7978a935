package classifier

import (
	"sort"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
)

// Result is everything the detectors found for one store.
type Result struct {
	Records           []domain.ClassificationRecord
	Families          []domain.FamilyFinding
	Categories        []domain.CategoryShortage
	LowValue          domain.LowValueGaps
	Confused          domain.ProductSet
	DecoySurplusCount int
}

// ClassifyStore runs every detector over one store's lines. Family grouping
// runs first so that members of a code-confusion family are not reported
// again as individual shortages.
func ClassifyStore(lines []domain.InventoryLine, sc *StoreContext) Result {
	th := sc.thresholds()

	families := GroupIntoFamilies(lines, th.FamilySizeTolerance)
	findings, records, confused := ClassifyFamilies(families, sc)

	res := Result{
		Families:   findings,
		Categories: CategoryShortages(lines, sc),
		LowValue:   LowValueGaps(lines, sc),
		Confused:   confused,
	}

	for _, l := range lines {
		if Balanced(l, sc) {
			continue
		}
		if sc.IsDecoy(l.ProductID) && l.NetPosition() > 0 {
			res.DecoySurplusCount++
		}
		if confused.Has(l.ProductID) {
			continue
		}
		var matches []domain.ClassificationRecord
		for _, detect := range Detectors {
			if rec, ok := detect(l, sc); ok {
				matches = append(matches, rec)
			}
		}
		if rec, ok := Resolve(matches); ok {
			records = append(records, rec)
		}
	}

	SortRecords(records)
	res.Records = records
	return res
}

// Resolve reduces one product's detector matches to a single record: the
// highest-precedence cause wins and the rest are kept in AlsoMatched.
func Resolve(matches []domain.ClassificationRecord) (domain.ClassificationRecord, bool) {
	if len(matches) == 0 {
		return domain.ClassificationRecord{}, false
	}
	best := 0
	for i, m := range matches {
		if m.Cause.Rank() < matches[best].Cause.Rank() {
			best = i
		}
	}
	rec := matches[best]
	rec.AlsoMatched = nil
	for i, m := range matches {
		if i != best {
			rec.AlsoMatched = append(rec.AlsoMatched, m.Cause)
		}
	}
	sort.Slice(rec.AlsoMatched, func(i, j int) bool {
		return rec.AlsoMatched[i].Rank() < rec.AlsoMatched[j].Rank()
	})
	return rec, true
}

// SortRecords orders records by product id, then cause precedence.
func SortRecords(records []domain.ClassificationRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].ProductID != records[j].ProductID {
			return records[i].ProductID < records[j].ProductID
		}
		return records[i].Cause.Rank() < records[j].Cause.Rank()
	})
}
