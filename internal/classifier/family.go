package classifier

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/senirlioglu/envanter-risk-analizi/internal/domain"
	"github.com/senirlioglu/envanter-risk-analizi/internal/normalizer"
)

// DefaultSizeTolerance is the relative pack-size spread tolerated inside a
// fuzzy family.
const DefaultSizeTolerance = 0.30

// PackSize is a parsed pack size in base units (g, ml or pieces).
type PackSize struct {
	Bucket string
	Value  float64
}

var packSizePattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*('?(?:kg|gr|g|lt|l|ml|cl|adet|li|lu))\b`)

var sizeUnits = map[string]struct {
	bucket string
	factor float64
}{
	"kg":   {"mass", 1000},
	"gr":   {"mass", 1},
	"g":    {"mass", 1},
	"lt":   {"volume", 1000},
	"l":    {"volume", 1000},
	"cl":   {"volume", 10},
	"ml":   {"volume", 1},
	"adet": {"count", 1},
	"li":   {"count", 1},
	"lu":   {"count", 1},
}

// ParsePackSize extracts the last size token of a product name,
// e.g. "SUT 1 LT" -> {volume 1000}.
func ParsePackSize(name string) (PackSize, bool) {
	matches := packSizePattern.FindAllStringSubmatch(normalizer.Fold(name), -1)
	if len(matches) == 0 {
		return PackSize{}, false
	}
	m := matches[len(matches)-1]
	v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil || v <= 0 {
		return PackSize{}, false
	}
	unit, ok := sizeUnits[strings.TrimPrefix(m[2], "'")]
	if !ok {
		return PackSize{}, false
	}
	return PackSize{Bucket: unit.bucket, Value: v * unit.factor}, true
}

// familyKey returns the grouping key of a line and whether it uses the
// fuzzy name-based form.
func familyKey(l domain.InventoryLine) (key, brand string, fuzzy bool) {
	group := normalizer.Fold(l.ProductGroup)
	if b := normalizer.Fold(l.Brand); b != "" {
		return group + "|" + b, l.Brand, false
	}

	words := strings.Fields(normalizer.Fold(l.ProductName))
	if len(words) < 2 {
		return "", "", false
	}
	brand = words[len(words)-1]
	return group + "|" + brand + "|" + words[0] + " " + words[1], brand, true
}

// GroupIntoFamilies groups near-identical SKUs. Lines sharing product group
// and brand form a family; lines without a brand are keyed on their name and
// further split by pack size. Only families of two or more members are
// returned, ordered by key, members ordered by product id.
func GroupIntoFamilies(lines []domain.InventoryLine, sizeTolerance float64) []domain.ProductFamily {
	type bucket struct {
		brand   string
		fuzzy   bool
		members []domain.InventoryLine
	}
	buckets := make(map[string]*bucket)
	for _, l := range lines {
		key, brand, fuzzy := familyKey(l)
		if key == "" {
			continue
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{brand: brand, fuzzy: fuzzy}
			buckets[key] = b
		}
		b.members = append(b.members, l)
	}

	var families []domain.ProductFamily
	for key, b := range buckets {
		if !b.fuzzy {
			families = append(families, newFamily(key, b.brand, "", b.members))
			continue
		}
		for _, c := range clusterBySize(b.members, sizeTolerance) {
			families = append(families, newFamily(key+c.suffix, b.brand, c.bucket, c.members))
		}
	}

	out := families[:0]
	for _, f := range families {
		if len(f.Members) >= 2 {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func newFamily(key, brand, sizeBucket string, members []domain.InventoryLine) domain.ProductFamily {
	sorted := append([]domain.InventoryLine(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })
	group := ""
	if len(sorted) > 0 {
		group = sorted[0].ProductGroup
	}
	return domain.ProductFamily{
		Key:          key,
		ProductGroup: group,
		Brand:        brand,
		SizeBucket:   sizeBucket,
		Members:      sorted,
	}
}

type sizeCluster struct {
	suffix  string
	bucket  string
	members []domain.InventoryLine
}

// clusterBySize splits lines by size bucket, then greedily groups sizes
// within tolerance of the smallest size in the cluster. Lines without a
// parsable size share one cluster.
func clusterBySize(lines []domain.InventoryLine, tolerance float64) []sizeCluster {
	type sized struct {
		line domain.InventoryLine
		size PackSize
	}
	byBucket := make(map[string][]sized)
	for _, l := range lines {
		size, _ := ParsePackSize(l.ProductName)
		byBucket[size.Bucket] = append(byBucket[size.Bucket], sized{l, size})
	}

	var clusters []sizeCluster
	for bucketName, items := range byBucket {
		if bucketName == "" {
			c := sizeCluster{suffix: "#nosize"}
			for _, it := range items {
				c.members = append(c.members, it.line)
			}
			clusters = append(clusters, c)
			continue
		}

		sort.SliceStable(items, func(i, j int) bool {
			if items[i].size.Value != items[j].size.Value {
				return items[i].size.Value < items[j].size.Value
			}
			return items[i].line.ProductID < items[j].line.ProductID
		})
		cur := -1
		var anchor float64
		for _, it := range items {
			if cur < 0 || it.size.Value > anchor*(1+tolerance)+floatEps {
				anchor = it.size.Value
				clusters = append(clusters, sizeCluster{
					suffix: fmt.Sprintf("#%s:%s", bucketName, strconv.FormatFloat(anchor, 'f', -1, 64)),
					bucket: bucketName,
				})
				cur = len(clusters) - 1
			}
			clusters[cur].members = append(clusters[cur].members, it.line)
		}
	}
	return clusters
}

// ClassifyFamilies judges each family's combined net position. Balanced
// members take no part. Members of a family that nets to about zero are
// code confusion, not loss, and are returned in confused so the per-line
// detectors and the ranker skip them.
func ClassifyFamilies(families []domain.ProductFamily, sc *StoreContext) (findings []domain.FamilyFinding, records []domain.ClassificationRecord, confused domain.ProductSet) {
	th := sc.thresholds()
	confused = make(domain.ProductSet)

	for _, f := range families {
		var varSum, partialSum, priorSum float64
		moved := false
		ids := make([]string, 0, len(f.Members))
		members := make([]domain.InventoryLine, 0, len(f.Members))
		for _, m := range f.Members {
			if Balanced(m, sc) {
				continue
			}
			members = append(members, m)
			varSum += m.VarianceQty
			partialSum += m.PartialCountQty
			priorSum += m.PriorVarianceQty
			if m.VarianceQty != 0 {
				moved = true
			}
			ids = append(ids, m.ProductID)
		}
		if !moved || len(members) < 2 {
			continue
		}
		net := varSum + partialSum + priorSum

		finding := domain.FamilyFinding{
			StoreID:      members[0].StoreID,
			Key:          f.Key,
			ProductGroup: f.ProductGroup,
			Brand:        f.Brand,
			ProductIDs:   ids,
			VarianceSum:  varSum,
			PartialSum:   partialSum,
			PriorSum:     priorSum,
			NetSum:       net,
		}

		switch {
		case math.Abs(net) <= th.FamilyTolerance+floatEps:
			finding.Outcome = domain.FamilyCodeConfusion
			finding.Severity = domain.SeverityLow
			finding.Rationale = fmt.Sprintf("%d similar products net to %s: code confusion, not theft", len(ids), domain.FormatQty(net))
			for _, m := range members {
				confused[m.ProductID] = struct{}{}
				rationale := fmt.Sprintf("own net position %s offset within family %s (family net %s)",
					domain.FormatQty(m.NetPosition()), familyLabel(f), domain.FormatQty(net))
				records = append(records, newRecord(m, domain.CauseCodeConfusion, domain.SeverityLow, rationale))
			}
		case net < -th.FamilyTolerance:
			finding.Outcome = domain.FamilyShortage
			finding.Severity = domain.SeverityMedium
			finding.Rationale = fmt.Sprintf("%d similar products net to %s: family-level unrecorded shortage", len(ids), domain.FormatQty(net))
		default:
			finding.Outcome = domain.FamilySurplus
			finding.Severity = domain.SeverityLow
			finding.Rationale = fmt.Sprintf("%d similar products net to +%s: family-level surplus", len(ids), domain.FormatQty(net))
		}
		findings = append(findings, finding)
	}
	return findings, records, confused
}

func familyLabel(f domain.ProductFamily) string {
	if f.Brand == "" {
		return f.ProductGroup
	}
	return f.ProductGroup + " / " + f.Brand
}
