package domain

import (
	"fmt"
	"strings"
)

// Cause is the single shrinkage explanation assigned to a product.
type Cause string

const (
	CauseInternalTheft     Cause = "internal_theft"
	CauseChronicShortage   Cause = "chronic_shortage"
	CauseChronicWaste      Cause = "chronic_waste"
	CauseWasteManipulation Cause = "waste_manipulation"
	CauseExternalTheft     Cause = "external_theft_or_miscount"
	CauseCodeConfusion     Cause = "code_confusion"
	CauseOperationalLoss   Cause = "operational_loss"
	CauseOther             Cause = "other"
)

var causeLabels = map[Cause]string{
	CauseInternalTheft:     "Internal theft",
	CauseChronicShortage:   "Chronic shortage",
	CauseChronicWaste:      "Chronic waste",
	CauseWasteManipulation: "Waste manipulation",
	CauseExternalTheft:     "External theft / count error",
	CauseCodeConfusion:     "Code confusion",
	CauseOperationalLoss:   "Operational loss",
	CauseOther:             "Other",
}

// Causes lists every cause in ranking precedence order.
var Causes = []Cause{
	CauseCodeConfusion,
	CauseInternalTheft,
	CauseChronicShortage,
	CauseWasteManipulation,
	CauseChronicWaste,
	CauseExternalTheft,
	CauseOperationalLoss,
	CauseOther,
}

var causeRank = func() map[Cause]int {
	m := make(map[Cause]int, len(Causes))
	for i, c := range Causes {
		m[c] = i
	}
	return m
}()

// Rank is the cause's position in Causes; a lower rank wins when one
// product matches several rules.
func (c Cause) Rank() int {
	if r, ok := causeRank[c]; ok {
		return r
	}
	return len(Causes)
}

// Label returns a human-readable label for a cause.
func (c Cause) Label() string {
	if label, ok := causeLabels[c]; ok {
		return label
	}
	return "Other"
}

// ParseCause accepts either the code or the label (case-insensitive).
func ParseCause(s string) (Cause, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	for c, label := range causeLabels {
		if string(c) == key || strings.ToLower(label) == key {
			return c, true
		}
	}
	return "", false
}

// Severity is ordered: a larger value is more severe.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityLowMedium
	SeverityMedium
	SeverityHigh
	SeverityVeryHigh
)

var severityNames = map[Severity]string{
	SeverityNone:      "none",
	SeverityLow:       "low",
	SeverityLowMedium: "low_medium",
	SeverityMedium:    "medium",
	SeverityHigh:      "high",
	SeverityVeryHigh:  "very_high",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "none"
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	key := strings.ToLower(strings.TrimSpace(string(text)))
	for sev, name := range severityNames {
		if name == key {
			*s = sev
			return nil
		}
	}
	return fmt.Errorf("unknown severity %q", string(text))
}

// RiskLevel is the discrete store/group risk classification.
type RiskLevel int

const (
	RiskClean RiskLevel = iota
	RiskCaution
	RiskRisky
	RiskCritical
)

var riskLevelNames = map[RiskLevel]string{
	RiskClean:    "clean",
	RiskCaution:  "caution",
	RiskRisky:    "risky",
	RiskCritical: "critical",
}

// RiskLevels in ascending order.
var RiskLevels = []RiskLevel{RiskClean, RiskCaution, RiskRisky, RiskCritical}

func (r RiskLevel) String() string {
	if name, ok := riskLevelNames[r]; ok {
		return name
	}
	return "clean"
}

func (r RiskLevel) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *RiskLevel) UnmarshalText(text []byte) error {
	level, ok := ParseRiskLevel(string(text))
	if !ok {
		return fmt.Errorf("unknown risk level %q", string(text))
	}
	*r = level
	return nil
}

// ParseRiskLevel returns the level for a given name (case-insensitive).
func ParseRiskLevel(name string) (RiskLevel, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for level, n := range riskLevelNames {
		if n == key {
			return level, true
		}
	}
	return RiskClean, false
}
