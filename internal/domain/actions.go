package domain

var recommendedActions = map[Cause]string{
	CauseInternalTheft:     "Review till camera footage, interview staff, restrict line-void permission",
	CauseExternalTheft:     "Recount, match stockroom to shelf, apply security tags",
	CauseChronicShortage:   "Check shelf placement, retrain counting staff, tighten stock tracking",
	CauseCodeConfusion:     "Barcode and code training, separate look-alike products, fix shelf order",
	CauseOperationalLoss:   "Enforce waste recording discipline, review operational process",
	CauseWasteManipulation: "Audit waste entries, require approval for waste postings",
	CauseChronicWaste:      "Investigate spoilage root cause, review order quantities",
}

// ActionFor returns the recommended action for a cause.
func ActionFor(c Cause) string {
	if a, ok := recommendedActions[c]; ok {
		return a
	}
	return "Detailed review"
}
