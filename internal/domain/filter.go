package domain

// ReportFilter selects persisted analysis output.
type ReportFilter struct {
	RunID    string
	Period   string
	StoreIDs []string
	GroupBy  RollupKind
	Level    string
}
