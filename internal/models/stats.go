package models

// Stats is the admin overview of the ledger and the registry.
type Stats struct {
	TotalUsers      int64
	UsersByTier     map[Tier]int64
	TotalReferrals  int64
	SignalsByStatus map[SignalStatus]int64
	TopReferrers    []User
}
