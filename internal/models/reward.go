package models

// RewardEffects are the increments applied once per verified drop.
type RewardEffects struct {
	Points        int
	CO2Saved      float64
	ItemsRecycled int
	FillStep      int
	FullThreshold int
}

// RewardOutcome describes what applying rewards actually changed.
type RewardOutcome struct {
	// Applied is false when the drop had already been rewarded.
	Applied       bool
	DropEventID   string
	UserID        string
	BinID         string
	BinName       string
	FillLevel     int
	BinBecameFull bool
	UserPoints    int
}
