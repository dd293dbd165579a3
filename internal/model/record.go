package model

import "time"

// PhaseState tracks how far an analysis of one (person, session) pair has
// progressed. Generated means Phase 1 completed; Validated means Phase 2
// completed as well.
type PhaseState string

const (
	// StateGenerated indicates candidate generation has completed.
	StateGenerated PhaseState = "generated"
	// StateValidated indicates deep validation has completed.
	StateValidated PhaseState = "validated"
)

// AnalysisRecord is the persisted incremental-tracking state for one
// (person, session) pair: which bills and donations a completed analysis has
// already covered.
type AnalysisRecord struct {
	CreatedAt   time.Time
	LastRunAt   time.Time
	State       PhaseState
	BillIDs     []int64
	DonationIDs []int64
	PersonID    int64
	SessionID   int64
	RunCount    int
}

// TrackerStats summarizes remaining work for one (person, session) pair.
type TrackerStats struct {
	LastRunAt time.Time
	Total     int
	Analyzed  int
	Remaining int
	RunCount  int
}
