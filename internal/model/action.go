package model

import "time"

// ActionType distinguishes the two kinds of legislative action.
type ActionType string

const (
	// ActionVote is a recorded floor or committee vote.
	ActionVote ActionType = "vote"
	// ActionSponsorship is a bill sponsorship or co-sponsorship.
	ActionSponsorship ActionType = "sponsorship"
)

// LegislativeAction represents a vote or sponsorship by one person on one
// bill. Vote-only fields are zero-valued for sponsorships.
type LegislativeAction struct {
	Date         time.Time
	BillNumber   string
	BillTitle    string
	Position     string
	Type         ActionType
	BillID       int64
	SessionID    int64
	RoleID       int64
	PartyYes     int
	PartyNo      int
	OppositeYes  int
	OppositeNo   int
	PartyOutlier bool
}
