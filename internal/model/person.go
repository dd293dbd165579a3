// Package model defines the core domain models used throughout the application.
package model

// Person represents a legislator or candidate resolved from a free-text name.
// A person who switches chambers accumulates one role ID per chamber/term
// combination; all of them must be queried for a complete voting record.
type Person struct {
	Name    string
	Party   string
	Body    string
	ID      int64
	RoleIDs []int64
}

// CampaignEntity represents a fundraising committee or candidate-finance
// account. Multiple entities may belong to one person, typically one per
// election cycle.
type CampaignEntity struct {
	CandidateName string
	CommitteeName string
	ID            int64
}
