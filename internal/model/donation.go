package model

import (
	"strings"
	"time"
)

// Period classifies a donation's date relative to a session window.
type Period string

const (
	// PeriodBefore indicates the donation predates the session start.
	PeriodBefore Period = "before"
	// PeriodDuring indicates the donation falls within the session window,
	// boundaries inclusive.
	PeriodDuring Period = "during"
	// PeriodAfter indicates the donation postdates the session end.
	PeriodAfter Period = "after"
)

// donorNameDelimiter separates the fields of a composite donor string.
// The clean display name is always the last segment.
const donorNameDelimiter = "|"

// Donation represents a single campaign contribution. Immutable once
// fetched; Period is computed at aggregation time.
type Donation struct {
	Date       time.Time
	DonorName  string
	DonorType  string
	Occupation string
	Employer   string
	Period     Period
	ID         int64
	EntityID   int64
	SessionID  int64
	Amount     float64
	Relevant   bool
}

// DisplayName returns the clean donor name. Raw donor strings from the data
// service may be multi-field composites; the display name is the last
// segment.
func (d *Donation) DisplayName() string {
	name := d.DonorName
	if idx := strings.LastIndex(name, donorNameDelimiter); idx >= 0 {
		name = name[idx+len(donorNameDelimiter):]
	}
	return strings.TrimSpace(name)
}

// IsIndividual reports whether the donor is a natural person rather than a
// PAC, business, or other organization.
func (d *Donation) IsIndividual() bool {
	return strings.EqualFold(strings.TrimSpace(d.DonorType), "individual")
}

// ClassifyPeriod computes the before/during/after label for a date relative
// to a session window. A date exactly on either boundary is "during".
func ClassifyPeriod(date time.Time, session *Session) Period {
	if session.StartDate != nil && date.Before(*session.StartDate) {
		return PeriodBefore
	}
	if session.EndDate != nil && date.After(*session.EndDate) {
		return PeriodAfter
	}
	return PeriodDuring
}
