package model

// Severity classifies how strongly a validated connection implicates the
// donor-bill relationship.
type Severity string

const (
	// SeverityHigh indicates direct, specific benefit to the donor.
	SeverityHigh Severity = "high"
	// SeverityMedium indicates plausible but indirect benefit.
	SeverityMedium Severity = "medium"
	// SeverityLow indicates a weak or incidental relationship.
	SeverityLow Severity = "low"
)

// ValidatedConnection is a candidate pairing confirmed against the bill's
// full text. Phase 2 output.
type ValidatedConnection struct {
	Pair          CandidatePair
	Explanation   string
	Severity      Severity
	KeyProvisions []string
	Confidence    float64
}

// RejectedConnection is a candidate pairing the deep validation pass ruled
// out, with the reason.
type RejectedConnection struct {
	BillNumber     string
	ReasonRejected string
	BillID         int64
}

// ValidationReport is the complete Phase 2 output for one session.
type ValidationReport struct {
	SessionSummary string
	Confirmed      []ValidatedConnection
	Rejected       []RejectedConnection
	KeyFindings    []string
}
