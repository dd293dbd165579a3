package model

// Confidence band boundaries for candidate pairings.
const (
	// ConfidenceHighFloor is the lower bound of the high band.
	ConfidenceHighFloor = 0.7
	// ConfidenceMediumFloor is the lower bound of the medium band.
	ConfidenceMediumFloor = 0.4
	// ConfidenceLowFloor is the lower bound of the low band.
	ConfidenceLowFloor = 0.1
)

// ConfidenceBand labels a pairing's confidence score.
type ConfidenceBand string

const (
	// BandHigh covers scores in [0.7, 1.0].
	BandHigh ConfidenceBand = "high"
	// BandMedium covers scores in [0.4, 0.7).
	BandMedium ConfidenceBand = "medium"
	// BandLow covers scores in [0.1, 0.4).
	BandLow ConfidenceBand = "low"
)

// BandFor returns the confidence band containing score.
func BandFor(score float64) ConfidenceBand {
	switch {
	case score >= ConfidenceHighFloor:
		return BandHigh
	case score >= ConfidenceMediumFloor:
		return BandMedium
	default:
		return BandLow
	}
}

// CandidatePair associates one legislative action with the donations that
// plausibly relate to it. Phase 1 output; carries full traceability back to
// the originating bill and donor records.
type CandidatePair struct {
	Action           LegislativeAction
	ConnectionReason string
	Donations        []Donation
	ConfidenceScore  float64
	TotalAmount      float64
	DonorCount       int
}

// Band returns the confidence band for this pairing.
func (p *CandidatePair) Band() ConfidenceBand {
	return BandFor(p.ConfidenceScore)
}

// PairingSummary carries aggregate counts for one Phase 1 run.
type PairingSummary struct {
	TotalDonations    int
	TotalVotes        int
	TotalSponsorships int
	HighConfidence    int
	MediumConfidence  int
	LowConfidence     int
}
