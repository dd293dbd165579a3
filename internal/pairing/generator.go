// Package pairing implements Phase 1 of the correlation analysis: deriving
// a bounded, ranked list of donor-action pairings from already-fetched
// data. This stage performs no text lookups and has no side effects, so it
// stays cheap enough to run exhaustively.
package pairing

import (
	"fmt"
	"sort"

	"github.com/jordanharb/moneytrail/internal/aggregate"
	"github.com/jordanharb/moneytrail/internal/common"
	"github.com/jordanharb/moneytrail/internal/config"
	"github.com/jordanharb/moneytrail/internal/model"
)

// maxPairs bounds the Phase 1 output list.
const maxPairs = 200

// Generator derives candidate pairings for one session's dataset.
type Generator struct {
	pairing   config.Pairing
	relevance config.Relevance
}

// NewGenerator creates a Phase 1 generator.
func NewGenerator(pairing config.Pairing, relevance config.Relevance) *Generator {
	return &Generator{pairing: pairing, relevance: relevance}
}

// Result is the Phase 1 output: ranked pairs plus summary counts.
type Result struct {
	Pairs   []model.CandidatePair
	Summary model.PairingSummary
}

// Generate enumerates donor-action pairings for a single-session dataset.
// The same aggregated input always yields the same pairs and scores; there
// is no randomness anywhere in this pass.
func (g *Generator) Generate(ds *aggregate.Dataset) (*Result, error) {
	if len(ds.Sessions) != 1 {
		return nil, common.NewStageError("generate",
			fmt.Errorf("pairing requires exactly one session, got %d", len(ds.Sessions)))
	}

	session := ds.Sessions[0]
	actions := ds.Actions(session.ID)

	var pairs []model.CandidatePair
	for i := range actions {
		pairs = append(pairs, g.pairsForAction(&actions[i], ds.Donations, &session)...)
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].ConfidenceScore != pairs[j].ConfidenceScore {
			return pairs[i].ConfidenceScore > pairs[j].ConfidenceScore
		}
		return pairs[i].Action.BillID < pairs[j].Action.BillID
	})

	if len(pairs) > maxPairs {
		pairs = pairs[:maxPairs]
	}

	summary := model.PairingSummary{
		TotalDonations: len(ds.Donations),
	}
	for _, v := range ds.Votes {
		if v.SessionID == session.ID {
			summary.TotalVotes++
		}
	}
	for _, s := range ds.Sponsorships {
		if s.SessionID == session.ID {
			summary.TotalSponsorships++
		}
	}
	for _, p := range pairs {
		switch p.Band() {
		case model.BandHigh:
			summary.HighConfidence++
		case model.BandMedium:
			summary.MediumConfidence++
		default:
			summary.LowConfidence++
		}
	}

	return &Result{Pairs: pairs, Summary: summary}, nil
}

// pairsForAction groups qualifying donations by shared industry and emits
// one pair per group, plus one catch-all pair for qualifying donations with
// no industry alignment. Low-confidence pairs are retained; filtering is
// Phase 2's job.
func (g *Generator) pairsForAction(action *model.LegislativeAction, donations []model.Donation, session *model.Session) []model.CandidatePair {
	billInds := billIndustries(action)

	grouped := make(map[string][]model.Donation)
	var unmatched []model.Donation

	for _, d := range donations {
		if !g.qualifies(&d, action) {
			continue
		}
		if ind, ok := sharedIndustry(donorIndustries(&d), billInds); ok {
			grouped[ind] = append(grouped[ind], d)
		} else {
			unmatched = append(unmatched, d)
		}
	}

	var pairs []model.CandidatePair
	for _, ind := range industries {
		group, ok := grouped[ind.name]
		if !ok {
			continue
		}
		pairs = append(pairs, g.buildPair(action, session, group, ind.name, true))
	}
	if len(unmatched) > 0 {
		pairs = append(pairs, g.buildPair(action, session, unmatched, "", false))
	}

	return pairs
}

// qualifies applies the hard Phase 1 admission rules: the donation must be
// flagged politically relevant, and must not postdate the action, since a
// later donation cannot have influenced it. Excluded donations remain in
// the raw aggregate for narrative context.
func (g *Generator) qualifies(d *model.Donation, action *model.LegislativeAction) bool {
	if !d.Relevant {
		return false
	}
	return !d.Date.After(action.Date)
}

// buildPair scores one donation group against one action.
func (g *Generator) buildPair(action *model.LegislativeAction, session *model.Session, group []model.Donation, industryName string, categoryMatch bool) model.CandidatePair {
	pair := model.CandidatePair{
		Action:    *action,
		Donations: group,
	}

	best := 0.0
	for i := range group {
		score := g.score(&group[i], action, session, categoryMatch)
		if score > best {
			best = score
		}
		pair.TotalAmount += group[i].Amount
	}
	pair.DonorCount = len(group)
	pair.ConfidenceScore = best
	pair.ConnectionReason = g.reason(action, industryName, categoryMatch, group)

	return pair
}

// score assigns the [0,1] confidence for one donation against one action.
// High requires all three signals: category alignment, a large donation,
// and temporal proximity. One of {category, proximity} alone is medium.
// Anything else is low but retained.
func (g *Generator) score(d *model.Donation, action *model.LegislativeAction, session *model.Session, categoryMatch bool) float64 {
	large := d.Amount >= g.relevance.MinAmount
	proximate := g.proximate(d, session)

	var score float64
	switch {
	case categoryMatch && large && proximate:
		score = 0.7
		if !d.IsIndividual() {
			score += 0.1
		}
		if action.PartyOutlier {
			score += 0.1
		}
	case categoryMatch && proximate:
		// Both soft signals but a small donation.
		score = 0.6
	case categoryMatch || proximate:
		score = 0.4
		if large {
			score += 0.15
		}
	default:
		score = 0.15
		if large {
			score += 0.1
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// proximate reports whether the donation landed within the session window
// or shortly before it.
func (g *Generator) proximate(d *model.Donation, session *model.Session) bool {
	if d.Period == model.PeriodDuring {
		return true
	}
	if d.Period != model.PeriodBefore || session.StartDate == nil {
		return false
	}
	return session.StartDate.Sub(d.Date) <= g.pairing.ProximityWindow
}

func (g *Generator) reason(action *model.LegislativeAction, industryName string, categoryMatch bool, group []model.Donation) string {
	verb := "vote on"
	if action.Type == model.ActionSponsorship {
		verb = "sponsorship of"
	}

	if categoryMatch {
		return fmt.Sprintf("%d donor(s) in %s preceding %s %s (%s)",
			len(group), industryName, verb, action.BillNumber, action.BillTitle)
	}
	return fmt.Sprintf("%d politically relevant donor(s) active before %s %s, no direct industry alignment",
		len(group), verb, action.BillNumber)
}
