// Package aggregate assembles the time-windowed dataset of donations,
// votes, and sponsorships for one resolved person.
package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jordanharb/moneytrail/internal/common"
	"github.com/jordanharb/moneytrail/internal/config"
	"github.com/jordanharb/moneytrail/internal/gateway"
	"github.com/jordanharb/moneytrail/internal/model"
	"github.com/jordanharb/moneytrail/internal/service"
)

// Data-service procedures consumed by the aggregator.
const (
	procGetSessions     = "get_sessions"
	procGetDonations    = "get_donations"
	procGetVotes        = "get_votes"
	procGetSponsorships = "get_sponsorships"
)

// AllSessions requests aggregation across every session with a valid
// calculated window.
const AllSessions int64 = 0

// sessionFetchConcurrency bounds the per-session fan-out.
const sessionFetchConcurrency = 4

// Dataset is the aggregated input for candidate generation.
type Dataset struct {
	Person       model.Person
	Sessions     []model.Session
	Donations    []model.Donation
	Votes        []model.LegislativeAction
	Sponsorships []model.LegislativeAction
}

// SessionByID returns the dataset session with the given ID, or nil.
func (d *Dataset) SessionByID(id int64) *model.Session {
	for i := range d.Sessions {
		if d.Sessions[i].ID == id {
			return &d.Sessions[i]
		}
	}
	return nil
}

// Actions returns votes and sponsorships for one session, votes first.
func (d *Dataset) Actions(sessionID int64) []model.LegislativeAction {
	var out []model.LegislativeAction
	for _, v := range d.Votes {
		if v.SessionID == sessionID {
			out = append(out, v)
		}
	}
	for _, s := range d.Sponsorships {
		if s.SessionID == sessionID {
			out = append(out, s)
		}
	}
	return out
}

// Aggregator fetches and classifies the temporal dataset.
type Aggregator struct {
	gateway   service.Gateway
	relevance config.Relevance
	pageSize  int
	maxRows   int
}

// New creates an aggregator over the given gateway.
func New(gw service.Gateway, gwCfg config.Gateway, relevance config.Relevance) *Aggregator {
	return &Aggregator{
		gateway:   gw,
		relevance: relevance,
		pageSize:  gwCfg.PageSize,
		maxRows:   gwCfg.MaxRows,
	}
}

// Wire row shapes.

type sessionRow struct {
	StartDate *time.Time `json:"calc_start"`
	EndDate   *time.Time `json:"calc_end"`
	Name      string     `json:"session_name"`
	SessionID int64      `json:"session_id"`
}

type donationRow struct {
	Date       time.Time `json:"transaction_date"`
	DonorName  string    `json:"donor_name"`
	DonorType  string    `json:"donor_type"`
	Occupation string    `json:"occupation"`
	Employer   string    `json:"employer"`
	DonationID int64     `json:"donation_id"`
	EntityID   int64     `json:"entity_id"`
	Amount     float64   `json:"amount"`
}

type actionRow struct {
	Date        time.Time `json:"action_date"`
	BillNumber  string    `json:"bill_number"`
	BillTitle   string    `json:"bill_title"`
	Position    string    `json:"position"`
	BillID      int64     `json:"bill_id"`
	RoleID      int64     `json:"role_id"`
	PartyYes    int       `json:"party_yes"`
	PartyNo     int       `json:"party_no"`
	OppositeYes int       `json:"opposite_yes"`
	OppositeNo  int       `json:"opposite_no"`
}

// Aggregate builds the dataset for the person's roles and entities, scoped
// to one session or all of them. A failed fetch for one session does not
// abort the others; that session simply contributes nothing.
func (a *Aggregator) Aggregate(ctx context.Context, person model.Person, entityIDs []int64, sessionID int64) (*Dataset, error) {
	all, err := a.fetchSessions(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: no sessions with calculated windows", common.ErrDataFetch)
	}

	scope := all
	if sessionID != AllSessions {
		scope = nil
		for _, s := range all {
			if s.ID == sessionID {
				scope = []model.Session{s}
				break
			}
		}
		if len(scope) == 0 {
			return nil, fmt.Errorf("%w: session %d not found or has no calculated window", common.ErrDataFetch, sessionID)
		}
	}

	donations, err := a.fetchDonations(ctx, entityIDs, all, sessionID)
	if err != nil {
		return nil, err
	}

	votes, sponsorships := a.fetchActions(ctx, person.RoleIDs, scope)

	return &Dataset{
		Person:       person,
		Sessions:     scope,
		Donations:    donations,
		Votes:        votes,
		Sponsorships: sponsorships,
	}, nil
}

// fetchSessions returns every session with a valid calculated window,
// sorted by start date. Sessions missing a computed window are excluded
// from all downstream temporal reasoning.
func (a *Aggregator) fetchSessions(ctx context.Context) ([]model.Session, error) {
	var rows []sessionRow
	if err := a.gateway.Call(ctx, procGetSessions, nil, &rows); err != nil {
		return nil, err
	}

	var sessions []model.Session
	for _, row := range rows {
		s := model.Session{
			ID:        row.SessionID,
			Name:      row.Name,
			StartDate: row.StartDate,
			EndDate:   row.EndDate,
		}
		if !s.HasWindow() {
			slog.Debug("Excluding session without calculated window", "session_id", s.ID)
			continue
		}
		sessions = append(sessions, s)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartDate.Before(*sessions[j].StartDate)
	})

	return sessions, nil
}

// fetchDonations drains the paginated donations procedure and classifies
// each donation's period against the session windows.
func (a *Aggregator) fetchDonations(ctx context.Context, entityIDs []int64, sessions []model.Session, requested int64) ([]model.Donation, error) {
	pager := gateway.NewPager(func(ctx context.Context, page service.Page) ([]json.RawMessage, error) {
		return a.gateway.CallPaged(ctx, procGetDonations, service.Params{"entity_ids": entityIDs}, page)
	}, a.pageSize, a.maxRows)

	rows, err := gateway.DrainInto[donationRow](ctx, pager)
	if err != nil {
		return nil, err
	}

	var donations []model.Donation
	for _, row := range rows {
		attributed, period, ok := attribute(row.Date, sessions)
		if !ok {
			continue
		}
		// With a specific session requested, donations attributed to a
		// different session fall outside the relevant window.
		if requested != AllSessions && attributed != requested {
			continue
		}

		d := model.Donation{
			ID:         row.DonationID,
			EntityID:   row.EntityID,
			DonorName:  row.DonorName,
			DonorType:  row.DonorType,
			Occupation: row.Occupation,
			Employer:   row.Employer,
			Amount:     row.Amount,
			Date:       row.Date,
			SessionID:  attributed,
			Period:     period,
		}
		d.Relevant = IsPoliticallyRelevant(&d, a.relevance)
		donations = append(donations, d)
	}

	sort.Slice(donations, func(i, j int) bool {
		if !donations[i].Date.Equal(donations[j].Date) {
			return donations[i].Date.Before(donations[j].Date)
		}
		return donations[i].ID < donations[j].ID
	})

	return donations, nil
}

// attribute assigns a donation to a session and classifies its period. A
// donation inside a session window belongs to that session (during); one
// between sessions belongs to the next upcoming session (before); one past
// the final session belongs to the most recent one (after). Sessions must
// be sorted by start date.
func attribute(date time.Time, sessions []model.Session) (int64, model.Period, bool) {
	for i := range sessions {
		if sessions[i].Contains(date) {
			return sessions[i].ID, model.PeriodDuring, true
		}
	}
	for i := range sessions {
		if date.Before(*sessions[i].StartDate) {
			return sessions[i].ID, model.PeriodBefore, true
		}
	}
	for i := len(sessions) - 1; i >= 0; i-- {
		if date.After(*sessions[i].EndDate) {
			return sessions[i].ID, model.PeriodAfter, true
		}
	}
	return 0, "", false
}

// fetchActions fans out per-session vote and sponsorship fetches, using all
// of the person's role identifiers simultaneously. Querying a single role
// ID would silently drop the history of a legislator who switched chambers.
func (a *Aggregator) fetchActions(ctx context.Context, roleIDs []int64, sessions []model.Session) (votes, sponsorships []model.LegislativeAction) {
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sessionFetchConcurrency)

	for _, session := range sessions {
		session := session
		g.Go(func() error {
			v, err := a.fetchActionRows(gctx, procGetVotes, roleIDs, session.ID, model.ActionVote)
			if err != nil {
				common.LogError(err, "Vote fetch failed, treating session as empty",
					common.Fields{"session_id": session.ID})
				v = nil
			}

			s, err := a.fetchActionRows(gctx, procGetSponsorships, roleIDs, session.ID, model.ActionSponsorship)
			if err != nil {
				common.LogError(err, "Sponsorship fetch failed, treating session as empty",
					common.Fields{"session_id": session.ID})
				s = nil
			}

			mu.Lock()
			votes = append(votes, v...)
			sponsorships = append(sponsorships, s...)
			mu.Unlock()
			return nil
		})
	}

	// Per-session failures are absorbed above; the group never errors.
	_ = g.Wait()

	sortActions(votes)
	sortActions(sponsorships)
	return votes, sponsorships
}

func (a *Aggregator) fetchActionRows(ctx context.Context, proc string, roleIDs []int64, sessionID int64, typ model.ActionType) ([]model.LegislativeAction, error) {
	var rows []actionRow
	err := a.gateway.Call(ctx, proc, service.Params{
		"role_ids":   roleIDs,
		"session_id": sessionID,
	}, &rows)
	if err != nil {
		return nil, err
	}

	actions := make([]model.LegislativeAction, 0, len(rows))
	for _, row := range rows {
		action := model.LegislativeAction{
			Type:        typ,
			BillID:      row.BillID,
			BillNumber:  row.BillNumber,
			BillTitle:   row.BillTitle,
			SessionID:   sessionID,
			RoleID:      row.RoleID,
			Date:        row.Date,
			Position:    row.Position,
			PartyYes:    row.PartyYes,
			PartyNo:     row.PartyNo,
			OppositeYes: row.OppositeYes,
			OppositeNo:  row.OppositeNo,
		}
		if typ == model.ActionVote {
			action.PartyOutlier = isPartyOutlier(row)
		}
		actions = append(actions, action)
	}
	return actions, nil
}

// isPartyOutlier reports whether the position deviated from the party's
// majority on that vote.
func isPartyOutlier(row actionRow) bool {
	partyMajorityYes := row.PartyYes > row.PartyNo
	votedYes := isAffirmative(row.Position)
	return votedYes != partyMajorityYes
}

func isAffirmative(position string) bool {
	switch position {
	case "Y", "y", "Yes", "yes", "AYE", "Aye", "aye":
		return true
	default:
		return false
	}
}

func sortActions(actions []model.LegislativeAction) {
	sort.Slice(actions, func(i, j int) bool {
		if !actions[i].Date.Equal(actions[j].Date) {
			return actions[i].Date.Before(actions[j].Date)
		}
		return actions[i].BillID < actions[j].BillID
	})
}
