// Package resolve turns an ambiguous human-entered name into a canonical
// legislator identity and the set of campaign-finance entities that person
// controls.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jordanharb/moneytrail/internal/common"
	"github.com/jordanharb/moneytrail/internal/model"
	"github.com/jordanharb/moneytrail/internal/service"
)

// procResolveLawmaker is the data-service procedure that resolves a
// free-text name. It returns the best-matching person plus a superset of
// same-surname campaign entities.
const procResolveLawmaker = "resolve_lawmaker"

// Result is a successful identity resolution.
type Result struct {
	Person   model.Person
	Entities []model.CampaignEntity
}

// EntityIDs returns the disambiguated entity identifiers.
func (r *Result) EntityIDs() []int64 {
	ids := make([]int64, len(r.Entities))
	for i, e := range r.Entities {
		ids[i] = e.ID
	}
	return ids
}

// Resolver resolves names against the data service and disambiguates the
// entity superset. The primary disambiguator is configurable; the
// rule-based variant is always available as a fallback, so resolution never
// unconditionally depends on an external judgment call.
type Resolver struct {
	gateway  service.Gateway
	primary  Disambiguator
	fallback RuleBased
}

// New creates a resolver. A nil primary uses the rule-based disambiguator
// alone.
func New(gateway service.Gateway, primary Disambiguator) *Resolver {
	return &Resolver{gateway: gateway, primary: primary}
}

// lawmakerRow is the wire shape of one resolve_lawmaker result row.
type lawmakerRow struct {
	DisplayName string      `json:"display_name"`
	Party       string      `json:"party"`
	Body        string      `json:"body"`
	PersonID    int64       `json:"person_id"`
	RoleIDs     []int64     `json:"role_ids"`
	Entities    []entityRow `json:"entities"`
}

type entityRow struct {
	CandidateName string `json:"candidate_name"`
	CommitteeName string `json:"committee_name"`
	EntityID      int64  `json:"entity_id"`
}

// Resolve looks up name and returns the canonical person with their
// disambiguated campaign entities. A missing person or an empty
// disambiguated set is a resolution failure, not a fatal error; callers
// distinguish it via common.ErrNoMatch and common.ErrNoEntities.
func (r *Resolver) Resolve(ctx context.Context, name string) (*Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", common.ErrNoMatch)
	}

	var rows []lawmakerRow
	if err := r.gateway.Call(ctx, procResolveLawmaker, service.Params{"name": name}, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrResolutionFailed, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %q", common.ErrNoMatch, name)
	}

	// The procedure orders matches best-first.
	best := rows[0]
	person := model.Person{
		ID:      best.PersonID,
		Name:    best.DisplayName,
		Party:   best.Party,
		Body:    best.Body,
		RoleIDs: best.RoleIDs,
	}

	candidates := narrowBySurname(person.Name, best.Entities)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no surname matches for %q", common.ErrNoEntities, person.Name)
	}

	accepted := r.disambiguate(ctx, person, candidates)
	if len(accepted) == 0 {
		return nil, fmt.Errorf("%w: %d candidates, none disambiguated for %q",
			common.ErrNoEntities, len(candidates), person.Name)
	}

	return &Result{Person: person, Entities: accepted}, nil
}

// disambiguate runs the primary disambiguator and falls back to the
// deterministic rules when it errors or accepts nothing. Accepted IDs are
// always re-checked against the candidate set so a hallucinated ID can
// never admit an unrelated entity.
func (r *Resolver) disambiguate(ctx context.Context, person model.Person, candidates []model.CampaignEntity) []model.CampaignEntity {
	byID := make(map[int64]model.CampaignEntity, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	if r.primary != nil {
		ids, err := r.primary.Disambiguate(ctx, person, candidates)
		if err != nil {
			slog.Warn("Primary disambiguation failed, falling back to rules",
				"person", person.Name,
				"error", err)
		} else if selected := pick(byID, ids); len(selected) > 0 {
			return selected
		}
	}

	ids, err := r.fallback.Disambiguate(ctx, person, candidates)
	if err != nil {
		return nil
	}
	return pick(byID, ids)
}

// pick maps accepted IDs back to candidate entities, dropping unknowns.
func pick(byID map[int64]model.CampaignEntity, ids []int64) []model.CampaignEntity {
	var selected []model.CampaignEntity
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if e, ok := byID[id]; ok {
			selected = append(selected, e)
		}
	}
	return selected
}

// narrowBySurname keeps candidates whose recorded name contains the
// person's surname. The data service matches by surname already, but the
// superset commonly includes stray rows from fuzzy matching.
func narrowBySurname(personName string, rows []entityRow) []model.CampaignEntity {
	_, last := nameTokens(personName)
	if last == "" {
		return nil
	}

	var out []model.CampaignEntity
	for _, row := range rows {
		if strings.Contains(strings.ToLower(row.CandidateName), last) {
			out = append(out, model.CampaignEntity{
				ID:            row.EntityID,
				CandidateName: row.CandidateName,
				CommitteeName: row.CommitteeName,
			})
		}
	}
	return out
}
