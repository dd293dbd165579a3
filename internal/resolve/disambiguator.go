package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jordanharb/moneytrail/internal/llm"
	"github.com/jordanharb/moneytrail/internal/model"
	"github.com/jordanharb/moneytrail/internal/service"
)

// Disambiguator selects, from a surname-matched superset of campaign
// entities, the subset actually controlled by the resolved person.
type Disambiguator interface {
	Disambiguate(ctx context.Context, person model.Person, candidates []model.CampaignEntity) ([]int64, error)
}

// RuleBased accepts a candidate when its recorded name contains both the
// first and last name tokens of the resolved person. Deterministic, always
// available, and used as the fallback when the reasoning service cannot be
// consulted.
type RuleBased struct{}

// Disambiguate applies the name-token rule to every candidate.
func (RuleBased) Disambiguate(_ context.Context, person model.Person, candidates []model.CampaignEntity) ([]int64, error) {
	first, last := nameTokens(person.Name)
	if first == "" || last == "" {
		return nil, nil
	}

	var accepted []int64
	for _, c := range candidates {
		name := strings.ToLower(c.CandidateName)
		if strings.Contains(name, first) && strings.Contains(name, last) {
			accepted = append(accepted, c.ID)
		}
	}
	return accepted, nil
}

// Reasoned delegates the judgment to the reasoning service, supplying the
// person's name, party, and chamber plus the candidate list, and requesting
// a minimal JSON array of accepted entity identifiers.
type Reasoned struct {
	reasoner service.Reasoner
	timeout  time.Duration
}

// NewReasoned creates a reasoning-backed disambiguator. The timeout bounds
// each reasoning call so an unresponsive service cannot stall resolution.
func NewReasoned(reasoner service.Reasoner, timeout time.Duration) *Reasoned {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Reasoned{reasoner: reasoner, timeout: timeout}
}

const disambiguationSystem = "You match campaign finance committees to legislators. " +
	"Respond with only a JSON array of the entity IDs belonging to the legislator, nothing else."

// Disambiguate asks the reasoning service which candidates belong to the
// person. Malformed output is recovered by extracting a bracketed integer
// list; anything beyond that is an error the caller handles by falling back
// to the rule-based variant.
func (d *Reasoned) Disambiguate(ctx context.Context, person model.Person, candidates []model.CampaignEntity) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type candidatePayload struct {
		Name      string `json:"candidate_name"`
		Committee string `json:"committee_name"`
		ID        int64  `json:"entity_id"`
	}

	payload := make([]candidatePayload, 0, len(candidates))
	for _, c := range candidates {
		payload = append(payload, candidatePayload{
			ID:        c.ID,
			Name:      c.CandidateName,
			Committee: c.CommitteeName,
		})
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode candidates: %w", err)
	}

	prompt := fmt.Sprintf(
		"Legislator: %s (%s, %s)\n\nCandidate finance entities:\n%s\n\n"+
			"Which entity IDs belong to this legislator? Answer with a JSON array of integers.",
		person.Name, person.Party, person.Body, string(encoded))

	response, err := d.reasoner.Complete(ctx, disambiguationSystem, prompt, nil)
	if err != nil {
		return nil, err
	}

	return llm.ExtractIDList(response)
}

// nameTokens returns the lowercased first and last tokens of a display name.
func nameTokens(name string) (first, last string) {
	tokens := strings.Fields(strings.ToLower(name))
	if len(tokens) == 0 {
		return "", ""
	}
	return tokens[0], tokens[len(tokens)-1]
}
