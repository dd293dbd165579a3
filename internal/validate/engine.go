// Package validate implements Phase 2 of the correlation analysis: deep
// validation of the strongest candidate pairings against the full bill
// text, using the reasoning service for judgment calls the keyword pass
// cannot make.
package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jordanharb/moneytrail/internal/common"
	"github.com/jordanharb/moneytrail/internal/config"
	"github.com/jordanharb/moneytrail/internal/llm"
	"github.com/jordanharb/moneytrail/internal/model"
	"github.com/jordanharb/moneytrail/internal/service"
)

const (
	procGetBillText = "get_bill_text"

	// maxBillTextChars caps how much bill text goes into one prompt.
	// Omnibus bills run to hundreds of pages; the operative provisions are
	// overwhelmingly in the front matter.
	maxBillTextChars = 20000
)

// ProgressFunc reports validation progress as pairs complete.
type ProgressFunc func(completed, total int)

// Engine runs the deep validation pass over Phase 1 candidate pairings.
type Engine struct {
	gateway  service.Gateway
	reasoner service.Reasoner
	pairing  config.Pairing
	progress ProgressFunc
	logger   *slog.Logger
}

// NewEngine creates a validation engine.
func NewEngine(gateway service.Gateway, reasoner service.Reasoner, pairing config.Pairing) *Engine {
	return &Engine{
		gateway:  gateway,
		reasoner: reasoner,
		pairing:  pairing,
		logger:   slog.Default().With("component", "validate"),
	}
}

// OnProgress registers a callback invoked after each pairing is judged.
func (e *Engine) OnProgress(fn ProgressFunc) {
	e.progress = fn
}

// verdict is the reasoning service's judgment for one pairing.
type verdict struct {
	Explanation    string   `json:"explanation"`
	Severity       string   `json:"severity"`
	ReasonRejected string   `json:"reason_rejected"`
	KeyProvisions  []string `json:"key_provisions"`
	Confidence     float64  `json:"confidence"`
	Confirmed      bool     `json:"confirmed"`
}

// synthesis is the reasoning service's closing summary over all verdicts.
type synthesis struct {
	SessionSummary string   `json:"session_summary"`
	KeyFindings    []string `json:"key_findings"`
}

// Validate judges the strongest candidate pairings against the full bill
// text and returns the session's validation report. Only pairings at or
// above the configured confidence floor are considered, and at most TopN of
// those are sent for deep review. Bill text is fetched once per unique bill
// for the whole run.
func (e *Engine) Validate(ctx context.Context, session *model.Session, pairs []model.CandidatePair) (*model.ValidationReport, error) {
	selected := e.selectPairs(pairs)
	if len(selected) == 0 {
		return &model.ValidationReport{
			SessionSummary: "No candidate pairings met the confidence floor for deep validation.",
		}, nil
	}

	e.logger.Info("starting deep validation",
		"session_id", session.ID,
		"candidates", len(pairs),
		"selected", len(selected))

	// Run-scoped memo: one text lookup per unique bill no matter how many
	// pairings reference it.
	texts := make(map[int64]string)

	report := &model.ValidationReport{}
	for i := range selected {
		pair := &selected[i]

		text, err := e.billText(ctx, texts, pair.Action.BillID)
		if err != nil {
			return nil, common.NewStageError("validate", err)
		}

		v, err := e.judge(ctx, session, pair, text)
		if err != nil {
			return nil, common.NewStageError("validate", err)
		}

		if v.Confirmed {
			report.Confirmed = append(report.Confirmed, model.ValidatedConnection{
				Pair:          *pair,
				Explanation:   v.Explanation,
				Severity:      normalizeSeverity(v.Severity),
				KeyProvisions: v.KeyProvisions,
				Confidence:    v.Confidence,
			})
		} else {
			report.Rejected = append(report.Rejected, model.RejectedConnection{
				BillID:         pair.Action.BillID,
				BillNumber:     pair.Action.BillNumber,
				ReasonRejected: v.ReasonRejected,
			})
		}

		if e.progress != nil {
			e.progress(i+1, len(selected))
		}
	}

	if err := e.synthesize(ctx, session, report); err != nil {
		return nil, common.NewStageError("validate", err)
	}

	e.logger.Info("deep validation complete",
		"confirmed", len(report.Confirmed),
		"rejected", len(report.Rejected))

	return report, nil
}

// selectPairs applies the confidence floor and top-N cap. Input order is
// not trusted; ties break on bill ID so reruns select the same set.
func (e *Engine) selectPairs(pairs []model.CandidatePair) []model.CandidatePair {
	var eligible []model.CandidatePair
	for _, p := range pairs {
		if p.ConfidenceScore >= e.pairing.ConfidenceFloor {
			eligible = append(eligible, p)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].ConfidenceScore != eligible[j].ConfidenceScore {
			return eligible[i].ConfidenceScore > eligible[j].ConfidenceScore
		}
		return eligible[i].Action.BillID < eligible[j].Action.BillID
	})

	if len(eligible) > e.pairing.TopN {
		eligible = eligible[:e.pairing.TopN]
	}
	return eligible
}

// billTextRow is the wire shape of a get_bill_text result row.
type billTextRow struct {
	BillText string `json:"bill_text"`
	Summary  string `json:"summary"`
	BillID   int64  `json:"bill_id"`
}

// billText returns the full text for billID, fetching it at most once per
// run.
func (e *Engine) billText(ctx context.Context, memo map[int64]string, billID int64) (string, error) {
	if text, ok := memo[billID]; ok {
		return text, nil
	}

	var rows []billTextRow
	err := e.gateway.Call(ctx, procGetBillText, service.Params{"p_bill_id": billID}, &rows)
	if err != nil {
		return "", fmt.Errorf("fetching text for bill %d: %w", billID, err)
	}

	text := ""
	if len(rows) > 0 {
		text = rows[0].BillText
		if text == "" {
			text = rows[0].Summary
		}
	}
	if len(text) > maxBillTextChars {
		text = text[:maxBillTextChars]
	}

	memo[billID] = text
	return text, nil
}

const judgeSystem = `You are a campaign finance analyst reviewing whether a
lawmaker's legislative action plausibly benefited specific donors. You are
given the full bill text, the action taken, and the donations flagged by a
keyword screen. Judge on the bill's actual provisions, not its title.
Respond with JSON only:
{"confirmed": bool, "explanation": string, "severity": "high"|"medium"|"low",
 "key_provisions": [string], "confidence": number, "reason_rejected": string}
Set reason_rejected only when confirmed is false.`

// judge asks the reasoning service for a verdict on one pairing. A response
// that cannot be parsed fails the whole stage; a partial report would
// silently understate findings.
func (e *Engine) judge(ctx context.Context, session *model.Session, pair *model.CandidatePair, billText string) (*verdict, error) {
	prompt, err := e.judgePrompt(session, pair, billText)
	if err != nil {
		return nil, err
	}

	content, err := e.complete(ctx, judgeSystem, prompt)
	if err != nil {
		return nil, fmt.Errorf("judging %s: %w", pair.Action.BillNumber, err)
	}

	var v verdict
	if err := llm.ParseJSONInto(content, &v); err != nil {
		return nil, fmt.Errorf("verdict for %s: %w", pair.Action.BillNumber, err)
	}
	return &v, nil
}

// donorSummary is the donation detail included in prompts.
type donorSummary struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Occupation string  `json:"occupation,omitempty"`
	Employer   string  `json:"employer,omitempty"`
	Date       string  `json:"date"`
	Period     string  `json:"period"`
	Amount     float64 `json:"amount"`
}

func (e *Engine) judgePrompt(session *model.Session, pair *model.CandidatePair, billText string) (string, error) {
	donors := make([]donorSummary, 0, len(pair.Donations))
	for _, d := range pair.Donations {
		donors = append(donors, donorSummary{
			Name:       d.DisplayName(),
			Type:       d.DonorType,
			Occupation: d.Occupation,
			Employer:   d.Employer,
			Date:       d.Date.Format("2006-01-02"),
			Period:     string(d.Period),
			Amount:     d.Amount,
		})
	}

	donorJSON, err := json.MarshalIndent(donors, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding donors: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", session.Name)
	fmt.Fprintf(&b, "Action: %s %s (%s) on %s",
		actionVerb(pair.Action.Type), pair.Action.BillNumber,
		pair.Action.BillTitle, pair.Action.Date.Format("2006-01-02"))
	if pair.Action.Type == model.ActionVote {
		fmt.Fprintf(&b, ", voted %s", pair.Action.Position)
		if pair.Action.PartyOutlier {
			b.WriteString(" (against own party majority)")
		}
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Screening reason: %s\n", pair.ConnectionReason)
	fmt.Fprintf(&b, "Donations under review:\n%s\n\n", donorJSON)
	fmt.Fprintf(&b, "Bill text:\n%s\n", billText)

	return b.String(), nil
}

const synthesizeSystem = `You are a campaign finance analyst writing the
closing summary of a donor-influence review. Given the confirmed and
rejected connections, respond with JSON only:
{"session_summary": string, "key_findings": [string]}
key_findings should name the most significant confirmed connections; an
empty array is correct when nothing was confirmed.`

// synthesize fills in the report's narrative fields from the individual
// verdicts.
func (e *Engine) synthesize(ctx context.Context, session *model.Session, report *model.ValidationReport) error {
	type confirmedLine struct {
		Bill        string  `json:"bill"`
		Severity    string  `json:"severity"`
		Explanation string  `json:"explanation"`
		Amount      float64 `json:"total_amount"`
	}
	type rejectedLine struct {
		Bill   string `json:"bill"`
		Reason string `json:"reason"`
	}

	payload := struct {
		Session   string          `json:"session"`
		Confirmed []confirmedLine `json:"confirmed"`
		Rejected  []rejectedLine  `json:"rejected"`
	}{Session: session.Name}

	for _, c := range report.Confirmed {
		payload.Confirmed = append(payload.Confirmed, confirmedLine{
			Bill:        c.Pair.Action.BillNumber,
			Severity:    string(c.Severity),
			Explanation: c.Explanation,
			Amount:      c.Pair.TotalAmount,
		})
	}
	for _, r := range report.Rejected {
		payload.Rejected = append(payload.Rejected, rejectedLine{
			Bill:   r.BillNumber,
			Reason: r.ReasonRejected,
		})
	}

	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding synthesis payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	content, err := e.complete(ctx, synthesizeSystem, string(encoded))
	if err != nil {
		return fmt.Errorf("synthesizing report: %w", err)
	}

	var s synthesis
	if err := llm.ParseJSONInto(content, &s); err != nil {
		return fmt.Errorf("synthesis response: %w", err)
	}

	report.SessionSummary = s.SessionSummary
	report.KeyFindings = s.KeyFindings
	return nil
}

// complete calls the reasoning service, retrying transient failures. Rate
// limiting backs off to the maximum delay before the next attempt.
func (e *Engine) complete(ctx context.Context, system, prompt string) (string, error) {
	var content string
	err := common.WithRetry(ctx, func() error {
		var cerr error
		content, cerr = e.reasoner.Complete(ctx, system, prompt, nil)
		return cerr
	}, service.RetryOptions{MaxAttempts: 3, InitialDelay: time.Second})
	return content, err
}

func normalizeSeverity(s string) model.Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return model.SeverityHigh
	case "low":
		return model.SeverityLow
	default:
		return model.SeverityMedium
	}
}

func actionVerb(t model.ActionType) string {
	if t == model.ActionSponsorship {
		return "sponsored"
	}
	return "vote on"
}
