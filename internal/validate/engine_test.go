package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordanharb/moneytrail/internal/common"
	"github.com/jordanharb/moneytrail/internal/config"
	"github.com/jordanharb/moneytrail/internal/model"
	"github.com/jordanharb/moneytrail/internal/service"
)

type mockGateway struct {
	textCalls atomic.Int64
	texts     map[int64]string
	err       error
}

func (m *mockGateway) Call(_ context.Context, proc string, params service.Params, dest any) error {
	if proc != procGetBillText {
		return fmt.Errorf("unexpected proc %s", proc)
	}
	if m.err != nil {
		return m.err
	}
	m.textCalls.Add(1)

	billID := params["p_bill_id"].(int64)
	rows := []billTextRow{{BillID: billID, BillText: m.texts[billID]}}
	raw, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockGateway) CallPaged(context.Context, string, service.Params, service.Page) ([]json.RawMessage, error) {
	return nil, fmt.Errorf("not implemented")
}

// mockReasoner answers verdict prompts from a script keyed by bill number
// and synthesis prompts with a fixed summary.
type mockReasoner struct {
	verdicts  map[string]string
	synthesis string
	calls     int
}

func (m *mockReasoner) Complete(_ context.Context, system, prompt string, _ []service.Tool) (string, error) {
	m.calls++
	if strings.Contains(system, "closing summary") {
		return m.synthesis, nil
	}
	for bill, response := range m.verdicts {
		if strings.Contains(prompt, bill) {
			return response, nil
		}
	}
	return "", fmt.Errorf("no scripted verdict for prompt")
}

func testSession() *model.Session {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2021, 6, 30, 0, 0, 0, 0, time.UTC)
	return &model.Session{ID: 50, Name: "Regular Session 2021", StartDate: &start, EndDate: &end}
}

func pairFor(billID int64, billNumber string, score float64) model.CandidatePair {
	return model.CandidatePair{
		Action: model.LegislativeAction{
			Type: model.ActionVote, BillID: billID, BillNumber: billNumber,
			BillTitle: "Residential development standards", SessionID: 50,
			Date: time.Date(2021, 4, 1, 0, 0, 0, 0, time.UTC), Position: "Yes",
		},
		ConnectionReason: "1 donor(s) in real estate & development",
		Donations: []model.Donation{
			{ID: 1, DonorName: "Desert Realty PAC", DonorType: "PAC", Amount: 2500,
				Date: time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), Period: model.PeriodDuring, Relevant: true},
		},
		ConfidenceScore: score,
		TotalAmount:     2500,
		DonorCount:      1,
	}
}

const defaultSynthesis = `{"session_summary": "One confirmed connection.", "key_findings": ["HB100 zoning vote"]}`

func TestValidateConfirmAndReject(t *testing.T) {
	gw := &mockGateway{texts: map[int64]string{
		100: "Section 1. Residential zoning variances shall be expedited.",
		200: "Section 1. State parks funding.",
	}}
	reasoner := &mockReasoner{
		verdicts: map[string]string{
			"HB100": `{"confirmed": true, "explanation": "Bill directly loosens zoning review for developers.", "severity": "high", "key_provisions": ["Section 1 expedited variances"], "confidence": 0.9}`,
			"HB200": `{"confirmed": false, "reason_rejected": "Bill concerns parks, no donor benefit."}`,
		},
		synthesis: defaultSynthesis,
	}

	engine := NewEngine(gw, reasoner, config.DefaultPairing())
	report, err := engine.Validate(context.Background(), testSession(), []model.CandidatePair{
		pairFor(100, "HB100", 0.8),
		pairFor(200, "HB200", 0.6),
	})
	require.NoError(t, err)

	require.Len(t, report.Confirmed, 1)
	assert.Equal(t, "HB100", report.Confirmed[0].Pair.Action.BillNumber)
	assert.Equal(t, model.SeverityHigh, report.Confirmed[0].Severity)
	assert.Equal(t, []string{"Section 1 expedited variances"}, report.Confirmed[0].KeyProvisions)
	assert.InDelta(t, 0.9, report.Confirmed[0].Confidence, 0.001)

	require.Len(t, report.Rejected, 1)
	assert.Equal(t, "HB200", report.Rejected[0].BillNumber)
	assert.Equal(t, int64(200), report.Rejected[0].BillID)
	assert.NotEmpty(t, report.Rejected[0].ReasonRejected)

	assert.Equal(t, "One confirmed connection.", report.SessionSummary)
	assert.Equal(t, []string{"HB100 zoning vote"}, report.KeyFindings)
}

func TestValidateMemoizesBillText(t *testing.T) {
	gw := &mockGateway{texts: map[int64]string{100: "Section 1."}}
	reasoner := &mockReasoner{
		verdicts: map[string]string{
			"HB100": `{"confirmed": false, "reason_rejected": "no benefit"}`,
		},
		synthesis: defaultSynthesis,
	}

	engine := NewEngine(gw, reasoner, config.DefaultPairing())

	// Two pairings against the same bill: one vote-derived, one
	// sponsorship-derived.
	second := pairFor(100, "HB100", 0.7)
	second.Action.Type = model.ActionSponsorship

	_, err := engine.Validate(context.Background(), testSession(), []model.CandidatePair{
		pairFor(100, "HB100", 0.8),
		second,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), gw.textCalls.Load())
}

func TestValidateAppliesFloorAndCap(t *testing.T) {
	cfg := config.DefaultPairing()
	cfg.TopN = 2

	gw := &mockGateway{texts: map[int64]string{}}
	reasoner := &mockReasoner{verdicts: map[string]string{}, synthesis: defaultSynthesis}
	for i := int64(1); i <= 5; i++ {
		gw.texts[i] = "Section 1."
		reasoner.verdicts[fmt.Sprintf("HB%d", i)] = `{"confirmed": false, "reason_rejected": "none"}`
	}

	pairs := []model.CandidatePair{
		pairFor(1, "HB1", 0.9),
		pairFor(2, "HB2", 0.8),
		pairFor(3, "HB3", 0.7),  // above floor but beyond the cap
		pairFor(4, "HB4", 0.4),  // below the 0.5 floor
		pairFor(5, "HB5", 0.15), // below the 0.5 floor
	}

	engine := NewEngine(gw, reasoner, cfg)
	report, err := engine.Validate(context.Background(), testSession(), pairs)
	require.NoError(t, err)

	require.Len(t, report.Rejected, 2)
	assert.Equal(t, "HB1", report.Rejected[0].BillNumber)
	assert.Equal(t, "HB2", report.Rejected[1].BillNumber)
}

func TestValidateNothingEligible(t *testing.T) {
	gw := &mockGateway{}
	reasoner := &mockReasoner{}

	engine := NewEngine(gw, reasoner, config.DefaultPairing())
	report, err := engine.Validate(context.Background(), testSession(), []model.CandidatePair{
		pairFor(1, "HB1", 0.3),
	})
	require.NoError(t, err)

	assert.Empty(t, report.Confirmed)
	assert.Empty(t, report.Rejected)
	assert.NotEmpty(t, report.SessionSummary)
	assert.Zero(t, reasoner.calls)
}

func TestValidateMalformedVerdictFailsStage(t *testing.T) {
	gw := &mockGateway{texts: map[int64]string{100: "Section 1."}}
	reasoner := &mockReasoner{
		verdicts: map[string]string{
			"HB100": `I believe this connection is probably real.`,
		},
	}

	engine := NewEngine(gw, reasoner, config.DefaultPairing())
	_, err := engine.Validate(context.Background(), testSession(), []model.CandidatePair{
		pairFor(100, "HB100", 0.8),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrReasoningMalformed)

	var stageErr *common.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "validate", stageErr.Stage)
}

func TestValidateFencedVerdictParses(t *testing.T) {
	gw := &mockGateway{texts: map[int64]string{100: "Section 1."}}
	reasoner := &mockReasoner{
		verdicts: map[string]string{
			"HB100": "```json\n{\"confirmed\": true, \"explanation\": \"ok\", \"severity\": \"medium\", \"confidence\": 0.6}\n```",
		},
		synthesis: defaultSynthesis,
	}

	engine := NewEngine(gw, reasoner, config.DefaultPairing())
	report, err := engine.Validate(context.Background(), testSession(), []model.CandidatePair{
		pairFor(100, "HB100", 0.8),
	})
	require.NoError(t, err)
	require.Len(t, report.Confirmed, 1)
	assert.Equal(t, model.SeverityMedium, report.Confirmed[0].Severity)
}

func TestValidateGatewayFailureFailsStage(t *testing.T) {
	gw := &mockGateway{err: fmt.Errorf("%w: connection refused", common.ErrDataFetch)}
	reasoner := &mockReasoner{}

	engine := NewEngine(gw, reasoner, config.DefaultPairing())
	_, err := engine.Validate(context.Background(), testSession(), []model.CandidatePair{
		pairFor(100, "HB100", 0.8),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDataFetch)
}

func TestValidateReportsProgress(t *testing.T) {
	gw := &mockGateway{texts: map[int64]string{100: "Section 1.", 200: "Section 1."}}
	reasoner := &mockReasoner{
		verdicts: map[string]string{
			"HB100": `{"confirmed": false, "reason_rejected": "none"}`,
			"HB200": `{"confirmed": false, "reason_rejected": "none"}`,
		},
		synthesis: defaultSynthesis,
	}

	engine := NewEngine(gw, reasoner, config.DefaultPairing())

	var seen []int
	engine.OnProgress(func(completed, total int) {
		assert.Equal(t, 2, total)
		seen = append(seen, completed)
	})

	_, err := engine.Validate(context.Background(), testSession(), []model.CandidatePair{
		pairFor(100, "HB100", 0.8),
		pairFor(200, "HB200", 0.7),
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)
}
