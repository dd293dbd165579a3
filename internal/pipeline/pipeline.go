// Package pipeline orchestrates the full correlation analysis: identity
// resolution, temporal aggregation, candidate generation, and deep
// validation, with incremental tracking so reruns only pay for new
// activity.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jordanharb/moneytrail/internal/aggregate"
	"github.com/jordanharb/moneytrail/internal/common"
	"github.com/jordanharb/moneytrail/internal/model"
	"github.com/jordanharb/moneytrail/internal/pairing"
	"github.com/jordanharb/moneytrail/internal/resolve"
	"github.com/jordanharb/moneytrail/internal/tracker"
	"github.com/jordanharb/moneytrail/internal/validate"
)

// RunResult carries the output of one pipeline run. Report is nil for
// generation-only runs.
type RunResult struct {
	RunID      string
	Resolution *resolve.Result
	Dataset    *aggregate.Dataset
	Pairing    *pairing.Result
	Report     *model.ValidationReport
	Stats      *model.TrackerStats
}

// Pipeline wires the analysis stages together.
type Pipeline struct {
	resolver   *resolve.Resolver
	aggregator *aggregate.Aggregator
	generator  *pairing.Generator
	engine     *validate.Engine
	tracker    *tracker.Tracker
	logger     *slog.Logger
}

// New creates a pipeline from its stages.
func New(resolver *resolve.Resolver, aggregator *aggregate.Aggregator, generator *pairing.Generator, engine *validate.Engine, tr *tracker.Tracker) *Pipeline {
	return &Pipeline{
		resolver:   resolver,
		aggregator: aggregator,
		generator:  generator,
		engine:     engine,
		tracker:    tr,
		logger:     slog.Default().With("component", "pipeline"),
	}
}

// runState is the intermediate output shared by Analyze and Validate.
type runState struct {
	result     *RunResult
	freshBills map[int64]bool
	priorState model.PhaseState
}

// Analyze runs resolution, aggregation, and candidate generation for one
// lawmaker and session, then records the covered bills and donations.
func (p *Pipeline) Analyze(ctx context.Context, name string, sessionID int64) (*RunResult, error) {
	state, err := p.run(ctx, name, sessionID)
	if err != nil {
		return nil, err
	}
	if err := p.markGenerated(ctx, state); err != nil {
		return nil, err
	}
	return state.result, nil
}

// Validate runs the full pipeline including deep validation. Bills a prior
// run already validated are skipped; only pairings against new bills go to
// the reasoning service.
func (p *Pipeline) Validate(ctx context.Context, name string, sessionID int64) (*RunResult, error) {
	state, err := p.run(ctx, name, sessionID)
	if err != nil {
		return nil, err
	}
	if err := p.markGenerated(ctx, state); err != nil {
		return nil, err
	}

	result := state.result
	pairs := result.Pairing.Pairs
	if state.priorState == model.StateValidated {
		pairs = filterFresh(pairs, state.freshBills)
		p.logger.Info("skipping previously validated bills",
			"run_id", result.RunID,
			"eligible", len(pairs),
			"total", len(result.Pairing.Pairs))
	}

	session := result.Dataset.Sessions[0]
	report, err := p.engine.Validate(ctx, &session, pairs)
	if err != nil {
		return nil, err
	}
	result.Report = report

	person := result.Resolution.Person
	if err := p.tracker.MarkValidated(ctx, person.ID, session.ID); err != nil {
		return nil, fmt.Errorf("recording validation: %w", err)
	}

	return result, nil
}

// Resolve runs identity resolution only, without touching the tracker or
// fetching the temporal dataset.
func (p *Pipeline) Resolve(ctx context.Context, name string) (*resolve.Result, error) {
	return p.resolver.Resolve(ctx, name)
}

// Aggregate resolves the lawmaker and builds the temporal dataset without
// generating pairings. Pass aggregate.AllSessions to span every session.
func (p *Pipeline) Aggregate(ctx context.Context, name string, sessionID int64) (*resolve.Result, *aggregate.Dataset, error) {
	resolution, err := p.resolver.Resolve(ctx, name)
	if err != nil {
		return nil, nil, common.NewStageError("resolve", err)
	}

	dataset, err := p.aggregator.Aggregate(ctx, resolution.Person, resolution.EntityIDs(), sessionID)
	if err != nil {
		return nil, nil, common.NewStageError("aggregate", err)
	}
	return resolution, dataset, nil
}

// Status resolves the lawmaker and reports tracker state for the session.
func (p *Pipeline) Status(ctx context.Context, name string, sessionID int64) (*resolve.Result, *model.TrackerStats, model.PhaseState, error) {
	resolution, err := p.resolver.Resolve(ctx, name)
	if err != nil {
		return nil, nil, "", err
	}

	stats, phase, err := p.tracker.Stats(ctx, resolution.Person.ID, sessionID)
	if err != nil {
		return nil, nil, "", err
	}
	return resolution, stats, phase, nil
}

func (p *Pipeline) run(ctx context.Context, name string, sessionID int64) (*runState, error) {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)
	logger.Info("starting analysis run", "name", name, "session_id", sessionID)

	resolution, err := p.resolver.Resolve(ctx, name)
	if err != nil {
		return nil, common.NewStageError("resolve", err)
	}
	logger.Info("resolved lawmaker",
		"person_id", resolution.Person.ID,
		"entities", len(resolution.Entities))

	dataset, err := p.aggregator.Aggregate(ctx, resolution.Person, resolution.EntityIDs(), sessionID)
	if err != nil {
		return nil, common.NewStageError("aggregate", err)
	}

	if len(dataset.Sessions) != 1 {
		return nil, common.NewStageError("aggregate",
			fmt.Errorf("analysis requires a single session, got %d", len(dataset.Sessions)))
	}
	session := dataset.Sessions[0]

	bills := billIDs(dataset)
	stats, fresh, err := p.tracker.Remaining(ctx, resolution.Person.ID, session.ID, bills)
	if err != nil {
		return nil, fmt.Errorf("consulting tracker: %w", err)
	}
	_, priorState, err := p.tracker.Stats(ctx, resolution.Person.ID, session.ID)
	if err != nil {
		return nil, fmt.Errorf("consulting tracker: %w", err)
	}
	logger.Info("incremental status",
		"bills_total", stats.Total,
		"bills_new", stats.Remaining,
		"prior_runs", stats.RunCount)

	pairResult, err := p.generator.Generate(dataset)
	if err != nil {
		return nil, err
	}
	logger.Info("candidate generation complete",
		"pairs", len(pairResult.Pairs),
		"high", pairResult.Summary.HighConfidence,
		"medium", pairResult.Summary.MediumConfidence,
		"low", pairResult.Summary.LowConfidence)

	freshSet := make(map[int64]bool, len(fresh))
	for _, id := range fresh {
		freshSet[id] = true
	}

	return &runState{
		result: &RunResult{
			RunID:      runID,
			Resolution: resolution,
			Dataset:    dataset,
			Pairing:    pairResult,
			Stats:      stats,
		},
		freshBills: freshSet,
		priorState: priorState,
	}, nil
}

func (p *Pipeline) markGenerated(ctx context.Context, state *runState) error {
	person := state.result.Resolution.Person
	session := state.result.Dataset.Sessions[0]

	donations := make([]int64, 0, len(state.result.Dataset.Donations))
	for _, d := range state.result.Dataset.Donations {
		donations = append(donations, d.ID)
	}

	err := p.tracker.MarkGenerated(ctx, person.ID, session.ID, billIDs(state.result.Dataset), donations)
	if err != nil {
		return fmt.Errorf("recording generation: %w", err)
	}
	return nil
}

func billIDs(ds *aggregate.Dataset) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, a := range ds.Actions(ds.Sessions[0].ID) {
		if !seen[a.BillID] {
			seen[a.BillID] = true
			ids = append(ids, a.BillID)
		}
	}
	return ids
}

func filterFresh(pairs []model.CandidatePair, fresh map[int64]bool) []model.CandidatePair {
	var kept []model.CandidatePair
	for _, p := range pairs {
		if fresh[p.Action.BillID] {
			kept = append(kept, p)
		}
	}
	return kept
}
