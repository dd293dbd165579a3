package tracker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jordanharb/moneytrail/internal/common"
	"github.com/jordanharb/moneytrail/internal/model"
	"github.com/jordanharb/moneytrail/internal/service"
)

// Tracker answers "what is left to analyze" for a (person, session) pair
// and records phase completion. State only moves forward within a run:
// a record is created in the generated state by Phase 1 and promoted to
// validated by Phase 2; new bills appearing later demote it back to
// generated so the validation pass runs again.
type Tracker struct {
	store service.TrackerStore
	now   func() time.Time
}

// New creates a tracker over the given store.
func New(store service.TrackerStore) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// Remaining compares the bills currently on record against allBillIDs and
// returns summary stats plus the IDs not yet analyzed. With no prior record
// everything is new.
func (t *Tracker) Remaining(ctx context.Context, personID, sessionID int64, allBillIDs []int64) (*model.TrackerStats, []int64, error) {
	record, err := t.store.GetRecord(ctx, personID, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading analysis record: %w", err)
	}

	analyzed := make(map[int64]bool)
	if record != nil {
		for _, id := range record.BillIDs {
			analyzed[id] = true
		}
	}

	var fresh []int64
	covered := 0
	for _, id := range allBillIDs {
		if analyzed[id] {
			covered++
		} else {
			fresh = append(fresh, id)
		}
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i] < fresh[j] })

	stats := &model.TrackerStats{
		Total:     len(allBillIDs),
		Analyzed:  covered,
		Remaining: len(fresh),
	}
	if record != nil {
		stats.LastRunAt = record.LastRunAt
		stats.RunCount = record.RunCount
	}

	return stats, fresh, nil
}

// MarkGenerated records a completed Phase 1 run, merging the newly covered
// bill and donation IDs into the record. Adding previously unseen bills
// moves the record back to the generated state even if a prior run had
// validated it.
func (t *Tracker) MarkGenerated(ctx context.Context, personID, sessionID int64, billIDs, donationIDs []int64) error {
	record, err := t.store.GetRecord(ctx, personID, sessionID)
	if err != nil {
		return fmt.Errorf("loading analysis record: %w", err)
	}

	now := t.now().UTC()
	if record == nil {
		record = &model.AnalysisRecord{
			PersonID:  personID,
			SessionID: sessionID,
			CreatedAt: now,
		}
	}

	grew := mergeIDs(&record.BillIDs, billIDs)
	mergeIDs(&record.DonationIDs, donationIDs)

	if record.State != model.StateValidated || grew {
		record.State = model.StateGenerated
	}
	record.LastRunAt = now
	record.RunCount++

	return t.store.SaveRecord(ctx, record)
}

// MarkValidated promotes the record to the validated state. It is an error
// to validate a pair that was never generated.
func (t *Tracker) MarkValidated(ctx context.Context, personID, sessionID int64) error {
	record, err := t.store.GetRecord(ctx, personID, sessionID)
	if err != nil {
		return fmt.Errorf("loading analysis record: %w", err)
	}
	if record == nil {
		return fmt.Errorf("%w: no generated analysis to validate for person %d session %d",
			common.ErrNotFound, personID, sessionID)
	}

	record.State = model.StateValidated
	record.LastRunAt = t.now().UTC()

	return t.store.SaveRecord(ctx, record)
}

// Stats returns the record's summary without comparing against a bill list.
func (t *Tracker) Stats(ctx context.Context, personID, sessionID int64) (*model.TrackerStats, model.PhaseState, error) {
	record, err := t.store.GetRecord(ctx, personID, sessionID)
	if err != nil {
		return nil, "", fmt.Errorf("loading analysis record: %w", err)
	}
	if record == nil {
		return &model.TrackerStats{}, "", nil
	}

	stats := &model.TrackerStats{
		Total:     len(record.BillIDs),
		Analyzed:  len(record.BillIDs),
		LastRunAt: record.LastRunAt,
		RunCount:  record.RunCount,
	}
	return stats, record.State, nil
}

// mergeIDs appends the members of add missing from *dst, keeping *dst
// sorted. Reports whether anything was added.
func mergeIDs(dst *[]int64, add []int64) bool {
	seen := make(map[int64]bool, len(*dst))
	for _, id := range *dst {
		seen[id] = true
	}

	grew := false
	for _, id := range add {
		if !seen[id] {
			*dst = append(*dst, id)
			seen[id] = true
			grew = true
		}
	}
	if grew {
		sort.Slice(*dst, func(i, j int) bool { return (*dst)[i] < (*dst)[j] })
	}
	return grew
}
