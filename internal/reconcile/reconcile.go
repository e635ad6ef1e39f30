// Package reconcile applies insert/update/skip merge policy against the
// company dataset. All dataset mutation from acquisition jobs and bulk
// imports flows through here.
package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Clerks303/Scraping/internal/model"
	"github.com/Clerks303/Scraping/internal/scorer"
	"github.com/Clerks303/Scraping/internal/store"
)

// Mode controls whether existing records may be overwritten.
type Mode int

const (
	// InsertOnly skips records whose SIREN already exists.
	InsertOnly Mode = iota
	// InsertOrUpdate merges incoming fields into existing records.
	InsertOrUpdate
)

// Outcome is the per-record reconciliation decision.
type Outcome int

const (
	Inserted Outcome = iota
	Updated
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// BatchResult aggregates a ReconcileBatch pass.
type BatchResult struct {
	NewCount     int
	UpdatedCount int
	SkippedCount int
	Errors       []model.RowError
}

// Reconciler is the sole writer to the company dataset. Writes to the same
// SIREN are serialized through a per-key lock so concurrent jobs and imports
// cannot lose updates.
type Reconciler struct {
	store  store.Store
	scorer scorer.Scorer
	keys   *keyMutex
}

// New creates a Reconciler.
func New(st store.Store, sc scorer.Scorer) *Reconciler {
	return &Reconciler{
		store:  st,
		scorer: sc,
		keys:   newKeyMutex(),
	}
}

// Reconcile merges one incoming record against the dataset.
// The record must pass validation; the lock on its SIREN is held for the
// whole read-merge-write cycle.
func (r *Reconciler) Reconcile(ctx context.Context, incoming *model.CompanyRecord, mode Mode, source string) (Outcome, error) {
	if err := incoming.Validate(); err != nil {
		return Skipped, err
	}

	unlock := r.keys.lock(incoming.Siren)
	defer unlock()

	existing, err := r.store.Get(ctx, incoming.Siren)
	if err != nil && !eris.Is(err, store.ErrNotFound) {
		return Skipped, eris.Wrapf(err, "reconcile: load %s", incoming.Siren)
	}

	if existing == nil {
		return r.insert(ctx, incoming, source)
	}
	if mode == InsertOnly {
		return Skipped, nil
	}
	return r.update(ctx, incoming, existing, source)
}

func (r *Reconciler) insert(ctx context.Context, incoming *model.CompanyRecord, source string) (Outcome, error) {
	if incoming.Status == "" {
		incoming.Status = model.StatusToContact
	}
	if incoming.ProspectionScore == nil {
		details, err := r.scorer.Score(ctx, incoming)
		if err != nil {
			// Scoring is advisory; an unscored record is still stored.
			zap.L().Warn("reconcile: scoring failed",
				zap.String("siren", incoming.Siren),
				zap.Error(err),
			)
		} else {
			incoming.ProspectionScore = &details.GlobalScore
			incoming.ScoreDetails = details
		}
	}
	incoming.ActivityLog = append(incoming.ActivityLog, model.ActivityEntry{
		ID:     uuid.New().String(),
		Action: "created",
		Source: source,
		At:     time.Now().UTC(),
	})

	if err := r.store.Upsert(ctx, incoming); err != nil {
		return Skipped, eris.Wrapf(err, "reconcile: insert %s", incoming.Siren)
	}
	return Inserted, nil
}

func (r *Reconciler) update(ctx context.Context, incoming, existing *model.CompanyRecord, source string) (Outcome, error) {
	merged := merge(existing, incoming)
	if incoming.ProspectionScore == nil && financialsChanged(existing, merged) {
		details, err := r.scorer.Score(ctx, merged)
		if err != nil {
			// Scoring is advisory; the record keeps its previous score.
			zap.L().Warn("reconcile: rescoring failed",
				zap.String("siren", merged.Siren),
				zap.Error(err),
			)
		} else {
			merged.ProspectionScore = &details.GlobalScore
			merged.ScoreDetails = details
		}
	}
	merged.ActivityLog = append(merged.ActivityLog, model.ActivityEntry{
		ID:     uuid.New().String(),
		Action: "merged",
		Source: source,
		At:     time.Now().UTC(),
	})

	if err := r.store.Upsert(ctx, merged); err != nil {
		return Skipped, eris.Wrapf(err, "reconcile: update %s", incoming.Siren)
	}
	return Updated, nil
}

// ReconcileBatch applies Reconcile per record, continuing past individual
// failures. Row indexes in the result are 1-based over the input slice.
func (r *Reconciler) ReconcileBatch(ctx context.Context, records []model.CompanyRecord, mode Mode, source string) (*BatchResult, error) {
	result := &BatchResult{}
	for i := range records {
		if err := ctx.Err(); err != nil {
			return result, eris.Wrap(err, "reconcile: batch cancelled")
		}

		outcome, err := r.Reconcile(ctx, &records[i], mode, source)
		if err != nil {
			result.Errors = append(result.Errors, model.RowError{
				Row:    i + 1,
				Reason: eris.Cause(err).Error(),
			})
			continue
		}
		switch outcome {
		case Inserted:
			result.NewCount++
		case Updated:
			result.UpdatedCount++
		case Skipped:
			result.SkippedCount++
		}
	}
	return result, nil
}
