// Package settings orchestrates the settings edit transaction: load the
// document, project it through the schema for display, and on submission
// parse, validate, merge, save, and trigger the apply pipeline.
package settings

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/owl-os/retina-console/pkg/document"
	"github.com/owl-os/retina-console/pkg/forms"
	"github.com/owl-os/retina-console/pkg/logger"
	"github.com/owl-os/retina-console/pkg/pipeline"
	"github.com/owl-os/retina-console/pkg/schema"
)

// ErrApplyInFlight is returned when a second apply is requested while one
// is still running. Applies are serialized, not queued.
var ErrApplyInFlight = errors.New("an apply operation is already in progress")

// Outcome discriminates the result of an apply operation.
type Outcome string

// Apply outcomes.
const (
	// OutcomeApplied: validated, saved, and the apply pipeline succeeded.
	OutcomeApplied Outcome = "applied"
	// OutcomeInvalid: validation failed; storage untouched.
	OutcomeInvalid Outcome = "invalid"
	// OutcomeSaveFailed: could not persist; the on-disk document is left
	// at its last good state.
	OutcomeSaveFailed Outcome = "save_failed"
	// OutcomeApplyFailed: the document was saved but the apply pipeline
	// reported a failure.
	OutcomeApplyFailed Outcome = "apply_failed"
	// OutcomeTimeout: the document was saved but the apply pipeline
	// exceeded its time bound.
	OutcomeTimeout Outcome = "apply_timeout"
)

// Result reports what an apply operation did.
type Result struct {
	Outcome Outcome            `json:"outcome"`
	Errors  []forms.FieldError `json:"errors,omitempty"`
	Reason  string             `json:"reason,omitempty"`
}

// Service ties the schema, the document store, and the apply pipeline
// together.
type Service struct {
	store   document.Store
	root    *schema.Node
	applier pipeline.Applier
	gate    *semaphore.Weighted
}

// NewService creates the settings service. The schema root must already be
// validated.
func NewService(store document.Store, root *schema.Node, applier pipeline.Applier) *Service {
	return &Service{
		store:   store,
		root:    root,
		applier: applier,
		gate:    semaphore.NewWeighted(1),
	}
}

// FormView loads the current document and projects it through the schema.
// Read-only; no side effects beyond the read.
func (s *Service) FormView(ctx context.Context) (*forms.Field, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return forms.Project(s.root, doc), nil
}

// Apply runs a full edit transaction for the submission. Validation errors
// leave storage untouched; pipeline failures are reported after the save
// has already happened, since the edit itself succeeded independent of the
// external action.
func (s *Service) Apply(ctx context.Context, sub forms.Submission) (Result, error) {
	if !s.gate.TryAcquire(1) {
		return Result{}, ErrApplyInFlight
	}
	defer s.gate.Release(1)

	doc, err := s.store.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load settings: %w", err)
	}

	nested, fieldErrs := forms.ParseSubmission(s.root, sub, "")
	if len(fieldErrs) > 0 {
		return Result{Outcome: OutcomeInvalid, Errors: fieldErrs}, nil
	}

	merged := forms.Merge(doc, "", nested)
	if err := s.store.Save(ctx, merged); err != nil {
		logger.Errorf("failed to save settings: %v", err)
		return Result{Outcome: OutcomeSaveFailed, Reason: err.Error()}, nil
	}
	logger.Infow("settings saved", "fields", len(sub))

	if err := s.applier.Apply(ctx); err != nil {
		logger.Errorf("apply pipeline failed: %v", err)
		if errors.Is(err, pipeline.ErrTimeout) {
			return Result{Outcome: OutcomeTimeout, Reason: err.Error()}, nil
		}
		return Result{Outcome: OutcomeApplyFailed, Reason: err.Error()}, nil
	}
	return Result{Outcome: OutcomeApplied}, nil
}
