package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
)

// Acknowledgement is the persistence collaborator's success payload
type Acknowledgement struct {
	TrackingIdentifier string          `json:"trackingIdentifier"`
	Payload            json.RawMessage `json:"payload,omitempty"`
}

// Submitter persists a completed shipment record
type Submitter interface {
	Submit(ctx context.Context, record ShipmentRecord) (*Acknowledgement, error)
}

// SubmitterFunc adapts a function to the Submitter interface
type SubmitterFunc func(ctx context.Context, record ShipmentRecord) (*Acknowledgement, error)

func (f SubmitterFunc) Submit(ctx context.Context, record ShipmentRecord) (*Acknowledgement, error) {
	return f(ctx, record)
}

// Wizard walks an operator through the intake steps. It owns the in-progress
// record; every mutation goes through UpdateField. Mutating methods must not
// be called concurrently, except that Finalize rejects an overlapping call.
type Wizard struct {
	step       Step
	record     ShipmentRecord
	submitter  Submitter
	submitting atomic.Bool
	submitted  atomic.Bool
}

// New starts a wizard on the sender step with a freshly generated tracking
// identifier
func New(submitter Submitter) *Wizard {
	return &Wizard{
		step:      StepSenderInfo,
		record:    ShipmentRecord{TrackingIdentifier: NewTrackingIdentifier()},
		submitter: submitter,
	}
}

// Step returns the current step
func (w *Wizard) Step() Step {
	return w.step
}

// Record returns a copy of the in-progress record
func (w *Wizard) Record() ShipmentRecord {
	return w.record
}

// TrackingIdentifier returns the identifier assigned at construction
func (w *Wizard) TrackingIdentifier() string {
	return w.record.TrackingIdentifier
}

// Submitted reports whether Finalize has succeeded
func (w *Wizard) Submitted() bool {
	return w.submitted.Load()
}

// Advance validates the current step and moves to the next one
func (w *Wizard) Advance() error {
	if w.step == LastStep {
		return ErrAtLastStep
	}
	if err := Validate(w.step, &w.record); err != nil {
		return err
	}
	w.step++
	return nil
}

// Retreat moves back one step without validation
func (w *Wizard) Retreat() error {
	if w.step == FirstStep {
		return ErrAtFirstStep
	}
	w.step--
	return nil
}

// JumpToStep moves back to an earlier step. Data entered on later steps is
// kept and re-validated when the operator advances through them again.
func (w *Wizard) JumpToStep(target Step) error {
	if !target.Valid() || target >= w.step {
		return fmt.Errorf("%w: %d from %s", ErrInvalidJumpTarget, int(target), w.step)
	}
	w.step = target
	return nil
}

// UpdateField sets a field of any step. Nothing is validated until Advance.
func (w *Wizard) UpdateField(name Field, value string) error {
	if w.submitted.Load() {
		return ErrRecordSubmitted
	}
	return w.record.set(name, value)
}

// Finalize hands the record to the submitter. A failed submission leaves the
// wizard untouched so the operator can retry.
func (w *Wizard) Finalize(ctx context.Context) (*Acknowledgement, error) {
	if w.step != StepTrackingSummary {
		return nil, ErrNotAtSummary
	}
	if w.submitted.Load() {
		return nil, ErrAlreadySubmitted
	}
	if !w.submitting.CompareAndSwap(false, true) {
		return nil, ErrSubmissionInFlight
	}
	defer w.submitting.Store(false)
	// a call that lost the race to a successful submission
	if w.submitted.Load() {
		return nil, ErrAlreadySubmitted
	}

	if w.submitter == nil {
		return nil, &SubmissionError{Err: fmt.Errorf("no submitter configured")}
	}
	ack, err := w.submitter.Submit(ctx, w.record)
	if err != nil {
		return nil, &SubmissionError{Err: err}
	}
	w.submitted.Store(true)
	return ack, nil
}

// Snapshot is the serialisable state of a wizard
type Snapshot struct {
	Step      Step           `json:"step"`
	Record    ShipmentRecord `json:"record"`
	Submitted bool           `json:"submitted"`
}

// Snapshot captures the current state
func (w *Wizard) Snapshot() Snapshot {
	return Snapshot{
		Step:      w.step,
		Record:    w.record,
		Submitted: w.submitted.Load(),
	}
}

// Restore rebuilds a wizard from a snapshot
func Restore(snap Snapshot, submitter Submitter) (*Wizard, error) {
	if !snap.Step.Valid() {
		return nil, fmt.Errorf("%w: step %d", ErrInvalidSnapshot, int(snap.Step))
	}
	if err := CheckTrackingIdentifier(snap.Record.TrackingIdentifier); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	w := &Wizard{
		step:      snap.Step,
		record:    snap.Record,
		submitter: submitter,
	}
	w.submitted.Store(snap.Submitted)
	return w, nil
}
