package wizard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillAll(t *testing.T, w *Wizard) {
	t.Helper()
	require.NoError(t, w.UpdateField(FieldSenderName, "Alice"))
	require.NoError(t, w.UpdateField(FieldSenderAddress, "1 Main St"))
	require.NoError(t, w.UpdateField(FieldReceiverName, "Bob"))
	require.NoError(t, w.UpdateField(FieldReceiverAddress, "2 High St"))
	require.NoError(t, w.UpdateField(FieldShipmentDetails, "2 boxes, fragile"))
}

func toSummary(t *testing.T, w *Wizard) {
	t.Helper()
	fillAll(t, w)
	for w.Step() != StepTrackingSummary {
		require.NoError(t, w.Advance())
	}
}

func TestNewWizard(t *testing.T) {
	w := New(nil)

	assert.Equal(t, StepSenderInfo, w.Step())
	require.NoError(t, CheckTrackingIdentifier(w.TrackingIdentifier()))
	assert.NotEqual(t, w.TrackingIdentifier(), New(nil).TrackingIdentifier())
}

func TestAdvanceWithCompleteSender(t *testing.T) {
	w := New(nil)
	require.NoError(t, w.UpdateField(FieldSenderName, "Alice"))
	require.NoError(t, w.UpdateField(FieldSenderAddress, "1 Main St"))

	require.NoError(t, w.Advance())
	assert.Equal(t, StepReceiverInfo, w.Step())
}

func TestAdvanceMissingSenderAddress(t *testing.T) {
	w := New(nil)
	require.NoError(t, w.UpdateField(FieldSenderName, "Alice"))

	err := w.Advance()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidationFailed))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, StepSenderInfo, verr.Step)
	assert.Equal(t, FieldSenderAddress, verr.Field)
	assert.Equal(t, StepSenderInfo, w.Step())
}

func TestAdvanceRequiresTrimmedValues(t *testing.T) {
	cases := []struct {
		name    string
		step    Step
		fields  map[Field]string
		missing Field
	}{
		{"sender blank name", StepSenderInfo, map[Field]string{FieldSenderName: "  ", FieldSenderAddress: "x"}, FieldSenderName},
		{"sender both blank", StepSenderInfo, map[Field]string{}, FieldSenderName},
		{"receiver tab address", StepReceiverInfo, map[Field]string{FieldReceiverName: "Bob", FieldReceiverAddress: "\t"}, FieldReceiverAddress},
		{"shipment newline", StepShipmentInfo, map[Field]string{FieldShipmentDetails: "\n"}, FieldShipmentDetails},
		{"shipment ok", StepShipmentInfo, map[Field]string{FieldShipmentDetails: " box "}, ""},
		{"receiver ok", StepReceiverInfo, map[Field]string{FieldReceiverName: "Bob", FieldReceiverAddress: "2 High St"}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record := &ShipmentRecord{}
			for field, value := range tc.fields {
				require.NoError(t, record.set(field, value))
			}
			err := Validate(tc.step, record)
			if tc.missing == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.missing, verr.Field)
			assert.Equal(t, tc.step, verr.Step)
		})
	}
}

func TestValidateSummaryHasNoRequirements(t *testing.T) {
	assert.NoError(t, Validate(StepTrackingSummary, &ShipmentRecord{}))
	assert.ErrorIs(t, Validate(Step(9), &ShipmentRecord{}), ErrInvalidStep)
}

func TestAdvanceAtLastStep(t *testing.T) {
	w := New(nil)
	toSummary(t, w)

	assert.ErrorIs(t, w.Advance(), ErrAtLastStep)
	assert.Equal(t, StepTrackingSummary, w.Step())
}

func TestRetreat(t *testing.T) {
	w := New(nil)
	assert.ErrorIs(t, w.Retreat(), ErrAtFirstStep)
	assert.Equal(t, StepSenderInfo, w.Step())

	toSummary(t, w)
	// going back never validates
	require.NoError(t, w.UpdateField(FieldShipmentDetails, ""))
	require.NoError(t, w.Retreat())
	require.NoError(t, w.Retreat())
	assert.Equal(t, StepReceiverInfo, w.Step())
}

func TestJumpToStepBounds(t *testing.T) {
	for _, current := range Steps() {
		for target := Step(-1); target <= 6; target++ {
			w := New(nil)
			fillAll(t, w)
			for w.Step() != current {
				require.NoError(t, w.Advance())
			}

			err := w.JumpToStep(target)
			if target >= 1 && target < current {
				require.NoError(t, err, "jump %d from %d", target, current)
				assert.Equal(t, target, w.Step())
			} else {
				require.ErrorIs(t, err, ErrInvalidJumpTarget, "jump %d from %d", target, current)
				assert.Equal(t, current, w.Step())
			}
		}
	}
}

func TestJumpBackKeepsLaterData(t *testing.T) {
	w := New(nil)
	fillAll(t, w)
	require.NoError(t, w.Advance())
	require.NoError(t, w.Advance())
	require.Equal(t, StepShipmentInfo, w.Step())

	require.NoError(t, w.JumpToStep(StepSenderInfo))
	assert.Equal(t, StepSenderInfo, w.Step())

	require.NoError(t, w.UpdateField(FieldSenderName, "Alice Cooper"))
	require.NoError(t, w.Advance())
	assert.Equal(t, StepReceiverInfo, w.Step())
	assert.Equal(t, "Bob", w.Record().ReceiverName)
	assert.Equal(t, "Alice Cooper", w.Record().SenderName)
}

func TestUpdateField(t *testing.T) {
	w := New(nil)

	// later steps are settable from the first one
	require.NoError(t, w.UpdateField(FieldShipmentDetails, "pallet"))
	assert.Equal(t, "pallet", w.Record().ShipmentDetails)

	assert.ErrorIs(t, w.UpdateField(Field("weight"), "3kg"), ErrUnknownField)
	assert.ErrorIs(t, w.UpdateField(FieldTrackingIdentifier, "nope"), ErrReadOnlyField)
}

func TestTrackingIdentifierInvariant(t *testing.T) {
	w := New(nil)
	id := w.TrackingIdentifier()

	fillAll(t, w)
	_ = w.Retreat()
	require.NoError(t, w.Advance())
	require.NoError(t, w.Advance())
	require.NoError(t, w.JumpToStep(StepSenderInfo))
	_ = w.UpdateField(FieldTrackingIdentifier, "00000000-0000-4000-8000-000000000000")
	require.NoError(t, w.UpdateField(FieldReceiverName, "Carol"))
	require.NoError(t, w.Advance())
	require.NoError(t, w.Retreat())

	assert.Equal(t, id, w.TrackingIdentifier())
	assert.Equal(t, id, w.Record().TrackingIdentifier)
}

func TestFinalize(t *testing.T) {
	var got ShipmentRecord
	w := New(SubmitterFunc(func(ctx context.Context, record ShipmentRecord) (*Acknowledgement, error) {
		got = record
		return &Acknowledgement{TrackingIdentifier: record.TrackingIdentifier}, nil
	}))

	_, err := w.Finalize(context.Background())
	assert.ErrorIs(t, err, ErrNotAtSummary)

	toSummary(t, w)
	ack, err := w.Finalize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, w.TrackingIdentifier(), ack.TrackingIdentifier)
	assert.Equal(t, w.Record(), got)
	assert.True(t, w.Submitted())

	assert.ErrorIs(t, w.UpdateField(FieldSenderName, "Mallory"), ErrRecordSubmitted)
	_, err = w.Finalize(context.Background())
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestFinalizeFailureIsRetryable(t *testing.T) {
	calls := 0
	w := New(SubmitterFunc(func(ctx context.Context, record ShipmentRecord) (*Acknowledgement, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("connection refused")
		}
		return &Acknowledgement{TrackingIdentifier: record.TrackingIdentifier}, nil
	}))
	toSummary(t, w)
	before := w.Snapshot()

	_, err := w.Finalize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubmissionFailed)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, before, w.Snapshot())

	_, err = w.Finalize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestFinalizeSingleFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	w := New(SubmitterFunc(func(ctx context.Context, record ShipmentRecord) (*Acknowledgement, error) {
		close(entered)
		<-release
		return &Acknowledgement{}, nil
	}))
	toSummary(t, w)

	done := make(chan error, 1)
	go func() {
		_, err := w.Finalize(context.Background())
		done <- err
	}()
	<-entered

	_, err := w.Finalize(context.Background())
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(release)
	require.NoError(t, <-done)
}

func TestFinalizeConcurrentCallsSubmitOnce(t *testing.T) {
	var calls atomic.Int32
	w := New(SubmitterFunc(func(ctx context.Context, record ShipmentRecord) (*Acknowledgement, error) {
		calls.Add(1)
		return &Acknowledgement{TrackingIdentifier: record.TrackingIdentifier}, nil
	}))
	toSummary(t, w)

	var successes atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, err := w.Finalize(context.Background())
				switch {
				case err == nil:
					successes.Add(1)
				case errors.Is(err, ErrAlreadySubmitted), errors.Is(err, ErrSubmissionInFlight):
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, w.Submitted())
}

func TestFinalizeWithoutSubmitter(t *testing.T) {
	w := New(nil)
	toSummary(t, w)

	_, err := w.Finalize(context.Background())
	assert.ErrorIs(t, err, ErrSubmissionFailed)
	assert.False(t, w.Submitted())
}

func TestSnapshotRestore(t *testing.T) {
	w := New(nil)
	fillAll(t, w)
	require.NoError(t, w.Advance())

	restored, err := Restore(w.Snapshot(), nil)
	require.NoError(t, err)
	assert.Equal(t, w.Snapshot(), restored.Snapshot())

	_, err = Restore(Snapshot{Step: 7, Record: w.Record()}, nil)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)

	bad := w.Snapshot()
	bad.Record.TrackingIdentifier = "TRK-1234"
	_, err = Restore(bad, nil)
	assert.ErrorIs(t, err, ErrInvalidSnapshot)
}

func TestCheckTrackingIdentifier(t *testing.T) {
	assert.NoError(t, CheckTrackingIdentifier("9b2f6c1e-3a4d-4f5e-8a7b-0c1d2e3f4a5b"))
	assert.ErrorIs(t, CheckTrackingIdentifier("9b2f6c1e-3a4d-1f5e-8a7b-0c1d2e3f4a5b"), ErrInvalidTrackingIdentifier)
	assert.ErrorIs(t, CheckTrackingIdentifier("9B2F6C1E-3A4D-4F5E-8A7B-0C1D2E3F4A5B"), ErrInvalidTrackingIdentifier)
	assert.ErrorIs(t, CheckTrackingIdentifier("not-a-uuid"), ErrInvalidTrackingIdentifier)
}

func TestValidateRecord(t *testing.T) {
	w := New(nil)
	fillAll(t, w)
	record := w.Record()
	require.NoError(t, ValidateRecord(&record))

	record.ReceiverAddress = ""
	var verr *ValidationError
	require.True(t, errors.As(ValidateRecord(&record), &verr))
	assert.Equal(t, FieldReceiverAddress, verr.Field)
}

func TestGuard(t *testing.T) {
	var g Guard
	require.True(t, g.TryAcquire())
	assert.True(t, g.Busy())
	assert.False(t, g.TryAcquire())
	g.Release()
	assert.True(t, g.TryAcquire())
}

func TestStepOf(t *testing.T) {
	for _, step := range Steps() {
		for _, field := range FieldsFor(step) {
			got, ok := StepOf(field)
			require.True(t, ok, field)
			assert.Equal(t, step, got, field)
		}
	}

	got, ok := StepOf(FieldTrackingIdentifier)
	require.True(t, ok)
	assert.Equal(t, StepTrackingSummary, got)

	_, ok = StepOf(Field("weight"))
	assert.False(t, ok)
}
