package wizard

import (
	"fmt"
	"strings"
)

// Validate checks the fields required by step and returns a *ValidationError
// naming the first one that is blank. TrackingSummary has no requirements.
func Validate(step Step, record *ShipmentRecord) error {
	if !step.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidStep, int(step))
	}
	for _, field := range stepFields[step] {
		value, err := record.Get(field)
		if err != nil {
			return err
		}
		if strings.TrimSpace(value) == "" {
			return &ValidationError{
				Step:   step,
				Field:  field,
				Reason: fmt.Sprintf("please fill in %s", field.Label()),
			}
		}
	}
	return nil
}

// ValidateRecord runs every step's rules in wizard order and checks the
// tracking identifier. It is used wherever a complete record is accepted.
func ValidateRecord(record *ShipmentRecord) error {
	for _, step := range Steps() {
		if err := Validate(step, record); err != nil {
			return err
		}
	}
	return CheckTrackingIdentifier(record.TrackingIdentifier)
}
