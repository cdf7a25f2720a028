package wizard

import (
	"fmt"

	"github.com/google/uuid"
)

// Field names a ShipmentRecord attribute. The values double as the JSON keys
// of the persistence payload.
type Field string

const (
	FieldSenderName         Field = "senderName"
	FieldSenderAddress      Field = "senderAddress"
	FieldReceiverName       Field = "receiverName"
	FieldReceiverAddress    Field = "receiverAddress"
	FieldShipmentDetails    Field = "shipmentDetails"
	FieldTrackingIdentifier Field = "trackingIdentifier"
)

// stepFields lists the editable fields of each step in form order
var stepFields = map[Step][]Field{
	StepSenderInfo:      {FieldSenderName, FieldSenderAddress},
	StepReceiverInfo:    {FieldReceiverName, FieldReceiverAddress},
	StepShipmentInfo:    {FieldShipmentDetails},
	StepTrackingSummary: nil,
}

// FieldsFor returns the fields collected on the given step
func FieldsFor(step Step) []Field {
	fields := stepFields[step]
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// StepOf returns the step that collects the field. The tracking identifier
// belongs to the summary step, where it is displayed read-only.
func StepOf(field Field) (Step, bool) {
	if field == FieldTrackingIdentifier {
		return StepTrackingSummary, true
	}
	for step, fields := range stepFields {
		for _, f := range fields {
			if f == field {
				return step, true
			}
		}
	}
	return 0, false
}

// Label is the operator-facing name of the field
func (f Field) Label() string {
	switch f {
	case FieldSenderName:
		return "Sender Name"
	case FieldSenderAddress:
		return "Sender Address"
	case FieldReceiverName:
		return "Receiver Name"
	case FieldReceiverAddress:
		return "Receiver Address"
	case FieldShipmentDetails:
		return "Shipment Details"
	case FieldTrackingIdentifier:
		return "Tracking ID"
	default:
		return string(f)
	}
}

// ShipmentRecord is the shipment being collected by the wizard
type ShipmentRecord struct {
	SenderName         string `json:"senderName"`
	SenderAddress      string `json:"senderAddress"`
	ReceiverName       string `json:"receiverName"`
	ReceiverAddress    string `json:"receiverAddress"`
	ShipmentDetails    string `json:"shipmentDetails"`
	TrackingIdentifier string `json:"trackingIdentifier"`
}

// Get returns the value of a field
func (r *ShipmentRecord) Get(field Field) (string, error) {
	switch field {
	case FieldSenderName:
		return r.SenderName, nil
	case FieldSenderAddress:
		return r.SenderAddress, nil
	case FieldReceiverName:
		return r.ReceiverName, nil
	case FieldReceiverAddress:
		return r.ReceiverAddress, nil
	case FieldShipmentDetails:
		return r.ShipmentDetails, nil
	case FieldTrackingIdentifier:
		return r.TrackingIdentifier, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, string(field))
	}
}

// set assigns an editable field; the tracking identifier is never settable
func (r *ShipmentRecord) set(field Field, value string) error {
	switch field {
	case FieldSenderName:
		r.SenderName = value
	case FieldSenderAddress:
		r.SenderAddress = value
	case FieldReceiverName:
		r.ReceiverName = value
	case FieldReceiverAddress:
		r.ReceiverAddress = value
	case FieldShipmentDetails:
		r.ShipmentDetails = value
	case FieldTrackingIdentifier:
		return ErrReadOnlyField
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, string(field))
	}
	return nil
}

// NewTrackingIdentifier returns a random version 4 UUID in canonical form
func NewTrackingIdentifier() string {
	return uuid.New().String()
}

// CheckTrackingIdentifier verifies that id is a canonical lowercase UUID v4
func CheckTrackingIdentifier(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTrackingIdentifier, err)
	}
	if parsed.Version() != 4 || parsed.Variant() != uuid.RFC4122 {
		return fmt.Errorf("%w: %s is not a version 4 UUID", ErrInvalidTrackingIdentifier, id)
	}
	if parsed.String() != id {
		return fmt.Errorf("%w: %s is not in canonical form", ErrInvalidTrackingIdentifier, id)
	}
	return nil
}
