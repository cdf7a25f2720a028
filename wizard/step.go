package wizard

import "fmt"

// Step identifies a page of the intake wizard
type Step int

const (
	StepSenderInfo      Step = 1
	StepReceiverInfo    Step = 2
	StepShipmentInfo    Step = 3
	StepTrackingSummary Step = 4
)

// FirstStep and LastStep bound the step enumeration
const (
	FirstStep = StepSenderInfo
	LastStep  = StepTrackingSummary
)

// Valid reports whether s is one of the four wizard steps
func (s Step) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

func (s Step) String() string {
	switch s {
	case StepSenderInfo:
		return "SenderInfo"
	case StepReceiverInfo:
		return "ReceiverInfo"
	case StepShipmentInfo:
		return "ShipmentInfo"
	case StepTrackingSummary:
		return "TrackingSummary"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// Label is the operator-facing title of the step
func (s Step) Label() string {
	switch s {
	case StepSenderInfo:
		return "Sender"
	case StepReceiverInfo:
		return "Receiver"
	case StepShipmentInfo:
		return "Shipment"
	case StepTrackingSummary:
		return "Tracking ID"
	default:
		return s.String()
	}
}

// Steps returns all steps in wizard order
func Steps() []Step {
	return []Step{StepSenderInfo, StepReceiverInfo, StepShipmentInfo, StepTrackingSummary}
}
