package benchclient

import (
	"context"
	"fmt"
	"time"
)

// Result is the latency of one workflow step
type Result struct {
	Step    string
	Latency time.Duration
	Bytes   int
}

// Shipment is the data entered during one workflow run
type Shipment struct {
	SenderName      string
	SenderAddress   string
	ReceiverName    string
	ReceiverAddress string
	ShipmentDetails string
}

// SampleShipment returns a complete shipment with a per-run suffix
func SampleShipment(n int) Shipment {
	return Shipment{
		SenderName:      fmt.Sprintf("Sender %d", n),
		SenderAddress:   "1 Warehouse Road",
		ReceiverName:    fmt.Sprintf("Receiver %d", n),
		ReceiverAddress: "2 Harbour Street",
		ShipmentDetails: "1 parcel, 2kg",
	}
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
	Record    struct {
		TrackingIdentifier string `json:"trackingIdentifier"`
	} `json:"record"`
}

type finalizeResponse struct {
	TrackingIdentifier string `json:"trackingIdentifier"`
}

// RunWorkflow walks one shipment through the wizard: start, fill every step,
// reach the summary, download both artifacts and finalize. Results are
// returned for every step completed before a failure.
func RunWorkflow(ctx context.Context, client *HTTPClient, shipment Shipment, pause time.Duration) ([]Result, error) {
	var results []Result
	totalStart := time.Now()

	step := func(name string, fn func() (int, error)) error {
		start := time.Now()
		n, err := fn()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		results = append(results, Result{Step: name, Latency: time.Since(start), Bytes: n})
		if pause > 0 {
			time.Sleep(pause)
		}
		return nil
	}

	// 1. Start Session
	var sess sessionResponse
	err := step("Start Session", func() (int, error) {
		resp, err := client.POST(ctx, "/wizard/start", nil)
		if err != nil {
			return 0, err
		}
		return 0, UnmarshalBody(resp, &sess)
	})
	if err != nil {
		return results, err
	}
	base := "/wizard/" + sess.SessionID

	setFields := func(fields [][2]string) func() (int, error) {
		return func() (int, error) {
			for _, f := range fields {
				resp, err := client.POST(ctx, base+"/field", map[string]string{"name": f[0], "value": f[1]})
				if err != nil {
					return 0, err
				}
				if err := UnmarshalBody(resp, nil); err != nil {
					return 0, err
				}
			}
			resp, err := client.POST(ctx, base+"/advance", nil)
			if err != nil {
				return 0, err
			}
			return 0, UnmarshalBody(resp, nil)
		}
	}

	// 2-4. Fill the three data steps
	stages := []struct {
		name   string
		fields [][2]string
	}{
		{"Sender Info", [][2]string{{"senderName", shipment.SenderName}, {"senderAddress", shipment.SenderAddress}}},
		{"Receiver Info", [][2]string{{"receiverName", shipment.ReceiverName}, {"receiverAddress", shipment.ReceiverAddress}}},
		{"Shipment Info", [][2]string{{"shipmentDetails", shipment.ShipmentDetails}}},
	}
	for _, stage := range stages {
		if err := step(stage.name, setFields(stage.fields)); err != nil {
			return results, err
		}
	}

	// 5-6. Download the barcode
	for _, artifact := range []struct{ name, path string }{
		{"Export PNG", "/barcode.png"},
		{"Export PDF", "/barcode.pdf"},
	} {
		err := step(artifact.name, func() (int, error) {
			resp, err := client.GET(ctx, base+artifact.path)
			if err != nil {
				return 0, err
			}
			return ReadBody(resp)
		})
		if err != nil {
			return results, err
		}
	}

	// 7. Finalize
	err = step("Finalize", func() (int, error) {
		resp, err := client.POST(ctx, base+"/finalize", nil)
		if err != nil {
			return 0, err
		}
		var fin finalizeResponse
		if err := UnmarshalBody(resp, &fin); err != nil {
			return 0, err
		}
		if fin.TrackingIdentifier != sess.Record.TrackingIdentifier {
			return 0, fmt.Errorf("finalized %q, expected %q", fin.TrackingIdentifier, sess.Record.TrackingIdentifier)
		}
		return 0, nil
	})
	if err != nil {
		return results, err
	}

	results = append(results, Result{Step: "Complete Workflow", Latency: time.Since(totalStart)})
	return results, nil
}
