package shipclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ahmadzakiakmal/shiptrack/wizard"
)

const DefaultTimeout = 30 * time.Second

// Client submits shipment records to a remote shipment service
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// StatusError is returned when the service answers with a non-success status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("shipment service returned error status %d: %s", e.StatusCode, e.Body)
}

// NewClient creates a new shipment client
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Endpoint returns the base URL requests are sent to
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Submit sends the record to the persistence endpoint
func (c *Client) Submit(ctx context.Context, record wizard.ShipmentRecord) (*wizard.Acknowledgement, error) {
	jsonData, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal shipment record: %w", err)
	}

	url := fmt.Sprintf("%s/api/shipments", c.endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to shipment service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read shipment service response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	ack := &wizard.Acknowledgement{TrackingIdentifier: record.TrackingIdentifier}
	if json.Valid(body) {
		ack.Payload = json.RawMessage(body)
	}
	return ack, nil
}

// HealthCheck checks if the shipment service is reachable
func (c *Client) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/info", c.endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("shipment service is unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("shipment service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}
