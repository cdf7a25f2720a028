package srvreg

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ahmadzakiakmal/shiptrack/barcode"
	"github.com/ahmadzakiakmal/shiptrack/export"
	"github.com/ahmadzakiakmal/shiptrack/intake"
	"github.com/ahmadzakiakmal/shiptrack/repository"
	"github.com/ahmadzakiakmal/shiptrack/wizard"
)

const defaultListLimit = 50

func jsonResponse(status int, v interface{}) *Response {
	body, err := json.Marshal(v)
	if err != nil {
		return &Response{
			StatusCode: http.StatusInternalServerError,
			Headers:    defaultHeaders,
			Body:       `{"error":"Failed to encode response"}`,
		}
	}
	return &Response{
		StatusCode: status,
		Headers:    defaultHeaders,
		Body:       string(body),
	}
}

func errorBody(status int, message string) *Response {
	return jsonResponse(status, map[string]string{"error": message})
}

// wizardError maps intake and wizard errors onto HTTP statuses
func (sr *ServiceRegistry) wizardError(err error) *Response {
	var verr *wizard.ValidationError
	if errors.As(err, &verr) {
		return jsonResponse(http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  verr.Error(),
			"step":   verr.Step,
			"field":  verr.Field,
			"reason": verr.Reason,
		})
	}

	var internal *intake.InternalError
	switch {
	case errors.Is(err, intake.ErrSessionNotFound):
		return errorBody(http.StatusNotFound, err.Error())
	case errors.Is(err, wizard.ErrSubmissionFailed):
		return errorBody(http.StatusBadGateway, err.Error())
	case errors.As(err, &internal):
		sr.logger.Error("Internal error", "op", internal.Op, "err", internal.Err)
		return errorBody(http.StatusInternalServerError, err.Error())
	case errors.Is(err, wizard.ErrUnknownField),
		errors.Is(err, wizard.ErrReadOnlyField),
		errors.Is(err, wizard.ErrInvalidStep),
		errors.Is(err, export.ErrUnknownKind):
		return errorBody(http.StatusBadRequest, err.Error())
	case errors.Is(err, wizard.ErrAtFirstStep),
		errors.Is(err, wizard.ErrAtLastStep),
		errors.Is(err, wizard.ErrInvalidJumpTarget),
		errors.Is(err, wizard.ErrNotAtSummary),
		errors.Is(err, wizard.ErrSubmissionInFlight),
		errors.Is(err, wizard.ErrAlreadySubmitted),
		errors.Is(err, wizard.ErrRecordSubmitted),
		errors.Is(err, intake.ErrExportInFlight),
		errors.Is(err, export.ErrRendererNotReady):
		return errorBody(http.StatusConflict, err.Error())
	default:
		sr.logger.Error("Unhandled error", "err", err)
		return errorBody(http.StatusInternalServerError, err.Error())
	}
}

// InfoHandler returns service information
func (sr *ServiceRegistry) InfoHandler(req *Request) (*Response, error) {
	return jsonResponse(http.StatusOK, map[string]interface{}{
		"node_id":   sr.nodeID,
		"type":      "Shipment Intake Node",
		"status":    "active",
		"symbology": barcode.Symbology,
	}), nil
}

// CreateShipmentHandler validates and stores a complete shipment record
func (sr *ServiceRegistry) CreateShipmentHandler(req *Request) (*Response, error) {
	var record wizard.ShipmentRecord
	if err := json.Unmarshal([]byte(req.Body), &record); err != nil {
		return errorBody(http.StatusBadRequest, fmt.Sprintf("Invalid request body: %s", err.Error())), nil
	}
	if sr.store == nil {
		return errorBody(http.StatusServiceUnavailable, "Shipment storage is not configured"), nil
	}

	ack, err := sr.store.Submit(req.Context, record)
	if err != nil {
		var verr *wizard.ValidationError
		var repoErr *repository.RepositoryError
		switch {
		case errors.As(err, &verr):
			return jsonResponse(http.StatusBadRequest, map[string]interface{}{
				"error": verr.Error(),
				"field": verr.Field,
			}), nil
		case errors.Is(err, wizard.ErrInvalidTrackingIdentifier):
			return errorBody(http.StatusBadRequest, err.Error()), nil
		case errors.As(err, &repoErr) && repoErr.Code == "DUPLICATE":
			return errorBody(http.StatusConflict, repoErr.Message), nil
		default:
			sr.logger.Error("Failed to store shipment", "tracking_id", record.TrackingIdentifier, "err", err)
			return errorBody(http.StatusInternalServerError, "Failed to store shipment"), nil
		}
	}

	return jsonResponse(http.StatusCreated, map[string]interface{}{
		"message":            "Shipment stored successfully",
		"trackingIdentifier": ack.TrackingIdentifier,
		"shipment":           ack.Payload,
	}), nil
}

// GetShipmentHandler returns a stored shipment and its label
func (sr *ServiceRegistry) GetShipmentHandler(req *Request) (*Response, error) {
	if sr.shipments == nil {
		return errorBody(http.StatusServiceUnavailable, "Shipment storage is not configured"), nil
	}
	shipment, dbErr := sr.shipments.GetShipment(req.Params["id"])
	if dbErr != nil {
		statusCode := http.StatusInternalServerError
		if dbErr.Code == "NOT_FOUND" {
			statusCode = http.StatusNotFound
		}
		return errorBody(statusCode, dbErr.Message), nil
	}
	return jsonResponse(http.StatusOK, shipment), nil
}

// ListShipmentsHandler returns the most recent shipments
func (sr *ServiceRegistry) ListShipmentsHandler(req *Request) (*Response, error) {
	if sr.shipments == nil {
		return errorBody(http.StatusServiceUnavailable, "Shipment storage is not configured"), nil
	}
	limit := defaultListLimit
	if raw := req.Query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return errorBody(http.StatusBadRequest, "limit must be a positive integer"), nil
		}
		limit = n
	}
	shipments, dbErr := sr.shipments.ListShipments(limit)
	if dbErr != nil {
		return errorBody(http.StatusInternalServerError, dbErr.Message), nil
	}
	return jsonResponse(http.StatusOK, map[string]interface{}{
		"shipments": shipments,
		"count":     len(shipments),
	}), nil
}

// StartWizardHandler opens a new intake session
func (sr *ServiceRegistry) StartWizardHandler(req *Request) (*Response, error) {
	view, err := sr.intake.Start()
	if err != nil {
		return sr.wizardError(err), nil
	}
	return jsonResponse(http.StatusCreated, view), nil
}

// GetWizardHandler returns the current state of a session
func (sr *ServiceRegistry) GetWizardHandler(req *Request) (*Response, error) {
	view, err := sr.intake.Get(req.Params["id"])
	if err != nil {
		return sr.wizardError(err), nil
	}
	return jsonResponse(http.StatusOK, view), nil
}

// DiscardWizardHandler drops a session and its saved draft
func (sr *ServiceRegistry) DiscardWizardHandler(req *Request) (*Response, error) {
	id := req.Params["id"]
	if err := sr.intake.Discard(id); err != nil {
		return sr.wizardError(err), nil
	}
	return jsonResponse(http.StatusOK, map[string]interface{}{
		"sessionId": id,
		"discarded": true,
	}), nil
}

// UpdateFieldHandler sets one record field
func (sr *ServiceRegistry) UpdateFieldHandler(req *Request) (*Response, error) {
	var body struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return errorBody(http.StatusBadRequest, fmt.Sprintf("Invalid request body: %s", err.Error())), nil
	}
	if body.Name == "" {
		return errorBody(http.StatusBadRequest, "name is required"), nil
	}

	view, err := sr.intake.UpdateField(req.Params["id"], wizard.Field(body.Name), body.Value)
	if err != nil {
		return sr.wizardError(err), nil
	}
	return jsonResponse(http.StatusOK, view), nil
}

// AdvanceHandler validates the current step and moves forward
func (sr *ServiceRegistry) AdvanceHandler(req *Request) (*Response, error) {
	view, err := sr.intake.Advance(req.Params["id"])
	if err != nil {
		return sr.wizardError(err), nil
	}
	return jsonResponse(http.StatusOK, view), nil
}

// RetreatHandler moves back one step
func (sr *ServiceRegistry) RetreatHandler(req *Request) (*Response, error) {
	view, err := sr.intake.Retreat(req.Params["id"])
	if err != nil {
		return sr.wizardError(err), nil
	}
	return jsonResponse(http.StatusOK, view), nil
}

// JumpHandler returns to an earlier step for editing
func (sr *ServiceRegistry) JumpHandler(req *Request) (*Response, error) {
	var body struct {
		Step int `json:"step"`
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return errorBody(http.StatusBadRequest, fmt.Sprintf("Invalid request body: %s", err.Error())), nil
	}

	view, err := sr.intake.JumpToStep(req.Params["id"], wizard.Step(body.Step))
	if err != nil {
		return sr.wizardError(err), nil
	}
	return jsonResponse(http.StatusOK, view), nil
}

// FinalizeHandler submits the record of a session on its summary step
func (sr *ServiceRegistry) FinalizeHandler(req *Request) (*Response, error) {
	ack, view, err := sr.intake.Finalize(req.Context, req.Params["id"])
	if err != nil {
		return sr.wizardError(err), nil
	}
	return jsonResponse(http.StatusOK, map[string]interface{}{
		"message":            "Shipment submitted successfully",
		"trackingIdentifier": ack.TrackingIdentifier,
		"acknowledgement":    ack.Payload,
		"session":            view,
	}), nil
}

// BarcodePNGHandler downloads the rendered barcode as a PNG image
func (sr *ServiceRegistry) BarcodePNGHandler(req *Request) (*Response, error) {
	return sr.artifact(req, export.KindRasterImage), nil
}

// BarcodePDFHandler downloads the rendered barcode inside a PDF page
func (sr *ServiceRegistry) BarcodePDFHandler(req *Request) (*Response, error) {
	return sr.artifact(req, export.KindDocument), nil
}

func (sr *ServiceRegistry) artifact(req *Request, kind export.Kind) *Response {
	artifact, err := sr.intake.Export(req.Params["id"], kind)
	if err != nil {
		return sr.wizardError(err)
	}
	return &Response{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Content-Type":        artifact.MediaType,
			"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, artifact.Filename),
			"Content-Length":      strconv.Itoa(len(artifact.Data)),
		},
		Body: string(artifact.Data),
	}
}
