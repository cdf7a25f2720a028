package srvreg

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/ahmadzakiakmal/shiptrack/intake"
	"github.com/ahmadzakiakmal/shiptrack/repository"
	"github.com/ahmadzakiakmal/shiptrack/repository/models"
	"github.com/ahmadzakiakmal/shiptrack/wizard"
)

// Request represents an incoming HTTP request
type Request struct {
	Context   context.Context
	RequestID string
	Method    string
	Path      string
	Query     url.Values
	Body      string

	// Params holds the values of :name segments of the matched pattern
	Params map[string]string
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// HandlerFunc is a function that handles a request
type HandlerFunc func(*Request) (*Response, error)

// ShipmentReader reads stored shipments; *repository.Repository satisfies it
type ShipmentReader interface {
	GetShipment(trackingID string) (*models.Shipment, *repository.RepositoryError)
	ListShipments(limit int) ([]models.Shipment, *repository.RepositoryError)
}

// ServiceRegistry manages all service handlers
type ServiceRegistry struct {
	handlers  map[string]map[string]HandlerFunc
	intake    *intake.Service
	shipments ShipmentReader
	store     wizard.Submitter
	nodeID    string
	logger    cmtlog.Logger
}

var defaultHeaders = map[string]string{
	"Content-Type": "application/json",
}

// NewServiceRegistry creates a new service registry. store backs
// POST /api/shipments and shipments backs the read endpoints.
func NewServiceRegistry(intakeSvc *intake.Service, store wizard.Submitter, shipments ShipmentReader, nodeID string, logger cmtlog.Logger) *ServiceRegistry {
	if logger == nil {
		logger = cmtlog.NewNopLogger()
	}
	return &ServiceRegistry{
		handlers:  make(map[string]map[string]HandlerFunc),
		intake:    intakeSvc,
		shipments: shipments,
		store:     store,
		nodeID:    nodeID,
		logger:    logger,
	}
}

// RegisterHandler registers a handler for a specific method and path
func (sr *ServiceRegistry) RegisterHandler(method, path string, handler HandlerFunc) {
	if sr.handlers[method] == nil {
		sr.handlers[method] = make(map[string]HandlerFunc)
	}
	sr.handlers[method][path] = handler
	sr.logger.Debug("Registered handler", "method", method, "path", path)
}

// GetHandlerForPath finds the handler for a given method and path along with
// the path parameters it binds
func (sr *ServiceRegistry) GetHandlerForPath(method, path string) (HandlerFunc, map[string]string, bool) {
	methodHandlers, exists := sr.handlers[method]
	if !exists {
		return nil, nil, false
	}

	// Try exact match first
	if handler, exists := methodHandlers[path]; exists {
		return handler, map[string]string{}, true
	}

	// Try pattern matching for paths with parameters
	for pattern, handler := range methodHandlers {
		if params, ok := matchPath(pattern, path); ok {
			return handler, params, true
		}
	}

	return nil, nil, false
}

// matchPath checks if a path matches a pattern with parameters.
// It supports patterns like "/wizard/:id/advance" matching "/wizard/123/advance"
func matchPath(pattern, path string) (map[string]string, bool) {
	patternParts := strings.Split(pattern, "/")
	pathParts := strings.Split(path, "/")

	if len(patternParts) != len(pathParts) {
		return nil, false
	}

	params := map[string]string{}
	for i := 0; i < len(patternParts); i++ {
		if strings.HasPrefix(patternParts[i], ":") {
			if pathParts[i] == "" {
				return nil, false
			}
			params[patternParts[i][1:]] = pathParts[i]
			continue
		}
		if patternParts[i] != pathParts[i] {
			return nil, false
		}
	}

	return params, true
}

// RegisterDefaultServices sets up all default endpoints
func (sr *ServiceRegistry) RegisterDefaultServices() {
	// Info endpoints
	sr.RegisterHandler("GET", "/info", sr.InfoHandler)

	// Shipment endpoints
	sr.RegisterHandler("POST", "/api/shipments", sr.CreateShipmentHandler)
	sr.RegisterHandler("GET", "/api/shipments", sr.ListShipmentsHandler)
	sr.RegisterHandler("GET", "/api/shipments/:id", sr.GetShipmentHandler)

	// Wizard endpoints
	sr.RegisterHandler("POST", "/wizard/start", sr.StartWizardHandler)
	sr.RegisterHandler("GET", "/wizard/:id", sr.GetWizardHandler)
	sr.RegisterHandler("DELETE", "/wizard/:id", sr.DiscardWizardHandler)
	sr.RegisterHandler("POST", "/wizard/:id/field", sr.UpdateFieldHandler)
	sr.RegisterHandler("POST", "/wizard/:id/advance", sr.AdvanceHandler)
	sr.RegisterHandler("POST", "/wizard/:id/retreat", sr.RetreatHandler)
	sr.RegisterHandler("POST", "/wizard/:id/jump", sr.JumpHandler)
	sr.RegisterHandler("POST", "/wizard/:id/finalize", sr.FinalizeHandler)
	sr.RegisterHandler("GET", "/wizard/:id/barcode.png", sr.BarcodePNGHandler)
	sr.RegisterHandler("GET", "/wizard/:id/barcode.pdf", sr.BarcodePDFHandler)

	sr.logger.Info("All services registered")
}

// GenerateResponse executes the request and generates a response
func (req *Request) GenerateResponse(services *ServiceRegistry) (*Response, error) {
	handler, params, found := services.GetHandlerForPath(req.Method, req.Path)

	if !found {
		return jsonResponse(404, map[string]string{
			"error": fmt.Sprintf("Service not found for %s %s", req.Method, req.Path),
		}), nil
	}

	req.Params = params
	if req.Context == nil {
		req.Context = context.Background()
	}
	return handler(req)
}
