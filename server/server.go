package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"

	"github.com/ahmadzakiakmal/shiptrack/srvreg"
)

// maxBodyBytes caps request bodies; shipment records are small
const maxBodyBytes = 1 << 20

// WebServer exposes the service registry over HTTP
type WebServer struct {
	httpAddr        string
	server          *http.Server
	listener        net.Listener
	serviceRegistry *srvreg.ServiceRegistry
	startTime       time.Time
	nodeID          string
	logger          cmtlog.Logger
}

// NewWebServer creates a new web server
func NewWebServer(httpPort string, serviceRegistry *srvreg.ServiceRegistry, nodeID string, logger cmtlog.Logger) *WebServer {
	if logger == nil {
		logger = cmtlog.NewNopLogger()
	}
	mux := http.NewServeMux()

	ws := &WebServer{
		httpAddr: ":" + httpPort,
		server: &http.Server{
			Addr:              ":" + httpPort,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		serviceRegistry: serviceRegistry,
		startTime:       time.Now(),
		nodeID:          nodeID,
		logger:          logger,
	}

	// Register routes
	mux.HandleFunc("/", ws.handleRoot)
	mux.HandleFunc("/info", ws.handleService)
	mux.HandleFunc("/api/", ws.handleService)
	mux.HandleFunc("/wizard/", ws.handleService)

	return ws
}

// Handler returns the HTTP handler serving every route
func (ws *WebServer) Handler() http.Handler {
	return ws.server.Handler
}

// Addr returns the bound address once Start has returned
func (ws *WebServer) Addr() string {
	if ws.listener != nil {
		return ws.listener.Addr().String()
	}
	return ws.httpAddr
}

// Start binds the listener and serves in the background
func (ws *WebServer) Start() error {
	ln, err := net.Listen("tcp", ws.httpAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", ws.httpAddr, err)
	}
	ws.listener = ln
	ws.logger.Info("Starting web server", "node_id", ws.nodeID, "addr", ln.Addr().String())

	go func() {
		if err := ws.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ws.logger.Error("Web server error", "err", err)
		}
	}()
	return nil
}

// Shutdown gracefully shuts down the web server
func (ws *WebServer) Shutdown(ctx context.Context) error {
	ws.logger.Info("Shutting down web server")
	return ws.server.Shutdown(ctx)
}

// handleRoot shows node information
func (ws *WebServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		jsonError(w, "Not found", http.StatusNotFound)
		return
	}

	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(ws.startTime).Round(time.Second)

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)

	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>Shipment Intake - %s</title></head>
<body>
    <h1>Shipment Intake Node</h1>
    <p>Node ID: %s</p>
    <p>Uptime: %s</p>
    <h3>Available Endpoints:</h3>
    <ul>
        <li>GET /info - Node information</li>
        <li>POST /api/shipments - Store a shipment record</li>
        <li>GET /api/shipments - List stored shipments</li>
        <li>GET /api/shipments/:id - Get a stored shipment</li>
        <li>POST /wizard/start - Start an intake session</li>
        <li>GET /wizard/:id - Show an intake session</li>
        <li>DELETE /wizard/:id - Discard an intake session</li>
        <li>POST /wizard/:id/field - Set a field</li>
        <li>POST /wizard/:id/advance - Next step</li>
        <li>POST /wizard/:id/retreat - Previous step</li>
        <li>POST /wizard/:id/jump - Edit an earlier step</li>
        <li>POST /wizard/:id/finalize - Submit the shipment</li>
        <li>GET /wizard/:id/barcode.png - Download the barcode image</li>
        <li>GET /wizard/:id/barcode.pdf - Download the barcode document</li>
    </ul>
</body>
</html>
`, ws.nodeID, ws.nodeID, uptime)

	w.Write([]byte(html))
}

// handleService routes a request through the service registry
func (ws *WebServer) handleService(w http.ResponseWriter, r *http.Request) {
	bodyBytes, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	requestID, err := generateRequestID()
	if err != nil {
		ws.logger.Error("Failed to generate request ID", "err", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	req := &srvreg.Request{
		Context:   r.Context(),
		RequestID: requestID,
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.Query(),
		Body:      string(bodyBytes),
	}

	start := time.Now()
	response, err := req.GenerateResponse(ws.serviceRegistry)
	if err != nil {
		ws.logger.Error("Error generating response", "request_id", requestID, "method", r.Method, "path", r.URL.Path, "err", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("X-Request-ID", requestID)
	writeResponse(w, response)

	ws.logger.Info("API request processed",
		"request_id", requestID,
		"method", r.Method,
		"path", r.URL.Path,
		"status", response.StatusCode,
		"took", time.Since(start),
	)
}

func generateRequestID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// writeResponse writes a Response to http.ResponseWriter
func writeResponse(w http.ResponseWriter, resp *srvreg.Response) {
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	w.Write([]byte(resp.Body))
}

// jsonError writes a JSON error response
func jsonError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := map[string]string{
		"error": message,
	}
	json.NewEncoder(w).Encode(errorResp)
}
