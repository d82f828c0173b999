package transport

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"office-tools-server/internal/errors"
	"office-tools-server/internal/models"
	"office-tools-server/internal/observability"
)

const (
	defaultReadTimeout     = 60 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxRequestSize  = 50 * 1024 * 1024
)

// HTTPHandler serves JSON-RPC on POST /mcp plus health and metrics.
type HTTPHandler struct {
	processor  Processor
	logger     zerolog.Logger
	metrics    *observability.Metrics
	version    string
	maxReqSize int64
	Server     *http.Server
}

// NewHTTPHandler creates a new HTTPHandler. metrics may be nil, in which
// case /metrics is not served.
func NewHTTPHandler(p Processor, logger zerolog.Logger, metrics *observability.Metrics, version string) *HTTPHandler {
	return &HTTPHandler{
		processor:  p,
		logger:     logger,
		metrics:    metrics,
		version:    version,
		maxReqSize: defaultMaxRequestSize,
		Server: &http.Server{
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
		},
	}
}

// RegisterRoutes sets up the HTTP routes for the handler.
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/mcp", h.handleMCP)
	mux.HandleFunc("/health", h.handleHealthCheck)
	if h.metrics != nil {
		mux.Handle("/metrics", h.metrics.Handler())
	}
}

// Handler returns the routes wrapped with request logging.
func (h *HTTPHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return observability.RequestLogger(h.logger, h.metrics, mux)
}

// writeJSONResponse is a helper to write JSON data to the response.
func (h *HTTPHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("error encoding JSON response")
	}
}

func (h *HTTPHandler) writeJSONErrorResponse(w http.ResponseWriter, httpStatusCode int, errorDetail *models.ErrorDetail) {
	h.writeJSONResponse(w, httpStatusCode, errors.ToErrorResponse(errorDetail))
}

func (h *HTTPHandler) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeJSONErrorResponse(w, http.StatusMethodNotAllowed,
			errors.NewInvalidRequestError(fmt.Sprintf("Method %s not allowed for /health. Use GET.", r.Method)))
		return
	}
	h.writeJSONResponse(w, http.StatusOK, models.HealthResponse{Status: "ok", Transport: "http", Version: h.version})
}

func (h *HTTPHandler) handleMCP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeJSONErrorResponse(w, http.StatusMethodNotAllowed,
			errors.NewInvalidRequestError(fmt.Sprintf("Method %s not allowed for /mcp. Use POST.", r.Method)))
		return
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		h.writeJSONErrorResponse(w, http.StatusUnsupportedMediaType,
			errors.NewInvalidRequestError("Invalid Content-Type header. Must be 'application/json' or 'application/json; charset=utf-8'."))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxReqSize)
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stdErrors.As(err, &tooLarge) {
			h.writeJSONErrorResponse(w, http.StatusRequestEntityTooLarge,
				errors.NewInvalidRequestError(fmt.Sprintf("Request body exceeds maximum size of %d bytes.", h.maxReqSize)))
			return
		}
		h.writeJSONErrorResponse(w, http.StatusBadRequest, errors.NewParseError(fmt.Sprintf("Failed to read request body: %v", err)))
		return
	}

	resp := handleMessage(r.Context(), h.processor, body)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	status := http.StatusOK
	if resp.Error != nil {
		status = errors.MapErrorToHTTPStatus(resp.Error.Code, nil)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(marshalResponse(resp)); err != nil {
		h.logger.Error().Err(err).Msg("error writing JSON-RPC response")
	}
}

// StartServer serves on port until ctx is cancelled, then shuts down
// gracefully.
func (h *HTTPHandler) StartServer(ctx context.Context, port int) error {
	h.Server.Addr = fmt.Sprintf(":%d", port)
	h.Server.Handler = h.Handler()

	errCh := make(chan error, 1)
	go func() {
		h.logger.Info().
			Int("port", port).
			Dur("read_timeout", h.Server.ReadTimeout).
			Dur("write_timeout", h.Server.WriteTimeout).
			Msg("http transport started")
		errCh <- h.Server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server on port %d failed: %w", port, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := h.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	h.logger.Info().Int("port", port).Msg("http transport shut down")
	return nil
}
