package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/searchforge/rank_fusion/internal/contract"
	"github.com/searchforge/rank_fusion/internal/controller"
	"github.com/searchforge/rank_fusion/internal/health"
)

const defaultMaxBodyBytes = 4 << 20

// Config controls request handling.
type Config struct {
	// MaxBodyBytes caps the request body; <= 0 uses 4 MiB.
	MaxBodyBytes int64
	// TrustClientID keys rate limiting on the X-Client-Id header. When false
	// the remote host is used and the header is ignored.
	TrustClientID bool
}

// Router wires the HTTP endpoints for the fusion service.
type Router struct {
	controller    *controller.Controller
	maxBodyBytes  int64
	trustClientID bool
}

// NewRouter constructs the HTTP router.
func NewRouter(ctrl *controller.Controller, cfg Config) (*chi.Mux, error) {
	if ctrl == nil {
		return nil, fmt.Errorf("controller is required")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	r := &Router{
		controller:    ctrl,
		maxBodyBytes:  cfg.MaxBodyBytes,
		trustClientID: cfg.TrustClientID,
	}

	mux := chi.NewRouter()
	mux.Get("/healthz", r.handleHealthz)
	mux.Get("/readyz", health.Readyz(ctrl))
	mux.Post("/v1/fuse", r.handleFuse)

	return mux, nil
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Router) handleFuse(w http.ResponseWriter, req *http.Request) {
	traceID := req.Header.Get(contract.TraceIDHeader)
	if traceID == "" {
		traceID = req.URL.Query().Get("trace_id")
	}
	if traceID == "" {
		traceID = uuid.NewString()
	}
	w.Header().Set(contract.TraceIDHeader, traceID)
	ctx := contract.WithTraceID(req.Context(), traceID)

	var body contract.Request
	req.Body = http.MaxBytesReader(w, req.Body, r.maxBodyBytes)
	decoder := json.NewDecoder(req.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, contract.ErrorBody{
				RetCode: contract.CodeInputTooLarge,
				Message: fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit),
				Option:  "max_body_bytes",
				TraceID: traceID,
			})
			return
		}
		writeError(w, http.StatusBadRequest, contract.ErrorBody{
			RetCode: contract.CodeBadRequest,
			Message: "invalid JSON body: " + err.Error(),
			TraceID: traceID,
		})
		return
	}
	body.TraceID = traceID
	body.ClientID = r.clientID(req)

	resp, _, err := r.controller.Fuse(ctx, body)
	if err != nil {
		status := http.StatusInternalServerError
		errBody := contract.ErrorBody{
			RetCode: resp.RetCode,
			Message: err.Error(),
			TraceID: traceID,
		}
		var ce *controller.Error
		if errors.As(err, &ce) {
			status = ce.Status
			errBody.Message = ce.Err.Error()
			errBody.Source, errBody.Key, errBody.Option = ce.Source, ce.Key, ce.Option
		}
		writeError(w, status, errBody)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (r *Router) clientID(req *http.Request) string {
	if r.trustClientID {
		if id := strings.TrimSpace(req.Header.Get(contract.ClientIDHeader)); id != "" {
			return id
		}
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, body contract.ErrorBody) {
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}
