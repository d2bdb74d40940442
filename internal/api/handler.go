package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/friendcircle/internal/analytics"
	"github.com/eugenenazirov/friendcircle/internal/backend"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const maxEventBodyBytes = 64 << 10

// Telemetry is the part of the analytics handle exposed over HTTP.
type Telemetry interface {
	LogEvent(ctx context.Context, name string, params map[string]any) error
	SetCollectionEnabled(enabled bool)
	CollectionEnabled() bool
	SessionID() string
}

// Handler wires the initialized app and telemetry handles into HTTP handlers.
type Handler struct {
	app       *backend.App
	telemetry Telemetry

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(app *backend.App, telemetry Telemetry, opts ...HandlerOption) *Handler {
	h := &Handler{
		app:       app,
		telemetry: telemetry,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	status := "ok"
	code := http.StatusOK
	if h.app == nil || h.app.Deleted() {
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, healthResponse{
		Status:    status,
		Timestamp: h.clock(),
	})
}

func (h *Handler) handleGetApp(w http.ResponseWriter, r *http.Request) {
	_ = r
	if h.app == nil || h.app.Deleted() {
		writeError(w, http.StatusServiceUnavailable, "App unavailable", backend.ErrAppDeleted.Error())
		return
	}

	opts := h.app.Options()
	resp := appResponse{
		Name:              h.app.Name(),
		InstanceID:        h.app.InstanceID(),
		CreatedAt:         h.app.CreatedAt(),
		Platform:          opts.Platform(),
		AuthDomain:        opts.AuthDomain,
		ProjectID:         opts.ProjectID,
		StorageBucket:     opts.StorageBucket,
		MessagingSenderID: opts.MessagingSenderID,
		AppID:             opts.AppID,
		MeasurementID:     opts.MeasurementID,
	}
	if h.telemetry != nil {
		resp.SessionID = h.telemetry.SessionID()
		resp.CollectionEnabled = h.telemetry.CollectionEnabled()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLogEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if h.telemetry == nil {
		writeError(w, http.StatusServiceUnavailable, "Analytics unavailable", "analytics is not initialized")
		return
	}

	if err := h.telemetry.LogEvent(r.Context(), req.Name, req.Params); err != nil {
		switch {
		case errors.Is(err, analytics.ErrInvalidEventName):
			writeError(w, http.StatusBadRequest, "Invalid event", err.Error(),
				"Event names use 1-40 letters, digits or underscores and start with a letter")
		case errors.Is(err, analytics.ErrInvalidParam):
			writeError(w, http.StatusBadRequest, "Invalid event", err.Error())
		case errors.Is(err, analytics.ErrClosed):
			writeError(w, http.StatusServiceUnavailable, "Analytics unavailable", err.Error())
		default:
			writeInternalError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusAccepted, eventResponse{
		Name:      req.Name,
		Recorded:  h.telemetry.CollectionEnabled(),
		SessionID: h.telemetry.SessionID(),
	})
}

func (h *Handler) handlePutCollection(w http.ResponseWriter, r *http.Request) {
	var req collectionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "enabled must be provided")
		return
	}
	if h.telemetry == nil {
		writeError(w, http.StatusServiceUnavailable, "Analytics unavailable", "analytics is not initialized")
		return
	}

	h.telemetry.SetCollectionEnabled(*req.Enabled)
	writeJSON(w, http.StatusOK, collectionResponse{
		CollectionEnabled: h.telemetry.CollectionEnabled(),
		Message:           "Analytics collection updated successfully",
	})
}

// accessLogFields identifies the app and analytics session behind a request.
func (h *Handler) accessLogFields() []zap.Field {
	var fields []zap.Field
	if h.app != nil {
		fields = append(fields, zap.String("app", h.app.Name()))
	}
	if h.telemetry != nil {
		fields = append(fields, zap.String("session_id", h.telemetry.SessionID()))
	}
	return fields
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type eventRequest struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

type eventResponse struct {
	Name      string `json:"name"`
	Recorded  bool   `json:"recorded"`
	SessionID string `json:"sessionId"`
}

type collectionRequest struct {
	Enabled *bool `json:"enabled"`
}

type collectionResponse struct {
	CollectionEnabled bool   `json:"collectionEnabled"`
	Message           string `json:"message,omitempty"`
}

// appResponse mirrors the app options without the API key.
type appResponse struct {
	Name              string    `json:"name"`
	InstanceID        string    `json:"instanceId"`
	CreatedAt         time.Time `json:"createdAt"`
	Platform          string    `json:"platform"`
	AuthDomain        string    `json:"authDomain"`
	ProjectID         string    `json:"projectId"`
	StorageBucket     string    `json:"storageBucket"`
	MessagingSenderID string    `json:"messagingSenderId"`
	AppID             string    `json:"appId"`
	MeasurementID     string    `json:"measurementId"`
	SessionID         string    `json:"sessionId,omitempty"`
	CollectionEnabled bool      `json:"collectionEnabled"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
