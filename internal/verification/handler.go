// All routes expect an x-user-id header forwarded by the Gateway.
//
// Routes:
//
//	GET  /certificates                   → validity of the caller's certificates
//	GET  /jobs/{jobId}/eligibility       → eligibility of the caller for a job
//	POST /jobs/{jobId}/checkin/verify    → classify a GPS check-in sample
//	POST /jobs/{jobId}/applications      → apply, gated by eligibility
//	POST /applications/{id}/move         → review / withdraw an application

package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"securyflex/verification-service/internal/application"
	"securyflex/verification-service/internal/certificate"
)

// Applications is the part of application.Service the HTTP layer needs.
type Applications interface {
	Apply(ctx context.Context, guardID, jobID string) (*application.Application, error)
	Move(ctx context.Context, actorID, appID, newStatus string) (*application.Application, error)
}

// Handler holds shared dependencies.
type Handler struct {
	svc      *Service
	apps     Applications
	validate *validator.Validate
}

// NewHandler returns a configured Handler.
func NewHandler(svc *Service, apps Applications) *Handler {
	return &Handler{svc: svc, apps: apps, validate: validator.New()}
}

// RegisterRoutes mounts all verification-service routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/certificates", h.handleCertificates)
	mux.HandleFunc("/jobs/", h.handleJobAction)
	mux.HandleFunc("/applications/", h.handleApplicationAction)
}

// ─── Route dispatch ───────────────────────────────────────────────────────────

// handleCertificates handles GET /certificates
func (h *Handler) handleCertificates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	out, err := h.svc.CertificateValidity(r.Context(), userID)
	if err != nil {
		h.writeError(w, "certificateValidity", err)
		return
	}
	jsonOK(w, out)
}

// handleJobAction handles /jobs/{jobId}/eligibility|checkin/verify|applications
func (h *Handler) handleJobAction(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 3 || parts[1] == "" {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}
	jobID := parts[1]
	action := strings.Join(parts[2:], "/")

	var method string
	var next func(http.ResponseWriter, *http.Request, string)
	switch action {
	case "eligibility":
		method, next = http.MethodGet, h.checkEligibility
	case "checkin/verify":
		method, next = http.MethodPost, h.verifyLocation
	case "applications":
		method, next = http.MethodPost, h.apply
	default:
		jsonError(w, fmt.Sprintf("unknown action %q", action), http.StatusNotFound)
		return
	}
	if r.Method != method {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	next(w, r, jobID)
}

// handleApplicationAction handles POST /applications/{id}/move
func (h *Handler) handleApplicationAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[2] != "move" {
		jsonError(w, "invalid path", http.StatusNotFound)
		return
	}
	h.moveApplication(w, r, parts[1])
}

// ─── Individual handlers ──────────────────────────────────────────────────────

func (h *Handler) checkEligibility(w http.ResponseWriter, r *http.Request, jobID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	report, err := h.svc.CheckEligibility(r.Context(), userID, jobID)
	if err != nil {
		h.writeError(w, "checkEligibility", err)
		return
	}
	jsonOK(w, report)
}

func (h *Handler) verifyLocation(w http.ResponseWriter, r *http.Request, jobID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var sample Sample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	decision, err := h.svc.VerifyLocation(r.Context(), userID, jobID, sample)
	if err != nil {
		h.writeError(w, "verifyLocation", err)
		return
	}
	jsonOK(w, decision)
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, jobID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	app, err := h.apps.Apply(r.Context(), userID, jobID)
	if err != nil {
		h.writeError(w, "apply", err)
		return
	}
	jsonOK(w, app)
}

func (h *Handler) moveApplication(w http.ResponseWriter, r *http.Request, appID string) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body struct {
		NewStatus string `json:"newStatus" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		jsonError(w, "body must contain newStatus", http.StatusBadRequest)
		return
	}

	app, err := h.apps.Move(r.Context(), userID, appID, body.NewStatus)
	if err != nil {
		h.writeError(w, "moveApplication", err)
		return
	}
	jsonOK(w, app)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("x-user-id")
	if userID == "" {
		jsonError(w, "missing x-user-id header", http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}

// writeError maps domain errors to HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	var (
		ve  *ValidationError
		ave *application.ValidationError
		ire *certificate.InvalidRangeError
	)
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, application.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &ve):
		jsonError(w, ve.Msg, http.StatusBadRequest)
	case errors.As(err, &ave):
		jsonError(w, ave.Msg, http.StatusBadRequest)
	case errors.As(err, &ire):
		jsonError(w, ire.Error(), http.StatusUnprocessableEntity)
	default:
		log.Printf("[verification] %s error: %v", op, err)
		jsonError(w, "internal server error", http.StatusInternalServerError)
	}
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
