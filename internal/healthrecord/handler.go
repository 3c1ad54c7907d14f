package healthrecord

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alaga-care/care-service/internal/auth"
	"github.com/alaga-care/care-service/internal/careprofile"
	"github.com/alaga-care/care-service/internal/pagination"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

type SuccessResponse struct {
	Success      bool          `json:"success"`
	Message      string        `json:"message"`
	HealthRecord *HealthRecord `json:"health_record,omitempty"`
}

func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	var req CreateHealthRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	rec, err := h.service.CreateRecord(r.Context(), principal.UserID, mux.Vars(r)["profileID"], req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(SuccessResponse{
		Success:      true,
		Message:      "Health record created successfully",
		HealthRecord: rec,
	})
}

func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	var req UpdateHealthRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	vars := mux.Vars(r)
	rec, err := h.service.UpdateRecord(r.Context(), principal.UserID, vars["profileID"], vars["id"], req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SuccessResponse{
		Success:      true,
		Message:      "Health record updated successfully",
		HealthRecord: rec,
	})
}

// ListHistory supports page, limit and type query parameters.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	params := pagination.ParseParams(r)
	resp, err := h.service.ListHistory(r.Context(), principal.UserID, mux.Vars(r)["profileID"], r.URL.Query().Get("type"), params)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	vars := mux.Vars(r)
	rec, err := h.service.GetRecord(r.Context(), principal.UserID, vars["profileID"], vars["id"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

func (h *Handler) LatestSummary(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	summary, err := h.service.LatestSummary(r.Context(), principal.UserID, mux.Vars(r)["profileID"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SummaryResponse{Latest: summary})
}

// LatestForMetric answers 200 with a null record when the metric has no
// readings.
func (h *Handler) LatestForMetric(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	vars := mux.Vars(r)
	rec, err := h.service.LatestForMetric(r.Context(), principal.UserID, vars["profileID"], vars["type"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LatestResponse{Type: typeFromToken(vars["type"]), Record: rec})
}

func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	vars := mux.Vars(r)
	if err := h.service.DeleteRecord(r.Context(), principal.UserID, vars["profileID"], vars["id"]); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidType), errors.Is(err, ErrValueRequired), errors.Is(err, ErrFutureReading):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, careprofile.ErrProfileNotFound), errors.Is(err, ErrRecordNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, careprofile.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", "Access to this care profile is not allowed")
	default:
		log.WithError(err).Error("health record request failed")
		respondError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   errorType,
		"message": message,
	})
}
