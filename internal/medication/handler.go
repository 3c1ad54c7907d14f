package medication

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alaga-care/care-service/internal/auth"
	"github.com/alaga-care/care-service/internal/careprofile"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// KeepAliveInterval is how often an idle stream sends a comment line.
var KeepAliveInterval = 25 * time.Second

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

type SuccessResponse struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Medication *Medication `json:"medication,omitempty"`
}

func (h *Handler) CreateMedication(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	var req CreateMedicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	med, err := h.service.CreateMedication(r.Context(), principal.UserID, mux.Vars(r)["profileID"], req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(SuccessResponse{
		Success:    true,
		Message:    "Medication created successfully",
		Medication: med,
	})
}

func (h *Handler) ListMedications(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	meds, err := h.service.ListMedications(r.Context(), principal.UserID, mux.Vars(r)["profileID"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(MedicationListResponse{Medications: meds, Total: len(meds)})
}

func (h *Handler) GetMedication(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	vars := mux.Vars(r)
	med, err := h.service.GetMedication(r.Context(), principal.UserID, vars["profileID"], vars["id"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(med)
}

func (h *Handler) UpdateMedication(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	var req UpdateMedicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	vars := mux.Vars(r)
	med, err := h.service.UpdateMedication(r.Context(), principal.UserID, vars["profileID"], vars["id"], req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SuccessResponse{
		Success:    true,
		Message:    "Medication updated successfully",
		Medication: med,
	})
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	vars := mux.Vars(r)
	med, err := h.service.UpdateStatus(r.Context(), principal.UserID, vars["profileID"], vars["id"], req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SuccessResponse{
		Success:    true,
		Message:    "Medication status updated",
		Medication: med,
	})
}

func (h *Handler) DeleteMedication(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	vars := mux.Vars(r)
	if err := h.service.DeleteMedication(r.Context(), principal.UserID, vars["profileID"], vars["id"]); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) TodayMedications(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	meds, err := h.service.TodayMedications(r.Context(), principal.UserID, mux.Vars(r)["profileID"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(MedicationListResponse{Medications: meds, Total: len(meds)})
}

type LogDoseResponse struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Log        *DoseLog    `json:"log"`
	Medication *Medication `json:"medication"`
}

func (h *Handler) LogDose(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	// An empty body logs one dose taken now
	var req LogDoseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	vars := mux.Vars(r)
	entry, med, err := h.service.LogDose(r.Context(), principal.UserID, vars["profileID"], vars["id"], req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(LogDoseResponse{
		Success:    true,
		Message:    "Dose logged successfully",
		Log:        entry,
		Medication: med,
	})
}

// ListLogs serves both the per-medication and the per-profile log listing.
// start_date and end_date are optional YYYY-MM-DD bounds.
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	vars := mux.Vars(r)
	query := r.URL.Query()
	lr := LogRange{StartDate: query.Get("start_date"), EndDate: query.Get("end_date")}
	logs, err := h.service.ListLogs(r.Context(), principal.UserID, vars["profileID"], vars["id"], lr)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DoseLogListResponse{Logs: logs, Total: len(logs)})
}

// StreamMedications serves the profile's medication list as server-sent
// events. Each "medications" event carries the full list.
func (h *Handler) StreamMedications(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming_unsupported", "Streaming is not supported")
		return
	}

	ctx := r.Context()
	profileID := mux.Vars(r)["profileID"]
	updates, err := h.service.Subscribe(ctx, principal.UserID, profileID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(KeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Err != nil {
				log.WithError(update.Err).WithField("care_profile_id", profileID).Warn("medication stream failed")
				writeEvent(w, "error", map[string]string{"error": "stream_failed", "message": "Subscription interrupted"})
				flusher.Flush()
				return
			}
			writeEvent(w, "medications", MedicationListResponse{Medications: update.Medications, Total: len(update.Medications)})
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).Error("failed to encode stream event")
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNameRequired), errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidWindow),
		errors.Is(err, ErrInvalidInventory), errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrDoseInFuture):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, careprofile.ErrProfileNotFound), errors.Is(err, ErrMedicationNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, careprofile.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", "Access to this care profile is not allowed")
	default:
		log.WithError(err).Error("medication request failed")
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
