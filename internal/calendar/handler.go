package calendar

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/alaga-care/care-service/internal/auth"
	"github.com/alaga-care/care-service/internal/careprofile"
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
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Event   *CalendarEvent `json:"event,omitempty"`
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	event, err := h.service.CreateEvent(r.Context(), principal.UserID, mux.Vars(r)["profileID"], req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Message: "Calendar event created successfully",
		Event:   event,
	})
}

// ListEvents accepts optional from and to query parameters (YYYY-MM-DD).
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	q := r.URL.Query()
	events, err := h.service.ListEvents(r.Context(), principal.UserID, mux.Vars(r)["profileID"], q.Get("from"), q.Get("to"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(EventListResponse{Events: events, Total: len(events)})
}

func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	vars := mux.Vars(r)
	day, err := h.service.GetDay(r.Context(), principal.UserID, vars["profileID"], vars["date"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(day)
}

func (h *Handler) GetToday(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	day, err := h.service.GetToday(r.Context(), principal.UserID, mux.Vars(r)["profileID"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(day)
}

func (h *Handler) GetMonth(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	vars := mux.Vars(r)
	year, errYear := strconv.Atoi(vars["year"])
	month, errMonth := strconv.Atoi(vars["month"])
	if errYear != nil || errMonth != nil {
		respondError(w, http.StatusBadRequest, "validation_error", ErrInvalidMonth.Error())
		return
	}

	cal, err := h.service.GetMonth(r.Context(), principal.UserID, vars["profileID"], year, month)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cal)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	vars := mux.Vars(r)
	event, err := h.service.GetEvent(r.Context(), principal.UserID, vars["profileID"], vars["id"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(event)
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	var req UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	vars := mux.Vars(r)
	event, err := h.service.UpdateEvent(r.Context(), principal.UserID, vars["profileID"], vars["id"], req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Message: "Calendar event updated successfully",
		Event:   event,
	})
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	vars := mux.Vars(r)
	if err := h.service.DeleteEvent(r.Context(), principal.UserID, vars["profileID"], vars["id"]); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MarkEventStatus(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	var req MarkStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	vars := mux.Vars(r)
	event, err := h.service.MarkEventStatus(r.Context(), principal.UserID, vars["profileID"], vars["id"], req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Message: "Calendar event status updated",
		Event:   event,
	})
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTitleRequired), errors.Is(err, ErrInvalidType), errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidRange), errors.Is(err, ErrInvalidMonth),
		errors.Is(err, ErrRelatedNotFound):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, careprofile.ErrProfileNotFound), errors.Is(err, ErrEventNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, careprofile.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", "Access to this care profile is not allowed")
	case errors.Is(err, ErrCrossProfileLink):
		respondError(w, http.StatusConflict, "conflict", err.Error())
	default:
		log.WithError(err).Error("calendar request failed")
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
