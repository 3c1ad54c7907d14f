package careprofile

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/alaga-care/care-service/internal/auth"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// MaxPhotoSize is the largest accepted photo upload.
const MaxPhotoSize = 10 << 20

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

type SuccessResponse struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	CareProfile *CareProfile `json:"care_profile,omitempty"`
}

func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	var req CreateCareProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	profile, err := h.service.CreateProfile(r.Context(), principal.UserID, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(SuccessResponse{
		Success:     true,
		Message:     "Care profile created successfully",
		CareProfile: profile,
	})
}

func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	limit := DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l < 1 {
			respondError(w, http.StatusBadRequest, "validation_error", "limit must be a positive integer")
			return
		}
		limit = l
	}

	profiles, err := h.service.ListProfiles(r.Context(), principal.UserID, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(CareProfileListResponse{Profiles: profiles, Total: len(profiles)})
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	profile, err := h.service.GetProfile(r.Context(), principal.UserID, mux.Vars(r)["profileID"])
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	var req UpdateCareProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), principal.UserID, mux.Vars(r)["profileID"], req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SuccessResponse{
		Success:     true,
		Message:     "Care profile updated successfully",
		CareProfile: profile,
	})
}

func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	if err := h.service.DeleteProfile(r.Context(), principal.UserID, mux.Vars(r)["profileID"]); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadPhoto accepts a multipart form with the image in the "photo" field.
func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxPhotoSize+1<<20)
	if err := r.ParseMultipartForm(MaxPhotoSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "photo file is required")
		return
	}
	defer file.Close()

	if header.Size > MaxPhotoSize {
		respondError(w, http.StatusRequestEntityTooLarge, "photo_too_large", "photo exceeds 10 MB")
		return
	}

	profile, err := h.service.UploadPhoto(r.Context(), principal.UserID, mux.Vars(r)["profileID"],
		file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SuccessResponse{
		Success:     true,
		Message:     "Photo uploaded successfully",
		CareProfile: profile,
	})
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNameRequired), errors.Is(err, ErrInvalidAge), errors.Is(err, ErrUnsupportedPhoto):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, ErrProfileNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", "Access to this care profile is not allowed")
	case errors.Is(err, ErrPhotosDisabled):
		respondError(w, http.StatusServiceUnavailable, "photos_disabled", err.Error())
	default:
		log.WithError(err).Error("care profile request failed")
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
