package medication

import (
	"fmt"
	"strings"
	"time"

	"github.com/alaga-care/care-service/internal/docstore"
)

// Collection holds one document per medication.
const Collection = "medications"

// DateLayout is the format of schedule bounds and date filters.
const DateLayout = "2006-01-02"

// Medication is a medicine given to a care recipient. Only the latest dose
// status is kept. InventoryCount is nil when stock is not tracked.
type Medication struct {
	ID             string    `json:"id"`
	CareProfileID  string    `json:"care_profile_id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	Dosage         string    `json:"dosage"`
	Frequency      string    `json:"frequency"`
	Time           string    `json:"time"`
	Status         Status    `json:"status"`
	Notes          string    `json:"notes,omitempty"`
	InventoryCount *int64    `json:"inventory_count,omitempty"`
	StartDate      string    `json:"start_date,omitempty"`
	EndDate        string    `json:"end_date,omitempty"`
	Active         bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ActiveOn reports whether the medication is due on day (YYYY-MM-DD).
func (m *Medication) ActiveOn(day string) bool {
	if !m.Active {
		return false
	}
	if m.StartDate != "" && m.StartDate > day {
		return false
	}
	return m.EndDate == "" || m.EndDate >= day
}

type CreateMedicationRequest struct {
	Name           string `json:"name"`
	Dosage         string `json:"dosage"`
	Frequency      string `json:"frequency"`
	Time           string `json:"time"`
	Status         string `json:"status,omitempty"`
	Notes          string `json:"notes,omitempty"`
	InventoryCount *int64 `json:"inventory_count,omitempty"`
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
	Active         *bool  `json:"is_active,omitempty"`
}

func (r *CreateMedicationRequest) Validate() (Status, error) {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return StatusPending, ErrNameRequired
	}
	if r.InventoryCount != nil && *r.InventoryCount < 0 {
		return StatusPending, ErrInvalidInventory
	}
	if err := validateWindow(r.StartDate, r.EndDate); err != nil {
		return StatusPending, err
	}
	if r.Status == "" {
		return StatusPending, nil
	}
	return ParseStatus(r.Status)
}

// active defaults to true when the request leaves it out.
func (r *CreateMedicationRequest) active() bool {
	return r.Active == nil || *r.Active
}

// validateWindow checks the optional YYYY-MM-DD bounds of a schedule.
func validateWindow(start, end string) error {
	for _, d := range []string{start, end} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(DateLayout, d); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDate, d)
		}
	}
	if start != "" && end != "" && end < start {
		return ErrInvalidWindow
	}
	return nil
}

// UpdateMedicationRequest only touches the fields that are set. An empty
// date clears that bound.
type UpdateMedicationRequest struct {
	Name      *string `json:"name,omitempty"`
	Dosage    *string `json:"dosage,omitempty"`
	Frequency *string `json:"frequency,omitempty"`
	Time      *string `json:"time,omitempty"`
	Notes     *string `json:"notes,omitempty"`
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
	Active    *bool   `json:"is_active,omitempty"`

	InventoryCount *int64 `json:"inventory_count,omitempty"`
}

func (r *UpdateMedicationRequest) Validate() error {
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		if trimmed == "" {
			return ErrNameRequired
		}
		r.Name = &trimmed
	}
	if r.InventoryCount != nil && *r.InventoryCount < 0 {
		return ErrInvalidInventory
	}
	var start, end string
	if r.StartDate != nil {
		start = *r.StartDate
	}
	if r.EndDate != nil {
		end = *r.EndDate
	}
	return validateWindow(start, end)
}

func (r UpdateMedicationRequest) patch() map[string]interface{} {
	patch := map[string]interface{}{}
	if r.Name != nil {
		patch["name"] = *r.Name
	}
	if r.Dosage != nil {
		patch["dosage"] = *r.Dosage
	}
	if r.Frequency != nil {
		patch["frequency"] = *r.Frequency
	}
	if r.Time != nil {
		patch["time"] = *r.Time
	}
	if r.Notes != nil {
		patch["notes"] = *r.Notes
	}
	if r.StartDate != nil {
		patch["start_date"] = *r.StartDate
	}
	if r.EndDate != nil {
		patch["end_date"] = *r.EndDate
	}
	if r.InventoryCount != nil {
		patch["inventory_count"] = *r.InventoryCount
	}
	if r.Active != nil {
		patch["is_active"] = *r.Active
	}
	return patch
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type MedicationListResponse struct {
	Medications []Medication `json:"medications"`
	Total       int          `json:"total"`
}

// ListUpdate is one delivery of a medication subscription.
type ListUpdate struct {
	Medications []Medication
	Err         error
}

// StatusPatch is the partial update that records a new dose status.
func StatusPatch(status Status, at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"status":     status.String(),
		"updated_at": at,
	}
}

func (m *Medication) toDocument() map[string]interface{} {
	doc := map[string]interface{}{
		"care_profile_id": m.CareProfileID,
		"user_id":         m.UserID,
		"name":            m.Name,
		"dosage":          m.Dosage,
		"frequency":       m.Frequency,
		"time":            m.Time,
		"status":          m.Status.String(),
		"notes":           m.Notes,
		"start_date":      m.StartDate,
		"end_date":        m.EndDate,
		"is_active":       m.Active,
		"created_at":      m.CreatedAt,
		"updated_at":      m.UpdatedAt,
	}
	if m.InventoryCount != nil {
		doc["inventory_count"] = *m.InventoryCount
	}
	return doc
}

// FromDocument decodes a stored medication.
func FromDocument(doc *docstore.Document) *Medication {
	med := &Medication{
		ID:            doc.ID,
		CareProfileID: docstore.StringField(doc.Data, "care_profile_id"),
		UserID:        docstore.StringField(doc.Data, "user_id"),
		Name:          docstore.StringField(doc.Data, "name"),
		Dosage:        docstore.StringField(doc.Data, "dosage"),
		Frequency:     docstore.StringField(doc.Data, "frequency"),
		Time:          docstore.StringField(doc.Data, "time"),
		Status:        statusFromToken(docstore.StringField(doc.Data, "status")),
		Notes:         docstore.StringField(doc.Data, "notes"),
		StartDate:     docstore.StringField(doc.Data, "start_date"),
		EndDate:       docstore.StringField(doc.Data, "end_date"),
		Active:        docstore.BoolField(doc.Data, "is_active", true),
		CreatedAt:     docstore.TimeField(doc.Data, "created_at"),
		UpdatedAt:     docstore.TimeField(doc.Data, "updated_at"),
	}
	if n, ok := docstore.IntField(doc.Data, "inventory_count"); ok {
		med.InventoryCount = &n
	}
	return med
}
