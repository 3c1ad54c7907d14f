package medication

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alaga-care/care-service/internal/docstore"
)

// LogCollection holds one document per administered dose.
const LogCollection = "medication_logs"

// maxClockSkew is how far in the future a reported dose time may lie.
const maxClockSkew = 5 * time.Minute

// DoseLog records that a dose was given. Logs outlive their medication.
type DoseLog struct {
	ID            string    `json:"id"`
	MedicationID  string    `json:"medication_id"`
	CareProfileID string    `json:"care_profile_id"`
	UserID        string    `json:"user_id"`
	TakenAt       time.Time `json:"taken_at"`
	Quantity      int64     `json:"quantity"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type LogDoseRequest struct {
	TakenAt  *time.Time `json:"taken_at,omitempty"`
	Quantity int64      `json:"quantity,omitempty"`
	Notes    string     `json:"notes,omitempty"`
}

// Validate fills in defaults and returns when the dose was taken.
func (r *LogDoseRequest) Validate(now time.Time) (time.Time, error) {
	if r.Quantity < 0 {
		return time.Time{}, ErrInvalidQuantity
	}
	if r.Quantity == 0 {
		r.Quantity = 1
	}
	if r.TakenAt == nil {
		return now, nil
	}
	takenAt := r.TakenAt.UTC().Truncate(docstore.Precision)
	if takenAt.After(now.Add(maxClockSkew)) {
		return time.Time{}, ErrDoseInFuture
	}
	return takenAt, nil
}

type DoseLogListResponse struct {
	Logs  []DoseLog `json:"logs"`
	Total int       `json:"total"`
}

// LogRange bounds a log listing by calendar day. Empty bounds are open.
type LogRange struct {
	StartDate string
	EndDate   string
}

func (lr LogRange) bounds() (from, until time.Time, err error) {
	if err := validateWindow(lr.StartDate, lr.EndDate); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if lr.StartDate != "" {
		from, _ = time.Parse(DateLayout, lr.StartDate)
	}
	if lr.EndDate != "" {
		end, _ := time.Parse(DateLayout, lr.EndDate)
		until = end.AddDate(0, 0, 1)
	}
	return from, until, nil
}

func (l *DoseLog) toDocument() map[string]interface{} {
	return map[string]interface{}{
		"medication_id":   l.MedicationID,
		"care_profile_id": l.CareProfileID,
		"user_id":         l.UserID,
		"taken_at":        l.TakenAt,
		"quantity":        l.Quantity,
		"notes":           l.Notes,
		"created_at":      l.CreatedAt,
	}
}

func logFromDocument(doc *docstore.Document) *DoseLog {
	quantity, ok := docstore.IntField(doc.Data, "quantity")
	if !ok {
		quantity = 1
	}
	return &DoseLog{
		ID:            doc.ID,
		MedicationID:  docstore.StringField(doc.Data, "medication_id"),
		CareProfileID: docstore.StringField(doc.Data, "care_profile_id"),
		UserID:        docstore.StringField(doc.Data, "user_id"),
		TakenAt:       docstore.TimeField(doc.Data, "taken_at"),
		Quantity:      quantity,
		Notes:         docstore.StringField(doc.Data, "notes"),
		CreatedAt:     docstore.TimeField(doc.Data, "created_at"),
	}
}

// LogDose stores entry, marks the medication taken and takes one unit off
// a tracked inventory that is above zero. It returns the medication before
// and after the change.
func (r *Repository) LogDose(ctx context.Context, entry *DoseLog) (*Medication, *Medication, error) {
	var old, updated *Medication
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		current, err := getInTx(tx, entry.CareProfileID, entry.MedicationID)
		if err != nil {
			return err
		}

		patch := StatusPatch(StatusTaken, entry.CreatedAt)
		next := *current
		next.Status = StatusTaken
		next.UpdatedAt = entry.CreatedAt
		if current.InventoryCount != nil && *current.InventoryCount > 0 {
			remaining := *current.InventoryCount - 1
			patch["inventory_count"] = remaining
			next.InventoryCount = &remaining
		}

		if err := tx.Create(LogCollection, entry.ID, entry.toDocument()); err != nil {
			return err
		}
		if err := tx.Update(Collection, current.ID, patch); err != nil {
			return err
		}
		old, updated = current, &next
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrMedicationNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to log medication dose: %w", err)
	}
	return old, updated, nil
}

// ListLogs returns the profile's dose logs oldest first. An empty
// medicationID lists logs of every medication.
func (r *Repository) ListLogs(ctx context.Context, profileID, medicationID string, lr LogRange) ([]DoseLog, error) {
	from, until, err := lr.bounds()
	if err != nil {
		return nil, err
	}

	q := docstore.Query{Collection: LogCollection, OrderBy: "taken_at"}.
		Where("care_profile_id", docstore.OpEqual, profileID)
	if medicationID != "" {
		q = q.Where("medication_id", docstore.OpEqual, medicationID)
	}
	if !from.IsZero() {
		q = q.Where("taken_at", docstore.OpGreaterOrEqual, from)
	}
	if !until.IsZero() {
		q = q.Where("taken_at", docstore.OpLess, until)
	}

	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list medication logs: %w", err)
	}
	logs := make([]DoseLog, 0, len(docs))
	for i := range docs {
		logs = append(logs, *logFromDocument(&docs[i]))
	}
	return logs, nil
}
