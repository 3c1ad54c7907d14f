package healthrecord

import (
	"strings"
	"time"

	"github.com/alaga-care/care-service/internal/docstore"
	"github.com/alaga-care/care-service/internal/pagination"
)

const (
	// Collection holds every reading ever recorded.
	Collection = "health_records"

	// LatestCollection holds a copy of the newest reading per profile and
	// metric, keyed by LatestID.
	LatestCollection = "health_records_latest"
)

// clockSkew is how far in the future a reading may be stamped.
const clockSkew = 5 * time.Minute

// HealthRecord is a single reading. Value is kept as entered.
type HealthRecord struct {
	ID            string     `json:"id"`
	CareProfileID string     `json:"care_profile_id"`
	UserID        string     `json:"user_id"`
	Type          MetricType `json:"type"`
	Value         string     `json:"value"`
	Unit          string     `json:"unit"`
	Notes         string     `json:"notes,omitempty"`
	Source        string     `json:"source,omitempty"`
	RecordedAt    time.Time  `json:"recorded_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// LatestID is the id of a profile's latest-reading document for t.
func LatestID(profileID string, t MetricType) string {
	return profileID + "_" + t.String()
}

type CreateHealthRecordRequest struct {
	Type       string     `json:"type"`
	Value      string     `json:"value"`
	Unit       string     `json:"unit,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	Source     string     `json:"source,omitempty"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

// Validate normalises the request and returns the metric type and the
// reading time, which defaults to now.
func (r *CreateHealthRecordRequest) Validate(now time.Time) (MetricType, time.Time, error) {
	t, err := ParseMetricType(r.Type)
	if err != nil {
		return TypeOther, time.Time{}, err
	}

	r.Value = strings.TrimSpace(r.Value)
	if r.Value == "" {
		return t, time.Time{}, ErrValueRequired
	}
	r.Unit = strings.TrimSpace(r.Unit)
	if r.Unit == "" {
		r.Unit = t.DefaultUnit()
	}

	recordedAt := now
	if r.RecordedAt != nil {
		recordedAt = r.RecordedAt.UTC().Truncate(docstore.Precision)
		if recordedAt.After(now.Add(clockSkew)) {
			return t, time.Time{}, ErrFutureReading
		}
	}
	return t, recordedAt, nil
}

// UpdateHealthRecordRequest corrects a reading. The metric type cannot
// change. A blank unit resets it to the metric's default.
type UpdateHealthRecordRequest struct {
	Value      *string    `json:"value,omitempty"`
	Unit       *string    `json:"unit,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

func (r *UpdateHealthRecordRequest) Validate(now time.Time) error {
	if r.Value != nil {
		v := strings.TrimSpace(*r.Value)
		if v == "" {
			return ErrValueRequired
		}
		r.Value = &v
	}
	if r.Unit != nil {
		u := strings.TrimSpace(*r.Unit)
		r.Unit = &u
	}
	if r.RecordedAt != nil {
		at := r.RecordedAt.UTC().Truncate(docstore.Precision)
		if at.After(now.Add(clockSkew)) {
			return ErrFutureReading
		}
		r.RecordedAt = &at
	}
	return nil
}

// apply returns a copy of rec with the request's fields set.
func (r UpdateHealthRecordRequest) apply(rec *HealthRecord) *HealthRecord {
	next := *rec
	if r.Value != nil {
		next.Value = *r.Value
	}
	if r.Unit != nil {
		next.Unit = *r.Unit
		if next.Unit == "" {
			next.Unit = rec.Type.DefaultUnit()
		}
	}
	if r.Notes != nil {
		next.Notes = *r.Notes
	}
	if r.RecordedAt != nil {
		next.RecordedAt = *r.RecordedAt
	}
	return &next
}

func (r UpdateHealthRecordRequest) empty() bool {
	return r.Value == nil && r.Unit == nil && r.Notes == nil && r.RecordedAt == nil
}

// HistoryResponse is one page of readings, newest first.
type HistoryResponse struct {
	Records    []HealthRecord  `json:"records"`
	Pagination pagination.Meta `json:"pagination"`
}

// Summary maps each metric with at least one reading to its newest reading.
type Summary map[MetricType]HealthRecord

type LatestResponse struct {
	Type   MetricType    `json:"type"`
	Record *HealthRecord `json:"record"`
}

type SummaryResponse struct {
	Latest Summary `json:"latest"`
}

func (h *HealthRecord) toDocument() map[string]interface{} {
	data := map[string]interface{}{
		"care_profile_id": h.CareProfileID,
		"user_id":         h.UserID,
		"type":            h.Type.String(),
		"value":           h.Value,
		"unit":            h.Unit,
		"recorded_at":     h.RecordedAt,
		"created_at":      h.CreatedAt,
	}
	if h.Notes != "" {
		data["notes"] = h.Notes
	}
	if h.Source != "" {
		data["source"] = h.Source
	}
	return data
}

// toLatestDocument is the side table copy of h.
func (h *HealthRecord) toLatestDocument() map[string]interface{} {
	data := h.toDocument()
	data["record_id"] = h.ID
	return data
}

func fromDocument(doc *docstore.Document) *HealthRecord {
	return &HealthRecord{
		ID:            doc.ID,
		CareProfileID: docstore.StringField(doc.Data, "care_profile_id"),
		UserID:        docstore.StringField(doc.Data, "user_id"),
		Type:          typeFromToken(docstore.StringField(doc.Data, "type")),
		Value:         docstore.StringField(doc.Data, "value"),
		Unit:          docstore.StringField(doc.Data, "unit"),
		Notes:         docstore.StringField(doc.Data, "notes"),
		Source:        docstore.StringField(doc.Data, "source"),
		RecordedAt:    docstore.TimeField(doc.Data, "recorded_at"),
		CreatedAt:     docstore.TimeField(doc.Data, "created_at"),
	}
}

func fromLatestDocument(doc *docstore.Document) *HealthRecord {
	rec := fromDocument(doc)
	rec.ID = docstore.StringField(doc.Data, "record_id")
	return rec
}

// newer reports whether a should replace b as the latest reading. Equal
// recorded_at goes to the record created last, then to the larger id, so
// every reader picks the same record.
func newer(a, b *HealthRecord) bool {
	if !a.RecordedAt.Equal(b.RecordedAt) {
		return a.RecordedAt.After(b.RecordedAt)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
