package calendar

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/alaga-care/care-service/internal/docstore"
)

// Collection holds one document per calendar event.
const Collection = "calendar_events"

// DateLayout is the wire format of calendar days.
const DateLayout = "2006-01-02"

// CalendarEvent is a dated entry on a care profile's calendar. Date is the
// calendar day at UTC midnight.
type CalendarEvent struct {
	ID            string      `json:"id"`
	CareProfileID string      `json:"care_profile_id"`
	UserID        string      `json:"user_id"`
	Title         string      `json:"title"`
	Type          EventType   `json:"type"`
	Date          time.Time   `json:"date"`
	Time          string      `json:"time"`
	Description   string      `json:"description,omitempty"`
	RelatedID     string      `json:"related_id,omitempty"`
	Status        EventStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// MarshalJSON writes Date as YYYY-MM-DD and adds the type colour.
func (e CalendarEvent) MarshalJSON() ([]byte, error) {
	type event CalendarEvent
	return json.Marshal(struct {
		event
		Date  string `json:"date"`
		Color string `json:"color"`
	}{event(e), e.Date.Format(DateLayout), e.Type.Color()})
}

// UnmarshalJSON reads the format written by MarshalJSON. The colour is
// derived from the type and ignored.
func (e *CalendarEvent) UnmarshalJSON(data []byte) error {
	type event CalendarEvent
	var raw struct {
		event
		Date string `json:"date"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = CalendarEvent(raw.event)
	e.Date = time.Time{}
	if raw.Date != "" {
		d, err := ParseDate(raw.Date)
		if err != nil {
			return err
		}
		e.Date = d
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD day into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type CreateEventRequest struct {
	Title       string `json:"title"`
	Type        string `json:"type"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Description string `json:"description,omitempty"`
	RelatedID   string `json:"related_id,omitempty"`
	Status      string `json:"status,omitempty"`
}

// parsed holds the typed fields of a validated CreateEventRequest.
type parsed struct {
	Type   EventType
	Date   time.Time
	Status EventStatus
}

func (r *CreateEventRequest) Validate() (parsed, error) {
	var p parsed
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return p, ErrTitleRequired
	}

	p.Type = TypeOther
	if r.Type != "" {
		t, err := ParseEventType(r.Type)
		if err != nil {
			return p, err
		}
		p.Type = t
	}

	d, err := ParseDate(r.Date)
	if err != nil {
		return p, err
	}
	p.Date = d

	if r.Status != "" {
		s, err := ParseEventStatus(r.Status)
		if err != nil {
			return p, err
		}
		p.Status = s
	}
	return p, nil
}

// UpdateEventRequest only touches the fields that are set. Type and link
// are fixed at creation.
type UpdateEventRequest struct {
	Title       *string `json:"title,omitempty"`
	Date        *string `json:"date,omitempty"`
	Time        *string `json:"time,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (r *UpdateEventRequest) patch() (map[string]interface{}, error) {
	patch := map[string]interface{}{}
	if r.Title != nil {
		title := strings.TrimSpace(*r.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		patch["title"] = title
	}
	if r.Date != nil {
		d, err := ParseDate(*r.Date)
		if err != nil {
			return nil, err
		}
		patch["date"] = d
	}
	if r.Time != nil {
		patch["time"] = *r.Time
	}
	if r.Description != nil {
		patch["description"] = *r.Description
	}
	return patch, nil
}

type MarkStatusRequest struct {
	Status string `json:"status"`
}

type EventListResponse struct {
	Events []CalendarEvent `json:"events"`
	Total  int             `json:"total"`
}

// CalendarDay lists the events of one day.
type CalendarDay struct {
	Date   string          `json:"date"`
	Events []CalendarEvent `json:"events"`
}

// CalendarMonth has an entry for every day of the month, keyed YYYY-MM-DD.
type CalendarMonth struct {
	Year  int                    `json:"year"`
	Month int                    `json:"month"`
	Days  map[string]CalendarDay `json:"days"`
}

func (e *CalendarEvent) toDocument() map[string]interface{} {
	data := map[string]interface{}{
		"care_profile_id": e.CareProfileID,
		"user_id":         e.UserID,
		"title":           e.Title,
		"type":            e.Type.String(),
		"date":            e.Date,
		"time":            e.Time,
		"status":          e.Status.String(),
		"created_at":      e.CreatedAt,
		"updated_at":      e.UpdatedAt,
	}
	if e.Description != "" {
		data["description"] = e.Description
	}
	if e.RelatedID != "" {
		data["related_id"] = e.RelatedID
	}
	return data
}

func fromDocument(doc *docstore.Document) *CalendarEvent {
	return &CalendarEvent{
		ID:            doc.ID,
		CareProfileID: docstore.StringField(doc.Data, "care_profile_id"),
		UserID:        docstore.StringField(doc.Data, "user_id"),
		Title:         docstore.StringField(doc.Data, "title"),
		Type:          typeFromToken(docstore.StringField(doc.Data, "type")),
		Date:          Day(docstore.TimeField(doc.Data, "date")),
		Time:          docstore.StringField(doc.Data, "time"),
		Description:   docstore.StringField(doc.Data, "description"),
		RelatedID:     docstore.StringField(doc.Data, "related_id"),
		Status:        statusFromToken(docstore.StringField(doc.Data, "status")),
		CreatedAt:     docstore.TimeField(doc.Data, "created_at"),
		UpdatedAt:     docstore.TimeField(doc.Data, "updated_at"),
	}
}
