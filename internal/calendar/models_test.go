package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alaga-care/care-service/internal/docstore"
	"github.com/alaga-care/care-service/internal/medication"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarEvent_DocumentRoundTrip(t *testing.T) {
	now := time.Date(2024, 7, 3, 9, 45, 0, 500000000, time.UTC)
	day := time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)

	for typ := TypeMedication; typ < typeCount; typ++ {
		for status := StatusPending; status < statusCount; status++ {
			event := CalendarEvent{
				ID: "e1", CareProfileID: "p1", UserID: "u1", Title: "Check-up",
				Type: typ, Date: day, Time: "10:30", Status: status,
				CreatedAt: now, UpdatedAt: now,
			}
			if typ == TypeMedication {
				event.RelatedID = "m1"
				event.Description = "after breakfast"
			}
			got := fromDocument(&docstore.Document{ID: event.ID, Data: event.toDocument()})
			assert.Equal(t, &event, got, "%s/%s", typ, status)
		}
	}
}

func TestFromDocument_Fallbacks(t *testing.T) {
	doc := &docstore.Document{ID: "e1", Data: map[string]interface{}{
		"type":   "birthday",
		"status": "done",
	}}
	event := fromDocument(doc)
	assert.Equal(t, TypeOther, event.Type)
	assert.Equal(t, StatusPending, event.Status)

	event = fromDocument(&docstore.Document{ID: "e2", Data: map[string]interface{}{}})
	assert.Equal(t, TypeOther, event.Type)
	assert.Equal(t, StatusPending, event.Status)
}

func TestEventStatus_MedicationStatus(t *testing.T) {
	expected := map[EventStatus]medication.Status{
		StatusTaken:     medication.StatusTaken,
		StatusCompleted: medication.StatusTaken,
		StatusSkipped:   medication.StatusSkipped,
		StatusMissed:    medication.StatusMissed,
		StatusPending:   medication.StatusPending,
	}
	for status, want := range expected {
		assert.Equal(t, want, status.MedicationStatus(), status.String())
	}
}

func TestEventType_Color(t *testing.T) {
	assert.Equal(t, "#8A7FE0", TypeAppointment.Color())
	assert.Equal(t, "#00A3B4", TypeMedication.Color())
	assert.Equal(t, "#FF6B6B", TypeTask.Color())
	assert.Equal(t, "#4CAF50", TypeHealthCheck.Color())
	assert.Equal(t, DefaultColor, TypeOther.Color())
}

func TestCalendarEvent_MarshalJSON(t *testing.T) {
	event := CalendarEvent{
		ID: "e1", Title: "Dose", Type: TypeMedication, Status: StatusTaken,
		Date: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(event)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "2024-02-29", out["date"])
	assert.Equal(t, "#00A3B4", out["color"])
	assert.Equal(t, "medication", out["type"])
	assert.Equal(t, "taken", out["status"])
	assert.NotContains(t, out, "related_id")
}

func TestCalendarEvent_JSONRoundTrip(t *testing.T) {
	event := CalendarEvent{
		ID: "e1", CareProfileID: "p1", UserID: "alice", Title: "Dose", Type: TypeMedication,
		Date: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), Time: "08:00",
		RelatedID: "m1", Status: StatusCompleted,
		CreatedAt: time.Date(2024, 2, 28, 9, 30, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 2, 29, 8, 5, 0, 0, time.UTC),
	}
	data, err := json.Marshal(event)
	require.NoError(t, err)

	var out CalendarEvent
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, event, out)

	var zero CalendarEvent
	data, err = json.Marshal(zero)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, out.Date.IsZero())

	err = json.Unmarshal([]byte(`{"id":"e2","date":"29/02/2024"}`), &out)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestCreateEventRequest_Validate(t *testing.T) {
	req := CreateEventRequest{Title: " Doctor ", Date: "2024-03-10"}
	p, err := req.Validate()
	require.NoError(t, err)
	assert.Equal(t, "Doctor", req.Title)
	assert.Equal(t, TypeOther, p.Type)
	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), p.Date)

	tests := []struct {
		name string
		req  CreateEventRequest
		want error
	}{
		{"no title", CreateEventRequest{Date: "2024-03-10"}, ErrTitleRequired},
		{"bad type", CreateEventRequest{Title: "x", Type: "party", Date: "2024-03-10"}, ErrInvalidType},
		{"bad date", CreateEventRequest{Title: "x", Date: "10/03/2024"}, ErrInvalidDate},
		{"bad status", CreateEventRequest{Title: "x", Date: "2024-03-10", Status: "done"}, ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.req.Validate()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDay(t *testing.T) {
	manila := time.FixedZone("PHT", 8*3600)
	got := Day(time.Date(2024, 1, 2, 3, 0, 0, 0, manila))
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestTokenTables(t *testing.T) {
	tables := map[string][]string{
		"types":    typeTokens[:],
		"statuses": statusTokens[:],
		"colors":   typeColors[:],
	}
	for name, tokens := range tables {
		t.Run(name, func(t *testing.T) {
			seen := make(map[string]bool, len(tokens))
			for i, tok := range tokens {
				assert.NotEmpty(t, tok, "index %d", i)
				if name != "colors" {
					assert.False(t, seen[tok], "duplicate token %q", tok)
				}
				seen[tok] = true
			}
		})
	}

	for s := StatusPending; s < statusCount; s++ {
		assert.NotEmpty(t, s.MedicationStatus().String(), "status %d", s)
	}
}
