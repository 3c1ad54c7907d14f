package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alaga-care/care-service/internal/careprofile"
	"github.com/alaga-care/care-service/internal/docstore"
	"github.com/alaga-care/care-service/internal/medication"
	"github.com/alaga-care/care-service/internal/messaging"
	"github.com/alaga-care/care-service/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ownerAuthorizer map[string]string

func (a ownerAuthorizer) Authorize(ctx context.Context, userID, profileID string) error {
	owner, ok := a[profileID]
	if !ok {
		return careprofile.ErrProfileNotFound
	}
	if owner != userID {
		return careprofile.ErrForbidden
	}
	return nil
}

type recordingMetrics struct {
	ops      []string
	outcomes []string
}

func (m *recordingMetrics) RecordCalendarEventOperation(ctx context.Context, op string) {
	m.ops = append(m.ops, op)
}

func (m *recordingMetrics) RecordPropagation(ctx context.Context, outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

type fixture struct {
	store     docstore.Store
	service   *Service
	meds      *medication.Repository
	publisher *testutil.MockPublisher
	metrics   *recordingMetrics
}

var fixedNow = time.Date(2024, 3, 15, 13, 20, 0, 0, time.UTC)

func newFixture(t *testing.T, store docstore.Store) *fixture {
	t.Helper()
	publisher := testutil.NewMockPublisher()
	metrics := &recordingMetrics{}
	profiles := ownerAuthorizer{"p1": "alice", "p2": "bob"}

	svc := NewService(NewRepository(store), profiles, publisher, metrics)
	svc.now = func() time.Time { return fixedNow }

	return &fixture{
		store:     store,
		service:   svc,
		meds:      medication.NewRepository(store),
		publisher: publisher,
		metrics:   metrics,
	}
}

func (f *fixture) addMedication(t *testing.T, profileID string) *medication.Medication {
	t.Helper()
	created := fixedNow.Add(-24 * time.Hour)
	med := &medication.Medication{
		ID: "med-" + profileID, CareProfileID: profileID, UserID: "someone", Name: "Metformin",
		Status: medication.StatusPending, CreatedAt: created, UpdatedAt: created,
	}
	require.NoError(t, f.meds.Create(context.Background(), med))
	return med
}

func (f *fixture) addEvent(t *testing.T, req CreateEventRequest) *CalendarEvent {
	t.Helper()
	event, err := f.service.CreateEvent(context.Background(), "alice", "p1", req)
	require.NoError(t, err)
	return event
}

func TestCreateEvent(t *testing.T) {
	f := newFixture(t, docstore.NewMemory())

	event := f.addEvent(t, CreateEventRequest{Title: "Cardiology", Type: "appointment", Date: "2024-03-20", Time: "09:00"})
	assert.Equal(t, TypeAppointment, event.Type)
	assert.Equal(t, StatusPending, event.Status)
	assert.Equal(t, fixedNow, event.CreatedAt)

	got, err := f.service.GetEvent(context.Background(), "alice", "p1", event.ID)
	require.NoError(t, err)
	assert.Equal(t, event, got)

	var published messaging.CalendarEventCreatedEvent
	f.publisher.DecodeLastEvent(t, messaging.EventCalendarEventCreated, &published)
	assert.Equal(t, "2024-03-20", published.Data.Date)
}

func TestCreateEvent_MedicationLinkChecks(t *testing.T) {
	f := newFixture(t, docstore.NewMemory())
	ctx := context.Background()
	other := f.addMedication(t, "p2")

	_, err := f.service.CreateEvent(ctx, "alice", "p1", CreateEventRequest{
		Title: "Dose", Type: "medication", Date: "2024-03-15", RelatedID: other.ID,
	})
	assert.ErrorIs(t, err, ErrCrossProfileLink)

	_, err = f.service.CreateEvent(ctx, "alice", "p1", CreateEventRequest{
		Title: "Dose", Type: "medication", Date: "2024-03-15", RelatedID: "missing",
	})
	assert.ErrorIs(t, err, ErrRelatedNotFound)
}

func TestMarkEventStatus_PropagatesToMedication(t *testing.T) {
	f := newFixture(t, docstore.NewMemory())
	ctx := context.Background()
	med := f.addMedication(t, "p1")
	event := f.addEvent(t, CreateEventRequest{Title: "Dose", Type: "medication", Date: "2024-03-15", RelatedID: med.ID})

	cases := []struct {
		event string
		med   medication.Status
	}{
		{"completed", medication.StatusTaken},
		{"skipped", medication.StatusSkipped},
		{"missed", medication.StatusMissed},
		{"pending", medication.StatusPending},
		{"taken", medication.StatusTaken},
	}

	for _, c := range cases {
		updated, err := f.service.MarkEventStatus(ctx, "alice", "p1", event.ID, MarkStatusRequest{Status: c.event})
		require.NoError(t, err)
		assert.Equal(t, c.event, updated.Status.String())

		stored, err := f.meds.Get(ctx, "p1", med.ID)
		require.NoError(t, err)
		assert.Equal(t, c.med, stored.Status, c.event)
		assert.Equal(t, fixedNow, stored.UpdatedAt)
	}

	assert.Equal(t, []string{"propagated", "propagated", "propagated", "propagated", "propagated"}, f.metrics.outcomes)

	var changed messaging.MedicationStatusChangedEvent
	f.publisher.DecodeLastEvent(t, messaging.EventMedicationStatusChanged, &changed)
	assert.Equal(t, event.ID, changed.Data.SourceEventID)
	assert.Equal(t, "pending", changed.Data.OldStatus)
	assert.Equal(t, "taken", changed.Data.NewStatus)
}

func TestMarkEventStatus_FailedMedicationWriteLeavesEventUnchanged(t *testing.T) {
	store := testutil.NewFaultyStore(docstore.NewMemory())
	f := newFixture(t, store)
	ctx := context.Background()
	med := f.addMedication(t, "p1")
	event := f.addEvent(t, CreateEventRequest{Title: "Dose", Type: "medication", Date: "2024-03-15", RelatedID: med.ID})

	store.FailWrites(medication.Collection, errors.New("injected failure"))

	_, err := f.service.MarkEventStatus(ctx, "alice", "p1", event.ID, MarkStatusRequest{Status: "taken"})
	require.Error(t, err)

	storedEvent, err := f.service.GetEvent(ctx, "alice", "p1", event.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, storedEvent.Status)
	assert.Equal(t, event.UpdatedAt, storedEvent.UpdatedAt)

	storedMed, err := f.meds.Get(ctx, "p1", med.ID)
	require.NoError(t, err)
	assert.Equal(t, medication.StatusPending, storedMed.Status)

	f.publisher.AssertEventCount(t, messaging.EventCalendarEventStatusChanged, 0)
	assert.Empty(t, f.metrics.outcomes)
}

func TestMarkEventStatus_DanglingLinkUpdatesEventOnly(t *testing.T) {
	f := newFixture(t, docstore.NewMemory())
	ctx := context.Background()
	med := f.addMedication(t, "p1")
	event := f.addEvent(t, CreateEventRequest{Title: "Dose", Type: "medication", Date: "2024-03-15", RelatedID: med.ID})

	require.NoError(t, f.meds.Delete(ctx, "p1", med.ID))

	updated, err := f.service.MarkEventStatus(ctx, "alice", "p1", event.ID, MarkStatusRequest{Status: "taken"})
	require.NoError(t, err)
	assert.Equal(t, StatusTaken, updated.Status)
	assert.Equal(t, []string{OutcomeDanglingLink}, f.metrics.outcomes)
	f.publisher.AssertEventCount(t, messaging.EventMedicationStatusChanged, 0)
}

func TestMarkEventStatus_CrossProfileLinkRejected(t *testing.T) {
	f := newFixture(t, docstore.NewMemory())
	ctx := context.Background()
	other := f.addMedication(t, "p2")

	// written directly, bypassing the create-time link check
	linked := &CalendarEvent{
		ID: "e-cross", CareProfileID: "p1", UserID: "alice", Title: "Dose",
		Type: TypeMedication, Date: Day(fixedNow), RelatedID: other.ID,
		CreatedAt: fixedNow, UpdatedAt: fixedNow,
	}
	require.NoError(t, NewRepository(f.store).Create(ctx, linked))

	_, err := f.service.MarkEventStatus(ctx, "alice", "p1", linked.ID, MarkStatusRequest{Status: "taken"})
	assert.ErrorIs(t, err, ErrCrossProfileLink)

	stored, err := f.meds.Get(ctx, "p2", other.ID)
	require.NoError(t, err)
	assert.Equal(t, medication.StatusPending, stored.Status)

	event, err := f.service.GetEvent(ctx, "alice", "p1", linked.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, event.Status)
}

func TestMarkEventStatus_NotLinked(t *testing.T) {
	f := newFixture(t, docstore.NewMemory())
	event := f.addEvent(t, CreateEventRequest{Title: "Walk", Type: "task", Date: "2024-03-15", RelatedID: "ignored"})

	_, err := f.service.MarkEventStatus(context.Background(), "alice", "p1", event.ID, MarkStatusRequest{Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, []string{OutcomeNotLinked}, f.metrics.outcomes)

	_, err = f.service.MarkEventStatus(context.Background(), "alice", "p1", event.ID, MarkStatusRequest{Status: "done"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestListEvents_RangeAndScope(t *testing.T) {
	f := newFixture(t, docstore.NewMemory())
	ctx := context.Background()

	f.addEvent(t, CreateEventRequest{Title: "a", Date: "2024-03-01", Time: "10:00"})
	f.addEvent(t, CreateEventRequest{Title: "b", Date: "2024-03-05", Time: "14:00"})
	f.addEvent(t, CreateEventRequest{Title: "c", Date: "2024-03-05", Time: "08:00"})
	f.addEvent(t, CreateEventRequest{Title: "d", Date: "2024-03-09"})

	_, err := f.service.CreateEvent(ctx, "bob", "p2", CreateEventRequest{Title: "other", Date: "2024-03-05"})
	require.NoError(t, err)

	events, err := f.service.ListEvents(ctx, "alice", "p1", "2024-03-01", "2024-03-05")
	require.NoError(t, err)
	titles := make([]string, 0, len(events))
	for _, e := range events {
		titles = append(titles, e.Title)
		assert.Equal(t, "p1", e.CareProfileID)
	}
	assert.Equal(t, []string{"a", "c", "b"}, titles)

	all, err := f.service.ListEvents(ctx, "alice", "p1", "", "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = f.service.ListEvents(ctx, "alice", "p1", "2024-03-09", "2024-03-01")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = f.service.ListEvents(ctx, "bob", "p1", "", "")
	assert.ErrorIs(t, err, careprofile.ErrForbidden)
}

func TestGetMonth_EveryDayPresent(t *testing.T) {
	f := newFixture(t, docstore.NewMemory())
	ctx := context.Background()

	f.addEvent(t, CreateEventRequest{Title: "leap", Date: "2024-02-29"})
	f.addEvent(t, CreateEventRequest{Title: "first", Date: "2024-02-01"})
	f.addEvent(t, CreateEventRequest{Title: "march", Date: "2024-03-01"})

	month, err := f.service.GetMonth(ctx, "alice", "p1", 2024, 2)
	require.NoError(t, err)
	assert.Len(t, month.Days, 29)
	assert.Len(t, month.Days["2024-02-29"].Events, 1)
	assert.Len(t, month.Days["2024-02-01"].Events, 1)
	assert.NotNil(t, month.Days["2024-02-10"].Events)
	assert.Empty(t, month.Days["2024-02-10"].Events)
	assert.NotContains(t, month.Days, "2024-03-01")

	_, err = f.service.GetMonth(ctx, "alice", "p1", 2024, 13)
	assert.ErrorIs(t, err, ErrInvalidMonth)
}

func TestGetDayAndToday(t *testing.T) {
	f := newFixture(t, docstore.NewMemory())
	ctx := context.Background()

	f.addEvent(t, CreateEventRequest{Title: "today", Date: "2024-03-15"})
	f.addEvent(t, CreateEventRequest{Title: "tomorrow", Date: "2024-03-16"})

	today, err := f.service.GetToday(ctx, "alice", "p1")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", today.Date)
	require.Len(t, today.Events, 1)
	assert.Equal(t, "today", today.Events[0].Title)

	day, err := f.service.GetDay(ctx, "alice", "p1", "2024-03-16")
	require.NoError(t, err)
	require.Len(t, day.Events, 1)
	assert.Equal(t, "tomorrow", day.Events[0].Title)

	_, err = f.service.GetDay(ctx, "alice", "p1", "March 16")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestUpdateAndDeleteEvent(t *testing.T) {
	f := newFixture(t, docstore.NewMemory())
	ctx := context.Background()
	event := f.addEvent(t, CreateEventRequest{Title: "Dentist", Type: "appointment", Date: "2024-03-20"})

	date := "2024-03-22"
	updated, err := f.service.UpdateEvent(ctx, "alice", "p1", event.ID, UpdateEventRequest{Date: &date})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 22, 0, 0, 0, 0, time.UTC), updated.Date)
	assert.Equal(t, "Dentist", updated.Title)

	require.NoError(t, f.service.DeleteEvent(ctx, "alice", "p1", event.ID))
	_, err = f.service.GetEvent(ctx, "alice", "p1", event.ID)
	assert.ErrorIs(t, err, ErrEventNotFound)

	_, err = f.service.GetEvent(ctx, "bob", "p2", event.ID)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestListEvents_SameDayOrderedByClockTime(t *testing.T) {
	f := newFixture(t, docstore.NewMemory())

	f.addEvent(t, CreateEventRequest{Title: "late", Date: "2024-03-05", Time: "10:00 AM"})
	f.addEvent(t, CreateEventRequest{Title: "anytime", Date: "2024-03-05", Time: "after lunch"})
	f.addEvent(t, CreateEventRequest{Title: "early", Date: "2024-03-05", Time: "9:00 AM"})
	f.addEvent(t, CreateEventRequest{Title: "evening", Date: "2024-03-05", Time: "18:30"})

	events, err := f.service.ListEvents(context.Background(), "alice", "p1", "2024-03-05", "2024-03-05")
	require.NoError(t, err)
	titles := make([]string, 0, len(events))
	for _, e := range events {
		titles = append(titles, e.Title)
	}
	assert.Equal(t, []string{"early", "late", "evening", "anytime"}, titles)
}
