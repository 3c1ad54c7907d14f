package docstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s Store, collection string, docs map[string]map[string]interface{}) {
	t.Helper()
	for id, data := range docs {
		require.NoError(t, s.Create(context.Background(), collection, id, data))
	}
}

func ids(docs []Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}

func TestMemory_CreateGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Create(ctx, "medications", "m1", map[string]interface{}{"name": "Aspirin"}))

	doc, err := s.Get(ctx, "medications", "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", doc.ID)
	assert.Equal(t, "Aspirin", doc.Data["name"])

	err = s.Create(ctx, "medications", "m1", map[string]interface{}{"name": "Other"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = s.Get(ctx, "medications", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ReturnedDataIsACopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Create(ctx, "c", "1", map[string]interface{}{"name": "a"}))

	doc, err := s.Get(ctx, "c", "1")
	require.NoError(t, err)
	doc.Data["name"] = "mutated"

	doc, err = s.Get(ctx, "c", "1")
	require.NoError(t, err)
	assert.Equal(t, "a", doc.Data["name"])
}

func TestMemory_UpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Create(ctx, "c", "1", map[string]interface{}{"name": "a", "status": "pending"}))

	require.NoError(t, s.Update(ctx, "c", "1", map[string]interface{}{"status": "taken"}))

	doc, err := s.Get(ctx, "c", "1")
	require.NoError(t, err)
	assert.Equal(t, "a", doc.Data["name"])
	assert.Equal(t, "taken", doc.Data["status"])

	err = s.Update(ctx, "c", "missing", map[string]interface{}{"status": "taken"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Create(ctx, "c", "1", map[string]interface{}{"name": "a"}))

	require.NoError(t, s.Delete(ctx, "c", "1"))
	_, err := s.Get(ctx, "c", "1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, "c", "1"), ErrNotFound)
}

func TestMemory_QueryFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	seed(t, s, "health_records", map[string]map[string]interface{}{
		"a": {"care_profile_id": "p1", "type": "glucose", "recorded_at": base},
		"b": {"care_profile_id": "p1", "type": "glucose", "recorded_at": base.Add(2 * time.Hour)},
		"c": {"care_profile_id": "p1", "type": "glucose", "recorded_at": base.Add(time.Hour)},
		"d": {"care_profile_id": "p2", "type": "glucose", "recorded_at": base.Add(3 * time.Hour)},
		"e": {"care_profile_id": "p1", "type": "weight", "recorded_at": base.Add(4 * time.Hour)},
	})

	q := Query{Collection: "health_records", OrderBy: "recorded_at", Descending: true}.
		Where("care_profile_id", OpEqual, "p1").
		Where("type", OpEqual, "glucose")

	docs, err := s.Query(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, ids(docs))

	q.Limit = 1
	docs, err = s.Query(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(docs))

	q.Limit, q.Offset = 2, 1
	docs, err = s.Query(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, ids(docs))

	q.Offset = 10
	docs, err = s.Query(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemory_QueryRange(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	day := func(d int) time.Time { return time.Date(2024, 5, d, 0, 0, 0, 0, time.UTC) }

	seed(t, s, "calendar_events", map[string]map[string]interface{}{
		"e1": {"care_profile_id": "p1", "date": day(1)},
		"e2": {"care_profile_id": "p1", "date": day(5)},
		"e3": {"care_profile_id": "p1", "date": day(10)},
		"e4": {"care_profile_id": "p1", "date": day(11)},
	})

	q := Query{Collection: "calendar_events", OrderBy: "date"}.
		Where("care_profile_id", OpEqual, "p1").
		Where("date", OpGreaterOrEqual, day(5)).
		Where("date", OpLessOrEqual, day(10))

	docs, err := s.Query(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"e2", "e3"}, ids(docs))
}

func TestMemory_QueryExcludesDocumentsMissingFields(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	seed(t, s, "c", map[string]map[string]interface{}{
		"with":    {"owner": "u1", "age": int64(70)},
		"without": {"owner": "u1"},
		"mixed":   {"owner": "u1", "age": "seventy"},
	})

	docs, err := s.Query(ctx, Query{Collection: "c", OrderBy: "age"})
	require.NoError(t, err)
	assert.Equal(t, []string{"mixed", "with"}, ids(docs))

	docs, err = s.Query(ctx, Query{Collection: "c"}.Where("age", OpGreater, 10))
	require.NoError(t, err)
	assert.Equal(t, []string{"with"}, ids(docs))
}

func TestMemory_Count(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	seed(t, s, "c", map[string]map[string]interface{}{
		"1": {"p": "a"}, "2": {"p": "a"}, "3": {"p": "b"},
	})

	n, err := s.Count(ctx, Query{Collection: "c", Limit: 1}.Where("p", OpEqual, "a"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMemory_QueryValidation(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	_, err := s.Query(ctx, Query{})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = s.Query(ctx, Query{Collection: "c", Filters: []Filter{{Field: "a", Op: "!=", Value: 1}}})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = s.Query(ctx, Query{Collection: "c", Limit: -1})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestMemory_TransactionCommitsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	seed(t, s, "c", map[string]map[string]interface{}{
		"a": {"status": "pending"},
		"b": {"status": "pending"},
	})

	boom := errors.New("boom")
	err := s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Update("c", "a", map[string]interface{}{"status": "taken"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	doc, err := s.Get(ctx, "c", "a")
	require.NoError(t, err)
	assert.Equal(t, "pending", doc.Data["status"])

	err = s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Update("c", "a", map[string]interface{}{"status": "taken"}); err != nil {
			return err
		}
		return tx.Update("c", "b", map[string]interface{}{"status": "taken"})
	})
	require.NoError(t, err)

	for _, id := range []string{"a", "b"} {
		doc, err := s.Get(ctx, "c", id)
		require.NoError(t, err)
		assert.Equal(t, "taken", doc.Data["status"], id)
	}
}

func TestMemory_TransactionRejectsReadAfterWrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	seed(t, s, "c", map[string]map[string]interface{}{"a": {"n": int64(1)}})

	err := s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Set("c", "b", map[string]interface{}{"n": int64(2)}); err != nil {
			return err
		}
		_, err := tx.Get("c", "a")
		return err
	})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = s.Get(ctx, "c", "b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_WatchDeliversChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewMemory()
	seed(t, s, "medications", map[string]map[string]interface{}{
		"m1": {"care_profile_id": "p1", "name": "A"},
	})

	ch, err := s.Watch(ctx, Query{Collection: "medications"}.Where("care_profile_id", OpEqual, "p1"))
	require.NoError(t, err)

	first := receive(t, ch)
	assert.Equal(t, []string{"m1"}, ids(first.Documents))

	require.NoError(t, s.Create(ctx, "medications", "m2", map[string]interface{}{"care_profile_id": "p1", "name": "B"}))

	second := receive(t, ch)
	assert.Equal(t, []string{"m1", "m2"}, ids(second.Documents))

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func receive(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "channel closed")
		require.NoError(t, snap.Err)
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot{}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "cassandra"})
	assert.Error(t, err)

	s, err := Open(context.Background(), Config{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)
}
