//go:build integration

package docstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alaga-care/care-service/internal/docstore"
	"github.com/alaga-care/care-service/internal/testutil"
)

func TestPostgresCRUD_Integration(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)

	recorded := time.Date(2024, 2, 1, 10, 0, 0, 123000, time.UTC)
	err := store.Create(ctx, "health_records", "r1", map[string]interface{}{
		"care_profile_id": "p1",
		"type":            "glucose",
		"value":           "110",
		"recorded_at":     recorded,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.Create(ctx, "health_records", "r1", map[string]interface{}{}); !errors.Is(err, docstore.ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}

	doc, err := store.Get(ctx, "health_records", "r1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got := doc.Data["recorded_at"].(time.Time); !got.Equal(recorded) {
		t.Errorf("Expected recorded_at %v, got %v", recorded, got)
	}

	if err := store.Update(ctx, "health_records", "r1", map[string]interface{}{"value": "120"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	doc, _ = store.Get(ctx, "health_records", "r1")
	if doc.Data["value"] != "120" || doc.Data["type"] != "glucose" {
		t.Errorf("Expected merged document, got %v", doc.Data)
	}

	if err := store.Delete(ctx, "health_records", "r1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "health_records", "r1"); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestPostgresQueryOrdering_Integration(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)

	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		err := store.Create(ctx, "health_records", id, map[string]interface{}{
			"care_profile_id": "p1",
			"recorded_at":     base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("Create %s failed: %v", id, err)
		}
	}
	_ = store.Create(ctx, "health_records", "other", map[string]interface{}{
		"care_profile_id": "p2",
		"recorded_at":     base.Add(10 * time.Hour),
	})

	q := docstore.Query{Collection: "health_records", OrderBy: "recorded_at", Descending: true, Limit: 2}.
		Where("care_profile_id", docstore.OpEqual, "p1")

	docs, err := store.Query(ctx, q)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "c" || docs[1].ID != "b" {
		t.Errorf("Expected [c b], got %v", docs)
	}

	total, err := store.Count(ctx, q)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected 3, got %d", total)
	}
}

func TestPostgresTransactionRollback_Integration(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupTestStore(t)

	_ = store.Create(ctx, "medications", "m1", map[string]interface{}{"status": "pending"})

	boom := errors.New("boom")
	err := store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if _, err := tx.Get("medications", "m1"); err != nil {
			return err
		}
		if err := tx.Update("medications", "m1", map[string]interface{}{"status": "taken"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	doc, _ := store.Get(ctx, "medications", "m1")
	if doc.Data["status"] != "pending" {
		t.Errorf("Expected status to stay pending, got %v", doc.Data["status"])
	}
}

func TestPostgresWatch_Integration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := testutil.SetupTestStore(t)

	ch, err := store.Watch(ctx, docstore.Query{Collection: "medications"})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	first := <-ch
	if len(first.Documents) != 0 {
		t.Fatalf("Expected empty initial snapshot, got %d", len(first.Documents))
	}

	_ = store.Create(ctx, "medications", "m1", map[string]interface{}{"name": "A"})

	select {
	case snap := <-ch:
		if len(snap.Documents) != 1 {
			t.Errorf("Expected 1 document, got %d", len(snap.Documents))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for snapshot")
	}
}
