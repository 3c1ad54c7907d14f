package docstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore is the Store backed by Cloud Firestore.
type Firestore struct {
	client *firestore.Client
}

var _ Store = (*Firestore)(nil)

// NewFirestore connects to Firestore. An empty credentialsFile uses the
// application default credentials; FIRESTORE_EMULATOR_HOST is honoured by the
// client library.
func NewFirestore(ctx context.Context, projectID, credentialsFile string) (*Firestore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("firestore project id is required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	log.WithField("project", projectID).Info("✓ Connected to Firestore")
	return &Firestore{client: client}, nil
}

func (f *Firestore) doc(collection, id string) *firestore.DocumentRef {
	return f.client.Collection(collection).Doc(id)
}

func (f *Firestore) Create(ctx context.Context, collection, id string, data map[string]interface{}) error {
	if _, err := f.doc(collection, id).Create(ctx, data); err != nil {
		return mapFirestoreError(collection, id, err)
	}
	return nil
}

func (f *Firestore) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	if _, err := f.doc(collection, id).Set(ctx, data); err != nil {
		return mapFirestoreError(collection, id, err)
	}
	return nil
}

func (f *Firestore) Get(ctx context.Context, collection, id string) (*Document, error) {
	snap, err := f.doc(collection, id).Get(ctx)
	if err != nil {
		return nil, mapFirestoreError(collection, id, err)
	}
	return snapshotToDocument(snap), nil
}

func (f *Firestore) Update(ctx context.Context, collection, id string, patch map[string]interface{}) error {
	if _, err := f.doc(collection, id).Update(ctx, toUpdates(patch)); err != nil {
		return mapFirestoreError(collection, id, err)
	}
	return nil
}

func (f *Firestore) Delete(ctx context.Context, collection, id string) error {
	if _, err := f.doc(collection, id).Delete(ctx, firestore.Exists); err != nil {
		return mapFirestoreError(collection, id, err)
	}
	return nil
}

func (f *Firestore) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	snaps, err := f.buildQuery(q).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
	}

	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, *snapshotToDocument(snap))
	}
	return docs, nil
}

func (f *Firestore) Count(ctx context.Context, q Query) (int, error) {
	if err := validateQuery(q); err != nil {
		return 0, err
	}
	q.Limit, q.Offset, q.OrderBy = 0, 0, ""

	fq := f.buildQuery(q)
	result, err := fq.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", q.Collection, err)
	}

	v, ok := result["total"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("unexpected count result type %T", result["total"])
	}
	return int(v.GetIntegerValue()), nil
}

func (f *Firestore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	err := f.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{f: f, tx: t})
	})
	if err != nil {
		return mapFirestoreError("", "", err)
	}
	return nil
}

func (f *Firestore) Watch(ctx context.Context, q Query) (<-chan Snapshot, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	it := f.buildQuery(q).Snapshots(ctx)
	out := make(chan Snapshot)

	go func() {
		defer close(out)
		defer it.Stop()

		for {
			qs, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
					return
				}
				select {
				case out <- Snapshot{Err: fmt.Errorf("watch %s: %w", q.Collection, err)}:
				case <-ctx.Done():
				}
				return
			}

			snaps, err := qs.Documents.GetAll()
			snapshot := Snapshot{ReadTime: qs.ReadTime}
			if err != nil {
				snapshot.Err = fmt.Errorf("read snapshot %s: %w", q.Collection, err)
			} else {
				for _, snap := range snaps {
					snapshot.Documents = append(snapshot.Documents, *snapshotToDocument(snap))
				}
			}

			select {
			case out <- snapshot:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) buildQuery(q Query) firestore.Query {
	fq := f.client.Collection(q.Collection).Query
	for _, flt := range q.Filters {
		fq = fq.Where(flt.Field, string(flt.Op), flt.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Descending {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	if q.Offset > 0 {
		fq = fq.Offset(q.Offset)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}
	return fq
}

type firestoreTx struct {
	f  *Firestore
	tx *firestore.Transaction
}

func (t *firestoreTx) Get(collection, id string) (*Document, error) {
	snap, err := t.tx.Get(t.f.doc(collection, id))
	if err != nil {
		return nil, mapFirestoreError(collection, id, err)
	}
	return snapshotToDocument(snap), nil
}

func (t *firestoreTx) Create(collection, id string, data map[string]interface{}) error {
	return t.tx.Create(t.f.doc(collection, id), data)
}

func (t *firestoreTx) Set(collection, id string, data map[string]interface{}) error {
	return t.tx.Set(t.f.doc(collection, id), data)
}

func (t *firestoreTx) Update(collection, id string, patch map[string]interface{}) error {
	return t.tx.Update(t.f.doc(collection, id), toUpdates(patch))
}

func (t *firestoreTx) Delete(collection, id string) error {
	return t.tx.Delete(t.f.doc(collection, id), firestore.Exists)
}

func toUpdates(patch map[string]interface{}) []firestore.Update {
	updates := make([]firestore.Update, 0, len(patch))
	for field, value := range patch {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{field}, Value: value})
	}
	return updates
}

func snapshotToDocument(snap *firestore.DocumentSnapshot) *Document {
	data := snap.Data()
	for k, v := range data {
		data[k] = normalizeFirestoreValue(v)
	}
	return &Document{ID: snap.Ref.ID, Data: data}
}

// normalizeFirestoreValue turns string arrays back into []string.
func normalizeFirestoreValue(v interface{}) interface{} {
	arr, ok := v.([]interface{})
	if !ok {
		return v
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if !ok {
			return v
		}
		out = append(out, s)
	}
	return out
}

func mapFirestoreError(collection, id string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyExists) {
		return err
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	case codes.AlreadyExists:
		return fmt.Errorf("%s/%s: %w", collection, id, ErrAlreadyExists)
	}
	return err
}
