package docstore

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
	ErrInvalidQuery  = errors.New("invalid query")
)

// Op is a filter comparison operator.
type Op string

const (
	OpEqual          Op = "=="
	OpLess           Op = "<"
	OpLessOrEqual    Op = "<="
	OpGreater        Op = ">"
	OpGreaterOrEqual Op = ">="
)

// Filter restricts a query to documents whose Field compares to Value with Op.
type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

// Query describes a collection read. Zero Limit means no limit.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
	Offset     int
}

// Where returns a copy of q with an additional filter.
func (q Query) Where(field string, op Op, value interface{}) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// Document is a stored document. Data values are limited to string, bool,
// int64, float64, time.Time, nil and []string.
type Document struct {
	ID   string
	Data map[string]interface{}
}

// Snapshot is a full result set delivered by Watch every time it changes.
type Snapshot struct {
	Documents []Document
	ReadTime  time.Time
	Err       error
}

// Tx is the write set of a transaction. All reads must happen before the
// first write.
type Tx interface {
	Get(collection, id string) (*Document, error)
	Create(collection, id string, data map[string]interface{}) error
	Set(collection, id string, data map[string]interface{}) error
	Update(collection, id string, patch map[string]interface{}) error
	Delete(collection, id string) error
}

// Store is the document database used by every repository.
type Store interface {
	Create(ctx context.Context, collection, id string, data map[string]interface{}) error
	Set(ctx context.Context, collection, id string, data map[string]interface{}) error
	Get(ctx context.Context, collection, id string) (*Document, error)
	Update(ctx context.Context, collection, id string, patch map[string]interface{}) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, q Query) ([]Document, error)
	Count(ctx context.Context, q Query) (int, error)

	// RunTransaction runs fn atomically. If fn returns an error nothing is written.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Watch delivers the current result of q and then a new snapshot after
	// every change. The channel is closed when ctx is done.
	Watch(ctx context.Context, q Query) (<-chan Snapshot, error)

	Close() error
}

func validateQuery(q Query) error {
	if q.Collection == "" {
		return errors.Join(ErrInvalidQuery, errors.New("collection is required"))
	}
	if q.Limit < 0 || q.Offset < 0 {
		return errors.Join(ErrInvalidQuery, errors.New("limit and offset must not be negative"))
	}
	for _, f := range q.Filters {
		if f.Field == "" {
			return errors.Join(ErrInvalidQuery, errors.New("filter field is required"))
		}
		switch f.Op {
		case OpEqual, OpLess, OpLessOrEqual, OpGreater, OpGreaterOrEqual:
		default:
			return errors.Join(ErrInvalidQuery, errors.New("unsupported operator "+string(f.Op)))
		}
	}
	return nil
}
