package firestore

import (
	"context"
	"net/url"
	"slices"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore stores records as documents of
// {prefix}entities/{ENTITY}/records/{escaped logical key}.
type Firestore struct {
	client           *firestore.Client
	collectionPrefix string
	newID            func() string
}

var _ interfaces.RecordRepository = &Firestore{}

type Option func(*Firestore)

func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.collectionPrefix = prefix
	}
}

// recordDoc is the stored shape of one record
type recordDoc struct {
	Data      map[string]any `firestore:"data"`
	Key       string         `firestore:"key"`
	CreatedAt time.Time      `firestore:"created_at"`
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID == "" {
		client, err = firestore.NewClient(ctx, projectID)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client: client,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *Firestore) records(entity types.EntityName) *firestore.CollectionRef {
	return f.client.Collection(f.collectionPrefix + "entities").Doc(entity.String()).Collection("records")
}

func docID(key string) string {
	return url.QueryEscape(key)
}

func (f *Firestore) GetEntityRecord(ctx context.Context, entity types.EntityName, key string) (*model.EntityRecord, error) {
	if err := f.requireEntity(ctx, nil, entity); err != nil {
		return nil, err
	}

	doc, err := f.records(entity).Doc(docID(key)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, model.NewNotFoundError(entity.String(), key)
		}
		return nil, goerr.Wrap(err, "failed to get record",
			goerr.V(model.EntityNameKey, entity),
			goerr.V(model.RecordKeyKey, key))
	}

	var d recordDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode record",
			goerr.V(model.EntityNameKey, entity),
			goerr.V(model.RecordKeyKey, key))
	}
	return model.NewEntityRecord(d.Data), nil
}

func (f *Firestore) GetEntityRecords(ctx context.Context, entity types.EntityName, filter string) (*model.EntityRecord, error) {
	flt, err := model.ParseFilter(filter)
	if err != nil {
		return nil, model.NewBadRequestError("INVALID_FILTER", err.Error())
	}
	if err := f.requireEntity(ctx, nil, entity); err != nil {
		return nil, err
	}

	docs, err := f.list(ctx, nil, filterQuery(f.records(entity).Query, flt))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list records", goerr.V(model.EntityNameKey, entity))
	}

	// Match re-checks candidates so that numbers compare in key form
	records := []*model.EntityRecord{}
	for _, d := range docs {
		if flt.Match(d.Data) {
			records = append(records, model.NewEntityRecord(d.Data))
		}
	}
	return model.NewEntityRecordList(records), nil
}

func (f *Firestore) CreateEntityRecord(ctx context.Context, entity types.EntityName, payload map[string]any) (*model.EntityRecord, error) {
	var created map[string]any

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := f.requireEntity(ctx, tx, entity); err != nil {
			return err
		}
		keyNames, err := f.keyNames(ctx, tx, entity)
		if err != nil {
			return err
		}

		prepared, key, err := model.PrepareNewRecord(entity, payload, keyNames, f.newID)
		if err != nil {
			return err
		}

		ref := f.records(entity).Doc(docID(key))
		if _, err := tx.Get(ref); err == nil {
			return model.NewConflictError(entity.String(), key)
		} else if status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to check record", goerr.V(model.RecordKeyKey, key))
		}

		if err := tx.Create(ref, &recordDoc{
			Data:      prepared,
			Key:       key,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return goerr.Wrap(err, "failed to create record", goerr.V(model.RecordKeyKey, key))
		}
		created = prepared
		return nil
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, model.NewConflictError(entity.String(), "")
		}
		return nil, goerr.Wrap(err, "failed to create entity record", goerr.V(model.EntityNameKey, entity))
	}

	return model.NewEntityRecord(created), nil
}

func (f *Firestore) requireEntity(ctx context.Context, tx *firestore.Transaction, entity types.EntityName) error {
	if entity.IsMeta() {
		return nil
	}

	ref := f.records(types.EntityOfEntities).Doc(docID(entity.String()))
	var err error
	if tx != nil {
		_, err = tx.Get(ref)
	} else {
		_, err = ref.Get(ctx)
	}
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return model.NewEntityNotFoundError(entity.String())
	}
	return goerr.Wrap(err, "failed to get entity descriptor", goerr.V(model.EntityNameKey, entity))
}

func (f *Firestore) keyNames(ctx context.Context, tx *firestore.Transaction, entity types.EntityName) ([]string, error) {
	if names := model.MetaKeyNames(entity); names != nil {
		return names, nil
	}

	q := f.records(types.EntityOfFields).Where("data.entity", "==", entity.String())
	docs, err := f.list(ctx, tx, q)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list fields", goerr.V(model.EntityNameKey, entity))
	}

	fields := make([]*model.EntityRecord, len(docs))
	for i, d := range docs {
		fields[i] = model.NewEntityRecord(d.Data)
	}
	return model.KeyNamesFromFields(fields), nil
}

// filterQuery narrows q to documents whose attribute equals the filter value
// as a string, a reference key or name, or a parsed bool or number. An empty
// value also matches missing attributes and is evaluated in memory only.
func filterQuery(q firestore.Query, flt model.Filter) firestore.Query {
	if flt.IsZero() || flt.Value == "" {
		return q
	}

	field := firestore.FieldPath{"data", flt.Attribute}
	eq := func(path firestore.FieldPath, v any) firestore.EntityFilter {
		return firestore.PropertyPathFilter{Path: path, Operator: "==", Value: v}
	}

	filters := []firestore.EntityFilter{
		eq(field, flt.Value),
		eq(firestore.FieldPath{"data", flt.Attribute, "name"}, flt.Value),
		eq(firestore.FieldPath{"data", flt.Attribute, model.IDKey}, flt.Value),
	}
	if b, err := strconv.ParseBool(flt.Value); err == nil {
		filters = append(filters, eq(field, b))
	}
	if n, err := strconv.ParseInt(flt.Value, 10, 64); err == nil {
		filters = append(filters, eq(field, n))
	} else if x, err := strconv.ParseFloat(flt.Value, 64); err == nil {
		filters = append(filters, eq(field, x))
	}

	return q.WhereEntity(firestore.OrFilter{Filters: filters})
}

// list returns the documents matched by q in creation order
func (f *Firestore) list(ctx context.Context, tx *firestore.Transaction, q firestore.Query) ([]*recordDoc, error) {
	var iter *firestore.DocumentIterator
	if tx != nil {
		iter = tx.Documents(q)
	} else {
		iter = q.Documents(ctx)
	}
	defer iter.Stop()

	var docs []*recordDoc
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate records")
		}

		var d recordDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to decode record", goerr.V("docID", doc.Ref.ID))
		}
		docs = append(docs, &d)
	}

	slices.SortStableFunc(docs, func(a, b *recordDoc) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return docs, nil
}
