package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/interfaces"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
	"github.com/secmon-lab/metaform/pkg/utils/safe"

	_ "modernc.org/sqlite"
)

// SQLite is a record store on a single SQLite database file. Payloads are
// stored as JSON; filtering is done on the decoded payloads so that it
// behaves exactly like the other stores.
type SQLite struct {
	db    *sql.DB
	newID func() string
}

var _ interfaces.RecordRepository = &SQLite{}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS entity_records (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		entity TEXT NOT NULL,
		record_key TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_entity_records_key ON entity_records(entity, record_key);`,
}

// New opens (and creates when missing) the database at path. Use ":memory:"
// for a throwaway database.
func New(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", path))
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			safe.Close(ctx, db)
			return nil, goerr.Wrap(err, "failed to initialize sqlite schema", goerr.V("path", path))
		}
	}

	return &SQLite{db: db, newID: uuid.NewString}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) GetEntityRecord(ctx context.Context, entity types.EntityName, key string) (*model.EntityRecord, error) {
	if err := s.requireEntity(ctx, s.db, entity); err != nil {
		return nil, err
	}

	payload, err := s.find(ctx, s.db, entity, key)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, model.NewNotFoundError(entity.String(), key)
	}
	return model.NewEntityRecord(payload), nil
}

func (s *SQLite) GetEntityRecords(ctx context.Context, entity types.EntityName, filter string) (*model.EntityRecord, error) {
	f, err := model.ParseFilter(filter)
	if err != nil {
		return nil, model.NewBadRequestError("INVALID_FILTER", err.Error())
	}
	if err := s.requireEntity(ctx, s.db, entity); err != nil {
		return nil, err
	}

	payloads, err := s.list(ctx, s.db, entity, f)
	if err != nil {
		return nil, err
	}
	records := make([]*model.EntityRecord, len(payloads))
	for i, p := range payloads {
		records[i] = model.NewEntityRecord(p)
	}
	return model.NewEntityRecordList(records), nil
}

func (s *SQLite) CreateEntityRecord(ctx context.Context, entity types.EntityName, payload map[string]any) (*model.EntityRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin transaction", goerr.V(model.EntityNameKey, entity))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := s.requireEntity(ctx, tx, entity); err != nil {
		return nil, err
	}
	keyNames, err := s.keyNames(ctx, tx, entity)
	if err != nil {
		return nil, err
	}

	prepared, key, err := model.PrepareNewRecord(entity, payload, keyNames, s.newID)
	if err != nil {
		return nil, err
	}

	existing, err := s.find(ctx, tx, entity, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, model.NewConflictError(entity.String(), key)
	}

	raw, err := json.Marshal(prepared)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode record", goerr.V(model.EntityNameKey, entity))
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO entity_records (entity, record_key, payload, created_at) VALUES (?, ?, ?, ?)`,
		entity.String(), key, string(raw), time.Now().UTC(),
	); err != nil {
		return nil, goerr.Wrap(err, "failed to insert record",
			goerr.V(model.EntityNameKey, entity),
			goerr.V(model.RecordKeyKey, key))
	}

	if err := tx.Commit(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit record", goerr.V(model.EntityNameKey, entity))
	}
	return model.NewEntityRecord(prepared), nil
}

// queryer is the part of *sql.DB and *sql.Tx used by the read helpers
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLite) requireEntity(ctx context.Context, q queryer, entity types.EntityName) error {
	if entity.IsMeta() {
		return nil
	}
	payload, err := s.find(ctx, q, types.EntityOfEntities, entity.String())
	if err != nil {
		return err
	}
	if payload == nil {
		return model.NewEntityNotFoundError(entity.String())
	}
	return nil
}

func (s *SQLite) keyNames(ctx context.Context, q queryer, entity types.EntityName) ([]string, error) {
	if names := model.MetaKeyNames(entity); names != nil {
		return names, nil
	}
	payloads, err := s.list(ctx, q, types.EntityOfFields, model.Filter{Attribute: "entity", Value: entity.String()})
	if err != nil {
		return nil, err
	}
	fields := make([]*model.EntityRecord, len(payloads))
	for i, p := range payloads {
		fields[i] = model.NewEntityRecord(p)
	}
	return model.KeyNamesFromFields(fields), nil
}

func (s *SQLite) find(ctx context.Context, q queryer, entity types.EntityName, key string) (map[string]any, error) {
	var raw string
	err := q.QueryRowContext(ctx,
		`SELECT payload FROM entity_records WHERE entity = ? AND record_key = ?`,
		entity.String(), key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query record",
			goerr.V(model.EntityNameKey, entity),
			goerr.V(model.RecordKeyKey, key))
	}
	return decodePayload(raw)
}

func (s *SQLite) list(ctx context.Context, q queryer, entity types.EntityName, f model.Filter) ([]map[string]any, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT payload FROM entity_records WHERE entity = ? ORDER BY seq`,
		entity.String(),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query records", goerr.V(model.EntityNameKey, entity))
	}
	defer safe.Close(ctx, rows)

	var payloads []map[string]any
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, goerr.Wrap(err, "failed to scan record", goerr.V(model.EntityNameKey, entity))
		}
		payload, err := decodePayload(raw)
		if err != nil {
			return nil, err
		}
		if f.Match(payload) {
			payloads = append(payloads, payload)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate records", goerr.V(model.EntityNameKey, entity))
	}
	return payloads, nil
}

func decodePayload(raw string) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, goerr.Wrap(err, "failed to decode stored record")
	}
	return payload, nil
}
