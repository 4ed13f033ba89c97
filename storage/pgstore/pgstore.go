// Package pgstore provides a PostgreSQL implementation of the storage.Store
// interface, including transactional writes via storage.Transacter. Records
// are stored as jsonb, with list filters applied using containment queries.
//
// Examples:
//
//	store := pgstore.New("postgres://storefront@localhost/storefront?sslmode=disable")
//
//	store := pgstore.NewWithDB(db, pgstore.WithTableName("shop_store"))
package pgstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/lib/pq"

	"github.com/dpup/storefront/storage"
)

// Unique constraint violation, per the PostgreSQL error code table.
const uniqueViolation = pq.ErrorCode("23505")

// Option is a functional option for configuring the store.
type Option func(*store)

// WithTableName overrides the default table name of "storefront_store".
func WithTableName(tableName string) Option {
	return func(s *store) {
		s.ops.tableName = tableName
	}
}

// New opens a connection and returns a postgres backed store. The table is
// created optimistically on initialization; any errors are considered
// non-recoverable and will panic.
func New(conn string, opts ...Option) storage.Store {
	db, err := sql.Open("postgres", conn)
	if err != nil {
		panic("failed to open postgres connection: " + err.Error())
	}
	return NewWithDB(db, opts...)
}

// NewWithDB wraps an existing database handle. Useful when the caller
// manages pooling, or in tests running against a mock.
func NewWithDB(db *sql.DB, opts ...Option) storage.Store {
	s := &store{
		db:  db,
		ops: ops{r: db, tableName: "storefront_store"},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ensureTable()
	return s
}

type runner interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

type store struct {
	db *sql.DB
	ops
}

func (s *store) Create(models ...storage.Model) error {
	return s.inTx(func(o ops) error { return o.create(models...) })
}

func (s *store) Update(models ...storage.Model) error {
	return s.inTx(func(o ops) error { return o.update(models...) })
}

func (s *store) Upsert(models ...storage.Model) error {
	return s.inTx(func(o ops) error { return o.upsert(models...) })
}

// Transact runs fn against a transaction-bound store, committing only if fn
// succeeds.
func (s *store) Transact(fn func(storage.Store) error) error {
	return s.inTx(func(o ops) error {
		return fn(&txStore{ops: o})
	})
}

func (s *store) inTx(fn func(ops) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return translateError(err)
	}
	if err := fn(ops{r: tx, tableName: s.tableName}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return translateError(err)
	}
	return nil
}

func (s *store) ensureTable() {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS ` + s.tableName + ` (
		id TEXT,
		entity_type TEXT,
		value JSONB,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW(),
		PRIMARY KEY (id, entity_type)
	);`)
	if err != nil {
		panic("failed to create table: " + err.Error())
	}
}

type txStore struct {
	ops
}

func (t *txStore) Create(models ...storage.Model) error { return t.create(models...) }
func (t *txStore) Update(models ...storage.Model) error { return t.update(models...) }
func (t *txStore) Upsert(models ...storage.Model) error { return t.upsert(models...) }

type ops struct {
	r         runner
	tableName string
}

func (o ops) create(models ...storage.Model) error {
	for _, model := range models {
		value, err := json.Marshal(model)
		if err != nil {
			return fmt.Errorf("%w: %s", storage.ErrInvalidModel, err)
		}
		_, err = o.r.Exec("INSERT INTO "+o.tableName+" (id, entity_type, value) VALUES ($1, $2, $3)",
			model.PK(), storage.Name(model), value)
		if err != nil {
			return translateError(err)
		}
	}
	return nil
}

func (o ops) Read(id string, model storage.Model) error {
	if err := storage.ValidateReceiver(model); err != nil {
		return err
	}

	query := "SELECT value FROM " + o.tableName + " WHERE id = $1 AND entity_type = $2"
	row := o.r.QueryRow(query, id, storage.Name(model))

	var value []byte
	if err := row.Scan(&value); err != nil {
		return translateError(err)
	}
	return json.Unmarshal(value, model)
}

func (o ops) update(models ...storage.Model) error {
	for _, model := range models {
		value, err := json.Marshal(model)
		if err != nil {
			return fmt.Errorf("%w: %s", storage.ErrInvalidModel, err)
		}
		res, err := o.r.Exec(
			"UPDATE "+o.tableName+" SET value = $1, updated_at = NOW() WHERE id = $2 AND entity_type = $3",
			value, model.PK(), storage.Name(model))
		if err != nil {
			return translateError(err)
		}
		if i, err := res.RowsAffected(); i == 0 || err != nil {
			return storage.ErrNotFound
		}
	}
	return nil
}

func (o ops) upsert(models ...storage.Model) error {
	for _, model := range models {
		value, err := json.Marshal(model)
		if err != nil {
			return fmt.Errorf("%w: %s", storage.ErrInvalidModel, err)
		}
		_, err = o.r.Exec(
			`INSERT INTO `+o.tableName+` (id, entity_type, value)
			VALUES ($1, $2, $3)
			ON CONFLICT (id, entity_type) DO UPDATE SET
			value = excluded.value, updated_at = NOW()`,
			model.PK(), storage.Name(model), value)
		if err != nil {
			return translateError(err)
		}
	}
	return nil
}

func (o ops) Delete(model storage.Model) error {
	res, err := o.r.Exec("DELETE FROM "+o.tableName+" WHERE id = $1 AND entity_type = $2",
		model.PK(), storage.Name(model))
	if err != nil {
		return translateError(err)
	}
	if i, err := res.RowsAffected(); i == 0 || err != nil {
		return storage.ErrNotFound
	}
	return nil
}

func (o ops) List(models any, filter storage.Model) error {
	modelsVal := reflect.ValueOf(models)
	if modelsVal.Kind() != reflect.Ptr || modelsVal.Elem().Kind() != reflect.Slice {
		return storage.ErrSliceRequired
	}
	sliceVal := modelsVal.Elem()
	elemType := sliceVal.Type().Elem()
	if elemType != reflect.TypeOf(filter) {
		return storage.ErrTypeMismatch
	}

	query, args, err := o.buildListQuery(filter)
	if err != nil {
		return err
	}
	rows, err := o.r.Query(query, args...)
	if err != nil {
		return translateError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var value []byte
		if err := rows.Scan(&value); err != nil {
			return translateError(err)
		}

		newElemPtr := reflect.New(elemType)
		newElem := newElemPtr.Elem()
		if err := json.Unmarshal(value, newElem.Addr().Interface()); err != nil {
			return fmt.Errorf("%w: %s", storage.ErrInvalidModel, err)
		}

		sliceVal.Set(reflect.Append(sliceVal, newElem))
	}

	return translateError(rows.Err())
}

func (o ops) Exists(id string, model storage.Model) (bool, error) {
	query := "SELECT COUNT(*) FROM " + o.tableName + " WHERE id = $1 AND entity_type = $2"
	var value int
	err := o.r.QueryRow(query, id, storage.Name(model)).Scan(&value)
	if err != nil {
		return false, translateError(err)
	}
	return value > 0, nil
}

// buildListQuery expresses the filter as a single jsonb containment clause
// over the non-zero (or non-nil pointer) fields of the filter struct.
func (o ops) buildListQuery(model storage.Model) (string, []any, error) {
	filterValue := reflect.ValueOf(model)

	match := map[string]any{}
	for i := 0; i < filterValue.NumField(); i++ {
		field := filterValue.Field(i)
		typeField := filterValue.Type().Field(i)

		if (field.Kind() == reflect.Ptr && !field.IsNil()) || (!field.IsZero() && field.Kind() != reflect.Ptr) {
			match[typeField.Name] = field.Interface()
		}
	}

	query := "SELECT value FROM " + o.tableName + " WHERE entity_type = $1"
	args := []any{storage.Name(model)}
	if len(match) > 0 {
		matchJSON, err := json.Marshal(match)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %s", storage.ErrInvalidModel, err)
		}
		query += " AND value @> $2"
		args = append(args, matchJSON)
	}
	query += " ORDER BY id"
	return query, args, nil
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return storage.ErrNotFound
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
		return storage.ErrAlreadyExists
	}
	return err
}
