// Package sqlitestore provides a SQLite implementation of the storage.Store
// interface, including transactional writes via storage.Transacter.
//
// Examples:
//
//	store := sqlitestore.New(
//		"file:storefront.s3db",
//		sqlitestore.WithTableName("shop_store"),
//	)
//
//	store := sqlitestore.New(":memory:")
package sqlitestore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/dpup/storefront/storage"
)

// Option is a functional option for configuring the store.
type Option func(*store)

// WithTableName overrides the default table name of "storefront_store".
func WithTableName(tableName string) Option {
	return func(s *store) {
		s.ops.tableName = tableName
	}
}

// New returns a store that provides sqlite backed storage, the table will be
// created optimistically on initialization. Any errors are considered
// non-recoverable and will panic.
func New(conn string, opts ...Option) storage.Store {
	db, err := sql.Open("sqlite3", conn)
	if err != nil {
		panic("failed to open sqlite connection: " + err.Error())
	}
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

// runner is the subset of database/sql shared by *sql.DB and *sql.Tx.
type runner interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

type store struct {
	db *sql.DB
	ops
}

// Create wraps the batch in its own transaction so a conflict midway leaves
// nothing behind.
func (s *store) Create(models ...storage.Model) error {
	return s.inTx(func(o ops) error { return o.create(models...) })
}

func (s *store) Update(models ...storage.Model) error {
	return s.inTx(func(o ops) error { return o.update(models...) })
}

func (s *store) Upsert(models ...storage.Model) error {
	return s.inTx(func(o ops) error { return o.upsert(models...) })
}

// Transact runs fn against a transaction-bound store. The batch write
// methods on the inner store share the outer transaction rather than
// starting their own, so everything fn does commits or rolls back together.
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
		value BLOB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id, entity_type)
	);`)
	if err != nil {
		panic("failed to create table: " + err.Error())
	}
}

// txStore exposes the Store interface bound to an open transaction.
type txStore struct {
	ops
}

func (t *txStore) Create(models ...storage.Model) error { return t.create(models...) }
func (t *txStore) Update(models ...storage.Model) error { return t.update(models...) }
func (t *txStore) Upsert(models ...storage.Model) error { return t.upsert(models...) }

// ops implements the storage operations against either a *sql.DB or an open
// *sql.Tx.
type ops struct {
	r         runner
	tableName string
}

func (o ops) create(models ...storage.Model) error {
	for _, model := range models {
		id := model.PK()
		entityType := storage.Name(model)
		value, err := json.Marshal(model)
		if err != nil {
			return fmt.Errorf("%w: %s", storage.ErrInvalidModel, err)
		}
		_, err = o.r.Exec("INSERT INTO "+o.tableName+" (id, entity_type, value) VALUES (?, ?, ?)",
			id, entityType, value)
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

	query := "SELECT value FROM " + o.tableName + " WHERE id = ? AND entity_type = ?"
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
			"UPDATE "+o.tableName+" SET value = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND entity_type = ?",
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
			`INSERT INTO `+o.tableName+` (id, entity_type, value, created_at, updated_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
			ON CONFLICT(id, entity_type) DO UPDATE SET
			value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
			model.PK(), storage.Name(model), value)
		if err != nil {
			return translateError(err)
		}
	}
	return nil
}

func (o ops) Delete(model storage.Model) error {
	res, err := o.r.Exec("DELETE FROM "+o.tableName+" WHERE id = ? AND entity_type = ?",
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

	query, args := o.buildListQuery(filter)
	rows, err := o.r.Query(query, args...)
	if err != nil {
		return translateError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return translateError(err)
		}

		newElemPtr := reflect.New(elemType)
		newElem := newElemPtr.Elem()
		if err := json.Unmarshal([]byte(value), newElem.Addr().Interface()); err != nil {
			return fmt.Errorf("%w: %s", storage.ErrInvalidModel, err)
		}

		sliceVal.Set(reflect.Append(sliceVal, newElem))
	}

	return translateError(rows.Err())
}

func (o ops) Exists(id string, model storage.Model) (bool, error) {
	query := "SELECT COUNT(*) FROM " + o.tableName + " WHERE id = ? AND entity_type = ?"
	var value int
	err := o.r.QueryRow(query, id, storage.Name(model)).Scan(&value)
	if err != nil {
		return false, translateError(err)
	}
	return value > 0, nil
}

func (o ops) buildListQuery(model storage.Model) (string, []any) {
	filterValue := reflect.ValueOf(model)

	var whereClauses []string
	var params []interface{}
	entityType := storage.Name(model)
	whereClauses = append(whereClauses, "entity_type = ?")
	params = append(params, entityType)

	for i := 0; i < filterValue.NumField(); i++ {
		field := filterValue.Field(i)
		typeField := filterValue.Type().Field(i)

		// Only include fields that are non-nil pointers or are non-zero values.
		if (field.Kind() == reflect.Ptr && !field.IsNil()) || (!field.IsZero() && field.Kind() != reflect.Ptr) {
			w := fmt.Sprintf("json_extract(value, '$.%s') = ?", typeField.Name)
			whereClauses = append(whereClauses, w)
			params = append(params, field.Interface())
		}
	}

	whereClause := "WHERE " + strings.Join(whereClauses, " AND ")
	query := fmt.Sprintf("SELECT value FROM %s %s ORDER BY id", o.tableName, whereClause)
	return query, params
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return storage.ErrNotFound
	}
	if sqlErr, ok := err.(sqlite3.Error); ok {
		switch sqlErr.Code {
		case sqlite3.ErrNotFound:
			return storage.ErrNotFound
		case sqlite3.ErrConstraint:
			return storage.ErrAlreadyExists
		}
	}
	return err
}
