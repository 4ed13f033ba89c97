// Package memorystore implements storage.Store in a purely in-memory manner.
// Data does not survive a restart; it is intended for tests and local
// development.
package memorystore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/dpup/storefront/errors"
	"github.com/dpup/storefront/storage"
)

// New returns a store that provides transient, in-memory storage.
func New() storage.Store {
	return &store{
		data: map[string]map[string][]byte{},
	}
}

type store struct {
	// store[tableName][entityID] = JSON
	data map[string]map[string][]byte
	mu   sync.RWMutex

	// Serializes transactions. Writers outside a transaction are not blocked,
	// matching the weak guarantees expected of a dev/test store.
	txmu sync.Mutex
}

func (s *store) Create(models ...storage.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before writing anything so a conflict midway
	// doesn't leave a partial batch behind.
	encoded := make([][]byte, len(models))
	for i, m := range models {
		n := storage.Name(m)
		if s.data[n] != nil && s.data[n][m.PK()] != nil {
			return errors.Mark(storage.ErrAlreadyExists, 0)
		}
		jsonBytes, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("%w: %s", storage.ErrInvalidModel, err)
		}
		encoded[i] = jsonBytes
	}
	for i, m := range models {
		n := storage.Name(m)
		if s.data[n] == nil {
			s.data[n] = map[string][]byte{}
		}
		s.data[n][m.PK()] = encoded[i]
	}
	return nil
}

func (s *store) Read(id string, model storage.Model) error {
	if err := storage.ValidateReceiver(model); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readLocked(id, model)
}

func (s *store) readLocked(id string, model storage.Model) error {
	n := storage.Name(model)
	if s.data[n] == nil || s.data[n][id] == nil {
		return errors.Mark(storage.ErrNotFound, 0)
	}
	return json.Unmarshal(s.data[n][id], model)
}

func (s *store) Update(models ...storage.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	encoded := make([][]byte, len(models))
	for i, m := range models {
		n := storage.Name(m)
		if s.data[n] == nil || s.data[n][m.PK()] == nil {
			return errors.Mark(storage.ErrNotFound, 0)
		}
		jsonBytes, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("%w: %s", storage.ErrInvalidModel, err)
		}
		encoded[i] = jsonBytes
	}
	for i, m := range models {
		s.data[storage.Name(m)][m.PK()] = encoded[i]
	}
	return nil
}

func (s *store) Upsert(models ...storage.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	encoded := make([][]byte, len(models))
	for i, m := range models {
		jsonBytes, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("%w: %s", storage.ErrInvalidModel, err)
		}
		encoded[i] = jsonBytes
	}
	for i, m := range models {
		n := storage.Name(m)
		if s.data[n] == nil {
			s.data[n] = map[string][]byte{}
		}
		s.data[n][m.PK()] = encoded[i]
	}
	return nil
}

func (s *store) Delete(model storage.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := storage.Name(model)
	id := model.PK()
	if s.data[n] == nil || s.data[n][id] == nil {
		return errors.Mark(storage.ErrNotFound, 0)
	}
	delete(s.data[n], id)
	return nil
}

// List always performs a full scan of all items.
func (s *store) List(models interface{}, filter storage.Model) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	modelsVal := reflect.ValueOf(models)
	if modelsVal.Kind() != reflect.Ptr || modelsVal.Elem().Kind() != reflect.Slice {
		return storage.ErrSliceRequired
	}

	sliceVal := modelsVal.Elem()
	elemType := sliceVal.Type().Elem()
	if elemType != reflect.TypeOf(filter) {
		return storage.ErrTypeMismatch
	}

	n := storage.Name(filter)
	if s.data[n] == nil {
		return nil
	}

	// Return models sorted by primary key.
	pks := make([]string, 0, len(s.data[n]))
	for pk := range s.data[n] {
		pks = append(pks, pk)
	}
	sort.Strings(pks)

	filterValue := reflect.ValueOf(filter)

	for _, pk := range pks {
		newElemPtr := reflect.New(elemType)
		newElem := newElemPtr.Elem()
		if err := s.readLocked(pk, newElemPtr.Interface().(storage.Model)); err != nil {
			return err
		}
		// Skip if any non-zero field in filter differs from the corresponding
		// field in model.
		skip := false
		for i := 0; i < newElem.NumField(); i++ {
			if shouldFilter(filterValue.Field(i)) {
				fieldVal := newElem.Field(i).Interface()
				testVal := filterValue.Field(i).Interface()
				if !reflect.DeepEqual(fieldVal, testVal) {
					skip = true
					break
				}
			}
		}
		if !skip {
			sliceVal.Set(reflect.Append(sliceVal, newElem))
		}
	}

	return nil
}

func (s *store) Exists(id string, model storage.Model) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := storage.Name(model)
	if s.data[n] == nil || s.data[n][id] == nil {
		return false, nil
	}
	return true, nil
}

// Transact runs fn against the live store and restores a snapshot of all
// tables if fn fails. Transactions serialize with each other but writes made
// within fn are visible to concurrent readers before commit; this store
// offers atomicity for the error path, not isolation.
func (s *store) Transact(fn func(storage.Store) error) error {
	s.txmu.Lock()
	defer s.txmu.Unlock()

	s.mu.RLock()
	snapshot := make(map[string]map[string][]byte, len(s.data))
	for table, rows := range s.data {
		cp := make(map[string][]byte, len(rows))
		for id, val := range rows {
			cp[id] = val
		}
		snapshot[table] = cp
	}
	s.mu.RUnlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// shouldFilter returns true for non-zero values and non-nil pointers.
func shouldFilter(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return !v.IsNil()
	default:
		return !reflect.DeepEqual(v.Interface(), reflect.Zero(v.Type()).Interface())
	}
}
