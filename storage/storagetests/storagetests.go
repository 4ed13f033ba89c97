// Package storagetests provides common acceptance tests for storage.Store
// implementations.
package storagetests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/storefront/errors"
	"github.com/dpup/storefront/storage"
)

type Tier int

const (
	TierBasic    Tier = 1
	TierSilver   Tier = 2
	TierGold     Tier = 3
	TierPlatinum Tier = 4
)

type Coupon struct {
	ID   string
	Code string
	Tier Tier
	Uses *int // Ptr fields allow filtering on zero values.
}

func (c Coupon) PK() string {
	return c.ID
}

type Category struct {
	ID   string
	Name string
}

func (c Category) PK() string {
	return c.ID
}

type BadModel struct {
	ID    string
	Cycle *BadModel
}

func (b BadModel) PK() string {
	return b.ID
}

func pint(i int) *int {
	return &i
}

func Run(t *testing.T, newStore func() storage.Store) {

	t.Run("TestCreateReadRoundTrip", func(t *testing.T) {
		welcome := Coupon{
			ID:   "1",
			Code: "WELCOME10",
			Tier: TierBasic,
		}
		vip := Coupon{
			ID:   "2",
			Code: "VIP25",
			Tier: TierGold,
		}

		welcome2 := Coupon{}
		vip2 := Coupon{}

		store := newStore()
		err := store.Create(welcome, vip)
		require.Nil(t, err, "unexpected error putting records")

		err = store.Read("1", &welcome2)
		require.Nil(t, err, "unexpected error getting welcome coupon")
		assert.Equal(t, welcome, welcome2)

		err = store.Read("2", &vip2)
		require.Nil(t, err, "unexpected error getting vip coupon")
		assert.Equal(t, vip, vip2)
	})

	t.Run("TestCreateConflict", func(t *testing.T) {
		c := Coupon{ID: "1", Code: "WELCOME10", Tier: TierBasic}
		dup := Coupon{ID: "1", Code: "WELCOME15", Tier: TierSilver}

		store := newStore()
		err := store.Create(c)
		require.Nil(t, err, "unexpected error putting records")

		err = store.Create(dup)
		assert.ErrorIs(t, err, storage.ErrAlreadyExists, "expected conflict error")
	})

	t.Run("TestCreateBadModel", func(t *testing.T) {
		bm := BadModel{ID: "XXX"}
		bm.Cycle = &bm

		store := newStore()
		err := store.Create(bm)
		assert.ErrorIs(t, err, storage.ErrInvalidModel, "expected invalid model error")
	})

	t.Run("TestReadNotFound", func(t *testing.T) {
		store := newStore()
		err := store.Read("1", &Coupon{})
		assert.ErrorIs(t, err, storage.ErrNotFound)

		err = store.Create(&Coupon{ID: "1", Code: "WELCOME10"})
		require.Nil(t, err, "unexpected error creating records")

		err = store.Read("2", &Coupon{})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("TestReadWithNilPointer", func(t *testing.T) {
		c := Coupon{ID: "1", Code: "WELCOME10"}

		var receiver *Coupon

		store := newStore()
		err := store.Create(c)
		require.Nil(t, err, "unexpected error putting records")

		err = store.Read("1", receiver)
		assert.ErrorIs(t, err, storage.ErrNilModel, "expected nil model error")
	})

	t.Run("TestUpdate", func(t *testing.T) {
		c := Coupon{ID: "1", Code: "WELCOME10", Tier: TierBasic}
		c2 := Coupon{}

		store := newStore()
		err := store.Create(c)
		require.Nil(t, err, "unexpected error putting records")

		err = store.Read("1", &c2)
		require.Nil(t, err, "unexpected error getting coupon")
		assert.Equal(t, c, c2)

		c.Tier = TierPlatinum
		err = store.Update(c)
		require.Nil(t, err, "unexpected error updating coupon")

		err = store.Read("1", &c2)
		require.Nil(t, err, "unexpected error getting coupon")
		assert.Equal(t, c, c2)
	})

	t.Run("TestUpdateNotExists", func(t *testing.T) {
		c := Coupon{ID: "1", Code: "WELCOME10"}

		store := newStore()
		err := store.Update(c)
		assert.ErrorIs(t, err, storage.ErrNotFound, "expected not found error")
	})

	t.Run("TestUpdateBadModel", func(t *testing.T) {
		bm := BadModel{ID: "XXX"}
		bm.Cycle = &bm

		store := newStore()
		err := store.Update(bm)
		assert.ErrorIs(t, err, storage.ErrInvalidModel, "expected invalid model error")
	})

	t.Run("TestUpsert", func(t *testing.T) {
		c := Coupon{ID: "1", Code: "WELCOME10", Tier: TierBasic}
		c2 := Coupon{}
		v2 := Coupon{}

		store := newStore()
		err := store.Create(c)
		require.Nil(t, err, "unexpected error putting records")

		c.Tier = TierSilver
		vip := Coupon{ID: "2", Code: "VIP25", Tier: TierGold}
		err = store.Upsert(c, vip)
		require.Nil(t, err, "unexpected error upserting coupons")

		err = store.Read("1", &c2)
		require.Nil(t, err, "unexpected error getting coupon")
		assert.Equal(t, c, c2)

		err = store.Read("2", &v2)
		require.Nil(t, err, "unexpected error getting coupon")
		assert.Equal(t, vip, v2)
	})

	t.Run("TestUpsertBadModel", func(t *testing.T) {
		bm := BadModel{ID: "XXX"}
		bm.Cycle = &bm

		store := newStore()
		err := store.Upsert(bm)
		assert.ErrorIs(t, err, storage.ErrInvalidModel, "expected invalid model error")
	})

	t.Run("TestDelete", func(t *testing.T) {
		store := newStore()
		err := store.Create(&Coupon{ID: "4", Code: "SUMMER5"})
		assert.Nil(t, err)

		exists, err := store.Exists("4", &Coupon{})
		assert.True(t, exists)
		assert.Nil(t, err)

		err = store.Delete(&Coupon{ID: "4"})
		assert.Nil(t, err)

		exists, err = store.Exists("4", &Coupon{})
		assert.False(t, exists)
		assert.Nil(t, err)

		err = store.Delete(&Coupon{ID: "4"})
		assert.ErrorIs(t, err, storage.ErrNotFound, "expected not found error")
	})

	t.Run("TestListErrorCases", func(t *testing.T) {
		store := newStore()

		out := []Coupon{}

		tests := []struct {
			name    string
			models  any
			filter  storage.Model
			wantErr error
		}{
			{"Ok", &out, Coupon{}, nil},
			{"Not a slice", Coupon{}, Coupon{}, storage.ErrSliceRequired},
			{"Not a pointer", out, Coupon{}, storage.ErrSliceRequired},
			{"Mismatched type", &out, Category{}, storage.ErrTypeMismatch},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if err := store.List(tt.models, tt.filter); err != tt.wantErr {
					t.Errorf("store.List() error = %v, wantErr %v", err, tt.wantErr)
				}
			})
		}
	})

	t.Run("TestList", func(t *testing.T) {

		store := newStore()
		err := store.Create(
			Coupon{"1", "WELCOME10", TierBasic, nil},
			Coupon{"2", "VIP25", TierGold, nil},
			Coupon{"3", "SUMMER5", TierSilver, nil},
		)
		assert.Nil(t, err)

		actual := []Coupon{}
		err = store.List(&actual, Coupon{})
		assert.Nil(t, err)

		expected := []Coupon{
			{"1", "WELCOME10", TierBasic, nil},
			{"2", "VIP25", TierGold, nil},
			{"3", "SUMMER5", TierSilver, nil},
		}

		assert.Equal(t, expected, actual)
	})

	t.Run("TestListFilter", func(t *testing.T) {

		store := newStore()
		err := store.Create(
			Coupon{"1", "WELCOME10", TierBasic, nil},
			Coupon{"2", "VIP25", TierGold, nil},
			Coupon{"3", "SUMMER5", TierSilver, nil},
			Coupon{"4", "FLASH15", TierGold, nil},
			Coupon{"5", "LOYAL20", TierPlatinum, nil},
		)
		assert.Nil(t, err)

		actual := []Coupon{}
		err = store.List(&actual, Coupon{Tier: TierGold})
		assert.Nil(t, err)

		expected := []Coupon{
			{"2", "VIP25", TierGold, nil},
			{"4", "FLASH15", TierGold, nil},
		}

		assert.Equal(t, expected, actual)
	})

	t.Run("TestListFilterZero", func(t *testing.T) {

		store := newStore()
		err := store.Create(
			Coupon{"1", "WELCOME10", TierBasic, pint(4)},
			Coupon{"2", "VIP25", TierGold, pint(3)},
			Coupon{"3", "SUMMER5", TierSilver, pint(0)},
			Coupon{"4", "FLASH15", TierGold, pint(0)},
			Coupon{"5", "LOYAL20", TierPlatinum, nil},
		)
		assert.Nil(t, err)

		actual := []Coupon{}
		err = store.List(&actual, Coupon{Uses: pint(0)})
		assert.Nil(t, err)

		expected := []Coupon{
			{"3", "SUMMER5", TierSilver, pint(0)},
			{"4", "FLASH15", TierGold, pint(0)},
		}

		assert.Equal(t, expected, actual)
	})

	t.Run("TestExists", func(t *testing.T) {
		store := newStore()
		exists, err := store.Exists("3", &Coupon{})
		assert.False(t, exists)
		assert.Nil(t, err)

		err = store.Create(&Coupon{ID: "3", Code: "SUMMER5"})
		assert.Nil(t, err)

		exists, err = store.Exists("3", &Coupon{})
		assert.True(t, exists)
		assert.Nil(t, err)
	})

	t.Run("TestTransactCommit", func(t *testing.T) {
		store := newStore()
		tr, ok := store.(storage.Transacter)
		if !ok {
			t.Skip("store does not implement storage.Transacter")
		}

		err := tr.Transact(func(tx storage.Store) error {
			if err := tx.Create(Coupon{ID: "1", Code: "WELCOME10"}); err != nil {
				return err
			}
			return tx.Create(Category{ID: "c1", Name: "Seasonal"})
		})
		require.Nil(t, err, "unexpected error committing transaction")

		exists, err := store.Exists("1", &Coupon{})
		assert.Nil(t, err)
		assert.True(t, exists)

		exists, err = store.Exists("c1", &Category{})
		assert.Nil(t, err)
		assert.True(t, exists)
	})

	t.Run("TestTransactRollback", func(t *testing.T) {
		store := newStore()
		tr, ok := store.(storage.Transacter)
		if !ok {
			t.Skip("store does not implement storage.Transacter")
		}

		boom := errors.New("boom")
		err := tr.Transact(func(tx storage.Store) error {
			if err := tx.Create(Coupon{ID: "1", Code: "WELCOME10"}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		exists, err := store.Exists("1", &Coupon{})
		assert.Nil(t, err)
		assert.False(t, exists, "rolled back write must not be visible")
	})
}
