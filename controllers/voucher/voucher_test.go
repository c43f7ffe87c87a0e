package voucherControllers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/junaidrashid-git/bookstore-api/internal/testhelpers"
	"github.com/junaidrashid-git/bookstore-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func save20() *models.Voucher {
	return &models.Voucher{
		Code:              "save20",
		Description:       "20% off, up to 50k",
		DiscountPercent:   decimal.NewFromInt(20),
		MaxDiscountAmount: decimal.NewNullDecimal(decimal.NewFromInt(50000)),
		MinOrderAmount:    decimal.NewNullDecimal(decimal.NewFromInt(300000)),
		MaxUsage:          10,
		ValidFrom:         now.Add(-24 * time.Hour),
		ValidTo:           now.Add(24 * time.Hour),
		IsActive:          true,
	}
}

func mustCreate(t *testing.T, db *gorm.DB, v *models.Voucher) *models.Voucher {
	t.Helper()
	require.NoError(t, Create(context.Background(), db, v))
	return v
}

func TestCreate_NormalizesAndResetsUsage(t *testing.T) {
	db := testhelpers.NewDB(t)
	v := save20()
	v.CurrentUsage = 7

	mustCreate(t, db, v)

	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "SAVE20", v.Code)
	assert.Zero(t, v.CurrentUsage)
}

func TestCreate_DuplicateCode(t *testing.T) {
	db := testhelpers.NewDB(t)
	mustCreate(t, db, save20())

	dup := save20()
	dup.Code = " SAVE20 "
	err := Create(context.Background(), db, dup)
	assert.ErrorIs(t, err, ErrDuplicateCode)
}

func TestCreate_RejectsInvalid(t *testing.T) {
	cases := map[string]func(v *models.Voucher){
		"short code":       func(v *models.Voucher) { v.Code = "ab" },
		"zero percent":     func(v *models.Voucher) { v.DiscountPercent = decimal.Zero },
		"hundred percent":  func(v *models.Voucher) { v.DiscountPercent = decimal.NewFromInt(100) },
		"zero max usage":   func(v *models.Voucher) { v.MaxUsage = 0 },
		"window reversed":  func(v *models.Voucher) { v.ValidTo = v.ValidFrom.Add(-time.Hour) },
		"negative min amt": func(v *models.Voucher) { v.MinOrderAmount = decimal.NewNullDecimal(decimal.NewFromInt(-1)) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			db := testhelpers.NewDB(t)
			v := save20()
			mutate(v)

			err := Create(context.Background(), db, v)
			var invalid *InvalidVoucherError
			assert.True(t, errors.As(err, &invalid), "got %v", err)
		})
	}
}

func TestValidate(t *testing.T) {
	db := testhelpers.NewDB(t)
	ctx := context.Background()
	mustCreate(t, db, save20())

	inactive := save20()
	inactive.Code = "OFF10"
	inactive.IsActive = false
	mustCreate(t, db, inactive)

	expired := save20()
	expired.Code = "OLD10"
	expired.ValidFrom = now.Add(-48 * time.Hour)
	expired.ValidTo = now.Add(-time.Second)
	mustCreate(t, db, expired)

	exhausted := save20()
	exhausted.Code = "GONE10"
	exhausted.MaxUsage = 1
	mustCreate(t, db, exhausted)
	require.NoError(t, IncrementUsage(ctx, db, exhausted.ID))

	edge := save20()
	edge.Code = "EDGE10"
	edge.ValidTo = now
	mustCreate(t, db, edge)

	tests := []struct {
		name   string
		code   string
		amount int64
		ok     bool
	}{
		{"below minimum", "SAVE20", 50000, false},
		{"above minimum", "SAVE20", 350000, true},
		{"exactly minimum", "SAVE20", 300000, true},
		{"lower case lookup", "save20", 350000, true},
		{"unknown code", "NOPE", 350000, false},
		{"inactive", "OFF10", 350000, false},
		{"expired", "OLD10", 350000, false},
		{"exhausted", "GONE10", 350000, false},
		{"window end inclusive", "EDGE10", 350000, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Validate(ctx, db, tt.code, decimal.NewFromInt(tt.amount), now)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, NormalizeCode(tt.code), v.Code)
				return
			}
			assert.ErrorIs(t, err, ErrVoucherNotFound)
			assert.Nil(t, v)
		})
	}
}

func TestCalculateDiscount(t *testing.T) {
	v := save20()

	assert.True(t, CalculateDiscount(v, decimal.NewFromInt(100000)).Equal(decimal.NewFromInt(20000)))
	assert.True(t, CalculateDiscount(v, decimal.NewFromInt(1000000)).Equal(decimal.NewFromInt(50000)))
	assert.True(t, CalculateDiscount(v, decimal.NewFromInt(300000)).Equal(decimal.NewFromInt(50000)))
	assert.True(t, CalculateDiscount(nil, decimal.NewFromInt(100000)).IsZero())
	assert.True(t, CalculateDiscount(v, decimal.Zero).IsZero())

	uncapped := save20()
	uncapped.MaxDiscountAmount = decimal.NullDecimal{}
	assert.True(t, CalculateDiscount(uncapped, decimal.NewFromInt(1000000)).Equal(decimal.NewFromInt(200000)))
}

func TestCalculateDiscount_MonotoneThenCapped(t *testing.T) {
	v := save20()
	prev := decimal.Zero
	for amount := int64(0); amount <= 1000000; amount += 25000 {
		d := CalculateDiscount(v, decimal.NewFromInt(amount))
		assert.True(t, d.GreaterThanOrEqual(prev), "discount dropped at %d", amount)
		assert.True(t, d.LessThanOrEqual(decimal.NewFromInt(50000)))
		prev = d
	}
}

func TestIncrementUsage_ConcurrentRedemptionsRespectCap(t *testing.T) {
	db := testhelpers.NewDB(t)
	ctx := context.Background()

	const n = 5
	v := save20()
	v.MaxUsage = n
	mustCreate(t, db, v)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		exhausted atomic.Int32
	)
	for i := 0; i < n+1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := IncrementUsage(ctx, db, v.ID)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, ErrVoucherExhausted):
				exhausted.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(n), succeeded.Load())
	assert.Equal(t, int32(1), exhausted.Load())

	stored, err := FindByID(ctx, db, v.ID)
	require.NoError(t, err)
	assert.Equal(t, n, stored.CurrentUsage)
}

func TestUpdate(t *testing.T) {
	db := testhelpers.NewDB(t)
	ctx := context.Background()
	v := mustCreate(t, db, save20())
	other := save20()
	other.Code = "OTHER"
	mustCreate(t, db, other)
	require.NoError(t, IncrementUsage(ctx, db, v.ID))

	in := save20()
	in.DiscountPercent = decimal.NewFromInt(15)
	updated, err := Update(ctx, db, v.ID, in)
	require.NoError(t, err)
	assert.True(t, updated.DiscountPercent.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, 1, updated.CurrentUsage)

	in.Code = "other"
	_, err = Update(ctx, db, v.ID, in)
	assert.ErrorIs(t, err, ErrDuplicateCode)

	_, err = Update(ctx, db, "missing", in)
	assert.ErrorIs(t, err, ErrVoucherNotFound)
}

func TestToggleAndDelete(t *testing.T) {
	db := testhelpers.NewDB(t)
	ctx := context.Background()
	v := mustCreate(t, db, save20())

	toggled, err := Toggle(ctx, db, v.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	active, err := ListActive(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, active)

	toggled, err = Toggle(ctx, db, v.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)

	require.NoError(t, Delete(ctx, db, v.ID))
	assert.ErrorIs(t, Delete(ctx, db, v.ID), ErrVoucherNotFound)
	_, err = Toggle(ctx, db, v.ID)
	assert.ErrorIs(t, err, ErrVoucherNotFound)
}
