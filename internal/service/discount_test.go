package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bouquet/internal/domain"
	"bouquet/internal/repository"
	"bouquet/internal/service/mock"
)

func TestCalculateDiscount(t *testing.T) {
	tests := []struct {
		name   string
		total  string
		typ    domain.DiscountType
		amount string
		want   string
	}{
		{"percentage", "100", domain.DiscountPercentageOff, "10", "90"},
		{"amount off ten", "100", domain.DiscountAmountOff, "10", "90"},
		{"percentage rounds to cents", "10", domain.DiscountPercentageOff, "33.33", "6.67"},
		{"full percentage", "80", domain.DiscountPercentageOff, "100", "0"},
		{"amount off", "20", domain.DiscountAmountOff, "5", "15"},
		{"amount off floors at zero", "20", domain.DiscountAmountOff, "50", "0"},
		{"zero discount", "42.50", domain.DiscountAmountOff, "0", "42.5"},
		{"negative amount is ignored", "20", domain.DiscountAmountOff, "-5", "20"},
		{"negative percentage is ignored", "20", domain.DiscountPercentageOff, "-50", "20"},
		{"percentage over hundred floors at zero", "20", domain.DiscountPercentageOff, "150", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &domain.Discount{ID: 7, Code: "X", Type: tt.typ, Amount: dec(tt.amount)}
			res := CalculateDiscount(dec(tt.total), d)
			assert.True(t, res.Total.Equal(dec(tt.want)), "got %s want %s", res.Total, tt.want)
			require.NotNil(t, res.DiscountID)
			assert.EqualValues(t, 7, *res.DiscountID)
			assert.False(t, res.Total.GreaterThan(dec(tt.total)))
		})
	}

	res := CalculateDiscount(dec("12.34"), nil)
	assert.True(t, res.Total.Equal(dec("12.34")))
	assert.Nil(t, res.DiscountID)
	assert.True(t, res.DiscountAmount.IsZero())
}

func TestCodeVerifier(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	discounts := repository.NewMemoryDiscounts(store)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	seed := []domain.Discount{
		{Code: "OPEN", Type: domain.DiscountAmountOff, Amount: dec("5")},
		{Code: "JUNE", Type: domain.DiscountPercentageOff, Amount: dec("10"), Begins: at(now.AddDate(0, 0, -14)), Ends: at(now.AddDate(0, 0, 15))},
		{Code: "MAY", Type: domain.DiscountPercentageOff, Amount: dec("10"), Ends: at(now.AddDate(0, 0, -15))},
		{Code: "JULY", Type: domain.DiscountPercentageOff, Amount: dec("10"), Begins: at(now.AddDate(0, 0, 16))},
	}
	for i := range seed {
		require.NoError(t, discounts.Upsert(ctx, &seed[i]))
	}
	v := NewCodeVerifier(discounts).WithClock(func() time.Time { return now })

	tests := []struct {
		code       string
		known      bool
		notExpired bool
	}{
		{"OPEN", true, true},
		{"JUNE", true, true},
		{"MAY", true, false},
		{"JULY", true, false},
		{"NOPE", false, false},
		{"", false, false},
		{"JU NE", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			ok, err := v.VerifyCode(ctx, tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.known, ok)
			ok, err = v.VerifyNotExpired(ctx, tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.notExpired, ok)
		})
	}

	d, err := v.GetDiscount(ctx, "JUNE")
	require.NoError(t, err)
	assert.Equal(t, domain.DiscountPercentageOff, d.Type)
	_, err = v.GetDiscount(ctx, "NOPE")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestResolveDiscount(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong code stops early", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		v := mock.NewMockDiscountVerifier(ctrl)
		v.EXPECT().VerifyCode(gomock.Any(), "BAD").Return(false, nil)

		d, status, err := resolveDiscount(ctx, v, " BAD ")
		require.NoError(t, err)
		assert.Nil(t, d)
		assert.Equal(t, StatusWrongCode, status)
	})

	t.Run("expired", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		v := mock.NewMockDiscountVerifier(ctrl)
		gomock.InOrder(
			v.EXPECT().VerifyCode(gomock.Any(), "OLD").Return(true, nil),
			v.EXPECT().VerifyNotExpired(gomock.Any(), "OLD").Return(false, nil),
		)

		d, status, err := resolveDiscount(ctx, v, "OLD")
		require.NoError(t, err)
		assert.Nil(t, d)
		assert.Equal(t, StatusExpired, status)
	})

	t.Run("valid", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		v := mock.NewMockDiscountVerifier(ctrl)
		want := &domain.Discount{ID: 3, Code: "OK", Type: domain.DiscountAmountOff, Amount: dec("2")}
		v.EXPECT().VerifyCode(gomock.Any(), "OK").Return(true, nil)
		v.EXPECT().VerifyNotExpired(gomock.Any(), "OK").Return(true, nil)
		v.EXPECT().GetDiscount(gomock.Any(), "OK").Return(want, nil)

		d, status, err := resolveDiscount(ctx, v, "OK")
		require.NoError(t, err)
		assert.Equal(t, want, d)
		assert.Equal(t, "OK", status)
		assert.Equal(t, DiscountParams{Amount: dec("2"), Type: domain.DiscountAmountOff, Code: "OK"}, paramsFor(d, status))
	})

	t.Run("store failure propagates", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		v := mock.NewMockDiscountVerifier(ctrl)
		boom := errors.New("db down")
		v.EXPECT().VerifyCode(gomock.Any(), "X").Return(false, boom)

		_, _, err := resolveDiscount(ctx, v, "X")
		assert.ErrorIs(t, err, boom)
	})
}

func TestNoDiscountParams(t *testing.T) {
	p := NoDiscount()
	assert.True(t, p.Amount.IsZero())
	assert.Equal(t, domain.DiscountAmountOff, p.Type)
	assert.Empty(t, p.Code)

	wrong := paramsFor(nil, StatusWrongCode)
	assert.True(t, wrong.Amount.IsZero())
	assert.Equal(t, StatusWrongCode, wrong.Code)
}
