package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"bouquet/internal/domain"
	"bouquet/internal/repository"
)

// Строки статуса, которые видит покупатель вместо кода скидки
const (
	StatusWrongCode = "Wrong code, try again..."
	StatusExpired   = "Code is expired..."
)

// ErrInvalidDiscount код не прошёл проверку или истёк. Оформление заказа не прерывает.
var ErrInvalidDiscount = errors.New("invalid discount")

var hundred = decimal.NewFromInt(100)

//go:generate mockgen -destination=mock/verifier.go -package=mock bouquet/internal/service DiscountVerifier
//go:generate mockgen -destination=mock/publisher.go -package=mock bouquet/internal/events Publisher

// DiscountVerifier проверка кода скидки
type DiscountVerifier interface {
	VerifyCode(ctx context.Context, code string) (bool, error)
	VerifyNotExpired(ctx context.Context, code string) (bool, error)
	GetDiscount(ctx context.Context, code string) (*domain.Discount, error)
}

// CodeVerifier проверяет коды по репозиторию скидок
type CodeVerifier struct {
	repo repository.DiscountRepository
	now  func() time.Time
}

func NewCodeVerifier(repo repository.DiscountRepository) *CodeVerifier {
	return &CodeVerifier{repo: repo, now: time.Now}
}

// WithClock подменяет источник времени
func (v *CodeVerifier) WithClock(now func() time.Time) *CodeVerifier {
	v.now = now
	return v
}

var _ DiscountVerifier = (*CodeVerifier)(nil)

func wellFormed(code string) bool {
	if code == "" || len(code) > 64 {
		return false
	}
	return strings.IndexFunc(code, unicode.IsSpace) < 0
}

func (v *CodeVerifier) lookup(ctx context.Context, code string) (*domain.Discount, error) {
	if !wellFormed(code) {
		return nil, repository.ErrNotFound
	}
	return v.repo.GetByCode(ctx, code)
}

func (v *CodeVerifier) VerifyCode(ctx context.Context, code string) (bool, error) {
	_, err := v.lookup(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (v *CodeVerifier) VerifyNotExpired(ctx context.Context, code string) (bool, error) {
	d, err := v.lookup(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	now := v.now()
	if d.Begins != nil && now.Before(*d.Begins) {
		return false, nil
	}
	if d.Ends != nil && now.After(*d.Ends) {
		return false, nil
	}
	return true, nil
}

func (v *CodeVerifier) GetDiscount(ctx context.Context, code string) (*domain.Discount, error) {
	return v.lookup(ctx, code)
}

// resolveDiscount returns the usable discount for code, or nil with a status string
// when the code is unknown or outside its validity window.
func resolveDiscount(ctx context.Context, v DiscountVerifier, code string) (*domain.Discount, string, error) {
	code = strings.TrimSpace(code)
	ok, err := v.VerifyCode(ctx, code)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, StatusWrongCode, nil
	}
	ok, err = v.VerifyNotExpired(ctx, code)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, StatusExpired, nil
	}
	d, err := v.GetDiscount(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		// removed between the checks
		return nil, StatusWrongCode, nil
	}
	if err != nil {
		return nil, "", err
	}
	return d, code, nil
}

// DiscountResult итог применения скидки к сумме
type DiscountResult struct {
	Total          decimal.Decimal
	DiscountID     *int64
	DiscountAmount decimal.Decimal
}

func applyDiscount(total decimal.Decimal, typ domain.DiscountType, amount decimal.Decimal) decimal.Decimal {
	// скидка никогда не увеличивает сумму
	if amount.IsNegative() {
		return total.Round(2)
	}
	var out decimal.Decimal
	switch typ {
	case domain.DiscountPercentageOff:
		out = total.Mul(decimal.NewFromInt(1).Sub(amount.Div(hundred)))
	case domain.DiscountAmountOff:
		out = total.Sub(amount)
	default:
		out = total
	}
	if out.IsNegative() {
		out = decimal.Zero
	}
	return out.Round(2)
}

// CalculateDiscount применяет скидку к сумме. nil даёт полную цену.
func CalculateDiscount(total decimal.Decimal, d *domain.Discount) DiscountResult {
	if d == nil {
		return DiscountResult{Total: total, DiscountAmount: decimal.Zero}
	}
	id := d.ID
	return DiscountResult{
		Total:          applyDiscount(total, d.Type, d.Amount),
		DiscountID:     &id,
		DiscountAmount: d.Amount,
	}
}

// DiscountParams параметры скидки для страницы корзины
type DiscountParams struct {
	Amount decimal.Decimal     `json:"discount_amount"`
	Type   domain.DiscountType `json:"discount_type"`
	// Code holds the applied code or a status string for the customer.
	Code string `json:"discount_code"`
}

// NoDiscount параметры по умолчанию после изменения корзины
func NoDiscount() DiscountParams {
	return DiscountParams{Amount: decimal.Zero, Type: domain.DiscountAmountOff, Code: ""}
}

func paramsFor(d *domain.Discount, status string) DiscountParams {
	if d == nil {
		p := NoDiscount()
		p.Code = status
		return p
	}
	return DiscountParams{Amount: d.Amount, Type: d.Type, Code: d.Code}
}
