package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"bouquet/internal/domain"
)

// ErrNotFound возвращается, когда сущность не найдена
var ErrNotFound = errors.New("not found")

// ErrConflict возвращается при нарушении уникальности
var ErrConflict = errors.New("conflict")

// ProductFilter параметры фильтрации списка товаров
type ProductFilter struct {
	NameSubstring string
	Category      string
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
}

// ProductRepository интерфейс репозитория товаров
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f ProductFilter) ([]domain.Product, error)
}

// CartRepository корзина покупателя: find, add, remove, query
type CartRepository interface {
	Find(ctx context.Context, customerID string, productID int64) (*domain.CartItem, error)
	Add(ctx context.Context, item *domain.CartItem) error
	Update(ctx context.Context, item *domain.CartItem) error
	Remove(ctx context.Context, customerID string, productID int64) error
	// ListByCustomer returns items in insertion order with Product resolved when it still exists.
	ListByCustomer(ctx context.Context, customerID string) ([]domain.CartItem, error)
}

// DiscountRepository только чтение, коды заводит админка
type DiscountRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.Discount, error)
}

// DiscountSeeder используется при начальном заполнении dev-окружения
type DiscountSeeder interface {
	Upsert(ctx context.Context, d *domain.Discount) error
}

// PaymentRepository интерфейс репозитория платежей
type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
}

// OrderRepository интерфейс репозитория заказов
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	AddItems(ctx context.Context, items []domain.OrderItem) error
}

// TxManager абстракция транзакции. Вложенный вызов выполняется в уже открытой транзакции.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func matchesFilter(p domain.Product, f ProductFilter) bool {
	if !containsIgnoreCase(p.Name, f.NameSubstring) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}
