package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bouquet/internal/auth"
	"bouquet/internal/domain"
	"bouquet/internal/lock"
	"bouquet/internal/repository"
)

// CartService корзина покупателя. Изменения одной корзины сериализуются locker'ом.
type CartService struct {
	products repository.ProductRepository
	cart     repository.CartRepository
	tx       repository.TxManager
	locker   lock.Locker
	verifier DiscountVerifier
}

func NewCartService(products repository.ProductRepository, cart repository.CartRepository, tx repository.TxManager, locker lock.Locker, verifier DiscountVerifier) *CartService {
	return &CartService{products: products, cart: cart, tx: tx, locker: locker, verifier: verifier}
}

func requireCustomer(customerID string) error {
	if strings.TrimSpace(customerID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, auth.ErrMissingIdentity)
	}
	return nil
}

// AddToCart добавляет товар: новая строка с количеством 1 или +1 к существующей
func (s *CartService) AddToCart(ctx context.Context, customerID string, productID int64) (*domain.CartItem, error) {
	if err := requireCustomer(customerID); err != nil {
		return nil, err
	}
	if productID <= 0 {
		return nil, ErrInvalidInput
	}
	unlock, err := s.locker.Lock(ctx, customerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out *domain.CartItem
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.products.GetByID(ctx, productID); err != nil {
			return err
		}
		it, err := s.cart.Find(ctx, customerID, productID)
		switch {
		case err == nil:
			it.Quantity++
			if err := s.cart.Update(ctx, it); err != nil {
				return err
			}
		case errors.Is(err, repository.ErrNotFound):
			it = &domain.CartItem{CustomerID: customerID, ProductID: productID, Quantity: 1}
			if err := s.cart.Add(ctx, it); err != nil {
				return err
			}
		default:
			return err
		}
		out = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveItem уменьшает количество на 1, последнюю единицу удаляет вместе со строкой.
// Возвращает оставшуюся строку или nil, если строка удалена.
func (s *CartService) RemoveItem(ctx context.Context, customerID string, productID int64) (*domain.CartItem, error) {
	if err := requireCustomer(customerID); err != nil {
		return nil, err
	}
	unlock, err := s.locker.Lock(ctx, customerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out *domain.CartItem
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		it, err := s.cart.Find(ctx, customerID, productID)
		if err != nil {
			return err
		}
		if it.Quantity > 1 {
			it.Quantity--
			if err := s.cart.Update(ctx, it); err != nil {
				return err
			}
			out = it
			return nil
		}
		return s.cart.Remove(ctx, customerID, productID)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Clear удаляет все строки корзины, возвращает их число
func (s *CartService) Clear(ctx context.Context, customerID string) (int, error) {
	if err := requireCustomer(customerID); err != nil {
		return 0, err
	}
	unlock, err := s.locker.Lock(ctx, customerID)
	if err != nil {
		return 0, err
	}
	defer unlock()

	removed := 0
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		items, err := s.cart.ListByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := s.cart.Remove(ctx, customerID, it.ProductID); err != nil {
				return err
			}
		}
		removed = len(items)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *CartService) Items(ctx context.Context, customerID string) ([]domain.CartItem, error) {
	if err := requireCustomer(customerID); err != nil {
		return nil, err
	}
	return s.cart.ListByCustomer(ctx, customerID)
}

// GetCartProducts одна группа товаров на строку корзины, в порядке корзины.
// Если товар удалён из каталога, группа пустая.
func (s *CartService) GetCartProducts(ctx context.Context, items []domain.CartItem) ([][]domain.Product, error) {
	out := make([][]domain.Product, 0, len(items))
	for _, it := range items {
		if it.Product != nil {
			out = append(out, []domain.Product{*it.Product})
			continue
		}
		p, err := s.products.GetByID(ctx, it.ProductID)
		if errors.Is(err, repository.ErrNotFound) {
			out = append(out, []domain.Product{})
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, []domain.Product{*p})
	}
	return out, nil
}

// CartView данные страницы корзины
type CartView struct {
	Items            []domain.CartItem  `json:"items"`
	CartProducts     [][]domain.Product `json:"cart_products"`
	Subtotal         decimal.Decimal    `json:"subtotal"`
	Discount         DiscountParams     `json:"discount"`
	TotalAmountToPay decimal.Decimal    `json:"total_amount_to_pay"`
}

func cartSubtotal(items []domain.CartItem) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, it := range items {
		if it.Product == nil {
			return decimal.Zero, fmt.Errorf("product %d: %w", it.ProductID, repository.ErrNotFound)
		}
		total = total.Add(it.Product.Price.Mul(decimal.NewFromInt(it.Quantity)))
	}
	return total, nil
}

// View собирает корзину и итог с учётом кода скидки (пустой код: без скидки)
func (s *CartService) View(ctx context.Context, customerID, discountCode string) (*CartView, error) {
	items, err := s.Items(ctx, customerID)
	if err != nil {
		return nil, err
	}
	groups, err := s.GetCartProducts(ctx, items)
	if err != nil {
		return nil, err
	}
	subtotal := decimal.Zero
	for i, it := range items {
		// lines whose product is gone are shown but not priced
		if len(groups[i]) == 0 {
			continue
		}
		subtotal = subtotal.Add(groups[i][0].Price.Mul(decimal.NewFromInt(it.Quantity)))
	}

	view := &CartView{
		Items:            items,
		CartProducts:     groups,
		Subtotal:         subtotal,
		Discount:         NoDiscount(),
		TotalAmountToPay: subtotal,
	}
	switch code := strings.TrimSpace(discountCode); code {
	case "":
		return view, nil
	case StatusWrongCode, StatusExpired:
		// статус после ApplyDiscount показывается как есть
		view.Discount = paramsFor(nil, code)
		return view, nil
	}
	d, status, err := resolveDiscount(ctx, s.verifier, discountCode)
	if err != nil {
		return nil, err
	}
	view.Discount = paramsFor(d, status)
	view.TotalAmountToPay = CalculateDiscount(subtotal, d).Total
	return view, nil
}
