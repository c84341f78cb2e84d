package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bouquet/internal/domain"
	"bouquet/internal/events"
	"bouquet/internal/lock"
	"bouquet/internal/repository"
)

var ErrInvalidState = errors.New("invalid state")

// OrderTypeOrder тип заказа для страницы благодарности
const OrderTypeOrder = "order"

// Stage этап оформления заказа
type Stage int

const (
	StageCartReview Stage = iota
	StageDiscountApplied
	StagePaymentSaved
	StageOrderSaved
	StageCartCleared
	StageConfirmed
)

func (s Stage) String() string {
	switch s {
	case StageCartReview:
		return "CartReview"
	case StageDiscountApplied:
		return "DiscountApplied"
	case StagePaymentSaved:
		return "PaymentSaved"
	case StageOrderSaved:
		return "OrderSaved"
	case StageCartCleared:
		return "CartCleared"
	case StageConfirmed:
		return "Confirmed"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// CheckoutDeps зависимости CheckoutService
type CheckoutDeps struct {
	Cart      repository.CartRepository
	Payments  repository.PaymentRepository
	Orders    repository.OrderRepository
	Tx        repository.TxManager
	Locker    lock.Locker
	Verifier  DiscountVerifier
	Publisher events.Publisher
	Logger    zerolog.Logger
}

// CheckoutService оформление заказа: платёж, заказ, перенос корзины в строки заказа
type CheckoutService struct {
	cart      repository.CartRepository
	payments  repository.PaymentRepository
	orders    repository.OrderRepository
	tx        repository.TxManager
	locker    lock.Locker
	verifier  DiscountVerifier
	publisher events.Publisher
	log       zerolog.Logger
}

func NewCheckoutService(d CheckoutDeps) *CheckoutService {
	pub := d.Publisher
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &CheckoutService{
		cart:      d.Cart,
		payments:  d.Payments,
		orders:    d.Orders,
		tx:        d.Tx,
		locker:    d.Locker,
		verifier:  d.Verifier,
		publisher: pub,
		log:       d.Logger.With().Str("component", "checkout").Logger(),
	}
}

// ApplyDiscount проверяет код и возвращает параметры для страницы корзины.
// Неверный или истёкший код даёт нулевую скидку и строку статуса.
func (s *CheckoutService) ApplyDiscount(ctx context.Context, code string) (DiscountParams, error) {
	d, status, err := resolveDiscount(ctx, s.verifier, code)
	if err != nil {
		return DiscountParams{}, err
	}
	return paramsFor(d, status), nil
}

// CalculateDiscount применяет к payment.PayedAmount скидку по коду из discount.
// Скидка без кода, с неверным или истёкшим кодом не уменьшает сумму.
func (s *CheckoutService) CalculateDiscount(ctx context.Context, payment domain.Payment, discount *domain.Discount) (DiscountResult, error) {
	if discount == nil || strings.TrimSpace(discount.Code) == "" {
		return CalculateDiscount(payment.PayedAmount, nil), nil
	}
	d, _, err := resolveDiscount(ctx, s.verifier, discount.Code)
	if err != nil {
		return DiscountResult{}, err
	}
	return CalculateDiscount(payment.PayedAmount, d), nil
}

// SavePaymentData сохраняет платёж с итоговой суммой и ссылкой на скидку
func (s *CheckoutService) SavePaymentData(ctx context.Context, payment domain.Payment, finalTotal decimal.Decimal, discountID *int64) (*domain.Payment, error) {
	if !payment.PaymentType.Valid() || finalTotal.IsNegative() {
		return nil, ErrInvalidInput
	}
	p := payment
	p.ID = 0
	p.PayedAmount = finalTotal
	p.DiscountID = discountID
	p.Discount = nil
	if err := s.payments.Create(ctx, &p); err != nil {
		return nil, fmt.Errorf("save payment: %w", err)
	}
	return &p, nil
}

// SaveOrderData сохраняет заказ: не отправлен, без оценки, независимо от входных значений
func (s *CheckoutService) SaveOrderData(ctx context.Context, order domain.Order, customerID string, payment *domain.Payment, finalTotal decimal.Decimal) (*domain.Order, error) {
	if err := requireCustomer(customerID); err != nil {
		return nil, err
	}
	if payment == nil || payment.ID == 0 {
		return nil, fmt.Errorf("%w: payment is not persisted", ErrInvalidState)
	}
	o := order
	o.ID = 0
	o.CustomerID = customerID
	o.PaymentID = payment.ID
	o.Payment = nil
	o.TotalAmountToPay = finalTotal
	o.IsOrderSent = false
	o.Rating = nil
	o.Items = nil
	if err := s.orders.Create(ctx, &o); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}
	return &o, nil
}

// ProcessCartItems переносит корзину в строки заказа с ценой на момент переноса
// и очищает корзину одной транзакцией. Пустая корзина ничего не меняет.
func (s *CheckoutService) ProcessCartItems(ctx context.Context, customerID string, order *domain.Order) ([]domain.OrderItem, error) {
	if err := requireCustomer(customerID); err != nil {
		return nil, err
	}
	if order == nil || order.ID == 0 {
		return nil, fmt.Errorf("%w: order is not persisted", ErrInvalidState)
	}
	var lines []domain.OrderItem
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		items, err := s.cart.ListByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		lines = make([]domain.OrderItem, 0, len(items))
		for _, it := range items {
			if it.Product == nil {
				return fmt.Errorf("product %d: %w", it.ProductID, repository.ErrNotFound)
			}
			lines = append(lines, domain.OrderItem{
				OrderID:   order.ID,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				UnitPrice: it.Product.Price,
			})
			if err := s.cart.Remove(ctx, customerID, it.ProductID); err != nil {
				return err
			}
		}
		return s.orders.AddItems(ctx, lines)
	})
	if err != nil {
		return nil, err
	}
	order.Items = append(order.Items, lines...)
	return lines, nil
}

// CheckoutRequest данные формы оформления
type CheckoutRequest struct {
	Order        domain.Order
	Payment      domain.Payment
	DiscountCode string
}

// CheckoutResult итог оформления
type CheckoutResult struct {
	Order    *domain.Order
	Payment  *domain.Payment
	Discount DiscountParams
	Subtotal decimal.Decimal
	Stage    Stage
}

// OrderCreate оформляет заказ из корзины покупателя. Все шаги выполняются
// в одной транзакции: при ошибке не остаётся ни платежа, ни заказа, корзина цела.
func (s *CheckoutService) OrderCreate(ctx context.Context, customerID string, req CheckoutRequest) (*CheckoutResult, error) {
	if err := requireCustomer(customerID); err != nil {
		return nil, err
	}
	unlock, err := s.locker.Lock(ctx, customerID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	log := s.log.With().Str("customer_id", customerID).Logger()
	res := &CheckoutResult{Stage: StageCartReview, Discount: NoDiscount()}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		items, err := s.cart.ListByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return fmt.Errorf("%w: cart is empty", ErrInvalidState)
		}
		subtotal, err := cartSubtotal(items)
		if err != nil {
			return err
		}
		res.Subtotal = subtotal

		payment := req.Payment
		payment.PayedAmount = subtotal
		calc := CalculateDiscount(subtotal, nil)
		if code := strings.TrimSpace(req.DiscountCode); code != "" {
			d, status, err := resolveDiscount(ctx, s.verifier, code)
			if err != nil {
				return err
			}
			res.Discount = paramsFor(d, status)
			if d != nil {
				calc = CalculateDiscount(subtotal, d)
				res.Stage = StageDiscountApplied
				log.Debug().Str("code", d.Code).Str("total", calc.Total.String()).Msg("discount applied")
			} else {
				log.Debug().Str("code", code).Str("status", status).Msg("discount rejected")
			}
		}

		p, err := s.SavePaymentData(ctx, payment, calc.Total, calc.DiscountID)
		if err != nil {
			return err
		}
		res.Payment = p
		res.Stage = StagePaymentSaved

		o, err := s.SaveOrderData(ctx, req.Order, customerID, p, calc.Total)
		if err != nil {
			return err
		}
		res.Order = o
		res.Stage = StageOrderSaved

		if _, err := s.ProcessCartItems(ctx, customerID, o); err != nil {
			return err
		}
		res.Stage = StageCartCleared
		return nil
	})
	if err != nil {
		log.Debug().Err(err).Stringer("stage", res.Stage).Msg("checkout aborted")
		return nil, err
	}
	res.Stage = StageConfirmed
	log.Info().Int64("order_id", res.Order.ID).Str("total", res.Order.TotalAmountToPay.String()).Msg("order placed")

	if err := s.publisher.PublishOrderPlaced(ctx, events.NewOrderPlaced(res.Order, res.Payment)); err != nil {
		log.Warn().Err(err).Int64("order_id", res.Order.ID).Msg("order placed event not published")
	}
	return res, nil
}

// GetOrder заказ покупателя; чужой заказ выглядит как несуществующий
func (s *CheckoutService) GetOrder(ctx context.Context, customerID string, id int64) (*domain.Order, error) {
	if err := requireCustomer(customerID); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, repository.ErrNotFound
	}
	return o, nil
}
