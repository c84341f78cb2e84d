package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bouquet/internal/domain"
)

type gormTxKey struct{}

// GormStore репозитории поверх gorm, транзакция передаётся через контекст
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(gormTxKey{}).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}

// InitMigrate создаёт схему, идемпотентно
func (s *GormStore) InitMigrate() error {
	return s.db.AutoMigrate(
		&domain.Product{},
		&domain.CartItem{},
		&domain.Discount{},
		&domain.Payment{},
		&domain.Order{},
		&domain.OrderItem{},
	)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}

func affected(res *gorm.DB) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Products

type GormProducts struct{ *GormStore }

func NewGormProducts(s *GormStore) *GormProducts { return &GormProducts{s} }

var _ ProductRepository = (*GormProducts)(nil)

func (r *GormProducts) Create(ctx context.Context, p *domain.Product) error {
	return translate(r.conn(ctx).Create(p).Error)
}

func (r *GormProducts) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	if err := r.conn(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *GormProducts) Update(ctx context.Context, p *domain.Product) error {
	res := r.conn(ctx).Model(&domain.Product{}).Where("id = ?", p.ID).Select("*").Omit("id").Updates(p)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		// mysql reports 0 rows when nothing changed
		_, err := r.GetByID(ctx, p.ID)
		return err
	}
	return nil
}

func (r *GormProducts) Delete(ctx context.Context, id int64) error {
	return affected(r.conn(ctx).Delete(&domain.Product{}, id))
}

func (r *GormProducts) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	q := r.conn(ctx).Model(&domain.Product{})
	if f.NameSubstring != "" {
		q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+f.NameSubstring+"%")
	}
	if f.Category != "" {
		q = q.Where("LOWER(category) = LOWER(?)", f.Category)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	out := make([]domain.Product, 0)
	if err := q.Order("id").Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// Cart

type GormCart struct{ *GormStore }

func NewGormCart(s *GormStore) *GormCart { return &GormCart{s} }

var _ CartRepository = (*GormCart)(nil)

func (r *GormCart) Find(ctx context.Context, customerID string, productID int64) (*domain.CartItem, error) {
	var it domain.CartItem
	err := r.conn(ctx).
		Where("customer_id = ? AND product_id = ?", customerID, productID).
		First(&it).Error
	if err != nil {
		return nil, translate(err)
	}
	return &it, nil
}

func (r *GormCart) Add(ctx context.Context, item *domain.CartItem) error {
	return translate(r.conn(ctx).Omit(clause.Associations).Create(item).Error)
}

func (r *GormCart) Update(ctx context.Context, item *domain.CartItem) error {
	res := r.conn(ctx).Model(&domain.CartItem{}).
		Where("customer_id = ? AND product_id = ?", item.CustomerID, item.ProductID).
		Update("quantity", item.Quantity)
	return affected(res)
}

func (r *GormCart) Remove(ctx context.Context, customerID string, productID int64) error {
	res := r.conn(ctx).
		Where("customer_id = ? AND product_id = ?", customerID, productID).
		Delete(&domain.CartItem{})
	return affected(res)
}

func (r *GormCart) ListByCustomer(ctx context.Context, customerID string) ([]domain.CartItem, error) {
	out := make([]domain.CartItem, 0)
	err := r.conn(ctx).Preload("Product").
		Where("customer_id = ?", customerID).
		Order("created_at, product_id").
		Find(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// Discounts

type GormDiscounts struct{ *GormStore }

func NewGormDiscounts(s *GormStore) *GormDiscounts { return &GormDiscounts{s} }

var (
	_ DiscountRepository = (*GormDiscounts)(nil)
	_ DiscountSeeder     = (*GormDiscounts)(nil)
)

func (r *GormDiscounts) GetByCode(ctx context.Context, code string) (*domain.Discount, error) {
	var d domain.Discount
	if err := r.conn(ctx).Where("code = ?", code).First(&d).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (r *GormDiscounts) Upsert(ctx context.Context, d *domain.Discount) error {
	err := r.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"type", "amount", "begins", "ends"}),
	}).Create(d).Error
	if err != nil {
		return translate(err)
	}
	// mysql does not report the id of an updated row
	stored, err := r.GetByCode(ctx, d.Code)
	if err != nil {
		return err
	}
	d.ID = stored.ID
	return nil
}

// Payments

type GormPayments struct{ *GormStore }

func NewGormPayments(s *GormStore) *GormPayments { return &GormPayments{s} }

var _ PaymentRepository = (*GormPayments)(nil)

func (r *GormPayments) Create(ctx context.Context, p *domain.Payment) error {
	return translate(r.conn(ctx).Omit(clause.Associations).Create(p).Error)
}

func (r *GormPayments) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	var p domain.Payment
	if err := r.conn(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// Orders

type GormOrders struct{ *GormStore }

func NewGormOrders(s *GormStore) *GormOrders { return &GormOrders{s} }

var _ OrderRepository = (*GormOrders)(nil)

func (r *GormOrders) Create(ctx context.Context, o *domain.Order) error {
	return translate(r.conn(ctx).Omit(clause.Associations).Create(o).Error)
}

func (r *GormOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	if err := r.conn(ctx).Preload("Items").First(&o, id).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *GormOrders) AddItems(ctx context.Context, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return translate(r.conn(ctx).Create(&items).Error)
}

// GormTx кладёт *gorm.DB транзакции в контекст
type GormTx struct{ *GormStore }

func NewGormTx(s *GormStore) *GormTx { return &GormTx{s} }

var _ TxManager = (*GormTx)(nil)

func (t *GormTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(gormTxKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, gormTxKey{}, tx))
	})
}
