package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"bouquet/internal/domain"
)

type cartKey struct {
	customerID string
	productID  int64
}

type cartRow struct {
	item domain.CartItem
	seq  int64
}

// memState всё, что откатывается при ошибке в транзакции
type memState struct {
	nextProdID     int64
	nextDiscountID int64
	nextPaymentID  int64
	nextOrderID    int64
	nextItemID     int64
	nextCartSeq    int64
	productsByID   map[int64]domain.Product
	cart           map[cartKey]cartRow
	discounts      map[string]domain.Discount
	paymentsByID   map[int64]domain.Payment
	ordersByID     map[int64]domain.Order
	orderItems     map[int64][]domain.OrderItem
}

func (s *memState) clone() memState {
	cp := *s
	cp.productsByID = make(map[int64]domain.Product, len(s.productsByID))
	for k, v := range s.productsByID {
		cp.productsByID[k] = v
	}
	cp.cart = make(map[cartKey]cartRow, len(s.cart))
	for k, v := range s.cart {
		cp.cart[k] = v
	}
	cp.discounts = make(map[string]domain.Discount, len(s.discounts))
	for k, v := range s.discounts {
		cp.discounts[k] = v
	}
	cp.paymentsByID = make(map[int64]domain.Payment, len(s.paymentsByID))
	for k, v := range s.paymentsByID {
		cp.paymentsByID[k] = v
	}
	cp.ordersByID = make(map[int64]domain.Order, len(s.ordersByID))
	for k, v := range s.ordersByID {
		cp.ordersByID[k] = v
	}
	cp.orderItems = make(map[int64][]domain.OrderItem, len(s.orderItems))
	for k, v := range s.orderItems {
		cp.orderItems[k] = append([]domain.OrderItem(nil), v...)
	}
	return cp
}

// MemoryStore объединённое in-memory хранилище и простой генератор ID
type MemoryStore struct {
	mu    sync.RWMutex
	state memState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: memState{
			nextProdID:     1,
			nextDiscountID: 1,
			nextPaymentID:  1,
			nextOrderID:    1,
			nextItemID:     1,
			productsByID:   make(map[int64]domain.Product),
			cart:           make(map[cartKey]cartRow),
			discounts:      make(map[string]domain.Discount),
			paymentsByID:   make(map[int64]domain.Payment),
			ordersByID:     make(map[int64]domain.Order),
			orderItems:     make(map[int64][]domain.OrderItem),
		},
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

// Ensure interfaces
var _ ProductRepository = (*MemoryStore)(nil)

// ProductRepository implementation
func (m *MemoryStore) Create(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p.ID = m.state.nextProdID
	m.state.nextProdID++
	m.state.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.state.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := p
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.state.productsByID[p.ID]; !ok {
		return ErrNotFound
	}
	m.state.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.state.productsByID[id]; !ok {
		return ErrNotFound
	}
	delete(m.state.productsByID, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Product, 0)
	for _, p := range m.state.productsByID {
		if matchesFilter(p, f) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CartRepository implementation on wrapper type
type MemoryCart struct{ store *MemoryStore }

func NewMemoryCart(store *MemoryStore) *MemoryCart { return &MemoryCart{store: store} }

var _ CartRepository = (*MemoryCart)(nil)

func (mc *MemoryCart) Find(ctx context.Context, customerID string, productID int64) (*domain.CartItem, error) {
	mc.store.rlock(ctx)
	defer mc.store.runlock(ctx)
	row, ok := mc.store.state.cart[cartKey{customerID, productID}]
	if !ok {
		return nil, ErrNotFound
	}
	it := row.item
	return &it, nil
}

func (mc *MemoryCart) Add(ctx context.Context, item *domain.CartItem) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	k := cartKey{item.CustomerID, item.ProductID}
	if _, ok := mc.store.state.cart[k]; ok {
		return ErrConflict
	}
	item.CreatedAt = time.Now().UTC()
	stored := *item
	stored.Product = nil
	mc.store.state.nextCartSeq++
	mc.store.state.cart[k] = cartRow{item: stored, seq: mc.store.state.nextCartSeq}
	return nil
}

func (mc *MemoryCart) Update(ctx context.Context, item *domain.CartItem) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	k := cartKey{item.CustomerID, item.ProductID}
	row, ok := mc.store.state.cart[k]
	if !ok {
		return ErrNotFound
	}
	row.item.Quantity = item.Quantity
	mc.store.state.cart[k] = row
	return nil
}

func (mc *MemoryCart) Remove(ctx context.Context, customerID string, productID int64) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	k := cartKey{customerID, productID}
	if _, ok := mc.store.state.cart[k]; !ok {
		return ErrNotFound
	}
	delete(mc.store.state.cart, k)
	return nil
}

func (mc *MemoryCart) ListByCustomer(ctx context.Context, customerID string) ([]domain.CartItem, error) {
	mc.store.rlock(ctx)
	defer mc.store.runlock(ctx)
	rows := make([]cartRow, 0)
	for k, row := range mc.store.state.cart {
		if k.customerID == customerID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]domain.CartItem, 0, len(rows))
	for _, row := range rows {
		it := row.item
		if p, ok := mc.store.state.productsByID[it.ProductID]; ok {
			cp := p
			it.Product = &cp
		}
		out = append(out, it)
	}
	return out, nil
}

// DiscountRepository implementation on wrapper type
type MemoryDiscounts struct{ store *MemoryStore }

func NewMemoryDiscounts(store *MemoryStore) *MemoryDiscounts {
	return &MemoryDiscounts{store: store}
}

var (
	_ DiscountRepository = (*MemoryDiscounts)(nil)
	_ DiscountSeeder     = (*MemoryDiscounts)(nil)
)

func (md *MemoryDiscounts) GetByCode(ctx context.Context, code string) (*domain.Discount, error) {
	md.store.rlock(ctx)
	defer md.store.runlock(ctx)
	d, ok := md.store.state.discounts[code]
	if !ok {
		return nil, ErrNotFound
	}
	cp := d
	return &cp, nil
}

func (md *MemoryDiscounts) Upsert(ctx context.Context, d *domain.Discount) error {
	md.store.wlock(ctx)
	defer md.store.wunlock(ctx)
	if existing, ok := md.store.state.discounts[d.Code]; ok {
		d.ID = existing.ID
	} else {
		d.ID = md.store.state.nextDiscountID
		md.store.state.nextDiscountID++
	}
	md.store.state.discounts[d.Code] = *d
	return nil
}

// PaymentRepository implementation on wrapper type
type MemoryPayments struct{ store *MemoryStore }

func NewMemoryPayments(store *MemoryStore) *MemoryPayments { return &MemoryPayments{store: store} }

var _ PaymentRepository = (*MemoryPayments)(nil)

func (mp *MemoryPayments) Create(ctx context.Context, p *domain.Payment) error {
	mp.store.wlock(ctx)
	defer mp.store.wunlock(ctx)
	p.ID = mp.store.state.nextPaymentID
	mp.store.state.nextPaymentID++
	p.CreatedAt = time.Now().UTC()
	stored := *p
	stored.Discount = nil
	mp.store.state.paymentsByID[p.ID] = stored
	return nil
}

func (mp *MemoryPayments) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	mp.store.rlock(ctx)
	defer mp.store.runlock(ctx)
	p, ok := mp.store.state.paymentsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := p
	return &cp, nil
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if _, ok := mo.store.state.paymentsByID[o.PaymentID]; !ok {
		return ErrNotFound
	}
	o.ID = mo.store.state.nextOrderID
	mo.store.state.nextOrderID++
	o.CreatedAt = time.Now().UTC()
	stored := *o
	stored.Items = nil
	stored.Payment = nil
	mo.store.state.ordersByID[o.ID] = stored
	return nil
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.state.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := o
	cp.Items = append([]domain.OrderItem(nil), mo.store.state.orderItems[id]...)
	return &cp, nil
}

func (mo *MemoryOrders) AddItems(ctx context.Context, items []domain.OrderItem) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	for i := range items {
		if _, ok := mo.store.state.ordersByID[items[i].OrderID]; !ok {
			return ErrNotFound
		}
	}
	for i := range items {
		items[i].ID = mo.store.state.nextItemID
		mo.store.state.nextItemID++
		mo.store.state.orderItems[items[i].OrderID] = append(mo.store.state.orderItems[items[i].OrderID], items[i])
	}
	return nil
}

// Tx manager using write lock to emulate transaction boundary
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

var _ TxManager = (*MemoryTx)(nil)

func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// nested call joins the outer transaction
	if isTx(ctx) {
		return fn(ctx)
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	snapshot := tx.store.state.clone()
	committed := false
	// откат и при ошибке, и при панике в fn
	defer func() {
		if !committed {
			tx.store.state = snapshot
		}
	}()
	ctx = context.WithValue(ctx, txKey{}, true)
	if err := fn(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}
