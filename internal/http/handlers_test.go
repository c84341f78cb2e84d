package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	_ "bouquet/docs"
	"bouquet/internal/auth"
	"bouquet/internal/domain"
	"bouquet/internal/lock"
	"bouquet/internal/repository"
	"bouquet/internal/service"
)

type APISuite struct {
	suite.Suite
	srv       *Server
	discounts *repository.MemoryDiscounts
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	store := repository.NewMemoryStore()
	cartRepo := repository.NewMemoryCart(store)
	tx := repository.NewMemoryTx(store)
	s.discounts = repository.NewMemoryDiscounts(store)
	verifier := service.NewCodeVerifier(s.discounts)
	locker := lock.NewKeyedMutex()

	products := service.NewProductService(store)
	carts := service.NewCartService(store, cartRepo, tx, locker, verifier)
	checkout := service.NewCheckoutService(service.CheckoutDeps{
		Cart:     cartRepo,
		Payments: repository.NewMemoryPayments(store),
		Orders:   repository.NewMemoryOrders(store),
		Tx:       tx,
		Locker:   locker,
		Verifier: verifier,
		Logger:   zerolog.Nop(),
	})
	s.srv = NewServer(products, carts, checkout, Options{Logger: zerolog.Nop()})
}

func (s *APISuite) do(method, path, customer string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if customer != "" {
		req.Header.Set(auth.HeaderCustomerID, customer)
	}
	w := httptest.NewRecorder()
	s.srv.Engine().ServeHTTP(w, req)
	return w
}

func (s *APISuite) createProduct(name, price string) int64 {
	w := s.do(http.MethodPost, "/api/v1/products", "", map[string]any{"name": name, "price": price, "stock": 10})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var p domain.Product
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &p))
	return p.ID
}

func (s *APISuite) location(w *httptest.ResponseRecorder) *url.URL {
	s.Require().Equal(http.StatusSeeOther, w.Code, w.Body.String())
	u, err := url.Parse(w.Header().Get("Location"))
	s.Require().NoError(err)
	return u
}

func (s *APISuite) TestProductFlow() {
	id := s.createProduct("Red Roses", "10.50")

	w := s.do(http.MethodGet, "/api/v1/products/1", "", nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPut, "/api/v1/products/1", "", map[string]any{"name": "Red Roses XL", "price": 12, "stock": 7})
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/v1/products?q=roses&min_price=11", "", nil)
	s.Equal(http.StatusOK, w.Code)
	var list []domain.Product
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &list))
	s.Require().Len(list, 1)
	s.Equal(id, list[0].ID)

	w = s.do(http.MethodPost, "/api/v1/products", "", map[string]any{"name": "", "price": 1})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodDelete, "/api/v1/products/1", "", nil)
	s.Equal(http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, "/api/v1/products/1", "", nil)
	s.Equal(http.StatusNotFound, w.Code)
	w = s.do(http.MethodGet, "/api/v1/products/abc", "", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *APISuite) TestCartRequiresIdentity() {
	id := s.createProduct("Tulips", "2")
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/cart"},
		{http.MethodPost, "/api/v1/cart/items/1"},
		{http.MethodDelete, "/api/v1/cart/items/1"},
		{http.MethodDelete, "/api/v1/cart"},
		{http.MethodPost, "/api/v1/checkout"},
		{http.MethodGet, "/api/v1/orders/1"},
	} {
		w := s.do(tc.method, tc.path, "", nil)
		s.Equal(http.StatusUnauthorized, w.Code, tc.method+" "+tc.path)
	}
	s.NotZero(id)
}

func (s *APISuite) TestAddRemoveRedirects() {
	s.createProduct("Tulips", "2")

	u := s.location(s.do(http.MethodPost, "/api/v1/cart/items/1", "alice", nil))
	s.Equal("/api/v1/cart", u.Path)
	s.Equal("0", u.Query().Get("discountAmount"))
	s.Equal("1", u.Query().Get("discountType"))
	s.Equal("", u.Query().Get("discountCode"))

	s.location(s.do(http.MethodPost, "/api/v1/cart/items/1", "alice", nil))

	w := s.do(http.MethodGet, "/api/v1/cart", "alice", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var view service.CartView
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &view))
	s.Require().Len(view.Items, 1)
	s.EqualValues(2, view.Items[0].Quantity)
	s.True(view.TotalAmountToPay.Equal(decimal.NewFromInt(4)))

	s.location(s.do(http.MethodDelete, "/api/v1/cart/items/1", "alice", nil))
	s.location(s.do(http.MethodDelete, "/api/v1/cart/items/1", "alice", nil))
	// removing a line that is gone is a silent no-op
	s.location(s.do(http.MethodDelete, "/api/v1/cart/items/1", "alice", nil))

	w = s.do(http.MethodPost, "/api/v1/cart/items/99", "alice", nil)
	s.Equal(http.StatusNotFound, w.Code)
	w = s.do(http.MethodPost, "/api/v1/cart/items/x", "alice", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *APISuite) TestApplyDiscount() {
	ctx := context.Background()
	d := domain.Discount{Code: "SPRING", Type: domain.DiscountPercentageOff, Amount: decimal.NewFromInt(10)}
	s.Require().NoError(s.discounts.Upsert(ctx, &d))
	ended := time.Now().Add(-time.Hour)
	expired := domain.Discount{Code: "WINTER", Type: domain.DiscountAmountOff, Amount: decimal.NewFromInt(5), Ends: &ended}
	s.Require().NoError(s.discounts.Upsert(ctx, &expired))

	u := s.location(s.do(http.MethodPost, "/api/v1/cart/discount", "alice", map[string]string{"code": "SPRING"}))
	s.Equal("10", u.Query().Get("discountAmount"))
	s.Equal("0", u.Query().Get("discountType"))
	s.Equal("SPRING", u.Query().Get("discountCode"))

	u = s.location(s.do(http.MethodPost, "/api/v1/cart/discount", "alice", map[string]string{"code": "WINTER"}))
	s.Equal("0", u.Query().Get("discountAmount"))
	s.Equal(service.StatusExpired, u.Query().Get("discountCode"))

	u = s.location(s.do(http.MethodPost, "/api/v1/cart/discount", "alice", map[string]string{"code": "NOPE"}))
	s.Equal(service.StatusWrongCode, u.Query().Get("discountCode"))
}

func (s *APISuite) TestCartViewKeepsDiscountStatus() {
	ctx := context.Background()
	ended := time.Now().Add(-time.Hour)
	expired := domain.Discount{Code: "WINTER", Type: domain.DiscountAmountOff, Amount: decimal.NewFromInt(5), Ends: &ended}
	s.Require().NoError(s.discounts.Upsert(ctx, &expired))
	s.createProduct("Tulips", "2")
	s.location(s.do(http.MethodPost, "/api/v1/cart/items/1", "alice", nil))

	for code, want := range map[string]string{"WINTER": service.StatusExpired, "NOPE": service.StatusWrongCode} {
		u := s.location(s.do(http.MethodPost, "/api/v1/cart/discount", "alice", map[string]string{"code": code}))
		w := s.do(http.MethodGet, u.String(), "alice", nil)
		s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
		var view service.CartView
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &view))
		s.Equal(want, view.Discount.Code, code)
		s.True(view.TotalAmountToPay.Equal(decimal.NewFromInt(2)), view.TotalAmountToPay.String())
	}
}

func (s *APISuite) TestCheckoutDeliveryDateIsOptional() {
	s.createProduct("Lilies", "4")
	form := map[string]any{"delivery_address": "Flower st 7", "payment_type": domain.PaymentCard}

	s.location(s.do(http.MethodPost, "/api/v1/cart/items/1", "alice", nil))
	u := s.location(s.do(http.MethodPost, "/api/v1/checkout", "alice", form))
	w := s.do(http.MethodGet, "/api/v1/orders/"+u.Query().Get("orderId"), "alice", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var o domain.Order
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &o))
	s.Nil(o.DeliveryDate)

	form["delivery_date"] = "2025-03-12T10:00:00Z"
	s.location(s.do(http.MethodPost, "/api/v1/cart/items/1", "alice", nil))
	u = s.location(s.do(http.MethodPost, "/api/v1/checkout", "alice", form))
	w = s.do(http.MethodGet, "/api/v1/orders/"+u.Query().Get("orderId"), "alice", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	o = domain.Order{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &o))
	s.Require().NotNil(o.DeliveryDate)
	s.Equal(12, o.DeliveryDate.Day())
}

func (s *APISuite) TestCheckoutFlow() {
	ctx := context.Background()
	d := domain.Discount{Code: "FIVE", Type: domain.DiscountAmountOff, Amount: decimal.NewFromInt(5)}
	s.Require().NoError(s.discounts.Upsert(ctx, &d))
	s.createProduct("Peonies", "7.50")
	s.location(s.do(http.MethodPost, "/api/v1/cart/items/1", "alice", nil))
	s.location(s.do(http.MethodPost, "/api/v1/cart/items/1", "alice", nil))

	form := map[string]any{
		"delivery_address": "Flower st 7",
		"payment_type":     domain.PaymentCard,
		"personal_message": "Love you",
		"discount_code":    "FIVE",
	}
	u := s.location(s.do(http.MethodPost, "/api/v1/checkout", "alice", form))
	s.Equal("/api/v1/checkout/thank-you", u.Path)
	s.Equal(service.OrderTypeOrder, u.Query().Get("orderType"))
	orderID := u.Query().Get("orderId")
	s.NotEmpty(orderID)

	w := s.do(http.MethodGet, u.String(), "", nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/v1/orders/"+orderID, "alice", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var o domain.Order
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &o))
	s.True(o.TotalAmountToPay.Equal(decimal.NewFromInt(10)), o.TotalAmountToPay.String())
	s.False(o.IsOrderSent)
	s.Nil(o.Rating)
	s.Len(o.Items, 1)

	w = s.do(http.MethodGet, "/api/v1/orders/"+orderID, "bob", nil)
	s.Equal(http.StatusNotFound, w.Code)

	// cart is empty now
	w = s.do(http.MethodPost, "/api/v1/checkout", "alice", form)
	s.Equal(http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/v1/checkout", "alice", map[string]any{"payment_type": 0})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *APISuite) TestSwaggerDoc() {
	w := s.do(http.MethodGet, "/swagger/doc.json", "", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var doc struct {
		BasePath string                    `json:"basePath"`
		Info     struct{ Title string }    `json:"info"`
		Paths    map[string]map[string]any `json:"paths"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &doc))
	s.Equal("/api/v1", doc.BasePath)
	s.Equal("Bouquet API", doc.Info.Title)
	s.Contains(doc.Paths, "/cart/discount")
	s.Contains(doc.Paths["/checkout"], "post")
}

func (s *APISuite) TestRequestID() {
	w := s.do(http.MethodGet, "/api/v1/products", "", nil)
	s.NotEmpty(w.Header().Get(headerRequestID))
}

func TestMapErrorToStatus(t *testing.T) {
	cases := map[error]int{
		service.ErrInvalidInput: http.StatusBadRequest,
		auth.ErrMissingIdentity: http.StatusUnauthorized,
		repository.ErrNotFound:  http.StatusNotFound,
		service.ErrInvalidState: http.StatusConflict,
		repository.ErrConflict:  http.StatusConflict,
		lock.ErrLockTimeout:     http.StatusServiceUnavailable,
		http.ErrHandlerTimeout:  http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := mapErrorToStatus(err); got != want {
			t.Fatalf("%v: got %d want %d", err, got, want)
		}
	}
}

func TestWriteErrorLogsServerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	s := &Server{log: zerolog.New(&buf)}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	c.Set(ctxRequestID, "req-1")
	s.writeError(c, errors.New("db is down"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db is down")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "db is down", line["error"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "/api/v1/checkout", line["path"])

	buf.Reset()
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/orders/1", nil)
	s.writeError(c, repository.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, buf.Len())
}
