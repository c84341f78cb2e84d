package httpapi

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"bouquet/internal/domain"
	"bouquet/internal/service"
)

const thankYouPath = "/api/v1/checkout/thank-you"

type checkoutReq struct {
	DeliveryDate    *time.Time         `json:"delivery_date"`
	PersonalMessage string             `json:"personal_message"`
	DeliveryAddress string             `json:"delivery_address" binding:"required"`
	PaymentType     domain.PaymentType `json:"payment_type"`
	BankAccount     *int64             `json:"bank_account"`
	DiscountCode    string             `json:"discount_code"`
}

func (r checkoutReq) toRequest() service.CheckoutRequest {
	return service.CheckoutRequest{
		Order: domain.Order{
			DeliveryDate:    r.DeliveryDate,
			PersonalMessage: r.PersonalMessage,
		},
		Payment: domain.Payment{
			BankAccount:     r.BankAccount,
			DeliveryAddress: r.DeliveryAddress,
			PaymentType:     r.PaymentType,
		},
		DiscountCode: r.DiscountCode,
	}
}

// @Summary Place order
// @Description Turns the cart into an order and a payment. The total is computed from the cart.
// @Tags checkout
// @Accept json
// @Param X-Customer-ID header string true "Customer"
// @Param input body checkoutReq true "Checkout form"
// @Success 303
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /checkout [post]
func (s *Server) placeOrder(c *gin.Context) {
	customer, ok := customerID(c)
	if !ok {
		return
	}
	var req checkoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res, err := s.checkout.OrderCreate(c.Request.Context(), customer, req.toRequest())
	if err != nil {
		s.writeError(c, err)
		return
	}
	q := url.Values{}
	q.Set("orderType", service.OrderTypeOrder)
	q.Set("orderId", strconv.FormatInt(res.Order.ID, 10))
	c.Redirect(http.StatusSeeOther, thankYouPath+"?"+q.Encode())
}

// @Summary Thank-you page
// @Tags checkout
// @Produce json
// @Param orderType query string false "Order type"
// @Param orderId query int false "Order ID"
// @Success 200 {object} map[string]string
// @Router /checkout/thank-you [get]
func (s *Server) thankYou(c *gin.Context) {
	orderType := c.DefaultQuery("orderType", service.OrderTypeOrder)
	c.JSON(http.StatusOK, gin.H{
		"orderType": orderType,
		"orderId":   c.Query("orderId"),
	})
}

// @Summary Get own order by id
// @Tags orders
// @Produce json
// @Param X-Customer-ID header string true "Customer"
// @Param id path int true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	customer, ok := customerID(c)
	if !ok {
		return
	}
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	o, err := s.checkout.GetOrder(c.Request.Context(), customer, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
