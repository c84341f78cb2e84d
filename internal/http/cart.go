package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"bouquet/internal/auth"
	"bouquet/internal/repository"
	"bouquet/internal/service"
)

const cartPath = "/api/v1/cart"

// cartLocation адрес страницы корзины с параметрами скидки
func cartLocation(p service.DiscountParams) string {
	q := url.Values{}
	q.Set("discountAmount", p.Amount.String())
	q.Set("discountType", strconv.Itoa(int(p.Type)))
	q.Set("discountCode", p.Code)
	return cartPath + "?" + q.Encode()
}

func customerID(c *gin.Context) (string, bool) {
	id, err := auth.CustomerID(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return "", false
	}
	return id, true
}

func productIDParam(c *gin.Context) (int64, bool) {
	id, err := parseID(c.Param("productId"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return 0, false
	}
	return id, true
}

// @Summary View cart
// @Description Cart lines with products and the total after the discount code, if any.
// @Tags cart
// @Produce json
// @Param X-Customer-ID header string true "Customer"
// @Param discountCode query string false "Discount code"
// @Success 200 {object} service.CartView
// @Failure 401 {object} map[string]string
// @Router /cart [get]
func (s *Server) viewCart(c *gin.Context) {
	customer, ok := customerID(c)
	if !ok {
		return
	}
	view, err := s.cart.View(c.Request.Context(), customer, c.Query("discountCode"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// @Summary Add product to cart
// @Tags cart
// @Param X-Customer-ID header string true "Customer"
// @Param productId path int true "Product ID"
// @Success 303
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /cart/items/{productId} [post]
func (s *Server) addToCart(c *gin.Context) {
	customer, ok := customerID(c)
	if !ok {
		return
	}
	productID, ok := productIDParam(c)
	if !ok {
		return
	}
	if _, err := s.cart.AddToCart(c.Request.Context(), customer, productID); err != nil {
		s.writeError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, cartLocation(service.NoDiscount()))
}

// @Summary Remove one unit from cart
// @Tags cart
// @Param X-Customer-ID header string true "Customer"
// @Param productId path int true "Product ID"
// @Success 303
// @Failure 401 {object} map[string]string
// @Router /cart/items/{productId} [delete]
func (s *Server) removeFromCart(c *gin.Context) {
	customer, ok := customerID(c)
	if !ok {
		return
	}
	productID, ok := productIDParam(c)
	if !ok {
		return
	}
	_, err := s.cart.RemoveItem(c.Request.Context(), customer, productID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.writeError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, cartLocation(service.NoDiscount()))
}

// @Summary Clear cart
// @Tags cart
// @Param X-Customer-ID header string true "Customer"
// @Success 303
// @Failure 401 {object} map[string]string
// @Router /cart [delete]
func (s *Server) clearCart(c *gin.Context) {
	customer, ok := customerID(c)
	if !ok {
		return
	}
	if _, err := s.cart.Clear(c.Request.Context(), customer); err != nil {
		s.writeError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, cartLocation(service.NoDiscount()))
}

type discountReq struct {
	Code string `json:"code" form:"code"`
}

// @Summary Apply discount code
// @Description Redirects to the cart with the discount parameters or a status message in discountCode.
// @Tags cart
// @Accept json
// @Param X-Customer-ID header string true "Customer"
// @Param input body discountReq true "Code"
// @Success 303
// @Failure 400 {object} map[string]string
// @Router /cart/discount [post]
func (s *Server) applyDiscount(c *gin.Context) {
	if _, ok := customerID(c); !ok {
		return
	}
	var req discountReq
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	params, err := s.checkout.ApplyDiscount(c.Request.Context(), req.Code)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, cartLocation(params))
}
