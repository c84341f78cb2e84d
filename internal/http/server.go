package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"bouquet/internal/auth"
	"bouquet/internal/lock"
	"bouquet/internal/repository"
	"bouquet/internal/service"
)

type Server struct {
	engine   *gin.Engine
	products *service.ProductService
	cart     *service.CartService
	checkout *service.CheckoutService
	log      zerolog.Logger
}

// Options настройки HTTP-слоя
type Options struct {
	CORSOrigins []string
	Logger      zerolog.Logger
}

func NewServer(products *service.ProductService, cart *service.CartService, checkout *service.CheckoutService, opts Options) *Server {
	r := gin.New()
	r.Use(requestID(), requestLogger(opts.Logger), corsMiddleware(opts.CORSOrigins), auth.Middleware())
	s := &Server{engine: r, products: products, cart: cart, checkout: checkout, log: opts.Logger}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", auth.HeaderCustomerID, headerRequestID},
		ExposeHeaders: []string{"Location", headerRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := s.engine.Group("/api/v1")
	{
		products := v1.Group("/products")
		products.POST("", s.createProduct)
		products.GET(":id", s.getProduct)
		products.PUT(":id", s.updateProduct)
		products.DELETE(":id", s.deleteProduct)
		products.GET("", s.listProducts)

		cart := v1.Group("/cart")
		cart.GET("", s.viewCart)
		cart.DELETE("", s.clearCart)
		cart.POST("/items/:productId", s.addToCart)
		cart.DELETE("/items/:productId", s.removeFromCart)
		cart.POST("/discount", s.applyDiscount)

		checkout := v1.Group("/checkout")
		checkout.POST("", s.placeOrder)
		checkout.GET("/thank-you", s.thankYou)

		v1.GET("/orders/:id", s.getOrder)
	}
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrMissingIdentity):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, lock.ErrLockTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError отвечает JSON-ошибкой; детали 5xx только в логе
func (s *Server) writeError(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		s.log.Error().
			Err(err).
			Str("request_id", c.GetString(ctxRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Msg("request failed")
		c.JSON(status, gin.H{"error": http.StatusText(status)})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
