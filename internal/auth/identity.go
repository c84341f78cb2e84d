package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderCustomerID заголовок, который выставляет шлюз после аутентификации
const HeaderCustomerID = "X-Customer-ID"

// ErrMissingIdentity запрос без аутентифицированного покупателя
var ErrMissingIdentity = errors.New("missing customer identity")

// Identity аутентифицированный покупатель
type Identity struct {
	CustomerID string
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || id.CustomerID == "" {
		return Identity{}, false
	}
	return id, true
}

// CustomerID возвращает id покупателя или ErrMissingIdentity
func CustomerID(ctx context.Context) (string, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return "", ErrMissingIdentity
	}
	return id.CustomerID, nil
}

// Middleware переносит id покупателя из заголовка в контекст запроса.
// Отсутствие заголовка не прерывает запрос: публичные маршруты работают без него,
// а обработчики корзины сами вызывают CustomerID.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if v := strings.TrimSpace(c.GetHeader(HeaderCustomerID)); v != "" {
			c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), Identity{CustomerID: v}))
		}
		c.Next()
	}
}
