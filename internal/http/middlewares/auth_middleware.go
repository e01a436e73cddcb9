package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/homeops/internal/actorctx"
	"github.com/geocoder89/homeops/internal/auth"
	"github.com/geocoder89/homeops/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type Authorizer interface {
	Authorize(ctx context.Context, token string, roles ...user.Role) (user.Context, error)
}

type AuthMiddleware struct {
	gate Authorizer
}

func NewAuthMiddleware(gate Authorizer) *AuthMiddleware {
	return &AuthMiddleware{gate: gate}
}

// Require admits a request carrying a valid bearer token whose subject still exists and,
// when roles are given, currently holds one of them.
func (m *AuthMiddleware) Require(roles ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		uc, err := m.gate.Authorize(c.Request.Context(), bearerToken(c), roles...)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrForbidden):
				abort(c, http.StatusForbidden, "forbidden", "Insufficient role for this resource")
			case errors.Is(err, auth.ErrUnauthorized):
				abort(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired access token")
			default:
				slog.Default().ErrorContext(c.Request.Context(), "auth.gate failed", "err", err)
				abort(c, http.StatusInternalServerError, "internal_error", "Could not authorize request")
			}
			return
		}

		c.Set(CtxUser, uc)
		c.Request = c.Request.WithContext(actorctx.With(c.Request.Context(), uc))

		c.Next()
	}
}

func UserFromContext(c *gin.Context) (user.Context, bool) {
	v, ok := c.Get(CtxUser)
	if !ok {
		return user.Context{}, false
	}
	uc, ok := v.(user.Context)
	return uc, ok
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[len("Bearer "):])
}

func abort(c *gin.Context, status int, code, message string) {
	reqID, _ := c.Get(CtxRequestID)
	id, _ := reqID.(string)

	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   message,
			"requestId": id,
		},
	})
}
