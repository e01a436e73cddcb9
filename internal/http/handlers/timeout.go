package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// bcrypt at default cost plus one store round trip fits comfortably.
const defaultRequestTimeout = 5 * time.Second

func requestTimeout(ctx *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), defaultRequestTimeout)
}
