package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/homeops/internal/auth"
	"github.com/geocoder89/homeops/internal/credentials"
	"github.com/geocoder89/homeops/internal/domain/user"
	"github.com/geocoder89/homeops/internal/users"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	if v, ok := ctx.Get("request_id"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}

	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.AbortWithStatusJSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondForbidden(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusForbidden, "forbidden", message, nil)
}

// RespondServiceError maps domain errors onto the API envelope. Anything unrecognised is
// logged and reported as a 500 without detail.
func RespondServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, credentials.ErrInvalidCredentials):
		RespondUnAuthorized(ctx, "invalid_credentials", "Invalid credentials")
	case errors.Is(err, credentials.ErrInvalidRequest):
		RespondBadRequest(ctx, "Invalid request", nil)
	case errors.Is(err, credentials.ErrInvalidFormat):
		RespondError(ctx, http.StatusBadRequest, "invalid_format", "Invalid format", nil)
	case errors.Is(err, credentials.ErrAlreadySetToday):
		RespondConflict(ctx, "pin_already_set_today", "PIN has already been set today")
	case errors.Is(err, credentials.ErrNotFound), errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	case errors.Is(err, auth.ErrUnauthorized):
		RespondUnAuthorized(ctx, "unauthorized", "Authentication required")
	case errors.Is(err, auth.ErrForbidden):
		RespondForbidden(ctx, "Insufficient role for this resource")
	case errors.Is(err, user.ErrEmailTaken):
		RespondConflict(ctx, "email_taken", "Email is already in use")
	case errors.Is(err, user.ErrAdminProtected):
		RespondConflict(ctx, "admin_undeletable", "Admin accounts cannot be deleted")
	case errors.Is(err, user.ErrInvalidRole):
		RespondBadRequest(ctx, "Invalid role", nil)
	case errors.Is(err, users.ErrWeakPassword):
		RespondError(ctx, http.StatusBadRequest, "invalid_format", "Password must be at least 6 characters", nil)
	default:
		slog.Default().ErrorContext(ctx.Request.Context(), "request failed",
			"route", ctx.FullPath(), "request_id", requestIDFrom(ctx), "err", err)
		RespondInternal(ctx, "Something went wrong")
	}
}
