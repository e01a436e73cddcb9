package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/homeops/internal/domain/user"
	"github.com/geocoder89/homeops/internal/live"
	"github.com/gin-gonic/gin"
)

type UserService interface {
	List(ctx context.Context) ([]user.User, error)
	Get(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, req user.CreateUserRequest) (user.User, error)
	Update(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error)
	UpdateLanguage(ctx context.Context, id, language string) (user.User, error)
	Delete(ctx context.Context, id string) error
	Changed(ctx context.Context, typ, id string)
}

// CredentialAdmin is the ADMIN-only half of the credential authority.
type CredentialAdmin interface {
	ResetPIN(ctx context.Context, userID string) error
	ResetPassword(ctx context.Context, userID, password string) error
}

type UsersHandler struct {
	users UserService
	creds CredentialAdmin
}

func NewUsersHandler(users UserService, creds CredentialAdmin) *UsersHandler {
	return &UsersHandler{users: users, creds: creds}
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

func (h *UsersHandler) List(ctx *gin.Context) {
	out, err := h.users.List(ctx.Request.Context())
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, out)
}

func (h *UsersHandler) Get(ctx *gin.Context) {
	u, err := h.users.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) Create(ctx *gin.Context) {
	var req user.CreateUserRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestTimeout(ctx)
	defer cancel()

	u, err := h.users.Create(cctx, req)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, u)
}

func (h *UsersHandler) Update(ctx *gin.Context) {
	var req user.UpdateUserRequest
	if !BindJSON(ctx, &req) {
		return
	}

	u, err := h.users.Update(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) UpdateLanguage(ctx *gin.Context) {
	var req user.UpdateLanguageRequest
	if !BindJSON(ctx, &req) {
		return
	}

	u, err := h.users.UpdateLanguage(ctx.Request.Context(), ctx.Param("id"), req.Language)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) Delete(ctx *gin.Context) {
	if err := h.users.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *UsersHandler) ResetPIN(ctx *gin.Context) {
	id := ctx.Param("id")

	if err := h.creds.ResetPIN(ctx.Request.Context(), id); err != nil {
		RespondServiceError(ctx, err)
		return
	}

	h.users.Changed(ctx.Request.Context(), live.TypePINReset, id)
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *UsersHandler) ResetPassword(ctx *gin.Context) {
	var req ResetPasswordRequest
	if !BindJSON(ctx, &req) {
		return
	}

	id := ctx.Param("id")

	cctx, cancel := requestTimeout(ctx)
	defer cancel()

	if err := h.creds.ResetPassword(cctx, id, req.Password); err != nil {
		RespondServiceError(ctx, err)
		return
	}

	h.users.Changed(ctx.Request.Context(), live.TypePasswordSet, id)
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}
