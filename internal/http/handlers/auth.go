package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/homeops/internal/credentials"
	"github.com/geocoder89/homeops/internal/domain/user"
	"github.com/geocoder89/homeops/internal/http/middlewares"
	"github.com/geocoder89/homeops/internal/live"
	"github.com/gin-gonic/gin"
)

type CredentialService interface {
	Login(ctx context.Context, email, password string) (credentials.Session, error)
	RequestPIN(ctx context.Context, email string) error
	SetPIN(ctx context.Context, userID, pin string) error
	VerifyPIN(ctx context.Context, in credentials.VerifyPINInput) (credentials.Session, error)
}

type StaffDirectory interface {
	ListStaff(ctx context.Context) ([]user.StaffEntry, error)
	Changed(ctx context.Context, typ, id string)
}

type AuthHandler struct {
	creds CredentialService
	staff StaffDirectory
}

func NewAuthHandler(creds CredentialService, staff StaffDirectory) *AuthHandler {
	return &AuthHandler{creds: creds, staff: staff}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type PINRequestRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// PIN format is judged by the authority so a bad PIN reads as invalid_format, not a bind error.
type PINSetRequest struct {
	UserID string `json:"userId" binding:"required"`
	PIN    string `json:"pin"`
}

type PINVerifyRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	PIN    string `json:"pin" binding:"required"`
}

type sessionResponse struct {
	AccessToken string       `json:"access_token"`
	User        user.Context `json:"user"`
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestTimeout(ctx)
	defer cancel()

	s, err := h.creds.Login(cctx, req.Email, req.Password)
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, sessionResponse{AccessToken: s.AccessToken, User: s.User})
}

func (h *AuthHandler) RequestPIN(ctx *gin.Context) {
	var req PINRequestRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestTimeout(ctx)
	defer cancel()

	if err := h.creds.RequestPIN(cctx, req.Email); err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "PIN sent to your email"})
}

func (h *AuthHandler) SetPIN(ctx *gin.Context) {
	var req PINSetRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestTimeout(ctx)
	defer cancel()

	if err := h.creds.SetPIN(cctx, req.UserID, req.PIN); err != nil {
		RespondServiceError(ctx, err)
		return
	}

	h.staff.Changed(ctx.Request.Context(), live.TypePINSet, req.UserID)
	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "PIN set successfully"})
}

func (h *AuthHandler) VerifyPIN(ctx *gin.Context) {
	var req PINVerifyRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestTimeout(ctx)
	defer cancel()

	s, err := h.creds.VerifyPIN(cctx, credentials.VerifyPINInput{
		UserID: req.UserID,
		Email:  req.Email,
		PIN:    req.PIN,
	})
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, sessionResponse{AccessToken: s.AccessToken, User: s.User})
}

func (h *AuthHandler) Staff(ctx *gin.Context) {
	staff, err := h.staff.ListStaff(ctx.Request.Context())
	if err != nil {
		RespondServiceError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, staff)
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	uc, ok := middlewares.UserFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Authentication required")
		return
	}

	ctx.JSON(http.StatusOK, uc)
}
