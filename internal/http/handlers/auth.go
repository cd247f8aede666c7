package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/trungnamdev/authapi/internal/apperr"
	"github.com/trungnamdev/authapi/internal/domain/user"
	"github.com/trungnamdev/authapi/internal/http/middlewares"
	"github.com/trungnamdev/authapi/internal/observability"
	"github.com/trungnamdev/authapi/internal/repo/postgres"
	"github.com/trungnamdev/authapi/internal/security"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, email, password string) (user.User, error)
}

type TokenIssuer interface {
	Issue(subject, email string, claims []user.Claim) (string, time.Time, error)
}

// The same message covers unknown email and wrong password so responses
// never reveal whether an account exists.
const invalidCredentialsMsg = "Invalid email or password."

type AuthHandler struct {
	users  UserReader
	writer UserWriter
	tokens TokenIssuer
	prom   *observability.Prom
}

func NewAuthHandler(users UserReader, writer UserWriter, tokens TokenIssuer, prom *observability.Prom) *AuthHandler {
	return &AuthHandler{
		users:  users,
		writer: writer,
		tokens: tokens,
		prom:   prom,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type RegisterResponse struct {
	Email string `json:"email"`
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		h.countLogin("invalid_request")
		return
	}

	// derive from the request context so caller cancellation propagates
	// into the store and issuer calls
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)

	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			h.countLogin("invalid_credentials")
			RespondError(ctx, apperr.Validation(apperr.FieldError{Message: invalidCredentialsMsg}))
			return
		}

		if requestGone(ctx) {
			return
		}

		h.countLogin("error")
		RespondError(ctx, err)
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		h.countLogin("invalid_credentials")
		RespondError(ctx, apperr.Validation(apperr.FieldError{Message: invalidCredentialsMsg}))
		return
	}

	// stored claims plus the subject and email claims the issuer appends
	token, expiresAt, err := h.tokens.Issue(foundUser.ID, foundUser.Email, foundUser.Claims)

	if err != nil {
		h.countLogin("error")
		RespondError(ctx, err)
		return
	}

	h.countLogin("ok")

	if h.prom != nil {
		h.prom.TokensIssuedTotal.Inc()
	}

	ctx.JSON(http.StatusOK, LoginResponse{Token: token, ExpiresAt: expiresAt})
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		h.countRegistration("invalid_request")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)

	defer cancel()

	created, err := h.writer.Create(cctx, req.Email, req.Password)

	if err != nil {
		if errors.Is(err, postgres.ErrEmailTaken) {
			h.countRegistration("email_taken")
			RespondError(ctx, apperr.Validation(apperr.FieldError{
				Field:   "email",
				Message: "Email is already taken.",
			}))
			return
		}

		if requestGone(ctx) {
			return
		}

		h.countRegistration("error")
		RespondError(ctx, err)
		return
	}

	h.countRegistration("ok")

	ctx.JSON(http.StatusOK, RegisterResponse{Email: created.Email})
}

type MeResponse struct {
	Subject string            `json:"subject"`
	Email   string            `json:"email"`
	Claims  map[string]string `json:"claims"`
}

// Me echoes the verified identity carried by the bearer token.
func (h *AuthHandler) Me(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondError(ctx, apperr.Forbidden("Missing identity context."))
		return
	}

	ctx.JSON(http.StatusOK, MeResponse{
		Subject: identity.Subject,
		Email:   identity.Email,
		Claims:  identity.Claims,
	})
}

// requestGone reports whether the caller already went away. Cancellation
// propagates without completing the response.
func requestGone(ctx *gin.Context) bool {
	if ctx.Request.Context().Err() != nil {
		ctx.Abort()
		return true
	}

	return false
}

func (h *AuthHandler) countLogin(result string) {
	if h.prom != nil {
		h.prom.LoginsTotal.WithLabelValues(result).Inc()
	}
}

func (h *AuthHandler) countRegistration(result string) {
	if h.prom != nil {
		h.prom.RegistrationsTotal.WithLabelValues(result).Inc()
	}
}
