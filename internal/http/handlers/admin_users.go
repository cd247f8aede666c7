package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/trungnamdev/authapi/internal/domain/user"
)

type UserLister interface {
	List(ctx context.Context, limit, offset int) ([]user.User, error)
}

// AdminHandler exposes the identity-management reads behind the admin
// claim guard.
type AdminHandler struct {
	users UserLister
}

func NewAdminHandler(users UserLister) *AdminHandler {
	return &AdminHandler{users: users}
}

type ListUsersResponse struct {
	Users []user.User `json:"users"`
}

func (h *AdminHandler) ListUsers(ctx *gin.Context) {
	limit := queryInt(ctx, "limit", 50)
	offset := queryInt(ctx, "offset", 0)

	users, err := h.users.List(ctx.Request.Context(), limit, offset)

	if err != nil {
		RespondError(ctx, err)
		return
	}

	if users == nil {
		users = []user.User{}
	}

	ctx.JSON(http.StatusOK, ListUsersResponse{Users: users})
}

func queryInt(ctx *gin.Context, key string, fallback int) int {
	raw := ctx.Query(key)

	if raw == "" {
		return fallback
	}

	n, err := strconv.Atoi(raw)

	if err != nil {
		return fallback
	}

	return n
}
