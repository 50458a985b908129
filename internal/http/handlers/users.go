package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rajeshk/taskhub/internal/config"
	"github.com/rajeshk/taskhub/internal/domain/user"
	"github.com/rajeshk/taskhub/internal/http/middlewares"
	"github.com/rajeshk/taskhub/internal/repo/postgres"
)

type UserByIDReader interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type UsersHandler struct {
	users UserByIDReader
	log   *slog.Logger
}

func NewUsersHandler(users UserByIDReader, log *slog.Logger) *UsersHandler {
	return &UsersHandler{users: users, log: log}
}

// Profile returns the authenticated user's own record. A valid token
// for a row that no longer exists is a 404, not a 401.
func (h *UsersHandler) Profile(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)

	if !ok || id == "" {
		RespondUnAuthorized(ctx, "unauthorized", "No token provided")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		h.log.Error("profile lookup failed", "err", err, "user_id", id)
		RespondInternal(ctx, "Could not load profile")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"name":          u.Name,
		"email":         u.Email,
		"mobile":        u.Mobile,
		"profilePicUrl": u.ProfilePicURL,
	})
}
