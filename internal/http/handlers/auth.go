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
	"github.com/rajeshk/taskhub/internal/repo/postgres"
	"github.com/rajeshk/taskhub/internal/security"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, name, email, passwordHash, mobile, profilePicURL string) (user.User, error)
}

type TokenIssuer interface {
	GenerateToken(userID string) (string, error)
}

type AuthHandler struct {
	users      UserReader
	userWriter UserWriter
	jwt        TokenIssuer
	log        *slog.Logger
}

func NewAuthHandler(users UserReader, userWriter UserWriter, jwt TokenIssuer, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:      users,
		userWriter: userWriter,
		jwt:        jwt,
		log:        log,
	}
}

// Register creates the user and immediately logs them in: the response
// carries a token for the fresh account.
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	// Advisory duplicate check first: a friendlier 409 without
	// burning a bcrypt hash. The unique index catches the race.
	_, err := h.users.GetByEmail(cctx, req.Email)

	if err == nil {
		RespondConflict(ctx, "email_taken", "Email is already in use.")
		return
	}

	if !errors.Is(err, postgres.ErrUserNotFound) {
		h.log.Error("register: email lookup failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		h.log.Error("register: password hashing failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	u, err := h.userWriter.Create(cctx, req.Name, req.Email, hash, req.Mobile, req.ProfilePicURL)

	if err != nil {
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}

		h.log.Error("register: user insert failed", "err", err)
		RespondInternal(ctx, "Could not create user")
		return
	}

	token, err := h.jwt.GenerateToken(u.ID)

	if err != nil {
		h.log.Error("register: token generation failed", "err", err)
		RespondInternal(ctx, "Could not generate token")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"token":   token,
	})
}

// Login verifies credentials. A missing account and a wrong password
// produce the identical response so callers cannot tell which half
// failed.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}
	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	token, err := h.jwt.GenerateToken(foundUser.ID)

	if err != nil {
		h.log.Error("login: token generation failed", "err", err)
		RespondInternal(ctx, "Could not generate token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"token": token,
	})
}
