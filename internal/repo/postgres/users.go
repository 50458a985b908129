package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rajeshk/taskhub/internal/domain/user"
	"github.com/rajeshk/taskhub/internal/observability"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailAlreadyUsed = errors.New("email already used")
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash, mobile, profilePicURL string) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:            uuid.NewString(),
		Name:          name,
		Email:         email,
		PasswordHash:  passwordHash,
		Mobile:        mobile,
		ProfilePicURL: profilePicURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users(id, name, email, password_hash, mobile, profile_pic_url, created_at, updated_at)
			 VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
			u.ID, u.Name, u.Email, u.PasswordHash, u.Mobile, u.ProfilePicURL, u.CreatedAt, u.UpdatedAt)
		return err
	})

	if err != nil {
		// unique_violation on the email index is the authoritative
		// duplicate guard; the handler's read-check may have raced.
		var pgErr *pgconn.PgError

		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.User{}, ErrEmailAlreadyUsed
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT id, name, email, password_hash, mobile, profile_pic_url, created_at, updated_at
			 FROM users
			 WHERE email = $1`,
			email,
		).Scan(
			&u.ID,
			&u.Name,
			&u.Email,
			&u.PasswordHash,
			&u.Mobile,
			&u.ProfilePicURL,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {

			return user.User{}, ErrUserNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT id, name, email, password_hash, mobile, profile_pic_url, created_at, updated_at
			 FROM users
			 WHERE id = $1`,
			id,
		).Scan(
			&u.ID,
			&u.Name,
			&u.Email,
			&u.PasswordHash,
			&u.Mobile,
			&u.ProfilePicURL,
			&u.CreatedAt,
			&u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}

		return user.User{}, err
	}
	return u, nil
}
