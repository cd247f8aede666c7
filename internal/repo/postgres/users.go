package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/trungnamdev/authapi/internal/domain/user"
	"github.com/trungnamdev/authapi/internal/observability"
	"github.com/trungnamdev/authapi/internal/security"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email is already taken")
)

const uniqueViolation = "23505"

// UsersRepo is the credential store. It owns password hashing and the
// case-insensitive uniqueness of emails; handlers never touch either.
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

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		err := r.pool.QueryRow(
			ctx,
			`SELECT id, email, password_hash, created_at, updated_at
             FROM users
             WHERE lower(email) = $1`,
			user.NormalizeEmail(email),
		).Scan(
			&u.ID,
			&u.Email,
			&u.PasswordHash,
			&u.CreatedAt,
			&u.UpdatedAt,
		)

		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}

			return err
		}

		claims, err := r.claimsFor(ctx, u.ID)

		if err != nil {
			return err
		}

		u.Claims = claims
		return nil
	})

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

// Create hashes the plaintext password and inserts a new user record.
// Duplicate emails surface as ErrEmailTaken; the unique index makes the
// rejection atomic under concurrent attempts.
func (r *UsersRepo) Create(ctx context.Context, email, password string) (user.User, error) {
	hash, err := security.HashPassword(password)

	if err != nil {
		return user.User{}, err
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        user.NormalizeEmail(email),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, created_at, updated_at)
             VALUES ($1, $2, $3, $4, $5)`,
			u.ID, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
		)

		if err != nil {
			var pgErr *pgconn.PgError

			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return ErrEmailTaken
			}

			return err
		}

		return nil
	})

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

// List returns accounts ordered by creation time, claims included.
// Used by the admin surface only.
func (r *UsersRepo) List(ctx context.Context, limit, offset int) ([]user.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	if offset < 0 {
		offset = 0
	}

	var users []user.User

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT u.id, u.email, u.created_at, u.updated_at, c.claim_type, c.claim_value
             FROM (
                 SELECT id, email, created_at, updated_at
                 FROM users
                 ORDER BY created_at, id
                 LIMIT $1 OFFSET $2
             ) u
             LEFT JOIN user_claims c ON c.user_id = u.id
             ORDER BY u.created_at, u.id, c.claim_type, c.claim_value`,
			limit, offset,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		users = users[:0]

		for rows.Next() {
			var (
				u          user.User
				claimType  *string
				claimValue *string
			)

			err := rows.Scan(&u.ID, &u.Email, &u.CreatedAt, &u.UpdatedAt, &claimType, &claimValue)

			if err != nil {
				return err
			}

			if len(users) == 0 || users[len(users)-1].ID != u.ID {
				users = append(users, u)
			}

			if claimType != nil && claimValue != nil {
				last := &users[len(users)-1]
				last.Claims = append(last.Claims, user.Claim{Type: *claimType, Value: *claimValue})
			}
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return users, nil
}

func (r *UsersRepo) claimsFor(ctx context.Context, userID string) ([]user.Claim, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT claim_type, claim_value
         FROM user_claims
         WHERE user_id = $1
         ORDER BY claim_type, claim_value`,
		userID,
	)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var claims []user.Claim

	for rows.Next() {
		var c user.Claim

		if err := rows.Scan(&c.Type, &c.Value); err != nil {
			return nil, err
		}

		claims = append(claims, c)
	}

	return claims, rows.Err()
}
