package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/trungnamdev/authapi/internal/config"
	"github.com/trungnamdev/authapi/internal/domain/user"
	"github.com/trungnamdev/authapi/internal/security"
)

// EnsureAdminUser seeds the configured admin account with a (role, admin)
// claim. No-op when seed config is absent or the account already exists.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	email := user.NormalizeEmail(cfg.AdminEmail)

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE lower(email) = $1`, email).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	now := time.Now().UTC()
	id := uuid.NewString()

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})

	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		id, email, hash, now, now,
	)

	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO user_claims (user_id, claim_type, claim_value)
		VALUES ($1, 'role', 'admin')`,
		id,
	)

	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}
