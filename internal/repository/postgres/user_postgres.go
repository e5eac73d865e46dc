package postgres

import (
	"context"
	"database/sql"

	"filevault/internal/model"
	"filevault/internal/repository"
)

const userColumns = `id, full_name, email, avatar_url, account_id, created_at`

// UserPostgres is a PostgreSQL implementation of repository.UserRepository.
type UserPostgres struct {
	db *sql.DB
}

// NewUserPostgres creates a new UserPostgres repository.
func NewUserPostgres(db *sql.DB) *UserPostgres {
	return &UserPostgres{db: db}
}

var _ repository.UserRepository = (*UserPostgres)(nil)

func (r *UserPostgres) Create(ctx context.Context, u *model.User) (*model.User, error) {
	const q = `
		INSERT INTO users (id, full_name, email, avatar_url, account_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns
	row := r.db.QueryRowContext(ctx, q,
		u.ID,
		u.FullName,
		u.Email,
		u.AvatarURL,
		u.AccountID,
		u.CreatedAt,
	)
	out, err := scanUser(row)
	if err != nil {
		return nil, translate("insert user", err)
	}
	return out, nil
}

func (r *UserPostgres) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, email))
	if err != nil {
		return nil, translate("find user by email", err)
	}
	return u, nil
}

func (r *UserPostgres) FindByAccountID(ctx context.Context, accountID string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE account_id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, accountID))
	if err != nil {
		return nil, translate("find user by account", err)
	}
	return u, nil
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(
		&u.ID,
		&u.FullName,
		&u.Email,
		&u.AvatarURL,
		&u.AccountID,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}
