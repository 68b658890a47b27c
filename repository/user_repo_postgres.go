package repository

import (
	"context"
	"database/sql"
	"fmt"

	"idealtransport/models"
)

type PostgresUserRepo struct {
	DB *sql.DB
}

func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{DB: db}
}

const userColumns = `id, email, hashed_password, full_name, is_active, is_admin, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.FullName, &u.IsActive, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser inserts a user whose password is already hashed. A taken
// email (case-insensitive) fails with ErrDuplicate.
func (r *PostgresUserRepo) CreateUser(ctx context.Context, user *models.User) error {
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO users (email, hashed_password, full_name, is_active, is_admin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, user.Email, user.HashedPassword, user.FullName, user.IsActive, user.IsAdmin).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", classify(err))
	}
	return nil
}

func (r *PostgresUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
	if err != nil {
		return nil, classify(err)
	}
	return u, nil
}

func (r *PostgresUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err)
	}
	return u, nil
}

func (r *PostgresUserRepo) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (r *PostgresUserRepo) UpdateUser(ctx context.Context, user *models.User) error {
	err := r.DB.QueryRowContext(ctx, `
		UPDATE users SET hashed_password=$1, full_name=$2, is_active=$3, is_admin=$4, updated_at=NOW()
		WHERE id=$5
		RETURNING updated_at
	`, user.HashedPassword, user.FullName, user.IsActive, user.IsAdmin, user.ID).Scan(&user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user: %w", classify(err))
	}
	return nil
}

// DeleteUser fails with ErrInUse while the user still owns payments or
// expense entries.
func (r *PostgresUserRepo) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ UserRepository = (*PostgresUserRepo)(nil)
