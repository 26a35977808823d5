package sqlite

import (
	"context"
	"time"

	"github.com/project-atlas/readiness/internal/readiness/domain"
)

type usersRepo struct {
	q dbtx
}

const userColumns = `id, email, password_hash, full_name, role, active, created_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, full_name, role, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.FullName, u.Role.String(), u.Active, createdAt)
	return mapConstraint(err)
}

func (r *usersRepo) UpdateFullName(ctx context.Context, userID, fullName string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE users SET full_name = ? WHERE id = ?`, fullName, userID)
	return err
}

func (r *usersRepo) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &role, &u.Active, &u.CreatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Role = domain.Role(role)
	return u, nil
}
