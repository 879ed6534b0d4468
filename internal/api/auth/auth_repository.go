package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/go-taskflow-api/internal/types"
)

// PGXPool is the subset of pgxpool.Pool the repository uses. Declared here so
// tests can substitute a pgxmock pool.
type PGXPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ Repository = (*PostgresRepository)(nil)

// Repository persists and loads user records.
type Repository interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*types.User, error)
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)
	UpdateUserRole(ctx context.Context, userID uuid.UUID, role types.Role) (*types.User, error)
}

type PostgresRepository struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewPostgresRepository(pgpool PGXPool, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{
		logger: logger,
		pgpool: pgpool,
	}
}

const userColumns = "id, username, email, password_hash, role, created_at, updated_at"

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user with the default User role. A duplicate email
// surfaces as types.ErrConflict.
func (r *PostgresRepository) CreateUser(ctx context.Context, username, email, passwordHash string) (*types.User, error) {
	query := `
        INSERT INTO users (username, email, password_hash, role)
        VALUES ($1, $2, $3, $4)
        RETURNING ` + userColumns
	user, err := scanUser(r.pgpool.QueryRow(ctx, query, username, email, passwordHash, types.RoleUser))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return nil, fmt.Errorf("email already registered: %w", types.ErrConflict)
		}
		r.logger.ErrorContext(ctx, "Failed to create user", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE email = $1"
	user, err := scanUser(r.pgpool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", email, types.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Failed to get user by email", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = $1"
	user, err := scanUser(r.pgpool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, types.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Failed to get user by id", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pgpool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)", userID).Scan(&exists)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to check user existence", slog.Any("error", err))
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// UpdateUserRole sets a user's role and returns the updated record.
func (r *PostgresRepository) UpdateUserRole(ctx context.Context, userID uuid.UUID, role types.Role) (*types.User, error) {
	query := `
        UPDATE users SET role = $1, updated_at = now()
        WHERE id = $2
        RETURNING ` + userColumns
	user, err := scanUser(r.pgpool.QueryRow(ctx, query, role, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, types.ErrNotFound)
		}
		r.logger.ErrorContext(ctx, "Failed to update user role", slog.Any("error", err))
		return nil, fmt.Errorf("failed to update user role: %w", err)
	}
	return user, nil
}
