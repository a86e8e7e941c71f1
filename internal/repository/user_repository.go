package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"github.com/yourorg/catalogapi/internal/domain"
)

// PostgresUserRepository implements domain.UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresUserRepository creates a new user repository
func NewPostgresUserRepository(db *sql.DB, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUserRepository{db: db, logger: logger}
}

// Create creates a new user. created_at is set by the database and never
// updated afterwards.
func (r *PostgresUserRepository) Create(user *domain.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, roles, customer_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(
		query,
		user.Username,
		user.Email,
		user.PasswordHash,
		pq.Array(user.Roles),
		user.CustomerID,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.FieldError("username", "this username is already taken")
		}
		r.logger.Error("failed to create user",
			slog.String("username", user.Username),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID together with its owning customer, if any
func (r *PostgresUserRepository) GetByID(id int64) (*domain.User, error) {
	query := `
		SELECT u.id, u.username, u.email, u.password_hash, u.roles, u.created_at, u.customer_id,
		       c.id, c.name, c.slug
		FROM users u
		LEFT JOIN customers c ON c.id = u.customer_id
		WHERE u.id = $1
	`
	u := &domain.User{}
	var cID sql.NullInt64
	var cName, cSlug sql.NullString
	err := r.db.QueryRow(query, id).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, pq.Array(&u.Roles), &u.CreatedAt, &u.CustomerID,
		&cID, &cName, &cSlug,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("failed to get user by id",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if cID.Valid {
		u.Customer = &domain.Customer{ID: cID.Int64, Name: cName.String, Slug: cSlug.String}
	}
	return u, nil
}

// GetByUsername retrieves a user by username
func (r *PostgresUserRepository) GetByUsername(username string) (*domain.User, error) {
	query := `
		SELECT id, username, email, password_hash, roles, created_at, customer_id
		FROM users
		WHERE username = $1
	`
	u := &domain.User{}
	err := r.db.QueryRow(query, username).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, pq.Array(&u.Roles), &u.CreatedAt, &u.CustomerID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return u, nil
}

// Update mutates username, email, roles and password hash in place.
func (r *PostgresUserRepository) Update(user *domain.User) error {
	query := `
		UPDATE users
		SET username = $1, email = $2, password_hash = $3, roles = $4
		WHERE id = $5
	`
	res, err := r.db.Exec(query, user.Username, user.Email, user.PasswordHash, pq.Array(user.Roles), user.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.FieldError("username", "this username is already taken")
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a user
func (r *PostgresUserRepository) Delete(id int64) error {
	res, err := r.db.Exec(`DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns one page of all users ordered by id ascending
func (r *PostgresUserRepository) List(page, limit int) ([]*domain.User, error) {
	query := `
		SELECT id, username, email, password_hash, roles, created_at, customer_id
		FROM users
		ORDER BY id ASC
		OFFSET $1 LIMIT $2
	`
	return r.queryUsers(query, (page-1)*limit, limit)
}

// ListByCustomer returns one page of a single customer's users ordered by
// id ascending
func (r *PostgresUserRepository) ListByCustomer(customerID int64, page, limit int) ([]*domain.User, error) {
	query := `
		SELECT id, username, email, password_hash, roles, created_at, customer_id
		FROM users
		WHERE customer_id = $1
		ORDER BY id ASC
		OFFSET $2 LIMIT $3
	`
	return r.queryUsers(query, customerID, (page-1)*limit, limit)
}

func (r *PostgresUserRepository) queryUsers(query string, args ...any) ([]*domain.User, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, pq.Array(&u.Roles), &u.CreatedAt, &u.CustomerID); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
