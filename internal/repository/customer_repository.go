package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
	"github.com/yourorg/catalogapi/internal/domain"
)

// uniqueViolation is the postgres error code for unique constraint breaches.
const uniqueViolation = "23505"

// PostgresCustomerRepository implements domain.CustomerRepository using PostgreSQL
type PostgresCustomerRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresCustomerRepository creates a new customer repository
func NewPostgresCustomerRepository(db *sql.DB, logger *slog.Logger) *PostgresCustomerRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCustomerRepository{db: db, logger: logger}
}

// Create creates a new customer. A duplicate slug surfaces as a validation
// error rather than a raw constraint failure.
func (r *PostgresCustomerRepository) Create(customer *domain.Customer) error {
	query := `
		INSERT INTO customers (name, slug)
		VALUES ($1, $2)
		RETURNING id
	`
	err := r.db.QueryRow(query, customer.Name, customer.Slug).Scan(&customer.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.FieldError("name", "a customer with this name already exists")
		}
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

// GetByID retrieves a customer by ID together with its users
func (r *PostgresCustomerRepository) GetByID(id int64) (*domain.Customer, error) {
	c := &domain.Customer{}
	query := `
		SELECT id, name, slug
		FROM customers
		WHERE id = $1
	`
	err := r.db.QueryRow(query, id).Scan(&c.ID, &c.Name, &c.Slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	users, err := r.loadUsers(c.ID)
	if err != nil {
		return nil, err
	}
	c.Users = users
	return c, nil
}

// GetBySlug retrieves a customer by slug
func (r *PostgresCustomerRepository) GetBySlug(slug string) (*domain.Customer, error) {
	c := &domain.Customer{}
	query := `
		SELECT id, name, slug
		FROM customers
		WHERE slug = $1
	`
	err := r.db.QueryRow(query, slug).Scan(&c.ID, &c.Name, &c.Slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get customer by slug: %w", err)
	}
	return c, nil
}

// Update updates a customer's name. The slug is computed once at creation
// and never rewritten.
func (r *PostgresCustomerRepository) Update(customer *domain.Customer) error {
	query := `
		UPDATE customers SET name = $1 WHERE id = $2
	`
	res, err := r.db.Exec(query, customer.Name, customer.ID)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
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

// Delete removes a customer. The users foreign key cascades, so the
// customer's users disappear with it.
func (r *PostgresCustomerRepository) Delete(id int64) error {
	res, err := r.db.Exec(`DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
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

// List returns one page of customers ordered by id ascending
func (r *PostgresCustomerRepository) List(page, limit int) ([]*domain.Customer, error) {
	query := `
		SELECT id, name, slug
		FROM customers
		ORDER BY id ASC
		OFFSET $1 LIMIT $2
	`
	rows, err := r.db.Query(query, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	customers := []*domain.Customer{}
	for rows.Next() {
		c := &domain.Customer{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (r *PostgresCustomerRepository) loadUsers(customerID int64) ([]*domain.User, error) {
	query := `
		SELECT id, username, email, password_hash, roles, created_at, customer_id
		FROM users
		WHERE customer_id = $1
		ORDER BY id ASC
	`
	rows, err := r.db.Query(query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer users: %w", err)
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
