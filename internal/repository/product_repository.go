package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/catalogapi/internal/domain"
)

// PostgresProductRepository implements domain.ProductRepository using PostgreSQL
type PostgresProductRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresProductRepository creates a new product repository
func NewPostgresProductRepository(db *sql.DB, logger *slog.Logger) *PostgresProductRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProductRepository{db: db, logger: logger}
}

// Create creates a new product
func (r *PostgresProductRepository) Create(product *domain.Product) error {
	query := `
		INSERT INTO products (brand, name, description, reference)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRow(query, product.Brand, product.Name, product.Description, product.Reference).Scan(&product.ID)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by ID
func (r *PostgresProductRepository) GetByID(id int64) (*domain.Product, error) {
	p := &domain.Product{}
	query := `
		SELECT id, brand, name, description, reference
		FROM products
		WHERE id = $1
	`
	err := r.db.QueryRow(query, id).Scan(&p.ID, &p.Brand, &p.Name, &p.Description, &p.Reference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// Update updates an existing product
func (r *PostgresProductRepository) Update(product *domain.Product) error {
	query := `
		UPDATE products
		SET brand = $1, name = $2, description = $3, reference = $4
		WHERE id = $5
	`
	res, err := r.db.Exec(query, product.Brand, product.Name, product.Description, product.Reference, product.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
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

// Delete removes a product
func (r *PostgresProductRepository) Delete(id int64) error {
	res, err := r.db.Exec(`DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
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

// List returns one page of products ordered by id ascending
func (r *PostgresProductRepository) List(page, limit int) ([]*domain.Product, error) {
	query := `
		SELECT id, brand, name, description, reference
		FROM products
		ORDER BY id ASC
		OFFSET $1 LIMIT $2
	`
	return r.queryProducts(query, (page-1)*limit, limit)
}

// ListByBrand returns one page of a brand's products ordered by id ascending
func (r *PostgresProductRepository) ListByBrand(brand string, page, limit int) ([]*domain.Product, error) {
	query := `
		SELECT id, brand, name, description, reference
		FROM products
		WHERE brand = $1
		ORDER BY id ASC
		OFFSET $2 LIMIT $3
	`
	return r.queryProducts(query, brand, (page-1)*limit, limit)
}

func (r *PostgresProductRepository) queryProducts(query string, args ...any) ([]*domain.Product, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		p := &domain.Product{}
		if err := rows.Scan(&p.ID, &p.Brand, &p.Name, &p.Description, &p.Reference); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
