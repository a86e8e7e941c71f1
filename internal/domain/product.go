package domain

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Product is a catalog item. Products carry no tenant ownership and are
// visible to every authenticated principal.
type Product struct {
	ID          int64  `json:"id" groups:"productList,productDetail"`
	Brand       string `json:"brand" groups:"productList,productDetail"`
	Name        string `json:"name" groups:"productList,productDetail"`
	Description string `json:"description" groups:"productDetail"`
	Reference   string `json:"reference" groups:"productDetail"`
}

// ProductRepository defines data access for products.
type ProductRepository interface {
	// List returns one page of products ordered by id ascending.
	List(page, limit int) ([]*Product, error)
	// ListByBrand returns one page of products of a single brand,
	// ordered by id ascending.
	ListByBrand(brand string, page, limit int) ([]*Product, error)
	GetByID(id int64) (*Product, error)
	Create(product *Product) error
	Update(product *Product) error
	Delete(id int64) error
}

// ProductInput is the create/update payload for a product.
type ProductInput struct {
	Brand       *string `json:"brand"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Reference   *string `json:"reference"`
}

// ValidateCreate enforces the creation contract: brand, name and reference
// are mandatory; description may be added later. Rules are built inline
// against the receiver because ozzo resolves fields by address within the
// struct passed to ValidateStruct.
func (in ProductInput) ValidateCreate() error {
	return wrapValidation(validation.ValidateStruct(&in,
		validation.Field(&in.Brand, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Description, validation.Length(1, 0)),
		validation.Field(&in.Reference, validation.Required, validation.Length(1, 255)),
	))
}

// ValidateUpdate validates only the fields present in the payload.
func (in ProductInput) ValidateUpdate() error {
	return wrapValidation(validation.ValidateStruct(&in,
		validation.Field(&in.Brand, validation.Length(1, 255)),
		validation.Field(&in.Name, validation.Length(1, 255)),
		validation.Field(&in.Description, validation.Length(1, 0)),
		validation.Field(&in.Reference, validation.Length(1, 255)),
	))
}
