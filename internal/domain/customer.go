package domain

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Customer is a tenant organization owning a subset of users.
type Customer struct {
	ID   int64  `json:"id" groups:"customerList,customerDetail"`
	Name string `json:"name" groups:"customerList,customerDetail"`
	// Slug is computed server-side from Name exactly once at creation and
	// is unique across customers.
	Slug  string  `json:"slug" groups:"customerDetail"`
	Users []*User `json:"users" groups:"customerDetail"`
}

// CustomerRepository defines data access for customers.
type CustomerRepository interface {
	// List returns one page of customers ordered by id ascending.
	List(page, limit int) ([]*Customer, error)
	// GetByID loads a customer together with its users.
	GetByID(id int64) (*Customer, error)
	GetBySlug(slug string) (*Customer, error)
	Create(customer *Customer) error
	Update(customer *Customer) error
	// Delete removes the customer and cascades removal of its users.
	Delete(id int64) error
}

// CustomerInput is the create/update payload for a customer.
type CustomerInput struct {
	Name string `json:"name"`
}

// Validate checks the payload before any store access.
func (in CustomerInput) Validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 255)),
	)
	return wrapValidation(err)
}
