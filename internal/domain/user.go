package domain

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// User is a managed account scoped to a customer. CreatedAt is set once at
// creation and never mutated afterwards.
type User struct {
	ID           int64     `json:"id" groups:"userList,userDetail"`
	Username     string    `json:"username" groups:"userList,userDetail"`
	Email        string    `json:"email" groups:"userList,userDetail"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles" groups:"userDetail"`
	CreatedAt    time.Time `json:"createdAt" groups:"userDetail"`
	CustomerID   *int64    `json:"customerId" groups:"userList,userDetail"`
	Customer     *Customer `json:"customer" groups:"userDetail"`
}

// UserRepository defines data access for users.
type UserRepository interface {
	// List returns one page of all users ordered by id ascending.
	List(page, limit int) ([]*User, error)
	// ListByCustomer returns one page of a single customer's users,
	// ordered by id ascending.
	ListByCustomer(customerID int64, page, limit int) ([]*User, error)
	// GetByID loads a user together with its owning customer, if any.
	GetByID(id int64) (*User, error)
	GetByUsername(username string) (*User, error)
	Create(user *User) error
	Update(user *User) error
	Delete(id int64) error
}

// UserInput is the create/update payload for a user. Fields are pointers so
// partial updates can distinguish "omitted" from "empty".
type UserInput struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

// ValidateCreate enforces the creation contract: username, email and
// password are mandatory on top of the shared field rules. ozzo resolves
// fields by address within the validated struct, so the rules must be built
// against the same receiver instance that is passed to ValidateStruct.
func (in UserInput) ValidateCreate() error {
	return wrapValidation(validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required, validation.Length(5, 255)),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required, validation.Length(8, 255)),
		validation.Field(&in.Role, validation.In(string(RoleUser), string(RoleCompanyAdmin))),
	))
}

// ValidateUpdate validates only the fields present in the payload.
func (in UserInput) ValidateUpdate() error {
	return wrapValidation(validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Length(5, 255)),
		validation.Field(&in.Email, is.Email),
		validation.Field(&in.Password, validation.Length(8, 255)),
		validation.Field(&in.Role, validation.In(string(RoleUser), string(RoleCompanyAdmin))),
	))
}
