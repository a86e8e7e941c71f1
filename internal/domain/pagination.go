package domain

import (
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Pagination describes one page of a listing. Defaults apply only when a
// parameter is omitted; present-but-invalid values are rejected.
type Pagination struct {
	Page  int
	Limit int
}

// NewPagination parses raw page/limit query parameters. Empty strings take
// the defaults (page 1 and the per-collection default limit); anything else
// must be a positive integer.
func NewPagination(page, limit string, defaultLimit int) (Pagination, error) {
	p := Pagination{Page: 1, Limit: defaultLimit}

	// ozzo threshold rules treat the zero value as "empty" and skip it, so
	// the bounds are checked by hand here.
	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			return Pagination{}, FieldError("page", "must be a positive integer")
		}
		p.Page = n
	}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			return Pagination{}, FieldError("limit", "must be a positive integer")
		}
		p.Limit = n
	}
	return p, nil
}

// Offset returns the row offset for the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Filter restricts a product listing to a single brand.
type Filter struct {
	Brand string
}

// NewFilter validates an optional brand filter. The empty string means
// "no filter" and is handled by the caller before this point.
func NewFilter(brand string) (Filter, error) {
	f := Filter{Brand: brand}
	err := validation.ValidateStruct(&f,
		validation.Field(&f.Brand, validation.Required, validation.Length(1, 200)),
	)
	if err != nil {
		return Filter{}, wrapValidation(err)
	}
	return f, nil
}
