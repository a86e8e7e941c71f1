package security

import (
	"fmt"
	"log/slog"

	"github.com/yourorg/catalogapi/internal/domain"
)

// Scope is the data partition a principal may see: every row, or only the
// rows owned by its own customer. It is decided once per request from the
// principal's role and never re-evaluated mid-request.
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeTenant
)

// Authorizer decides scoping and per-row access for principals.
type Authorizer struct {
	logger *slog.Logger
}

// NewAuthorizer creates a new authorizer
func NewAuthorizer(logger *slog.Logger) *Authorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{logger: logger}
}

// Partition selects the data-access strategy for a principal. A company
// admin without a customer is a broken invariant, not a client error, and
// fails fast rather than silently widening to global scope.
func (a *Authorizer) Partition(p domain.Principal) (Scope, error) {
	if p.Role == domain.RoleAdmin {
		return ScopeGlobal, nil
	}
	if p.CustomerID == nil {
		a.logger.Error("principal has tenant role but no customer",
			slog.Int64("user_id", p.UserID),
			slog.String("role", string(p.Role)),
		)
		return 0, fmt.Errorf("%w: principal %d has no customer", domain.ErrPrecondition, p.UserID)
	}
	return ScopeTenant, nil
}

// CanTouchOwned checks single-row access against the row's owning customer
// reference. Global admins may touch any row; everyone else must own it.
// The comparison is by customer id value only, never re-derived from other
// fields of the target row.
func (a *Authorizer) CanTouchOwned(p domain.Principal, ownerCustomerID *int64) error {
	if p.Role == domain.RoleAdmin {
		return nil
	}
	if p.CustomerID == nil {
		return fmt.Errorf("%w: principal %d has no customer", domain.ErrPrecondition, p.UserID)
	}
	if ownerCustomerID == nil || *ownerCustomerID != *p.CustomerID {
		a.logger.Warn("cross-tenant access denied",
			slog.Int64("user_id", p.UserID),
			slog.Int64("principal_customer", *p.CustomerID),
		)
		return domain.ErrUnauthorized
	}
	return nil
}

// CanTouchCustomer checks access to a customer row itself.
func (a *Authorizer) CanTouchCustomer(p domain.Principal, customerID int64) error {
	return a.CanTouchOwned(p, &customerID)
}

// RequireGlobalAdmin gates operations reserved to global admins.
func (a *Authorizer) RequireGlobalAdmin(p domain.Principal) error {
	if p.Role != domain.RoleAdmin {
		a.logger.Warn("admin-only operation denied",
			slog.Int64("user_id", p.UserID),
			slog.String("role", string(p.Role)),
		)
		return domain.ErrUnauthorized
	}
	return nil
}
