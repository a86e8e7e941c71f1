package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gosimple/slug"
	"github.com/yourorg/catalogapi/internal/domain"
	"github.com/yourorg/catalogapi/internal/security"
	"github.com/yourorg/catalogapi/internal/security/audit"
	"github.com/yourorg/catalogapi/internal/security/middleware"
	"github.com/yourorg/catalogapi/internal/serializer"
	"github.com/yourorg/catalogapi/internal/service"
)

// CustomerHandler handles the /api/customers CRUD surface.
type CustomerHandler struct {
	repo         domain.CustomerRepository
	cache        *service.CacheService
	authorizer   *security.Authorizer
	audit        *audit.Logger
	events       *EventsHub
	logger       *slog.Logger
	defaultLimit int
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(
	repo domain.CustomerRepository,
	cache *service.CacheService,
	authorizer *security.Authorizer,
	auditLog *audit.Logger,
	events *EventsHub,
	logger *slog.Logger,
	defaultLimit int,
) *CustomerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CustomerHandler{
		repo:         repo,
		cache:        cache,
		authorizer:   authorizer,
		audit:        auditLog,
		events:       events,
		logger:       logger,
		defaultLimit: defaultLimit,
	}
}

// List handles GET /api/customers. Global admins page through every
// customer; a company admin sees a single-element page holding its own
// customer, under a key scoped to that customer.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized, h.logger)
		return
	}

	pagination, err := domain.NewPagination(r.URL.Query().Get("page"), r.URL.Query().Get("limit"), h.defaultLimit)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	scope, err := h.authorizer.Partition(p)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	var payload []byte
	if scope == security.ScopeGlobal {
		payload, err = h.cache.GetAllPaged(r.Context(), domain.KindCustomer, pagination, func(ctx context.Context) ([]byte, error) {
			customers, err := h.repo.List(pagination.Page, pagination.Limit)
			if err != nil {
				return nil, err
			}
			return serializer.Marshal(customers, "customerList")
		})
	} else {
		ownerID := *p.CustomerID
		payload, err = h.cache.GetOwnerScoped(r.Context(), domain.KindCustomer, ownerID, pagination, func(ctx context.Context) ([]byte, error) {
			customers := []*domain.Customer{}
			if pagination.Page == 1 {
				customer, err := h.repo.GetByID(ownerID)
				if err != nil {
					return nil, err
				}
				customer.Users = nil
				customers = append(customers, customer)
			}
			return serializer.Marshal(customers, "customerList")
		})
	}
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeRaw(w, http.StatusOK, payload)
}

// Get handles GET /api/customers/{id}. Ownership is checked by id value
// before the cache is consulted, so a denied principal is rejected no matter
// what is cached.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized, h.logger)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	if err := h.authorizer.CanTouchCustomer(p, id); err != nil {
		h.audit.LogDenied(r.Context(), p, "customer", fmt.Sprintf("get id=%d", id))
		writeError(w, err, h.logger)
		return
	}

	payload, err := h.cache.GetUnique(r.Context(), domain.KindCustomer, id, func(ctx context.Context) ([]byte, error) {
		customer, err := h.repo.GetByID(id)
		if err != nil {
			return nil, err
		}
		return serializer.Marshal(customer, "customerDetail")
	})
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeRaw(w, http.StatusOK, payload)
}

// Create handles POST /api/customers (global admin only). The slug is
// computed from the name exactly once here and never recomputed on update.
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized, h.logger)
		return
	}
	if err := h.authorizer.RequireGlobalAdmin(p); err != nil {
		h.audit.LogDenied(r.Context(), p, "customer", "create")
		writeError(w, err, h.logger)
		return
	}

	var input domain.CustomerInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err, h.logger)
		return
	}
	if err := input.Validate(); err != nil {
		writeError(w, err, h.logger)
		return
	}

	customer := &domain.Customer{
		Name: input.Name,
		Slug: slug.Make(input.Name),
	}
	if err := h.repo.Create(customer); err != nil {
		writeError(w, err, h.logger)
		return
	}

	h.cache.Invalidate(r.Context(), domain.KindCustomer.Tag)
	h.events.Publish(domain.KindCustomer, "created", customer.ID)
	h.audit.LogWrite(r.Context(), p, "create", "customer", customer.ID, "success")

	w.Header().Set("Location", fmt.Sprintf("/api/customers/%d", customer.ID))
	payload, err := serializer.Marshal(customer, "customerDetail")
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeRaw(w, http.StatusCreated, payload)
}

// Update handles PUT /api/customers/{id} (global admin only). Only the name
// changes; the slug stays as minted at creation.
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized, h.logger)
		return
	}
	if err := h.authorizer.RequireGlobalAdmin(p); err != nil {
		h.audit.LogDenied(r.Context(), p, "customer", "update")
		writeError(w, err, h.logger)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	var input domain.CustomerInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err, h.logger)
		return
	}
	if err := input.Validate(); err != nil {
		writeError(w, err, h.logger)
		return
	}

	customer, err := h.repo.GetByID(id)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	customer.Name = input.Name

	if err := h.repo.Update(customer); err != nil {
		writeError(w, err, h.logger)
		return
	}

	h.cache.Invalidate(r.Context(), domain.KindCustomer.Tag)
	h.events.Publish(domain.KindCustomer, "updated", id)
	h.audit.LogWrite(r.Context(), p, "update", "customer", id, "success")

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/customers/{id} (global admin only). User rows
// cascade away with the customer, so both tags are invalidated.
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized, h.logger)
		return
	}
	if err := h.authorizer.RequireGlobalAdmin(p); err != nil {
		h.audit.LogDenied(r.Context(), p, "customer", "delete")
		writeError(w, err, h.logger)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	if err := h.repo.Delete(id); err != nil {
		writeError(w, err, h.logger)
		return
	}

	h.cache.Invalidate(r.Context(), domain.KindCustomer.Tag, domain.KindUser.Tag)
	h.events.Publish(domain.KindCustomer, "deleted", id)
	h.audit.LogWrite(r.Context(), p, "delete", "customer", id, "success")

	w.WriteHeader(http.StatusNoContent)
}
