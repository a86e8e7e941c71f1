package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/yourorg/catalogapi/internal/domain"
	"github.com/yourorg/catalogapi/internal/security"
	"github.com/yourorg/catalogapi/internal/security/audit"
	"github.com/yourorg/catalogapi/internal/security/middleware"
	"github.com/yourorg/catalogapi/internal/serializer"
	"github.com/yourorg/catalogapi/internal/service"
)

// ProductHandler handles the /api/products CRUD surface. Products carry no
// tenant ownership: reads are open to any authenticated principal, writes
// are reserved to global admins.
type ProductHandler struct {
	repo         domain.ProductRepository
	cache        *service.CacheService
	authorizer   *security.Authorizer
	audit        *audit.Logger
	events       *EventsHub
	logger       *slog.Logger
	defaultLimit int
}

// NewProductHandler creates a new product handler
func NewProductHandler(
	repo domain.ProductRepository,
	cache *service.CacheService,
	authorizer *security.Authorizer,
	auditLog *audit.Logger,
	events *EventsHub,
	logger *slog.Logger,
	defaultLimit int,
) *ProductHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductHandler{
		repo:         repo,
		cache:        cache,
		authorizer:   authorizer,
		audit:        auditLog,
		events:       events,
		logger:       logger,
		defaultLimit: defaultLimit,
	}
}

// List handles GET /api/products. An optional brand query parameter narrows
// the page; filtered pages live under their own cache keys.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetPrincipal(r.Context()); !ok {
		writeError(w, domain.ErrUnauthorized, h.logger)
		return
	}

	pagination, err := domain.NewPagination(r.URL.Query().Get("page"), r.URL.Query().Get("limit"), h.defaultLimit)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	var payload []byte
	if brand := r.URL.Query().Get("brand"); brand != "" {
		filter, err := domain.NewFilter(brand)
		if err != nil {
			writeError(w, err, h.logger)
			return
		}
		payload, err = h.cache.GetFiltered(r.Context(), domain.KindProduct, filter.Brand, pagination, func(ctx context.Context) ([]byte, error) {
			products, err := h.repo.ListByBrand(filter.Brand, pagination.Page, pagination.Limit)
			if err != nil {
				return nil, err
			}
			return serializer.Marshal(products, "productList")
		})
		if err != nil {
			writeError(w, err, h.logger)
			return
		}
	} else {
		payload, err = h.cache.GetAllPaged(r.Context(), domain.KindProduct, pagination, func(ctx context.Context) ([]byte, error) {
			products, err := h.repo.List(pagination.Page, pagination.Limit)
			if err != nil {
				return nil, err
			}
			return serializer.Marshal(products, "productList")
		})
		if err != nil {
			writeError(w, err, h.logger)
			return
		}
	}

	writeRaw(w, http.StatusOK, payload)
}

// Get handles GET /api/products/{id}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetPrincipal(r.Context()); !ok {
		writeError(w, domain.ErrUnauthorized, h.logger)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	payload, err := h.cache.GetUnique(r.Context(), domain.KindProduct, id, func(ctx context.Context) ([]byte, error) {
		product, err := h.repo.GetByID(id)
		if err != nil {
			return nil, err
		}
		return serializer.Marshal(product, "productDetail")
	})
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeRaw(w, http.StatusOK, payload)
}

// Create handles POST /api/products (global admin only).
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized, h.logger)
		return
	}
	if err := h.authorizer.RequireGlobalAdmin(p); err != nil {
		h.audit.LogDenied(r.Context(), p, "product", "create")
		writeError(w, err, h.logger)
		return
	}

	var input domain.ProductInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err, h.logger)
		return
	}
	if err := input.ValidateCreate(); err != nil {
		writeError(w, err, h.logger)
		return
	}

	product := &domain.Product{
		Brand:     *input.Brand,
		Name:      *input.Name,
		Reference: *input.Reference,
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if err := h.repo.Create(product); err != nil {
		writeError(w, err, h.logger)
		return
	}

	h.cache.Invalidate(r.Context(), domain.KindProduct.Tag)
	h.events.Publish(domain.KindProduct, "created", product.ID)
	h.audit.LogWrite(r.Context(), p, "create", "product", product.ID, "success")

	w.Header().Set("Location", fmt.Sprintf("/api/products/%d", product.ID))
	payload, err := serializer.Marshal(product, "productDetail")
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeRaw(w, http.StatusCreated, payload)
}

// Update handles PUT /api/products/{id} (global admin only). Partial: only
// fields present in the payload change.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized, h.logger)
		return
	}
	if err := h.authorizer.RequireGlobalAdmin(p); err != nil {
		h.audit.LogDenied(r.Context(), p, "product", "update")
		writeError(w, err, h.logger)
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	var input domain.ProductInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err, h.logger)
		return
	}
	if err := input.ValidateUpdate(); err != nil {
		writeError(w, err, h.logger)
		return
	}

	product, err := h.repo.GetByID(id)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	if input.Brand != nil {
		product.Brand = *input.Brand
	}
	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Reference != nil {
		product.Reference = *input.Reference
	}

	if err := h.repo.Update(product); err != nil {
		writeError(w, err, h.logger)
		return
	}

	h.cache.Invalidate(r.Context(), domain.KindProduct.Tag)
	h.events.Publish(domain.KindProduct, "updated", id)
	h.audit.LogWrite(r.Context(), p, "update", "product", id, "success")

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/products/{id} (global admin only).
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized, h.logger)
		return
	}
	if err := h.authorizer.RequireGlobalAdmin(p); err != nil {
		h.audit.LogDenied(r.Context(), p, "product", "delete")
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

	h.cache.Invalidate(r.Context(), domain.KindProduct.Tag)
	h.events.Publish(domain.KindProduct, "deleted", id)
	h.audit.LogWrite(r.Context(), p, "delete", "product", id, "success")

	w.WriteHeader(http.StatusNoContent)
}
