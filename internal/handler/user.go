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

// UserHandler handles the /api/users CRUD surface.
type UserHandler struct {
	repo         domain.UserRepository
	cache        *service.CacheService
	authorizer   *security.Authorizer
	audit        *audit.Logger
	events       *EventsHub
	logger       *slog.Logger
	defaultLimit int
}

// NewUserHandler creates a new user handler
func NewUserHandler(
	repo domain.UserRepository,
	cache *service.CacheService,
	authorizer *security.Authorizer,
	auditLog *audit.Logger,
	events *EventsHub,
	logger *slog.Logger,
	defaultLimit int,
) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{
		repo:         repo,
		cache:        cache,
		authorizer:   authorizer,
		audit:        auditLog,
		events:       events,
		logger:       logger,
		defaultLimit: defaultLimit,
	}
}

// List handles GET /api/users. The page a principal sees depends on its
// partition: global admins page through all users, company admins only
// through their own customer's, under a key carrying that customer's id.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
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
		payload, err = h.cache.GetAllPaged(r.Context(), domain.KindUser, pagination, func(ctx context.Context) ([]byte, error) {
			users, err := h.repo.List(pagination.Page, pagination.Limit)
			if err != nil {
				return nil, err
			}
			return serializer.Marshal(users, "userList")
		})
	} else {
		ownerID := *p.CustomerID
		payload, err = h.cache.GetOwnerScoped(r.Context(), domain.KindUser, ownerID, pagination, func(ctx context.Context) ([]byte, error) {
			users, err := h.repo.ListByCustomer(ownerID, pagination.Page, pagination.Limit)
			if err != nil {
				return nil, err
			}
			return serializer.Marshal(users, "userList")
		})
	}
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeRaw(w, http.StatusOK, payload)
}

// Get handles GET /api/users/{id}. A company admin's ownership check needs
// the target's owning customer, so the row is resolved before the cache is
// consulted; a cached payload never bypasses the check.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	if p.Role != domain.RoleAdmin {
		user, err := h.repo.GetByID(id)
		if err != nil {
			writeError(w, err, h.logger)
			return
		}
		if err := h.authorizer.CanTouchOwned(p, user.CustomerID); err != nil {
			h.audit.LogDenied(r.Context(), p, "user", fmt.Sprintf("get id=%d", id))
			writeError(w, err, h.logger)
			return
		}
	}

	payload, err := h.cache.GetUnique(r.Context(), domain.KindUser, id, func(ctx context.Context) ([]byte, error) {
		user, err := h.repo.GetByID(id)
		if err != nil {
			return nil, err
		}
		return serializer.Marshal(user, "userDetail")
	})
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeRaw(w, http.StatusOK, payload)
}

// Create handles POST /api/users. The new user is attached to the creator's
// customer; users minted by a global admin start unattached.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized, h.logger)
		return
	}

	var input domain.UserInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err, h.logger)
		return
	}
	if err := input.ValidateCreate(); err != nil {
		writeError(w, err, h.logger)
		return
	}

	hash, err := service.HashPassword(*input.Password)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	roles := []string{string(domain.RoleUser)}
	if input.Role != nil {
		roles = []string{*input.Role}
	}

	user := &domain.User{
		Username:     *input.Username,
		Email:        *input.Email,
		PasswordHash: hash,
		Roles:        roles,
		CustomerID:   p.CustomerID,
	}
	if err := h.repo.Create(user); err != nil {
		writeError(w, err, h.logger)
		return
	}

	h.cache.Invalidate(r.Context(), domain.KindUser.Tag)
	h.events.Publish(domain.KindUser, "created", user.ID)
	h.audit.LogWrite(r.Context(), p, "create", "user", user.ID, "success")

	w.Header().Set("Location", fmt.Sprintf("/api/users/%d", user.ID))
	payload, err := serializer.Marshal(user, "userDetail")
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	writeRaw(w, http.StatusCreated, payload)
}

// Update handles PUT /api/users/{id}. Partial: only fields present in the
// payload change. CreatedAt and the owning customer never change here.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var input domain.UserInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err, h.logger)
		return
	}
	if err := input.ValidateUpdate(); err != nil {
		writeError(w, err, h.logger)
		return
	}

	user, err := h.repo.GetByID(id)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	if err := h.authorizer.CanTouchOwned(p, user.CustomerID); err != nil {
		h.audit.LogDenied(r.Context(), p, "user", fmt.Sprintf("update id=%d", id))
		writeError(w, err, h.logger)
		return
	}

	if input.Username != nil {
		user.Username = *input.Username
	}
	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.Password != nil {
		hash, err := service.HashPassword(*input.Password)
		if err != nil {
			writeError(w, err, h.logger)
			return
		}
		user.PasswordHash = hash
	}
	if input.Role != nil {
		user.Roles = []string{*input.Role}
	}

	if err := h.repo.Update(user); err != nil {
		writeError(w, err, h.logger)
		return
	}

	h.cache.Invalidate(r.Context(), domain.KindUser.Tag)
	h.events.Publish(domain.KindUser, "updated", id)
	h.audit.LogWrite(r.Context(), p, "update", "user", id, "success")

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/users/{id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	user, err := h.repo.GetByID(id)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	if err := h.authorizer.CanTouchOwned(p, user.CustomerID); err != nil {
		h.audit.LogDenied(r.Context(), p, "user", fmt.Sprintf("delete id=%d", id))
		writeError(w, err, h.logger)
		return
	}

	if err := h.repo.Delete(id); err != nil {
		writeError(w, err, h.logger)
		return
	}

	h.cache.Invalidate(r.Context(), domain.KindUser.Tag)
	h.events.Publish(domain.KindUser, "deleted", id)
	h.audit.LogWrite(r.Context(), p, "delete", "user", id, "success")

	w.WriteHeader(http.StatusNoContent)
}
