package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/yourorg/catalogapi/internal/domain"
	"github.com/yourorg/catalogapi/internal/security"
	"github.com/yourorg/catalogapi/internal/security/audit"
	"github.com/yourorg/catalogapi/internal/security/middleware"
	"github.com/yourorg/catalogapi/internal/service"
	"github.com/yourorg/catalogapi/pkg/cache"
)

// In-memory repositories

type memCustomerRepo struct {
	nextID    int64
	customers map[int64]*domain.Customer
	users     *memUserRepo
}

func newMemCustomerRepo(users *memUserRepo) *memCustomerRepo {
	return &memCustomerRepo{nextID: 1, customers: map[int64]*domain.Customer{}, users: users}
}

func (m *memCustomerRepo) sorted() []*domain.Customer {
	out := []*domain.Customer{}
	for _, c := range m.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memCustomerRepo) List(page, limit int) ([]*domain.Customer, error) {
	all := m.sorted()
	return pageOf(all, page, limit), nil
}

func (m *memCustomerRepo) GetByID(id int64) (*domain.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	cp.Users, _ = m.users.ListByCustomer(id, 1, 1000)
	return &cp, nil
}

func (m *memCustomerRepo) GetBySlug(slug string) (*domain.Customer, error) {
	for _, c := range m.customers {
		if c.Slug == slug {
			return m.GetByID(c.ID)
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memCustomerRepo) Create(c *domain.Customer) error {
	for _, existing := range m.customers {
		if existing.Slug == c.Slug {
			return domain.FieldError("name", "a customer with this name already exists")
		}
	}
	c.ID = m.nextID
	m.nextID++
	m.customers[c.ID] = c
	return nil
}

func (m *memCustomerRepo) Update(c *domain.Customer) error {
	if _, ok := m.customers[c.ID]; !ok {
		return domain.ErrNotFound
	}
	m.customers[c.ID] = c
	return nil
}

func (m *memCustomerRepo) Delete(id int64) error {
	if _, ok := m.customers[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.customers, id)
	for uid, u := range m.users.users {
		if u.CustomerID != nil && *u.CustomerID == id {
			delete(m.users.users, uid)
		}
	}
	return nil
}

type memUserRepo struct {
	nextID int64
	users  map[int64]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{nextID: 1, users: map[int64]*domain.User{}}
}

func (m *memUserRepo) sorted() []*domain.User {
	out := []*domain.User{}
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memUserRepo) List(page, limit int) ([]*domain.User, error) {
	return pageOf(m.sorted(), page, limit), nil
}

func (m *memUserRepo) ListByCustomer(customerID int64, page, limit int) ([]*domain.User, error) {
	owned := []*domain.User{}
	for _, u := range m.sorted() {
		if u.CustomerID != nil && *u.CustomerID == customerID {
			owned = append(owned, u)
		}
	}
	return pageOf(owned, page, limit), nil
}

func (m *memUserRepo) GetByID(id int64) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (m *memUserRepo) GetByUsername(username string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) Create(u *domain.User) error {
	u.ID = m.nextID
	u.CreatedAt = time.Now()
	m.nextID++
	m.users[u.ID] = u
	return nil
}

func (m *memUserRepo) Update(u *domain.User) error {
	if _, ok := m.users[u.ID]; !ok {
		return domain.ErrNotFound
	}
	m.users[u.ID] = u
	return nil
}

func (m *memUserRepo) Delete(id int64) error {
	if _, ok := m.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

type memProductRepo struct {
	nextID   int64
	products map[int64]*domain.Product
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{nextID: 1, products: map[int64]*domain.Product{}}
}

func (m *memProductRepo) sorted() []*domain.Product {
	out := []*domain.Product{}
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memProductRepo) List(page, limit int) ([]*domain.Product, error) {
	return pageOf(m.sorted(), page, limit), nil
}

func (m *memProductRepo) ListByBrand(brand string, page, limit int) ([]*domain.Product, error) {
	matched := []*domain.Product{}
	for _, p := range m.sorted() {
		if p.Brand == brand {
			matched = append(matched, p)
		}
	}
	return pageOf(matched, page, limit), nil
}

func (m *memProductRepo) GetByID(id int64) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (m *memProductRepo) Create(p *domain.Product) error {
	p.ID = m.nextID
	m.nextID++
	m.products[p.ID] = p
	return nil
}

func (m *memProductRepo) Update(p *domain.Product) error {
	if _, ok := m.products[p.ID]; !ok {
		return domain.ErrNotFound
	}
	m.products[p.ID] = p
	return nil
}

func (m *memProductRepo) Delete(id int64) error {
	if _, ok := m.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func pageOf[T any](all []T, page, limit int) []T {
	offset := (page - 1) * limit
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

// Test fixture

type fixture struct {
	mux       *http.ServeMux
	customers *memCustomerRepo
	users     *memUserRepo
	products  *memProductRepo
	cache     *cache.Cache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.Default()

	userRepo := newMemUserRepo()
	customerRepo := newMemCustomerRepo(userRepo)
	productRepo := newMemProductRepo()

	store := cache.New()
	cacheService := service.NewCacheService(store, 15*time.Second, log)
	authorizer := security.NewAuthorizer(log)
	auditLogger := audit.NewLogger(log)
	events := NewEventsHub(authorizer, nil, log)

	customerHandler := NewCustomerHandler(customerRepo, cacheService, authorizer, auditLogger, events, log, 3)
	userHandler := NewUserHandler(userRepo, cacheService, authorizer, auditLogger, events, log, 3)
	productHandler := NewProductHandler(productRepo, cacheService, authorizer, auditLogger, events, log, 4)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/customers", customerHandler.List)
	mux.HandleFunc("POST /api/customers", customerHandler.Create)
	mux.HandleFunc("GET /api/customers/{id}", customerHandler.Get)
	mux.HandleFunc("PUT /api/customers/{id}", customerHandler.Update)
	mux.HandleFunc("DELETE /api/customers/{id}", customerHandler.Delete)
	mux.HandleFunc("GET /api/users", userHandler.List)
	mux.HandleFunc("POST /api/users", userHandler.Create)
	mux.HandleFunc("GET /api/users/{id}", userHandler.Get)
	mux.HandleFunc("PUT /api/users/{id}", userHandler.Update)
	mux.HandleFunc("DELETE /api/users/{id}", userHandler.Delete)
	mux.HandleFunc("GET /api/products", productHandler.List)
	mux.HandleFunc("POST /api/products", productHandler.Create)
	mux.HandleFunc("GET /api/products/{id}", productHandler.Get)
	mux.HandleFunc("PUT /api/products/{id}", productHandler.Update)
	mux.HandleFunc("DELETE /api/products/{id}", productHandler.Delete)

	return &fixture{
		mux:       mux,
		customers: customerRepo,
		users:     userRepo,
		products:  productRepo,
		cache:     store,
	}
}

func (f *fixture) do(t *testing.T, p domain.Principal, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	ctx := context.WithValue(req.Context(), middleware.PrincipalContextKey{}, p)
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func globalAdmin() domain.Principal {
	return domain.Principal{UserID: 1000, Username: "root", Role: domain.RoleAdmin}
}

func tenantAdmin(customerID int64) domain.Principal {
	return domain.Principal{UserID: 2000 + customerID, Username: fmt.Sprintf("admin-%d", customerID), Role: domain.RoleCompanyAdmin, CustomerID: &customerID}
}

func (f *fixture) seedCustomer(t *testing.T, name, slug string) int64 {
	t.Helper()
	c := &domain.Customer{Name: name, Slug: slug}
	if err := f.customers.Create(c); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return c.ID
}

func (f *fixture) seedUser(t *testing.T, username string, customerID *int64) int64 {
	t.Helper()
	u := &domain.User{Username: username, Email: username + "@example.com", PasswordHash: "x", Roles: []string{string(domain.RoleUser)}, CustomerID: customerID}
	if err := f.users.Create(u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u.ID
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var items []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode list: %v (body %q)", err, rec.Body.String())
	}
	return items
}

func ids(items []map[string]any) []int64 {
	out := []int64{}
	for _, item := range items {
		out = append(out, int64(item["id"].(float64)))
	}
	return out
}

// Tests

func TestUserListScopedByTenant(t *testing.T) {
	f := newFixture(t)
	t1 := f.seedCustomer(t, "Tenant One", "tenant-one")
	t2 := f.seedCustomer(t, "Tenant Two", "tenant-two")
	f.seedUser(t, "alice", &t1)
	f.seedUser(t, "bobby", &t1)
	f.seedUser(t, "carol", &t2)
	f.seedUser(t, "david", &t1)
	f.seedUser(t, "erika", &t2)

	// Global admin pages through everyone, default limit 3.
	rec := f.do(t, globalAdmin(), http.MethodGet, "/api/users", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := ids(decodeList(t, rec))
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("expected [1 2 3], got %v", got)
	}

	// Tenant one's admin only sees tenant one's users.
	rec = f.do(t, tenantAdmin(t1), http.MethodGet, "/api/users", nil)
	got = ids(decodeList(t, rec))
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 4 {
		t.Fatalf("expected [1 2 4], got %v", got)
	}

	// Tenant two's admin sees a disjoint set from the same endpoint.
	rec = f.do(t, tenantAdmin(t2), http.MethodGet, "/api/users", nil)
	got = ids(decodeList(t, rec))
	if len(got) != 2 || got[0] != 3 || got[1] != 5 {
		t.Fatalf("expected [3 5], got %v", got)
	}
}

func TestDeletedUserDoesNotResurfaceFromCache(t *testing.T) {
	f := newFixture(t)
	t1 := f.seedCustomer(t, "Tenant One", "tenant-one")
	for _, name := range []string{"user-one", "user-two", "user-three", "user-four"} {
		f.seedUser(t, name, &t1)
	}
	admin := tenantAdmin(t1)

	// Warm the cache for both the tenant page and the global page.
	rec := f.do(t, admin, http.MethodGet, "/api/users?limit=10", nil)
	if got := ids(decodeList(t, rec)); len(got) != 4 {
		t.Fatalf("expected 4 users, got %v", got)
	}
	f.do(t, globalAdmin(), http.MethodGet, "/api/users?limit=10", nil)

	rec = f.do(t, admin, http.MethodDelete, "/api/users/1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	// Both viewers observe the deletion immediately, not after TTL expiry.
	rec = f.do(t, admin, http.MethodGet, "/api/users?limit=10", nil)
	got := ids(decodeList(t, rec))
	if len(got) != 3 || got[0] != 2 || got[1] != 3 || got[2] != 4 {
		t.Fatalf("tenant admin: expected [2 3 4], got %v", got)
	}
	rec = f.do(t, globalAdmin(), http.MethodGet, "/api/users?limit=10", nil)
	got = ids(decodeList(t, rec))
	if len(got) != 3 || got[0] != 2 {
		t.Fatalf("global admin: expected [2 3 4], got %v", got)
	}

	rec = f.do(t, admin, http.MethodGet, "/api/users/1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted user, got %d", rec.Code)
	}
}

func TestCrossTenantAccessDenied(t *testing.T) {
	f := newFixture(t)
	t1 := f.seedCustomer(t, "Tenant One", "tenant-one")
	t2 := f.seedCustomer(t, "Tenant Two", "tenant-two")
	otherUser := f.seedUser(t, "carol", &t2)

	admin := tenantAdmin(t1)
	paths := map[string]string{
		http.MethodGet:    fmt.Sprintf("/api/users/%d", otherUser),
		http.MethodDelete: fmt.Sprintf("/api/users/%d", otherUser),
	}
	for method, path := range paths {
		rec := f.do(t, admin, method, path, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", method, path, rec.Code)
		}
	}

	rec := f.do(t, admin, http.MethodPut, fmt.Sprintf("/api/users/%d", otherUser), map[string]string{"email": "new@example.com"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("cross-tenant update: expected 401, got %d", rec.Code)
	}

	// A cached detail payload changes nothing: warm it as the owner first.
	f.do(t, tenantAdmin(t2), http.MethodGet, fmt.Sprintf("/api/users/%d", otherUser), nil)
	rec = f.do(t, admin, http.MethodGet, fmt.Sprintf("/api/users/%d", otherUser), nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("cached cross-tenant get: expected 401, got %d", rec.Code)
	}

	// The global admin is allowed everywhere.
	rec = f.do(t, globalAdmin(), http.MethodGet, fmt.Sprintf("/api/users/%d", otherUser), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("global admin get: expected 200, got %d", rec.Code)
	}
}

func TestTenantAdminWithoutCustomerFailsFast(t *testing.T) {
	f := newFixture(t)
	broken := domain.Principal{UserID: 99, Username: "broken", Role: domain.RoleCompanyAdmin}

	rec := f.do(t, broken, http.MethodGet, "/api/users", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for tenant admin without customer, got %d", rec.Code)
	}
}

func TestPaginationValidation(t *testing.T) {
	f := newFixture(t)
	admin := globalAdmin()

	for _, q := range []string{"?page=0", "?page=-1", "?page=abc", "?limit=0", "?limit=x"} {
		rec := f.do(t, admin, http.MethodGet, "/api/users"+q, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("query %q: expected 400, got %d", q, rec.Code)
		}
	}

	// Omitted parameters fall back to defaults, not errors.
	rec := f.do(t, admin, http.MethodGet, "/api/users", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with defaults, got %d", rec.Code)
	}
}

func TestEmptyPageIsOKWithEmptyArray(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, globalAdmin(), http.MethodGet, "/api/products?page=7", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Fatalf("expected empty array body, got %q", body)
	}
}

func TestCustomerCRUDRequiresGlobalAdmin(t *testing.T) {
	f := newFixture(t)
	t1 := f.seedCustomer(t, "Tenant One", "tenant-one")

	rec := f.do(t, tenantAdmin(t1), http.MethodPost, "/api/customers", map[string]string{"name": "Rogue Corp"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("tenant admin create customer: expected 401, got %d", rec.Code)
	}

	rec = f.do(t, globalAdmin(), http.MethodPost, "/api/customers", map[string]string{"name": "Acme Rockets"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body %s)", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/api/customers/2" {
		t.Errorf("expected Location /api/customers/2, got %q", loc)
	}
	var created map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created customer: %v", err)
	}
	if created["slug"] != "acme-rockets" {
		t.Errorf("expected computed slug acme-rockets, got %v", created["slug"])
	}

	// Same name again collides on the slug.
	rec = f.do(t, globalAdmin(), http.MethodPost, "/api/customers", map[string]string{"name": "Acme Rockets"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate name: expected 400, got %d", rec.Code)
	}

	// Missing name is a validation error.
	rec = f.do(t, globalAdmin(), http.MethodPost, "/api/customers", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing name: expected 400, got %d", rec.Code)
	}
}

func TestCustomerDetailIncludesUsersAndSlug(t *testing.T) {
	f := newFixture(t)
	t1 := f.seedCustomer(t, "Tenant One", "tenant-one")
	f.seedUser(t, "alice", &t1)
	f.seedUser(t, "bobby", &t1)

	rec := f.do(t, tenantAdmin(t1), http.MethodGet, fmt.Sprintf("/api/customers/%d", t1), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var detail map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail["slug"] != "tenant-one" {
		t.Errorf("expected slug in detail, got %v", detail["slug"])
	}
	users, ok := detail["users"].([]any)
	if !ok || len(users) != 2 {
		t.Fatalf("expected 2 embedded users, got %v", detail["users"])
	}
	first := users[0].(map[string]any)
	if _, present := first["roles"]; present {
		t.Errorf("embedded users must use the list view, roles leaked: %v", first)
	}

	// The list view hides slug and users.
	rec = f.do(t, globalAdmin(), http.MethodGet, "/api/customers", nil)
	items := decodeList(t, rec)
	if len(items) != 1 {
		t.Fatalf("expected 1 customer, got %d", len(items))
	}
	if _, present := items[0]["slug"]; present {
		t.Errorf("slug leaked into list view: %v", items[0])
	}
	if _, present := items[0]["users"]; present {
		t.Errorf("users leaked into list view: %v", items[0])
	}
}

func TestCustomerDeleteCascadesAndInvalidates(t *testing.T) {
	f := newFixture(t)
	t1 := f.seedCustomer(t, "Tenant One", "tenant-one")
	uid := f.seedUser(t, "alice", &t1)
	admin := globalAdmin()

	// Warm both caches.
	f.do(t, admin, http.MethodGet, "/api/customers", nil)
	f.do(t, admin, http.MethodGet, fmt.Sprintf("/api/users/%d", uid), nil)

	rec := f.do(t, admin, http.MethodDelete, fmt.Sprintf("/api/customers/%d", t1), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = f.do(t, admin, http.MethodGet, "/api/customers", nil)
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("expected empty customer list, got %q", body)
	}
	rec = f.do(t, admin, http.MethodGet, fmt.Sprintf("/api/users/%d", uid), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cascaded user still served: got %d", rec.Code)
	}
}

func TestProductBrandFilterHasOwnCacheEntry(t *testing.T) {
	f := newFixture(t)
	for i, brand := range []string{"Acme", "Acme", "Globex", "Acme", "Globex"} {
		p := &domain.Product{Brand: brand, Name: fmt.Sprintf("Widget %d", i+1), Reference: fmt.Sprintf("REF-%d", i+1)}
		if err := f.products.Create(p); err != nil {
			t.Fatalf("seed product: %v", err)
		}
	}
	admin := globalAdmin()

	rec := f.do(t, admin, http.MethodGet, "/api/products", nil)
	all := ids(decodeList(t, rec))
	if len(all) != 4 {
		t.Fatalf("expected default limit of 4, got %v", all)
	}

	rec = f.do(t, admin, http.MethodGet, "/api/products?brand=Acme", nil)
	acme := ids(decodeList(t, rec))
	if len(acme) != 3 || acme[0] != 1 || acme[1] != 2 || acme[2] != 4 {
		t.Fatalf("expected [1 2 4] for Acme, got %v", acme)
	}

	// Both entries are now cached; re-reading each returns its own page.
	rec = f.do(t, admin, http.MethodGet, "/api/products", nil)
	if got := ids(decodeList(t, rec)); len(got) != 4 {
		t.Fatalf("unfiltered page corrupted after filtered read: %v", got)
	}
	rec = f.do(t, admin, http.MethodGet, "/api/products?brand=Globex", nil)
	globex := ids(decodeList(t, rec))
	if len(globex) != 2 || globex[0] != 3 || globex[1] != 5 {
		t.Fatalf("expected [3 5] for Globex, got %v", globex)
	}
}

func TestProductWritesRequireGlobalAdmin(t *testing.T) {
	f := newFixture(t)
	t1 := f.seedCustomer(t, "Tenant One", "tenant-one")

	body := map[string]string{"brand": "Acme", "name": "Widget", "reference": "REF-1"}
	rec := f.do(t, tenantAdmin(t1), http.MethodPost, "/api/products", body)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("tenant admin create product: expected 401, got %d", rec.Code)
	}

	rec = f.do(t, globalAdmin(), http.MethodPost, "/api/products", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body %s)", rec.Code, rec.Body.String())
	}

	// Reads stay open to tenant principals.
	rec = f.do(t, tenantAdmin(t1), http.MethodGet, "/api/products/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("tenant read product: expected 200, got %d", rec.Code)
	}
}

func TestProductPartialUpdate(t *testing.T) {
	f := newFixture(t)
	p := &domain.Product{Brand: "Acme", Name: "Widget", Reference: "REF-1"}
	if err := f.products.Create(p); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	admin := globalAdmin()

	rec := f.do(t, admin, http.MethodPut, "/api/products/1", map[string]string{"name": "Widget v2"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d (body %s)", rec.Code, rec.Body.String())
	}

	rec = f.do(t, admin, http.MethodGet, "/api/products/1", nil)
	var detail map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail["name"] != "Widget v2" || detail["brand"] != "Acme" {
		t.Errorf("partial update applied wrong fields: %v", detail)
	}
}

func TestProductViewsByGroup(t *testing.T) {
	f := newFixture(t)
	p := &domain.Product{Brand: "Acme", Name: "Widget", Description: "a widget", Reference: "REF-1"}
	if err := f.products.Create(p); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	admin := globalAdmin()

	rec := f.do(t, admin, http.MethodGet, "/api/products", nil)
	items := decodeList(t, rec)
	if _, present := items[0]["description"]; present {
		t.Errorf("description leaked into list view: %v", items[0])
	}
	if _, present := items[0]["reference"]; present {
		t.Errorf("reference leaked into list view: %v", items[0])
	}

	rec = f.do(t, admin, http.MethodGet, "/api/products/1", nil)
	var detail map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail["description"] != "a widget" || detail["reference"] != "REF-1" {
		t.Errorf("detail view missing fields: %v", detail)
	}
}

func TestUserCreateAttachesToCreatorCustomer(t *testing.T) {
	f := newFixture(t)
	t1 := f.seedCustomer(t, "Tenant One", "tenant-one")

	body := map[string]string{"username": "newuser", "email": "new@example.com", "password": "secret123"}
	rec := f.do(t, tenantAdmin(t1), http.MethodPost, "/api/users", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body %s)", rec.Code, rec.Body.String())
	}
	var created map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created user: %v", err)
	}
	if int64(created["customerId"].(float64)) != t1 {
		t.Errorf("expected customerId %d, got %v", t1, created["customerId"])
	}
	if _, present := created["password"]; present {
		t.Errorf("password leaked into response: %v", created)
	}

	stored, err := f.users.GetByID(int64(created["id"].(float64)))
	if err != nil {
		t.Fatalf("created user not stored: %v", err)
	}
	if stored.PasswordHash == "secret123" || stored.PasswordHash == "" {
		t.Errorf("password stored unhashed")
	}
	if len(stored.Roles) != 1 || stored.Roles[0] != string(domain.RoleUser) {
		t.Errorf("expected default role ROLE_USER, got %v", stored.Roles)
	}
}

func TestUserCreateValidation(t *testing.T) {
	f := newFixture(t)
	t1 := f.seedCustomer(t, "Tenant One", "tenant-one")
	admin := tenantAdmin(t1)

	cases := []map[string]string{
		{"email": "a@example.com", "password": "secret123"},                                            // missing username
		{"username": "abc", "email": "a@example.com", "password": "secret123"},                         // username too short
		{"username": "validname", "email": "not-an-email", "password": "secret123"},                    // bad email
		{"username": "validname", "email": "a@example.com", "password": "short"},                       // short password
		{"username": "validname", "email": "a@example.com", "password": "secret123", "role": "ROLE_X"}, // bad role
	}
	for i, body := range cases {
		rec := f.do(t, admin, http.MethodPost, "/api/users", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("case %d: expected 400, got %d (body %s)", i, rec.Code, rec.Body.String())
		}
	}
}

func TestUserPartialUpdate(t *testing.T) {
	f := newFixture(t)
	t1 := f.seedCustomer(t, "Tenant One", "tenant-one")
	uid := f.seedUser(t, "alice", &t1)
	admin := tenantAdmin(t1)

	rec := f.do(t, admin, http.MethodPut, fmt.Sprintf("/api/users/%d", uid), map[string]string{"email": "alice@new.example.com"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d (body %s)", rec.Code, rec.Body.String())
	}

	u, err := f.users.GetByID(uid)
	if err != nil {
		t.Fatalf("get updated user: %v", err)
	}
	if u.Email != "alice@new.example.com" {
		t.Errorf("email not updated: %v", u.Email)
	}
	if u.Username != "alice" {
		t.Errorf("username changed on partial update: %v", u.Username)
	}
}

func TestNotFoundMapsTo404(t *testing.T) {
	f := newFixture(t)
	admin := globalAdmin()

	for _, path := range []string{"/api/customers/42", "/api/users/42", "/api/products/42"} {
		rec := f.do(t, admin, http.MethodGet, path, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected 404, got %d", path, rec.Code)
		}
		rec = f.do(t, admin, http.MethodDelete, path, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("DELETE %s: expected 404, got %d", path, rec.Code)
		}
	}
}
