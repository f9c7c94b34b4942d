package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"stock-engine/internal/adapters/web"
	"stock-engine/internal/app"
	"stock-engine/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// fakeApp embeds the interface; unexpected calls panic and surface as 500.
type fakeApp struct {
	app.ApplicationService

	mu         sync.Mutex
	actors     []app.Actor
	intakeErr  error
	invoiceErr error
}

func (f *fakeApp) AuthenticateUser(_ context.Context, username, password string) (*app.UserSession, error) {
	switch {
	case username == "alice" && password == "secret":
		return &app.UserSession{UserID: 5, Username: "alice", Role: "staff"}, nil
	case username == "root" && password == "secret":
		return &app.UserSession{UserID: 1, Username: "root", Role: core.RoleAdmin}, nil
	}
	return nil, core.ErrInvalidCredentials
}

func (f *fakeApp) GetUser(_ context.Context, userID int) (*app.UserResult, error) {
	return &app.UserResult{UserID: userID, Username: "alice", Role: "staff"}, nil
}

func (f *fakeApp) IntakeStock(_ context.Context, actor app.Actor, in core.IntakeInput) (*core.InventoryRecord, error) {
	f.mu.Lock()
	f.actors = append(f.actors, actor)
	f.mu.Unlock()
	if f.intakeErr != nil {
		return nil, f.intakeErr
	}
	return &core.InventoryRecord{ID: 1, Item: in.Item, WarehouseID: in.WarehouseID, Quantity: in.Quantity}, nil
}

func (f *fakeApp) CreateInvoice(_ context.Context, _ app.Actor, in core.InvoiceInput) (*core.Invoice, error) {
	if f.invoiceErr != nil {
		return nil, f.invoiceErr
	}
	return &core.Invoice{ID: 1, InvoiceNumber: "INV-2026-00001", CustomerName: in.CustomerName}, nil
}

func (f *fakeApp) RefreshStatuses(context.Context) (*app.RefreshResult, error) {
	return &app.RefreshResult{Products: 3}, nil
}

func (f *fakeApp) GetInvoice(context.Context, int) (*core.Invoice, error) {
	return nil, errors.New("connection reset by peer")
}

// memStore is an in-memory idempotency.Store.
type memStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memStore) Reserve(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memStore) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

type testServer struct {
	handler http.Handler
	app     *fakeApp
	idem    *memStore
}

func newTestServer() *testServer {
	f := &fakeApp{}
	store := &memStore{keys: map[string]bool{}}
	return &testServer{
		handler: web.NewHandler(f, "", testSecret, nil, store, false),
		app:     f,
		idem:    store,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string, cookie *http.Cookie, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, username string) *http.Cookie {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/login", `{"username":"`+username+`","password":"secret"}`, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "auth_token" {
			return c
		}
	}
	t.Fatal("login did not set auth_token")
	return nil
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code, body.Error
}

const intakeBody = `{"item":{"kind":"product","id":1},"warehouse_id":1,"quantity":5}`

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer()
	rec := s.do(t, http.MethodGet, "/api/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	s := newTestServer()
	rec := s.do(t, http.MethodPost, "/api/stock/intake", intakeBody, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/auth/me", "", &http.Cookie{Name: "auth_token", Value: "garbage"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	s := newTestServer()
	rec := s.do(t, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"nope"}`, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestIntakePassesActorFromToken(t *testing.T) {
	s := newTestServer()
	cookie := s.login(t, "alice")

	rec := s.do(t, http.MethodPost, "/api/stock/intake", intakeBody, cookie, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, s.app.actors, 1)
	assert.Equal(t, app.Actor{UserID: 5, Username: "alice", Role: "staff"}, s.app.actors[0])
}

func TestServiceErrorsMapToStatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"shortage", &core.ShortageError{Err: core.ErrInsufficientStock, Item: core.ProductItem(1), WarehouseID: 1, Available: 2, Requested: 5}, http.StatusConflict, "INSUFFICIENT_STOCK"},
		{"access", &core.AccessDeniedError{UserID: 5, WarehouseID: 2}, http.StatusForbidden, "WAREHOUSE_ACCESS_DENIED"},
		{"warehouse", core.ErrWarehouseNotFound, http.StatusNotFound, "WAREHOUSE_NOT_FOUND"},
		{"quantity", core.ErrInvalidQuantity, http.StatusBadRequest, "INVALID_QUANTITY"},
		{"same", core.ErrSameWarehouse, http.StatusBadRequest, "SAME_WAREHOUSE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer()
			s.app.intakeErr = tc.err
			rec := s.do(t, http.MethodPost, "/api/stock/intake", intakeBody, s.login(t, "alice"), nil)
			assert.Equal(t, tc.status, rec.Code)
			code, _ := decodeError(t, rec)
			assert.Equal(t, tc.code, code)
		})
	}
}

func TestInvoiceShortageIsConflict(t *testing.T) {
	s := newTestServer()
	s.app.invoiceErr = &core.ShortageError{Err: core.ErrInsufficientStock, Item: core.ProductItem(2), Name: "Gadget", WarehouseID: 1, Available: 3, Requested: 4}
	body := `{"customer_name":"Acme","warehouse_id":1,"items":[{"product_id":2,"quantity":4}]}`
	rec := s.do(t, http.MethodPost, "/api/invoices", body, s.login(t, "alice"), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	code, msg := decodeError(t, rec)
	assert.Equal(t, "INSUFFICIENT_STOCK", code)
	assert.Contains(t, msg, "Gadget")
}

func TestUnclassifiedErrorHidesDetail(t *testing.T) {
	s := newTestServer()
	rec := s.do(t, http.MethodGet, "/api/invoices/3", "", s.login(t, "alice"), nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	code, msg := decodeError(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", code)
	assert.NotContains(t, msg, "connection reset")
}

func TestInvalidPathID(t *testing.T) {
	s := newTestServer()
	rec := s.do(t, http.MethodGet, "/api/invoices/abc", "", s.login(t, "alice"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMalformedJSON(t *testing.T) {
	s := newTestServer()
	rec := s.do(t, http.MethodPost, "/api/stock/intake", `{"item":`, s.login(t, "alice"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, s.app.actors)
}

func TestIdempotencyKeyRejectsReplay(t *testing.T) {
	s := newTestServer()
	cookie := s.login(t, "alice")
	hdr := map[string]string{"Idempotency-Key": "abc-123"}

	rec := s.do(t, http.MethodPost, "/api/stock/intake", intakeBody, cookie, hdr)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/stock/intake", intakeBody, cookie, hdr)
	assert.Equal(t, http.StatusConflict, rec.Code)
	code, _ := decodeError(t, rec)
	assert.Equal(t, "DUPLICATE_REQUEST", code)
	assert.Len(t, s.app.actors, 1, "replayed request must not reach the service")
}

func TestIdempotencyKeyReleasedOnFailure(t *testing.T) {
	s := newTestServer()
	cookie := s.login(t, "alice")
	hdr := map[string]string{"Idempotency-Key": "retry-me"}

	s.app.intakeErr = core.ErrInsufficientStock
	rec := s.do(t, http.MethodPost, "/api/stock/intake", intakeBody, cookie, hdr)
	require.Equal(t, http.StatusConflict, rec.Code)

	s.app.intakeErr = nil
	rec = s.do(t, http.MethodPost, "/api/stock/intake", intakeBody, cookie, hdr)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRefreshStatusesAdminOnly(t *testing.T) {
	s := newTestServer()
	rec := s.do(t, http.MethodPost, "/api/stock/status/refresh", "", s.login(t, "alice"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/stock/status/refresh", "", s.login(t, "root"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSchemaEndpoint(t *testing.T) {
	s := newTestServer()
	rec := s.do(t, http.MethodGet, "/api/schemas/transfer", "", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var schema struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &schema))
	assert.Contains(t, schema.Properties, "from_warehouse_id")
	assert.Contains(t, schema.Properties, "item")
	assert.NotContains(t, schema.Properties, "UserID")

	rec = s.do(t, http.MethodGet, "/api/schemas/nope", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
