package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"idealtransport/cache"
	"idealtransport/handlers"
	"idealtransport/metrics"
	"idealtransport/models"
	"idealtransport/repository/memory"
	"idealtransport/routes"
	"idealtransport/services"
)

type testServer struct {
	router http.Handler
	users  *services.UserService
}

func newTestServer(t *testing.T, opts routes.Options) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()

	payments := services.NewPaymentEngine(store, store, cache.NewMemory(128, time.Minute), time.Minute, logger).
		WithMetrics(opts.Metrics)
	auth := services.NewAuthService(store, cache.NewMemory(128, time.Hour), time.Hour, logger)
	users := services.NewUserService(store, logger)
	bols := services.NewBOLService(store, payments, logger)
	ledger := services.NewLedgerService(store, payments, logger)

	h := routes.Handlers{
		Auth:         &handlers.AuthHandler{Service: auth, Logger: logger},
		Users:        &handlers.UserHandler{Service: users, Logger: logger},
		BOL:          &handlers.BOLHandler{Service: bols, Logger: logger},
		Transactions: &handlers.TransactionHandler{Ledger: ledger, BOLs: bols, Logger: logger},
		Expenses:     &handlers.ExpenseHandler{Service: services.NewExpenseService(store), Logger: logger},
		Health:       &handlers.HealthHandler{Stores: map[string]handlers.Pinger{"database": store}, Logger: logger},
	}
	return &testServer{router: routes.NewRouter(opts, h, auth, logger), users: users}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	form := url.Values{"username": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tok models.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	require.Equal(t, "bearer", tok.TokenType)
	return tok.AccessToken
}

// user creates an account directly and returns a token for it.
func (s *testServer) user(t *testing.T, email string, admin bool) string {
	t.Helper()
	_, err := s.users.Create(context.Background(), &models.UserCreateInput{
		Email:    email,
		Password: "password-" + email,
		IsAdmin:  admin,
	})
	require.NoError(t, err)
	return s.login(t, email, "password-"+email)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) map[string]any {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decode(t, rec)
	require.Equal(t, code, body["code"])
	return body
}

func bolBody(workOrderNo string, prices ...string) map[string]any {
	vehicles := []map[string]any{}
	for _, p := range prices {
		vehicles = append(vehicles, map[string]any{"make": "Toyota", "model": "Camry", "price": p})
	}
	return map[string]any{
		"driver_name":     "Sam Driver",
		"date":            "2024-03-01",
		"work_order_no":   workOrderNo,
		"broker_name":     "Acme Brokers",
		"condition_codes": "D, S ,",
		"vehicles":        vehicles,
	}
}

func paymentBody(workOrderNo string, amount float64) map[string]any {
	return map[string]any{
		"date":             "2024-03-02",
		"work_order_no":    workOrderNo,
		"collected_amount": amount,
		"payment_type":     "cash",
	}
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t, routes.Options{})

	rec := s.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, decode(t, rec)["message"], "Welcome")

	rec = s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, "connected", body["components"].(map[string]any)["database"])
	require.NotEmpty(t, rec.Header().Get("X-Frame-Options"))
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, routes.Options{})

	rec := s.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "pat@example.com", "password": "correct horse", "full_name": "Pat",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	require.Equal(t, "pat@example.com", created["email"])
	require.NotContains(t, created, "hashed_password")

	rec = s.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "PAT@example.com", "password": "correct horse",
	})
	requireError(t, rec, http.StatusConflict, "email_registered")

	rec = s.do(t, http.MethodPost, "/auth/register", "", map[string]any{"email": "not-an-email", "password": "x"})
	body := requireError(t, rec, http.StatusBadRequest, "invalid_input")
	require.Contains(t, body["fields"], "email")
	require.Contains(t, body["fields"], "password")

	token := s.login(t, "pat@example.com", "correct horse")

	rec = s.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Pat", decode(t, rec)["full_name"])

	rec = s.do(t, http.MethodGet, "/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, decode(t, rec)["message"], "Pat")

	rec = s.do(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/auth/me", token, nil)
	requireError(t, rec, http.StatusUnauthorized, "invalid_token")
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t, routes.Options{})
	s.user(t, "pat@example.com", false)

	form := url.Values{"username": {"pat@example.com"}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	requireError(t, rec, http.StatusUnauthorized, "invalid_credentials")
	require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	req = httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	requireError(t, rec, http.StatusBadRequest, "invalid_input")
}

func TestMissingOrBadTokenIsUnauthorized(t *testing.T) {
	s := newTestServer(t, routes.Options{})

	rec := s.do(t, http.MethodGet, "/transactions/", "", nil)
	requireError(t, rec, http.StatusUnauthorized, "invalid_token")
	require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	rec = s.do(t, http.MethodGet, "/transactions", "not-a-token", nil)
	requireError(t, rec, http.StatusUnauthorized, "invalid_token")
}

func TestAdminGate(t *testing.T) {
	s := newTestServer(t, routes.Options{})
	admin := s.user(t, "admin@example.com", true)
	clerk := s.user(t, "clerk@example.com", false)

	rec := s.do(t, http.MethodGet, "/auth/users", clerk, nil)
	requireError(t, rec, http.StatusForbidden, "admin_required")

	rec = s.do(t, http.MethodGet, "/auth/users/", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)

	rec = s.do(t, http.MethodPost, "/auth/users", admin, map[string]any{
		"email": "new@example.com", "password": "new-password", "is_admin": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := int64(decode(t, rec)["id"].(float64))

	rec = s.do(t, http.MethodPut, "/auth/users/"+itoa(id), admin, map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, decode(t, rec)["is_active"])

	rec = s.do(t, http.MethodDelete, "/auth/users/"+itoa(id), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/auth/users/"+itoa(id), admin, nil)
	requireError(t, rec, http.StatusNotFound, "user_not_found")

	rec = s.do(t, http.MethodGet, "/auth/users/abc", admin, nil)
	requireError(t, rec, http.StatusBadRequest, "invalid_input")
}

func TestBOLLifecycle(t *testing.T) {
	s := newTestServer(t, routes.Options{})
	token := s.user(t, "clerk@example.com", false)

	rec := s.do(t, http.MethodPost, "/bol/", "", bolBody("WO-1", "100.00", "50", "abc"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	require.Equal(t, 150.0, created["total_amount"])
	id := int64(created["id"].(float64))

	rec = s.do(t, http.MethodPost, "/bol", "", bolBody("WO-1", "1"))
	requireError(t, rec, http.StatusConflict, "duplicate_work_order")

	rec = s.do(t, http.MethodGet, "/bol/"+itoa(id), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)
	require.Equal(t, 150.0, got["due_amount"])
	require.Equal(t, 0.0, got["total_collected"])
	require.Equal(t, []any{"D", "S"}, got["condition_codes"])
	require.Len(t, got["vehicles"], 3)

	rec = s.do(t, http.MethodPost, "/transactions/", token, paymentBody("WO-1", 80))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, 70.0, decode(t, rec)["due_amount"])

	rec = s.do(t, http.MethodPost, "/transactions/", token, paymentBody("WO-1", 71))
	body := requireError(t, rec, http.StatusBadRequest, "overpayment")
	require.Equal(t, 70.0, body["remaining_amount"])
	require.Equal(t, "validation_rejected", body["kind"])

	rec = s.do(t, http.MethodPost, "/transactions/", token, paymentBody("WO-404", 1))
	requireError(t, rec, http.StatusNotFound, "work_order_not_found")

	rec = s.do(t, http.MethodGet, "/bol/work-order/WO-1/payment-status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode(t, rec)
	require.Equal(t, 80.0, status["total_collected"])
	require.Equal(t, "partially_paid", status["payment_state"])

	rec = s.do(t, http.MethodGet, "/bol?payment_status=pending", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	require.Len(t, pending, 1)

	rec = s.do(t, http.MethodGet, "/bol/?payment_status=paid", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())

	rec = s.do(t, http.MethodGet, "/bol?limit=5000", "", nil)
	requireError(t, rec, http.StatusBadRequest, "invalid_input")

	rec = s.do(t, http.MethodDelete, "/bol/"+itoa(id), "", nil)
	body = requireError(t, rec, http.StatusBadRequest, "has_associated_transactions")
	require.Equal(t, 1.0, body["transaction_count"])

	rec = s.do(t, http.MethodDelete, "/bol/999", "", nil)
	requireError(t, rec, http.StatusNotFound, "bol_not_found")
}

func TestBOLValidation(t *testing.T) {
	s := newTestServer(t, routes.Options{})

	body := bolBody("WO-1")
	delete(body, "driver_name")
	rec := s.do(t, http.MethodPost, "/bol", "", body)
	resp := requireError(t, rec, http.StatusBadRequest, "invalid_input")
	require.Contains(t, resp["fields"], "driver_name")

	req := httptest.NewRequest(http.MethodPost, "/bol", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	requireError(t, rec, http.StatusBadRequest, "invalid_input")

	rec = s.do(t, http.MethodGet, "/bol?start_date=yesterday", "", nil)
	requireError(t, rec, http.StatusBadRequest, "invalid_input")
}

func TestBOLRequireAuth(t *testing.T) {
	s := newTestServer(t, routes.Options{BOLRequireAuth: true})

	rec := s.do(t, http.MethodGet, "/bol", "", nil)
	requireError(t, rec, http.StatusUnauthorized, "invalid_token")

	token := s.user(t, "clerk@example.com", false)
	rec = s.do(t, http.MethodGet, "/bol", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestTransactionsAreScopedToOwner(t *testing.T) {
	s := newTestServer(t, routes.Options{})
	alice := s.user(t, "alice@example.com", false)
	bob := s.user(t, "bob@example.com", false)

	rec := s.do(t, http.MethodPost, "/bol", "", bolBody("WO-1", "100"))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodPost, "/transactions", alice, paymentBody("WO-1", 25))
	require.Equal(t, http.StatusCreated, rec.Code)
	path := "/transactions/" + itoa(int64(decode(t, rec)["id"].(float64)))

	requireError(t, s.do(t, http.MethodGet, path, bob, nil), http.StatusNotFound, "transaction_not_found")
	requireError(t, s.do(t, http.MethodPut, path, bob, map[string]any{"comments": "mine"}), http.StatusNotFound, "transaction_not_found")
	requireError(t, s.do(t, http.MethodDelete, path, bob, nil), http.StatusNotFound, "transaction_not_found")

	rec = s.do(t, http.MethodGet, "/transactions", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())

	rec = s.do(t, http.MethodGet, "/transactions/work-order/WO-1/transactions", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, "[]", rec.Body.String())

	rec = s.do(t, http.MethodPut, path, alice, map[string]any{"collected_amount": 30, "payment_type": "Zelle"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode(t, rec)
	require.Equal(t, 30.0, updated["collected_amount"])
	require.Equal(t, "electronic_transfer", updated["payment_type"])

	rec = s.do(t, http.MethodGet, "/transactions/", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.Equal(t, "Acme Brokers", list[0]["broker_name"])

	rec = s.do(t, http.MethodGet, "/transactions/work-order/WO-1/status", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 70.0, decode(t, rec)["due_amount"])

	rec = s.do(t, http.MethodGet, "/transactions/work-orders/pending", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = s.do(t, http.MethodDelete, path, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDailyExpenses(t *testing.T) {
	s := newTestServer(t, routes.Options{})
	alice := s.user(t, "alice@example.com", false)
	bob := s.user(t, "bob@example.com", false)

	rec := s.do(t, http.MethodPost, "/transactions/daily-expenses", alice, map[string]any{
		"date":                 "2024-05-01",
		"diesel_amount":        300.1,
		"def_amount":           20,
		"other_expense_amount": 4.9,
		"total":                1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	require.Equal(t, 325.0, created["total"])
	path := "/transactions/daily-expenses/" + itoa(int64(created["id"].(float64)))

	requireError(t, s.do(t, http.MethodGet, path, bob, nil), http.StatusNotFound, "expense_not_found")

	rec = s.do(t, http.MethodGet, "/transactions/daily-expenses/", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rec = s.do(t, http.MethodGet, "/transactions/daily-expenses/report.xlsx", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), "daily_expenses_")

	rec = s.do(t, http.MethodDelete, path, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestTransactionsReport(t *testing.T) {
	s := newTestServer(t, routes.Options{})
	token := s.user(t, "clerk@example.com", false)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/bol", "", bolBody("WO-1", "100")).Code)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/transactions", token, paymentBody("WO-1", 40)).Code)

	rec := s.do(t, http.MethodGet, "/transactions/report.xlsx?start_date=2024-01-01", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	require.Greater(t, rec.Body.Len(), 0)

	rec = s.do(t, http.MethodGet, "/transactions/report.xlsx?start_date=2024-02-01&end_date=2024-01-01", token, nil)
	requireError(t, rec, http.StatusBadRequest, "invalid_input")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, routes.Options{Metrics: metrics.New()})
	token := srv.user(t, "metrics@example.com", false)

	rec := srv.do(t, http.MethodPost, "/bol/", "", bolBody("WO-M", "100"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = srv.do(t, http.MethodPost, "/transactions/", token, paymentBody("WO-M", 150))
	requireError(t, rec, http.StatusBadRequest, "overpayment")
	srv.do(t, http.MethodGet, "/bol/41", "", nil)
	srv.do(t, http.MethodGet, "/bol/42", "", nil)

	rec = srv.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `idealtransport_http_requests_total{code="404",method="GET",route="/bol/{id}"} 2`)
	require.Contains(t, body, `idealtransport_payments_total{operation="create",outcome="overpayment"} 1`)
}

func TestMetricsEndpointDisabled(t *testing.T) {
	srv := newTestServer(t, routes.Options{})
	rec := srv.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
