package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/documents/local"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/middleware/auth"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/services"
)

const testOwner = "user-1"

var fixedNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

type staticRates decimal.Decimal

func (r staticRates) Rate(context.Context, core.Currency, core.Currency) decimal.Decimal {
	return decimal.Decimal(r)
}

type testServer struct {
	t   *testing.T
	srv *Server
}

func newTestServer(t *testing.T, mutate ...func(*Config)) *testServer {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	store := memory.New(clock)
	files, err := local.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	svc := services.New(services.Deps{Store: store, Clock: clock, Files: files}, staticRates(decimal.NewFromInt(130)))

	cfg := Config{
		Addr:      ":0",
		Auth:      auth.Config{Secret: []byte("secret"), AllowHeaderIdentity: true},
		RateLimit: ratelimit.Config{RequestsPerMinute: 1000},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	srv := NewServer(cfg, Deps{Services: svc, Store: store})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{t: t, srv: srv}
}

func (ts *testServer) doAs(owner, method, path string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			ts.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set(auth.HeaderUserID, owner)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	return ts.doAs(testOwner, method, path, body)
}

// expect asserts the status and decodes the body into a generic map.
func (ts *testServer) expect(rec *httptest.ResponseRecorder, status int) map[string]any {
	ts.t.Helper()
	if rec.Code != status {
		ts.t.Fatalf("status = %d, want %d; body: %s", rec.Code, status, rec.Body.String())
	}
	out := map[string]any{}
	if rec.Body.Len() > 0 && strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			ts.t.Fatalf("decode body: %v", err)
		}
	}
	return out
}

func (ts *testServer) expectList(rec *httptest.ResponseRecorder) []map[string]any {
	ts.t.Helper()
	if rec.Code != http.StatusOK {
		ts.t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
	var out []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		ts.t.Fatalf("decode list: %v", err)
	}
	return out
}

func idOf(t *testing.T, m map[string]any) int64 {
	t.Helper()
	id, ok := m["id"].(float64)
	if !ok {
		t.Fatalf("missing id in %v", m)
	}
	return int64(id)
}

func decimalOf(t *testing.T, v any) decimal.Decimal {
	t.Helper()
	s, ok := v.(string)
	if !ok {
		t.Fatalf("money field %v is not a string", v)
	}
	return decimal.RequireFromString(s)
}

func path(format string, args ...any) string {
	return apiPrefix + fmt.Sprintf(format, args...)
}

func TestHealthReadyAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	body := ts.expect(ts.doAs("", http.MethodGet, "/healthz", nil), http.StatusOK)
	if body["status"] != "ok" {
		t.Errorf("health = %v", body)
	}
	body = ts.expect(ts.doAs("", http.MethodGet, "/readyz", nil), http.StatusOK)
	if body["status"] != "ready" {
		t.Errorf("ready = %v", body)
	}

	rec := ts.doAs("", http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Errorf("metrics = %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
}

func TestAPIRequiresIdentity(t *testing.T) {
	ts := newTestServer(t)
	body := ts.expect(ts.doAs("", http.MethodGet, path("/debts"), nil), http.StatusUnauthorized)
	if body["error"] == "" {
		t.Errorf("missing error message: %v", body)
	}
}

func TestBearerTokenIdentity(t *testing.T) {
	ts := newTestServer(t, func(c *Config) { c.Auth.AllowHeaderIdentity = false })
	token, err := auth.IssueToken([]byte("secret"), "", testOwner, time.Hour, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, path("/debts"), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
	}

	ts.expect(ts.do(http.MethodGet, path("/debts"), nil), http.StatusUnauthorized)
}

func TestAccountRoutesAreScopedByCurrency(t *testing.T) {
	ts := newTestServer(t)

	acc := ts.expect(ts.do(http.MethodPost, path("/us-accounts"), map[string]any{
		"account_name": "Checking", "account_number": "001", "balance": "500.00", "currency": "KES",
	}), http.StatusCreated)
	if acc["currency"] != "USD" {
		t.Errorf("currency = %v, want forced USD", acc["currency"])
	}
	id := idOf(t, acc)

	ts.expect(ts.do(http.MethodGet, path("/kenya-accounts/%d", id), nil), http.StatusNotFound)
	if got := ts.expectList(ts.do(http.MethodGet, path("/kenya-accounts"), nil)); len(got) != 0 {
		t.Errorf("kenya accounts = %v", got)
	}

	updated := ts.expect(ts.do(http.MethodPatch, path("/us-accounts/%d/", id), map[string]any{"balance": "750"}), http.StatusOK)
	if !decimalOf(t, updated["balance"]).Equal(decimal.NewFromInt(750)) || updated["account_name"] != "Checking" {
		t.Errorf("patched account = %v", updated)
	}

	ts.expect(ts.doAs("someone-else", http.MethodGet, path("/us-accounts/%d", id), nil), http.StatusNotFound)

	ts.expect(ts.do(http.MethodDelete, path("/us-accounts/%d", id), nil), http.StatusNoContent)
	ts.expect(ts.do(http.MethodGet, path("/us-accounts/%d", id), nil), http.StatusNotFound)
}

func TestInvalidInput(t *testing.T) {
	ts := newTestServer(t)

	ts.expect(ts.do(http.MethodPost, path("/expenses"), `{"description":`), http.StatusBadRequest)
	body := ts.expect(ts.do(http.MethodPost, path("/expenses"), map[string]any{
		"description": "Lunch", "amount": "-3", "date": "2024-03-10",
	}), http.StatusBadRequest)
	if !strings.Contains(body["error"].(string), "amount") {
		t.Errorf("error = %v", body["error"])
	}
	ts.expect(ts.do(http.MethodGet, path("/expenses/abc"), nil), http.StatusNotFound)
	ts.expect(ts.do(http.MethodGet, path("/expenses?start_date=yesterday"), nil), http.StatusBadRequest)
	ts.expect(ts.do(http.MethodGet, path("/calendar-events/monthly_summary?month=13"), nil), http.StatusBadRequest)
	ts.expect(ts.do(http.MethodGet, path("/no-such-resource"), nil), http.StatusNotFound)
}

func TestTransferLifecycle(t *testing.T) {
	ts := newTestServer(t)
	us := idOf(t, ts.expect(ts.do(http.MethodPost, path("/us-accounts"), map[string]any{
		"account_name": "US", "account_number": "1", "balance": "500",
	}), http.StatusCreated))
	ke := idOf(t, ts.expect(ts.do(http.MethodPost, path("/kenya-accounts"), map[string]any{
		"account_name": "KE", "account_number": "2", "balance": "0",
	}), http.StatusCreated))

	transfer := ts.expect(ts.do(http.MethodPost, path("/money-transfers"), map[string]any{
		"from_us_account": us, "to_kenya_account": ke, "amount": "100", "fee": "5",
	}), http.StatusCreated)
	if transfer["status"] != "pending" || !decimalOf(t, transfer["exchange_rate"]).Equal(decimal.NewFromInt(130)) {
		t.Fatalf("created transfer = %v", transfer)
	}
	id := idOf(t, transfer)

	done := ts.expect(ts.do(http.MethodPost, path("/money-transfers/%d/complete", id), nil), http.StatusOK)
	if done["message"] != "Transfer completed successfully" {
		t.Errorf("complete = %v", done)
	}

	usAcc := ts.expect(ts.do(http.MethodGet, path("/us-accounts/%d", us), nil), http.StatusOK)
	keAcc := ts.expect(ts.do(http.MethodGet, path("/kenya-accounts/%d", ke), nil), http.StatusOK)
	if !decimalOf(t, usAcc["balance"]).Equal(decimal.NewFromInt(400)) {
		t.Errorf("US balance = %v", usAcc["balance"])
	}
	if !decimalOf(t, keAcc["balance"]).Equal(decimal.NewFromInt(12350)) {
		t.Errorf("KE balance = %v", keAcc["balance"])
	}

	ts.expect(ts.do(http.MethodPost, path("/money-transfers/%d/complete", id), nil), http.StatusConflict)
	ts.expect(ts.do(http.MethodDelete, path("/money-transfers/%d", id), nil), http.StatusConflict)

	rate := ts.expect(ts.do(http.MethodGet, path("/money-transfers/exchange_rate?from=USD&to=KES"), nil), http.StatusOK)
	if !decimalOf(t, rate["rate"]).Equal(decimal.NewFromInt(130)) {
		t.Errorf("rate = %v", rate)
	}
}

func TestDebtPaymentRoutes(t *testing.T) {
	ts := newTestServer(t)
	debt := ts.expect(ts.do(http.MethodPost, path("/debts"), map[string]any{
		"name": "Car", "principal_amount": "1000", "interest_rate": "12", "term_months": 12, "start_date": "2024-01-01",
	}), http.StatusCreated)
	debtID := idOf(t, debt)
	if debt["debt_type"] != "loan" {
		t.Errorf("default debt type = %v", debt["debt_type"])
	}

	payment := ts.expect(ts.do(http.MethodPost, path("/debt-payments"), map[string]any{
		"debt": debtID, "amount": 100,
	}), http.StatusCreated)
	if !decimalOf(t, payment["remaining_balance"]).Equal(decimal.NewFromInt(910)) {
		t.Errorf("payment = %v", payment)
	}
	ts.expect(ts.do(http.MethodPost, path("/debt-payments"), map[string]any{"debt": debtID}), http.StatusBadRequest)

	if got := ts.expectList(ts.do(http.MethodGet, path("/debt-payments?debt=%d", debtID), nil)); len(got) != 1 {
		t.Errorf("payments = %v", got)
	}

	rec := ts.do(http.MethodGet, path("/debts/%d/amortization_schedule", debtID), nil)
	if got := ts.expectList(rec); len(got) != 12 {
		t.Errorf("schedule rows = %d", len(got))
	}

	ts.expect(ts.do(http.MethodDelete, path("/debt-payments/%d", idOf(t, payment)), nil), http.StatusNoContent)
	after := ts.expect(ts.do(http.MethodGet, path("/debts/%d", debtID), nil), http.StatusOK)
	if !decimalOf(t, after["current_balance"]).Equal(decimal.NewFromInt(1000)) {
		t.Errorf("balance after delete = %v", after["current_balance"])
	}
}

func TestBudgetAlertRoutes(t *testing.T) {
	ts := newTestServer(t)
	budget := ts.expect(ts.do(http.MethodPost, path("/budgets"), map[string]any{
		"name": "Everything", "amount": "100", "start_date": "2024-01-01",
	}), http.StatusCreated)
	if budget["period"] != "monthly" || budget["is_active"] != true {
		t.Errorf("budget defaults = %v", budget)
	}

	ts.expect(ts.do(http.MethodPost, path("/expenses"), map[string]any{
		"description": "Groceries", "amount": "90", "date": "2024-03-10",
	}), http.StatusCreated)

	check := ts.expect(ts.do(http.MethodPost, path("/budgets/check_alerts"), nil), http.StatusOK)
	if check["alerts_created"].(float64) != 0 {
		t.Errorf("alert raised twice: %v", check)
	}

	alerts := ts.expectList(ts.do(http.MethodGet, path("/budget-alerts?is_read=false"), nil))
	if len(alerts) != 1 {
		t.Fatalf("alerts = %v", alerts)
	}

	view := ts.expect(ts.do(http.MethodGet, path("/budgets/%d", idOf(t, budget)), nil), http.StatusOK)
	if !decimalOf(t, view["spent_percentage"]).Equal(decimal.NewFromInt(90)) {
		t.Errorf("view = %v", view)
	}

	marked := ts.expect(ts.do(http.MethodPost, path("/budget-alerts/mark_all_read"), nil), http.StatusOK)
	if marked["marked_read"].(float64) != 1 {
		t.Errorf("marked = %v", marked)
	}
	if got := ts.expectList(ts.do(http.MethodGet, path("/budget-alerts?is_read=false"), nil)); len(got) != 0 {
		t.Errorf("unread after mark all = %v", got)
	}

	summary := ts.expect(ts.do(http.MethodGet, path("/budgets/summary"), nil), http.StatusOK)
	if summary["budgets_count"].(float64) != 1 {
		t.Errorf("summary = %v", summary)
	}
}

func TestGoalProgressRoute(t *testing.T) {
	ts := newTestServer(t)
	goal := ts.expect(ts.do(http.MethodPost, path("/goals"), map[string]any{
		"name": "Emergency fund", "target_amount": "1000", "deadline": "2025-01-01",
	}), http.StatusCreated)
	id := idOf(t, goal)

	body := ts.expect(ts.do(http.MethodPost, path("/goals/%d/update_progress", id), map[string]any{"amount": -5}), http.StatusBadRequest)
	if !strings.Contains(body["error"].(string), "Amount must be positive") {
		t.Errorf("error = %v", body["error"])
	}

	body = ts.expect(ts.do(http.MethodPost, path("/goals/%d/update_progress", id), map[string]any{"amount": "250"}), http.StatusOK)
	g := body["goal"].(map[string]any)
	if !decimalOf(t, g["progress_percentage"]).Equal(decimal.NewFromInt(25)) {
		t.Errorf("goal = %v", g)
	}
}

func TestCategoryRoutes(t *testing.T) {
	ts := newTestServer(t)
	created := ts.expect(ts.do(http.MethodPost, path("/categories/create_defaults"), nil), http.StatusCreated)
	if created["created"].(float64) != 15 {
		t.Errorf("created = %v", created["created"])
	}

	if got := ts.expectList(ts.do(http.MethodGet, path("/categories/income_categories"), nil)); len(got) != 5 {
		t.Errorf("income categories = %d", len(got))
	}

	var parentID int64
	for _, c := range ts.expectList(ts.do(http.MethodGet, path("/categories?type=expense"), nil)) {
		if c["name"] == "Food & Dining" {
			parentID = idOf(t, c)
		}
	}
	child := ts.expect(ts.do(http.MethodPost, path("/categories"), map[string]any{
		"name": "Coffee", "parent_category": parentID,
	}), http.StatusCreated)
	if child["full_path"] != "Food & Dining > Coffee" || child["is_active"] != true {
		t.Errorf("child = %v", child)
	}

	for _, root := range ts.expectList(ts.do(http.MethodGet, path("/categories/tree?type=expense"), nil)) {
		if idOf(t, root) == parentID && root["has_subcategories"] != true {
			t.Errorf("parent node = %v", root)
		}
	}
}

func TestIncomeAndDashboardRoutes(t *testing.T) {
	ts := newTestServer(t)
	us := idOf(t, ts.expect(ts.do(http.MethodPost, path("/us-accounts"), map[string]any{
		"account_name": "US", "account_number": "1", "balance": "100",
	}), http.StatusCreated))
	income := ts.expect(ts.do(http.MethodPost, path("/incomes"), map[string]any{
		"source": "Acme", "amount": "1000", "date": "2024-03-20", "us_account": us,
	}), http.StatusCreated)

	if got := ts.expectList(ts.do(http.MethodGet, path("/incomes/upcoming"), nil)); len(got) != 1 {
		t.Errorf("upcoming = %v", got)
	}

	dep := ts.expect(ts.do(http.MethodPost, path("/incomes/%d/mark_deposited", idOf(t, income)), nil), http.StatusOK)
	if dep["transaction"].(map[string]any)["description"] != "Income from Acme" {
		t.Errorf("deposit = %v", dep)
	}
	ts.expect(ts.do(http.MethodPost, path("/incomes/%d/mark_deposited", idOf(t, income)), nil), http.StatusBadRequest)

	summary := ts.expect(ts.do(http.MethodGet, path("/transactions/summary"), nil), http.StatusOK)
	if !decimalOf(t, summary["total_income"]).Equal(decimal.NewFromInt(1000)) {
		t.Errorf("summary = %v", summary)
	}

	dash := ts.expect(ts.do(http.MethodGet, path("/dashboard"), nil), http.StatusOK)
	if _, ok := dash["overview"]; !ok {
		t.Errorf("dashboard = %v", dash)
	}
}

func TestCalendarRoutes(t *testing.T) {
	ts := newTestServer(t)
	ts.expect(ts.do(http.MethodPost, path("/calendar-events"), map[string]any{
		"title": "Rent", "event_type": "bill", "date": "2024-01-05", "amount": "500",
		"is_recurring": true, "recurrence_pattern": "monthly",
	}), http.StatusCreated)

	summary := ts.expect(ts.do(http.MethodGet, path("/calendar-events/monthly_summary?month=2&year=2024"), nil), http.StatusOK)
	if summary["total_events"].(float64) != 1 || !decimalOf(t, summary["bill_total"]).Equal(decimal.NewFromInt(500)) {
		t.Errorf("summary = %v", summary)
	}

	window := ts.expectList(ts.do(http.MethodGet, path("/calendar-events?start_date=2024-01-01&end_date=2024-03-31"), nil))
	if len(window) != 1 || len(window[0]["occurrences"].([]any)) != 3 {
		t.Errorf("window = %v", window)
	}

	if got := ts.expectList(ts.do(http.MethodGet, path("/calendar-events/upcoming"), nil)); len(got) != 1 {
		t.Errorf("upcoming = %v", got)
	}
	ts.expect(ts.do(http.MethodPost, path("/calendar-events/send_reminders"), nil), http.StatusOK)
}

func TestRateLimitedAPI(t *testing.T) {
	ts := newTestServer(t, func(c *Config) { c.RateLimit.RequestsPerMinute = 2 })
	for i := 0; i < 2; i++ {
		ts.expect(ts.do(http.MethodGet, path("/goals"), nil), http.StatusOK)
	}
	rec := ts.do(http.MethodGet, path("/goals"), nil)
	ts.expect(rec, http.StatusTooManyRequests)
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	ts.expect(ts.doAs("", http.MethodGet, "/healthz", nil), http.StatusOK)
}
