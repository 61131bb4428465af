package app_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/app"
	"github.com/Additional-Code/bistro/internal/cache"
	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/database/dbtest"
	"github.com/Additional-Code/bistro/internal/messaging"
	"github.com/Additional-Code/bistro/internal/migration"
	"github.com/Additional-Code/bistro/internal/observability"
	"github.com/Additional-Code/bistro/internal/presentation/http/response"
	repositorymenu "github.com/Additional-Code/bistro/internal/repository/menu"
	repositoryorder "github.com/Additional-Code/bistro/internal/repository/order"
	repositoryuser "github.com/Additional-Code/bistro/internal/repository/user"
	"github.com/Additional-Code/bistro/internal/security"
	httpserver "github.com/Additional-Code/bistro/internal/server/http"
	serviceauth "github.com/Additional-Code/bistro/internal/service/auth"
	servicemenu "github.com/Additional-Code/bistro/internal/service/menu"
	serviceorder "github.com/Additional-Code/bistro/internal/service/order"
	servicestats "github.com/Additional-Code/bistro/internal/service/stats"
	transporthttp "github.com/Additional-Code/bistro/internal/transport/http"
)

func TestGraphsValidate(t *testing.T) {
	graphs := map[string]fx.Option{
		"http":     app.HTTP,
		"worker":   app.Worker,
		"migrate":  fx.Options(app.Base, migration.Module),
		"accounts": app.Accounts,
	}
	for name, opts := range graphs {
		t.Run(name, func(t *testing.T) {
			if err := fx.ValidateApp(opts, fx.NopLogger); err != nil {
				t.Fatalf("ValidateApp: %v", err)
			}
		})
	}
}

// reply is a decoded response: raw is the body as sent, Error is filled
// from the error envelope on failures.
type reply struct {
	raw     []byte
	Success bool
	Error   response.ErrorBody
}

type api struct {
	t     *testing.T
	e     *echo.Echo
	token string
}

func (a *api) do(method, target, contentType, body string) (*httptest.ResponseRecorder, reply) {
	a.t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	if a.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+a.token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	out := reply{raw: rec.Body.Bytes(), Success: rec.Code < http.StatusBadRequest}
	if !out.Success {
		var env response.ErrorEnvelope
		if err := json.Unmarshal(out.raw, &env); err != nil {
			a.t.Fatalf("%s %s: decode error %q: %v", method, target, rec.Body.String(), err)
		}
		out.Error = env.Error
	}
	return rec, out
}

func (a *api) json(method, target, body string) (*httptest.ResponseRecorder, reply) {
	return a.do(method, target, echo.MIMEApplicationJSON, body)
}

func decode[T any](t *testing.T, r reply) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(r.raw, &out); err != nil {
		t.Fatalf("decode %s: %v", r.raw, err)
	}
	return out
}

func topLevelKeys(t *testing.T, r reply) map[string]json.RawMessage {
	t.Helper()
	return decode[map[string]json.RawMessage](t, r)
}

type harness struct {
	*api
	data *dbtest.Fixtures
}

func newHarness(t *testing.T) harness {
	t.Helper()
	conns := dbtest.New(t)
	cfg := config.Config{
		HTTP:        config.HTTP{Host: "127.0.0.1", Port: 8080},
		Cache:       config.Cache{DefaultTTL: time.Minute},
		Diagnostics: config.Diagnostics{Enabled: true},
		Auth: config.Auth{
			JWTSecret: "0123456789abcdef0123456789abcdef",
			Issuer:    "bistro-test",
			TokenTTL:  time.Hour,
		},
		Observability: config.Observability{ServiceName: "bistro-test"},
	}

	var e *echo.Echo
	application := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(cfg, conns, zap.NewNop()),
		fx.Provide(
			func() cache.Store { return cache.Noop() },
			func() messaging.Client { return messaging.Noop("menu") },
			observability.NewManager,
			httpserver.NewEcho,
		),
		repositoryuser.Module,
		repositorymenu.Module,
		repositoryorder.Module,
		security.Module,
		serviceauth.Module,
		servicemenu.Module,
		serviceorder.Module,
		servicestats.Module,
		transporthttp.Module,
		fx.Populate(&e),
	)
	application.RequireStart()
	t.Cleanup(application.RequireStop)

	return harness{api: &api{t: t, e: e}, data: dbtest.NewFixtures(t, conns)}
}

func (h harness) login(username, password string) {
	h.t.Helper()
	hash, err := security.HashPassword(password)
	if err != nil {
		h.t.Fatalf("hash: %v", err)
	}
	h.data.User(username, hash)

	form := url.Values{"username": {username}, "password": {password}}
	rec, env := h.do(http.MethodPost, "/auth/login", echo.MIMEApplicationForm, form.Encode())
	if rec.Code != http.StatusOK {
		h.t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	token := decode[struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}](h.t, env)
	if token.TokenType != "bearer" || token.AccessToken == "" {
		h.t.Fatalf("token = %+v", token)
	}
	h.token = token.AccessToken
}

func TestMenuLifecycle(t *testing.T) {
	h := newHarness(t)
	h.login("anna", "s3cret-pass")

	rec, env := h.do(http.MethodGet, "/auth/me", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d", rec.Code)
	}
	me := decode[struct {
		Username string   `json:"username"`
		Roles    []string `json:"roles"`
	}](t, env)
	if me.Username != "anna" || len(me.Roles) != 1 || me.Roles[0] != "manager" {
		t.Fatalf("me = %+v", me)
	}

	rec, env = h.json(http.MethodPost, "/menu/categories", `{"id": 99, "name_pl": "Zupy", "name_en": "Soups"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category status = %d: %s", rec.Code, rec.Body.String())
	}
	category := decode[struct {
		ID int64 `json:"id"`
	}](t, env)

	rec, env = h.json(http.MethodPost, "/menu/items", fmt.Sprintf(`{"category_id": %d, "name_pl": "Żurek", "name_en": "Sour rye soup", "price_cents": 1800}`, category.ID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create item status = %d: %s", rec.Code, rec.Body.String())
	}
	item := decode[struct {
		ID          int64 `json:"id"`
		IsAvailable bool  `json:"is_available"`
	}](t, env)
	if !item.IsAvailable {
		t.Fatal("new item should be available")
	}

	rec, env = h.do(http.MethodPost, fmt.Sprintf("/menu/items/%d/block?is_available=false", item.ID), "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("block status = %d: %s", rec.Code, rec.Body.String())
	}
	blocked := decode[struct {
		ID          int64 `json:"id"`
		IsAvailable bool  `json:"is_available"`
	}](t, env)
	if blocked.ID != item.ID || blocked.IsAvailable {
		t.Fatalf("block = %+v", blocked)
	}

	_, env = h.do(http.MethodGet, "/menu/items", "", "")
	items := decode[[]struct {
		ID          int64 `json:"id"`
		IsAvailable bool  `json:"is_available"`
	}](t, env)
	if len(items) != 1 || items[0].IsAvailable {
		t.Fatalf("items = %+v", items)
	}

	rec, env = h.json(http.MethodPut, fmt.Sprintf("/menu/items/%d", item.ID), `{"name_pl": null}`)
	if rec.Code != http.StatusUnprocessableEntity || env.Error.Kind != "unprocessable_entity" {
		t.Fatalf("null name status = %d kind = %q", rec.Code, env.Error.Kind)
	}

	rec, _ = h.json(http.MethodPut, fmt.Sprintf("/menu/items/%d", item.ID), `{"price_cents": 2100, "image_url": "https://img/zurek.png"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d: %s", rec.Code, rec.Body.String())
	}

	rec, _ = h.do(http.MethodDelete, fmt.Sprintf("/menu/categories/%d", category.ID), "", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("delete category in use status = %d", rec.Code)
	}

	rec, _ = h.do(http.MethodDelete, fmt.Sprintf("/menu/items/%d", item.ID), "", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete item status = %d", rec.Code)
	}
	rec, _ = h.do(http.MethodDelete, fmt.Sprintf("/menu/categories/%d", category.ID), "", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete category status = %d", rec.Code)
	}
	rec, env = h.json(http.MethodPut, fmt.Sprintf("/menu/categories/%d", category.ID), `{"name_en": "Broths"}`)
	if rec.Code != http.StatusNotFound || env.Error.Kind != "not_found" {
		t.Fatalf("update deleted category status = %d", rec.Code)
	}
}

func TestCreateItemValidation(t *testing.T) {
	h := newHarness(t)
	h.login("anna", "s3cret-pass")

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"missing fields", `{"name_pl": "Żurek"}`, http.StatusUnprocessableEntity},
		{"unknown category", `{"category_id": 404, "name_pl": "a", "name_en": "b", "price_cents": 1}`, http.StatusUnprocessableEntity},
		{"negative price", `{"category_id": 1, "name_pl": "a", "name_en": "b", "price_cents": -1}`, http.StatusUnprocessableEntity},
		{"malformed json", `{"category_id": `, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := h.json(http.MethodPost, "/menu/items", tt.body)
			if rec.Code != tt.status || env.Success {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestAuthFailures(t *testing.T) {
	h := newHarness(t)
	hash, _ := security.HashPassword("s3cret-pass")
	h.data.User("anna", hash)

	for _, creds := range []url.Values{
		{"username": {"anna"}, "password": {"wrong-pass"}},
		{"username": {"nobody"}, "password": {"s3cret-pass"}},
	} {
		rec, env := h.do(http.MethodPost, "/auth/login", echo.MIMEApplicationForm, creds.Encode())
		if rec.Code != http.StatusBadRequest || env.Error.Message != "invalid credentials" {
			t.Fatalf("login %v: status = %d message = %q", creds["username"], rec.Code, env.Error.Message)
		}
	}

	for _, token := range []string{"", "not-a-jwt"} {
		h.token = token
		for _, target := range []string{"/menu/items", "/orders", "/stats/orders/daily", "/auth/me"} {
			rec, _ := h.do(http.MethodGet, target, "", "")
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("GET %s with token %q: status = %d", target, token, rec.Code)
			}
			if rec.Header().Get(echo.HeaderWWWAuthenticate) != "Bearer" {
				t.Fatalf("GET %s: missing challenge", target)
			}
		}
	}
}

func TestOrderReporting(t *testing.T) {
	h := newHarness(t)
	h.login("anna", "s3cret-pass")

	category := h.data.Category("Zupy", "Soups")
	zurek := h.data.Item(category.ID, "Żurek", "Sour rye soup", 1800)
	rosol := h.data.Item(category.ID, "Rosół", "Broth", 1500)

	created := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	order := h.data.Order(7, "ready", created)
	h.data.Line(order.ID, zurek.ID, 2)
	h.data.Line(order.ID, rosol.ID, 1)
	h.data.Event(order.ID, "created", "Kiosk-B", created, "new")
	h.data.Event(order.ID, "accepted", "Kiosk-B", created.Add(time.Minute), "in_preparation")
	h.data.Event(order.ID, "ready", "Kiosk-B", created.Add(12*time.Minute), "ready")
	other := h.data.Order(8, "ready", created.Add(time.Hour))
	h.data.Event(other.ID, "ready", "Kiosk-A", created.Add(70*time.Minute), "ready")

	rec, env := h.do(http.MethodGet, fmt.Sprintf("/orders/%d", order.ID), "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("details status = %d: %s", rec.Code, rec.Body.String())
	}
	details := decode[struct {
		OrderNumber int `json:"order_number"`
		Items       []struct {
			Name     string `json:"name"`
			Quantity int    `json:"quantity"`
		} `json:"items"`
		Events []struct {
			EventType string `json:"event_type"`
		} `json:"events"`
	}](t, env)
	if details.OrderNumber != 7 || len(details.Items) != 2 || len(details.Events) != 3 {
		t.Fatalf("details = %+v", details)
	}
	if details.Items[0].Name != "Żurek" || details.Items[0].Quantity != 2 || details.Events[2].EventType != "ready" {
		t.Fatalf("details = %+v", details)
	}

	rec, _ = h.do(http.MethodGet, "/orders/999", "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing order status = %d", rec.Code)
	}
	rec, _ = h.do(http.MethodGet, "/orders/abc", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", rec.Code)
	}

	_, env = h.do(http.MethodGet, "/orders?status=ready&date_from=2024-03-15&date_to=2024-03-15", "", "")
	orders := decode[[]struct {
		OrderNumber int `json:"order_number"`
	}](t, env)
	if len(orders) != 2 || orders[0].OrderNumber != 8 {
		t.Fatalf("orders = %+v", orders)
	}
	rec, _ = h.do(http.MethodGet, "/orders?date_from=tomorrow", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date status = %d", rec.Code)
	}

	_, env = h.do(http.MethodGet, "/stats/orders/daily?date=2024-03-15", "", "")
	daily := decode[struct {
		Date          string `json:"date"`
		TerminalStats []struct {
			TerminalName string `json:"terminal_name"`
			OrdersCount  int    `json:"orders_count"`
		} `json:"terminal_stats"`
	}](t, env)
	if daily.Date != "2024-03-15" || len(daily.TerminalStats) != 2 || daily.TerminalStats[0].TerminalName != "Kiosk-A" {
		t.Fatalf("daily = %+v", daily)
	}

	_, env = h.do(http.MethodGet, "/stats/menu-items/top?date_from=2024-03-15&date_to=2024-03-15", "", "")
	top := decode[[]struct {
		MenuItemID int64  `json:"menu_item_id"`
		Name       string `json:"name"`
		NameEN     string `json:"name_en"`
		SoldCount  int64  `json:"sold_count"`
	}](t, env)
	if len(top) != 2 || top[0].MenuItemID != zurek.ID || top[0].SoldCount != 2 || top[0].NameEN != "Sour rye soup" {
		t.Fatalf("top = %+v", top)
	}
}

func TestDiagnostics(t *testing.T) {
	h := newHarness(t)

	for target, want := range map[string]string{"/health": `"status":"ok"`, "/health/db": `"db":"ok"`} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		h.e.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), want) {
			t.Fatalf("GET %s = %d %s", target, rec.Code, rec.Body.String())
		}
	}

	rec, env := h.do(http.MethodGet, "/nowhere", "", "")
	if rec.Code != http.StatusNotFound || env.Error.Kind != "not_found" {
		t.Fatalf("unknown route = %d %s", rec.Code, env.raw)
	}
}

func TestSuccessBodiesAreUnwrapped(t *testing.T) {
	h := newHarness(t)
	hash, _ := security.HashPassword("s3cret-pass")
	h.data.User("anna", hash)

	form := url.Values{"username": {"anna"}, "password": {"s3cret-pass"}}
	_, login := h.do(http.MethodPost, "/auth/login", echo.MIMEApplicationForm, form.Encode())
	keys := topLevelKeys(t, login)
	for _, want := range []string{"access_token", "token_type", "expires_at"} {
		if _, ok := keys[want]; !ok {
			t.Fatalf("login body %s lacks top-level %q", login.raw, want)
		}
	}
	if _, wrapped := keys["data"]; wrapped {
		t.Fatalf("login body is wrapped: %s", login.raw)
	}
	h.token = decode[struct {
		AccessToken string `json:"access_token"`
	}](t, login).AccessToken

	_, me := h.do(http.MethodGet, "/auth/me", "", "")
	keys = topLevelKeys(t, me)
	for _, want := range []string{"id", "username", "roles"} {
		if _, ok := keys[want]; !ok {
			t.Fatalf("me body %s lacks top-level %q", me.raw, want)
		}
	}

	_, daily := h.do(http.MethodGet, "/stats/orders/daily?date=2024-03-15", "", "")
	if got := string(topLevelKeys(t, daily)["terminal_stats"]); got != "[]" {
		t.Fatalf("daily body = %s", daily.raw)
	}

	rec, top := h.do(http.MethodGet, "/stats/menu-items/top", "", "")
	if got := strings.TrimSpace(string(top.raw)); got != "[]" {
		t.Fatalf("top body = %s", got)
	}

	rec, items := h.do(http.MethodGet, "/menu/items", "", "")
	if strings.TrimSpace(string(items.raw)) != "[]" || rec.Header().Get(response.HeaderTotalCount) != "0" {
		t.Fatalf("items = %s count %q", items.raw, rec.Header().Get(response.HeaderTotalCount))
	}
}
