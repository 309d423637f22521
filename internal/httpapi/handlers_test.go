package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medipos/internal/cache"
	"medipos/internal/domain"
	"medipos/internal/service"
	"medipos/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()
	repo := memory.New()
	svc := service.New(repo, cache.NewNoop())
	auth, err := NewAuthManager("test-secret-key-that-is-long-enough", "apotheke", time.Hour)
	if err != nil {
		t.Fatalf("auth manager: %v", err)
	}
	return New(svc, auth, "*")
}

func login(t *testing.T, api *API) string {
	t.Helper()
	resp, err := api.auth.Login(domain.LoginRequest{Password: "apotheke"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return resp.AccessToken
}

func doJSON(t *testing.T, api *API, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if method != http.MethodGet {
		req.Header.Set("X-CSRF-Token", api.generateCSRFToken())
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/inventory", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/inventory", "bogus-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rec.Code)
	}
}

func TestLoginEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"password": "apotheke"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["access_token"] == "" {
		t.Fatalf("expected access token in response")
	}
}

func TestCSRFEnforcedOnMutations(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api)

	data, _ := json.Marshal(map[string]string{"name": "X", "batch": "B", "quantity": "1", "purchase_price": "1", "selling_price": "2", "expiry_date": "2099-01-01"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without CSRF token, got %d", rec.Code)
	}
}

func TestInventoryAddAndList(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/inventory", token, map[string]string{
		"name":           "Amoxicillin 500mg",
		"batch":          "AMX-9001",
		"quantity":       "25",
		"purchase_price": "8.50",
		"selling_price":  "12.00",
		"expiry_date":    "2099-01-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/inventory", token, map[string]string{
		"name": "Broken", "batch": "B", "quantity": "nope",
		"purchase_price": "1", "selling_price": "2", "expiry_date": "2099-01-01",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad quantity, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/inventory", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Items []struct {
			ID       string `json:"id"`
			Quantity int    `json:"quantity"`
		} `json:"items"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Items) != 1 || body.Items[0].Quantity != 25 {
		t.Fatalf("unexpected inventory listing: %+v", body.Items)
	}
}

func TestBillAndCheckoutFlow(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/inventory", token, map[string]string{
		"name": "Paracetamol 500mg", "batch": "PCM-1001", "quantity": "10",
		"purchase_price": "1.20", "selling_price": "2.50", "expiry_date": "2099-01-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add item: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Item struct {
			ID string `json:"id"`
		} `json:"item"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode created item: %v", err)
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/bill/lines", token, map[string]any{
		"item_id": created.Item.ID, "quantity": 3,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("add bill line: %d %s", rec.Code, rec.Body.String())
	}

	// Checkout more than is in stock must fail with 409 and leave the bill intact.
	rec = doJSON(t, api, http.MethodPatch, "/api/v1/bill/lines/"+created.Item.ID, token, map[string]any{
		"quantity": 99,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update bill line: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, api, http.MethodPost, "/api/v1/checkout", token, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for oversell, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodPatch, "/api/v1/bill/lines/"+created.Item.ID, token, map[string]any{
		"quantity": 3,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update bill line: %d", rec.Code)
	}
	rec = doJSON(t, api, http.MethodPost, "/api/v1/checkout", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var checkout struct {
		Sale struct {
			GrandTotal string `json:"grand_total"`
		} `json:"sale"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&checkout); err != nil {
		t.Fatalf("decode sale: %v", err)
	}
	if checkout.Sale.GrandTotal != "7.5" && checkout.Sale.GrandTotal != "7.50" {
		t.Fatalf("unexpected grand total %q", checkout.Sale.GrandTotal)
	}

	// Empty bill now; another checkout is a validation error.
	rec = doJSON(t, api, http.MethodPost, "/api/v1/checkout", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty bill, got %d", rec.Code)
	}
}

func TestDailyReportEndpoint(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/expenses", token, map[string]string{
		"amount": "20", "category": "electricity",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add expense: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/reports/daily", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("daily report: %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Report struct {
			TotalExpenses string `json:"total_expenses"`
		} `json:"report"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if body.Report.TotalExpenses != "20" && body.Report.TotalExpenses != "20.00" {
		t.Fatalf("unexpected expense total %q", body.Report.TotalExpenses)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/reports/range?start=2026-03-16&end=2026-03-15", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted range, got %d", rec.Code)
	}
}
