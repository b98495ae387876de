package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mine-martin-12/web-POS/internal/cache"
	"github.com/mine-martin-12/web-POS/internal/service"
	"github.com/mine-martin-12/web-POS/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, cache.NoopDashboardCache{}, time.Second)
	auth := NewAuthManager("test-secret-key-0123456789abcdef", time.Hour, repo)

	return New(svc, auth, "*")
}

func doJSON(t *testing.T, api *API, method string, path string, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if method == http.MethodPost || method == http.MethodPatch || method == http.MethodDelete {
		req.Header.Set("X-CSRF-Token", api.generateCSRFToken())
	}

	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, api *API, email string, password string) string {
	t.Helper()

	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode login body: %v", err)
	}
	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatalf("expected access_token, got %v", body)
	}
	return token
}

func createProduct(t *testing.T, api *API, token string, name string, stock int) string {
	t.Helper()

	rec := doJSON(t, api, http.MethodPost, "/api/v1/products", token, map[string]any{
		"name":           name,
		"stock_quantity": stock,
		"buying_price":   "5",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Product struct {
			ID string `json:"id"`
		} `json:"product"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode product body: %v", err)
	}
	return body.Product.ID
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

func TestHandleLogin_Success(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "admin@demo.local", "admin123")
	if token == "" {
		t.Fatalf("expected non-empty token")
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "admin@demo.local",
		"password": "wrongpassword",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleRegisterThenLogin(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":         "owner@duka.example",
		"password":      "correct-horse-battery",
		"business_name": "Duka la Mtaa",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["role"] != "admin" {
		t.Fatalf("first account must be admin, got %v", body["role"])
	}

	login(t, api, "owner@duka.example", "correct-horse-battery")
}

func TestHandleRegisterRejectsShortPassword(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":         "owner@duka.example",
		"password":      "short",
		"business_name": "Duka",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestProductsRequireAuth(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/products", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestCreateProductForbiddenForUserRole(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "user@demo.local", "user123")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/products", token, map[string]any{
		"name":         "Pens",
		"buying_price": "1",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user role, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestSaleLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	admin := login(t, api, "admin@demo.local", "admin123")
	productID := createProduct(t, api, admin, "Cooking Fat", 10)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/sales", admin, map[string]any{
		"product_id":     productID,
		"quantity":       3,
		"selling_price":  "8",
		"payment_method": "cash",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("record sale failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	var saleBody struct {
		Sale struct {
			ID         string `json:"id"`
			TotalPrice string `json:"total_price"`
		} `json:"sale"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&saleBody); err != nil {
		t.Fatalf("decode sale body: %v", err)
	}
	if saleBody.Sale.TotalPrice != "24" {
		t.Fatalf("expected total 24, got %s", saleBody.Sale.TotalPrice)
	}

	rec = doJSON(t, api, http.MethodDelete, "/api/v1/sales/"+saleBody.Sale.ID, admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete sale failed: %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestSaleInsufficientStockReturnsConflict(t *testing.T) {
	api := newTestAPI(t)
	admin := login(t, api, "admin@demo.local", "admin123")
	productID := createProduct(t, api, admin, "Matches", 2)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/sales", admin, map[string]any{
		"product_id":     productID,
		"quantity":       3,
		"selling_price":  "2",
		"payment_method": "cash",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestCreditPaymentOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	admin := login(t, api, "admin@demo.local", "admin123")
	productID := createProduct(t, api, admin, "Cement", 50)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/sales", admin, map[string]any{
		"product_id":     productID,
		"quantity":       4,
		"selling_price":  "8",
		"payment_method": "credit",
		"customer_name":  "Otieno",
		"due_date":       "2026-10-15",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("credit sale failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	var saleBody struct {
		Credit struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"credit"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&saleBody); err != nil {
		t.Fatalf("decode sale body: %v", err)
	}
	if saleBody.Credit.Status != "unpaid" {
		t.Fatalf("expected unpaid account, got %s", saleBody.Credit.Status)
	}

	rec = doJSON(t, api, http.MethodPost, fmt.Sprintf("/api/v1/credits/%s/payments", saleBody.Credit.ID), admin, map[string]any{
		"amount": "16",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("payment failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	var payBody struct {
		Credit struct {
			Status string `json:"status"`
		} `json:"credit"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payBody); err != nil {
		t.Fatalf("decode payment body: %v", err)
	}
	if payBody.Credit.Status != "partially_paid" {
		t.Fatalf("expected partially_paid, got %s", payBody.Credit.Status)
	}

	rec = doJSON(t, api, http.MethodPost, fmt.Sprintf("/api/v1/credits/%s/payments", saleBody.Credit.ID), admin, map[string]any{
		"amount": "17",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for overpayment, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestDashboardOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	admin := login(t, api, "admin@demo.local", "admin123")
	productID := createProduct(t, api, admin, "Millet", 50)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/sales", admin, map[string]any{
		"product_id":     productID,
		"quantity":       3,
		"selling_price":  "8",
		"payment_method": "cash",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("record sale failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/dashboard", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	var metrics struct {
		TotalSalesCount int    `json:"total_sales_count"`
		ActualRevenue   string `json:"actual_revenue"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&metrics); err != nil {
		t.Fatalf("decode dashboard body: %v", err)
	}
	if metrics.TotalSalesCount != 1 {
		t.Fatalf("expected 1 sale in window, got %d", metrics.TotalSalesCount)
	}
	if metrics.ActualRevenue != "24" {
		t.Fatalf("expected actual revenue 24, got %s", metrics.ActualRevenue)
	}
}

func TestAuditLogsForbiddenForUserRole(t *testing.T) {
	api := newTestAPI(t)
	token := login(t, api, "user@demo.local", "user123")

	rec := doJSON(t, api, http.MethodGet, "/api/v1/audit-logs", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
