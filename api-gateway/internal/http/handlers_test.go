package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fjod/cartlink/api-gateway/internal/domain"
	"github.com/fjod/cartlink/api-gateway/internal/metrics"
	"github.com/fjod/cartlink/api-gateway/internal/repository"
	"github.com/fjod/cartlink/api-gateway/internal/service"
	"github.com/fjod/cartlink/pkg/commercetools"
)

type LinkServiceMock struct {
	result    *service.LinkResult
	cart      *commercetools.Cart
	record    *repository.LinkRecord
	failed    []*repository.LinkRecord
	err       error
	lastReq   domain.LinkRequest
	lastLimit int
}

func (m *LinkServiceMock) CreateLink(_ context.Context, req domain.LinkRequest) (*service.LinkResult, error) {
	m.lastReq = req
	return m.result, m.err
}

func (m *LinkServiceMock) GetLink(_ context.Context, _ string) (*commercetools.Cart, error) {
	return m.cart, m.err
}

func (m *LinkServiceMock) GetLinkStatus(_ context.Context, _ string) (*repository.LinkRecord, error) {
	return m.record, m.err
}

func (m *LinkServiceMock) ListFailedLinks(_ context.Context, limit int) ([]*repository.LinkRecord, error) {
	m.lastLimit = limit
	return m.failed, m.err
}

type CheckoutMock struct {
	session *commercetools.CheckoutSession
	err     error
	cartID  string
	linkID  string
}

func (m *CheckoutMock) CreateCheckoutSession(_ context.Context, cartID, linkID string) (*commercetools.CheckoutSession, error) {
	m.cartID, m.linkID = cartID, linkID
	return m.session, m.err
}

type MetricsMock struct {
	dashboard *metrics.Dashboard
	err       error
}

func (m MetricsMock) Dashboard(_ context.Context) (*metrics.Dashboard, error) {
	return m.dashboard, m.err
}

type CustomerMock struct {
	customer *commercetools.Customer
	err      error
}

func (m CustomerMock) GetCustomer(_ context.Context, _ string) (*commercetools.Customer, error) {
	return m.customer, m.err
}

type testDeps struct {
	links     *LinkServiceMock
	checkout  *CheckoutMock
	metrics   MetricsMock
	customers CustomerMock
}

func newTestRouter(d *testDeps) http.Handler {
	if d.links == nil {
		d.links = &LinkServiceMock{}
	}
	if d.checkout == nil {
		d.checkout = &CheckoutMock{}
	}
	resolver := domain.NewCurrencyResolver(domain.DefaultRegions())
	return NewRouter(RouterConfig{
		Logger:             zerolog.Nop(),
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1 << 20,
	}, Handlers{
		Links:     NewLinkHandler(d.links, 5*time.Second),
		Checkout:  NewCheckoutHandler(d.checkout, 5*time.Second),
		Dashboard: NewDashboardHandler(d.metrics, 5*time.Second),
		Catalog:   NewCatalogHandler(d.customers, resolver, 5*time.Second),
	})
}

func do(h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(method, path, bytes.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(recorder, request)
	return recorder
}

func decodeError(t *testing.T, recorder *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var response ErrorResponse
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	return response
}

func TestCreateLink_Success(t *testing.T) {
	d := &testDeps{links: &LinkServiceMock{result: &service.LinkResult{
		LinkID:    "abc",
		Link:      "https://shop.example/checkout/abc",
		CartID:    "cart-1",
		QRCodeURL: "https://storage.googleapis.com/b/qr-codes/abc.png",
	}}}
	router := newTestRouter(d)

	body := []byte(`{"currency":"USD","products":[{"id":"p1","quantity":2}],"directDiscount":{"type":"relative","value":10}}`)
	recorder := do(router, "POST", "/api/links", body)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d: %s", http.StatusOK, recorder.Code, recorder.Body.String())
	}

	var response map[string]string
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	for _, key := range []string{"linkId", "link", "cartId", "qrCodeUrl"} {
		if response[key] == "" {
			t.Errorf("Expected %s in response", key)
		}
	}

	if len(d.links.lastReq.Products) != 1 || d.links.lastReq.Products[0].ProductID != "p1" {
		t.Errorf("Expected product p1 to be decoded, got %+v", d.links.lastReq.Products)
	}
	if d.links.lastReq.DirectDiscount == nil || d.links.lastReq.DirectDiscount.Value.IntPart() != 10 {
		t.Errorf("Expected direct discount value 10, got %+v", d.links.lastReq.DirectDiscount)
	}
}

func TestCreateLink_InvalidJSON(t *testing.T) {
	router := newTestRouter(&testDeps{})

	recorder := do(router, "POST", "/api/links", []byte("invalid json"))

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}
	if response := decodeError(t, recorder); response.Code != http.StatusBadRequest {
		t.Errorf("Expected code 400, got %d", response.Code)
	}
}

func TestCreateLink_ErrorCategories(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
		expectedCode   int
	}{
		{
			name: "validation",
			err: &service.LinkError{Category: service.CategoryValidation,
				Err: &domain.ValidationError{Field: "currency", Err: domain.ErrUnsupportedCurrency}},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid link request",
			expectedCode:   400,
		},
		{
			name: "discount code",
			err: &service.LinkError{Category: service.CategoryInvalidDiscountCode, LinkID: "x",
				Err: &commercetools.APIError{StatusCode: 400, Message: "The discount code 'BAD' is not active"}},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid discount code",
			expectedCode:   400,
		},
		{
			name: "invalid cart",
			err: &service.LinkError{Category: service.CategoryInvalidCart, LinkID: "x",
				Err: &commercetools.APIError{StatusCode: 400, Message: "bad shipping method"}},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid cart configuration",
			expectedCode:   400,
		},
		{
			name: "version conflict",
			err: &service.LinkError{Category: service.CategoryVersionConflict, LinkID: "x", CartID: "c",
				Err: &commercetools.APIError{StatusCode: 409, Message: "conflict"}},
			expectedStatus: http.StatusConflict,
			expectedError:  "Cart was modified concurrently",
			expectedCode:   409,
		},
		{
			name: "commerce outage",
			err: &service.LinkError{Category: service.CategoryUpstream, LinkID: "x",
				Err: &commercetools.APIError{StatusCode: 503, Message: "unavailable"}},
			expectedStatus: http.StatusBadGateway,
			expectedError:  "Failed to create link",
			expectedCode:   503,
		},
		{
			name: "storage permission denied",
			err: &service.LinkError{Category: service.CategoryUpstream, LinkID: "x",
				Err: status.Error(codes.PermissionDenied, "bucket access denied")},
			expectedStatus: http.StatusForbidden,
			expectedError:  "Failed to create link",
			expectedCode:   403,
		},
		{
			name:           "publish failure",
			err:            &service.LinkError{Category: service.CategoryUpstream, LinkID: "x", Err: errors.New("publish event: closed")},
			expectedStatus: http.StatusBadGateway,
			expectedError:  "Failed to create link",
			expectedCode:   502,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&testDeps{links: &LinkServiceMock{err: tt.err}})

			recorder := do(router, "POST", "/api/links", []byte(`{"currency":"USD"}`))

			if recorder.Code != tt.expectedStatus {
				t.Errorf("Expected status code %d, got %d", tt.expectedStatus, recorder.Code)
			}
			response := decodeError(t, recorder)
			if response.Error != tt.expectedError {
				t.Errorf("Expected error %q, got %q", tt.expectedError, response.Error)
			}
			if response.Code != tt.expectedCode {
				t.Errorf("Expected code %d, got %d", tt.expectedCode, response.Code)
			}
			if response.Details == "" {
				t.Error("Expected details to be set")
			}
		})
	}
}

func TestCreateLink_DiscountCodeMessageReachesCaller(t *testing.T) {
	err := &service.LinkError{Category: service.CategoryInvalidDiscountCode,
		Err: &commercetools.APIError{StatusCode: 400, Message: "The discount code 'BAD' is not active"}}
	router := newTestRouter(&testDeps{links: &LinkServiceMock{err: err}})

	recorder := do(router, "POST", "/api/links", []byte(`{}`))

	response := decodeError(t, recorder)
	if !strings.Contains(strings.ToLower(response.Error+response.Details), "discount code") {
		t.Errorf("Expected the response to mention the discount code, got %+v", response)
	}
}

func TestGetLink(t *testing.T) {
	router := newTestRouter(&testDeps{links: &LinkServiceMock{cart: &commercetools.Cart{ID: "cart-1"}}})

	recorder := do(router, "GET", "/api/links/abc", nil)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}
	var response GetLinkResponseDTO
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Cart == nil || response.Cart.ID != "cart-1" {
		t.Errorf("Expected cart-1, got %+v", response.Cart)
	}
}

func TestGetLink_Errors(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{"not found", service.ErrLinkNotFound, http.StatusNotFound, "Cart not found"},
		{"invalid id", &domain.ValidationError{Field: "linkId", Err: domain.ErrInvalidLinkID}, http.StatusBadRequest, "Invalid request"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "Failed to retrieve cart"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&testDeps{links: &LinkServiceMock{err: tt.err}})

			recorder := do(router, "GET", "/api/links/abc", nil)

			if recorder.Code != tt.expectedStatus {
				t.Errorf("Expected status code %d, got %d", tt.expectedStatus, recorder.Code)
			}
			if response := decodeError(t, recorder); response.Error != tt.expectedError {
				t.Errorf("Expected error %q, got %q", tt.expectedError, response.Error)
			}
		})
	}
}

func TestGetLinkStatus(t *testing.T) {
	router := newTestRouter(&testDeps{links: &LinkServiceMock{record: &repository.LinkRecord{
		LinkID: "abc", Status: domain.LinkStatusFailed, CartID: "cart-9", LastError: "conflict",
	}}})

	recorder := do(router, "GET", "/api/links/abc/status", nil)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}
	var response LinkStatusDTO
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Status != "FAILED" || response.CartID != "cart-9" {
		t.Errorf("Unexpected status response %+v", response)
	}
}

func TestGetLinkStatus_LedgerDisabled(t *testing.T) {
	router := newTestRouter(&testDeps{links: &LinkServiceMock{err: service.ErrLedgerDisabled}})

	recorder := do(router, "GET", "/api/links/abc/status", nil)

	if recorder.Code != http.StatusNotImplemented {
		t.Errorf("Expected status code %d, got %d", http.StatusNotImplemented, recorder.Code)
	}
}

func TestListFailed(t *testing.T) {
	d := &testDeps{links: &LinkServiceMock{failed: []*repository.LinkRecord{
		{LinkID: "a", Status: domain.LinkStatusFailed},
	}}}
	router := newTestRouter(d)

	recorder := do(router, "GET", "/api/links/failed?limit=10", nil)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}
	if d.links.lastLimit != 10 {
		t.Errorf("Expected limit 10, got %d", d.links.lastLimit)
	}
	var response map[string][]LinkStatusDTO
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(response["links"]) != 1 || response["links"][0].LinkID != "a" {
		t.Errorf("Unexpected response %+v", response)
	}

	recorder = do(router, "GET", "/api/links/failed?limit=abc", nil)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestCreateSession(t *testing.T) {
	raw := []byte(`{"id":"sess-1","expiryAt":"2024-01-01T01:00:00.000Z"}`)
	d := &testDeps{checkout: &CheckoutMock{session: &commercetools.CheckoutSession{ID: "sess-1", Raw: raw}}}
	router := newTestRouter(d)

	recorder := do(router, "POST", "/api/checkout/session", []byte(`{"cartId":"cart-1","linkId":"abc"}`))

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}
	if strings.TrimSpace(recorder.Body.String()) != string(raw) {
		t.Errorf("Expected raw session body, got %s", recorder.Body.String())
	}
	if d.checkout.cartID != "cart-1" || d.checkout.linkID != "abc" {
		t.Errorf("Unexpected arguments cart=%q link=%q", d.checkout.cartID, d.checkout.linkID)
	}
}

func TestCreateSession_Errors(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"missing cart", &domain.ValidationError{Field: "cartId", Err: errors.New("cartId is required")}, http.StatusBadRequest},
		{"unauthorized", &commercetools.APIError{StatusCode: 401, Message: "invalid_token"}, http.StatusInternalServerError},
		{"cart missing remotely", &commercetools.APIError{StatusCode: 404, Message: "not found"}, http.StatusNotFound},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&testDeps{checkout: &CheckoutMock{err: tt.err}})

			recorder := do(router, "POST", "/api/checkout/session", []byte(`{"cartId":"x"}`))

			if recorder.Code != tt.expectedStatus {
				t.Errorf("Expected status code %d, got %d", tt.expectedStatus, recorder.Code)
			}
			if response := decodeError(t, recorder); response.Error != "Failed to create checkout session" && response.Error != "Invalid request" {
				t.Errorf("Unexpected error %q", response.Error)
			}
		})
	}
}

func TestDashboardMetrics(t *testing.T) {
	dashboard := &metrics.Dashboard{
		Metrics:            metrics.Overall{TotalLinks: 4, TotalOrders: 1, ConversionRate: 25},
		ConversionFlowData: map[string]int64{"Converted": 1, "Not Converted": 3},
	}
	router := newTestRouter(&testDeps{metrics: MetricsMock{dashboard: dashboard}})

	recorder := do(router, "GET", "/api/dashboard/metrics", nil)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}
	var response struct {
		Metrics            map[string]float64 `json:"metrics"`
		ConversionFlowData map[string]int64   `json:"conversionFlowData"`
	}
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Metrics["conversionRate"] != 25 {
		t.Errorf("Expected conversionRate 25, got %v", response.Metrics["conversionRate"])
	}
	if response.ConversionFlowData["Not Converted"] != 3 {
		t.Errorf("Unexpected conversion flow %+v", response.ConversionFlowData)
	}
}

func TestDashboardMetrics_Failure(t *testing.T) {
	router := newTestRouter(&testDeps{metrics: MetricsMock{err: errors.New("dashboard metrics: quota")}})

	recorder := do(router, "GET", "/api/dashboard/metrics", nil)

	if recorder.Code != http.StatusInternalServerError {
		t.Errorf("Expected status code %d, got %d", http.StatusInternalServerError, recorder.Code)
	}
	response := decodeError(t, recorder)
	if response.Error != "Failed to fetch dashboard metrics" {
		t.Errorf("Unexpected error %q", response.Error)
	}
	if response.Details != "dashboard metrics: quota" {
		t.Errorf("Unexpected details %q", response.Details)
	}
}

func TestGetCustomer(t *testing.T) {
	customer := &commercetools.Customer{
		ID:                       "c1",
		Email:                    "jane@example.com",
		DefaultShippingAddressID: "a1",
		Addresses: []commercetools.Address{{
			ID: "a1", StreetName: "Queen St", City: "Auckland", PostalCode: "1010", Country: "NZ",
		}},
	}
	router := newTestRouter(&testDeps{customers: CustomerMock{customer: customer}})

	recorder := do(router, "GET", "/api/customers/c1", nil)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}
	var response CustomerDTO
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.DefaultShippingAddress == nil || response.DefaultShippingAddress.City != "Auckland" {
		t.Errorf("Expected default shipping address, got %+v", response.DefaultShippingAddress)
	}
}

func TestGetCustomer_NotFound(t *testing.T) {
	router := newTestRouter(&testDeps{customers: CustomerMock{err: service.ErrCustomerNotFound}})

	recorder := do(router, "GET", "/api/customers/ghost", nil)

	if recorder.Code != http.StatusNotFound {
		t.Errorf("Expected status code %d, got %d", http.StatusNotFound, recorder.Code)
	}
}

func TestCurrencies(t *testing.T) {
	router := newTestRouter(&testDeps{})

	recorder := do(router, "GET", "/api/currencies", nil)

	var response map[string][]CurrencyDTO
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(response["currencies"]) != 5 {
		t.Fatalf("Expected 5 currencies, got %d", len(response["currencies"]))
	}
	if response["currencies"][0].Currency != "AUD" || response["currencies"][0].Country != "AU" {
		t.Errorf("Unexpected first currency %+v", response["currencies"][0])
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&testDeps{})

	recorder := do(router, "GET", "/health", nil)

	if recorder.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, recorder.Code)
	}
}
