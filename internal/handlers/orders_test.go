package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/Chrilove/projekuas/internal/domain"
	"github.com/Chrilove/projekuas/internal/platform/auth"
	"github.com/Chrilove/projekuas/internal/platform/storage"
	"github.com/Chrilove/projekuas/internal/services"
)

type stubOrderService struct {
	createFn              func(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error)
	getFn                 func(ctx context.Context, orderID string) (services.Order, error)
	listFn                func(ctx context.Context, filter services.OrderListFilter) ([]services.Order, error)
	updateStatusFn        func(ctx context.Context, cmd services.UpdateOrderStatusCommand) (services.OrderStatusUpdateResult, error)
	updatePaymentStatusFn func(ctx context.Context, cmd services.UpdatePaymentStatusCommand) (services.Order, error)
	submitProofFn         func(ctx context.Context, cmd services.SubmitPaymentProofCommand) (services.Order, error)
	confirmFn             func(ctx context.Context, orderID, resellerID string) (services.Order, error)
	updateTrackingFn      func(ctx context.Context, orderID, trackingNumber string, estimatedDelivery *time.Time) (services.Order, error)
	statusLogsFn          func(ctx context.Context, orderID string) ([]services.OrderStatusLog, error)
	searchFn              func(ctx context.Context, query string) ([]services.Order, error)
	statisticsFn          func(ctx context.Context) (domain.OrderStatistics, error)
	deleteFn              func(ctx context.Context, orderID string) error
	batchUpdateFn         func(ctx context.Context, updates []services.OrderBatchUpdate, actionBy string) error
}

var _ services.OrderService = (*stubOrderService)(nil)

func (s *stubOrderService) Create(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return services.Order{}, nil
}

func (s *stubOrderService) Get(ctx context.Context, orderID string) (services.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID)
	}
	return services.Order{}, services.ErrOrderNotFound
}

func (s *stubOrderService) List(ctx context.Context, filter services.OrderListFilter) ([]services.Order, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return nil, nil
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, cmd services.UpdateOrderStatusCommand) (services.OrderStatusUpdateResult, error) {
	if s.updateStatusFn != nil {
		return s.updateStatusFn(ctx, cmd)
	}
	return services.OrderStatusUpdateResult{}, nil
}

func (s *stubOrderService) UpdatePaymentStatus(ctx context.Context, cmd services.UpdatePaymentStatusCommand) (services.Order, error) {
	if s.updatePaymentStatusFn != nil {
		return s.updatePaymentStatusFn(ctx, cmd)
	}
	return services.Order{}, nil
}

func (s *stubOrderService) SubmitPaymentProof(ctx context.Context, cmd services.SubmitPaymentProofCommand) (services.Order, error) {
	if s.submitProofFn != nil {
		return s.submitProofFn(ctx, cmd)
	}
	return services.Order{}, nil
}

func (s *stubOrderService) ConfirmReceived(ctx context.Context, orderID, resellerID string) (services.Order, error) {
	if s.confirmFn != nil {
		return s.confirmFn(ctx, orderID, resellerID)
	}
	return services.Order{}, nil
}

func (s *stubOrderService) UpdateTracking(ctx context.Context, orderID, trackingNumber string, estimatedDelivery *time.Time) (services.Order, error) {
	if s.updateTrackingFn != nil {
		return s.updateTrackingFn(ctx, orderID, trackingNumber, estimatedDelivery)
	}
	return services.Order{}, nil
}

func (s *stubOrderService) StatusLogs(ctx context.Context, orderID string) ([]services.OrderStatusLog, error) {
	if s.statusLogsFn != nil {
		return s.statusLogsFn(ctx, orderID)
	}
	return nil, nil
}

func (s *stubOrderService) Search(ctx context.Context, query string) ([]services.Order, error) {
	if s.searchFn != nil {
		return s.searchFn(ctx, query)
	}
	return nil, nil
}

func (s *stubOrderService) Statistics(ctx context.Context) (domain.OrderStatistics, error) {
	if s.statisticsFn != nil {
		return s.statisticsFn(ctx)
	}
	return domain.OrderStatistics{}, nil
}

func (s *stubOrderService) Delete(ctx context.Context, orderID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, orderID)
	}
	return nil
}

func (s *stubOrderService) BatchUpdate(ctx context.Context, updates []services.OrderBatchUpdate, actionBy string) error {
	if s.batchUpdateFn != nil {
		return s.batchUpdateFn(ctx, updates, actionBy)
	}
	return nil
}

func resellerIdentity(uid string) *auth.Identity {
	return &auth.Identity{UID: uid, Email: uid + "@example.com", Roles: []string{auth.RoleReseller}}
}

func adminIdentity() *auth.Identity {
	return &auth.Identity{UID: "admin-1", Email: "admin@example.com", Roles: []string{auth.RoleAdmin}}
}

func newOrderRouter(h *OrderHandlers) chi.Router {
	r := chi.NewRouter()
	r.Route("/orders", h.Routes)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, target string, body any, identity *auth.Identity) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if identity != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), identity))
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func sampleHandlerOrder(resellerID string) services.Order {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return services.Order{
		ID:            "ord_1",
		OrderNumber:   "ORD123456AAA",
		ResellerID:    resellerID,
		ResellerName:  "Toko Berkah",
		ResellerEmail: resellerID + "@example.com",
		Products: []services.OrderProduct{
			{ProductID: "prd_1", Name: "Hijab Segi Empat", Quantity: 2, Price: 50000, Subtotal: 100000},
		},
		TotalAmount: 100000,
		ShippingAddress: services.ShippingAddress{
			Street: "Jl. Melati 5",
			City:   "Bandung",
			Phone:  "0812000111",
		},
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusWaitingPayment,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func TestCreateOrderReturnsCreated(t *testing.T) {
	var captured services.CreateOrderCommand
	svc := &stubOrderService{
		createFn: func(_ context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
			captured = cmd
			order := sampleHandlerOrder(cmd.ResellerID)
			order.ResellerName = cmd.ResellerName
			return order, nil
		},
	}
	router := newOrderRouter(NewOrderHandlers(nil, svc))

	body := map[string]any{
		"store_name": "Toko Berkah",
		"phone":      "0812999888",
		"products": []map[string]any{
			{"product_id": "prd_1", "name": "Hijab Segi Empat", "quantity": 2, "price": 50000},
		},
		"shipping_address": map[string]any{
			"recipient": "Ibu Sari",
			"street":    "Jl. Melati 5",
			"city":      "Bandung",
			"phone":     "0812000111",
		},
		"payment_method": "transfer",
	}

	rr := doRequest(t, router, http.MethodPost, "/orders/", body, resellerIdentity("uid-1"))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.ResellerID != "uid-1" {
		t.Errorf("expected reseller id from identity, got %q", captured.ResellerID)
	}
	if captured.ResellerName != "Toko Berkah" {
		t.Errorf("expected store name, got %q", captured.ResellerName)
	}
	if len(captured.Products) != 1 || captured.Products[0].ProductID != "prd_1" {
		t.Errorf("unexpected products %+v", captured.Products)
	}
	if captured.ResellerPhone != "0812999888" {
		t.Errorf("expected reseller phone from body, got %q", captured.ResellerPhone)
	}
	if captured.ShippingAddress.Recipient != "Ibu Sari" {
		t.Errorf("expected recipient from body, got %q", captured.ShippingAddress.Recipient)
	}

	var response orderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if response.Order.OrderNumber != "ORD123456AAA" {
		t.Errorf("unexpected order number %q", response.Order.OrderNumber)
	}
}

func TestCreateOrderValidationMapsToBadRequest(t *testing.T) {
	svc := &stubOrderService{
		createFn: func(context.Context, services.CreateOrderCommand) (services.Order, error) {
			return services.Order{}, services.ErrOrderMissingField
		},
	}
	router := newOrderRouter(NewOrderHandlers(nil, svc))

	rr := doRequest(t, router, http.MethodPost, "/orders/", map[string]any{"payment_method": "transfer"}, resellerIdentity("uid-1"))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestCreateOrderRequiresIdentity(t *testing.T) {
	router := newOrderRouter(NewOrderHandlers(nil, &stubOrderService{}))

	rr := doRequest(t, router, http.MethodPost, "/orders/", map[string]any{}, nil)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestGetOrderMasksForeignOrder(t *testing.T) {
	svc := &stubOrderService{
		getFn: func(_ context.Context, orderID string) (services.Order, error) {
			return sampleHandlerOrder("uid-1"), nil
		},
	}
	router := newOrderRouter(NewOrderHandlers(nil, svc))

	rr := doRequest(t, router, http.MethodGet, "/orders/ord_1", nil, resellerIdentity("uid-2"))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for foreign order, got %d", rr.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if body["error"] != "order_not_found" {
		t.Fatalf("expected order_not_found, got %v", body["error"])
	}
}

func TestGetOrderAllowsAdmin(t *testing.T) {
	svc := &stubOrderService{
		getFn: func(_ context.Context, orderID string) (services.Order, error) {
			return sampleHandlerOrder("uid-1"), nil
		},
	}
	router := newOrderRouter(NewOrderHandlers(nil, svc))

	rr := doRequest(t, router, http.MethodGet, "/orders/ord_1", nil, adminIdentity())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 for admin, got %d", rr.Code)
	}
}

func TestListOrdersScopesToIdentity(t *testing.T) {
	var captured services.OrderListFilter
	svc := &stubOrderService{
		listFn: func(_ context.Context, filter services.OrderListFilter) ([]services.Order, error) {
			captured = filter
			return []services.Order{sampleHandlerOrder("uid-1")}, nil
		},
	}
	router := newOrderRouter(NewOrderHandlers(nil, svc))

	rr := doRequest(t, router, http.MethodGet, "/orders/?status=pending&limit=10", nil, resellerIdentity("uid-1"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.ResellerID != "uid-1" {
		t.Errorf("expected list scoped to reseller, got %q", captured.ResellerID)
	}
	if captured.Status != domain.OrderStatusPending {
		t.Errorf("expected pending status filter, got %q", captured.Status)
	}
	if captured.Limit != 10 {
		t.Errorf("expected limit 10, got %d", captured.Limit)
	}
}

func TestSubmitPaymentProofRequiresProofRef(t *testing.T) {
	router := newOrderRouter(NewOrderHandlers(nil, &stubOrderService{}))

	rr := doRequest(t, router, http.MethodPost, "/orders/ord_1/payment-proof", map[string]any{"payment_method": "transfer"}, resellerIdentity("uid-1"))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestSubmitPaymentProofForwardsCommand(t *testing.T) {
	var captured services.SubmitPaymentProofCommand
	svc := &stubOrderService{
		submitProofFn: func(_ context.Context, cmd services.SubmitPaymentProofCommand) (services.Order, error) {
			captured = cmd
			order := sampleHandlerOrder(cmd.ResellerID)
			order.PaymentStatus = domain.PaymentStatusWaitingVerification
			order.PaymentProof = cmd.ProofRef
			return order, nil
		},
	}
	router := newOrderRouter(NewOrderHandlers(nil, svc))

	body := map[string]any{"proof_ref": "payment-proofs/ord_1/proof.jpg", "payment_method": "transfer"}
	rr := doRequest(t, router, http.MethodPost, "/orders/ord_1/payment-proof", body, resellerIdentity("uid-1"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.OrderID != "ord_1" || captured.ResellerID != "uid-1" {
		t.Errorf("unexpected command %+v", captured)
	}

	var response orderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if response.Order.PaymentStatus != string(domain.PaymentStatusWaitingVerification) {
		t.Errorf("expected waiting_verification, got %q", response.Order.PaymentStatus)
	}
}

func TestSubmitPaymentProofRateLimited(t *testing.T) {
	svc := &stubOrderService{
		submitProofFn: func(_ context.Context, cmd services.SubmitPaymentProofCommand) (services.Order, error) {
			return sampleHandlerOrder(cmd.ResellerID), nil
		},
	}
	clock := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	limiter := newFixedWindowLimiter(1, time.Minute, func() time.Time { return clock })
	router := newOrderRouter(NewOrderHandlers(nil, svc, WithOrderProofLimiter(limiter)))

	body := map[string]any{"proof_ref": "payment-proofs/ord_1/proof.jpg"}

	first := doRequest(t, router, http.MethodPost, "/orders/ord_1/payment-proof", body, resellerIdentity("uid-1"))
	if first.Code != http.StatusOK {
		t.Fatalf("expected first submission to pass, got %d", first.Code)
	}

	second := doRequest(t, router, http.MethodPost, "/orders/ord_1/payment-proof", body, resellerIdentity("uid-1"))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", second.Code)
	}

	other := doRequest(t, router, http.MethodPost, "/orders/ord_1/payment-proof", body, resellerIdentity("uid-2"))
	if other.Code != http.StatusOK {
		t.Fatalf("expected other reseller to pass, got %d", other.Code)
	}
}

type handlerFakeSigner struct{}

func (handlerFakeSigner) Email() string { return "svc@test.iam.gserviceaccount.com" }

func (handlerFakeSigner) SignBytes(_ context.Context, payload []byte) ([]byte, error) {
	sig := make([]byte, 32)
	copy(sig, payload)
	return sig, nil
}

func storageProofStoreForTest() (*storage.ProofStore, error) {
	return storage.NewProofStore(handlerFakeSigner{}, "proofs-bucket",
		storage.WithProofIDGenerator(func() string { return "01TESTPROOF" }),
	)
}

func TestProofUploadURLIssuesTicket(t *testing.T) {
	store, err := storageProofStoreForTest()
	if err != nil {
		t.Fatalf("new proof store: %v", err)
	}

	svc := &stubOrderService{
		getFn: func(_ context.Context, orderID string) (services.Order, error) {
			return sampleHandlerOrder("uid-1"), nil
		},
	}
	router := newOrderRouter(NewOrderHandlers(nil, svc, WithOrderProofStore(store)))

	body := map[string]any{"content_type": "image/jpeg"}
	rr := doRequest(t, router, http.MethodPost, "/orders/ord_1/payment-proof/upload-url", body, resellerIdentity("uid-1"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var response proofUploadURLResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if response.ObjectRef != "payment-proofs/ord_1/01testproof.jpg" {
		t.Errorf("unexpected object ref %q", response.ObjectRef)
	}
	if !strings.Contains(response.URL, "proofs-bucket") {
		t.Errorf("expected bucket in url, got %s", response.URL)
	}
}

func TestProofUploadURLWithoutStoreUnavailable(t *testing.T) {
	router := newOrderRouter(NewOrderHandlers(nil, &stubOrderService{}))

	rr := doRequest(t, router, http.MethodPost, "/orders/ord_1/payment-proof/upload-url", map[string]any{"content_type": "image/jpeg"}, resellerIdentity("uid-1"))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}

func TestConfirmReceivedMapsInvalidState(t *testing.T) {
	svc := &stubOrderService{
		confirmFn: func(_ context.Context, orderID, resellerID string) (services.Order, error) {
			return services.Order{}, services.ErrOrderInvalidState
		},
	}
	router := newOrderRouter(NewOrderHandlers(nil, svc))

	rr := doRequest(t, router, http.MethodPost, "/orders/ord_1/confirm", nil, resellerIdentity("uid-1"))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestListStatusLogsChecksOwnership(t *testing.T) {
	svc := &stubOrderService{
		getFn: func(_ context.Context, orderID string) (services.Order, error) {
			return sampleHandlerOrder("uid-1"), nil
		},
		statusLogsFn: func(_ context.Context, orderID string) ([]services.OrderStatusLog, error) {
			return []services.OrderStatusLog{{ID: "olg_1", OrderID: orderID, Status: "pending"}}, nil
		},
	}
	router := newOrderRouter(NewOrderHandlers(nil, svc))

	owned := doRequest(t, router, http.MethodGet, "/orders/ord_1/status-logs", nil, resellerIdentity("uid-1"))
	if owned.Code != http.StatusOK {
		t.Fatalf("expected status 200 for owner, got %d", owned.Code)
	}

	foreign := doRequest(t, router, http.MethodGet, "/orders/ord_1/status-logs", nil, resellerIdentity("uid-2"))
	if foreign.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for foreign order, got %d", foreign.Code)
	}
}
