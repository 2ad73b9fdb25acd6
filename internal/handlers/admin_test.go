package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/Chrilove/projekuas/internal/domain"
	"github.com/Chrilove/projekuas/internal/services"
)

type stubPaymentService struct {
	recordFn       func(ctx context.Context, cmd services.RecordTransactionCommand) (services.PaymentTransaction, error)
	updateStatusFn func(ctx context.Context, paymentID string, status domain.TransactionStatus, adminNotes string) (services.PaymentTransaction, error)
	retryFn        func(ctx context.Context, paymentID string) (services.PaymentTransaction, error)
	getFn          func(ctx context.Context, paymentID string) (services.PaymentTransaction, error)
	listFn         func(ctx context.Context, filter services.PaymentListFilter) ([]services.PaymentTransaction, error)
	statsFn        func(ctx context.Context) (domain.PaymentStatistics, error)
}

var _ services.PaymentService = (*stubPaymentService)(nil)

func (s *stubPaymentService) Record(ctx context.Context, cmd services.RecordTransactionCommand) (services.PaymentTransaction, error) {
	if s.recordFn != nil {
		return s.recordFn(ctx, cmd)
	}
	return services.PaymentTransaction{}, nil
}

func (s *stubPaymentService) UpdateStatus(ctx context.Context, paymentID string, status domain.TransactionStatus, adminNotes string) (services.PaymentTransaction, error) {
	if s.updateStatusFn != nil {
		return s.updateStatusFn(ctx, paymentID, status, adminNotes)
	}
	return services.PaymentTransaction{}, nil
}

func (s *stubPaymentService) Retry(ctx context.Context, paymentID string) (services.PaymentTransaction, error) {
	if s.retryFn != nil {
		return s.retryFn(ctx, paymentID)
	}
	return services.PaymentTransaction{}, nil
}

func (s *stubPaymentService) Get(ctx context.Context, paymentID string) (services.PaymentTransaction, error) {
	if s.getFn != nil {
		return s.getFn(ctx, paymentID)
	}
	return services.PaymentTransaction{}, services.ErrPaymentNotFound
}

func (s *stubPaymentService) List(ctx context.Context, filter services.PaymentListFilter) ([]services.PaymentTransaction, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return nil, nil
}

func (s *stubPaymentService) Stats(ctx context.Context) (domain.PaymentStatistics, error) {
	if s.statsFn != nil {
		return s.statsFn(ctx)
	}
	return domain.PaymentStatistics{}, nil
}

func newAdminRouter(h *AdminHandlers) chi.Router {
	r := chi.NewRouter()
	r.Route("/admin", h.Routes)
	return r
}

func sampleHandlerPayment() services.PaymentTransaction {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return services.PaymentTransaction{
		ID:                "pay_1",
		TransactionNumber: "TXN2026123456AAA",
		OrderID:           "ord_1",
		OrderNumber:       "ORD123456AAA",
		ResellerID:        "uid-1",
		Amount:            100000,
		PaymentMethod:     "transfer",
		Status:            domain.TransactionStatusProcessing,
		Type:              domain.TransactionTypePayment,
		CreatedAt:         created,
		UpdatedAt:         created,
	}
}

func TestAdminUpdateOrderStatusForwardsCommand(t *testing.T) {
	var captured services.UpdateOrderStatusCommand
	orders := &stubOrderService{
		updateStatusFn: func(_ context.Context, cmd services.UpdateOrderStatusCommand) (services.OrderStatusUpdateResult, error) {
			captured = cmd
			order := sampleHandlerOrder("uid-1")
			order.Status = cmd.NextStatus
			return services.OrderStatusUpdateResult{
				Order: order,
				Effects: []services.EffectResult{
					{Name: "shipment.create", Err: services.ErrShipmentConflict},
				},
			}, nil
		},
	}
	router := newAdminRouter(NewAdminHandlers(nil, orders, &stubPaymentService{}, &stubShipmentService{}))

	body := map[string]any{
		"status":          "shipped",
		"notes":           "dikirim via JNE",
		"tracking_number": "SHIP2026123456ABCD",
		"create_shipment": true,
		"shipping": map[string]any{
			"courier": "JNE",
			"service": "REG",
			"cost":    15000,
		},
	}

	rr := doRequest(t, router, http.MethodPut, "/admin/orders/ord_1/status", body, adminIdentity())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.NextStatus != domain.OrderStatusShipped {
		t.Errorf("expected shipped, got %q", captured.NextStatus)
	}
	if !captured.CreateShipment || captured.Shipping == nil || captured.Shipping.Courier != "JNE" {
		t.Errorf("unexpected shipping details %+v", captured.Shipping)
	}
	if captured.ActionBy != "admin@example.com" {
		t.Errorf("expected actor from identity, got %q", captured.ActionBy)
	}

	var response orderStatusUpdateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if response.Order.Status != string(domain.OrderStatusShipped) {
		t.Errorf("unexpected order status %q", response.Order.Status)
	}
	if len(response.Effects) != 1 || response.Effects[0].Name != "shipment.create" || response.Effects[0].Error == "" {
		t.Errorf("expected failed effect reported, got %+v", response.Effects)
	}
}

func TestAdminUpdateOrderStatusRequiresStatus(t *testing.T) {
	router := newAdminRouter(NewAdminHandlers(nil, &stubOrderService{}, &stubPaymentService{}, &stubShipmentService{}))

	rr := doRequest(t, router, http.MethodPut, "/admin/orders/ord_1/status", map[string]any{"notes": "x"}, adminIdentity())

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestAdminUpdateOrderStatusMapsInvalidTransition(t *testing.T) {
	orders := &stubOrderService{
		updateStatusFn: func(_ context.Context, cmd services.UpdateOrderStatusCommand) (services.OrderStatusUpdateResult, error) {
			return services.OrderStatusUpdateResult{}, services.ErrOrderInvalidState
		},
	}
	router := newAdminRouter(NewAdminHandlers(nil, orders, &stubPaymentService{}, &stubShipmentService{}))

	rr := doRequest(t, router, http.MethodPut, "/admin/orders/ord_1/status", map[string]any{"status": "delivered"}, adminIdentity())

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestAdminUpdatePaymentStatusForwardsCommand(t *testing.T) {
	var captured services.UpdatePaymentStatusCommand
	orders := &stubOrderService{
		updatePaymentStatusFn: func(_ context.Context, cmd services.UpdatePaymentStatusCommand) (services.Order, error) {
			captured = cmd
			order := sampleHandlerOrder("uid-1")
			order.PaymentStatus = cmd.PaymentStatus
			return order, nil
		},
	}
	router := newAdminRouter(NewAdminHandlers(nil, orders, &stubPaymentService{}, &stubShipmentService{}))

	body := map[string]any{
		"payment_status": "paid",
		"order_status":   "confirmed",
		"amount":         100000,
		"payment_method": "transfer",
	}

	rr := doRequest(t, router, http.MethodPut, "/admin/orders/ord_1/payment-status", body, adminIdentity())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.PaymentStatus != domain.PaymentStatusPaid {
		t.Errorf("expected paid, got %q", captured.PaymentStatus)
	}
	if captured.OrderStatus == nil || *captured.OrderStatus != domain.OrderStatusConfirmed {
		t.Errorf("expected order status confirmed, got %v", captured.OrderStatus)
	}
	if captured.Amount != 100000 {
		t.Errorf("expected amount forwarded, got %d", captured.Amount)
	}
}

func TestAdminOrderStats(t *testing.T) {
	orders := &stubOrderService{
		statisticsFn: func(context.Context) (domain.OrderStatistics, error) {
			return domain.OrderStatistics{Total: 5, Pending: 2, Paid: 3, TotalRevenue: 300000}, nil
		},
	}
	router := newAdminRouter(NewAdminHandlers(nil, orders, &stubPaymentService{}, &stubShipmentService{}))

	rr := doRequest(t, router, http.MethodGet, "/admin/orders/stats", nil, adminIdentity())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var stats orderStatsPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if stats.Total != 5 || stats.TotalRevenue != 300000 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestAdminSearchOrdersRequiresQuery(t *testing.T) {
	router := newAdminRouter(NewAdminHandlers(nil, &stubOrderService{}, &stubPaymentService{}, &stubShipmentService{}))

	rr := doRequest(t, router, http.MethodGet, "/admin/orders/search", nil, adminIdentity())

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestAdminBatchUpdateRejectsEmpty(t *testing.T) {
	router := newAdminRouter(NewAdminHandlers(nil, &stubOrderService{}, &stubPaymentService{}, &stubShipmentService{}))

	rr := doRequest(t, router, http.MethodPost, "/admin/orders/batch", map[string]any{"updates": []any{}}, adminIdentity())

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestAdminBatchUpdateForwardsUpdates(t *testing.T) {
	var captured []services.OrderBatchUpdate
	var capturedActor string
	orders := &stubOrderService{
		batchUpdateFn: func(_ context.Context, updates []services.OrderBatchUpdate, actionBy string) error {
			captured = updates
			capturedActor = actionBy
			return nil
		},
	}
	router := newAdminRouter(NewAdminHandlers(nil, orders, &stubPaymentService{}, &stubShipmentService{}))

	body := map[string]any{
		"updates": []map[string]any{
			{"order_id": "ord_1", "status": "confirmed"},
			{"order_id": "ord_2", "payment_status": "paid", "admin_message": "verified"},
		},
	}

	rr := doRequest(t, router, http.MethodPost, "/admin/orders/batch", body, adminIdentity())

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(captured) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(captured))
	}
	if captured[0].Status == nil || *captured[0].Status != domain.OrderStatusConfirmed {
		t.Errorf("unexpected first update %+v", captured[0])
	}
	if captured[1].PaymentStatus == nil || *captured[1].PaymentStatus != domain.PaymentStatusPaid {
		t.Errorf("unexpected second update %+v", captured[1])
	}
	if capturedActor != "admin@example.com" {
		t.Errorf("expected actor from identity, got %q", capturedActor)
	}
}

func TestAdminDeleteOrderMapsInvalidState(t *testing.T) {
	orders := &stubOrderService{
		deleteFn: func(_ context.Context, orderID string) error {
			return services.ErrOrderInvalidState
		},
	}
	router := newAdminRouter(NewAdminHandlers(nil, orders, &stubPaymentService{}, &stubShipmentService{}))

	rr := doRequest(t, router, http.MethodDelete, "/admin/orders/ord_1", nil, adminIdentity())

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestAdminRecordPayment(t *testing.T) {
	var captured services.RecordTransactionCommand
	payments := &stubPaymentService{
		recordFn: func(_ context.Context, cmd services.RecordTransactionCommand) (services.PaymentTransaction, error) {
			captured = cmd
			return sampleHandlerPayment(), nil
		},
	}
	router := newAdminRouter(NewAdminHandlers(nil, &stubOrderService{}, payments, &stubShipmentService{}))

	body := map[string]any{
		"order_id":       "ord_1",
		"amount":         100000,
		"payment_method": "transfer",
		"type":           "payment",
	}

	rr := doRequest(t, router, http.MethodPost, "/admin/payments/", body, adminIdentity())

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.OrderID != "ord_1" || captured.Amount != 100000 {
		t.Errorf("unexpected command %+v", captured)
	}
}

func TestAdminRetryPayment(t *testing.T) {
	payments := &stubPaymentService{
		retryFn: func(_ context.Context, paymentID string) (services.PaymentTransaction, error) {
			txn := sampleHandlerPayment()
			txn.ID = paymentID
			txn.Status = domain.TransactionStatusProcessing
			return txn, nil
		},
	}
	router := newAdminRouter(NewAdminHandlers(nil, &stubOrderService{}, payments, &stubShipmentService{}))

	rr := doRequest(t, router, http.MethodPost, "/admin/payments/pay_1/retry", nil, adminIdentity())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var response paymentResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if response.Payment.Status != string(domain.TransactionStatusProcessing) {
		t.Errorf("expected processing, got %q", response.Payment.Status)
	}
}

func TestAdminGetPaymentNotFound(t *testing.T) {
	router := newAdminRouter(NewAdminHandlers(nil, &stubOrderService{}, &stubPaymentService{}, &stubShipmentService{}))

	rr := doRequest(t, router, http.MethodGet, "/admin/payments/pay_missing", nil, adminIdentity())

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestAdminPaymentStats(t *testing.T) {
	payments := &stubPaymentService{
		statsFn: func(context.Context) (domain.PaymentStatistics, error) {
			return domain.PaymentStatistics{
				TotalTransactions:      5,
				SuccessfulTransactions: 3,
				TotalRevenue:           300000,
				AverageTransaction:     100000,
				SuccessRate:            60,
			}, nil
		},
	}
	router := newAdminRouter(NewAdminHandlers(nil, &stubOrderService{}, payments, &stubShipmentService{}))

	rr := doRequest(t, router, http.MethodGet, "/admin/payments/stats", nil, adminIdentity())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var stats paymentStatsPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if stats.SuccessRate != 60 || stats.TotalRevenue != 300000 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestAdminUpdateShipmentStatusParsesTimestamp(t *testing.T) {
	var captured services.UpdateShipmentStatusCommand
	shipments := &stubShipmentService{
		updateStatusFn: func(_ context.Context, cmd services.UpdateShipmentStatusCommand) (services.Shipment, error) {
			captured = cmd
			shipment := sampleHandlerShipment("uid-1")
			shipment.Status = cmd.NextStatus
			return shipment, nil
		},
	}
	router := newAdminRouter(NewAdminHandlers(nil, &stubOrderService{}, &stubPaymentService{}, shipments))

	body := map[string]any{
		"status":             "in_transit",
		"estimated_delivery": "2026-03-18T00:00:00Z",
	}

	rr := doRequest(t, router, http.MethodPut, "/admin/shipments/shp_1/status", body, adminIdentity())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.NextStatus != domain.ShipmentStatusInTransit {
		t.Errorf("expected in_transit, got %q", captured.NextStatus)
	}
	want := time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)
	if captured.EstimatedDelivery == nil || !captured.EstimatedDelivery.Equal(want) {
		t.Errorf("expected estimated delivery %v, got %v", want, captured.EstimatedDelivery)
	}
}

func TestAdminUpdateShipmentStatusRejectsBadTimestamp(t *testing.T) {
	router := newAdminRouter(NewAdminHandlers(nil, &stubOrderService{}, &stubPaymentService{}, &stubShipmentService{}))

	body := map[string]any{"status": "in_transit", "estimated_delivery": "tomorrow"}
	rr := doRequest(t, router, http.MethodPut, "/admin/shipments/shp_1/status", body, adminIdentity())

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestAdminDeleteShipment(t *testing.T) {
	deleted := ""
	shipments := &stubShipmentService{
		deleteFn: func(_ context.Context, shipmentID string) error {
			deleted = shipmentID
			return nil
		},
	}
	router := newAdminRouter(NewAdminHandlers(nil, &stubOrderService{}, &stubPaymentService{}, shipments))

	rr := doRequest(t, router, http.MethodDelete, "/admin/shipments/shp_1", nil, adminIdentity())

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if deleted != "shp_1" {
		t.Errorf("expected shp_1 deleted, got %q", deleted)
	}
}

func TestAdminPaymentProofViewURL(t *testing.T) {
	store, err := storageProofStoreForTest()
	if err != nil {
		t.Fatalf("new proof store: %v", err)
	}

	orders := &stubOrderService{
		getFn: func(_ context.Context, orderID string) (services.Order, error) {
			order := sampleHandlerOrder("uid-1")
			order.PaymentProof = "payment-proofs/ord_1/01testproof.jpg"
			return order, nil
		},
	}
	router := newAdminRouter(NewAdminHandlers(nil, orders, &stubPaymentService{}, &stubShipmentService{}, WithAdminProofStore(store)))

	rr := doRequest(t, router, http.MethodGet, "/admin/orders/ord_1/payment-proof", nil, adminIdentity())

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var response proofViewURLResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if response.ObjectRef != "payment-proofs/ord_1/01testproof.jpg" {
		t.Errorf("unexpected object ref %q", response.ObjectRef)
	}
	if response.URL == "" {
		t.Error("expected signed url")
	}
}

func TestAdminPaymentProofViewURLWithoutProof(t *testing.T) {
	store, err := storageProofStoreForTest()
	if err != nil {
		t.Fatalf("new proof store: %v", err)
	}

	orders := &stubOrderService{
		getFn: func(_ context.Context, orderID string) (services.Order, error) {
			return sampleHandlerOrder("uid-1"), nil
		},
	}
	router := newAdminRouter(NewAdminHandlers(nil, orders, &stubPaymentService{}, &stubShipmentService{}, WithAdminProofStore(store)))

	rr := doRequest(t, router, http.MethodGet, "/admin/orders/ord_1/payment-proof", nil, adminIdentity())

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
