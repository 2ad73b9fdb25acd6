package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/Chrilove/projekuas/internal/domain"
	"github.com/Chrilove/projekuas/internal/platform/auth"
	"github.com/Chrilove/projekuas/internal/platform/httpx"
	"github.com/Chrilove/projekuas/internal/platform/storage"
	"github.com/Chrilove/projekuas/internal/services"
)

const (
	maxAdminBodySize = 64 * 1024

	adminActionFallback = "admin"
)

// AdminHandlers exposes the back-office endpoints for order, payment and
// shipment management. Every route requires the admin role.
type AdminHandlers struct {
	authn     *auth.Authenticator
	orders    services.OrderService
	payments  services.PaymentService
	shipments services.ShipmentService

	proofs *storage.ProofStore
}

// AdminHandlersOption customises AdminHandlers behaviour.
type AdminHandlersOption func(*AdminHandlers)

// WithAdminProofStore wires the signed URL issuer used to review payment proofs.
func WithAdminProofStore(store *storage.ProofStore) AdminHandlersOption {
	return func(h *AdminHandlers) {
		h.proofs = store
	}
}

// NewAdminHandlers constructs a new AdminHandlers instance.
func NewAdminHandlers(authn *auth.Authenticator, orders services.OrderService, payments services.PaymentService, shipments services.ShipmentService, opts ...AdminHandlersOption) *AdminHandlers {
	h := &AdminHandlers{
		authn:     authn,
		orders:    orders,
		payments:  payments,
		shipments: shipments,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /admin endpoints.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleAdmin))
	}

	r.Route("/orders", func(orders chi.Router) {
		orders.Get("/", h.listOrders)
		orders.Get("/search", h.searchOrders)
		orders.Get("/stats", h.orderStats)
		orders.Post("/batch", h.batchUpdateOrders)
		orders.Get("/{orderID}", h.getOrder)
		orders.Get("/{orderID}/status-logs", h.listStatusLogs)
		orders.Get("/{orderID}/payment-proof", h.paymentProofViewURL)
		orders.Put("/{orderID}/status", h.updateOrderStatus)
		orders.Put("/{orderID}/payment-status", h.updatePaymentStatus)
		orders.Put("/{orderID}/tracking", h.updateTracking)
		orders.Delete("/{orderID}", h.deleteOrder)
	})

	r.Route("/payments", func(payments chi.Router) {
		payments.Post("/", h.recordPayment)
		payments.Get("/", h.listPayments)
		payments.Get("/stats", h.paymentStats)
		payments.Get("/{paymentID}", h.getPayment)
		payments.Put("/{paymentID}/status", h.updatePaymentTransactionStatus)
		payments.Post("/{paymentID}/retry", h.retryPayment)
	})

	r.Route("/shipments", func(shipments chi.Router) {
		shipments.Get("/", h.listShipments)
		shipments.Get("/stats", h.shipmentStats)
		shipments.Get("/{shipmentID}", h.getShipment)
		shipments.Put("/{shipmentID}/status", h.updateShipmentStatus)
		shipments.Delete("/{shipmentID}", h.deleteShipment)
	})
}

func (h *AdminHandlers) actor(identity *auth.Identity) string {
	if identity != nil {
		if email := strings.TrimSpace(identity.Email); email != "" {
			return email
		}
		if uid := strings.TrimSpace(identity.UID); uid != "" {
			return uid
		}
	}
	return adminActionFallback
}

func (h *AdminHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	limit, err := parseLimitParam(query.Get("limit"), defaultListLimit, maxListLimit)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.OrderListFilter{
		ResellerID:    strings.TrimSpace(query.Get("reseller_id")),
		Status:        domain.OrderStatus(strings.TrimSpace(strings.ToLower(query.Get("status")))),
		PaymentStatus: domain.PaymentStatus(strings.TrimSpace(strings.ToLower(query.Get("payment_status")))),
		Limit:         limit,
	}

	orders, err := h.orders.List(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		items = append(items, buildOrderPayload(order))
	}
	writeJSONResponse(w, http.StatusOK, orderListResponse{Orders: items})
}

func (h *AdminHandlers) searchOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "query parameter q is required", http.StatusBadRequest))
		return
	}

	orders, err := h.orders.Search(ctx, query)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		items = append(items, buildOrderPayload(order))
	}
	writeJSONResponse(w, http.StatusOK, orderListResponse{Orders: items})
}

type orderStatsPayload struct {
	Total               int   `json:"total"`
	Pending             int   `json:"pending"`
	Confirmed           int   `json:"confirmed"`
	Processing          int   `json:"processing"`
	Shipped             int   `json:"shipped"`
	Delivered           int   `json:"delivered"`
	Completed           int   `json:"completed"`
	Cancelled           int   `json:"cancelled"`
	WaitingPayment      int   `json:"waiting_payment"`
	WaitingVerification int   `json:"waiting_verification"`
	Paid                int   `json:"paid"`
	TotalRevenue        int64 `json:"total_revenue"`
	TotalCommission     int64 `json:"total_commission"`
}

func (h *AdminHandlers) orderStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	stats, err := h.orders.Statistics(ctx)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderStatsPayload{
		Total:               stats.Total,
		Pending:             stats.Pending,
		Confirmed:           stats.Confirmed,
		Processing:          stats.Processing,
		Shipped:             stats.Shipped,
		Delivered:           stats.Delivered,
		Completed:           stats.Completed,
		Cancelled:           stats.Cancelled,
		WaitingPayment:      stats.WaitingPayment,
		WaitingVerification: stats.WaitingVerification,
		Paid:                stats.Paid,
		TotalRevenue:        stats.TotalRevenue,
		TotalCommission:     stats.TotalCommission,
	})
}

func (h *AdminHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.Get(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *AdminHandlers) listStatusLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	logs, err := h.orders.StatusLogs(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]statusLogPayload, 0, len(logs))
	for _, entry := range logs {
		items = append(items, buildStatusLogPayload(entry))
	}
	writeJSONResponse(w, http.StatusOK, statusLogListResponse{Logs: items})
}

type proofViewURLResponse struct {
	ObjectRef string `json:"object_ref"`
	URL       string `json:"url"`
}

func (h *AdminHandlers) paymentProofViewURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	if h.proofs == nil {
		httpx.WriteError(ctx, w, httpx.NewError("proof_uploads_disabled", "payment proof storage is not configured", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.Get(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	if strings.TrimSpace(order.PaymentProof) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("proof_not_found", "order has no payment proof", http.StatusNotFound))
		return
	}

	url, err := h.proofs.ViewURL(ctx, order.PaymentProof)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("proof_unavailable", err.Error(), http.StatusBadRequest))
		return
	}

	writeJSONResponse(w, http.StatusOK, proofViewURLResponse{
		ObjectRef: strings.TrimSpace(order.PaymentProof),
		URL:       url,
	})
}

type shippingDetailsRequest struct {
	Courier       string `json:"courier"`
	Service       string `json:"service"`
	Cost          int64  `json:"cost"`
	EstimatedDays string `json:"estimated_days"`
	Notes         string `json:"notes"`
}

type updateOrderStatusRequest struct {
	Status            string                  `json:"status"`
	Notes             string                  `json:"notes"`
	AdminMessage      string                  `json:"admin_message"`
	TrackingNumber    string                  `json:"tracking_number"`
	EstimatedDelivery string                  `json:"estimated_delivery"`
	CreateShipment    bool                    `json:"create_shipment"`
	Shipping          *shippingDetailsRequest `json:"shipping"`
}

type effectPayload struct {
	Name  string `json:"name"`
	Error string `json:"error,omitempty"`
}

type orderStatusUpdateResponse struct {
	Order   orderPayload    `json:"order"`
	Effects []effectPayload `json:"effects,omitempty"`
}

func (h *AdminHandlers) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req updateOrderStatusRequest
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status is required", http.StatusBadRequest))
		return
	}

	cmd := services.UpdateOrderStatusCommand{
		OrderID:        orderID,
		NextStatus:     domain.OrderStatus(strings.TrimSpace(strings.ToLower(req.Status))),
		Notes:          req.Notes,
		AdminMessage:   req.AdminMessage,
		ActionBy:       h.actor(identity),
		TrackingNumber: strings.TrimSpace(req.TrackingNumber),
		CreateShipment: req.CreateShipment,
	}

	if raw := strings.TrimSpace(req.EstimatedDelivery); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "estimated_delivery must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		cmd.EstimatedDelivery = &ts
	}

	if req.Shipping != nil {
		cmd.Shipping = &services.ShippingDetails{
			Courier:       strings.TrimSpace(req.Shipping.Courier),
			Service:       strings.TrimSpace(req.Shipping.Service),
			Cost:          req.Shipping.Cost,
			EstimatedDays: strings.TrimSpace(req.Shipping.EstimatedDays),
			Notes:         req.Shipping.Notes,
		}
	}

	result, err := h.orders.UpdateStatus(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	response := orderStatusUpdateResponse{Order: buildOrderPayload(result.Order)}
	for _, effect := range result.Effects {
		payload := effectPayload{Name: effect.Name}
		if effect.Err != nil {
			payload.Error = effect.Err.Error()
		}
		response.Effects = append(response.Effects, payload)
	}
	writeJSONResponse(w, http.StatusOK, response)
}

type updatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status"`
	OrderStatus   string `json:"order_status"`
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"payment_method"`
	Reference     string `json:"reference"`
	Notes         string `json:"notes"`
	AdminMessage  string `json:"admin_message"`
}

func (h *AdminHandlers) updatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req updatePaymentStatusRequest
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.PaymentStatus) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "payment_status is required", http.StatusBadRequest))
		return
	}

	cmd := services.UpdatePaymentStatusCommand{
		OrderID:       orderID,
		PaymentStatus: domain.PaymentStatus(strings.TrimSpace(strings.ToLower(req.PaymentStatus))),
		Amount:        req.Amount,
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		Reference:     strings.TrimSpace(req.Reference),
		ActionBy:      h.actor(identity),
		Notes:         req.Notes,
		AdminMessage:  req.AdminMessage,
	}
	if raw := strings.TrimSpace(req.OrderStatus); raw != "" {
		status := domain.OrderStatus(strings.ToLower(raw))
		cmd.OrderStatus = &status
	}

	order, err := h.orders.UpdatePaymentStatus(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

type updateTrackingRequest struct {
	TrackingNumber    string `json:"tracking_number"`
	EstimatedDelivery string `json:"estimated_delivery"`
}

func (h *AdminHandlers) updateTracking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req updateTrackingRequest
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.TrackingNumber) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "tracking_number is required", http.StatusBadRequest))
		return
	}

	var estimatedDelivery *time.Time
	if raw := strings.TrimSpace(req.EstimatedDelivery); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "estimated_delivery must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		estimatedDelivery = &ts
	}

	order, err := h.orders.UpdateTracking(ctx, orderID, strings.TrimSpace(req.TrackingNumber), estimatedDelivery)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *AdminHandlers) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	if err := h.orders.Delete(ctx, orderID); err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type batchUpdateEntryRequest struct {
	OrderID       string  `json:"order_id"`
	Status        *string `json:"status"`
	PaymentStatus *string `json:"payment_status"`
	AdminMessage  *string `json:"admin_message"`
}

type batchUpdateRequest struct {
	Updates []batchUpdateEntryRequest `json:"updates"`
}

func (h *AdminHandlers) batchUpdateOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req batchUpdateRequest
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if len(req.Updates) == 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "updates must not be empty", http.StatusBadRequest))
		return
	}

	updates := make([]services.OrderBatchUpdate, 0, len(req.Updates))
	for _, entry := range req.Updates {
		update := services.OrderBatchUpdate{
			OrderID:      strings.TrimSpace(entry.OrderID),
			AdminMessage: entry.AdminMessage,
		}
		if entry.Status != nil {
			status := domain.OrderStatus(strings.TrimSpace(strings.ToLower(*entry.Status)))
			update.Status = &status
		}
		if entry.PaymentStatus != nil {
			status := domain.PaymentStatus(strings.TrimSpace(strings.ToLower(*entry.PaymentStatus)))
			update.PaymentStatus = &status
		}
		updates = append(updates, update)
	}

	if err := h.orders.BatchUpdate(ctx, updates, h.actor(identity)); err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type recordPaymentRequest struct {
	OrderID       string `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	ResellerID    string `json:"reseller_id"`
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"payment_method"`
	Status        string `json:"status"`
	Type          string `json:"type"`
	Reference     string `json:"reference"`
	Description   string `json:"description"`
	AdminNotes    string `json:"admin_notes"`
}

func (h *AdminHandlers) recordPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_service_unavailable", "payment service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req recordPaymentRequest
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	txn, err := h.payments.Record(ctx, services.RecordTransactionCommand{
		OrderID:       strings.TrimSpace(req.OrderID),
		OrderNumber:   strings.TrimSpace(req.OrderNumber),
		ResellerID:    strings.TrimSpace(req.ResellerID),
		Amount:        req.Amount,
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		Status:        domain.TransactionStatus(strings.TrimSpace(strings.ToLower(req.Status))),
		Type:          domain.TransactionType(strings.TrimSpace(strings.ToLower(req.Type))),
		Reference:     strings.TrimSpace(req.Reference),
		Description:   req.Description,
		AdminNotes:    req.AdminNotes,
	})
	if err != nil {
		writePaymentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, paymentResponse{Payment: buildPaymentPayload(txn)})
}

func (h *AdminHandlers) listPayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_service_unavailable", "payment service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	limit, err := parseLimitParam(query.Get("limit"), defaultListLimit, maxListLimit)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.PaymentListFilter{
		ResellerID: strings.TrimSpace(query.Get("reseller_id")),
		Status:     domain.TransactionStatus(strings.TrimSpace(strings.ToLower(query.Get("status")))),
		Limit:      limit,
	}

	payments, err := h.payments.List(ctx, filter)
	if err != nil {
		writePaymentError(ctx, w, err)
		return
	}

	items := make([]paymentPayload, 0, len(payments))
	for _, txn := range payments {
		items = append(items, buildPaymentPayload(txn))
	}
	writeJSONResponse(w, http.StatusOK, paymentListResponse{Payments: items})
}

type paymentStatsPayload struct {
	TotalTransactions      int     `json:"total_transactions"`
	SuccessfulTransactions int     `json:"successful_transactions"`
	PendingTransactions    int     `json:"pending_transactions"`
	FailedTransactions     int     `json:"failed_transactions"`
	TotalRevenue           int64   `json:"total_revenue"`
	AverageTransaction     float64 `json:"average_transaction"`
	SuccessRate            float64 `json:"success_rate"`
}

func (h *AdminHandlers) paymentStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_service_unavailable", "payment service unavailable", http.StatusServiceUnavailable))
		return
	}

	stats, err := h.payments.Stats(ctx)
	if err != nil {
		writePaymentError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, paymentStatsPayload{
		TotalTransactions:      stats.TotalTransactions,
		SuccessfulTransactions: stats.SuccessfulTransactions,
		PendingTransactions:    stats.PendingTransactions,
		FailedTransactions:     stats.FailedTransactions,
		TotalRevenue:           stats.TotalRevenue,
		AverageTransaction:     stats.AverageTransaction,
		SuccessRate:            stats.SuccessRate,
	})
}

func (h *AdminHandlers) getPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_service_unavailable", "payment service unavailable", http.StatusServiceUnavailable))
		return
	}

	paymentID := strings.TrimSpace(chi.URLParam(r, "paymentID"))
	if paymentID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "payment id is required", http.StatusBadRequest))
		return
	}

	txn, err := h.payments.Get(ctx, paymentID)
	if err != nil {
		writePaymentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, paymentResponse{Payment: buildPaymentPayload(txn)})
}

type updatePaymentTransactionStatusRequest struct {
	Status     string `json:"status"`
	AdminNotes string `json:"admin_notes"`
}

func (h *AdminHandlers) updatePaymentTransactionStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_service_unavailable", "payment service unavailable", http.StatusServiceUnavailable))
		return
	}

	paymentID := strings.TrimSpace(chi.URLParam(r, "paymentID"))
	if paymentID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "payment id is required", http.StatusBadRequest))
		return
	}

	var req updatePaymentTransactionStatusRequest
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status is required", http.StatusBadRequest))
		return
	}

	txn, err := h.payments.UpdateStatus(ctx, paymentID, domain.TransactionStatus(strings.TrimSpace(strings.ToLower(req.Status))), req.AdminNotes)
	if err != nil {
		writePaymentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, paymentResponse{Payment: buildPaymentPayload(txn)})
}

func (h *AdminHandlers) retryPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_service_unavailable", "payment service unavailable", http.StatusServiceUnavailable))
		return
	}

	paymentID := strings.TrimSpace(chi.URLParam(r, "paymentID"))
	if paymentID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "payment id is required", http.StatusBadRequest))
		return
	}

	txn, err := h.payments.Retry(ctx, paymentID)
	if err != nil {
		writePaymentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, paymentResponse{Payment: buildPaymentPayload(txn)})
}

func (h *AdminHandlers) listShipments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}
	if h.shipments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipment_service_unavailable", "shipment service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	limit, err := parseLimitParam(query.Get("limit"), defaultListLimit, maxListLimit)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.ShipmentListFilter{
		ResellerID: strings.TrimSpace(query.Get("reseller_id")),
		Status:     domain.ShipmentStatus(strings.TrimSpace(strings.ToLower(query.Get("status")))),
		Limit:      limit,
	}

	shipments, err := h.shipments.List(ctx, filter)
	if err != nil {
		writeShipmentError(ctx, w, err)
		return
	}

	items := make([]shipmentPayload, 0, len(shipments))
	for _, shipment := range shipments {
		items = append(items, buildShipmentPayload(shipment))
	}
	writeJSONResponse(w, http.StatusOK, shipmentListResponse{Shipments: items})
}

type shipmentStatsPayload struct {
	Total     int   `json:"total"`
	Preparing int   `json:"preparing"`
	InTransit int   `json:"in_transit"`
	Delivered int   `json:"delivered"`
	Returned  int   `json:"returned"`
	Cancelled int   `json:"cancelled"`
	TotalCost int64 `json:"total_cost"`
}

func (h *AdminHandlers) shipmentStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}
	if h.shipments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipment_service_unavailable", "shipment service unavailable", http.StatusServiceUnavailable))
		return
	}

	stats, err := h.shipments.Stats(ctx)
	if err != nil {
		writeShipmentError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, shipmentStatsPayload{
		Total:     stats.Total,
		Preparing: stats.Preparing,
		InTransit: stats.InTransit,
		Delivered: stats.Delivered,
		Returned:  stats.Returned,
		Cancelled: stats.Cancelled,
		TotalCost: stats.TotalCost,
	})
}

func (h *AdminHandlers) getShipment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}
	if h.shipments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipment_service_unavailable", "shipment service unavailable", http.StatusServiceUnavailable))
		return
	}

	shipmentID := strings.TrimSpace(chi.URLParam(r, "shipmentID"))
	if shipmentID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "shipment id is required", http.StatusBadRequest))
		return
	}

	shipment, err := h.shipments.Get(ctx, shipmentID)
	if err != nil {
		writeShipmentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, shipmentResponse{Shipment: buildShipmentPayload(shipment)})
}

type updateShipmentStatusRequest struct {
	Status            string `json:"status"`
	Notes             string `json:"notes"`
	EstimatedDelivery string `json:"estimated_delivery"`
}

func (h *AdminHandlers) updateShipmentStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}
	if h.shipments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipment_service_unavailable", "shipment service unavailable", http.StatusServiceUnavailable))
		return
	}

	shipmentID := strings.TrimSpace(chi.URLParam(r, "shipmentID"))
	if shipmentID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "shipment id is required", http.StatusBadRequest))
		return
	}

	var req updateShipmentStatusRequest
	if err := decodeJSONBody(r, maxAdminBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status is required", http.StatusBadRequest))
		return
	}

	cmd := services.UpdateShipmentStatusCommand{
		ShipmentID: shipmentID,
		NextStatus: domain.ShipmentStatus(strings.TrimSpace(strings.ToLower(req.Status))),
		Notes:      req.Notes,
	}
	if raw := strings.TrimSpace(req.EstimatedDelivery); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "estimated_delivery must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		cmd.EstimatedDelivery = &ts
	}

	shipment, err := h.shipments.UpdateStatus(ctx, cmd)
	if err != nil {
		writeShipmentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, shipmentResponse{Shipment: buildShipmentPayload(shipment)})
}

func (h *AdminHandlers) deleteShipment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}
	if h.shipments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipment_service_unavailable", "shipment service unavailable", http.StatusServiceUnavailable))
		return
	}

	shipmentID := strings.TrimSpace(chi.URLParam(r, "shipmentID"))
	if shipmentID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "shipment id is required", http.StatusBadRequest))
		return
	}

	if err := h.shipments.Delete(ctx, shipmentID); err != nil {
		writeShipmentError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type paymentListResponse struct {
	Payments []paymentPayload `json:"payments"`
}

type paymentResponse struct {
	Payment paymentPayload `json:"payment"`
}

type paymentPayload struct {
	ID                string `json:"id"`
	TransactionNumber string `json:"transaction_number"`
	OrderID           string `json:"order_id"`
	OrderNumber       string `json:"order_number,omitempty"`
	ResellerID        string `json:"reseller_id,omitempty"`
	Amount            int64  `json:"amount"`
	PaymentMethod     string `json:"payment_method,omitempty"`
	Status            string `json:"status"`
	Type              string `json:"type"`
	Reference         string `json:"reference,omitempty"`
	Description       string `json:"description,omitempty"`
	AdminNotes        string `json:"admin_notes,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at,omitempty"`
}

func buildPaymentPayload(txn services.PaymentTransaction) paymentPayload {
	return paymentPayload{
		ID:                strings.TrimSpace(txn.ID),
		TransactionNumber: strings.TrimSpace(txn.TransactionNumber),
		OrderID:           strings.TrimSpace(txn.OrderID),
		OrderNumber:       strings.TrimSpace(txn.OrderNumber),
		ResellerID:        strings.TrimSpace(txn.ResellerID),
		Amount:            txn.Amount,
		PaymentMethod:     strings.TrimSpace(txn.PaymentMethod),
		Status:            strings.TrimSpace(string(txn.Status)),
		Type:              strings.TrimSpace(string(txn.Type)),
		Reference:         strings.TrimSpace(txn.Reference),
		Description:       strings.TrimSpace(txn.Description),
		AdminNotes:        strings.TrimSpace(txn.AdminNotes),
		CreatedAt:         formatTime(txn.CreatedAt),
		UpdatedAt:         formatTime(txn.UpdatedAt),
	}
}

func writePaymentError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrPaymentMissingField), errors.Is(err, services.ErrPaymentValidation):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPaymentNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("payment_not_found", "payment not found", http.StatusNotFound))
	case errors.Is(err, services.ErrPaymentConflict):
		httpx.WriteError(ctx, w, httpx.NewError("payment_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrStoreTimeout):
		httpx.WriteError(ctx, w, httpx.NewError("store_timeout", "payment store timed out", http.StatusGatewayTimeout))
	case errors.Is(err, services.ErrStoreUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("store_unavailable", "payment store unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("payment_error", "failed to process payment request", http.StatusInternalServerError))
	}
}
