package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/Chrilove/projekuas/internal/domain"
	"github.com/Chrilove/projekuas/internal/platform/auth"
	"github.com/Chrilove/projekuas/internal/platform/httpx"
	"github.com/Chrilove/projekuas/internal/platform/storage"
	"github.com/Chrilove/projekuas/internal/services"
)

const (
	maxOrderBodySize = 32 * 1024
	maxProofBodySize = 4 * 1024

	defaultListLimit = 50
	maxListLimit     = 200
)

// OrderHandlers exposes the reseller-facing order endpoints.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService

	proofs       *storage.ProofStore
	proofLimiter RateLimiter
}

// OrderHandlersOption customises OrderHandlers behaviour.
type OrderHandlersOption func(*OrderHandlers)

// WithOrderProofStore wires the signed URL issuer for payment proof uploads.
func WithOrderProofStore(store *storage.ProofStore) OrderHandlersOption {
	return func(h *OrderHandlers) {
		h.proofs = store
	}
}

// WithOrderProofLimiter throttles proof submissions per reseller.
func WithOrderProofLimiter(limiter RateLimiter) OrderHandlersOption {
	return func(h *OrderHandlers) {
		h.proofLimiter = limiter
	}
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService, opts ...OrderHandlersOption) *OrderHandlers {
	h := &OrderHandlers{
		authn:  authn,
		orders: orders,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleReseller, auth.RoleAdmin))
	}
	r.Post("/", h.createOrder)
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Get("/{orderID}/status-logs", h.listStatusLogs)
	r.Post("/{orderID}/payment-proof/upload-url", h.proofUploadURL)
	r.Post("/{orderID}/payment-proof", h.submitPaymentProof)
	r.Post("/{orderID}/confirm", h.confirmReceived)
}

type createOrderProductRequest struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     int64   `json:"price"`
	Weight    float64 `json:"weight"`
}

type shippingAddressRequest struct {
	Recipient  string `json:"recipient"`
	Street     string `json:"street"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone"`
}

type createOrderRequest struct {
	StoreName       string                      `json:"store_name"`
	Phone           string                      `json:"phone"`
	Products        []createOrderProductRequest `json:"products"`
	ShippingAddress shippingAddressRequest      `json:"shipping_address"`
	PaymentMethod   string                      `json:"payment_method"`
	CashOnDelivery  bool                        `json:"cash_on_delivery"`
	TotalAmount     int64                       `json:"total_amount"`
	TotalCommission int64                       `json:"total_commission"`
	Notes           string                      `json:"notes"`
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req createOrderRequest
	if err := decodeJSONBody(r, maxOrderBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	products := make([]services.OrderProduct, 0, len(req.Products))
	for _, product := range req.Products {
		products = append(products, services.OrderProduct{
			ProductID: strings.TrimSpace(product.ProductID),
			Name:      strings.TrimSpace(product.Name),
			Quantity:  product.Quantity,
			Price:     product.Price,
			Weight:    product.Weight,
		})
	}

	resellerName := strings.TrimSpace(req.StoreName)
	if resellerName == "" {
		resellerName = strings.TrimSpace(identity.Email)
	}

	cmd := services.CreateOrderCommand{
		ResellerID:    strings.TrimSpace(identity.UID),
		ResellerName:  resellerName,
		ResellerEmail: strings.TrimSpace(identity.Email),
		ResellerPhone: strings.TrimSpace(req.Phone),
		Products:      products,
		ShippingAddress: services.ShippingAddress{
			Recipient:  strings.TrimSpace(req.ShippingAddress.Recipient),
			Street:     strings.TrimSpace(req.ShippingAddress.Street),
			City:       strings.TrimSpace(req.ShippingAddress.City),
			Province:   strings.TrimSpace(req.ShippingAddress.Province),
			PostalCode: strings.TrimSpace(req.ShippingAddress.PostalCode),
			Phone:      strings.TrimSpace(req.ShippingAddress.Phone),
		},
		PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
		CashOnDelivery:  req.CashOnDelivery,
		TotalAmount:     req.TotalAmount,
		TotalCommission: req.TotalCommission,
		Notes:           req.Notes,
	}

	order, err := h.orders.Create(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
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
		ResellerID:    strings.TrimSpace(identity.UID),
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

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	order, ok := h.loadOwnedOrder(ctx, w, r, identity)
	if !ok {
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) listStatusLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	order, ok := h.loadOwnedOrder(ctx, w, r, identity)
	if !ok {
		return
	}

	logs, err := h.orders.StatusLogs(ctx, order.ID)
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

type proofUploadURLRequest struct {
	ContentType string `json:"content_type"`
}

type proofUploadURLResponse struct {
	ObjectRef   string `json:"object_ref"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	ExpiresAt   string `json:"expires_at"`
}

func (h *OrderHandlers) proofUploadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	if h.proofs == nil {
		httpx.WriteError(ctx, w, httpx.NewError("proof_uploads_disabled", "payment proof uploads are not configured", http.StatusServiceUnavailable))
		return
	}
	if h.proofLimiter != nil && !h.proofLimiter.Allow(identity.UID) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many proof upload requests", http.StatusTooManyRequests))
		return
	}

	order, ok := h.loadOwnedOrder(ctx, w, r, identity)
	if !ok {
		return
	}

	var req proofUploadURLRequest
	if err := decodeJSONBody(r, maxProofBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	ticket, err := h.proofs.UploadURL(ctx, order.ID, req.ContentType)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	writeJSONResponse(w, http.StatusOK, proofUploadURLResponse{
		ObjectRef:   ticket.ObjectRef,
		URL:         ticket.URL,
		ContentType: ticket.ContentType,
		ExpiresAt:   formatTime(ticket.ExpiresAt),
	})
}

type submitProofRequest struct {
	ProofRef      string `json:"proof_ref"`
	PaymentMethod string `json:"payment_method"`
}

func (h *OrderHandlers) submitPaymentProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	if h.proofLimiter != nil && !h.proofLimiter.Allow(identity.UID) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many proof submissions", http.StatusTooManyRequests))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req submitProofRequest
	if err := decodeJSONBody(r, maxProofBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.ProofRef) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "proof_ref is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.SubmitPaymentProof(ctx, services.SubmitPaymentProofCommand{
		OrderID:       orderID,
		ResellerID:    strings.TrimSpace(identity.UID),
		ProofRef:      strings.TrimSpace(req.ProofRef),
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) confirmReceived(w http.ResponseWriter, r *http.Request) {
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

	order, err := h.orders.ConfirmReceived(ctx, orderID, strings.TrimSpace(identity.UID))
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

// loadOwnedOrder fetches the order and masks foreign orders as not found for resellers.
func (h *OrderHandlers) loadOwnedOrder(ctx context.Context, w http.ResponseWriter, r *http.Request, identity *auth.Identity) (services.Order, bool) {
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return services.Order{}, false
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return services.Order{}, false
	}

	order, err := h.orders.Get(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return services.Order{}, false
	}

	if !identity.HasRole(auth.RoleAdmin) && !strings.EqualFold(strings.TrimSpace(order.ResellerID), strings.TrimSpace(identity.UID)) {
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
		return services.Order{}, false
	}
	return order, true
}

type orderListResponse struct {
	Orders []orderPayload `json:"orders"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderProductPayload struct {
	ProductID   string  `json:"product_id"`
	Name        string  `json:"name,omitempty"`
	Quantity    int     `json:"quantity"`
	Price       int64   `json:"price"`
	RetailPrice int64   `json:"retail_price,omitempty"`
	Commission  int64   `json:"commission,omitempty"`
	Subtotal    int64   `json:"subtotal"`
	Weight      float64 `json:"weight,omitempty"`
}

type shippingAddressPayload struct {
	Recipient  string `json:"recipient,omitempty"`
	Street     string `json:"street"`
	City       string `json:"city"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Phone      string `json:"phone"`
}

type orderPayload struct {
	ID                   string                 `json:"id"`
	OrderNumber          string                 `json:"order_number"`
	ResellerID           string                 `json:"reseller_id"`
	ResellerName         string                 `json:"reseller_name,omitempty"`
	ResellerEmail        string                 `json:"reseller_email,omitempty"`
	ResellerPhone        string                 `json:"reseller_phone,omitempty"`
	Products             []orderProductPayload  `json:"products"`
	TotalAmount          int64                  `json:"total_amount"`
	TotalCommission      int64                  `json:"total_commission,omitempty"`
	ShippingAddress      shippingAddressPayload `json:"shipping_address"`
	Status               string                 `json:"status"`
	PaymentStatus        string                 `json:"payment_status"`
	PaymentMethod        string                 `json:"payment_method,omitempty"`
	PaymentProof         string                 `json:"payment_proof,omitempty"`
	AdminMessage         string                 `json:"admin_message,omitempty"`
	TrackingNumber       string                 `json:"tracking_number,omitempty"`
	EstimatedDelivery    string                 `json:"estimated_delivery,omitempty"`
	ActualDelivery       string                 `json:"actual_delivery,omitempty"`
	ResellerConfirmation bool                   `json:"reseller_confirmation,omitempty"`
	CreatedAt            string                 `json:"created_at"`
	UpdatedAt            string                 `json:"updated_at,omitempty"`
}

type statusLogPayload struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	Notes     string `json:"notes,omitempty"`
	ActionBy  string `json:"action_by,omitempty"`
	CreatedAt string `json:"created_at"`
}

type statusLogListResponse struct {
	Logs []statusLogPayload `json:"logs"`
}

func buildOrderPayload(order services.Order) orderPayload {
	products := make([]orderProductPayload, 0, len(order.Products))
	for _, product := range order.Products {
		pricing := domain.PricingFor(product.Price)
		products = append(products, orderProductPayload{
			ProductID:   strings.TrimSpace(product.ProductID),
			Name:        strings.TrimSpace(product.Name),
			Quantity:    product.Quantity,
			Price:       product.Price,
			RetailPrice: pricing.RetailPrice,
			Commission:  pricing.Commission * int64(product.Quantity),
			Subtotal:    product.Subtotal,
			Weight:      product.Weight,
		})
	}

	return orderPayload{
		ID:              strings.TrimSpace(order.ID),
		OrderNumber:     strings.TrimSpace(order.OrderNumber),
		ResellerID:      strings.TrimSpace(order.ResellerID),
		ResellerName:    strings.TrimSpace(order.ResellerName),
		ResellerEmail:   strings.TrimSpace(order.ResellerEmail),
		ResellerPhone:   strings.TrimSpace(order.ResellerPhone),
		Products:        products,
		TotalAmount:     order.TotalAmount,
		TotalCommission: order.TotalCommission,
		ShippingAddress: shippingAddressPayload{
			Recipient:  strings.TrimSpace(order.ShippingAddress.Recipient),
			Street:     strings.TrimSpace(order.ShippingAddress.Street),
			City:       strings.TrimSpace(order.ShippingAddress.City),
			Province:   strings.TrimSpace(order.ShippingAddress.Province),
			PostalCode: strings.TrimSpace(order.ShippingAddress.PostalCode),
			Phone:      strings.TrimSpace(order.ShippingAddress.Phone),
		},
		Status:               strings.TrimSpace(string(order.Status)),
		PaymentStatus:        strings.TrimSpace(string(order.PaymentStatus)),
		PaymentMethod:        strings.TrimSpace(order.PaymentMethod),
		PaymentProof:         strings.TrimSpace(order.PaymentProof),
		AdminMessage:         strings.TrimSpace(order.AdminMessage),
		TrackingNumber:       strings.TrimSpace(order.TrackingNumber),
		EstimatedDelivery:    formatTime(pointerTime(order.EstimatedDelivery)),
		ActualDelivery:       formatTime(pointerTime(order.ActualDelivery)),
		ResellerConfirmation: order.ResellerConfirmation,
		CreatedAt:            formatTime(order.CreatedAt),
		UpdatedAt:            formatTime(order.UpdatedAt),
	}
}

func buildStatusLogPayload(entry services.OrderStatusLog) statusLogPayload {
	return statusLogPayload{
		ID:        strings.TrimSpace(entry.ID),
		OrderID:   strings.TrimSpace(entry.OrderID),
		Status:    strings.TrimSpace(entry.Status),
		Notes:     strings.TrimSpace(entry.Notes),
		ActionBy:  strings.TrimSpace(entry.ActionBy),
		CreatedAt: formatTime(entry.CreatedAt),
	}
}

func requireIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	case errors.Is(err, errEmptyBody):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrOrderMissingField), errors.Is(err, services.ErrOrderValidation):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound), errors.Is(err, services.ErrOrderUnauthorized):
		// Foreign orders are indistinguishable from missing ones.
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrStoreTimeout):
		httpx.WriteError(ctx, w, httpx.NewError("store_timeout", "order store timed out", http.StatusGatewayTimeout))
	case errors.Is(err, services.ErrStoreUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("store_unavailable", "order store unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}
