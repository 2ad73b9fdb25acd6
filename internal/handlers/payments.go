package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/Chrilove/projekuas/internal/domain"
	"github.com/Chrilove/projekuas/internal/platform/auth"
	"github.com/Chrilove/projekuas/internal/platform/httpx"
	"github.com/Chrilove/projekuas/internal/services"
)

// PaymentHandlers exposes the reseller-facing payment transaction endpoints.
// Recording and moderating transactions is an admin concern; resellers only
// read their own history.
type PaymentHandlers struct {
	authn    *auth.Authenticator
	payments services.PaymentService
}

// NewPaymentHandlers constructs a new PaymentHandlers instance.
func NewPaymentHandlers(authn *auth.Authenticator, payments services.PaymentService) *PaymentHandlers {
	return &PaymentHandlers{
		authn:    authn,
		payments: payments,
	}
}

// Routes registers the /payments endpoints.
func (h *PaymentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleReseller, auth.RoleAdmin))
	}
	r.Get("/", h.listPayments)
}

func (h *PaymentHandlers) listPayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
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
		ResellerID: strings.TrimSpace(identity.UID),
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
