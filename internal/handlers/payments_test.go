package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/Chrilove/projekuas/internal/domain"
	"github.com/Chrilove/projekuas/internal/services"
)

func newPaymentRouter(h *PaymentHandlers) chi.Router {
	r := chi.NewRouter()
	r.Route("/payments", h.Routes)
	return r
}

func TestListPaymentsScopesToIdentity(t *testing.T) {
	var captured services.PaymentListFilter
	svc := &stubPaymentService{
		listFn: func(_ context.Context, filter services.PaymentListFilter) ([]services.PaymentTransaction, error) {
			captured = filter
			return []services.PaymentTransaction{sampleHandlerPayment()}, nil
		},
	}
	router := newPaymentRouter(NewPaymentHandlers(nil, svc))

	rr := doRequest(t, router, http.MethodGet, "/payments/?status=success", nil, resellerIdentity("uid-1"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.ResellerID != "uid-1" {
		t.Errorf("expected list scoped to reseller, got %q", captured.ResellerID)
	}
	if captured.Status != domain.TransactionStatusSuccess {
		t.Errorf("expected success filter, got %q", captured.Status)
	}

	var response paymentListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if len(response.Payments) != 1 {
		t.Fatalf("expected one payment, got %d", len(response.Payments))
	}
}

func TestListPaymentsRequiresIdentity(t *testing.T) {
	router := newPaymentRouter(NewPaymentHandlers(nil, &stubPaymentService{}))

	rr := doRequest(t, router, http.MethodGet, "/payments/", nil, nil)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestListPaymentsRejectsBadLimit(t *testing.T) {
	router := newPaymentRouter(NewPaymentHandlers(nil, &stubPaymentService{}))

	rr := doRequest(t, router, http.MethodGet, "/payments/?limit=abc", nil, resellerIdentity("uid-1"))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}
