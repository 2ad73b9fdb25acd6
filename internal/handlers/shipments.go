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
	"github.com/Chrilove/projekuas/internal/services"
)

// ShipmentHandlers exposes reseller-facing shipment tracking endpoints.
type ShipmentHandlers struct {
	authn     *auth.Authenticator
	shipments services.ShipmentService
}

// NewShipmentHandlers constructs a new ShipmentHandlers instance.
func NewShipmentHandlers(authn *auth.Authenticator, shipments services.ShipmentService) *ShipmentHandlers {
	return &ShipmentHandlers{
		authn:     authn,
		shipments: shipments,
	}
}

// Routes registers the /shipments endpoints.
func (h *ShipmentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleReseller, auth.RoleAdmin))
	}
	r.Get("/", h.listShipments)
	r.Get("/track/{trackingNumber}", h.trackShipment)
}

func (h *ShipmentHandlers) listShipments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
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
		ResellerID: strings.TrimSpace(identity.UID),
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

func (h *ShipmentHandlers) trackShipment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	if h.shipments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipment_service_unavailable", "shipment service unavailable", http.StatusServiceUnavailable))
		return
	}

	trackingNumber := strings.TrimSpace(chi.URLParam(r, "trackingNumber"))
	if trackingNumber == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "tracking number is required", http.StatusBadRequest))
		return
	}

	shipment, err := h.shipments.GetByTracking(ctx, trackingNumber)
	if err != nil {
		writeShipmentError(ctx, w, err)
		return
	}

	if !identity.HasRole(auth.RoleAdmin) && !strings.EqualFold(strings.TrimSpace(shipment.ResellerID), strings.TrimSpace(identity.UID)) {
		httpx.WriteError(ctx, w, httpx.NewError("shipment_not_found", "shipment not found", http.StatusNotFound))
		return
	}

	writeJSONResponse(w, http.StatusOK, shipmentResponse{Shipment: buildShipmentPayload(shipment)})
}

type shipmentListResponse struct {
	Shipments []shipmentPayload `json:"shipments"`
}

type shipmentResponse struct {
	Shipment shipmentPayload `json:"shipment"`
}

type shipmentPayload struct {
	ID                string                `json:"id"`
	ShipmentNumber    string                `json:"shipment_number"`
	TrackingNumber    string                `json:"tracking_number"`
	OrderID           string                `json:"order_id"`
	OrderNumber       string                `json:"order_number,omitempty"`
	ResellerID        string                `json:"reseller_id,omitempty"`
	CustomerName      string                `json:"customer_name,omitempty"`
	CustomerAddress   string                `json:"customer_address,omitempty"`
	CustomerPhone     string                `json:"customer_phone,omitempty"`
	Items             []orderProductPayload `json:"items,omitempty"`
	TotalWeight       float64               `json:"total_weight,omitempty"`
	Courier           string                `json:"courier"`
	Service           string                `json:"service,omitempty"`
	ShippingCost      int64                 `json:"shipping_cost,omitempty"`
	EstimatedDays     string                `json:"estimated_days,omitempty"`
	Notes             string                `json:"notes,omitempty"`
	Status            string                `json:"status"`
	EstimatedDelivery string                `json:"estimated_delivery,omitempty"`
	ActualDelivery    string                `json:"actual_delivery,omitempty"`
	CreatedAt         string                `json:"created_at"`
	UpdatedAt         string                `json:"updated_at,omitempty"`
}

func buildShipmentPayload(shipment services.Shipment) shipmentPayload {
	var items []orderProductPayload
	if len(shipment.Items) > 0 {
		items = make([]orderProductPayload, 0, len(shipment.Items))
		for _, item := range shipment.Items {
			items = append(items, orderProductPayload{
				ProductID: strings.TrimSpace(item.ProductID),
				Name:      strings.TrimSpace(item.Name),
				Quantity:  item.Quantity,
				Price:     item.Price,
				Subtotal:  item.Subtotal,
				Weight:    item.Weight,
			})
		}
	}

	return shipmentPayload{
		ID:                strings.TrimSpace(shipment.ID),
		ShipmentNumber:    strings.TrimSpace(shipment.ShipmentNumber),
		TrackingNumber:    strings.TrimSpace(shipment.TrackingNumber),
		OrderID:           strings.TrimSpace(shipment.OrderID),
		OrderNumber:       strings.TrimSpace(shipment.OrderNumber),
		ResellerID:        strings.TrimSpace(shipment.ResellerID),
		CustomerName:      strings.TrimSpace(shipment.CustomerName),
		CustomerAddress:   strings.TrimSpace(shipment.CustomerAddress),
		CustomerPhone:     strings.TrimSpace(shipment.CustomerPhone),
		Items:             items,
		TotalWeight:       shipment.TotalWeight,
		Courier:           strings.TrimSpace(shipment.Courier),
		Service:           strings.TrimSpace(shipment.Service),
		ShippingCost:      shipment.ShippingCost,
		EstimatedDays:     strings.TrimSpace(shipment.EstimatedDays),
		Notes:             strings.TrimSpace(shipment.Notes),
		Status:            strings.TrimSpace(string(shipment.Status)),
		EstimatedDelivery: formatTime(pointerTime(shipment.EstimatedDelivery)),
		ActualDelivery:    formatTime(pointerTime(shipment.ActualDelivery)),
		CreatedAt:         formatTime(shipment.CreatedAt),
		UpdatedAt:         formatTime(shipment.UpdatedAt),
	}
}

func writeShipmentError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrShipmentMissingField), errors.Is(err, services.ErrShipmentValidation):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrShipmentNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("shipment_not_found", "shipment not found", http.StatusNotFound))
	case errors.Is(err, services.ErrShipmentConflict):
		httpx.WriteError(ctx, w, httpx.NewError("shipment_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrStoreTimeout):
		httpx.WriteError(ctx, w, httpx.NewError("store_timeout", "shipment store timed out", http.StatusGatewayTimeout))
	case errors.Is(err, services.ErrStoreUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("store_unavailable", "shipment store unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("shipment_error", "failed to process shipment request", http.StatusInternalServerError))
	}
}
