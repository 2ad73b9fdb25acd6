package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/Chrilove/projekuas/internal/domain"
	"github.com/Chrilove/projekuas/internal/platform/textutil"
	"github.com/Chrilove/projekuas/internal/repositories"
)

const (
	shipmentIDPrefix = "shp_"

	defaultCourier       = "JNE"
	defaultService       = "REG"
	defaultEstimatedDays = "2-3 hari"
)

var (
	// ErrShipmentMissingField signals a required input was absent.
	ErrShipmentMissingField = errors.New("shipment: missing required field")
	// ErrShipmentValidation signals the caller provided data that failed validation.
	ErrShipmentValidation = errors.New("shipment: validation failed")
	// ErrShipmentNotFound indicates the shipment could not be located.
	ErrShipmentNotFound = errors.New("shipment: not found")
	// ErrShipmentConflict indicates duplicates or concurrent modification.
	ErrShipmentConflict = errors.New("shipment: conflict")
)

// ShipmentServiceDeps bundles collaborators required to construct the shipment service.
type ShipmentServiceDeps struct {
	Shipments    repositories.ShipmentRepository
	Numbers      *NumberGenerator
	Clock        func() time.Time
	IDGenerator  func() string
	Logger       func(ctx context.Context, event string, fields map[string]any)
	StoreTimeout time.Duration
}

type shipmentService struct {
	shipments    repositories.ShipmentRepository
	numbers      *NumberGenerator
	clock        func() time.Time
	newID        func() string
	logger       func(context.Context, string, map[string]any)
	storeTimeout time.Duration
}

// NewShipmentService wires dependencies into a concrete ShipmentService implementation.
func NewShipmentService(deps ShipmentServiceDeps) (ShipmentService, error) {
	if deps.Shipments == nil {
		return nil, errors.New("shipment service: shipment repository is required")
	}

	numbers := deps.Numbers
	if numbers == nil {
		numbers = NewNumberGenerator()
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &shipmentService{
		shipments: deps.Shipments,
		numbers:   numbers,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:        idGen,
		logger:       logger,
		storeTimeout: deps.StoreTimeout,
	}, nil
}

// CreateFromOrder materialises a shipment for a shipped order. Creation is
// idempotent per order: a duplicate attempt returns the existing shipment.
func (s *shipmentService) CreateFromOrder(ctx context.Context, order Order, details ShippingDetails) (Shipment, error) {
	if strings.TrimSpace(order.ID) == "" {
		return Shipment{}, fmt.Errorf("%w: order id", ErrShipmentMissingField)
	}

	courier := strings.TrimSpace(details.Courier)
	if courier == "" {
		courier = defaultCourier
	}
	service := strings.TrimSpace(details.Service)
	if service == "" {
		service = defaultService
	}
	estimatedDays := strings.TrimSpace(details.EstimatedDays)
	if estimatedDays == "" {
		estimatedDays = defaultEstimatedDays
	}

	var totalWeight float64
	for _, product := range order.Products {
		totalWeight += product.Weight * float64(product.Quantity)
	}
	if totalWeight < 1 {
		totalWeight = 1
	}

	address := order.ShippingAddress
	addressLine := strings.TrimSpace(strings.Join([]string{
		address.Street, address.City, address.Province, address.PostalCode,
	}, ", "))

	// The reseller's own phone is preferred; the address phone belongs to the recipient.
	phone := strings.TrimSpace(order.ResellerPhone)
	if phone == "" {
		phone = address.Phone
	}

	now := s.clock()
	shipment := Shipment{
		ID:                shipmentIDPrefix + s.newID(),
		ShipmentNumber:    s.numbers.ShipmentNumber(),
		TrackingNumber:    s.numbers.TrackingNumber(),
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		ResellerID:        order.ResellerID,
		CustomerName:      order.ResellerName,
		CustomerAddress:   addressLine,
		CustomerPhone:     phone,
		Items:             order.Products,
		TotalWeight:       totalWeight,
		Courier:           courier,
		Service:           service,
		ShippingCost:      details.Cost,
		EstimatedDays:     estimatedDays,
		Notes:             textutil.Sanitize(details.Notes),
		Status:            domain.ShipmentStatusPreparing,
		EstimatedDelivery: details.EstimatedDelivery,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if err := s.shipments.Insert(sctx, shipment); err != nil {
		mapped := s.mapRepositoryError(err)
		if !errors.Is(mapped, ErrShipmentConflict) {
			return Shipment{}, mapped
		}
		existing, findErr := s.shipments.FindByOrderID(sctx, order.ID)
		if findErr != nil {
			return Shipment{}, s.mapRepositoryError(findErr)
		}
		s.logger(ctx, "shipment.create.duplicate", map[string]any{
			"order":    order.ID,
			"shipment": existing.ID,
		})
		return existing, nil
	}

	s.logger(ctx, "shipment.created", map[string]any{
		"shipment": shipment.ID,
		"order":    order.ID,
		"tracking": shipment.TrackingNumber,
	})
	return shipment, nil
}

func (s *shipmentService) UpdateStatus(ctx context.Context, cmd UpdateShipmentStatusCommand) (Shipment, error) {
	shipmentID := strings.TrimSpace(cmd.ShipmentID)
	if shipmentID == "" {
		return Shipment{}, fmt.Errorf("%w: shipment id", ErrShipmentMissingField)
	}
	if !domain.ValidShipmentStatus(cmd.NextStatus) {
		return Shipment{}, fmt.Errorf("%w: unknown shipment status %q", ErrShipmentValidation, cmd.NextStatus)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	shipment, err := s.shipments.FindByID(sctx, shipmentID)
	if err != nil {
		return Shipment{}, s.mapRepositoryError(err)
	}

	now := s.clock()
	shipment.Status = cmd.NextStatus
	shipment.UpdatedAt = now
	if notes := textutil.Sanitize(cmd.Notes); notes != "" {
		shipment.Notes = notes
	}
	if cmd.EstimatedDelivery != nil {
		shipment.EstimatedDelivery = cmd.EstimatedDelivery
	}
	if cmd.NextStatus == domain.ShipmentStatusDelivered {
		shipment.ActualDelivery = &now
	}

	if err := s.shipments.Update(sctx, shipment); err != nil {
		return Shipment{}, s.mapRepositoryError(err)
	}
	return shipment, nil
}

func (s *shipmentService) Get(ctx context.Context, shipmentID string) (Shipment, error) {
	shipmentID = strings.TrimSpace(shipmentID)
	if shipmentID == "" {
		return Shipment{}, fmt.Errorf("%w: shipment id", ErrShipmentMissingField)
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	shipment, err := s.shipments.FindByID(sctx, shipmentID)
	if err != nil {
		return Shipment{}, s.mapRepositoryError(err)
	}
	return shipment, nil
}

func (s *shipmentService) GetByTracking(ctx context.Context, trackingNumber string) (Shipment, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return Shipment{}, fmt.Errorf("%w: tracking number", ErrShipmentMissingField)
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	shipment, err := s.shipments.FindByTracking(sctx, trackingNumber)
	if err != nil {
		return Shipment{}, s.mapRepositoryError(err)
	}
	return shipment, nil
}

func (s *shipmentService) List(ctx context.Context, filter ShipmentListFilter) ([]Shipment, error) {
	if filter.Status != "" && !domain.ValidShipmentStatus(filter.Status) {
		return nil, fmt.Errorf("%w: unknown shipment status %q", ErrShipmentValidation, filter.Status)
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	shipments, err := s.shipments.List(sctx, filter)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return shipments, nil
}

func (s *shipmentService) Stats(ctx context.Context) (domain.ShipmentStatistics, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	shipments, err := s.shipments.List(sctx, repositories.ShipmentFilter{})
	if err != nil {
		return domain.ShipmentStatistics{}, s.mapRepositoryError(err)
	}

	var stats domain.ShipmentStatistics
	stats.Total = len(shipments)
	for _, shipment := range shipments {
		switch shipment.Status {
		case domain.ShipmentStatusPreparing:
			stats.Preparing++
		case domain.ShipmentStatusInTransit:
			stats.InTransit++
		case domain.ShipmentStatusDelivered:
			stats.Delivered++
		case domain.ShipmentStatusReturned:
			stats.Returned++
		case domain.ShipmentStatusCancelled:
			stats.Cancelled++
		}
		stats.TotalCost += shipment.ShippingCost
	}
	return stats, nil
}

func (s *shipmentService) Delete(ctx context.Context, shipmentID string) error {
	shipmentID = strings.TrimSpace(shipmentID)
	if shipmentID == "" {
		return fmt.Errorf("%w: shipment id", ErrShipmentMissingField)
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.shipments.Delete(sctx, shipmentID); err != nil {
		return s.mapRepositoryError(err)
	}
	s.logger(ctx, "shipment.deleted", map[string]any{"shipment": shipmentID})
	return nil
}

func (s *shipmentService) mapRepositoryError(err error) error {
	return mapStoreError(err, ErrShipmentNotFound, ErrShipmentConflict)
}

func (s *shipmentService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}
