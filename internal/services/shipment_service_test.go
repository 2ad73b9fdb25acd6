package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/Chrilove/projekuas/internal/domain"
	"github.com/Chrilove/projekuas/internal/repositories"
)

type stubShipmentRepository struct {
	mu        sync.Mutex
	shipments map[string]domain.Shipment
	byOrder   map[string]string
	deleted   []string
}

func newStubShipmentRepository(seed ...domain.Shipment) *stubShipmentRepository {
	repo := &stubShipmentRepository{
		shipments: map[string]domain.Shipment{},
		byOrder:   map[string]string{},
	}
	for _, shipment := range seed {
		repo.shipments[shipment.ID] = shipment
		repo.byOrder[shipment.OrderID] = shipment.ID
	}
	return repo
}

func (s *stubShipmentRepository) Insert(_ context.Context, shipment domain.Shipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byOrder[shipment.OrderID]; exists {
		return stubRepoError{conflict: true}
	}
	s.shipments[shipment.ID] = shipment
	s.byOrder[shipment.OrderID] = shipment.ID
	return nil
}

func (s *stubShipmentRepository) Update(_ context.Context, shipment domain.Shipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shipments[shipment.ID]; !ok {
		return stubRepoError{notFound: true}
	}
	s.shipments[shipment.ID] = shipment
	return nil
}

func (s *stubShipmentRepository) FindByID(_ context.Context, shipmentID string) (domain.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shipment, ok := s.shipments[shipmentID]
	if !ok {
		return domain.Shipment{}, stubRepoError{notFound: true}
	}
	return shipment, nil
}

func (s *stubShipmentRepository) FindByOrderID(_ context.Context, orderID string) (domain.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byOrder[orderID]
	if !ok {
		return domain.Shipment{}, stubRepoError{notFound: true}
	}
	return s.shipments[id], nil
}

func (s *stubShipmentRepository) FindByTracking(_ context.Context, trackingNumber string) (domain.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, shipment := range s.shipments {
		if shipment.TrackingNumber == trackingNumber {
			return shipment, nil
		}
	}
	return domain.Shipment{}, stubRepoError{notFound: true}
}

func (s *stubShipmentRepository) List(_ context.Context, filter repositories.ShipmentFilter) ([]domain.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Shipment
	for _, shipment := range s.shipments {
		if filter.ResellerID != "" && shipment.ResellerID != filter.ResellerID {
			continue
		}
		if filter.Status != "" && shipment.Status != filter.Status {
			continue
		}
		result = append(result, shipment)
	}
	return result, nil
}

func (s *stubShipmentRepository) Delete(_ context.Context, shipmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	shipment, ok := s.shipments[shipmentID]
	if !ok {
		return stubRepoError{notFound: true}
	}
	delete(s.shipments, shipmentID)
	delete(s.byOrder, shipment.OrderID)
	s.deleted = append(s.deleted, shipmentID)
	return nil
}

func newTestShipmentService(t *testing.T, repo repositories.ShipmentRepository) ShipmentService {
	t.Helper()
	clock := fixedClock(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))
	svc, err := NewShipmentService(ShipmentServiceDeps{
		Shipments:   repo,
		Clock:       clock,
		IDGenerator: sequentialIDs("01SHP"),
		Numbers: NewNumberGenerator(
			WithNumberClock(clock),
			WithNumberRand(func(int) int { return 0 }),
		),
	})
	if err != nil {
		t.Fatalf("new shipment service: %v", err)
	}
	return svc
}

func shippedOrder() Order {
	return Order{
		ID:            "ord_1",
		OrderNumber:   "ORD000001AAA",
		ResellerID:    "rsl_1",
		ResellerName:  "Toko Berkah",
		ResellerPhone: "0812999888",
		Products: []OrderProduct{
			{ProductID: "prd_1", Quantity: 2, Weight: 0.2},
			{ProductID: "prd_2", Quantity: 1, Weight: 0.1},
		},
		ShippingAddress: ShippingAddress{
			Street:     "Jl. Melati 5",
			City:       "Bandung",
			Province:   "Jawa Barat",
			PostalCode: "40111",
			Phone:      "0812000111",
		},
		Status: domain.OrderStatusShipped,
	}
}

func TestShipmentServiceCreateFromOrderAppliesDefaults(t *testing.T) {
	repo := newStubShipmentRepository()
	svc := newTestShipmentService(t, repo)

	shipment, err := svc.CreateFromOrder(context.Background(), shippedOrder(), ShippingDetails{})
	if err != nil {
		t.Fatalf("create from order: %v", err)
	}
	if !strings.HasPrefix(shipment.ID, "shp_") {
		t.Errorf("expected shp_ id prefix, got %s", shipment.ID)
	}
	if !strings.HasPrefix(shipment.ShipmentNumber, "SHP") {
		t.Errorf("expected SHP number prefix, got %s", shipment.ShipmentNumber)
	}
	if !strings.HasPrefix(shipment.TrackingNumber, "SHIP2026") {
		t.Errorf("expected SHIP2026 tracking prefix, got %s", shipment.TrackingNumber)
	}
	if shipment.Courier != "JNE" || shipment.Service != "REG" || shipment.EstimatedDays != "2-3 hari" {
		t.Errorf("expected courier defaults, got %+v", shipment)
	}
	if shipment.Status != domain.ShipmentStatusPreparing {
		t.Errorf("expected preparing status, got %s", shipment.Status)
	}
	// 2*0.2 + 1*0.1 rounds up to the 1kg minimum chargeable weight.
	if shipment.TotalWeight != 1 {
		t.Errorf("expected minimum weight 1, got %v", shipment.TotalWeight)
	}
	if !strings.Contains(shipment.CustomerAddress, "Bandung") {
		t.Errorf("expected address line to carry city, got %q", shipment.CustomerAddress)
	}
	if shipment.CustomerPhone != "0812999888" {
		t.Errorf("expected reseller phone on shipment, got %q", shipment.CustomerPhone)
	}
}

func TestShipmentServiceCreateFromOrderFallsBackToAddressPhone(t *testing.T) {
	svc := newTestShipmentService(t, newStubShipmentRepository())

	order := shippedOrder()
	order.ResellerPhone = ""
	shipment, err := svc.CreateFromOrder(context.Background(), order, ShippingDetails{})
	if err != nil {
		t.Fatalf("create from order: %v", err)
	}
	if shipment.CustomerPhone != "0812000111" {
		t.Errorf("expected address phone fallback, got %q", shipment.CustomerPhone)
	}
}

func TestShipmentServiceCreateFromOrderIsIdempotentPerOrder(t *testing.T) {
	repo := newStubShipmentRepository()
	svc := newTestShipmentService(t, repo)
	ctx := context.Background()

	first, err := svc.CreateFromOrder(ctx, shippedOrder(), ShippingDetails{})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := svc.CreateFromOrder(ctx, shippedOrder(), ShippingDetails{})
	if err != nil {
		t.Fatalf("second create must return the existing shipment: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected the same shipment back, got %s and %s", first.ID, second.ID)
	}
	if len(repo.shipments) != 1 {
		t.Errorf("expected a single stored shipment, got %d", len(repo.shipments))
	}
}

func TestShipmentServiceCreateFromOrderHonoursDetails(t *testing.T) {
	svc := newTestShipmentService(t, newStubShipmentRepository())

	eta := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	shipment, err := svc.CreateFromOrder(context.Background(), shippedOrder(), ShippingDetails{
		Courier:           "SiCepat",
		Service:           "BEST",
		Cost:              22_000,
		EstimatedDays:     "1-2 hari",
		EstimatedDelivery: &eta,
	})
	if err != nil {
		t.Fatalf("create from order: %v", err)
	}
	if shipment.Courier != "SiCepat" || shipment.Service != "BEST" || shipment.ShippingCost != 22_000 {
		t.Errorf("expected supplied details kept, got %+v", shipment)
	}
	if shipment.EstimatedDelivery == nil || !shipment.EstimatedDelivery.Equal(eta) {
		t.Errorf("expected estimated delivery kept, got %v", shipment.EstimatedDelivery)
	}
}

func TestShipmentServiceUpdateStatusDeliveredStampsActualDelivery(t *testing.T) {
	repo := newStubShipmentRepository(domain.Shipment{ID: "shp_1", OrderID: "ord_1", Status: domain.ShipmentStatusInTransit})
	svc := newTestShipmentService(t, repo)

	shipment, err := svc.UpdateStatus(context.Background(), UpdateShipmentStatusCommand{
		ShipmentID: "shp_1",
		NextStatus: domain.ShipmentStatusDelivered,
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if shipment.Status != domain.ShipmentStatusDelivered {
		t.Errorf("expected delivered, got %s", shipment.Status)
	}
	if shipment.ActualDelivery == nil {
		t.Error("expected actual delivery timestamp")
	}
}

func TestShipmentServiceUpdateStatusCancels(t *testing.T) {
	repo := newStubShipmentRepository(domain.Shipment{ID: "shp_1", OrderID: "ord_1", Status: domain.ShipmentStatusPreparing})
	svc := newTestShipmentService(t, repo)

	shipment, err := svc.UpdateStatus(context.Background(), UpdateShipmentStatusCommand{
		ShipmentID: "shp_1",
		NextStatus: domain.ShipmentStatusCancelled,
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if shipment.Status != domain.ShipmentStatusCancelled {
		t.Errorf("expected cancelled, got %s", shipment.Status)
	}
}

func TestShipmentServiceUpdateStatusRejectsUnknown(t *testing.T) {
	svc := newTestShipmentService(t, newStubShipmentRepository())

	_, err := svc.UpdateStatus(context.Background(), UpdateShipmentStatusCommand{
		ShipmentID: "shp_1",
		NextStatus: domain.ShipmentStatus("lost"),
	})
	if !errors.Is(err, ErrShipmentValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestShipmentServiceStats(t *testing.T) {
	repo := newStubShipmentRepository(
		domain.Shipment{ID: "s1", OrderID: "o1", Status: domain.ShipmentStatusPreparing, ShippingCost: 10_000},
		domain.Shipment{ID: "s2", OrderID: "o2", Status: domain.ShipmentStatusInTransit, ShippingCost: 15_000},
		domain.Shipment{ID: "s3", OrderID: "o3", Status: domain.ShipmentStatusDelivered, ShippingCost: 20_000},
		domain.Shipment{ID: "s4", OrderID: "o4", Status: domain.ShipmentStatusCancelled, ShippingCost: 5_000},
	)
	svc := newTestShipmentService(t, repo)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 4 || stats.Preparing != 1 || stats.InTransit != 1 || stats.Delivered != 1 || stats.Cancelled != 1 {
		t.Errorf("unexpected counts %+v", stats)
	}
	if stats.TotalCost != 50_000 {
		t.Errorf("expected total cost 50000, got %d", stats.TotalCost)
	}
}

func TestShipmentServiceGetByTracking(t *testing.T) {
	repo := newStubShipmentRepository(domain.Shipment{ID: "shp_1", OrderID: "ord_1", TrackingNumber: "SHIP2026000001AAAA"})
	svc := newTestShipmentService(t, repo)

	shipment, err := svc.GetByTracking(context.Background(), "SHIP2026000001AAAA")
	if err != nil {
		t.Fatalf("get by tracking: %v", err)
	}
	if shipment.ID != "shp_1" {
		t.Errorf("expected shp_1, got %s", shipment.ID)
	}

	if _, err := svc.GetByTracking(context.Background(), "SHIP404"); !errors.Is(err, ErrShipmentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
