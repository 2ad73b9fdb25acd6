package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/Chrilove/projekuas/internal/domain"
	pfirestore "github.com/Chrilove/projekuas/internal/platform/firestore"
	"github.com/Chrilove/projekuas/internal/repositories"
)

const shipmentsCollection = "shipments"

// ShipmentRepository persists shipments in Firestore.
type ShipmentRepository struct {
	provider  *pfirestore.Provider
	shipments *pfirestore.BaseRepository[shipmentDocument]
}

// NewShipmentRepository constructs a Firestore-backed shipment repository.
func NewShipmentRepository(provider *pfirestore.Provider) (*ShipmentRepository, error) {
	if provider == nil {
		return nil, errors.New("shipment repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[shipmentDocument](provider, shipmentsCollection, nil, nil)
	return &ShipmentRepository{provider: provider, shipments: base}, nil
}

// Insert stores a new shipment, enforcing one shipment per order inside a transaction.
func (r *ShipmentRepository) Insert(ctx context.Context, shipment domain.Shipment) error {
	if strings.TrimSpace(shipment.ID) == "" {
		return errors.New("shipment repository: id is required")
	}
	orderID := strings.TrimSpace(shipment.OrderID)
	if orderID == "" {
		return errors.New("shipment repository: order id is required")
	}

	coll, err := r.collection(ctx)
	if err != nil {
		return err
	}

	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		query := coll.Where("orderId", "==", orderID).Limit(1)
		snaps, err := tx.Documents(query).GetAll()
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if len(snaps) > 0 {
			return status.Error(codes.AlreadyExists, fmt.Sprintf("shipment already exists for order %s", orderID))
		}
		return tx.Create(coll.Doc(shipment.ID), newShipmentDocument(shipment))
	})
	if err != nil {
		return pfirestore.WrapError("shipments.insert", err)
	}
	return nil
}

// Update replaces the stored shipment document.
func (r *ShipmentRepository) Update(ctx context.Context, shipment domain.Shipment) error {
	if strings.TrimSpace(shipment.ID) == "" {
		return errors.New("shipment repository: id is required")
	}
	if _, err := r.shipments.Set(ctx, shipment.ID, newShipmentDocument(shipment)); err != nil {
		return pfirestore.WrapError("shipments.update", err)
	}
	return nil
}

// FindByID loads a single shipment.
func (r *ShipmentRepository) FindByID(ctx context.Context, shipmentID string) (domain.Shipment, error) {
	id := strings.TrimSpace(shipmentID)
	if id == "" {
		return domain.Shipment{}, errors.New("shipment repository: id is required")
	}
	doc, err := r.shipments.Get(ctx, id)
	if err != nil {
		return domain.Shipment{}, pfirestore.WrapError("shipments.get", err)
	}
	return doc.Data.toDomain(doc.ID), nil
}

// FindByOrderID loads the shipment created for the given order.
func (r *ShipmentRepository) FindByOrderID(ctx context.Context, orderID string) (domain.Shipment, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return domain.Shipment{}, errors.New("shipment repository: order id is required")
	}
	return r.findOne(ctx, "shipments.find_by_order", "orderId", id,
		fmt.Sprintf("no shipment for order %s", id))
}

// FindByTracking loads the shipment carrying the given tracking number.
func (r *ShipmentRepository) FindByTracking(ctx context.Context, trackingNumber string) (domain.Shipment, error) {
	tracking := strings.TrimSpace(trackingNumber)
	if tracking == "" {
		return domain.Shipment{}, errors.New("shipment repository: tracking number is required")
	}
	return r.findOne(ctx, "shipments.find_by_tracking", "trackingNumber", tracking,
		fmt.Sprintf("no shipment with tracking %s", tracking))
}

// List returns shipments matching the filter ordered by creation time descending.
func (r *ShipmentRepository) List(ctx context.Context, filter repositories.ShipmentFilter) ([]domain.Shipment, error) {
	docs, err := r.shipments.Query(ctx, func(query firestore.Query) firestore.Query {
		if reseller := strings.TrimSpace(filter.ResellerID); reseller != "" {
			query = query.Where("resellerId", "==", reseller)
		}
		if filter.Status != "" {
			query = query.Where("status", "==", string(filter.Status))
		}
		query = query.OrderBy("createdAt", firestore.Desc)
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		return query
	})
	if err != nil {
		return nil, pfirestore.WrapError("shipments.list", err)
	}

	shipments := make([]domain.Shipment, 0, len(docs))
	for _, doc := range docs {
		shipments = append(shipments, doc.Data.toDomain(doc.ID))
	}
	return shipments, nil
}

// Delete removes the shipment document.
func (r *ShipmentRepository) Delete(ctx context.Context, shipmentID string) error {
	id := strings.TrimSpace(shipmentID)
	if id == "" {
		return errors.New("shipment repository: id is required")
	}
	ref, err := r.shipments.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return pfirestore.WrapError("shipments.delete", err)
	}
	return nil
}

func (r *ShipmentRepository) findOne(ctx context.Context, op, field, value, missing string) (domain.Shipment, error) {
	docs, err := r.shipments.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.Where(field, "==", value).Limit(1)
	})
	if err != nil {
		return domain.Shipment{}, pfirestore.WrapError(op, err)
	}
	if len(docs) == 0 {
		return domain.Shipment{}, notFoundError(op, missing)
	}
	return docs[0].Data.toDomain(docs[0].ID), nil
}

func (r *ShipmentRepository) collection(ctx context.Context) (*firestore.CollectionRef, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("shipment repository not initialised")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(shipmentsCollection), nil
}

type shipmentDocument struct {
	ShipmentNumber    string                 `firestore:"shipmentNumber"`
	TrackingNumber    string                 `firestore:"trackingNumber"`
	OrderID           string                 `firestore:"orderId"`
	OrderNumber       string                 `firestore:"orderNumber"`
	ResellerID        string                 `firestore:"resellerId"`
	CustomerName      string                 `firestore:"customerName"`
	CustomerAddress   string                 `firestore:"customerAddress"`
	CustomerPhone     string                 `firestore:"customerPhone"`
	Items             []orderProductDocument `firestore:"items"`
	TotalWeight       float64                `firestore:"totalWeight"`
	Courier           string                 `firestore:"courier"`
	Service           string                 `firestore:"service"`
	ShippingCost      int64                  `firestore:"shippingCost"`
	EstimatedDays     string                 `firestore:"estimatedDays"`
	Notes             string                 `firestore:"notes"`
	Status            string                 `firestore:"status"`
	EstimatedDelivery *time.Time             `firestore:"estimatedDelivery"`
	ActualDelivery    *time.Time             `firestore:"actualDelivery"`
	CreatedAt         time.Time              `firestore:"createdAt"`
	UpdatedAt         time.Time              `firestore:"updatedAt"`
}

func newShipmentDocument(shipment domain.Shipment) shipmentDocument {
	items := make([]orderProductDocument, 0, len(shipment.Items))
	for _, item := range shipment.Items {
		items = append(items, orderProductDocument(item))
	}
	return shipmentDocument{
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
		Courier:           shipment.Courier,
		Service:           shipment.Service,
		ShippingCost:      shipment.ShippingCost,
		EstimatedDays:     shipment.EstimatedDays,
		Notes:             shipment.Notes,
		Status:            string(shipment.Status),
		EstimatedDelivery: utcOrNil(shipment.EstimatedDelivery),
		ActualDelivery:    utcOrNil(shipment.ActualDelivery),
		CreatedAt:         shipment.CreatedAt.UTC(),
		UpdatedAt:         shipment.UpdatedAt.UTC(),
	}
}

func (d shipmentDocument) toDomain(id string) domain.Shipment {
	items := make([]domain.OrderProduct, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.OrderProduct(item))
	}
	return domain.Shipment{
		ID:                id,
		ShipmentNumber:    d.ShipmentNumber,
		TrackingNumber:    d.TrackingNumber,
		OrderID:           d.OrderID,
		OrderNumber:       d.OrderNumber,
		ResellerID:        d.ResellerID,
		CustomerName:      d.CustomerName,
		CustomerAddress:   d.CustomerAddress,
		CustomerPhone:     d.CustomerPhone,
		Items:             items,
		TotalWeight:       d.TotalWeight,
		Courier:           d.Courier,
		Service:           d.Service,
		ShippingCost:      d.ShippingCost,
		EstimatedDays:     d.EstimatedDays,
		Notes:             d.Notes,
		Status:            domain.ShipmentStatus(d.Status),
		EstimatedDelivery: d.EstimatedDelivery,
		ActualDelivery:    d.ActualDelivery,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

// Ensure interface compliance.
var _ repositories.ShipmentRepository = (*ShipmentRepository)(nil)
