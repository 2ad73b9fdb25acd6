package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/Chrilove/projekuas/internal/domain"
	pfirestore "github.com/Chrilove/projekuas/internal/platform/firestore"
	"github.com/Chrilove/projekuas/internal/repositories"
)

const ordersCollection = "orders"

// OrderRepository persists orders in Firestore.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil)
	return &OrderRepository{provider: provider, orders: base}, nil
}

// Insert stores a new order document under its pre-assigned ID.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order repository: id is required")
	}
	ref, err := r.orders.DocumentRef(ctx, order.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, newOrderDocument(order)); err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

// Update replaces the stored order document.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order repository: id is required")
	}
	if _, err := r.orders.Set(ctx, order.ID, newOrderDocument(order)); err != nil {
		return pfirestore.WrapError("orders.update", err)
	}
	return nil
}

// FindByID loads a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return domain.Order{}, errors.New("order repository: id is required")
	}
	doc, err := r.orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.get", err)
	}
	return doc.Data.toDomain(doc.ID), nil
}

// List returns orders matching the filter ordered by creation time descending.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderFilter) ([]domain.Order, error) {
	docs, err := r.orders.Query(ctx, func(query firestore.Query) firestore.Query {
		if reseller := strings.TrimSpace(filter.ResellerID); reseller != "" {
			query = query.Where("resellerId", "==", reseller)
		}
		if filter.Status != "" {
			query = query.Where("status", "==", string(filter.Status))
		}
		if filter.PaymentStatus != "" {
			query = query.Where("paymentStatus", "==", string(filter.PaymentStatus))
		}
		query = query.OrderBy("createdAt", firestore.Desc)
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		return query
	})
	if err != nil {
		return nil, pfirestore.WrapError("orders.list", err)
	}

	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, doc.Data.toDomain(doc.ID))
	}
	return orders, nil
}

// Delete removes the order document.
func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return errors.New("order repository: id is required")
	}
	ref, err := r.orders.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return pfirestore.WrapError("orders.delete", err)
	}
	return nil
}

// BatchUpdate applies partial updates to multiple orders in a single bulk write.
func (r *OrderRepository) BatchUpdate(ctx context.Context, updates []repositories.OrderBatchUpdate, updatedAt time.Time) error {
	if len(updates) == 0 {
		return nil
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}

	writer := client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(updates))
	for _, update := range updates {
		id := strings.TrimSpace(update.OrderID)
		if id == "" {
			writer.End()
			return errors.New("order repository: batch update requires order id")
		}

		fields := []firestore.Update{{Path: "updatedAt", Value: updatedAt.UTC()}}
		if update.Status != nil {
			fields = append(fields, firestore.Update{Path: "status", Value: string(*update.Status)})
		}
		if update.PaymentStatus != nil {
			fields = append(fields, firestore.Update{Path: "paymentStatus", Value: string(*update.PaymentStatus)})
		}
		if update.AdminMessage != nil {
			fields = append(fields, firestore.Update{Path: "adminMessage", Value: *update.AdminMessage})
		}

		job, err := writer.Update(client.Collection(ordersCollection).Doc(id), fields)
		if err != nil {
			writer.End()
			return pfirestore.WrapError("orders.batch_update", err)
		}
		jobs = append(jobs, job)
	}
	writer.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return pfirestore.WrapError("orders.batch_update", err)
		}
	}
	return nil
}

// Search scans recent orders and matches the folded query against number, name, and email.
// Substring search has no store-side predicate, so the scan is bounded by limit.
func (r *OrderRepository) Search(ctx context.Context, match func(domain.Order) bool, limit int) ([]domain.Order, error) {
	if match == nil {
		return nil, errors.New("order repository: match function is required")
	}
	coll, err := r.collection(ctx)
	if err != nil {
		return nil, err
	}

	query := coll.OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var matched []domain.Order
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("orders.search", err)
		}
		order, err := decodeOrderDocument(snap)
		if err != nil {
			return nil, err
		}
		if match(order) {
			matched = append(matched, order)
		}
	}
	return matched, nil
}

func (r *OrderRepository) collection(ctx context.Context) (*firestore.CollectionRef, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("order repository not initialised")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(ordersCollection), nil
}

func decodeOrderDocument(snap *firestore.DocumentSnapshot) (domain.Order, error) {
	var doc orderDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Order{}, fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

type orderProductDocument struct {
	ProductID string  `firestore:"productId"`
	Name      string  `firestore:"name"`
	Quantity  int     `firestore:"quantity"`
	Price     int64   `firestore:"price"`
	Subtotal  int64   `firestore:"subtotal"`
	Weight    float64 `firestore:"weight,omitempty"`
}

type shippingAddressDocument struct {
	Recipient  string `firestore:"recipientName"`
	Street     string `firestore:"street"`
	City       string `firestore:"city"`
	Province   string `firestore:"province"`
	PostalCode string `firestore:"postalCode"`
	Phone      string `firestore:"phone"`
}

type orderDocument struct {
	OrderNumber          string                  `firestore:"orderNumber"`
	ResellerID           string                  `firestore:"resellerId"`
	ResellerName         string                  `firestore:"resellerName"`
	ResellerEmail        string                  `firestore:"resellerEmail"`
	ResellerPhone        string                  `firestore:"resellerPhone"`
	Products             []orderProductDocument  `firestore:"products"`
	TotalAmount          int64                   `firestore:"totalAmount"`
	TotalCommission      int64                   `firestore:"totalCommission"`
	ShippingAddress      shippingAddressDocument `firestore:"shippingAddress"`
	Status               string                  `firestore:"status"`
	PaymentStatus        string                  `firestore:"paymentStatus"`
	PaymentMethod        string                  `firestore:"paymentMethod"`
	PaymentProof         string                  `firestore:"paymentProof"`
	AdminMessage         string                  `firestore:"adminMessage"`
	TrackingNumber       string                  `firestore:"trackingNumber"`
	EstimatedDelivery    *time.Time              `firestore:"estimatedDelivery"`
	ActualDelivery       *time.Time              `firestore:"actualDelivery"`
	ResellerConfirmation bool                    `firestore:"resellerConfirmation"`
	CreatedAt            time.Time               `firestore:"createdAt"`
	UpdatedAt            time.Time               `firestore:"updatedAt"`
}

func newOrderDocument(order domain.Order) orderDocument {
	products := make([]orderProductDocument, 0, len(order.Products))
	for _, product := range order.Products {
		products = append(products, orderProductDocument(product))
	}
	return orderDocument{
		OrderNumber:          strings.TrimSpace(order.OrderNumber),
		ResellerID:           strings.TrimSpace(order.ResellerID),
		ResellerName:         strings.TrimSpace(order.ResellerName),
		ResellerEmail:        strings.TrimSpace(order.ResellerEmail),
		ResellerPhone:        strings.TrimSpace(order.ResellerPhone),
		Products:             products,
		TotalAmount:          order.TotalAmount,
		TotalCommission:      order.TotalCommission,
		ShippingAddress:      shippingAddressDocument(order.ShippingAddress),
		Status:               string(order.Status),
		PaymentStatus:        string(order.PaymentStatus),
		PaymentMethod:        order.PaymentMethod,
		PaymentProof:         order.PaymentProof,
		AdminMessage:         order.AdminMessage,
		TrackingNumber:       order.TrackingNumber,
		EstimatedDelivery:    utcOrNil(order.EstimatedDelivery),
		ActualDelivery:       utcOrNil(order.ActualDelivery),
		ResellerConfirmation: order.ResellerConfirmation,
		CreatedAt:            order.CreatedAt.UTC(),
		UpdatedAt:            order.UpdatedAt.UTC(),
	}
}

func (d orderDocument) toDomain(id string) domain.Order {
	products := make([]domain.OrderProduct, 0, len(d.Products))
	for _, product := range d.Products {
		products = append(products, domain.OrderProduct(product))
	}
	return domain.Order{
		ID:                   id,
		OrderNumber:          d.OrderNumber,
		ResellerID:           d.ResellerID,
		ResellerName:         d.ResellerName,
		ResellerEmail:        d.ResellerEmail,
		ResellerPhone:        d.ResellerPhone,
		Products:             products,
		TotalAmount:          d.TotalAmount,
		TotalCommission:      d.TotalCommission,
		ShippingAddress:      domain.ShippingAddress(d.ShippingAddress),
		Status:               domain.OrderStatus(d.Status),
		PaymentStatus:        domain.PaymentStatus(d.PaymentStatus),
		PaymentMethod:        d.PaymentMethod,
		PaymentProof:         d.PaymentProof,
		AdminMessage:         d.AdminMessage,
		TrackingNumber:       d.TrackingNumber,
		EstimatedDelivery:    d.EstimatedDelivery,
		ActualDelivery:       d.ActualDelivery,
		ResellerConfirmation: d.ResellerConfirmation,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
}

func utcOrNil(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func notFoundError(op, message string) error {
	return pfirestore.WrapError(op, status.Error(codes.NotFound, message))
}

// Ensure interface compliance.
var _ repositories.OrderRepository = (*OrderRepository)(nil)
