package repositories

import (
	"context"
	"time"

	domain "github.com/Chrilove/projekuas/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	Payments() PaymentRepository
	Shipments() ShipmentRepository
	StatusLogs() StatusLogRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderFilter narrows order list queries. Zero values mean "no constraint".
type OrderFilter struct {
	ResellerID    string
	Status        domain.OrderStatus
	PaymentStatus domain.PaymentStatus
	Limit         int
}

// OrderBatchUpdate describes a partial update applied to one order in a batched write.
type OrderBatchUpdate struct {
	OrderID       string
	Status        *domain.OrderStatus
	PaymentStatus *domain.PaymentStatus
	AdminMessage  *string
}

// OrderRepository persists orders.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, error)
	Delete(ctx context.Context, orderID string) error
	BatchUpdate(ctx context.Context, updates []OrderBatchUpdate, updatedAt time.Time) error
	// Search scans recent orders (newest first, bounded by limit) and keeps
	// those accepted by match. Substring matching cannot be pushed to the store.
	Search(ctx context.Context, match func(domain.Order) bool, limit int) ([]domain.Order, error)
}

// PaymentFilter narrows payment transaction list queries.
type PaymentFilter struct {
	ResellerID string
	Status     domain.TransactionStatus
	Limit      int
}

// PaymentRepository persists payment transactions.
type PaymentRepository interface {
	Insert(ctx context.Context, txn domain.PaymentTransaction) error
	Update(ctx context.Context, txn domain.PaymentTransaction) error
	FindByID(ctx context.Context, paymentID string) (domain.PaymentTransaction, error)
	List(ctx context.Context, filter PaymentFilter) ([]domain.PaymentTransaction, error)
}

// ShipmentFilter narrows shipment list queries.
type ShipmentFilter struct {
	ResellerID string
	Status     domain.ShipmentStatus
	Limit      int
}

// ShipmentRepository persists shipments. Insert must reject a second shipment
// for the same order with a RepositoryError reporting IsConflict.
type ShipmentRepository interface {
	Insert(ctx context.Context, shipment domain.Shipment) error
	Update(ctx context.Context, shipment domain.Shipment) error
	FindByID(ctx context.Context, shipmentID string) (domain.Shipment, error)
	FindByOrderID(ctx context.Context, orderID string) (domain.Shipment, error)
	FindByTracking(ctx context.Context, trackingNumber string) (domain.Shipment, error)
	List(ctx context.Context, filter ShipmentFilter) ([]domain.Shipment, error)
	Delete(ctx context.Context, shipmentID string) error
}

// StatusLogRepository persists the append-only order status history.
type StatusLogRepository interface {
	Append(ctx context.Context, entry domain.OrderStatusLog) error
	ListByOrder(ctx context.Context, orderID string) ([]domain.OrderStatusLog, error)
}

// HealthRepository exposes dependency health information for readiness endpoints.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
