package services

import (
	"context"
	"time"

	domain "github.com/Chrilove/projekuas/internal/domain"
	"github.com/Chrilove/projekuas/internal/repositories"
)

// Domain aliases keep service signatures concise while sharing the domain model.
type (
	Order              = domain.Order
	OrderProduct       = domain.OrderProduct
	ShippingAddress    = domain.ShippingAddress
	PaymentTransaction = domain.PaymentTransaction
	Shipment           = domain.Shipment
	OrderStatusLog     = domain.OrderStatusLog

	OrderListFilter    = repositories.OrderFilter
	PaymentListFilter  = repositories.PaymentFilter
	ShipmentListFilter = repositories.ShipmentFilter
	OrderBatchUpdate   = repositories.OrderBatchUpdate
)

// CreateOrderCommand carries the inputs for placing a new order.
type CreateOrderCommand struct {
	ResellerID      string
	ResellerName    string
	ResellerEmail   string
	ResellerPhone   string
	Products        []OrderProduct
	ShippingAddress ShippingAddress
	PaymentMethod   string
	CashOnDelivery  bool
	// TotalAmount and TotalCommission override the computed sums when the
	// caller priced the order from the catalog. Zero means compute from products.
	TotalAmount     int64
	TotalCommission int64
	Notes           string
}

// ShippingDetails carries courier information supplied when an order ships.
// Zero values fall back to order-derived defaults.
type ShippingDetails struct {
	Courier           string
	Service           string
	Cost              int64
	EstimatedDays     string
	Notes             string
	EstimatedDelivery *time.Time
}

// UpdateOrderStatusCommand requests a status transition with optional side data.
type UpdateOrderStatusCommand struct {
	OrderID             string
	NextStatus          domain.OrderStatus
	Notes               string
	AdminMessage        string
	ActionBy            string
	TrackingNumber      string
	EstimatedDelivery   *time.Time
	ConfirmedByReseller bool
	CreateShipment      bool
	Shipping            *ShippingDetails
}

// EffectResult reports the outcome of one best-effort side effect.
type EffectResult struct {
	Name string
	Err  error
}

// OrderStatusUpdateResult is the outcome of a status transition including side effects.
type OrderStatusUpdateResult struct {
	Order   Order
	Effects []EffectResult
}

// UpdatePaymentStatusCommand requests a payment status change on an order.
type UpdatePaymentStatusCommand struct {
	OrderID       string
	PaymentStatus domain.PaymentStatus
	OrderStatus   *domain.OrderStatus
	Amount        int64
	PaymentMethod string
	Reference     string
	ActionBy      string
	Notes         string
	AdminMessage  string
}

// SubmitPaymentProofCommand records a reseller's transfer proof submission.
type SubmitPaymentProofCommand struct {
	OrderID       string
	ResellerID    string
	ProofRef      string
	PaymentMethod string
}

// OrderService orchestrates the order lifecycle.
type OrderService interface {
	Create(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	Get(ctx context.Context, orderID string) (Order, error)
	List(ctx context.Context, filter OrderListFilter) ([]Order, error)
	UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (OrderStatusUpdateResult, error)
	UpdatePaymentStatus(ctx context.Context, cmd UpdatePaymentStatusCommand) (Order, error)
	SubmitPaymentProof(ctx context.Context, cmd SubmitPaymentProofCommand) (Order, error)
	ConfirmReceived(ctx context.Context, orderID, resellerID string) (Order, error)
	UpdateTracking(ctx context.Context, orderID, trackingNumber string, estimatedDelivery *time.Time) (Order, error)
	StatusLogs(ctx context.Context, orderID string) ([]OrderStatusLog, error)
	Search(ctx context.Context, query string) ([]Order, error)
	Statistics(ctx context.Context) (domain.OrderStatistics, error)
	Delete(ctx context.Context, orderID string) error
	BatchUpdate(ctx context.Context, updates []OrderBatchUpdate, actionBy string) error
}

// RecordTransactionCommand captures the inputs for a new payment transaction.
type RecordTransactionCommand struct {
	OrderID       string
	OrderNumber   string
	ResellerID    string
	Amount        int64
	PaymentMethod string
	Status        domain.TransactionStatus
	Type          domain.TransactionType
	Reference     string
	Description   string
	AdminNotes    string
}

// PaymentService manages payment transactions and their statistics.
type PaymentService interface {
	Record(ctx context.Context, cmd RecordTransactionCommand) (PaymentTransaction, error)
	UpdateStatus(ctx context.Context, paymentID string, status domain.TransactionStatus, adminNotes string) (PaymentTransaction, error)
	Retry(ctx context.Context, paymentID string) (PaymentTransaction, error)
	Get(ctx context.Context, paymentID string) (PaymentTransaction, error)
	List(ctx context.Context, filter PaymentListFilter) ([]PaymentTransaction, error)
	Stats(ctx context.Context) (domain.PaymentStatistics, error)
}

// UpdateShipmentStatusCommand requests a shipment status change.
type UpdateShipmentStatusCommand struct {
	ShipmentID        string
	NextStatus        domain.ShipmentStatus
	Notes             string
	EstimatedDelivery *time.Time
}

// ShipmentService manages fulfilment records.
type ShipmentService interface {
	CreateFromOrder(ctx context.Context, order Order, details ShippingDetails) (Shipment, error)
	UpdateStatus(ctx context.Context, cmd UpdateShipmentStatusCommand) (Shipment, error)
	Get(ctx context.Context, shipmentID string) (Shipment, error)
	GetByTracking(ctx context.Context, trackingNumber string) (Shipment, error)
	List(ctx context.Context, filter ShipmentListFilter) ([]Shipment, error)
	Stats(ctx context.Context) (domain.ShipmentStatistics, error)
	Delete(ctx context.Context, shipmentID string) error
}

// StatusLogRecord captures one status history entry to append.
type StatusLogRecord struct {
	OrderID  string
	Status   string
	Notes    string
	ActionBy string
}

// StatusLogService writes and reads the order status history. Record is
// best-effort: append failures are logged, never surfaced to callers.
type StatusLogService interface {
	Record(ctx context.Context, record StatusLogRecord)
	List(ctx context.Context, orderID string) ([]OrderStatusLog, error)
}

// BuildInfo describes the running binary for health reporting.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// SystemService exposes operational health information.
type SystemService interface {
	Health(ctx context.Context) (domain.SystemHealthReport, error)
}
