package domain

import (
	"time"
)

// OrderStatus enumerates the order lifecycle states.
type OrderStatus string

const (
	// OrderStatusPending is the initial state of every new order.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed indicates an admin accepted the order.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusProcessing is a legacy state tolerated on reads only.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped indicates the order left the warehouse.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered indicates the courier reported delivery.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCompleted is terminal; the reseller confirmed receipt or an admin closed the order.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled is terminal.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentStatus enumerates the payment lifecycle states carried on an order.
type PaymentStatus string

const (
	// PaymentStatusWaitingPayment means no proof has been submitted yet.
	PaymentStatusWaitingPayment PaymentStatus = "waiting_payment"
	// PaymentStatusWaitingVerification means a transfer proof awaits admin review.
	PaymentStatusWaitingVerification PaymentStatus = "waiting_verification"
	// PaymentStatusPaid means an admin verified the transfer.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusFailed means verification rejected the transfer.
	PaymentStatusFailed PaymentStatus = "failed"
	// PaymentStatusCOD marks cash-on-delivery orders; no transfer flow applies.
	PaymentStatusCOD PaymentStatus = "cod"
)

// TransactionStatus enumerates payment transaction states.
type TransactionStatus string

const (
	// TransactionStatusProcessing indicates the transaction awaits verification.
	TransactionStatusProcessing TransactionStatus = "processing"
	// TransactionStatusSuccess indicates a verified payment.
	TransactionStatusSuccess TransactionStatus = "success"
	// TransactionStatusFailed indicates a rejected payment.
	TransactionStatusFailed TransactionStatus = "failed"
)

// TransactionType distinguishes payments, refunds, and commission payouts.
type TransactionType string

const (
	// TransactionTypePayment is money flowing in.
	TransactionTypePayment TransactionType = "payment"
	// TransactionTypeRefund is money flowing back to the reseller.
	TransactionTypeRefund TransactionType = "refund"
	// TransactionTypeCommission is a commission payout to the reseller.
	TransactionTypeCommission TransactionType = "commission"
)

// ShipmentStatus enumerates shipment lifecycle states.
type ShipmentStatus string

const (
	// ShipmentStatusPreparing means the parcel is being packed.
	ShipmentStatusPreparing ShipmentStatus = "preparing"
	// ShipmentStatusInTransit means the parcel is moving through the courier network.
	ShipmentStatusInTransit ShipmentStatus = "in_transit"
	// ShipmentStatusDelivered means the courier reported delivery.
	ShipmentStatusDelivered ShipmentStatus = "delivered"
	// ShipmentStatusReturned means the parcel came back undelivered.
	ShipmentStatusReturned ShipmentStatus = "returned"
	// ShipmentStatusCancelled means the shipment was called off by an admin.
	ShipmentStatusCancelled ShipmentStatus = "cancelled"
)

// OrderProduct is a single line item on an order or shipment.
type OrderProduct struct {
	ProductID string
	Name      string
	Quantity  int
	Price     int64
	Subtotal  int64
	Weight    float64
}

// ShippingAddress is the destination recorded on an order.
type ShippingAddress struct {
	Recipient  string
	Street     string
	City       string
	Province   string
	PostalCode string
	Phone      string
}

// Order is the aggregate root of the ordering flow.
type Order struct {
	ID                   string
	OrderNumber          string
	ResellerID           string
	ResellerName         string
	ResellerEmail        string
	ResellerPhone        string
	Products             []OrderProduct
	TotalAmount          int64
	TotalCommission      int64
	ShippingAddress      ShippingAddress
	Status               OrderStatus
	PaymentStatus        PaymentStatus
	PaymentMethod        string
	PaymentProof         string
	AdminMessage         string
	TrackingNumber       string
	EstimatedDelivery    *time.Time
	ActualDelivery       *time.Time
	ResellerConfirmation bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// PaymentTransaction records a single payment attempt against an order.
type PaymentTransaction struct {
	ID                string
	TransactionNumber string
	OrderID           string
	OrderNumber       string
	ResellerID        string
	Amount            int64
	PaymentMethod     string
	Status            TransactionStatus
	Type              TransactionType
	Reference         string
	Description       string
	AdminNotes        string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Shipment is the fulfilment record created when an order ships.
type Shipment struct {
	ID                string
	ShipmentNumber    string
	TrackingNumber    string
	OrderID           string
	OrderNumber       string
	ResellerID        string
	CustomerName      string
	CustomerAddress   string
	CustomerPhone     string
	Items             []OrderProduct
	TotalWeight       float64
	Courier           string
	Service           string
	ShippingCost      int64
	EstimatedDays     string
	Notes             string
	Status            ShipmentStatus
	EstimatedDelivery *time.Time
	ActualDelivery    *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OrderStatusLog is an append-only audit entry for an order.
//
// Status usually holds an OrderStatus but the pseudo-statuses "deleted" and
// "batch_updated" are recorded there too.
type OrderStatusLog struct {
	ID        string
	OrderID   string
	Status    string
	Notes     string
	ActionBy  string
	CreatedAt time.Time
}

// OrderStatistics aggregates counts and revenue across all orders.
type OrderStatistics struct {
	Total               int
	Pending             int
	Confirmed           int
	Processing          int
	Shipped             int
	Delivered           int
	Completed           int
	Cancelled           int
	WaitingPayment      int
	WaitingVerification int
	Paid                int
	TotalRevenue        int64
	TotalCommission     int64
}

// PaymentStatistics aggregates transaction counts and revenue.
type PaymentStatistics struct {
	TotalTransactions      int
	SuccessfulTransactions int
	PendingTransactions    int
	FailedTransactions     int
	TotalRevenue           int64
	AverageTransaction     float64
	SuccessRate            float64
}

// ShipmentStatistics aggregates shipment counts and cost.
type ShipmentStatistics struct {
	Total     int
	Preparing int
	InTransit int
	Delivered int
	Returned  int
	Cancelled int
	TotalCost int64
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusDelivered: {OrderStatusCompleted},
	OrderStatusCompleted: {},
	OrderStatusCancelled: {},
}

// CanTransitionOrder reports whether an order may move from one status to another.
func CanTransitionOrder(from, to OrderStatus) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidOrderStatus reports whether the value is a writable order status.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// ValidPaymentStatus reports whether the value is a known payment status.
func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentStatusWaitingPayment, PaymentStatusWaitingVerification,
		PaymentStatusPaid, PaymentStatusFailed, PaymentStatusCOD:
		return true
	}
	return false
}

// ValidTransactionStatus reports whether the value is a known transaction status.
func ValidTransactionStatus(s TransactionStatus) bool {
	switch s {
	case TransactionStatusProcessing, TransactionStatusSuccess, TransactionStatusFailed:
		return true
	}
	return false
}

// ValidTransactionType reports whether the value is a known transaction type.
func ValidTransactionType(t TransactionType) bool {
	switch t {
	case TransactionTypePayment, TransactionTypeRefund, TransactionTypeCommission:
		return true
	}
	return false
}

// ValidShipmentStatus reports whether the value is a known shipment status.
func ValidShipmentStatus(s ShipmentStatus) bool {
	switch s {
	case ShipmentStatusPreparing, ShipmentStatusInTransit,
		ShipmentStatusDelivered, ShipmentStatusReturned, ShipmentStatusCancelled:
		return true
	}
	return false
}
