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
	orderEventCreated        = "order.created"
	orderEventStatusChanged  = "order.status.changed"
	orderEventPaymentChanged = "order.payment.changed"
	orderEventDeleted        = "order.deleted"

	orderIDPrefix = "ord_"

	statusLogDeleted      = "deleted"
	statusLogBatchUpdated = "batch_updated"

	actionByAdmin          = "admin"
	resellerActionPrefix   = "reseller_"
	proofReceivedMessage   = "Bukti pembayaran telah diterima. Menunggu verifikasi admin."
	orderReceivedMessage   = "Pesanan telah dikonfirmasi diterima oleh reseller"
	paymentRetryAdminNotes = "Payment retry initiated"
)

var (
	// ErrOrderMissingField signals a required input was absent.
	ErrOrderMissingField = errors.New("order: missing required field")
	// ErrOrderValidation signals the caller provided data that failed validation.
	ErrOrderValidation = errors.New("order: validation failed")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderUnauthorized indicates the caller does not own the order.
	ErrOrderUnauthorized = errors.New("order: unauthorized access")
	// ErrOrderInvalidState indicates an invalid status transition was attempted.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderConflict indicates duplicates or concurrent modification.
	ErrOrderConflict = errors.New("order: conflict")

	errOrderPaymentServiceUnavailable = errors.New("order: payment service not configured")
)

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// OrderEvent captures metadata for emitted order domain events.
type OrderEvent struct {
	Type           string
	OrderID        string
	OrderNumber    string
	PreviousStatus string
	CurrentStatus  string
	PaymentStatus  string
	ActorID        string
	OccurredAt     time.Time
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders       repositories.OrderRepository
	Payments     PaymentService
	Shipments    ShipmentService
	StatusLogs   StatusLogService
	Numbers      *NumberGenerator
	Clock        func() time.Time
	IDGenerator  func() string
	Events       OrderEventPublisher
	Logger       func(ctx context.Context, event string, fields map[string]any)
	StoreTimeout time.Duration
	// SearchScanLimit bounds the scan behind substring search. Zero uses the default.
	SearchScanLimit int
}

const defaultSearchScanLimit = 500

type orderService struct {
	orders       repositories.OrderRepository
	payments     PaymentService
	shipments    ShipmentService
	statusLogs   StatusLogService
	numbers      *NumberGenerator
	clock        func() time.Time
	newID        func() string
	events       OrderEventPublisher
	logger       func(context.Context, string, map[string]any)
	storeTimeout time.Duration
	searchLimit  int
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
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

	searchLimit := deps.SearchScanLimit
	if searchLimit <= 0 {
		searchLimit = defaultSearchScanLimit
	}

	return &orderService{
		orders:     deps.Orders,
		payments:   deps.Payments,
		shipments:  deps.Shipments,
		statusLogs: deps.StatusLogs,
		numbers:    numbers,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:        idGen,
		events:       deps.Events,
		logger:       logger,
		storeTimeout: deps.StoreTimeout,
		searchLimit:  searchLimit,
	}, nil
}

func (s *orderService) Create(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	resellerID := strings.TrimSpace(cmd.ResellerID)
	if resellerID == "" {
		return Order{}, fmt.Errorf("%w: reseller id", ErrOrderMissingField)
	}
	if strings.TrimSpace(cmd.ResellerName) == "" {
		return Order{}, fmt.Errorf("%w: reseller name", ErrOrderMissingField)
	}
	if len(cmd.Products) == 0 {
		return Order{}, fmt.Errorf("%w: order must contain at least one product", ErrOrderMissingField)
	}
	if strings.TrimSpace(cmd.ShippingAddress.Street) == "" ||
		strings.TrimSpace(cmd.ShippingAddress.City) == "" ||
		strings.TrimSpace(cmd.ShippingAddress.Phone) == "" {
		return Order{}, fmt.Errorf("%w: shipping address street, city, and phone", ErrOrderMissingField)
	}

	products := make([]OrderProduct, 0, len(cmd.Products))
	var totalAmount int64
	for i, product := range cmd.Products {
		if strings.TrimSpace(product.ProductID) == "" {
			return Order{}, fmt.Errorf("%w: product %d is missing its id", ErrOrderMissingField, i)
		}
		if product.Quantity <= 0 {
			return Order{}, fmt.Errorf("%w: product %s quantity must be positive", ErrOrderValidation, product.ProductID)
		}
		if product.Price < 0 {
			return Order{}, fmt.Errorf("%w: product %s price must not be negative", ErrOrderValidation, product.ProductID)
		}
		if product.Subtotal == 0 {
			product.Subtotal = product.Price * int64(product.Quantity)
		}
		totalAmount += product.Subtotal
		products = append(products, product)
	}
	if cmd.TotalAmount > 0 {
		totalAmount = cmd.TotalAmount
	}

	paymentStatus := domain.PaymentStatusWaitingPayment
	if cmd.CashOnDelivery {
		paymentStatus = domain.PaymentStatusCOD
	}

	now := s.now()
	order := Order{
		ID:              s.nextOrderID(),
		OrderNumber:     s.numbers.OrderNumber(),
		ResellerID:      resellerID,
		ResellerName:    strings.TrimSpace(cmd.ResellerName),
		ResellerEmail:   strings.TrimSpace(cmd.ResellerEmail),
		ResellerPhone:   strings.TrimSpace(cmd.ResellerPhone),
		Products:        products,
		TotalAmount:     totalAmount,
		TotalCommission: cmd.TotalCommission,
		ShippingAddress: cmd.ShippingAddress,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   paymentStatus,
		PaymentMethod:   strings.TrimSpace(cmd.PaymentMethod),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.orders.Insert(sctx, order); err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	s.recordStatusLog(ctx, StatusLogRecord{
		OrderID:  order.ID,
		Status:   string(domain.OrderStatusPending),
		Notes:    textutil.Sanitize(cmd.Notes),
		ActionBy: resellerActionPrefix + resellerID,
	})
	s.publishEvent(ctx, OrderEvent{
		Type:          orderEventCreated,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CurrentStatus: string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		ActorID:       resellerID,
		OccurredAt:    now,
	})

	return order, nil
}

func (s *orderService) Get(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id", ErrOrderMissingField)
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	order, err := s.orders.FindByID(sctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) List(ctx context.Context, filter OrderListFilter) ([]Order, error) {
	if filter.Status != "" && filter.Status != domain.OrderStatusProcessing && !domain.ValidOrderStatus(filter.Status) {
		return nil, fmt.Errorf("%w: unknown order status %q", ErrOrderValidation, filter.Status)
	}
	if filter.PaymentStatus != "" && !domain.ValidPaymentStatus(filter.PaymentStatus) {
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrOrderValidation, filter.PaymentStatus)
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	orders, err := s.orders.List(sctx, filter)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return orders, nil
}

// UpdateStatus transitions the order and runs the post-commit side effects.
// Effect failures are reported in the result, never as the primary error.
func (s *orderService) UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (OrderStatusUpdateResult, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return OrderStatusUpdateResult{}, fmt.Errorf("%w: order id", ErrOrderMissingField)
	}
	if !domain.ValidOrderStatus(cmd.NextStatus) {
		return OrderStatusUpdateResult{}, fmt.Errorf("%w: unknown order status %q", ErrOrderValidation, cmd.NextStatus)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	order, err := s.orders.FindByID(sctx, orderID)
	if err != nil {
		return OrderStatusUpdateResult{}, s.mapRepositoryError(err)
	}

	if order.Status == cmd.NextStatus {
		return OrderStatusUpdateResult{Order: order}, nil
	}
	if !domain.CanTransitionOrder(order.Status, cmd.NextStatus) {
		return OrderStatusUpdateResult{}, fmt.Errorf("%w: %s -> %s", ErrOrderInvalidState, order.Status, cmd.NextStatus)
	}

	now := s.now()
	previous := order.Status
	order.Status = cmd.NextStatus
	order.UpdatedAt = now
	if tracking := strings.TrimSpace(cmd.TrackingNumber); tracking != "" {
		order.TrackingNumber = tracking
	}
	if cmd.EstimatedDelivery != nil {
		order.EstimatedDelivery = cmd.EstimatedDelivery
	}
	adminMessage := textutil.Sanitize(cmd.AdminMessage)
	if cmd.NextStatus == domain.OrderStatusCompleted && cmd.ConfirmedByReseller {
		order.ResellerConfirmation = true
		order.ActualDelivery = &now
		if adminMessage == "" {
			adminMessage = orderReceivedMessage
		}
	}
	order.AdminMessage = adminMessage

	if err := s.orders.Update(sctx, order); err != nil {
		return OrderStatusUpdateResult{}, s.mapRepositoryError(err)
	}

	var effects []EffectResult

	if cmd.NextStatus == domain.OrderStatusShipped && cmd.CreateShipment {
		effect := EffectResult{Name: "shipment.create"}
		shipment, shipErr := s.createShipment(ctx, order, cmd.Shipping)
		if shipErr != nil {
			effect.Err = shipErr
			s.logger(ctx, "order.shipment.create.failed", map[string]any{
				"order": order.ID,
				"error": shipErr.Error(),
			})
		} else if order.TrackingNumber == "" && shipment.TrackingNumber != "" {
			order.TrackingNumber = shipment.TrackingNumber
			order.UpdatedAt = s.now()
			if err := s.orders.Update(sctx, order); err != nil {
				effect.Err = s.mapRepositoryError(err)
				s.logger(ctx, "order.tracking.backfill.failed", map[string]any{
					"order": order.ID,
					"error": err.Error(),
				})
			}
		}
		effects = append(effects, effect)
	}

	actionBy := strings.TrimSpace(cmd.ActionBy)
	if actionBy == "" {
		actionBy = actionByAdmin
	}
	s.recordStatusLog(ctx, StatusLogRecord{
		OrderID:  order.ID,
		Status:   string(cmd.NextStatus),
		Notes:    textutil.Sanitize(cmd.Notes),
		ActionBy: actionBy,
	})
	s.publishEvent(ctx, OrderEvent{
		Type:           orderEventStatusChanged,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		PreviousStatus: string(previous),
		CurrentStatus:  string(order.Status),
		PaymentStatus:  string(order.PaymentStatus),
		ActorID:        actionBy,
		OccurredAt:     now,
	})

	return OrderStatusUpdateResult{Order: order, Effects: effects}, nil
}

func (s *orderService) UpdatePaymentStatus(ctx context.Context, cmd UpdatePaymentStatusCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id", ErrOrderMissingField)
	}
	if !domain.ValidPaymentStatus(cmd.PaymentStatus) {
		return Order{}, fmt.Errorf("%w: unknown payment status %q", ErrOrderValidation, cmd.PaymentStatus)
	}
	if cmd.OrderStatus != nil && !domain.ValidOrderStatus(*cmd.OrderStatus) {
		return Order{}, fmt.Errorf("%w: unknown order status %q", ErrOrderValidation, *cmd.OrderStatus)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	order, err := s.orders.FindByID(sctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	now := s.now()
	order.PaymentStatus = cmd.PaymentStatus
	order.UpdatedAt = now
	order.AdminMessage = textutil.Sanitize(cmd.AdminMessage)
	if method := strings.TrimSpace(cmd.PaymentMethod); method != "" {
		order.PaymentMethod = method
	}
	if cmd.OrderStatus != nil && *cmd.OrderStatus != order.Status {
		if !domain.CanTransitionOrder(order.Status, *cmd.OrderStatus) {
			return Order{}, fmt.Errorf("%w: %s -> %s", ErrOrderInvalidState, order.Status, *cmd.OrderStatus)
		}
		order.Status = *cmd.OrderStatus
	}

	if err := s.orders.Update(sctx, order); err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if cmd.PaymentStatus == domain.PaymentStatusPaid && cmd.Amount > 0 {
		if s.payments == nil {
			return Order{}, errOrderPaymentServiceUnavailable
		}
		if _, err := s.payments.Record(ctx, RecordTransactionCommand{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			ResellerID:    order.ResellerID,
			Amount:        cmd.Amount,
			PaymentMethod: order.PaymentMethod,
			Status:        domain.TransactionStatusSuccess,
			Type:          domain.TransactionTypePayment,
			Reference:     strings.TrimSpace(cmd.Reference),
			Description:   fmt.Sprintf("Payment for order %s", order.OrderNumber),
		}); err != nil {
			return Order{}, err
		}
	}

	actionBy := strings.TrimSpace(cmd.ActionBy)
	if actionBy == "" {
		actionBy = actionByAdmin
	}
	s.recordStatusLog(ctx, StatusLogRecord{
		OrderID:  order.ID,
		Status:   string(order.Status),
		Notes:    textutil.Sanitize(fmt.Sprintf("Payment status updated to %s. %s", cmd.PaymentStatus, cmd.Notes)),
		ActionBy: actionBy,
	})
	s.publishEvent(ctx, OrderEvent{
		Type:          orderEventPaymentChanged,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CurrentStatus: string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		ActorID:       actionBy,
		OccurredAt:    now,
	})

	return order, nil
}

func (s *orderService) SubmitPaymentProof(ctx context.Context, cmd SubmitPaymentProofCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id", ErrOrderMissingField)
	}
	proofRef := strings.TrimSpace(cmd.ProofRef)
	if proofRef == "" {
		return Order{}, fmt.Errorf("%w: payment proof reference", ErrOrderMissingField)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	order, err := s.orders.FindByID(sctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	if resellerID := strings.TrimSpace(cmd.ResellerID); resellerID != "" && order.ResellerID != resellerID {
		return Order{}, fmt.Errorf("%w: order %s does not belong to reseller %s", ErrOrderUnauthorized, orderID, resellerID)
	}

	now := s.now()
	order.PaymentStatus = domain.PaymentStatusWaitingVerification
	order.PaymentProof = proofRef
	order.AdminMessage = proofReceivedMessage
	order.UpdatedAt = now
	if method := strings.TrimSpace(cmd.PaymentMethod); method != "" {
		order.PaymentMethod = method
	}

	if err := s.orders.Update(sctx, order); err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if s.payments == nil {
		return Order{}, errOrderPaymentServiceUnavailable
	}
	if _, err := s.payments.Record(ctx, RecordTransactionCommand{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		ResellerID:    order.ResellerID,
		Amount:        order.TotalAmount,
		PaymentMethod: order.PaymentMethod,
		Status:        domain.TransactionStatusProcessing,
		Type:          domain.TransactionTypePayment,
		Reference:     proofRef,
		Description:   fmt.Sprintf("Payment proof submitted for order %s", order.OrderNumber),
	}); err != nil {
		return Order{}, err
	}

	s.recordStatusLog(ctx, StatusLogRecord{
		OrderID:  order.ID,
		Status:   string(order.Status),
		Notes:    "Payment proof submitted",
		ActionBy: resellerActionPrefix + order.ResellerID,
	})

	return order, nil
}

func (s *orderService) ConfirmReceived(ctx context.Context, orderID, resellerID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id", ErrOrderMissingField)
	}
	resellerID = strings.TrimSpace(resellerID)
	if resellerID == "" {
		return Order{}, fmt.Errorf("%w: reseller id", ErrOrderMissingField)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	order, err := s.orders.FindByID(sctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	if order.ResellerID != resellerID {
		return Order{}, fmt.Errorf("%w: order %s does not belong to reseller %s", ErrOrderUnauthorized, orderID, resellerID)
	}
	if order.Status != domain.OrderStatusShipped && order.Status != domain.OrderStatusDelivered {
		return Order{}, fmt.Errorf("%w: cannot confirm receipt from %s", ErrOrderInvalidState, order.Status)
	}

	now := s.now()
	previous := order.Status
	order.Status = domain.OrderStatusCompleted
	order.ResellerConfirmation = true
	order.ActualDelivery = &now
	order.AdminMessage = orderReceivedMessage
	order.UpdatedAt = now

	if err := s.orders.Update(sctx, order); err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	s.recordStatusLog(ctx, StatusLogRecord{
		OrderID:  order.ID,
		Status:   string(domain.OrderStatusCompleted),
		Notes:    "Order received by reseller",
		ActionBy: resellerActionPrefix + resellerID,
	})
	s.publishEvent(ctx, OrderEvent{
		Type:           orderEventStatusChanged,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		PreviousStatus: string(previous),
		CurrentStatus:  string(order.Status),
		PaymentStatus:  string(order.PaymentStatus),
		ActorID:        resellerActionPrefix + resellerID,
		OccurredAt:     now,
	})

	return order, nil
}

func (s *orderService) UpdateTracking(ctx context.Context, orderID, trackingNumber string, estimatedDelivery *time.Time) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id", ErrOrderMissingField)
	}
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return Order{}, fmt.Errorf("%w: tracking number", ErrOrderMissingField)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	order, err := s.orders.FindByID(sctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	order.TrackingNumber = trackingNumber
	if estimatedDelivery != nil {
		order.EstimatedDelivery = estimatedDelivery
	}
	order.UpdatedAt = s.now()

	if err := s.orders.Update(sctx, order); err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) StatusLogs(ctx context.Context, orderID string) ([]OrderStatusLog, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id", ErrOrderMissingField)
	}
	if s.statusLogs == nil {
		return nil, errors.New("order service: status log service not configured")
	}
	return s.statusLogs.List(ctx, orderID)
}

func (s *orderService) Search(ctx context.Context, query string) ([]Order, error) {
	folded := textutil.Fold(query)
	if folded == "" {
		return nil, fmt.Errorf("%w: search query", ErrOrderMissingField)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	orders, err := s.orders.Search(sctx, func(order domain.Order) bool {
		return textutil.ContainsFold(order.OrderNumber, folded) ||
			textutil.ContainsFold(order.ResellerName, folded) ||
			textutil.ContainsFold(order.ResellerEmail, folded)
	}, s.searchLimit)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return orders, nil
}

func (s *orderService) Statistics(ctx context.Context) (domain.OrderStatistics, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	orders, err := s.orders.List(sctx, repositories.OrderFilter{})
	if err != nil {
		return domain.OrderStatistics{}, s.mapRepositoryError(err)
	}

	var stats domain.OrderStatistics
	stats.Total = len(orders)
	for _, order := range orders {
		switch order.Status {
		case domain.OrderStatusPending:
			stats.Pending++
		case domain.OrderStatusConfirmed:
			stats.Confirmed++
		case domain.OrderStatusProcessing:
			stats.Processing++
		case domain.OrderStatusShipped:
			stats.Shipped++
		case domain.OrderStatusDelivered:
			stats.Delivered++
		case domain.OrderStatusCompleted:
			stats.Completed++
		case domain.OrderStatusCancelled:
			stats.Cancelled++
		}
		switch order.PaymentStatus {
		case domain.PaymentStatusWaitingPayment:
			stats.WaitingPayment++
		case domain.PaymentStatusWaitingVerification:
			stats.WaitingVerification++
		case domain.PaymentStatusPaid:
			stats.Paid++
			stats.TotalRevenue += order.TotalAmount
			stats.TotalCommission += order.TotalCommission
		}
	}
	return stats, nil
}

func (s *orderService) Delete(ctx context.Context, orderID string) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return fmt.Errorf("%w: order id", ErrOrderMissingField)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	order, err := s.orders.FindByID(sctx, orderID)
	if err != nil {
		return s.mapRepositoryError(err)
	}
	if order.Status != domain.OrderStatusPending && order.Status != domain.OrderStatusCancelled {
		return fmt.Errorf("%w: only pending or cancelled orders can be deleted, got %s", ErrOrderInvalidState, order.Status)
	}

	if err := s.orders.Delete(sctx, orderID); err != nil {
		return s.mapRepositoryError(err)
	}

	s.recordStatusLog(ctx, StatusLogRecord{
		OrderID:  orderID,
		Status:   statusLogDeleted,
		Notes:    fmt.Sprintf("Order %s deleted", order.OrderNumber),
		ActionBy: actionByAdmin,
	})
	s.publishEvent(ctx, OrderEvent{
		Type:          orderEventDeleted,
		OrderID:       orderID,
		OrderNumber:   order.OrderNumber,
		CurrentStatus: string(order.Status),
		ActorID:       actionByAdmin,
		OccurredAt:    s.now(),
	})
	return nil
}

func (s *orderService) BatchUpdate(ctx context.Context, updates []OrderBatchUpdate, actionBy string) error {
	if len(updates) == 0 {
		return fmt.Errorf("%w: batch updates", ErrOrderMissingField)
	}
	for _, update := range updates {
		if strings.TrimSpace(update.OrderID) == "" {
			return fmt.Errorf("%w: batch update order id", ErrOrderMissingField)
		}
		if update.Status != nil && !domain.ValidOrderStatus(*update.Status) {
			return fmt.Errorf("%w: unknown order status %q", ErrOrderValidation, *update.Status)
		}
		if update.PaymentStatus != nil && !domain.ValidPaymentStatus(*update.PaymentStatus) {
			return fmt.Errorf("%w: unknown payment status %q", ErrOrderValidation, *update.PaymentStatus)
		}
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if err := s.orders.BatchUpdate(sctx, updates, s.now()); err != nil {
		return s.mapRepositoryError(err)
	}

	if actionBy = strings.TrimSpace(actionBy); actionBy == "" {
		actionBy = actionByAdmin
	}
	for _, update := range updates {
		s.recordStatusLog(ctx, StatusLogRecord{
			OrderID:  update.OrderID,
			Status:   statusLogBatchUpdated,
			Notes:    "Order updated in bulk",
			ActionBy: actionBy,
		})
	}
	return nil
}

// createShipment runs the best-effort shipment side effect for shipped orders.
// The shipment service treats creation as idempotent per order.
func (s *orderService) createShipment(ctx context.Context, order Order, details *ShippingDetails) (Shipment, error) {
	if s.shipments == nil {
		return Shipment{}, errors.New("order: shipment service not configured")
	}
	var shipping ShippingDetails
	if details != nil {
		shipping = *details
	}
	return s.shipments.CreateFromOrder(ctx, order, shipping)
}

func (s *orderService) recordStatusLog(ctx context.Context, record StatusLogRecord) {
	if s.statusLogs == nil {
		return
	}
	s.statusLogs.Record(ctx, record)
}

func (s *orderService) publishEvent(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":  event.Type,
			"order": event.OrderID,
			"error": err.Error(),
		})
	}
}

func (s *orderService) mapRepositoryError(err error) error {
	return mapStoreError(err, ErrOrderNotFound, ErrOrderConflict)
}

func (s *orderService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

func (s *orderService) now() time.Time {
	return s.clock()
}

func (s *orderService) nextOrderID() string {
	return orderIDPrefix + s.newID()
}
