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

const paymentIDPrefix = "pay_"

var (
	// ErrPaymentMissingField signals a required input was absent.
	ErrPaymentMissingField = errors.New("payment: missing required field")
	// ErrPaymentValidation signals the caller provided data that failed validation.
	ErrPaymentValidation = errors.New("payment: validation failed")
	// ErrPaymentNotFound indicates the transaction could not be located.
	ErrPaymentNotFound = errors.New("payment: not found")
	// ErrPaymentConflict indicates duplicates or concurrent modification.
	ErrPaymentConflict = errors.New("payment: conflict")
)

// PaymentServiceDeps bundles collaborators required to construct the payment service.
type PaymentServiceDeps struct {
	Payments     repositories.PaymentRepository
	Numbers      *NumberGenerator
	Clock        func() time.Time
	IDGenerator  func() string
	Logger       func(ctx context.Context, event string, fields map[string]any)
	StoreTimeout time.Duration
}

type paymentService struct {
	payments     repositories.PaymentRepository
	numbers      *NumberGenerator
	clock        func() time.Time
	newID        func() string
	logger       func(context.Context, string, map[string]any)
	storeTimeout time.Duration
}

// NewPaymentService wires dependencies into a concrete PaymentService implementation.
func NewPaymentService(deps PaymentServiceDeps) (PaymentService, error) {
	if deps.Payments == nil {
		return nil, errors.New("payment service: payment repository is required")
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

	return &paymentService{
		payments: deps.Payments,
		numbers:  numbers,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:        idGen,
		logger:       logger,
		storeTimeout: deps.StoreTimeout,
	}, nil
}

func (s *paymentService) Record(ctx context.Context, cmd RecordTransactionCommand) (PaymentTransaction, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return PaymentTransaction{}, fmt.Errorf("%w: order id", ErrPaymentMissingField)
	}
	if cmd.Amount <= 0 {
		return PaymentTransaction{}, fmt.Errorf("%w: amount must be positive", ErrPaymentValidation)
	}

	txnStatus := cmd.Status
	if txnStatus == "" {
		txnStatus = domain.TransactionStatusProcessing
	}
	if !domain.ValidTransactionStatus(txnStatus) {
		return PaymentTransaction{}, fmt.Errorf("%w: unknown transaction status %q", ErrPaymentValidation, txnStatus)
	}
	txnType := cmd.Type
	if txnType == "" {
		txnType = domain.TransactionTypePayment
	}
	if !domain.ValidTransactionType(txnType) {
		return PaymentTransaction{}, fmt.Errorf("%w: unknown transaction type %q", ErrPaymentValidation, txnType)
	}

	now := s.clock()
	txn := PaymentTransaction{
		ID:                paymentIDPrefix + s.newID(),
		TransactionNumber: s.numbers.TransactionNumber(),
		OrderID:           orderID,
		OrderNumber:       strings.TrimSpace(cmd.OrderNumber),
		ResellerID:        strings.TrimSpace(cmd.ResellerID),
		Amount:            cmd.Amount,
		PaymentMethod:     strings.TrimSpace(cmd.PaymentMethod),
		Status:            txnStatus,
		Type:              txnType,
		Reference:         strings.TrimSpace(cmd.Reference),
		Description:       textutil.Sanitize(cmd.Description),
		AdminNotes:        textutil.Sanitize(cmd.AdminNotes),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.payments.Insert(sctx, txn); err != nil {
		return PaymentTransaction{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, "payment.recorded", map[string]any{
		"payment": txn.ID,
		"order":   txn.OrderID,
		"status":  string(txn.Status),
	})
	return txn, nil
}

func (s *paymentService) UpdateStatus(ctx context.Context, paymentID string, status domain.TransactionStatus, adminNotes string) (PaymentTransaction, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return PaymentTransaction{}, fmt.Errorf("%w: payment id", ErrPaymentMissingField)
	}
	if !domain.ValidTransactionStatus(status) {
		return PaymentTransaction{}, fmt.Errorf("%w: unknown transaction status %q", ErrPaymentValidation, status)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	txn, err := s.payments.FindByID(sctx, paymentID)
	if err != nil {
		return PaymentTransaction{}, s.mapRepositoryError(err)
	}

	txn.Status = status
	if notes := textutil.Sanitize(adminNotes); notes != "" {
		txn.AdminNotes = notes
	}
	txn.UpdatedAt = s.clock()

	if err := s.payments.Update(sctx, txn); err != nil {
		return PaymentTransaction{}, s.mapRepositoryError(err)
	}
	return txn, nil
}

// Retry puts a failed transaction back into the verification queue.
func (s *paymentService) Retry(ctx context.Context, paymentID string) (PaymentTransaction, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return PaymentTransaction{}, fmt.Errorf("%w: payment id", ErrPaymentMissingField)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	txn, err := s.payments.FindByID(sctx, paymentID)
	if err != nil {
		return PaymentTransaction{}, s.mapRepositoryError(err)
	}

	txn.Status = domain.TransactionStatusProcessing
	txn.AdminNotes = paymentRetryAdminNotes
	txn.UpdatedAt = s.clock()

	if err := s.payments.Update(sctx, txn); err != nil {
		return PaymentTransaction{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, "payment.retry", map[string]any{
		"payment": txn.ID,
		"order":   txn.OrderID,
	})
	return txn, nil
}

func (s *paymentService) Get(ctx context.Context, paymentID string) (PaymentTransaction, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return PaymentTransaction{}, fmt.Errorf("%w: payment id", ErrPaymentMissingField)
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	txn, err := s.payments.FindByID(sctx, paymentID)
	if err != nil {
		return PaymentTransaction{}, s.mapRepositoryError(err)
	}
	return txn, nil
}

func (s *paymentService) List(ctx context.Context, filter PaymentListFilter) ([]PaymentTransaction, error) {
	if filter.Status != "" && !domain.ValidTransactionStatus(filter.Status) {
		return nil, fmt.Errorf("%w: unknown transaction status %q", ErrPaymentValidation, filter.Status)
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	txns, err := s.payments.List(sctx, filter)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return txns, nil
}

// Stats aggregates transaction counts. Revenue only counts successful
// payment-type transactions; refunds never contribute.
func (s *paymentService) Stats(ctx context.Context) (domain.PaymentStatistics, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	txns, err := s.payments.List(sctx, repositories.PaymentFilter{})
	if err != nil {
		return domain.PaymentStatistics{}, s.mapRepositoryError(err)
	}

	var stats domain.PaymentStatistics
	stats.TotalTransactions = len(txns)
	for _, txn := range txns {
		switch txn.Status {
		case domain.TransactionStatusSuccess:
			stats.SuccessfulTransactions++
			if txn.Type == domain.TransactionTypePayment {
				stats.TotalRevenue += txn.Amount
			}
		case domain.TransactionStatusProcessing:
			stats.PendingTransactions++
		case domain.TransactionStatusFailed:
			stats.FailedTransactions++
		}
	}
	if stats.SuccessfulTransactions > 0 {
		stats.AverageTransaction = float64(stats.TotalRevenue) / float64(stats.SuccessfulTransactions)
	}
	if stats.TotalTransactions > 0 {
		stats.SuccessRate = float64(stats.SuccessfulTransactions) / float64(stats.TotalTransactions) * 100
	}
	return stats, nil
}

func (s *paymentService) mapRepositoryError(err error) error {
	return mapStoreError(err, ErrPaymentNotFound, ErrPaymentConflict)
}

func (s *paymentService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}
