package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/Chrilove/projekuas/internal/domain"
	"github.com/Chrilove/projekuas/internal/repositories"
)

const statusLogIDPrefix = "olg_"

// StatusLogger defines the logging contract used by the status history writer.
type StatusLogger interface {
	Warnf(format string, args ...any)
}

// StatusLogServiceDeps bundles constructor inputs for the status history writer.
type StatusLogServiceDeps struct {
	Repository  repositories.StatusLogRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      StatusLogger
}

type statusLogService struct {
	repo   repositories.StatusLogRepository
	clock  func() time.Time
	newID  func() string
	logger StatusLogger
}

// NewStatusLogService creates a status history writer backed by the supplied repository.
func NewStatusLogService(deps StatusLogServiceDeps) (StatusLogService, error) {
	if deps.Repository == nil {
		return nil, fmt.Errorf("status log service: repository is required")
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
		logger = noopStatusLogger{}
	}

	return &statusLogService{
		repo:   deps.Repository,
		clock:  func() time.Time { return clock().UTC() },
		newID:  idGen,
		logger: logger,
	}, nil
}

// Record appends a status history entry. Repository failures are logged but do
// not bubble up to callers to avoid interrupting the primary mutation flow.
func (s *statusLogService) Record(ctx context.Context, record StatusLogRecord) {
	orderID := strings.TrimSpace(record.OrderID)
	if orderID == "" {
		s.logger.Warnf("status log append skipped: order id is empty")
		return
	}

	entry := domain.OrderStatusLog{
		ID:        statusLogIDPrefix + s.newID(),
		OrderID:   orderID,
		Status:    strings.TrimSpace(record.Status),
		Notes:     strings.TrimSpace(record.Notes),
		ActionBy:  strings.TrimSpace(record.ActionBy),
		CreatedAt: s.clock(),
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.Warnf("status log append failed for order %s: %v", orderID, err)
	}
}

// List retrieves the status history for an order in chronological order.
func (s *statusLogService) List(ctx context.Context, orderID string) ([]OrderStatusLog, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, errors.New("status log service: order id is required")
	}
	return s.repo.ListByOrder(ctx, orderID)
}

type noopStatusLogger struct{}

func (noopStatusLogger) Warnf(string, ...any) {}
