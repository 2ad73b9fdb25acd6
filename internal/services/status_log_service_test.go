package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/Chrilove/projekuas/internal/domain"
)

type stubStatusLogRepository struct {
	mu        sync.Mutex
	entries   []domain.OrderStatusLog
	appendErr error
}

func (s *stubStatusLogRepository) Append(_ context.Context, entry domain.OrderStatusLog) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubStatusLogRepository) ListByOrder(_ context.Context, orderID string) ([]domain.OrderStatusLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.OrderStatusLog
	for _, entry := range s.entries {
		if entry.OrderID == orderID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type capturingWarnLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *capturingWarnLogger) Warnf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, format)
}

func TestStatusLogServiceRecordBuildsEntry(t *testing.T) {
	repo := &stubStatusLogRepository{}
	svc, err := NewStatusLogService(StatusLogServiceDeps{
		Repository:  repo,
		Clock:       fixedClock(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)),
		IDGenerator: sequentialIDs("01LOG"),
	})
	if err != nil {
		t.Fatalf("new status log service: %v", err)
	}

	svc.Record(context.Background(), StatusLogRecord{
		OrderID:  "ord_1",
		Status:   "confirmed",
		Notes:    "  Verified by admin  ",
		ActionBy: "admin",
	})

	if len(repo.entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if !strings.HasPrefix(entry.ID, "olg_") {
		t.Errorf("expected olg_ id prefix, got %s", entry.ID)
	}
	if entry.Notes != "Verified by admin" {
		t.Errorf("expected trimmed notes, got %q", entry.Notes)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("expected created timestamp")
	}
}

func TestStatusLogServiceRecordSwallowsAppendFailure(t *testing.T) {
	repo := &stubStatusLogRepository{appendErr: errors.New("store down")}
	logger := &capturingWarnLogger{}
	svc, err := NewStatusLogService(StatusLogServiceDeps{Repository: repo, Logger: logger})
	if err != nil {
		t.Fatalf("new status log service: %v", err)
	}

	// Must not panic or surface the error.
	svc.Record(context.Background(), StatusLogRecord{OrderID: "ord_1", Status: "confirmed"})

	if len(logger.messages) != 1 {
		t.Fatalf("expected one warning, got %d", len(logger.messages))
	}
}

func TestStatusLogServiceListRequiresOrderID(t *testing.T) {
	svc, err := NewStatusLogService(StatusLogServiceDeps{Repository: &stubStatusLogRepository{}})
	if err != nil {
		t.Fatalf("new status log service: %v", err)
	}
	if _, err := svc.List(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank order id")
	}
}
