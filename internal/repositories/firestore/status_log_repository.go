package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/Chrilove/projekuas/internal/domain"
	pfirestore "github.com/Chrilove/projekuas/internal/platform/firestore"
	"github.com/Chrilove/projekuas/internal/repositories"
)

const statusLogsCollection = "orderStatusLogs"

// StatusLogRepository persists order status history entries in Firestore.
type StatusLogRepository struct {
	provider *pfirestore.Provider
	logs     *pfirestore.BaseRepository[statusLogDocument]
}

// NewStatusLogRepository constructs a Firestore-backed status log repository.
func NewStatusLogRepository(provider *pfirestore.Provider) (*StatusLogRepository, error) {
	if provider == nil {
		return nil, errors.New("status log repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[statusLogDocument](provider, statusLogsCollection, nil, nil)
	return &StatusLogRepository{provider: provider, logs: base}, nil
}

// Append stores a new status log entry under its pre-assigned ID.
func (r *StatusLogRepository) Append(ctx context.Context, entry domain.OrderStatusLog) error {
	if strings.TrimSpace(entry.ID) == "" {
		return errors.New("status log repository: id is required")
	}
	if strings.TrimSpace(entry.OrderID) == "" {
		return errors.New("status log repository: order id is required")
	}
	ref, err := r.logs.DocumentRef(ctx, entry.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, newStatusLogDocument(entry)); err != nil {
		return pfirestore.WrapError("status_logs.append", err)
	}
	return nil
}

// ListByOrder returns the status history for an order oldest first.
func (r *StatusLogRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.OrderStatusLog, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return nil, errors.New("status log repository: order id is required")
	}
	docs, err := r.logs.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.Where("orderId", "==", id).OrderBy("createdAt", firestore.Asc)
	})
	if err != nil {
		return nil, pfirestore.WrapError("status_logs.list", err)
	}

	entries := make([]domain.OrderStatusLog, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, doc.Data.toDomain(doc.ID))
	}
	return entries, nil
}

type statusLogDocument struct {
	OrderID   string    `firestore:"orderId"`
	Status    string    `firestore:"status"`
	Notes     string    `firestore:"notes"`
	ActionBy  string    `firestore:"actionBy"`
	CreatedAt time.Time `firestore:"createdAt"`
}

func newStatusLogDocument(entry domain.OrderStatusLog) statusLogDocument {
	return statusLogDocument{
		OrderID:   strings.TrimSpace(entry.OrderID),
		Status:    strings.TrimSpace(entry.Status),
		Notes:     entry.Notes,
		ActionBy:  strings.TrimSpace(entry.ActionBy),
		CreatedAt: entry.CreatedAt.UTC(),
	}
}

func (d statusLogDocument) toDomain(id string) domain.OrderStatusLog {
	return domain.OrderStatusLog{
		ID:        id,
		OrderID:   d.OrderID,
		Status:    d.Status,
		Notes:     d.Notes,
		ActionBy:  d.ActionBy,
		CreatedAt: d.CreatedAt,
	}
}

// Ensure interface compliance.
var _ repositories.StatusLogRepository = (*StatusLogRepository)(nil)
