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

const paymentsCollection = "payments"

// PaymentRepository persists payment transactions in Firestore.
type PaymentRepository struct {
	provider *pfirestore.Provider
	payments *pfirestore.BaseRepository[paymentDocument]
}

// NewPaymentRepository constructs a Firestore-backed payment repository.
func NewPaymentRepository(provider *pfirestore.Provider) (*PaymentRepository, error) {
	if provider == nil {
		return nil, errors.New("payment repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[paymentDocument](provider, paymentsCollection, nil, nil)
	return &PaymentRepository{provider: provider, payments: base}, nil
}

// Insert stores a new payment transaction under its pre-assigned ID.
func (r *PaymentRepository) Insert(ctx context.Context, txn domain.PaymentTransaction) error {
	if strings.TrimSpace(txn.ID) == "" {
		return errors.New("payment repository: id is required")
	}
	ref, err := r.payments.DocumentRef(ctx, txn.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, newPaymentDocument(txn)); err != nil {
		return pfirestore.WrapError("payments.insert", err)
	}
	return nil
}

// Update replaces the stored transaction document.
func (r *PaymentRepository) Update(ctx context.Context, txn domain.PaymentTransaction) error {
	if strings.TrimSpace(txn.ID) == "" {
		return errors.New("payment repository: id is required")
	}
	if _, err := r.payments.Set(ctx, txn.ID, newPaymentDocument(txn)); err != nil {
		return pfirestore.WrapError("payments.update", err)
	}
	return nil
}

// FindByID loads a single payment transaction.
func (r *PaymentRepository) FindByID(ctx context.Context, paymentID string) (domain.PaymentTransaction, error) {
	id := strings.TrimSpace(paymentID)
	if id == "" {
		return domain.PaymentTransaction{}, errors.New("payment repository: id is required")
	}
	doc, err := r.payments.Get(ctx, id)
	if err != nil {
		return domain.PaymentTransaction{}, pfirestore.WrapError("payments.get", err)
	}
	return doc.Data.toDomain(doc.ID), nil
}

// List returns transactions matching the filter ordered by creation time descending.
func (r *PaymentRepository) List(ctx context.Context, filter repositories.PaymentFilter) ([]domain.PaymentTransaction, error) {
	docs, err := r.payments.Query(ctx, func(query firestore.Query) firestore.Query {
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
		return nil, pfirestore.WrapError("payments.list", err)
	}

	txns := make([]domain.PaymentTransaction, 0, len(docs))
	for _, doc := range docs {
		txns = append(txns, doc.Data.toDomain(doc.ID))
	}
	return txns, nil
}

type paymentDocument struct {
	TransactionNumber string    `firestore:"transactionNumber"`
	OrderID           string    `firestore:"orderId"`
	OrderNumber       string    `firestore:"orderNumber"`
	ResellerID        string    `firestore:"resellerId"`
	Amount            int64     `firestore:"amount"`
	PaymentMethod     string    `firestore:"paymentMethod"`
	Status            string    `firestore:"status"`
	Type              string    `firestore:"type"`
	Reference         string    `firestore:"reference"`
	Description       string    `firestore:"description"`
	AdminNotes        string    `firestore:"adminNotes"`
	CreatedAt         time.Time `firestore:"createdAt"`
	UpdatedAt         time.Time `firestore:"updatedAt"`
}

func newPaymentDocument(txn domain.PaymentTransaction) paymentDocument {
	return paymentDocument{
		TransactionNumber: strings.TrimSpace(txn.TransactionNumber),
		OrderID:           strings.TrimSpace(txn.OrderID),
		OrderNumber:       strings.TrimSpace(txn.OrderNumber),
		ResellerID:        strings.TrimSpace(txn.ResellerID),
		Amount:            txn.Amount,
		PaymentMethod:     txn.PaymentMethod,
		Status:            string(txn.Status),
		Type:              string(txn.Type),
		Reference:         txn.Reference,
		Description:       txn.Description,
		AdminNotes:        txn.AdminNotes,
		CreatedAt:         txn.CreatedAt.UTC(),
		UpdatedAt:         txn.UpdatedAt.UTC(),
	}
}

func (d paymentDocument) toDomain(id string) domain.PaymentTransaction {
	return domain.PaymentTransaction{
		ID:                id,
		TransactionNumber: d.TransactionNumber,
		OrderID:           d.OrderID,
		OrderNumber:       d.OrderNumber,
		ResellerID:        d.ResellerID,
		Amount:            d.Amount,
		PaymentMethod:     d.PaymentMethod,
		Status:            domain.TransactionStatus(d.Status),
		Type:              domain.TransactionType(d.Type),
		Reference:         d.Reference,
		Description:       d.Description,
		AdminNotes:        d.AdminNotes,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

// Ensure interface compliance.
var _ repositories.PaymentRepository = (*PaymentRepository)(nil)
