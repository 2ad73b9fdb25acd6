package firestore

import (
	"context"
	"errors"
	"time"

	"google.golang.org/api/iterator"

	pfirestore "github.com/Chrilove/projekuas/internal/platform/firestore"
	"github.com/Chrilove/projekuas/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the
// repositories.Registry contract for dependency injection.
type Registry struct {
	provider   *pfirestore.Provider
	orders     *OrderRepository
	payments   *PaymentRepository
	shipments  *ShipmentRepository
	statusLogs *StatusLogRepository
	health     repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs every Firestore repository against a shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry: provider is required")
	}

	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	payments, err := NewPaymentRepository(provider)
	if err != nil {
		return nil, err
	}
	shipments, err := NewShipmentRepository(provider)
	if err != nil {
		return nil, err
	}
	statusLogs, err := NewStatusLogRepository(provider)
	if err != nil {
		return nil, err
	}

	health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{
			Name:    "firestore",
			Timeout: 1500 * time.Millisecond,
			Check: func(ctx context.Context) error {
				client, err := provider.Client(ctx)
				if err != nil {
					return err
				}
				iter := client.Collections(ctx)
				if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
					return err
				}
				return nil
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:   provider,
		orders:     orders,
		payments:   payments,
		shipments:  shipments,
		statusLogs: statusLogs,
		health:     health,
	}, nil
}

func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

func (r *Registry) Orders() repositories.OrderRepository          { return r.orders }
func (r *Registry) Payments() repositories.PaymentRepository      { return r.payments }
func (r *Registry) Shipments() repositories.ShipmentRepository    { return r.shipments }
func (r *Registry) StatusLogs() repositories.StatusLogRepository  { return r.statusLogs }
func (r *Registry) Health() repositories.HealthRepository         { return r.health }

// RunInTx executes fn directly. Every write path here touches a single
// document, and the shipment repository carries its own transactional
// uniqueness guard, so no outer transaction is required.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return errors.New("firestore registry: transaction body is required")
	}
	return fn(ctx)
}
