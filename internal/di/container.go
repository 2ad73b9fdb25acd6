package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Chrilove/projekuas/internal/platform/config"
	"github.com/Chrilove/projekuas/internal/repositories"
	"github.com/Chrilove/projekuas/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Orders     services.OrderService
	Payments   services.PaymentService
	Shipments  services.ShipmentService
	StatusLogs services.StatusLogService
	System     services.SystemService
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// ContainerOption customises container construction.
type ContainerOption func(*containerDeps)

type containerDeps struct {
	events services.OrderEventPublisher
	logger *zap.Logger
	build  services.BuildInfo
}

// WithOrderEventPublisher wires the best-effort order event publisher into the order service.
func WithOrderEventPublisher(publisher services.OrderEventPublisher) ContainerOption {
	return func(d *containerDeps) {
		d.events = publisher
	}
}

// WithLogger injects the process logger used for service-level events.
func WithLogger(logger *zap.Logger) ContainerOption {
	return func(d *containerDeps) {
		d.logger = logger
	}
}

// WithBuildInfo sets the build metadata reported by the system service.
func WithBuildInfo(build services.BuildInfo) ContainerOption {
	return func(d *containerDeps) {
		d.build = build
	}
}

// NewContainer constructs the runtime dependencies. Production wiring provides real
// implementations, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, opts ...ContainerOption) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	deps := containerDeps{
		logger: zap.NewNop(),
		build: services.BuildInfo{
			StartedAt: time.Now().UTC(),
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&deps)
		}
	}
	if deps.logger == nil {
		deps.logger = zap.NewNop()
	}

	svc, err := buildServices(reg, cfg, deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients, background workers, or caches.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(reg repositories.Registry, cfg config.Config, deps containerDeps) (Services, error) {
	var svc Services

	numbers := services.NewNumberGenerator()
	eventLogger := serviceEventLogger(deps.logger)

	statusLogSvc, err := services.NewStatusLogService(services.StatusLogServiceDeps{
		Repository: reg.StatusLogs(),
		Clock:      time.Now,
		Logger:     deps.logger.Sugar(),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build status log service: %w", err)
	}
	svc.StatusLogs = statusLogSvc

	paymentSvc, err := services.NewPaymentService(services.PaymentServiceDeps{
		Payments:     reg.Payments(),
		Numbers:      numbers,
		Clock:        time.Now,
		Logger:       eventLogger,
		StoreTimeout: cfg.Firestore.CallTimeout,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build payment service: %w", err)
	}
	svc.Payments = paymentSvc

	shipmentSvc, err := services.NewShipmentService(services.ShipmentServiceDeps{
		Shipments:    reg.Shipments(),
		Numbers:      numbers,
		Clock:        time.Now,
		Logger:       eventLogger,
		StoreTimeout: cfg.Firestore.CallTimeout,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build shipment service: %w", err)
	}
	svc.Shipments = shipmentSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:          reg.Orders(),
		Payments:        paymentSvc,
		Shipments:       shipmentSvc,
		StatusLogs:      statusLogSvc,
		Numbers:         numbers,
		Clock:           time.Now,
		Events:          deps.events,
		Logger:          eventLogger,
		StoreTimeout:    cfg.Firestore.CallTimeout,
		SearchScanLimit: cfg.Orders.SearchScanLimit,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: reg.Health(),
		Clock:            time.Now,
		Build:            deps.build,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}
	svc.System = systemSvc

	return svc, nil
}

// serviceEventLogger adapts the zap logger to the loosely typed event logger the
// services emit through.
func serviceEventLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	if logger == nil {
		return nil
	}
	return func(_ context.Context, event string, fields map[string]any) {
		zapFields := make([]zap.Field, 0, len(fields))
		for key, value := range fields {
			zapFields = append(zapFields, zap.Any(key, value))
		}
		logger.Info(event, zapFields...)
	}
}
