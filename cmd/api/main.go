package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/Chrilove/projekuas/internal/di"
	"github.com/Chrilove/projekuas/internal/handlers"
	"github.com/Chrilove/projekuas/internal/platform/auth"
	"github.com/Chrilove/projekuas/internal/platform/config"
	pfirestore "github.com/Chrilove/projekuas/internal/platform/firestore"
	"github.com/Chrilove/projekuas/internal/platform/jobs"
	"github.com/Chrilove/projekuas/internal/platform/observability"
	platformstorage "github.com/Chrilove/projekuas/internal/platform/storage"
	firestoreRepo "github.com/Chrilove/projekuas/internal/repositories/firestore"
	"github.com/Chrilove/projekuas/internal/services"
)

const proofSubmissionsPerHour = 10

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(startedAt)

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	if _, err := firestoreProvider.Client(ctx); err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	registry, err := firestoreRepo.NewRegistry(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	containerOpts := []di.ContainerOption{
		di.WithLogger(logger),
		di.WithBuildInfo(buildInfo),
	}

	if cfg.PubSub.Enabled {
		var clientOpts []option.ClientOption
		if file := strings.TrimSpace(cfg.Firebase.CredentialsFile); file != "" {
			clientOpts = append(clientOpts, option.WithCredentialsFile(file))
		}
		pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID, clientOpts...)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()

		topic := pubsubClient.Topic(cfg.PubSub.OrderEventsTopic)
		defer topic.Stop()

		publisher, err := jobs.NewPubSubOrderEventPublisher(topic)
		if err != nil {
			logger.Fatal("failed to initialise order event publisher", zap.Error(err))
		}
		containerOpts = append(containerOpts, di.WithOrderEventPublisher(publisher))
		logger.Info("order event publishing enabled", zap.String("topic", cfg.PubSub.OrderEventsTopic))
	}

	container, err := di.NewContainer(ctx, cfg, registry, containerOpts...)
	if err != nil {
		logger.Fatal("failed to build service container", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("container close error", zap.Error(err))
		}
	}()

	proofStore := newProofStore(logger, cfg)

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseVerifier, auth.WithUserGetter(firebaseVerifier))

	projectID := traceProjectID(cfg)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithHealthSystemService(container.Services.System),
	)

	orderOpts := []handlers.OrderHandlersOption{
		handlers.WithOrderProofLimiter(handlers.NewFixedWindowLimiter(proofSubmissionsPerHour, time.Hour)),
	}
	adminOpts := []handlers.AdminHandlersOption{}
	if proofStore != nil {
		orderOpts = append(orderOpts, handlers.WithOrderProofStore(proofStore))
		adminOpts = append(adminOpts, handlers.WithAdminProofStore(proofStore))
	}

	orderHandlers := handlers.NewOrderHandlers(authenticator, container.Services.Orders, orderOpts...)
	paymentHandlers := handlers.NewPaymentHandlers(authenticator, container.Services.Payments)
	shipmentHandlers := handlers.NewShipmentHandlers(authenticator, container.Services.Shipments)
	adminHandlers := handlers.NewAdminHandlers(
		authenticator,
		container.Services.Orders,
		container.Services.Payments,
		container.Services.Shipments,
		adminOpts...,
	)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithPaymentRoutes(paymentHandlers.Routes),
		handlers.WithShipmentRoutes(shipmentHandlers.Routes),
		handlers.WithAdminRoutes(adminHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("reseller orders api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildInfoFromEnv(started time.Time) services.BuildInfo {
	version := strings.TrimSpace(os.Getenv("API_BUILD_VERSION"))
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(os.Getenv("API_BUILD_COMMIT_SHA"))
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(os.Getenv("API_ENVIRONMENT"))
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

// newProofStore builds the signed-URL proof store when a bucket and signer key
// are configured. Proof endpoints respond 503 without it.
func newProofStore(logger *zap.Logger, cfg config.Config) *platformstorage.ProofStore {
	bucket := strings.TrimSpace(cfg.Storage.ProofsBucket)
	if bucket == "" {
		logger.Warn("storage: proofs bucket not configured; payment proof uploads disabled")
		return nil
	}
	credentialsFile := strings.TrimSpace(cfg.Firebase.CredentialsFile)
	if credentialsFile == "" {
		logger.Warn("storage: credentials file not configured; payment proof uploads disabled")
		return nil
	}
	signer, err := platformstorage.NewServiceAccountSignerFromFile(credentialsFile)
	if err != nil {
		logger.Warn("storage: signer init failed; payment proof uploads disabled", zap.Error(err))
		return nil
	}
	store, err := platformstorage.NewProofStore(signer, bucket,
		platformstorage.WithProofURLTTL(cfg.Storage.ProofURLTTL),
	)
	if err != nil {
		logger.Warn("storage: proof store init failed; payment proof uploads disabled", zap.Error(err))
		return nil
	}
	return store
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}
