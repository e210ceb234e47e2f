package router

import (
	"context"
	"fmt"
	"net/http"

	"garagepro/internal/api/v1/handler"
	"garagepro/internal/billing"
	"garagepro/internal/config"
	"garagepro/internal/email"
	"garagepro/internal/middleware"
	"garagepro/internal/pubsub"
	"garagepro/internal/repository"
	"garagepro/internal/service"
	"garagepro/internal/storage"

	_ "garagepro/docs"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/swaggo/swag"
)

// New wires every dependency and returns the root handler together with a
// cleanup function that releases the database pool and Pub/Sub client.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, func(), error) {
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	// 1. Database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")
	cleanup := []func(){pool.Close}
	closeAll := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}

	if cfg.AutoMigrate {
		if err := repository.Migrate(ctx, pool, "up"); err != nil {
			closeAll()
			return nil, nil, err
		}
		logger.Info().Msg("Database migrations applied")
	}

	// 2. Stripe
	stripeKey, err := resolveStripeKey(ctx, cfg)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	provider := billing.NewStripeProvider(stripeKey, cfg.StripeWebhookSecret, nil)

	// 3. Optional invoice archive
	var archive service.InvoiceArchiver
	if cfg.ArchiveEnabled() {
		s3Client, err := storage.NewS3Client(ctx, cfg)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		archive = storage.NewInvoiceArchive(s3Client, cfg.S3Bucket)
		logger.Info().Str("bucket", cfg.S3Bucket).Msg("Invoice archive enabled")
	}

	// 4. Optional billing events
	var events service.BillingEventPublisher
	if cfg.EventsEnabled() {
		publisher, err := pubsub.NewPublisher(ctx, cfg)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		cleanup = append(cleanup, func() {
			if err := publisher.Close(); err != nil {
				logger.Warn().Err(err).Msg("Failed to close Pub/Sub client")
			}
		})
		events = pubsub.NewEventPublisher(publisher, cfg.PubSubBillingTopic)
		logger.Info().Str("topic", cfg.PubSubBillingTopic).Msg("Billing events enabled")
	}

	// 5. Email
	var sender email.Sender
	if cfg.ResendAPIKey != "" {
		sender = email.NewResendSender(cfg.ResendAPIKey)
	} else {
		logger.Warn().Msg("RESEND_API_KEY not set, invoice emails will only be logged")
		sender = email.NewLogSender(logger)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	// 6. Repositories, services and handlers
	garageRepo := repository.NewGarageRepo(pool)
	subRepo := repository.NewSubscriptionRepo(pool)
	invoiceRepo := repository.NewInvoiceRepo(pool)

	invoiceSvc := service.NewInvoiceService(cfg, invoiceRepo, garageRepo, sender, archive, events, logger)
	stripeSvc := service.NewStripeService(cfg, provider, garageRepo, subRepo, invoiceSvc, events, logger)
	subSvc := service.NewSubscriptionService(subRepo, logger)

	stripeHandler := handler.NewStripeHandler(stripeSvc, subSvc, validate, logger)
	invoiceHandler := handler.NewInvoiceHandler(invoiceSvc, logger)
	healthHandler := handler.NewHealthHandler(pool, logger)

	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, logger)

	mux := http.NewServeMux()
	stripeHandler.RegisterRoutes(mux, authMiddleware)
	invoiceHandler.RegisterRoutes(mux)
	healthHandler.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		doc, err := swag.ReadDoc()
		if err != nil {
			http.Error(w, "swagger document unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	})

	// 7. CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Stripe-Signature"},
		AllowCredentials: true,
	})

	h := middleware.RecoverMiddleware(logger)(c.Handler(mux))
	return middleware.LoggerMiddleware(logger)(h), closeAll, nil
}

func resolveStripeKey(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.StripeSecretKeySecret == "" {
		return service.ResolveStripeSecretKey(ctx, cfg, nil)
	}
	secrets, err := service.NewSecretManagerService(ctx, cfg)
	if err != nil {
		return "", err
	}
	defer secrets.Close()
	key, err := service.ResolveStripeSecretKey(ctx, cfg, secrets)
	if err != nil {
		return "", fmt.Errorf("resolve Stripe secret key: %w", err)
	}
	return key, nil
}
