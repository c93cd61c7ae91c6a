package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	emailadapter "github.com/Abdurahmanit/GroupProject/cart-service/internal/adapter/email"
	mongoadapter "github.com/Abdurahmanit/GroupProject/cart-service/internal/adapter/mongo"
	natsadapter "github.com/Abdurahmanit/GroupProject/cart-service/internal/adapter/nats"
	redisadapter "github.com/Abdurahmanit/GroupProject/cart-service/internal/adapter/redis"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/app/config"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/metrics"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/tracer"
	grpcserver "github.com/Abdurahmanit/GroupProject/cart-service/internal/port/grpc"
	httpport "github.com/Abdurahmanit/GroupProject/cart-service/internal/port/http"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/service"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type App struct {
	cfg             *config.Config
	log             logger.Logger
	httpServer      *httpport.Server
	grpcServer      *grpcserver.Server
	mongoClient     *mongo.Client
	redisClient     *redis.Client
	natsConn        *nats.Conn
	productListener *natsadapter.ProductChangeListener
	tracerProvider  *sdktrace.TracerProvider
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	logCfg := logger.ZapLoggerConfig{
		Level:      cfg.Logger.Level,
		Encoding:   cfg.Logger.Encoding,
		TimeFormat: cfg.Logger.TimeFormat,
	}
	appLogger, err := logger.NewZapLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	appLogger.Info("Logger initialized")
	appLogger.Infof("Configuration loaded: Env=%s, HTTP Port: %s, GRPC Port: %s", cfg.Env, cfg.HTTPServer.Port, cfg.GRPCServer.Port)

	tp, err := tracer.Init(ctx, tracer.Config{Endpoint: cfg.Tracing.Endpoint, ServiceName: cfg.Tracing.ServiceName})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	resources := &resourceStack{log: appLogger}
	fail := func(err error) (*App, error) {
		resources.closeAll(context.Background())
		return nil, err
	}
	resources.push("Tracer provider", tp.Shutdown)
	if cfg.Tracing.Endpoint == "" {
		appLogger.Info("Tracing exporter disabled: no OTLP endpoint configured")
	}

	appLogger.Info("Initializing MongoDB client...")
	mongoClient, err := mongoadapter.NewClient(ctx, cfg.MongoDB)
	if err != nil {
		appLogger.Errorf("Failed to initialize MongoDB client: %v", err)
		return fail(fmt.Errorf("failed to initialize MongoDB client: %w", err))
	}
	appLogger.Info("MongoDB client initialized successfully")
	resources.push("MongoDB client", mongoClient.Disconnect)

	appLogger.Info("Initializing Redis client...")
	redisClient, err := redisadapter.NewClient(ctx, cfg.Redis)
	if err != nil {
		appLogger.Errorf("Failed to initialize Redis client: %v", err)
		return fail(fmt.Errorf("failed to initialize Redis client: %w", err))
	}
	appLogger.Info("Redis client initialized successfully")
	resources.push("Redis client", func(context.Context) error { return redisClient.Close() })

	metricsManager := metrics.NewManager(cfg.Metrics.Namespace)

	cartRepo := redisadapter.NewCartRepository(redisClient)
	productCache := redisadapter.NewProductDetailCacheRepository(redisClient)
	productRepo := mongoadapter.NewProductRepository(mongoClient, cfg.MongoDB)
	appLogger.Info("Repositories initialized")

	catalog := service.NewCatalogService(productRepo, productCache, appLogger.Named("catalog"), service.CatalogServiceConfig{
		ProductCacheTTL: cfg.ProductCache.TTL,
	})

	application := &App{
		cfg:            cfg,
		log:            appLogger,
		mongoClient:    mongoClient,
		redisClient:    redisClient,
		tracerProvider: tp,
	}

	var events service.EventPublisher
	if cfg.NATS.URL != "" {
		natsConn, err := natsadapter.NewConnection(cfg.NATS, appLogger)
		if err != nil {
			appLogger.Warnf("NATS unavailable, cart events and product invalidation disabled: %v", err)
		} else {
			application.natsConn = natsConn
			resources.push("NATS connection", func(context.Context) error {
				natsConn.Close()
				return nil
			})
			publisher, err := natsadapter.NewNATSPublisher(natsConn)
			if err != nil {
				return fail(fmt.Errorf("failed to create NATS publisher: %w", err))
			}
			events = publisher

			listener, err := natsadapter.NewProductChangeListener(natsConn, catalog, appLogger.Named("product_listener"))
			if err != nil {
				return fail(fmt.Errorf("failed to create product change listener: %w", err))
			}
			application.productListener = listener
			appLogger.Infof("NATS connected to %s", natsConn.ConnectedUrl())
		}
	} else {
		appLogger.Info("NATS URL not configured, cart events disabled")
	}

	var sender emailadapter.EmailSender
	if cfg.SMTP.Enabled() {
		smtpSender, err := emailadapter.NewSMTPSender(cfg.SMTP, appLogger.Named("smtp"))
		if err != nil {
			return fail(fmt.Errorf("failed to initialize SMTP sender: %w", err))
		}
		sender = smtpSender
		appLogger.Infof("SMTP sender configured for %s:%d", cfg.SMTP.Host, cfg.SMTP.Port)
	} else {
		appLogger.Info("SMTP not configured, cart summary e-mails disabled")
	}

	cartService := service.NewCartService(cartRepo, catalog, events, metricsManager, appLogger.Named("cart"), service.CartServiceConfig{
		GuestTTL:        cfg.Cart.GuestTTL,
		MaxLineQuantity: cfg.Cart.MaxLineQuantity,
	})
	summaryService := service.NewSummaryService(cartService, sender, appLogger.Named("summary"))
	appLogger.Info("Services initialized")

	router := httpport.NewRouter(httpport.RouterDeps{
		Cart:    httpport.NewCartHandler(cartService, summaryService, appLogger, cfg.Cart.MaxLineQuantity),
		Health:  redisadapter.NewHealthChecker(redisClient),
		Metrics: metricsManager,
		Identity: httpport.IdentityConfig{
			JWTSecret:     cfg.Auth.JWTSecret,
			SessionCookie: cfg.Auth.SessionCookie,
			SessionMaxAge: cfg.Auth.SessionMaxAge,
			SecureCookie:  cfg.Auth.SecureCookie,
		},
		Log: appLogger.Named("http"),
	})
	application.httpServer = httpport.NewServer(httpport.ServerConfig{
		Port:         cfg.HTTPServer.Port,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}, router, appLogger)
	appLogger.Info("HTTP server instance created")

	application.grpcServer = grpcserver.NewServer(
		appLogger,
		cfg.GRPCServer.Port,
		cfg.GRPCServer.MaxConnectionIdle,
	)
	appLogger.Info("gRPC server instance created")

	return application, nil
}

func (a *App) Run() {
	a.log.Info("Starting application components...")

	if a.productListener != nil {
		if err := a.productListener.Start(); err != nil {
			a.log.Errorf("Product change listener not started: %v", err)
		}
	}

	go func() {
		if err := a.httpServer.Start(); err != nil {
			a.log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()
	a.log.Info("HTTP server started in a goroutine")

	go func() {
		if err := a.grpcServer.Start(); err != nil {
			a.log.Fatalf("Failed to start gRPC server: %v", err)
		}
	}()
	a.log.Info("gRPC server started in a goroutine")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit
	a.log.Infof("Received shutdown signal: %v. Shutting down application...", receivedSignal)

	a.shutdown()
}

func (a *App) shutdown() {
	timeout := a.cfg.HTTPServer.TimeoutGraceful
	if a.cfg.GRPCServer.TimeoutGraceful > timeout {
		timeout = a.cfg.GRPCServer.TimeoutGraceful
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout+5*time.Second)
	defer cancel()

	if err := a.grpcServer.Stop(shutdownCtx); err != nil {
		a.log.Errorf("Error during gRPC server graceful shutdown: %v", err)
	}
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Errorf("Error during HTTP server graceful shutdown: %v", err)
	}

	if a.productListener != nil {
		a.productListener.Stop()
	}
	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil {
			a.log.Errorf("Error draining NATS connection: %v", err)
		} else {
			a.log.Info("NATS connection drained")
		}
	}

	a.log.Info("Closing database connections...")

	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(shutdownCtx); err != nil {
			a.log.Errorf("Error disconnecting from MongoDB: %v", err)
		} else {
			a.log.Info("MongoDB connection closed successfully")
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Errorf("Error closing Redis client: %v", err)
		} else {
			a.log.Info("Redis client closed successfully")
		}
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(shutdownCtx); err != nil {
			a.log.Errorf("Error shutting down tracer provider: %v", err)
		}
	}

	a.log.Info("Application shut down successfully")
	_ = a.log.Sync()
}
