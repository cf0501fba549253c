package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/streadway/amqp"
	"gorm.io/gorm"

	"storefront/internal/config"
	"storefront/internal/handlers"
	"storefront/internal/models"
	"storefront/internal/notifications"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/database"
	"storefront/pkg/rabbitmq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogging(cfg.LogLevel)

	application, err := newApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise application")
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.AppPort).Msg("Starting server")
		if err := application.http.Listen(cfg.AppPort); err != nil {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	<-quit
	log.Info().Msg("Shutting down server...")
	application.Shutdown()
	log.Info().Msg("Server gracefully stopped")
}

func setupLogging(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.With().Str("service", "storefront").Logger()
}

// app owns the HTTP server and the resources it must release on shutdown.
type app struct {
	http     *fiber.App
	notifier *notifications.AsyncNotifier
	mq       *rabbitmq.Client
	db       *gorm.DB
}

type repositorySet struct {
	users    repositories.UserRepository
	products repositories.ProductRepository
	orders   repositories.OrderRepository
	coupons  repositories.CouponRepository
	returns  repositories.ReturnRepository
}

// newApp wires repositories, the notification pipeline, services and
// handlers according to cfg.
func newApp(cfg config.Config) (*app, error) {
	a := &app{}
	ctx := context.Background()

	repos, db, err := newRepositories(cfg.Database)
	if err != nil {
		return nil, err
	}
	a.db = db

	if err := a.startNotifier(cfg); err != nil {
		a.Shutdown()
		return nil, err
	}

	now := time.Now
	pricing := services.NewPricingEngine(services.PricingPolicy{
		ShippingFee:                  cfg.Pricing.ShippingFee,
		CODSurcharge:                 cfg.Pricing.CODSurcharge,
		SubscriptionFallbackDiscount: cfg.Pricing.SubscriptionFallbackDiscount,
		SubscriptionDiscountMode:     services.SubscriptionDiscountMode(cfg.Pricing.SubscriptionDiscountMode),
	})
	authService := services.NewAuthService(repos.users, cfg.JWTSecret)
	productService := services.NewProductService(repos.products)
	couponService := services.NewCouponService(repos.coupons, now)
	orderService := services.NewOrderService(services.OrderServiceDeps{
		Orders:   repos.orders,
		Users:    repos.users,
		Products: repos.products,
		Coupons:  couponService,
		Pricing:  pricing,
		Notifier: a.notifier,
		Now:      now,
	})
	returnService := services.NewReturnService(services.ReturnServiceDeps{
		Returns:                  repos.returns,
		Orders:                   repos.orders,
		Users:                    repos.users,
		Notifier:                 a.notifier,
		Now:                      now,
		ReceivedRequiresApproval: cfg.Returns.ReceivedRequiresApproval,
	})

	if added, err := productService.SeedCatalog(ctx, defaultCatalog()); err != nil {
		a.Shutdown()
		return nil, err
	} else if added > 0 {
		log.Info().Int("products", added).Msg("Seeded product catalog")
	}
	if cfg.Admin.Username != "" {
		if err := authService.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			a.Shutdown()
			return nil, fmt.Errorf("failed to create admin account: %w", err)
		}
	}

	a.http = fiber.New(fiber.Config{
		AppName:      "storefront",
		ErrorHandler: handlers.ErrorHandler,
	})
	a.http.Use(recover.New())
	a.http.Use(logger.New())

	a.http.Get("/health", func(c *fiber.Ctx) error {
		broker := "disabled"
		if a.mq != nil {
			broker = "connected"
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": cfg.Database.Driver,
			"broker":   broker,
		})
	})

	handlers.RegisterRoutes(a.http, authService, handlers.Handlers{
		Auth:     handlers.NewAuthHandler(authService),
		Products: handlers.NewProductHandler(productService),
		Orders:   handlers.NewOrderHandler(orderService),
		Coupons:  handlers.NewCouponHandler(couponService),
		Returns:  handlers.NewReturnHandler(returnService),
	})
	return a, nil
}

func newRepositories(cfg config.DatabaseConfig) (repositorySet, *gorm.DB, error) {
	if cfg.Driver == config.DriverMemory {
		log.Warn().Msg("Using in-memory repositories; data is lost on restart")
		return repositorySet{
			users:    repositories.NewMockUserRepository(),
			products: repositories.NewMockProductRepository(),
			orders:   repositories.NewMockOrderRepository(),
			coupons:  repositories.NewMockCouponRepository(),
			returns:  repositories.NewMockReturnRepository(),
		}, nil, nil
	}

	db, err := database.Open(database.Config{Driver: cfg.Driver, DSN: cfg.DSN})
	if err != nil {
		return repositorySet{}, nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return repositorySet{}, nil, err
	}
	return repositorySet{
		users:    repositories.NewGORMUserRepository(db),
		products: repositories.NewGORMProductRepository(db),
		orders:   repositories.NewGORMOrderRepository(db),
		coupons:  repositories.NewGORMCouponRepository(db),
		returns:  repositories.NewGORMReturnRepository(db),
	}, db, nil
}

// startNotifier builds the mail sink and, when a broker is configured, routes
// events through RabbitMQ before they reach it.
func (a *app) startNotifier(cfg config.Config) error {
	renderer, err := notifications.NewRenderer(cfg.Notify.StoreName)
	if err != nil {
		return err
	}
	var mailer notifications.Mailer = notifications.LogMailer{}
	if cfg.SMTP.Host != "" {
		mailer = notifications.NewSMTPMailer(notifications.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			Timeout:  cfg.Notify.Timeout,
		})
	}
	mailSink := notifications.NewMailSink(mailer, renderer)

	var sink notifications.Sink = mailSink
	if cfg.RabbitMQ.URL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{
			URL:      cfg.RabbitMQ.URL,
			Exchange: cfg.RabbitMQ.Exchange,
			Queue:    cfg.RabbitMQ.Queue,
		})
		if err != nil {
			return fmt.Errorf("failed to initialise RabbitMQ client: %w", err)
		}
		a.mq = mqClient
		if err := mqClient.Consume(mailHandler(mailSink, cfg.Notify.Timeout)); err != nil {
			return fmt.Errorf("failed to start RabbitMQ consumer: %w", err)
		}
		sink = notifications.NewBrokerSink(mqClient)
	}

	a.notifier = notifications.NewAsyncNotifier(sink, notifications.AsyncOptions{
		Workers:   cfg.Notify.Workers,
		QueueSize: cfg.Notify.QueueSize,
		Timeout:   cfg.Notify.Timeout,
	})
	return nil
}

// mailHandler turns lifecycle events consumed from the broker into e-mails.
func mailHandler(sink notifications.Sink, timeout time.Duration) func(amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		event, err := notifications.DecodeEvent(msg.Body)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := sink.Deliver(ctx, event); err != nil {
			return fmt.Errorf("event %s: %w", event.ID, err)
		}
		return nil
	}
}

// Shutdown stops the server, drains pending notifications and closes the
// broker and database connections.
func (a *app) Shutdown() {
	if a.http != nil {
		if err := a.http.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Error during Fiber shutdown")
		}
	}
	if a.notifier != nil {
		a.notifier.Close()
	}
	if a.mq != nil {
		if err := a.mq.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			log.Error().Err(err).Msg("Error closing RabbitMQ client")
		}
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}
}

// defaultCatalog is seeded into an empty product table.
func defaultCatalog() []models.Product {
	return []models.Product{
		{Name: "Classic Cotton Tee", Description: "Regular fit crew neck t-shirt", Category: "t-shirts", Price: 499},
		{Name: "Slim Fit Jeans", Description: "Stretch denim, mid rise", Category: "jeans", Price: 1199},
		{Name: "Hooded Sweatshirt", Description: "Brushed fleece pullover hoodie", Category: "hoodies", Price: 1499},
		{Name: "Oxford Shirt", Description: "Button-down cotton oxford", Category: "shirts", Price: 999},
	}
}
