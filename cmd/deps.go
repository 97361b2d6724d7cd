package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/licensestore/internal"
	"github.com/frahmantamala/licensestore/internal/auth"
	authPostgres "github.com/frahmantamala/licensestore/internal/auth/postgres"
	"github.com/frahmantamala/licensestore/internal/cache"
	"github.com/frahmantamala/licensestore/internal/cart"
	cartPostgres "github.com/frahmantamala/licensestore/internal/cart/postgres"
	"github.com/frahmantamala/licensestore/internal/catalog"
	catalogPostgres "github.com/frahmantamala/licensestore/internal/catalog/postgres"
	"github.com/frahmantamala/licensestore/internal/content"
	contentPostgres "github.com/frahmantamala/licensestore/internal/content/postgres"
	"github.com/frahmantamala/licensestore/internal/core/events"
	"github.com/frahmantamala/licensestore/internal/order"
	orderPostgres "github.com/frahmantamala/licensestore/internal/order/postgres"
	"github.com/frahmantamala/licensestore/internal/payment"
	paymentPostgres "github.com/frahmantamala/licensestore/internal/payment/postgres"
	"github.com/frahmantamala/licensestore/internal/paymentgateway"
	"github.com/frahmantamala/licensestore/internal/rbac"
	rbacPostgres "github.com/frahmantamala/licensestore/internal/rbac/postgres"
	"github.com/frahmantamala/licensestore/internal/storage"
	"github.com/frahmantamala/licensestore/internal/support"
	supportPostgres "github.com/frahmantamala/licensestore/internal/support/postgres"
	"github.com/frahmantamala/licensestore/internal/user"
	userPostgres "github.com/frahmantamala/licensestore/internal/user/postgres"
	"github.com/frahmantamala/licensestore/pkg/logger"
)

// Services is the domain layer shared by the server and worker commands.
type Services struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Gorm     *gorm.DB
	Cache    *cache.Client
	EventBus *events.EventBus
	Logger   *slog.Logger

	Auth    *auth.Service
	User    *user.Service
	RBAC    *rbac.Service
	Checker *rbacPostgres.PermissionChecker
	Catalog *catalog.Service
	Cart    *cart.Service
	Payment *payment.Service
	Order   *order.Service
	Support *support.Service
	Content *content.Service
}

func buildServices(cfg *internal.Config) (*Services, error) {
	logger.Configure(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	lg := logger.L()

	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gdb, err := initGorm(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	var cacheClient *cache.Client
	var productCache catalog.ProductCache
	if cfg.Redis.Enabled {
		cacheClient, err = cache.NewClient(cfg.Redis)
		if err != nil {
			db.Close()
			return nil, err
		}
		productCache = catalog.NewRedisCache(cacheClient, cfg.Redis.ProductCacheTTL, lg)
	}

	store, err := storage.NewDriver(cfg.Storage)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	bus := events.NewEventBus(lg)

	tokenGen := auth.NewJWTTokenGenerator(
		cfg.Security.JWTAccessSecret,
		cfg.Security.JWTRefreshSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)

	gateway := paymentgateway.NewClient(paymentgateway.Config{
		BaseURL:     cfg.PayOS.BaseURL,
		ClientID:    cfg.PayOS.ClientID,
		APIKey:      cfg.PayOS.APIKey,
		ChecksumKey: cfg.PayOS.ChecksumKey,
		Timeout:     cfg.PayOS.Timeout,
	}, lg)

	paymentService := payment.NewService(paymentPostgres.NewPaymentRepository(gdb), gateway, bus, payment.Config{
		ReturnURL:  cfg.PayOS.ReturnURL,
		CancelURL:  cfg.PayOS.CancelURL,
		LinkExpiry: cfg.PayOS.LinkExpiry,
	}, lg)

	svc := &Services{
		Config:   cfg,
		DB:       db,
		Gorm:     gdb,
		Cache:    cacheClient,
		EventBus: bus,
		Logger:   lg,

		Auth:    auth.NewService(authPostgres.NewRepository(gdb), tokenGen, cfg.Security.BCryptCost, lg),
		User:    user.NewService(userPostgres.NewUserRepository(gdb), cfg.Security.BCryptCost, lg),
		RBAC:    rbac.NewService(rbacPostgres.NewRepository(gdb), lg),
		Checker: rbacPostgres.NewPermissionChecker(db),
		Catalog: catalog.NewService(catalogPostgres.NewRepository(gdb), productCache, store, lg),
		Cart:    cart.NewService(cartPostgres.NewRepository(gdb), lg),
		Payment: paymentService,
		Order:   order.NewService(orderPostgres.NewRepository(gdb), paymentService, bus, lg),
		Support: support.NewService(supportPostgres.NewRepository(gdb), bus, lg),
		Content: content.NewService(contentPostgres.NewRepository(gdb), lg),
	}

	// payment.completed marks the order paid, which then releases stock and keys
	svc.Order.RegisterEventHandlers(bus)
	bus.Subscribe(events.EventTypeOrderPaid, svc.Catalog.HandleOrderPaid)

	return svc, nil
}

// Close drains pending events before releasing connections.
func (s *Services) Close() {
	s.EventBus.Wait()
	if s.Cache != nil {
		if err := s.Cache.Close(); err != nil {
			s.Logger.Error("redis close error", "error", err)
		}
	}
	if err := s.DB.Close(); err != nil {
		s.Logger.Error("database close error", "error", err)
	}
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx pool so repositories and the permission checker use
// the same connections.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}
