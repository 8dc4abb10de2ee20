package container

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"digistore-backend/internal/config"
	"digistore-backend/internal/infrastructure/cache"
	"digistore-backend/internal/infrastructure/database"
	"digistore-backend/pkg/jwt"
	"digistore-backend/pkg/logger"

	affiliateHandler "digistore-backend/internal/domains/affiliate/handler"
	affiliateRepo "digistore-backend/internal/domains/affiliate/repository"
	affiliateService "digistore-backend/internal/domains/affiliate/service"
	auditHandler "digistore-backend/internal/domains/audit/handler"
	auditRepo "digistore-backend/internal/domains/audit/repository"
	catalogHandler "digistore-backend/internal/domains/catalog/handler"
	catalogRepo "digistore-backend/internal/domains/catalog/repository"
	catalogService "digistore-backend/internal/domains/catalog/service"
	discountHandler "digistore-backend/internal/domains/discount/handler"
	discountRepo "digistore-backend/internal/domains/discount/repository"
	discountService "digistore-backend/internal/domains/discount/service"
	orderHandler "digistore-backend/internal/domains/order/handler"
	orderRepo "digistore-backend/internal/domains/order/repository"
	orderService "digistore-backend/internal/domains/order/service"
	walletHandler "digistore-backend/internal/domains/wallet/handler"
	walletRepo "digistore-backend/internal/domains/wallet/repository"
	walletService "digistore-backend/internal/domains/wallet/service"
)

// ========================================
// CONTAINER
// ========================================

// Container is the root of the dependency graph. Everything in it is a
// singleton built once at startup, in dependency order: config,
// infrastructure, repositories, services, handlers.
type Container struct {
	Config      *config.Config
	DB          *database.PostgresDB
	Cache       *cache.RedisClient
	JWTManager  *jwt.Manager
	AsynqClient *asynq.Client

	AuditRepo     auditRepo.RepositoryInterface
	WalletRepo    walletRepo.RepositoryInterface
	CatalogRepo   catalogRepo.RepositoryInterface
	DiscountRepo  discountRepo.RepositoryInterface
	AffiliateRepo affiliateRepo.RepositoryInterface
	OrderRepo     orderRepo.RepositoryInterface

	WalletService    walletService.ServiceInterface
	CatalogService   catalogService.ServiceInterface
	DiscountService  discountService.ServiceInterface
	AffiliateService affiliateService.ServiceInterface
	OrderService     orderService.ServiceInterface

	AuditHandler     *auditHandler.AuditHandler
	WalletHandler    *walletHandler.WalletHandler
	CatalogHandler   *catalogHandler.CatalogHandler
	DiscountHandler  *discountHandler.DiscountHandler
	AffiliateHandler *affiliateHandler.AffiliateHandler
	OrderHandler     *orderHandler.OrderHandler
}

func NewContainer() (*Container, error) {
	c := &Container{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg

	if err := c.initInfrastructure(); err != nil {
		return nil, err
	}

	c.initRepositories()
	c.initServices()
	c.initHandlers()

	logger.Info("Container initialized", map[string]interface{}{
		"environment": cfg.App.Environment,
	})
	return c, nil
}

func (c *Container) initInfrastructure() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c.DB = database.NewPostgresDB(&database.DBConfig{
		Host:     c.Config.Database.Host,
		Port:     c.Config.Database.Port,
		Username: c.Config.Database.User,
		Password: c.Config.Database.Password,
		DBName:   c.Config.Database.Database,

		MaxConns:          int32(c.Config.Database.MaxConns),
		MinConns:          int32(c.Config.Database.MinConns),
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: time.Minute,

		MaxRetries:     5,
		RetryDelay:     time.Second,
		ConnectTimeout: 10 * time.Second,
	})
	if err := c.DB.Connect(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	c.Cache = cache.NewRedisClient(c.Config.Redis.Host, c.Config.Redis.Password, c.Config.Redis.DB)
	if err := c.Cache.Connect(ctx); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}

	c.JWTManager = jwt.NewManager(c.Config.JWT.Secret, c.Config.JWT.TokenExpiry)

	c.AsynqClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     c.Config.Redis.Host,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})

	return nil
}

func (c *Container) initRepositories() {
	pool := c.DB.Pool

	c.AuditRepo = auditRepo.NewPostgresAuditRepository(pool)
	c.WalletRepo = walletRepo.NewPostgresWalletRepository(pool)
	c.CatalogRepo = catalogRepo.NewPostgresCatalogRepository(pool, c.Config.App.CodeKey)
	c.DiscountRepo = discountRepo.NewPostgresDiscountRepository(pool)
	c.AffiliateRepo = affiliateRepo.NewPostgresAffiliateRepository(pool)
	c.OrderRepo = orderRepo.NewPostgresOrderRepository(pool)
}

func (c *Container) initServices() {
	c.WalletService = walletService.NewWalletService(c.WalletRepo, c.AuditRepo)
	c.CatalogService = catalogService.NewCatalogService(c.CatalogRepo, c.AuditRepo, c.Cache)
	c.DiscountService = discountService.NewDiscountService(c.DiscountRepo, c.CatalogRepo, c.AuditRepo)
	c.AffiliateService = affiliateService.NewAffiliateService(c.AffiliateRepo, c.AuditRepo)
	c.OrderService = orderService.NewOrderService(
		c.OrderRepo,
		c.CatalogRepo,
		c.WalletService,
		c.DiscountService,
		c.AffiliateService,
		c.AuditRepo,
		c.AsynqClient,
		c.Config.Jobs.LowStockThreshold,
	)
}

func (c *Container) initHandlers() {
	c.AuditHandler = auditHandler.NewAuditHandler(c.AuditRepo)
	c.WalletHandler = walletHandler.NewWalletHandler(c.WalletService)
	c.CatalogHandler = catalogHandler.NewCatalogHandler(c.CatalogService)
	c.DiscountHandler = discountHandler.NewDiscountHandler(c.DiscountService)
	c.AffiliateHandler = affiliateHandler.NewAffiliateHandler(c.AffiliateService)
	c.OrderHandler = orderHandler.NewOrderHandler(c.OrderService)
}

// HealthCheck pings every stateful dependency.
func (c *Container) HealthCheck(ctx context.Context) error {
	if err := c.DB.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Cache.HealthCheck(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// Close releases connections in reverse initialization order.
func (c *Container) Close() error {
	var firstErr error

	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
