package di

import (
	"context"
	"fmt"
	"time"

	"keygate/application/serviceimpl"
	"keygate/domain/ports"
	"keygate/domain/services"
	"keygate/infrastructure/messaging"
	natspkg "keygate/infrastructure/nats"
	redispkg "keygate/infrastructure/redis"
	"keygate/infrastructure/storage"
	"keygate/interfaces/api/handlers"
	"keygate/interfaces/api/routes"
	"keygate/pkg/config"
	"keygate/pkg/logger"
	"keygate/pkg/scheduler"
	"keygate/pkg/utils"
)

const keyInventoryJobID = "key-inventory"

type Container struct {
	// Configuration
	Config *config.Config

	// Infrastructure
	RedisClient    *redispkg.Client // cache key material (optional)
	NATSClient     *natspkg.Client  // checkout events (optional)
	KeyStore       ports.KeyStorePort
	AssetStorage   ports.AssetStoragePort
	EventScheduler scheduler.EventScheduler

	// Messaging Ports
	CheckoutPublisher ports.CheckoutEventPublisherPort

	// Services
	TokenService        services.TokenService
	KeyService          services.KeyService
	CheckoutService     services.CheckoutService
	KeyInventoryService *serviceimpl.KeyInventoryService
}

func NewContainer() *Container {
	return &Container{}
}

func (c *Container) Initialize() error {
	if err := c.initConfig(); err != nil {
		return err
	}

	if err := c.initLogger(); err != nil {
		return err
	}

	if err := c.initInfrastructure(); err != nil {
		return err
	}

	if err := c.initServices(); err != nil {
		return err
	}

	if err := c.initScheduler(); err != nil {
		return err
	}

	logger.Info("Container initialized",
		"key_store", c.KeyStore.GetProviderName(),
		"redis", c.RedisClient != nil,
		"nats", c.NATSClient != nil,
	)
	return nil
}

func (c *Container) initConfig() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	c.Config = cfg
	return nil
}

func (c *Container) initLogger() error {
	logConfig := logger.Config{
		Level:      c.Config.Log.Level,
		Format:     c.Config.Log.Format,
		Output:     c.Config.Log.Output,
		FilePath:   c.Config.Log.FilePath,
		MaxSize:    c.Config.Log.MaxSize,
		MaxBackups: c.Config.Log.MaxBackups,
		MaxAge:     c.Config.Log.MaxAge,
		Compress:   c.Config.Log.Compress,
	}

	if err := logger.Init(logConfig); err != nil {
		return err
	}

	logger.Info("Logger initialized",
		"level", c.Config.Log.Level,
		"format", c.Config.Log.Format,
		"output", c.Config.Log.Output,
	)
	return nil
}

func (c *Container) initInfrastructure() error {
	if err := c.initStorage(); err != nil {
		return err
	}

	// Redis (optional - graceful degradation)
	if c.Config.Redis.URL != "" {
		redisClient, err := redispkg.NewClient(&c.Config.Redis)
		if err != nil {
			logger.Warn("Redis client initialization failed (key cache disabled)", "error", err)
		} else {
			c.RedisClient = redisClient
			c.KeyStore = redispkg.NewCachedKeyStore(c.KeyStore, redisClient, c.Config.Storage.CacheTTL)
			logger.Info("Key cache enabled", "ttl", c.Config.Storage.CacheTTL)
		}
	}

	// NATS (optional - checkout events)
	if c.Config.NATS.URL != "" {
		natsClient, err := natspkg.NewClient(natspkg.ClientConfig{
			URL:  c.Config.NATS.URL,
			Name: c.Config.App.Name,
		})
		if err != nil {
			logger.Warn("NATS client initialization failed (checkout events disabled)", "error", err)
		} else {
			c.NATSClient = natsClient
			c.CheckoutPublisher = messaging.NewNATSCheckoutPublisher(natsClient.Conn())
			logger.Info("NATS client initialized", "url", c.Config.NATS.URL)
		}
	}

	return nil
}

func (c *Container) initStorage() error {
	switch c.Config.Storage.Type {
	case "s3":
		// S3-Compatible Storage (MinIO / Cloudflare R2)
		s3Storage, err := storage.NewS3Storage(storage.S3StorageConfig{
			Endpoint:    c.Config.Storage.S3.Endpoint,
			AccessKey:   c.Config.Storage.S3.AccessKey,
			SecretKey:   c.Config.Storage.S3.SecretKey,
			Bucket:      c.Config.Storage.S3.Bucket,
			UseSSL:      c.Config.Storage.S3.UseSSL,
			Region:      c.Config.Storage.S3.Region,
			KeyPrefix:   c.Config.Storage.S3.Prefix,
			AssetPrefix: c.Config.Storage.S3.HLSPrefix,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		c.KeyStore = s3Storage
		c.AssetStorage = s3Storage

	case "local", "":
		localStorage, err := storage.NewLocalStorage(storage.LocalStorageConfig{
			KeyDir:   c.Config.Storage.KeyDir,
			AssetDir: c.Config.Storage.HLSDir,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize local storage: %w", err)
		}
		c.KeyStore = localStorage
		c.AssetStorage = localStorage
		logger.Info("Local storage initialized",
			"key_dir", c.Config.Storage.KeyDir,
			"hls_dir", c.Config.Storage.HLSDir,
		)

	default:
		return fmt.Errorf("%w: unknown KEY_STORE %q", utils.ErrConfiguration, c.Config.Storage.Type)
	}

	return nil
}

func (c *Container) initServices() error {
	tokenService, err := serviceimpl.NewTokenService(c.Config.JWT, c.Config.KeyGate, c.Config.App.URL)
	if err != nil {
		return err
	}
	c.TokenService = tokenService
	c.KeyService = serviceimpl.NewKeyService(c.TokenService, c.KeyStore)
	c.CheckoutService = serviceimpl.NewCheckoutService(c.Config.App.URL, c.CheckoutPublisher)
	c.KeyInventoryService = serviceimpl.NewKeyInventoryService(c.KeyStore)

	logger.Info("Services initialized",
		"token_ttl", c.Config.JWT.TTL,
		"default_video", c.Config.KeyGate.DefaultVideoID,
		"query_token", c.Config.KeyGate.AllowQueryToken,
	)
	return nil
}

func (c *Container) initScheduler() error {
	c.EventScheduler = scheduler.NewEventScheduler()

	cronExpr := c.Config.Schedule.KeyInventoryCron
	if cronExpr == "" {
		logger.Info("Key inventory job disabled")
		return nil
	}
	if err := scheduler.ValidateCronExpression(cronExpr); err != nil {
		return fmt.Errorf("%w: KEY_INVENTORY_CRON: %v", utils.ErrConfiguration, err)
	}

	runInventory := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		c.KeyInventoryService.Run(ctx)
	}

	if err := c.EventScheduler.AddJob(keyInventoryJobID, cronExpr, runInventory); err != nil {
		return err
	}
	c.EventScheduler.Start()

	// รอบแรกทันที ไม่ต้องรอ cron
	go runInventory()
	return nil
}

func (c *Container) Cleanup() error {
	logger.Info("Starting cleanup...")

	if c.EventScheduler != nil && c.EventScheduler.IsRunning() {
		c.EventScheduler.Stop()
	}

	if c.CheckoutPublisher != nil {
		if err := c.CheckoutPublisher.Close(); err != nil {
			logger.Warn("Failed to close checkout publisher", "error", err)
		}
	}

	if c.NATSClient != nil {
		if err := c.NATSClient.Close(); err != nil {
			logger.Warn("Failed to close NATS connection", "error", err)
		} else {
			logger.Info("NATS connection closed")
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			logger.Warn("Failed to close Redis connection", "error", err)
		} else {
			logger.Info("Redis connection closed")
		}
	}

	logger.Info("Cleanup completed")
	return nil
}

func (c *Container) GetConfig() *config.Config {
	return c.Config
}

func (c *Container) GetHandlerServices() *handlers.Services {
	return &handlers.Services{
		TokenService:    c.TokenService,
		KeyService:      c.KeyService,
		CheckoutService: c.CheckoutService,
		AssetStorage:    c.AssetStorage,
		AllowQueryToken: c.Config.KeyGate.AllowQueryToken,
	}
}

// GetRouteOptions ค่าที่ routes ต้องใช้ พร้อม health check ของ dependency ที่เปิดอยู่
func (c *Container) GetRouteOptions() routes.Options {
	checks := map[string]routes.HealthCheck{}
	if c.RedisClient != nil {
		checks["redis"] = c.RedisClient.Ping
	}
	if c.NATSClient != nil {
		checks["nats"] = func(context.Context) error { return c.NATSClient.Ping() }
	}

	return routes.Options{
		ServiceName:     c.Config.App.Name,
		KeyPathPrefix:   c.Config.KeyGate.KeyPathPrefix,
		RateLimitMax:    c.Config.Limit.Max,
		RateLimitWindow: c.Config.Limit.Window,
		HealthChecks:    checks,
	}
}
