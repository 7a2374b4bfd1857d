package bootstrap

import (
	"context"
	"log"

	"locus/internal/config"
	"locus/internal/controller"
	"locus/internal/handler"
	"locus/internal/metrics"
	"locus/internal/pkg/logger"
	"locus/internal/pkg/serverutils"
	"locus/internal/repository/memory"
	"locus/internal/repository/unitofwork"
	"locus/internal/service"
	"locus/internal/websocket"
	"locus/pkg/llm/factory"
	pktNats "locus/pkg/nats"
	"locus/pkg/zotero"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ContentController   controller.IContentController
	HighlightController controller.IHighlightController
	ChatController      controller.IChatController
	ZoteroController    controller.IZoteroController
	AuthController      controller.IAuthController
	SystemController    controller.Controller
	SocketHandler       *handler.SocketHandler

	Metrics *metrics.Metrics
	Logger  logger.ILogger

	// Background services, started by Start
	ConsumerService      service.IConsumerService
	CatalogUpdateService service.ICatalogUpdateService
	WebSocketHub         *websocket.Hub

	natsSub *pktNats.Subscriber
	closers []func()
}

func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	m := metrics.New()
	catalogCache := memory.NewCatalogCache(cfg.App.CatalogCacheTTL)

	c := &Container{Metrics: m, Logger: sysLogger}

	// 2. In-process job queue
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { pubSub.Close() })

	// 3. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("Container", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
	} else {
		c.closers = append(c.closers, natsPub.Close)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("Container", "Failed to connect to NATS Subscriber", map[string]interface{}{"error": err.Error()})
	} else {
		c.natsSub = natsSub
		c.closers = append(c.closers, natsSub.Close)
	}

	// Redis
	var rdb *redis.Client
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		sysLogger.Warn("Container", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb = redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		sysLogger.Warn("Container", "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
		rdb.Close()
		rdb = nil
	} else {
		c.closers = append(c.closers, func() { rdb.Close() })
	}

	var denylist service.TokenDenylist = service.NewMemoryDenylist()
	if rdb != nil {
		denylist = service.NewRedisDenylist(rdb)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(cfg.App.HubLogFilePath)
	c.WebSocketHub = websocket.NewHub(rdb, m, wsLogger)

	// 4. Catalog change notifications
	var eventSubscriber service.EventSubscriber
	if natsSub != nil {
		eventSubscriber = natsSub
	}
	c.CatalogUpdateService = service.NewCatalogUpdateService(eventSubscriber, c.WebSocketHub, catalogCache, m, wsLogger)

	var eventPublisher service.EventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	} else {
		eventPublisher = service.NewLocalPublisher(c.CatalogUpdateService)
	}

	// 5. External APIs
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.HuggingFace,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	sysLogger.Info("Container", "Using LLM provider", map[string]interface{}{"provider": cfg.Ai.LLMProvider, "model": cfg.Ai.LLMModel})

	var zoteroAPI service.ZoteroAPI
	if cfg.Keys.ZoteroAPIKey != "" && cfg.Keys.ZoteroUserID != "" {
		zoteroAPI = zotero.NewClient(cfg.Keys.ZoteroBaseURL, cfg.Keys.ZoteroUserID, cfg.Keys.ZoteroAPIKey)
	} else {
		sysLogger.Warn("Container", "Zotero is not configured, sync disabled", nil)
	}

	// 6. Services
	publisherService := service.NewPublisherService(cfg.App.TranscriptTopic, pubSub)
	c.ConsumerService = service.NewConsumerService(
		pubSub,
		cfg.App.TranscriptTopic,
		uowFactory,
		catalogCache,
		eventPublisher,
		sysLogger,
	)

	contentService := service.NewContentService(uowFactory, catalogCache, eventPublisher, m, sysLogger, cfg.App.ContentFilePath)
	highlightService := service.NewHighlightService(uowFactory, catalogCache, eventPublisher, m, sysLogger)
	chatService := service.NewChatService(uowFactory, llmProvider, publisherService, catalogCache, m, sysLogger, cfg.Ai.Temperature)
	zoteroService := service.NewZoteroService(
		uowFactory,
		zoteroAPI,
		cfg.Keys.ZoteroCollection,
		cfg.App.ContentFilePath,
		catalogCache,
		eventPublisher,
		m,
		sysLogger,
	)
	authService := service.NewAuthService(uowFactory, denylist, sysLogger, cfg.Auth.JwtSecret, cfg.Auth.TokenTTL)

	// 7. Controllers
	requireAuth := serverutils.JwtMiddleware(cfg.Auth.JwtSecret, denylist)

	c.ContentController = controller.NewContentController(contentService, requireAuth)
	c.HighlightController = controller.NewHighlightController(highlightService, requireAuth)
	c.ChatController = controller.NewChatController(chatService)
	c.ZoteroController = controller.NewZoteroController(zoteroService, requireAuth)
	c.AuthController = controller.NewAuthController(authService, requireAuth)
	c.SystemController = controller.NewSystemController(m)
	c.SocketHandler = handler.NewSocketHandler(ctx, c.WebSocketHub, chatService, authService, cfg.Auth.JwtSecret, denylist, wsLogger)

	return c
}

// Controllers lists everything that mounts routes.
func (c *Container) Controllers() []controller.Controller {
	return []controller.Controller{
		c.SystemController,
		c.AuthController,
		c.ContentController,
		c.HighlightController,
		c.ChatController,
		c.ZoteroController,
		c.SocketHandler,
	}
}

// Start runs the background services until ctx is done.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)

	if err := c.ConsumerService.Consume(ctx); err != nil {
		return err
	}
	if c.natsSub != nil {
		if err := c.CatalogUpdateService.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
