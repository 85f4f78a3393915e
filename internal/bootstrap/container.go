package bootstrap

import (
	"context"
	"log"
	"time"

	"audiocodes-connector/internal/config"
	"audiocodes-connector/internal/controller"
	"audiocodes-connector/internal/dto"
	"audiocodes-connector/internal/model"
	"audiocodes-connector/internal/pkg/logger"
	"audiocodes-connector/internal/repository/contract"
	"audiocodes-connector/internal/repository/implementation"
	"audiocodes-connector/internal/repository/memory"
	"audiocodes-connector/internal/service"
	"audiocodes-connector/pkg/audiocodes"
	"audiocodes-connector/pkg/chatbotapi"
	"audiocodes-connector/pkg/database"
	"audiocodes-connector/pkg/lang"
	"audiocodes-connector/pkg/store"

	pktNats "audiocodes-connector/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const sweepInterval = 10 * time.Minute

type Container struct {
	AudiocodesController controller.IAudiocodesController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	closers []func()
}

// NewContainer wires the connector. db is only used by the postgres session driver
// and may be nil otherwise.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	c := &Container{}

	// 1. Logging
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	auditLogger := logger.NewIsolatedLogger(cfg.App.AuditLogFilePath)
	c.closers = append(c.closers, func() {
		_ = sysLogger.Sync()
		_ = auditLogger.Sync()
	})

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Session Storage
	ttl := time.Duration(cfg.App.SessionTTLMinutes) * time.Minute
	sessions := c.newSessionRepository(db, cfg, ttl)

	// 4. NATS export
	var exporter service.EventExporter
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			exporter = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	// 5. Clients
	translations, err := lang.New(cfg.Lang.Language, cfg.Lang.TranslationsPath)
	if err != nil {
		log.Fatalf("[FATAL] Failed to load translations: %v", err)
	}
	log.Printf("[INFO] Using language: %s", translations.Language())

	bots := chatbotapi.NewClient(chatbotapi.Config{
		APIKey:      cfg.Chatbot.APIKey,
		Secret:      cfg.Chatbot.Secret,
		AuthURL:     cfg.Chatbot.AuthURL,
		Environment: cfg.Chatbot.Environment,
		UserType:    cfg.Chatbot.UserType,
		Source:      cfg.Chatbot.Source,
		Timeout:     time.Duration(cfg.Chatbot.TimeoutSeconds) * time.Second,
	})
	botFactory := func(session *store.Session) service.ChatbotConversation {
		return bots.Conversation(session)
	}

	// 6. Services
	publisherService := service.NewPublisherService(dto.ConnectorEventsTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		dto.ConnectorEventsTopic,
		auditLogger,
		sysLogger,
		exporter,
	)

	connectorService := service.NewConnectorService(
		sessions,
		botFactory,
		audiocodes.NewClient(),
		translations,
		publisherService,
		sysLogger,
		service.ConnectorOptions{
			ExpiresSeconds:     cfg.Audiocodes.ExpiresSeconds,
			ChatEnabled:        cfg.Chat.Enabled,
			ChatAddress:        cfg.Chat.Address,
			EscalationMode:     cfg.Chat.EscalationMode,
			NoResultsThreshold: cfg.Chat.NoResultsThreshold,
		},
	)

	// 7. Controllers
	c.AudiocodesController = controller.NewAudiocodesController(connectorService)
	c.ConsumerService = consumerService

	return c
}

func (c *Container) newSessionRepository(db *gorm.DB, cfg *config.Config, ttl time.Duration) contract.SessionRepository {
	switch cfg.App.SessionDriver {
	case config.SessionDriverRedis:
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		c.closers = append(c.closers, func() { _ = rdb.Close() })
		log.Printf("[INFO] Using session driver: REDIS")
		return implementation.NewRedisSessionRepository(rdb, ttl)

	case config.SessionDriverPostgres:
		if db == nil {
			log.Fatalf("[FATAL] Session driver postgres needs a database connection")
		}
		if err := database.Migrate(db, &model.ConnectorSession{}); err != nil {
			log.Fatalf("[FATAL] Failed to migrate session table: %v", err)
		}
		repo := implementation.NewSessionRepository(db, ttl)

		ctx, cancel := context.WithCancel(context.Background())
		go sweepExpiredSessions(ctx, repo)
		c.closers = append(c.closers, cancel)
		log.Printf("[INFO] Using session driver: POSTGRES")
		return repo
	}

	log.Printf("[INFO] Using session driver: MEMORY")
	return memory.NewSessionRepository(ttl)
}

func sweepExpiredSessions(ctx context.Context, repo *implementation.SessionRepositoryImpl) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.DeleteExpired(ctx)
			if err != nil {
				log.Printf("[WARN] Failed to delete expired sessions: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[INFO] Deleted %d expired sessions", n)
			}
		}
	}
}

// Close releases the container's connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
