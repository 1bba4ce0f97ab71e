package services

import (
	"github.com/mailsift/mailsift/config"
	"github.com/mailsift/mailsift/interfaces"
	"github.com/mailsift/mailsift/internal/logger"
	"github.com/mailsift/mailsift/internal/repository"
	"github.com/mailsift/mailsift/services/ai"
	"github.com/mailsift/mailsift/services/events"
	"github.com/mailsift/mailsift/services/imap"
	"github.com/mailsift/mailsift/services/progress"
	"github.com/mailsift/mailsift/services/storage"
	syncservice "github.com/mailsift/mailsift/services/sync"
)

type Services struct {
	ProgressHub     interfaces.ProgressEmitter
	SettingsService interfaces.SettingsService
	AIService       interfaces.AIService
	IMAPClient      interfaces.IMAPClient
	EventPublisher  interfaces.EventPublisher
	StorageService  interfaces.StorageService
	SyncService     interfaces.SyncService
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	progressHub := progress.NewProgressHub(log)

	settingsService := ai.NewSettingsService(cfg.AIConfig, repos.SettingsRepository)
	aiService := ai.NewAIService(cfg.AIConfig, settingsService, ai.NewPrivacyPolicy(), progressHub, log)

	imapClient := imap.NewIMAPAdapter(cfg.IMAPConfig, log)

	// queue events are optional; without a broker the pipeline just
	// skips publishing
	var eventPublisher interfaces.EventPublisher
	if cfg.AppConfig.RabbitMQURL != "" {
		publisher, err := events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, log, nil)
		if err != nil {
			return nil, err
		}
		eventPublisher = publisher
	} else {
		log.Warn("RABBITMQ_URL not set, queue events disabled")
	}

	storageService, err := storage.NewFromConfig(cfg.StorageConfig)
	if err != nil {
		return nil, err
	}
	if storageService == nil {
		log.Info("raw email archival disabled")
	}

	syncService := syncservice.NewSyncService(
		cfg,
		log,
		imapClient,
		aiService,
		repos.EmailRepository,
		repos.SyncSessionRepository,
		progressHub,
		eventPublisher,
		storageService,
	)

	return &Services{
		ProgressHub:     progressHub,
		SettingsService: settingsService,
		AIService:       aiService,
		IMAPClient:      imapClient,
		EventPublisher:  eventPublisher,
		StorageService:  storageService,
		SyncService:     syncService,
	}, nil
}
