package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/mailsift/mailsift/config"
	"github.com/mailsift/mailsift/interfaces"
	"github.com/mailsift/mailsift/internal/models"
)

type Repositories struct {
	EmailRepository       interfaces.EmailRepository
	SyncSessionRepository interfaces.SyncSessionRepository
	SettingsRepository    interfaces.SettingsRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		EmailRepository:       NewEmailRepository(db),
		SyncSessionRepository: NewSyncSessionRepository(db),
		SettingsRepository:    NewSettingsRepository(db),
	}
}

func MigrateDB(dbConfig *config.DatabaseConfig, gormDB *gorm.DB) error {
	db, err := gormDB.DB()
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(5)

	err = gormDB.AutoMigrate(
		&models.Email{},
		&models.SyncSession{},
		&models.AISettings{},
	)

	db.Close()

	db, _ = gormDB.DB()
	db.SetMaxIdleConns(dbConfig.MaxIdleConn)
	db.SetMaxOpenConns(dbConfig.MaxConn)
	db.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}
