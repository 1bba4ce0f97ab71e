package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailsift/mailsift/config"
	"github.com/mailsift/mailsift/dto"
	"github.com/mailsift/mailsift/internal/models"
	"github.com/mailsift/mailsift/internal/utils"
)

type fakeSettingsRepo struct {
	rows map[string]*models.AISettings
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{rows: make(map[string]*models.AISettings)}
}

func (f *fakeSettingsRepo) GetByMailbox(ctx context.Context, mailboxID string) (*models.AISettings, error) {
	return f.rows[mailboxID], nil
}

func (f *fakeSettingsRepo) Save(ctx context.Context, settings *models.AISettings) error {
	f.rows[settings.MailboxID] = settings
	return nil
}

func envAIConfig() *config.AIConfig {
	return &config.AIConfig{
		Mode:        "local",
		LocalModel:  "llama3.1:8b",
		LocalHost:   "http://localhost:11434",
		APIProvider: "openai",
	}
}

func TestSettingsService_GetAIConfig_DefaultsWhenNoRow(t *testing.T) {
	// Arrange
	svc := NewSettingsService(envAIConfig(), newFakeSettingsRepo())

	// Act
	cfg, err := svc.GetAIConfig(context.Background(), "primary")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Mode)
	assert.Equal(t, "llama3.1:8b", cfg.LocalModel)
	assert.Equal(t, "http://localhost:11434", cfg.LocalHost)
	assert.Equal(t, "openai", cfg.APIProvider)
	assert.False(t, cfg.ConfirmBeforeAPI)
}

func TestSettingsService_GetAIConfig_RowOverridesDefaults(t *testing.T) {
	// Arrange
	repo := newFakeSettingsRepo()
	repo.rows["primary"] = &models.AISettings{
		MailboxID:        "primary",
		Mode:             "hybrid",
		LocalModel:       "qwen2:7b",
		APIProvider:      "deepseek",
		APIKey:           "sk-stored",
		ConfirmBeforeAPI: true,
	}
	svc := NewSettingsService(envAIConfig(), repo)

	// Act
	cfg, err := svc.GetAIConfig(context.Background(), "primary")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "hybrid", cfg.Mode)
	assert.Equal(t, "qwen2:7b", cfg.LocalModel)
	// Unset row fields inherit the env default.
	assert.Equal(t, "http://localhost:11434", cfg.LocalHost)
	assert.Equal(t, "deepseek", cfg.APIProvider)
	assert.Equal(t, "sk-stored", cfg.APIKey)
	assert.True(t, cfg.ConfirmBeforeAPI)
}

func TestSettingsService_UpdateAIConfig_PartialMerge(t *testing.T) {
	// Arrange
	repo := newFakeSettingsRepo()
	svc := NewSettingsService(envAIConfig(), repo)

	// Act
	cfg, err := svc.UpdateAIConfig(context.Background(), "primary", dto.AIConfigUpdate{
		Mode: utils.Ptr("hybrid"),
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "hybrid", cfg.Mode)
	assert.Equal(t, "llama3.1:8b", cfg.LocalModel)

	saved := repo.rows["primary"]
	require.NotNil(t, saved)
	assert.Equal(t, "hybrid", saved.Mode)
	assert.Equal(t, "llama3.1:8b", saved.LocalModel)
}

func TestSettingsService_UpdateAIConfig_MaskedKeyKeepsStored(t *testing.T) {
	// Arrange
	repo := newFakeSettingsRepo()
	repo.rows["primary"] = &models.AISettings{
		MailboxID: "primary",
		Mode:      "api",
		APIKey:    "sk-original",
	}
	svc := NewSettingsService(envAIConfig(), repo)

	// Act: a masked key round-trips without clobbering the stored one.
	cfg, err := svc.UpdateAIConfig(context.Background(), "primary", dto.AIConfigUpdate{
		APIKey:   utils.Ptr("***"),
		APIModel: utils.Ptr("gpt-4o-mini"),
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "sk-original", cfg.APIKey)
	assert.Equal(t, "sk-original", repo.rows["primary"].APIKey)

	// Act: a real key replaces it.
	cfg, err = svc.UpdateAIConfig(context.Background(), "primary", dto.AIConfigUpdate{
		APIKey: utils.Ptr("sk-next"),
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "sk-next", cfg.APIKey)
}

func TestSettingsService_UpdateAIConfig_InvalidMode(t *testing.T) {
	// Arrange
	svc := NewSettingsService(envAIConfig(), newFakeSettingsRepo())

	// Act
	cfg, err := svc.UpdateAIConfig(context.Background(), "primary", dto.AIConfigUpdate{
		Mode: utils.Ptr("cloud"),
	})

	// Assert
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestSettingsService_UpdateAIConfig_InvalidProvider(t *testing.T) {
	// Arrange
	svc := NewSettingsService(envAIConfig(), newFakeSettingsRepo())

	// Act
	cfg, err := svc.UpdateAIConfig(context.Background(), "primary", dto.AIConfigUpdate{
		APIProvider: utils.Ptr("bedrock"),
	})

	// Assert
	assert.Error(t, err)
	assert.Nil(t, cfg)
}
