package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailsift/mailsift/internal/enum"
)

func TestResolveProvider_SupportedProviders(t *testing.T) {
	tests := []struct {
		provider     string
		wantBaseURL  string
		defaultModel string
	}{
		{"openai", "https://api.openai.com/v1", "gpt-4o-mini"},
		{"anthropic", "https://api.anthropic.com/v1", "claude-3-5-haiku-20241022"},
		{"deepseek", "https://api.deepseek.com/v1", "deepseek-chat"},
		{"glm", "https://open.bigmodel.cn/api/paas/v4", "glm-4-flash"},
		{"qwen", "https://dashscope.aliyuncs.com/compatible-mode/v1", "qwen-turbo"},
		{"minimax", "https://api.minimax.chat/v1", "abab6.5s-chat"},
		{"moonshot", "https://api.moonshot.cn/v1", "moonshot-v1-8k"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			// Act
			p, endpoint, err := ResolveProvider(tt.provider)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, enum.AIProvider(tt.provider), p)
			assert.Equal(t, tt.wantBaseURL, endpoint.BaseURL)
			assert.Equal(t, tt.defaultModel, endpoint.DefaultModel)
		})
	}
}

func TestResolveProvider_UnsupportedProvider(t *testing.T) {
	// Act
	_, _, err := ResolveProvider("bedrock")

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported AI provider")
}

func TestModelOrDefault(t *testing.T) {
	// Arrange
	_, endpoint, err := ResolveProvider("deepseek")
	require.NoError(t, err)

	// Assert
	assert.Equal(t, "deepseek-reasoner", modelOrDefault("deepseek-reasoner", endpoint))
	assert.Equal(t, "deepseek-chat", modelOrDefault("", endpoint))
}
