package ai

import (
	"github.com/mailsift/mailsift/internal/enum"
	"github.com/pkg/errors"
)

// ProviderEndpoint describes one OpenAI-compatible cloud provider.
type ProviderEndpoint struct {
	BaseURL      string
	DefaultModel string
}

var providerEndpoints = map[enum.AIProvider]ProviderEndpoint{
	enum.AIProviderOpenAI:    {BaseURL: "https://api.openai.com/v1", DefaultModel: "gpt-4o-mini"},
	enum.AIProviderAnthropic: {BaseURL: "https://api.anthropic.com/v1", DefaultModel: "claude-3-5-haiku-20241022"},
	enum.AIProviderDeepSeek:  {BaseURL: "https://api.deepseek.com/v1", DefaultModel: "deepseek-chat"},
	enum.AIProviderGLM:       {BaseURL: "https://open.bigmodel.cn/api/paas/v4", DefaultModel: "glm-4-flash"},
	enum.AIProviderQwen:      {BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1", DefaultModel: "qwen-turbo"},
	enum.AIProviderMiniMax:   {BaseURL: "https://api.minimax.chat/v1", DefaultModel: "abab6.5s-chat"},
	enum.AIProviderMoonshot:  {BaseURL: "https://api.moonshot.cn/v1", DefaultModel: "moonshot-v1-8k"},
}

// ResolveProvider returns the endpoint for a provider name, or an error for
// providers outside the supported set.
func ResolveProvider(provider string) (enum.AIProvider, ProviderEndpoint, error) {
	p := enum.AIProvider(provider)
	endpoint, ok := providerEndpoints[p]
	if !ok {
		return "", ProviderEndpoint{}, errors.Errorf("unsupported AI provider: %s", provider)
	}
	return p, endpoint, nil
}

// modelOrDefault picks the configured model, falling back to the provider
// default when the settings row leaves it empty.
func modelOrDefault(model string, endpoint ProviderEndpoint) string {
	if model != "" {
		return model
	}
	return endpoint.DefaultModel
}
