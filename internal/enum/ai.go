package enum

type AIMode string

const (
	AIModeLocal  AIMode = "local"
	AIModeAPI    AIMode = "api"
	AIModeHybrid AIMode = "hybrid"
)

func (m AIMode) String() string {
	return string(m)
}

func GetAIMode(s string) AIMode {
	switch s {
	case "local", "api", "hybrid":
		return AIMode(s)
	default:
		return AIModeLocal
	}
}

type AIProvider string

const (
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
	AIProviderDeepSeek  AIProvider = "deepseek"
	AIProviderGLM       AIProvider = "glm"
	AIProviderQwen      AIProvider = "qwen"
	AIProviderMiniMax   AIProvider = "minimax"
	AIProviderMoonshot  AIProvider = "moonshot"
)

func (p AIProvider) String() string {
	return string(p)
}
