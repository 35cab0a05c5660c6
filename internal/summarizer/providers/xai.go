package providers

const (
	xaiAPIURL       = "https://api.x.ai/v1"
	defaultXAIModel = "grok-3-mini"
)

// NewXAIProvider creates a provider for xAI's Grok models, which speak the
// OpenAI chat completions protocol.
func NewXAIProvider(config Config) *OpenAIProvider {
	if config.BaseURL == "" {
		config.BaseURL = xaiAPIURL
	}
	return newOpenAICompatible(ProviderXAI, defaultXAIModel, config)
}
