package providers

import (
	"fmt"
	"sort"
)

// ProviderFactory creates and returns appropriate LLM providers.
type ProviderFactory struct {
	// ProviderConfigs stores configuration for each provider.
	ProviderConfigs map[string]Config
}

// NewProviderFactory creates a new provider factory.
func NewProviderFactory(configs map[string]Config) *ProviderFactory {
	if configs == nil {
		configs = make(map[string]Config)
	}
	return &ProviderFactory{
		ProviderConfigs: configs,
	}
}

// SupportedProviders lists every provider name the factory can build.
func SupportedProviders() []string {
	return []string{ProviderAnthropic, ProviderOpenAI, ProviderGoogle, ProviderXAI, ProviderOllama}
}

// IsSupported reports whether name is a known provider.
func IsSupported(name string) bool {
	for _, p := range SupportedProviders() {
		if p == name {
			return true
		}
	}
	return false
}

// usable reports whether a configured provider can be called. Ollama runs
// without credentials; hosted providers need an API key.
func usable(name string, config Config) bool {
	return name == ProviderOllama || config.APIKey != ""
}

// GetProvider returns an initialized provider instance for the specified provider name.
func (f *ProviderFactory) GetProvider(providerName string) (LLMProvider, error) {
	config, exists := f.ProviderConfigs[providerName]
	if !exists {
		return nil, fmt.Errorf("configuration for provider '%s' not found", providerName)
	}

	switch providerName {
	case ProviderAnthropic:
		return NewAnthropicProvider(config), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(config), nil
	case ProviderGoogle:
		return NewGoogleProvider(config), nil
	case ProviderXAI:
		return NewXAIProvider(config), nil
	case ProviderOllama:
		return NewOllamaProvider(config)
	default:
		return nil, fmt.Errorf("unknown provider: %s", providerName)
	}
}

// GetProviderChain returns an ordered list of fallback providers. Providers in
// preferenceOrder come first, then the remaining usable providers by name.
// exclude is left out of the chain, typically the primary provider.
func (f *ProviderFactory) GetProviderChain(preferenceOrder []string, exclude string) []LLMProvider {
	var chain []LLMProvider
	seen := map[string]bool{exclude: true}

	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		config, exists := f.ProviderConfigs[name]
		if !exists || !usable(name, config) {
			return
		}
		if provider, err := f.GetProvider(name); err == nil {
			chain = append(chain, provider)
		}
	}

	for _, name := range preferenceOrder {
		add(name)
	}

	remaining := make([]string, 0, len(f.ProviderConfigs))
	for name := range f.ProviderConfigs {
		remaining = append(remaining, name)
	}
	sort.Strings(remaining)
	for _, name := range remaining {
		add(name)
	}

	return chain
}
