package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrAuth indicates the provider rejected our credentials. It is fatal to
// the run and never retried.
var ErrAuth = errors.New("provider authentication failed")

// StreamCallback is called for each content chunk received while streaming.
type StreamCallback func(content string)

// ClientInterface defines the common surface for all provider clients.
// Clients are constructed explicitly and passed in; they carry no
// module-level state and must be closed when the owning run or process
// ends.
type ClientInterface interface {
	SendChatRequest(ctx context.Context, messages []Message) (*ChatResponse, error)
	SendChatRequestStream(ctx context.Context, messages []Message, callback StreamCallback) (*ChatResponse, error)
	CheckConnection(ctx context.Context) error
	SetModel(model string) error
	GetModel() string
	GetProvider() string
	Close() error
}

// ClientType represents the provider behind a client.
type ClientType string

const (
	DeepInfraClientType   ClientType = "deepinfra"
	OpenAIClientType      ClientType = "openai"
	OllamaLocalClientType ClientType = "ollama-local"
)

// NewUnifiedClient creates a client for the given provider and model. An
// empty model selects the provider default.
func NewUnifiedClient(clientType ClientType, model string) (ClientInterface, error) {
	switch clientType {
	case DeepInfraClientType:
		return NewHTTPClient(DeepInfraClientType, deepInfraURL, "DEEPINFRA_API_KEY", model)
	case OpenAIClientType:
		return NewHTTPClient(OpenAIClientType, openAIURL, "OPENAI_API_KEY", model)
	case OllamaLocalClientType:
		return NewOllamaLocalClient(model)
	default:
		return nil, fmt.Errorf("unknown provider: %s", clientType)
	}
}

// DetermineProvider resolves which provider to use with clear precedence:
// explicit argument, then APPFORGE_PROVIDER, then the first provider with
// credentials, then local Ollama as the fallback.
func DetermineProvider(explicitProvider string) (ClientType, error) {
	if explicitProvider != "" {
		provider, err := ParseProviderName(explicitProvider)
		if err != nil {
			return "", err
		}
		if !IsProviderAvailable(provider) {
			return "", fmt.Errorf("provider '%s' is not available (check API key)", explicitProvider)
		}
		return provider, nil
	}

	if providerEnv := os.Getenv("APPFORGE_PROVIDER"); providerEnv != "" {
		provider, err := ParseProviderName(providerEnv)
		if err == nil && IsProviderAvailable(provider) {
			return provider, nil
		}
	}

	priorityOrder := []ClientType{
		OpenAIClientType,
		DeepInfraClientType,
	}
	for _, provider := range priorityOrder {
		if IsProviderAvailable(provider) {
			return provider, nil
		}
	}

	return OllamaLocalClientType, nil
}

// ParseProviderName converts a string provider name to ClientType.
func ParseProviderName(name string) (ClientType, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	switch normalized {
	case "openai":
		return OpenAIClientType, nil
	case "deepinfra":
		return DeepInfraClientType, nil
	case "ollama", "ollama-local":
		return OllamaLocalClientType, nil
	default:
		return "", fmt.Errorf("unknown provider: %s", name)
	}
}

// IsProviderAvailable checks if a provider can be used.
func IsProviderAvailable(provider ClientType) bool {
	switch provider {
	case OllamaLocalClientType:
		// Local availability is verified at client construction.
		return true
	case OpenAIClientType:
		return os.Getenv("OPENAI_API_KEY") != ""
	case DeepInfraClientType:
		return os.Getenv("DEEPINFRA_API_KEY") != ""
	default:
		return false
	}
}
