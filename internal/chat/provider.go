package chat

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Turn is a single stored exchange half in the rolling conversation history.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Roles used in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider is the capability of sending one chat completion request to an
// upstream API. Implementations are stateless; the caller owns the history.
type Provider interface {
	Name() string
	Send(ctx context.Context, apiKey, system string, history []Turn, message string) (string, error)
}

// ProviderError carries the upstream error message when a provider call does
// not succeed.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Provider names accepted in persisted settings.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

const (
	defaultRequestTimeout = 60 * time.Second
	defaultMaxTokens      = 1024
)

func defaultClient() *http.Client {
	return &http.Client{Timeout: defaultRequestTimeout}
}
