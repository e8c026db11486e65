package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// historyLimit caps the rolling conversation history at the most recent ten
// turns (five exchanges). Older turns are silently dropped, never summarized.
const historyLimit = 10

var (
	// ErrNoAPIKey is returned before any network call when no key is configured.
	ErrNoAPIKey = errors.New("no API key configured")
	// ErrBusy is returned while a previous ask is still in flight.
	ErrBusy = errors.New("chat request already in flight")
	// ErrUnknownProvider is returned when configuration names no known provider.
	ErrUnknownProvider = errors.New("unknown chat provider")
)

// Session holds the chat configuration and the rolling conversation history.
// At most one ask is in flight at a time; concurrent asks fail with ErrBusy
// instead of queueing.
type Session struct {
	providers map[string]Provider
	logger    *log.Logger

	mu      sync.Mutex
	busy    bool
	current Provider
	apiKey  string
	history []Turn
}

// NewSession creates a session selecting among the given providers. The first
// call to Configure picks the active provider and key.
func NewSession(providers map[string]Provider, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	return &Session{providers: providers, logger: logger}
}

// Configure selects the active provider and API key. An empty provider name
// keeps the current selection.
func (s *Session) Configure(provider, apiKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if provider != "" {
		p, ok := s.providers[provider]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
		}
		s.current = p
	}
	s.apiKey = apiKey
	return nil
}

// History returns a snapshot of the stored conversation turns.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Turn, len(s.history))
	copy(result, s.history)
	return result
}

// Reset discards the conversation history, keeping provider and key.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// Ask sends the user's message with the given archive context to the active
// provider and returns the reply text. On success the exchange is appended to
// the rolling history; failed asks leave the history untouched.
func (s *Session) Ask(ctx context.Context, message string, appContext Context) (string, error) {
	s.mu.Lock()
	if s.apiKey == "" {
		s.mu.Unlock()
		return "", ErrNoAPIKey
	}
	if s.current == nil {
		s.mu.Unlock()
		return "", ErrUnknownProvider
	}
	if s.busy {
		s.mu.Unlock()
		return "", ErrBusy
	}
	s.busy = true
	provider := s.current
	apiKey := s.apiKey
	history := make([]Turn, len(s.history))
	copy(history, s.history)
	s.mu.Unlock()

	reply, err := provider.Send(ctx, apiKey, appContext.SystemPrompt(), history, message)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false

	if err != nil {
		s.logger.Printf("chat request to %s failed: %v", provider.Name(), err)
		return "", err
	}

	s.history = append(s.history, Turn{Role: RoleUser, Text: message}, Turn{Role: RoleAssistant, Text: reply})
	if excess := len(s.history) - historyLimit; excess > 0 {
		s.history = append([]Turn(nil), s.history[excess:]...)
	}

	return reply, nil
}
