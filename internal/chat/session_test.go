package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"
)

func waitFor(t *testing.T, predicate func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if predicate() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for condition")
}

type fakeProvider struct {
	mu      sync.Mutex
	calls   int
	lastKey string
	lastSys string
	history []Turn
	reply   string
	err     error
	block   chan struct{}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Send(ctx context.Context, apiKey, system string, history []Turn, message string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastKey = apiKey
	f.lastSys = system
	f.history = append([]Turn(nil), history...)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestSession(t *testing.T, provider *fakeProvider, apiKey string) *Session {
	t.Helper()
	s := NewSession(map[string]Provider{"fake": provider}, log.New(io.Discard, "", 0))
	if err := s.Configure("fake", apiKey); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	return s
}

func TestAskWithoutKeyFailsBeforeNetwork(t *testing.T) {
	provider := &fakeProvider{reply: "hi"}
	s := newTestSession(t, provider, "")

	_, err := s.Ask(context.Background(), "hello", Context{})
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
	if provider.callCount() != 0 {
		t.Fatalf("expected no network call, got %d", provider.callCount())
	}
}

func TestConfigureRejectsUnknownProvider(t *testing.T) {
	s := NewSession(map[string]Provider{"fake": &fakeProvider{}}, log.New(io.Discard, "", 0))
	if err := s.Configure("mystery", "key"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestAskAppendsExchangeToHistory(t *testing.T) {
	provider := &fakeProvider{reply: "the answer"}
	s := newTestSession(t, provider, "secret")

	reply, err := s.Ask(context.Background(), "the question", Context{})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if reply != "the answer" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if provider.lastKey != "secret" {
		t.Fatalf("expected api key passthrough, got %q", provider.lastKey)
	}

	history := s.History()
	if len(history) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(history))
	}
	if history[0].Role != RoleUser || history[0].Text != "the question" {
		t.Fatalf("unexpected user turn: %+v", history[0])
	}
	if history[1].Role != RoleAssistant || history[1].Text != "the answer" {
		t.Fatalf("unexpected assistant turn: %+v", history[1])
	}
}

func TestHistoryCappedAtTenTurnsOldestDropped(t *testing.T) {
	provider := &fakeProvider{reply: "ok"}
	s := newTestSession(t, provider, "key")

	for i := 0; i < 8; i++ {
		if _, err := s.Ask(context.Background(), fmt.Sprintf("question %d", i), Context{}); err != nil {
			t.Fatalf("Ask %d: %v", i, err)
		}
	}

	history := s.History()
	if len(history) != 10 {
		t.Fatalf("expected history capped at 10, got %d", len(history))
	}
	if history[0].Text != "question 3" {
		t.Fatalf("expected oldest turns dropped first, got %q", history[0].Text)
	}
}

func TestFailedAskLeavesHistoryUntouched(t *testing.T) {
	provider := &fakeProvider{reply: "ok"}
	s := newTestSession(t, provider, "key")

	if _, err := s.Ask(context.Background(), "first", Context{}); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	provider.err = &ProviderError{Provider: "fake", Status: 500, Message: "upstream exploded"}
	if _, err := s.Ask(context.Background(), "second", Context{}); err == nil {
		t.Fatalf("expected provider error")
	}

	history := s.History()
	if len(history) != 2 {
		t.Fatalf("expected history unchanged after failure, got %d turns", len(history))
	}
}

func TestConcurrentAskFailsWithBusy(t *testing.T) {
	provider := &fakeProvider{reply: "ok", block: make(chan struct{})}
	s := newTestSession(t, provider, "key")

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := s.Ask(context.Background(), "slow question", Context{})
		done <- err
	}()

	<-started
	waitFor(t, func() bool { return provider.callCount() == 1 })

	if _, err := s.Ask(context.Background(), "impatient question", Context{}); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(provider.block)
	if err := <-done; err != nil {
		t.Fatalf("first ask failed: %v", err)
	}

	// The session accepts new asks once the in-flight one completes.
	provider.block = nil
	if _, err := s.Ask(context.Background(), "next question", Context{}); err != nil {
		t.Fatalf("Ask after completion: %v", err)
	}
}

func TestResetClearsHistory(t *testing.T) {
	provider := &fakeProvider{reply: "ok"}
	s := newTestSession(t, provider, "key")

	if _, err := s.Ask(context.Background(), "question", Context{}); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	s.Reset()
	if len(s.History()) != 0 {
		t.Fatalf("expected empty history after reset")
	}
}

func TestAskSendsSystemPromptFromContext(t *testing.T) {
	provider := &fakeProvider{reply: "ok"}
	s := newTestSession(t, provider, "key")

	appContext := Context{TotalEpisodes: 42, FilteredEpisodes: 7, SelectedKeywords: []string{"growth"}}
	if _, err := s.Ask(context.Background(), "question", appContext); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if want := appContext.SystemPrompt(); provider.lastSys != want {
		t.Fatalf("system prompt mismatch:\n got %q\nwant %q", provider.lastSys, want)
	}
}
