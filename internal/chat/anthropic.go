package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	// DefaultAnthropicModel is used when no model is configured.
	DefaultAnthropicModel = "claude-3-5-sonnet-20241022"
)

// Anthropic sends chat requests using the Anthropic messages wire shape: the
// key travels in an x-api-key header alongside a protocol version header, the
// system preamble is a dedicated body field, and the reply text sits in the
// first content block of the response.
type Anthropic struct {
	baseURL   string
	model     string
	maxTokens int
	client    *http.Client
}

// NewAnthropic creates the Anthropic provider. A nil client gets a default
// with a request timeout; an empty model falls back to the package default.
func NewAnthropic(client *http.Client, model string, maxTokens int) *Anthropic {
	if client == nil {
		client = defaultClient()
	}
	if model == "" {
		model = DefaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Anthropic{
		baseURL:   defaultAnthropicBaseURL,
		model:     model,
		maxTokens: maxTokens,
		client:    client,
	}
}

// Name implements Provider.
func (a *Anthropic) Name() string { return ProviderAnthropic }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Send implements Provider.
func (a *Anthropic) Send(ctx context.Context, apiKey, system string, history []Turn, message string) (string, error) {
	messages := make([]anthropicMessage, 0, len(history)+1)
	for _, turn := range history {
		messages = append(messages, anthropicMessage{Role: turn.Role, Content: turn.Text})
	}
	messages = append(messages, anthropicMessage{Role: RoleUser, Content: message})

	payload, err := json.Marshal(anthropicRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    system,
		Messages:  messages,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: a.Name(), Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Provider: a.Name(), Status: resp.StatusCode, Message: err.Error()}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ProviderError{Provider: a.Name(), Status: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		message := http.StatusText(resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			message = parsed.Error.Message
		}
		return "", &ProviderError{Provider: a.Name(), Status: resp.StatusCode, Message: message}
	}

	if len(parsed.Content) == 0 {
		return "", &ProviderError{Provider: a.Name(), Status: resp.StatusCode, Message: "empty response content"}
	}

	return parsed.Content[0].Text, nil
}
