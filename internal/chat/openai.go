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
	defaultOpenAIBaseURL = "https://api.openai.com"
	// DefaultOpenAIModel is used when no model is configured.
	DefaultOpenAIModel = "gpt-4o-mini"
)

// OpenAI sends chat requests using the OpenAI chat completions wire shape:
// bearer-token auth, a role-tagged message list with the system preamble as
// the first entry, and the reply text in the first choice of the response.
type OpenAI struct {
	baseURL   string
	model     string
	maxTokens int
	client    *http.Client
}

// NewOpenAI creates the OpenAI provider. A nil client gets a default with a
// request timeout; an empty model falls back to the package default.
func NewOpenAI(client *http.Client, model string, maxTokens int) *OpenAI {
	if client == nil {
		client = defaultClient()
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &OpenAI{
		baseURL:   defaultOpenAIBaseURL,
		model:     model,
		maxTokens: maxTokens,
		client:    client,
	}
}

// Name implements Provider.
func (o *OpenAI) Name() string { return ProviderOpenAI }

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []openAIMessage `json:"messages"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Send implements Provider.
func (o *OpenAI) Send(ctx context.Context, apiKey, system string, history []Turn, message string) (string, error) {
	messages := make([]openAIMessage, 0, len(history)+2)
	messages = append(messages, openAIMessage{Role: "system", Content: system})
	for _, turn := range history {
		messages = append(messages, openAIMessage{Role: turn.Role, Content: turn.Text})
	}
	messages = append(messages, openAIMessage{Role: RoleUser, Content: message})

	payload, err := json.Marshal(openAIRequest{
		Model:     o.model,
		MaxTokens: o.maxTokens,
		Messages:  messages,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: o.Name(), Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Provider: o.Name(), Status: resp.StatusCode, Message: err.Error()}
	}

	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ProviderError{Provider: o.Name(), Status: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		message := http.StatusText(resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			message = parsed.Error.Message
		}
		return "", &ProviderError{Provider: o.Name(), Status: resp.StatusCode, Message: message}
	}

	if len(parsed.Choices) == 0 {
		return "", &ProviderError{Provider: o.Name(), Status: resp.StatusCode, Message: "empty response choices"}
	}

	return parsed.Choices[0].Message.Content, nil
}
