package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIDefaultModel is used when no model is configured.
const OpenAIDefaultModel = "gpt-4o-mini"

func init() {
	RegisterProviderFactory("openai", func(config ClientConfig) (CoreLLM, error) {
		return newOpenAICompatProvider("openai", OpenAIDefaultModel, "", config)
	})
}

// openAICompatProvider implements CoreLLM over the OpenAI chat-completion
// wire protocol. DeepSeek exposes the same protocol, so both providers
// share this implementation and differ only in endpoint and defaults.
type openAICompatProvider struct {
	BaseProvider
	name            string
	client          *openai.Client
	errorClassifier *ErrorClassifier
}

func newOpenAICompatProvider(name, defaultModel, defaultBaseURL string, config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = defaultModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if baseURL != "" {
		validated, err := ValidateBaseURL(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		clientConfig.BaseURL = validated
	}

	if config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: ValidateTimeout(config.Timeout)}
	}

	return &openAICompatProvider{
		BaseProvider:    BaseProvider{model: model},
		name:            name,
		client:          openai.NewClientWithConfig(clientConfig),
		errorClassifier: &ErrorClassifier{Provider: name},
	}, nil
}

// DoRequest sends a chat-completion request and returns the first choice
// with token usage.
func (p *openAICompatProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	options := ParseRequestOptions(opts, p.GetModel())

	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(prompt, options))
	if err != nil {
		return "", 0, 0, p.handleError(err)
	}

	if len(resp.Choices) == 0 {
		return "", 0, 0, ErrNoResponseChoice
	}
	content := resp.Choices[0].Message.Content

	tokensIn := TokenCount(resp.Usage.PromptTokens, prompt)
	tokensOut := TokenCount(resp.Usage.CompletionTokens, content)

	return content, tokensIn, tokensOut, nil
}

func (p *openAICompatProvider) buildRequest(prompt string, options RequestOptions) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if options.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: options.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:    options.Model,
		Messages: messages,
	}
	if options.Temperature != nil {
		req.Temperature = float32(Clamp(*options.Temperature, MinTemperature, MaxTemperature))
	}
	if options.MaxTokens > 0 {
		req.MaxTokens = options.MaxTokens
	}
	if options.TopP != nil {
		req.TopP = float32(Clamp(*options.TopP, MinTopP, MaxTopP))
	}
	if rf, ok := options.Extra["response_format"].(map[string]string); ok && rf["type"] == "json_object" {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return req
}

func (p *openAICompatProvider) handleError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = "unknown error"
		}
		return p.errorClassifier.ClassifyHTTPError(apiErr.HTTPStatusCode, message, err)
	}

	return NewProviderError(p.name, ErrorTypeUnknown, 0, "request failed", err)
}
