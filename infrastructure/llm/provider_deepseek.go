package llm

// DeepSeek exposes an OpenAI-compatible chat-completion endpoint, so the
// provider reuses the OpenAI wire implementation with its own endpoint
// and default model.

const (
	// DeepSeekDefaultModel is used when no model is configured.
	DeepSeekDefaultModel = "deepseek-chat"
	// DeepSeekBaseURL is the default DeepSeek API endpoint.
	DeepSeekBaseURL = "https://api.deepseek.com/v1"
)

func init() {
	RegisterProviderFactory("deepseek", func(config ClientConfig) (CoreLLM, error) {
		return newOpenAICompatProvider("deepseek", DeepSeekDefaultModel, DeepSeekBaseURL, config)
	})
}
