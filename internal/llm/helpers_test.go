package llm

import (
	"time"

	"github.com/sevigo/bug-warden/internal/config"
)

func testLLMConfig() config.LLMConfig {
	return config.LLMConfig{
		Provider:       "openai",
		BaseURL:        "http://localhost:1234",
		Model:          "test-model",
		MaxTokens:      100,
		RequestTimeout: time.Second,
		MaxAttempts:    3,
		RetryBackoff:   0,
	}
}
