package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/snapthinkllm/snapthinkllm/pkg/llm"
)

func TestNewChatWithConfig(t *testing.T) {
	config := llm.ChatConfig{
		Model:          "testmodel",
		Temperature:    0.5,
		MaxTokens:      1000,
		SystemTemplate: "Test system template",
		BaseURL:        "http://localhost:1234",
	}
	engine, err := llm.NewChatWithConfig(config)
	assert.NoError(t, err)
	assert.NotNil(t, engine)
}

func TestNewChatWithConfig_TemperatureOutOfRange(t *testing.T) {
	_, err := llm.NewChatWithConfig(llm.ChatConfig{Temperature: 1.5})
	assert.Error(t, err)

	_, err = llm.NewChatWithConfig(llm.ChatConfig{Temperature: -0.1})
	assert.Error(t, err)
}

func TestNewChatWithConfig_NegativeMaxTokens(t *testing.T) {
	_, err := llm.NewChatWithConfig(llm.ChatConfig{Temperature: 0.5, MaxTokens: -1})
	assert.Error(t, err)
}
