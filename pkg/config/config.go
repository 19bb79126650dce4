package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		ChatModel   string  `yaml:"chat_model"`
		EmbedModel  string  `yaml:"embed_model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Chunker struct {
		WindowSize int `yaml:"window_size"`
		Overlap    int `yaml:"overlap"`
	} `yaml:"chunker"`

	RAG struct {
		SummaryTopK    int     `yaml:"summary_top_k"`
		AnswerTopK     int     `yaml:"answer_top_k"`
		SearchTopK     int     `yaml:"search_top_k"`
		EmbedRateLimit float64 `yaml:"embed_rate_limit"`
	} `yaml:"rag"`

	Storage struct {
		DataDir string `yaml:"data_dir"`
	} `yaml:"storage"`

	Models struct {
		Binary       string `yaml:"binary"`
		AutoDownload bool   `yaml:"auto_download"`
	} `yaml:"models"`

	UI struct {
		Streaming bool   `yaml:"streaming"`
		Theme     string `yaml:"theme"`
	} `yaml:"ui"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/snapthink/config.yaml"),
			"/etc/snapthink/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.ChatModel == "" {
		config.LLM.ChatModel = "llama3:8b"
	}
	if config.LLM.EmbedModel == "" {
		config.LLM.EmbedModel = "nomic-embed-text:latest"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}

	if config.Chunker.WindowSize == 0 {
		config.Chunker.WindowSize = 300
	}
	if config.Chunker.Overlap == 0 {
		config.Chunker.Overlap = 50
	}

	if config.RAG.SummaryTopK == 0 {
		config.RAG.SummaryTopK = 3
	}
	if config.RAG.AnswerTopK == 0 {
		config.RAG.AnswerTopK = 7
	}
	if config.RAG.SearchTopK == 0 {
		config.RAG.SearchTopK = 5
	}
	if config.RAG.EmbedRateLimit == 0 {
		config.RAG.EmbedRateLimit = 10
	}

	if config.Storage.DataDir == "" {
		config.Storage.DataDir = filepath.Join(os.Getenv("HOME"), ".snapthink")
	}

	if config.Models.Binary == "" {
		config.Models.Binary = "ollama"
	}

	if config.UI.Theme == "" {
		config.UI.Theme = "default"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dataDir := os.Getenv("SNAPTHINK_DATA_DIR"); dataDir != "" {
		config.Storage.DataDir = dataDir
	}
}
