package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/mem"
)

const (
	LargeCoder  = "qwen2.5-coder:32b"
	MediumCoder = "qwen2.5-coder:14b"
	SmallCoder  = "qwen2.5-coder:7b"
	MicroCoder  = "qwen2.5-coder:3b"
)

// Config holds the persisted settings for the generation pipeline.
type Config struct {
	PlanningModel   string `json:"planning_model"`
	GenerationModel string `json:"generation_model"`
	LocalModel      string `json:"local_model"`
	OllamaServerURL string `json:"ollama_server_url"`

	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`

	// Orchestrator behavior
	BatchSize        int  `json:"batch_size"` // 0 or 1 means strictly sequential
	StreamChunkLines int  `json:"stream_chunk_lines"`
	EnableStreaming  bool `json:"enable_streaming"`

	// Server settings
	ServerPort  int    `json:"server_port"`
	ArtifactDir string `json:"artifact_dir"`

	// Internal use, not saved to config
	Echo       bool   `json:"-"`
	AuthToken  string `json:"-"`
	ProjectDir string `json:"-"`
}

// DefaultConfig returns a config populated with defaults, sizing the local
// model to the machine's available memory the way local inference needs.
func DefaultConfig() *Config {
	return &Config{
		PlanningModel:    "deepseek-ai/DeepSeek-V3.1",
		GenerationModel:  "qwen/Qwen3-Coder-480B-A35B-Instruct-Turbo",
		LocalModel:       defaultLocalModel(),
		OllamaServerURL:  "http://localhost:11434",
		Temperature:      0.2,
		MaxTokens:        8192,
		BatchSize:        1,
		StreamChunkLines: 2,
		EnableStreaming:  true,
		ServerPort:       54321,
		ArtifactDir:      ".appforge/artifacts",
	}
}

// defaultLocalModel picks a local coder model that fits in system memory.
func defaultLocalModel() string {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return SmallCoder
	}
	totalGB := vm.Total / (1 << 30)
	switch {
	case totalGB >= 48:
		return LargeCoder
	case totalGB >= 24:
		return MediumCoder
	case totalGB >= 12:
		return SmallCoder
	default:
		return MicroCoder
	}
}

func configPath(rootDir string) string {
	return filepath.Join(rootDir, ".appforge", "config.json")
}

// Load reads the config from .appforge/config.json under rootDir, creating
// it with defaults if it does not exist.
func Load(rootDir string) (*Config, error) {
	path := configPath(rootDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			if err := cfg.Save(rootDir); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyFloors()
	return cfg, nil
}

// Save writes the config to .appforge/config.json under rootDir.
func (c *Config) Save(rootDir string) error {
	path := configPath(rootDir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyFloors keeps hand-edited configs inside workable bounds.
func (c *Config) applyFloors() {
	if c.StreamChunkLines < 1 {
		c.StreamChunkLines = 2
	}
	if c.BatchSize < 1 {
		c.BatchSize = 1
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 8192
	}
	if c.ServerPort == 0 {
		c.ServerPort = 54321
	}
}
