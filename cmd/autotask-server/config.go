package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"autotask/internal/task/llmclient"
	"autotask/internal/task/service"
	"autotask/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8000"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 5 * time.Minute
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 30 * time.Second
	defaultSandboxRoot     = "/data"
	defaultLLMBaseURL      = "https://aiproxy.sanand.workers.dev/openai/v1"
	defaultStderrMaxBytes  = 2048
	defaultFetchTimeout    = 30 * time.Second

	apiKeyEnv = "AIPROXY_TOKEN"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// SandboxConfig holds the root every task is confined to.
type SandboxConfig struct {
	Root string `yaml:"root"`
}

// RunnerConfig holds external process settings.
type RunnerConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	StderrMaxBytes int           `yaml:"stderrMaxBytes"`
}

// AppConfig holds autotask-server configuration.
type AppConfig struct {
	Server       ServerConfig     `yaml:"server"`
	Logger       logger.Config    `yaml:"logger"`
	Sandbox      SandboxConfig    `yaml:"sandbox"`
	LLM          llmclient.Config `yaml:"llm"`
	Runner       RunnerConfig     `yaml:"runner"`
	FetchTimeout time.Duration    `yaml:"fetchTimeout"`

	service.CatalogConfig `yaml:",inline"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

// loadAppConfig reads path when it is set; an empty path yields the defaults alone.
func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if path != "" {
		if err := loadYAML(path, &cfg); err != nil {
			return nil, err
		}
	}
	applyDefaults(&cfg)
	if token := strings.TrimSpace(os.Getenv(apiKeyEnv)); token != "" {
		cfg.LLM.APIKey = token
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "json"
	}
	if cfg.Logger.OutputPath == "" {
		cfg.Logger.OutputPath = "stdout"
	}

	if cfg.Sandbox.Root == "" {
		cfg.Sandbox.Root = defaultSandboxRoot
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = defaultLLMBaseURL
	}
	if cfg.Runner.StderrMaxBytes == 0 {
		cfg.Runner.StderrMaxBytes = defaultStderrMaxBytes
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}

	cfg.CatalogConfig.ApplyDefaults()
}
