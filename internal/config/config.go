// Package config manages the persisted application configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/logger"
	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/types"
)

const (
	// DefaultConfigFileName is the configuration file name.
	DefaultConfigFileName = "fx-translator-config.json"
	// EnvOpenAIAPIKey is the API key environment variable.
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	// EnvOpenAIBaseURL is the base URL environment variable.
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	// EnvHuridocsURL is the layout service URL environment variable.
	EnvHuridocsURL = "HURIDOCS_URL"
	// DefaultBaseURL targets a local LM Studio instance.
	DefaultBaseURL = "http://127.0.0.1:1234/v1"
	// DefaultModel is the default chat model name.
	DefaultModel = "qwen2.5-14b-instruct"
	// DefaultTargetLanguage is the default translation target.
	DefaultTargetLanguage = "ru"
	// DefaultHuridocsURL is the default layout analysis endpoint.
	DefaultHuridocsURL = "http://127.0.0.1:5060"
	// DefaultHuridocsImage is the docker image for the managed service.
	DefaultHuridocsImage = "huridocs/pdf-document-layout-analysis:latest"
	// DefaultConcurrency is the default parallel page count.
	DefaultConcurrency = 4
)

// Manager loads, mutates and saves the configuration file.
type Manager struct {
	configPath string
	config     *types.Config
}

// NewManager creates a Manager over configPath; an empty path selects
// ~/.config/fx-translator/fx-translator-config.json.
func NewManager(configPath string) (*Manager, error) {
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			logger.Error("failed to get user home directory", err)
			return nil, types.NewAppError(types.ErrConfig, "failed to get user home directory", err)
		}
		configPath = filepath.Join(home, ".config", "fx-translator", DefaultConfigFileName)
	}
	return &Manager{
		configPath: configPath,
		config:     defaultConfig(),
	}, nil
}

func defaultConfig() *types.Config {
	return &types.Config{
		OpenAIBaseURL:  DefaultBaseURL,
		OpenAIModel:    DefaultModel,
		TargetLanguage: DefaultTargetLanguage,
		HuridocsURL:    DefaultHuridocsURL,
		HuridocsImage:  DefaultHuridocsImage,
		SpreadEnabled:  true,
		Concurrency:    DefaultConcurrency,
	}
}

// Load reads the config file. A missing file or invalid JSON falls back
// to defaults; empty fields are filled with defaults after parsing.
func (m *Manager) Load() error {
	logger.Debug("loading configuration", logger.String("path", m.configPath))

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("config file not found, using defaults", logger.String("path", m.configPath))
			m.config = defaultConfig()
		} else {
			logger.Error("failed to read config file", err, logger.String("path", m.configPath))
			return types.NewAppError(types.ErrConfig, "failed to read config file", err)
		}
	} else {
		config := &types.Config{}
		if err := json.Unmarshal(data, config); err != nil {
			logger.Warn("invalid config file format, using defaults",
				logger.String("path", m.configPath), logger.Err(err))
			m.config = defaultConfig()
		} else {
			m.config = config
		}
	}

	if m.config.OpenAIBaseURL == "" {
		m.config.OpenAIBaseURL = DefaultBaseURL
	}
	if m.config.OpenAIModel == "" {
		m.config.OpenAIModel = DefaultModel
	}
	if m.config.TargetLanguage == "" {
		m.config.TargetLanguage = DefaultTargetLanguage
	}
	if m.config.HuridocsURL == "" {
		m.config.HuridocsURL = DefaultHuridocsURL
	}
	if m.config.HuridocsImage == "" {
		m.config.HuridocsImage = DefaultHuridocsImage
	}
	if m.config.Concurrency == 0 {
		m.config.Concurrency = DefaultConcurrency
	}
	return nil
}

// Save writes the configuration to disk, creating the directory if
// needed.
func (m *Manager) Save() error {
	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("failed to create config directory", err, logger.String("dir", dir))
		return types.NewAppError(types.ErrConfig, "failed to create config directory", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return types.NewAppError(types.ErrConfig, "failed to marshal config", err)
	}
	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		logger.Error("failed to write config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to write config file", err)
	}
	return nil
}

// GetConfig returns the current configuration.
func (m *Manager) GetConfig() *types.Config {
	if m.config == nil {
		return defaultConfig()
	}
	return m.config
}

// SetConfig replaces the configuration wholesale.
func (m *Manager) SetConfig(config *types.Config) {
	m.config = config
}

// GetConfigPath returns the config file location.
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// GetAPIKey returns the API key from the config file, falling back to
// the environment.
func (m *Manager) GetAPIKey() string {
	if m.config != nil && m.config.OpenAIAPIKey != "" {
		return m.config.OpenAIAPIKey
	}
	return os.Getenv(EnvOpenAIAPIKey)
}

// SetAPIKey stores the API key and saves.
func (m *Manager) SetAPIKey(key string) error {
	if m.config == nil {
		m.config = defaultConfig()
	}
	m.config.OpenAIAPIKey = key
	return m.Save()
}

// GetBaseURL returns the chat endpoint, config first, then environment,
// then the default.
func (m *Manager) GetBaseURL() string {
	if m.config != nil && m.config.OpenAIBaseURL != "" {
		return m.config.OpenAIBaseURL
	}
	if env := os.Getenv(EnvOpenAIBaseURL); env != "" {
		return env
	}
	return DefaultBaseURL
}

// GetModel returns the chat model name.
func (m *Manager) GetModel() string {
	if m.config != nil && m.config.OpenAIModel != "" {
		return m.config.OpenAIModel
	}
	return DefaultModel
}

// GetHuridocsURL returns the layout service endpoint, config first,
// then environment, then the default.
func (m *Manager) GetHuridocsURL() string {
	if m.config != nil && m.config.HuridocsURL != "" {
		return m.config.HuridocsURL
	}
	if env := os.Getenv(EnvHuridocsURL); env != "" {
		return env
	}
	return DefaultHuridocsURL
}

// GetConcurrency returns the parallel page count.
func (m *Manager) GetConcurrency() int {
	if m.config != nil && m.config.Concurrency > 0 {
		return m.config.Concurrency
	}
	return DefaultConcurrency
}

// GetWorkDirectory returns the working directory for intermediate
// artifacts.
func (m *Manager) GetWorkDirectory() string {
	if m.config != nil {
		return m.config.WorkDirectory
	}
	return ""
}

// GetLastInput returns the most recent input path.
func (m *Manager) GetLastInput() string {
	if m.config != nil {
		return m.config.LastInput
	}
	return ""
}

// SetLastInput remembers the input path, saving best-effort.
func (m *Manager) SetLastInput(input string) {
	if m.config == nil {
		m.config = defaultConfig()
	}
	m.config.LastInput = input
	_ = m.Save()
}
