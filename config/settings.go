package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server          ServerSettings   `json:"server"`
	Providers       ProviderSettings `json:"providers"`
	Sync            SyncSettings     `json:"sync"`
	Cache           CacheSettings    `json:"cache"`
	Log             LogConfig        `json:"log"`
	DefaultPlatform string           `json:"defaultPlatform"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// ProviderEndpoint configures one upstream platform.
type ProviderEndpoint struct {
	BaseURL string `json:"baseUrl"`
	APICode string `json:"apiCode,omitempty"`
	Enabled bool   `json:"enabled"`
}

type ProviderSettings struct {
	Language string           `json:"language"`
	Dramabox ProviderEndpoint `json:"dramabox"`
	Melolo   ProviderEndpoint `json:"melolo"`
	Netshort ProviderEndpoint `json:"netshort"`
	Reelife  ProviderEndpoint `json:"reelife"`
}

type SyncSettings struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
	APIKey   string `json:"apiKey,omitempty"`
}

type CacheSettings struct {
	Directory string `json:"directory"`
}

type LogConfig struct {
	File       string `json:"file,omitempty"`
	MaxSize    int    `json:"maxSize"` // megabytes
	MaxBackups int    `json:"maxBackups"`
	MaxAge     int    `json:"maxAge"` // days
	Compress   bool   `json:"compress"`
}

// Defaults returns the settings written on first start.
func Defaults() Settings {
	return Settings{
		Server: ServerSettings{
			Host: "0.0.0.0",
			Port: 8976,
		},
		Providers: ProviderSettings{
			Language: "id",
			Dramabox: ProviderEndpoint{BaseURL: "https://api.dramaboxdb.com/api/dramabox", Enabled: true},
			Melolo:   ProviderEndpoint{BaseURL: "https://api.melolo.app/api/melolo", Enabled: true},
			Netshort: ProviderEndpoint{BaseURL: "https://api.netshort.com/api/netshort", Enabled: true},
			Reelife:  ProviderEndpoint{BaseURL: "https://api.reelife.app/api/reelife", Enabled: true},
		},
		Sync: SyncSettings{
			Enabled: false,
		},
		Cache: CacheSettings{
			Directory: "cache",
		},
		Log: LogConfig{
			MaxSize:    20,
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		},
		DefaultPlatform: "dramabox",
	}
}

// Manager loads and persists settings at a fixed path.
type Manager struct {
	mu   sync.Mutex
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// Load reads the settings file, creating it with defaults when missing.
func (m *Manager) Load() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		settings := Defaults()
		if err := m.saveLocked(settings); err != nil {
			return Settings{}, err
		}
		return settings, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	settings := Defaults()
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	settings.normalise()
	return settings, nil
}

// Save persists the settings atomically.
func (m *Manager) Save(s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(s)
}

func (m *Manager) saveLocked(s Settings) error {
	dir := filepath.Dir(m.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

func (s *Settings) normalise() {
	s.Sync.Endpoint = strings.TrimRight(strings.TrimSpace(s.Sync.Endpoint), "/")
	if s.Cache.Directory == "" {
		s.Cache.Directory = "cache"
	}
	if s.Providers.Language == "" {
		s.Providers.Language = "id"
	}
	if s.DefaultPlatform == "" {
		s.DefaultPlatform = "dramabox"
	}
}
