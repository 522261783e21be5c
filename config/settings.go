package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server  ServerSettings  `json:"server"`
	State   StateSettings   `json:"state"`
	Account AccountSettings `json:"account"`
	Sync    SyncSettings    `json:"sync"`
	Player  PlayerSettings  `json:"player"`
	Log     LogConfig       `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// StateSettings controls where device-local favorites/progress documents live.
type StateSettings struct {
	Directory string `json:"directory"`
}

// AccountSettings points at the external account data service.
type AccountSettings struct {
	BaseURL        string `json:"baseUrl"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

// SyncSettings controls the background push loop and session polling.
type SyncSettings struct {
	PushIntervalSeconds int `json:"pushIntervalSeconds"`
	SessionPollSeconds  int `json:"sessionPollSeconds"`
	FetchRetryAttempts  int `json:"fetchRetryAttempts"`
}

// PlayerSettings configures the embedded player progress bridge.
type PlayerSettings struct {
	AllowedOrigins []string `json:"allowedOrigins"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	File       string `json:"file"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns the configuration used when no settings file exists.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Host: "0.0.0.0",
			Port: 8787,
		},
		State: StateSettings{
			Directory: "state",
		},
		Account: AccountSettings{
			BaseURL:        "http://localhost:3000",
			TimeoutSeconds: 15,
		},
		Sync: SyncSettings{
			PushIntervalSeconds: 60,
			SessionPollSeconds:  30,
			FetchRetryAttempts:  3,
		},
		Player: PlayerSettings{
			AllowedOrigins: []string{"https://vidlink.pro"},
		},
		Log: LogConfig{
			File:       "",
			MaxSize:    10,
			MaxAge:     14,
			MaxBackups: 3,
			Compress:   true,
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings from disk or creates defaults if missing. Fields left
// empty by older files are filled with defaults so upgrades never require
// hand-editing the settings file.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		return defaults, nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	var s Settings
	dec := json.NewDecoder(f)
	if err := dec.Decode(&s); err != nil {
		return Settings{}, err
	}

	defaults := DefaultSettings()
	if strings.TrimSpace(s.Server.Host) == "" {
		s.Server.Host = defaults.Server.Host
	}
	if s.Server.Port <= 0 {
		s.Server.Port = defaults.Server.Port
	}
	if strings.TrimSpace(s.State.Directory) == "" {
		s.State.Directory = defaults.State.Directory
	}
	if strings.TrimSpace(s.Account.BaseURL) == "" {
		s.Account.BaseURL = defaults.Account.BaseURL
	}
	if s.Account.TimeoutSeconds <= 0 {
		s.Account.TimeoutSeconds = defaults.Account.TimeoutSeconds
	}
	if s.Sync.PushIntervalSeconds <= 0 {
		s.Sync.PushIntervalSeconds = defaults.Sync.PushIntervalSeconds
	}
	if s.Sync.SessionPollSeconds <= 0 {
		s.Sync.SessionPollSeconds = defaults.Sync.SessionPollSeconds
	}
	if s.Sync.FetchRetryAttempts <= 0 {
		s.Sync.FetchRetryAttempts = defaults.Sync.FetchRetryAttempts
	}
	if len(s.Player.AllowedOrigins) == 0 {
		s.Player.AllowedOrigins = defaults.Player.AllowedOrigins
	}
	if s.Log.MaxSize <= 0 {
		s.Log.MaxSize = defaults.Log.MaxSize
	}
	if s.Log.MaxAge <= 0 {
		s.Log.MaxAge = defaults.Log.MaxAge
	}
	if s.Log.MaxBackups <= 0 {
		s.Log.MaxBackups = defaults.Log.MaxBackups
	}

	return s, nil
}

// Save writes the provided settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}
