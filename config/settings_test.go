package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	mgr := NewManager(path)

	s, err := mgr.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if s.Server.Port != 8787 {
		t.Fatalf("unexpected default port: %d", s.Server.Port)
	}
	if s.Sync.PushIntervalSeconds != 60 {
		t.Fatalf("unexpected default push interval: %d", s.Sync.PushIntervalSeconds)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected settings file written: %v", err)
	}
}

func TestLoadFillsMissingFieldsWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"server":{"port":9000}}`), 0o644); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	s, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if s.Server.Port != 9000 {
		t.Fatalf("explicit port lost: %d", s.Server.Port)
	}
	if s.Account.BaseURL == "" {
		t.Fatal("expected account base url defaulted")
	}
	if len(s.Player.AllowedOrigins) == 0 {
		t.Fatal("expected player origins defaulted")
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	mgr := NewManager(path)

	s := DefaultSettings()
	s.Account.BaseURL = "https://accounts.example.com"
	s.Sync.PushIntervalSeconds = 120
	if err := mgr.Save(s); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := mgr.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Account.BaseURL != "https://accounts.example.com" {
		t.Fatalf("unexpected base url: %s", loaded.Account.BaseURL)
	}
	if loaded.Sync.PushIntervalSeconds != 120 {
		t.Fatalf("unexpected push interval: %d", loaded.Sync.PushIntervalSeconds)
	}
}
