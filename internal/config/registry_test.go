package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adrg/xdg"
)

func TestGetConfigDir(t *testing.T) {
	// Runs after the environment is restored.
	t.Cleanup(xdg.Reload)

	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmp, "data"))
	xdg.Reload()

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if filepath.Base(configDir) != "blescan" {
		t.Errorf("GetConfigDir() = %v, should end with 'blescan'", configDir)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}

	historyPath, err := GetHistoryPath()
	if err != nil {
		t.Fatalf("GetHistoryPath() error = %v", err)
	}
	if filepath.Base(historyPath) != "history.db" {
		t.Errorf("GetHistoryPath() should end with 'history.db', got: %v", historyPath)
	}

	t.Logf("Config path: %s, history path: %s", configPath, historyPath)
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}
	if reg.Devices == nil {
		t.Error("NewRegistry().Devices should not be nil")
	}

	prefs := reg.Preferences
	if prefs == nil {
		t.Fatal("NewRegistry().Preferences should not be nil")
	}
	if prefs.Backend != BackendBLE {
		t.Errorf("Backend = %q, want %q", prefs.Backend, BackendBLE)
	}
	if prefs.PlaceholderLabel != DefaultPlaceholder {
		t.Errorf("PlaceholderLabel = %q, want %q", prefs.PlaceholderLabel, DefaultPlaceholder)
	}
	if !prefs.ClearsOnFailure() {
		t.Error("ClearsOnFailure() should default to true")
	}
	if prefs.Timeout() != 0 {
		t.Errorf("Timeout() = %v, want 0", prefs.Timeout())
	}
	if err := prefs.Validate(); err != nil {
		t.Errorf("default preferences invalid: %v", err)
	}
	if reg.PermissionGranted() {
		t.Error("a new registry should not have a remembered grant")
	}
}

func TestPreferencesValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Preferences)
		wantErr bool
	}{
		{"defaults", func(*Preferences) {}, false},
		{"mdns backend", func(p *Preferences) { p.Backend = BackendMDNS }, false},
		{"unknown backend", func(p *Preferences) { p.Backend = "zigbee" }, true},
		{"blank placeholder", func(p *Preferences) { p.PlaceholderLabel = "   " }, true},
		{"negative timeout", func(p *Preferences) { p.ScanTimeout = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPreferences()
			tt.mutate(p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPreferences) {
				t.Errorf("Validate() error = %v, want ErrInvalidPreferences", err)
			}
		})
	}
}

func TestRegistryRecordSighting(t *testing.T) {
	reg := NewRegistry()
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	reg.RecordSighting("AA:BB", "Tag", "ble", "", -70, first)
	reg.RecordSighting("AA:BB", "Tag v2", "ble", "", -55, second)

	d := reg.GetDevice("AA:BB")
	if d == nil {
		t.Fatal("device should exist after RecordSighting()")
	}
	if d.Sightings != 2 {
		t.Errorf("Sightings = %d, want 2", d.Sightings)
	}
	if !d.FirstSeen.Equal(first) || !d.LastSeen.Equal(second) {
		t.Errorf("FirstSeen/LastSeen = %v/%v", d.FirstSeen, d.LastSeen)
	}
	if d.LastLabel != "Tag v2" || d.LastRSSI != -55 {
		t.Errorf("device = %+v", d)
	}

	// GetDevice returns a copy
	d.Sightings = 100
	if reg.GetDevice("AA:BB").Sightings != 2 {
		t.Error("GetDevice() should return a copy")
	}
	if reg.GetDevice("missing") != nil {
		t.Error("GetDevice() should return nil for unknown devices")
	}
}

func TestRegistryNicknameAndForget(t *testing.T) {
	reg := NewRegistry()
	reg.RecordSighting("AA:BB", "Tag", "ble", "", -70, time.Now())

	if got := reg.GetDevice("AA:BB").DisplayName(); got != "Tag" {
		t.Errorf("DisplayName() = %q, want label", got)
	}

	reg.SetDeviceNickname("AA:BB", "Keys")
	if got := reg.GetDevice("AA:BB").DisplayName(); got != "Keys" {
		t.Errorf("DisplayName() = %q, want nickname", got)
	}

	if !reg.ForgetDevice("AA:BB") {
		t.Error("ForgetDevice() = false for a known device")
	}
	if reg.ForgetDevice("AA:BB") {
		t.Error("ForgetDevice() = true for an unknown device")
	}
}

func TestRegistryKnownDevicesOrder(t *testing.T) {
	reg := NewRegistry()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	reg.RecordSighting("old", "Old", "ble", "", -70, base)
	reg.RecordSighting("new", "New", "ble", "", -70, base.Add(2*time.Hour))
	reg.RecordSighting("b-mid", "Mid", "ble", "", -70, base.Add(time.Hour))
	reg.RecordSighting("a-mid", "Mid", "ble", "", -70, base.Add(time.Hour))

	var got []string
	for _, d := range reg.KnownDevices() {
		got = append(got, d.Identity)
	}
	want := []string{"new", "a-mid", "b-mid", "old"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("KnownDevices() = %v, want %v", got, want)
	}
}

func TestRegistrySaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	reg, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() on missing file error = %v", err)
	}
	if reg.Path() != path {
		t.Errorf("Path() = %q, want %q", reg.Path(), path)
	}

	seen := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	reg.RecordSighting("printer._ipp._tcp.local.", "printer", "mdns", "10.0.0.5:631", 0, seen)
	reg.SetDeviceNickname("printer._ipp._tcp.local.", "Office printer")
	keep := false
	reg.Preferences.ClearOnFailure = &keep
	reg.Preferences.Backend = BackendMDNS

	if err := reg.RememberPermission(seen); err != nil {
		t.Fatalf("RememberPermission() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	loaded, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}

	d := loaded.GetDevice("printer._ipp._tcp.local.")
	if d == nil {
		t.Fatal("device should exist in loaded registry")
	}
	if d.Nickname != "Office printer" || d.Address != "10.0.0.5:631" || d.Source != "mdns" {
		t.Errorf("loaded device = %+v", d)
	}
	if !loaded.PermissionGranted() {
		t.Error("remembered permission was not persisted")
	}
	if !loaded.Permission.GrantedAt.Equal(seen) {
		t.Errorf("GrantedAt = %v, want %v", loaded.Permission.GrantedAt, seen)
	}
	if loaded.Preferences.ClearsOnFailure() {
		t.Error("clear_on_failure: false was not persisted")
	}
	if loaded.Preferences.Backend != BackendMDNS {
		t.Errorf("Backend = %q, want %q", loaded.Preferences.Backend, BackendMDNS)
	}

	if err := loaded.ForgetPermission(); err != nil {
		t.Fatalf("ForgetPermission() error = %v", err)
	}
	again, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}
	if again.PermissionGranted() {
		t.Error("ForgetPermission() was not persisted")
	}
}

func TestLoadRegistryFromErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "unsupported version",
			content: "version: 2\n",
			wantErr: ErrUnsupportedVersion,
		},
		{
			name:    "invalid backend",
			content: "version: 1\npreferences:\n  backend: zigbee\n",
			wantErr: ErrInvalidPreferences,
		},
		{
			name:    "malformed yaml",
			content: "version: [1\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			_, err := LoadRegistryFrom(path)
			if err == nil {
				t.Fatal("LoadRegistryFrom() error = nil, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("LoadRegistryFrom() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadRegistryFromFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "version: 1\npreferences:\n  scan_timeout: 15\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	reg, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}

	p := reg.Preferences
	if p.Backend != BackendBLE || p.PlaceholderLabel != DefaultPlaceholder || !p.ClearsOnFailure() {
		t.Errorf("defaults not filled: %+v", p)
	}
	if p.Timeout() != 15*time.Second {
		t.Errorf("Timeout() = %v, want 15s", p.Timeout())
	}
}

func TestRegistryConcurrentSightings(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				reg.RecordSighting("AA:BB", "Tag", "ble", "", -60, time.Now())
			}
		}()
	}
	wg.Wait()

	if got := reg.GetDevice("AA:BB").Sightings; got != 400 {
		t.Errorf("Sightings = %d, want 400", got)
	}
}

func BenchmarkRecordSighting(b *testing.B) {
	reg := NewRegistry()
	now := time.Now()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.RecordSighting("AA:BB", "Tag", "ble", "", -60, now)
	}
}
