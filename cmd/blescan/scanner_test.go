package main

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"

	"github.com/muurk/blescan/internal/config"
	"github.com/muurk/blescan/internal/permission"
)

func TestScanFlags_Preferences(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		stored  *config.Preferences
		wantErr bool
		backend string
		label   string
		clears  bool
		history bool
	}{
		{
			name:    "defaults",
			backend: config.BackendBLE,
			label:   config.DefaultPlaceholder,
			clears:  true,
		},
		{
			name:    "stored preferences",
			stored:  &config.Preferences{Backend: config.BackendMDNS, PlaceholderLabel: "Nameless", History: true},
			backend: config.BackendMDNS,
			label:   "Nameless",
			clears:  true,
			history: true,
		},
		{
			name:    "flags override stored",
			args:    []string{"--backend", "ble", "--placeholder", "?", "--no-clear-on-failure", "--history=false"},
			stored:  &config.Preferences{Backend: config.BackendMDNS, PlaceholderLabel: "Nameless", History: true},
			backend: config.BackendBLE,
			label:   "?",
			clears:  false,
		},
		{
			name:    "unknown backend",
			args:    []string{"--backend", "wifi"},
			wantErr: true,
		},
		{
			name:    "blank placeholder",
			args:    []string{"--placeholder", "  "},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f scanFlags
			cmd := &cobra.Command{Use: "scan"}
			f.register(cmd)
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags() error = %v", err)
			}

			reg := config.NewRegistry()
			if tt.stored != nil {
				reg.Preferences = tt.stored
			}

			prefs, err := f.preferences(cmd, reg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("preferences() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, config.ErrInvalidPreferences) {
					t.Errorf("error = %v, want ErrInvalidPreferences", err)
				}
				return
			}

			if prefs.Backend != tt.backend {
				t.Errorf("Backend = %q, want %q", prefs.Backend, tt.backend)
			}
			if prefs.PlaceholderLabel != tt.label {
				t.Errorf("PlaceholderLabel = %q, want %q", prefs.PlaceholderLabel, tt.label)
			}
			if prefs.ClearsOnFailure() != tt.clears {
				t.Errorf("ClearsOnFailure() = %v, want %v", prefs.ClearsOnFailure(), tt.clears)
			}
			if prefs.History != tt.history {
				t.Errorf("History = %v, want %v", prefs.History, tt.history)
			}
		})
	}
}

func TestScanFlags_PreferencesLeaveRegistryAlone(t *testing.T) {
	var f scanFlags
	cmd := &cobra.Command{Use: "scan"}
	f.register(cmd)
	if err := cmd.ParseFlags([]string{"--no-clear-on-failure", "--backend", "mdns"}); err != nil {
		t.Fatal(err)
	}

	reg := config.NewRegistry()
	if _, err := f.preferences(cmd, reg); err != nil {
		t.Fatal(err)
	}
	if reg.Preferences.Backend != config.BackendBLE || !reg.Preferences.ClearsOnFailure() {
		t.Errorf("flags leaked into stored preferences: %+v", reg.Preferences)
	}
}

func TestAskUpfront(t *testing.T) {
	tests := []struct {
		name        string
		gate        permission.Gate
		wantErr     bool
		wantGranted bool
	}{
		{"granted", permission.Static(true), false, true},
		{"denied", permission.Static(false), false, false},
		{
			name: "request failed",
			gate: permission.Func(func(ctx context.Context) (bool, error) {
				return false, errors.New("no terminal")
			}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, err := askUpfront(context.Background(), tt.gate)
			if (err != nil) != tt.wantErr {
				t.Fatalf("askUpfront() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			// The replayed answer resolves without asking again
			d, err := permission.Await(context.Background(), gate)
			if err != nil {
				t.Fatal(err)
			}
			if d.Granted != tt.wantGranted {
				t.Errorf("Granted = %v, want %v", d.Granted, tt.wantGranted)
			}
		})
	}
}
