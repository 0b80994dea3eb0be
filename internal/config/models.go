package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Backend names accepted in Preferences.Backend
const (
	BackendBLE  = "ble"
	BackendMDNS = "mdns"
)

// Defaults for a fresh configuration
const (
	DefaultPlaceholder      = "Unknown Device"
	DefaultHighlightService = "81a936be-a052-4ef1-9c3c-073c0b63438d"
	DefaultMDNSService      = "_http._tcp"
)

// ErrInvalidPreferences is wrapped by every validation failure.
var ErrInvalidPreferences = errors.New("invalid preferences")

// Registry represents the entire user configuration file.
type Registry struct {
	Version     int                `yaml:"version"`
	Preferences *Preferences       `yaml:"preferences,omitempty"`
	Permission  *Permission        `yaml:"permission,omitempty"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by device identity

	path string
	mu   sync.Mutex
}

// Device is what the registry remembers about one discovered device.
type Device struct {
	Nickname  string    `yaml:"nickname,omitempty"`   // User-friendly name, overrides the label
	LastLabel string    `yaml:"last_label,omitempty"` // Label from the most recent scan
	Source    string    `yaml:"source,omitempty"`     // Backend that found it ("ble", "mdns")
	Address   string    `yaml:"address,omitempty"`    // Last known network address (mDNS only)
	FirstSeen time.Time `yaml:"first_seen,omitempty"`
	LastSeen  time.Time `yaml:"last_seen,omitempty"`
	LastRSSI  int       `yaml:"last_rssi,omitempty"`  // dBm
	Sightings int       `yaml:"sightings,omitempty"`  // Number of scans that saw it
}

// DisplayName returns the nickname if set, otherwise the last label.
func (d *Device) DisplayName() string {
	if d.Nickname != "" {
		return d.Nickname
	}
	return d.LastLabel
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	Backend          string `yaml:"backend"`                     // "ble" or "mdns"
	PlaceholderLabel string `yaml:"placeholder_label"`           // Label for unnamed devices
	ClearOnFailure   *bool  `yaml:"clear_on_failure,omitempty"`  // Clear records when a scan fails (default true)
	ScanTimeout      int    `yaml:"scan_timeout"`                // Seconds; 0 scans until stopped
	HighlightService string `yaml:"highlight_service,omitempty"` // Service UUID that marks companion devices
	MDNSService      string `yaml:"mdns_service,omitempty"`      // Service type browsed by the mdns backend
	History          bool   `yaml:"history"`                     // Record sightings in the history database
}

// Permission is the remembered scan authorization.
type Permission struct {
	Granted   bool      `yaml:"granted"`
	GrantedAt time.Time `yaml:"granted_at,omitempty"`
}

// DefaultPreferences returns the preferences of a fresh configuration.
func DefaultPreferences() *Preferences {
	clearOnFailure := true
	return &Preferences{
		Backend:          BackendBLE,
		PlaceholderLabel: DefaultPlaceholder,
		ClearOnFailure:   &clearOnFailure,
		ScanTimeout:      0,
		HighlightService: DefaultHighlightService,
		MDNSService:      DefaultMDNSService,
	}
}

// ClearsOnFailure reports the clear_on_failure policy, defaulting to true.
func (p *Preferences) ClearsOnFailure() bool {
	if p.ClearOnFailure == nil {
		return true
	}
	return *p.ClearOnFailure
}

// Timeout returns ScanTimeout as a duration.
func (p *Preferences) Timeout() time.Duration {
	return time.Duration(p.ScanTimeout) * time.Second
}

// Validate checks the preferences for values the scanner cannot use.
func (p *Preferences) Validate() error {
	switch p.Backend {
	case BackendBLE, BackendMDNS:
	default:
		return fmt.Errorf("%w: unknown backend %q (expected %q or %q)", ErrInvalidPreferences, p.Backend, BackendBLE, BackendMDNS)
	}
	if strings.TrimSpace(p.PlaceholderLabel) == "" {
		return fmt.Errorf("%w: placeholder_label must not be empty", ErrInvalidPreferences)
	}
	if p.ScanTimeout < 0 {
		return fmt.Errorf("%w: scan_timeout must not be negative", ErrInvalidPreferences)
	}
	return nil
}

// fillDefaults sets any empty field to its default.
func (p *Preferences) fillDefaults() {
	d := DefaultPreferences()
	if p.Backend == "" {
		p.Backend = d.Backend
	}
	if p.PlaceholderLabel == "" {
		p.PlaceholderLabel = d.PlaceholderLabel
	}
	if p.ClearOnFailure == nil {
		p.ClearOnFailure = d.ClearOnFailure
	}
	if p.MDNSService == "" {
		p.MDNSService = d.MDNSService
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Devices:     make(map[string]*Device),
		Preferences: DefaultPreferences(),
	}
}

// Path returns the file the registry is saved to.
func (r *Registry) Path() string {
	return r.path
}

// GetDevice retrieves a copy of the device entry for identity.
// Returns nil if the device is not in the registry.
func (r *Registry) GetDevice(identity string) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.Devices[identity]
	if !ok {
		return nil
	}
	cp := *d
	return &cp
}

// ensureDevice returns the entry for identity, creating it if needed.
// Callers hold r.mu.
func (r *Registry) ensureDevice(identity string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}
	if d, ok := r.Devices[identity]; ok {
		return d
	}
	d := &Device{}
	r.Devices[identity] = d
	return d
}

// RecordSighting updates a device after a scan saw it.
func (r *Registry) RecordSighting(identity, label, source, address string, rssi int, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := r.ensureDevice(identity)
	if d.FirstSeen.IsZero() {
		d.FirstSeen = at
	}
	d.LastSeen = at
	d.LastLabel = label
	d.LastRSSI = rssi
	d.Source = source
	if address != "" {
		d.Address = address
	}
	d.Sightings++
}

// SetDeviceNickname sets a user-friendly nickname for a device.
func (r *Registry) SetDeviceNickname(identity, nickname string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureDevice(identity).Nickname = nickname
}

// ForgetDevice removes a device. It reports whether the device was known.
func (r *Registry) ForgetDevice(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Devices[identity]; !ok {
		return false
	}
	delete(r.Devices, identity)
	return true
}

// KnownDevice pairs a device entry with its identity.
type KnownDevice struct {
	Identity string
	Device
}

// KnownDevices returns every device, most recently seen first.
func (r *Registry) KnownDevices() []KnownDevice {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]KnownDevice, 0, len(r.Devices))
	for id, d := range r.Devices {
		out = append(out, KnownDevice{Identity: id, Device: *d})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].LastSeen.After(out[j].LastSeen)
		}
		return out[i].Identity < out[j].Identity
	})
	return out
}

// PermissionGranted reports whether a scan grant has been remembered.
func (r *Registry) PermissionGranted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Permission != nil && r.Permission.Granted
}

// RememberPermission records a grant and saves the registry.
func (r *Registry) RememberPermission(at time.Time) error {
	r.mu.Lock()
	r.Permission = &Permission{Granted: true, GrantedAt: at}
	r.mu.Unlock()
	return r.Save()
}

// ForgetPermission clears a remembered grant and saves the registry.
func (r *Registry) ForgetPermission() error {
	r.mu.Lock()
	r.Permission = nil
	r.mu.Unlock()
	return r.Save()
}
