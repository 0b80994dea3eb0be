// Package config provides user configuration management for blescan.
//
// A YAML file holds scan preferences, the remembered scan permission, and
// what earlier scans learned about each device. It lives in the XDG config
// directory:
//   - Linux: $XDG_CONFIG_HOME/blescan/config.yaml or $HOME/.config/blescan/config.yaml
//   - macOS: $HOME/Library/Application Support/blescan/config.yaml
//   - Windows: %LOCALAPPDATA%\blescan\config.yaml
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry.RecordSighting("C4:7C:8D:6A:12:01", "Flower care", "ble", "", -61, time.Now())
//
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// The Registry also implements permission.Store, so a grant given once is
// remembered across runs until ForgetPermission is called.
//
// # Thread Safety
//
// Registry methods are safe for concurrent use. The global registry uses
// sync.Once for initialization and file writes are serialized and atomic.
package config
