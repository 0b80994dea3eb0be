package discovery

import (
	"errors"
	"fmt"
	"testing"
)

func TestEvent_String(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{
			name: "named",
			ev:   Event{Identity: "C4:7C:8D:6A:12:01", Name: "Flower care", RSSI: -61, Source: "ble"},
			want: "ble C4:7C:8D:6A:12:01 (Flower care, -61 dBm)",
		},
		{
			name: "unnamed",
			ev:   Event{Identity: "AA:BB", RSSI: -90, Source: "ble"},
			want: "ble AA:BB (<unnamed>, -90 dBm)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvent_HasService(t *testing.T) {
	ev := Event{Services: []string{"81a936be-a052-4ef1-9c3c-073c0b63438d", "180f"}}

	tests := []struct {
		service string
		want    bool
	}{
		{"81a936be-a052-4ef1-9c3c-073c0b63438d", true},
		{"81A936BE-A052-4EF1-9C3C-073C0B63438D", true},
		{"180F", true},
		{"180a", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.service, func(t *testing.T) {
			if got := ev.HasService(tt.service); got != tt.want {
				t.Errorf("HasService(%q) = %v, want %v", tt.service, got, tt.want)
			}
		})
	}
}

func TestFailedError(t *testing.T) {
	cause := errors.New("hci0: device busy")
	err := Failure("radio unavailable", cause)

	if err.Error() != "radio unavailable" {
		t.Errorf("Error() = %q, want reason only", err.Error())
	}
	if !errors.Is(err, ErrDiscoveryFailed) {
		t.Error("FailedError should match ErrDiscoveryFailed")
	}
	if !errors.Is(err, cause) {
		t.Error("FailedError should unwrap to its cause")
	}
	if got, want := err.Detail(), "radio unavailable (caused by: hci0: device busy)"; got != want {
		t.Errorf("Detail() = %q, want %q", got, want)
	}

	wrapped := fmt.Errorf("activate: %w", err)
	if AsFailure(wrapped) != err {
		t.Error("AsFailure() should return the wrapped FailedError")
	}

	plain := AsFailure(errors.New("boom"))
	if plain.Reason != "boom" {
		t.Errorf("AsFailure(plain).Reason = %q, want %q", plain.Reason, "boom")
	}
	if AsFailure(nil) != nil {
		t.Error("AsFailure(nil) should be nil")
	}
	if got := Failure("", cause).Error(); got != cause.Error() {
		t.Errorf("Error() without reason = %q, want cause text", got)
	}
}
