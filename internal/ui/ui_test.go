package ui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/muurk/blescan/internal/discovery"
	"github.com/muurk/blescan/internal/permission"
	"github.com/muurk/blescan/internal/pipeline"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"\n", false},
		{"sure\n", false},
		{"", false},
		{"y", true},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			got, err := Confirm(context.Background(), strings.NewReader(tt.input), &out, "TITLE", []string{"line"}, "Proceed?")
			if err != nil {
				t.Fatalf("Confirm() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "Proceed? [y/N]") {
				t.Errorf("output missing question: %q", out.String())
			}
		})
	}
}

func TestConfirm_Cancelled(t *testing.T) {
	r, w := io.Pipe()
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := Confirm(ctx, r, io.Discard, "TITLE", nil, "Proceed?")
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Confirm() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Confirm() did not return after cancel")
	}
}

func TestPermissionPrompt(t *testing.T) {
	var out bytes.Buffer
	decide := PermissionPrompt(strings.NewReader("y\n"), &out, "Bluetooth LE")

	granted, err := decide(context.Background())
	if err != nil || !granted {
		t.Fatalf("decide() = %v, %v, want true, nil", granted, err)
	}
	if !strings.Contains(out.String(), "Bluetooth LE") {
		t.Errorf("prompt should name the backend: %q", out.String())
	}
}

func TestRenderRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  pipeline.Record
		want    []string
		notWant []string
	}{
		{
			name:   "BLE device",
			record: pipeline.Record{Identity: "C4:7C:8D:6A:12:01", Label: "Thermo", RSSI: -61},
			want:   []string{"Thermo", "C4:7C:8D:6A:12:01", "-61 dBm", RecordMarker},
		},
		{
			name:    "companion device",
			record:  pipeline.Record{Identity: "AA", Label: "Tap", Highlighted: true},
			want:    []string{HighlightMarker, "Tap"},
			notWant: []string{"dBm"},
		},
		{
			name:   "mDNS service",
			record: pipeline.Record{Identity: "nas._smb._tcp.local.", Label: "nas", Address: "10.0.0.5:445"},
			want:   []string{"nas", "10.0.0.5:445"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderRecord(tt.record)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("RenderRecord() = %q, missing %q", got, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("RenderRecord() = %q, should not contain %q", got, w)
				}
			}
		})
	}
}

func TestRenderStatus(t *testing.T) {
	if got := RenderStatus(pipeline.Status{Phase: pipeline.Scanning}); got != "" {
		t.Errorf("RenderStatus() without message = %q, want empty", got)
	}
	got := RenderStatus(pipeline.Status{Phase: pipeline.Failed, Message: "Error: radio off"})
	if !strings.Contains(got, "Error: radio off") {
		t.Errorf("RenderStatus() = %q, want the message", got)
	}
}

func TestTroubleshooting(t *testing.T) {
	tests := []struct {
		name   string
		reason error
		want   bool
	}{
		{"denied", pipeline.ErrPermissionDenied, true},
		{"request failed", permission.RequestFailed(errors.New("no adapter")), true},
		{"discovery failed", discovery.Failure("radio off", nil), true},
		{"unknown", errors.New("other"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(Troubleshooting(tt.reason)) > 0; got != tt.want {
				t.Errorf("Troubleshooting(%v) has tips = %v, want %v", tt.reason, got, tt.want)
			}
		})
	}
}

func TestHeader_ParamOrder(t *testing.T) {
	h := NewHeader("Bluetooth Scan", "blescan scan",
		Param{Key: "Backend", Value: "ble"},
		Param{Key: "Timeout", Value: "30s"},
	).SetWidth(80)

	got := h.Render()
	if !strings.Contains(got, "BLUETOOTH SCAN") {
		t.Errorf("header missing upper-cased title: %q", got)
	}
	if strings.Index(got, "Backend") > strings.Index(got, "Timeout") {
		t.Error("params should render in the given order")
	}
}

func TestResult_Failure(t *testing.T) {
	r := NewFailureResult("Scan failed", errors.New("radio off"), []string{"Power on the adapter"}).SetWidth(80)
	got := r.Render()

	for _, want := range []string{FailureMarker, "Scan failed", "Error: radio off", "Troubleshooting:", "Power on the adapter"} {
		if !strings.Contains(got, want) {
			t.Errorf("Render() missing %q", want)
		}
	}
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf).SetWidth(80)

	p.PrintTable([]string{"Identity", "Name"}, nil, "No devices yet.")
	if !strings.Contains(buf.String(), "No devices yet.") {
		t.Errorf("empty table should print the empty message, got %q", buf.String())
	}

	buf.Reset()
	p.PrintTable([]string{"Identity", "Name"}, [][]string{
		{"C4:7C:8D:6A:12:01", "Flower care"},
		{"E2:11:40:03:9B:7F", "Unknown Device"},
	}, "No devices yet.")

	got := buf.String()
	for _, want := range []string{"Identity", "Name", "Flower care", "E2:11:40:03:9B:7F"} {
		if !strings.Contains(got, want) {
			t.Errorf("table missing %q:\n%s", want, got)
		}
	}
	if strings.Index(got, "Flower care") > strings.Index(got, "Unknown Device") {
		t.Error("rows should keep their order")
	}
}
