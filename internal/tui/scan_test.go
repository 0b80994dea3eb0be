package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/blescan/internal/discovery"
	"github.com/muurk/blescan/internal/permission"
	"github.com/muurk/blescan/internal/pipeline"
)

// feedStream is a discovery stream the tests emit into directly.
type feedStream struct {
	feed discovery.Feed
}

func (s *feedStream) Activate() (<-chan discovery.Result, error) {
	sess, err := s.feed.Begin(nil, nil)
	if err != nil {
		return nil, err
	}
	return sess.Results(), nil
}

func (s *feedStream) Deactivate() { s.feed.End() }

// countingCtrl wraps a real pipeline and counts control calls.
type countingCtrl struct {
	*pipeline.Pipeline
	starts int
	stops  int
}

func (c *countingCtrl) Start() {
	c.starts++
	c.Pipeline.Start()
}

func (c *countingCtrl) Stop() {
	c.stops++
	c.Pipeline.Stop()
}

func setupModel(t *testing.T) (ScanModel, *countingCtrl, *feedStream) {
	t.Helper()
	stream := &feedStream{}
	ctrl := &countingCtrl{Pipeline: pipeline.New(permission.Static(true), stream)}
	t.Cleanup(ctrl.Pipeline.Stop)

	m := NewScanModel(ctrl, "Bluetooth LE")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return next.(ScanModel), ctrl, stream
}

// run executes a command with a timeout and returns its message.
func run(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("command is nil")
	}
	out := make(chan tea.Msg, 1)
	go func() { out <- cmd() }()
	select {
	case msg := <-out:
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("command did not complete")
	}
	return nil
}

func keyPress(r string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)}
}

func update(t *testing.T, m ScanModel, msg tea.Msg) (ScanModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	sm, ok := next.(ScanModel)
	if !ok {
		t.Fatalf("Update() returned %T, want ScanModel", next)
	}
	return sm, cmd
}

func TestScanModel_StatusLine(t *testing.T) {
	tests := []struct {
		name   string
		status pipeline.Status
		want   string
	}{
		{"requesting", pipeline.Status{Phase: pipeline.AwaitingPermission, Message: pipeline.MessageRequesting}, "Requesting permissions..."},
		{"scanning", pipeline.Status{Phase: pipeline.Scanning, Message: pipeline.MessageScanning}, "Scanning for devices..."},
		{"scanning with results", pipeline.Status{Phase: pipeline.Scanning}, "0 found"},
		{"failed", pipeline.Status{Phase: pipeline.Failed, Message: "Error: radio off"}, "Error: radio off"},
		{"stopped", pipeline.Status{Phase: pipeline.Stopped}, "Stopped"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := setupModel(t)
			m, _ = update(t, m, statusMsg(tt.status))
			if view := m.View(); !strings.Contains(view, tt.want) {
				t.Errorf("View() missing %q:\n%s", tt.want, view)
			}
		})
	}
}

func TestScanModel_RecordChanges(t *testing.T) {
	m, _, _ := setupModel(t)

	m, _ = update(t, m, changeMsg(pipeline.Change{Kind: pipeline.RecordAdded, Record: pipeline.Record{Identity: "A", Label: "Thermo"}}))
	m, _ = update(t, m, changeMsg(pipeline.Change{Kind: pipeline.RecordAdded, Record: pipeline.Record{Identity: "B", Label: "Unknown Device"}}))

	if got := len(m.Records.Items()); got != 2 {
		t.Fatalf("records = %d, want 2", got)
	}
	view := m.View()
	for _, want := range []string{"Thermo", "Unknown Device", "2 device(s)"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
	if strings.Index(view, "Thermo") > strings.Index(view, "Unknown Device") {
		t.Error("records should keep first-seen order")
	}

	m, _ = update(t, m, changeMsg(pipeline.Change{Kind: pipeline.RecordsCleared}))
	if got := len(m.Records.Items()); got != 0 {
		t.Errorf("records after clear = %d, want 0", got)
	}
}

func TestScanModel_Keys(t *testing.T) {
	m, ctrl, _ := setupModel(t)

	_, cmd := update(t, m, keyPress("r"))
	run(t, cmd)
	if ctrl.stops != 1 || ctrl.starts != 1 {
		t.Errorf("restart: stops=%d starts=%d, want 1 and 1", ctrl.stops, ctrl.starts)
	}

	_, cmd = update(t, m, keyPress("s"))
	run(t, cmd)
	if ctrl.stops != 2 {
		t.Errorf("stop: stops=%d, want 2", ctrl.stops)
	}

	m, cmd = update(t, m, keyPress("q"))
	if _, ok := run(t, cmd).(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
	if ctrl.stops != 3 {
		t.Errorf("quit: stops=%d, want 3", ctrl.stops)
	}
	if m.View() != "" {
		t.Error("View() should be empty after quitting")
	}
}

func TestScanModel_FollowsPipeline(t *testing.T) {
	m, ctrl, stream := setupModel(t)

	run(t, startCmd(ctrl))

	// Drain status updates until the scan is live
	deadline := time.Now().Add(3 * time.Second)
	for m.Status.Phase != pipeline.Scanning {
		if time.Now().After(deadline) {
			t.Fatalf("status = %v, want Scanning", m.Status)
		}
		m, _ = update(t, m, run(t, waitForStatus(m.statusSub)))
	}

	// The fresh start clears the output first
	msg := run(t, waitForChange(m.recordSub))
	if c, ok := msg.(changeMsg); !ok || c.Kind != pipeline.RecordsCleared {
		t.Fatalf("first change = %#v, want cleared", msg)
	}
	m, _ = update(t, m, msg)

	go func() {
		if sess := stream.feed.Current(); sess != nil {
			sess.Emit(discovery.Event{Identity: "C4:7C:8D:6A:12:01", Name: "Flower care"})
		}
	}()

	m, _ = update(t, m, run(t, waitForChange(m.recordSub)))
	if !strings.Contains(m.View(), "Flower care") {
		t.Errorf("View() missing discovered device:\n%s", m.View())
	}
}
