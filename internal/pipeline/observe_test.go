package pipeline

import (
	"testing"
	"time"
)

func TestMailbox_OrderWithoutReader(t *testing.T) {
	m := newMailbox[int]()
	defer m.close()

	for i := 0; i < 1000; i++ {
		m.put(i)
	}

	for i := 0; i < 1000; i++ {
		select {
		case v := <-m.out:
			if v != i {
				t.Fatalf("got %d, want %d", v, i)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out at %d", i)
		}
	}
}

func TestMailbox_CloseEndsOutput(t *testing.T) {
	m := newMailbox[string]()
	m.put("pending")
	m.close()
	m.close()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-m.out:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("output not closed after close()")
		}
	}
}

func TestPhase_String(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{Idle, "Idle"},
		{AwaitingPermission, "AwaitingPermission"},
		{Scanning, "Scanning"},
		{Failed, "Failed"},
		{Stopped, "Stopped"},
		{Phase(42), "Phase(42)"},
	}

	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", int(tt.phase), got, tt.want)
		}
	}
}

func TestStatus_String(t *testing.T) {
	st := Status{Phase: Failed, Reason: ErrPermissionDenied}
	if got := st.String(); got != "Failed(permission denied)" {
		t.Errorf("String() = %q", got)
	}
	if got := (Status{Phase: Scanning}).String(); got != "Scanning" {
		t.Errorf("String() = %q", got)
	}
}
