package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/muurk/blescan/internal/discovery"
	"github.com/muurk/blescan/internal/permission"
	"github.com/muurk/blescan/internal/pipeline"
)

// RenderRecord renders one discovered device as a single line
func RenderRecord(r pipeline.Record) string {
	marker := RecordMarker
	label := RecordLabelStyle.Render(r.Label)
	if r.Highlighted {
		marker = HighlightMarker
		label = RecordHighlightStyle.Render(r.Label)
	}

	details := []string{r.Identity}
	if r.RSSI != 0 {
		details = append(details, fmt.Sprintf("%d dBm", r.RSSI))
	}
	if r.Address != "" && r.Address != r.Identity {
		details = append(details, r.Address)
	}

	return fmt.Sprintf("  %s %s  %s", marker, label,
		RecordDetailStyle.Render(strings.Join(details, "  ")))
}

// RenderStatus renders the status line, or "" when there is no message
func RenderStatus(st pipeline.Status) string {
	if st.Message == "" {
		return ""
	}
	if st.Phase == pipeline.Failed {
		return ErrorMessageStyle.PaddingLeft(2).Render(st.Message)
	}
	return StatusStyle.Render(st.Message)
}

// Troubleshooting returns tips for a scan failure reason
func Troubleshooting(reason error) []string {
	switch {
	case errors.Is(reason, pipeline.ErrPermissionDenied):
		return []string{
			"Grant Bluetooth access to this program and run the scan again",
			"Answer 'y' at the prompt, or pass --yes to skip it",
		}
	case errors.Is(reason, permission.ErrRequestFailed):
		return []string{
			"Check that a Bluetooth adapter is present (hciconfig / bluetoothctl list)",
			"On Linux the scan needs CAP_NET_ADMIN or root",
		}
	case errors.Is(reason, discovery.ErrDiscoveryFailed):
		return []string{
			"Make sure the adapter is powered on",
			"Try again with BLESCAN_LOG_LEVEL=debug for details",
		}
	default:
		return nil
	}
}
