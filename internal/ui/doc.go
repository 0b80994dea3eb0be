// Package ui provides run-once terminal output for the blescan CLI.
//
// Unlike the interactive watch screen, these components print and move on:
// they style output with Lipgloss but need no event loop.
//
//   - Header: command banner showing the operation and its parameters
//   - Result: success, warning and failure boxes
//   - RenderRecord / RenderStatus: one line per discovered device and the
//     pipeline status line
//   - Confirm / PermissionPrompt: the yes/no question behind the
//     interactive permission gate
//
// Example:
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader("Bluetooth Scan", "blescan scan",
//	    ui.Param{Key: "Backend", Value: "ble"},
//	    ui.Param{Key: "Timeout", Value: "30s"},
//	)
//	p.PrintRecord(rec)
//	p.PrintError("Scan failed", st.Reason, ui.Troubleshooting(st.Reason))
//
// # Logging Integration
//
// Logging is controlled via the BLESCAN_LOG_LEVEL environment variable. When
// unset or empty, zap logging is silent so the curated output stays clean.
package ui
