// Package tui implements the live scan screen behind "blescan watch".
//
// The screen is a Bubble Tea model over a scan pipeline. It starts a fresh
// scan on Init, listens to the pipeline's status and record subscriptions
// through commands that block on their channels, and renders:
//
//   - the status line ("Requesting permissions...", "Scanning for devices...",
//     "Error: <reason>") with a spinner while the scan is active
//   - the de-duplicated records in first-seen order (bubbles/list)
//   - a key help footer (bubbles/help)
//
// # Keys
//
//	r      restart: stop, then a fresh start that clears the list
//	s      stop, keeping the list
//	q/esc  stop and exit
//
// # Usage Example
//
//	if err := tui.Run(pipe, "Bluetooth LE"); err != nil {
//	    log.Fatal(err)
//	}
package tui
