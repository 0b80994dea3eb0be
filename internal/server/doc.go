// Package server exposes a scan pipeline to remote displays over HTTP and
// WebSocket.
//
// # Endpoints
//
//	GET  /api/status      current status and records
//	POST /api/scan/start  fresh start (202 Accepted)
//	POST /api/scan/stop   stop, keeping the records
//	GET  /ws              live stream
//
// # WebSocket protocol
//
// On connect the client receives the current status and one "record" message
// per record already on display. After that every status change and record
// change is pushed as it happens:
//
//	{"type":"status","status":{"phase":"Scanning","message":"Scanning for devices...","records":0,"generation":3},"generation":3}
//	{"type":"record","record":{"identity":"C4:7C:8D:6A:12:01","label":"Thermo","rssi":-61,...},"generation":3}
//	{"type":"cleared","generation":4}
//
// Status updates conflate: a slow client sees the newest status, not every
// intermediate one. Record changes are never dropped.
//
// Clients control the scan by sending:
//
//	{"action":"start"}
//	{"action":"stop"}
//
// Anything else is answered with {"type":"error","error":"..."}.
//
// # Usage Example
//
//	srv, err := server.New(&server.Config{Port: 8080}, pipe)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// TLS is enabled when CertPath and KeyPath are set.
package server
