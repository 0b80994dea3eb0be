// Package pipeline implements the scan pipeline: a permission gate that must
// grant before a discovery stream is activated, and a relay that turns the
// stream's raw events into de-duplicated display records.
//
// # State machine
//
//	Idle ──Start──▶ AwaitingPermission ──grant──▶ Scanning ──failure──▶ Failed
//	                        │                        │
//	                        └──deny / request failed─┴──────────────────▶ Failed
//	any ──Stop──▶ Stopped          Failed / Stopped ──Start──▶ AwaitingPermission
//
// Every activation gets a new generation number. Permission decisions and
// discovery events are applied under the pipeline mutex only if they carry
// the current generation and the pipeline is still in the phase that
// expects them; anything else is dropped and logged at debug level.
//
// # Records
//
// Within one activation each identity produces at most one Record, built
// from its first sighting and never updated. Records keep first-seen order.
// Start clears them; a failure clears them too unless WithClearOnFailure(false)
// is given; Stop keeps them for display.
//
// # Observing
//
// SubscribeStatus delivers the latest Status and conflates bursts.
// SubscribeRecords replays the current records and then every RecordAdded
// and RecordsCleared change in order. Neither ever blocks the pipeline.
//
// # Errors
//
// A failed activation reports its reason in Status.Reason:
//
//   - ErrPermissionDenied: the gate refused
//   - permission.ErrRequestFailed: the gate could not be asked
//   - *discovery.FailedError: the stream failed; Error() is the bare reason
//
// discovery.ErrAlreadyActive is a contract violation and is not reported as
// a failure. It is passed to the violation handler, which panics unless
// replaced with WithViolationHandler, and the pipeline stops.
package pipeline
