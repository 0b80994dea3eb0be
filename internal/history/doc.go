// Package history records scan sessions in a local SQLite database
// (modernc.org/sqlite, no cgo).
//
// Each pipeline activation is one session, identified by a random UUID.
// Within a session only the first sighting of each device identity is kept,
// mirroring the pipeline's own de-duplication.
//
//	store, err := history.Open(path)
//	id, err := store.BeginSession(ctx, "ble", time.Now())
//	err = store.RecordSighting(ctx, id, history.Sighting{Identity: "C4:7C:8D:6A:12:01", Label: "Flower care"})
//	err = store.FinishSession(ctx, id, history.OutcomeStopped, "", time.Now())
package history
