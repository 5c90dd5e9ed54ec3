// Package usage keeps a ledger of finished dispatches.
//
// Every dispatch outcome becomes one Record: request ID, key prefix, model,
// mode, status, error category, duration, frame count and the upstream token
// accounting when the provider reported it. Records are written through a
// Store:
//
//   - MemoryStore keeps records in a slice and is meant for tests and
//     short-lived deployments.
//   - SQLiteStore persists records in a single table using the pure-Go
//     modernc.org/sqlite driver in WAL mode.
//
// The Recorder implements dispatch.Observer. It enqueues records on a
// buffered channel drained by one worker goroutine so that dispatch never
// blocks on storage. When the queue stays full past the write timeout the
// record is dropped with a warning. Close drains the queue before returning.
//
// # Usage
//
//	store, err := usage.NewSQLiteStore(usage.SQLiteConfig{Path: "data/usage.db"})
//	if err != nil {
//	    return err
//	}
//	recorder := usage.NewRecorder(store, usage.RecorderConfig{})
//	defer recorder.Close()
//
//	dispatcher := dispatch.New(dispatch.Config{
//	    Observers: []dispatch.Observer{recorder},
//	})
//
// Summaries aggregate per (key prefix, model):
//
//	summaries, err := store.Summarize(ctx, time.Now().Add(-24*time.Hour))
package usage
