// Package app is the composition root of kanjidex.
//
// Open loads the TOML config, builds the zap logger, opens the Badger
// store and the WaniKani client, then wires the services together:
//
//   - kanji.Store and its debounced kanji.Autosaver
//   - progress.Syncer, fed by the WaniKani client
//   - credential.Store for the API key
//   - imageimport.Importer for attaching images
//   - notify.Log, shared by the store and the syncer
//
// Every front end talks to the resulting *App: the TUI (RunTUI), the local
// HTTP API (Serve) and the one-shot CLI commands. Both long-running modes
// start a sync in the background when a key is stored and, when
// sync_interval_minutes is set, keep refreshing on that cadence with
// exponential backoff after failures.
//
// Badger holds an exclusive lock on its directory, so only one kanjidex
// process can have the database open at a time.
//
// Close flushes the pending autosave before closing storage and syncing
// the logger.
package app
