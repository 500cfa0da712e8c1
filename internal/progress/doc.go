// Package progress synchronizes the user's WaniKani progress.
//
// A sync runs four steps strictly in order: the user profile, the first page
// of passed Kanji assignments, every following page (pages.next_url until
// null), and subject lookups in batches of SubjectBatchSize ids. The result
// replaces the Snapshot wholesale. Any failure discards partial work, resets
// the snapshot to empty with LastError set, pushes an error notification
// and returns a *FetchError naming the failed stage.
//
// Sync calls are serialized; readers always see a complete snapshot through
// the deep copy returned by Snapshot.
package progress
