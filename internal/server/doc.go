// Package server exposes kanjidex over a local JSON HTTP API.
//
// Routes (all under /api):
//
//	GET    /levels?filter=all|learned   levels with their records
//	GET    /levels/:level               one level, same filter
//	GET    /kanji/:level/:character     record, effective mnemonic, progress
//	PATCH  /kanji/:id                   {"mnemonic"?, "image"?} -> {"changed"}
//	POST   /kanji/:id/image             multipart "file" -> {"changed"}
//	GET    /progress                    latest progress snapshot
//	POST   /progress/sync               run a sync now
//	PUT    /credential                  {"key"} then sync
//	GET    /notifications               notification log
//	DELETE /notifications/:id           dismiss
//
// Errors are JSON objects with a snake_case "error" code. CORS is limited
// to loopback origins plus any configured extras, since the API can store
// the user's API key.
package server
