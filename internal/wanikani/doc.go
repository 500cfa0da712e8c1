// Package wanikani is a small read-only client for the WaniKani v2 API.
//
// Only the three collections the progress sync needs are covered: the
// authenticated user, passed Kanji assignments (paginated through
// pages.next_url) and Kanji subjects looked up by id. Every request carries
// the bearer token, the Wanikani-Revision header and a JSON Accept header.
//
// Non-2xx responses are returned as *APIError. Detail yields the message
// shown to users: the body's "error" field when present, otherwise
// "Error <status>: <reason>".
//
//	client, err := wanikani.NewClient("", wanikani.WithTimeout(15*time.Second))
//	user, err := client.FetchUser(ctx, token)
//
// The client keeps no state between calls and is safe for concurrent use.
package wanikani
