// Package imageimport reads an image from disk or an upload, sniffs its
// media type with mimetype and encodes it as a base64 data URL, the form in
// which record images are persisted. Anything that does not sniff as
// image/* is rejected with ErrNotImage.
package imageimport
