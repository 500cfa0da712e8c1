package imageimport

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxBytes caps imported images when no limit is configured.
const DefaultMaxBytes int64 = 5 << 20

var (
	// ErrNotImage is returned for content that does not sniff as image/*.
	ErrNotImage = errors.New("not an image")
	// ErrTooLarge is returned when the content exceeds the size cap.
	ErrTooLarge = errors.New("image too large")
	// ErrEmpty is returned for zero-length content.
	ErrEmpty = errors.New("empty image")
)

// Importer encodes images up to a size cap.
type Importer struct {
	maxBytes int64
}

// New returns an Importer. A non-positive maxBytes uses DefaultMaxBytes.
func New(maxBytes int64) *Importer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Importer{maxBytes: maxBytes}
}

// MaxBytes returns the configured cap.
func (i *Importer) MaxBytes() int64 { return i.maxBytes }

// FromFile reads and encodes the file at path. Surrounding whitespace and
// quotes (as left by terminal drag and drop) are stripped, and a leading ~
// expands to the home directory.
func (i *Importer) FromFile(path string) (string, error) {
	path = cleanPath(path)
	if path == "" {
		return "", fmt.Errorf("open image: empty path")
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = f.Close() }()
	return i.FromReader(f)
}

// FromReader reads at most MaxBytes from r and encodes it.
func (i *Importer) FromReader(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, i.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > i.maxBytes {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, i.maxBytes)
	}
	return Encode(data)
}

// Encode sniffs data and returns "data:<mime>;base64,<payload>".
func Encode(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return "", fmt.Errorf("%w: detected %s", ErrNotImage, mime.String())
	}
	return "data:" + mime.String() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Describe reports the media type and decoded size of a data URL payload.
func Describe(payload string) (mime string, size int, ok bool) {
	rest, found := strings.CutPrefix(payload, "data:")
	if !found {
		return "", 0, false
	}
	mime, encoded, found := strings.Cut(rest, ";base64,")
	if !found {
		return "", 0, false
	}
	return mime, base64.StdEncoding.DecodedLen(len(encoded)) - padding(encoded), true
}

// Decode returns the raw bytes of a data URL payload.
func Decode(payload string) (string, []byte, error) {
	mime, _, ok := Describe(payload)
	if !ok {
		return "", nil, fmt.Errorf("decode image: not a data url")
	}
	_, encoded, _ := strings.Cut(payload, ";base64,")
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("decode image: %w", err)
	}
	return mime, data, nil
}

func padding(encoded string) int {
	return len(encoded) - len(strings.TrimRight(encoded, "="))
}

func cleanPath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, `"'`)
	path = strings.ReplaceAll(path, `\ `, " ")
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
