package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/five82/kanjidex/internal/logging"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file is not an error.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is one decoded line of the JSON log.
type Entry struct {
	Time    string
	Level   zapcore.Level
	Logger  string
	Message string
	Fields  map[string]any
}

// reserved keys written by the production encoder.
var reserved = map[string]struct{}{
	"ts": {}, "level": {}, "logger": {}, "msg": {}, "caller": {}, "stacktrace": {},
}

// Parse decodes a line written by logging.New. ok is false for lines that
// are not JSON objects.
func Parse(line string) (Entry, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, false
	}
	e := Entry{
		Time:    stringField(raw, "ts"),
		Level:   logging.ParseLevel(stringField(raw, "level")),
		Logger:  stringField(raw, "logger"),
		Message: stringField(raw, "msg"),
	}
	for k, v := range raw {
		if _, skip := reserved[k]; skip {
			continue
		}
		if e.Fields == nil {
			e.Fields = make(map[string]any)
		}
		e.Fields[k] = v
	}
	return e, true
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

// Format renders an entry as a single human-readable line with fields in
// key order.
func Format(e Entry) string {
	var b strings.Builder
	if e.Time != "" {
		b.WriteString(e.Time)
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s", e.Level.CapitalString())
	if e.Logger != "" {
		b.WriteString(" [")
		b.WriteString(e.Logger)
		b.WriteByte(']')
	}
	b.WriteByte(' ')
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	return b.String()
}

// Render formats lines at or above minLevel. Lines that do not parse are kept
// verbatim so nothing is silently hidden.
func Render(lines []string, minLevel zapcore.Level) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		e, ok := Parse(line)
		if !ok {
			out = append(out, line)
			continue
		}
		if e.Level < minLevel {
			continue
		}
		out = append(out, Format(e))
	}
	return out
}
