package canonical

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"
)

// Field is one optional document field in its raw JSON form. A zero Field was
// omitted by the adapter; a Field holding JSON null was explicitly cleared.
type Field struct {
	Set bool
	Raw json.RawMessage
}

func String(s string) Field {
	raw, _ := json.Marshal(s)
	return Field{Set: true, Raw: raw}
}

func Int(n int) Field {
	return Field{Set: true, Raw: json.RawMessage(strconv.Itoa(n))}
}

func Time(t time.Time) Field {
	return String(t.UTC().Format(time.RFC3339))
}

func Null() Field {
	return Field{Set: true, Raw: json.RawMessage("null")}
}

func (f Field) IsNull() bool {
	return f.Set && (len(f.Raw) == 0 || bytes.Equal(bytes.TrimSpace(f.Raw), []byte("null")))
}

// text returns the field as a string. Scalars that are not strings are
// rendered as their JSON literal.
func (f Field) text() (string, bool) {
	if !f.Set || f.IsNull() {
		return "", false
	}
	raw := bytes.TrimSpace(f.Raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	}
	if raw[0] == '{' || raw[0] == '[' {
		return "", false
	}
	return string(raw), true
}

// integer accepts JSON numbers and numeric strings with digit grouping
// ("12 345", "12,345"). Fractions are truncated.
func (f Field) integer() (int, bool) {
	s, ok := f.text()
	if !ok {
		return 0, false
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', ',', '_', '\u00a0', '\u2009', '\u202f':
			return -1
		}
		return r
	}, s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if fl, err := strconv.ParseFloat(s, 64); err == nil {
		return int(fl), true
	}
	return 0, false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006 15:04",
	"02.01.2006",
}

// timestamp accepts the layouts adapters emit, or Unix seconds.
func (f Field) timestamp() (time.Time, bool) {
	s, ok := f.text()
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC(), true
	}
	return time.Time{}, false
}
