package ingest

import (
	"bytes"
	"io"
	"strconv"

	"github.com/fanfiq/fanfiq/pkg/canonical"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// Entry is one document of an adapter dump. Err is set when that document
// could not be decoded; the others are unaffected.
type Entry struct {
	Index    int
	Document *canonical.Document
	Err      error
}

// ReadDocuments decodes an adapter dump: a single document, a JSON array of
// documents, or one document per line. The returned error covers the dump as
// a whole (unreadable input, a malformed array); per-document failures are
// reported on their Entry.
func ReadDocuments(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var raws []json.RawMessage
	switch {
	case data[0] == '[':
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, errors.Wrap(err, "failed to decode document list")
		}
	case json.Valid(data):
		raws = []json.RawMessage{data}
	default:
		for _, line := range bytes.Split(data, []byte("\n")) {
			line = bytes.TrimSpace(line)
			if len(line) > 0 {
				raws = append(raws, line)
			}
		}
	}

	entries := make([]Entry, 0, len(raws))
	for i, raw := range raws {
		entry := Entry{Index: i + 1}
		doc := &canonical.Document{}
		if err := json.Unmarshal(raw, doc); err != nil {
			if canonical.IsValidationError(err) {
				entry.Err = errors.Wrapf(err, "document %d", entry.Index)
			} else {
				entry.Err = errors.Wrap(err, "failed to decode document "+strconv.Itoa(entry.Index))
			}
		} else {
			entry.Document = doc
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
