package treatment

import (
	"encoding/json"
	"strings"
)

// metaPrefix marks notes that carry structured meta. The prefix and the
// compact JSON payload are the wire format written by the upstream bot
// that creates treatment records, so they must not change.
const metaPrefix = "[alice-meta]"

// ParseMeta decodes the structured meta embedded in a note. Notes that
// do not start with the prefix, or whose payload does not parse, yield
// an empty map; the note text is then treated as an opaque description.
func ParseMeta(notes string) map[string]any {
	if !strings.HasPrefix(notes, metaPrefix) {
		return map[string]any{}
	}
	payload := notes[len(metaPrefix):]
	var meta map[string]any
	if err := json.Unmarshal([]byte(payload), &meta); err != nil || meta == nil {
		return map[string]any{}
	}
	return meta
}

// ApplyMetaUpdates merges updates into the note meta and re-serializes
// it. A nil update value deletes the key. Keys the updates do not touch
// survive verbatim. Existing notes without meta are never overwritten;
// a fresh meta shell is created only when the note was empty.
func ApplyMetaUpdates(notes string, updates map[string]any) string {
	if len(updates) == 0 {
		return notes
	}

	meta := ParseMeta(notes)
	if len(meta) == 0 {
		if notes != "" {
			return notes
		}
		meta = map[string]any{"ver": 1}
	}

	for key, value := range updates {
		if value == nil {
			delete(meta, key)
		} else {
			meta[key] = value
		}
	}

	payload, err := json.Marshal(meta)
	if err != nil {
		return notes
	}
	return metaPrefix + string(payload)
}
