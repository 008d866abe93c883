package linkdex

import (
	"time"
)

// EntryStatus is the lifecycle state of a catalog entry.
type EntryStatus string

// StatusActive is the only status entries are created with.
const StatusActive EntryStatus = "active"

// Entry is one normalized title/link record of the catalog.
type Entry struct {
	Title      string      `json:"title"`
	Link       string      `json:"link"`
	ExternalID string      `json:"externalId,omitempty"` // empty when the link embeds no id
	Timestamp  time.Time   `json:"timestamp"`
	Status     EntryStatus `json:"status"`
}

// Validate returns an error if the entry contains invalid fields.
func (e *Entry) Validate() error {
	if e.Title == "" {
		return Errorf(EINVALID, "entry title required")
	}
	if e.Link == "" {
		return Errorf(EINVALID, "entry link required")
	}
	return nil
}

// SnapshotMeta describes the last saved catalog snapshot.
type SnapshotMeta struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count"`
	Digest    string    `json:"digest,omitempty"` // hash of the source document

	// CheckedAt is when the snapshot was last confirmed against the source,
	// either by saving it or by a refresh that found it unchanged. Timestamp
	// stays the document's own stamp and may be much older.
	CheckedAt time.Time `json:"checkedAt"`
}

// Snapshot is a full catalog as persisted by a CacheStore.
type Snapshot struct {
	SchemaVersion int
	Entries       []Entry

	// Meta is nil when nothing has been saved yet.
	Meta *SnapshotMeta
}

// BuildEntries turns extracted rows into catalog entries stamped with ts.
//
// Links are normalized with NormalizeLink. Rows whose link cannot be
// resolved are skipped and reported as EPARSE errors. When several rows
// share a normalized link only the last one in reading order is kept, at
// its own position.
func BuildEntries(rows []Row, ts time.Time) ([]Entry, []error) {
	var skipped []error
	entries := make([]Entry, 0, len(rows))
	index := make(map[string]int, len(rows))

	for _, row := range rows {
		link := NormalizeLink(row.Link)
		if !resolvable(link.URL) {
			skipped = append(skipped, Errorf(EPARSE, "row %q: unresolvable link %q", row.Title, row.Link))
			continue
		}
		if row.Title == "" {
			continue
		}

		if prev, ok := index[link.URL]; ok {
			// Tombstone the earlier duplicate; compacted below.
			entries[prev].Link = ""
		}
		index[link.URL] = len(entries)
		entries = append(entries, Entry{
			Title:      row.Title,
			Link:       link.URL,
			ExternalID: link.ExternalID,
			Timestamp:  ts,
			Status:     StatusActive,
		})
	}

	out := entries[:0]
	for _, e := range entries {
		if e.Link != "" {
			out = append(out, e)
		}
	}
	return out, skipped
}
