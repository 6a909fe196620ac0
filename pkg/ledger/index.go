package ledger

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// QueryFilter selects entries by the hot filters the ledger's secondary
// index exists to serve without a full scan: event type, severity,
// actor, document id, a time window, and a tail limit.
type QueryFilter struct {
	EventType  string
	Severity   string
	Actor      string
	DocumentID string
	Since      *time.Time
	Until      *time.Time
	Limit      int
}

// Index is a sqlite-backed secondary index mirroring one ledger's
// entries, keyed by the fields queries filter on most: actor and
// document id. It is a pure read-side accelerator — the ledger's JSON
// file (via Store) remains the source of truth; Index is rebuilt from it
// on open and kept current by Mirror on every append.
type Index struct {
	db   *sql.DB
	kind Kind
}

// OpenIndex opens (creating if necessary) a sqlite index file alongside
// the ledger's JSON store and rebuilds it from the given entries.
func OpenIndex(path string, kind Kind, entries []Entry) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open index: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS entries (
	sequence    INTEGER PRIMARY KEY,
	entry_id    TEXT NOT NULL,
	event_type  TEXT NOT NULL,
	severity    TEXT,
	timestamp   TEXT NOT NULL,
	document_id TEXT,
	actor       TEXT
);
CREATE INDEX IF NOT EXISTS idx_entries_actor ON entries(actor);
CREATE INDEX IF NOT EXISTS idx_entries_document ON entries(document_id);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: create index schema: %w", err)
	}
	idx := &Index{db: db, kind: kind}
	if _, err := db.Exec("DELETE FROM entries"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: reset index: %w", err)
	}
	for _, e := range entries {
		if err := idx.mirror(e); err != nil {
			db.Close()
			return nil, err
		}
	}
	return idx, nil
}

// Mirror records one newly appended entry into the index. Called by
// Store.Append right after a successful flush.
func (idx *Index) Mirror(e Entry) error {
	return idx.mirror(e)
}

func (idx *Index) mirror(e Entry) error {
	documentID, _ := e.Payload["documentId"].(string)
	actor, _ := e.Payload["actor"].(string)
	_, err := idx.db.Exec(
		`INSERT OR REPLACE INTO entries (sequence, entry_id, event_type, severity, timestamp, document_id, actor)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Sequence, e.EntryID, e.EventType, e.Severity, e.Timestamp.Format(time.RFC3339Nano), documentID, actor,
	)
	if err != nil {
		return fmt.Errorf("ledger: mirror entry %d: %w", e.Sequence, err)
	}
	return nil
}

// QuerySequences returns the matching sequence numbers, newest first,
// honoring filter.Limit as a tail limit. Callers resolve sequences back
// to full Entry values via Ledger.Get, keeping the ledger's in-memory
// slice the single source of entry content.
func (idx *Index) QuerySequences(filter QueryFilter) ([]uint64, error) {
	var clauses []string
	var args []interface{}

	if filter.EventType != "" {
		clauses = append(clauses, "event_type = ?")
		args = append(args, filter.EventType)
	}
	if filter.Severity != "" {
		clauses = append(clauses, "severity = ?")
		args = append(args, filter.Severity)
	}
	if filter.Actor != "" {
		clauses = append(clauses, "actor = ?")
		args = append(args, filter.Actor)
	}
	if filter.DocumentID != "" {
		clauses = append(clauses, "document_id = ?")
		args = append(args, filter.DocumentID)
	}
	if filter.Since != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, filter.Since.Format(time.RFC3339Nano))
	}
	if filter.Until != nil {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, filter.Until.Format(time.RFC3339Nano))
	}

	query := "SELECT sequence FROM entries"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY sequence DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := idx.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: query index: %w", err)
	}
	defer rows.Close()

	var out []uint64
	for rows.Next() {
		var seq uint64
		if err := rows.Scan(&seq); err != nil {
			return nil, fmt.Errorf("ledger: scan index row: %w", err)
		}
		out = append(out, seq)
	}
	return out, rows.Err()
}

// Close releases the underlying sqlite handle.
func (idx *Index) Close() error {
	return idx.db.Close()
}
