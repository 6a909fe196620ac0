package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// fileNames maps each instance kind to its on-disk file name.
var fileNames = map[Kind]string{
	KindPerimeter:    "perimeter-ledger.json",
	KindAccess:       "sdc-access-ledger.json",
	KindConversation: "sca-conversation-ledger.json",
}

// document is the on-disk shape of a ledger file.
type document struct {
	Engine    Kind      `json:"engine"`
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	Entries   []Entry   `json:"entries"`
}

const documentVersion = "1"

// Store owns the single writer for one ledger instance's backing file.
// One Store wraps exactly one Ledger; there is one writer per instance,
// matching the process-wide singleton the spec assumes.
type Store struct {
	ledger    *Ledger
	dir       string
	path      string
	createdAt time.Time
	log       *slog.Logger
	index     *Index
}

// Open loads (or creates) the file-backed ledger of the given kind inside
// dir. A missing file starts a fresh, empty ledger rooted at the
// instance's genesis seed; an unreadable or corrupt file does the same
// and logs a warning rather than failing.
func Open(dir string, kind Kind, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	name, ok := fileNames[kind]
	if !ok {
		return nil, fmt.Errorf("ledger: unknown kind %q", kind)
	}
	path := filepath.Join(dir, name)

	s := &Store{
		ledger: New(kind),
		dir:    dir,
		path:   path,
		log:    log,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("ledger store unreadable, starting fresh", "path", path, "error", err)
		}
		s.createdAt = time.Now().UTC()
		return s, nil
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		log.Warn("ledger store corrupt, starting fresh", "path", path, "error", err)
		s.createdAt = time.Now().UTC()
		return s, nil
	}

	s.ledger.entries = doc.Entries
	s.createdAt = doc.CreatedAt
	if len(doc.Entries) > 0 {
		s.ledger.headHash = doc.Entries[len(doc.Entries)-1].ChainHash
	}
	return s, nil
}

// WithIndex attaches a sqlite-backed secondary index, rebuilt from the
// store's current entries, so Query can serve hot filters (actor,
// document id) without a full scan. Optional: a Store with no index
// still supports Append/VerifyIntegrity, just not Query.
func (s *Store) WithIndex(indexPath string) error {
	idx, err := OpenIndex(indexPath, s.ledger.kind, s.ledger.Entries())
	if err != nil {
		return err
	}
	s.index = idx
	return nil
}

// Ledger returns the underlying in-memory ledger.
func (s *Store) Ledger() *Ledger { return s.ledger }

// Query serves a filtered read through the secondary index when one is
// attached, falling back to a full scan of the in-memory chain otherwise
// (correct either way; the index exists only to avoid the scan).
func (s *Store) Query(filter QueryFilter) ([]Entry, error) {
	if s.index != nil {
		seqs, err := s.index.QuerySequences(filter)
		if err != nil {
			return nil, err
		}
		out := make([]Entry, 0, len(seqs))
		for _, seq := range seqs {
			if e, ok := s.ledger.Get(seq); ok {
				out = append(out, e)
			}
		}
		return out, nil
	}
	return scanEntries(s.ledger.Entries(), filter), nil
}

func scanEntries(entries []Entry, filter QueryFilter) []Entry {
	var out []Entry
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if filter.EventType != "" && e.EventType != filter.EventType {
			continue
		}
		if filter.Severity != "" && e.Severity != filter.Severity {
			continue
		}
		if filter.Actor != "" {
			actor, _ := e.Payload["actor"].(string)
			if actor != filter.Actor {
				continue
			}
		}
		if filter.DocumentID != "" {
			documentID, _ := e.Payload["documentId"].(string)
			if documentID != filter.DocumentID {
				continue
			}
		}
		if filter.Since != nil && e.Timestamp.Before(*filter.Since) {
			continue
		}
		if filter.Until != nil && e.Timestamp.After(*filter.Until) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

// Append appends a new entry to the in-memory chain and durably persists
// the full updated ledger before returning, via write-to-temp-then-rename
// so a crash mid-write never corrupts the previously-committed file. On
// persist failure the in-memory chain is rolled back to its pre-append
// state, matching the append-is-total-except-for-I/O-failure contract.
func (s *Store) Append(eventType, severity string, payload map[string]interface{}) (Entry, error) {
	entry := s.ledger.Append(eventType, severity, payload)
	if err := s.flush(); err != nil {
		s.ledger.rollbackLast()
		return Entry{}, fmt.Errorf("ledger: persist append: %w", err)
	}
	if s.index != nil {
		if err := s.index.Mirror(entry); err != nil {
			s.log.Warn("ledger index mirror failed", "sequence", entry.Sequence, "error", err)
		}
	}
	return entry, nil
}

func (s *Store) flush() error {
	if s.createdAt.IsZero() {
		s.createdAt = time.Now().UTC()
	}
	doc := document{
		Engine:    s.ledger.kind,
		Version:   documentVersion,
		CreatedAt: s.createdAt,
		Entries:   s.ledger.Entries(),
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-"+filepath.Base(s.path)+"-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, s.path)
}

// Close releases the secondary index handle, if one is attached.
func (s *Store) Close() error {
	if s.index != nil {
		return s.index.Close()
	}
	return nil
}
