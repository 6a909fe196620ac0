// Package ledger implements the three hash-chained, append-only logs that
// back the platform's forensic guarantee: perimeter security events,
// document access events, and SMS/conversation events. All three share the
// same entry shape and chaining rule; only their genesis seed and backing
// file differ.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sovereigndoc/sdc/pkg/canonicalize"
)

// Kind names one of the three ledger instances.
type Kind string

const (
	KindPerimeter    Kind = "perimeter"
	KindAccess       Kind = "access"
	KindConversation Kind = "conversation"
)

// genesisSeeds holds the fixed 64-hex genesis constant each instance roots
// its chain at. Each is SHA-256 of a fixed, instance-specific string so the
// seeds are reproducible without being shared across instances.
var genesisSeeds = map[Kind]string{
	KindPerimeter:    sha256Hex([]byte("sdc:genesis:perimeter:v1")),
	KindAccess:       sha256Hex([]byte("sdc:genesis:access:v1")),
	KindConversation: sha256Hex([]byte("sdc:genesis:conversation:v1")),
}

// Entry is one immutable record in a ledger. The chain hash covers
// sequence, entryId, eventType, severity, timestamp, previousHash, and
// a canonical hash of Payload, so tampering with any stored byte —
// including the free-form payload — is detectable by VerifyIntegrity.
type Entry struct {
	EntryID      string                 `json:"entryId"`
	Sequence     uint64                 `json:"sequence"`
	EventType    string                 `json:"eventType"`
	Severity     string                 `json:"severity,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
	Payload      map[string]interface{} `json:"payload,omitempty"`
	PreviousHash string                 `json:"previousHash"`
	ChainHash    string                 `json:"chainHash"`
}

// Ledger is an append-only, hash-chained log. A single Ledger has exactly
// one writer; readers may call Entries/Verify concurrently with Append.
type Ledger struct {
	mu       sync.RWMutex
	kind     Kind
	genesis  string
	entries  []Entry
	headHash string
	clock    func() time.Time
	idgen    func() string

	path string
}

// New creates an empty in-memory ledger of the given kind, rooted at that
// kind's genesis seed.
func New(kind Kind) *Ledger {
	genesis := genesisSeeds[kind]
	return &Ledger{
		kind:     kind,
		genesis:  genesis,
		entries:  make([]Entry, 0),
		headHash: genesis,
		clock:    time.Now,
		idgen:    func() string { return uuid.New().String() },
	}
}

// WithClock overrides the clock used for entry timestamps, for tests.
func (l *Ledger) WithClock(clock func() time.Time) *Ledger {
	l.clock = clock
	return l
}

// WithIDGenerator overrides entryId generation, for tests.
func (l *Ledger) WithIDGenerator(gen func() string) *Ledger {
	l.idgen = gen
	return l
}

// Kind returns the ledger's instance kind.
func (l *Ledger) Kind() Kind { return l.kind }

// Genesis returns the fixed genesis hash this ledger's chain roots at.
func (l *Ledger) Genesis() string { return l.genesis }

// Append adds a new entry with the given event type, severity, and
// best-effort payload, computes its chain hash, and returns the assigned
// sequence number. Append never fails on the in-memory chain step itself;
// the persistence layer (see Store) is what can fail.
func (l *Ledger) Append(eventType, severity string, payload map[string]interface{}) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	seq := uint64(len(l.entries)) + 1
	entry := Entry{
		EntryID:      l.idgen(),
		Sequence:     seq,
		EventType:    eventType,
		Severity:     severity,
		Timestamp:    l.clock().UTC(),
		Payload:      payload,
		PreviousHash: l.headHash,
	}
	entry.ChainHash = computeChainHash(entry)

	l.entries = append(l.entries, entry)
	l.headHash = entry.ChainHash
	return entry
}

// computeChainHash hashes the stable delimited string of sequence,
// entryId, eventType, severity, timestamp, previousHash, and a
// canonical (RFC 8785) hash of payload. Folding a canonical hash of
// payload into the input — rather than excluding it — is what makes
// the chain detect a tamper of any stored field, not just the pinned
// ones.
func computeChainHash(e Entry) string {
	payloadHash, err := canonicalize.CanonicalHash(e.Payload)
	if err != nil {
		payloadHash = "invalid:" + err.Error()
	}
	input := fmt.Sprintf("%d|%s|%s|%s|%s|%s|%s",
		e.Sequence, e.EntryID, e.EventType, e.Severity, e.Timestamp.Format(time.RFC3339Nano), e.PreviousHash, payloadHash)
	return sha256Hex([]byte(input))
}

// rollbackLast removes the most recently appended entry and restores the
// previous chain head, used when persisting a fresh append fails so the
// in-memory chain never diverges from durable storage.
func (l *Ledger) rollbackLast() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return
	}
	last := l.entries[len(l.entries)-1]
	l.entries = l.entries[:len(l.entries)-1]
	l.headHash = last.PreviousHash
}

// Get retrieves an entry by its 1-based sequence number.
func (l *Ledger) Get(seq uint64) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if seq == 0 || seq > uint64(len(l.entries)) {
		return Entry{}, false
	}
	return l.entries[seq-1], true
}

// Entries returns a snapshot copy of all entries in append order.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Head returns the current chain head hash.
func (l *Ledger) Head() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.headHash
}

// Length returns the number of entries.
func (l *Ledger) Length() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// VerifyResult reports chain integrity.
type VerifyResult struct {
	Intact    bool
	BrokenAt  uint64 // 0 when Intact
	EntryCnt  int
	Reason    string
}

// VerifyIntegrity walks the chain from genesis and reports the first
// sequence number at which it finds a break, if any.
func (l *Ledger) VerifyIntegrity() VerifyResult {
	l.mu.RLock()
	defer l.mu.RUnlock()

	prev := l.genesis
	for _, e := range l.entries {
		if e.PreviousHash != prev {
			return VerifyResult{Intact: false, BrokenAt: e.Sequence, EntryCnt: len(l.entries),
				Reason: fmt.Sprintf("entry %d: previousHash %q does not match expected %q", e.Sequence, e.PreviousHash, prev)}
		}
		if computeChainHash(e) != e.ChainHash {
			return VerifyResult{Intact: false, BrokenAt: e.Sequence, EntryCnt: len(l.entries),
				Reason: fmt.Sprintf("entry %d: chainHash does not match recomputed value", e.Sequence)}
		}
		prev = e.ChainHash
	}
	return VerifyResult{Intact: true, EntryCnt: len(l.entries), Reason: "chain verified"}
}

func sha256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
