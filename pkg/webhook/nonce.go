package webhook

import (
	"sync"
	"time"
)

// replayWindow is how long a seen nonce is remembered.
const replayWindow = 5 * time.Minute

// NonceTracker rejects a signature nonce it has already seen within the
// replay window, then forgets nonces older than that window.
type NonceTracker struct {
	mu    sync.Mutex
	seen  map[string]time.Time
	clock func() time.Time
}

// NewNonceTracker builds an empty tracker.
func NewNonceTracker() *NonceTracker {
	return &NonceTracker{seen: make(map[string]time.Time), clock: time.Now}
}

// CheckAndRecord reports whether nonce has already been seen within the
// replay window. If not, it records the nonce as seen at the current
// time and returns false (not a replay).
func (n *NonceTracker) CheckAndRecord(nonce string) bool {
	if nonce == "" {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.clock().UTC()
	n.cleanup(now)

	if seenAt, ok := n.seen[nonce]; ok && now.Sub(seenAt) < replayWindow {
		return true
	}
	n.seen[nonce] = now
	return false
}

// cleanup drops entries older than the replay window. Caller holds mu.
func (n *NonceTracker) cleanup(now time.Time) {
	for nonce, seenAt := range n.seen {
		if now.Sub(seenAt) >= replayWindow {
			delete(n.seen, nonce)
		}
	}
}
