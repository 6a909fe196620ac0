// Package anchor implements the LedgerAdapterRegistry (C11): a set of
// ledger-anchoring adapters (XRPL, Ethereum, Polygon, IPFS, offline)
// behind a common interface, with a registry that can anchor a payload
// to one or several chains and verify a previously issued receipt.
package anchor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sovereigndoc/sdc/pkg/crypto"
)

// Chain names a supported ledger-anchor target.
type Chain string

const (
	ChainXRPL     Chain = "xrpl"
	ChainEthereum Chain = "ethereum"
	ChainPolygon  Chain = "polygon"
	ChainIPFS     Chain = "ipfs"
	ChainOffline  Chain = "offline"
)

// AnchorPayload is the content an adapter anchors: its hash is what
// actually gets committed on-chain, the rest is metadata for the receipt.
type AnchorPayload struct {
	DocumentID   string
	IntakeHash   string
	LedgerRoot   string
	Timestamp    time.Time
}

// payloadHash returns SHA256(documentId|intakeHash|ledgerRoot|timestamp),
// fields joined in a fixed order so every adapter anchors the same bytes.
func payloadHash(p AnchorPayload) string {
	input := fmt.Sprintf("%s|%s|%s|%s", p.DocumentID, p.IntakeHash, p.LedgerRoot, p.Timestamp.UTC().Format(time.RFC3339Nano))
	return crypto.SHA256Hex([]byte(input))
}

// LedgerReceipt is what an adapter returns after a successful anchor.
type LedgerReceipt struct {
	ReceiptID   string    `json:"receiptId"`
	Chain       Chain     `json:"chain"`
	PayloadHash string    `json:"payloadHash"`
	TxReference string    `json:"txReference"`
	AnchoredAt  time.Time `json:"anchoredAt"`
	Confirmed   bool      `json:"confirmed"`
}

// Status is an adapter's reachability/health state.
type Status struct {
	Chain     Chain
	Available bool
	Detail    string
}

// Adapter is the common interface every ledger-anchor backend implements.
type Adapter interface {
	Chain() Chain
	Anchor(ctx context.Context, payload AnchorPayload) (LedgerReceipt, error)
	Verify(ctx context.Context, receipt LedgerReceipt, payload AnchorPayload) (bool, error)
	Status(ctx context.Context) Status
}

// Registry holds the configured adapter set and dispatches anchor and
// verify calls to one or many of them.
type Registry struct {
	adapters map[Chain]Adapter
	active   Chain
}

// NewRegistry builds a registry with the default adapter set, active
// chain set to offline (always available, no external dependency).
func NewRegistry() *Registry {
	r := &Registry{adapters: make(map[Chain]Adapter), active: ChainOffline}
	r.Register(NewOfflineAdapter())
	r.Register(NewXRPLAdapter(""))
	r.Register(NewEthereumAdapter(""))
	r.Register(NewPolygonAdapter(""))
	r.Register(NewIPFSAdapter(""))
	return r
}

// Register adds or replaces the adapter for its chain.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Chain()] = a
}

// SetActive sets the chain used by Anchor when no explicit chain list
// is given.
func (r *Registry) SetActive(c Chain) error {
	if _, ok := r.adapters[c]; !ok {
		return fmt.Errorf("anchor: unknown chain %q", c)
	}
	r.active = c
	return nil
}

// Anchor commits payload to the active chain.
func (r *Registry) Anchor(ctx context.Context, payload AnchorPayload) (LedgerReceipt, error) {
	return r.AnchorTo(ctx, payload, r.active)
}

// AnchorTo commits payload to a specific chain.
func (r *Registry) AnchorTo(ctx context.Context, payload AnchorPayload, chain Chain) (LedgerReceipt, error) {
	a, ok := r.adapters[chain]
	if !ok {
		return LedgerReceipt{}, fmt.Errorf("anchor: unknown chain %q", chain)
	}
	return a.Anchor(ctx, payload)
}

// AnchorMulti commits payload to every listed chain, returning one
// receipt per chain and the first error encountered (if any); anchoring
// continues across the remaining chains even after a failure so one
// bad adapter doesn't block the rest.
func (r *Registry) AnchorMulti(ctx context.Context, payload AnchorPayload, chains []Chain) ([]LedgerReceipt, error) {
	var receipts []LedgerReceipt
	var firstErr error
	for _, c := range chains {
		receipt, err := r.AnchorTo(ctx, payload, c)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		receipts = append(receipts, receipt)
	}
	return receipts, firstErr
}

// Verify checks a receipt against payload using the adapter for the
// receipt's chain.
func (r *Registry) Verify(ctx context.Context, receipt LedgerReceipt, payload AnchorPayload) (bool, error) {
	a, ok := r.adapters[receipt.Chain]
	if !ok {
		return false, fmt.Errorf("anchor: unknown chain %q", receipt.Chain)
	}
	return a.Verify(ctx, receipt, payload)
}

// StatusAll reports the health of every registered adapter, sorted by
// chain name for deterministic output.
func (r *Registry) StatusAll(ctx context.Context) []Status {
	statuses := make([]Status, 0, len(r.adapters))
	for _, a := range r.adapters {
		statuses = append(statuses, a.Status(ctx))
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Chain < statuses[j].Chain })
	return statuses
}

func newReceiptID() string {
	return uuid.New().String()
}
