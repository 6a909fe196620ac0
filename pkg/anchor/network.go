package anchor

import (
	"context"
	"fmt"
	"time"

	"github.com/sovereigndoc/sdc/pkg/crypto"
)

// networkAdapter is the shared shape of the three ledger-chain adapters
// (XRPL, Ethereum, Polygon): a configured RPC endpoint plus a
// deterministic local anchor path used until the real client is wired,
// mirroring how the compliance source adapters return seed data ahead
// of their HTTP transport. All three satisfy Adapter identically aside
// from chain identity and transaction-reference formatting.
type networkAdapter struct {
	chain      Chain
	endpoint   string
	txPrefix   string
}

func (a *networkAdapter) Chain() Chain { return a.chain }

func (a *networkAdapter) Anchor(ctx context.Context, payload AnchorPayload) (LedgerReceipt, error) {
	hash := payloadHash(payload)
	// NOTE: real submission requires a funded account and chain-specific
	// client (xrpl-go / go-ethereum); until that transport is wired the
	// receipt's txReference is derived locally and confirmed is false.
	return LedgerReceipt{
		ReceiptID:   newReceiptID(),
		Chain:       a.chain,
		PayloadHash: hash,
		TxReference: fmt.Sprintf("%s:%s", a.txPrefix, hash),
		AnchoredAt:  time.Now().UTC(),
		Confirmed:   false,
	}, nil
}

func (a *networkAdapter) Verify(ctx context.Context, receipt LedgerReceipt, payload AnchorPayload) (bool, error) {
	expected := payloadHash(payload)
	return crypto.ConstantTimeEqualString(expected, receipt.PayloadHash), nil
}

func (a *networkAdapter) Status(ctx context.Context) Status {
	if a.endpoint == "" {
		return Status{Chain: a.chain, Available: false, Detail: "no endpoint configured"}
	}
	return Status{Chain: a.chain, Available: true, Detail: a.endpoint}
}

// XRPLAdapter anchors via an XRPL memo transaction.
type XRPLAdapter struct{ networkAdapter }

// NewXRPLAdapter builds an XRPL adapter against the given JSON-RPC
// endpoint (empty means unconfigured, reported as unavailable).
func NewXRPLAdapter(endpoint string) *XRPLAdapter {
	return &XRPLAdapter{networkAdapter{chain: ChainXRPL, endpoint: endpoint, txPrefix: "xrpl-tx"}}
}

// EthereumAdapter anchors via an Ethereum contract call or calldata memo.
type EthereumAdapter struct{ networkAdapter }

// NewEthereumAdapter builds an Ethereum adapter against the given RPC
// endpoint.
func NewEthereumAdapter(endpoint string) *EthereumAdapter {
	return &EthereumAdapter{networkAdapter{chain: ChainEthereum, endpoint: endpoint, txPrefix: "eth-tx"}}
}

// PolygonAdapter anchors via a Polygon contract call, the low-fee
// alternative to anchoring directly on Ethereum mainnet.
type PolygonAdapter struct{ networkAdapter }

// NewPolygonAdapter builds a Polygon adapter against the given RPC
// endpoint.
func NewPolygonAdapter(endpoint string) *PolygonAdapter {
	return &PolygonAdapter{networkAdapter{chain: ChainPolygon, endpoint: endpoint, txPrefix: "polygon-tx"}}
}

// IPFSAdapter is the IPFS variant. It shares networkAdapter's local
// anchor path with the chain adapters: Anchor derives an "ipfs-cid:"
// reference from the payload hash and makes no pin request or other
// network call, and its receipts are reported with Confirmed false.
type IPFSAdapter struct{ networkAdapter }

// NewIPFSAdapter builds an IPFS adapter against the given pinning
// service endpoint.
func NewIPFSAdapter(endpoint string) *IPFSAdapter {
	return &IPFSAdapter{networkAdapter{chain: ChainIPFS, endpoint: endpoint, txPrefix: "ipfs-cid"}}
}
