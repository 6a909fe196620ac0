package anchor

import (
	"context"
	"fmt"
	"time"

	"github.com/sovereigndoc/sdc/pkg/crypto"
)

// OfflineAdapter anchors by hashing the payload into a local reference
// with no external dependency; always available, used as the default
// active chain and as a fallback when no network adapter is configured.
type OfflineAdapter struct{}

// NewOfflineAdapter builds the offline adapter.
func NewOfflineAdapter() *OfflineAdapter {
	return &OfflineAdapter{}
}

func (a *OfflineAdapter) Chain() Chain { return ChainOffline }

func (a *OfflineAdapter) Anchor(ctx context.Context, payload AnchorPayload) (LedgerReceipt, error) {
	hash := payloadHash(payload)
	return LedgerReceipt{
		ReceiptID:   newReceiptID(),
		Chain:       ChainOffline,
		PayloadHash: hash,
		TxReference: fmt.Sprintf("offline:%s", hash),
		AnchoredAt:  time.Now().UTC(),
		Confirmed:   true,
	}, nil
}

func (a *OfflineAdapter) Verify(ctx context.Context, receipt LedgerReceipt, payload AnchorPayload) (bool, error) {
	expected := payloadHash(payload)
	return crypto.ConstantTimeEqualString(expected, receipt.PayloadHash), nil
}

func (a *OfflineAdapter) Status(ctx context.Context) Status {
	return Status{Chain: ChainOffline, Available: true, Detail: "local, no external dependency"}
}
