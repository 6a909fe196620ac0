package anchor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sovereigndoc/sdc/pkg/anchor"
)

func samplePayload() anchor.AnchorPayload {
	return anchor.AnchorPayload{
		DocumentID: "doc-1",
		IntakeHash: "intake-hash",
		LedgerRoot: "ledger-root",
		Timestamp:  time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC),
	}
}

func TestOfflineAnchorAndVerifyRoundTrip(t *testing.T) {
	r := anchor.NewRegistry()
	ctx := context.Background()

	receipt, err := r.Anchor(ctx, samplePayload())
	require.NoError(t, err)
	assert.True(t, receipt.Confirmed)
	assert.Equal(t, anchor.ChainOffline, receipt.Chain)

	ok, err := r.Verify(ctx, receipt, samplePayload())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsMismatchedPayload(t *testing.T) {
	r := anchor.NewRegistry()
	ctx := context.Background()

	receipt, err := r.Anchor(ctx, samplePayload())
	require.NoError(t, err)

	tampered := samplePayload()
	tampered.DocumentID = "doc-2"
	ok, err := r.Verify(ctx, receipt, tampered)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAnchorMultiCollectsReceiptsAcrossChains(t *testing.T) {
	r := anchor.NewRegistry()
	ctx := context.Background()

	receipts, err := r.AnchorMulti(ctx, samplePayload(), []anchor.Chain{anchor.ChainOffline, anchor.ChainXRPL})
	require.NoError(t, err)
	assert.Len(t, receipts, 2)
}

func TestAnchorToUnknownChainFails(t *testing.T) {
	r := anchor.NewRegistry()
	_, err := r.AnchorTo(context.Background(), samplePayload(), anchor.Chain("unknown"))
	assert.Error(t, err)
}

func TestStatusAllReportsEveryAdapterSorted(t *testing.T) {
	r := anchor.NewRegistry()
	statuses := r.StatusAll(context.Background())
	require.Len(t, statuses, 5)
	for i := 1; i < len(statuses); i++ {
		assert.True(t, statuses[i-1].Chain <= statuses[i].Chain)
	}
}
