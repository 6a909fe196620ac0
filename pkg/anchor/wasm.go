package anchor

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/sovereigndoc/sdc/pkg/crypto"
)

// WASMAdapter runs a custom, operator-supplied anchoring module inside
// a wazero sandbox: deny-by-default, no filesystem, no network, no
// ambient authority. The module receives the payload hash on stdin and
// must write a transaction reference to stdout. This lets an operator
// plug in a ledger this package has no native adapter for, without
// granting it anything beyond stdin/stdout.
type WASMAdapter struct {
	runtime  wazero.Runtime
	module   []byte
	chain    Chain
}

// NewWASMAdapter stores wasmModule without compiling it; Anchor compiles,
// instantiates and runs it on every call with a bounded context.
func NewWASMAdapter(ctx context.Context, chain Chain, wasmModule []byte) (*WASMAdapter, error) {
	r := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, r)
	return &WASMAdapter{runtime: r, module: wasmModule, chain: chain}, nil
}

func (a *WASMAdapter) Chain() Chain { return a.chain }

func (a *WASMAdapter) Anchor(ctx context.Context, payload AnchorPayload) (LedgerReceipt, error) {
	hash := payloadHash(payload)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var stdout, stderr bytes.Buffer
	modCfg := wazero.NewModuleConfig().
		WithName(fmt.Sprintf("anchor-%s", a.chain)).
		WithStartFunctions("_start").
		WithStdin(bytes.NewReader([]byte(hash))).
		WithStdout(&stdout).
		WithStderr(&stderr)

	compiled, err := a.runtime.CompileModule(ctx, a.module)
	if err != nil {
		return LedgerReceipt{}, fmt.Errorf("anchor: wasm compile: %w", err)
	}
	defer func() { _ = compiled.Close(ctx) }()

	mod, err := a.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return LedgerReceipt{}, fmt.Errorf("anchor: wasm instantiate: %w", err)
	}
	defer func() { _ = mod.Close(ctx) }()

	if stderr.Len() > 0 {
		return LedgerReceipt{}, fmt.Errorf("anchor: wasm module stderr: %s", stderr.String())
	}

	return LedgerReceipt{
		ReceiptID:   newReceiptID(),
		Chain:       a.chain,
		PayloadHash: hash,
		TxReference: stdout.String(),
		AnchoredAt:  time.Now().UTC(),
		Confirmed:   true,
	}, nil
}

func (a *WASMAdapter) Verify(ctx context.Context, receipt LedgerReceipt, payload AnchorPayload) (bool, error) {
	expected := payloadHash(payload)
	return crypto.ConstantTimeEqualString(expected, receipt.PayloadHash), nil
}

func (a *WASMAdapter) Status(ctx context.Context) Status {
	return Status{Chain: a.chain, Available: a.module != nil, Detail: "wasm custom adapter"}
}

// Close releases the wazero runtime.
func (a *WASMAdapter) Close(ctx context.Context) error {
	return a.runtime.Close(ctx)
}
