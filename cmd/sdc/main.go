// Command sdc is the sovereign document control CLI: ingest, transform,
// sign, verify, diff, and anchor documents through the core pipeline.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sovereigndoc/sdc/pkg/anchor"
	"github.com/sovereigndoc/sdc/pkg/authz"
	"github.com/sovereigndoc/sdc/pkg/canon"
	"github.com/sovereigndoc/sdc/pkg/certificate"
	"github.com/sovereigndoc/sdc/pkg/crypto"
	"github.com/sovereigndoc/sdc/pkg/docdiff"
	"github.com/sovereigndoc/sdc/pkg/document"
	"github.com/sovereigndoc/sdc/pkg/orchestrator"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the CLI entrypoint, factored out of main for testability.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stdout)
		return 0
	}

	switch args[1] {
	case "ingest":
		return runIngest(args[2:], stdout, stderr)
	case "canonicalize":
		return runCanonicalize(args[2:], stdout, stderr)
	case "hash-stability":
		return runHashStability(args[2:], stdout, stderr)
	case "diff":
		return runDiff(args[2:], stdout, stderr)
	case "sign":
		return runSign(args[2:], stdout, stderr)
	case "ledger-anchor":
		return runLedgerAnchor(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "sdc - sovereign document control")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  sdc <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "COMMANDS:")
	fmt.Fprintln(w, "  ingest          Intake a document, classify, and bind access policy")
	fmt.Fprintln(w, "  canonicalize    Compute the canonical hash and Merkle root of a document")
	fmt.Fprintln(w, "  hash-stability  Verify canonical-hash stability across repeated rounds")
	fmt.Fprintln(w, "  diff            Structurally diff two document revisions")
	fmt.Fprintln(w, "  sign            Issue a signature certificate over a document hash")
	fmt.Fprintln(w, "  ledger-anchor   Anchor a ledger root to a configured chain")
	fmt.Fprintln(w, "  help            Show this help")
}

func loadDocument(path string) (document.Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return document.Object{}, fmt.Errorf("read %s: %w", path, err)
	}
	var doc document.Object
	if err := json.Unmarshal(data, &doc); err != nil {
		return document.Object{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func printJSON(w io.Writer, v interface{}) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func runIngest(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("ingest", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	var docPath, documentID, owner, rawText string
	cmd.StringVar(&docPath, "document", "", "path to a document JSON file (REQUIRED)")
	cmd.StringVar(&documentID, "id", "", "document id (REQUIRED)")
	cmd.StringVar(&owner, "owner", "", "owner identity (REQUIRED)")
	cmd.StringVar(&rawText, "text", "", "raw extracted text used for classification")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if docPath == "" || documentID == "" || owner == "" {
		fmt.Fprintln(stderr, "error: --document, --id, and --owner are required")
		return 2
	}

	doc, err := loadDocument(docPath)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	signer, err := crypto.NewSigner()
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	o := orchestrator.New(authz.NewEngine(), signer, nil)

	result, err := o.Ingest(doc, documentID, rawText, owner)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	printJSON(stdout, result)
	return 0
}

func runCanonicalize(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("canonicalize", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	var docPath string
	cmd.StringVar(&docPath, "document", "", "path to a document JSON file (REQUIRED)")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if docPath == "" {
		fmt.Fprintln(stderr, "error: --document is required")
		return 2
	}

	doc, err := loadDocument(docPath)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	fingerprint, err := canon.ComputeFingerprint(doc)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	printJSON(stdout, fingerprint)
	return 0
}

func runHashStability(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("hash-stability", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	var docPath string
	var rounds int
	cmd.StringVar(&docPath, "document", "", "path to a document JSON file (REQUIRED)")
	cmd.IntVar(&rounds, "rounds", 1000, "number of canonicalization rounds")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if docPath == "" {
		fmt.Fprintln(stderr, "error: --document is required")
		return 2
	}

	doc, err := loadDocument(docPath)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	result, err := canon.RunHashStabilityTest(doc, rounds)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	printJSON(stdout, result)
	if !result.Stable {
		return 1
	}
	return 0
}

func runDiff(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("diff", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	var aPath, bPath string
	cmd.StringVar(&aPath, "a", "", "path to revision A document JSON (REQUIRED)")
	cmd.StringVar(&bPath, "b", "", "path to revision B document JSON (REQUIRED)")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if aPath == "" || bPath == "" {
		fmt.Fprintln(stderr, "error: --a and --b are required")
		return 2
	}

	docA, err := loadDocument(aPath)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	docB, err := loadDocument(bPath)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	result := docdiff.Diff(docA, docB)
	printJSON(stdout, result)
	return 0
}

func runSign(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("sign", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	var documentID, documentHash, signerName, docType, subType, jurisdiction, version string
	var year int
	cmd.StringVar(&documentID, "id", "", "document id (REQUIRED)")
	cmd.StringVar(&documentHash, "hash", "", "canonical document hash (REQUIRED)")
	cmd.StringVar(&signerName, "signer", "", "signer identity (REQUIRED)")
	cmd.StringVar(&docType, "doc-type", "CONTRACT", "SKU document type")
	cmd.StringVar(&subType, "sub-type", "GENERAL", "SKU document sub-type")
	cmd.StringVar(&jurisdiction, "jurisdiction", "US", "SKU jurisdiction code")
	cmd.StringVar(&version, "version", "1.0.0", "SKU semantic version")
	cmd.IntVar(&year, "year", time.Now().UTC().Year(), "SKU year")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if documentID == "" || documentHash == "" || signerName == "" {
		fmt.Fprintln(stderr, "error: --id, --hash, and --signer are required")
		return 2
	}

	sku, err := certificate.NewSKU(docType, subType, jurisdiction, year, version, documentHash)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	signer, err := crypto.NewSigner()
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	cert, err := certificate.Issue(sku, documentID, documentHash, signerName, signer, time.Now().UTC())
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	printJSON(stdout, cert)
	return 0
}

func runLedgerAnchor(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("ledger-anchor", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	var documentID, intakeHash, ledgerRoot, chain string
	cmd.StringVar(&documentID, "id", "", "document id (REQUIRED)")
	cmd.StringVar(&intakeHash, "intake-hash", "", "intake record hash (REQUIRED)")
	cmd.StringVar(&ledgerRoot, "ledger-root", "", "access ledger root hash (REQUIRED)")
	cmd.StringVar(&chain, "chain", "offline", "anchor chain: xrpl|ethereum|polygon|ipfs|offline")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if documentID == "" || intakeHash == "" || ledgerRoot == "" {
		fmt.Fprintln(stderr, "error: --id, --intake-hash, and --ledger-root are required")
		return 2
	}

	registry := anchor.NewRegistry()
	receipt, err := registry.AnchorTo(context.Background(), anchor.AnchorPayload{
		DocumentID: documentID,
		IntakeHash: intakeHash,
		LedgerRoot: ledgerRoot,
		Timestamp:  time.Now().UTC(),
	}, anchor.Chain(chain))
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	printJSON(stdout, receipt)
	return 0
}
