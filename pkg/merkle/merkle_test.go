package merkle

import "testing"

func leavesOf(hashes ...string) []Leaf {
	out := make([]Leaf, len(hashes))
	for i, h := range hashes {
		out[i] = Leaf{ID: h, Hash: h}
	}
	return out
}

func TestFoldSortedOddLeafCarriesForward(t *testing.T) {
	h1 := sha256Hex([]byte("a"))
	h2 := sha256Hex([]byte("b"))
	h3 := sha256Hex([]byte("c"))

	tree := FoldSorted(leavesOf(h1, h2, h3))
	if tree.Root == "" {
		t.Fatal("root is empty")
	}
	if len(tree.Leaves) != 3 {
		t.Fatalf("expected 3 leaves, got %d", len(tree.Leaves))
	}

	n1 := pairHashSorted(h1, h2)
	wantRoot := pairHashSorted(n1, h3) // odd leaf h3 carries forward, then pairs with n1
	if tree.Root != wantRoot {
		t.Errorf("root = %s, want %s", tree.Root, wantRoot)
	}
}

func TestFoldSortedEmpty(t *testing.T) {
	tree := FoldSorted(nil)
	if tree.Root != EmptyRoot {
		t.Errorf("empty tree root = %s, want %s", tree.Root, EmptyRoot)
	}
}

func TestFoldSortedDeterministicRegardlessOfPairOrder(t *testing.T) {
	a := sha256Hex([]byte("a"))
	b := sha256Hex([]byte("b"))
	// sorted concatenation means order of the two inputs to pairHashSorted
	// doesn't matter, only their own sort order
	if pairHashSorted(a, b) != pairHashSorted(b, a) {
		t.Error("pairHashSorted should be order-independent")
	}
}

func TestBuildAndVerifyInclusionProof(t *testing.T) {
	h1 := sha256Hex([]byte("a"))
	h2 := sha256Hex([]byte("b"))
	h3 := sha256Hex([]byte("c"))
	h4 := sha256Hex([]byte("d"))

	tree := FoldSorted(leavesOf(h1, h2, h3, h4))

	for i := range tree.Leaves {
		proof, ok := BuildInclusionProof(tree, i)
		if !ok {
			t.Fatalf("BuildInclusionProof(%d) failed", i)
		}
		if !VerifyInclusionProof(proof, tree.Root) {
			t.Errorf("valid proof for leaf %d failed to verify", i)
		}
	}
}

func TestVerifyInclusionProofRejectsTamperedLeaf(t *testing.T) {
	h1 := sha256Hex([]byte("a"))
	h2 := sha256Hex([]byte("b"))
	h3 := sha256Hex([]byte("c"))

	tree := FoldSorted(leavesOf(h1, h2, h3))
	proof, ok := BuildInclusionProof(tree, 2)
	if !ok {
		t.Fatal("BuildInclusionProof failed")
	}

	proof.LeafHash = h1 // tamper
	if VerifyInclusionProof(proof, tree.Root) {
		t.Error("tampered proof should not verify")
	}
}

func TestBuildInclusionProofOutOfRange(t *testing.T) {
	tree := FoldSorted(leavesOf(sha256Hex([]byte("a"))))
	if _, ok := BuildInclusionProof(tree, 5); ok {
		t.Error("expected out-of-range leaf index to fail")
	}
}

func TestFoldSequentialDuplicatesOddLeaf(t *testing.T) {
	h1 := sha256Hex([]byte("a"))
	h2 := sha256Hex([]byte("b"))
	h3 := sha256Hex([]byte("c"))

	root := FoldSequential([]string{h1, h2, h3})

	n1 := pairHashConcat(h1, h2)
	n2 := pairHashConcat(h3, h3) // odd leaf duplicated, not carried forward
	want := pairHashConcat(n1, n2)

	if root != want {
		t.Errorf("root = %s, want %s", root, want)
	}
}

func TestFoldSequentialEmpty(t *testing.T) {
	if root := FoldSequential(nil); root != EmptyRoot {
		t.Errorf("empty sequential root = %s, want %s", root, EmptyRoot)
	}
}
