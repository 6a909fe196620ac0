// Package docdiff implements DocumentDiff (C9): a structural comparison
// of two document revisions by section, producing a classified change
// set and a Merkle-rooted diff proof that two parties can independently
// recompute and compare without exchanging the documents themselves.
package docdiff

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/sovereigndoc/sdc/pkg/document"
	"github.com/sovereigndoc/sdc/pkg/merkle"
)

// ChangeKind classifies one section's status between revision A and B.
type ChangeKind string

const (
	ChangeRemoved   ChangeKind = "removed"
	ChangeModified  ChangeKind = "modified"
	ChangeUnchanged ChangeKind = "unchanged"
	ChangeAdded     ChangeKind = "added"
)

// sortOrder fixes the presentation order of mixed-kind change lists.
var sortOrder = map[ChangeKind]int{
	ChangeRemoved:   0,
	ChangeModified:  1,
	ChangeUnchanged: 2,
	ChangeAdded:     3,
}

// SectionChange is one entry in the diff's per-section change list.
type SectionChange struct {
	SectionID string     `json:"sectionId"`
	Kind      ChangeKind `json:"kind"`
	HashA     string     `json:"hashA,omitempty"`
	HashB     string     `json:"hashB,omitempty"`
}

// Result is the DocumentDiff data model.
type Result struct {
	RootA         string          `json:"rootA"`
	RootB         string          `json:"rootB"`
	Changes       []SectionChange `json:"changes"`
	ChangedLeaves []string        `json:"changedLeaves"`
	MetadataDiff  map[string]bool `json:"metadataDiff,omitempty"`
	TagsAdded     []string        `json:"tagsAdded,omitempty"`
	TagsRemoved   []string        `json:"tagsRemoved,omitempty"`
	DiffProofHash string          `json:"diffProofHash"`
	DiffHash      string          `json:"diffHash"`
}

// Diff compares two document revisions section by section, in the
// sequential (not sorted-fold) Merkle convention used for diff proofs.
func Diff(a, b document.Object) Result {
	flatA := a.Flatten()
	flatB := b.Flatten()

	hashesA := make(map[string]string, len(flatA))
	orderA := make([]string, 0, len(flatA))
	for _, fs := range flatA {
		h := sectionHash(fs.Section)
		hashesA[fs.Section.ID] = h
		orderA = append(orderA, fs.Section.ID)
	}
	hashesB := make(map[string]string, len(flatB))
	orderB := make([]string, 0, len(flatB))
	for _, fs := range flatB {
		h := sectionHash(fs.Section)
		hashesB[fs.Section.ID] = h
		orderB = append(orderB, fs.Section.ID)
	}

	ids := make(map[string]bool)
	for id := range hashesA {
		ids[id] = true
	}
	for id := range hashesB {
		ids[id] = true
	}

	var changes []SectionChange
	var changedLeaves []string
	for id := range ids {
		ha, inA := hashesA[id]
		hb, inB := hashesB[id]
		switch {
		case inA && !inB:
			changes = append(changes, SectionChange{SectionID: id, Kind: ChangeRemoved, HashA: ha})
			changedLeaves = append(changedLeaves, ha)
		case !inA && inB:
			changes = append(changes, SectionChange{SectionID: id, Kind: ChangeAdded, HashB: hb})
			changedLeaves = append(changedLeaves, hb)
		case ha != hb:
			changes = append(changes, SectionChange{SectionID: id, Kind: ChangeModified, HashA: ha, HashB: hb})
			changedLeaves = append(changedLeaves, ha, hb)
		default:
			changes = append(changes, SectionChange{SectionID: id, Kind: ChangeUnchanged, HashA: ha, HashB: hb})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		if sortOrder[changes[i].Kind] != sortOrder[changes[j].Kind] {
			return sortOrder[changes[i].Kind] < sortOrder[changes[j].Kind]
		}
		return changes[i].SectionID < changes[j].SectionID
	})
	sort.Strings(changedLeaves)

	rootA := merkle.FoldSequential(orderedHashes(orderA, hashesA))
	rootB := merkle.FoldSequential(orderedHashes(orderB, hashesB))

	result := Result{
		RootA:         rootA,
		RootB:         rootB,
		Changes:       changes,
		ChangedLeaves: changedLeaves,
		MetadataDiff:  diffMetadata(a.Metadata, b.Metadata),
	}
	result.TagsAdded, result.TagsRemoved = diffTags(a.SemanticTags, b.SemanticTags)
	result.DiffProofHash = diffProofHash(rootA, rootB, changedLeaves)
	result.DiffHash = diffHash(result)
	return result
}

func orderedHashes(order []string, hashes map[string]string) []string {
	out := make([]string, 0, len(order))
	for _, id := range order {
		out = append(out, hashes[id])
	}
	return out
}

func sectionHash(s document.Section) string {
	h := sha256.Sum256([]byte(s.Content))
	return hex.EncodeToString(h[:])
}

func diffMetadata(a, b document.Metadata) map[string]bool {
	diff := make(map[string]bool)
	if a.Title != b.Title {
		diff["title"] = true
	}
	if a.Type != b.Type {
		diff["type"] = true
	}
	if a.PageCount != b.PageCount {
		diff["pageCount"] = true
	}
	if a.Language != b.Language {
		diff["language"] = true
	}
	if len(diff) == 0 {
		return nil
	}
	return diff
}

func diffTags(a, b []string) (added, removed []string) {
	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[t] = true
	}
	setB := make(map[string]bool, len(b))
	for _, t := range b {
		setB[t] = true
	}
	for t := range setB {
		if !setA[t] {
			added = append(added, t)
		}
	}
	for t := range setA {
		if !setB[t] {
			removed = append(removed, t)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

func diffProofHash(rootA, rootB string, changedLeaves []string) string {
	payload, _ := json.Marshal(struct {
		RootA         string   `json:"rootA"`
		RootB         string   `json:"rootB"`
		ChangedLeaves []string `json:"changedLeaves"`
	}{rootA, rootB, changedLeaves})
	h := sha256.Sum256(payload)
	return hex.EncodeToString(h[:])
}

func diffHash(r Result) string {
	payload, _ := json.Marshal(r.Changes)
	h := sha256.Sum256(append([]byte(r.DiffProofHash), payload...))
	return hex.EncodeToString(h[:])
}
