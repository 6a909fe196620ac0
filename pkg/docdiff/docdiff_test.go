package docdiff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sovereigndoc/sdc/pkg/docdiff"
	"github.com/sovereigndoc/sdc/pkg/document"
)

func buildDoc(sections ...document.Section) document.Object {
	return document.Object{
		Metadata: document.Metadata{Title: "T", Type: document.TypePDF},
		Sections: sections,
	}
}

func TestDiffClassifiesUnchangedModifiedAddedRemoved(t *testing.T) {
	a := buildDoc(
		document.Section{ID: "s1", Depth: 1, Content: "alpha"},
		document.Section{ID: "s2", Depth: 1, Content: "beta"},
		document.Section{ID: "s3", Depth: 1, Content: "gamma"},
	)
	b := buildDoc(
		document.Section{ID: "s1", Depth: 1, Content: "alpha"},
		document.Section{ID: "s2", Depth: 1, Content: "beta-changed"},
		document.Section{ID: "s4", Depth: 1, Content: "delta"},
	)

	result := docdiff.Diff(a, b)

	kinds := make(map[string]docdiff.ChangeKind)
	for _, c := range result.Changes {
		kinds[c.SectionID] = c.Kind
	}
	assert.Equal(t, docdiff.ChangeUnchanged, kinds["s1"])
	assert.Equal(t, docdiff.ChangeModified, kinds["s2"])
	assert.Equal(t, docdiff.ChangeRemoved, kinds["s3"])
	assert.Equal(t, docdiff.ChangeAdded, kinds["s4"])

	require.Len(t, result.Changes, 4)
	assert.Equal(t, docdiff.ChangeRemoved, result.Changes[0].Kind)
	assert.Equal(t, docdiff.ChangeAdded, result.Changes[len(result.Changes)-1].Kind)

	assert.NotEmpty(t, result.DiffProofHash)
	assert.NotEmpty(t, result.DiffHash)
	assert.NotEmpty(t, result.ChangedLeaves)
}

func TestDiffIsDeterministicAcrossRuns(t *testing.T) {
	a := buildDoc(document.Section{ID: "s1", Depth: 1, Content: "x"})
	b := buildDoc(document.Section{ID: "s1", Depth: 1, Content: "y"})

	r1 := docdiff.Diff(a, b)
	r2 := docdiff.Diff(a, b)
	assert.Equal(t, r1.DiffProofHash, r2.DiffProofHash)
	assert.Equal(t, r1.DiffHash, r2.DiffHash)
}

func TestDiffTracksSemanticTagChanges(t *testing.T) {
	a := document.Object{SemanticTags: []string{"legal", "draft"}}
	b := document.Object{SemanticTags: []string{"legal", "final"}}
	result := docdiff.Diff(a, b)
	assert.Equal(t, []string{"final"}, result.TagsAdded)
	assert.Equal(t, []string{"draft"}, result.TagsRemoved)
}

func TestDiffIdenticalDocumentsProduceNoChanges(t *testing.T) {
	a := buildDoc(document.Section{ID: "s1", Depth: 1, Content: "same"})
	result := docdiff.Diff(a, a)
	for _, c := range result.Changes {
		assert.Equal(t, docdiff.ChangeUnchanged, c.Kind)
	}
	assert.Empty(t, result.ChangedLeaves)
	assert.Equal(t, result.RootA, result.RootB)
}
