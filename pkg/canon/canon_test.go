package canon_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sovereigndoc/sdc/pkg/canon"
	"github.com/sovereigndoc/sdc/pkg/document"
)

func seedDoc(ingestedAt time.Time, content string) document.Object {
	return document.Object{
		Metadata: document.Metadata{
			Title:      "Agreement",
			Type:       document.TypePDF,
			PageCount:  3,
			IngestedAt: ingestedAt,
		},
		Sections: []document.Section{
			{ID: "s1", Type: document.SectionParagraph, Depth: 0, Content: content},
		},
	}
}

// TestCanonicalHashIsStableAcrossRounds mirrors scenario S1: the same
// document hashed 1,000 times yields an identical hash every time.
func TestCanonicalHashIsStableAcrossRounds(t *testing.T) {
	doc := seedDoc(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "  hello  world  ")
	first, err := canon.CanonicalHash(doc)
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		h, err := canon.CanonicalHash(doc)
		require.NoError(t, err)
		assert.Equal(t, first, h)
	}
}

func TestCanonicalHashIgnoresVolatileIngestedAt(t *testing.T) {
	docA := seedDoc(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "hello world")
	docB := seedDoc(time.Date(2099, 6, 6, 12, 0, 0, 0, time.UTC), "hello world")

	hA, err := canon.CanonicalHash(docA)
	require.NoError(t, err)
	hB, err := canon.CanonicalHash(docB)
	require.NoError(t, err)
	assert.Equal(t, hA, hB)
}

func TestCanonicalHashNormalizesWhitespace(t *testing.T) {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	docA := seedDoc(ts, "  hello  world  ")
	docB := seedDoc(ts, "hello world")

	hA, err := canon.CanonicalHash(docA)
	require.NoError(t, err)
	hB, err := canon.CanonicalHash(docB)
	require.NoError(t, err)
	assert.Equal(t, hA, hB)
}

func TestCanonicalMerkleRootEmptyDocument(t *testing.T) {
	empty := document.Object{Metadata: document.Metadata{Title: "Empty", Type: document.TypeTXT}}
	assert.NotEmpty(t, canon.CanonicalMerkleRoot(empty))
}

func TestVerifyReplayReportsFirstDivergence(t *testing.T) {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	docA := seedDoc(ts, "hello world")
	docB := seedDoc(ts, "goodbye world")

	result, err := canon.VerifyReplay(docA, docB)
	require.NoError(t, err)
	assert.False(t, result.Match)
	assert.NotEmpty(t, result.ContextA)
	assert.NotEmpty(t, result.ContextB)
}

func TestRunHashStabilityTestReportsStable(t *testing.T) {
	doc := seedDoc(time.Now(), "stable content")
	result, err := canon.RunHashStabilityTest(doc, 50)
	require.NoError(t, err)
	assert.True(t, result.Stable)
	assert.Zero(t, result.DivergedAtRound)
}
