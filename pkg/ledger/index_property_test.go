//go:build property
// +build property

package ledger

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestQuerySequencesMatchesActorFilterCount verifies that for any
// number of appended entries split across two actors, querying by
// actor returns exactly the entries attributed to that actor.
func TestQuerySequencesMatchesActorFilterCount(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("query by actor returns exactly that actor's entries", prop.ForAll(
		func(aliceCount, bobCount int) bool {
			dir := t.TempDir()
			s, err := Open(dir, KindAccess, nil)
			if err != nil {
				return false
			}
			if err := s.WithIndex(filepath.Join(dir, fmt.Sprintf("idx-%d-%d.sqlite", aliceCount, bobCount))); err != nil {
				return false
			}

			for i := 0; i < aliceCount; i++ {
				if _, err := s.Append("doc-view", "info", map[string]interface{}{"actor": "alice", "documentId": "d1"}); err != nil {
					return false
				}
			}
			for i := 0; i < bobCount; i++ {
				if _, err := s.Append("doc-view", "info", map[string]interface{}{"actor": "bob", "documentId": "d2"}); err != nil {
					return false
				}
			}

			results, err := s.Query(QueryFilter{Actor: "alice"})
			if err != nil {
				return false
			}
			return len(results) == aliceCount
		},
		gen.IntRange(0, 10),
		gen.IntRange(0, 10),
	))

	properties.TestingRun(t)
}
