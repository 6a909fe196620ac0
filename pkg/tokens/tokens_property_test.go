//go:build property
// +build property

package tokens_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/sovereigndoc/sdc/pkg/tokens"
)

// TestValidateNeverExceedsMaxUses verifies that for any maxUses and any
// number of validation attempts, the count of successful validations
// never exceeds maxUses.
func TestValidateNeverExceedsMaxUses(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("successful validations never exceed maxUses", prop.ForAll(
		func(maxUses, attempts int) bool {
			svc := tokens.NewService()
			tok, err := svc.Issue(tokens.IssueRequest{
				DocumentID: "doc-1",
				Recipient:  tokens.Recipient{Email: "a@example.com"},
				MaxUses:    maxUses,
			})
			if err != nil {
				return false
			}

			successes := 0
			for i := 0; i < attempts; i++ {
				result := svc.Validate(tokens.ValidateRequest{Secret: tok.TokenSecret})
				if result.Valid {
					successes++
				}
			}
			return successes <= maxUses
		},
		gen.IntRange(1, 20),
		gen.IntRange(0, 40),
	))

	properties.TestingRun(t)
}
