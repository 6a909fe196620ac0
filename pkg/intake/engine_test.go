package intake_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sovereigndoc/sdc/pkg/authz"
	"github.com/sovereigndoc/sdc/pkg/document"
	"github.com/sovereigndoc/sdc/pkg/intake"
)

func sampleDoc() document.Object {
	return document.Object{
		Metadata: document.Metadata{Title: "Master Services Agreement", Type: document.TypePDF},
		Sections: []document.Section{{ID: "s1", Type: document.SectionParagraph, Content: "indemnification clause"}},
	}
}

// TestStateMachineFollowsSeedScenario mirrors scenario S4.
func TestStateMachineFollowsSeedScenario(t *testing.T) {
	eng := intake.NewEngine(authz.NewEngine())
	rec, err := eng.Intake(sampleDoc(), "doc-1", "", "owner@example.com", intake.AccessPolicy{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, intake.StateDraft, rec.State)

	rec, err = eng.Advance("doc-1", intake.StateInternal, "actor1", "review")
	require.NoError(t, err)
	assert.Equal(t, intake.StateInternal, rec.State)

	rec, err = eng.Advance("doc-1", intake.StateSigned, "actor1", "signed")
	require.NoError(t, err)
	assert.Equal(t, intake.StateSigned, rec.State)

	rec, err = eng.Advance("doc-1", intake.StateArchived, "actor1", "archive")
	require.NoError(t, err)
	assert.Equal(t, intake.StateArchived, rec.State)

	_, err = eng.Advance("doc-1", intake.StateDraft, "actor1", "invalid")
	assert.Error(t, err)
	rec, _ = eng.Get("doc-1")
	assert.Equal(t, intake.StateArchived, rec.State, "rejected transition must not change state")

	rec, err = eng.Revoke("doc-1", "actor1", "final")
	require.NoError(t, err)
	assert.Equal(t, intake.StateRevoked, rec.State)

	_, err = eng.Advance("doc-1", intake.StateArchived, "actor1", "noop")
	assert.Error(t, err, "REVOKED is terminal")
}

func TestAutoClassificationFallsBackToOperationalOnNoMatch(t *testing.T) {
	rule := intake.Classify("Untitled", "lorem ipsum dolor sit amet")
	assert.Equal(t, intake.ClassOperational, rule.Classification)
	assert.Equal(t, intake.RiskLow, rule.RiskTier)
}

func TestAutoClassificationPicksHighestScoringRule(t *testing.T) {
	rule := intake.Classify("Compliance Audit Finding", "regulatory kyc aml sanctions screening")
	assert.Equal(t, intake.ClassCompliance, rule.Classification)
	assert.Equal(t, intake.RiskCritical, rule.RiskTier)
}

func TestIsAuthorizedRejectsDraftAndRevoked(t *testing.T) {
	eng := intake.NewEngine(authz.NewEngine())
	_, err := eng.Intake(sampleDoc(), "doc-2", "", "owner@example.com", intake.AccessPolicy{}, nil, nil)
	require.NoError(t, err)

	result := eng.IsAuthorized(nil, "doc-2", "recipient@example.com", []string{"admin"}, "")
	assert.False(t, result.Authorized, "DRAFT must reject")

	_, err = eng.Advance("doc-2", intake.StateInternal, "actor", "")
	require.NoError(t, err)
	result = eng.IsAuthorized(nil, "doc-2", "recipient@example.com", []string{"admin"}, "")
	assert.True(t, result.Authorized)

	_, err = eng.Revoke("doc-2", "actor", "")
	require.NoError(t, err)
	result = eng.IsAuthorized(nil, "doc-2", "recipient@example.com", []string{"admin"}, "")
	assert.False(t, result.Authorized, "REVOKED must reject")
}
