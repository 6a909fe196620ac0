package exportpolicy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sovereigndoc/sdc/pkg/exportpolicy"
	"github.com/sovereigndoc/sdc/pkg/intake"
	"github.com/sovereigndoc/sdc/pkg/watermark"
)

func TestCheckPolicyMatchesTable(t *testing.T) {
	cases := []struct {
		policy   intake.ExportPolicy
		format   exportpolicy.Format
		decision exportpolicy.Decision
	}{
		{intake.ExportNone, exportpolicy.FormatHTML, exportpolicy.DecisionDeny},
		{intake.ExportViewOnly, exportpolicy.FormatHTML, exportpolicy.DecisionAllow},
		{intake.ExportViewOnly, exportpolicy.FormatPDF, exportpolicy.DecisionDeny},
		{intake.ExportPDFOnly, exportpolicy.FormatPDF, exportpolicy.DecisionAllow},
		{intake.ExportPDFPassword, exportpolicy.FormatPDF, exportpolicy.DecisionAllowPassword},
		{intake.ExportDOCXRestricted, exportpolicy.FormatDOCX, exportpolicy.DecisionAllowReadOnly},
		{intake.ExportFull, exportpolicy.FormatJSON, exportpolicy.DecisionAllow},
	}
	for _, c := range cases {
		assert.Equal(t, c.decision, exportpolicy.CheckPolicy(c.policy, c.format))
	}
}

func TestProcessExportDeniedWritesNoOutput(t *testing.T) {
	rec, output, err := exportpolicy.ProcessExport(exportpolicy.Request{
		DocumentID: "doc-1", Format: exportpolicy.FormatPDF, Policy: intake.ExportNone,
	})
	require.NoError(t, err)
	assert.Equal(t, exportpolicy.DecisionDeny, rec.Decision)
	assert.Empty(t, output)
	assert.Empty(t, rec.ExportHash)
}

func TestProcessExportPDFPasswordSetsFlagNotSecret(t *testing.T) {
	rec, output, err := exportpolicy.ProcessExport(exportpolicy.Request{
		DocumentID:      "doc-2",
		Title:           "Agreement",
		Format:          exportpolicy.FormatPDF,
		Policy:          intake.ExportPDFPassword,
		WatermarkPolicy: watermark.PolicyStandard,
		Recipient:       watermark.Request{Name: "Alice", Email: "alice@example.com"},
		Content:         "body text",
	})
	require.NoError(t, err)
	assert.True(t, rec.PasswordProtected)
	assert.NotEmpty(t, rec.ExportHash)
	assert.NotEmpty(t, output)
	assert.NotContains(t, output, "password")
}
