package policy_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sovereigndoc/sdc/pkg/policy"
)

func TestEvaluateAllowsMatchingExpression(t *testing.T) {
	ev, err := policy.NewEvaluator()
	require.NoError(t, err)

	allowed, err := ev.Evaluate(`context.riskTier == "HIGH"`, map[string]interface{}{"riskTier": "HIGH"}, time.Now().Unix())
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestEvaluateDeniesOnMalformedExpression(t *testing.T) {
	ev, err := policy.NewEvaluator()
	require.NoError(t, err)

	allowed, err := ev.Evaluate(`context.riskTier ===`, map[string]interface{}{}, time.Now().Unix())
	assert.Error(t, err)
	assert.False(t, allowed)
}

func TestEvaluateAllRequiresEveryRule(t *testing.T) {
	ev, err := policy.NewEvaluator()
	require.NoError(t, err)

	ctx := map[string]interface{}{"riskTier": "CRITICAL", "otpVerified": true}
	ok, err := ev.EvaluateAll([]string{
		`context.riskTier == "CRITICAL"`,
		`context.otpVerified == true`,
	}, ctx, time.Now().Unix())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ev.EvaluateAll([]string{
		`context.riskTier == "CRITICAL"`,
		`context.otpVerified == false`,
	}, ctx, time.Now().Unix())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateNonBooleanResultIsDenied(t *testing.T) {
	ev, err := policy.NewEvaluator()
	require.NoError(t, err)
	_, err = ev.Evaluate(`1 + 1`, map[string]interface{}{}, time.Now().Unix())
	assert.Error(t, err)
}
