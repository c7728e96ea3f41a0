package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"phishguard.org/internal/features"
)

var extractor = features.NewExtractor([]string{"login", "secure", "bank", "verify", "update", "account"})

func TestRegistryReadyGate(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Ready())
	assert.Nil(t, r.Active())
	assert.Equal(t, "none", r.Version())

	r.Load(NewHeuristic())
	assert.True(t, r.Ready())
	assert.Equal(t, HeuristicVersion, r.Version())

	r.Load(nil)
	assert.False(t, r.Ready())
}

func TestHeuristicFlagsObviousPhishing(t *testing.T) {
	h := NewHeuristic()
	f := extractor.Extract("http://192.168.0.1/secure-login/verify?account=update@bank")
	got := h.Predict(f)

	assert.Equal(t, OutcomePhishing, got.Prediction)
	assert.Equal(t, "phishing", got.Label)
	assert.Greater(t, got.Probability, 0.5)
}

func TestHeuristicPassesPlainSite(t *testing.T) {
	h := NewHeuristic()
	f := extractor.Extract("https://example.com/about")
	got := h.Predict(f)

	assert.Equal(t, OutcomeLegitimate, got.Prediction)
	assert.Equal(t, "legitimate", got.Label)
	assert.Less(t, got.Probability, 0.5)
}

func TestHeuristicProbabilityBounds(t *testing.T) {
	h := NewHeuristic()
	for _, u := range []string{
		"",
		"https://example.com/",
		"http://1.2.3.4/login/secure/bank/verify/update/account?a=1&b=2",
	} {
		got := h.Predict(extractor.Extract(u))
		assert.Greater(t, got.Probability, 0.0, u)
		assert.Less(t, got.Probability, 1.0, u)
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "phishing", Label(OutcomePhishing))
	assert.Equal(t, "legitimate", Label(OutcomeLegitimate))
	assert.Equal(t, "model_not_loaded", Label(OutcomeNoModel))
}
