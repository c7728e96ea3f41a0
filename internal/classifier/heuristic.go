package classifier

import "math"

// HeuristicVersion identifies the built-in rule-based model.
const HeuristicVersion = "heuristic-1"

// Heuristic is a weighted-rule model over the lexical features. It stands in
// when no trained model artifact is available and is deliberately
// conservative: a URL must trip several signals before it scores as phishing.
type Heuristic struct{}

func NewHeuristic() *Heuristic { return &Heuristic{} }

func (h *Heuristic) Version() string { return HeuristicVersion }

// Predict scores the vector. The score is squashed through a logistic so the
// probability stays in (0,1) and the 0.5 threshold decides the label.
func (h *Heuristic) Predict(features map[string]any) Result {
	score := -1.5

	if asFloat(features["has_ip_in_host"]) > 0 {
		score += 2.0
	}
	if asFloat(features["has_at_symbol"]) > 0 {
		score += 1.5
	}
	if asFloat(features["has_double_slash_in_path"]) > 0 {
		score += 0.8
	}
	score += 0.6 * asFloat(features["suspicious_token_count"])
	score += 0.3 * math.Max(0, asFloat(features["subdomain_depth"])-1)
	score += 2.0 * asFloat(features["ratio_digits_to_length"])
	if asFloat(features["url_length"]) > 75 {
		score += 0.5
	}
	if asFloat(features["count_hyphens"]) > 3 {
		score += 0.4
	}
	if scheme, _ := features["scheme"].(string); scheme == "http" {
		score += 0.3
	}
	if asFloat(features["character_entropy"]) > 4.5 {
		score += 0.4
	}

	probability := 1 / (1 + math.Exp(-score))
	prediction := OutcomeLegitimate
	if probability >= 0.5 {
		prediction = OutcomePhishing
	}
	return Result{
		Prediction:  prediction,
		Probability: probability,
		Label:       Label(prediction),
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}
