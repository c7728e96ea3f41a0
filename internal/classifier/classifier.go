// Package classifier scores URL feature vectors. The registry holds the
// currently loaded model so handlers never touch a global; a service running
// without a model still answers, it just reports that no model is loaded.
package classifier

import (
	"sync"
)

// Outcome labels a prediction result.
const (
	OutcomeLegitimate = 0
	OutcomePhishing   = 1
	OutcomeNoModel    = -1
)

// Result is one scored URL.
type Result struct {
	Prediction  int
	Probability float64
	Label       string
}

// Classifier scores a feature vector produced by the features package.
type Classifier interface {
	Predict(features map[string]any) Result
	Version() string
}

// Registry is the swap point for the active model. Zero value means no
// model loaded.
type Registry struct {
	mu     sync.RWMutex
	active Classifier
}

func NewRegistry() *Registry { return &Registry{} }

// Load installs c as the active model. A nil c unloads.
func (r *Registry) Load(c Classifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = c
}

// Ready reports whether a model is loaded.
func (r *Registry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active != nil
}

// Active returns the loaded model, or nil.
func (r *Registry) Active() Classifier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Version returns the loaded model's version, or "none".
func (r *Registry) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == nil {
		return "none"
	}
	return r.active.Version()
}

// Label maps a prediction code to its response label.
func Label(prediction int) string {
	switch prediction {
	case OutcomePhishing:
		return "phishing"
	case OutcomeLegitimate:
		return "legitimate"
	default:
		return "model_not_loaded"
	}
}
