package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"phishguard.org/internal/classifier"
	"phishguard.org/internal/logstore"
	"phishguard.org/internal/obs"
)

type predictRequest struct {
	URL      string         `json:"url"`
	Device   string         `json:"device"`
	IP       string         `json:"ip"`
	Metadata map[string]any `json:"metadata"`
}

// handlePredict classifies a URL and logs the event. Authentication is
// optional: a valid bearer token attributes the log entry to the caller,
// anything else logs as anonymous.
func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rawURL := strings.TrimSpace(req.URL)
	if rawURL == "" {
		writeError(w, r, http.StatusBadRequest, "url is required")
		return
	}
	if a.opts.MaxURLLength > 0 && len(rawURL) > a.opts.MaxURLLength {
		rawURL = truncateRunes(rawURL, a.opts.MaxURLLength)
	}

	ip := strings.TrimSpace(req.IP)
	if ip == "" {
		ip = clientIP(r)
	}
	entry := &logstore.Entry{
		URL:      rawURL,
		Device:   req.Device,
		IP:       ip,
		Metadata: req.Metadata,
	}
	if id, err := a.authenticate(r); err == nil {
		userID := id.UserID
		entry.OwnerUserID = &userID
		entry.OwnerAlias = id.Alias()
	} else if !errors.Is(err, errNoCredential) {
		writeError(w, r, http.StatusUnauthorized, "invalid token")
		return
	}

	featureMap := a.opts.Extractor.Extract(rawURL)
	entry.Features = featureMap
	entry.ModelVersion = a.opts.Models.Version()

	model := a.opts.Models.Active()
	if model == nil {
		entry.Prediction = classifier.OutcomeNoModel
		entry.Probability = -1
		logID := a.logPrediction(r, entry)
		obs.ObservePrediction("no_model")
		writeJSON(w, http.StatusOK, map[string]any{
			"prediction":    classifier.Label(classifier.OutcomeNoModel),
			"probability":   nil,
			"features":      featureMap,
			"model_version": entry.ModelVersion,
			"log_id":        logID,
			"message":       "no model loaded; prediction unavailable",
		})
		return
	}

	result := model.Predict(featureMap)
	entry.Prediction = result.Prediction
	entry.Probability = result.Probability
	logID := a.logPrediction(r, entry)
	obs.ObservePrediction(result.Label)
	writeJSON(w, http.StatusOK, map[string]any{
		"prediction":    result.Label,
		"probability":   result.Probability,
		"features":      featureMap,
		"model_version": entry.ModelVersion,
		"log_id":        logID,
	})
}

// logPrediction inserts best-effort; a dead store never fails the request.
func (a *API) logPrediction(r *http.Request, entry *logstore.Entry) any {
	if err := a.opts.Logs.Insert(r.Context(), entry); err != nil {
		obs.Logger().Printf(`{"type":"warn","msg":"failed to log prediction","error":%q}`, err.Error())
		return nil
	}
	return entry.ID
}
