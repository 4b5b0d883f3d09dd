package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/owl-os/retina-console/pkg/forms"
	"github.com/owl-os/retina-console/pkg/logger"
	"github.com/owl-os/retina-console/pkg/settings"
)

// SettingsRoutes defines the routes for viewing and editing settings.
type SettingsRoutes struct {
	service *settings.Service
}

// SettingsRouter creates a new SettingsRoutes instance.
func SettingsRouter(service *settings.Service) http.Handler {
	routes := SettingsRoutes{service: service}
	r := chi.NewRouter()
	r.Get("/", routes.getForm)
	r.Post("/", routes.apply)
	return r
}

type formResponse struct {
	Form *forms.Field `json:"form"`
}

func (s *SettingsRoutes) getForm(w http.ResponseWriter, r *http.Request) {
	form, err := s.service.FormView(r.Context())
	if err != nil {
		logger.Errorf("failed to build settings form: %v", err)
		http.Error(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}

	if err := json.NewEncoder(w).Encode(formResponse{Form: form}); err != nil {
		http.Error(w, "Failed to marshal settings form", http.StatusInternalServerError)
	}
}

func (s *SettingsRoutes) apply(w http.ResponseWriter, r *http.Request) {
	sub, err := readSubmission(r)
	if err != nil {
		http.Error(w, "Failed to parse submission", http.StatusBadRequest)
		return
	}

	result, err := s.service.Apply(r.Context(), sub)
	if err != nil {
		if errors.Is(err, settings.ErrApplyInFlight) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		logger.Errorf("failed to apply settings: %v", err)
		http.Error(w, "Failed to apply settings", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(statusForOutcome(result.Outcome))
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.Errorf("failed to marshal apply result: %v", err)
	}
}

// readSubmission accepts either a form-encoded POST (the console form) or a
// JSON object of path to value strings.
func readSubmission(r *http.Request) (forms.Submission, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		sub := forms.Submission{}
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			return nil, err
		}
		return sub, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	sub := make(forms.Submission, len(r.PostForm))
	for key, values := range r.PostForm {
		value := ""
		if len(values) > 0 {
			value = values[0]
		}
		sub[key] = value
	}
	return sub, nil
}

func statusForOutcome(outcome settings.Outcome) int {
	switch outcome {
	case settings.OutcomeApplied:
		return http.StatusOK
	case settings.OutcomeInvalid:
		return http.StatusBadRequest
	case settings.OutcomeSaveFailed:
		return http.StatusInternalServerError
	case settings.OutcomeApplyFailed:
		return http.StatusBadGateway
	case settings.OutcomeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
