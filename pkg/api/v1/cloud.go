package v1

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/owl-os/retina-console/pkg/logger"
	"github.com/owl-os/retina-console/pkg/systemd"
)

// CloudRoutes defines the routes for the cloud connectivity toggle.
type CloudRoutes struct {
	toggle systemd.Toggle
}

// CloudRouter creates a new CloudRoutes instance.
func CloudRouter(toggle systemd.Toggle) http.Handler {
	routes := CloudRoutes{toggle: toggle}
	r := chi.NewRouter()
	r.Get("/", routes.getStatus)
	r.Put("/", routes.setEnabled)
	return r
}

type cloudStatus struct {
	Enabled bool `json:"enabled"`
}

func (c *CloudRoutes) getStatus(w http.ResponseWriter, r *http.Request) {
	enabled, err := c.toggle.Status(r.Context())
	if err != nil {
		logger.Errorf("failed to query cloud service: %v", err)
		http.Error(w, "Failed to query cloud service", http.StatusInternalServerError)
		return
	}
	if err := json.NewEncoder(w).Encode(cloudStatus{Enabled: enabled}); err != nil {
		http.Error(w, "Failed to marshal cloud status", http.StatusInternalServerError)
	}
}

func (c *CloudRoutes) setEnabled(w http.ResponseWriter, r *http.Request) {
	var req cloudStatus
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Failed to parse request", http.StatusBadRequest)
		return
	}

	if err := c.toggle.SetEnabled(r.Context(), req.Enabled); err != nil {
		logger.Errorf("failed to toggle cloud service: %v", err)
		http.Error(w, "Failed to toggle cloud service", http.StatusInternalServerError)
		return
	}
	if err := json.NewEncoder(w).Encode(cloudStatus{Enabled: req.Enabled}); err != nil {
		http.Error(w, "Failed to marshal cloud status", http.StatusInternalServerError)
	}
}
