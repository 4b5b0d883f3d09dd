package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/owl-os/retina-console/pkg/logger"
	"github.com/owl-os/retina-console/pkg/sshkeys"
)

// SSHKeyRoutes defines the routes for managing authorized SSH keys.
type SSHKeyRoutes struct {
	manager *sshkeys.Manager
}

// SSHKeysRouter creates a new SSHKeyRoutes instance.
func SSHKeysRouter(manager *sshkeys.Manager) http.Handler {
	routes := SSHKeyRoutes{manager: manager}
	r := chi.NewRouter()
	r.Get("/", routes.listKeys)
	r.Post("/", routes.addKey)
	r.Delete("/", routes.removeKey)
	return r
}

type keyListResponse struct {
	Keys []string `json:"keys"`
}

type keyRequest struct {
	Key string `json:"key"`
}

func (s *SSHKeyRoutes) listKeys(w http.ResponseWriter, _ *http.Request) {
	keys, err := s.manager.List()
	if err != nil {
		logger.Errorf("failed to list SSH keys: %v", err)
		http.Error(w, "Failed to list SSH keys", http.StatusInternalServerError)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	if err := json.NewEncoder(w).Encode(keyListResponse{Keys: keys}); err != nil {
		http.Error(w, "Failed to marshal key list", http.StatusInternalServerError)
	}
}

func (s *SSHKeyRoutes) addKey(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Failed to parse request", http.StatusBadRequest)
		return
	}

	if err := s.manager.Add(req.Key); err != nil {
		if errors.Is(err, sshkeys.ErrInvalidKey) {
			http.Error(w, "Invalid SSH key format", http.StatusBadRequest)
			return
		}
		logger.Errorf("failed to add SSH key: %v", err)
		http.Error(w, "Failed to add SSH key", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *SSHKeyRoutes) removeKey(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Failed to parse request", http.StatusBadRequest)
		return
	}

	if err := s.manager.Remove(req.Key); err != nil {
		logger.Errorf("failed to remove SSH key: %v", err)
		http.Error(w, "Failed to remove SSH key", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
