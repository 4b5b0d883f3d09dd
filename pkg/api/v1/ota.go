package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/owl-os/retina-console/pkg/logger"
	"github.com/owl-os/retina-console/pkg/mender"
	"github.com/owl-os/retina-console/pkg/pipeline"
)

// OTARoutes defines the routes for device-initiated OTA updates.
type OTARoutes struct {
	client *mender.Client
}

// OTARouter creates a new OTARoutes instance.
func OTARouter(client *mender.Client) http.Handler {
	routes := OTARoutes{client: client}
	r := chi.NewRouter()
	r.Get("/artifacts", routes.listArtifacts)
	r.Get("/versions", routes.getVersions)
	r.Post("/install", routes.installLatest)
	return r
}

type artifactListResponse struct {
	Artifacts []mender.Artifact `json:"artifacts"`
}

type installResponse struct {
	OperationID string `json:"operationId"`
	Artifact    string `json:"artifact"`
}

func (o *OTARoutes) listArtifacts(w http.ResponseWriter, r *http.Request) {
	artifacts, err := o.client.ListArtifacts(r.Context())
	if err != nil {
		if errors.Is(err, mender.ErrNotAuthenticated) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		logger.Errorf("failed to list artifacts: %v", err)
		http.Error(w, "Failed to list artifacts", http.StatusBadGateway)
		return
	}
	if artifacts == nil {
		artifacts = []mender.Artifact{}
	}
	if err := json.NewEncoder(w).Encode(artifactListResponse{Artifacts: artifacts}); err != nil {
		http.Error(w, "Failed to marshal artifact list", http.StatusInternalServerError)
	}
}

func (o *OTARoutes) getVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := o.client.Versions(r.Context())
	if err != nil {
		logger.Errorf("failed to read installed versions: %v", err)
		http.Error(w, "Failed to read installed versions", http.StatusInternalServerError)
		return
	}
	if err := json.NewEncoder(w).Encode(versions); err != nil {
		http.Error(w, "Failed to marshal versions", http.StatusInternalServerError)
	}
}

func (o *OTARoutes) installLatest(w http.ResponseWriter, r *http.Request) {
	opID := uuid.NewString()
	logger.Infow("starting OTA install", "operation_id", opID)

	artifact, err := o.client.InstallLatest(r.Context())
	switch {
	case err == nil:
	case errors.Is(err, mender.ErrInstallInFlight):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, mender.ErrNotAuthenticated):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case errors.Is(err, pipeline.ErrTimeout):
		logger.Errorw("OTA install timed out", "operation_id", opID, "error", err)
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
		return
	default:
		logger.Errorw("OTA install failed", "operation_id", opID, "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	logger.Infow("OTA install finished", "operation_id", opID, "artifact", artifact.Name)
	if err := json.NewEncoder(w).Encode(installResponse{OperationID: opID, Artifact: artifact.Name}); err != nil {
		http.Error(w, "Failed to marshal install result", http.StatusInternalServerError)
	}
}
