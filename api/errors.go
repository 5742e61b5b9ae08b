package api

import (
	"errors"
	"net/http"

	"github.com/simon020286/pipegen"
	"github.com/simon020286/pipegen/config"
	"github.com/simon020286/pipegen/models"
	"github.com/simon020286/pipegen/project"
	"github.com/simon020286/pipegen/store"
)

// Error kinds reported in error bodies
const (
	KindConfig   = "config"
	KindTopology = "topology"
	KindRuntime  = "runtime"
	KindRequest  = "request"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Classify maps an error to its kind and HTTP status
func Classify(err error) (kind string, status int) {
	var ve *config.ValidationError
	switch {
	case models.IsTopologyError(err), errors.Is(err, models.ErrEmptyPipeline):
		return KindTopology, http.StatusUnprocessableEntity
	case models.IsConfigError(err), errors.As(err, &ve), errors.Is(err, store.ErrLocationRequired),
		errors.Is(err, store.ErrReplicationRole), errors.Is(err, store.ErrReplicationDestination),
		errors.Is(err, project.ErrComputeType):
		return KindConfig, http.StatusUnprocessableEntity
	case errors.Is(err, pipegen.ErrRuntimeResolution):
		return KindRuntime, http.StatusUnprocessableEntity
	}
	return KindRequest, http.StatusBadRequest
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	kind, status := Classify(err)
	s.logger.Debug("Request failed.", "kind", kind, "error", err)
	writeError(w, status, kind, err.Error())
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: message, Kind: kind})
}
