package rest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/availops/orbitd/pkg/log"
	"github.com/availops/orbitd/pkg/types"
)

// statusResponse is the public view of a rollup record.
type statusResponse struct {
	ID          string             `json:"id"`
	State       types.RollupState  `json:"state"`
	Chain       types.ChainConfig  `json:"chain"`
	Metadata    types.Metadata     `json:"metadata"`
	Bridge      types.BridgeConfig `json:"bridge"`
	Health      types.HealthStatus `json:"health"`
	ContainerID string             `json:"containerId,omitempty"`
	UpdatedAt   string             `json:"updatedAt"`
}

type logsResponse struct {
	ID    string   `json:"id"`
	Lines []string `json:"lines"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func toStatusResponse(rollup types.Rollup) statusResponse {
	return statusResponse{
		ID:          rollup.ID,
		State:       rollup.State,
		Chain:       rollup.Chain,
		Metadata:    rollup.Metadata,
		Bridge:      rollup.Bridge,
		Health:      rollup.Health,
		ContainerID: rollup.ContainerID,
		UpdatedAt:   rollup.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rollup, err := s.registry.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toStatusResponse(rollup))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	rollups := s.registry.List()
	out := make([]statusResponse, 0, len(rollups))
	for _, rollup := range rollups {
		out = append(out, toStatusResponse(rollup))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handleLogs serves recent log lines. The default source is the
// orchestration event log held in the registry; source=node proxies the
// node container logs through the driver.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	tail := 100
	if v := r.URL.Query().Get("tail"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, types.NewValidationError("tail must be a non-negative integer"))
			return
		}
		tail = n
	}

	switch r.URL.Query().Get("source") {
	case "", "events":
		lines, err := s.registry.Logs(id, tail)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, logsResponse{ID: id, Lines: lines})
	case "node":
		rollup, err := s.registry.Get(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		lines, err := s.driver.Logs(r.Context(), &rollup, tail)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, logsResponse{ID: id, Lines: lines})
	default:
		s.writeError(w, types.NewValidationError("source must be events or node"))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	health, err := s.registry.Health(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, health)
}

// handleLiveness reports daemon liveness, not rollup health.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", log.Err(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case types.IsNotFound(err):
		status = http.StatusNotFound
	case types.IsValidationError(err):
		status = http.StatusBadRequest
	case types.IsInstanceBusy(err), types.IsInvalidStateTransition(err):
		status = http.StatusConflict
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error(), Kind: types.ErrorKind(err)})
}
