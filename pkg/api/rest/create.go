package rest

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/availops/orbitd/pkg/types"
)

// createRequest registers a new rollup. All fields are public
// configuration; credentials are daemon-wide and never part of a record.
type createRequest struct {
	ID             string         `json:"id,omitempty"`
	ChainID        uint64         `json:"chainId"`
	ChainName      string         `json:"chainName,omitempty"`
	ParentChainRPC string         `json:"parentChainRpc"`
	AvailAppID     string         `json:"availAppId"`
	AvailRPC       string         `json:"availRpc,omitempty"`
	NodeImage      string         `json:"nodeImage,omitempty"`
	RPCPort        int            `json:"rpcPort,omitempty"`
	MetricsPort    int            `json:"metricsPort,omitempty"`
	WorkDir        string         `json:"workDir,omitempty"`
	Metadata       types.Metadata `json:"metadata,omitempty"`
}

// handleCreate registers a rollup record in the Uninitialized state. The
// node is not deployed here; a deploy job brings it up.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, types.NewValidationErrorf("invalid request body: %v", err))
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}

	rollup := &types.Rollup{
		ID:    id,
		State: types.RollupStateUninitialized,
		Chain: types.ChainConfig{
			ChainID:        req.ChainID,
			ChainName:      req.ChainName,
			ParentChainRPC: req.ParentChainRPC,
			AvailAppID:     req.AvailAppID,
			AvailRPC:       req.AvailRPC,
			NodeImage:      req.NodeImage,
			RPCPort:        req.RPCPort,
			MetricsPort:    req.MetricsPort,
			WorkDir:        req.WorkDir,
		},
		Metadata: req.Metadata,
	}

	if err := s.registry.Create(r.Context(), rollup); err != nil {
		s.writeError(w, err)
		return
	}

	created, err := s.registry.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toStatusResponse(created))
}
