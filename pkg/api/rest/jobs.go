package rest

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/availops/orbitd/pkg/types"
)

// jobRequest is the body of a job submission. Args carries public values
// only; the dispatcher rejects anything credential-shaped.
type jobRequest struct {
	Args map[string]string `json:"args,omitempty"`
}

// handleJob maps POST /v1/rollups/{id}/jobs/{op} onto a transition
// request. The response status reflects the outcome; the body is always
// the full transition result.
func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	op, ok := types.ParseOperation(vars["op"])
	if !ok {
		s.writeError(w, types.NewValidationErrorf("unknown operation: %s", vars["op"]))
		return
	}

	var body jobRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
		s.writeError(w, types.NewValidationErrorf("invalid request body: %v", err))
		return
	}

	result := s.dispatcher.Submit(r.Context(), types.TransitionRequest{
		RollupID:  id,
		Operation: op,
		Args:      body.Args,
	})

	s.writeJSON(w, statusForResult(result), result)
}

func statusForResult(result types.TransitionResult) int {
	switch result.Outcome {
	case types.OutcomeSucceeded:
		return http.StatusOK
	case types.OutcomeFailed:
		return http.StatusInternalServerError
	default:
		switch result.ErrorKind {
		case "not-found":
			return http.StatusNotFound
		case "validation":
			return http.StatusBadRequest
		default:
			return http.StatusConflict
		}
	}
}
