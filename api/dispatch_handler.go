package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/cron"
)

// DispatchRequest is the body of POST /v1/jobs/{id}/dispatch. Count -1
// dispatches all pending tasks; Parts defaults to one.
type DispatchRequest struct {
	Count *int `json:"count"`
	Parts int  `json:"parts"`
}

func (a *API) dispatch(w http.ResponseWriter, r *http.Request) {
	if a.broker == nil {
		a.writeError(w, fmt.Errorf("dispatch: %w", errUnavailable))
		return
	}
	jobID, err := jobIDParam(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	var req DispatchRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, err)
		return
	}

	count := taskpool.All()
	if req.Count != nil {
		if count, err = taskpool.ParseCount(*req.Count); err != nil {
			a.writeError(w, err)
			return
		}
	}
	parts := req.Parts
	if parts == 0 {
		parts = 1
	}
	if _, err := a.mgr.GetJob(r.Context(), jobID); err != nil {
		a.writeError(w, err)
		return
	}

	d, err := a.broker.Execute(r.Context(), jobID, count, parts)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusAccepted, d)
}

func (a *API) listSchedules(w http.ResponseWriter, _ *http.Request) {
	if a.scheduler == nil {
		a.writeJSON(w, http.StatusOK, []*cron.Entry{})
		return
	}
	a.writeJSON(w, http.StatusOK, a.scheduler.Entries())
}
