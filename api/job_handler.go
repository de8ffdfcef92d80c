package api

import (
	"net/http"
	"time"

	"github.com/xraph/taskpool/codec"
	"github.com/xraph/taskpool/job"
)

// JobResponse renders a job with its decoded payload.
type JobResponse struct {
	ID        int64     `json:"id"`
	Data      any       `json:"data"`
	Deleted   bool      `json:"deleted,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AddJobRequest is the body of POST /v1/jobs.
type AddJobRequest struct {
	Data any `json:"data"`
}

// AddJobResponse is the reply of POST /v1/jobs.
type AddJobResponse struct {
	ID int64 `json:"id"`
}

// AddTasksRequest is the body of POST /v1/jobs/{id}/tasks.
type AddTasksRequest struct {
	Tasks []any `json:"tasks"`
}

// AddTasksResponse is the reply of POST /v1/jobs/{id}/tasks.
type AddTasksResponse struct {
	IDs []int64 `json:"ids"`
}

func (a *API) render(j *job.Job) (JobResponse, error) {
	var data any
	if err := codec.NewPayload(j.Data, a.mgr.Codec()).Decode(&data); err != nil {
		return JobResponse{}, err
	}
	return JobResponse{ID: j.ID, Data: data, Deleted: j.Deleted, CreatedAt: j.CreatedAt}, nil
}

func (a *API) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.mgr.ViewJobs(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	out := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		resp, err := a.render(j)
		if err != nil {
			a.writeError(w, err)
			return
		}
		out = append(out, resp)
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *API) addJob(w http.ResponseWriter, r *http.Request) {
	var req AddJobRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	jobID, err := a.mgr.AddJob(r.Context(), req.Data)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, AddJobResponse{ID: jobID})
}

func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := jobIDParam(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	j, err := a.mgr.Store().GetJob(r.Context(), jobID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	resp, err := a.render(j)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, resp)
}

func (a *API) addTasks(w http.ResponseWriter, r *http.Request) {
	jobID, err := jobIDParam(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	var req AddTasksRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	if _, err := a.mgr.GetJob(r.Context(), jobID); err != nil {
		a.writeError(w, err)
		return
	}

	ids := make([]int64, 0, len(req.Tasks))
	for _, data := range req.Tasks {
		taskID, err := a.mgr.AddTask(r.Context(), jobID, data)
		if err != nil {
			a.writeError(w, err)
			return
		}
		ids = append(ids, taskID)
	}
	a.writeJSON(w, http.StatusCreated, AddTasksResponse{IDs: ids})
}

func (a *API) stats(w http.ResponseWriter, r *http.Request) {
	jobID, err := jobIDParam(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	st, err := a.mgr.Stats(r.Context(), jobID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, st)
}
