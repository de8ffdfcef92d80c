// Package api exposes the pool over HTTP.
//
// Routes:
//
//	GET  /v1/jobs                  list jobs that are not deleted
//	POST /v1/jobs                  add a job             {"data": ...}
//	GET  /v1/jobs/{id}             get a job
//	POST /v1/jobs/{id}/tasks       add tasks             {"tasks": [...]}
//	GET  /v1/jobs/{id}/stats       task counts by state
//	POST /v1/jobs/{id}/dispatch    fan out workers       {"count": -1, "parts": 4}
//	GET  /v1/jobs/{id}/watch       websocket feed of task counts
//	GET  /v1/schedules             periodic dispatch entries
//
// Payloads are decoded with the manager's codec and rendered as JSON.
package api
