package redis

import "strconv"

// Redis key naming conventions for pool data.
// All keys are prefixed with "taskpool:" to avoid collisions.

const keyPrefix = "taskpool:"

// ── Job keys ──

// jobSeqKey is the counter that assigns job IDs.
const jobSeqKey = keyPrefix + "job_seq"

// jobIDsKey is the Sorted Set of all job IDs, scored by ID.
const jobIDsKey = keyPrefix + "job_ids"

// jobKey returns the Hash key for a job: taskpool:job:{id}
func jobKey(jobID int64) string { return keyPrefix + "job:" + strconv.FormatInt(jobID, 10) }

// openKey returns the Sorted Set of pending, unreserved task IDs of a job.
func openKey(jobID int64) string { return jobKey(jobID) + ":open" }

// jobTasksKey returns the Sorted Set of every task ID of a job.
func jobTasksKey(jobID int64) string { return jobKey(jobID) + ":tasks" }

// signatureKey returns the Sorted Set of task IDs stamped with sig.
func signatureKey(jobID int64, sig string) string { return jobKey(jobID) + ":sig:" + sig }

// ── Task keys ──

// taskSeqKey is the counter that assigns task IDs.
const taskSeqKey = keyPrefix + "task_seq"

// taskKeyPrefix prefixes task Hash keys; the scripts append the ID.
const taskKeyPrefix = keyPrefix + "task:"

// taskKey returns the Hash key for a task: taskpool:task:{id}
func taskKey(taskID int64) string { return taskKeyPrefix + strconv.FormatInt(taskID, 10) }
