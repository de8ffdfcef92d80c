package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/task"
)

// reserveScript pops up to ARGV[2] IDs off the open set (all of them when
// ARGV[2] is negative), stamps each task with the signature and indexes it
// under the signature set.
//
// KEYS[1] open set, KEYS[2] signature set.
// ARGV[1] signature, ARGV[2] limit, ARGV[3] timestamp, ARGV[4] task key prefix.
var reserveScript = goredis.NewScript(`
local ids = {}
if tonumber(ARGV[2]) < 0 then
	ids = redis.call('ZRANGE', KEYS[1], 0, -1)
	redis.call('DEL', KEYS[1])
else
	local popped = redis.call('ZPOPMIN', KEYS[1], ARGV[2])
	for i = 1, #popped, 2 do
		ids[#ids + 1] = popped[i]
	end
end
for _, id in ipairs(ids) do
	redis.call('HSET', ARGV[4] .. id, 'signature', ARGV[1], 'updated_at', ARGV[3])
	redis.call('ZADD', KEYS[2], id, id)
end
return #ids
`)

// closeScript sets the status of one task. It returns 1 on success, -1
// when the task does not exist and -2 when ARGV[2] is set and the task
// does not carry that signature.
//
// KEYS[1] task hash.
// ARGV[1] status, ARGV[2] match, ARGV[3] timestamp, ARGV[4] key prefix,
// ARGV[5] task id.
var closeScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	if ARGV[2] ~= '' then
		return -2
	end
	return -1
end
if ARGV[2] ~= '' and redis.call('HGET', KEYS[1], 'signature') ~= ARGV[2] then
	return -2
end
local job = redis.call('HGET', KEYS[1], 'job_id')
redis.call('HSET', KEYS[1], 'status', ARGV[1], 'updated_at', ARGV[3])
redis.call('ZREM', ARGV[4] .. 'job:' .. job .. ':open', ARGV[5])
return 1
`)

// InsertTask stores a pending task and adds it to its job's open set.
func (s *Store) InsertTask(ctx context.Context, t *task.Task) (int64, error) {
	exists, err := s.client.Exists(ctx, jobKey(t.JobID)).Result()
	if err != nil {
		return 0, fmt.Errorf("taskpool/redis: insert task: check job: %w", err)
	}
	if exists == 0 {
		return 0, taskpool.ErrJobNotFound
	}

	taskID, err := s.client.Incr(ctx, taskSeqKey).Result()
	if err != nil {
		return 0, fmt.Errorf("taskpool/redis: insert task: next id: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	z := goredis.Z{Score: float64(taskID), Member: taskID}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, taskKey(taskID),
		"job_id", t.JobID,
		"data", t.Data,
		"status", string(task.StatusPending),
		"signature", "",
		"created_at", now,
		"updated_at", now,
	)
	pipe.ZAdd(ctx, jobTasksKey(t.JobID), z)
	pipe.ZAdd(ctx, openKey(t.JobID), z)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("taskpool/redis: insert task: %w", err)
	}

	t.ID = taskID
	return taskID, nil
}

// ReserveTasks runs the reservation script against the job's open set.
func (s *Store) ReserveTasks(ctx context.Context, jobID int64, sig task.Signature, count taskpool.Count) (int64, error) {
	n, err := reserveScript.Run(ctx, s.client,
		[]string{openKey(jobID), signatureKey(jobID, string(sig))},
		string(sig), count.Int(), time.Now().UTC().Format(time.RFC3339Nano), taskKeyPrefix,
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("taskpool/redis: reserve tasks: %w", err)
	}
	return n, nil
}

// TasksBySignature returns the tasks of jobID carrying sig, ordered by ID.
func (s *Store) TasksBySignature(ctx context.Context, jobID int64, sig task.Signature) ([]*task.Task, error) {
	ids, err := s.client.ZRange(ctx, signatureKey(jobID, string(sig)), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("taskpool/redis: tasks by signature: %w", err)
	}
	return s.loadTasks(ctx, ids)
}

// CloseTask runs the close script for one task.
func (s *Store) CloseTask(ctx context.Context, taskID int64, status task.Status, match task.Signature) error {
	res, err := closeScript.Run(ctx, s.client,
		[]string{taskKey(taskID)},
		string(status), string(match), time.Now().UTC().Format(time.RFC3339Nano), keyPrefix, taskID,
	).Int64()
	if err != nil {
		return fmt.Errorf("taskpool/redis: close task: %w", err)
	}
	switch res {
	case -1:
		return taskpool.ErrTaskNotFound
	case -2:
		return taskpool.ErrTaskNotReserved
	default:
		return nil
	}
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, taskID int64) (*task.Task, error) {
	vals, err := s.client.HGetAll(ctx, taskKey(taskID)).Result()
	if err != nil {
		return nil, fmt.Errorf("taskpool/redis: get task: %w", err)
	}
	if len(vals) == 0 {
		return nil, taskpool.ErrTaskNotFound
	}
	return taskFromMap(taskID, vals)
}

// TaskStats reads the status and signature of every task of jobID in one
// pipeline and counts them.
func (s *Store) TaskStats(ctx context.Context, jobID int64) (task.Stats, error) {
	ids, err := s.client.ZRange(ctx, jobTasksKey(jobID), 0, -1).Result()
	if err != nil {
		return task.Stats{}, fmt.Errorf("taskpool/redis: task stats: %w", err)
	}

	st := task.Stats{JobID: jobID}
	if len(ids) == 0 {
		return st, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*goredis.SliceCmd, len(ids))
	for i, raw := range ids {
		cmds[i] = pipe.HMGet(ctx, taskKeyPrefix+raw, "status", "signature")
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return task.Stats{}, fmt.Errorf("taskpool/redis: task stats: %w", err)
	}

	for _, cmd := range cmds {
		vals := cmd.Val()
		status, _ := vals[0].(string)
		sig, _ := vals[1].(string)
		st.Total++
		switch {
		case status == string(task.StatusDone):
			st.Done++
		case status == string(task.StatusFailed):
			st.Failed++
		case sig == "":
			st.Pending++
		default:
			st.Reserved++
		}
	}
	return st, nil
}

func (s *Store) loadTasks(ctx context.Context, ids []string) ([]*task.Task, error) {
	tasks := make([]*task.Task, 0, len(ids))
	if len(ids) == 0 {
		return tasks, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*goredis.MapStringStringCmd, len(ids))
	for i, raw := range ids {
		cmds[i] = pipe.HGetAll(ctx, taskKeyPrefix+raw)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("taskpool/redis: load tasks: %w", err)
	}

	for i, cmd := range cmds {
		taskID, err := strconv.ParseInt(ids[i], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("taskpool/redis: bad task id %q: %w", ids[i], err)
		}
		t, err := taskFromMap(taskID, cmd.Val())
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func taskFromMap(taskID int64, m map[string]string) (*task.Task, error) {
	t := &task.Task{
		ID:        taskID,
		Data:      []byte(m["data"]),
		Status:    task.Status(m["status"]),
		Signature: task.Signature(m["signature"]),
	}
	var err error
	if t.JobID, err = strconv.ParseInt(m["job_id"], 10, 64); err != nil {
		return nil, fmt.Errorf("taskpool/redis: task %d: job_id: %w", taskID, err)
	}
	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, m["created_at"]); err != nil {
		return nil, fmt.Errorf("taskpool/redis: task %d: created_at: %w", taskID, err)
	}
	if t.UpdatedAt, err = time.Parse(time.RFC3339Nano, m["updated_at"]); err != nil {
		return nil, fmt.Errorf("taskpool/redis: task %d: updated_at: %w", taskID, err)
	}
	return t, nil
}
