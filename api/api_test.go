package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/api"
	"github.com/xraph/taskpool/broker"
	"github.com/xraph/taskpool/launcher"
	"github.com/xraph/taskpool/manager"
	"github.com/xraph/taskpool/store/memory"
	"github.com/xraph/taskpool/task"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type launchSpy struct {
	mu   sync.Mutex
	args []string
}

func (l *launchSpy) Launch(_ context.Context, args ...string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.args = append(l.args, strings.Join(args, " "))
	return "pid", nil
}

var _ launcher.Launcher = (*launchSpy)(nil)

func setupServer(t *testing.T) (*httptest.Server, *manager.Manager, *launchSpy) {
	t.Helper()
	mgr := manager.New(memory.New(), manager.WithLogger(testLogger()))
	spy := &launchSpy{}
	a := api.New(mgr,
		api.WithLogger(testLogger()),
		api.WithBroker(broker.New(spy, broker.WithLogger(testLogger()))),
		api.WithWatchInterval(10*time.Millisecond),
	)
	ts := httptest.NewServer(a.Handler())
	t.Cleanup(ts.Close)
	return ts, mgr, spy
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func TestJobLifecycle(t *testing.T) {
	ts, _, _ := setupServer(t)

	resp, body := do(t, http.MethodPost, ts.URL+"/v1/jobs", `{"data":{"name":"batch1"}}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add job: %d %s", resp.StatusCode, body)
	}
	var added api.AddJobResponse
	if err := json.Unmarshal(body, &added); err != nil {
		t.Fatalf("decode: %v", err)
	}

	jobURL := ts.URL + "/v1/jobs/" + itoa(added.ID)
	resp, body = do(t, http.MethodPost, jobURL+"/tasks", `{"tasks":[1,2,3]}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add tasks: %d %s", resp.StatusCode, body)
	}
	var tasks api.AddTasksResponse
	if err := json.Unmarshal(body, &tasks); err != nil || len(tasks.IDs) != 3 {
		t.Fatalf("tasks = %s (%v)", body, err)
	}

	resp, body = do(t, http.MethodGet, jobURL, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get job: %d %s", resp.StatusCode, body)
	}
	var got api.JobResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m, ok := got.Data.(map[string]any); !ok || m["name"] != "batch1" {
		t.Errorf("job data = %#v", got.Data)
	}

	resp, body = do(t, http.MethodGet, ts.URL+"/v1/jobs", "")
	var list []api.JobResponse
	if err := json.Unmarshal(body, &list); err != nil || resp.StatusCode != http.StatusOK || len(list) != 1 {
		t.Fatalf("list jobs: %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodGet, jobURL+"/stats", "")
	var st task.Stats
	if err := json.Unmarshal(body, &st); err != nil || st.Pending != 3 || st.Total != 3 {
		t.Fatalf("stats: %d %s", resp.StatusCode, body)
	}
}

func TestErrors(t *testing.T) {
	ts, _, _ := setupServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown job", http.MethodGet, "/v1/jobs/99", "", http.StatusNotFound},
		{"bad id", http.MethodGet, "/v1/jobs/abc", "", http.StatusBadRequest},
		{"stats unknown job", http.MethodGet, "/v1/jobs/99/stats", "", http.StatusNotFound},
		{"tasks unknown job", http.MethodPost, "/v1/jobs/99/tasks", `{"tasks":[1]}`, http.StatusNotFound},
		{"bad body", http.MethodPost, "/v1/jobs", `{"nope":1}`, http.StatusBadRequest},
		{"dispatch unknown job", http.MethodPost, "/v1/jobs/99/dispatch", `{"count":2,"parts":1}`, http.StatusNotFound},
		{"watch unknown job", http.MethodGet, "/v1/jobs/99/watch", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, tt.method, ts.URL+tt.path, tt.body)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, tt.want, body)
			}
			var e api.ErrorResponse
			if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
				t.Errorf("expected error body, got %s", body)
			}
		})
	}
}

func TestDispatch(t *testing.T) {
	ts, mgr, spy := setupServer(t)
	ctx := context.Background()
	jobID, err := mgr.AddJob(ctx, "job")
	if err != nil {
		t.Fatalf("add job: %v", err)
	}

	url := ts.URL + "/v1/jobs/" + itoa(jobID) + "/dispatch"
	resp, body := do(t, http.MethodPost, url, `{"count":5,"parts":2}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("dispatch: %d %s", resp.StatusCode, body)
	}
	var d broker.Dispatch
	if err := json.Unmarshal(body, &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(d.Launches) != 2 || d.Launches[0].Share != taskpool.Limit(3) {
		t.Errorf("dispatch = %+v", d)
	}
	if len(spy.args) != 2 || spy.args[0] != itoa(jobID)+" 3" {
		t.Errorf("launch args = %v", spy.args)
	}

	resp, body = do(t, http.MethodPost, url, `{"count":-7}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid count: %d %s", resp.StatusCode, body)
	}
}

func TestDispatchWithoutBroker(t *testing.T) {
	mgr := manager.New(memory.New())
	ts := httptest.NewServer(api.New(mgr, api.WithLogger(testLogger())).Handler())
	defer ts.Close()

	resp, _ := do(t, http.MethodPost, ts.URL+"/v1/jobs/1/dispatch", `{}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestWatchFeed(t *testing.T) {
	ts, mgr, _ := setupServer(t)
	ctx := context.Background()
	jobID, _ := mgr.AddJob(ctx, "job")
	for i := 0; i < 2; i++ {
		if _, err := mgr.AddTask(ctx, jobID, i); err != nil {
			t.Fatalf("add task: %v", err)
		}
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/jobs/" + itoa(jobID) + "/watch"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var first task.Stats
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read: %v", err)
	}
	if first.Pending != 2 {
		t.Fatalf("first snapshot = %+v", first)
	}

	tasks, err := mgr.CollectTasks(ctx, jobID, taskpool.All())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	for _, tk := range tasks {
		if err := mgr.CloseReserved(ctx, tk, ""); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var last task.Stats
	for {
		var st task.Stats
		if err := conn.ReadJSON(&st); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("expected normal closure, got %v", err)
			}
			break
		}
		last = st
	}
	if last.Done != 2 || last.Open() != 0 {
		t.Errorf("last snapshot = %+v", last)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
