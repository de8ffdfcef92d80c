package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

type cli struct {
	t   *testing.T
	dsn string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	c := &cli{t: t, dsn: filepath.Join(t.TempDir(), "pool.db")}
	c.mustRun("", "migrate")
	return c
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--driver", "sqlite", "--dsn", c.dsn}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) mustRun(stdin string, args ...string) string {
	c.t.Helper()
	out, err := c.run(stdin, args...)
	if err != nil {
		c.t.Fatalf("taskpool %s: %v", strings.Join(args, " "), err)
	}
	return out
}

// statusCounts returns the PENDING to TOTAL columns of the status table.
func (c *cli) statusCounts(jobID string) string {
	c.t.Helper()
	lines := strings.Split(strings.TrimSpace(c.mustRun("", "status", jobID)), "\n")
	if len(lines) != 2 {
		c.t.Fatalf("status output: %q", lines)
	}
	return strings.Join(strings.Fields(lines[1])[1:], " ")
}

func TestPoolLifecycle(t *testing.T) {
	c := newCLI(t)

	if got := strings.TrimSpace(c.mustRun("", "add-job", `{"name":"resize"}`)); got != "1" {
		t.Fatalf("add-job: expected job 1, got %q", got)
	}
	if got := c.mustRun("", "add-task", "1", `{"n":1}`, `{"n":2}`, `{"n":3}`); got != "1\n2\n3\n" {
		t.Fatalf("add-task: got %q", got)
	}
	if got := c.mustRun("{\"n\":4}\n\n{\"n\":5}\n", "add-task", "1"); got != "4\n5\n" {
		t.Fatalf("add-task from stdin: got %q", got)
	}

	jobs := c.mustRun("", "jobs")
	if !strings.Contains(jobs, `{"name":"resize"}`) {
		t.Errorf("jobs: payload missing from %q", jobs)
	}

	if got := c.statusCounts("1"); got != "5 0 0 0 5" {
		t.Errorf("status after adding: got %q", got)
	}

	out := c.mustRun("", "work", "1", "2")
	if !strings.Contains(out, "collected 2, done 2, failed 0") {
		t.Errorf("work: got %q", out)
	}
	if got := c.statusCounts("1"); got != "3 0 2 0 5" {
		t.Errorf("status after work: got %q", got)
	}
}

func TestDispatchLocal(t *testing.T) {
	c := newCLI(t)
	c.mustRun("", "add-job", `{}`)
	for i := 0; i < 5; i++ {
		c.mustRun("", "add-task", "1", `{}`)
	}

	out := c.mustRun("", "dispatch", "--parts", "2", "--local", "1", "5")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 launches, got %q", out)
	}
	for i, want := range []string{"3", "2"} {
		if share := strings.Fields(lines[i])[1]; share != want {
			t.Errorf("launch %d: expected share %s, got %s", i, want, share)
		}
	}

	if got := c.statusCounts("1"); got != "0 0 5 0 5" {
		t.Errorf("status after dispatch: got %q", got)
	}
}

func TestDispatchAllLocal(t *testing.T) {
	c := newCLI(t)
	c.mustRun("", "add-job", `{}`)
	c.mustRun("", "add-task", "1", `1`, `2`, `3`, `4`)

	c.mustRun("", "dispatch", "--parts", "3", "--local", "1", "-1")
	if got := c.statusCounts("1"); got != "0 0 4 0 4" {
		t.Errorf("status after dispatching all: got %q", got)
	}
}

func TestErrors(t *testing.T) {
	c := newCLI(t)
	c.mustRun("", "add-job", `{}`)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"UnknownJobTask", []string{"add-task", "99", `{}`}, "job not found"},
		{"UnknownJobStatus", []string{"status", "99"}, "job not found"},
		{"InvalidJobID", []string{"status", "abc"}, "invalid job id"},
		{"InvalidPayload", []string{"add-job", "{"}, "invalid JSON payload"},
		{"InvalidCount", []string{"work", "1", "-3"}, "invalid task count"},
		{"UnknownWorker", []string{"work", "--worker", "nope", "1", "1"}, "unknown worker"},
		{"UnknownDriver", []string{"--driver", "cassandra", "jobs"}, "unknown store driver"},
		{"UnknownLaunchMode", []string{"dispatch", "--launch-mode", "carrier-pigeon", "1", "1"}, "unknown launch mode"},
		{"InvalidLogLevel", []string{"--log-level", "loud", "jobs"}, "invalid --log-level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.run("", tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
