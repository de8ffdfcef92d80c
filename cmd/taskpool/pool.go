package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/taskpool/codec"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the store schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.pool(cmd.Context())
			if err != nil {
				return err
			}
			if err := m.Store().Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s store migrated\n", a.cfg.Store.Driver)
			return nil
		},
	}
}

func newAddJobCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add-job <json|->",
		Short: "Add a job with a JSON payload",
		Long:  "Add a job. The payload is a JSON document, or - to read it from standard input.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := args[0]
			if raw == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				raw = string(b)
			}
			v, err := parsePayload(raw)
			if err != nil {
				return err
			}
			m, err := a.pool(cmd.Context())
			if err != nil {
				return err
			}
			jobID, err := m.AddJob(cmd.Context(), v)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, jobID)
			return nil
		},
	}
}

func newAddTaskCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add-task <job-id> [json...]",
		Short: "Add tasks to a job",
		Long:  "Add one task per JSON argument. Without payload arguments every non-empty line of standard input is a task.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			payloads := args[1:]
			if len(payloads) == 0 {
				sc := bufio.NewScanner(cmd.InOrStdin())
				for sc.Scan() {
					if line := strings.TrimSpace(sc.Text()); line != "" {
						payloads = append(payloads, line)
					}
				}
				if err := sc.Err(); err != nil {
					return err
				}
			}

			m, err := a.pool(cmd.Context())
			if err != nil {
				return err
			}
			for _, raw := range payloads {
				v, err := parsePayload(raw)
				if err != nil {
					return err
				}
				taskID, err := m.AddTask(cmd.Context(), jobID, v)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, taskID)
			}
			return nil
		},
	}
}

func newJobsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List jobs that are not deleted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.pool(cmd.Context())
			if err != nil {
				return err
			}
			jobs, err := m.ViewJobs(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tDATA")
			for _, j := range jobs {
				data := renderPayload(codec.NewPayload(j.Data, m.Codec()))
				fmt.Fprintf(tw, "%d\t%s\t%s\n", j.ID, j.CreatedAt.Format(time.RFC3339), data)
			}
			return tw.Flush()
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show task counts of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			m, err := a.pool(cmd.Context())
			if err != nil {
				return err
			}
			st, err := m.Stats(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "JOB\tPENDING\tRESERVED\tDONE\tFAILED\tTOTAL")
			fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\n", st.JobID, st.Pending, st.Reserved, st.Done, st.Failed, st.Total)
			return tw.Flush()
		},
	}
}

// parsePayload decodes a JSON argument so the manager can encode it with
// the configured codec.
func parsePayload(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("invalid JSON payload %q: %w", raw, err)
	}
	return v, nil
}

// renderPayload shows a payload as JSON whatever codec stored it.
func renderPayload(p codec.Payload) string {
	var v any
	if err := p.Decode(&v); err != nil {
		return fmt.Sprintf("<%d bytes>", len(p.Bytes()))
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<%d bytes>", len(p.Bytes()))
	}
	return string(b)
}

func parseJobID(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid job id %q", s)
	}
	return n, nil
}
