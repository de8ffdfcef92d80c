package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/taskpool"
	"github.com/xraph/taskpool/api"
	"github.com/xraph/taskpool/broker"
	"github.com/xraph/taskpool/client"
	"github.com/xraph/taskpool/cron"
	"github.com/xraph/taskpool/id"
)

func newDispatchCmd(a *app) *cobra.Command {
	var (
		parts   int
		inline  bool
		workers = &workerFlags{}
	)
	cmd := &cobra.Command{
		Use:   "dispatch <job-id> <count>",
		Short: "Split count tasks of a job over background workers",
		Long: "Partition count (-1 for all pending tasks) into --parts shares and start one " +
			"background worker per non-empty share. Flags go before the arguments. With --local the workers run in this " +
			"process and the command waits for them.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			jobID, count, err := parseDispatchArgs(args)
			if err != nil {
				return err
			}
			m, err := a.pool(ctx)
			if err != nil {
				return err
			}
			if _, err := m.GetJob(ctx, jobID); err != nil {
				return err
			}

			mode := a.cfg.Launch.Mode
			if inline {
				mode = "local"
			}
			l, err := a.newLauncher(mode, workers)
			if err != nil {
				return err
			}
			d, err := a.newBroker(l).Execute(ctx, jobID, count, parts)
			for _, launch := range d.Launches {
				fmt.Fprintf(a.out, "%s\t%s\t%s\n", d.ID, launch.Share, launch.Handle)
			}
			if err != nil {
				return err
			}
			if w, ok := l.(waiter); ok && mode == "local" {
				return w.Wait()
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&parts, "parts", 1, "number of workers")
	cmd.Flags().BoolVar(&inline, "local", false, "run the workers in this process and wait for them")
	cmd.Flags().SetInterspersed(false)
	workers.bind(cmd)
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var (
		addr    string
		workers = &workerFlags{}
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and the status feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			m, err := a.pool(ctx)
			if err != nil {
				return err
			}
			l, err := a.newLauncher(a.cfg.Launch.Mode, workers)
			if err != nil {
				return err
			}
			b := a.newBroker(l)
			sched := a.newScheduler(b)
			if err := sched.Start(ctx); err != nil {
				return err
			}

			srv := &http.Server{
				Addr: addr,
				Handler: api.New(m,
					api.WithLogger(a.logger),
					api.WithBroker(b),
					api.WithScheduler(sched),
					api.WithWatchInterval(a.cfg.WatchInterval),
				).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			a.logger.Info("taskpool serving",
				slog.String("addr", addr),
				slog.String("driver", a.cfg.Store.Driver),
			)

			select {
			case err := <-errCh:
				_ = sched.Stop(context.Background())
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
			defer cancel()
			err = errors.Join(
				srv.Shutdown(shutdownCtx),
				sched.Stop(shutdownCtx),
			)
			if w, ok := l.(waiter); ok {
				err = errors.Join(err, w.Wait())
			}
			a.exts.EmitShutdown(shutdownCtx)
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", envString("TASKPOOL_ADDR", ":8080"), "listen address")
	workers.bind(cmd)
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var server string
	cmd := &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Follow the task counts of a job until it is finished",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			c := client.New(server, client.WithLogger(a.logger))
			feed, err := c.Watch(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			for st := range feed {
				fmt.Fprintf(a.out, "job %d: pending %d, reserved %d, done %d, failed %d\n",
					st.JobID, st.Pending, st.Reserved, st.Done, st.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", envString("TASKPOOL_SERVER", "http://localhost:8080"), "base URL of a taskpool server")
	return cmd
}

func newScheduleCmd(a *app) *cobra.Command {
	var (
		parts   int
		workers = &workerFlags{}
	)
	cmd := &cobra.Command{
		Use:   "schedule <name> <cron-expr> <job-id> <count>",
		Short: "Dispatch a job periodically until interrupted",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			jobID, count, err := parseDispatchArgs(args[2:])
			if err != nil {
				return err
			}
			if _, err := a.pool(ctx); err != nil {
				return err
			}
			l, err := a.newLauncher(a.cfg.Launch.Mode, workers)
			if err != nil {
				return err
			}
			sched := a.newScheduler(a.newBroker(l))
			entry, err := sched.Register(cron.Definition{
				Name:     args[0],
				Schedule: args[1],
				JobID:    jobID,
				Count:    count,
				Parts:    parts,
			})
			if err != nil {
				return err
			}
			if err := sched.Start(ctx); err != nil {
				return err
			}
			if entry.NextRunAt != nil {
				fmt.Fprintf(a.out, "%s: next run %s\n", entry.Name, entry.NextRunAt.Format(time.RFC3339))
			}

			<-ctx.Done()
			err = sched.Stop(context.Background())
			if w, ok := l.(waiter); ok {
				err = errors.Join(err, w.Wait())
			}
			return err
		},
	}
	cmd.Flags().IntVar(&parts, "parts", 1, "number of workers per run")
	cmd.Flags().SetInterspersed(false)
	workers.bind(cmd)
	return cmd
}

func (a *app) newScheduler(b *broker.Broker) *cron.Scheduler {
	dispatch := func(ctx context.Context, jobID int64, count taskpool.Count, parts int) (id.DispatchID, error) {
		d, err := b.Execute(ctx, jobID, count, parts)
		return d.ID, err
	}
	return cron.NewScheduler(dispatch,
		cron.WithLogger(a.logger),
		cron.WithEmitter(a.exts),
	)
}

func parseDispatchArgs(args []string) (int64, taskpool.Count, error) {
	jobID, err := parseJobID(args[0])
	if err != nil {
		return 0, taskpool.Count{}, err
	}
	count, err := taskpool.ParseCountString(args[1])
	if err != nil {
		return 0, taskpool.Count{}, err
	}
	return jobID, count, nil
}
