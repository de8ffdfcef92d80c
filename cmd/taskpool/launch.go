package main

import (
	"context"
	"errors"
	"fmt"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/xraph/taskpool/broker"
	"github.com/xraph/taskpool/launcher"
	"github.com/xraph/taskpool/launcher/k8s"
	"github.com/xraph/taskpool/launcher/local"
	"github.com/xraph/taskpool/launcher/process"
)

// waiter is implemented by launchers that can block until their workers
// exit.
type waiter interface {
	Wait() error
}

// newLauncher builds the launcher selected by mode. The local launcher runs
// workers through w in this process.
func (a *app) newLauncher(mode string, w *workerFlags) (launcher.Launcher, error) {
	switch mode {
	case "process":
		l, err := process.New(a.cfg.Launch.Command,
			process.WithLogger(a.logger),
			process.WithOutput(a.cfg.Launch.Output),
		)
		if err != nil {
			return nil, err
		}
		return l, nil

	case "local":
		run := func(ctx context.Context, args []string) error {
			_, err := a.work(ctx, w, args)
			return err
		}
		return local.New(run, local.WithLogger(a.logger)), nil

	case "k8s":
		if a.cfg.Launch.Image == "" {
			return nil, errors.New("k8s launcher: --image is required")
		}
		client, err := kubeClient()
		if err != nil {
			return nil, err
		}
		return k8s.New(client, a.cfg.Launch.Namespace, a.cfg.Launch.Image,
			k8s.WithLogger(a.logger),
			k8s.WithEnv(map[string]string{
				"TASKPOOL_DRIVER": a.cfg.Store.Driver,
				"TASKPOOL_DSN":    a.cfg.Store.DSN,
				"TASKPOOL_CODEC":  a.cfg.Codec,
				"TASKPOOL_WORKER": w.name,
			}),
		), nil

	default:
		return nil, fmt.Errorf("unknown launch mode %q", mode)
	}
}

func (a *app) newBroker(l launcher.Launcher) *broker.Broker {
	opts := []broker.Option{
		broker.WithLogger(a.logger),
		broker.WithExtensions(a.exts),
	}
	if a.cfg.Launch.Rate > 0 {
		opts = append(opts, broker.WithLaunchRate(a.cfg.Launch.Rate, a.cfg.Launch.Burst))
	}
	return broker.New(l, opts...)
}

// kubeClient uses the in-cluster config and falls back to the kubeconfig
// loading rules (KUBECONFIG, ~/.kube/config).
func kubeClient() (kubernetes.Interface, error) {
	cfg, err := rest.InClusterConfig()
	if errors.Is(err, rest.ErrNotInCluster) {
		rules := clientcmd.NewDefaultClientConfigLoadingRules()
		cfg, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("k8s launcher: load config: %w", err)
	}
	client, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("k8s launcher: %w", err)
	}
	return client, nil
}
