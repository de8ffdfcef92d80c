// Package k8s launches workers as Kubernetes batch/v1 Jobs.
//
// Every launch creates one Job with a single container running the worker
// image. The launch arguments are appended to the container args, so a
// worker image whose entrypoint is the taskpool binary receives
// "work <job-id> <count>".
package k8s

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/xraph/taskpool/launcher"
)

var _ launcher.Launcher = (*Launcher)(nil)

const (
	defaultNamePrefix = "taskpool-worker"
	defaultTTLSeconds = int32(3600)

	// ComponentLabel marks every Job created by the launcher.
	ComponentLabel = "app.kubernetes.io/component"
	componentValue = "taskpool-worker"
)

// Launcher implements launcher.Launcher on the batch/v1 Job API.
type Launcher struct {
	client         kubernetes.Interface
	namespace      string
	image          string
	command        []string
	args           []string
	labels         map[string]string
	env            map[string]string
	serviceAccount string
	ttlSeconds     int32
	namePrefix     string
	logger         *slog.Logger
}

// New creates a Kubernetes launcher creating Jobs from image in namespace.
func New(client kubernetes.Interface, namespace, image string, opts ...Option) *Launcher {
	l := &Launcher{
		client:     client,
		namespace:  namespace,
		image:      image,
		args:       []string{"work"},
		labels:     map[string]string{ComponentLabel: componentValue},
		env:        make(map[string]string),
		ttlSeconds: defaultTTLSeconds,
		namePrefix: defaultNamePrefix,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Launch creates one Job and returns its name. It does not wait for the Pod
// to be scheduled.
func (l *Launcher) Launch(ctx context.Context, args ...string) (string, error) {
	j := l.jobFor(args)
	created, err := l.client.BatchV1().Jobs(l.namespace).Create(ctx, j, metav1.CreateOptions{})
	if err != nil {
		return "", fmt.Errorf("k8s: create job: %w", err)
	}
	l.logger.Debug("worker job created",
		slog.String("namespace", l.namespace),
		slog.String("job", created.Name),
	)
	return created.Name, nil
}

func (l *Launcher) jobFor(args []string) *batchv1.Job {
	backoffLimit := int32(0)
	containerArgs := make([]string, 0, len(l.args)+len(args))
	containerArgs = append(containerArgs, l.args...)
	containerArgs = append(containerArgs, args...)

	labels := make(map[string]string, len(l.labels))
	for k, v := range l.labels {
		labels[k] = v
	}

	j := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      l.jobName(args),
			Namespace: l.namespace,
			Labels:    labels,
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: &backoffLimit,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					RestartPolicy:      corev1.RestartPolicyNever,
					ServiceAccountName: l.serviceAccount,
					Containers: []corev1.Container{{
						Name:    "worker",
						Image:   l.image,
						Command: l.command,
						Args:    containerArgs,
						Env:     l.envVars(),
					}},
				},
			},
		},
	}
	if l.ttlSeconds >= 0 {
		ttl := l.ttlSeconds
		j.Spec.TTLSecondsAfterFinished = &ttl
	}
	return j
}

// jobName builds a DNS-1123 name from the prefix, the first launch
// argument (the job id) and a random suffix.
func (l *Launcher) jobName(args []string) string {
	parts := []string{l.namePrefix}
	if len(args) > 0 {
		parts = append(parts, sanitize(args[0]))
	}
	parts = append(parts, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	name := strings.Join(parts, "-")
	if len(name) > 63 {
		name = strings.TrimRight(name[:63], "-")
	}
	return name
}

func (l *Launcher) envVars() []corev1.EnvVar {
	if len(l.env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(l.env))
	for k := range l.env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vars := make([]corev1.EnvVar, 0, len(keys))
	for _, k := range keys {
		vars = append(vars, corev1.EnvVar{Name: k, Value: l.env[k]})
	}
	return vars
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('x')
		}
	}
	return b.String()
}
