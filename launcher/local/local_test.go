package local_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/xraph/taskpool/launcher/local"
)

func TestLaunchRunsEveryShare(t *testing.T) {
	var mu sync.Mutex
	var got []string
	l := local.New(func(_ context.Context, args []string) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, strings.Join(args, " "))
		return nil
	})

	h1, _ := l.Launch(context.Background(), "1", "3")
	h2, _ := l.Launch(context.Background(), "1", "2")
	if h1 == h2 {
		t.Fatalf("handles should differ: %q", h1)
	}
	if err := l.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}

	sort.Strings(got)
	if len(got) != 2 || got[0] != "1 2" || got[1] != "1 3" {
		t.Errorf("runs = %v", got)
	}
}

func TestLaunchSurvivesCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ran := make(chan error, 1)
	release := make(chan struct{})

	l := local.New(func(ctx context.Context, _ []string) error {
		<-release
		ran <- ctx.Err()
		return nil
	})
	if _, err := l.Launch(ctx, "1", "1"); err != nil {
		t.Fatalf("launch: %v", err)
	}
	cancel()
	close(release)

	if err := l.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if err := <-ran; err != nil {
		t.Errorf("run context should not be cancelled, got %v", err)
	}
}

func TestWaitReturnsRunError(t *testing.T) {
	boom := errors.New("boom")
	l := local.New(func(context.Context, []string) error { return boom })

	if _, err := l.Launch(context.Background(), "1", "1"); err != nil {
		t.Fatalf("launch: %v", err)
	}
	if err := l.Wait(); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
