package lifecycle

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
)

type job struct {
	name string
	run  func(context.Context) error
}

// Manager runs a set of long-lived jobs until the first failure, a signal
// or parent cancellation, then runs shutdown jobs in registration order.
type Manager struct {
	mu           sync.Mutex
	runJobs      []job
	shutdownJobs []job
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) AddRun(name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.runJobs = append(m.runJobs, job{name: name, run: fn})
	m.mu.Unlock()
}

func (m *Manager) AddShutdown(name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.shutdownJobs = append(m.shutdownJobs, job{name: name, run: fn})
	m.mu.Unlock()
}

// StartAndWait blocks until every run job returns, one of them fails, or
// the context is cancelled (directly or by one of the listed signals).
// Shutdown jobs always run; their errors are joined with the run error.
func (m *Manager) StartAndWait(parent context.Context, sig ...os.Signal) error {
	ctx := parent
	stopSignal := func() {}
	if len(sig) > 0 {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(parent, sig...)
		stopSignal = stop
	}
	defer stopSignal()

	runCtx, cancelRuns := context.WithCancel(ctx)
	defer cancelRuns()

	runJobs := m.snapshot(&m.runJobs)
	shutdownJobs := m.snapshot(&m.shutdownJobs)

	errCh := make(chan error, len(runJobs))
	var wg sync.WaitGroup
	for _, j := range runJobs {
		j := j
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := j.run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
				cancelRuns()
			}
		}()
	}

	doneCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		cancelRuns()
	case err := <-errCh:
		runErr = err
		cancelRuns()
	case <-doneCh:
	}

	<-doneCh

	var shutdownErr error
	for _, j := range shutdownJobs {
		if err := j.run(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
			shutdownErr = errors.Join(shutdownErr, err)
		}
	}
	return errors.Join(runErr, shutdownErr)
}

func (m *Manager) snapshot(jobs *[]job) []job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]job, len(*jobs))
	copy(out, *jobs)
	return out
}
