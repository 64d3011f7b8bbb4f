package runtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/nif-runtime/errors"
)

// scheduler is a fixed pool of goroutines running dirty calls.
type scheduler struct {
	log     *zap.Logger
	jobs    chan func()
	quit    chan struct{}
	name    string
	wg      sync.WaitGroup
	workers int
	once    sync.Once
}

func newScheduler(name string, workers int, log *zap.Logger) *scheduler {
	s := &scheduler{
		log:     log.With(zap.String("scheduler", name)),
		jobs:    make(chan func()),
		quit:    make(chan struct{}),
		name:    name,
		workers: workers,
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.work()
	}
	return s
}

func (s *scheduler) work() {
	defer s.wg.Done()
	for {
		select {
		case fn := <-s.jobs:
			fn()
		case <-s.quit:
			return
		}
	}
}

// run executes fn on a worker and waits for it. ctx bounds only the wait
// for a free worker; once started fn runs to completion. Without workers
// fn runs on the calling goroutine.
func (s *scheduler) run(ctx context.Context, fn func()) error {
	if s.workers == 0 {
		fn()
		return nil
	}

	done := make(chan struct{})
	job := func() {
		defer close(done)
		fn()
	}
	select {
	case s.jobs <- job:
	case <-ctx.Done():
		s.log.Debug("gave up waiting for a worker", zap.Error(ctx.Err()))
		return errors.Wrap(errors.PhaseDispatch, errors.KindLimit, ctx.Err(), "no "+s.name+" worker available")
	case <-s.quit:
		return errors.NotInitialized(errors.PhaseDispatch, s.name+" scheduler")
	}
	<-done
	return nil
}

func (s *scheduler) stop() {
	s.once.Do(func() {
		close(s.quit)
		s.wg.Wait()
	})
}
