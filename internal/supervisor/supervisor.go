package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Runner is one long-lived task.
type Runner struct {
	Name string
	Run  func(ctx context.Context) error
}

// Supervisor runs tasks together. The first failure stops the rest.
type Supervisor struct {
	Logger *zap.Logger
}

// Run starts every runner and waits until ctx is done or one of them fails.
// A runner returning nil before ctx is done also stops the group.
func (s Supervisor) Run(ctx context.Context, runners []Runner) error {
	if len(runners) == 0 {
		return errors.New("no runners")
	}
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg    sync.WaitGroup
		once  sync.Once
		first error
	)
	for _, runner := range runners {
		wg.Add(1)
		go func(r Runner) {
			defer wg.Done()
			rlog := log.With(zap.String("runner", r.Name))
			rlog.Info("starting")
			err := r.Run(ctx)
			if err != nil {
				rlog.Error("runner exited", zap.Error(err))
				once.Do(func() { first = fmt.Errorf("%s: %w", r.Name, err) })
			} else {
				rlog.Info("runner stopped")
			}
			cancel()
		}(runner)
	}

	wg.Wait()
	return first
}
