package sessiongate

import (
	"context"
	"sync"
	"time"
)

// sweeper runs Gate.SweepExpired on a fixed interval. Sweeping is pure
// maintenance: a missed or failed tick changes nothing for correctness, so
// errors are recorded through the gate's own audit/metrics paths and the
// ticker just keeps going.
type sweeper struct {
	gate      *Gate
	interval  time.Duration
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newSweeper(gate *Gate, interval time.Duration) *sweeper {
	s := &sweeper{
		gate:     gate,
		interval: interval,
		done:     make(chan struct{}),
	}

	s.wg.Add(1)
	go s.run()

	return s
}

func (s *sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.gate.SweepExpired(context.Background())
		case <-s.done:
			return
		}
	}
}

func (s *sweeper) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}
