package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/checkin-kiosk-go/internal/metrics"
)

const sweepTimeout = 30 * time.Second

// Sweeper removes expired entries and reports how many were removed.
// chatsession.Store satisfies it.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// SweepJob evicts idle chat sessions on a fixed interval.
type SweepJob struct {
	sweeper  Sweeper
	interval time.Duration
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func NewSweepJob(sweeper Sweeper, interval time.Duration) *SweepJob {
	return &SweepJob{
		sweeper:  sweeper,
		interval: interval,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (j *SweepJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("chat session sweep started")
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (j *SweepJob) Stop() {
	j.stopOnce.Do(func() {
		close(j.done)
		<-j.stopped
		log.Info().Msg("chat session sweep stopped")
	})
}

func (j *SweepJob) run() {
	defer close(j.stopped)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.RunOnce()
		}
	}
}

// RunOnce performs a single sweep.
func (j *SweepJob) RunOnce() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	count, err := j.sweeper.Sweep(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to sweep chat sessions")
		return 0
	}
	if count > 0 {
		metrics.ChatSessionsEvicted.Add(float64(count))
		log.Info().Int64("count", count).Msg("evicted idle chat sessions")
	}
	return count
}
