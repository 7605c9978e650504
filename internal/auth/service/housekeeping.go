package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// JobFunc performs one housekeeping pass and reports how many entries it
// removed.
type JobFunc func(ctx context.Context) (int64, error)

type housekeepingJob struct {
	name     string
	interval time.Duration
	fn       JobFunc
}

// HousekeepingService runs periodic cleanup jobs, each on its own schedule,
// so a slow database purge never delays the in-memory blacklist sweep.
type HousekeepingService struct {
	Logger *slog.Logger

	// Timeout bounds a single pass of any job.
	Timeout time.Duration

	jobs []housekeepingJob

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewHousekeepingService creates an idle service. Register jobs with AddJob
// before calling Start.
func NewHousekeepingService(logger *slog.Logger) *HousekeepingService {
	return &HousekeepingService{
		Logger:  logger,
		Timeout: time.Minute,
		stopCh:  make(chan struct{}),
	}
}

// AddJob registers fn to run every interval. If interval is 0 or negative,
// defaults to 1 hour.
func (s *HousekeepingService) AddJob(name string, interval time.Duration, fn JobFunc) {
	if interval <= 0 {
		interval = time.Hour
	}
	s.jobs = append(s.jobs, housekeepingJob{name: name, interval: interval, fn: fn})
}

// Start begins one background worker per job. This is non-blocking and
// should be called after the stores are ready.
func (s *HousekeepingService) Start() {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.run(job)
		s.Logger.Info("housekeeping job started", "job", job.name, "interval", job.interval)
	}
}

// Stop gracefully shuts down every worker. Blocks until in-progress passes
// have finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run(job housekeepingJob) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.interval)
	defer ticker.Stop()

	// Run immediately on startup
	s.runOnce(job)

	for {
		select {
		case <-ticker.C:
			s.runOnce(job)
		case <-s.stopCh:
			return
		}
	}
}

// runOnce executes a single pass. Failures are logged and retried on the
// next tick.
func (s *HousekeepingService) runOnce(job housekeepingJob) {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()

	// Abort a long pass promptly when Stop is called.
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	start := time.Now()
	n, err := job.fn(ctx)
	if err != nil {
		s.Logger.Error("housekeeping job failed", "job", job.name, "error", err)
		return
	}
	s.Logger.Debug("housekeeping job completed",
		"job", job.name,
		"removed", n,
		"duration", time.Since(start),
	)
}
