package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is a named piece of background work repeated at a fixed interval
type Job struct {
	Name     string
	Interval time.Duration
	// RunAtStartup runs the job once as soon as the scheduler starts
	RunAtStartup bool
	Run          func(ctx context.Context) error
}

// Scheduler manages periodic execution of background jobs
type Scheduler struct {
	logger   *logrus.Logger
	jobs     []Job
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	jobMutex sync.Mutex // Ensures sequential job execution
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewScheduler creates a new scheduler
func NewScheduler(logger *logrus.Logger, jobs ...Job) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger:   logger,
		jobs:     jobs,
		stopChan: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the scheduled tasks
func (s *Scheduler) Start() {
	for _, job := range s.jobs {
		if job.Interval <= 0 || job.Run == nil {
			s.logger.WithField("job", job.Name).Warn("Skipping job without interval or run function")
			continue
		}
		s.wg.Add(1)
		go s.runJobLoop(job)
	}
}

// runJobLoop runs one job on its ticker until the scheduler stops
func (s *Scheduler) runJobLoop(job Job) {
	defer s.wg.Done()

	if job.RunAtStartup {
		s.execute(job)
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.execute(job)
		}
	}
}

// execute runs a job while holding the job mutex and logs its outcome
func (s *Scheduler) execute(job Job) {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	select {
	case <-s.stopChan:
		return
	default:
	}

	fields := logrus.Fields{
		"job":      job.Name,
		"interval": job.Interval.String(),
	}
	s.logger.WithFields(fields).Debug("Starting job")

	start := time.Now()
	err := job.Run(s.ctx)
	fields["duration_ms"] = time.Since(start).Milliseconds()

	if err != nil {
		s.logger.WithError(err).WithFields(fields).Error("Job failed")
		return
	}
	s.logger.WithFields(fields).Debug("Job completed successfully")
}

// RunJob executes the named job immediately, outside its schedule
func (s *Scheduler) RunJob(name string) error {
	for _, job := range s.jobs {
		if job.Name == name {
			if job.Run == nil {
				return fmt.Errorf("job %s has no run function", name)
			}
			s.execute(job)
			return nil
		}
	}
	return fmt.Errorf("unknown job: %s", name)
}

// Stop gracefully stops the scheduler, cancelling any running job
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.cancel()
		s.wg.Wait()
	})
}
