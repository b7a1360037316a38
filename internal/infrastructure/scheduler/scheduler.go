package scheduler

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Printfer is satisfied by *log.Logger.
type Printfer interface {
	Printf(format string, v ...interface{})
}

type Scheduler struct {
	cron   *cron.Cron
	log    Printfer
	ctx    context.Context
	cancel context.CancelFunc
}

// New returns a scheduler using six-field cron specs (with seconds). A job
// whose previous run has not finished yet is skipped rather than queued.
func New(logger Printfer, loc *time.Location) *Scheduler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if loc == nil {
		loc = time.Local
	}
	cronLogger := cron.PrintfLogger(logger)
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		log:    logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob registers job under spec. The context passed to job is cancelled
// when the scheduler stops.
func (s *Scheduler) AddJob(spec string, job func(context.Context) error) (cron.EntryID, error) {
	return s.cron.AddFunc(spec, func() {
		if err := job(s.ctx); err != nil {
			s.log.Printf("scheduled job failed: %v", err)
		}
	})
}

// Next returns the next activation time of the given entry.
func (s *Scheduler) Next(id cron.EntryID) time.Time {
	return s.cron.Entry(id).Next
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs' context and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
}
