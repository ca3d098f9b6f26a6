// Package scheduler manages the recurring due-report poll.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zonewatch/zonereport/pkg/config"
)

// ReportRunner is what the scheduler drives on each poll.
type ReportRunner interface {
	RunDueReports(ctx context.Context)
}

// Scheduler handles cron scheduling for the due-report poll
type Scheduler struct {
	cronScheduler *cron.Cron
	runner        ReportRunner
	cfg           *config.AppConfig
	jobID         cron.EntryID
}

// NewScheduler creates a new scheduler
func NewScheduler(runner ReportRunner) (*Scheduler, error) {
	return &Scheduler{
		cronScheduler: cron.New(),
		runner:        runner,
		cfg:           &config.CFG,
	}, nil
}

// SetupJobs configures the due-report poll job
func (s *Scheduler) SetupJobs() error {
	schedule := s.cfg.Reports.Schedule

	jobID, err := s.cronScheduler.AddFunc(schedule, func() {
		log.Println("Starting due-report check...")
		s.runner.RunDueReports(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule due-report check with expression %q: %w",
			schedule, err)
	}
	s.jobID = jobID

	log.Printf("Scheduled due-report check with cron expression: %s", schedule)
	return nil
}

// Start begins the scheduled jobs
func (s *Scheduler) Start() {
	s.cronScheduler.Start()
	log.Println("Report scheduler started successfully")
}

// Stop halts all scheduled jobs, waiting for a running poll to finish
func (s *Scheduler) Stop() {
	ctx := s.cronScheduler.Stop()
	<-ctx.Done()
	log.Println("Report scheduler stopped")
}

// WaitForever blocks indefinitely to keep the application running
func (s *Scheduler) WaitForever() {
	blockForever := make(chan struct{})
	<-blockForever
}

// RunOnce runs a single due-report check outside the schedule
func (s *Scheduler) RunOnce(ctx context.Context) {
	log.Println("Running one-time due-report check")
	s.runner.RunDueReports(ctx)
}

// NextRunTime returns when the next poll will fire
func (s *Scheduler) NextRunTime() (time.Time, error) {
	entry := s.cronScheduler.Entry(s.jobID)
	if entry.ID == 0 {
		return time.Time{}, fmt.Errorf("no scheduled job found")
	}
	return entry.Next, nil
}
