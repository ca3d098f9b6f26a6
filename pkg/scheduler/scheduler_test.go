package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonewatch/zonereport/pkg/config"
)

type countingRunner struct {
	runs int
}

func (r *countingRunner) RunDueReports(ctx context.Context) {
	r.runs++
}

// TestSetupJobsValidExpression tests that a valid cron expression schedules
// the poll and exposes a next run time
func TestSetupJobsValidExpression(t *testing.T) {
	config.CFG.Reports.Schedule = "@every 15m"

	runner := &countingRunner{}
	s, err := NewScheduler(runner)
	require.NoError(t, err)

	require.NoError(t, s.SetupJobs())

	s.Start()
	defer s.Stop()

	next, err := s.NextRunTime()
	require.NoError(t, err)
	assert.False(t, next.IsZero())
}

// TestSetupJobsInvalidExpression tests that a malformed schedule is rejected
func TestSetupJobsInvalidExpression(t *testing.T) {
	config.CFG.Reports.Schedule = "not a cron expression"

	s, err := NewScheduler(&countingRunner{})
	require.NoError(t, err)

	assert.Error(t, s.SetupJobs())
}

// TestRunOnce tests that a one-time check drives the runner immediately
func TestRunOnce(t *testing.T) {
	config.CFG.Reports.Schedule = "@every 15m"

	runner := &countingRunner{}
	s, err := NewScheduler(runner)
	require.NoError(t, err)

	s.RunOnce(context.Background())
	assert.Equal(t, 1, runner.runs)
}
