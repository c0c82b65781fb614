package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/crmgeek/backend/pkg/logger"
)

type countingJob struct {
	name     string
	failures int32 // fail this many times first
	calls    int32
	block    bool
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return "0 0 3 * * *" }

func (j *countingJob) Run(ctx context.Context) error {
	n := atomic.AddInt32(&j.calls, 1)
	if j.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if n <= j.failures {
		return errors.New("transient")
	}
	return nil
}

func TestRunNow_Retries(t *testing.T) {
	s := New(logger.Nop(), Options{MaxRetries: 2, RetryDelay: time.Millisecond})
	job := &countingJob{name: "flaky", failures: 2}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunNow(context.Background(), "flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)

	history, err := s.GetJobHistory("flaky")
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestRunNow_GivesUp(t *testing.T) {
	s := New(logger.Nop(), Options{MaxRetries: 1, RetryDelay: time.Millisecond})
	job := &countingJob{name: "broken", failures: 10}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunNow(context.Background(), "broken")
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "transient", result.Error)
	assert.Equal(t, int32(2), atomic.LoadInt32(&job.calls))

	stats := s.GetJobStats()["broken"]
	assert.Equal(t, 1, stats.FailureCount)
	assert.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)
}

func TestRunNow_JobTimeout(t *testing.T) {
	s := New(logger.Nop(), Options{JobTimeout: 20 * time.Millisecond})
	require.NoError(t, s.AddJob(&countingJob{name: "slow", block: true}))

	result, err := s.RunNow(context.Background(), "slow")
	require.Error(t, err)
	assert.Contains(t, result.Error, "deadline exceeded")
}

func TestAddAndRemove(t *testing.T) {
	s := New(logger.Nop(), Options{})
	require.NoError(t, s.AddJob(&countingJob{name: "b"}))
	require.NoError(t, s.AddJob(&countingJob{name: "a"}))

	assert.Error(t, s.AddJob(&countingJob{name: "a"}))
	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())

	require.NoError(t, s.RemoveJob("a"))
	assert.Error(t, s.RemoveJob("a"))
	assert.Equal(t, []string{"b"}, s.GetAllJobs())

	_, err := s.RunNow(context.Background(), "a")
	assert.Error(t, err)
}

type badSchedule struct{ countingJob }

func (badSchedule) Schedule() string { return "not a cron spec" }

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := New(logger.Nop(), Options{})
	assert.Error(t, s.AddJob(&badSchedule{countingJob{name: "bad"}}))
	assert.Empty(t, s.GetAllJobs())
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < historyLimit+5; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, historyLimit)
	assert.Len(t, h.Latest(3), 3)
	assert.Len(t, h.Latest(1000), historyLimit)
	assert.InDelta(t, 0.5, h.SuccessRate(), 0.01)
	assert.Zero(t, (&JobHistory{}).SuccessRate())
}
