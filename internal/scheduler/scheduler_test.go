package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis/pit/pkg/logger"
	"github.com/wonny/aegis/pit/pkg/metrics"
)

// flakyJob fails until it has been called failures+1 times
type flakyJob struct {
	name     string
	schedule string
	failures int32
	calls    int32
}

func (j *flakyJob) Name() string     { return j.name }
func (j *flakyJob) Schedule() string { return j.schedule }

func (j *flakyJob) Run(ctx context.Context) error {
	if atomic.AddInt32(&j.calls, 1) <= j.failures {
		return errors.New("transient")
	}
	return nil
}

func newTestScheduler() *Scheduler {
	return New(logger.Nop(), metrics.New()).WithRetry(3, time.Millisecond)
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler()

	require.NoError(t, s.AddJob(&flakyJob{name: "a", schedule: "0 30 16 * * MON-FRI"}))
	assert.Error(t, s.AddJob(&flakyJob{name: "a", schedule: "@daily"}), "duplicate name")
	assert.Error(t, s.AddJob(&flakyJob{name: "b", schedule: "not a cron"}))
	assert.Equal(t, []string{"a"}, s.GetAllJobs())
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&flakyJob{name: "a", schedule: "@daily"}))

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("a"))

	_, err := s.RunNow(context.Background(), "a")
	assert.Error(t, err)
}

func TestRunNow_RetriesUntilSuccess(t *testing.T) {
	s := newTestScheduler()
	job := &flakyJob{name: "flaky", schedule: "@daily", failures: 2}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunNow(context.Background(), "flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)

	history, err := s.GetJobHistory("flaky")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.Equal(t, 1.0, history.SuccessRate())
}

func TestRunNow_FailsAfterRetries(t *testing.T) {
	s := newTestScheduler()
	job := &flakyJob{name: "broken", schedule: "@daily", failures: 100}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunNow(context.Background(), "broken")
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 4, result.Attempts) // 최초 1회 + 재시도 3회
	assert.Equal(t, "transient", result.Error)

	stats := s.GetJobStats()["broken"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, 0, stats.SuccessCount)
	assert.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)
}

func TestRunNow_StopsRetryingOnCancel(t *testing.T) {
	s := New(logger.Nop(), nil).WithRetry(5, time.Hour)
	job := &flakyJob{name: "slow", schedule: "@daily", failures: 100}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result, err := s.RunNow(ctx, "slow")
	require.Error(t, err)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, context.DeadlineExceeded.Error(), result.Error)
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < historyLimit+10; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}

	assert.Len(t, h.Results, historyLimit)
	assert.Len(t, h.Latest(5), 5)
	assert.Len(t, (&JobHistory{}).Latest(5), 0)
	assert.Equal(t, historyLimit/2, h.FailureCount())
	assert.InDelta(t, 0.5, h.SuccessRate(), 1e-12)
	assert.Equal(t, 0.0, (&JobHistory{}).SuccessRate())
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&flakyJob{name: "a", schedule: "@every 1h"}))

	s.Start()
	stats := s.GetJobStats()["a"]
	s.Stop()

	assert.Equal(t, "@every 1h", stats.Schedule)
	assert.Equal(t, 0, stats.TotalRuns)
}
