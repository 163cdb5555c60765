package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Queue: QueueIndex}, nil
}

func TestRebuildScheduler_Enqueue(t *testing.T) {
	enq := &recordingEnqueuer{}
	r, err := NewRebuildScheduler("0 3 * * *", enq, "data_pdf")
	require.NoError(t, err)

	r.enqueue()
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskRebuildIndex, enq.tasks[0].Type())
}

func TestRebuildScheduler_EnqueueErrorsAreLogged(t *testing.T) {
	for _, err := range []error{asynq.ErrDuplicateTask, errors.New("redis down")} {
		r, buildErr := NewRebuildScheduler("0 3 * * *", &recordingEnqueuer{err: err}, "data_pdf")
		require.NoError(t, buildErr)
		assert.NotPanics(t, r.enqueue)
	}
}

func TestRebuildScheduler_InvalidExpression(t *testing.T) {
	_, err := NewRebuildScheduler("not a cron", &recordingEnqueuer{}, "data_pdf")
	assert.Error(t, err)
}
