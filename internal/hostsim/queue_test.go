package hostsim

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueue_RunsInOrder(t *testing.T) {
	q, err := newEventQueue(64, logrus.New())
	require.NoError(t, err)

	var order []int
	for i := 0; i < 10; i++ {
		i := i
		q.Post(func() { order = append(order, i) })
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, q.Start(ctx))
	defer func() { assert.NoError(t, q.Stop()) }()

	q.Flush()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order, "work posted before start MUST run in order")
	assert.Equal(t, int64(11), q.Metrics().Processed)
}

func TestEventQueue_OverflowDropsOldest(t *testing.T) {
	q, err := newEventQueue(4, logrus.New())
	require.NoError(t, err)

	ran := 0
	for i := 0; i < 32; i++ {
		q.Post(func() { ran++ })
	}
	assert.Positive(t, q.Metrics().Overwritten, "full queue MUST overwrite the oldest entries")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, q.Start(ctx))
	defer func() { assert.NoError(t, q.Stop()) }()

	q.Flush()
	assert.Less(t, ran, 32)
}

func TestEventQueue_StartTwiceFails(t *testing.T) {
	q, err := newEventQueue(8, logrus.New())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, q.Start(ctx))
	assert.Error(t, q.Start(ctx))
	assert.NoError(t, q.Stop())
	assert.NoError(t, q.Stop(), "stopping a stopped queue MUST be a no-op")
}

func TestNewEventQueue_Bounds(t *testing.T) {
	_, err := newEventQueue(0, logrus.New())
	assert.Error(t, err)
	_, err = newEventQueue(MaxQueueSize+1, logrus.New())
	assert.Error(t, err)
}
