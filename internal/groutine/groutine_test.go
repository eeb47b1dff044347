package groutine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGo_NamesContext(t *testing.T) {
	names := make(chan string, 1)
	done := Go(nil, "worker-42", func(ctx context.Context) {
		names <- Name(ctx)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine MUST finish")
	}
	assert.Equal(t, "worker-42", <-names)
	assert.Empty(t, Name(context.Background()))
	assert.Empty(t, Name(nil)) //nolint:staticcheck
}

func TestID_DiffersAcrossGoroutines(t *testing.T) {
	mine := ID()
	require.NotZero(t, mine)

	other := make(chan uint64, 1)
	<-Go(context.Background(), "id", func(context.Context) { other <- ID() })
	assert.NotEqual(t, mine, <-other)
}

func TestOwner_CurrentOnlyInsideRun(t *testing.T) {
	o := NewOwner("host-event")
	assert.Equal(t, "host-event", o.Name())
	assert.False(t, o.Current(), "unclaimed owner MUST NOT match any goroutine")

	inside := make(chan bool, 1)
	release := make(chan struct{})
	done := o.Run(context.Background(), func(context.Context) {
		inside <- o.Current()
		<-release
	})

	assert.True(t, <-inside, "owner MUST match the goroutine running it")
	assert.False(t, o.Current(), "owner MUST NOT match other goroutines")

	close(release)
	<-done
	assert.False(t, o.Current())

	o.Claim()
	assert.True(t, o.Current())
	o.Release()
	assert.False(t, o.Current())
}
