package actor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipe_FIFOOrdering(t *testing.T) {
	t.Parallel()

	p := newPipe[int](context.Background(), 16)
	for i := 0; i < 16; i++ {
		_, ok := p.trySend(i)
		require.True(t, ok)
	}

	for i := 0; i < 16; i++ {
		v, ok := p.tryRecv()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestPipe_TrySendFailsOnFullBuffer(t *testing.T) {
	t.Parallel()

	p := newPipe[int](context.Background(), 2)
	_, ok := p.trySend(1)
	require.True(t, ok)
	_, ok = p.trySend(2)
	require.True(t, ok)

	_, ok = p.trySend(3)
	assert.False(t, ok)
}

func TestPipe_TryRecvEmptyReturnsFalse(t *testing.T) {
	t.Parallel()

	p := newPipe[int](context.Background(), 4)
	_, ok := p.tryRecv()
	assert.False(t, ok)
}

func TestPipe_SendBlocksUntilSpaceThenUnblocks(t *testing.T) {
	t.Parallel()

	p := newPipe[int](context.Background(), 1)
	_, ok := p.trySend(1)
	require.True(t, ok)

	sent := make(chan bool, 1)
	go func() {
		sent <- p.send(context.Background(), 2)
	}()

	select {
	case <-sent:
		t.Fatal("send should have blocked on a full buffer")
	case <-time.After(20 * time.Millisecond):
	}

	v, ok := p.recv(context.Background())
	require.True(t, ok)
	assert.Equal(t, 1, v)

	select {
	case ok := <-sent:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send never unblocked after space freed")
	}
}

func TestPipe_SendFailsWhenContextCancelled(t *testing.T) {
	t.Parallel()

	p := newPipe[int](context.Background(), 1)
	_, ok := p.trySend(1)
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok = p.send(ctx, 2)
	assert.False(t, ok)
}

func TestPipe_SendFailsAfterClose(t *testing.T) {
	t.Parallel()

	p := newPipe[int](context.Background(), 1)
	p.close()

	ok := p.send(context.Background(), 1)
	assert.False(t, ok)

	_, ok = p.trySend(1)
	assert.False(t, ok)
}

func TestPipe_DrainReturnsBufferedItemsAfterClose(t *testing.T) {
	t.Parallel()

	p := newPipe[int](context.Background(), 4)
	for i := 0; i < 3; i++ {
		_, ok := p.trySend(i)
		require.True(t, ok)
	}
	p.close()

	assert.Equal(t, []int{0, 1, 2}, p.drain())
}

func TestPipe_SendUnblocksOnDoneCtx(t *testing.T) {
	t.Parallel()

	doneCtx, cancelDone := context.WithCancel(context.Background())
	p := newPipe[int](doneCtx, 1)

	_, ok := p.trySend(1)
	require.True(t, ok)

	blocked := make(chan bool, 1)
	go func() {
		blocked <- p.send(context.Background(), 2)
	}()

	select {
	case <-blocked:
		t.Fatal("send should have blocked on a full buffer")
	case <-time.After(20 * time.Millisecond):
	}

	cancelDone()

	select {
	case ok := <-blocked:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send never unblocked after doneCtx cancellation")
	}
}
