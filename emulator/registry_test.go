package emulator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tabeth/fakesqs/models"
	"github.com/tabeth/fakesqs/store"
)

func TestRegistry_CreateAndGet(t *testing.T) {
	r := NewRegistry("http://localhost:9324/000000000000", nil, WithClock(clockwork.NewFakeClock()), WithLatency(0, 0))
	defer r.Close()

	q, err := r.CreateQueue("orders")
	require.NoError(t, err)
	assert.Equal(t, "orders", q.Name())

	again, err := r.CreateQueue("orders")
	assert.ErrorIs(t, err, store.ErrQueueAlreadyExists)
	assert.Same(t, q, again)

	got, err := r.GetQueue("orders")
	require.NoError(t, err)
	assert.Same(t, q, got)

	byURL, err := r.Lookup("http://localhost:9324/000000000000/orders")
	require.NoError(t, err)
	assert.Same(t, q, byURL)

	_, err = r.GetQueue("missing")
	assert.ErrorIs(t, err, store.ErrQueueDoesNotExist)
	_, err = r.Lookup("")
	assert.ErrorIs(t, err, store.ErrQueueDoesNotExist)
}

func TestRegistry_InvalidName(t *testing.T) {
	r := NewRegistry("", nil)
	for _, name := range []string{"", "has space", "a/b", strings.Repeat("q", 81)} {
		_, err := r.CreateQueue(name)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, "name %q", name)
	}
}

func TestRegistry_QueuesAreIsolated(t *testing.T) {
	r := NewRegistry("", nil, WithClock(clockwork.NewFakeClock()), WithLatency(0, 0))
	defer r.Close()

	a, err := r.CreateQueue("a")
	require.NoError(t, err)
	b, err := r.CreateQueue("b")
	require.NoError(t, err)

	sendA := a.SendMessage(&models.SendMessageRequest{MessageBody: "only in a"})
	a.RunDue()
	resp, err := sendA.Result()
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptHandle("0"), resp.ReceiptHandle)

	assert.Equal(t, 1, a.Depth().Total())
	assert.Equal(t, 0, b.Depth().Total())
	assert.Equal(t, 0, b.RunDue(), "queues have separate timelines")
}

func TestRegistry_ListAndDelete(t *testing.T) {
	r := NewRegistry("http://localhost:9324/queue/", nil)
	defer r.Close()

	for _, name := range []string{"prod-b", "prod-a", "test-a"} {
		_, err := r.CreateQueue(name)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{
		"http://localhost:9324/queue/prod-a",
		"http://localhost:9324/queue/prod-b",
		"http://localhost:9324/queue/test-a",
	}, r.ListQueues(""))
	assert.Equal(t, []string{"http://localhost:9324/queue/prod-a", "http://localhost:9324/queue/prod-b"}, r.ListQueues("prod"))
	assert.Empty(t, r.ListQueues("nope"))

	q, err := r.GetQueue("prod-a")
	require.NoError(t, err)
	require.NoError(t, r.DeleteQueue("prod-a"))
	assert.ErrorIs(t, r.DeleteQueue("prod-a"), store.ErrQueueDoesNotExist)

	_, err = q.PurgeQueue().Result()
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.Len(t, r.ListQueues(""), 2)
}

func TestRegistry_StartDrivesLaterQueues(t *testing.T) {
	r := NewRegistry("", nil, WithLatency(time.Millisecond, 2*time.Millisecond))
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.Start(ctx)

	q, err := r.CreateQueue("late")
	require.NoError(t, err)
	_, err = q.SendMessage(&models.SendMessageRequest{MessageBody: "x"}).Wait(ctx)
	require.NoError(t, err)
}

func TestQueueNameFromURL(t *testing.T) {
	assert.Equal(t, "q1", QueueNameFromURL("http://localhost:9324/000000000000/q1"))
	assert.Equal(t, "q1", QueueNameFromURL("q1"))
	assert.Equal(t, "q1", QueueNameFromURL("/q1"))
}
