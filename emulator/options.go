package emulator

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tabeth/fakesqs/models"
	"github.com/tabeth/fakesqs/store"
)

// Defaults applied by NewQueue and ReceiveOptionsFromRequest.
const (
	DefaultQueueName         = "default"
	DefaultSenderID          = "AIDAFAKESQSSENDER"
	DefaultMinLatency        = 30 * time.Millisecond
	DefaultMaxLatency        = 250 * time.Millisecond
	DefaultMaxMessages       = 1
	DefaultWaitTime          = 2 * time.Second
	DefaultVisibilityTimeout = 30 * time.Second
)

// Option configures a Queue.
type Option func(*Queue)

// WithClock sets the time source of the queue's timeline. Tests pass a
// clockwork fake clock and drive the queue with RunDue.
func WithClock(clock clockwork.Clock) Option {
	return func(q *Queue) {
		q.clock = clock
	}
}

// WithLatency sets the bounds of the random delay every call incurs. Both
// bounds are inclusive; passing zero for both makes calls resolve on the next
// pass of the timeline.
func WithLatency(min, max time.Duration) Option {
	return func(q *Queue) {
		q.minLatency, q.maxLatency = min, max
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.log = logger
		}
	}
}

func WithName(name string) Option {
	return func(q *Queue) {
		q.name = name
	}
}

// WithRand sets the source used to draw call latencies.
func WithRand(rng *rand.Rand) Option {
	return func(q *Queue) {
		q.rng = rng
	}
}

// WithSenderID sets the SenderId system attribute stamped on sent messages.
func WithSenderID(id string) Option {
	return func(q *Queue) {
		q.senderID = id
	}
}

// WithStore replaces the in-memory message store.
func WithStore(s store.Store) Option {
	return func(q *Queue) {
		q.store = s
	}
}

// ReceiveOptions are the parameters of a receive call.
type ReceiveOptions struct {
	// MaxMessages is clamped to [0, MaxBatchSize].
	MaxMessages int
	// WaitTime is the delay between reserving messages and delivering them.
	WaitTime time.Duration
	// VisibilityTimeout is how long delivered messages stay in flight after delivery.
	VisibilityTimeout time.Duration
	// AttributeNames selects system attributes: All, SentTimestamp, SenderId.
	AttributeNames []string
	// MessageAttributeNames selects custom attributes: All, .*, exact names or prefix.* patterns.
	MessageAttributeNames []string
}

// DefaultReceiveOptions returns the options used for unset request fields.
func DefaultReceiveOptions() ReceiveOptions {
	return ReceiveOptions{
		MaxMessages:       DefaultMaxMessages,
		WaitTime:          DefaultWaitTime,
		VisibilityTimeout: DefaultVisibilityTimeout,
	}
}

// ReceiveOptionsFromRequest converts a wire request, filling unset fields
// with the defaults. A nil request yields DefaultReceiveOptions.
func ReceiveOptionsFromRequest(req *models.ReceiveMessageRequest) ReceiveOptions {
	opts := DefaultReceiveOptions()
	if req == nil {
		return opts
	}
	if req.MaxNumberOfMessages != nil {
		opts.MaxMessages = *req.MaxNumberOfMessages
	}
	if req.WaitTimeSeconds != nil {
		opts.WaitTime = seconds(*req.WaitTimeSeconds)
	}
	if req.VisibilityTimeout != nil {
		opts.VisibilityTimeout = seconds(*req.VisibilityTimeout)
	}
	opts.AttributeNames = req.AttributeNames
	opts.MessageAttributeNames = req.MessageAttributeNames
	return opts
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func clampMaxMessages(n int) int {
	return min(max(n, 0), MaxBatchSize)
}
