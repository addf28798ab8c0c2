// Package emulator is an in-process stand-in for an SQS queue.
//
// A Queue delivers messages in batches, hides delivered messages from other
// receivers for a visibility timeout, and makes them available again if they
// are not deleted in time. Every call resolves asynchronously after a random
// latency, the way a call to a remote service would, through a Call.
//
// All store mutations happen on the queue's scheduler timeline, one event at a
// time, so concurrent callers never observe a half-applied operation and two
// receives never claim the same message.
package emulator

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/tabeth/fakesqs/models"
	"github.com/tabeth/fakesqs/scheduler"
	"github.com/tabeth/fakesqs/store"
)

// Queue is a single emulated queue. Queues share no state with each other.
type Queue struct {
	name     string
	senderID string
	log      *slog.Logger
	clock    clockwork.Clock
	sched    *scheduler.Scheduler
	// store is only touched from scheduler callbacks or under sched.Exec.
	store store.Store

	minLatency time.Duration
	maxLatency time.Duration

	mu      sync.Mutex // guards the fields below
	rng     *rand.Rand
	attrs   map[string]AttributeFunc
	pending map[aborter]struct{}
	closed  bool
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewQueue creates an empty queue. Until Start is called, or RunDue is called
// by hand, nothing on its timeline happens.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		name:       DefaultQueueName,
		senderID:   DefaultSenderID,
		log:        slog.Default(),
		minLatency: DefaultMinLatency,
		maxLatency: DefaultMaxLatency,
		attrs:      defaultAttributes(),
		pending:    make(map[aborter]struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.store == nil {
		q.store = store.NewMemoryStore()
	}
	if q.rng == nil {
		q.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if q.maxLatency < q.minLatency {
		q.maxLatency = q.minLatency
	}
	q.sched = scheduler.New(q.clock)
	q.clock = q.sched.Clock()
	q.log = q.log.With("component", "emulator", "queue", q.name)
	return q
}

// Name returns the queue name.
func (q *Queue) Name() string {
	return q.name
}

// Clock returns the time source of the queue's timeline.
func (q *Queue) Clock() clockwork.Clock {
	return q.clock
}

// Start drives the queue's timeline on the clock until ctx is done or the
// queue is closed. Calling Start more than once has no effect.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancel != nil || q.closed {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})
	q.cancel, q.stopped = cancel, stopped

	go func() {
		defer close(stopped)
		if err := q.sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			q.log.Warn("timeline stopped", "error", err)
		}
	}()
}

// RunDue runs every event that is due on the queue's clock and reports how
// many ran. It is the manual alternative to Start, used with a fake clock.
func (q *Queue) RunDue() int {
	return q.sched.RunDue()
}

// Close stops the timeline and fails every pending call with ErrQueueClosed.
// Calls made after Close fail the same way. Close always returns nil.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	cancel, stopped := q.cancel, q.stopped
	pending := q.pending
	q.pending = make(map[aborter]struct{})
	q.mu.Unlock()

	if cancel != nil {
		cancel()
		<-stopped
	}
	for call := range pending {
		call.abort(ErrQueueClosed)
	}
	q.log.Debug("queue closed", "aborted_calls", len(pending))
	return nil
}

// Depth returns a snapshot of the partition sizes. It must not be called from
// inside a timeline callback.
func (q *Queue) Depth() store.Depth {
	var depth store.Depth
	q.sched.Exec(func() {
		depth = q.store.Depth()
	})
	return depth
}

// SendMessage enqueues one message. A nil request sends an empty message.
func (q *Queue) SendMessage(req *models.SendMessageRequest) *Call[*models.SendMessageResponse] {
	call := newCall[*models.SendMessageResponse]()
	entry := models.SendMessageBatchRequestEntry{}
	if req != nil {
		entry = models.SendMessageBatchRequestEntry{
			MessageBody:       req.MessageBody,
			DelaySeconds:      req.DelaySeconds,
			MessageAttributes: req.MessageAttributes,
		}
	}
	entry = cloneSendEntry(entry)

	q.submit(call, func(now time.Time) {
		msg, err := q.enqueue(now, entry)
		if err != nil {
			settle(q, call, nil, err)
			return
		}
		settle(q, call, &models.SendMessageResponse{
			MD5OfMessageAttributes: optional(msg.MD5OfAttributes),
			MD5OfMessageBody:       msg.MD5OfBody,
			MessageId:              msg.ID,
			ReceiptHandle:          msg.ReceiptHandle,
		}, nil)
	})
	return call
}

// SendMessageBatch enqueues each entry independently and never fails as a
// whole. An entry with a malformed or repeated Id, or one that fails
// validation, is reported in Failed and does not affect the others. Entries
// may omit the Id.
func (q *Queue) SendMessageBatch(entries []models.SendMessageBatchRequestEntry) *Call[*models.SendMessageBatchResponse] {
	call := newCall[*models.SendMessageBatchResponse]()
	batch := make([]models.SendMessageBatchRequestEntry, len(entries))
	for i, entry := range entries {
		batch[i] = cloneSendEntry(entry)
	}

	q.submit(call, func(now time.Time) {
		resp := &models.SendMessageBatchResponse{
			Successful: []models.SendMessageBatchResultEntry{},
			Failed:     []models.BatchResultErrorEntry{},
			Results:    make([]models.BatchEntryOutcome, 0, len(batch)),
		}
		seen := make(map[string]struct{}, len(batch))
		for _, entry := range batch {
			msg, err := q.enqueueEntry(now, entry, seen)
			if err != nil {
				resp.Failed = append(resp.Failed, batchError(entry.Id, err))
				resp.Results = append(resp.Results, models.BatchEntryOutcome{Id: entry.Id, Err: err})
				continue
			}
			result := models.SendMessageBatchResultEntry{
				Id:                     entry.Id,
				MD5OfMessageAttributes: optional(msg.MD5OfAttributes),
				MD5OfMessageBody:       msg.MD5OfBody,
				MessageId:              msg.ID,
				ReceiptHandle:          msg.ReceiptHandle,
			}
			resp.Successful = append(resp.Successful, result)
			resp.Results = append(resp.Results, models.BatchEntryOutcome{Id: entry.Id, Result: &result})
		}
		settle(q, call, resp, nil)
	})
	return call
}

// ReceiveMessage is Receive with the options taken from a wire request.
func (q *Queue) ReceiveMessage(req *models.ReceiveMessageRequest) *Call[[]models.ResponseMessage] {
	return q.Receive(ReceiveOptionsFromRequest(req))
}

// Receive reserves up to opts.MaxMessages of the oldest available messages
// once the call latency has elapsed, and resolves with them opts.WaitTime
// later. Each reserved message becomes available again at
// reservation + WaitTime + VisibilityTimeout unless it is deleted first.
// The call resolves with an empty batch when nothing is available.
func (q *Queue) Receive(opts ReceiveOptions) *Call[[]models.ResponseMessage] {
	call := newCall[[]models.ResponseMessage]()
	n := clampMaxMessages(opts.MaxMessages)
	wait := max(opts.WaitTime, 0)
	visibility := max(opts.VisibilityTimeout, 0)
	opts.AttributeNames = slices.Clone(opts.AttributeNames)
	opts.MessageAttributeNames = slices.Clone(opts.MessageAttributeNames)

	q.submit(call, func(now time.Time) {
		reserved := q.store.ReserveOldest(n)
		batch := make([]models.ResponseMessage, 0, len(reserved))
		for _, msg := range reserved {
			batch = append(batch, toResponse(msg, opts))
		}
		if len(reserved) > 0 {
			q.log.Debug("messages reserved", "count", len(reserved), "wait", wait, "visibility_timeout", visibility)
		}

		deliverAt := now.Add(wait)
		q.at(deliverAt, func(time.Time) {
			settle(q, call, batch, nil)
		})
		expireAt := deliverAt.Add(visibility)
		for _, msg := range reserved {
			handle := msg.ReceiptHandle
			q.at(expireAt, func(time.Time) {
				q.expire(handle)
			})
		}
	})
	return call
}

// DeleteMessage removes the message with the given handle, whether it is
// available or in flight. Deleting an unknown or already deleted handle
// succeeds. Two handles are rejected with a ValidationError that unwraps to
// store.ErrInvalidReceiptHandle: the empty handle, which no send ever
// returns, and the reserved store.OrderKey.
func (q *Queue) DeleteMessage(handle models.ReceiptHandle) *Call[struct{}] {
	call := newCall[struct{}]()
	q.submit(call, func(time.Time) {
		settle(q, call, struct{}{}, q.remove(handle))
	})
	return call
}

// DeleteMessageBatch deletes each entry independently. A malformed handle
// fails only its own entry.
func (q *Queue) DeleteMessageBatch(entries []models.DeleteMessageBatchRequestEntry) *Call[*models.DeleteMessageBatchResponse] {
	call := newCall[*models.DeleteMessageBatchResponse]()
	batch := slices.Clone(entries)

	q.submit(call, func(time.Time) {
		ids := make([]string, len(batch))
		for i, entry := range batch {
			ids[i] = entry.Id
		}
		if err := validateBatchIDs(ids); err != nil {
			q.log.Warn("delete batch rejected", "error", err)
			settle(q, call, nil, err)
			return
		}

		resp := &models.DeleteMessageBatchResponse{
			Successful: []models.DeleteMessageBatchResultEntry{},
			Failed:     []models.BatchResultErrorEntry{},
		}
		for _, entry := range batch {
			if err := q.remove(entry.ReceiptHandle); err != nil {
				resp.Failed = append(resp.Failed, batchError(entry.Id, err))
				continue
			}
			resp.Successful = append(resp.Successful, models.DeleteMessageBatchResultEntry{Id: entry.Id})
		}
		settle(q, call, resp, nil)
	})
	return call
}

// GetQueueAttributes resolves with the values of the requested attributes
// that have a registered handler. Other names are left out.
func (q *Queue) GetQueueAttributes(names []string) *Call[map[string]string] {
	call := newCall[map[string]string]()
	names = slices.Clone(names)

	q.submit(call, func(time.Time) {
		depth := q.store.Depth()
		q.mu.Lock()
		attrs := q.evaluateAttributes(names, depth)
		q.mu.Unlock()
		settle(q, call, attrs, nil)
	})
	return call
}

// PurgeQueue drops every message, available or in flight. Handles issued
// before the purge are never reissued.
func (q *Queue) PurgeQueue() *Call[struct{}] {
	call := newCall[struct{}]()
	q.submit(call, func(time.Time) {
		dropped := q.store.Purge()
		q.log.Info("queue purged", "dropped", dropped)
		settle(q, call, struct{}{}, nil)
	})
	return call
}

// enqueueEntry checks the entry Id of a batch send and enqueues the entry.
func (q *Queue) enqueueEntry(now time.Time, entry models.SendMessageBatchRequestEntry, seen map[string]struct{}) (models.Message, error) {
	if err := validateSendEntryID(entry.Id, seen); err != nil {
		q.log.Warn("batch entry rejected", "id", entry.Id, "error", err)
		return models.Message{}, err
	}
	return q.enqueue(now, entry)
}

// enqueue validates and stores one message. It runs on the timeline.
func (q *Queue) enqueue(now time.Time, entry models.SendMessageBatchRequestEntry) (models.Message, error) {
	if err := validateMessage(entry.MessageBody, entry.DelaySeconds, entry.MessageAttributes); err != nil {
		q.log.Warn("message rejected", "id", entry.Id, "error", err)
		return models.Message{}, err
	}
	msg := models.Message{
		ID:              uuid.NewString(),
		Body:            entry.MessageBody,
		Attributes:      entry.MessageAttributes,
		MD5OfBody:       store.MD5OfBody(entry.MessageBody),
		MD5OfAttributes: store.MD5OfAttributes(entry.MessageAttributes),
		SenderId:        q.senderID,
		SentTimestamp:   now.UnixMilli(),
	}
	if entry.DelaySeconds != nil {
		msg.DelaySeconds = *entry.DelaySeconds
	}
	msg.ReceiptHandle = q.store.Enqueue(msg)
	return msg, nil
}

// remove deletes one message by handle. It runs on the timeline.
func (q *Queue) remove(handle models.ReceiptHandle) error {
	if err := validateHandle(handle); err != nil {
		q.log.Warn("delete rejected", "receipt_handle", handle, "error", err)
		return err
	}
	if q.store.Remove(handle) {
		q.log.Debug("message deleted", "receipt_handle", handle)
	}
	return nil
}

// expire makes an in-flight message available again. A handle that was
// deleted in the meantime is ignored.
func (q *Queue) expire(handle models.ReceiptHandle) {
	if q.store.Release(handle) {
		q.log.Debug("visibility timeout expired", "receipt_handle", handle)
	}
}

// submit registers call as pending and schedules fn after a random latency.
// On a closed queue the call fails immediately.
func (q *Queue) submit(call aborter, fn scheduler.Func) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		call.abort(ErrQueueClosed)
		return
	}
	q.pending[call] = struct{}{}
	delay := q.latency()
	q.mu.Unlock()

	q.sched.After(delay, func(now time.Time) {
		if q.isClosed() {
			return
		}
		fn(now)
	})
}

// at schedules fn at t; it is skipped if the queue has been closed by then.
func (q *Queue) at(t time.Time, fn scheduler.Func) {
	q.sched.At(t, func(now time.Time) {
		if q.isClosed() {
			return
		}
		fn(now)
	})
}

func (q *Queue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// latency draws a call latency. q.mu must be held.
func (q *Queue) latency() time.Duration {
	spread := q.maxLatency - q.minLatency
	if spread <= 0 {
		return q.minLatency
	}
	return q.minLatency + time.Duration(q.rng.Int64N(int64(spread)+1))
}

// settle resolves a pending call and forgets it.
func settle[T any](q *Queue, call *Call[T], value T, err error) {
	q.mu.Lock()
	delete(q.pending, call)
	q.mu.Unlock()
	call.resolve(value, err)
}

func batchError(id string, err error) models.BatchResultErrorEntry {
	return models.BatchResultErrorEntry{
		Id:          id,
		Code:        ErrorCode(err),
		Message:     err.Error(),
		SenderFault: true,
	}
}

func cloneSendEntry(entry models.SendMessageBatchRequestEntry) models.SendMessageBatchRequestEntry {
	if entry.DelaySeconds != nil {
		delay := *entry.DelaySeconds
		entry.DelaySeconds = &delay
	}
	entry.MessageAttributes = maps.Clone(entry.MessageAttributes)
	return entry
}
