package store

import (
	"errors"

	"github.com/tabeth/fakesqs/models"
)

var (
	// ErrQueueAlreadyExists is returned when trying to create a queue that already exists.
	ErrQueueAlreadyExists = errors.New("queue already exists")
	// ErrQueueDoesNotExist is returned when trying to operate on a queue that does not exist.
	ErrQueueDoesNotExist = errors.New("queue does not exist")
	// ErrInvalidReceiptHandle is returned when a receipt handle is malformed or reserved.
	ErrInvalidReceiptHandle = errors.New("receipt handle is invalid")
)

// OrderKey is the key under which the store keeps its delivery-order index.
// It is reserved and is never issued as a receipt handle.
const OrderKey models.ReceiptHandle = "order"

// Depth reports the size of the two partitions of a queue.
type Depth struct {
	Available int
	InFlight  int
}

// Total is the number of live messages: available plus in-flight.
func (d Depth) Total() int {
	return d.Available + d.InFlight
}

// Store is the interface for the message storage of a single queue.
// Every live message is held in exactly one of two partitions: available
// (eligible for delivery, ordered oldest first) or in-flight (delivered and
// awaiting acknowledgment or visibility expiry).
//
// Implementations are not safe for concurrent use. All mutations are
// synchronous and perform no I/O; callers serialize access.
type Store interface {
	// Enqueue assigns a fresh receipt handle to msg and appends it to the tail
	// of the available partition.
	Enqueue(msg models.Message) models.ReceiptHandle
	// ReserveOldest moves up to n messages from the head of the available
	// partition into in-flight and returns copies of them in delivery order.
	ReserveOldest(n int) []models.Message
	// Release moves an in-flight message back to the tail of the available
	// partition. It reports false, and does nothing, if the handle is not in flight.
	Release(handle models.ReceiptHandle) bool
	// Remove deletes the message from whichever partition holds it. It reports
	// false, and does nothing, if the handle is unknown.
	Remove(handle models.ReceiptHandle) bool
	// Purge removes every live message and returns how many were dropped.
	Purge() int
	// Depth reports the partition sizes.
	Depth() Depth
}

// ValidateHandle rejects handles that can never address a message: the empty
// handle and the reserved OrderKey.
func ValidateHandle(handle models.ReceiptHandle) error {
	if handle == "" || handle == OrderKey {
		return ErrInvalidReceiptHandle
	}
	return nil
}
