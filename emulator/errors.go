package emulator

import (
	"errors"
	"fmt"

	"github.com/tabeth/fakesqs/store"
)

var (
	// ErrEmptyBatch is returned when a batch request has no entries.
	ErrEmptyBatch = errors.New("batch request contains no entries")
	// ErrTooManyEntries is returned when a batch request has more than MaxBatchSize entries.
	ErrTooManyEntries = errors.New("batch request contains more entries than permissible")
	// ErrBatchEntryIdsNotDistinct is returned when two entries of a batch share an Id.
	ErrBatchEntryIdsNotDistinct = errors.New("two or more batch entries have the same Id")
	// ErrInvalidBatchEntryID is returned when an entry Id is empty, too long or has invalid characters.
	ErrInvalidBatchEntryID = errors.New("batch entry Id is invalid")
	// ErrQueueClosed resolves calls made on, or still pending at, a closed queue.
	ErrQueueClosed = errors.New("queue is closed")
)

// ValidationError reports a malformed request field. It is returned to the
// caller and never affects other entries or the queue itself.
type ValidationError struct {
	Field  string
	Reason string
	// Err is an optional sentinel the error unwraps to.
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ErrorCode maps an error returned by this package to the SQS error code a
// client would see for it.
func ErrorCode(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, store.ErrInvalidReceiptHandle):
		return "ReceiptHandleIsInvalid"
	case errors.Is(err, store.ErrQueueDoesNotExist), errors.Is(err, ErrQueueClosed):
		return "QueueDoesNotExist"
	case errors.Is(err, store.ErrQueueAlreadyExists):
		return "QueueAlreadyExists"
	case errors.Is(err, ErrEmptyBatch):
		return "EmptyBatchRequest"
	case errors.Is(err, ErrTooManyEntries):
		return "TooManyEntriesInBatchRequest"
	case errors.Is(err, ErrBatchEntryIdsNotDistinct):
		return "BatchEntryIdsNotDistinct"
	case errors.Is(err, ErrInvalidBatchEntryID):
		return "InvalidBatchEntryId"
	case errors.As(err, &verr):
		return "InvalidParameterValue"
	default:
		return "InternalFailure"
	}
}
