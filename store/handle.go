package store

import (
	"strconv"
	"sync/atomic"

	"github.com/tabeth/fakesqs/models"
)

// HandleAllocator issues receipt handles for one queue. Handles come from a
// monotonically increasing counter, so a handle is never issued twice for the
// lifetime of the allocator, even after the message it named is deleted.
type HandleAllocator struct {
	next atomic.Uint64
}

// Next returns a handle that has not been issued before.
func (a *HandleAllocator) Next() models.ReceiptHandle {
	n := a.next.Add(1) - 1
	return models.ReceiptHandle(strconv.FormatUint(n, 10))
}
