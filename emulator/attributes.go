package emulator

import (
	"errors"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/tabeth/fakesqs/store"
)

// Queue attribute names understood by the registry.
const (
	AttributeAll                                   = string(types.QueueAttributeNameAll)
	AttributeApproximateNumberOfMessages           = string(types.QueueAttributeNameApproximateNumberOfMessages)
	AttributeApproximateNumberOfMessagesNotVisible = string(types.QueueAttributeNameApproximateNumberOfMessagesNotVisible)
	AttributeApproximateNumberOfMessagesVisible    = "ApproximateNumberOfMessagesVisible"
)

// AttributeFunc computes the value of a queue attribute from the queue's
// partition sizes at the moment the attribute is read.
type AttributeFunc func(depth store.Depth) string

// ApproximateNumberOfMessages counts every live message, visible or not.
func ApproximateNumberOfMessages(depth store.Depth) string {
	return strconv.Itoa(depth.Total())
}

// NotVisibleMessages counts in-flight messages. It is not registered by default.
func NotVisibleMessages(depth store.Depth) string {
	return strconv.Itoa(depth.InFlight)
}

// VisibleMessages counts available messages. It is not registered by default.
func VisibleMessages(depth store.Depth) string {
	return strconv.Itoa(depth.Available)
}

var errReservedAttribute = errors.New("attribute name is reserved")

func defaultAttributes() map[string]AttributeFunc {
	return map[string]AttributeFunc{
		AttributeApproximateNumberOfMessages: ApproximateNumberOfMessages,
	}
}

// RegisterAttribute adds a queue attribute handler, or replaces a previously
// registered one. The core ApproximateNumberOfMessages handler and the All
// wildcard cannot be replaced.
func (q *Queue) RegisterAttribute(name string, fn AttributeFunc) error {
	switch {
	case name == "":
		return invalid("AttributeName", "name is required")
	case fn == nil:
		return invalid("AttributeName", "handler for %q is nil", name)
	case name == AttributeAll, name == AttributeApproximateNumberOfMessages:
		return &ValidationError{Field: "AttributeName", Reason: strconv.Quote(name) + " cannot be re-registered", Err: errReservedAttribute}
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.attrs[name] = fn
	return nil
}

// evaluateAttributes returns the values of the recognized names. q.mu must be held.
func (q *Queue) evaluateAttributes(names []string, depth store.Depth) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		if name == AttributeAll {
			for registered, fn := range q.attrs {
				out[registered] = fn(depth)
			}
			continue
		}
		if fn, ok := q.attrs[name]; ok {
			out[name] = fn(depth)
		}
	}
	return out
}
