// Package models contains the data structures used throughout the emulator.
// These structures define the shape of API requests and responses, as well as the
// internal representation of a message held by the queue store. They are often
// referred to as Data Transfer Objects (DTOs).
package models

// ReceiptHandle is the opaque token that identifies a message inside one queue.
// It is assigned once, when the message is sent, and stays the same across
// redeliveries.
type ReceiptHandle string

// String returns the handle as a plain string.
func (h ReceiptHandle) String() string {
	return string(h)
}

// MessageAttributeValue represents the value of a custom message attribute.
// It can hold string, number or binary data.
type MessageAttributeValue struct {
	// BinaryListValues is a list of binary values.
	BinaryListValues [][]byte `json:"BinaryListValues,omitempty"`
	// BinaryValue is a binary value.
	BinaryValue []byte `json:"BinaryValue,omitempty"`
	// DataType indicates the type of the attribute (e.g., "String", "Number", "Binary").
	// A custom type label may follow the base type after a period ("Number.float").
	DataType string `json:"DataType"`
	// StringListValues is a list of string values.
	StringListValues []string `json:"StringListValues,omitempty"`
	// StringValue is a string value, used for both the String and Number types.
	StringValue *string `json:"StringValue,omitempty"`
}

// Message is the internal representation of a message within the queue store.
// It combines the caller supplied fields with bookkeeping the emulator adds on
// send, such as the digests and the receipt handle. This struct is not directly
// exposed by the API; receive calls return ResponseMessage copies.
type Message struct {
	ID              string
	Body            string
	Attributes      map[string]MessageAttributeValue
	MD5OfBody       string
	MD5OfAttributes string
	// DelaySeconds is recorded as sent. The emulator has no delayed partition.
	DelaySeconds  int32
	SenderId      string
	SentTimestamp int64 // Milliseconds since the epoch.
	ReceiptHandle ReceiptHandle
}

// SendMessageRequest maps to the input of a SendMessage action.
// Only MessageBody is meaningful for every call; the rest is optional.
type SendMessageRequest struct {
	// DelaySeconds is the number of seconds to delay the message (0-900).
	DelaySeconds *int32 `json:"DelaySeconds,omitempty"`
	// MessageAttributes is a map of custom attributes for the message.
	MessageAttributes map[string]MessageAttributeValue `json:"MessageAttributes,omitempty"`
	// MessageBody is the body of the message.
	MessageBody string `json:"MessageBody"`
	// QueueUrl is the URL of the queue to send the message to. The Go API ignores it.
	QueueUrl string `json:"QueueUrl,omitempty"`
}

// SendMessageResponse maps to the output of a successful SendMessage action.
// Unlike a networked queue service, the emulator hands the receipt handle back
// to the producer so tests can address the message directly.
type SendMessageResponse struct {
	// MD5OfMessageAttributes is the MD5 digest of the message attributes.
	MD5OfMessageAttributes *string `json:"MD5OfMessageAttributes,omitempty"`
	// MD5OfMessageBody is the MD5 digest of the message body.
	MD5OfMessageBody string `json:"MD5OfMessageBody"`
	// MessageId is the unique identifier for the sent message.
	MessageId string `json:"MessageId"`
	// ReceiptHandle is the handle allocated to the message.
	ReceiptHandle ReceiptHandle `json:"ReceiptHandle"`
}

// --- Batch Operation Models ---

// SendMessageBatchRequest defines the parameters for the SendMessageBatch action.
type SendMessageBatchRequest struct {
	// QueueUrl is the URL of the queue.
	QueueUrl string `json:"QueueUrl"`
	// Entries is the list of messages to send.
	Entries []SendMessageBatchRequestEntry `json:"Entries"`
}

// SendMessageBatchRequestEntry defines a single message within a batch send request.
// Each entry has a unique ID within the batch for correlating results.
type SendMessageBatchRequestEntry struct {
	// Id is an identifier for this entry, unique within the batch.
	Id string `json:"Id"`
	// MessageBody is the body of the message.
	MessageBody string `json:"MessageBody"`
	// DelaySeconds is the per-message delay.
	DelaySeconds *int32 `json:"DelaySeconds,omitempty"`
	// MessageAttributes is a map of custom attributes for the message.
	MessageAttributes map[string]MessageAttributeValue `json:"MessageAttributes,omitempty"`
}

// SendMessageBatchResponse defines the structure for the SendMessageBatch action's output.
// It separates results into successful and failed entries. Results keeps one
// outcome per request entry, in request order.
type SendMessageBatchResponse struct {
	// Successful is the list of entries that were enqueued.
	Successful []SendMessageBatchResultEntry `json:"Successful"`
	// Failed is the list of entries that were rejected.
	Failed []BatchResultErrorEntry `json:"Failed"`
	// Results holds the per-entry outcomes in request order.
	Results []BatchEntryOutcome `json:"-"`
}

// SendMessageBatchResultEntry contains the details of a successfully sent message in a batch.
// It mirrors the single SendMessageResponse but includes the original entry ID.
type SendMessageBatchResultEntry struct {
	// Id is the entry ID from the request.
	Id string `json:"Id"`
	// MD5OfMessageAttributes is the MD5 digest of the message attributes.
	MD5OfMessageAttributes *string `json:"MD5OfMessageAttributes,omitempty"`
	// MD5OfMessageBody is the MD5 digest of the message body.
	MD5OfMessageBody string `json:"MD5OfMessageBody"`
	// MessageId is the unique identifier for the message.
	MessageId string `json:"MessageId"`
	// ReceiptHandle is the handle allocated to the message.
	ReceiptHandle ReceiptHandle `json:"ReceiptHandle"`
}

// BatchResultErrorEntry contains the details of a failed message in a batch operation.
// It includes the original ID, an error code, a message, and whether the sender was at fault.
type BatchResultErrorEntry struct {
	// Id is the entry ID from the request.
	Id string `json:"Id"`
	// Code is the error code.
	Code string `json:"Code"`
	// Message is a human readable description of the failure.
	Message string `json:"Message"`
	// SenderFault indicates whether the error was caused by the sender.
	SenderFault bool `json:"SenderFault"`
}

// BatchEntryOutcome is the outcome of one batch entry: exactly one of Result and Err is set.
type BatchEntryOutcome struct {
	Id     string
	Result *SendMessageBatchResultEntry
	Err    error
}

// ReceiveMessageRequest maps to the input of a ReceiveMessage action.
// The durations are expressed in (possibly fractional) seconds. A nil duration
// means "use the default", while an explicit zero means zero.
type ReceiveMessageRequest struct {
	// AttributeNames is a list of system attributes to return along with each message.
	AttributeNames []string `json:"AttributeNames,omitempty"`
	// MaxNumberOfMessages is the maximum number of messages to return (clamped to 0-10).
	MaxNumberOfMessages *int `json:"MaxNumberOfMessages,omitempty"`
	// MessageAttributeNames is a list of message attributes to retrieve.
	MessageAttributeNames []string `json:"MessageAttributeNames,omitempty"`
	// QueueUrl is the URL of the queue to receive messages from.
	QueueUrl string `json:"QueueUrl"`
	// VisibilityTimeout is how long the received messages stay hidden from subsequent receives.
	VisibilityTimeout *float64 `json:"VisibilityTimeout,omitempty"`
	// WaitTimeSeconds is how long the call waits before delivering the reserved batch.
	WaitTimeSeconds *float64 `json:"WaitTimeSeconds,omitempty"`
}

// ReceiveMessageResponse defines the structure for the ReceiveMessage action's output.
type ReceiveMessageResponse struct {
	// Messages is the list of messages received.
	Messages []ResponseMessage `json:"Messages"`
}

// ResponseMessage represents a single message as returned to the client from a ReceiveMessage call.
// It includes the ReceiptHandle, which is required to delete the message.
type ResponseMessage struct {
	// Attributes is a map of the requested system attributes.
	Attributes map[string]string `json:"Attributes,omitempty"`
	// Body is the body of the message.
	Body string `json:"Body"`
	// MD5OfBody is the MD5 digest of the message body.
	MD5OfBody string `json:"MD5OfBody"`
	// MD5OfMessageAttributes is the MD5 digest of all of the message's custom attributes.
	MD5OfMessageAttributes *string `json:"MD5OfMessageAttributes,omitempty"`
	// MessageAttributes is a map of the requested custom message attributes.
	MessageAttributes map[string]MessageAttributeValue `json:"MessageAttributes,omitempty"`
	// MessageId is the unique identifier of the message.
	MessageId string `json:"MessageId"`
	// ReceiptHandle is the token used to delete the message.
	ReceiptHandle ReceiptHandle `json:"ReceiptHandle"`
}

// DeleteMessageRequest defines the parameters for the DeleteMessage action.
// It requires the queue's URL and the specific ReceiptHandle of the message to be deleted.
type DeleteMessageRequest struct {
	// QueueUrl is the URL of the queue.
	QueueUrl string `json:"QueueUrl"`
	// ReceiptHandle is the handle associated with the message to delete.
	ReceiptHandle ReceiptHandle `json:"ReceiptHandle"`
}

// DeleteMessageBatchRequest defines the parameters for the DeleteMessageBatch action.
type DeleteMessageBatchRequest struct {
	// QueueUrl is the URL of the queue.
	QueueUrl string `json:"QueueUrl"`
	// Entries is the list of receipt handles to delete.
	Entries []DeleteMessageBatchRequestEntry `json:"Entries"`
}

// DeleteMessageBatchRequestEntry defines a single message to be deleted in a batch.
type DeleteMessageBatchRequestEntry struct {
	// Id is an identifier for this entry, unique within the batch.
	Id string `json:"Id"`
	// ReceiptHandle is the handle of the message to delete.
	ReceiptHandle ReceiptHandle `json:"ReceiptHandle"`
}

// DeleteMessageBatchResponse defines the structure for the DeleteMessageBatch action's output.
type DeleteMessageBatchResponse struct {
	// Successful is the list of entries that were acknowledged.
	Successful []DeleteMessageBatchResultEntry `json:"Successful"`
	// Failed is the list of entries with malformed handles.
	Failed []BatchResultErrorEntry `json:"Failed"`
}

// DeleteMessageBatchResultEntry contains the ID of a successfully deleted message in a batch.
type DeleteMessageBatchResultEntry struct {
	// Id is the entry ID from the request.
	Id string `json:"Id"`
}

// GetQueueAttributesRequest defines the parameters for the GetQueueAttributes action.
type GetQueueAttributesRequest struct {
	// QueueUrl is the URL of the queue to retrieve attributes for.
	QueueUrl string `json:"QueueUrl"`
	// AttributeNames is a list of attributes to retrieve (e.g., "All", "ApproximateNumberOfMessages").
	AttributeNames []string `json:"AttributeNames"`
}

// GetQueueAttributesResponse defines the structure for the GetQueueAttributes action's output.
type GetQueueAttributesResponse struct {
	// Attributes is a map of the requested queue attributes that the queue recognizes.
	Attributes map[string]string `json:"Attributes"`
}

// CreateQueueRequest maps to the input of the CreateQueue action.
type CreateQueueRequest struct {
	// QueueName is the name of the queue to be created.
	QueueName string `json:"QueueName"`
}

// CreateQueueResponse maps to the output of a successful CreateQueue action.
type CreateQueueResponse struct {
	// QueueURL is the URL of the created queue.
	QueueURL string `json:"QueueUrl"`
}

// ListQueuesRequest defines the parameters for the ListQueues action.
type ListQueuesRequest struct {
	// QueueNamePrefix is an optional filter to list only queues starting with this prefix.
	QueueNamePrefix string `json:"QueueNamePrefix"`
}

// ListQueuesResponse defines the structure for the ListQueues action's output.
type ListQueuesResponse struct {
	// QueueUrls is a list of URLs of the queues that match the request.
	QueueUrls []string `json:"QueueUrls"`
}

// GetQueueURLRequest defines the parameters for the GetQueueUrl action.
type GetQueueURLRequest struct {
	// QueueName is the name of the queue.
	QueueName string `json:"QueueName"`
}

// GetQueueURLResponse defines the structure for the GetQueueUrl action's output.
type GetQueueURLResponse struct {
	// QueueUrl is the URL of the queue.
	QueueUrl string `json:"QueueUrl"`
}

// DeleteQueueRequest defines the parameters for the DeleteQueue action.
type DeleteQueueRequest struct {
	// QueueUrl is the URL of the queue to delete.
	QueueUrl string `json:"QueueUrl"`
}

// PurgeQueueRequest defines the parameters for the PurgeQueue action.
type PurgeQueueRequest struct {
	// QueueUrl is the URL of the queue to purge.
	QueueUrl string `json:"QueueUrl"`
}

// ErrorResponse defines the JSON error envelope returned by the HTTP facade.
type ErrorResponse struct {
	// Type is the error code (e.g., "InvalidParameterValue").
	Type string `json:"__type"`
	// Message is the descriptive error message.
	Message string `json:"message"`
}
