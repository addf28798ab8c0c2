// Package sqsapi lets code written against the AWS SDK v2 SQS client run
// against emulated queues. Client has the same method signatures as
// *sqs.Client for the operations the emulator supports, so a consumer or
// producer that depends on a narrow interface (see API) can be handed either.
package sqsapi

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"
	"github.com/tabeth/fakesqs/emulator"
	"github.com/tabeth/fakesqs/models"
	"github.com/tabeth/fakesqs/store"
)

// API is the subset of the SQS client the emulator implements.
type API interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	DeleteMessageBatch(ctx context.Context, params *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
	PurgeQueue(ctx context.Context, params *sqs.PurgeQueueInput, optFns ...func(*sqs.Options)) (*sqs.PurgeQueueOutput, error)
}

// Compile-time checks that the emulator and the real client are interchangeable.
var (
	_ API = (*Client)(nil)
	_ API = (*sqs.Client)(nil)
)

// QueueResolver finds the queue a request addresses. *emulator.Registry implements it.
type QueueResolver interface {
	Lookup(queueURL string) (*emulator.Queue, error)
}

// Client serves SQS SDK calls from emulated queues. Each call blocks until
// the emulated call resolves or ctx is done. The optFns are accepted for
// signature compatibility and ignored.
type Client struct {
	queues QueueResolver
	log    *slog.Logger
}

// New creates a Client. A nil logger means slog.Default().
func New(queues QueueResolver, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		queues: queues,
		log:    logger.With("component", "sqsapi"),
	}
}

func (c *Client) SendMessage(ctx context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	q, err := c.lookup(params.QueueUrl)
	if err != nil {
		return nil, err
	}
	req := &models.SendMessageRequest{
		MessageBody:       aws.ToString(params.MessageBody),
		MessageAttributes: fromSDKAttributes(params.MessageAttributes),
		QueueUrl:          aws.ToString(params.QueueUrl),
	}
	if params.DelaySeconds != 0 {
		req.DelaySeconds = aws.Int32(params.DelaySeconds)
	}

	resp, err := q.SendMessage(req).Wait(ctx)
	if err != nil {
		return nil, toSDKError(err)
	}
	return &sqs.SendMessageOutput{
		MD5OfMessageAttributes: resp.MD5OfMessageAttributes,
		MD5OfMessageBody:       aws.String(resp.MD5OfMessageBody),
		MessageId:              aws.String(resp.MessageId),
	}, nil
}

func (c *Client) SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, _ ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error) {
	q, err := c.lookup(params.QueueUrl)
	if err != nil {
		return nil, err
	}
	entries := make([]models.SendMessageBatchRequestEntry, len(params.Entries))
	for i, e := range params.Entries {
		entries[i] = models.SendMessageBatchRequestEntry{
			Id:                aws.ToString(e.Id),
			MessageBody:       aws.ToString(e.MessageBody),
			MessageAttributes: fromSDKAttributes(e.MessageAttributes),
		}
		if e.DelaySeconds != 0 {
			entries[i].DelaySeconds = aws.Int32(e.DelaySeconds)
		}
	}

	resp, err := q.SendMessageBatch(entries).Wait(ctx)
	if err != nil {
		return nil, toSDKError(err)
	}
	out := &sqs.SendMessageBatchOutput{
		Successful: make([]types.SendMessageBatchResultEntry, 0, len(resp.Successful)),
		Failed:     toSDKFailures(resp.Failed),
	}
	for _, s := range resp.Successful {
		out.Successful = append(out.Successful, types.SendMessageBatchResultEntry{
			Id:                     aws.String(s.Id),
			MD5OfMessageAttributes: s.MD5OfMessageAttributes,
			MD5OfMessageBody:       aws.String(s.MD5OfMessageBody),
			MessageId:              aws.String(s.MessageId),
		})
	}
	return out, nil
}

// ReceiveMessage maps the SDK's zero values the way the service treats them:
// MaxNumberOfMessages 0 means one message, VisibilityTimeout 0 means the
// queue default, WaitTimeSeconds 0 means no wait.
func (c *Client) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	q, err := c.lookup(params.QueueUrl)
	if err != nil {
		return nil, err
	}
	opts := emulator.DefaultReceiveOptions()
	if params.MaxNumberOfMessages != 0 {
		opts.MaxMessages = int(params.MaxNumberOfMessages)
	}
	opts.WaitTime = seconds(params.WaitTimeSeconds)
	if params.VisibilityTimeout != 0 {
		opts.VisibilityTimeout = seconds(params.VisibilityTimeout)
	}
	opts.MessageAttributeNames = params.MessageAttributeNames
	for _, name := range params.MessageSystemAttributeNames {
		opts.AttributeNames = append(opts.AttributeNames, string(name))
	}
	for _, name := range params.AttributeNames {
		opts.AttributeNames = append(opts.AttributeNames, string(name))
	}

	msgs, err := q.Receive(opts).Wait(ctx)
	if err != nil {
		return nil, toSDKError(err)
	}
	out := &sqs.ReceiveMessageOutput{Messages: make([]types.Message, 0, len(msgs))}
	for _, m := range msgs {
		out.Messages = append(out.Messages, types.Message{
			Attributes:             m.Attributes,
			Body:                   aws.String(m.Body),
			MD5OfBody:              aws.String(m.MD5OfBody),
			MD5OfMessageAttributes: m.MD5OfMessageAttributes,
			MessageAttributes:      toSDKAttributes(m.MessageAttributes),
			MessageId:              aws.String(m.MessageId),
			ReceiptHandle:          aws.String(m.ReceiptHandle.String()),
		})
	}
	return out, nil
}

func (c *Client) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	q, err := c.lookup(params.QueueUrl)
	if err != nil {
		return nil, err
	}
	if _, err := q.DeleteMessage(models.ReceiptHandle(aws.ToString(params.ReceiptHandle))).Wait(ctx); err != nil {
		return nil, toSDKError(err)
	}
	return &sqs.DeleteMessageOutput{}, nil
}

func (c *Client) DeleteMessageBatch(ctx context.Context, params *sqs.DeleteMessageBatchInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error) {
	q, err := c.lookup(params.QueueUrl)
	if err != nil {
		return nil, err
	}
	entries := make([]models.DeleteMessageBatchRequestEntry, len(params.Entries))
	for i, e := range params.Entries {
		entries[i] = models.DeleteMessageBatchRequestEntry{
			Id:            aws.ToString(e.Id),
			ReceiptHandle: models.ReceiptHandle(aws.ToString(e.ReceiptHandle)),
		}
	}

	resp, err := q.DeleteMessageBatch(entries).Wait(ctx)
	if err != nil {
		return nil, toSDKError(err)
	}
	out := &sqs.DeleteMessageBatchOutput{
		Successful: make([]types.DeleteMessageBatchResultEntry, 0, len(resp.Successful)),
		Failed:     toSDKFailures(resp.Failed),
	}
	for _, s := range resp.Successful {
		out.Successful = append(out.Successful, types.DeleteMessageBatchResultEntry{Id: aws.String(s.Id)})
	}
	return out, nil
}

func (c *Client) GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, _ ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error) {
	q, err := c.lookup(params.QueueUrl)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(params.AttributeNames))
	for i, name := range params.AttributeNames {
		names[i] = string(name)
	}
	attrs, err := q.GetQueueAttributes(names).Wait(ctx)
	if err != nil {
		return nil, toSDKError(err)
	}
	return &sqs.GetQueueAttributesOutput{Attributes: attrs}, nil
}

func (c *Client) PurgeQueue(ctx context.Context, params *sqs.PurgeQueueInput, _ ...func(*sqs.Options)) (*sqs.PurgeQueueOutput, error) {
	q, err := c.lookup(params.QueueUrl)
	if err != nil {
		return nil, err
	}
	if _, err := q.PurgeQueue().Wait(ctx); err != nil {
		return nil, toSDKError(err)
	}
	return &sqs.PurgeQueueOutput{}, nil
}

func (c *Client) lookup(queueURL *string) (*emulator.Queue, error) {
	q, err := c.queues.Lookup(aws.ToString(queueURL))
	if err != nil {
		c.log.Debug("queue lookup failed", "queue_url", aws.ToString(queueURL), "error", err)
		return nil, toSDKError(err)
	}
	return q, nil
}

// toSDKError converts emulator errors to the typed errors the SDK returns, so
// callers can match them with errors.As as they would against the service.
// Context errors pass through unchanged.
func toSDKError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	msg := aws.String(err.Error())

	var verr *emulator.ValidationError
	switch {
	case errors.Is(err, store.ErrInvalidReceiptHandle):
		return &types.ReceiptHandleIsInvalid{Message: msg}
	case errors.Is(err, store.ErrQueueDoesNotExist), errors.Is(err, emulator.ErrQueueClosed):
		return &types.QueueDoesNotExist{Message: msg}
	case errors.Is(err, emulator.ErrEmptyBatch):
		return &types.EmptyBatchRequest{Message: msg}
	case errors.Is(err, emulator.ErrTooManyEntries):
		return &types.TooManyEntriesInBatchRequest{Message: msg}
	case errors.Is(err, emulator.ErrBatchEntryIdsNotDistinct):
		return &types.BatchEntryIdsNotDistinct{Message: msg}
	case errors.Is(err, emulator.ErrInvalidBatchEntryID):
		return &types.InvalidBatchEntryId{Message: msg}
	case errors.As(err, &verr) && verr.Field == "MessageBody":
		return &types.InvalidMessageContents{Message: msg}
	case errors.As(err, &verr):
		return &smithy.GenericAPIError{Code: emulator.ErrorCode(err), Message: err.Error(), Fault: smithy.FaultClient}
	default:
		return &smithy.GenericAPIError{Code: emulator.ErrorCode(err), Message: err.Error(), Fault: smithy.FaultServer}
	}
}

func toSDKFailures(failed []models.BatchResultErrorEntry) []types.BatchResultErrorEntry {
	out := make([]types.BatchResultErrorEntry, 0, len(failed))
	for _, f := range failed {
		out = append(out, types.BatchResultErrorEntry{
			Id:          aws.String(f.Id),
			Code:        aws.String(f.Code),
			Message:     aws.String(f.Message),
			SenderFault: f.SenderFault,
		})
	}
	return out
}

func fromSDKAttributes(attrs map[string]types.MessageAttributeValue) map[string]models.MessageAttributeValue {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]models.MessageAttributeValue, len(attrs))
	for name, v := range attrs {
		out[name] = models.MessageAttributeValue{
			BinaryListValues: v.BinaryListValues,
			BinaryValue:      v.BinaryValue,
			DataType:         aws.ToString(v.DataType),
			StringListValues: v.StringListValues,
			StringValue:      v.StringValue,
		}
	}
	return out
}

func toSDKAttributes(attrs map[string]models.MessageAttributeValue) map[string]types.MessageAttributeValue {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]types.MessageAttributeValue, len(attrs))
	for name, v := range attrs {
		out[name] = types.MessageAttributeValue{
			BinaryListValues: v.BinaryListValues,
			BinaryValue:      v.BinaryValue,
			DataType:         aws.String(v.DataType),
			StringListValues: v.StringListValues,
			StringValue:      v.StringValue,
		}
	}
	return out
}

func seconds(s int32) time.Duration {
	return time.Duration(s) * time.Second
}
