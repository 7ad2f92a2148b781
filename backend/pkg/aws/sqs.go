package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
)

// ErrPermanent marks a message that can never be processed. The consumer
// deletes it instead of letting it become visible again.
var ErrPermanent = errors.New("permanent message failure")

// SQSQueue sends to and polls a single SQS queue.
type SQSQueue struct {
	client   *sqs.Client
	queueURL string
	logger   *zap.Logger
	// errorBackoff is the pause after a failed ReceiveMessage call.
	errorBackoff time.Duration
}

// NewSQSQueue creates a queue handle for the given queue URL
func NewSQSQueue(cfg aws.Config, queueURL string, logger *zap.Logger) *SQSQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQSQueue{
		client:       sqs.NewFromConfig(cfg),
		queueURL:     queueURL,
		logger:       logger,
		errorBackoff: 5 * time.Second,
	}
}

// MessageHandler is a function that processes an SQS message
type MessageHandler func(ctx context.Context, body string) error

// StartPolling long-polls the queue until ctx is cancelled.
func (q *SQSQueue) StartPolling(ctx context.Context, handler MessageHandler) error {
	q.logger.Info("starting sqs polling", zap.String("queue_url", q.queueURL))

	for {
		select {
		case <-ctx.Done():
			q.logger.Info("sqs polling stopped", zap.String("queue_url", q.queueURL))
			return ctx.Err()
		default:
		}

		if err := q.pollOnce(ctx, handler); err != nil {
			if ctx.Err() != nil {
				continue
			}
			q.logger.Warn("sqs poll failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(q.errorBackoff):
			}
		}
	}
}

func (q *SQSQueue) pollOnce(ctx context.Context, handler MessageHandler) error {
	result, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            &q.queueURL,
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   30,
	})
	if err != nil {
		return fmt.Errorf("failed to receive messages: %w", err)
	}

	for _, msg := range result.Messages {
		if msg.Body == nil {
			continue
		}

		if err := handler(ctx, *msg.Body); err != nil && !errors.Is(err, ErrPermanent) {
			// visible again after VisibilityTimeout
			q.logger.Warn("sqs message processing failed, will retry",
				zap.String("message_id", aws.ToString(msg.MessageId)),
				zap.Error(err),
			)
			continue
		}

		if _, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      &q.queueURL,
			ReceiptHandle: msg.ReceiptHandle,
		}); err != nil {
			q.logger.Warn("sqs delete failed", zap.String("message_id", aws.ToString(msg.MessageId)), zap.Error(err))
		}
	}

	return nil
}

// SendMessageBatch sends messages in chunks of ten, the SQS batch limit.
func (q *SQSQueue) SendMessageBatch(ctx context.Context, messages []string) error {
	for i := 0; i < len(messages); i += 10 {
		end := i + 10
		if end > len(messages) {
			end = len(messages)
		}

		entries := make([]types.SendMessageBatchRequestEntry, 0, end-i)
		for j, msg := range messages[i:end] {
			entries = append(entries, types.SendMessageBatchRequestEntry{
				Id:          aws.String(fmt.Sprintf("msg-%d", j)),
				MessageBody: aws.String(msg),
			})
		}

		out, err := q.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
			QueueUrl: &q.queueURL,
			Entries:  entries,
		})
		if err != nil {
			return fmt.Errorf("failed to send batch: %w", err)
		}
		if len(out.Failed) > 0 {
			return fmt.Errorf("failed to send %d of %d messages: %s", len(out.Failed), len(entries), aws.ToString(out.Failed[0].Message))
		}
	}

	return nil
}
