package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.uber.org/zap"
)

// SNSPublisher is a minimal interface for publishing messages to SNS.
type SNSPublisher interface {
	Publish(ctx context.Context, topicArn string, message []byte) error
}

type SNSClient struct {
	client *sns.Client
	// source is attached to every message as the "source" attribute so
	// subscribers can filter per terminal or service.
	source string
}

func NewSNSClient(cfg sdkaws.Config, source string) *SNSClient {
	return &SNSClient{client: sns.NewFromConfig(cfg), source: source}
}

// Publish publishes a raw message to the given SNS topic ARN.
func (s *SNSClient) Publish(ctx context.Context, topicArn string, message []byte) error {
	if topicArn == "" {
		return fmt.Errorf("empty topicArn")
	}

	input := &sns.PublishInput{
		TopicArn: sdkaws.String(topicArn),
		Message:  sdkaws.String(string(message)),
	}
	if s.source != "" {
		input.MessageAttributes = map[string]types.MessageAttributeValue{
			"source": {DataType: sdkaws.String("String"), StringValue: sdkaws.String(s.source)},
		}
	}

	if _, err := s.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("sns publish failed for topic %s: %w", topicArn, err)
	}
	zap.L().Debug("sns message published", zap.String("topic_arn", topicArn), zap.Int("message_len", len(message)))
	return nil
}
