package notify

import (
	"context"
	"encoding/json"
	"time"

	awspkg "github.com/bambudeliciascafe2025/systemPOSPlus/backend/pkg/aws"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/models"
	"go.uber.org/zap"
)

const snsPublishTimeout = 5 * time.Second

// DefaultSNSEvents are the events the back office cares about.
var DefaultSNSEvents = []models.EventType{
	models.EventSynced,
	models.EventSyncFailed,
	models.EventReview,
}

// SNSNotifier forwards selected events to an SNS topic, tagged with the
// terminal id.
type SNSNotifier struct {
	publisher  awspkg.SNSPublisher
	topicArn   string
	terminalID string
	events     map[models.EventType]bool
	logger     *zap.Logger
}

// NewSNSNotifier publishes only the given event types, DefaultSNSEvents when
// none are given.
func NewSNSNotifier(publisher awspkg.SNSPublisher, topicArn, terminalID string, logger *zap.Logger, events ...models.EventType) *SNSNotifier {
	if len(events) == 0 {
		events = DefaultSNSEvents
	}
	set := make(map[models.EventType]bool, len(events))
	for _, e := range events {
		set[e] = true
	}
	return &SNSNotifier{
		publisher:  publisher,
		topicArn:   topicArn,
		terminalID: terminalID,
		events:     set,
		logger:     logger,
	}
}

func (n *SNSNotifier) Notify(ctx context.Context, evt models.Event) {
	if !n.events[evt.Type] {
		return
	}
	evt.TerminalID = n.terminalID

	body, err := json.Marshal(evt)
	if err != nil {
		n.logger.Error("Failed to encode event for SNS", zap.Error(err))
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snsPublishTimeout)
	defer cancel()
	if err := n.publisher.Publish(pubCtx, n.topicArn, body); err != nil {
		n.logger.Warn("Failed to publish event to SNS",
			zap.String("event", string(evt.Type)),
			zap.String("topic_arn", n.topicArn),
			zap.Error(err),
		)
	}
}
