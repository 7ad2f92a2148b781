package notify

import (
	"context"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/models"
	"go.uber.org/zap"
)

// Notifier delivers status events. Delivery is best effort; implementations
// log their own failures.
type Notifier interface {
	Notify(ctx context.Context, evt models.Event)
}

// Multi fans an event out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, evt models.Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, evt)
		}
	}
}

type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, evt models.Event) {
	n.logger.Info(evt.Message,
		zap.String("event", string(evt.Type)),
		zap.Int("count", evt.Count),
		zap.String("local_id", evt.LocalID),
	)
}
