package main

import (
	"context"
	"encoding/json"
	"fmt"

	ordermodels "github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/models"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/models"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/repository"
	"go.uber.org/zap"
)

// batchSender is satisfied by *awspkg.SQSQueue.
type batchSender interface {
	SendMessageBatch(ctx context.Context, messages []string) error
}

// commitRequest maps a queued order onto the body the order-service commit
// consumer expects.
func commitRequest(o models.QueuedOrder) ordermodels.CommitOrderRequest {
	items := make([]ordermodels.CommitOrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ordermodels.CommitOrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}
	createdAt := o.CreatedAtLocal
	return ordermodels.CommitOrderRequest{
		LocalID:        o.LocalID,
		Items:          items,
		TotalAmount:    o.TotalAmount,
		PaymentMethod:  string(o.PaymentMethod),
		CustomerID:     o.CustomerID,
		CashierID:      o.CashierID,
		CreatedAtLocal: &createdAt,
	}
}

// exportQueue forwards every queued order to the commit queue. The local
// queue is left untouched: the order service keys commits by local id, so the
// terminal's next sync acknowledges what the consumer already committed and
// keeps anything it rejected in review.
func exportQueue(ctx context.Context, queue *repository.QueueRepository, sender batchSender, logger *zap.Logger) (int, error) {
	snapshot, err := queue.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load queue: %w", err)
	}
	if len(snapshot) == 0 {
		return 0, nil
	}

	messages := make([]string, 0, len(snapshot))
	for _, o := range snapshot {
		body, err := json.Marshal(commitRequest(o))
		if err != nil {
			return 0, fmt.Errorf("encode order %s: %w", o.LocalID, err)
		}
		messages = append(messages, string(body))
	}

	if err := sender.SendMessageBatch(ctx, messages); err != nil {
		return 0, err
	}
	logger.Info("queued orders forwarded", zap.Int("count", len(messages)))
	return len(messages), nil
}
