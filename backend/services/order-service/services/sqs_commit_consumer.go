package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	awspkg "github.com/bambudeliciascafe2025/systemPOSPlus/backend/pkg/aws"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/models"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/repository"
	"go.uber.org/zap"
)

// MessagePoller is satisfied by *awspkg.SQSQueue.
type MessagePoller interface {
	StartPolling(ctx context.Context, handler awspkg.MessageHandler) error
}

// SQSCommitConsumer commits orders that terminals forwarded to the commit
// queue instead of calling POST /orders/commit.
type SQSCommitConsumer struct {
	queue    MessagePoller
	orders   OrderService
	rejected repository.RejectedCommitRepository
	metrics  *awspkg.MetricsClient
	logger   *zap.Logger
}

func NewSQSCommitConsumer(queue MessagePoller, orders OrderService, rejected repository.RejectedCommitRepository, metrics *awspkg.MetricsClient, logger *zap.Logger) *SQSCommitConsumer {
	return &SQSCommitConsumer{
		queue:    queue,
		orders:   orders,
		rejected: rejected,
		metrics:  metrics,
		logger:   logger,
	}
}

// Start blocks until ctx is cancelled.
func (c *SQSCommitConsumer) Start(ctx context.Context) {
	c.logger.Info("starting commit queue consumer")

	if err := c.queue.StartPolling(ctx, c.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("commit queue polling stopped", zap.Error(err))
	}
}

// HandleMessage commits one queued order. Malformed and rejected requests are
// parked in the rejected commits table and then reported as permanent so the
// message is deleted. If parking fails the message is retried like any other
// failure.
func (c *SQSCommitConsumer) HandleMessage(ctx context.Context, body string) error {
	// unwrap SNS envelope if the queue is subscribed to a topic
	var envelope struct {
		Type    string `json:"Type"`
		Message string `json:"Message"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err == nil && envelope.Type == "Notification" && envelope.Message != "" {
		body = envelope.Message
	}

	var req models.CommitOrderRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return c.park(ctx, "", 400, "invalid json: "+err.Error(), body)
	}

	resp, svcErr := c.orders.CommitOrder(ctx, &req)
	if svcErr != nil {
		if svcErr.Permanent() {
			return c.park(ctx, req.LocalID, svcErr.StatusCode, svcErr.Message, body)
		}
		return svcErr
	}

	c.logger.Info("queued order committed",
		zap.String("local_id", req.LocalID),
		zap.String("order_id", resp.OrderID),
		zap.Bool("duplicate", resp.Duplicate),
	)

	if c.metrics.IsEnabled() {
		go func() {
			mctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = c.metrics.RecordCount(mctx, awspkg.MetricSQSMessages, map[string]string{"Service": "order-service", "Queue": "commit"})
		}()
	}
	return nil
}

func (c *SQSCommitConsumer) park(ctx context.Context, localID string, status int, reason, body string) error {
	rejected := &models.RejectedCommit{
		LocalID:    localID,
		StatusCode: status,
		Reason:     reason,
		Body:       body,
	}
	if err := c.rejected.Save(ctx, rejected); err != nil {
		c.logger.Error("failed to park rejected commit, leaving it on the queue",
			zap.String("local_id", localID),
			zap.Error(err),
		)
		return fmt.Errorf("park rejected commit: %w", err)
	}

	c.logger.Warn("commit message rejected and parked",
		zap.String("local_id", localID),
		zap.Int("status", status),
		zap.String("reason", reason),
		zap.String("rejected_id", rejected.ID.String()),
	)
	return fmt.Errorf("%w: %s", awspkg.ErrPermanent, reason)
}
