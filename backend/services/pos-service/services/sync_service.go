package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	awspkg "github.com/bambudeliciascafe2025/systemPOSPlus/backend/pkg/aws"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/models"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/network"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/notify"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/repository"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultMaxRejections = 3

type SyncConfig struct {
	// MaxRejections is how many validation rejections an order gets before
	// it moves to the review list. Zero or less keeps it queued forever.
	MaxRejections int
	// Rate limits submissions per second during a pass. Zero means no limit.
	Rate  float64
	Burst int
}

// SyncService drains the offline queue through the order client. Passes
// are serial, follow enqueue order and never overlap.
type SyncService struct {
	queue    *repository.QueueRepository
	review   *repository.ReviewRepository
	client   OrderClient
	notifier notify.Notifier
	metrics  *awspkg.MetricsClient
	logger   *zap.Logger

	limiter       *rate.Limiter
	maxRejections int
	now           func() time.Time

	running sync.Mutex
	syncing atomic.Bool
	wg      sync.WaitGroup

	lastMu sync.Mutex
	last   *models.SyncOutcome
}

func NewSyncService(
	queue *repository.QueueRepository,
	review *repository.ReviewRepository,
	client OrderClient,
	notifier notify.Notifier,
	metrics *awspkg.MetricsClient,
	logger *zap.Logger,
	cfg SyncConfig,
) *SyncService {
	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	if notifier == nil {
		notifier = notify.Multi{}
	}
	return &SyncService{
		queue:         queue,
		review:        review,
		client:        client,
		notifier:      notifier,
		metrics:       metrics,
		logger:        logger,
		limiter:       rate.NewLimiter(limit, burst),
		maxRejections: cfg.MaxRejections,
		now:           time.Now,
	}
}

// Sync runs one pass over the persisted queue. If a pass is already
// running it returns immediately with Skipped set. Per-order failures never
// abort the pass; the returned error is only for local storage failures.
func (s *SyncService) Sync(ctx context.Context) (models.SyncOutcome, error) {
	if !s.running.TryLock() {
		s.logger.Debug("Sync already in progress, trigger ignored")
		return models.SyncOutcome{Skipped: true}, nil
	}
	defer s.running.Unlock()
	s.syncing.Store(true)
	defer s.syncing.Store(false)

	outcome := models.SyncOutcome{StartedAt: s.now().UTC(), Residual: []models.QueuedOrder{}}

	// always start from what is on disk, never from memory
	snapshot, err := s.queue.Load(ctx)
	if err != nil {
		return outcome, &PersistenceError{Op: "load queue", Err: err}
	}
	if len(snapshot) == 0 {
		return outcome, nil
	}

	s.logger.Info("Sync pass started", zap.Int("queued", len(snapshot)))
	s.notifier.Notify(ctx, models.Event{
		Type:    models.EventSyncing,
		Message: fmt.Sprintf("Syncing %d offline orders...", len(snapshot)),
		Count:   len(snapshot),
		At:      s.now().UTC(),
	})

	// results are persisted even if ctx is cancelled mid-pass
	persistCtx := context.WithoutCancel(ctx)

	var (
		residual  []models.QueuedOrder
		toReview  []models.ReviewEntry
		committed []string
	)

	for i, order := range snapshot {
		if err := s.limiter.Wait(ctx); err != nil {
			// pass cancelled between orders; keep the rest
			residual = append(residual, snapshot[i:]...)
			break
		}

		// an order already sent is awaited to completion
		result, err := s.client.CommitOrder(persistCtx, order)
		if err == nil {
			outcome.Succeeded++
			committed = append(committed, order.LocalID)
			s.logger.Info("Offline order synced",
				zap.String("local_id", order.LocalID),
				zap.String("order_id", result.OrderID),
				zap.Bool("duplicate", result.Duplicate),
			)
			continue
		}

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			outcome.Failed++
			residual = append(residual, order)
			s.logger.Warn("Offline order sync failed, will retry",
				zap.String("local_id", order.LocalID),
				zap.String("class", classify(err)),
				zap.Error(err),
			)
			continue
		}

		outcome.Rejected++
		count := s.recordRejection(persistCtx, order.LocalID)
		s.logger.Error("Offline order rejected by server",
			zap.String("local_id", order.LocalID),
			zap.String("class", classify(err)),
			zap.Int("rejections", count),
			zap.Error(err),
		)
		if s.maxRejections > 0 && count >= s.maxRejections {
			toReview = append(toReview, models.ReviewEntry{
				Order:      order,
				Rejections: count,
				LastError:  vErr.Message,
				MovedAt:    s.now().UTC(),
			})
			continue
		}
		residual = append(residual, order)
	}

	// review entries are written before the queue drops them
	if len(toReview) > 0 {
		if err := s.review.Add(persistCtx, toReview...); err != nil {
			s.logger.Error("Failed to move orders to review, keeping them queued", zap.Error(err))
			for _, e := range toReview {
				residual = append(residual, e.Order)
			}
			toReview = nil
		}
	}

	if _, err := s.queue.Reconcile(persistCtx, snapshot, residual); err != nil {
		// committed orders stay queued; the server deduplicates them by local id next pass
		s.logger.Error("Failed to persist sync result", zap.Error(err))
		// the orders are still queued, so they must not also sit in review
		for _, e := range toReview {
			if _, tErr := s.review.Take(persistCtx, e.Order.LocalID); tErr != nil {
				s.logger.Error("Failed to roll back review entry", zap.String("local_id", e.Order.LocalID), zap.Error(tErr))
			}
		}
		outcome.Residual = snapshot
		outcome.Duration = s.now().Sub(outcome.StartedAt)
		return outcome, &PersistenceError{Op: "replace queue", Err: err}
	}

	settled := committed
	for _, e := range toReview {
		settled = append(settled, e.Order.LocalID)
	}
	if err := s.review.ClearRejections(persistCtx, settled...); err != nil {
		s.logger.Warn("Failed to clear rejection ledger", zap.Error(err))
	}

	if residual != nil {
		outcome.Residual = residual
	}
	outcome.MovedToReview = len(toReview)
	outcome.Duration = s.now().Sub(outcome.StartedAt)

	s.report(persistCtx, outcome)
	return outcome, nil
}

func (s *SyncService) recordRejection(ctx context.Context, localID string) int {
	count, err := s.review.RecordRejection(ctx, localID)
	if err != nil {
		s.logger.Warn("Failed to record rejection", zap.String("local_id", localID), zap.Error(err))
		return 0
	}
	return count
}

func (s *SyncService) report(ctx context.Context, outcome models.SyncOutcome) {
	s.lastMu.Lock()
	last := outcome
	s.last = &last
	s.lastMu.Unlock()

	s.logger.Info("Sync pass finished",
		zap.Int("succeeded", outcome.Succeeded),
		zap.Int("failed", outcome.Failed),
		zap.Int("rejected", outcome.Rejected),
		zap.Int("moved_to_review", outcome.MovedToReview),
		zap.Int("remaining", len(outcome.Residual)),
		zap.Duration("duration", outcome.Duration),
	)

	evt := models.Event{
		Type:    models.EventSynced,
		Message: fmt.Sprintf("Sync complete: %d orders synced", outcome.Succeeded),
		Count:   outcome.Succeeded,
		At:      s.now().UTC(),
	}
	if len(outcome.Residual) > 0 {
		evt.Type = models.EventSyncFailed
		evt.Message = fmt.Sprintf("%d orders synced, %d still pending", outcome.Succeeded, len(outcome.Residual))
	}
	s.notifier.Notify(ctx, evt)

	if outcome.MovedToReview > 0 {
		s.notifier.Notify(ctx, models.Event{
			Type:    models.EventReview,
			Message: fmt.Sprintf("%d orders need manual review", outcome.MovedToReview),
			Count:   outcome.MovedToReview,
			At:      s.now().UTC(),
		})
	}

	s.recordMetrics(outcome)
}

func (s *SyncService) recordMetrics(outcome models.SyncOutcome) {
	if !s.metrics.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		dims := map[string]string{"Service": "pos-service"}
		_ = s.metrics.RecordCountN(ctx, awspkg.MetricOfflineSynced, outcome.Succeeded, dims)
		_ = s.metrics.RecordCountN(ctx, awspkg.MetricOfflineFailed, outcome.Failed+outcome.Rejected, dims)
		_ = s.metrics.RecordCountN(ctx, awspkg.MetricOfflineReview, outcome.MovedToReview, dims)
		_ = s.metrics.RecordValue(ctx, awspkg.MetricOfflineQueueLen, float64(len(outcome.Residual)), dims)
		_ = s.metrics.RecordLatency(ctx, awspkg.MetricSyncDuration, outcome.Duration, dims)
	}()
}

// Trigger starts a pass in the background. Overlapping triggers are
// dropped by Sync itself.
func (s *SyncService) Trigger(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.Sync(ctx); err != nil {
			s.logger.Error("Background sync failed", zap.Error(err))
		}
	}()
}

// Wait blocks until background passes started by Trigger have returned.
func (s *SyncService) Wait() {
	s.wg.Wait()
}

// RunPeriodic retries the queue every interval while online, until ctx is
// done.
func (s *SyncService) RunPeriodic(ctx context.Context, interval time.Duration, online func() bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !online() {
				continue
			}
			if n, err := s.queue.Len(ctx); err != nil || n == 0 {
				continue
			}
			if _, err := s.Sync(ctx); err != nil {
				s.logger.Error("Periodic sync failed", zap.Error(err))
			}
		}
	}
}

func (s *SyncService) IsSyncing() bool {
	return s.syncing.Load()
}

func (s *SyncService) LastOutcome() *models.SyncOutcome {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()
	if s.last == nil {
		return nil
	}
	out := *s.last
	return &out
}

// Status reports queue and review sizes with the given connectivity.
func (s *SyncService) Status(ctx context.Context, online bool) (*models.QueueStatus, error) {
	queued, err := s.queue.Len(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "load queue", Err: err}
	}
	review, err := s.review.List(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "load review list", Err: err}
	}
	return &models.QueueStatus{
		Online:      online,
		QueueLength: queued,
		ReviewCount: len(review),
		Syncing:     s.IsSyncing(),
		LastSync:    s.LastOutcome(),
		CheckedAt:   s.now().UTC(),
	}, nil
}

func (s *SyncService) Queue(ctx context.Context) ([]models.QueuedOrder, error) {
	queue, err := s.queue.Load(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "load queue", Err: err}
	}
	return queue, nil
}

func (s *SyncService) ListReview(ctx context.Context) ([]models.ReviewEntry, error) {
	entries, err := s.review.List(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "load review list", Err: err}
	}
	return entries, nil
}

// Requeue moves a reviewed order back to the tail of the queue with a fresh
// rejection count.
func (s *SyncService) Requeue(ctx context.Context, localID string) (*models.QueuedOrder, *ServiceError) {
	entry, err := s.review.Take(ctx, localID)
	if errors.Is(err, repository.ErrReviewNotFound) {
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "Order not found in review list"}
	}
	if err != nil {
		s.logger.Error("Failed to read review list", zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInsufficientStorage, Message: "Local storage unavailable"}
	}

	queued, err := s.queue.Enqueue(ctx, entry.Order)
	if err != nil {
		if addErr := s.review.Add(ctx, entry); addErr != nil {
			s.logger.Error("Failed to restore review entry", zap.String("local_id", localID), zap.Error(addErr))
		}
		s.logger.Error("Failed to requeue order", zap.String("local_id", localID), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInsufficientStorage, Message: "Order could not be saved locally"}
	}

	if err := s.review.ClearRejections(ctx, localID); err != nil {
		s.logger.Warn("Failed to reset rejection count", zap.String("local_id", localID), zap.Error(err))
	}
	s.logger.Info("Order requeued from review", zap.String("local_id", localID))
	return &queued, nil
}

// Discard deletes a reviewed order. This is the only path that drops an
// order without a server commit and it requires an explicit request.
func (s *SyncService) Discard(ctx context.Context, localID string) *ServiceError {
	entry, err := s.review.Take(ctx, localID)
	if errors.Is(err, repository.ErrReviewNotFound) {
		return &ServiceError{StatusCode: http.StatusNotFound, Message: "Order not found in review list"}
	}
	if err != nil {
		s.logger.Error("Failed to read review list", zap.Error(err))
		return &ServiceError{StatusCode: http.StatusInsufficientStorage, Message: "Local storage unavailable"}
	}
	if err := s.review.ClearRejections(ctx, localID); err != nil {
		s.logger.Warn("Failed to reset rejection count", zap.String("local_id", localID), zap.Error(err))
	}

	s.logger.Warn("Reviewed order discarded",
		zap.String("local_id", localID),
		zap.Float64("total_amount", entry.Order.TotalAmount),
		zap.String("last_error", entry.LastError),
	)
	return nil
}

// ConnectivityEvents turns monitor transitions into UI events.
func ConnectivityEvents(ctx context.Context, notifier notify.Notifier) network.Listener {
	return func(state network.State) {
		evt := models.Event{Type: models.EventOffline, Message: "You are offline. Orders will be saved locally.", At: time.Now().UTC()}
		if state == network.Online {
			evt = models.Event{Type: models.EventOnline, Message: "Back online. Syncing pending orders...", At: time.Now().UTC()}
		}
		notifier.Notify(ctx, evt)
	}
}
