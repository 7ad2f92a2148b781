package repository

import (
	"context"
	"sync"
	"time"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/database"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QueueRepository is the durable, ordered list of orders waiting for a
// server commit. Every mutation is written through before it returns.
type QueueRepository struct {
	store  database.Store
	logger *zap.Logger
	mu     sync.Mutex
	now    func() time.Time
}

func NewQueueRepository(store database.Store, logger *zap.Logger) *QueueRepository {
	return &QueueRepository{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Enqueue appends the order, assigning LocalID and CreatedAtLocal when they
// are unset. An order whose LocalID is already queued is not added again;
// the queued copy is returned. On error nothing was persisted.
func (r *QueueRepository) Enqueue(ctx context.Context, order models.QueuedOrder) (models.QueuedOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.LocalID == "" {
		order.LocalID = uuid.NewString()
	}
	if order.CreatedAtLocal.IsZero() {
		order.CreatedAtLocal = r.now().UTC()
	}

	queue, err := r.load(ctx)
	if err != nil {
		return order, err
	}
	for _, o := range queue {
		if o.LocalID == order.LocalID {
			return o, nil
		}
	}
	queue = append(queue, order)

	if err := writeJSON(ctx, r.store, QueueKey, queue); err != nil {
		return order, err
	}

	r.logger.Info("Order queued offline",
		zap.String("local_id", order.LocalID),
		zap.Int("queue_length", len(queue)),
	)
	return order, nil
}

// Load returns the persisted queue in enqueue order. A missing or corrupt
// queue is returned as empty.
func (r *QueueRepository) Load(ctx context.Context) ([]models.QueuedOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

func (r *QueueRepository) load(ctx context.Context) ([]models.QueuedOrder, error) {
	var queue []models.QueuedOrder
	if err := readJSON(ctx, r.store, r.logger, QueueKey, &queue); err != nil {
		return nil, err
	}
	if queue == nil {
		queue = []models.QueuedOrder{}
	}
	return queue, nil
}

// Replace overwrites the persisted queue.
func (r *QueueRepository) Replace(ctx context.Context, orders []models.QueuedOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if orders == nil {
		orders = []models.QueuedOrder{}
	}
	return writeJSON(ctx, r.store, QueueKey, orders)
}

// Reconcile writes the result of a sync pass. Orders from snapshot are kept
// only if they appear in residual; orders enqueued after the snapshot was
// taken are always kept. Queue order is preserved.
func (r *QueueRepository) Reconcile(ctx context.Context, snapshot, residual []models.QueuedOrder) ([]models.QueuedOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	processed := make(map[string]struct{}, len(snapshot))
	for _, o := range snapshot {
		processed[o.LocalID] = struct{}{}
	}
	keep := make(map[string]struct{}, len(residual))
	for _, o := range residual {
		keep[o.LocalID] = struct{}{}
	}

	next := make([]models.QueuedOrder, 0, len(residual))
	for _, o := range current {
		_, wasProcessed := processed[o.LocalID]
		_, kept := keep[o.LocalID]
		if !wasProcessed || kept {
			next = append(next, o)
		}
	}

	if err := writeJSON(ctx, r.store, QueueKey, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (r *QueueRepository) Len(ctx context.Context) (int, error) {
	queue, err := r.Load(ctx)
	if err != nil {
		return 0, err
	}
	return len(queue), nil
}
