package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/database"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/models"
	"go.uber.org/zap"
)

var ErrReviewNotFound = errors.New("order not in review list")

// ReviewRepository holds orders the server kept rejecting, plus the
// per-order rejection ledger used to decide when to move them there.
type ReviewRepository struct {
	store  database.Store
	logger *zap.Logger
	mu     sync.Mutex
}

func NewReviewRepository(store database.Store, logger *zap.Logger) *ReviewRepository {
	return &ReviewRepository{
		store:  store,
		logger: logger,
	}
}

func (r *ReviewRepository) List(ctx context.Context) ([]models.ReviewEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(ctx)
}

func (r *ReviewRepository) list(ctx context.Context) ([]models.ReviewEntry, error) {
	var entries []models.ReviewEntry
	if err := readJSON(ctx, r.store, r.logger, ReviewKey, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.ReviewEntry{}
	}
	return entries, nil
}

// Add appends entries. An entry whose local id is already under review
// replaces the existing one in place.
func (r *ReviewRepository) Add(ctx context.Context, entries ...models.ReviewEntry) error {
	if len(entries) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.list(ctx)
	if err != nil {
		return err
	}

	index := make(map[string]int, len(current))
	for i, e := range current {
		index[e.Order.LocalID] = i
	}
	for _, e := range entries {
		if i, ok := index[e.Order.LocalID]; ok {
			current[i] = e
			continue
		}
		index[e.Order.LocalID] = len(current)
		current = append(current, e)
	}
	return writeJSON(ctx, r.store, ReviewKey, current)
}

// Take removes the entry for localID and returns it.
func (r *ReviewRepository) Take(ctx context.Context, localID string) (models.ReviewEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.list(ctx)
	if err != nil {
		return models.ReviewEntry{}, err
	}

	for i, e := range current {
		if e.Order.LocalID != localID {
			continue
		}
		rest := append(current[:i:i], current[i+1:]...)
		if err := writeJSON(ctx, r.store, ReviewKey, rest); err != nil {
			return models.ReviewEntry{}, err
		}
		return e, nil
	}
	return models.ReviewEntry{}, ErrReviewNotFound
}

// Rejections returns the rejection count per local id.
func (r *ReviewRepository) Rejections(ctx context.Context) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rejections(ctx)
}

func (r *ReviewRepository) rejections(ctx context.Context) (map[string]int, error) {
	ledger := map[string]int{}
	if err := readJSON(ctx, r.store, r.logger, RejectionsKey, &ledger); err != nil {
		return nil, err
	}
	if ledger == nil {
		ledger = map[string]int{}
	}
	return ledger, nil
}

// RecordRejection increments and returns the rejection count for localID.
func (r *ReviewRepository) RecordRejection(ctx context.Context, localID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ledger, err := r.rejections(ctx)
	if err != nil {
		return 0, err
	}
	ledger[localID]++
	if err := writeJSON(ctx, r.store, RejectionsKey, ledger); err != nil {
		return 0, err
	}
	return ledger[localID], nil
}

// ClearRejections drops the ledger entries for the given local ids.
func (r *ReviewRepository) ClearRejections(ctx context.Context, localIDs ...string) error {
	if len(localIDs) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	ledger, err := r.rejections(ctx)
	if err != nil {
		return err
	}
	changed := false
	for _, id := range localIDs {
		if _, ok := ledger[id]; ok {
			delete(ledger, id)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return writeJSON(ctx, r.store, RejectionsKey, ledger)
}
