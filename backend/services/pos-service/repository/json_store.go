package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/database"
	"go.uber.org/zap"
)

// Storage keys shared by every terminal backend.
const (
	QueueKey      = "offlineOrdersQueue"
	CartKey       = "pos_cart"
	ReviewKey     = "offlineOrdersReview"
	RejectionsKey = "offlineOrdersRejections"

	corruptSuffix = ".corrupt"
)

// readJSON decodes the value under key into dst. A missing key leaves dst
// untouched. Undecodable data, including well-formed JSON of the wrong shape,
// is copied to key+".corrupt", logged and treated as missing so the terminal
// keeps selling. dst is only assigned after a complete decode.
func readJSON[T any](ctx context.Context, store database.Store, logger *zap.Logger, key string, dst *T) error {
	data, err := store.Get(ctx, key)
	if errors.Is(err, database.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var decoded T
	if err := json.Unmarshal(data, &decoded); err != nil {
		logger.Error("Corrupt data in local storage, treating as empty",
			zap.String("key", key),
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		if bErr := store.Set(ctx, key+corruptSuffix, data); bErr != nil {
			logger.Warn("Failed to back up corrupt data", zap.String("key", key), zap.Error(bErr))
		}
		return nil
	}
	*dst = decoded
	return nil
}

func writeJSON(ctx context.Context, store database.Store, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return store.Set(ctx, key, data)
}
