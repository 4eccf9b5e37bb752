package mv

import (
	"context"
	"fmt"

	"mediavault/internal/model"
)

// ComputeStorageStats sums the bytes of every retained blob: one per file row
// (its version 1) and one per version row.
func (s *MVService) ComputeStorageStats(ctx context.Context) (*model.StorageStats, error) {
	stats, err := s.catalog.StorageStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("computing storage stats: %w", err)
	}
	return stats, nil
}
