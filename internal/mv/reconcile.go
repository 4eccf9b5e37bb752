package mv

import (
	"context"
	"fmt"
	"sort"
)

// ReconcileReport compares the blob store with the catalog.
type ReconcileReport struct {
	// Orphans are stored blobs no catalog row references.
	Orphans []string
	// Missing are referenced keys with no stored blob.
	Missing []string
	// Removed are the orphans deleted during this run.
	Removed []string
}

// Reconcile finds blobs left behind by failed registrations or best-effort
// deletes, and catalog rows whose blob is gone. Orphans are deleted only when
// remove is set. Uploads in flight while this runs may show up as orphans, so
// removal should run while the library is idle.
func (s *MVService) Reconcile(ctx context.Context, remove bool) (_ *ReconcileReport, err error) {
	ctx, span := startSpan(ctx, "mv.Reconcile")
	defer func() { endSpan(span, err) }()

	stored, err := s.blobs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing blobs: %w", err)
	}
	referenced, err := s.catalog.StorageKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing storage keys: %w", err)
	}

	storedSet := make(map[string]bool, len(stored))
	for _, key := range stored {
		storedSet[key] = true
	}
	refSet := make(map[string]bool, len(referenced))
	for _, key := range referenced {
		refSet[key] = true
	}

	report := &ReconcileReport{}
	for key := range storedSet {
		if !refSet[key] {
			report.Orphans = append(report.Orphans, key)
		}
	}
	for key := range refSet {
		if !storedSet[key] {
			report.Missing = append(report.Missing, key)
		}
	}
	sort.Strings(report.Orphans)
	sort.Strings(report.Missing)

	if remove {
		for _, key := range report.Orphans {
			if err := s.blobs.Delete(ctx, key); err != nil {
				s.logger.Warn("orphan delete failed", "key", key, "error", err)
				continue
			}
			report.Removed = append(report.Removed, key)
		}
	}

	s.logger.Info("reconcile complete",
		"orphans", len(report.Orphans),
		"missing", len(report.Missing),
		"removed", len(report.Removed),
	)
	return report, nil
}
