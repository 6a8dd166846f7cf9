package syncer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vipul43/tillsync/internal/models"
)

// PullReport describes one PullAll run
type PullReport struct {
	Mode     models.SyncMode `json:"mode"`
	Attempts int             `json:"attempts"`
	// FellBack is set when incremental attempts were exhausted and a full sync ran
	FellBack bool          `json:"fell_back"`
	Fetched  int           `json:"fetched"`
	Upserted int           `json:"upserted"`
	Deferred int           `json:"deferred"`
	Cleanup  CleanupResult `json:"cleanup"`
}

// CleanupResult reports a deletion cleanup pass. Failures are captured in
// Error rather than returned.
type CleanupResult struct {
	Success    bool   `json:"success"`
	Deleted    int    `json:"deleted"`
	TotalFound int    `json:"total_found"`
	Limited    bool   `json:"limited"`
	Error      string `json:"error,omitempty"`
}

// PullAll reconciles the cache with the server for one organization
func (s *EntityService[W]) PullAll(ctx context.Context, organization string) (PullReport, error) {
	start := s.now()
	defer func() {
		s.metrics.ObservePullDuration(string(s.entity), s.now().Sub(start))
	}()

	last, err := s.meta.LastSyncTimestamp(ctx, s.entity)
	if err != nil {
		return PullReport{}, fmt.Errorf("failed to read sync metadata: %w", err)
	}

	var report PullReport
	var pullErr error
	if last == nil || start.Sub(time.UnixMilli(*last)) > s.policy.FullSyncThreshold {
		report, pullErr = s.pullWithRetries(ctx, organization, models.SyncModeFull, 0)
	} else {
		since := *last - s.policy.IncrementalBuffer.Milliseconds()
		report, pullErr = s.pullWithRetries(ctx, organization, models.SyncModeIncremental, since)
		if pullErr != nil && ctx.Err() == nil {
			s.logger.Printf("Incremental pull failed %d time(s), falling back to full sync: %v", report.Attempts, pullErr)
			attempts := report.Attempts
			report, pullErr = s.pullOnce(ctx, organization, models.SyncModeFull, 0)
			report.Attempts = attempts + 1
			report.FellBack = true
		}
	}

	if pullErr != nil {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if err := s.meta.RecordFailure(ctx, s.entity, pullErr.Error()); err != nil {
			s.logger.Printf("Failed to record pull failure: %v", err)
		}
		s.logger.Printf("Pull failed: %v", pullErr)
		return report, wrapPullError(s.entity, pullErr)
	}

	if err := s.meta.RecordSuccess(ctx, s.entity, start.UnixMilli(), report.Mode); err != nil {
		return report, fmt.Errorf("failed to record pull success: %w", err)
	}

	s.logger.Printf("Pulled %s (%s): %d fetched, %d upserted, %d deferred, %d deleted",
		s.entity, report.Mode, report.Fetched, report.Upserted, report.Deferred, report.Cleanup.Deleted)
	return report, nil
}

func (s *EntityService[W]) pullWithRetries(ctx context.Context, org string, mode models.SyncMode, since int64) (PullReport, error) {
	var lastErr error
	for attempt := 1; attempt <= s.policy.MaxPullAttempts; attempt++ {
		if attempt > 1 {
			if err := s.sleep(ctx, s.policy.BackoffUnit*time.Duration(attempt-1)); err != nil {
				return PullReport{Mode: mode, Attempts: attempt - 1}, err
			}
		}

		report, err := s.pullOnce(ctx, org, mode, since)
		report.Attempts = attempt
		if err == nil {
			return report, nil
		}
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		s.logger.Printf("%s pull attempt %d/%d failed: %v", mode, attempt, s.policy.MaxPullAttempts, err)
		lastErr = err
	}
	return PullReport{Mode: mode, Attempts: s.policy.MaxPullAttempts}, lastErr
}

func (s *EntityService[W]) pullOnce(ctx context.Context, org string, mode models.SyncMode, since int64) (report PullReport, err error) {
	report.Mode = mode
	defer func() {
		s.metrics.ObservePullAttempt(string(s.entity), string(mode), err)
	}()

	var items []W
	if mode == models.SyncModeFull {
		items, err = s.remote.List(ctx, org)
	} else {
		items, err = s.remote.ListChangesSince(ctx, org, since)
	}
	if err != nil {
		return report, fmt.Errorf("failed to fetch %s: %w", s.entity, err)
	}
	report.Fetched = len(items)

	for _, item := range items {
		stored, err := s.upsertPulled(ctx, item)
		if err != nil {
			return report, fmt.Errorf("failed to store %s %s: %w", s.entity, item.EntityID(), err)
		}
		if stored {
			report.Upserted++
		} else {
			report.Deferred++
		}
	}

	remoteIDs, err := s.remote.ListIDs(ctx, org)
	if err != nil {
		return report, fmt.Errorf("failed to fetch %s ids: %w", s.entity, err)
	}

	report.Cleanup = s.CleanupDeleted(ctx, remoteIDs)
	if !report.Cleanup.Success {
		s.logger.Printf("Deletion cleanup failed: %s", report.Cleanup.Error)
	}
	return report, nil
}

// upsertPulled stores a server record as SYNCED unless local operations for
// it are still waiting to be pushed
func (s *EntityService[W]) upsertPulled(ctx context.Context, item W) (bool, error) {
	id := item.EntityID()
	unlock := s.locks.Lock(id)
	defer unlock()

	pending, err := s.ops.CountForEntity(ctx, id)
	if err != nil {
		return false, err
	}
	if pending > 0 {
		return false, nil
	}
	if err := s.cache.Save(ctx, item, models.SyncStatusSynced); err != nil {
		return false, err
	}
	return true, nil
}

// CleanupDeleted removes cached rows the server no longer has, at most
// Policy.MaxCleanupDeletions per call, in ascending id order. Rows that still
// have pending operations are kept.
func (s *EntityService[W]) CleanupDeleted(ctx context.Context, remoteIDs []string) CleanupResult {
	var result CleanupResult

	localIDs, err := s.cache.IDs(ctx)
	if err != nil {
		result.Error = errString(fmt.Errorf("failed to list cached ids: %w", err))
		return result
	}
	pendingIDs, err := s.ops.PendingEntityIDs(ctx, s.entity)
	if err != nil {
		result.Error = errString(fmt.Errorf("failed to list pending ids: %w", err))
		return result
	}

	keep := make(map[string]struct{}, len(remoteIDs)+len(pendingIDs))
	for _, id := range remoteIDs {
		keep[id] = struct{}{}
	}
	for _, id := range pendingIDs {
		keep[id] = struct{}{}
	}

	var stale []string
	for _, id := range localIDs {
		if _, ok := keep[id]; !ok {
			stale = append(stale, id)
		}
	}
	sort.Strings(stale)

	result.TotalFound = len(stale)
	if limit := s.policy.MaxCleanupDeletions; limit > 0 && len(stale) > limit {
		stale = stale[:limit]
		result.Limited = true
	}

	for _, id := range stale {
		if err := s.deleteLocal(ctx, id); err != nil {
			result.Error = errString(fmt.Errorf("failed to delete %s: %w", id, err))
			s.metrics.ObserveCleanup(string(s.entity), result.Deleted)
			return result
		}
		result.Deleted++
	}

	if result.Limited {
		s.logger.Printf("Cleanup limited: deleted %d of %d stale %s rows", result.Deleted, result.TotalFound, s.entity)
	}
	s.metrics.ObserveCleanup(string(s.entity), result.Deleted)
	result.Success = true
	return result
}
