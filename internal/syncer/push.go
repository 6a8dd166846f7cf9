package syncer

import (
	"context"
	"fmt"

	"github.com/vipul43/tillsync/internal/models"
	"github.com/vipul43/tillsync/internal/remote"
)

// PushReport counts what happened to each operation handed to Push
type PushReport struct {
	Total    int `json:"total"`
	Synced   int `json:"synced"`
	Absorbed int `json:"absorbed"`
	Retrying int `json:"retrying"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

func (r *PushReport) add(o pushOutcome) {
	switch o {
	case pushSynced:
		r.Synced++
	case pushAbsorbed:
		r.Absorbed++
	case pushRetrying:
		r.Retrying++
	case pushFailed:
		r.Failed++
	case pushSkipped:
		r.Skipped++
	case pushError:
		r.Errors++
	}
}

type pushOutcome string

const (
	pushSynced    pushOutcome = "synced"
	pushAbsorbed  pushOutcome = "absorbed"
	pushRetrying  pushOutcome = "retrying"
	pushFailed    pushOutcome = "failed"
	pushSkipped   pushOutcome = "skipped"
	pushError     pushOutcome = "error"
	pushCancelled pushOutcome = "cancelled"
)

// Push replays ops in the given order. A failure of one operation never stops
// the loop; only cancellation of ctx does, and then the remaining operations
// are left untouched.
func (s *EntityService[W]) Push(ctx context.Context, ops []models.PendingOperation) (PushReport, error) {
	var report PushReport

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if op.EntityType != s.entity {
			s.logger.Printf("Skipping operation %d: entity type %s does not belong to this service", op.ID, op.EntityType)
			continue
		}

		report.Total++
		outcome := s.pushOne(ctx, op)
		if outcome == pushCancelled {
			report.Total--
			return report, ctx.Err()
		}
		report.add(outcome)
		s.metrics.ObservePush(string(s.entity), string(outcome))
	}

	if report.Total > 0 {
		s.logger.Printf("Push finished: %d operation(s), %d synced, %d absorbed, %d retrying, %d failed, %d skipped, %d errors",
			report.Total, report.Synced, report.Absorbed, report.Retrying, report.Failed, report.Skipped, report.Errors)
	}
	return report, nil
}

func (s *EntityService[W]) pushOne(ctx context.Context, op models.PendingOperation) pushOutcome {
	if op.FailedAttempts > s.policy.MaxFailedAttempts {
		return pushSkipped
	}

	payload, err := remote.DecodePayload(op.EntityType, op.Payload)
	if err != nil {
		return s.park(ctx, op, fmt.Sprintf("undecodable payload: %v", err))
	}
	w, ok := payload.(W)
	if !ok {
		return s.park(ctx, op, fmt.Sprintf("payload of type %T does not match %s", payload, s.entity))
	}

	call := s.dispatch(op.OperationType)
	if call == nil {
		return s.park(ctx, op, fmt.Sprintf("operation %s is not supported for %s", op.OperationType, s.entity))
	}

	if err := s.setStatus(ctx, op.EntityID, models.SyncStatusSyncing); err != nil {
		s.logger.Printf("Failed to mark %s as syncing: %v", op.EntityID, err)
		return pushError
	}

	result, callErr := call(remote.WithIdempotencyKey(ctx, op.OperationKey), op.OrgSlug, op.EntityID, w)
	if callErr != nil {
		if ctx.Err() != nil {
			// leave the operation as it was; the next push replays it
			if err := s.updateFinalStatus(context.WithoutCancel(ctx), op.EntityID); err != nil {
				s.logger.Printf("Failed to restore status of %s: %v", op.EntityID, err)
			}
			return pushCancelled
		}
		return s.handleFailure(ctx, op, callErr)
	}

	return s.handleSuccess(ctx, op, w, result)
}

func (s *EntityService[W]) dispatch(opType models.OperationType) Action[W] {
	switch opType {
	case models.OperationCreate:
		return func(ctx context.Context, org, _ string, w W) (W, error) {
			return s.remote.Create(ctx, org, w)
		}
	case models.OperationUpdate:
		return s.remote.Update
	case models.OperationDelete:
		return func(ctx context.Context, org, id string, _ W) (W, error) {
			return s.remote.Delete(ctx, org, id)
		}
	default:
		return s.actions[opType]
	}
}

func (s *EntityService[W]) handleSuccess(ctx context.Context, op models.PendingOperation, sent, result W) pushOutcome {
	if op.OperationType == models.OperationDelete {
		if err := s.deleteLocal(ctx, op.EntityID); err != nil {
			s.logger.Printf("Failed to delete local %s after remote delete: %v", op.EntityID, err)
			return pushError
		}
	} else if err := s.saveConfirmed(ctx, op, sent, result); err != nil {
		s.logger.Printf("Failed to store server copy of %s: %v", op.EntityID, err)
		return pushError
	}

	if err := s.removeOperation(ctx, op); err != nil {
		s.logger.Printf("Failed to remove operation %d: %v", op.ID, err)
		return pushError
	}
	if op.OperationType != models.OperationDelete {
		if err := s.updateFinalStatus(ctx, op.EntityID); err != nil {
			s.logger.Printf("Failed to update status of %s: %v", op.EntityID, err)
		}
	}

	s.logger.Printf("Synced %s %s (%s)", s.entity, op.EntityID, op.OperationType)
	return pushSynced
}

// saveConfirmed overwrites the local row with the server response, unless other
// operations of the entity are still waiting: then the local row already holds
// newer state than the server.
func (s *EntityService[W]) saveConfirmed(ctx context.Context, op models.PendingOperation, sent, result W) error {
	confirmed := result
	if result.EntityID() == "" {
		if op.OperationScope != models.ScopeState {
			// an EVENT payload is a delta, not a snapshot
			return nil
		}
		confirmed = sent
	}

	unlock := s.locks.Lock(op.EntityID)
	defer unlock()

	pending, err := s.ops.CountForEntity(ctx, op.EntityID)
	if err != nil {
		return err
	}
	if pending > 1 {
		return nil
	}
	// the final status is set once the operation has left the log
	return s.cache.Save(ctx, confirmed, models.SyncStatusSyncing)
}

func (s *EntityService[W]) handleFailure(ctx context.Context, op models.PendingOperation, callErr error) pushOutcome {
	decision := Classify(callErr, op.OperationType)

	switch decision.Outcome {
	case OutcomeAbsorbed:
		s.logger.Printf("Absorbed %s on %s %s (%s): %v", decision.Reason, s.entity, op.EntityID, op.OperationType, callErr)
		if decision.RemoveLocal {
			if err := s.deleteLocal(ctx, op.EntityID); err != nil {
				s.logger.Printf("Failed to delete local %s: %v", op.EntityID, err)
				return pushError
			}
		}
		if err := s.removeOperation(ctx, op); err != nil {
			s.logger.Printf("Failed to remove operation %d: %v", op.ID, err)
			return pushError
		}
		if !decision.RemoveLocal {
			if err := s.updateFinalStatus(ctx, op.EntityID); err != nil {
				s.logger.Printf("Failed to update status of %s: %v", op.EntityID, err)
			}
		}
		return pushAbsorbed

	case OutcomeFatal:
		s.logger.Printf("Rejected %s %s (%s), not retrying: %v", s.entity, op.EntityID, op.OperationType, callErr)
		return s.park(ctx, op, callErr.Error())

	default:
		count, err := s.recordFailure(ctx, op, callErr.Error())
		if err != nil {
			s.logger.Printf("Failed to record failure of operation %d: %v", op.ID, err)
			return pushError
		}

		outcome := pushRetrying
		if count > s.policy.MaxFailedAttempts {
			outcome = pushFailed
		}
		if err := s.updateFinalStatus(ctx, op.EntityID); err != nil {
			s.logger.Printf("Failed to update status of %s: %v", op.EntityID, err)
		}
		s.logger.Printf("Push of %s %s (%s) failed with %s, attempt %d: %v",
			s.entity, op.EntityID, op.OperationType, decision.Reason, count, callErr)
		return outcome
	}
}

// park keeps the operation but moves it past the retry threshold so push skips it
func (s *EntityService[W]) park(ctx context.Context, op models.PendingOperation, reason string) pushOutcome {
	if err := s.ops.MarkFailed(ctx, op, s.policy.MaxFailedAttempts+1, reason); err != nil {
		s.logger.Printf("Failed to park operation %d: %v", op.ID, err)
		return pushError
	}
	if err := s.setStatus(ctx, op.EntityID, models.SyncStatusFailed); err != nil {
		s.logger.Printf("Failed to mark %s as failed: %v", op.EntityID, err)
	}
	s.logger.Printf("Parked operation %d on %s %s: %s", op.ID, s.entity, op.EntityID, reason)
	return pushFailed
}

// removeOperation drops a STATE row by key and an EVENT row by id
func (s *EntityService[W]) removeOperation(ctx context.Context, op models.PendingOperation) error {
	if op.OperationScope == models.ScopeEvent {
		return s.ops.DeleteByID(ctx, op.ID)
	}
	return s.ops.DeleteByKeys(ctx, op.Keys())
}

func (s *EntityService[W]) recordFailure(ctx context.Context, op models.PendingOperation, lastError string) (int, error) {
	if op.OperationScope == models.ScopeEvent {
		if err := s.ops.IncrementFailureCountByID(ctx, op.ID, lastError); err != nil {
			return 0, err
		}
		return s.ops.GetFailureCountByID(ctx, op.ID)
	}
	if err := s.ops.IncrementFailureCount(ctx, op.Keys(), lastError); err != nil {
		return 0, err
	}
	return s.ops.GetFailureCount(ctx, op.Keys())
}

// updateFinalStatus derives the entity status from what is left in the log:
// SYNCED when nothing remains, FAILED while any remaining row is parked past
// the retry limit, PENDING otherwise.
func (s *EntityService[W]) updateFinalStatus(ctx context.Context, entityID string) error {
	unlock := s.locks.Lock(entityID)
	defer unlock()

	remaining, err := s.ops.CountForEntity(ctx, entityID)
	if err != nil {
		return err
	}
	status := models.SyncStatusSynced
	if remaining > 0 {
		parked, err := s.ops.CountParkedForEntity(ctx, entityID, s.policy.MaxFailedAttempts)
		if err != nil {
			return err
		}
		status = models.SyncStatusPending
		if parked > 0 {
			status = models.SyncStatusFailed
		}
	}
	return s.cache.SetStatus(ctx, entityID, status)
}

func (s *EntityService[W]) setStatus(ctx context.Context, entityID string, status models.SyncStatus) error {
	unlock := s.locks.Lock(entityID)
	defer unlock()
	return s.cache.SetStatus(ctx, entityID, status)
}

func (s *EntityService[W]) deleteLocal(ctx context.Context, entityID string) error {
	unlock := s.locks.Lock(entityID)
	defer unlock()
	return s.cache.Delete(ctx, entityID)
}
