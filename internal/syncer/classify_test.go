package syncer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vipul43/tillsync/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		opType      models.OperationType
		outcome     Outcome
		reason      string
		removeLocal bool
	}{
		{"not found on update", httpError(404), models.OperationUpdate, OutcomeAbsorbed, "not_found", true},
		{"not found on delete", httpError(404), models.OperationDelete, OutcomeAbsorbed, "not_found", true},
		{"conflict on create", httpError(409), models.OperationCreate, OutcomeAbsorbed, "already_exists", false},
		{"conflict on delete", httpError(409), models.OperationDelete, OutcomeAbsorbed, "already_deleted", true},
		{"conflict on update", httpError(409), models.OperationUpdate, OutcomeRetryable, "conflict", false},
		{"conflict on deliver", httpError(409), models.OperationDeliverOrder, OutcomeRetryable, "conflict", false},
		{"bad request", httpError(400), models.OperationCreate, OutcomeFatal, "client_error", false},
		{"unauthorized", httpError(401), models.OperationUpdate, OutcomeFatal, "client_error", false},
		{"forbidden", httpError(403), models.OperationDelete, OutcomeFatal, "client_error", false},
		{"unprocessable", httpError(422), models.OperationUpdate, OutcomeFatal, "client_error", false},
		{"too many requests", httpError(429), models.OperationUpdate, OutcomeRetryable, "throttled", false},
		{"bad gateway", httpError(502), models.OperationCreate, OutcomeRetryable, "server_error", false},
		{"unavailable", httpError(503), models.OperationUpdate, OutcomeRetryable, "server_error", false},
		{"wrapped status", fmt.Errorf("create: %w", httpError(404)), models.OperationUpdate, OutcomeAbsorbed, "not_found", true},
		{"network", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, models.OperationCreate, OutcomeRetryable, "network", false},
		{"deadline", context.DeadlineExceeded, models.OperationUpdate, OutcomeRetryable, "timeout", false},
		{"client timeout", &url.Error{Op: "Put", URL: "https://api.example.com", Err: context.DeadlineExceeded}, models.OperationUpdate, OutcomeRetryable, "timeout", false},
		{"dial timeout", &net.OpError{Op: "dial", Err: timeoutError{}}, models.OperationCreate, OutcomeRetryable, "timeout", false},
		{"unknown", errors.New("weird"), models.OperationUpdate, OutcomeRetryable, "unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Classify(tt.err, tt.opType)
			assert.Equal(t, tt.outcome, d.Outcome)
			assert.Equal(t, tt.reason, d.Reason)
			assert.Equal(t, tt.removeLocal, d.RemoveLocal)
		})
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "retryable", OutcomeRetryable.String())
	assert.Equal(t, "absorbed", OutcomeAbsorbed.String())
	assert.Equal(t, "fatal", OutcomeFatal.String())
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }
