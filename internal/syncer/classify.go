package syncer

import (
	"context"
	"errors"
	"net"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/vipul43/tillsync/internal/models"
)

type Outcome int

const (
	// OutcomeRetryable keeps the operation and counts a failure
	OutcomeRetryable Outcome = iota
	// OutcomeAbsorbed treats the error as success and drops the operation
	OutcomeAbsorbed
	// OutcomeFatal parks the operation for manual resolution
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAbsorbed:
		return "absorbed"
	case OutcomeFatal:
		return "fatal"
	default:
		return "retryable"
	}
}

// Decision is the result of classifying a failed remote call
type Decision struct {
	Outcome    Outcome
	StatusCode int // 0 when the error carried no HTTP status
	Reason     string
	// RemoveLocal is set when the server no longer has the entity
	RemoveLocal bool
}

// Classify maps a remote error to an outcome. It is shared by every entity
// service so that all of them apply the same table.
func Classify(err error, opType models.OperationType) Decision {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.Code, opType)
	}

	// context.DeadlineExceeded is itself a net.Error, so it is checked first
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Decision{Outcome: OutcomeRetryable, Reason: "timeout"}
	case errors.As(err, &netErr) && netErr.Timeout():
		return Decision{Outcome: OutcomeRetryable, Reason: "timeout"}
	case errors.As(err, &netErr):
		return Decision{Outcome: OutcomeRetryable, Reason: "network"}
	default:
		return Decision{Outcome: OutcomeRetryable, Reason: "unknown"}
	}
}

func classifyStatus(code int, opType models.OperationType) Decision {
	switch {
	case code == http.StatusNotFound:
		return Decision{Outcome: OutcomeAbsorbed, StatusCode: code, Reason: "not_found", RemoveLocal: true}

	case code == http.StatusConflict:
		switch opType {
		case models.OperationCreate:
			return Decision{Outcome: OutcomeAbsorbed, StatusCode: code, Reason: "already_exists"}
		case models.OperationDelete:
			return Decision{Outcome: OutcomeAbsorbed, StatusCode: code, Reason: "already_deleted", RemoveLocal: true}
		default:
			return Decision{Outcome: OutcomeRetryable, StatusCode: code, Reason: "conflict"}
		}

	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return Decision{Outcome: OutcomeRetryable, StatusCode: code, Reason: "throttled"}

	case code >= 400 && code < 500:
		return Decision{Outcome: OutcomeFatal, StatusCode: code, Reason: "client_error"}

	case code >= 500:
		return Decision{Outcome: OutcomeRetryable, StatusCode: code, Reason: "server_error"}

	default:
		return Decision{Outcome: OutcomeRetryable, StatusCode: code, Reason: "http_error"}
	}
}
