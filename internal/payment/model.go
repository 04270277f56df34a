package payment

import (
	"net/http"
	"strings"
	"time"

	"github.com/nekogravitycat/venue-booking-backend/internal/pkg/apperror"
)

var (
	ErrAttemptNotFound    = apperror.New(http.StatusNotFound, "payment reference not found")
	ErrPermissionDenied   = apperror.New(http.StatusForbidden, "permission denied")
	ErrNotPayable         = apperror.New(http.StatusConflict, "booking is not awaiting payment")
	ErrIntegrity          = apperror.New(http.StatusBadRequest, "payment response failed signature verification")
	ErrGatewayUnavailable = apperror.New(http.StatusBadGateway, "payment gateway unavailable")
)

// AttemptStatus tracks one round trip to the gateway.
type AttemptStatus string

const (
	AttemptInitiated  AttemptStatus = "initiated"
	AttemptProcessing AttemptStatus = "processing"
	AttemptSuccess    AttemptStatus = "success"
	AttemptFailed     AttemptStatus = "failed"
)

// IsFinal reports whether the attempt already has its outcome recorded.
func (s AttemptStatus) IsFinal() bool {
	return s == AttemptSuccess || s == AttemptFailed
}

// Attempt is a single payment try for a booking. Its reference is what the
// gateway echoes back in callbacks and verification responses.
type Attempt struct {
	Reference    string
	BookingCode  string
	Amount       int64
	Status       AttemptStatus
	GatewayTxnID *string
	ResponseCode *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Outcome is the normalized result reported by the gateway.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeProcessing Outcome = "processing"
	OutcomeFailed     Outcome = "failed"
)

var gatewayStatuses = map[string]Outcome{
	"success":    OutcomeSuccess,
	"successful": OutcomeSuccess,
	"captured":   OutcomeSuccess,
	"rip":        OutcomeProcessing,
	"sip":        OutcomeProcessing,
	"pending":    OutcomeProcessing,
	"processing": OutcomeProcessing,
	"initiated":  OutcomeProcessing,
	"failed":     OutcomeFailed,
	"failure":    OutcomeFailed,
	"cancelled":  OutcomeFailed,
	"declined":   OutcomeFailed,
	"expired":    OutcomeFailed,
}

// ParseOutcome maps a gateway status word onto an Outcome.
func ParseOutcome(status string) (Outcome, bool) {
	o, ok := gatewayStatuses[strings.ToLower(strings.TrimSpace(status))]
	return o, ok
}

func (o Outcome) attemptStatus() AttemptStatus {
	switch o {
	case OutcomeSuccess:
		return AttemptSuccess
	case OutcomeFailed:
		return AttemptFailed
	default:
		return AttemptProcessing
	}
}

// Verification is the answer of the gateway's status endpoint.
type Verification struct {
	Reference    string
	Outcome      Outcome
	RawStatus    string
	GatewayTxnID string
	Amount       string
}

// Receipt is what the return endpoint reports back to the payer's browser.
type Receipt struct {
	Reference   string
	BookingCode string
	Outcome     Outcome
	Message     string
}
