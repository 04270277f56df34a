package booking

import "fmt"

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPendingApproval   Status = "Pending-Approval"
	StatusAwaitingPayment   Status = "AwaitingPayment"
	StatusPaymentProcessing Status = "Payment-Processing"
	StatusPaymentFailed     Status = "Payment-Failed"
	StatusConfirmed         Status = "Confirmed"
	StatusRefundPending     Status = "Refund-Pending"
	StatusCancelled         Status = "Cancelled"
)

// validTransitions is the booking state machine. Every normal path goes
// through CanTransitionTo; only ForceStatus bypasses it.
var validTransitions = map[Status][]Status{
	StatusPendingApproval:   {StatusAwaitingPayment, StatusCancelled},
	StatusAwaitingPayment:   {StatusConfirmed, StatusPaymentProcessing, StatusPaymentFailed, StatusRefundPending, StatusCancelled},
	StatusPaymentProcessing: {StatusConfirmed, StatusPaymentFailed, StatusRefundPending, StatusCancelled},
	StatusPaymentFailed:     {StatusAwaitingPayment, StatusPaymentProcessing, StatusCancelled},
	StatusConfirmed:         {StatusRefundPending, StatusCancelled},
	StatusRefundPending:     {StatusCancelled},
	StatusCancelled:         {},
}

// IsValid returns true if the status is a recognized booking status.
func (s Status) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s Status) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// IsActive reports whether the booking still claims its hall and date for its owner.
func (s Status) IsActive() bool {
	return s != StatusCancelled && s != StatusPaymentFailed
}

// IsPayable reports whether a payment outcome may still be applied.
func (s Status) IsPayable() bool {
	return s == StatusAwaitingPayment || s == StatusPaymentProcessing
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a string to a Status, returning an error if invalid.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}

// RefundStatus is the money-back track that runs beside the booking status.
type RefundStatus string

const (
	RefundNone      RefundStatus = "N/A"
	RefundPending   RefundStatus = "Pending"
	RefundProcessed RefundStatus = "Processed"
	RefundRejected  RefundStatus = "Rejected"
)

var refundTransitions = map[RefundStatus][]RefundStatus{
	RefundNone:      {RefundPending},
	RefundPending:   {RefundProcessed, RefundRejected},
	RefundProcessed: {},
	RefundRejected:  {},
}

func (r RefundStatus) IsValid() bool {
	_, exists := refundTransitions[r]
	return exists
}

func (r RefundStatus) CanTransitionTo(target RefundStatus) bool {
	for _, t := range refundTransitions[r] {
		if t == target {
			return true
		}
	}
	return false
}

func (r RefundStatus) String() string {
	return string(r)
}
