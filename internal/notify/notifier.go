// Package notify delivers outbound messages to users. Delivery is best
// effort: a failed send is logged and never undoes the action behind it.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nekogravitycat/venue-booking-backend/internal/metrics"
)

// Kind doubles as the AMQP routing key.
type Kind string

const (
	KindBookingAllowed   Kind = "booking.allowed"
	KindBookingCancelled Kind = "booking.cancelled"
	KindLoginCode        Kind = "auth.otp"
)

// Message is one notification addressed to a user.
type Message struct {
	Kind        Kind              `json:"kind"`
	UserID      string            `json:"user_id,omitempty"`
	Email       string            `json:"email,omitempty"`
	BookingCode string            `json:"booking_code,omitempty"`
	Text        string            `json:"text"`
	Data        map[string]string `json:"data,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// Notifier sends a message through some channel.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

const dispatchTimeout = 5 * time.Second

// Dispatch sends msg in the background. The send is detached from ctx's
// cancellation so a finished request does not abort it.
func Dispatch(ctx context.Context, n Notifier, logger zerolog.Logger, msg Message) {
	if msg.OccurredAt.IsZero() {
		msg.OccurredAt = time.Now().UTC()
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	go func() {
		defer cancel()
		if err := n.Notify(sendCtx, msg); err != nil {
			metrics.IncNotificationFailed()
			logger.Warn().Err(err).
				Str("kind", string(msg.Kind)).
				Str("user_id", msg.UserID).
				Str("booking_code", msg.BookingCode).
				Msg("notification not delivered")
		}
	}()
}

// LogNotifier writes messages to the log. Used when no broker is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, msg Message) error {
	n.logger.Info().
		Str("kind", string(msg.Kind)).
		Str("user_id", msg.UserID).
		Str("email", msg.Email).
		Str("booking_code", msg.BookingCode).
		Msg(msg.Text)
	return nil
}
