package payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/venue-booking-backend/internal/booking"
)

type mockBookings struct {
	mock.Mock
}

func (m *mockBookings) result(args mock.Arguments) (*booking.Booking, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *mockBookings) Get(ctx context.Context, code, actorID string, isAdmin bool) (*booking.Booking, error) {
	return m.result(m.Called(ctx, code, actorID, isAdmin))
}

func (m *mockBookings) AttachTransaction(ctx context.Context, code, ref string) (*booking.Booking, error) {
	return m.result(m.Called(ctx, code, ref))
}

func (m *mockBookings) RecordPayment(ctx context.Context, code, ref string) (*booking.Booking, error) {
	return m.result(m.Called(ctx, code, ref))
}

func (m *mockBookings) MarkPaymentFailed(ctx context.Context, code, ref string) (*booking.Booking, error) {
	return m.result(m.Called(ctx, code, ref))
}

func (m *mockBookings) MarkPaymentProcessing(ctx context.Context, code, ref string) (*booking.Booking, error) {
	return m.result(m.Called(ctx, code, ref))
}

type memAttempts struct {
	mu       sync.Mutex
	attempts map[string]Attempt
}

func newMemAttempts() *memAttempts {
	return &memAttempts{attempts: make(map[string]Attempt)}
}

func (r *memAttempts) Create(_ context.Context, a *Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.attempts[a.Reference] = *a
	return nil
}

func (r *memAttempts) GetByReference(_ context.Context, reference string) (*Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[reference]
	if !ok {
		return nil, ErrAttemptNotFound
	}
	return &a, nil
}

func (r *memAttempts) UpdateOutcome(_ context.Context, a *Attempt) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attempts[a.Reference].Status.IsFinal() {
		return false, nil
	}
	a.UpdatedAt = time.Now()
	r.attempts[a.Reference] = *a
	return true, nil
}

const (
	ownerID = "user-a"
	code    = "BK20250501093000ABC123"
	ref     = code + "-XYZ789"
)

func awaiting() *booking.Booking {
	return &booking.Booking{Code: code, UserID: ownerID, Amount: 5000, Status: booking.StatusAwaitingPayment}
}

func newTestService(t *testing.T, verifyResponses map[string]string) (Service, *mockBookings, *memAttempts) {
	t.Helper()
	srv := gatewayStub(t, verifyResponses)
	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	bookings := new(mockBookings)
	repo := newMemAttempts()
	return NewService(repo, client, bookings, zerolog.Nop()), bookings, repo
}

func seedAttempt(t *testing.T, repo *memAttempts) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &Attempt{
		Reference:   ref,
		BookingCode: code,
		Amount:      5000,
		Status:      AttemptInitiated,
	}))
}

func TestInitiate(t *testing.T) {
	svc, bookings, repo := newTestService(t, nil)
	ctx := context.Background()

	bookings.On("Get", mock.Anything, code, ownerID, false).Return(awaiting(), nil).Once()
	bookings.On("AttachTransaction", mock.Anything, code, mock.MatchedBy(func(r string) bool {
		return len(r) == len(code)+7 && r[:len(code)+1] == code+"-"
	})).Return(awaiting(), nil).Once()

	in, err := svc.Initiate(ctx, code, ownerID)
	require.NoError(t, err)
	assert.Regexp(t, `^`+code+`-[A-Z0-9]{6}$`, in.Reference)
	assert.Equal(t, int64(5000), in.Amount)
	assert.Contains(t, in.RedirectURL, "merchantid=136082")

	a, err := repo.GetByReference(ctx, in.Reference)
	require.NoError(t, err)
	assert.Equal(t, AttemptInitiated, a.Status)
	assert.Equal(t, code, a.BookingCode)
	bookings.AssertExpectations(t)
}

func TestInitiateRejects(t *testing.T) {
	svc, bookings, _ := newTestService(t, nil)
	ctx := context.Background()

	confirmed := awaiting()
	confirmed.Status = booking.StatusConfirmed
	bookings.On("Get", mock.Anything, code, ownerID, false).Return(confirmed, nil).Once()
	_, err := svc.Initiate(ctx, code, ownerID)
	assert.ErrorIs(t, err, ErrNotPayable)

	bookings.On("Get", mock.Anything, code, "someone-else", false).Return(nil, booking.ErrPermissionDenied).Once()
	_, err = svc.Initiate(ctx, code, "someone-else")
	assert.ErrorIs(t, err, booking.ErrPermissionDenied)

	bookings.AssertNotCalled(t, "AttachTransaction", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleReturnRejectsBadSignature(t *testing.T) {
	svc, bookings, repo := newTestService(t, nil)
	seedAttempt(t, repo)

	fields := signedFields("E000", ref)
	fields["Total_Amount"] = "1.00"

	_, err := svc.HandleReturn(context.Background(), fields)
	assert.ErrorIs(t, err, ErrIntegrity)

	a, _ := repo.GetByReference(context.Background(), ref)
	assert.Equal(t, AttemptInitiated, a.Status)
	bookings.AssertNotCalled(t, "RecordPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleReturnSuccessIsIdempotent(t *testing.T) {
	svc, bookings, repo := newTestService(t, nil)
	seedAttempt(t, repo)
	ctx := context.Background()

	bookings.On("RecordPayment", mock.Anything, code, ref).Return(&booking.Booking{Code: code, Status: booking.StatusConfirmed}, nil).Once()

	receipt, err := svc.HandleReturn(ctx, signedFields("E000", ref))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, receipt.Outcome)
	assert.Equal(t, code, receipt.BookingCode)

	// A replayed callback changes nothing.
	_, err = svc.HandleReturn(ctx, signedFields("E000", ref))
	require.NoError(t, err)

	a, _ := repo.GetByReference(ctx, ref)
	assert.Equal(t, AttemptSuccess, a.Status)
	require.NotNil(t, a.GatewayTxnID)
	assert.Equal(t, "2506011234567", *a.GatewayTxnID)
	bookings.AssertNumberOfCalls(t, "RecordPayment", 1)
}

func TestHandleReturnFailure(t *testing.T) {
	svc, bookings, repo := newTestService(t, nil)
	seedAttempt(t, repo)
	ctx := context.Background()

	bookings.On("MarkPaymentFailed", mock.Anything, code, ref).Return(&booking.Booking{Code: code, Status: booking.StatusPaymentFailed}, nil).Once()

	receipt, err := svc.HandleReturn(ctx, signedFields("E006", ref))
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, receipt.Outcome)

	a, _ := repo.GetByReference(ctx, ref)
	assert.Equal(t, AttemptFailed, a.Status)
	require.NotNil(t, a.ResponseCode)
	assert.Equal(t, "E006", *a.ResponseCode)
	bookings.AssertExpectations(t)
}

func TestHandleReturnUnknownReference(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	_, err := svc.HandleReturn(context.Background(), signedFields("E000", "BK-UNKNOWN"))
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestVerifyAppliesGatewayState(t *testing.T) {
	svc, bookings, repo := newTestService(t, map[string]string{
		ref: "status=Pending&ezpaytranid=&amount=5000",
	})
	seedAttempt(t, repo)
	ctx := context.Background()

	processing := &booking.Booking{Code: code, UserID: ownerID, Status: booking.StatusPaymentProcessing}
	bookings.On("Get", mock.Anything, code, ownerID, false).Return(processing, nil).Twice()
	bookings.On("MarkPaymentProcessing", mock.Anything, code, ref).Return(processing, nil).Once()

	res, err := svc.Verify(ctx, ref, ownerID, false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessing, res.Outcome)
	assert.Equal(t, booking.StatusPaymentProcessing, res.Booking.Status)

	a, _ := repo.GetByReference(ctx, ref)
	assert.Equal(t, AttemptProcessing, a.Status)
	bookings.AssertExpectations(t)
}

func TestVerifyPermissions(t *testing.T) {
	svc, bookings, repo := newTestService(t, nil)
	seedAttempt(t, repo)

	bookings.On("Get", mock.Anything, code, "intruder", false).Return(nil, booking.ErrPermissionDenied).Once()

	_, err := svc.Verify(context.Background(), ref, "intruder", false)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestVerifyGatewayDownLeavesStateAlone(t *testing.T) {
	// The stub has no entry for ref and answers 500.
	svc, bookings, repo := newTestService(t, map[string]string{})
	seedAttempt(t, repo)
	ctx := context.Background()

	bookings.On("Get", mock.Anything, code, "admin", true).Return(awaiting(), nil).Once()

	_, err := svc.Verify(ctx, ref, "admin", true)
	assert.ErrorIs(t, err, ErrGatewayUnavailable)

	a, _ := repo.GetByReference(ctx, ref)
	assert.Equal(t, AttemptInitiated, a.Status)
	bookings.AssertNotCalled(t, "MarkPaymentFailed", mock.Anything, mock.Anything, mock.Anything)
	bookings.AssertNotCalled(t, "RecordPayment", mock.Anything, mock.Anything, mock.Anything)
}
