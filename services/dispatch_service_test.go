package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"rental-backend/tm30"
)

type stubExecutor struct {
	calls       int
	lastPayload tm30.SubmissionPayload
	ref         string
	err         error
}

func (s *stubExecutor) Trigger(_ context.Context, p tm30.SubmissionPayload) (string, error) {
	s.calls++
	s.lastPayload = p
	return s.ref, s.err
}

func propertyColumns() []string {
	return []string{"id", "name", "tm30_accom_id", "tm30_accom_name"}
}

func expectBookingLoad(mock sqlmock.Sqlmock, tm30Status string, guestRows *sqlmock.Rows) {
	mock.ExpectQuery("SELECT (.+) FROM `bookings`").
		WillReturnRows(sqlmock.NewRows(bookingColumns()).
			AddRow(1, 1, 1, "BK-0001", "CONFIRMED", testCheckIn, testCheckOut, 1, 1, tm30Status, "", ""))
	mock.ExpectQuery("SELECT (.+) FROM `guests`").WillReturnRows(guestRows)
	mock.ExpectQuery("SELECT (.+) FROM `properties`").
		WillReturnRows(sqlmock.NewRows(propertyColumns()).
			AddRow(1, "Baan Suan", "ACC-9", "Baan Suan Villa"))
}

func TestDispatchNothingEligibleDoesNotTouchExecutorOrState(t *testing.T) {
	db, mock := newMockDB(t)
	mock.MatchExpectationsInOrder(false)

	// Every guest already SUBMITTED: nothing to file, and crucially no claim
	// write and no executor call may happen.
	guests := sqlmock.NewRows(guestColumns()).
		AddRow(7, 1, true, "JANE DOE", "F", "British", "X1234567", "http://img/7.jpg", "SUBMITTED")
	expectBookingLoad(mock, "PASSPORT_RECEIVED", guests)

	exec := &stubExecutor{}
	svc := NewDispatchService(db, exec)

	_, err := svc.Dispatch(context.Background(), 1, DispatchOptions{})
	if !errors.Is(err, ErrNothingEligible) {
		t.Fatalf("expected ErrNothingEligible, got %v", err)
	}
	if exec.calls != 0 {
		t.Fatalf("executor called %d times for an ineligible booking", exec.calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected database traffic: %v", err)
	}
}

func TestDispatchExecutorFailureRevertsBooking(t *testing.T) {
	db, mock := newMockDB(t)
	mock.MatchExpectationsInOrder(false)

	guests := sqlmock.NewRows(guestColumns()).
		AddRow(7, 1, true, "JANE DOE", "F", "British", "X1234567", "http://img/7.jpg", "SCANNED")
	expectBookingLoad(mock, "PASSPORT_RECEIVED", guests)

	// Claim: booking -> PROCESSING, guest -> SUBMITTING.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `bookings` SET").
		WithArgs("PROCESSING", sqlmock.AnyArg(), 1, "PASSPORT_RECEIVED", "FAILED").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `guests` SET").
		WithArgs("SUBMITTING", sqlmock.AnyArg(), 7, "SUBMITTED").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Revert after the executor error: booking back to PASSPORT_RECEIVED with
	// the cause recorded. The guest stays SUBMITTING.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `bookings` SET").
		WithArgs("webhook exploded", "PASSPORT_RECEIVED", sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	exec := &stubExecutor{err: errors.New("webhook exploded")}
	svc := NewDispatchService(db, exec)

	res, err := svc.Dispatch(context.Background(), 1, DispatchOptions{})
	if !errors.Is(err, ErrDispatchFailed) {
		t.Fatalf("expected ErrDispatchFailed, got %v", err)
	}
	if res.Triggered {
		t.Fatalf("failed dispatch must not report triggered")
	}
	if exec.calls != 1 {
		t.Fatalf("executor calls = %d, want 1", exec.calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDispatchManualModeReleasesClaimAndReturnsPayload(t *testing.T) {
	db, mock := newMockDB(t)
	mock.MatchExpectationsInOrder(false)

	guests := sqlmock.NewRows(guestColumns()).
		AddRow(7, 1, true, "JANE DOE", "F", "British", "X1234567", "http://img/7.jpg", "VERIFIED")
	expectBookingLoad(mock, "PASSPORT_RECEIVED", guests)

	// Claim.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `bookings` SET").
		WithArgs("PROCESSING", sqlmock.AnyArg(), 1, "PASSPORT_RECEIVED", "FAILED").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `guests` SET").
		WithArgs("SUBMITTING", sqlmock.AnyArg(), 7, "SUBMITTED").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Release: booking back to PASSPORT_RECEIVED, guest back to VERIFIED.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `bookings` SET").
		WithArgs("PASSPORT_RECEIVED", sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `guests` SET").
		WithArgs("VERIFIED", sqlmock.AnyArg(), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := NewDispatchService(db, ManualExecutor{})

	res, err := svc.Dispatch(context.Background(), 1, DispatchOptions{})
	if err != nil {
		t.Fatalf("manual mode is not an error: %v", err)
	}
	if !res.ManualMode || res.Triggered {
		t.Fatalf("expected manual-mode result, got %+v", res)
	}
	if res.Payload == nil || len(res.Payload.Guests) != 1 {
		t.Fatalf("manual mode must hand back the full payload, got %+v", res.Payload)
	}
	if res.Payload.AccomID != "ACC-9" {
		t.Fatalf("payload accomId = %q, want ACC-9", res.Payload.AccomID)
	}
	if got := res.Payload.Guests[0].ArrivalDate; got != "02/03/2025" {
		t.Fatalf("arrival date = %q, want Thailand-local 02/03/2025", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDispatchConflictWhenClaimAlreadyHeld(t *testing.T) {
	db, mock := newMockDB(t)
	mock.MatchExpectationsInOrder(false)

	guests := sqlmock.NewRows(guestColumns()).
		AddRow(7, 1, true, "JANE DOE", "F", "British", "X1234567", "http://img/7.jpg", "SCANNED")
	expectBookingLoad(mock, "PROCESSING", guests)

	// The conditional claim touches zero rows, and the re-read shows another
	// dispatch holds the booking.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `bookings` SET").
		WithArgs("PROCESSING", sqlmock.AnyArg(), 1, "PASSPORT_RECEIVED", "FAILED").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT (.+) FROM `bookings`").
		WillReturnRows(sqlmock.NewRows([]string{"tm30_status"}).AddRow("PROCESSING"))

	exec := &stubExecutor{}
	svc := NewDispatchService(db, exec)

	_, err := svc.Dispatch(context.Background(), 1, DispatchOptions{})
	if !errors.Is(err, ErrDispatchInFlight) {
		t.Fatalf("expected ErrDispatchInFlight, got %v", err)
	}
	if exec.calls != 0 {
		t.Fatalf("executor must not run when the claim is lost, calls = %d", exec.calls)
	}
}

func TestDispatchSuccessRecordsSubmissionRef(t *testing.T) {
	db, mock := newMockDB(t)
	mock.MatchExpectationsInOrder(false)

	guests := sqlmock.NewRows(guestColumns()).
		AddRow(7, 1, true, "JANE DOE", "F", "British", "X1234567", "http://img/7.jpg", "VERIFIED")
	expectBookingLoad(mock, "PASSPORT_RECEIVED", guests)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `bookings` SET").
		WithArgs("PROCESSING", sqlmock.AnyArg(), 1, "PASSPORT_RECEIVED", "FAILED").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `guests` SET").
		WithArgs("SUBMITTING", sqlmock.AnyArg(), 7, "SUBMITTED").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// The booking stays PROCESSING; only the ref and the cleared error land.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `bookings` SET").
		WithArgs("", "run-77", sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	exec := &stubExecutor{ref: "run-77"}
	svc := NewDispatchService(db, exec)

	res, err := svc.Dispatch(context.Background(), 1, DispatchOptions{DryRun: true})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if !res.Triggered || res.SubmissionRef != "run-77" {
		t.Fatalf("unexpected result %+v", res)
	}
	if !exec.lastPayload.DryRun {
		t.Fatalf("dry-run flag not carried into the payload")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCallbackFailureMarksBookingFailed(t *testing.T) {
	db, mock := newMockDB(t)
	mock.MatchExpectationsInOrder(false)

	mock.ExpectQuery("SELECT (.+) FROM `bookings`").
		WillReturnRows(sqlmock.NewRows(bookingColumns()).
			AddRow(1, 1, 1, "BK-0001", "CONFIRMED", testCheckIn, testCheckOut, 1, 1, "PROCESSING", "run-77", ""))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `bookings` SET").
		WithArgs("immigration portal rejected the filing", "FAILED", sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := NewDispatchService(db, &stubExecutor{})

	err := svc.HandleCallback(CallbackInput{
		BookingID: 1,
		Success:   false,
		Error:     "immigration portal rejected the filing",
	})
	if err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCallbackSuccessPromotesSubmittingGuests(t *testing.T) {
	db, mock := newMockDB(t)
	mock.MatchExpectationsInOrder(false)

	mock.ExpectQuery("SELECT (.+) FROM `bookings`").
		WillReturnRows(sqlmock.NewRows(bookingColumns()).
			AddRow(1, 1, 1, "BK-0001", "CONFIRMED", testCheckIn, testCheckOut, 1, 1, "PROCESSING", "", ""))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `guests` SET").
		WithArgs("SUBMITTED", sqlmock.AnyArg(), 1, "SUBMITTING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `bookings` SET").
		WithArgs("", "SUBMITTED", "run-77", sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := NewDispatchService(db, &stubExecutor{})

	err := svc.HandleCallback(CallbackInput{
		BookingID:     1,
		SubmissionRef: "run-77",
		Success:       true,
	})
	if err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCallbackRejectsSuccessOnUndispatchedBooking(t *testing.T) {
	db, mock := newMockDB(t)
	mock.MatchExpectationsInOrder(false)

	mock.ExpectQuery("SELECT (.+) FROM `bookings`").
		WillReturnRows(sqlmock.NewRows(bookingColumns()).
			AddRow(1, 1, 1, "BK-0001", "CONFIRMED", testCheckIn, testCheckOut, 1, 0, "PENDING", "", ""))

	// Guest promotion scopes to SUBMITTING guests and finds none; the booking
	// transition PENDING -> SUBMITTED is what trips.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `guests` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	svc := NewDispatchService(db, &stubExecutor{})

	err := svc.HandleCallback(CallbackInput{BookingID: 1, Success: true})
	if !errors.Is(err, tm30.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}
