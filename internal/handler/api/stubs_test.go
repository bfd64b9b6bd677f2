//go:build unit

package api_test

import (
	"context"

	"checkin-core/internal/domain/lane"
	"checkin-core/internal/usecase/commands"
	"checkin-core/internal/usecase/queries"

	"github.com/google/uuid"
)

// Hand-written stubs with overridable funcs; a call with no func set panics,
// which surfaces as a test failure the same way an unexpected mock call would.

type stubAuthCommands struct {
	loginFn      func(ctx context.Context, username, password string) (*commands.LoginResult, error)
	kioskTokenFn func(ctx context.Context, staffID uuid.UUID, laneID int) (*commands.KioskTokenResult, error)
}

func (s *stubAuthCommands) Login(ctx context.Context, username, password string) (*commands.LoginResult, error) {
	return s.loginFn(ctx, username, password)
}

func (s *stubAuthCommands) IssueKioskToken(ctx context.Context, staffID uuid.UUID, laneID int) (*commands.KioskTokenResult, error) {
	return s.kioskTokenFn(ctx, staffID, laneID)
}

type stubScanCommands struct {
	resolveFn func(ctx context.Context, laneID int, rawText string, selectedCustomerID *uuid.UUID) (*commands.ScanResult, error)
}

func (s *stubScanCommands) ResolveScan(ctx context.Context, laneID int, rawText string, selectedCustomerID *uuid.UUID) (*commands.ScanResult, error) {
	return s.resolveFn(ctx, laneID, rawText, selectedCustomerID)
}

type stubCheckinCommands struct {
	startFn           func(ctx context.Context, in commands.StartSessionInput) (*queries.SessionView, error)
	proposeFn         func(ctx context.Context, in commands.SelectionInput) (*queries.SessionView, error)
	confirmFn         func(ctx context.Context, laneID int, actor lane.Actor, ref commands.SessionRef) (*commands.ConfirmSelectionResult, error)
	acknowledgeFn     func(ctx context.Context, laneID int, actor lane.Actor, ref commands.SessionRef) error
	customerConfirmFn func(ctx context.Context, laneID int, accept bool, ref commands.SessionRef) error
	resetFn           func(ctx context.Context, laneID int) error
	kioskAckFn        func(ctx context.Context, laneID int, ref commands.SessionRef) error
	bypassFn          func(ctx context.Context, laneID int, staffID uuid.UUID, pin string, ref commands.SessionRef) error
}

func (s *stubCheckinCommands) StartSession(ctx context.Context, in commands.StartSessionInput) (*queries.SessionView, error) {
	return s.startFn(ctx, in)
}

func (s *stubCheckinCommands) ProposeSelection(ctx context.Context, in commands.SelectionInput) (*queries.SessionView, error) {
	return s.proposeFn(ctx, in)
}

func (s *stubCheckinCommands) ConfirmSelection(ctx context.Context, laneID int, actor lane.Actor, ref commands.SessionRef) (*commands.ConfirmSelectionResult, error) {
	return s.confirmFn(ctx, laneID, actor, ref)
}

func (s *stubCheckinCommands) AcknowledgeSelection(ctx context.Context, laneID int, actor lane.Actor, ref commands.SessionRef) error {
	return s.acknowledgeFn(ctx, laneID, actor, ref)
}

func (s *stubCheckinCommands) CustomerConfirm(ctx context.Context, laneID int, accept bool, ref commands.SessionRef) error {
	return s.customerConfirmFn(ctx, laneID, accept, ref)
}

func (s *stubCheckinCommands) Reset(ctx context.Context, laneID int) error {
	return s.resetFn(ctx, laneID)
}

func (s *stubCheckinCommands) KioskAck(ctx context.Context, laneID int, ref commands.SessionRef) error {
	return s.kioskAckFn(ctx, laneID, ref)
}

func (s *stubCheckinCommands) BypassPastDue(ctx context.Context, laneID int, staffID uuid.UUID, pin string, ref commands.SessionRef) error {
	return s.bypassFn(ctx, laneID, staffID, pin, ref)
}

type stubAssignCommands struct {
	assignFn func(ctx context.Context, in commands.AssignInput) (*commands.AssignResult, error)
}

func (s *stubAssignCommands) AssignResource(ctx context.Context, in commands.AssignInput) (*commands.AssignResult, error) {
	return s.assignFn(ctx, in)
}

type stubPaymentCommands struct {
	createFn   func(ctx context.Context, in commands.CreatePaymentIntentInput) (*commands.PaymentIntentResult, error)
	markPaidFn func(ctx context.Context, intentID uuid.UUID) (*commands.MarkPaidResult, error)
}

func (s *stubPaymentCommands) CreatePaymentIntent(ctx context.Context, in commands.CreatePaymentIntentInput) (*commands.PaymentIntentResult, error) {
	return s.createFn(ctx, in)
}

func (s *stubPaymentCommands) MarkPaid(ctx context.Context, intentID uuid.UUID) (*commands.MarkPaidResult, error) {
	return s.markPaidFn(ctx, intentID)
}

type stubCompletionCommands struct {
	signFn func(ctx context.Context, in commands.SignAgreementInput) (*commands.CompletionResult, error)
}

func (s *stubCompletionCommands) SignAgreement(ctx context.Context, in commands.SignAgreementInput) (*commands.CompletionResult, error) {
	return s.signFn(ctx, in)
}

type stubLaneQueries struct {
	sessionFn func(ctx context.Context, laneID int) (*queries.SessionView, error)
	lanesFn   func(ctx context.Context) ([]*queries.LaneView, error)
}

func (s *stubLaneQueries) GetLaneSession(ctx context.Context, laneID int) (*queries.SessionView, error) {
	return s.sessionFn(ctx, laneID)
}

func (s *stubLaneQueries) ListLanes(ctx context.Context) ([]*queries.LaneView, error) {
	return s.lanesFn(ctx)
}

type stubRoomQueries struct {
	availabilityFn func(ctx context.Context) ([]*queries.RoomAvailabilityView, error)
}

func (s *stubRoomQueries) AvailabilityByTier(ctx context.Context) ([]*queries.RoomAvailabilityView, error) {
	return s.availabilityFn(ctx)
}
