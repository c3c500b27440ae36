// Package reset implements the password-reset workflow: a user files a
// request, a reviewer approves or rejects it, and an approved request can be
// redeemed for a new password inside its expiry window.
//
// The engine is role-agnostic on purpose. Callers are expected to have been
// authorized upstream (auth middleware plus role gate); the engine only
// enforces the state machine itself.
package reset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yacine2174/projet-master-sub002/models"
	"github.com/yacine2174/projet-master-sub002/store"
	"github.com/yacine2174/projet-master-sub002/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	// ErrUnknownEmail means no account exists for the address.
	ErrUnknownEmail = errors.New("unknown email")
	// ErrActiveRequest is the exclusivity conflict: the user already has a
	// pending or approved-and-unexpired request.
	ErrActiveRequest = errors.New("an active reset request already exists")
	// ErrNotFound means the request id does not exist.
	ErrNotFound = errors.New("reset request not found")
	// ErrNotReviewable rejects a decision on a request that is not pending.
	ErrNotReviewable = errors.New("reset request is not pending")
	// ErrNotRedeemable rejects a redeem without an approved, unexpired
	// request behind it.
	ErrNotRedeemable = errors.New("no approved reset request to redeem")
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func ParseDecision(s string) (Decision, bool) {
	switch Decision(s) {
	case DecisionApprove, DecisionReject:
		return Decision(s), true
	}
	return "", false
}

// StatusNone is the sentinel returned when a user has no reset request at
// all. It is distinct from every stored status so "no request" cannot be
// confused with "rejected".
const StatusNone = "NONE"

// StatusInfo is what the status endpoint reports. EffectivelyExpired flags an
// APPROVED request whose window has closed: the stored status is kept as-is
// (expiry is evaluated at read time, there is no sweeper), so without the
// flag a stale APPROVED would read as still usable.
type StatusInfo struct {
	Status             string     `json:"status"`
	RequestedAt        *time.Time `json:"requestedAt,omitempty"`
	ApprovedAt         *time.Time `json:"approvedAt,omitempty"`
	ExpiresAt          *time.Time `json:"expiresAt,omitempty"`
	Notes              *string    `json:"notes,omitempty"`
	EffectivelyExpired bool       `json:"effectivelyExpired"`
}

// Engine drives the reset state machine over the store. All transition
// atomicity lives in the store; the engine sequences lookups, snapshots and
// hashing around it.
type Engine struct {
	store       store.Store
	approvalTTL time.Duration
	now         func() time.Time
}

func NewEngine(s store.Store, approvalTTL time.Duration) *Engine {
	return &Engine{store: s, approvalTTL: approvalTTL, now: time.Now}
}

// WithClock overrides the engine clock, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Create files a new pending request for the address, snapshotting the
// user's current name, email and role. Unknown address fails with
// ErrUnknownEmail; an existing active request with ErrActiveRequest.
func (e *Engine) Create(ctx context.Context, email string) (*models.ResetRequest, error) {
	email = utils.NormalizeEmail(email)
	user, err := e.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownEmail
		}
		return nil, err
	}

	req := &models.ResetRequest{
		UserID:    user.ID,
		UserName:  user.Name,
		UserEmail: user.Email,
		UserRole:  user.Role,
	}
	if err := e.store.CreateResetRequest(ctx, req, e.now()); err != nil {
		if errors.Is(err, store.ErrActiveResetExists) {
			return nil, ErrActiveRequest
		}
		return nil, err
	}
	return req, nil
}

// Review applies a reviewer decision to a pending request. Approval opens
// the redemption window; both outcomes stamp the decision time, reviewer and
// notes. Requests that already left PENDING fail with ErrNotReviewable and
// must not be retried: the state genuinely changed.
func (e *Engine) Review(ctx context.Context, id bson.ObjectID, decision Decision, reviewerID bson.ObjectID, notes string) (*models.ResetRequest, error) {
	now := e.now()
	req, err := e.store.ReviewResetRequest(ctx, id, decision == DecisionApprove, reviewerID, notes, now, now.Add(e.approvalTTL))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, store.ErrResetNotPending):
			return nil, ErrNotReviewable
		}
		return nil, err
	}
	return req, nil
}

// Status reports the latest request for the address, or StatusNone when the
// user never filed one.
func (e *Engine) Status(ctx context.Context, email string) (StatusInfo, error) {
	email = utils.NormalizeEmail(email)
	req, err := e.store.LatestResetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return StatusInfo{Status: StatusNone}, nil
		}
		return StatusInfo{}, err
	}
	return StatusInfo{
		Status:             string(req.Status),
		RequestedAt:        &req.RequestedAt,
		ApprovedAt:         req.ApprovedAt,
		ExpiresAt:          req.ExpiresAt,
		Notes:              req.AdminNotes,
		EffectivelyExpired: req.Status == models.ResetApproved && !req.Redeemable(e.now()),
	}, nil
}

// Redeem consumes the approved request for the address and sets the new
// password. Expiry is checked at call time with an exclusive bound; the
// password write and the COMPLETED transition are atomic in the store.
func (e *Engine) Redeem(ctx context.Context, email, newPassword string) error {
	email = utils.NormalizeEmail(email)
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}
	if _, err := e.store.RedeemResetRequest(ctx, email, hash, e.now()); err != nil {
		if errors.Is(err, store.ErrResetNotRedeemable) {
			return ErrNotRedeemable
		}
		return err
	}
	return nil
}

// List returns the ledger for the reviewer dashboard, newest first.
func (e *Engine) List(ctx context.Context) ([]models.ResetRequest, error) {
	return e.store.ListResetRequests(ctx)
}
