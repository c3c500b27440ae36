package store

import (
	"context"
	"errors"
	"time"

	"github.com/yacine2174/projet-master-sub002/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrActiveResetExists is the exclusivity violation: a pending or
	// approved-and-unexpired request already exists for the user.
	ErrActiveResetExists = errors.New("active reset request exists")
	// ErrResetNotPending rejects a review of a request that already left
	// the pending state. The caller must not retry.
	ErrResetNotPending = errors.New("reset request not pending")
	// ErrResetNotRedeemable rejects a redeem with no approved, unexpired
	// request behind it.
	ErrResetNotRedeemable = errors.New("no redeemable reset request")
)

// UserStore is the credential store. Users are never deleted.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUserStatus(ctx context.Context, id bson.ObjectID, status models.AccountStatus, now time.Time) error
	UpdateUserRole(ctx context.Context, id bson.ObjectID, role models.Role, now time.Time) error
	UpdateUserPassword(ctx context.Context, id bson.ObjectID, hash string, now time.Time) error
}

// ResetStore is the reset-request ledger. Writes that move a request through
// its lifecycle are conditional on the expected current status, so concurrent
// callers cannot both win the same transition.
type ResetStore interface {
	// CreateResetRequest inserts req as PENDING. The exclusivity check and
	// the insert are a single atomic operation; when an active request
	// already exists for req.UserID it fails with ErrActiveResetExists.
	CreateResetRequest(ctx context.Context, req *models.ResetRequest, now time.Time) error

	ResetByID(ctx context.Context, id bson.ObjectID) (*models.ResetRequest, error)

	// LatestResetByEmail returns the most recent request for the address,
	// whatever its status, or ErrNotFound when the user never filed one.
	LatestResetByEmail(ctx context.Context, email string) (*models.ResetRequest, error)

	ListResetRequests(ctx context.Context) ([]models.ResetRequest, error)

	// ReviewResetRequest transitions PENDING -> APPROVED or PENDING ->
	// REJECTED, keyed on the current status. expiresAt is stored only on
	// approval. A missing request fails with ErrNotFound, a non-pending
	// one with ErrResetNotPending.
	ReviewResetRequest(ctx context.Context, id bson.ObjectID, approve bool, reviewerID bson.ObjectID, notes string, now time.Time, expiresAt time.Time) (*models.ResetRequest, error)

	// RedeemResetRequest completes the approved, unexpired request for the
	// address and stores the new password hash on the owning user. The two
	// effects are all-or-nothing: a request is never COMPLETED without the
	// password having changed, and vice versa.
	RedeemResetRequest(ctx context.Context, email string, newHash string, now time.Time) (*models.ResetRequest, error)
}

// Store is the full persistence surface of the credential lifecycle.
type Store interface {
	UserStore
	ResetStore
}
