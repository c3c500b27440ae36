package reset

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yacine2174/projet-master-sub002/models"
	"github.com/yacine2174/projet-master-sub002/store"
	"github.com/yacine2174/projet-master-sub002/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

const approvalWindow = 24 * time.Hour

func newTestEngine(t *testing.T) (*Engine, *store.MemoryStore, *fakeClock) {
	t.Helper()
	mem := store.NewMemoryStore()
	clock := &fakeClock{t: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	engine := NewEngine(mem, approvalWindow).WithClock(clock.Now)
	return engine, mem, clock
}

func seedUser(t *testing.T, s *store.MemoryStore, email, password string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	u := &models.User{
		Email:        email,
		Name:         "Utilisateur Test",
		PasswordHash: hash,
		Role:         models.RoleSSI,
		Status:       models.AccountApproved,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestCreateUnknownEmail(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Create(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, ErrUnknownEmail)
}

func TestCreateSnapshotsUser(t *testing.T) {
	engine, mem, clock := newTestEngine(t)
	user := seedUser(t, mem, "a@x.com", "OldSecret1")

	req, err := engine.Create(context.Background(), " A@X.COM ")
	require.NoError(t, err)

	assert.Equal(t, user.ID, req.UserID)
	assert.Equal(t, "a@x.com", req.UserEmail)
	assert.Equal(t, "Utilisateur Test", req.UserName)
	assert.Equal(t, models.RoleSSI, req.UserRole)
	assert.Equal(t, models.ResetPending, req.Status)
	assert.Equal(t, clock.Now(), req.RequestedAt)
}

func TestCreateConflictsWithActiveRequest(t *testing.T) {
	engine, mem, _ := newTestEngine(t)
	seedUser(t, mem, "a@x.com", "OldSecret1")
	ctx := context.Background()

	first, err := engine.Create(ctx, "a@x.com")
	require.NoError(t, err)

	// Pending blocks.
	_, err = engine.Create(ctx, "a@x.com")
	assert.ErrorIs(t, err, ErrActiveRequest)

	// Approved and unexpired still blocks.
	_, err = engine.Review(ctx, first.ID, DecisionApprove, bson.NewObjectID(), "")
	require.NoError(t, err)
	_, err = engine.Create(ctx, "a@x.com")
	assert.ErrorIs(t, err, ErrActiveRequest)
}

func TestConcurrentCreatesExactlyOneSucceeds(t *testing.T) {
	engine, mem, _ := newTestEngine(t)
	seedUser(t, mem, "a@x.com", "OldSecret1")

	const n = 32
	results := make(chan error, n)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < n; i++ {
		go func() {
			start.Wait()
			_, err := engine.Create(context.Background(), "a@x.com")
			results <- err
		}()
	}
	start.Done()

	successes, conflicts := 0, 0
	for i := 0; i < n; i++ {
		err := <-results
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrActiveRequest):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent create may win")
	assert.Equal(t, n-1, conflicts)
}

func TestReviewApproveOpensWindow(t *testing.T) {
	engine, mem, clock := newTestEngine(t)
	seedUser(t, mem, "a@x.com", "OldSecret1")
	ctx := context.Background()
	reviewer := bson.NewObjectID()

	req, err := engine.Create(ctx, "a@x.com")
	require.NoError(t, err)

	updated, err := engine.Review(ctx, req.ID, DecisionApprove, reviewer, "ok")
	require.NoError(t, err)

	assert.Equal(t, models.ResetApproved, updated.Status)
	require.NotNil(t, updated.ApprovedAt)
	assert.Equal(t, clock.Now(), *updated.ApprovedAt)
	require.NotNil(t, updated.ExpiresAt)
	assert.Equal(t, clock.Now().Add(approvalWindow), *updated.ExpiresAt)
	require.NotNil(t, updated.ReviewerID)
	assert.Equal(t, reviewer, *updated.ReviewerID)
	require.NotNil(t, updated.AdminNotes)
	assert.Equal(t, "ok", *updated.AdminNotes)
}

func TestReviewRejectIsTerminal(t *testing.T) {
	engine, mem, _ := newTestEngine(t)
	seedUser(t, mem, "a@x.com", "OldSecret1")
	ctx := context.Background()

	req, err := engine.Create(ctx, "a@x.com")
	require.NoError(t, err)

	rejected, err := engine.Review(ctx, req.ID, DecisionReject, bson.NewObjectID(), "refusé")
	require.NoError(t, err)
	assert.Equal(t, models.ResetRejected, rejected.Status)
	assert.Nil(t, rejected.ExpiresAt, "rejection must not open a redemption window")

	// No transition reopens a terminal request, whatever the decision.
	_, err = engine.Review(ctx, req.ID, DecisionApprove, bson.NewObjectID(), "")
	assert.ErrorIs(t, err, ErrNotReviewable)
	_, err = engine.Review(ctx, req.ID, DecisionReject, bson.NewObjectID(), "")
	assert.ErrorIs(t, err, ErrNotReviewable)
}

func TestReviewUnknownRequest(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Review(context.Background(), bson.NewObjectID(), DecisionApprove, bson.NewObjectID(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedeemUpdatesPasswordAndCompletes(t *testing.T) {
	engine, mem, _ := newTestEngine(t)
	user := seedUser(t, mem, "a@x.com", "OldSecret1")
	ctx := context.Background()

	req, err := engine.Create(ctx, "a@x.com")
	require.NoError(t, err)
	_, err = engine.Review(ctx, req.ID, DecisionApprove, bson.NewObjectID(), "ok")
	require.NoError(t, err)

	require.NoError(t, engine.Redeem(ctx, "a@x.com", "Secret123"))

	stored, err := mem.ResetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResetCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)

	updated, err := mem.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NoError(t, utils.CheckPassword(updated.PasswordHash, "Secret123"))
	assert.Error(t, utils.CheckPassword(updated.PasswordHash, "OldSecret1"))
}

func TestRedeemWithoutApprovalForbidden(t *testing.T) {
	engine, mem, _ := newTestEngine(t)
	seedUser(t, mem, "a@x.com", "OldSecret1")
	ctx := context.Background()

	// No request at all.
	assert.ErrorIs(t, engine.Redeem(ctx, "a@x.com", "Secret123"), ErrNotRedeemable)

	// Pending is not redeemable either.
	_, err := engine.Create(ctx, "a@x.com")
	require.NoError(t, err)
	assert.ErrorIs(t, engine.Redeem(ctx, "a@x.com", "Secret123"), ErrNotRedeemable)
}

func TestRedeemExpiredApprovalForbidden(t *testing.T) {
	engine, mem, clock := newTestEngine(t)
	user := seedUser(t, mem, "a@x.com", "OldSecret1")
	ctx := context.Background()

	req, err := engine.Create(ctx, "a@x.com")
	require.NoError(t, err)
	_, err = engine.Review(ctx, req.ID, DecisionApprove, bson.NewObjectID(), "")
	require.NoError(t, err)

	// The window is exclusive: expiry instant itself is already expired.
	clock.Advance(approvalWindow)
	assert.ErrorIs(t, engine.Redeem(ctx, "a@x.com", "Secret123"), ErrNotRedeemable)

	// Stored status stays APPROVED; only its usability changed.
	stored, err := mem.ResetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResetApproved, stored.Status)

	updated, err := mem.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NoError(t, utils.CheckPassword(updated.PasswordHash, "OldSecret1"))
}

func TestRedeemAtomicityUnderInjectedFailure(t *testing.T) {
	engine, mem, _ := newTestEngine(t)
	user := seedUser(t, mem, "a@x.com", "OldSecret1")
	ctx := context.Background()

	req, err := engine.Create(ctx, "a@x.com")
	require.NoError(t, err)
	_, err = engine.Review(ctx, req.ID, DecisionApprove, bson.NewObjectID(), "")
	require.NoError(t, err)

	boom := errors.New("boom")
	mem.FailBeforePasswordUpdate = func() error { return boom }

	err = engine.Redeem(ctx, "a@x.com", "Secret123")
	require.ErrorIs(t, err, boom)

	// Neither effect happened.
	stored, err := mem.ResetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResetApproved, stored.Status)
	assert.Nil(t, stored.CompletedAt)

	updated, err := mem.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NoError(t, utils.CheckPassword(updated.PasswordHash, "OldSecret1"))

	// And the request is still redeemable once the fault clears.
	mem.FailBeforePasswordUpdate = nil
	require.NoError(t, engine.Redeem(ctx, "a@x.com", "Secret123"))
}

func TestRejectedRequestIsNotActive(t *testing.T) {
	engine, mem, _ := newTestEngine(t)
	seedUser(t, mem, "a@x.com", "OldSecret1")
	ctx := context.Background()

	req, err := engine.Create(ctx, "a@x.com")
	require.NoError(t, err)
	_, err = engine.Review(ctx, req.ID, DecisionReject, bson.NewObjectID(), "non")
	require.NoError(t, err)

	assert.ErrorIs(t, engine.Redeem(ctx, "a@x.com", "Secret123"), ErrNotRedeemable)

	// A fresh request can be filed right away.
	_, err = engine.Create(ctx, "a@x.com")
	assert.NoError(t, err)
}

func TestExpiredApprovalDoesNotBlockCreate(t *testing.T) {
	engine, mem, clock := newTestEngine(t)
	seedUser(t, mem, "a@x.com", "OldSecret1")
	ctx := context.Background()

	req, err := engine.Create(ctx, "a@x.com")
	require.NoError(t, err)
	_, err = engine.Review(ctx, req.ID, DecisionApprove, bson.NewObjectID(), "")
	require.NoError(t, err)

	clock.Advance(approvalWindow + time.Minute)

	_, err = engine.Create(ctx, "a@x.com")
	assert.NoError(t, err, "an expired approval is inert and must not block a new request")
}

func TestStatusNoneSentinel(t *testing.T) {
	engine, mem, _ := newTestEngine(t)
	seedUser(t, mem, "a@x.com", "OldSecret1")

	info, err := engine.Status(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, StatusNone, info.Status)
	assert.Nil(t, info.RequestedAt)
}

func TestStatusReportsEffectiveExpiry(t *testing.T) {
	engine, mem, clock := newTestEngine(t)
	seedUser(t, mem, "a@x.com", "OldSecret1")
	ctx := context.Background()

	req, err := engine.Create(ctx, "a@x.com")
	require.NoError(t, err)

	info, err := engine.Status(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, string(models.ResetPending), info.Status)
	assert.False(t, info.EffectivelyExpired)

	_, err = engine.Review(ctx, req.ID, DecisionApprove, bson.NewObjectID(), "ok")
	require.NoError(t, err)

	info, err = engine.Status(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, string(models.ResetApproved), info.Status)
	assert.False(t, info.EffectivelyExpired)
	require.NotNil(t, info.Notes)
	assert.Equal(t, "ok", *info.Notes)

	clock.Advance(approvalWindow + time.Second)

	info, err = engine.Status(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, string(models.ResetApproved), info.Status, "stored status is not rewritten on expiry")
	assert.True(t, info.EffectivelyExpired)
}
