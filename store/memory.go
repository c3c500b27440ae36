package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yacine2174/projet-master-sub002/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// MemoryStore keeps everything in process memory behind one mutex, which
// makes every lifecycle write trivially atomic. It backs the tests and local
// runs without a MongoDB instance.
type MemoryStore struct {
	mu     sync.Mutex
	users  map[bson.ObjectID]*models.User
	resets map[bson.ObjectID]*models.ResetRequest

	// FailBeforePasswordUpdate, when set, is invoked by RedeemResetRequest
	// between completing the request and writing the new hash. A returned
	// error aborts the redeem and must leave both records untouched.
	FailBeforePasswordUpdate func() error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[bson.ObjectID]*models.User),
		resets: make(map[bson.ObjectID]*models.ResetRequest),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *MemoryStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UserByID(_ context.Context, id bson.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateUserStatus(_ context.Context, id bson.ObjectID, status models.AccountStatus, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Status = status
	u.UpdatedAt = now
	return nil
}

func (s *MemoryStore) UpdateUserRole(_ context.Context, id bson.ObjectID, role models.Role, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = now
	return nil
}

func (s *MemoryStore) UpdateUserPassword(_ context.Context, id bson.ObjectID, hash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = now
	return nil
}

func (s *MemoryStore) CreateResetRequest(_ context.Context, req *models.ResetRequest, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.resets {
		if existing.UserID == req.UserID && existing.Active(now) {
			return ErrActiveResetExists
		}
	}
	if req.ID.IsZero() {
		req.ID = bson.NewObjectID()
	}
	req.Status = models.ResetPending
	req.RequestedAt = now
	cp := *req
	s.resets[req.ID] = &cp
	return nil
}

func (s *MemoryStore) ResetByID(_ context.Context, id bson.ObjectID) (*models.ResetRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.resets[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (s *MemoryStore) LatestResetByEmail(_ context.Context, email string) (*models.ResetRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.ResetRequest
	for _, req := range s.resets {
		if req.UserEmail != email {
			continue
		}
		if latest == nil || req.RequestedAt.After(latest.RequestedAt) {
			latest = req
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *MemoryStore) ListResetRequests(_ context.Context) ([]models.ResetRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ResetRequest, 0, len(s.resets))
	for _, req := range s.resets {
		out = append(out, *req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out, nil
}

func (s *MemoryStore) ReviewResetRequest(_ context.Context, id bson.ObjectID, approve bool, reviewerID bson.ObjectID, notes string, now time.Time, expiresAt time.Time) (*models.ResetRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.resets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if req.Status != models.ResetPending {
		return nil, ErrResetNotPending
	}
	decidedAt := now
	req.ApprovedAt = &decidedAt
	req.ReviewerID = &reviewerID
	if notes != "" {
		n := notes
		req.AdminNotes = &n
	}
	if approve {
		req.Status = models.ResetApproved
		exp := expiresAt
		req.ExpiresAt = &exp
	} else {
		req.Status = models.ResetRejected
	}
	cp := *req
	return &cp, nil
}

func (s *MemoryStore) RedeemResetRequest(_ context.Context, email string, newHash string, now time.Time) (*models.ResetRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *models.ResetRequest
	for _, req := range s.resets {
		if req.UserEmail == email && req.Redeemable(now) {
			target = req
			break
		}
	}
	if target == nil {
		return nil, ErrResetNotRedeemable
	}
	user, ok := s.users[target.UserID]
	if !ok {
		return nil, ErrNotFound
	}

	if s.FailBeforePasswordUpdate != nil {
		if err := s.FailBeforePasswordUpdate(); err != nil {
			return nil, err
		}
	}

	target.Status = models.ResetCompleted
	completedAt := now
	target.CompletedAt = &completedAt
	user.PasswordHash = newHash
	user.UpdatedAt = now

	cp := *target
	return &cp, nil
}
