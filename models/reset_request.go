package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type ResetStatus string

const (
	ResetPending   ResetStatus = "PENDING"
	ResetApproved  ResetStatus = "APPROVED"
	ResetRejected  ResetStatus = "REJECTED"
	ResetCompleted ResetStatus = "COMPLETED"
)

// ResetRequest is one entry of the password-reset ledger. Entries are never
// deleted; rejected and completed requests remain as an audit trail.
//
// Transitions are one-directional: PENDING -> APPROVED -> COMPLETED, or
// PENDING -> REJECTED. An APPROVED request past ExpiresAt keeps its stored
// status; expiry is evaluated against the clock wherever the request is used.
type ResetRequest struct {
	ID bson.ObjectID `bson:"_id,omitempty" json:"id"`

	UserID bson.ObjectID `bson:"userId" json:"userId"`

	// Requester snapshot, captured at request time.
	UserName  string `bson:"userName" json:"userName"`
	UserEmail string `bson:"userEmail" json:"userEmail"`
	UserRole  Role   `bson:"userRole" json:"userRole"`

	Status      ResetStatus `bson:"status" json:"status"`
	RequestedAt time.Time   `bson:"requestedAt" json:"requestedAt"`

	ApprovedAt  *time.Time `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"` // decision time, set on approve and reject
	ExpiresAt   *time.Time `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`   // set only on approve
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`

	AdminNotes *string        `bson:"adminNotes,omitempty" json:"adminNotes,omitempty"`
	ReviewerID *bson.ObjectID `bson:"reviewerId,omitempty" json:"reviewerId,omitempty"`
}

// Active reports whether the request still blocks the creation of a new one:
// pending, or approved with an unexpired window. The bound is exclusive, an
// ExpiresAt equal to now counts as expired.
func (r *ResetRequest) Active(now time.Time) bool {
	switch r.Status {
	case ResetPending:
		return true
	case ResetApproved:
		return r.ExpiresAt != nil && r.ExpiresAt.After(now)
	}
	return false
}

// Redeemable reports whether the request authorizes a password change at now.
func (r *ResetRequest) Redeemable(now time.Time) bool {
	return r.Status == ResetApproved && r.ExpiresAt != nil && r.ExpiresAt.After(now)
}
