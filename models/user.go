package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleRSSI  Role = "RSSI"
	RoleSSI   Role = "SSI"
)

// ParseRole maps a wire value onto the closed role set.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleRSSI, RoleSSI:
		return Role(s), true
	}
	return "", false
}

// CanReview is the single privilege check consulted by the reset review
// endpoints. Role checks live here, not as string comparisons in handlers.
func (r Role) CanReview() bool {
	return r == RoleAdmin || r == RoleRSSI
}

// IsAdmin gates account administration (approval, role changes).
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

type AccountStatus string

const (
	AccountPending  AccountStatus = "PENDING"
	AccountApproved AccountStatus = "APPROVED"
	AccountRejected AccountStatus = "REJECTED"
)

func ParseAccountStatus(s string) (AccountStatus, bool) {
	switch AccountStatus(s) {
	case AccountPending, AccountApproved, AccountRejected:
		return AccountStatus(s), true
	}
	return "", false
}

type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string        `bson:"email" json:"email"`
	Name         string        `bson:"name" json:"name"`
	PasswordHash string        `bson:"passwordHash" json:"-"` // never expose
	Role         Role          `bson:"role" json:"role"`
	Status       AccountStatus `bson:"status" json:"status"`
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt" json:"updatedAt"`
}
