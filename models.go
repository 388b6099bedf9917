package latch

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	RoleMember UserRole = "member"
	RoleAdmin  UserRole = "admin"
)

// UserStatus is the lifecycle state of a user
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// User is the local identity pairing records belong to
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Role           UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	Username       string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	Status         UserStatus `bun:"status,notnull" json:"status,omitempty"`
	LoginAttempts  int        `bun:"login_attempts,notnull" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at,nullzero" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus defaults an empty status to active
func (u *User) EnsureStatus() {
	if u != nil && u.Status == "" {
		u.Status = UserStatusActive
	}
}

// IsActive reports whether the user may authenticate
func (u *User) IsActive() bool {
	if u == nil {
		return false
	}
	u.EnsureStatus()
	return u.Status == UserStatusActive
}

// MaxAccountIDLength is the longest account id the store accepts
const MaxAccountIDLength = 64

// PairingRecord binds one local user to one remote latch account.
// Records have no update operation: re-pairing requires unpairing first.
type PairingRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	AccountID string    `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPairingRecord returns a record ready to be stored
func NewPairingRecord(userID, accountID string) *PairingRecord {
	return &PairingRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		AccountID: accountID,
		CreatedAt: time.Now().UTC(),
	}
}
