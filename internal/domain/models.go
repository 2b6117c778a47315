// Package domain defines the persistence models for users, connections, and
// email OTPs. These types are mapped with GORM and form the core data layer
// of the connection backend.
package domain

import (
	"time"
)

// User represents an account. Besides identity and profile fields it carries
// the ledger state consulted by the connection state machine:
//
//   - Connects: spendable internal currency balance.
//   - Connections: counter of connections ever established (incremented on
//     first-time creation only, never decremented on removal).
//   - ConnectsNeededForConnection: the price a third party pays to connect
//     to this account.
type User struct {
	ID            string `json:"id"             gorm:"type:char(36);primaryKey"`
	Username      string `json:"username"       gorm:"type:varchar(64);not null;uniqueIndex"`
	Name          string `json:"name"           gorm:"type:varchar(128);not null"`
	Email         string `json:"email"          gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash  string `json:"-"              gorm:"type:varchar(255);not null"`
	EmailVerified bool   `json:"email_verified" gorm:"not null;default:false"`

	Connects                    int `json:"connects"                       gorm:"not null;default:0;check:connects >= 0"`
	Connections                 int `json:"connections"                    gorm:"not null;default:0;check:connections >= 0"`
	ConnectsNeededForConnection int `json:"connects_needed_for_connection" gorm:"not null;default:0;check:connects_needed_for_connection >= 0"`

	Bio      string `json:"bio"      gorm:"type:text"`
	Location string `json:"location" gorm:"type:varchar(128)"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Connection is the relationship row for one unordered pair of users. Rows
// are never deleted: disconnecting sets Removed, and later reconnect cycles
// mutate the same row in place. InitiatingUserID/ConnectedUserID record
// provenance (who paid originally); PairLow/PairHigh hold the canonical
// ordering of the two ids so the pair can be indexed and queried regardless
// of direction.
//
// Invariants enforced by the service layer (and a partial unique index on
// (pair_low, pair_high) WHERE removed = 0, see repo.AutoMigrate):
//   - at most one row per pair has Removed = false at any time;
//   - ReconnectionRequested implies Removed and ReconnectionRequestedBy set
//     to one of the pair;
//   - ReconnectionCount only grows.
type Connection struct {
	ID               string `json:"id"              gorm:"type:char(36);primaryKey"`
	InitiatingUserID string `json:"initiating_user" gorm:"type:char(36);not null;index:idx_conn_initiating"`
	ConnectedUserID  string `json:"connected_user"  gorm:"type:char(36);not null;index:idx_conn_connected"`

	// Canonical pair key, maintained by BeforeSave.
	PairLow  string `json:"-" gorm:"type:char(36);not null;index:idx_conn_pair,priority:1"`
	PairHigh string `json:"-" gorm:"type:char(36);not null;index:idx_conn_pair,priority:2"`

	Removed                 bool    `json:"removed"                             gorm:"not null;default:false"`
	ReconnectionRequested   bool    `json:"reconnection_requested"              gorm:"not null;default:false"`
	ReconnectionRequestedBy *string `json:"reconnection_requested_by,omitempty" gorm:"type:char(36)"`
	ReconnectionRejected    bool    `json:"reconnection_rejected"               gorm:"not null;default:false"`
	ReconnectionCount       int     `json:"reconnection_count"                  gorm:"not null;default:0"`

	// ConnectSpent is the price paid at original creation, kept for audit.
	ConnectSpent int     `json:"connect_spent"     gorm:"not null;default:0"`
	Message      *string `json:"message,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`

	InitiatingUser User `json:"-" gorm:"foreignKey:InitiatingUserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	ConnectedUser  User `json:"-" gorm:"foreignKey:ConnectedUserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Connection.
func (Connection) TableName() string { return "connections" }

// OtherUserID returns the member of the pair that is not userID.
func (c *Connection) OtherUserID(userID string) string {
	if c.InitiatingUserID == userID {
		return c.ConnectedUserID
	}
	return c.InitiatingUserID
}

// EmailOTP stores a pending one-time code for email or password-reset
// verification. Codes are bcrypt-hashed at rest and expire after a TTL;
// consuming a code marks it used rather than deleting the row.
type EmailOTP struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	UserID    string    `gorm:"type:char(36);not null;index"`
	CodeHash  string    `gorm:"type:varchar(255);not null"`
	Purpose   string    `gorm:"type:varchar(32);not null;check:purpose IN ('verify_email','reset_password')"`
	Used      bool      `gorm:"not null;default:false"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time

	User User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for EmailOTP.
func (EmailOTP) TableName() string { return "email_otps" }

// OTP purposes.
const (
	OTPPurposeVerifyEmail   = "verify_email"
	OTPPurposeResetPassword = "reset_password"
)
