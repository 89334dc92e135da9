package models

import "time"

// Role is the access level of a user account
type Role string

const (
	RolePlayer Role = "PLAYER"
	RoleHost   Role = "HOST"
	RoleAdmin  Role = "ADMIN"
)

// User is a registered player/host/admin account.
// Accounts are never hard-deleted; soft delete via Timestamps.DeletedAt.
type User struct {
	ID           string `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Phone        string `json:"phone,omitempty"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         Role   `gorm:"type:varchar(16);default:'PLAYER'" json:"role"`

	// In-game identity
	BGMIName string `json:"bgmi_name,omitempty"`
	BGMIID   string `json:"bgmi_id,omitempty"`

	ProfileImageURL string `json:"profile_image_url,omitempty"`

	EmailVerified bool `gorm:"default:false" json:"email_verified"`
	// PhoneLocked is set once the user is promoted to HOST; the phone on
	// file at promotion time stays the contact of record.
	PhoneLocked bool `gorm:"default:false" json:"phone_locked"`

	// Email verification / password reset tokens (single active token each)
	VerifyToken        string     `gorm:"index" json:"-"`
	VerifyTokenExpires *time.Time `json:"-"`
	ResetToken         string     `gorm:"index" json:"-"`
	ResetTokenExpires  *time.Time `json:"-"`

	Timestamps
}
