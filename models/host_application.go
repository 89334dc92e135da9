package models

import "time"

type HostApplicationStatus string

const (
	HostApplicationStatusPending  HostApplicationStatus = "PENDING"
	HostApplicationStatusApproved HostApplicationStatus = "APPROVED"
	HostApplicationStatusRejected HostApplicationStatus = "REJECTED"
)

// HostApplication is a player's request to be promoted to HOST.
// On approval the linked user becomes HOST and their phone is locked.
type HostApplication struct {
	ID     string `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"index;not null" json:"user_id"`

	Experience string `json:"experience,omitempty"`
	Reason     string `json:"reason,omitempty"`

	Status HostApplicationStatus `gorm:"type:varchar(16);default:'PENDING';index" json:"status"`

	AdminComment string     `json:"admin_comment,omitempty"`
	ReviewedBy   string     `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`

	Timestamps
}
