package models

import "time"

// RegistrationStatus tracks a slot claim through payment
type RegistrationStatus string

const (
	RegistrationStatusPendingPayment RegistrationStatus = "PENDING_PAYMENT"
	RegistrationStatusConfirmed      RegistrationStatus = "CONFIRMED"
	RegistrationStatusCancelled      RegistrationStatus = "CANCELLED"
)

// Registration binds one user to one match. At most one non-cancelled
// registration may exist per (user, match); cancelled rows are kept for audit.
type Registration struct {
	ID      string `gorm:"primaryKey" json:"id"`
	MatchID string `gorm:"index:idx_reg_user_match;not null" json:"match_id"`
	UserID  string `gorm:"index:idx_reg_user_match;not null" json:"user_id"`

	Status RegistrationStatus `gorm:"type:varchar(24);default:'PENDING_PAYMENT';index" json:"status"`

	// Squad in-game identities; the captain is the registering user
	CaptainGameID string `json:"captain_game_id,omitempty"`
	SquadGameIDs  string `json:"squad_game_ids,omitempty"` // comma-separated

	// Once locked, game-ID edits are refused
	LockedAt *time.Time `json:"locked_at,omitempty"`
	LockedBy string     `json:"locked_by,omitempty"`

	// Payment metadata; populated by payment confirmation or the admin
	// manual-entry path
	PaymentOrderID string     `gorm:"index" json:"payment_order_id,omitempty"`
	PaymentAmount  float64    `gorm:"default:0" json:"payment_amount"`
	PaymentMethod  string     `json:"payment_method,omitempty"` // "cashfree", "manual"
	PaidAt         *time.Time `json:"paid_at,omitempty"`

	CancelledReason string     `json:"cancelled_reason,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`

	Timestamps
}
