package models

import "time"

// PaymentOrderStatus mirrors the gateway order lifecycle. SUCCESS and FAILED
// are terminal; a terminal order never moves again.
type PaymentOrderStatus string

const (
	PaymentOrderStatusInitiated PaymentOrderStatus = "INITIATED"
	PaymentOrderStatusSuccess   PaymentOrderStatus = "SUCCESS"
	PaymentOrderStatusFailed    PaymentOrderStatus = "FAILED"
)

// PaymentOrder is one attempt to pay a match entry fee via Cashfree.
// Updated only by the webhook handler or the reconciliation sweep.
type PaymentOrder struct {
	ID string `gorm:"primaryKey" json:"id"`
	// OrderID is the idempotency key shared with the gateway.
	OrderID string `gorm:"uniqueIndex;not null" json:"order_id"`

	UserID  string `gorm:"index;not null" json:"user_id"`
	MatchID string `gorm:"index;not null" json:"match_id"`

	Amount   float64 `gorm:"not null" json:"amount"`
	Currency string  `gorm:"type:varchar(8);default:'INR'" json:"currency"`

	Status PaymentOrderStatus `gorm:"type:varchar(16);default:'INITIATED';index" json:"status"`

	// Gateway hosted-checkout session
	PaymentSessionID string `json:"payment_session_id,omitempty"`

	// Registration payload to apply once the order succeeds
	CaptainGameID string `json:"captain_game_id,omitempty"`
	SquadGameIDs  string `json:"squad_game_ids,omitempty"`

	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	// ResolvedVia records which path reached the terminal status first:
	// "webhook" or "sweep"
	ResolvedVia string `json:"resolved_via,omitempty"`

	Timestamps
}

// Terminal reports whether the order has reached a final status.
func (s PaymentOrderStatus) Terminal() bool {
	return s == PaymentOrderStatusSuccess || s == PaymentOrderStatusFailed
}
