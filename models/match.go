package models

import "time"

// MatchStatus walks UPCOMING → ONGOING → AWAITING_RESULTS → COMPLETED and
// never regresses. COMPLETED is terminal.
type MatchStatus string

const (
	MatchStatusUpcoming        MatchStatus = "UPCOMING"
	MatchStatusOngoing         MatchStatus = "ONGOING"
	MatchStatusAwaitingResults MatchStatus = "AWAITING_RESULTS"
	MatchStatusCompleted       MatchStatus = "COMPLETED"
)

// MatchType is derived from the creator's role at creation time
type MatchType string

const (
	MatchTypeOfficial  MatchType = "OFFICIAL"
	MatchTypeCommunity MatchType = "COMMUNITY"
)

// Match is a scheduled paid scrim.
type Match struct {
	ID string `gorm:"primaryKey" json:"id"`
	// MatchID is the human-readable identifier, e.g. "ERANGEL-20260901-003".
	MatchID string `gorm:"uniqueIndex;not null" json:"match_id"`
	// Slug is the lowercased MatchID used in URLs.
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`

	Map       string    `gorm:"not null" json:"map"`
	StartTime time.Time `gorm:"not null;index" json:"start_time"`

	EntryFee float64 `gorm:"default:0" json:"entry_fee"`
	MaxSlots int     `gorm:"not null" json:"max_slots"`

	// Prize breakdown; PrizePool is always the sum of the three places.
	PrizeFirst  float64 `gorm:"default:0" json:"prize_first"`
	PrizeSecond float64 `gorm:"default:0" json:"prize_second"`
	PrizeThird  float64 `gorm:"default:0" json:"prize_third"`
	PrizePool   float64 `gorm:"default:0" json:"prize_pool"`

	Status MatchStatus `gorm:"type:varchar(24);default:'UPCOMING';index" json:"status"`
	Type   MatchType   `gorm:"type:varchar(16);default:'COMMUNITY'" json:"type"`

	CreatedByID string `gorm:"index;not null" json:"created_by_id"`

	// Room credentials, set when the host starts the match
	RoomID       string `json:"room_id,omitempty"`
	RoomPassword string `json:"-"`

	// Winner is the rank-1 submission, set at closure
	WinnerSubmissionID *string `json:"winner_submission_id,omitempty"`

	// Calculated fields (not stored)
	RegisteredCount int64 `json:"registered_count,omitempty" gorm:"-"`
	SlotsLeft       int64 `json:"slots_left,omitempty" gorm:"-"`

	Timestamps
}

// MatchResult is one ranked row of a completed match.
type MatchResult struct {
	ID           string `gorm:"primaryKey" json:"id"`
	MatchID      string `gorm:"index;not null" json:"match_id"`
	SubmissionID string `gorm:"index;not null" json:"submission_id"`
	UserID       string `gorm:"index;not null" json:"user_id"`
	Rank         int    `gorm:"not null" json:"rank"`
	Placement    int    `json:"placement"`
	Kills        int    `json:"kills"`
	TotalScore   int    `json:"total_score"`

	Timestamps
}
