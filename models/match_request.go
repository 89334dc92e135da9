package models

// MatchRequest is a community-submitted desired-match proposal. Advisory
// only; hosts may pick popular requests up when scheduling.
type MatchRequest struct {
	ID     string `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"index;not null" json:"user_id"`

	Map           string `gorm:"not null" json:"map"`
	PreferredTime string `json:"preferred_time,omitempty"`
	Note          string `json:"note,omitempty"`

	// Calculated (not stored)
	VoteCount int64 `json:"vote_count,omitempty" gorm:"-"`

	Timestamps
}

// MatchRequestVote is a one-per-user upvote on a request.
type MatchRequestVote struct {
	ID        string `gorm:"primaryKey" json:"id"`
	RequestID string `gorm:"uniqueIndex:idx_vote_user_request;not null" json:"request_id"`
	UserID    string `gorm:"uniqueIndex:idx_vote_user_request;not null" json:"user_id"`

	Timestamps
}
