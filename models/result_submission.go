package models

import "time"

// SubmissionStatus tracks evidence review
type SubmissionStatus string

const (
	SubmissionStatusSubmitted   SubmissionStatus = "SUBMITTED"
	SubmissionStatusUnderReview SubmissionStatus = "UNDER_REVIEW"
	SubmissionStatusVerified    SubmissionStatus = "VERIFIED"
	SubmissionStatusRejected    SubmissionStatus = "REJECTED"
)

// ResultSubmission is the single evidence submission per (user, match).
// A rejected submission is replaced in place by a resubmission rather than
// inserting a new row. Read-only once the match is COMPLETED.
type ResultSubmission struct {
	ID      string `gorm:"primaryKey" json:"id"`
	MatchID string `gorm:"uniqueIndex:idx_sub_user_match;not null" json:"match_id"`
	UserID  string `gorm:"uniqueIndex:idx_sub_user_match;not null" json:"user_id"`

	// ScreenshotKey is the private object-storage key of the evidence image
	ScreenshotKey string `gorm:"not null" json:"screenshot_key"`

	Status SubmissionStatus `gorm:"type:varchar(16);default:'SUBMITTED';index" json:"status"`

	// Host review fields (hosts review their own matches only)
	HostApprovedBy string     `json:"host_approved_by,omitempty"`
	HostApprovedAt *time.Time `json:"host_approved_at,omitempty"`

	// Admin review fields, independent of host fields
	AdminApprovedBy string     `json:"admin_approved_by,omitempty"`
	AdminApprovedAt *time.Time `json:"admin_approved_at,omitempty"`

	RejectedBy     string     `json:"rejected_by,omitempty"`
	RejectedAt     *time.Time `json:"rejected_at,omitempty"`
	RejectedReason string     `json:"rejected_reason,omitempty"`

	// Scoring; TotalScore is recomputed whenever placement/kills change
	Placement  int `gorm:"default:0" json:"placement"`
	Kills      int `gorm:"default:0" json:"kills"`
	TotalScore int `gorm:"default:0" json:"total_score"`

	Timestamps
}
