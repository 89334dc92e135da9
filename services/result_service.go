// services/result_service.go
package services

import (
	"errors"
	"strings"
	"time"

	"bgmi-scrims-system/middleware"
	"bgmi-scrims-system/models"
	"bgmi-scrims-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ResultService struct {
	DB *gorm.DB
}

func NewResultService(db *gorm.DB) *ResultService {
	return &ResultService{DB: db}
}

func matchAcceptsResults(status models.MatchStatus) bool {
	return status == models.MatchStatusOngoing || status == models.MatchStatusAwaitingResults
}

// SubmitResultCore stores the first evidence submission for (user, match),
// or replaces a REJECTED one while the match still accepts results.
func (s *ResultService) SubmitResultCore(matchID, userID, screenshotKey string) (*models.ResultSubmission, error) {
	var match models.Match
	if err := s.DB.First(&match, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if !matchAcceptsResults(match.Status) {
		return nil, ErrResultsClosed
	}

	var reg models.Registration
	if err := s.DB.Where("match_id = ? AND user_id = ? AND status <> ?",
		matchID, userID, models.RegistrationStatusCancelled).
		First(&reg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, err
	}

	var existing models.ResultSubmission
	err := s.DB.Where("match_id = ? AND user_id = ?", matchID, userID).First(&existing).Error
	if err == nil {
		if existing.Status != models.SubmissionStatusRejected {
			return nil, ErrAlreadySubmitted
		}
		// Resubmission: replace the evidence and clear every review field.
		if err := s.DB.Model(&existing).Updates(map[string]interface{}{
			"screenshot_key":    screenshotKey,
			"status":            models.SubmissionStatusSubmitted,
			"host_approved_by":  "",
			"host_approved_at":  nil,
			"admin_approved_by": "",
			"admin_approved_at": nil,
			"rejected_by":       "",
			"rejected_at":       nil,
			"rejected_reason":   "",
		}).Error; err != nil {
			return nil, err
		}
		s.DB.First(&existing, "id = ?", existing.ID)
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub := &models.ResultSubmission{
		ID:            uuid.NewString(),
		MatchID:       matchID,
		UserID:        userID,
		ScreenshotKey: screenshotKey,
		Status:        models.SubmissionStatusSubmitted,
	}
	if err := s.DB.Create(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *ResultService) SubmitResult(c *fiber.Ctx) error {
	type Req struct {
		ScreenshotKey string `json:"screenshot_key"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil || req.ScreenshotKey == "" {
		return c.Status(400).JSON(fiber.Map{"error": "screenshot_key is required"})
	}

	userID := middleware.CtxUserID(c)
	var meta models.FileMetadata
	if err := s.DB.Where("key = ? AND user_id = ?", req.ScreenshotKey, userID).First(&meta).Error; err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "screenshot upload not registered"})
	}

	sub, err := s.SubmitResultCore(c.Params("id"), userID, req.ScreenshotKey)
	switch {
	case errors.Is(err, ErrMatchNotFound):
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrResultsClosed):
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrNotRegistered):
		return c.Status(403).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrAlreadySubmitted):
		return c.Status(409).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		return c.Status(500).JSON(fiber.Map{"error": "submission failed"})
	}
	return c.Status(201).JSON(sub)
}

// ReviewSubmissionCore approves or rejects a submission. Hosts may only
// review submissions of matches they created. Approve marks VERIFIED and
// stamps the reviewer's column (host and admin tracked independently);
// reject requires a reason and clears approvals.
func (s *ResultService) ReviewSubmissionCore(submissionID, action, reason, reviewerID string, role models.Role) (*models.ResultSubmission, error) {
	var sub models.ResultSubmission
	if err := s.DB.First(&sub, "id = ?", submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}

	var match models.Match
	if err := s.DB.First(&match, "id = ?", sub.MatchID).Error; err != nil {
		return nil, err
	}
	if !middleware.CanManageMatch(role, reviewerID, &match) {
		return nil, ErrNotAuthorized
	}
	if match.Status == models.MatchStatusCompleted {
		return nil, ErrResultsClosed
	}

	now := time.Now()
	updates := map[string]interface{}{}
	switch action {
	case "approve":
		updates["status"] = models.SubmissionStatusVerified
		updates["rejected_by"] = ""
		updates["rejected_at"] = nil
		updates["rejected_reason"] = ""
		if role == models.RoleAdmin {
			updates["admin_approved_by"] = reviewerID
			updates["admin_approved_at"] = &now
		} else {
			updates["host_approved_by"] = reviewerID
			updates["host_approved_at"] = &now
		}
	case "reject":
		if strings.TrimSpace(reason) == "" {
			return nil, errors.New("a rejection reason is required")
		}
		updates["status"] = models.SubmissionStatusRejected
		updates["rejected_by"] = reviewerID
		updates["rejected_at"] = &now
		updates["rejected_reason"] = reason
		updates["host_approved_by"] = ""
		updates["host_approved_at"] = nil
		updates["admin_approved_by"] = ""
		updates["admin_approved_at"] = nil
	default:
		return nil, errors.New("action must be approve or reject")
	}

	if err := s.DB.Model(&sub).Updates(updates).Error; err != nil {
		return nil, err
	}
	s.DB.First(&sub, "id = ?", sub.ID)
	return &sub, nil
}

func (s *ResultService) reviewHandler(c *fiber.Ctx) error {
	type Req struct {
		Action string `json:"action"`
		Reason string `json:"reason"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	sub, err := s.ReviewSubmissionCore(c.Params("sub_id"), req.Action, req.Reason,
		middleware.CtxUserID(c), middleware.CtxUserRole(c))
	switch {
	case errors.Is(err, ErrSubmissionNotFound):
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrNotAuthorized):
		return c.Status(403).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrResultsClosed):
		return c.Status(409).JSON(fiber.Map{"error": "match already completed"})
	case err != nil:
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(sub)
}

// HostReview is the host-facing review endpoint.
func (s *ResultService) HostReview(c *fiber.Ctx) error {
	return s.reviewHandler(c)
}

// AdminReview is the admin-facing review endpoint.
func (s *ResultService) AdminReview(c *fiber.Ctx) error {
	return s.reviewHandler(c)
}

// AdminEdit directly edits placement/kills/status and recomputes the score.
func (s *ResultService) AdminEdit(c *fiber.Ctx) error {
	type Req struct {
		Placement *int    `json:"placement"`
		Kills     *int    `json:"kills"`
		Status    *string `json:"status"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	var sub models.ResultSubmission
	if err := s.DB.First(&sub, "id = ?", c.Params("sub_id")).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "submission not found"})
	}

	var match models.Match
	if err := s.DB.First(&match, "id = ?", sub.MatchID).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if match.Status == models.MatchStatusCompleted {
		return c.Status(409).JSON(fiber.Map{"error": "match already completed"})
	}

	placement := sub.Placement
	kills := sub.Kills
	updates := map[string]interface{}{}
	if req.Placement != nil {
		placement = *req.Placement
		updates["placement"] = placement
	}
	if req.Kills != nil {
		kills = *req.Kills
		updates["kills"] = kills
	}
	if req.Status != nil {
		status := models.SubmissionStatus(strings.ToUpper(*req.Status))
		switch status {
		case models.SubmissionStatusSubmitted, models.SubmissionStatusUnderReview,
			models.SubmissionStatusVerified, models.SubmissionStatusRejected:
			updates["status"] = status
		default:
			return c.Status(400).JSON(fiber.Map{"error": "invalid status"})
		}
	}
	updates["total_score"] = Score(placement, kills)

	if err := s.DB.Model(&sub).Updates(updates).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "update failed"})
	}
	s.DB.First(&sub, "id = ?", sub.ID)
	return c.JSON(sub)
}

// ListMatchSubmissions returns all submissions of a match for its reviewers.
func (s *ResultService) ListMatchSubmissions(c *fiber.Ctx) error {
	matchID := c.Params("id")
	var match models.Match
	if err := s.DB.First(&match, "id = ?", matchID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "match not found"})
	}
	if !middleware.CanManageMatch(middleware.CtxUserRole(c), middleware.CtxUserID(c), &match) {
		return c.Status(403).JSON(fiber.Map{"error": "not authorized for this match"})
	}

	var subs []models.ResultSubmission
	if err := s.DB.Where("match_id = ?", matchID).Order("created_at ASC").Find(&subs).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch submissions"})
	}
	return c.JSON(subs)
}

// ScreenshotURL returns a short-lived presigned link to the evidence image.
// Only the submitter, the match's host, or an admin may view it.
func (s *ResultService) ScreenshotURL(c *fiber.Ctx) error {
	var sub models.ResultSubmission
	if err := s.DB.First(&sub, "id = ?", c.Params("sub_id")).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "submission not found"})
	}

	userID := middleware.CtxUserID(c)
	role := middleware.CtxUserRole(c)
	if sub.UserID != userID {
		var match models.Match
		if err := s.DB.First(&match, "id = ?", sub.MatchID).Error; err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "DB error"})
		}
		if !middleware.CanManageMatch(role, userID, &match) {
			return c.Status(403).JSON(fiber.Map{"error": "not authorized"})
		}
	}

	url, err := utils.PresignGet(c.Context(), sub.ScreenshotKey)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to presign screenshot"})
	}
	return c.JSON(fiber.Map{"url": url, "expires_in_seconds": int(utils.ScreenshotURLExpiry.Seconds())})
}
