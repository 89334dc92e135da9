// services/match_request_service.go
package services

import (
	"errors"

	"bgmi-scrims-system/middleware"
	"bgmi-scrims-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MatchRequestService struct {
	DB *gorm.DB
}

func NewMatchRequestService(db *gorm.DB) *MatchRequestService {
	return &MatchRequestService{DB: db}
}

func (s *MatchRequestService) CreateRequest(c *fiber.Ctx) error {
	type Req struct {
		Map           string `json:"map"`
		PreferredTime string `json:"preferred_time"`
		Note          string `json:"note"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil || req.Map == "" {
		return c.Status(400).JSON(fiber.Map{"error": "map is required"})
	}

	request := models.MatchRequest{
		ID:            uuid.NewString(),
		UserID:        middleware.CtxUserID(c),
		Map:           req.Map,
		PreferredTime: req.PreferredTime,
		Note:          req.Note,
	}
	if err := s.DB.Create(&request).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create request"})
	}
	return c.Status(201).JSON(request)
}

// ListRequests returns requests with vote tallies, most-voted first.
func (s *MatchRequestService) ListRequests(c *fiber.Ctx) error {
	var requests []models.MatchRequest
	if err := s.DB.Order("created_at DESC").Find(&requests).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch requests"})
	}
	for i := range requests {
		s.DB.Model(&models.MatchRequestVote{}).
			Where("request_id = ?", requests[i].ID).
			Count(&requests[i].VoteCount)
	}
	return c.JSON(requests)
}

// VoteCore registers a one-per-user vote on a request.
func (s *MatchRequestService) VoteCore(requestID, userID string) (*models.MatchRequestVote, error) {
	var request models.MatchRequest
	if err := s.DB.First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	var existing models.MatchRequestVote
	if err := s.DB.Where("request_id = ? AND user_id = ?", requestID, userID).
		First(&existing).Error; err == nil {
		return nil, ErrAlreadyVoted
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	vote := &models.MatchRequestVote{
		ID:        uuid.NewString(),
		RequestID: requestID,
		UserID:    userID,
	}
	if err := s.DB.Create(vote).Error; err != nil {
		return nil, err
	}
	return vote, nil
}

func (s *MatchRequestService) Vote(c *fiber.Ctx) error {
	vote, err := s.VoteCore(c.Params("req_id"), middleware.CtxUserID(c))
	switch {
	case errors.Is(err, ErrMatchNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "request not found"})
	case errors.Is(err, ErrAlreadyVoted):
		return c.Status(409).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		return c.Status(500).JSON(fiber.Map{"error": "vote failed"})
	}
	return c.Status(201).JSON(vote)
}
