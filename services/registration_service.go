// services/registration_service.go
package services

import (
	"errors"
	"time"

	"bgmi-scrims-system/middleware"
	"bgmi-scrims-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RegistrationService struct {
	DB *gorm.DB
}

func NewRegistrationService(db *gorm.DB) *RegistrationService {
	return &RegistrationService{DB: db}
}

// TeamInfo carries the squad's in-game identities.
type TeamInfo struct {
	CaptainGameID string
	SquadGameIDs  string
}

// RegisterForMatchCore admits a user into a match. Preconditions run in
// order: match exists, match UPCOMING, capacity, no duplicate, email
// verified. Everything runs in one transaction; the capacity recount
// happens inside it so the last-slot window is as small as the store
// allows.
func (s *RegistrationService) RegisterForMatchCore(matchID, userID string, team TeamInfo, status models.RegistrationStatus) (*models.Registration, *models.Match, error) {
	var reg *models.Registration
	var match *models.Match
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		reg, match, err = s.registerOn(tx, matchID, userID, team, status)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return reg, match, nil
}

// registerOn is the transactional body of RegisterForMatchCore, usable from
// a caller's own transaction (the payment finalization path).
func (s *RegistrationService) registerOn(tx *gorm.DB, matchID, userID string, team TeamInfo, status models.RegistrationStatus) (*models.Registration, *models.Match, error) {
	var match models.Match
	if err := tx.First(&match, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrMatchNotFound
		}
		return nil, nil, err
	}
	if match.Status != models.MatchStatusUpcoming {
		return nil, nil, ErrMatchNotOpen
	}

	var user models.User
	if err := tx.First(&user, "id = ?", userID).Error; err != nil {
		return nil, nil, err
	}

	var count int64
	if err := tx.Model(&models.Registration{}).
		Where("match_id = ? AND status <> ?", matchID, models.RegistrationStatusCancelled).
		Count(&count).Error; err != nil {
		return nil, nil, err
	}
	if count >= int64(match.MaxSlots) {
		return nil, nil, ErrMatchFull
	}

	var existing models.Registration
	if err := tx.Where("match_id = ? AND user_id = ? AND status <> ?",
		matchID, userID, models.RegistrationStatusCancelled).
		First(&existing).Error; err == nil {
		return nil, nil, ErrAlreadyRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	if !user.EmailVerified {
		return nil, nil, ErrEmailNotVerified
	}

	reg := &models.Registration{
		ID:            uuid.NewString(),
		MatchID:       matchID,
		UserID:        userID,
		Status:        status,
		CaptainGameID: team.CaptainGameID,
		SquadGameIDs:  team.SquadGameIDs,
	}
	if err := tx.Create(reg).Error; err != nil {
		return nil, nil, err
	}
	return reg, &match, nil
}

func registrationErrStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, ErrMatchNotFound):
		return 404, true
	case errors.Is(err, ErrMatchNotOpen):
		return 400, true
	case errors.Is(err, ErrMatchFull), errors.Is(err, ErrAlreadyRegistered):
		return 409, true
	case errors.Is(err, ErrEmailNotVerified):
		return 403, true
	}
	return 0, false
}

// RegisterForMatch books a slot for the caller. Free matches confirm
// immediately; paid matches go through /api/payments/create-order instead.
func (s *RegistrationService) RegisterForMatch(c *fiber.Ctx) error {
	type Req struct {
		CaptainGameID string `json:"captain_game_id"`
		SquadGameIDs  string `json:"squad_game_ids"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	matchID := c.Params("id")
	var match models.Match
	if err := s.DB.First(&match, "id = ?", matchID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "match not found"})
	}
	if match.EntryFee > 0 {
		return c.Status(400).JSON(fiber.Map{"error": "paid match: create a payment order instead"})
	}

	reg, matchSnap, err := s.RegisterForMatchCore(matchID, middleware.CtxUserID(c),
		TeamInfo{CaptainGameID: req.CaptainGameID, SquadGameIDs: req.SquadGameIDs},
		models.RegistrationStatusConfirmed)
	if err != nil {
		if status, ok := registrationErrStatus(err); ok {
			return c.Status(status).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(500).JSON(fiber.Map{"error": "registration failed"})
	}
	return c.Status(201).JSON(fiber.Map{"registration": reg, "match": matchSnap})
}

// AdminManualEntry books a CONFIRMED registration on behalf of a user who
// paid outside the gateway.
func (s *RegistrationService) AdminManualEntry(c *fiber.Ctx) error {
	type Req struct {
		UserID        string  `json:"user_id"`
		CaptainGameID string  `json:"captain_game_id"`
		SquadGameIDs  string  `json:"squad_game_ids"`
		PaymentAmount float64 `json:"payment_amount"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil || req.UserID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "user_id is required"})
	}

	reg, matchSnap, err := s.RegisterForMatchCore(c.Params("id"), req.UserID,
		TeamInfo{CaptainGameID: req.CaptainGameID, SquadGameIDs: req.SquadGameIDs},
		models.RegistrationStatusConfirmed)
	if err != nil {
		if status, ok := registrationErrStatus(err); ok {
			return c.Status(status).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(500).JSON(fiber.Map{"error": "registration failed"})
	}

	now := time.Now()
	updates := map[string]interface{}{
		"payment_amount": req.PaymentAmount,
		"payment_method": "manual",
		"paid_at":        &now,
	}
	if err := s.DB.Model(reg).Updates(updates).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to record payment metadata"})
	}
	return c.Status(201).JSON(fiber.Map{"registration": reg, "match": matchSnap})
}

func (s *RegistrationService) ListMatchRegistrations(c *fiber.Ctx) error {
	matchID := c.Params("id")
	var match models.Match
	if err := s.DB.First(&match, "id = ?", matchID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "match not found"})
	}
	if !middleware.CanManageMatch(middleware.CtxUserRole(c), middleware.CtxUserID(c), &match) {
		return c.Status(403).JSON(fiber.Map{"error": "not authorized for this match"})
	}

	var regs []models.Registration
	if err := s.DB.Where("match_id = ?", matchID).Order("created_at ASC").Find(&regs).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch registrations"})
	}
	return c.JSON(regs)
}

// AdminCancel frees the slot held by a registration.
func (s *RegistrationService) AdminCancel(c *fiber.Ctx) error {
	type Req struct {
		Reason string `json:"reason"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	var reg models.Registration
	if err := s.DB.First(&reg, "id = ?", c.Params("reg_id")).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "registration not found"})
	}
	if reg.Status == models.RegistrationStatusCancelled {
		return c.Status(400).JSON(fiber.Map{"error": "already cancelled"})
	}

	now := time.Now()
	if err := s.DB.Model(&reg).Updates(map[string]interface{}{
		"status":           models.RegistrationStatusCancelled,
		"cancelled_reason": req.Reason,
		"cancelled_at":     &now,
	}).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "cancel failed"})
	}
	return c.JSON(fiber.Map{"message": "registration cancelled", "registration": reg})
}

// LockGameIDs freezes squad game-ID edits on a registration.
func (s *RegistrationService) LockGameIDs(c *fiber.Ctx) error {
	var reg models.Registration
	if err := s.DB.First(&reg, "id = ?", c.Params("reg_id")).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "registration not found"})
	}
	var match models.Match
	if err := s.DB.First(&match, "id = ?", reg.MatchID).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if !middleware.CanManageMatch(middleware.CtxUserRole(c), middleware.CtxUserID(c), &match) {
		return c.Status(403).JSON(fiber.Map{"error": "not authorized for this match"})
	}

	now := time.Now()
	if err := s.DB.Model(&reg).Updates(map[string]interface{}{
		"locked_at": &now,
		"locked_by": middleware.CtxUserID(c),
	}).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "lock failed"})
	}
	return c.JSON(fiber.Map{"message": "game IDs locked", "registration": reg})
}

// UpdateGameIDs lets the registering user edit squad identities while the
// registration is unlocked and the match has not started.
func (s *RegistrationService) UpdateGameIDs(c *fiber.Ctx) error {
	type Req struct {
		CaptainGameID string `json:"captain_game_id"`
		SquadGameIDs  string `json:"squad_game_ids"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	var reg models.Registration
	if err := s.DB.First(&reg, "id = ?", c.Params("reg_id")).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "registration not found"})
	}
	if reg.UserID != middleware.CtxUserID(c) {
		return c.Status(403).JSON(fiber.Map{"error": "not your registration"})
	}
	if reg.LockedAt != nil {
		return c.Status(403).JSON(fiber.Map{"error": "game IDs are locked"})
	}

	var match models.Match
	if err := s.DB.First(&match, "id = ?", reg.MatchID).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if match.Status != models.MatchStatusUpcoming {
		return c.Status(400).JSON(fiber.Map{"error": "match already started"})
	}

	if err := s.DB.Model(&reg).Updates(map[string]interface{}{
		"captain_game_id": req.CaptainGameID,
		"squad_game_ids":  req.SquadGameIDs,
	}).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "update failed"})
	}
	s.DB.First(&reg, "id = ?", reg.ID)
	return c.JSON(reg)
}
