// services/match_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"bgmi-scrims-system/middleware"
	"bgmi-scrims-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type MatchService struct {
	DB     *gorm.DB
	Mailer Mailer
}

func NewMatchService(db *gorm.DB, mailer Mailer) *MatchService {
	return &MatchService{DB: db, Mailer: mailer}
}

// countActiveRegistrations counts slot-holding registrations: anything not
// cancelled holds a slot, paid or not.
func countActiveRegistrations(db *gorm.DB, matchID string) int64 {
	var count int64
	db.Model(&models.Registration{}).
		Where("match_id = ? AND status <> ?", matchID, models.RegistrationStatusCancelled).
		Count(&count)
	return count
}

// generateMatchID builds the human-readable identifier from the map, the
// scheduled date, and a per-day sequence, e.g. "ERANGEL-20260901-003".
func generateMatchID(db *gorm.DB, mapName string, start time.Time) string {
	code := strings.ToUpper(strings.Join(strings.Fields(mapName), ""))
	var cleaned strings.Builder
	for _, r := range code {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			cleaned.WriteRune(r)
		}
	}
	prefix := fmt.Sprintf("%s-%s", cleaned.String(), start.Format("20060102"))

	var count int64
	db.Model(&models.Match{}).Where("match_id LIKE ?", prefix+"-%").Count(&count)
	return fmt.Sprintf("%s-%03d", prefix, count+1)
}

func (s *MatchService) CreateMatch(c *fiber.Ctx) error {
	type Req struct {
		Map         string  `json:"map"`
		StartTime   string  `json:"start_time"` // RFC3339
		EntryFee    float64 `json:"entry_fee"`
		MaxSlots    int     `json:"max_slots"`
		PrizeFirst  float64 `json:"prize_first"`
		PrizeSecond float64 `json:"prize_second"`
		PrizeThird  float64 `json:"prize_third"`
	}
	role := middleware.CtxUserRole(c)
	if !middleware.CanCreateMatch(role) {
		return c.Status(403).JSON(fiber.Map{"error": "only hosts and admins can create matches"})
	}

	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Map == "" || req.StartTime == "" {
		return c.Status(400).JSON(fiber.Map{"error": "map and start_time are required"})
	}
	if req.MaxSlots <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "max_slots must be a positive integer"})
	}
	if req.EntryFee < 0 || req.PrizeFirst < 0 || req.PrizeSecond < 0 || req.PrizeThird < 0 {
		return c.Status(400).JSON(fiber.Map{"error": "fees and prizes must be non-negative"})
	}
	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid start_time (use RFC3339)"})
	}

	matchType := models.MatchTypeCommunity
	if role == models.RoleAdmin {
		matchType = models.MatchTypeOfficial
	}

	matchID := generateMatchID(s.DB, req.Map, startTime)
	match := &models.Match{
		ID:          uuid.NewString(),
		MatchID:     matchID,
		Slug:        slug.Make(matchID),
		Map:         req.Map,
		StartTime:   startTime,
		EntryFee:    req.EntryFee,
		MaxSlots:    req.MaxSlots,
		PrizeFirst:  req.PrizeFirst,
		PrizeSecond: req.PrizeSecond,
		PrizeThird:  req.PrizeThird,
		// Prize pool is always the sum of the breakdown, never client-supplied
		PrizePool:   req.PrizeFirst + req.PrizeSecond + req.PrizeThird,
		Status:      models.MatchStatusUpcoming,
		Type:        matchType,
		CreatedByID: middleware.CtxUserID(c),
	}
	if err := s.DB.Create(match).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create match"})
	}
	return c.Status(201).JSON(match)
}

func (s *MatchService) ListMatches(c *fiber.Ctx) error {
	var matches []models.Match
	db := s.DB.Order("start_time ASC")
	if status := c.Query("status"); status != "" {
		db = db.Where("status = ?", strings.ToUpper(status))
	}
	if err := db.Find(&matches).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch matches"})
	}
	for i := range matches {
		count := countActiveRegistrations(s.DB, matches[i].ID)
		matches[i].RegisteredCount = count
		matches[i].SlotsLeft = int64(matches[i].MaxSlots) - count
	}
	return c.JSON(matches)
}

func (s *MatchService) GetMatchBySlug(c *fiber.Ctx) error {
	var match models.Match
	if err := s.DB.Where("slug = ?", c.Params("slug")).First(&match).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "match not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	count := countActiveRegistrations(s.DB, match.ID)
	match.RegisteredCount = count
	match.SlotsLeft = int64(match.MaxSlots) - count

	var results []models.MatchResult
	if match.Status == models.MatchStatusCompleted {
		s.DB.Where("match_id = ?", match.ID).Order("rank ASC").Find(&results)
	}
	return c.JSON(fiber.Map{"match": match, "results": results})
}

// StartMatchCore moves a match to ONGOING and records room credentials.
// A no-op for matches already past UPCOMING.
func (s *MatchService) StartMatchCore(matchID, actorID string, role models.Role, roomID, roomPassword string) (*models.Match, error) {
	var match models.Match
	if err := s.DB.First(&match, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if !middleware.CanManageMatch(role, actorID, &match) {
		return nil, ErrNotAuthorized
	}
	if match.Status != models.MatchStatusUpcoming {
		return &match, nil
	}

	updates := map[string]interface{}{
		"status":        models.MatchStatusOngoing,
		"room_id":       roomID,
		"room_password": roomPassword,
	}
	if err := s.DB.Model(&match).Updates(updates).Error; err != nil {
		return nil, err
	}
	match.Status = models.MatchStatusOngoing
	match.RoomID = roomID
	match.RoomPassword = roomPassword

	s.notifyRoomStart(&match)
	return &match, nil
}

// notifyRoomStart emails room credentials to every slot-holding player.
func (s *MatchService) notifyRoomStart(match *models.Match) {
	var regs []models.Registration
	if err := s.DB.Where("match_id = ? AND status <> ?", match.ID, models.RegistrationStatusCancelled).
		Find(&regs).Error; err != nil {
		log.Printf("[MATCH] failed to load registrations for room notify: %v", err)
		return
	}
	for _, reg := range regs {
		var user models.User
		if err := s.DB.First(&user, "id = ?", reg.UserID).Error; err != nil {
			continue
		}
		body := fmt.Sprintf("Match %s is starting.\nRoom ID: %s\nPassword: %s",
			match.MatchID, match.RoomID, match.RoomPassword)
		if err := s.Mailer.Send(user.Email, "Room details for "+match.MatchID, body); err != nil {
			log.Printf("[MATCH] failed to mail room details to %s: %v", user.Email, err)
		}
	}
}

func (s *MatchService) StartMatch(c *fiber.Ctx) error {
	type Req struct {
		RoomID       string `json:"room_id"`
		RoomPassword string `json:"room_password"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	match, err := s.StartMatchCore(c.Params("id"), middleware.CtxUserID(c), middleware.CtxUserRole(c), req.RoomID, req.RoomPassword)
	switch {
	case errors.Is(err, ErrMatchNotFound):
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrNotAuthorized):
		return c.Status(403).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		return c.Status(500).JSON(fiber.Map{"error": "failed to start match"})
	}
	return c.JSON(fiber.Map{"message": "match started", "match": match})
}

// OpenResults moves an ONGOING match to AWAITING_RESULTS once play ends.
func (s *MatchService) OpenResults(c *fiber.Ctx) error {
	var match models.Match
	if err := s.DB.First(&match, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "match not found"})
	}
	if !middleware.CanManageMatch(middleware.CtxUserRole(c), middleware.CtxUserID(c), &match) {
		return c.Status(403).JSON(fiber.Map{"error": "not authorized for this match"})
	}
	if match.Status != models.MatchStatusOngoing {
		return c.Status(400).JSON(fiber.Map{"error": "match is not ongoing", "status": match.Status})
	}
	if err := s.DB.Model(&match).Update("status", models.MatchStatusAwaitingResults).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to update match"})
	}
	match.Status = models.MatchStatusAwaitingResults
	return c.JSON(fiber.Map{"message": "results open", "match": match})
}

// RankSubmissions orders submissions by total score desc, kills desc,
// placement asc, created-at asc, and returns a freshly sorted copy.
func RankSubmissions(subs []models.ResultSubmission) []models.ResultSubmission {
	ranked := make([]models.ResultSubmission, len(subs))
	copy(ranked, subs)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if a.Kills != b.Kills {
			return a.Kills > b.Kills
		}
		if a.Placement != b.Placement {
			return a.Placement < b.Placement
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return ranked
}

// CloseMatchWithWinnerCore freezes a match: every submission must be
// VERIFIED, the supplied winner must equal the computed rank 1, and the
// ranked table is written alongside the COMPLETED transition.
func (s *MatchService) CloseMatchWithWinnerCore(matchID, winningSubmissionID, actorID string, role models.Role) (*models.Match, []models.MatchResult, error) {
	var match models.Match
	if err := s.DB.First(&match, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrMatchNotFound
		}
		return nil, nil, err
	}
	if !middleware.CanManageMatch(role, actorID, &match) {
		return nil, nil, ErrNotAuthorized
	}
	if match.Status == models.MatchStatusCompleted {
		return nil, nil, ErrResultsClosed
	}

	var subs []models.ResultSubmission
	if err := s.DB.Where("match_id = ?", matchID).Find(&subs).Error; err != nil {
		return nil, nil, err
	}
	if len(subs) == 0 {
		return nil, nil, ErrUnverifiedResults
	}
	for _, sub := range subs {
		if sub.Status != models.SubmissionStatusVerified {
			return nil, nil, ErrUnverifiedResults
		}
	}

	ranked := RankSubmissions(subs)
	if ranked[0].ID != winningSubmissionID {
		return nil, nil, ErrWinnerMismatch
	}

	results := make([]models.MatchResult, len(ranked))
	for i, sub := range ranked {
		results[i] = models.MatchResult{
			ID:           uuid.NewString(),
			MatchID:      matchID,
			SubmissionID: sub.ID,
			UserID:       sub.UserID,
			Rank:         i + 1,
			Placement:    sub.Placement,
			Kills:        sub.Kills,
			TotalScore:   sub.TotalScore,
		}
	}

	winnerID := ranked[0].ID
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		for i := range results {
			if err := tx.Create(&results[i]).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Match{}).Where("id = ?", matchID).Updates(map[string]interface{}{
			"status":               models.MatchStatusCompleted,
			"winner_submission_id": winnerID,
		}).Error
	})
	if err != nil {
		return nil, nil, err
	}
	match.Status = models.MatchStatusCompleted
	match.WinnerSubmissionID = &winnerID

	s.notifyWinner(&match, &ranked[0])
	return &match, results, nil
}

func (s *MatchService) notifyWinner(match *models.Match, winner *models.ResultSubmission) {
	var user models.User
	if err := s.DB.First(&user, "id = ?", winner.UserID).Error; err != nil {
		return
	}
	body := fmt.Sprintf("You won match %s with %d points! Prize: %.2f",
		match.MatchID, winner.TotalScore, match.PrizeFirst)
	if err := s.Mailer.Send(user.Email, "You won "+match.MatchID, body); err != nil {
		log.Printf("[MATCH] failed to mail winner %s: %v", user.Email, err)
	}
}

func (s *MatchService) CloseMatch(c *fiber.Ctx) error {
	type Req struct {
		WinningSubmissionID string `json:"winning_submission_id"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil || req.WinningSubmissionID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "winning_submission_id is required"})
	}

	match, results, err := s.CloseMatchWithWinnerCore(c.Params("id"), req.WinningSubmissionID,
		middleware.CtxUserID(c), middleware.CtxUserRole(c))
	switch {
	case errors.Is(err, ErrMatchNotFound):
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrNotAuthorized):
		return c.Status(403).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrResultsClosed):
		return c.Status(409).JSON(fiber.Map{"error": "match already completed"})
	case errors.Is(err, ErrUnverifiedResults), errors.Is(err, ErrWinnerMismatch):
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		return c.Status(500).JSON(fiber.Map{"error": "failed to close match"})
	}
	return c.JSON(fiber.Map{"message": "match completed", "match": match, "results": results})
}
