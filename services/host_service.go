// services/host_service.go
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

type HostService struct {
	DB     *gorm.DB
	Mailer Mailer
}

func NewHostService(db *gorm.DB, mailer Mailer) *HostService {
	return &HostService{DB: db, Mailer: mailer}
}

// Apply files a host application for the caller. One pending application
// at a time.
func (s *HostService) Apply(c *fiber.Ctx) error {
	type Req struct {
		Experience string `json:"experience"`
		Reason     string `json:"reason"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	userID := middleware.CtxUserID(c)
	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "user not found"})
	}
	if user.Role != models.RolePlayer {
		return c.Status(400).JSON(fiber.Map{"error": "only players can apply to become hosts"})
	}
	if user.Phone == "" {
		return c.Status(400).JSON(fiber.Map{"error": "a phone number is required to host"})
	}

	var pending models.HostApplication
	if err := s.DB.Where("user_id = ? AND status = ?", userID, models.HostApplicationStatusPending).
		First(&pending).Error; err == nil {
		return c.Status(409).JSON(fiber.Map{"error": ErrPendingApplication.Error()})
	}

	app := models.HostApplication{
		ID:         uuid.NewString(),
		UserID:     userID,
		Experience: req.Experience,
		Reason:     req.Reason,
		Status:     models.HostApplicationStatusPending,
	}
	if err := s.DB.Create(&app).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create application"})
	}
	return c.Status(201).JSON(app)
}

func (s *HostService) ListApplications(c *fiber.Ctx) error {
	var apps []models.HostApplication
	db := s.DB.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Find(&apps).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch applications"})
	}
	return c.JSON(apps)
}

// Review approves or rejects a host application. Approval promotes the
// user to HOST and locks their phone.
func (s *HostService) Review(c *fiber.Ctx) error {
	type Req struct {
		Action  string `json:"action"` // approve | reject
		Comment string `json:"comment"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Action != "approve" && req.Action != "reject" {
		return c.Status(400).JSON(fiber.Map{"error": "action must be approve or reject"})
	}

	var app models.HostApplication
	if err := s.DB.First(&app, "id = ?", c.Params("app_id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "application not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	if app.Status != models.HostApplicationStatusPending {
		return c.Status(409).JSON(fiber.Map{"error": "application already reviewed"})
	}

	now := time.Now()
	newStatus := models.HostApplicationStatusRejected
	if req.Action == "approve" {
		newStatus = models.HostApplicationStatusApproved
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&app).Updates(map[string]interface{}{
			"status":        newStatus,
			"admin_comment": req.Comment,
			"reviewed_by":   middleware.CtxUserID(c),
			"reviewed_at":   &now,
		}).Error; err != nil {
			return err
		}
		if newStatus == models.HostApplicationStatusApproved {
			return tx.Model(&models.User{}).Where("id = ?", app.UserID).Updates(map[string]interface{}{
				"role":         models.RoleHost,
				"phone_locked": true,
			}).Error
		}
		return nil
	})
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "review failed"})
	}

	var user models.User
	if err := s.DB.First(&user, "id = ?", app.UserID).Error; err == nil {
		subject := "Host application update"
		body := "Your host application was " + string(newStatus) + "."
		if req.Comment != "" {
			body += "\nComment: " + req.Comment
		}
		_ = s.Mailer.Send(user.Email, subject, body)
	}

	s.DB.First(&app, "id = ?", app.ID)
	return c.JSON(app)
}
