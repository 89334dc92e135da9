// services/upload_service.go
package services

import (
	"path/filepath"
	"strings"

	"bgmi-scrims-system/middleware"
	"bgmi-scrims-system/models"
	"bgmi-scrims-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UploadService struct {
	DB *gorm.DB
}

func NewUploadService(db *gorm.DB) *UploadService {
	return &UploadService{DB: db}
}

const maxScreenshotBytes = 10 * 1024 * 1024

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Presign hands the client a direct-PUT URL for a result screenshot. The
// object key is server-generated; the client never chooses it.
func (s *UploadService) Presign(c *fiber.Ctx) error {
	type Req struct {
		ContentType string `json:"content_type"`
		Size        int64  `json:"size"`
		Filename    string `json:"filename"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	ext, ok := allowedImageTypes[strings.ToLower(req.ContentType)]
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "content_type must be jpeg, png, or webp"})
	}
	if req.Size <= 0 || req.Size > maxScreenshotBytes {
		return c.Status(400).JSON(fiber.Map{"error": "size must be between 1 byte and 10MB"})
	}
	if e := filepath.Ext(req.Filename); e != "" {
		ext = strings.ToLower(e)
	}

	key := "screenshots/" + uuid.NewString() + ext
	url, err := utils.PresignPut(c.Context(), key, req.ContentType)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to presign upload"})
	}
	return c.JSON(fiber.Map{"key": key, "upload_url": url})
}

// Complete registers the metadata of an object the client finished PUTting.
func (s *UploadService) Complete(c *fiber.Ctx) error {
	type Req struct {
		Key         string `json:"key"`
		ContentType string `json:"content_type"`
		Size        int64  `json:"size"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil || req.Key == "" {
		return c.Status(400).JSON(fiber.Map{"error": "key is required"})
	}
	if !strings.HasPrefix(req.Key, "screenshots/") {
		return c.Status(400).JSON(fiber.Map{"error": "unknown upload key"})
	}

	meta := models.FileMetadata{
		ID:          uuid.NewString(),
		UserID:      middleware.CtxUserID(c),
		Key:         req.Key,
		ContentType: req.ContentType,
		Size:        req.Size,
		Visibility:  models.FileVisibilityPrivate,
	}
	if err := s.DB.Create(&meta).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to register upload"})
	}
	return c.Status(201).JSON(meta)
}
