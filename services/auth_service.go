// services/auth_service.go
package services

import (
	"log"
	"path/filepath"
	"strings"
	"time"

	"bgmi-scrims-system/middleware"
	"bgmi-scrims-system/models"
	"bgmi-scrims-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	DB      *gorm.DB
	AuthCfg middleware.AuthConfig
	Mailer  Mailer
}

func NewAuthService(db *gorm.DB, cfg middleware.AuthConfig, mailer Mailer) *AuthService {
	return &AuthService{DB: db, AuthCfg: cfg, Mailer: mailer}
}

const verifyTokenTTL = 24 * time.Hour
const resetTokenTTL = 1 * time.Hour

func (s *AuthService) Register(c *fiber.Ctx) error {
	type Req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
		BGMIName string `json:"bgmi_name"`
		BGMIID   string `json:"bgmi_id"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.Status(400).JSON(fiber.Map{"error": "username, email, and password are required"})
	}
	if len(req.Password) < 8 {
		return c.Status(400).JSON(fiber.Map{"error": "password must be at least 8 characters"})
	}
	if !strings.Contains(req.Email, "@") {
		return c.Status(400).JSON(fiber.Map{"error": "invalid email"})
	}

	var existing models.User
	if err := s.DB.Where("email = ? OR username = ?", req.Email, req.Username).First(&existing).Error; err == nil {
		return c.Status(409).JSON(fiber.Map{"error": "username or email already taken"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to hash password"})
	}

	verifyToken := uuid.NewString()
	verifyExpires := time.Now().Add(verifyTokenTTL)
	user := models.User{
		ID:                 uuid.NewString(),
		Username:           req.Username,
		Email:              req.Email,
		Phone:              strings.TrimSpace(req.Phone),
		PasswordHash:       string(hash),
		Role:               models.RolePlayer,
		BGMIName:           req.BGMIName,
		BGMIID:             req.BGMIID,
		VerifyToken:        verifyToken,
		VerifyTokenExpires: &verifyExpires,
	}
	if err := s.DB.Create(&user).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create user"})
	}

	if err := s.Mailer.Send(user.Email, "Verify your email",
		"Welcome to the scrims arena! Your verification code: "+verifyToken); err != nil {
		log.Printf("[AUTH] failed to send verification mail to %s: %v", user.Email, err)
	}

	return c.Status(201).JSON(fiber.Map{
		"message": "account created, verification email sent",
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"role":     user.Role,
		},
	})
}

func (s *AuthService) Login(c *fiber.Ctx) error {
	type Req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	var user models.User
	if err := s.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "invalid credentials"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "invalid credentials"})
	}

	token, err := middleware.IssueSessionToken(s.AuthCfg, &user)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to issue session"})
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Expires:  time.Now().Add(s.AuthCfg.SessionTTL),
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":             user.ID,
			"username":       user.Username,
			"email":          user.Email,
			"role":           user.Role,
			"email_verified": user.EmailVerified,
		},
	})
}

func (s *AuthService) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return c.JSON(fiber.Map{"message": "logged out"})
}

// RequestVerify re-issues a verification token for the logged-in user.
func (s *AuthService) RequestVerify(c *fiber.Ctx) error {
	userID := middleware.CtxUserID(c)
	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "user not found"})
	}
	if user.EmailVerified {
		return c.Status(400).JSON(fiber.Map{"error": "email already verified"})
	}

	token := uuid.NewString()
	expires := time.Now().Add(verifyTokenTTL)
	if err := s.DB.Model(&user).Updates(map[string]interface{}{
		"verify_token":         token,
		"verify_token_expires": &expires,
	}).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to issue token"})
	}

	if err := s.Mailer.Send(user.Email, "Verify your email", "Your verification code: "+token); err != nil {
		log.Printf("[AUTH] failed to send verification mail to %s: %v", user.Email, err)
	}
	return c.JSON(fiber.Map{"message": "verification email sent"})
}

func (s *AuthService) ConfirmVerify(c *fiber.Ctx) error {
	type Req struct {
		Token string `json:"token"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return c.Status(400).JSON(fiber.Map{"error": "token is required"})
	}

	var user models.User
	if err := s.DB.Where("verify_token = ?", req.Token).First(&user).Error; err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid verification token"})
	}
	if user.VerifyTokenExpires == nil || user.VerifyTokenExpires.Before(time.Now()) {
		return c.Status(400).JSON(fiber.Map{"error": "verification token expired"})
	}

	if err := s.DB.Model(&user).Updates(map[string]interface{}{
		"email_verified":       true,
		"verify_token":         "",
		"verify_token_expires": nil,
	}).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to verify email"})
	}
	return c.JSON(fiber.Map{"message": "email verified"})
}

// RequestReset always responds 200 so the endpoint cannot be used to probe
// which emails have accounts.
func (s *AuthService) RequestReset(c *fiber.Ctx) error {
	type Req struct {
		Email string `json:"email"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return c.Status(400).JSON(fiber.Map{"error": "email is required"})
	}

	var user models.User
	if err := s.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err == nil {
		token := uuid.NewString()
		expires := time.Now().Add(resetTokenTTL)
		if err := s.DB.Model(&user).Updates(map[string]interface{}{
			"reset_token":         token,
			"reset_token_expires": &expires,
		}).Error; err == nil {
			if err := s.Mailer.Send(user.Email, "Password reset", "Your password reset code: "+token); err != nil {
				log.Printf("[AUTH] failed to send reset mail to %s: %v", user.Email, err)
			}
		}
	}
	return c.JSON(fiber.Map{"message": "if the account exists, a reset email was sent"})
}

func (s *AuthService) ConfirmReset(c *fiber.Ctx) error {
	type Req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return c.Status(400).JSON(fiber.Map{"error": "token is required"})
	}
	if len(req.NewPassword) < 8 {
		return c.Status(400).JSON(fiber.Map{"error": "password must be at least 8 characters"})
	}

	var user models.User
	if err := s.DB.Where("reset_token = ?", req.Token).First(&user).Error; err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid reset token"})
	}
	if user.ResetTokenExpires == nil || user.ResetTokenExpires.Before(time.Now()) {
		return c.Status(400).JSON(fiber.Map{"error": "reset token expired"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to hash password"})
	}
	if err := s.DB.Model(&user).Updates(map[string]interface{}{
		"password_hash":       string(hash),
		"reset_token":         "",
		"reset_token_expires": nil,
	}).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to reset password"})
	}
	return c.JSON(fiber.Map{"message": "password updated"})
}

func (s *AuthService) Me(c *fiber.Ctx) error {
	var user models.User
	if err := s.DB.First(&user, "id = ?", middleware.CtxUserID(c)).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "user not found"})
	}
	return c.JSON(user)
}

// UpdateProfile edits display/contact fields. Phone is immutable once the
// user has been promoted to HOST.
func (s *AuthService) UpdateProfile(c *fiber.Ctx) error {
	type Req struct {
		Phone    *string `json:"phone"`
		BGMIName *string `json:"bgmi_name"`
		BGMIID   *string `json:"bgmi_id"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	var user models.User
	if err := s.DB.First(&user, "id = ?", middleware.CtxUserID(c)).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "user not found"})
	}

	updates := map[string]interface{}{}
	if req.Phone != nil {
		if user.PhoneLocked {
			return c.Status(403).JSON(fiber.Map{"error": "phone is locked for host accounts"})
		}
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.BGMIName != nil {
		updates["bgmi_name"] = *req.BGMIName
	}
	if req.BGMIID != nil {
		updates["bgmi_id"] = *req.BGMIID
	}
	if len(updates) == 0 {
		return c.JSON(user)
	}

	if err := s.DB.Model(&user).Updates(updates).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to update profile"})
	}
	s.DB.First(&user, "id = ?", user.ID)
	return c.JSON(user)
}

// UploadProfileImage stores the image public-read and saves the URL.
func (s *AuthService) UploadProfileImage(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "image is required"})
	}
	if file.Size > 5*1024*1024 {
		return c.Status(400).JSON(fiber.Map{"error": "image too large (max 5MB)"})
	}
	ext := filepath.Ext(file.Filename)
	if ext == "" {
		ext = ".jpg"
	}

	key := "profiles/" + uuid.NewString() + ext
	url, err := utils.UploadPublicFile(file, key)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to upload image"})
	}

	userID := middleware.CtxUserID(c)
	if err := s.DB.Model(&models.User{}).Where("id = ?", userID).
		Update("profile_image_url", url).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to save image URL"})
	}
	return c.JSON(fiber.Map{"profile_image_url": url})
}
