// services/payment_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"bgmi-scrims-system/middleware"
	"bgmi-scrims-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentGateway is the slice of the Cashfree API the payment workflow
// needs. CashfreeClient implements it; tests use a fake.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req CashfreeOrderRequest) (*CashfreeOrder, error)
	GetOrder(ctx context.Context, orderID string) (*CashfreeOrder, error)
	CheckoutURL(paymentSessionID string) string
}

type PaymentService struct {
	DB            *gorm.DB
	Gateway       PaymentGateway
	WebhookSecret string
	// NotifyBaseURL is this service's public base URL, used to build the
	// webhook notify_url handed to the gateway.
	NotifyBaseURL string
	Registrations *RegistrationService
}

func NewPaymentService(db *gorm.DB, gateway PaymentGateway, webhookSecret, notifyBaseURL string, regs *RegistrationService) *PaymentService {
	return &PaymentService{
		DB:            db,
		Gateway:       gateway,
		WebhookSecret: webhookSecret,
		NotifyBaseURL: notifyBaseURL,
		Registrations: regs,
	}
}

// MapGatewayStatus reduces the gateway's status vocabulary to ours:
// PAID/SUCCESS map to SUCCESS, FAILED to FAILED, anything else stays
// INITIATED.
func MapGatewayStatus(orderStatus, paymentStatus string) models.PaymentOrderStatus {
	switch strings.ToUpper(orderStatus) {
	case "PAID", "SUCCESS":
		return models.PaymentOrderStatusSuccess
	case "FAILED":
		return models.PaymentOrderStatusFailed
	}
	switch strings.ToUpper(paymentStatus) {
	case "SUCCESS", "PAID":
		return models.PaymentOrderStatusSuccess
	case "FAILED":
		return models.PaymentOrderStatusFailed
	}
	return models.PaymentOrderStatusInitiated
}

// CreateOrder opens a hosted-checkout session for a match entry fee. The
// PaymentOrder row is persisted only after the gateway confirms order
// creation, so a gateway failure leaves no partial state.
func (s *PaymentService) CreateOrder(c *fiber.Ctx) error {
	type Req struct {
		MatchID       string `json:"match_id"`
		CaptainGameID string `json:"captain_game_id"`
		SquadGameIDs  string `json:"squad_game_ids"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil || req.MatchID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "match_id is required"})
	}

	userID := middleware.CtxUserID(c)
	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "user not found"})
	}

	var match models.Match
	if err := s.DB.First(&match, "id = ?", req.MatchID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "match not found"})
	}
	if match.Status != models.MatchStatusUpcoming {
		return c.Status(400).JSON(fiber.Map{"error": "match is not open for registration"})
	}

	var existing models.Registration
	if err := s.DB.Where("match_id = ? AND user_id = ? AND status <> ?",
		req.MatchID, userID, models.RegistrationStatusCancelled).
		First(&existing).Error; err == nil {
		return c.Status(409).JSON(fiber.Map{"error": "user already registered for this match"})
	}

	if !user.EmailVerified {
		return c.Status(403).JSON(fiber.Map{"error": "email not verified"})
	}
	if user.Phone == "" {
		return c.Status(400).JSON(fiber.Map{"error": "a phone number is required for payment"})
	}

	orderID := "scrim_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	origin := c.Get("Origin")
	if origin == "" {
		origin = s.NotifyBaseURL
	}
	returnURL := fmt.Sprintf("%s/matches/%s?order_id=%s", origin, match.Slug, orderID)
	notifyURL := s.NotifyBaseURL + "/api/webhooks/cashfree"

	gwOrder, err := s.Gateway.CreateOrder(c.Context(), CashfreeOrderRequest{
		OrderID:       orderID,
		OrderAmount:   match.EntryFee,
		OrderCurrency: "INR",
		CustomerDetails: CashfreeCustomerDetails{
			CustomerID:    user.ID,
			CustomerEmail: user.Email,
			CustomerPhone: user.Phone,
		},
		OrderMeta: CashfreeOrderMeta{
			ReturnURL: returnURL,
			NotifyURL: notifyURL,
		},
	})
	if err != nil {
		log.Printf("[PAYMENT] gateway order creation failed for user %s match %s: %v", userID, match.MatchID, err)
		return c.Status(400).JSON(fiber.Map{"error": "payment gateway rejected the order"})
	}

	order := &models.PaymentOrder{
		ID:               uuid.NewString(),
		OrderID:          orderID,
		UserID:           userID,
		MatchID:          match.ID,
		Amount:           match.EntryFee,
		Currency:         "INR",
		Status:           models.PaymentOrderStatusInitiated,
		PaymentSessionID: gwOrder.PaymentSessionID,
		CaptainGameID:    req.CaptainGameID,
		SquadGameIDs:     req.SquadGameIDs,
	}
	if err := s.DB.Create(order).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to persist payment order"})
	}

	return c.Status(201).JSON(fiber.Map{
		"order_id":           orderID,
		"payment_session_id": gwOrder.PaymentSessionID,
		"checkout_url":       s.Gateway.CheckoutURL(gwOrder.PaymentSessionID),
	})
}

// ApplyOrderStatus moves an order out of INITIATED exactly once. The update
// is conditional on the stored status still being INITIATED, so webhook and
// sweep can race freely: whichever lands first wins, replays and the loser
// are no-ops, and a terminal status never regresses. The flip and the
// registration finalization share one transaction: a transient finalization
// failure rolls the flip back so the next webhook or sweep delivery retries
// the whole thing. Lost-slot outcomes (the match filled up or started before
// the payment landed) keep the order resolved and are handled out of band.
func (s *PaymentService) ApplyOrderStatus(orderID string, newStatus models.PaymentOrderStatus, via string) (bool, error) {
	var order models.PaymentOrder
	if err := s.DB.Where("order_id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrOrderNotFound
		}
		return false, err
	}
	if !newStatus.Terminal() {
		return false, nil
	}

	changed := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&models.PaymentOrder{}).
			Where("order_id = ? AND status = ?", orderID, models.PaymentOrderStatusInitiated).
			Updates(map[string]interface{}{
				"status":       newStatus,
				"resolved_at":  &now,
				"resolved_via": via,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Already resolved by the other delivery path.
			return nil
		}
		changed = true

		if newStatus != models.PaymentOrderStatusSuccess {
			return nil
		}
		err := s.finalizeRegistration(tx, &order)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrAlreadyRegistered):
			// Benign: the registration landed through another path.
			return nil
		case errors.Is(err, ErrMatchFull), errors.Is(err, ErrMatchNotOpen):
			// The paid slot is gone; keep the order resolved so replays
			// stop, and refund manually.
			log.Printf("[PAYMENT] order %s paid but no slot on match %s (%v), refund required",
				order.OrderID, order.MatchID, err)
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// finalizeRegistration applies the order's stored payload: confirm an
// existing pending registration, or create a confirmed one (direct-order
// flow). Runs on the caller's transaction.
func (s *PaymentService) finalizeRegistration(tx *gorm.DB, order *models.PaymentOrder) error {
	now := time.Now()
	paymentMeta := map[string]interface{}{
		"status":           models.RegistrationStatusConfirmed,
		"payment_order_id": order.OrderID,
		"payment_amount":   order.Amount,
		"payment_method":   "cashfree",
		"paid_at":          &now,
	}

	var existing models.Registration
	err := tx.Where("match_id = ? AND user_id = ? AND status <> ?",
		order.MatchID, order.UserID, models.RegistrationStatusCancelled).
		First(&existing).Error
	if err == nil {
		if existing.Status == models.RegistrationStatusConfirmed {
			return ErrAlreadyRegistered
		}
		return tx.Model(&existing).Updates(paymentMeta).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	reg, _, err := s.Registrations.registerOn(tx, order.MatchID, order.UserID,
		TeamInfo{CaptainGameID: order.CaptainGameID, SquadGameIDs: order.SquadGameIDs},
		models.RegistrationStatusConfirmed)
	if err != nil {
		return err
	}
	return tx.Model(reg).Updates(paymentMeta).Error
}

// cashfreeWebhookPayload is the slice of the webhook body we consume.
type cashfreeWebhookPayload struct {
	Data struct {
		Order struct {
			OrderID     string `json:"order_id"`
			OrderStatus string `json:"order_status"`
		} `json:"order"`
		Payment struct {
			PaymentStatus string `json:"payment_status"`
		} `json:"payment"`
	} `json:"data"`
}

// HandleWebhook authenticates and applies a gateway notification. The
// signature is checked against the raw body before anything is parsed.
func (s *PaymentService) HandleWebhook(c *fiber.Ctx) error {
	rawBody := c.Body()
	signature := c.Get("x-webhook-signature")
	timestamp := c.Get("x-webhook-timestamp")

	if !VerifyWebhookSignature(s.WebhookSecret, rawBody, signature, timestamp) {
		log.Printf("[PAYMENT] webhook signature verification failed")
		return c.Status(401).JSON(fiber.Map{"error": "invalid webhook signature"})
	}

	var payload cashfreeWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "malformed webhook payload"})
	}
	orderID := payload.Data.Order.OrderID
	if orderID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "missing order_id"})
	}

	newStatus := MapGatewayStatus(payload.Data.Order.OrderStatus, payload.Data.Payment.PaymentStatus)
	changed, err := s.ApplyOrderStatus(orderID, newStatus, "webhook")
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "unknown order"})
		}
		log.Printf("[PAYMENT] webhook apply failed for order %s: %v", orderID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to apply order status"})
	}
	return c.JSON(fiber.Map{"applied": changed, "status": newStatus})
}

// GetOrderStatus backs the payment return page, which re-queries instead of
// trusting redirect parameters.
func (s *PaymentService) GetOrderStatus(c *fiber.Ctx) error {
	var order models.PaymentOrder
	if err := s.DB.Where("order_id = ?", c.Params("order_id")).First(&order).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "order not found"})
	}
	if order.UserID != middleware.CtxUserID(c) && middleware.CtxUserRole(c) != models.RoleAdmin {
		return c.Status(403).JSON(fiber.Map{"error": "not your order"})
	}
	return c.JSON(fiber.Map{
		"order_id":    order.OrderID,
		"status":      order.Status,
		"amount":      order.Amount,
		"resolved_at": order.ResolvedAt,
	})
}

// SweepReport summarizes one reconciliation pass.
type SweepReport struct {
	Processed int `json:"processed"`
	Resolved  int `json:"resolved"`
	Failed    int `json:"failed"`
}

// SyncStaleOrders queries the gateway for INITIATED orders older than
// minAge whose webhook never arrived, and applies the same idempotent
// status logic as the webhook path. Per-order failures are isolated so one
// bad order cannot abort the batch.
func (s *PaymentService) SyncStaleOrders(ctx context.Context, minAge time.Duration, limit int) (SweepReport, error) {
	var report SweepReport
	cutoff := time.Now().Add(-minAge)

	var stale []models.PaymentOrder
	if err := s.DB.Where("status = ? AND created_at < ?", models.PaymentOrderStatusInitiated, cutoff).
		Order("created_at ASC").Limit(limit).Find(&stale).Error; err != nil {
		return report, fmt.Errorf("query stale orders: %w", err)
	}

	for _, order := range stale {
		report.Processed++
		gwOrder, err := s.Gateway.GetOrder(ctx, order.OrderID)
		if err != nil {
			log.Printf("[SWEEP] gateway lookup failed for order %s: %v", order.OrderID, err)
			report.Failed++
			continue
		}
		newStatus := MapGatewayStatus(gwOrder.OrderStatus, "")
		if !newStatus.Terminal() {
			continue
		}
		changed, err := s.ApplyOrderStatus(order.OrderID, newStatus, "sweep")
		if err != nil {
			log.Printf("[SWEEP] apply failed for order %s: %v", order.OrderID, err)
			report.Failed++
			continue
		}
		if changed {
			report.Resolved++
		}
	}
	return report, nil
}

// AdminSync triggers a reconciliation pass on demand.
func (s *PaymentService) AdminSync(c *fiber.Ctx) error {
	type Req struct {
		MinAgeMinutes int `json:"min_age_minutes"`
		Limit         int `json:"limit"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.MinAgeMinutes <= 0 {
		req.MinAgeMinutes = 10
	}
	if req.Limit <= 0 || req.Limit > 500 {
		req.Limit = 100
	}

	report, err := s.SyncStaleOrders(c.Context(), time.Duration(req.MinAgeMinutes)*time.Minute, req.Limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "sweep failed", "details": err.Error()})
	}
	return c.JSON(report)
}
