package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"bgmi-scrims-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func createTestOrder(t *testing.T, svc *PaymentService, user *models.User, match *models.Match) *models.PaymentOrder {
	t.Helper()
	order := &models.PaymentOrder{
		ID:            uuid.NewString(),
		OrderID:       "scrim_" + uuid.NewString()[:12],
		UserID:        user.ID,
		MatchID:       match.ID,
		Amount:        match.EntryFee,
		Currency:      "INR",
		Status:        models.PaymentOrderStatusInitiated,
		CaptainGameID: "cap-1",
	}
	if err := svc.DB.Create(order).Error; err != nil {
		t.Fatalf("create test order: %v", err)
	}
	return order
}

func activeRegistrationCount(t *testing.T, svc *PaymentService, matchID string) int64 {
	t.Helper()
	var count int64
	svc.DB.Model(&models.Registration{}).
		Where("match_id = ? AND status <> ?", matchID, models.RegistrationStatusCancelled).
		Count(&count)
	return count
}

func TestApplyOrderStatus_SuccessRegistersOnce(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestPaymentStack(t, db)
	host := createTestUser(t, db, models.RoleHost, true)
	match := createTestMatch(t, db, host, 1, 100)
	player := createTestUser(t, db, models.RolePlayer, true)
	order := createTestOrder(t, svc, player, match)

	changed, err := svc.ApplyOrderStatus(order.OrderID, models.PaymentOrderStatusSuccess, "webhook")
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !changed {
		t.Error("first terminal application should report a change")
	}

	var stored models.PaymentOrder
	db.Where("order_id = ?", order.OrderID).First(&stored)
	if stored.Status != models.PaymentOrderStatusSuccess {
		t.Errorf("expected SUCCESS, got %s", stored.Status)
	}
	if stored.ResolvedVia != "webhook" {
		t.Errorf("expected resolved via webhook, got %q", stored.ResolvedVia)
	}

	var reg models.Registration
	if err := db.Where("match_id = ? AND user_id = ?", match.ID, player.ID).First(&reg).Error; err != nil {
		t.Fatalf("registration not created: %v", err)
	}
	if reg.Status != models.RegistrationStatusConfirmed {
		t.Errorf("expected CONFIRMED registration, got %s", reg.Status)
	}
	if reg.PaymentMethod != "cashfree" {
		t.Errorf("expected payment method cashfree, got %q", reg.PaymentMethod)
	}
}

func TestApplyOrderStatus_DoubleDeliveryIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestPaymentStack(t, db)
	host := createTestUser(t, db, models.RoleHost, true)
	match := createTestMatch(t, db, host, 1, 100)
	player := createTestUser(t, db, models.RolePlayer, true)
	order := createTestOrder(t, svc, player, match)

	if _, err := svc.ApplyOrderStatus(order.OrderID, models.PaymentOrderStatusSuccess, "webhook"); err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	// Replayed webhook, then the sweep delivering the same terminal status.
	changed, err := svc.ApplyOrderStatus(order.OrderID, models.PaymentOrderStatusSuccess, "webhook")
	if err != nil {
		t.Fatalf("replayed apply errored: %v", err)
	}
	if changed {
		t.Error("replayed terminal application must be a no-op")
	}
	changed, err = svc.ApplyOrderStatus(order.OrderID, models.PaymentOrderStatusSuccess, "sweep")
	if err != nil {
		t.Fatalf("sweep apply errored: %v", err)
	}
	if changed {
		t.Error("sweep after webhook must be a no-op")
	}

	if count := activeRegistrationCount(t, svc, match.ID); count != 1 {
		t.Errorf("expected exactly 1 registration after double delivery, got %d", count)
	}

	var stored models.PaymentOrder
	db.Where("order_id = ?", order.OrderID).First(&stored)
	if stored.ResolvedVia != "webhook" {
		t.Errorf("winner path must stick; got %q", stored.ResolvedVia)
	}
}

func TestApplyOrderStatus_TerminalNeverRegresses(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestPaymentStack(t, db)
	host := createTestUser(t, db, models.RoleHost, true)
	match := createTestMatch(t, db, host, 2, 100)
	player := createTestUser(t, db, models.RolePlayer, true)
	order := createTestOrder(t, svc, player, match)

	if _, err := svc.ApplyOrderStatus(order.OrderID, models.PaymentOrderStatusFailed, "webhook"); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	changed, err := svc.ApplyOrderStatus(order.OrderID, models.PaymentOrderStatusSuccess, "sweep")
	if err != nil {
		t.Fatalf("conflicting apply errored: %v", err)
	}
	if changed {
		t.Error("a resolved order must not change status again")
	}

	var stored models.PaymentOrder
	db.Where("order_id = ?", order.OrderID).First(&stored)
	if stored.Status != models.PaymentOrderStatusFailed {
		t.Errorf("terminal status regressed to %s", stored.Status)
	}
	if count := activeRegistrationCount(t, svc, match.ID); count != 0 {
		t.Errorf("failed order must not create a registration, got %d", count)
	}
}

func TestApplyOrderStatus_FullMatchResolvesWithoutRegistration(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestPaymentStack(t, db)
	host := createTestUser(t, db, models.RoleHost, true)
	match := createTestMatch(t, db, host, 1, 100)
	payer := createTestUser(t, db, models.RolePlayer, true)
	order := createTestOrder(t, svc, payer, match)

	// The last slot goes to someone else while the payment is in flight.
	rival := createTestUser(t, db, models.RolePlayer, true)
	regs := NewRegistrationService(db)
	if _, _, err := regs.RegisterForMatchCore(match.ID, rival.ID, TeamInfo{}, models.RegistrationStatusConfirmed); err != nil {
		t.Fatalf("rival registration failed: %v", err)
	}

	changed, err := svc.ApplyOrderStatus(order.OrderID, models.PaymentOrderStatusSuccess, "webhook")
	if err != nil {
		t.Fatalf("apply errored: %v", err)
	}
	if !changed {
		t.Error("the order must still resolve when the slot is gone")
	}

	var stored models.PaymentOrder
	db.Where("order_id = ?", order.OrderID).First(&stored)
	if stored.Status != models.PaymentOrderStatusSuccess {
		t.Errorf("expected SUCCESS, got %s", stored.Status)
	}

	var payerRegs int64
	db.Model(&models.Registration{}).Where("match_id = ? AND user_id = ?", match.ID, payer.ID).Count(&payerRegs)
	if payerRegs != 0 {
		t.Errorf("full match must not gain a registration, got %d", payerRegs)
	}

	// Replays stop: the order is terminal, nothing keeps retrying.
	changed, err = svc.ApplyOrderStatus(order.OrderID, models.PaymentOrderStatusSuccess, "webhook")
	if err != nil || changed {
		t.Errorf("replay after lost-slot resolution: changed=%v err=%v", changed, err)
	}
}

func TestApplyOrderStatus_FinalizeFailureLeavesOrderRetryable(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestPaymentStack(t, db)
	host := createTestUser(t, db, models.RoleHost, true)
	match := createTestMatch(t, db, host, 2, 100)
	payer := createTestUser(t, db, models.RolePlayer, true)
	order := createTestOrder(t, svc, payer, match)

	// Make finalization fail after the status flip would have landed.
	if err := db.Delete(&models.User{}, "id = ?", payer.ID).Error; err != nil {
		t.Fatalf("delete payer: %v", err)
	}

	if _, err := svc.ApplyOrderStatus(order.OrderID, models.PaymentOrderStatusSuccess, "webhook"); err == nil {
		t.Fatal("expected the failed finalization to surface an error")
	}

	// The flip rolled back with it, so the order is still deliverable.
	var stored models.PaymentOrder
	db.Where("order_id = ?", order.OrderID).First(&stored)
	if stored.Status != models.PaymentOrderStatusInitiated {
		t.Fatalf("order must stay INITIATED after a rolled-back finalization, got %s", stored.Status)
	}
	if stored.ResolvedVia != "" {
		t.Errorf("rolled-back order must not record a resolver, got %q", stored.ResolvedVia)
	}

	if err := db.Unscoped().Model(&models.User{}).Where("id = ?", payer.ID).
		Update("deleted_at", nil).Error; err != nil {
		t.Fatalf("restore payer: %v", err)
	}

	changed, err := svc.ApplyOrderStatus(order.OrderID, models.PaymentOrderStatusSuccess, "webhook")
	if err != nil {
		t.Fatalf("retry after recovery failed: %v", err)
	}
	if !changed {
		t.Error("retry after recovery should apply the status")
	}
	var reg models.Registration
	if err := db.Where("match_id = ? AND user_id = ?", match.ID, payer.ID).First(&reg).Error; err != nil {
		t.Fatalf("retry did not create the registration: %v", err)
	}
	if reg.Status != models.RegistrationStatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", reg.Status)
	}
}

func TestApplyOrderStatus_NonTerminalIsNoop(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestPaymentStack(t, db)
	host := createTestUser(t, db, models.RoleHost, true)
	match := createTestMatch(t, db, host, 2, 100)
	player := createTestUser(t, db, models.RolePlayer, true)
	order := createTestOrder(t, svc, player, match)

	changed, err := svc.ApplyOrderStatus(order.OrderID, models.PaymentOrderStatusInitiated, "webhook")
	if err != nil {
		t.Fatalf("apply errored: %v", err)
	}
	if changed {
		t.Error("non-terminal status must not change the order")
	}
}

func TestWebhook_EndToEndConfirmsRegistrationExactlyOnce(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestPaymentStack(t, db)
	host := createTestUser(t, db, models.RoleHost, true)
	match := createTestMatch(t, db, host, 1, 100) // one remaining slot
	player := createTestUser(t, db, models.RolePlayer, true)
	order := createTestOrder(t, svc, player, match)

	app := fiber.New()
	app.Post("/api/webhooks/cashfree", svc.HandleWebhook)

	body := []byte(fmt.Sprintf(
		`{"data":{"order":{"order_id":"%s","order_status":"PAID"},"payment":{"payment_status":"SUCCESS"}}}`,
		order.OrderID))
	ts := "1756700000"
	sig := signWebhook("test-webhook-secret", body, ts)

	for i := 0; i < 2; i++ { // gateway delivers the webhook twice
		req := httptest.NewRequest("POST", "/api/webhooks/cashfree", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-webhook-signature", sig)
		req.Header.Set("x-webhook-timestamp", ts)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("webhook request %d failed: %v", i+1, err)
		}
		if resp.StatusCode != 200 {
			t.Fatalf("webhook request %d returned %d", i+1, resp.StatusCode)
		}
	}

	if count := activeRegistrationCount(t, svc, match.ID); count != 1 {
		t.Errorf("expected exactly 1 registration after duplicate webhook, got %d", count)
	}
	var reg models.Registration
	if err := db.Where("match_id = ? AND user_id = ?", match.ID, player.ID).First(&reg).Error; err != nil {
		t.Fatalf("registration missing: %v", err)
	}
	if reg.Status != models.RegistrationStatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", reg.Status)
	}
}

func TestWebhook_RejectsBadSignatureWithoutMutation(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestPaymentStack(t, db)
	host := createTestUser(t, db, models.RoleHost, true)
	match := createTestMatch(t, db, host, 1, 100)
	player := createTestUser(t, db, models.RolePlayer, true)
	order := createTestOrder(t, svc, player, match)

	app := fiber.New()
	app.Post("/api/webhooks/cashfree", svc.HandleWebhook)

	body := []byte(fmt.Sprintf(
		`{"data":{"order":{"order_id":"%s","order_status":"PAID"}}}`, order.OrderID))
	req := httptest.NewRequest("POST", "/api/webhooks/cashfree", bytes.NewReader(body))
	req.Header.Set("x-webhook-signature", "not-a-real-signature")
	req.Header.Set("x-webhook-timestamp", "1756700000")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("webhook request failed: %v", err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	var stored models.PaymentOrder
	db.Where("order_id = ?", order.OrderID).First(&stored)
	if stored.Status != models.PaymentOrderStatusInitiated {
		t.Errorf("unauthenticated webhook mutated order to %s", stored.Status)
	}
	if count := activeRegistrationCount(t, svc, match.ID); count != 0 {
		t.Errorf("unauthenticated webhook created a registration")
	}
}

func TestSyncStaleOrders_ResolvesFailedWithoutRegistration(t *testing.T) {
	db := newTestDB(t)
	svc, gw := newTestPaymentStack(t, db)
	host := createTestUser(t, db, models.RoleHost, true)
	match := createTestMatch(t, db, host, 2, 100)
	player := createTestUser(t, db, models.RolePlayer, true)
	order := createTestOrder(t, svc, player, match)

	// Stuck in INITIATED for over ten minutes; gateway says it failed.
	stale := time.Now().Add(-30 * time.Minute)
	if err := db.Model(&models.PaymentOrder{}).Where("order_id = ?", order.OrderID).
		Update("created_at", stale).Error; err != nil {
		t.Fatalf("backdate order: %v", err)
	}
	gw.setGatewayStatus(order.OrderID, "FAILED")

	report, err := svc.SyncStaleOrders(context.Background(), 10*time.Minute, 50)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if report.Processed != 1 || report.Resolved != 1 || report.Failed != 0 {
		t.Errorf("unexpected report: %+v", report)
	}

	var stored models.PaymentOrder
	db.Where("order_id = ?", order.OrderID).First(&stored)
	if stored.Status != models.PaymentOrderStatusFailed {
		t.Errorf("expected FAILED, got %s", stored.Status)
	}
	if stored.ResolvedVia != "sweep" {
		t.Errorf("expected resolved via sweep, got %q", stored.ResolvedVia)
	}
	if count := activeRegistrationCount(t, svc, match.ID); count != 0 {
		t.Errorf("failed order must not create a registration")
	}
}

func TestSyncStaleOrders_SkipsFreshAndIsolatesFailures(t *testing.T) {
	db := newTestDB(t)
	svc, gw := newTestPaymentStack(t, db)
	host := createTestUser(t, db, models.RoleHost, true)
	match := createTestMatch(t, db, host, 4, 100)

	fresh := createTestOrder(t, svc, createTestUser(t, db, models.RolePlayer, true), match)

	stuckPlayer := createTestUser(t, db, models.RolePlayer, true)
	stuck := createTestOrder(t, svc, stuckPlayer, match)
	unknown := createTestOrder(t, svc, createTestUser(t, db, models.RolePlayer, true), match)

	stale := time.Now().Add(-time.Hour)
	for _, orderID := range []string{stuck.OrderID, unknown.OrderID} {
		if err := db.Model(&models.PaymentOrder{}).Where("order_id = ?", orderID).
			Update("created_at", stale).Error; err != nil {
			t.Fatalf("backdate order: %v", err)
		}
	}
	gw.setGatewayStatus(stuck.OrderID, "PAID")
	// unknown.OrderID is absent from the fake gateway, so its lookup errors.

	report, err := svc.SyncStaleOrders(context.Background(), 10*time.Minute, 50)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if report.Processed != 2 {
		t.Errorf("expected 2 processed (fresh order skipped), got %d", report.Processed)
	}
	if report.Resolved != 1 || report.Failed != 1 {
		t.Errorf("unexpected report: %+v", report)
	}

	var freshStored models.PaymentOrder
	db.Where("order_id = ?", fresh.OrderID).First(&freshStored)
	if freshStored.Status != models.PaymentOrderStatusInitiated {
		t.Errorf("fresh order touched by sweep: %s", freshStored.Status)
	}

	var reg models.Registration
	if err := db.Where("match_id = ? AND user_id = ?", match.ID, stuckPlayer.ID).First(&reg).Error; err != nil {
		t.Fatalf("resolved order did not register its user: %v", err)
	}
}

func TestFinalizeRegistration_ConfirmsPendingRow(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestPaymentStack(t, db)
	host := createTestUser(t, db, models.RoleHost, true)
	match := createTestMatch(t, db, host, 2, 100)
	player := createTestUser(t, db, models.RolePlayer, true)

	// Pre-existing pending registration from the registration-intent flow.
	regs := NewRegistrationService(db)
	pending, _, err := regs.RegisterForMatchCore(match.ID, player.ID, TeamInfo{}, models.RegistrationStatusPendingPayment)
	if err != nil {
		t.Fatalf("pending registration failed: %v", err)
	}

	order := createTestOrder(t, svc, player, match)
	if _, err := svc.ApplyOrderStatus(order.OrderID, models.PaymentOrderStatusSuccess, "webhook"); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	var stored models.Registration
	db.First(&stored, "id = ?", pending.ID)
	if stored.Status != models.RegistrationStatusConfirmed {
		t.Errorf("pending registration not confirmed: %s", stored.Status)
	}
	if count := activeRegistrationCount(t, svc, match.ID); count != 1 {
		t.Errorf("expected the pending row to be reused, got %d rows", count)
	}
}
