package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"bgmi-scrims-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database and migrates the schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Match{},
		&models.MatchResult{},
		&models.Registration{},
		&models.PaymentOrder{},
		&models.ResultSubmission{},
		&models.HostApplication{},
		&models.MatchRequest{},
		&models.MatchRequestVote{},
		&models.FileMetadata{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, role models.Role, verified bool) *models.User {
	t.Helper()
	id := uuid.NewString()
	user := &models.User{
		ID:            id,
		Username:      "user-" + id[:8],
		Email:         id[:8] + "@example.com",
		Phone:         "9999999999",
		PasswordHash:  "x",
		Role:          role,
		EmailVerified: verified,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func createTestMatch(t *testing.T, db *gorm.DB, creator *models.User, maxSlots int, entryFee float64) *models.Match {
	t.Helper()
	id := uuid.NewString()
	matchType := models.MatchTypeCommunity
	if creator.Role == models.RoleAdmin {
		matchType = models.MatchTypeOfficial
	}
	match := &models.Match{
		ID:          id,
		MatchID:     "ERANGEL-20260901-" + id[:3],
		Slug:        "erangel-20260901-" + id[:3],
		Map:         "Erangel",
		StartTime:   time.Now().Add(2 * time.Hour),
		EntryFee:    entryFee,
		MaxSlots:    maxSlots,
		PrizeFirst:  300,
		PrizeSecond: 150,
		PrizeThird:  50,
		PrizePool:   500,
		Status:      models.MatchStatusUpcoming,
		Type:        matchType,
		CreatedByID: creator.ID,
	}
	if err := db.Create(match).Error; err != nil {
		t.Fatalf("create test match: %v", err)
	}
	return match
}

// authAs injects the session identity the way the session middleware does.
func authAs(user *models.User) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", user.ID)
		c.Locals("user_role", user.Role)
		c.Locals("user_email", user.Email)
		return c.Next()
	}
}

func setMatchStatus(t *testing.T, db *gorm.DB, match *models.Match, status models.MatchStatus) {
	t.Helper()
	if err := db.Model(match).Update("status", status).Error; err != nil {
		t.Fatalf("set match status: %v", err)
	}
	match.Status = status
}

// fakeGateway is an in-memory PaymentGateway for payment workflow tests.
type fakeGateway struct {
	orders      map[string]*CashfreeOrder
	createErr   error
	lookupErr   error
	createCalls int
	lookupCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{orders: make(map[string]*CashfreeOrder)}
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req CashfreeOrderRequest) (*CashfreeOrder, error) {
	g.createCalls++
	if g.createErr != nil {
		return nil, g.createErr
	}
	order := &CashfreeOrder{
		OrderID:          req.OrderID,
		OrderAmount:      req.OrderAmount,
		OrderCurrency:    req.OrderCurrency,
		OrderStatus:      "ACTIVE",
		PaymentSessionID: "session_" + req.OrderID,
	}
	g.orders[req.OrderID] = order
	return order, nil
}

func (g *fakeGateway) GetOrder(ctx context.Context, orderID string) (*CashfreeOrder, error) {
	g.lookupCalls++
	if g.lookupErr != nil {
		return nil, g.lookupErr
	}
	order, ok := g.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s not found", orderID)
	}
	return order, nil
}

func (g *fakeGateway) CheckoutURL(paymentSessionID string) string {
	return "https://checkout.test/order/#" + paymentSessionID
}

// setGatewayStatus simulates the gateway resolving an order.
func (g *fakeGateway) setGatewayStatus(orderID, status string) {
	if order, ok := g.orders[orderID]; ok {
		order.OrderStatus = status
	} else {
		g.orders[orderID] = &CashfreeOrder{OrderID: orderID, OrderStatus: status}
	}
}

func newTestPaymentStack(t *testing.T, db *gorm.DB) (*PaymentService, *fakeGateway) {
	t.Helper()
	gw := newFakeGateway()
	regs := NewRegistrationService(db)
	svc := NewPaymentService(db, gw, "test-webhook-secret", "https://scrims.test", regs)
	return svc, gw
}
