package services

import (
	"errors"
	"testing"

	"bgmi-scrims-system/models"
)

func TestRegisterForMatch_Succeeds(t *testing.T) {
	db := newTestDB(t)
	svc := NewRegistrationService(db)
	host := createTestUser(t, db, models.RoleHost, true)
	match := createTestMatch(t, db, host, 4, 0)
	player := createTestUser(t, db, models.RolePlayer, true)

	reg, snap, err := svc.RegisterForMatchCore(match.ID, player.ID,
		TeamInfo{CaptainGameID: "cap-1"}, models.RegistrationStatusConfirmed)
	if err != nil {
		t.Fatalf("RegisterForMatchCore failed: %v", err)
	}
	if reg.Status != models.RegistrationStatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", reg.Status)
	}
	if snap.ID != match.ID {
		t.Errorf("expected match snapshot %s, got %s", match.ID, snap.ID)
	}
}

func TestRegisterForMatch_RejectsUnverifiedEmail(t *testing.T) {
	db := newTestDB(t)
	svc := NewRegistrationService(db)
	host := createTestUser(t, db, models.RoleHost, true)
	match := createTestMatch(t, db, host, 4, 0)
	player := createTestUser(t, db, models.RolePlayer, false)

	_, _, err := svc.RegisterForMatchCore(match.ID, player.ID, TeamInfo{}, models.RegistrationStatusConfirmed)
	if !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}
}

func TestRegisterForMatch_RejectsDuplicate(t *testing.T) {
	db := newTestDB(t)
	svc := NewRegistrationService(db)
	host := createTestUser(t, db, models.RoleHost, true)
	match := createTestMatch(t, db, host, 4, 0)
	player := createTestUser(t, db, models.RolePlayer, true)

	if _, _, err := svc.RegisterForMatchCore(match.ID, player.ID, TeamInfo{}, models.RegistrationStatusPendingPayment); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	_, _, err := svc.RegisterForMatchCore(match.ID, player.ID, TeamInfo{}, models.RegistrationStatusConfirmed)
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}

	var count int64
	db.Model(&models.Registration{}).
		Where("match_id = ? AND user_id = ? AND status <> ?", match.ID, player.ID, models.RegistrationStatusCancelled).
		Count(&count)
	if count != 1 {
		t.Errorf("expected exactly 1 active registration, got %d", count)
	}
}

func TestRegisterForMatch_EnforcesCapacity(t *testing.T) {
	db := newTestDB(t)
	svc := NewRegistrationService(db)
	host := createTestUser(t, db, models.RoleHost, true)
	match := createTestMatch(t, db, host, 2, 0)

	for i := 0; i < 2; i++ {
		player := createTestUser(t, db, models.RolePlayer, true)
		if _, _, err := svc.RegisterForMatchCore(match.ID, player.ID, TeamInfo{}, models.RegistrationStatusConfirmed); err != nil {
			t.Fatalf("registration %d failed: %v", i+1, err)
		}
	}

	extra := createTestUser(t, db, models.RolePlayer, true)
	_, _, err := svc.RegisterForMatchCore(match.ID, extra.ID, TeamInfo{}, models.RegistrationStatusConfirmed)
	if !errors.Is(err, ErrMatchFull) {
		t.Fatalf("expected ErrMatchFull, got %v", err)
	}

	var count int64
	db.Model(&models.Registration{}).
		Where("match_id = ? AND status <> ?", match.ID, models.RegistrationStatusCancelled).
		Count(&count)
	if count != 2 {
		t.Errorf("active registrations exceed capacity: %d > 2", count)
	}
}

func TestRegisterForMatch_CancelledSlotIsReusable(t *testing.T) {
	db := newTestDB(t)
	svc := NewRegistrationService(db)
	host := createTestUser(t, db, models.RoleHost, true)
	match := createTestMatch(t, db, host, 1, 0)
	first := createTestUser(t, db, models.RolePlayer, true)
	second := createTestUser(t, db, models.RolePlayer, true)

	reg, _, err := svc.RegisterForMatchCore(match.ID, first.ID, TeamInfo{}, models.RegistrationStatusConfirmed)
	if err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	// Full match refuses the second player.
	if _, _, err := svc.RegisterForMatchCore(match.ID, second.ID, TeamInfo{}, models.RegistrationStatusConfirmed); !errors.Is(err, ErrMatchFull) {
		t.Fatalf("expected ErrMatchFull, got %v", err)
	}

	if err := db.Model(reg).Update("status", models.RegistrationStatusCancelled).Error; err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if _, _, err := svc.RegisterForMatchCore(match.ID, second.ID, TeamInfo{}, models.RegistrationStatusConfirmed); err != nil {
		t.Fatalf("registration after cancel failed: %v", err)
	}
}

func TestRegisterForMatch_RejectsNonUpcoming(t *testing.T) {
	db := newTestDB(t)
	svc := NewRegistrationService(db)
	host := createTestUser(t, db, models.RoleHost, true)
	match := createTestMatch(t, db, host, 4, 0)
	player := createTestUser(t, db, models.RolePlayer, true)

	setMatchStatus(t, db, match, models.MatchStatusOngoing)

	_, _, err := svc.RegisterForMatchCore(match.ID, player.ID, TeamInfo{}, models.RegistrationStatusConfirmed)
	if !errors.Is(err, ErrMatchNotOpen) {
		t.Fatalf("expected ErrMatchNotOpen, got %v", err)
	}
}
