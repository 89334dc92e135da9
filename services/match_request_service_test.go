package services

import (
	"errors"
	"testing"

	"bgmi-scrims-system/models"

	"github.com/google/uuid"
)

func TestVoteCore_OneVotePerUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewMatchRequestService(db)
	requester := createTestUser(t, db, models.RolePlayer, true)
	voter := createTestUser(t, db, models.RolePlayer, true)

	request := &models.MatchRequest{
		ID:     uuid.NewString(),
		UserID: requester.ID,
		Map:    "Miramar",
	}
	if err := db.Create(request).Error; err != nil {
		t.Fatalf("create request: %v", err)
	}

	if _, err := svc.VoteCore(request.ID, voter.ID); err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	if _, err := svc.VoteCore(request.ID, voter.ID); !errors.Is(err, ErrAlreadyVoted) {
		t.Errorf("expected ErrAlreadyVoted, got %v", err)
	}

	// A different user can still vote.
	if _, err := svc.VoteCore(request.ID, requester.ID); err != nil {
		t.Fatalf("second user's vote failed: %v", err)
	}

	var count int64
	db.Model(&models.MatchRequestVote{}).Where("request_id = ?", request.ID).Count(&count)
	if count != 2 {
		t.Errorf("expected 2 votes, got %d", count)
	}
}

func TestVoteCore_UnknownRequest(t *testing.T) {
	db := newTestDB(t)
	svc := NewMatchRequestService(db)
	voter := createTestUser(t, db, models.RolePlayer, true)

	if _, err := svc.VoteCore(uuid.NewString(), voter.ID); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("expected ErrMatchNotFound, got %v", err)
	}
}
