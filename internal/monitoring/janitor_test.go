package monitoring

import (
	"testing"
	"time"

	"github.com/avren/tasklist-be/internal/models"
)

type stubEventService struct {
	prunedBefore time.Time
	pruneCalls   int
}

func (s *stubEventService) Record(eventType, level, message string, userID *string) error {
	return nil
}

func (s *stubEventService) GetRecentForUser(userID string, limit int) ([]models.Event, error) {
	return nil, nil
}

func (s *stubEventService) PruneOlderThan(cutoff time.Time) (int64, error) {
	s.prunedBefore = cutoff
	s.pruneCalls++
	return 3, nil
}

func TestNewJanitorValidatesCron(t *testing.T) {
	if _, err := NewJanitor(&stubEventService{}, "not a cron expr", 30); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
	if _, err := NewJanitor(&stubEventService{}, "0 3 * * *", 30); err != nil {
		t.Fatalf("NewJanitor returned error for valid expression: %v", err)
	}
}

func TestPruneUsesRetentionWindow(t *testing.T) {
	stub := &stubEventService{}
	j, err := NewJanitor(stub, "0 3 * * *", 30)
	if err != nil {
		t.Fatalf("NewJanitor returned error: %v", err)
	}

	now := time.Now()
	j.prune(now)

	if stub.pruneCalls != 1 {
		t.Fatalf("prune calls = %d, want 1", stub.pruneCalls)
	}
	want := now.Add(-30 * 24 * time.Hour)
	if !stub.prunedBefore.Equal(want) {
		t.Fatalf("cutoff = %v, want %v", stub.prunedBefore, want)
	}
}
