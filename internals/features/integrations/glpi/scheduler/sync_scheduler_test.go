package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	syncModel "loginuv_backend/internals/features/integrations/glpi/model"
	syncService "loginuv_backend/internals/features/integrations/glpi/service"
)

type stubTrigger struct {
	calls atomic.Int32
	modes chan syncModel.RunType
}

func (s *stubTrigger) Trigger(ctx context.Context, mode syncModel.RunType) (*syncModel.SyncRunModel, error) {
	n := s.calls.Add(1)
	select {
	case s.modes <- mode:
	default:
	}
	if n == 1 {
		return nil, syncService.ErrSyncAlreadyRunning
	}
	return &syncModel.SyncRunModel{ID: int64(n), Status: syncModel.RunStatusSuccess}, nil
}

func TestStartSyncScheduler_SkipsBusyTickAndContinues(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &stubTrigger{modes: make(chan syncModel.RunType, 8)}

	StartSyncScheduler(ctx, s, 5*time.Millisecond, zap.NewNop())

	deadline := time.After(2 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case mode := <-s.modes:
			if mode != syncModel.RunTypeScheduled {
				t.Fatalf("expected scheduled mode, got %s", mode)
			}
		case <-deadline:
			t.Fatalf("expected two ticks, got %d", s.calls.Load())
		}
	}
}

func TestStartSyncScheduler_Disabled(t *testing.T) {
	s := &stubTrigger{modes: make(chan syncModel.RunType, 1)}
	StartSyncScheduler(context.Background(), s, 0, zap.NewNop())
	time.Sleep(20 * time.Millisecond)
	if n := s.calls.Load(); n != 0 {
		t.Fatalf("expected no runs when disabled, got %d", n)
	}
}
