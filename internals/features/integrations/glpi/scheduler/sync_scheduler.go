package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	syncModel "loginuv_backend/internals/features/integrations/glpi/model"
	syncService "loginuv_backend/internals/features/integrations/glpi/service"
)

type SyncTrigger interface {
	Trigger(ctx context.Context, mode syncModel.RunType) (*syncModel.SyncRunModel, error)
}

// StartSyncScheduler triggers a scheduled GLPI run every interval until ctx ends.
// A tick that finds a run in flight is skipped.
func StartSyncScheduler(ctx context.Context, svc SyncTrigger, every time.Duration, log *zap.Logger) {
	if every <= 0 {
		log.Info("[GLPI] sync terjadwal nonaktif")
		return
	}
	log = log.Named("glpi-scheduler")
	log.Info("[GLPI] sync terjadwal aktif", zap.Duration("interval", every))

	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info("[GLPI] scheduler berhenti")
				return
			case <-ticker.C:
			}

			run, err := svc.Trigger(ctx, syncModel.RunTypeScheduled)
			switch {
			case errors.Is(err, syncService.ErrSyncAlreadyRunning):
				log.Info("[GLPI] sync masih berjalan, tick dilewati")
			case err != nil:
				log.Error("[GLPI ERROR] sync terjadwal gagal dimulai", zap.Error(err))
			default:
				log.Info("[GLPI] sync terjadwal selesai",
					zap.Int64("run_id", run.ID),
					zap.String("status", string(run.Status)),
				)
			}
		}
	}()
}
