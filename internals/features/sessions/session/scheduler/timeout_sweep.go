package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type StaleSessionCloser interface {
	ExpireStale(ctx context.Context, timeout time.Duration) (int, error)
}

// StartTimeoutSweep closes sessions on machines that stopped reporting.
// It returns immediately when timeout is zero. The loop ends with ctx.
func StartTimeoutSweep(ctx context.Context, svc StaleSessionCloser, timeout, every time.Duration, log *zap.Logger) {
	if timeout <= 0 || every <= 0 {
		log.Info("[SWEEP] timeout sesi nonaktif")
		return
	}
	log = log.Named("sweep")
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info("[SWEEP] berhenti")
				return
			case <-ticker.C:
			}

			n, err := svc.ExpireStale(ctx, timeout)
			switch {
			case err != nil:
				log.Error("[SWEEP ERROR] gagal menutup sesi kadaluarsa", zap.Error(err))
			case n > 0:
				log.Info("[SWEEP] sesi kadaluarsa ditutup", zap.Int("closed", n))
			}
		}
	}()
}
