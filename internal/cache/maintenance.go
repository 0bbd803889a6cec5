package cache

import (
	"log/slog"
	"time"
)

// expiryLoop periodically sweeps expired entries from every region.
//
// Periodic sweeps are not counted as automatic cleanups; those only count
// size-triggered sweeps.
func (s *Store) expiryLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			// If Close raced with the ticker, still safe: Close cancels ctx, notifies loop.
			report := s.deleteExpiredLocked(s.now())
			s.mu.Unlock()

			if n := report.Total(); n > 0 {
				s.logger.Debug("cache periodic cleanup", slog.Int("removed", n))
			}
		}
	}
}
