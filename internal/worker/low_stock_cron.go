package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// LowStockScanner is implemented by the stock service.
type LowStockScanner interface {
	ScanLowStock(ctx context.Context) (int, error)
}

// StartLowStockCron runs scanner every interval until ctx is done.
func StartLowStockCron(ctx context.Context, scanner LowStockScanner, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		log.Info().Dur("interval", interval).Msg("low_stock_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("low_stock_cron: shutting down")
				return
			case <-ticker.C:
				n, err := scanner.ScanLowStock(ctx)
				if err != nil {
					log.Error().Err(err).Msg("low_stock_cron: scan failed")
					continue
				}
				if n > 0 {
					log.Info().Int("products", n).Msg("low_stock_cron: alerts published")
				}
			}
		}
	}()
}
