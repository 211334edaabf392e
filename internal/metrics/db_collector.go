package metrics

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func StartDBCollectors(ctx context.Context, db *pgxpool.Pool, interval time.Duration, logger *log.Logger) {
	if db == nil {
		return
	}
	if logger == nil {
		logger = log.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		updateDBGauges(ctx, db, logger)
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				updateDBGauges(ctx, db, logger)
			}
		}
	}()
}

func updateDBGauges(ctx context.Context, db *pgxpool.Pool, logger *log.Logger) {
	// active deals count
	{
		var cnt int64
		err := db.QueryRow(ctx, `SELECT COUNT(*) FROM deals WHERE is_active`).Scan(&cnt)
		if err != nil {
			logger.Printf("metrics db query deals: %v", err)
		} else {
			SetActiveDealsCount(cnt)
		}
	}

	// outbox counts by status
	{
		rows, err := db.Query(ctx, `SELECT status, COUNT(*) FROM notifications_outbox GROUP BY status`)
		if err != nil {
			logger.Printf("metrics db query outbox: %v", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var status string
			var cnt int64
			if err := rows.Scan(&status, &cnt); err != nil {
				logger.Printf("metrics db scan outbox: %v", err)
				continue
			}
			SetOutboxStatusCount(status, cnt)
		}
	}
}
