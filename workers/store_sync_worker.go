package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/services"
)

// Importer runs one store import.
type Importer interface {
	Import(ctx context.Context, opts services.ImportOptions) (*services.ImportResult, error)
}

// StoreSyncWorker keeps imported thrift stores fresh. The import guard makes
// ticks inside the freshness window no-ops.
type StoreSyncWorker struct {
	importer Importer
	interval time.Duration
	opts     services.ImportOptions
}

func NewStoreSyncWorker(importer Importer, interval time.Duration, defaultRadius float64) *StoreSyncWorker {
	opts := services.DefaultImportOptions()
	if defaultRadius > 0 {
		opts.DefaultRadius = defaultRadius
	}
	return &StoreSyncWorker{importer: importer, interval: interval, opts: opts}
}

func (w *StoreSyncWorker) Start(ctx context.Context) {
	slog.Info("[SYNC] starting store sync worker", "interval", w.interval)
	go w.run(ctx)
}

func (w *StoreSyncWorker) run(ctx context.Context) {
	w.syncOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.syncOnce(ctx)
		case <-ctx.Done():
			slog.Info("[SYNC] store sync worker stopped")
			return
		}
	}
}

func (w *StoreSyncWorker) syncOnce(ctx context.Context) {
	res, err := w.importer.Import(ctx, w.opts)
	if err != nil {
		slog.Error("[SYNC] store import failed", "error", err)
		return
	}
	if res.Skipped != "" {
		slog.Debug("[SYNC] store import skipped", "reason", res.Skipped)
		return
	}
	slog.Info("[SYNC] store import finished",
		"created_locations", res.CreatedLocations,
		"skipped_existing", res.SkippedExisting,
		"quests_created", res.QuestsCreated)
}
