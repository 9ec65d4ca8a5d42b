package db

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// History is an opened Database with a running Writer in front of it.
type History struct {
	*Database
	*Writer
}

// OpenHistory opens path, prunes renders older than retention when retention
// is positive, and starts the Writer.
func OpenHistory(ctx context.Context, path string, retention time.Duration, logger *zap.Logger) (*History, error) {
	d, err := Open(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if retention > 0 {
		n, err := d.DeleteRendersBefore(ctx, time.Now().Add(-retention))
		if err != nil {
			d.Close()
			return nil, err
		}
		logger.Info("render history pruned", zap.Int64("deleted", n), zap.Duration("retention", retention))
	}

	w := NewWriter(d, DefaultQueueSize, logger)
	w.Start()
	return &History{Database: d, Writer: w}, nil
}

// Close stores what is queued, then closes the database.
func (h *History) Close(ctx context.Context) error {
	return errors.Join(h.Writer.Stop(ctx), h.Database.Close())
}
